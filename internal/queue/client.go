package queue

import (
	"encoding/json"
	"fmt"
	"time"

	"github.com/hibiken/asynq"

	"github.com/saturnlabs/docchat/internal/config"
)

// Enqueuer is the producer side of the task queue. Handlers depend on
// this rather than the concrete client so tests can capture enqueues.
type Enqueuer interface {
	EnqueueDocumentExtract(payload DocumentExtractPayload) error
	EnqueueDocumentIngest(payload DocumentIngestPayload) error
}

type Client struct {
	client *asynq.Client
}

func NewClient(cfg config.RedisConfig) *Client {
	return &Client{
		client: asynq.NewClient(asynq.RedisClientOpt{
			Addr:     cfg.Addr,
			Password: cfg.Password,
			DB:       cfg.DB,
		}),
	}
}

func (c *Client) Close() error {
	return c.client.Close()
}

// Extraction failure is terminal (the document is marked error), so the
// task is never retried.
func (c *Client) EnqueueDocumentExtract(payload DocumentExtractPayload) error {
	return c.enqueue(TypeDocumentExtract, payload, asynq.MaxRetry(0), asynq.Timeout(10*time.Minute))
}

func (c *Client) EnqueueDocumentIngest(payload DocumentIngestPayload) error {
	return c.enqueue(TypeDocumentIngest, payload, asynq.MaxRetry(3), asynq.Timeout(10*time.Minute))
}

func (c *Client) enqueue(taskType string, payload interface{}, opts ...asynq.Option) error {
	data, err := json.Marshal(payload)
	if err != nil {
		return fmt.Errorf("marshal payload: %w", err)
	}
	task := asynq.NewTask(taskType, data)
	_, err = c.client.Enqueue(task, opts...)
	if err != nil {
		return fmt.Errorf("enqueue %s: %w", taskType, err)
	}
	return nil
}
