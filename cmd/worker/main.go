package main

import (
	"context"
	"log/slog"
	"os"

	"github.com/hibiken/asynq"
	"github.com/joho/godotenv"

	"github.com/saturnlabs/docchat/internal/config"
	"github.com/saturnlabs/docchat/internal/database"
	"github.com/saturnlabs/docchat/internal/document"
	"github.com/saturnlabs/docchat/internal/embedding"
	"github.com/saturnlabs/docchat/internal/llm"
	"github.com/saturnlabs/docchat/internal/queue"
	"github.com/saturnlabs/docchat/internal/queue/workers"
	"github.com/saturnlabs/docchat/internal/rag"
	"github.com/saturnlabs/docchat/internal/storage"
	"github.com/saturnlabs/docchat/internal/vectorstore"
	"github.com/saturnlabs/docchat/pkg/chunker"
)

func main() {
	logger := slog.New(slog.NewJSONHandler(os.Stdout, &slog.HandlerOptions{Level: slog.LevelInfo}))
	slog.SetDefault(logger)

	_ = godotenv.Load()

	cfg, err := config.Load()
	if err != nil {
		slog.Error("failed to load config", "error", err)
		os.Exit(1)
	}
	if err := cfg.Validate(); err != nil {
		slog.Error("invalid config", "error", err)
		os.Exit(1)
	}

	ctx := context.Background()

	db, err := database.NewPool(ctx, cfg.Database)
	if err != nil {
		slog.Error("database unavailable", "error", err)
		os.Exit(1)
	}
	defer db.Close()

	store := storage.NewSupabaseStorage(cfg.Storage.BaseURL, cfg.Storage.ServiceKey)
	index := vectorstore.NewPgVectorIndex(db)
	docSvc := document.NewService(db, store, cfg.Storage.Bucket, index)
	queueClient := queue.NewClient(cfg.Redis)
	defer queueClient.Close()

	gw := llm.NewGateway(cfg.LLM)
	embedSvc := embedding.NewService(gw, cfg.LLM.DefaultProvider, cfg.LLM.EmbedModel,
		cfg.Embed.BatchSize, cfg.Embed.Dimension)

	chunkOpts := chunker.DefaultOptions()
	chunkOpts.MinLength = cfg.Ingest.MinChunkLength
	pipeline := rag.NewPipeline(docSvc, embedSvc, index, chunkOpts, cfg.Ingest.Parallelism)

	srv := asynq.NewServer(
		asynq.RedisClientOpt{
			Addr:     cfg.Redis.Addr,
			Password: cfg.Redis.Password,
			DB:       cfg.Redis.DB,
		},
		asynq.Config{
			Concurrency: 10,
			Queues: map[string]int{
				"critical": 6,
				"default":  3,
				"low":      1,
			},
		},
	)

	registry := queue.NewHandlersRegistry()

	extractWorker := workers.NewExtractWorker(docSvc, store, cfg.Storage.Bucket, queueClient)
	ingestWorker := workers.NewIngestWorker(docSvc, pipeline)

	registry.Register(queue.TypeDocumentExtract, asynq.HandlerFunc(extractWorker.ProcessTask))
	registry.Register(queue.TypeDocumentIngest, asynq.HandlerFunc(ingestWorker.ProcessTask))

	slog.Info("starting worker", "concurrency", 10)
	if err := srv.Run(registry.Mux()); err != nil {
		slog.Error("worker error", "error", err)
		os.Exit(1)
	}
}
