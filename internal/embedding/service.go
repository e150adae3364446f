package embedding

import (
	"context"
	"fmt"

	"github.com/saturnlabs/docchat/internal/llm"
)

const defaultBatchSize = 5

// Service wraps the embedding side of the llm gateway with a fixed batch
// cap and a fixed-dimension contract. The upstream service accepts at most
// BatchSize texts per call; a batch fails or succeeds as a whole unit, and
// there is no per-item retry inside one.
type Service struct {
	gateway   llm.Gateway
	provider  string
	model     string
	batchSize int
	dimension int
}

func NewService(gw llm.Gateway, provider, model string, batchSize, dimension int) *Service {
	if batchSize <= 0 {
		batchSize = defaultBatchSize
	}
	return &Service{
		gateway:   gw,
		provider:  provider,
		model:     model,
		batchSize: batchSize,
		dimension: dimension,
	}
}

func (s *Service) BatchSize() int { return s.batchSize }

func (s *Service) Model() string { return s.model }

// EmbedBatch embeds one batch, returning exactly one vector per input text
// in input order.
func (s *Service) EmbedBatch(ctx context.Context, batch []string) ([][]float32, error) {
	if len(batch) == 0 {
		return nil, nil
	}
	if len(batch) > s.batchSize {
		return nil, fmt.Errorf("batch of %d exceeds cap %d", len(batch), s.batchSize)
	}

	resp, err := s.gateway.Embed(ctx, llm.EmbeddingRequest{
		Provider: s.provider,
		Model:    s.model,
		Input:    batch,
	})
	if err != nil {
		return nil, fmt.Errorf("embed batch: %w", err)
	}
	if len(resp.Embeddings) != len(batch) {
		return nil, fmt.Errorf("embed batch: got %d vectors for %d texts", len(resp.Embeddings), len(batch))
	}
	// The whole corpus shares one dimensionality; a malformed vector is
	// rejected here, not silently stored and later ranked.
	if s.dimension > 0 {
		for i, v := range resp.Embeddings {
			if len(v) != s.dimension {
				return nil, fmt.Errorf("embed batch: vector %d has dimension %d, want %d", i, len(v), s.dimension)
			}
		}
	}
	return resp.Embeddings, nil
}

// EmbedQuery embeds a single text as a one-item batch.
func (s *Service) EmbedQuery(ctx context.Context, text string) ([]float32, error) {
	vectors, err := s.EmbedBatch(ctx, []string{text})
	if err != nil {
		return nil, err
	}
	return vectors[0], nil
}
