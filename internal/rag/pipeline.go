package rag

import (
	"context"
	"fmt"
	"log/slog"
	"sync"

	"github.com/google/uuid"
	"golang.org/x/sync/errgroup"

	"github.com/saturnlabs/docchat/internal/embedding"
	"github.com/saturnlabs/docchat/internal/models"
	"github.com/saturnlabs/docchat/internal/vectorstore"
	"github.com/saturnlabs/docchat/pkg/chunker"
	"github.com/saturnlabs/docchat/pkg/tokenizer"
)

// DocumentStore is the slice of the document store the core needs: guarded
// status transitions and ingestion bookkeeping.
type DocumentStore interface {
	Transition(ctx context.Context, id uuid.UUID, from, to string) (bool, error)
	SetChunkCounts(ctx context.Context, id uuid.UUID, expected, indexed int) error
	CountIndexed(ctx context.Context, ownerID uuid.UUID) (int, error)
}

// Pipeline turns one document's extracted text into embedded, searchable
// chunks. One run handles one document; separate documents run
// independently.
type Pipeline struct {
	docs        DocumentStore
	embed       *embedding.Service
	index       vectorstore.VectorIndex
	chunkOpts   chunker.ChunkOptions
	parallelism int
}

func NewPipeline(docs DocumentStore, embed *embedding.Service, index vectorstore.VectorIndex, chunkOpts chunker.ChunkOptions, parallelism int) *Pipeline {
	if parallelism <= 0 {
		parallelism = 1
	}
	return &Pipeline{
		docs:        docs,
		embed:       embed,
		index:       index,
		chunkOpts:   chunkOpts,
		parallelism: parallelism,
	}
}

type IngestStats struct {
	Skipped       bool // entry guard refused the run
	ChunksTotal   int
	ChunksIndexed int
	BatchesFailed int
}

// Ingest runs the extracted -> indexing -> indexed leg of a document's
// lifecycle. The entry edge is compare-and-swapped, so a duplicate trigger
// delivery for the same document is a no-op rather than a second chunking
// pass. Embedding batches run with bounded parallelism; a failed batch
// loses only its own chunks, and the document still finishes indexed with
// the shortfall recorded in its chunk counts.
func (p *Pipeline) Ingest(ctx context.Context, docID, ownerID uuid.UUID, text string) (IngestStats, error) {
	ok, err := p.docs.Transition(ctx, docID, models.DocStatusExtracted, models.DocStatusIndexing)
	if err != nil {
		return IngestStats{}, fmt.Errorf("enter indexing: %w", err)
	}
	if !ok {
		slog.Info("ingestion skipped, document not in extracted state", "document_id", docID)
		return IngestStats{Skipped: true}, nil
	}

	chunks := chunker.New().Chunk(text, p.chunkOpts)
	stats := IngestStats{ChunksTotal: len(chunks)}

	batchSize := p.embed.BatchSize()

	var mu sync.Mutex
	g, gctx := errgroup.WithContext(ctx)
	g.SetLimit(p.parallelism)

	for start := 0; start < len(chunks); start += batchSize {
		end := min(start+batchSize, len(chunks))
		batch := chunks[start:end]

		g.Go(func() error {
			texts := make([]string, len(batch))
			for i, c := range batch {
				texts[i] = c.Content
			}

			vectors, err := p.embed.EmbedBatch(gctx, texts)
			if err != nil {
				slog.Error("embedding batch failed",
					"document_id", docID, "batch_start", batch[0].Index, "error", err)
				mu.Lock()
				stats.BatchesFailed++
				mu.Unlock()
				return nil // isolated: later batches keep going
			}

			records := make([]models.Chunk, len(batch))
			for i, c := range batch {
				records[i] = models.Chunk{
					ID:         uuid.New(),
					DocumentID: docID,
					OwnerID:    ownerID,
					ChunkIndex: c.Index,
					Content:    c.Content,
					Embedding:  vectors[i],
					TokenCount: tokenizer.EstimateTokens(c.Content),
				}
			}

			if err := p.index.Upsert(gctx, records); err != nil {
				slog.Error("storing chunk batch failed",
					"document_id", docID, "batch_start", batch[0].Index, "error", err)
				mu.Lock()
				stats.BatchesFailed++
				mu.Unlock()
				return nil
			}

			mu.Lock()
			stats.ChunksIndexed += len(records)
			mu.Unlock()
			return nil
		})
	}

	// Batch workers never return errors; Wait only observes context
	// cancellation.
	if err := g.Wait(); err != nil {
		return stats, fmt.Errorf("ingest batches: %w", err)
	}

	if err := p.docs.SetChunkCounts(ctx, docID, stats.ChunksTotal, stats.ChunksIndexed); err != nil {
		slog.Error("recording chunk counts failed", "document_id", docID, "error", err)
	}

	// The document reaches indexed even when some batches failed: an
	// under-indexed document is usable, a stuck one is not.
	if _, err := p.docs.Transition(ctx, docID, models.DocStatusIndexing, models.DocStatusIndexed); err != nil {
		return stats, fmt.Errorf("finish indexing: %w", err)
	}

	slog.Info("document ingested",
		"document_id", docID,
		"chunks_total", stats.ChunksTotal,
		"chunks_indexed", stats.ChunksIndexed,
		"batches_failed", stats.BatchesFailed,
	)
	return stats, nil
}
