package vectorstore

import (
	"context"
	"math"

	"github.com/google/uuid"

	"github.com/saturnlabs/docchat/internal/models"
)

type SearchOptions struct {
	OwnerID uuid.UUID
	TopK    int
}

type SearchResult struct {
	ChunkID    uuid.UUID `json:"chunk_id"`
	DocumentID uuid.UUID `json:"document_id"`
	Content    string    `json:"content"`
	Score      float64   `json:"score"`
	ChunkIndex int       `json:"chunk_index"`
}

// VectorIndex finds the chunks most similar to a query vector, scoped to a
// single owner's indexed documents. The default implementation is a linear
// scan; the interface is deliberately narrow so an approximate-nearest-
// neighbor index can slot in behind it without touching callers.
type VectorIndex interface {
	Upsert(ctx context.Context, chunks []models.Chunk) error
	Search(ctx context.Context, query []float32, opts SearchOptions) ([]SearchResult, error)
	DeleteByDocument(ctx context.Context, ownerID, documentID uuid.UUID) error
	DeleteByOwner(ctx context.Context, ownerID uuid.UUID) error
}

// Cosine computes cosine similarity between two vectors. A zero-norm or
// length-mismatched vector scores 0 rather than erroring: a degenerate
// embedding must never dominate a ranking or crash a query.
func Cosine(a, b []float32) float64 {
	if len(a) == 0 || len(a) != len(b) {
		return 0
	}
	var dot, normA, normB float64
	for i := range a {
		dot += float64(a[i]) * float64(b[i])
		normA += float64(a[i]) * float64(a[i])
		normB += float64(b[i]) * float64(b[i])
	}
	if normA == 0 || normB == 0 {
		return 0
	}
	return dot / (math.Sqrt(normA) * math.Sqrt(normB))
}
