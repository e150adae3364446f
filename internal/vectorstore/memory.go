package vectorstore

import (
	"context"
	"sort"
	"sync"

	"github.com/google/uuid"

	"github.com/saturnlabs/docchat/internal/models"
)

// VisibleFunc reports whether a document's chunks may appear in search
// results. Deployments back this with the document store's status column;
// a nil func makes every document visible.
type VisibleFunc func(documentID uuid.UUID) bool

// MemoryIndex is a brute-force linear-scan index. Cost is linear in chunk
// count per query, which is fine for small corpora and for tests; pgvector
// is the scale path.
type MemoryIndex struct {
	mu      sync.RWMutex
	chunks  []models.Chunk
	visible VisibleFunc
}

func NewMemoryIndex(visible VisibleFunc) *MemoryIndex {
	return &MemoryIndex{visible: visible}
}

func (m *MemoryIndex) Upsert(_ context.Context, chunks []models.Chunk) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.chunks = append(m.chunks, chunks...)
	return nil
}

func (m *MemoryIndex) Search(_ context.Context, query []float32, opts SearchOptions) ([]SearchResult, error) {
	if opts.TopK <= 0 {
		opts.TopK = 5
	}

	m.mu.RLock()
	defer m.mu.RUnlock()

	var scored []SearchResult
	for _, c := range m.chunks {
		if c.OwnerID != opts.OwnerID {
			continue
		}
		if m.visible != nil && !m.visible(c.DocumentID) {
			continue
		}
		// A chunk with a missing or wrong-dimension vector is excluded
		// outright instead of scored at zero.
		if len(c.Embedding) == 0 || len(c.Embedding) != len(query) {
			continue
		}
		scored = append(scored, SearchResult{
			ChunkID:    c.ID,
			DocumentID: c.DocumentID,
			Content:    c.Content,
			Score:      Cosine(query, c.Embedding),
			ChunkIndex: c.ChunkIndex,
		})
	}

	// Stable sort keeps insertion order on ties, so results are
	// deterministic.
	sort.SliceStable(scored, func(i, j int) bool {
		return scored[i].Score > scored[j].Score
	})

	if len(scored) > opts.TopK {
		scored = scored[:opts.TopK]
	}
	return scored, nil
}

func (m *MemoryIndex) DeleteByDocument(_ context.Context, ownerID, documentID uuid.UUID) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	kept := m.chunks[:0]
	for _, c := range m.chunks {
		if c.OwnerID == ownerID && c.DocumentID == documentID {
			continue
		}
		kept = append(kept, c)
	}
	m.chunks = kept
	return nil
}

func (m *MemoryIndex) DeleteByOwner(_ context.Context, ownerID uuid.UUID) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	kept := m.chunks[:0]
	for _, c := range m.chunks {
		if c.OwnerID == ownerID {
			continue
		}
		kept = append(kept, c)
	}
	m.chunks = kept
	return nil
}
