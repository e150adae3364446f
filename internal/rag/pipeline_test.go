package rag

import (
	"context"
	"fmt"
	"strings"
	"sync"
	"testing"

	"github.com/google/uuid"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/saturnlabs/docchat/internal/embedding"
	"github.com/saturnlabs/docchat/internal/llm"
	"github.com/saturnlabs/docchat/internal/models"
	"github.com/saturnlabs/docchat/internal/vectorstore"
	"github.com/saturnlabs/docchat/pkg/chunker"
)

// fakeDocStore tracks per-document status in memory with the same
// compare-and-swap semantics as the real store.
type fakeDocStore struct {
	mu       sync.Mutex
	status   map[uuid.UUID]string
	expected map[uuid.UUID]int
	indexed  map[uuid.UUID]int
	owners   map[uuid.UUID]uuid.UUID // document -> owner

	countIndexedCalls int
}

func newFakeDocStore() *fakeDocStore {
	return &fakeDocStore{
		status:   make(map[uuid.UUID]string),
		expected: make(map[uuid.UUID]int),
		indexed:  make(map[uuid.UUID]int),
		owners:   make(map[uuid.UUID]uuid.UUID),
	}
}

func (f *fakeDocStore) Transition(_ context.Context, id uuid.UUID, from, to string) (bool, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	if f.status[id] != from {
		return false, nil
	}
	f.status[id] = to
	return true, nil
}

func (f *fakeDocStore) SetChunkCounts(_ context.Context, id uuid.UUID, expected, indexed int) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.expected[id] = expected
	f.indexed[id] = indexed
	return nil
}

func (f *fakeDocStore) CountIndexed(_ context.Context, ownerID uuid.UUID) (int, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.countIndexedCalls++
	n := 0
	for doc, owner := range f.owners {
		if owner == ownerID && f.status[doc] == models.DocStatusIndexed {
			n++
		}
	}
	return n, nil
}

// embedGateway vectorizes each text deterministically from its first rune
// and fails any batch containing "boom".
type embedGateway struct {
	mu         sync.Mutex
	embedCalls int
	chatCalls  int
	chatFn     func(req llm.ChatRequest) (*llm.ChatResponse, error)
	embedFn    func(texts []string) ([][]float32, error)
}

func (g *embedGateway) Embed(_ context.Context, req llm.EmbeddingRequest) (*llm.EmbeddingResponse, error) {
	g.mu.Lock()
	g.embedCalls++
	g.mu.Unlock()
	if g.embedFn != nil {
		vectors, err := g.embedFn(req.Input)
		if err != nil {
			return nil, err
		}
		return &llm.EmbeddingResponse{Embeddings: vectors}, nil
	}
	vectors := make([][]float32, len(req.Input))
	for i, text := range req.Input {
		if strings.Contains(text, "boom") {
			return nil, fmt.Errorf("upstream rejected batch")
		}
		vectors[i] = []float32{float32(text[0]), 1, 0}
	}
	return &llm.EmbeddingResponse{Embeddings: vectors}, nil
}

func (g *embedGateway) Chat(_ context.Context, req llm.ChatRequest) (*llm.ChatResponse, error) {
	g.mu.Lock()
	g.chatCalls++
	g.mu.Unlock()
	if g.chatFn != nil {
		return g.chatFn(req)
	}
	return &llm.ChatResponse{Content: "ok"}, nil
}

func (g *embedGateway) Provider(_ string) (llm.Provider, error) {
	return nil, fmt.Errorf("not implemented")
}

func testLine(i int) string {
	return fmt.Sprintf("line %02d with enough characters to pass the threshold", i)
}

func newTestPipeline(docs *fakeDocStore, gw llm.Gateway, index vectorstore.VectorIndex, parallelism int) *Pipeline {
	embedSvc := embedding.NewService(gw, "", "", 2, 3)
	return NewPipeline(docs, embedSvc, index, chunker.DefaultOptions(), parallelism)
}

func TestIngest_AllBatchesSucceed(t *testing.T) {
	ctx := context.Background()
	docs := newFakeDocStore()
	gw := &embedGateway{}
	index := vectorstore.NewMemoryIndex(nil)

	docID := uuid.New()
	owner := uuid.New()
	docs.status[docID] = models.DocStatusExtracted

	var lines []string
	for i := 0; i < 5; i++ {
		lines = append(lines, testLine(i))
	}

	p := newTestPipeline(docs, gw, index, 2)
	stats, err := p.Ingest(ctx, docID, owner, strings.Join(lines, "\n"))

	require.NoError(t, err)
	assert.False(t, stats.Skipped)
	assert.Equal(t, 5, stats.ChunksTotal)
	assert.Equal(t, 5, stats.ChunksIndexed)
	assert.Equal(t, 0, stats.BatchesFailed)
	assert.Equal(t, models.DocStatusIndexed, docs.status[docID])
	assert.Equal(t, 5, docs.expected[docID])
	assert.Equal(t, 5, docs.indexed[docID])

	results, err := index.Search(ctx, []float32{float32('l'), 1, 0}, vectorstore.SearchOptions{OwnerID: owner, TopK: 10})
	require.NoError(t, err)
	assert.Len(t, results, 5, "all chunks are searchable")
}

func TestIngest_FailedBatchIsIsolated(t *testing.T) {
	ctx := context.Background()
	docs := newFakeDocStore()
	gw := &embedGateway{}
	index := vectorstore.NewMemoryIndex(nil)

	docID := uuid.New()
	owner := uuid.New()
	docs.status[docID] = models.DocStatusExtracted

	// Batch size is 2: lines 0-1, then the poisoned pair, then line 4.
	text := strings.Join([]string{
		testLine(0),
		testLine(1),
		"this line goes boom and takes its batch with it",
		testLine(3),
		testLine(4),
	}, "\n")

	p := newTestPipeline(docs, gw, index, 1)
	stats, err := p.Ingest(ctx, docID, owner, text)

	require.NoError(t, err, "a failed batch is not a pipeline failure")
	assert.Equal(t, 5, stats.ChunksTotal)
	assert.Equal(t, 3, stats.ChunksIndexed)
	assert.Equal(t, 1, stats.BatchesFailed)

	assert.Equal(t, models.DocStatusIndexed, docs.status[docID], "document still reaches indexed")
	assert.Equal(t, 5, docs.expected[docID])
	assert.Equal(t, 3, docs.indexed[docID], "shortfall is visible in the counts")

	results, err := index.Search(ctx, []float32{float32('l'), 1, 0}, vectorstore.SearchOptions{OwnerID: owner, TopK: 10})
	require.NoError(t, err)
	assert.Len(t, results, 3, "chunks from healthy batches persisted")
}

func TestIngest_ReentrancyGuard(t *testing.T) {
	ctx := context.Background()
	docs := newFakeDocStore()
	gw := &embedGateway{}
	index := vectorstore.NewMemoryIndex(nil)

	docID := uuid.New()
	owner := uuid.New()
	docs.status[docID] = models.DocStatusExtracted

	text := testLine(0) + "\n" + testLine(1)

	p := newTestPipeline(docs, gw, index, 1)

	first, err := p.Ingest(ctx, docID, owner, text)
	require.NoError(t, err)
	require.False(t, first.Skipped)
	require.Equal(t, models.DocStatusIndexed, docs.status[docID])

	// Duplicate trigger delivery: the document is already past extracted.
	second, err := p.Ingest(ctx, docID, owner, text)
	require.NoError(t, err)
	assert.True(t, second.Skipped)
	assert.Zero(t, second.ChunksTotal)

	results, err := index.Search(ctx, []float32{float32('l'), 1, 0}, vectorstore.SearchOptions{OwnerID: owner, TopK: 10})
	require.NoError(t, err)
	assert.Len(t, results, 2, "no additional chunks from the replayed trigger")
}

func TestIngest_EmptyTextStillFinishes(t *testing.T) {
	ctx := context.Background()
	docs := newFakeDocStore()
	gw := &embedGateway{}
	index := vectorstore.NewMemoryIndex(nil)

	docID := uuid.New()
	docs.status[docID] = models.DocStatusExtracted

	p := newTestPipeline(docs, gw, index, 1)
	stats, err := p.Ingest(ctx, docID, uuid.New(), "short\n\n   \n")

	require.NoError(t, err)
	assert.Zero(t, stats.ChunksTotal)
	assert.Equal(t, models.DocStatusIndexed, docs.status[docID])
	assert.Zero(t, gw.embedCalls, "nothing to embed")
}
