package rag

import (
	"context"
	"fmt"
	"strings"
	"testing"

	"github.com/google/uuid"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/saturnlabs/docchat/internal/embedding"
	"github.com/saturnlabs/docchat/internal/llm"
	"github.com/saturnlabs/docchat/internal/models"
	"github.com/saturnlabs/docchat/internal/vectorstore"
)

func seedIndexedDoc(t *testing.T, docs *fakeDocStore, index *vectorstore.MemoryIndex, owner uuid.UUID, chunks []models.Chunk) uuid.UUID {
	t.Helper()
	docID := uuid.New()
	docs.status[docID] = models.DocStatusIndexed
	docs.owners[docID] = owner
	for i := range chunks {
		chunks[i].ID = uuid.New()
		chunks[i].DocumentID = docID
		chunks[i].OwnerID = owner
		chunks[i].ChunkIndex = i
	}
	require.NoError(t, index.Upsert(context.Background(), chunks))
	return docID
}

func TestAnswer_RetrievesClosestChunkFirst(t *testing.T) {
	ctx := context.Background()
	docs := newFakeDocStore()
	index := vectorstore.NewMemoryIndex(nil)
	owner := uuid.New()

	seedIndexedDoc(t, docs, index, owner, []models.Chunk{
		{Content: "The sky is blue.", Embedding: []float32{1, 0, 0}},
		{Content: "Water boils at 100 degrees.", Embedding: []float32{0, 1, 0}},
	})

	gw := &embedGateway{
		embedFn: func(texts []string) ([][]float32, error) {
			// The question lands much closer to the sky chunk.
			return [][]float32{{0.9, 0.1, 0}}, nil
		},
		chatFn: func(req llm.ChatRequest) (*llm.ChatResponse, error) {
			return &llm.ChatResponse{Content: req.Prompt}, nil
		},
	}
	embedSvc := embedding.NewService(gw, "", "", 2, 3)
	a := NewAnswerer(docs, embedSvc, index, gw, nil, 5, 20)

	answer, err := a.Answer(ctx, owner, "What color is the sky?", nil)
	require.NoError(t, err)

	skyAt := strings.Index(answer, "The sky is blue.")
	waterAt := strings.Index(answer, "Water boils at 100 degrees.")
	require.GreaterOrEqual(t, skyAt, 0, "closest chunk is in the context")
	require.GreaterOrEqual(t, waterAt, 0)
	assert.Less(t, skyAt, waterAt, "context is ordered by similarity")
	assert.Contains(t, answer, "QUESTION:\nWhat color is the sky?")
}

func TestAnswer_TopKBoundsContext(t *testing.T) {
	ctx := context.Background()
	docs := newFakeDocStore()
	index := vectorstore.NewMemoryIndex(nil)
	owner := uuid.New()

	var chunks []models.Chunk
	for i := 0; i < 4; i++ {
		chunks = append(chunks, models.Chunk{
			Content:   fmt.Sprintf("fact number %d", i),
			Embedding: []float32{1, float32(i) * 0.1, 0},
		})
	}
	seedIndexedDoc(t, docs, index, owner, chunks)

	gw := &embedGateway{
		embedFn: func([]string) ([][]float32, error) {
			return [][]float32{{1, 0, 0}}, nil
		},
		chatFn: func(req llm.ChatRequest) (*llm.ChatResponse, error) {
			return &llm.ChatResponse{Content: req.Prompt}, nil
		},
	}
	embedSvc := embedding.NewService(gw, "", "", 2, 3)
	a := NewAnswerer(docs, embedSvc, index, gw, nil, 2, 20)

	answer, err := a.Answer(ctx, owner, "how many facts?", nil)
	require.NoError(t, err)
	assert.Equal(t, 2, strings.Count(answer, "fact number"), "only top-k chunks reach the prompt")
}

func TestAnswer_NoIndexedDocuments(t *testing.T) {
	docs := newFakeDocStore()
	index := vectorstore.NewMemoryIndex(nil)
	gw := &embedGateway{}
	embedSvc := embedding.NewService(gw, "", "", 2, 3)
	a := NewAnswerer(docs, embedSvc, index, gw, nil, 5, 20)

	answer, err := a.Answer(context.Background(), uuid.New(), "anything there?", nil)
	require.NoError(t, err)
	assert.Equal(t, NoDocumentsMessage, answer)
	assert.Zero(t, gw.embedCalls, "no embedding call for an empty corpus")
	assert.Zero(t, gw.chatCalls, "no model call for an empty corpus")
}

func TestAnswer_EmptyQuestion(t *testing.T) {
	docs := newFakeDocStore()
	index := vectorstore.NewMemoryIndex(nil)
	gw := &embedGateway{}
	embedSvc := embedding.NewService(gw, "", "", 2, 3)
	a := NewAnswerer(docs, embedSvc, index, gw, nil, 5, 20)

	_, err := a.Answer(context.Background(), uuid.New(), "   \n\t", nil)
	assert.ErrorIs(t, err, ErrEmptyQuestion)
	assert.Zero(t, gw.embedCalls)
	assert.Zero(t, gw.chatCalls)
	assert.Zero(t, docs.countIndexedCalls, "rejected before any collaborator call")
}

func TestAnswer_GenerationFailureIsOpaque(t *testing.T) {
	docs := newFakeDocStore()
	index := vectorstore.NewMemoryIndex(nil)
	owner := uuid.New()

	seedIndexedDoc(t, docs, index, owner, []models.Chunk{
		{Content: "The sky is blue.", Embedding: []float32{1, 0, 0}},
	})

	gw := &embedGateway{
		embedFn: func([]string) ([][]float32, error) {
			return [][]float32{{1, 0, 0}}, nil
		},
		chatFn: func(llm.ChatRequest) (*llm.ChatResponse, error) {
			return nil, fmt.Errorf("upstream 503: model overloaded at host 10.0.3.7")
		},
	}
	embedSvc := embedding.NewService(gw, "", "", 2, 3)
	a := NewAnswerer(docs, embedSvc, index, gw, nil, 5, 20)

	_, err := a.Answer(context.Background(), owner, "What color is the sky?", nil)
	require.ErrorIs(t, err, ErrInternal)
	assert.NotContains(t, err.Error(), "10.0.3.7", "upstream detail does not cross the trust boundary")
}

func TestAnswer_HistoryWindow(t *testing.T) {
	docs := newFakeDocStore()
	index := vectorstore.NewMemoryIndex(nil)
	owner := uuid.New()

	seedIndexedDoc(t, docs, index, owner, []models.Chunk{
		{Content: "The sky is blue.", Embedding: []float32{1, 0, 0}},
	})

	var seen []llm.Turn
	gw := &embedGateway{
		embedFn: func([]string) ([][]float32, error) {
			return [][]float32{{1, 0, 0}}, nil
		},
		chatFn: func(req llm.ChatRequest) (*llm.ChatResponse, error) {
			seen = req.History
			return &llm.ChatResponse{Content: "ok"}, nil
		},
	}
	embedSvc := embedding.NewService(gw, "", "", 2, 3)
	a := NewAnswerer(docs, embedSvc, index, gw, nil, 5, 4)

	var history []llm.Turn
	for i := 0; i < 10; i++ {
		history = append(history, llm.Turn{Role: models.TurnRoleUser, Content: fmt.Sprintf("turn %d", i)})
	}

	_, err := a.Answer(context.Background(), owner, "What color is the sky?", history)
	require.NoError(t, err)
	require.Len(t, seen, 4)
	assert.Equal(t, "turn 6", seen[0].Content, "oldest turns are dropped first")
	assert.Equal(t, "turn 9", seen[3].Content)
}
