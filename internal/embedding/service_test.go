package embedding

import (
	"context"
	"fmt"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/saturnlabs/docchat/internal/llm"
)

// fakeGateway embeds each text as a vector derived from its length, and
// fails any batch containing the text "boom".
type fakeGateway struct {
	dim   int
	calls [][]string
}

func (f *fakeGateway) Chat(_ context.Context, _ llm.ChatRequest) (*llm.ChatResponse, error) {
	return nil, fmt.Errorf("not implemented")
}

func (f *fakeGateway) Provider(_ string) (llm.Provider, error) {
	return nil, fmt.Errorf("not implemented")
}

func (f *fakeGateway) Embed(_ context.Context, req llm.EmbeddingRequest) (*llm.EmbeddingResponse, error) {
	f.calls = append(f.calls, req.Input)
	vectors := make([][]float32, len(req.Input))
	for i, text := range req.Input {
		if text == "boom" {
			return nil, fmt.Errorf("upstream rejected batch")
		}
		v := make([]float32, f.dim)
		v[len(text)%f.dim] = 1
		vectors[i] = v
	}
	return &llm.EmbeddingResponse{Embeddings: vectors}, nil
}

func TestEmbedBatch_OrderAndLengthPreserved(t *testing.T) {
	gw := &fakeGateway{dim: 4}
	svc := NewService(gw, "", "", 5, 4)

	texts := []string{"a", "bb", "ccc"}
	vectors, err := svc.EmbedBatch(context.Background(), texts)

	require.NoError(t, err)
	require.Len(t, vectors, 3, "one vector per input text, none dropped")
	for i, text := range texts {
		assert.Equal(t, float32(1), vectors[i][len(text)%4], "vector %d matches input %d", i, i)
	}
}

func TestEmbedBatch_CapEnforced(t *testing.T) {
	gw := &fakeGateway{dim: 4}
	svc := NewService(gw, "", "", 2, 4)

	_, err := svc.EmbedBatch(context.Background(), []string{"a", "b", "c"})
	assert.Error(t, err)
	assert.Empty(t, gw.calls, "oversized batch never reaches upstream")
}

func TestEmbedBatch_FailsAsUnit(t *testing.T) {
	gw := &fakeGateway{dim: 4}
	svc := NewService(gw, "", "", 5, 4)

	vectors, err := svc.EmbedBatch(context.Background(), []string{"fine", "boom", "collateral"})
	assert.Error(t, err)
	assert.Nil(t, vectors, "no partial vectors from a failed batch")
}

func TestEmbedBatch_DimensionMismatchRejected(t *testing.T) {
	gw := &fakeGateway{dim: 4}
	svc := NewService(gw, "", "", 5, 8) // service expects 8, fake produces 4

	_, err := svc.EmbedBatch(context.Background(), []string{"text"})
	assert.Error(t, err)
}

func TestEmbedQuery(t *testing.T) {
	gw := &fakeGateway{dim: 4}
	svc := NewService(gw, "", "", 5, 4)

	vec, err := svc.EmbedQuery(context.Background(), "question")
	require.NoError(t, err)
	assert.Len(t, vec, 4)
	require.Len(t, gw.calls, 1)
	assert.Equal(t, []string{"question"}, gw.calls[0], "query embeds as a single-item batch")
}

func TestEmbedBatch_Empty(t *testing.T) {
	gw := &fakeGateway{dim: 4}
	svc := NewService(gw, "", "", 5, 4)

	vectors, err := svc.EmbedBatch(context.Background(), nil)
	require.NoError(t, err)
	assert.Nil(t, vectors)
	assert.Empty(t, gw.calls)
}
