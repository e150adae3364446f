package llm

import (
	"context"
	"sync"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/google/generative-ai-go/genai"
)

func TestGeminiEnsureClient_Concurrent(t *testing.T) {
	p := NewGeminiProvider("test-key", "", "")

	const callers = 8
	clients := make([]*genai.Client, callers)
	errs := make([]error, callers)

	var wg sync.WaitGroup
	for i := 0; i < callers; i++ {
		wg.Add(1)
		go func(i int) {
			defer wg.Done()
			clients[i], errs[i] = p.ensureClient(context.Background())
		}(i)
	}
	wg.Wait()

	for i := 0; i < callers; i++ {
		require.NoError(t, errs[i])
		require.NotNil(t, clients[i])
		assert.Same(t, clients[0], clients[i], "every caller shares one client")
	}
}
