package llm

import (
	"context"
	"fmt"
	"log/slog"
	"time"

	"github.com/saturnlabs/docchat/internal/config"
)

type gateway struct {
	providers       map[string]Provider
	defaultProvider string
	maxRetries      int
	requestTimeout  time.Duration
}

func NewGateway(cfg config.LLMConfig) Gateway {
	g := &gateway{
		providers:       make(map[string]Provider),
		defaultProvider: cfg.DefaultProvider,
		maxRetries:      cfg.MaxRetries,
		requestTimeout:  cfg.RequestTimeout,
	}

	if cfg.GeminiKey != "" {
		g.providers["gemini"] = NewGeminiProvider(cfg.GeminiKey, cfg.ChatModel, cfg.EmbedModel)
	}
	if cfg.OpenAIKey != "" {
		g.providers["openai"] = NewOpenAIProvider(cfg.OpenAIKey)
	}
	if cfg.AnthropicKey != "" {
		g.providers["anthropic"] = NewAnthropicProvider(cfg.AnthropicKey)
	}
	if cfg.OllamaURL != "" {
		g.providers["ollama"] = NewOllamaProvider(cfg.OllamaURL)
	}

	return g
}

func (g *gateway) Provider(name string) (Provider, error) {
	p, ok := g.providers[name]
	if !ok {
		return nil, fmt.Errorf("provider %q not configured", name)
	}
	return p, nil
}

func (g *gateway) Chat(ctx context.Context, req ChatRequest) (*ChatResponse, error) {
	p, err := g.resolve(req.Provider)
	if err != nil {
		return nil, err
	}

	var lastErr error
	for attempt := 0; attempt <= g.maxRetries; attempt++ {
		if attempt > 0 {
			backoff := time.Duration(attempt*attempt) * 500 * time.Millisecond
			select {
			case <-ctx.Done():
				return nil, ctx.Err()
			case <-time.After(backoff):
			}
			slog.Debug("retrying chat call", "provider", p.Name(), "attempt", attempt)
		}

		resp, err := g.chatOnce(ctx, p, req)
		if err == nil {
			return resp, nil
		}
		lastErr = err
	}
	return nil, fmt.Errorf("all retries exhausted for %s: %w", p.Name(), lastErr)
}

func (g *gateway) chatOnce(ctx context.Context, p Provider, req ChatRequest) (*ChatResponse, error) {
	callCtx, cancel := g.bound(ctx)
	defer cancel()
	return p.Chat(callCtx, req)
}

func (g *gateway) Embed(ctx context.Context, req EmbeddingRequest) (*EmbeddingResponse, error) {
	p, err := g.resolve(req.Provider)
	if err != nil {
		return nil, err
	}

	callCtx, cancel := g.bound(ctx)
	defer cancel()
	return p.Embed(callCtx, req)
}

func (g *gateway) resolve(name string) (Provider, error) {
	if name == "" {
		name = g.defaultProvider
	}
	return g.Provider(name)
}

// bound caps every outbound model call so a stuck upstream can't pin a
// request or a worker forever.
func (g *gateway) bound(ctx context.Context) (context.Context, context.CancelFunc) {
	if g.requestTimeout <= 0 {
		return context.WithCancel(ctx)
	}
	return context.WithTimeout(ctx, g.requestTimeout)
}
