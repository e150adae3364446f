package llm

import (
	"context"
	"fmt"
	"strings"
	"sync"
	"time"

	"github.com/google/generative-ai-go/genai"
	"google.golang.org/api/option"
)

const (
	defaultGeminiChatModel  = "gemini-1.5-flash-latest"
	defaultGeminiEmbedModel = "text-embedding-004"
)

// GeminiProvider talks to Google's Generative Language API. The client is
// created lazily on first use because genai.NewClient needs a context; the
// provider is shared by concurrent callers, so creation is guarded.
type GeminiProvider struct {
	apiKey     string
	chatModel  string
	embedModel string

	initOnce sync.Once
	client   *genai.Client
	initErr  error
}

func NewGeminiProvider(apiKey, chatModel, embedModel string) *GeminiProvider {
	if chatModel == "" {
		chatModel = defaultGeminiChatModel
	}
	if embedModel == "" {
		embedModel = defaultGeminiEmbedModel
	}
	return &GeminiProvider{apiKey: apiKey, chatModel: chatModel, embedModel: embedModel}
}

func (p *GeminiProvider) Name() string { return "gemini" }

func (p *GeminiProvider) ensureClient(ctx context.Context) (*genai.Client, error) {
	p.initOnce.Do(func() {
		p.client, p.initErr = genai.NewClient(ctx, option.WithAPIKey(p.apiKey))
	})
	if p.initErr != nil {
		return nil, fmt.Errorf("create genai client: %w", p.initErr)
	}
	return p.client, nil
}

func (p *GeminiProvider) Chat(ctx context.Context, req ChatRequest) (*ChatResponse, error) {
	start := time.Now()

	client, err := p.ensureClient(ctx)
	if err != nil {
		return nil, err
	}

	modelName := req.Model
	if modelName == "" {
		modelName = p.chatModel
	}
	model := client.GenerativeModel(modelName)

	if req.System != "" {
		model.SystemInstruction = &genai.Content{
			Parts: []genai.Part{genai.Text(req.System)},
		}
	}
	if req.Temperature > 0 {
		temp := float32(req.Temperature)
		model.GenerationConfig.Temperature = &temp
	}
	if req.MaxTokens > 0 {
		maxTokens := int32(req.MaxTokens)
		model.GenerationConfig.MaxOutputTokens = &maxTokens
	}

	session := model.StartChat()
	for _, t := range req.History {
		role := t.Role
		if role != "model" {
			role = "user"
		}
		session.History = append(session.History, &genai.Content{
			Role:  role,
			Parts: []genai.Part{genai.Text(t.Content)},
		})
	}

	resp, err := session.SendMessage(ctx, genai.Text(req.Prompt))
	if err != nil {
		return nil, fmt.Errorf("gemini chat: %w", err)
	}
	if len(resp.Candidates) == 0 || resp.Candidates[0].Content == nil {
		return nil, fmt.Errorf("gemini chat: empty response")
	}

	var sb strings.Builder
	for _, part := range resp.Candidates[0].Content.Parts {
		if txt, ok := part.(genai.Text); ok {
			sb.WriteString(string(txt))
		}
	}

	out := &ChatResponse{
		Provider:  "gemini",
		Model:     modelName,
		Content:   sb.String(),
		LatencyMs: time.Since(start).Milliseconds(),
	}
	if resp.UsageMetadata != nil {
		out.InputTokens = int(resp.UsageMetadata.PromptTokenCount)
		out.OutputTokens = int(resp.UsageMetadata.CandidatesTokenCount)
		out.TotalTokens = int(resp.UsageMetadata.TotalTokenCount)
	}
	return out, nil
}

func (p *GeminiProvider) Embed(ctx context.Context, req EmbeddingRequest) (*EmbeddingResponse, error) {
	client, err := p.ensureClient(ctx)
	if err != nil {
		return nil, err
	}

	modelName := req.Model
	if modelName == "" {
		modelName = p.embedModel
	}
	em := client.EmbeddingModel(modelName)

	batch := em.NewBatch()
	for _, text := range req.Input {
		batch.AddContent(genai.Text(text))
	}

	resp, err := em.BatchEmbedContents(ctx, batch)
	if err != nil {
		return nil, fmt.Errorf("gemini embedding: %w", err)
	}
	if len(resp.Embeddings) != len(req.Input) {
		return nil, fmt.Errorf("gemini embedding: got %d vectors for %d inputs", len(resp.Embeddings), len(req.Input))
	}

	embeddings := make([][]float32, len(resp.Embeddings))
	for i, e := range resp.Embeddings {
		embeddings[i] = e.Values
	}

	return &EmbeddingResponse{
		Provider:   "gemini",
		Model:      modelName,
		Embeddings: embeddings,
	}, nil
}
