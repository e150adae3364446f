package rag

import (
	"context"
	"errors"
	"log/slog"
	"strings"
	"time"

	"github.com/google/uuid"

	"github.com/saturnlabs/docchat/internal/cache"
	"github.com/saturnlabs/docchat/internal/embedding"
	"github.com/saturnlabs/docchat/internal/llm"
	"github.com/saturnlabs/docchat/internal/vectorstore"
)

var (
	// ErrEmptyQuestion rejects a request before any collaborator is
	// called.
	ErrEmptyQuestion = errors.New("question is required")

	// ErrInternal is the only failure callers see from the answer path.
	// The underlying cause is logged server-side, never returned across
	// the trust boundary.
	ErrInternal = errors.New("could not get an answer from the model")
)

// NoDocumentsMessage is returned verbatim when the asking user has nothing
// indexed. No model call is made in that case.
const NoDocumentsMessage = "You have no indexed documents yet. Upload a document and wait for it to finish processing, then ask again."

const contextSeparator = "\n---\n"

const answerSystemInstruction = "Answer the user's question based EXCLUSIVELY on the provided context, " +
	"in a simple and conversational tone. If the context does not contain the answer, " +
	"say so politely instead of guessing."

const embedCacheTTL = time.Hour

// Answerer handles one question end to end: embed, search, assemble
// context, generate.
type Answerer struct {
	docs    DocumentStore
	embed   *embedding.Service
	index   vectorstore.VectorIndex
	gateway llm.Gateway
	queries *cache.Cache // optional query-embedding cache
	topK    int
	window  int
}

func NewAnswerer(docs DocumentStore, embed *embedding.Service, index vectorstore.VectorIndex, gw llm.Gateway, queries *cache.Cache, topK, historyWindow int) *Answerer {
	if topK <= 0 {
		topK = 5
	}
	if historyWindow <= 0 {
		historyWindow = 20
	}
	return &Answerer{
		docs:    docs,
		embed:   embed,
		index:   index,
		gateway: gw,
		queries: queries,
		topK:    topK,
		window:  historyWindow,
	}
}

// Answer resolves a question against the owner's indexed documents,
// conditioned on the supplied prior turns.
func (a *Answerer) Answer(ctx context.Context, ownerID uuid.UUID, question string, history []llm.Turn) (string, error) {
	if strings.TrimSpace(question) == "" {
		return "", ErrEmptyQuestion
	}

	indexed, err := a.docs.CountIndexed(ctx, ownerID)
	if err != nil {
		slog.Error("counting indexed documents failed", "owner_id", ownerID, "error", err)
		return "", ErrInternal
	}
	if indexed == 0 {
		// Calling the model with an empty context invites a confident
		// hallucination, so short-circuit instead.
		return NoDocumentsMessage, nil
	}

	queryVec, err := a.embedQuestion(ctx, question)
	if err != nil {
		slog.Error("embedding question failed", "owner_id", ownerID, "error", err)
		return "", ErrInternal
	}

	results, err := a.index.Search(ctx, queryVec, vectorstore.SearchOptions{
		OwnerID: ownerID,
		TopK:    a.topK,
	})
	if err != nil {
		slog.Error("similarity search failed", "owner_id", ownerID, "error", err)
		return "", ErrInternal
	}

	texts := make([]string, len(results))
	for i, r := range results {
		texts[i] = r.Content
	}
	contextBlock := strings.Join(texts, contextSeparator)

	prompt := "CONTEXT:\n" + contextBlock + "\n\nQUESTION:\n" + question

	if len(history) > a.window {
		history = history[len(history)-a.window:]
	}

	resp, err := a.gateway.Chat(ctx, llm.ChatRequest{
		System:  answerSystemInstruction,
		History: history,
		Prompt:  prompt,
	})
	if err != nil {
		slog.Error("generation failed", "owner_id", ownerID, "error", err)
		return "", ErrInternal
	}

	return resp.Content, nil
}

func (a *Answerer) embedQuestion(ctx context.Context, question string) ([]float32, error) {
	if a.queries == nil {
		return a.embed.EmbedQuery(ctx, question)
	}

	key := cache.EmbeddingKey(a.embed.Model(), question)

	var vec []float32
	if err := a.queries.Get(ctx, key, &vec); err == nil && len(vec) > 0 {
		return vec, nil
	}

	vec, err := a.embed.EmbedQuery(ctx, question)
	if err != nil {
		return nil, err
	}
	if err := a.queries.Set(ctx, key, vec, embedCacheTTL); err != nil {
		slog.Debug("caching question embedding failed", "error", err)
	}
	return vec, nil
}
