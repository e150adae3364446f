package api

import (
	"net/http"

	"github.com/go-chi/chi/v5"
	chimiddleware "github.com/go-chi/chi/v5/middleware"
	"github.com/jackc/pgx/v5/pgxpool"
	"github.com/redis/go-redis/v9"

	"github.com/saturnlabs/docchat/internal/api/handlers"
	"github.com/saturnlabs/docchat/internal/api/middleware"
	"github.com/saturnlabs/docchat/internal/auth"
	"github.com/saturnlabs/docchat/internal/cache"
	"github.com/saturnlabs/docchat/internal/config"
	"github.com/saturnlabs/docchat/internal/conversation"
	"github.com/saturnlabs/docchat/internal/document"
	"github.com/saturnlabs/docchat/internal/embedding"
	"github.com/saturnlabs/docchat/internal/llm"
	"github.com/saturnlabs/docchat/internal/queue"
	"github.com/saturnlabs/docchat/internal/rag"
	"github.com/saturnlabs/docchat/internal/storage"
	"github.com/saturnlabs/docchat/internal/user"
	"github.com/saturnlabs/docchat/internal/vectorstore"
)

type Router struct {
	mux   *chi.Mux
	db    *pgxpool.Pool
	redis *redis.Client
	cfg   *config.Config
	jwt   *auth.JWTMiddleware
	llmGW llm.Gateway
}

func NewRouter(db *pgxpool.Pool, rdb *redis.Client, cfg *config.Config) *Router {
	return &Router{
		mux:   chi.NewRouter(),
		db:    db,
		redis: rdb,
		cfg:   cfg,
		jwt:   auth.NewJWTMiddleware(cfg.Auth.JWTSecret, user.NewService(db)),
		llmGW: llm.NewGateway(cfg.LLM),
	}
}

func (rt *Router) Setup() http.Handler {
	r := rt.mux

	// Global middleware
	r.Use(chimiddleware.RequestID)
	r.Use(chimiddleware.RealIP)
	r.Use(middleware.Logging)
	r.Use(chimiddleware.Recoverer)
	r.Use(middleware.CORS([]string{"*"}))

	rl := middleware.NewRateLimiter(
		float64(rt.cfg.Server.RateLimitRPS), rt.cfg.Server.RateLimitBurst, middleware.OwnerKey)

	// Health endpoints (no auth)
	health := handlers.NewHealthHandler(rt.db, rt.redis)
	r.Get("/healthz", health.Healthz)
	r.Get("/readyz", health.Readyz)

	// Initialize services
	store := storage.NewSupabaseStorage(rt.cfg.Storage.BaseURL, rt.cfg.Storage.ServiceKey)
	index := vectorstore.NewPgVectorIndex(rt.db)
	docSvc := document.NewService(rt.db, store, rt.cfg.Storage.Bucket, index)
	convoSvc := conversation.NewService(rt.db)
	queueClient := queue.NewClient(rt.cfg.Redis)

	embedSvc := embedding.NewService(rt.llmGW, rt.cfg.LLM.DefaultProvider, rt.cfg.LLM.EmbedModel,
		rt.cfg.Embed.BatchSize, rt.cfg.Embed.Dimension)

	var queryCache *cache.Cache
	if rt.redis != nil {
		queryCache = cache.NewCache(rt.redis)
	}
	answerer := rag.NewAnswerer(docSvc, embedSvc, index, rt.llmGW, queryCache,
		rt.cfg.Ingest.TopK, rt.cfg.Ingest.HistoryWindow)

	// Storage collaborator callback (no user auth, host-keyed limit)
	storageEvents := handlers.NewStorageEventHandler(docSvc, rt.cfg.Storage.Bucket, queueClient)
	r.With(rl.Limit).Post("/internal/storage/events", storageEvents.ObjectFinalized)

	// API v1: the limiter sits behind auth so buckets key on the owner
	r.Route("/api/v1", func(r chi.Router) {
		r.Use(rt.jwt.Authenticate)
		r.Use(rl.Limit)

		askH := handlers.NewAskHandler(answerer, convoSvc, rt.cfg.Ingest.HistoryWindow)
		r.Post("/ask", askH.Ask)

		docH := handlers.NewDocumentHandler(docSvc, store, rt.cfg.Storage.Bucket, queueClient)
		r.Route("/documents", func(r chi.Router) {
			r.Post("/", docH.Upload)
			r.Get("/", docH.List)
			r.Get("/{id}", docH.Get)
			r.Get("/{id}/status", docH.Status)
			r.Delete("/{id}", docH.Delete)
		})

		convoH := handlers.NewConversationHandler(convoSvc)
		r.Route("/conversations", func(r chi.Router) {
			r.Post("/", convoH.Create)
			r.Get("/", convoH.List)
			r.Get("/{id}", convoH.Get)
		})
	})

	return r
}
