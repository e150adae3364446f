package config

import (
	"fmt"
	"os"
	"strconv"
	"strings"
	"time"
)

type Config struct {
	Server   ServerConfig
	Database DatabaseConfig
	Redis    RedisConfig
	Auth     AuthConfig
	LLM      LLMConfig
	Embed    EmbedConfig
	Ingest   IngestConfig
	Storage  StorageConfig
}

type ServerConfig struct {
	Host           string
	Port           int
	RateLimitRPS   int // tokens per second per bucket
	RateLimitBurst int
}

type DatabaseConfig struct {
	URL            string
	MaxConns       int
	MinConns       int
	MigrationsPath string
}

type RedisConfig struct {
	Addr     string
	Password string
	DB       int
}

type AuthConfig struct {
	JWTSecret string
}

type LLMConfig struct {
	GeminiKey       string
	OpenAIKey       string
	AnthropicKey    string
	OllamaURL       string
	DefaultProvider string
	ChatModel       string
	EmbedModel      string
	MaxRetries      int
	RequestTimeout  time.Duration
}

type EmbedConfig struct {
	BatchSize int // upstream batch cap
	Dimension int // fixed corpus-wide vector dimensionality
}

type IngestConfig struct {
	MinChunkLength int
	Parallelism    int // concurrent embedding batches per document
	TopK           int // context chunks per question
	HistoryWindow  int // prior turns fed back to the model
}

type StorageConfig struct {
	BaseURL    string
	ServiceKey string
	Bucket     string
}

func Load() (*Config, error) {
	port, err := getEnvInt("SERVER_PORT", 8080)
	if err != nil {
		return nil, fmt.Errorf("invalid SERVER_PORT: %w", err)
	}
	maxConns, err := getEnvInt("DB_MAX_CONNS", 20)
	if err != nil {
		return nil, fmt.Errorf("invalid DB_MAX_CONNS: %w", err)
	}
	minConns, err := getEnvInt("DB_MIN_CONNS", 5)
	if err != nil {
		return nil, fmt.Errorf("invalid DB_MIN_CONNS: %w", err)
	}
	redisDB, err := getEnvInt("REDIS_DB", 0)
	if err != nil {
		return nil, fmt.Errorf("invalid REDIS_DB: %w", err)
	}
	maxRetries, err := getEnvInt("LLM_MAX_RETRIES", 3)
	if err != nil {
		return nil, fmt.Errorf("invalid LLM_MAX_RETRIES: %w", err)
	}
	requestTimeout, err := getEnvDuration("LLM_REQUEST_TIMEOUT", 60*time.Second)
	if err != nil {
		return nil, fmt.Errorf("invalid LLM_REQUEST_TIMEOUT: %w", err)
	}
	batchSize, err := getEnvInt("EMBED_BATCH_SIZE", 5)
	if err != nil {
		return nil, fmt.Errorf("invalid EMBED_BATCH_SIZE: %w", err)
	}
	dimension, err := getEnvInt("EMBED_DIM", 768)
	if err != nil {
		return nil, fmt.Errorf("invalid EMBED_DIM: %w", err)
	}
	minChunkLen, err := getEnvInt("INGEST_MIN_CHUNK_LEN", 20)
	if err != nil {
		return nil, fmt.Errorf("invalid INGEST_MIN_CHUNK_LEN: %w", err)
	}
	parallelism, err := getEnvInt("INGEST_PARALLELISM", 4)
	if err != nil {
		return nil, fmt.Errorf("invalid INGEST_PARALLELISM: %w", err)
	}
	topK, err := getEnvInt("ANSWER_TOP_K", 5)
	if err != nil {
		return nil, fmt.Errorf("invalid ANSWER_TOP_K: %w", err)
	}
	historyWindow, err := getEnvInt("ANSWER_HISTORY_WINDOW", 20)
	if err != nil {
		return nil, fmt.Errorf("invalid ANSWER_HISTORY_WINDOW: %w", err)
	}
	rateLimitRPS, err := getEnvInt("RATE_LIMIT_RPS", 100)
	if err != nil {
		return nil, fmt.Errorf("invalid RATE_LIMIT_RPS: %w", err)
	}
	rateLimitBurst, err := getEnvInt("RATE_LIMIT_BURST", 200)
	if err != nil {
		return nil, fmt.Errorf("invalid RATE_LIMIT_BURST: %w", err)
	}

	cfg := &Config{
		Server: ServerConfig{
			Host:           getEnv("SERVER_HOST", "0.0.0.0"),
			Port:           port,
			RateLimitRPS:   rateLimitRPS,
			RateLimitBurst: rateLimitBurst,
		},
		Database: DatabaseConfig{
			URL:            getEnv("DATABASE_URL", ""),
			MaxConns:       maxConns,
			MinConns:       minConns,
			MigrationsPath: getEnv("MIGRATIONS_PATH", "migrations"),
		},
		Redis: RedisConfig{
			Addr:     getEnv("REDIS_ADDR", "localhost:6379"),
			Password: getEnv("REDIS_PASSWORD", ""),
			DB:       redisDB,
		},
		Auth: AuthConfig{
			JWTSecret: getEnv("JWT_SECRET", ""),
		},
		LLM: LLMConfig{
			GeminiKey:       getEnv("GEMINI_API_KEY", ""),
			OpenAIKey:       getEnv("OPENAI_API_KEY", ""),
			AnthropicKey:    getEnv("ANTHROPIC_API_KEY", ""),
			OllamaURL:       getEnv("OLLAMA_URL", ""),
			DefaultProvider: getEnv("LLM_DEFAULT_PROVIDER", "gemini"),
			ChatModel:       getEnv("LLM_CHAT_MODEL", ""),
			EmbedModel:      getEnv("LLM_EMBED_MODEL", ""),
			MaxRetries:      maxRetries,
			RequestTimeout:  requestTimeout,
		},
		Embed: EmbedConfig{
			BatchSize: batchSize,
			Dimension: dimension,
		},
		Ingest: IngestConfig{
			MinChunkLength: minChunkLen,
			Parallelism:    parallelism,
			TopK:           topK,
			HistoryWindow:  historyWindow,
		},
		Storage: StorageConfig{
			BaseURL:    getEnv("STORAGE_URL", ""),
			ServiceKey: getEnv("STORAGE_SERVICE_KEY", ""),
			Bucket:     getEnv("STORAGE_BUCKET", "documents"),
		},
	}

	return cfg, nil
}

func (c *Config) Addr() string {
	return fmt.Sprintf("%s:%d", c.Server.Host, c.Server.Port)
}

func (c *Config) Validate() error {
	var missing []string
	if c.Database.URL == "" {
		missing = append(missing, "DATABASE_URL")
	}
	if c.Auth.JWTSecret == "" {
		missing = append(missing, "JWT_SECRET")
	}
	if c.LLM.GeminiKey == "" && c.LLM.OpenAIKey == "" && c.LLM.AnthropicKey == "" && c.LLM.OllamaURL == "" {
		missing = append(missing, "GEMINI_API_KEY (or another provider key)")
	}
	if len(missing) > 0 {
		return fmt.Errorf("missing required env vars: %s", strings.Join(missing, ", "))
	}
	return nil
}

func getEnv(key, fallback string) string {
	if v := os.Getenv(key); v != "" {
		return v
	}
	return fallback
}

func getEnvInt(key string, fallback int) (int, error) {
	v := os.Getenv(key)
	if v == "" {
		return fallback, nil
	}
	return strconv.Atoi(v)
}

func getEnvDuration(key string, fallback time.Duration) (time.Duration, error) {
	v := os.Getenv(key)
	if v == "" {
		return fallback, nil
	}
	return time.ParseDuration(v)
}
