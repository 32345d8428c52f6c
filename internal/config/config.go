package config

import (
	"log/slog"
	"time"

	"github.com/caarlos0/env/v10"
)

// Config holds runtime configuration loaded from the environment.
type Config struct {
	// Server
	Port            int           `env:"PORT" envDefault:"8000"`
	LogLevel        string        `env:"LOG_LEVEL" envDefault:"info"`
	CORSOrigins     []string      `env:"CORS_ORIGINS" envDefault:"http://localhost:5173" envSeparator:","`
	ShutdownTimeout time.Duration `env:"SHUTDOWN_TIMEOUT" envDefault:"10s"`
	RequestTimeout  time.Duration `env:"REQUEST_TIMEOUT" envDefault:"5m"` // bounds a whole /ask pipeline

	// Question limits
	MaxQuestionLength int `env:"MAX_QUESTION_LENGTH" envDefault:"2000"`

	// Document
	DocumentPath     string `env:"DOCUMENT_PATH" envDefault:"data/uetProspectus.pdf"`
	ChunkSize        int    `env:"CHUNK_SIZE" envDefault:"1500"`
	ChunkConcurrency int    `env:"CHUNK_CONCURRENCY" envDefault:"4"`

	// LLM
	LLMProvider   string        `env:"LLM_PROVIDER" envDefault:"groq"` // "groq" or "openai"
	LLMModel      string        `env:"LLM_MODEL"`                      // provider default when empty
	LLMBaseURL    string        `env:"LLM_BASE_URL"`
	GroqKey       string        `env:"GROQ_API_KEY"`
	OpenAIKey     string        `env:"OPENAI_API_KEY"`
	LLMTimeout    time.Duration `env:"LLM_TIMEOUT" envDefault:"30s"`
	LLMMaxRetries int           `env:"LLM_MAX_RETRIES" envDefault:"0"`
	LLMRetryBase  time.Duration `env:"LLM_RETRY_BASE" envDefault:"500ms"`

	// Answer cache
	CacheProvider string `env:"CACHE_PROVIDER" envDefault:"none"` // "none", "memory" or "redis"
	CacheTTL      int    `env:"CACHE_TTL" envDefault:"3600"`      // seconds
	RedisAddr     string `env:"REDIS_ADDR"`
	RedisPassword string `env:"REDIS_PASSWORD"`

	// Reload broadcast
	QueueProvider string `env:"QUEUE_PROVIDER" envDefault:"none"` // "none" or "nats"
	QueueURL      string `env:"QUEUE_URL"`
}

// Load reads configuration from environment variables with defaults.
func Load() Config {
	var cfg Config
	if err := env.Parse(&cfg); err != nil {
		slog.Warn("failed to parse env; using defaults where set", "err", err)
	}
	return cfg
}
