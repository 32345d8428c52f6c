package app

import (
	"errors"
	"fmt"
	"io/fs"
	"log/slog"
	"time"

	"github.com/joho/godotenv"
	"github.com/nats-io/nats.go"
	"github.com/openai/openai-go/v3"

	"pdf-ask/internal/agent"
	"pdf-ask/internal/cache"
	"pdf-ask/internal/config"
	"pdf-ask/internal/extractor"
	"pdf-ask/internal/llm"
	"pdf-ask/internal/logger"
	"pdf-ask/internal/queue"
)

// Deps bundles the runtime dependencies shared by every request.
type Deps struct {
	Config config.Config
	Log    *slog.Logger
	LLM    llm.Client
	// Model is the resolved model identifier sent to the provider.
	Model  string
	Cache  cache.Cache
	Queue  queue.Queue
	Source agent.TextSource
}

// Build loads env, config, and shared components.
func Build() (Deps, error) {
	if err := godotenv.Load(); err != nil && !errors.Is(err, fs.ErrNotExist) {
		return Deps{}, fmt.Errorf("failed to load environment variables: %w", err)
	}
	cfg := config.Load()
	log := logger.New(cfg.LogLevel)

	llmClient, model, err := buildLLM(cfg, log)
	if err != nil {
		return Deps{}, fmt.Errorf("failed to initialize LLM: %w", err)
	}
	c, err := buildCache(cfg, log)
	if err != nil {
		return Deps{}, fmt.Errorf("failed to initialize cache: %w", err)
	}
	q, err := buildQueue(cfg, log)
	if err != nil {
		_ = c.Close()
		return Deps{}, fmt.Errorf("failed to initialize queue: %w", err)
	}
	return Deps{
		Config: cfg,
		Log:    log,
		LLM:    llmClient,
		Model:  model,
		Cache:  c,
		Queue:  q,
		Source: extractor.New(log),
	}, nil
}

// Close releases the cache and queue connections.
func (d Deps) Close() error {
	var errs []error
	if d.Queue != nil {
		errs = append(errs, d.Queue.Close())
	}
	if d.Cache != nil {
		errs = append(errs, d.Cache.Close())
	}
	return errors.Join(errs...)
}

func buildLLM(cfg config.Config, log *slog.Logger) (llm.Client, string, error) {
	opts := llm.OpenAIOptions{
		Model:   openai.ChatModel(cfg.LLMModel),
		BaseURL: cfg.LLMBaseURL,
		Timeout: cfg.LLMTimeout,
	}
	switch cfg.LLMProvider {
	case "groq":
		if cfg.GroqKey == "" {
			return nil, "", fmt.Errorf("GROQ_API_KEY is required when LLM_PROVIDER=groq")
		}
		opts.APIKey = cfg.GroqKey
		if opts.BaseURL == "" {
			opts.BaseURL = llm.GroqBaseURL
		}
		if opts.Model == "" {
			opts.Model = llm.GroqDefaultModel
		}
	case "openai":
		if cfg.OpenAIKey == "" {
			return nil, "", fmt.Errorf("OPENAI_API_KEY is required when LLM_PROVIDER=openai")
		}
		opts.APIKey = cfg.OpenAIKey
	default:
		return nil, "", fmt.Errorf("invalid LLM_PROVIDER: %s (valid options: groq, openai)", cfg.LLMProvider)
	}

	client, err := llm.NewOpenAIClient(opts)
	if err != nil {
		return nil, "", fmt.Errorf("failed to initialize %s client: %w", cfg.LLMProvider, err)
	}
	log.Info("using LLM client", "provider", cfg.LLMProvider, "model", client.Model(), "max_retries", cfg.LLMMaxRetries)
	return llm.WithRetry(client, cfg.LLMMaxRetries, cfg.LLMRetryBase, log), client.Model(), nil
}

func buildCache(cfg config.Config, log *slog.Logger) (cache.Cache, error) {
	ttl := time.Duration(cfg.CacheTTL) * time.Second
	switch cfg.CacheProvider {
	case "", "none":
		return cache.NewNoOpCache(), nil
	case "memory":
		log.Info("using in-memory answer cache", "ttl", ttl)
		return cache.NewMemoryCache(ttl), nil
	case "redis":
		if cfg.RedisAddr == "" {
			return nil, fmt.Errorf("REDIS_ADDR is required when CACHE_PROVIDER=redis")
		}
		rc, err := cache.NewRedisCache(cfg.RedisAddr, cfg.RedisPassword)
		if err != nil {
			log.Warn("redis unavailable, answer caching disabled", "addr", cfg.RedisAddr, "err", err)
			return cache.NewNoOpCache(), nil
		}
		log.Info("using Redis answer cache", "addr", cfg.RedisAddr, "ttl", ttl)
		return rc, nil
	default:
		return nil, fmt.Errorf("invalid CACHE_PROVIDER: %s (valid options: none, memory, redis)", cfg.CacheProvider)
	}
}

func buildQueue(cfg config.Config, log *slog.Logger) (queue.Queue, error) {
	switch cfg.QueueProvider {
	case "", "none":
		return queue.NewLocal(log), nil
	case "nats":
		if cfg.QueueURL == "" {
			return nil, fmt.Errorf("QUEUE_URL is required when QUEUE_PROVIDER=nats")
		}
		nc, err := nats.Connect(cfg.QueueURL, nats.Name("pdf-ask"))
		if err != nil {
			return nil, fmt.Errorf("failed to connect to NATS: %w", err)
		}
		log.Info("using NATS reload broadcast")
		return queue.NewNATS(log, nc), nil
	default:
		return nil, fmt.Errorf("invalid QUEUE_PROVIDER: %s (valid options: none, nats)", cfg.QueueProvider)
	}
}
