package app

import (
	"context"
	"errors"
	"fmt"
	"io/fs"
	"log/slog"
	"time"

	"github.com/joho/godotenv"
	"github.com/nats-io/nats.go"

	"multilingual-qa/internal/cache"
	"multilingual-qa/internal/catalog"
	"multilingual-qa/internal/config"
	"multilingual-qa/internal/engine"
	"multilingual-qa/internal/logger"
	"multilingual-qa/internal/metrics"
	"multilingual-qa/internal/model"
	"multilingual-qa/internal/queue"
	"multilingual-qa/internal/store"
)

const modelLoadTimeout = 2 * time.Minute

// Deps bundles common runtime dependencies for services.
// Store and Queue are nil when their provider is "none".
type Deps struct {
	Config  config.Config
	Log     *slog.Logger
	Model   *model.Handle
	Engine  *engine.Engine
	Cache   cache.Cache
	Store   store.Store
	Queue   queue.Queue
	Catalog *catalog.Catalog
	Metrics metrics.Metrics
}

// Build loads env, config, the model and shared infrastructure.
// A model load failure is returned as *model.LoadError and must stop startup.
func Build(ctx context.Context) (Deps, error) {
	deps, err := BuildCore(ctx)
	if err != nil {
		return Deps{}, err
	}
	cfg, log := deps.Config, deps.Log

	deps.Cache = buildCache(cfg, log)
	st, err := buildStore(cfg, log)
	if err != nil {
		return Deps{}, fmt.Errorf("failed to initialize store: %w", err)
	}
	deps.Store = st
	q, err := buildQueue(cfg, log)
	if err != nil {
		return Deps{}, fmt.Errorf("failed to initialize queue: %w", err)
	}
	deps.Queue = q
	return deps, nil
}

// BuildWorker is Build for the async worker, which cannot run without a store and queue.
func BuildWorker(ctx context.Context) (Deps, error) {
	deps, err := Build(ctx)
	if err != nil {
		return Deps{}, err
	}
	if deps.Store == nil || deps.Queue == nil {
		deps.Close()
		return Deps{}, errors.New("worker requires STORE_PROVIDER=postgres and QUEUE_PROVIDER=nats")
	}
	return deps, nil
}

// BuildCore loads config, logger, catalog, metrics, the model and the answer engine.
func BuildCore(ctx context.Context) (Deps, error) {
	if err := godotenv.Load(); err != nil && !errors.Is(err, fs.ErrNotExist) {
		return Deps{}, fmt.Errorf("failed to load environment variables: %w", err)
	}
	cfg := config.Load()
	if err := cfg.Validate(); err != nil {
		return Deps{}, err
	}
	log := logger.New(cfg.LogLevel)

	cat, err := catalog.Load()
	if err != nil {
		return Deps{}, fmt.Errorf("failed to load catalog: %w", err)
	}
	m := metrics.NewProm(cfg.MetricsNamespace)

	provider, err := buildProvider(cfg)
	if err != nil {
		return Deps{}, err
	}
	loadCtx, cancel := context.WithTimeout(ctx, modelLoadTimeout)
	defer cancel()
	log.Info("loading model", "provider", cfg.ModelProvider, "model", cfg.ModelName)
	handle, err := provider.Load(loadCtx)
	if err != nil {
		return Deps{}, err
	}
	log.Info("model loaded", "model", handle.Name, "device", handle.Device)

	eng, err := engine.New(handle, log, engine.Options{
		Timeout:     cfg.GenerationTimeout,
		Concurrency: cfg.ModelConcurrency,
		Metrics:     m,
	})
	if err != nil {
		return Deps{}, fmt.Errorf("failed to initialize engine: %w", err)
	}
	return Deps{
		Config:  cfg,
		Log:     log,
		Model:   handle,
		Engine:  eng,
		Cache:   cache.NewNoOpCache(),
		Catalog: cat,
		Metrics: m,
	}, nil
}

// Close releases infrastructure connections.
func (d Deps) Close() {
	if d.Cache != nil {
		if err := d.Cache.Close(); err != nil {
			d.Log.Warn("failed to close cache", "err", err)
		}
	}
	if d.Store != nil {
		if err := d.Store.Close(); err != nil {
			d.Log.Warn("failed to close store", "err", err)
		}
	}
}

func buildProvider(cfg config.Config) (model.Provider, error) {
	switch cfg.ModelProvider {
	case "openai":
		if cfg.ModelBaseURL == "" {
			return nil, fmt.Errorf("MODEL_BASE_URL is required when MODEL_PROVIDER=openai")
		}
		return model.OpenAIProvider{
			BaseURL:   cfg.ModelBaseURL,
			APIKey:    cfg.ModelAPIKey,
			ModelName: cfg.ModelName,
		}, nil
	case "stub":
		return model.ExtractiveProvider{}, nil
	default:
		return nil, fmt.Errorf("invalid MODEL_PROVIDER: %s (valid options: openai, stub)", cfg.ModelProvider)
	}
}

// buildCache falls back to a no-op cache when Redis is unreachable; answers are
// still served, just not cached.
func buildCache(cfg config.Config, log *slog.Logger) cache.Cache {
	switch cfg.CacheProvider {
	case "redis":
		c, err := cache.NewRedisCache(cfg.RedisAddr, cfg.RedisPassword)
		if err != nil {
			log.Warn("redis unavailable, caching disabled", "addr", cfg.RedisAddr, "err", err)
			return cache.NewNoOpCache()
		}
		log.Info("using Redis cache", "addr", cfg.RedisAddr)
		return c
	default:
		log.Info("caching disabled")
		return cache.NewNoOpCache()
	}
}

func buildStore(cfg config.Config, log *slog.Logger) (store.Store, error) {
	switch cfg.StoreProvider {
	case "postgres":
		if cfg.DBURL == "" {
			return nil, fmt.Errorf("DB_URL is required when STORE_PROVIDER=postgres")
		}
		db, err := store.NewPostgres(cfg.DBURL)
		if err != nil {
			return nil, fmt.Errorf("failed to initialize Postgres: %w", err)
		}
		log.Info("using Postgres store")
		return db, nil
	case "none":
		log.Info("answer store disabled")
		return nil, nil
	default:
		return nil, fmt.Errorf("invalid STORE_PROVIDER: %s (valid options: postgres, none)", cfg.StoreProvider)
	}
}

func buildQueue(cfg config.Config, log *slog.Logger) (queue.Queue, error) {
	switch cfg.QueueProvider {
	case "nats":
		if cfg.QueueURL == "" {
			return nil, fmt.Errorf("QUEUE_URL is required when QUEUE_PROVIDER=nats")
		}
		nc, err := nats.Connect(cfg.QueueURL, nats.Name("multilingual-qa"))
		if err != nil {
			return nil, fmt.Errorf("failed to connect to NATS: %w", err)
		}
		log.Info("using NATS queue")
		return queue.NewNATS(log, nc), nil
	case "none":
		log.Info("async queue disabled")
		return nil, nil
	default:
		return nil, fmt.Errorf("invalid QUEUE_PROVIDER: %s (valid options: nats, none)", cfg.QueueProvider)
	}
}
