package config

import (
	"fmt"
	"log/slog"
	"strings"
	"time"

	"github.com/caarlos0/env/v10"
	"github.com/go-playground/validator/v10"
)

// Config holds runtime configuration for the server, worker and smoke binaries.
type Config struct {
	// Server
	Port       int    `env:"PORT" envDefault:"8080" validate:"min=1,max=65535"`
	HealthPort int    `env:"HEALTH_PORT" envDefault:"8081" validate:"min=1,max=65535"`
	LogLevel   string `env:"LOG_LEVEL" envDefault:"info" validate:"oneof=debug info warn error"`

	// Upload limits
	MaxUploadSize int64 `env:"MAX_UPLOAD_SIZE" envDefault:"10485760" validate:"min=1"` // 10MB in bytes

	// Model
	ModelProvider     string        `env:"MODEL_PROVIDER" envDefault:"openai" validate:"oneof=openai stub"` // "openai" (OpenAI-compatible server) or "stub" (offline extractive baseline)
	ModelBaseURL      string        `env:"MODEL_BASE_URL" validate:"required_if=ModelProvider openai"`
	ModelAPIKey       string        `env:"MODEL_API_KEY" envDefault:"EMPTY"`
	ModelName         string        `env:"MODEL_NAME" envDefault:"mbart-large-50-qa-lora" validate:"required"`
	GenerationTimeout time.Duration `env:"GENERATION_TIMEOUT" envDefault:"30s" validate:"gt=0"`
	ModelConcurrency  int64         `env:"MODEL_CONCURRENCY" envDefault:"1" validate:"min=1"`

	// Cache
	CacheProvider string `env:"CACHE_PROVIDER" envDefault:"redis" validate:"oneof=redis none"`
	RedisAddr     string `env:"REDIS_ADDR" envDefault:"localhost:6379"`
	RedisPassword string `env:"REDIS_PASSWORD"`
	CacheTTL      int    `env:"CACHE_TTL" envDefault:"3600" validate:"min=0"` // seconds

	// Store
	StoreProvider string `env:"STORE_PROVIDER" envDefault:"postgres" validate:"oneof=postgres none"`
	DBURL         string `env:"DB_URL"`

	// Queue
	QueueProvider string `env:"QUEUE_PROVIDER" envDefault:"nats" validate:"oneof=nats none"`
	QueueURL      string `env:"QUEUE_URL"`

	MetricsNamespace string `env:"METRICS_NAMESPACE" envDefault:"mlqa" validate:"required"`
}

var validate = validator.New()

// Load reads configuration from environment variables with defaults.
func Load() Config {
	var cfg Config
	if err := env.Parse(&cfg); err != nil {
		slog.Warn("failed to parse env; using defaults where set", "err", err)
	}
	return cfg
}

// Validate checks field constraints and reports every failing field at once.
func (c Config) Validate() error {
	err := validate.Struct(c)
	if err == nil {
		return nil
	}
	errs, ok := err.(validator.ValidationErrors)
	if !ok {
		return fmt.Errorf("config validation failed: %w", err)
	}
	msgs := make([]string, 0, len(errs))
	for _, e := range errs {
		msgs = append(msgs, fmt.Sprintf("%s: failed '%s' (value: %v)", e.Field(), e.Tag(), e.Value()))
	}
	return fmt.Errorf("config validation failed: %s", strings.Join(msgs, "; "))
}
