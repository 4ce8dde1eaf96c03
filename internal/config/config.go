package config

import (
	"log/slog"
	"time"

	"github.com/caarlos0/env/v10"
)

// Config holds minimal runtime configuration. Extend as needed.
type Config struct {
	// Server
	Port     int    `env:"PORT" envDefault:"8080"`
	LogLevel string `env:"LOG_LEVEL" envDefault:"info"`

	// Store
	StoreProvider string `env:"STORE_PROVIDER" envDefault:"postgres"` // "postgres" (production database)
	DBURL         string `env:"DB_URL"`

	// Queue
	QueueProvider string `env:"QUEUE_PROVIDER" envDefault:"nats"` // "nats" (required for gateway/runner communication)
	QueueURL      string `env:"QUEUE_URL"`

	// Checkpoints
	CheckpointProvider string `env:"CHECKPOINT_PROVIDER" envDefault:"file"` // "file", "redis" or "postgres"
	CheckpointDir      string `env:"CHECKPOINT_DIR" envDefault:"checkpoints"`
	RedisAddr          string `env:"REDIS_ADDR"`
	RedisPassword      string `env:"REDIS_PASSWORD"`

	// Batch execution
	Workers   int `env:"WORKERS" envDefault:"8"`
	SaveEvery int `env:"CHECKPOINT_SAVE_EVERY" envDefault:"5"`

	// LLM providers
	DefaultProvider string        `env:"LLM_PROVIDER" envDefault:"openai"`
	CallTimeout     time.Duration `env:"PROVIDER_TIMEOUT" envDefault:"180s"`
	MaxAttempts     int           `env:"PROVIDER_MAX_ATTEMPTS" envDefault:"4"`
	OpenAIKey       string        `env:"OPENAI_API_KEY"`
	DeepSeekKey     string        `env:"DEEPSEEK_API_KEY"`
	AlibabaKey      string        `env:"AL_KEY"`
	AnthropicKey    string        `env:"ANTHROPIC_API_KEY"`
	DemoKey         string        `env:"DEMO_API_KEY"`
}

// Load reads configuration from environment variables with defaults.
func Load() Config {
	var cfg Config
	if err := env.Parse(&cfg); err != nil {
		slog.Warn("failed to parse env; using defaults where set", "err", err)
	}
	return cfg
}

// APIKeyFor returns the environment-provided key for a provider id, used
// as a fallback when a batch request carries no credentials of its own.
func (c Config) APIKeyFor(providerID string) string {
	switch providerID {
	case "openai":
		return c.OpenAIKey
	case "deepseek":
		return c.DeepSeekKey
	case "alibaba":
		return c.AlibabaKey
	case "anthropic":
		return c.AnthropicKey
	case "demo":
		return c.DemoKey
	default:
		return ""
	}
}
