package provider

import (
	"context"
	"fmt"
	"log/slog"
)

// Known provider ids.
const (
	ProviderOpenAI    = "openai"
	ProviderDeepSeek  = "deepseek"
	ProviderDemo      = "demo"
	ProviderAlibaba   = "alibaba"
	ProviderAnthropic = "anthropic"
)

// Config selects a chat completion backend. APIKey is a pass-through
// secret and is never written to logs, see LogValue.
type Config struct {
	Provider string `json:"provider" validate:"required,oneof=openai deepseek demo alibaba anthropic"`
	APIKey   string `json:"api_key"`
	Model    string `json:"model"`
	BaseURL  string `json:"base_url"`
}

// LogValue redacts the API key so a Config can be logged as-is.
func (c Config) LogValue() slog.Value {
	return slog.GroupValue(
		slog.String("provider", c.Provider),
		slog.String("model", c.Model),
		slog.String("base_url", c.BaseURL),
		slog.Bool("api_key_set", c.APIKey != ""),
	)
}

// Usage counts tokens consumed by one or more calls. Estimated marks
// totals that include character-based approximations instead of
// backend-reported counts.
type Usage struct {
	InputTokens  int64 `json:"input_tokens"`
	OutputTokens int64 `json:"output_tokens"`
	Estimated    bool  `json:"estimated,omitempty"`
}

// Add accumulates another usage record into u.
func (u *Usage) Add(other Usage) {
	u.InputTokens += other.InputTokens
	u.OutputTokens += other.OutputTokens
	u.Estimated = u.Estimated || other.Estimated
}

// TotalTokens returns the combined input and output count.
func (u Usage) TotalTokens() int64 {
	return u.InputTokens + u.OutputTokens
}

// Caller sends a single prompt and returns the model's text reply.
type Caller interface {
	Call(ctx context.Context, prompt string) (string, Usage, error)
}

// New builds a Caller for the configured backend. An empty model or
// base URL falls back to the backend's default.
func New(cfg Config) (Caller, error) {
	if cfg.APIKey == "" {
		return nil, fmt.Errorf("provider %q: missing API key", cfg.Provider)
	}
	switch cfg.Provider {
	case ProviderOpenAI:
		return newOpenAI(cfg, "https://api.openai.com/v1", "gpt-4o"), nil
	case ProviderDeepSeek:
		return newOpenAI(cfg, "https://api.deepseek.com/v1", "deepseek-chat"), nil
	case ProviderDemo:
		return newOpenAI(cfg, "https://api.nuwaapi.com/v1", "gemini-2.5-pro"), nil
	case ProviderAlibaba:
		return newDashScope(cfg), nil
	case ProviderAnthropic:
		return newAnthropic(cfg), nil
	default:
		return nil, fmt.Errorf("unsupported provider: %q", cfg.Provider)
	}
}
