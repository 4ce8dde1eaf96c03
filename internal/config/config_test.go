package config

import (
	"os"
	"testing"
	"time"
)

func TestLoadDefaults(t *testing.T) {
	// Save original env and restore after test
	originalEnv := os.Environ()
	defer func() {
		os.Clearenv()
		for _, env := range originalEnv {
			// Parse and restore each env var
			for i, c := range env {
				if c == '=' {
					os.Setenv(env[:i], env[i+1:])
					break
				}
			}
		}
	}()

	// Clear env to test defaults
	os.Clearenv()

	cfg := Load()

	tests := []struct {
		name     string
		got      interface{}
		expected interface{}
	}{
		{"Port", cfg.Port, 8080},
		{"LogLevel", cfg.LogLevel, "info"},
		{"StoreProvider", cfg.StoreProvider, "postgres"},
		{"QueueProvider", cfg.QueueProvider, "nats"},
		{"CheckpointProvider", cfg.CheckpointProvider, "file"},
		{"CheckpointDir", cfg.CheckpointDir, "checkpoints"},
		{"Workers", cfg.Workers, 8},
		{"SaveEvery", cfg.SaveEvery, 5},
		{"DefaultProvider", cfg.DefaultProvider, "openai"},
		{"CallTimeout", cfg.CallTimeout, 180 * time.Second},
		{"MaxAttempts", cfg.MaxAttempts, 4},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			if tt.got != tt.expected {
				t.Errorf("expected %s=%v, got %v", tt.name, tt.expected, tt.got)
			}
		})
	}
}

func TestLoadFromEnv(t *testing.T) {
	// Save and restore env
	originalPort := os.Getenv("PORT")
	originalWorkers := os.Getenv("WORKERS")
	defer func() {
		os.Setenv("PORT", originalPort)
		os.Setenv("WORKERS", originalWorkers)
	}()

	os.Setenv("PORT", "9090")
	os.Setenv("WORKERS", "3")

	cfg := Load()

	if cfg.Port != 9090 {
		t.Errorf("expected port 9090, got %d", cfg.Port)
	}
	if cfg.Workers != 3 {
		t.Errorf("expected 3 workers, got %d", cfg.Workers)
	}
}

func TestAPIKeyFor(t *testing.T) {
	cfg := Config{
		OpenAIKey:    "sk-openai",
		DeepSeekKey:  "sk-deepseek",
		AlibabaKey:   "sk-al",
		AnthropicKey: "sk-ant",
		DemoKey:      "sk-demo",
	}

	tests := []struct {
		provider string
		expected string
	}{
		{"openai", "sk-openai"},
		{"deepseek", "sk-deepseek"},
		{"alibaba", "sk-al"},
		{"anthropic", "sk-ant"},
		{"demo", "sk-demo"},
		{"unknown", ""},
	}

	for _, tt := range tests {
		t.Run(tt.provider, func(t *testing.T) {
			if got := cfg.APIKeyFor(tt.provider); got != tt.expected {
				t.Errorf("APIKeyFor(%q) = %q, want %q", tt.provider, got, tt.expected)
			}
		})
	}
}
