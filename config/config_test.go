package config

import (
	"testing"
	"time"
)

func TestLoadConfig(t *testing.T) {
	t.Setenv("DB_PATH", "/tmp/test.db")
	t.Setenv("SERVER_PORT", "9090")
	t.Setenv("READ_TIMEOUT", "10s")
	t.Setenv("WRITE_TIMEOUT", "20s")
	t.Setenv("IDLE_TIMEOUT", "30s")
	t.Setenv("RATE_LIMIT", "10")
	t.Setenv("RATE_LIMIT_INTERVAL", "2s")
	t.Setenv("GOOGLE_API_KEY", "key-123")
	t.Setenv("GEMINI_MODEL", "gemini-2.5-pro")
	t.Setenv("POLL_INTERVAL", "3s")
	t.Setenv("POLL_TIMEOUT", "90s")
	t.Setenv("GEMINI_DELETE_UPLOADED", "true")

	cfg := LoadConfig()

	if cfg.DBPath != "/tmp/test.db" {
		t.Errorf("expected /tmp/test.db, got %s", cfg.DBPath)
	}
	if cfg.ServerPort != "9090" {
		t.Errorf("expected 9090, got %s", cfg.ServerPort)
	}
	if cfg.ReadTimeout != 10*time.Second {
		t.Errorf("expected 10s, got %s", cfg.ReadTimeout)
	}
	if cfg.WriteTimeout != 20*time.Second {
		t.Errorf("expected 20s, got %s", cfg.WriteTimeout)
	}
	if cfg.IdleTimeout != 30*time.Second {
		t.Errorf("expected 30s, got %s", cfg.IdleTimeout)
	}
	if cfg.RateLimit != 10 {
		t.Errorf("expected 10, got %d", cfg.RateLimit)
	}
	if cfg.RateLimitInterval != 2*time.Second {
		t.Errorf("expected 2s, got %s", cfg.RateLimitInterval)
	}
	if cfg.Gemini.APIKey != "key-123" {
		t.Errorf("expected key-123, got %s", cfg.Gemini.APIKey)
	}
	if cfg.Gemini.Model != "gemini-2.5-pro" {
		t.Errorf("expected gemini-2.5-pro, got %s", cfg.Gemini.Model)
	}
	if cfg.Analysis.PollInterval != 3*time.Second {
		t.Errorf("expected 3s, got %s", cfg.Analysis.PollInterval)
	}
	if cfg.Analysis.PollTimeout != 90*time.Second {
		t.Errorf("expected 90s, got %s", cfg.Analysis.PollTimeout)
	}
	if !cfg.Gemini.DeleteUploaded {
		t.Error("expected DeleteUploaded to be true")
	}
	if !cfg.APIKeyConfigured() {
		t.Error("expected API key to be configured")
	}
}

func TestLoadConfigDefaults(t *testing.T) {
	t.Setenv("GOOGLE_API_KEY", "")
	t.Setenv("GEMINI_API_KEY", "")
	t.Setenv("POLL_INTERVAL", "not-a-duration")

	cfg := LoadConfig()

	if cfg.Analysis.PollInterval != 2*time.Second {
		t.Errorf("expected default poll interval 2s, got %s", cfg.Analysis.PollInterval)
	}
	if cfg.Analysis.PollTimeout != 60*time.Second {
		t.Errorf("expected default poll timeout 60s, got %s", cfg.Analysis.PollTimeout)
	}
	if cfg.Gemini.Model != "gemini-2.5-flash" {
		t.Errorf("expected gemini-2.5-flash, got %s", cfg.Gemini.Model)
	}
	if cfg.Analysis.DefaultPrompt == "" {
		t.Error("expected a default prompt")
	}
	if cfg.APIKeyConfigured() {
		t.Error("expected API key to be missing")
	}
	if err := ValidateConfig(cfg); err != nil {
		t.Errorf("missing API key must not fail validation: %v", err)
	}
}

func TestGeminiAPIKeyFallback(t *testing.T) {
	t.Setenv("GOOGLE_API_KEY", "")
	t.Setenv("GEMINI_API_KEY", "fallback")

	cfg := LoadConfig()
	if cfg.Gemini.APIKey != "fallback" {
		t.Errorf("expected fallback key, got %q", cfg.Gemini.APIKey)
	}
}

func TestValidateConfig(t *testing.T) {
	tests := []struct {
		name    string
		mutate  func(*Config)
		wantErr bool
	}{
		{"valid", func(c *Config) {}, false},
		{"empty port", func(c *Config) { c.ServerPort = "" }, true},
		{"zero poll interval", func(c *Config) { c.Analysis.PollInterval = 0 }, true},
		{"timeout shorter than interval", func(c *Config) {
			c.Analysis.PollInterval = 5 * time.Second
			c.Analysis.PollTimeout = time.Second
		}, true},
		{"empty model", func(c *Config) { c.Gemini.Model = "" }, true},
		{"zero upload size", func(c *Config) { c.Analysis.MaxUploadSize = 0 }, true},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			cfg := LoadConfig()
			tt.mutate(cfg)
			err := ValidateConfig(cfg)
			if (err != nil) != tt.wantErr {
				t.Errorf("ValidateConfig() error = %v, wantErr %v", err, tt.wantErr)
			}
		})
	}
}
