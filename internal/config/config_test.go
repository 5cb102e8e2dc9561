package config

import (
	"os"
	"path/filepath"
	"strings"
	"testing"
	"time"

	"github.com/charmbracelet/log"
)

// isolate points every lookup at empty temp locations.
func isolate(t *testing.T) string {
	t.Helper()
	dir := t.TempDir()
	t.Setenv("XDG_CONFIG_HOME", dir)
	t.Setenv("OPENAI_API_KEY", "")
	for _, kv := range os.Environ() {
		if k, _, _ := strings.Cut(kv, "="); strings.HasPrefix(k, EnvPrefix+"_") {
			t.Setenv(k, "")
			os.Unsetenv(k)
		}
	}
	return dir
}

func writeConfig(t *testing.T, dir, body string) string {
	t.Helper()
	path := filepath.Join(dir, "purr", "config.yaml")
	if err := os.MkdirAll(filepath.Dir(path), 0755); err != nil {
		t.Fatal(err)
	}
	if err := os.WriteFile(path, []byte(body), 0644); err != nil {
		t.Fatal(err)
	}
	return path
}

func TestLoadDefaults(t *testing.T) {
	isolate(t)

	cfg, err := Load("")
	if err != nil {
		t.Fatalf("Load: %v", err)
	}
	if cfg.Engine != "auto" || cfg.Rate != 1 || cfg.Pitch != 1 || cfg.OCRLanguage != "eng" {
		t.Errorf("unexpected defaults: %+v", cfg)
	}
	if cfg.MaxFileSize != 64<<20 {
		t.Errorf("MaxFileSize = %d", cfg.MaxFileSize)
	}
	if err := cfg.Validate(); err != nil {
		t.Errorf("defaults should validate: %v", err)
	}
}

func TestLoadFileAndEnv(t *testing.T) {
	dir := isolate(t)
	writeConfig(t, dir, `
engine: espeak
voice: en-gb
rate: 1.5
ocr_language: deu
cache:
  enabled: false
  ttl: 2h
openai:
  model: tts-1
`)
	t.Setenv("PURR_VOICE", "en-us")
	t.Setenv("PURR_PITCH", "0.75")
	t.Setenv("PURR_OPENAI_BASE_URL", "http://localhost:9999/v1")

	cfg, err := Load("")
	if err != nil {
		t.Fatalf("Load: %v", err)
	}

	tests := []struct {
		name string
		got  any
		want any
	}{
		{"engine from file", cfg.Engine, "espeak"},
		{"rate from file", cfg.Rate, 1.5},
		{"ocr language from file", cfg.OCRLanguage, "deu"},
		{"voice env overrides file", cfg.Voice, "en-us"},
		{"pitch from env", cfg.Pitch, 0.75},
		{"nested env", cfg.OpenAI.BaseURL, "http://localhost:9999/v1"},
		{"nested file", cfg.OpenAI.Model, "tts-1"},
		{"cache disabled", cfg.Cache.Enabled, false},
		{"duration", cfg.Cache.TTL, 2 * time.Hour},
		{"untouched default", cfg.LogLevel, "info"},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			if tt.got != tt.want {
				t.Errorf("got %v, want %v", tt.got, tt.want)
			}
		})
	}
}

func TestLoadExplicitPathMustExist(t *testing.T) {
	isolate(t)
	if _, err := Load(filepath.Join(t.TempDir(), "missing.yaml")); err == nil {
		t.Error("expected error for a missing explicit config file")
	}
}

func TestLoadInvalidYAML(t *testing.T) {
	dir := isolate(t)
	path := writeConfig(t, dir, "engine: [unclosed")
	if _, err := Load(path); err == nil {
		t.Error("expected parse error")
	}
}

func TestOpenAIKeyFallback(t *testing.T) {
	isolate(t)
	t.Setenv("OPENAI_API_KEY", "sk-fallback")

	cfg, err := Load("")
	if err != nil {
		t.Fatalf("Load: %v", err)
	}
	if cfg.OpenAI.APIKey != "sk-fallback" {
		t.Errorf("APIKey = %q, want fallback", cfg.OpenAI.APIKey)
	}

	t.Setenv("PURR_OPENAI_API_KEY", "sk-purr")
	cfg, _ = Load("")
	if cfg.OpenAI.APIKey != "sk-purr" {
		t.Errorf("APIKey = %q, PURR_ variable should win", cfg.OpenAI.APIKey)
	}
}

func TestValidate(t *testing.T) {
	tests := []struct {
		name    string
		mutate  func(*Config)
		wantErr string
	}{
		{"valid", func(*Config) {}, ""},
		{"unknown engine", func(c *Config) { c.Engine = "robot" }, "engine"},
		{"rate too low", func(c *Config) { c.Rate = 0.1 }, "rate"},
		{"rate too high", func(c *Config) { c.Rate = 3 }, "rate"},
		{"pitch negative", func(c *Config) { c.Pitch = -0.5 }, "pitch"},
		{"bad log level", func(c *Config) { c.LogLevel = "loud" }, "log_level"},
		{"zero file size", func(c *Config) { c.MaxFileSize = 0 }, "max_file_size"},
		{"openai without key", func(c *Config) { c.Engine = "openai" }, "API key"},
		{"openai with key", func(c *Config) { c.Engine = "openai"; c.OpenAI.APIKey = "sk" }, ""},
		{"cache without dir", func(c *Config) { c.Cache.Dir = "" }, "cache.dir"},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			cfg := Default()
			cfg.Cache.Dir = "/tmp/purr-test-cache"
			tt.mutate(cfg)
			err := cfg.Validate()
			if tt.wantErr == "" {
				if err != nil {
					t.Errorf("unexpected error: %v", err)
				}
				return
			}
			if err == nil || !strings.Contains(err.Error(), tt.wantErr) {
				t.Errorf("Validate() = %v, want error containing %q", err, tt.wantErr)
			}
		})
	}
}

func TestLevel(t *testing.T) {
	cfg := Default()
	cfg.LogLevel = "debug"
	if cfg.Level() != log.DebugLevel {
		t.Errorf("Level() = %v", cfg.Level())
	}
	cfg.LogLevel = "nonsense"
	if cfg.Level() != log.InfoLevel {
		t.Errorf("invalid level should fall back to info, got %v", cfg.Level())
	}
}
