// Package config loads purr's settings from defaults, a YAML file, .env and
// the environment, in that order of increasing precedence. Command-line
// flags are applied on top by the caller.
package config

import (
	"errors"
	"fmt"
	"io/fs"
	"os"
	"path/filepath"
	"slices"
	"time"

	"github.com/charmbracelet/log"
	"github.com/joho/godotenv"
	"github.com/kelseyhightower/envconfig"
	"gopkg.in/yaml.v3"
)

// EnvPrefix prefixes every environment variable, e.g. PURR_ENGINE or
// PURR_OPENAI_API_KEY. Keys derive from field names; envconfig tags are
// avoided because they also match the unprefixed name.
const EnvPrefix = "PURR"

var engines = []string{"auto", "espeak", "say", "openai"}

// Config holds all settings.
type Config struct {
	// Speech
	Engine string  `yaml:"engine"` // auto, espeak, say, openai
	Voice  string  `yaml:"voice"`
	Rate   float64 `yaml:"rate"`  // 0.5 - 2.0
	Pitch  float64 `yaml:"pitch"` // 0 - 2.0

	// Documents
	OCRLanguage string `yaml:"ocr_language" split_words:"true"` // tesseract language code
	MaxFileSize int64  `yaml:"max_file_size" split_words:"true"`

	// Logging
	LogLevel string `yaml:"log_level" split_words:"true"` // debug, info, warn, error
	LogFile  string `yaml:"log_file" split_words:"true"`  // TUI/GUI log destination, empty discards

	OpenAI OpenAI `yaml:"openai"`
	Cache  Cache  `yaml:"cache"`
}

// OpenAI configures the OpenAI speech engine.
type OpenAI struct {
	APIKey  string `yaml:"api_key" split_words:"true"` // falls back to OPENAI_API_KEY
	BaseURL string `yaml:"base_url" split_words:"true"`
	Model   string `yaml:"model"`
}

// Cache configures the synthesized audio cache.
type Cache struct {
	Enabled bool          `yaml:"enabled"`
	Dir     string        `yaml:"dir"`
	TTL     time.Duration `yaml:"ttl"`
}

// Default returns the built-in settings.
func Default() *Config {
	return &Config{
		Engine:      "auto",
		Rate:        1.0,
		Pitch:       1.0,
		OCRLanguage: "eng",
		MaxFileSize: 64 << 20,
		LogLevel:    "info",
		OpenAI: OpenAI{
			Model: "gpt-4o-mini-tts",
		},
		Cache: Cache{
			Enabled: true,
			Dir:     defaultCacheDir(),
			TTL:     30 * 24 * time.Hour,
		},
	}
}

// DefaultPath returns XDG_CONFIG_HOME/purr/config.yaml or
// ~/.config/purr/config.yaml.
func DefaultPath() string {
	if dir := os.Getenv("XDG_CONFIG_HOME"); dir != "" {
		return filepath.Join(dir, "purr", "config.yaml")
	}
	home, _ := os.UserHomeDir()
	return filepath.Join(home, ".config", "purr", "config.yaml")
}

func defaultCacheDir() string {
	dir, err := os.UserCacheDir()
	if err != nil {
		return ""
	}
	return filepath.Join(dir, "purr", "audio")
}

// Load builds the configuration. An empty path reads DefaultPath if it
// exists; an explicit path must exist. A .env file in the working directory
// is loaded into the environment first, without overriding variables that
// are already set.
func Load(path string) (*Config, error) {
	cfg := Default()

	explicit := path != ""
	if !explicit {
		path = DefaultPath()
	}
	if err := cfg.loadFile(path); err != nil {
		if explicit || !errors.Is(err, fs.ErrNotExist) {
			return nil, err
		}
	}

	// Ignore error if .env doesn't exist
	_ = godotenv.Load()

	if err := envconfig.Process(EnvPrefix, cfg); err != nil {
		return nil, fmt.Errorf("failed to load config from environment: %w", err)
	}
	if cfg.OpenAI.APIKey == "" {
		cfg.OpenAI.APIKey = os.Getenv("OPENAI_API_KEY")
	}
	return cfg, nil
}

func (c *Config) loadFile(path string) error {
	data, err := os.ReadFile(path)
	if err != nil {
		return fmt.Errorf("read config: %w", err)
	}
	if err := yaml.Unmarshal(data, c); err != nil {
		return fmt.Errorf("parse config %s: %w", path, err)
	}
	return nil
}

// Validate checks ranges and enumerations.
func (c *Config) Validate() error {
	var errs []error
	if !slices.Contains(engines, c.Engine) {
		errs = append(errs, fmt.Errorf("engine %q must be one of %v", c.Engine, engines))
	}
	if c.Rate < 0.5 || c.Rate > 2.0 {
		errs = append(errs, fmt.Errorf("rate %.2f out of range [0.5, 2.0]", c.Rate))
	}
	if c.Pitch < 0 || c.Pitch > 2.0 {
		errs = append(errs, fmt.Errorf("pitch %.2f out of range [0, 2.0]", c.Pitch))
	}
	if c.MaxFileSize <= 0 {
		errs = append(errs, errors.New("max_file_size must be positive"))
	}
	if c.OCRLanguage == "" {
		errs = append(errs, errors.New("ocr_language is required"))
	}
	if _, err := log.ParseLevel(c.LogLevel); err != nil {
		errs = append(errs, fmt.Errorf("log_level: %w", err))
	}
	if c.Engine == "openai" && c.OpenAI.APIKey == "" {
		errs = append(errs, errors.New("openai engine requires an API key (PURR_OPENAI_API_KEY or OPENAI_API_KEY)"))
	}
	if c.Cache.Enabled && c.Cache.Dir == "" {
		errs = append(errs, errors.New("cache.dir is required when the cache is enabled"))
	}
	return errors.Join(errs...)
}

// Level returns the parsed log level, or info if it is invalid.
func (c *Config) Level() log.Level {
	lvl, err := log.ParseLevel(c.LogLevel)
	if err != nil {
		return log.InfoLevel
	}
	return lvl
}
