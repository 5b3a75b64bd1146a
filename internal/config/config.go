// Package config loads the portfolio server configuration from PORTFOLIO_*
// environment variables.
package config

import (
	"fmt"
	"os"
	"strings"
	"time"

	"github.com/caarlos0/env/v11"
)

const (
	envPrefix   = "PORTFOLIO_"
	defaultPort = "8080"
)

// Config holds the server settings.
type Config struct {
	Addr       string `env:"ADDR"`
	Dataset    string `env:"DATASET" envDefault:"data/projects.json"`
	LocalesDir string `env:"LOCALES_DIR"`
	// TemplatesDir overrides the embedded template set.
	TemplatesDir string `env:"TEMPLATES_DIR"`
	PublicDir    string `env:"PUBLIC_DIR" envDefault:"public"`
	Dev          bool   `env:"DEV"`
	LogLevel     string `env:"LOG_LEVEL" envDefault:"info"`

	DatasetTTL   time.Duration `env:"DATASET_TTL" envDefault:"5m"`
	FetchTimeout time.Duration `env:"FETCH_TIMEOUT" envDefault:"10s"`

	Session SessionConfig `envPrefix:"SESSION_"`
	Server  ServerConfig  `envPrefix:"SERVER_"`
}

// SessionConfig controls page sessions.
type SessionConfig struct {
	TTL time.Duration `env:"TTL" envDefault:"30m"`
	// Max caps live sessions; the least recently seen is evicted first.
	Max int `env:"MAX" envDefault:"5000"`
	// SigningKey signs the session cookie. Empty means a random per-process key.
	SigningKey string `env:"SIGNING_KEY"`
	Secure     bool   `env:"SECURE"`
}

// ServerConfig holds the HTTP server timeouts.
type ServerConfig struct {
	ReadTimeout     time.Duration `env:"READ_TIMEOUT" envDefault:"15s"`
	WriteTimeout    time.Duration `env:"WRITE_TIMEOUT" envDefault:"15s"`
	IdleTimeout     time.Duration `env:"IDLE_TIMEOUT" envDefault:"60s"`
	RequestTimeout  time.Duration `env:"REQUEST_TIMEOUT" envDefault:"30s"`
	ShutdownTimeout time.Duration `env:"SHUTDOWN_TIMEOUT" envDefault:"10s"`
}

// ValidationError is returned when required configuration fields are missing or invalid.
type ValidationError struct {
	fields []string
}

func (e *ValidationError) Error() string {
	return fmt.Sprintf("config validation failed: missing or invalid fields [%s]", strings.Join(e.fields, ", "))
}

// Fields returns a copy of the missing/invalid field list.
func (e *ValidationError) Fields() []string {
	out := make([]string, len(e.fields))
	copy(out, e.fields)
	return out
}

// Option customises Load behaviour.
type Option func(*loaderOptions)

type loaderOptions struct {
	envMap       map[string]string
	useSystemEnv bool
}

// WithEnvMap supplies explicit values that take precedence over the process environment.
func WithEnvMap(values map[string]string) Option {
	return func(o *loaderOptions) {
		o.envMap = values
	}
}

// WithoutSystemEnv ignores the process environment.
func WithoutSystemEnv() Option {
	return func(o *loaderOptions) {
		o.useSystemEnv = false
	}
}

// Load reads and validates the configuration.
func Load(opts ...Option) (Config, error) {
	options := loaderOptions{useSystemEnv: true}
	for _, opt := range opts {
		opt(&options)
	}

	values := map[string]string{}
	if options.useSystemEnv {
		values = env.ToMap(os.Environ())
	}
	for k, v := range options.envMap {
		values[k] = v
	}

	var cfg Config
	if err := env.ParseWithOptions(&cfg, env.Options{Environment: values, Prefix: envPrefix}); err != nil {
		return Config{}, fmt.Errorf("parse env: %w", err)
	}

	// Cloud Run style PORT is honoured when no explicit address is set.
	if strings.TrimSpace(cfg.Addr) == "" {
		port := strings.TrimSpace(values["PORT"])
		if port == "" {
			port = defaultPort
		}
		cfg.Addr = ":" + port
	}
	cfg.LogLevel = strings.ToLower(strings.TrimSpace(cfg.LogLevel))

	if err := validate(cfg); err != nil {
		return Config{}, err
	}
	return cfg, nil
}

func validate(cfg Config) error {
	var missing []string
	if strings.TrimSpace(cfg.Dataset) == "" {
		missing = append(missing, "Dataset")
	}
	if cfg.DatasetTTL <= 0 {
		missing = append(missing, "DatasetTTL")
	}
	if cfg.FetchTimeout <= 0 {
		missing = append(missing, "FetchTimeout")
	}
	if cfg.Session.TTL <= 0 {
		missing = append(missing, "Session.TTL")
	}
	if cfg.Session.Max <= 0 {
		missing = append(missing, "Session.Max")
	}
	if key := cfg.Session.SigningKey; key != "" && len(key) < 32 {
		missing = append(missing, "Session.SigningKey")
	}
	if len(missing) > 0 {
		return &ValidationError{fields: missing}
	}
	return nil
}
