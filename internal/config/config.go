package config

import (
	"fmt"
	"io"
	"log/slog"
	"strings"
	"time"

	"github.com/caarlos0/env/v11"
)

const envPrefix = "CREWGATE_"

// Store backend kinds.
const (
	StoreMemory = "memory"
	StoreSQLite = "sqlite"
	StoreRedis  = "redis"
)

// CrewConfig selects and parameterizes the workload provider. Only the fields
// for the chosen kind are consulted.
type CrewConfig struct {
	// Kind selects the provider: "exec" runs a local command, "http" calls a
	// crew sidecar endpoint.
	Kind string `env:"KIND" envDefault:"exec"`

	// Command and Args are the crew entry point for the exec provider,
	// run from Dir when set. Inputs arrive as JSON on stdin.
	Command string   `env:"COMMAND"`
	Args    []string `env:"ARGS" envSeparator:" "`
	Dir     string   `env:"DIR"`

	// URL and Token configure the http provider.
	URL   string `env:"URL"`
	Token string `env:"TOKEN"`

	// Timeout bounds a single http execution; zero means no client timeout,
	// the crew call is trusted to terminate.
	Timeout time.Duration `env:"TIMEOUT" envDefault:"0"`

	// Required makes a provider load failure fatal at startup. When false the
	// service starts degraded: /health reports unhealthy, submissions get 503.
	Required bool `env:"REQUIRED" envDefault:"true"`
}

// StoreConfig selects the job registry backend.
type StoreConfig struct {
	Kind          string `env:"KIND" envDefault:"memory"`
	DBPath        string `env:"DB_PATH" envDefault:"crewgate.db"`
	RedisAddr     string `env:"REDIS_ADDR" envDefault:"localhost:6379"`
	RedisPassword string `env:"REDIS_PASSWORD"`
	RedisDB       int    `env:"REDIS_DB" envDefault:"0"`
}

// RunnerConfig bounds the worker pool and the eviction policy.
type RunnerConfig struct {
	Workers    int `env:"WORKERS" envDefault:"4"`
	QueueDepth int `env:"QUEUE_DEPTH" envDefault:"64"`

	// Retention is how long finished jobs stay queryable; zero disables eviction.
	Retention     time.Duration `env:"RETENTION" envDefault:"24h"`
	SweepInterval time.Duration `env:"SWEEP_INTERVAL" envDefault:"10m"`
}

// Config holds application configuration loaded from CREWGATE_* environment
// variables.
type Config struct {
	ListenAddr string `env:"LISTEN_ADDR" envDefault:":8080"`
	LogLevel   string `env:"LOG_LEVEL" envDefault:"info"`

	Crew   CrewConfig   `envPrefix:"CREW_"`
	Store  StoreConfig  `envPrefix:"STORE_"`
	Runner RunnerConfig `envPrefix:"RUNNER_"`
}

// Load parses configuration from the environment and applies guardrails.
func Load() (Config, error) {
	var cfg Config
	if err := env.ParseWithOptions(&cfg, env.Options{Prefix: envPrefix}); err != nil {
		return Config{}, fmt.Errorf("parse environment: %w", err)
	}
	cfg.Sanitize()
	return cfg, nil
}

// Sanitize clamps values loaded from the environment to usable ranges.
func (c *Config) Sanitize() {
	if c.Runner.Workers <= 0 {
		c.Runner.Workers = 4
	}
	if c.Runner.QueueDepth <= 0 {
		c.Runner.QueueDepth = 64
	}
	if c.Runner.SweepInterval <= 0 {
		c.Runner.SweepInterval = 10 * time.Minute
	}
	if c.Runner.Retention < 0 {
		c.Runner.Retention = 0
	}
}

// SlogLevel maps the configured level name to a slog.Level.
func (c Config) SlogLevel() slog.Level {
	return parseLogLevel(c.LogLevel)
}

func parseLogLevel(s string) slog.Level {
	switch strings.ToLower(s) {
	case "debug":
		return slog.LevelDebug
	case "info":
		return slog.LevelInfo
	case "warn":
		return slog.LevelWarn
	case "error":
		return slog.LevelError
	default:
		return slog.LevelInfo
	}
}

// NewLogger creates a structured JSON logger writing to w at the configured level.
func NewLogger(w io.Writer, level slog.Level) *slog.Logger {
	return slog.New(slog.NewJSONHandler(w, &slog.HandlerOptions{
		Level: level,
	}))
}
