package config

import (
	"fmt"
	"time"

	"github.com/caarlos0/env/v11"
	"github.com/joho/godotenv"
	"github.com/rs/zerolog"
)

// Config holds all server configuration.
// Tags:
//
//	env: Environment variable name
//	envDefault: Default value if not set
type Config struct {
	// Network
	Addr      string `env:"CHAT_ADDR" envDefault:":12000"`
	AdminPort int    `env:"CHAT_ADMIN_PORT" envDefault:"6666"`
	OpsAddr   string `env:"CHAT_OPS_ADDR" envDefault:":9095"`

	// Protocol limits
	BufferSize  int `env:"CHAT_BUFFER_SIZE" envDefault:"1024"`
	MaxNameLen  int `env:"CHAT_MAX_NAME_LEN" envDefault:"64"`
	MuteListCap int `env:"CHAT_MUTE_CAP" envDefault:"16"`
	HistorySize int `env:"CHAT_HISTORY_SIZE" envDefault:"15"`
	RoomBuckets int `env:"CHAT_ROOM_BUCKETS" envDefault:"32"`

	// Liveness
	InactivityThreshold time.Duration `env:"CHAT_INACTIVITY_THRESHOLD" envDefault:"300s"`
	PingTimeout         time.Duration `env:"CHAT_PING_TIMEOUT" envDefault:"10s"`
	SweepInterval       time.Duration `env:"CHAT_SWEEP_INTERVAL" envDefault:"500ms"`

	// Dispatch
	Workers         int `env:"CHAT_WORKERS" envDefault:"16"`
	WorkerQueueSize int `env:"CHAT_WORKER_QUEUE" envDefault:"1024"`

	// Eventing
	NatsURL         string `env:"CHAT_NATS_URL" envDefault:""`
	EventBufferSize int    `env:"CHAT_EVENT_BUFFER" envDefault:"256"`

	// Monitoring
	MetricsInterval time.Duration `env:"METRICS_INTERVAL" envDefault:"15s"`

	// Logging
	LogLevel  string `env:"LOG_LEVEL" envDefault:"info"`
	LogFormat string `env:"LOG_FORMAT" envDefault:"json"`

	// Environment
	Environment string `env:"ENVIRONMENT" envDefault:"development"`
}

// Load reads configuration from .env file and environment variables.
// Priority: ENV vars > .env file > defaults.
func Load() (*Config, error) {
	// Optional in production; a missing .env file is not an error.
	_ = godotenv.Load()

	cfg := &Config{}
	if err := env.Parse(cfg); err != nil {
		return nil, fmt.Errorf("failed to parse config: %w", err)
	}

	if err := cfg.Validate(); err != nil {
		return nil, fmt.Errorf("config validation failed: %w", err)
	}

	return cfg, nil
}

// Validate checks configuration for errors.
func (c *Config) Validate() error {
	if c.Addr == "" {
		return fmt.Errorf("CHAT_ADDR is required")
	}
	if c.AdminPort < 1 || c.AdminPort > 65535 {
		return fmt.Errorf("CHAT_ADMIN_PORT must be 1-65535, got %d", c.AdminPort)
	}

	if c.BufferSize < 64 {
		return fmt.Errorf("CHAT_BUFFER_SIZE must be >= 64, got %d", c.BufferSize)
	}
	if c.MaxNameLen < 2 || c.MaxNameLen > c.BufferSize {
		return fmt.Errorf("CHAT_MAX_NAME_LEN must be 2-%d, got %d", c.BufferSize, c.MaxNameLen)
	}
	if c.MuteListCap < 1 {
		return fmt.Errorf("CHAT_MUTE_CAP must be > 0, got %d", c.MuteListCap)
	}
	if c.HistorySize < 1 {
		return fmt.Errorf("CHAT_HISTORY_SIZE must be > 0, got %d", c.HistorySize)
	}
	if c.RoomBuckets < 1 {
		return fmt.Errorf("CHAT_ROOM_BUCKETS must be > 0, got %d", c.RoomBuckets)
	}

	if c.InactivityThreshold <= 0 {
		return fmt.Errorf("CHAT_INACTIVITY_THRESHOLD must be > 0, got %s", c.InactivityThreshold)
	}
	if c.PingTimeout <= 0 {
		return fmt.Errorf("CHAT_PING_TIMEOUT must be > 0, got %s", c.PingTimeout)
	}
	if c.SweepInterval <= 0 {
		return fmt.Errorf("CHAT_SWEEP_INTERVAL must be > 0, got %s", c.SweepInterval)
	}

	if c.Workers < 1 {
		return fmt.Errorf("CHAT_WORKERS must be > 0, got %d", c.Workers)
	}
	if c.WorkerQueueSize < 1 {
		return fmt.Errorf("CHAT_WORKER_QUEUE must be > 0, got %d", c.WorkerQueueSize)
	}
	if c.EventBufferSize < 1 {
		return fmt.Errorf("CHAT_EVENT_BUFFER must be > 0, got %d", c.EventBufferSize)
	}

	validLogLevels := map[string]bool{"debug": true, "info": true, "warn": true, "error": true}
	if !validLogLevels[c.LogLevel] {
		return fmt.Errorf("LOG_LEVEL must be one of: debug, info, warn, error (got: %s)", c.LogLevel)
	}

	validLogFormats := map[string]bool{"json": true, "pretty": true}
	if !validLogFormats[c.LogFormat] {
		return fmt.Errorf("LOG_FORMAT must be one of: json, pretty (got: %s)", c.LogFormat)
	}

	return nil
}

// LogConfig logs the effective configuration at startup.
func (c *Config) LogConfig(logger zerolog.Logger) {
	logger.Info().
		Str("environment", c.Environment).
		Str("addr", c.Addr).
		Int("admin_port", c.AdminPort).
		Str("ops_addr", c.OpsAddr).
		Int("buffer_size", c.BufferSize).
		Int("max_name_len", c.MaxNameLen).
		Int("mute_list_cap", c.MuteListCap).
		Int("history_size", c.HistorySize).
		Int("room_buckets", c.RoomBuckets).
		Dur("inactivity_threshold", c.InactivityThreshold).
		Dur("ping_timeout", c.PingTimeout).
		Dur("sweep_interval", c.SweepInterval).
		Int("workers", c.Workers).
		Int("worker_queue", c.WorkerQueueSize).
		Str("nats_url", c.NatsURL).
		Dur("metrics_interval", c.MetricsInterval).
		Str("log_level", c.LogLevel).
		Str("log_format", c.LogFormat).
		Msg("Server configuration loaded")
}
