package config

import (
	"errors"
	"fmt"
	"strconv"
	"time"
)

// Environment variables read by FromEnv
const (
	// EnvListenAddr is the address the encode service listens on
	EnvListenAddr = "B64_LISTEN_ADDR"

	// EnvSidecarPath is the path of the sidecar binary (empty encodes in-process)
	EnvSidecarPath = "B64_SIDECAR_PATH"

	// EnvExecTimeout bounds a single sidecar invocation (e.g., "10s")
	EnvExecTimeout = "B64_EXEC_TIMEOUT"

	// EnvShutdownTimeout bounds the graceful shutdown of the encode service
	EnvShutdownTimeout = "B64_SHUTDOWN_TIMEOUT"

	// EnvMaxBodyBytes caps the size of an encode request body
	EnvMaxBodyBytes = "B64_MAX_BODY_BYTES"

	// EnvLogLevel is one of debug, info, warn, error
	EnvLogLevel = "B64_LOG_LEVEL"

	// EnvLogFormat is one of text, json
	EnvLogFormat = "B64_LOG_FORMAT"
)

// Log formats
const (
	LogFormatText = "text"
	LogFormatJSON = "json"
)

// Config represents the configuration shared by the sidecar and the encode service
type Config struct {
	// ListenAddr is the TCP address of the encode service
	ListenAddr string `json:"listenAddr" validate:"required"`

	// SidecarPath is the sidecar binary invoked per request (empty means in-process encoding)
	SidecarPath string `json:"sidecarPath"`

	// ExecTimeout is the maximum runtime of one sidecar invocation
	ExecTimeout time.Duration `json:"execTimeout" validate:"required"`

	// ShutdownTimeout is how long in-flight requests may take after a stop signal
	ShutdownTimeout time.Duration `json:"shutdownTimeout" validate:"required"`

	// MaxBodyBytes is the largest accepted encode request body
	MaxBodyBytes int64 `json:"maxBodyBytes" validate:"required,min=1"`

	// LogLevel is the minimum level that is logged
	LogLevel string `json:"logLevel"`

	// LogFormat selects the log handler (text or json)
	LogFormat string `json:"logFormat" validate:"oneof=text json"`
}

// DefaultConfig returns a default configuration
func DefaultConfig() *Config {
	return &Config{
		ListenAddr:      ":8080",
		SidecarPath:     "/shared-bin/sidecar",
		ExecTimeout:     10 * time.Second,
		ShutdownTimeout: 5 * time.Second,
		MaxBodyBytes:    1 << 20,
		LogLevel:        "info",
		LogFormat:       LogFormatText,
	}
}

// FromEnv returns the default configuration overlaid with the environment
// variables that are set. getenv is usually os.Getenv.
func FromEnv(getenv func(key string) string) (*Config, error) {
	cfg := DefaultConfig()

	if v := getenv(EnvListenAddr); v != "" {
		cfg.ListenAddr = v
	}
	// The sidecar path may be cleared explicitly with "-" to force in-process encoding
	if v := getenv(EnvSidecarPath); v != "" {
		if v == "-" {
			v = ""
		}
		cfg.SidecarPath = v
	}
	if v := getenv(EnvExecTimeout); v != "" {
		d, err := time.ParseDuration(v)
		if err != nil {
			return nil, fmt.Errorf("invalid %s: %w", EnvExecTimeout, err)
		}
		cfg.ExecTimeout = d
	}
	if v := getenv(EnvShutdownTimeout); v != "" {
		d, err := time.ParseDuration(v)
		if err != nil {
			return nil, fmt.Errorf("invalid %s: %w", EnvShutdownTimeout, err)
		}
		cfg.ShutdownTimeout = d
	}
	if v := getenv(EnvMaxBodyBytes); v != "" {
		n, err := strconv.ParseInt(v, 10, 64)
		if err != nil {
			return nil, fmt.Errorf("invalid %s: %w", EnvMaxBodyBytes, err)
		}
		cfg.MaxBodyBytes = n
	}
	if v := getenv(EnvLogLevel); v != "" {
		cfg.LogLevel = v
	}
	if v := getenv(EnvLogFormat); v != "" {
		cfg.LogFormat = v
	}

	return cfg, nil
}

// Validate reports the first invalid field
func (c *Config) Validate() error {
	switch {
	case c.ListenAddr == "":
		return errors.New("listen address must not be empty")
	case c.ExecTimeout <= 0:
		return fmt.Errorf("exec timeout must be positive, got %s", c.ExecTimeout)
	case c.ShutdownTimeout <= 0:
		return fmt.Errorf("shutdown timeout must be positive, got %s", c.ShutdownTimeout)
	case c.MaxBodyBytes <= 0:
		return fmt.Errorf("max body bytes must be positive, got %d", c.MaxBodyBytes)
	case c.LogFormat != LogFormatText && c.LogFormat != LogFormatJSON:
		return fmt.Errorf("unknown log format %q", c.LogFormat)
	}
	return nil
}
