package config

import (
	"strings"
	"testing"
	"time"
)

func TestDefaultConfig(t *testing.T) {
	cfg := DefaultConfig()

	if cfg == nil {
		t.Fatal("DefaultConfig() returned nil")
	}

	// Check listen address
	if cfg.ListenAddr != ":8080" {
		t.Errorf("ListenAddr = %v, want :8080", cfg.ListenAddr)
	}

	// Check sidecar path
	if cfg.SidecarPath != "/shared-bin/sidecar" {
		t.Errorf("SidecarPath = %v, want /shared-bin/sidecar", cfg.SidecarPath)
	}

	// Check timeouts
	if cfg.ExecTimeout != 10*time.Second {
		t.Errorf("ExecTimeout = %v, want %v", cfg.ExecTimeout, 10*time.Second)
	}
	if cfg.ShutdownTimeout != 5*time.Second {
		t.Errorf("ShutdownTimeout = %v, want %v", cfg.ShutdownTimeout, 5*time.Second)
	}

	// Check body limit
	if cfg.MaxBodyBytes != 1<<20 {
		t.Errorf("MaxBodyBytes = %v, want %v", cfg.MaxBodyBytes, 1<<20)
	}

	// Check logging
	if cfg.LogLevel != "info" {
		t.Errorf("LogLevel = %v, want info", cfg.LogLevel)
	}
	if cfg.LogFormat != LogFormatText {
		t.Errorf("LogFormat = %v, want %v", cfg.LogFormat, LogFormatText)
	}

	if err := cfg.Validate(); err != nil {
		t.Errorf("Validate() = %v, want nil", err)
	}
}

func TestFromEnv(t *testing.T) {
	env := map[string]string{
		EnvListenAddr:      "127.0.0.1:9090",
		EnvSidecarPath:     "/usr/local/bin/sidecar",
		EnvExecTimeout:     "2s",
		EnvShutdownTimeout: "1m",
		EnvMaxBodyBytes:    "4096",
		EnvLogLevel:        "debug",
		EnvLogFormat:       "json",
	}

	cfg, err := FromEnv(func(key string) string { return env[key] })
	if err != nil {
		t.Fatalf("FromEnv() error = %v", err)
	}

	if cfg.ListenAddr != "127.0.0.1:9090" {
		t.Errorf("ListenAddr = %v, want 127.0.0.1:9090", cfg.ListenAddr)
	}
	if cfg.SidecarPath != "/usr/local/bin/sidecar" {
		t.Errorf("SidecarPath = %v, want /usr/local/bin/sidecar", cfg.SidecarPath)
	}
	if cfg.ExecTimeout != 2*time.Second {
		t.Errorf("ExecTimeout = %v, want 2s", cfg.ExecTimeout)
	}
	if cfg.ShutdownTimeout != time.Minute {
		t.Errorf("ShutdownTimeout = %v, want 1m", cfg.ShutdownTimeout)
	}
	if cfg.MaxBodyBytes != 4096 {
		t.Errorf("MaxBodyBytes = %v, want 4096", cfg.MaxBodyBytes)
	}
	if cfg.LogLevel != "debug" {
		t.Errorf("LogLevel = %v, want debug", cfg.LogLevel)
	}
	if cfg.LogFormat != LogFormatJSON {
		t.Errorf("LogFormat = %v, want json", cfg.LogFormat)
	}
}

func TestFromEnv_Empty(t *testing.T) {
	cfg, err := FromEnv(func(string) string { return "" })
	if err != nil {
		t.Fatalf("FromEnv() error = %v", err)
	}

	want := DefaultConfig()
	if *cfg != *want {
		t.Errorf("FromEnv() = %+v, want %+v", cfg, want)
	}
}

func TestFromEnv_DisableSidecar(t *testing.T) {
	cfg, err := FromEnv(func(key string) string {
		if key == EnvSidecarPath {
			return "-"
		}
		return ""
	})
	if err != nil {
		t.Fatalf("FromEnv() error = %v", err)
	}
	if cfg.SidecarPath != "" {
		t.Errorf("SidecarPath = %q, want empty", cfg.SidecarPath)
	}
}

func TestFromEnv_Invalid(t *testing.T) {
	tests := []struct {
		name  string
		key   string
		value string
	}{
		{name: "exec timeout", key: EnvExecTimeout, value: "soon"},
		{name: "shutdown timeout", key: EnvShutdownTimeout, value: "10"},
		{name: "max body bytes", key: EnvMaxBodyBytes, value: "1MiB"},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			_, err := FromEnv(func(key string) string {
				if key == tt.key {
					return tt.value
				}
				return ""
			})
			if err == nil {
				t.Fatalf("FromEnv() error = nil, want error for %s=%q", tt.key, tt.value)
			}
			if !strings.Contains(err.Error(), tt.key) {
				t.Errorf("error %q does not name %s", err, tt.key)
			}
		})
	}
}

func TestValidate(t *testing.T) {
	tests := []struct {
		name    string
		mutate  func(*Config)
		wantErr bool
	}{
		{name: "defaults", mutate: func(*Config) {}, wantErr: false},
		{name: "in-process encoding", mutate: func(c *Config) { c.SidecarPath = "" }, wantErr: false},
		{name: "empty listen address", mutate: func(c *Config) { c.ListenAddr = "" }, wantErr: true},
		{name: "zero exec timeout", mutate: func(c *Config) { c.ExecTimeout = 0 }, wantErr: true},
		{name: "negative shutdown timeout", mutate: func(c *Config) { c.ShutdownTimeout = -time.Second }, wantErr: true},
		{name: "zero body limit", mutate: func(c *Config) { c.MaxBodyBytes = 0 }, wantErr: true},
		{name: "unknown log format", mutate: func(c *Config) { c.LogFormat = "xml" }, wantErr: true},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			cfg := DefaultConfig()
			tt.mutate(cfg)
			err := cfg.Validate()
			if (err != nil) != tt.wantErr {
				t.Errorf("Validate() error = %v, wantErr %v", err, tt.wantErr)
			}
		})
	}
}
