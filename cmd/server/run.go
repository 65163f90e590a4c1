package main

import (
	"context"
	"errors"
	"fmt"
	"io"
	"io/fs"
	"os"
	"os/signal"
	"syscall"

	"github.com/joho/godotenv"
	"github.com/spf13/cobra"

	"github.com/kula-app/base64-sidecar/internal/config"
	"github.com/kula-app/base64-sidecar/internal/logging"
	"github.com/kula-app/base64-sidecar/internal/server"
	"github.com/kula-app/base64-sidecar/internal/sidecar"
)

// The run function is like the main function, except that it takes in operating system fundamentals as arguments, and returns an error.
//
// If the run function finishes without an error, it means the service stopped gracefully.
// If the run function returns an error, it means the service failed to start or to shut down.
func run(ctx context.Context, args []string, getenv func(key string) string, stdout io.Writer) error {
	cmd := newRootCommand(getenv)
	cmd.SetArgs(args[1:])
	cmd.SetOut(stdout)
	cmd.SetErr(stdout)
	return cmd.ExecuteContext(ctx)
}

func newRootCommand(getenv func(key string) string) *cobra.Command {
	var (
		envFile     string
		addr        string
		sidecarPath string
		logLevel    string
		logFormat   string
	)

	cmd := &cobra.Command{
		Use:           "server",
		Short:         "HTTP encode service backed by the Base64 sidecar",
		Long:          "Serves POST /encode, running the sidecar binary once per request to Base64-encode the request data.",
		Args:          cobra.NoArgs,
		SilenceUsage:  true,
		SilenceErrors: true,
		RunE: func(cmd *cobra.Command, _ []string) error {
			lookup, err := withEnvFile(envFile, getenv)
			if err != nil {
				return err
			}

			cfg, err := config.FromEnv(lookup)
			if err != nil {
				return fmt.Errorf("failed to load configuration: %w", err)
			}

			// Flags take precedence over the environment
			flags := cmd.Flags()
			if flags.Changed("addr") {
				cfg.ListenAddr = addr
			}
			if flags.Changed("sidecar-path") {
				cfg.SidecarPath = sidecarPath
			}
			if flags.Changed("log-level") {
				cfg.LogLevel = logLevel
			}
			if flags.Changed("log-format") {
				cfg.LogFormat = logFormat
			}
			if err := cfg.Validate(); err != nil {
				return fmt.Errorf("invalid configuration: %w", err)
			}

			return serve(cmd.Context(), cfg)
		},
	}

	flags := cmd.Flags()
	flags.StringVar(&envFile, "env-file", ".env", "Optional dotenv file with B64_* variables")
	flags.StringVar(&addr, "addr", "", "Listen address (overrides "+config.EnvListenAddr+")")
	flags.StringVar(&sidecarPath, "sidecar-path", "", "Sidecar binary, empty encodes in-process (overrides "+config.EnvSidecarPath+")")
	flags.StringVar(&logLevel, "log-level", "", "Log level: debug, info, warn, error (overrides "+config.EnvLogLevel+")")
	flags.StringVar(&logFormat, "log-format", "", "Log format: text, json (overrides "+config.EnvLogFormat+")")

	return cmd
}

func serve(ctx context.Context, cfg *config.Config) error {
	// Derive a context that is canceled on OS interrupt/termination so in-flight
	// requests can finish before the process exits.
	ctx, cancel := signal.NotifyContext(ctx, os.Interrupt, syscall.SIGTERM)
	defer cancel()

	logger := logging.New(os.Stderr, cfg.LogLevel, cfg.LogFormat)

	logger.Info("encode service configuration loaded",
		"listen_addr", cfg.ListenAddr,
		"sidecar_path", cfg.SidecarPath,
		"exec_timeout", cfg.ExecTimeout,
		"shutdown_timeout", cfg.ShutdownTimeout,
		"max_body_bytes", cfg.MaxBodyBytes)

	if cfg.SidecarPath == "" {
		logger.Warn("no sidecar configured, encoding in-process")
	} else if _, err := os.Stat(cfg.SidecarPath); err != nil {
		// The shared volume may be populated after startup, so this is not fatal
		logger.Warn("sidecar binary not found yet", "path", cfg.SidecarPath, "error", err)
	}

	encoder := sidecar.New(cfg.SidecarPath, cfg.ExecTimeout, logger)
	srv := server.New(encoder, logger, cfg)

	if err := srv.Run(ctx); err != nil {
		return fmt.Errorf("encode service failed: %w", err)
	}
	return nil
}

// withEnvFile returns a lookup that prefers getenv and falls back to the
// values of the dotenv file at path. A missing file is not an error.
func withEnvFile(path string, getenv func(key string) string) (func(key string) string, error) {
	if path == "" {
		return getenv, nil
	}

	values, err := godotenv.Read(path)
	if errors.Is(err, fs.ErrNotExist) {
		return getenv, nil
	}
	if err != nil {
		return nil, fmt.Errorf("failed to read env file %s: %w", path, err)
	}

	return func(key string) string {
		if v := getenv(key); v != "" {
			return v
		}
		return values[key]
	}, nil
}
