package main

import (
	"context"
	"errors"
	"fmt"
	"io"

	"github.com/kula-app/base64-sidecar/internal/config"
	"github.com/kula-app/base64-sidecar/internal/encoding"
	"github.com/kula-app/base64-sidecar/internal/logging"
)

// ErrNoArgument is returned when the payload argument is missing.
var ErrNoArgument = errors.New("no argument given")

// The run function is like the main function, except that it takes in operating system fundamentals as arguments, and returns an error.
//
// args[1] is the payload. It is never parsed as a flag, and any further arguments are ignored.
// On success exactly one line, the encoded payload, is written to stdout. Logs go to stderr.
func run(_ context.Context, args []string, getenv func(key string) string, stdout, stderr io.Writer) error {
	if len(args) < 2 {
		return ErrNoArgument
	}
	payload := args[1]

	// Diagnostics go to stderr only, and default to warn so a successful run stays silent there.
	level := getenv(config.EnvLogLevel)
	if level == "" {
		level = "warn"
	}
	logger := logging.New(stderr, level, getenv(config.EnvLogFormat))

	encoded := encoding.EncodeString(payload)
	logger.Debug("payload encoded",
		"input_bytes", len(payload),
		"output_chars", len(encoded),
		"ignored_args", len(args)-2)

	if _, err := fmt.Fprintln(stdout, encoded); err != nil {
		return fmt.Errorf("failed to write output: %w", err)
	}
	return nil
}
