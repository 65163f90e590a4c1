// Package sidecar runs the encoder sidecar binary on behalf of the encode
// service.
package sidecar

import (
	"bytes"
	"context"
	"errors"
	"fmt"
	"log/slog"
	"os/exec"
	"strings"
	"time"

	"github.com/kula-app/base64-sidecar/internal/encoding"
)

// waitDelay bounds how long output pipes are drained after the process is killed.
const waitDelay = 500 * time.Millisecond

// Encoder turns a payload into its Base64 text.
type Encoder interface {
	Encode(ctx context.Context, data string) (string, error)
}

// ExecError is returned when the sidecar process exits with a non-zero status.
type ExecError struct {
	Path     string
	ExitCode int
	Stderr   string
}

func (e *ExecError) Error() string {
	msg := fmt.Sprintf("sidecar %s exited with status %d", e.Path, e.ExitCode)
	if e.Stderr != "" {
		msg += ": " + e.Stderr
	}
	return msg
}

// ExecEncoder encodes by invoking the sidecar binary once per call.
type ExecEncoder struct {
	path    string
	timeout time.Duration
	logger  *slog.Logger
}

// NewExecEncoder creates an encoder for the binary at path. A timeout of
// zero means calls are bounded only by the caller's context.
func NewExecEncoder(path string, timeout time.Duration, logger *slog.Logger) *ExecEncoder {
	return &ExecEncoder{
		path:    path,
		timeout: timeout,
		logger:  logger,
	}
}

// Encode runs `<path> <data>` and returns its stdout without the trailing newline.
func (e *ExecEncoder) Encode(ctx context.Context, data string) (string, error) {
	if e.timeout > 0 {
		var cancel context.CancelFunc
		ctx, cancel = context.WithTimeout(ctx, e.timeout)
		defer cancel()
	}

	var stdout, stderr bytes.Buffer
	cmd := exec.CommandContext(ctx, e.path, data)
	cmd.Stdout = &stdout
	cmd.Stderr = &stderr
	cmd.WaitDelay = waitDelay

	startTime := time.Now()
	err := cmd.Run()
	duration := time.Since(startTime)

	if err != nil {
		if ctxErr := ctx.Err(); ctxErr != nil {
			return "", fmt.Errorf("sidecar %s: %w", e.path, ctxErr)
		}
		var exitErr *exec.ExitError
		if errors.As(err, &exitErr) {
			return "", &ExecError{
				Path:     e.path,
				ExitCode: exitErr.ExitCode(),
				Stderr:   strings.TrimSpace(stderr.String()),
			}
		}
		return "", fmt.Errorf("failed to run sidecar %s: %w", e.path, err)
	}

	e.logger.Debug("sidecar finished",
		"path", e.path,
		"input_bytes", len(data),
		"duration", duration)

	return strings.TrimSuffix(stdout.String(), "\n"), nil
}

// InlineEncoder encodes in-process without a sidecar.
type InlineEncoder struct{}

// Encode returns the standard Base64 encoding of data.
func (InlineEncoder) Encode(_ context.Context, data string) (string, error) {
	return encoding.EncodeString(data), nil
}

// New returns an ExecEncoder for path, or an InlineEncoder when path is empty.
func New(path string, timeout time.Duration, logger *slog.Logger) Encoder {
	if path == "" {
		return InlineEncoder{}
	}
	return NewExecEncoder(path, timeout, logger)
}
