// Package server implements the HTTP encode service in front of the sidecar.
package server

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"log/slog"
	"net"
	"net/http"
	"time"

	"github.com/kula-app/base64-sidecar/internal/config"
	"github.com/kula-app/base64-sidecar/internal/sidecar"
)

// Request is the body of POST /encode
type Request struct {
	Data string `json:"data"`
}

// Response is the body of a successful POST /encode
type Response struct {
	Encoded string `json:"encoded"`
}

// Server serves the encode API
type Server struct {
	encoder sidecar.Encoder
	logger  *slog.Logger
	config  *config.Config
}

// New creates a new server
func New(encoder sidecar.Encoder, logger *slog.Logger, cfg *config.Config) *Server {
	return &Server{
		encoder: encoder,
		logger:  logger,
		config:  cfg,
	}
}

// Handler returns the routes of the encode API
func (s *Server) Handler() http.Handler {
	mux := http.NewServeMux()
	mux.HandleFunc("POST /encode", s.handleEncode)
	mux.HandleFunc("GET /healthz", s.handleHealth)
	return s.logRequests(mux)
}

// Run listens on the configured address until ctx is cancelled
func (s *Server) Run(ctx context.Context) error {
	listener, err := net.Listen("tcp", s.config.ListenAddr)
	if err != nil {
		return fmt.Errorf("failed to listen on %s: %w", s.config.ListenAddr, err)
	}
	return s.Serve(ctx, listener)
}

// Serve accepts connections on listener until ctx is cancelled, then shuts
// down gracefully within the configured shutdown timeout.
func (s *Server) Serve(ctx context.Context, listener net.Listener) error {
	// Requests keep ctx values but not its cancellation, so in-flight sidecar
	// runs finish during Shutdown instead of being killed.
	httpServer := &http.Server{
		Handler:           s.Handler(),
		ReadHeaderTimeout: 10 * time.Second,
		BaseContext:       func(net.Listener) context.Context { return context.WithoutCancel(ctx) },
	}

	errCh := make(chan error, 1)
	go func() {
		s.logger.Info("encode service listening", "address", listener.Addr().String())
		errCh <- httpServer.Serve(listener)
	}()

	select {
	case err := <-errCh:
		if errors.Is(err, http.ErrServerClosed) {
			return nil
		}
		return fmt.Errorf("encode service failed: %w", err)
	case <-ctx.Done():
	}

	s.logger.Info("shutting down encode service", "timeout", s.config.ShutdownTimeout)

	// ctx is already cancelled, so the shutdown deadline derives from a fresh context
	shutdownCtx, cancel := context.WithTimeout(context.Background(), s.config.ShutdownTimeout)
	defer cancel()

	if err := httpServer.Shutdown(shutdownCtx); err != nil {
		return fmt.Errorf("failed to shut down encode service: %w", err)
	}
	if err := <-errCh; err != nil && !errors.Is(err, http.ErrServerClosed) {
		return fmt.Errorf("encode service failed: %w", err)
	}

	s.logger.Info("encode service stopped")
	return nil
}

func (s *Server) handleEncode(w http.ResponseWriter, r *http.Request) {
	var req Request

	body := http.MaxBytesReader(w, r.Body, s.config.MaxBodyBytes)
	if err := json.NewDecoder(body).Decode(&req); err != nil {
		s.logger.Debug("rejecting encode request", "error", err)
		http.Error(w, "Invalid request", http.StatusBadRequest)
		return
	}

	encoded, err := s.encoder.Encode(r.Context(), req.Data)
	if err != nil {
		s.logger.Error("sidecar failed", "error", err, "input_bytes", len(req.Data))
		http.Error(w, "Error executing sidecar", http.StatusInternalServerError)
		return
	}

	w.Header().Set("Content-Type", "application/json")
	if err := json.NewEncoder(w).Encode(Response{Encoded: encoded}); err != nil {
		s.logger.Warn("failed to write encode response", "error", err)
	}
}

func (s *Server) handleHealth(w http.ResponseWriter, _ *http.Request) {
	w.WriteHeader(http.StatusOK)
	fmt.Fprintln(w, "OK")
}

type statusRecorder struct {
	http.ResponseWriter
	status int
}

func (r *statusRecorder) WriteHeader(status int) {
	r.status = status
	r.ResponseWriter.WriteHeader(status)
}

func (r *statusRecorder) Unwrap() http.ResponseWriter {
	return r.ResponseWriter
}

func (s *Server) logRequests(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		rec := &statusRecorder{ResponseWriter: w, status: http.StatusOK}
		startTime := time.Now()

		next.ServeHTTP(rec, r)

		s.logger.Debug("request handled",
			"method", r.Method,
			"path", r.URL.Path,
			"status", rec.status,
			"duration", time.Since(startTime))
	})
}
