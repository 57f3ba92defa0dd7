package server

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"net"
	"net/http"
	"os"
	"sync"
	"time"

	"github.com/stlauncher/stsync/internal/manifest"
	"github.com/stlauncher/stsync/internal/server/accesslog"
)

var (
	ErrAlreadyRunning = errors.New("server already running")
	ErrDataDirMissing = errors.New("data directory does not exist")
)

// Server exposes a data directory read-only over HTTP.
// It is either Stopped or Running; Start and StartBackground move it to Running, Stop back.
type Server struct {
	config    *Config
	handler   http.Handler
	transfers *accesslog.Logger

	mu       sync.Mutex
	server   *http.Server
	listener net.Listener
	serveErr chan error
}

// New validates the configuration and prepares the routes. No socket is bound.
func New(config *Config) (*Server, error) {
	if err := config.Validate(); err != nil {
		return nil, err
	}

	info, err := os.Stat(config.DataDir)
	if err != nil {
		if errors.Is(err, os.ErrNotExist) {
			return nil, fmt.Errorf("%w: %s", ErrDataDirMissing, config.DataDir)
		}
		return nil, fmt.Errorf("data directory: %w", err)
	} else if !info.IsDir() {
		return nil, fmt.Errorf("data directory is not a directory: %s", config.DataDir)
	}

	var transfers *accesslog.Logger
	if config.AccessLogDir != "" {
		if transfers, err = accesslog.New(config.AccessLogDir); err != nil {
			return nil, err
		}
	}

	builder := manifest.NewBuilder(config.DataDir, manifest.WithIgnore(config.Ignore...))
	handler, err := SetupRoutes(config, builder, transfers)
	if err != nil {
		return nil, err
	}

	return &Server{
		config:    config,
		handler:   handler,
		transfers: transfers,
	}, nil
}

// Start serves in the foreground until ctx is done or the listener fails
func (s *Server) Start(ctx context.Context) error {
	if err := s.StartBackground(); err != nil {
		return err
	}

	s.mu.Lock()
	serveErr := s.serveErr
	s.mu.Unlock()

	select {
	case <-ctx.Done():
		slog.Info("sync server shutdown signal")
	case err := <-serveErr:
		if err != nil {
			s.reset()
			return fmt.Errorf("sync server: %w", err)
		}
	}

	if err := s.Stop(context.Background()); err != nil {
		slog.Error("sync server shutdown error", "error", err)
		return err
	}
	return nil
}

// StartBackground binds the listening socket and serves from a goroutine.
// Bind failures are returned to the caller.
func (s *Server) StartBackground() error {
	s.mu.Lock()
	defer s.mu.Unlock()

	if s.server != nil {
		return ErrAlreadyRunning
	}

	listener, err := net.Listen("tcp", s.config.Addr())
	if err != nil {
		return fmt.Errorf("listen %s: %w", s.config.Addr(), err)
	}

	server := &http.Server{
		Handler:           s.handler,
		ReadHeaderTimeout: 10 * time.Second,
	}
	serveErr := make(chan error, 1)

	s.server = server
	s.listener = listener
	s.serveErr = serveErr

	slog.Info("sync server start", "addr", listener.Addr().String(), "config", s.config)

	go func() {
		err := server.Serve(listener)
		if errors.Is(err, http.ErrServerClosed) {
			err = nil
		}
		if err != nil {
			slog.Error("sync server error", "error", err)
		}
		serveErr <- err
		close(serveErr)
	}()

	return nil
}

// Stop closes the listener and waits up to 5s for in-flight requests.
// Stopping a stopped server is a no-op.
func (s *Server) Stop(ctx context.Context) error {
	s.mu.Lock()
	server := s.server
	s.mu.Unlock()

	if server == nil {
		return nil
	}

	shutdownCtx, cancel := context.WithTimeout(ctx, 5*time.Second)
	defer cancel()

	err := server.Shutdown(shutdownCtx)
	s.reset()
	if s.transfers != nil {
		if closeErr := s.transfers.Close(); closeErr != nil {
			slog.Warn("access log close", "error", closeErr)
		}
	}
	slog.Info("sync server stop")

	if err != nil && !errors.Is(err, context.DeadlineExceeded) {
		return err
	}
	return nil
}

func (s *Server) Running() bool {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.server != nil
}

// Addr returns the bound address, or the configured one while stopped
func (s *Server) Addr() string {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.listener != nil {
		return s.listener.Addr().String()
	}
	return s.config.Addr()
}

func (s *Server) Config() *Config {
	return s.config
}

func (s *Server) reset() {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.server = nil
	s.listener = nil
	s.serveErr = nil
}
