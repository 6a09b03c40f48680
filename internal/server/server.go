// Package server owns the HTTP listener lifecycle: bind, serve, graceful shutdown.
package server

import (
	"context"
	"errors"
	"fmt"
	"net"
	"net/http"
	"sync"
	"time"

	"go.uber.org/zap"

	"github.com/janisto/greeting-service/internal/config"
	applog "github.com/janisto/greeting-service/internal/platform/logging"
)

const (
	readTimeout       = 5 * time.Second
	readHeaderTimeout = 2 * time.Second
	writeTimeout      = 10 * time.Second
	idleTimeout       = 60 * time.Second
	maxHeaderBytes    = 64 << 10 // 64 KB
)

// State is the lifecycle state of a Server.
type State int

const (
	// StateStopped means no listener is bound.
	StateStopped State = iota
	// StateRunning means the listener is bound and accepting connections.
	StateRunning
)

func (s State) String() string {
	switch s {
	case StateStopped:
		return "stopped"
	case StateRunning:
		return "running"
	default:
		return fmt.Sprintf("State(%d)", int(s))
	}
}

var (
	// ErrAlreadyRunning is returned by Listen when the server is already bound.
	ErrAlreadyRunning = errors.New("server already running")
	// ErrNotListening is returned by Serve when Listen has not succeeded.
	ErrNotListening = errors.New("server not listening")
)

// Server wraps an http.Server with an explicit bind step so that bind failures
// surface synchronously instead of from a background goroutine.
type Server struct {
	cfg        config.Config
	httpServer *http.Server

	mu       sync.Mutex
	listener net.Listener
	state    State
	closed   bool
}

// New creates a stopped Server that will serve handler on cfg.Addr().
// A Server is single-use: after Shutdown, Listen returns http.ErrServerClosed.
func New(cfg config.Config, handler http.Handler) *Server {
	return &Server{
		cfg: cfg,
		httpServer: &http.Server{
			Addr:              cfg.Addr(),
			Handler:           handler,
			ReadTimeout:       readTimeout,
			ReadHeaderTimeout: readHeaderTimeout,
			WriteTimeout:      writeTimeout,
			IdleTimeout:       idleTimeout,
			MaxHeaderBytes:    maxHeaderBytes,
		},
	}
}

// State reports the current lifecycle state.
func (s *Server) State() State {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.state
}

// Addr returns the bound address, or the configured one before Listen.
func (s *Server) Addr() string {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.listener != nil {
		return s.listener.Addr().String()
	}
	return s.httpServer.Addr
}

// Listen binds the TCP listener and moves the server to StateRunning.
func (s *Server) Listen() error {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.closed {
		return http.ErrServerClosed
	}
	if s.state == StateRunning {
		return ErrAlreadyRunning
	}
	ln, err := net.Listen("tcp", s.httpServer.Addr)
	if err != nil {
		return fmt.Errorf("bind %s: %w", s.httpServer.Addr, err)
	}
	s.listener = ln
	s.state = StateRunning
	return nil
}

// Serve blocks accepting connections on the bound listener. It returns nil
// once Shutdown has been called.
func (s *Server) Serve() error {
	s.mu.Lock()
	ln, closed := s.listener, s.closed
	s.mu.Unlock()
	if closed {
		return nil
	}
	if ln == nil {
		return ErrNotListening
	}
	return s.serve(ln)
}

// serve runs the accept loop on ln. A shutdown that lands before the loop
// starts makes http.Server.Serve return ErrServerClosed, which counts as success.
func (s *Server) serve(ln net.Listener) error {
	if err := s.httpServer.Serve(ln); err != nil && !errors.Is(err, http.ErrServerClosed) {
		s.markStopped()
		return fmt.Errorf("serve: %w", err)
	}
	return nil
}

// Shutdown stops accepting connections, waits for in-flight requests until ctx
// is done, and releases the listener.
func (s *Server) Shutdown(ctx context.Context) error {
	s.mu.Lock()
	s.closed = true
	s.mu.Unlock()
	defer s.markStopped()
	s.httpServer.SetKeepAlivesEnabled(false)
	if err := s.httpServer.Shutdown(ctx); err != nil {
		return fmt.Errorf("shutdown: %w", err)
	}
	return nil
}

// markStopped releases the listener. http.Server closes it on its own once
// Serve has started, so a second close is expected to fail and is ignored.
func (s *Server) markStopped() {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.listener != nil {
		_ = s.listener.Close()
	}
	s.listener = nil
	s.state = StateStopped
}

// Run binds, serves until ctx is cancelled, then shuts down within the
// configured timeout. A bind failure is returned without serving.
func (s *Server) Run(ctx context.Context) error {
	if err := s.Listen(); err != nil {
		return err
	}
	s.mu.Lock()
	ln := s.listener
	s.mu.Unlock()
	applog.LogInfo(ctx, "server listening", zap.String("addr", ln.Addr().String()))

	serveErr := make(chan error, 1)
	go func() {
		serveErr <- s.serve(ln)
	}()

	select {
	case err := <-serveErr:
		return err
	case <-ctx.Done():
		applog.LogInfo(ctx, "shutdown signal received")
	}

	shutdownCtx, cancel := context.WithTimeout(context.WithoutCancel(ctx), s.cfg.ShutdownTimeout)
	defer cancel()
	if err := s.Shutdown(shutdownCtx); err != nil {
		return err
	}
	if err := <-serveErr; err != nil {
		return err
	}
	applog.LogInfo(ctx, "server exited")
	return nil
}
