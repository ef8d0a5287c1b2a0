// Package server runs the courses HTTP handler on a TCP listener with a
// start/stop lifecycle.
package server

import (
	"context"
	"errors"
	"fmt"
	"net"
	"net/http"
	"strconv"
	"sync"
	"sync/atomic"
	"time"

	"github.com/charmbracelet/log"
)

// Defaults applied by New to zero Config fields.
const (
	DefaultHost            = "0.0.0.0"
	DefaultPort            = 8000
	DefaultShutdownTimeout = 10 * time.Second
)

// ErrInvalidConfig is wrapped by every Config validation error.
var ErrInvalidConfig = errors.New("invalid server config")

// Config holds the listener settings.
type Config struct {
	Host string
	// Port 0 picks a free port; Address reports the one chosen.
	Port            int
	ShutdownTimeout time.Duration
	ReadTimeout     time.Duration
	WriteTimeout    time.Duration
	IdleTimeout     time.Duration
}

// Validate checks the port range.
func (c Config) Validate() error {
	if c.Port < 0 || c.Port > 65535 {
		return fmt.Errorf("%w: port %d out of range", ErrInvalidConfig, c.Port)
	}
	return nil
}

// Server serves one http.Handler. A Server is single-use: once stopped or
// failed, create a new one.
type Server struct {
	cfg     Config
	handler http.Handler
	logger  *log.Logger

	state     atomic.Int32
	mu        sync.Mutex
	lastErr   error
	httpSrv   *http.Server
	listener  net.Listener
	addr      string
	wg        sync.WaitGroup
	startOnce sync.Once
	startedCh chan struct{}
	errCh     chan error
}

// New returns a server in the Created state.
func New(cfg Config, handler http.Handler, logger *log.Logger) (*Server, error) {
	if err := cfg.Validate(); err != nil {
		return nil, err
	}
	if cfg.Host == "" {
		cfg.Host = DefaultHost
	}
	if cfg.ShutdownTimeout == 0 {
		cfg.ShutdownTimeout = DefaultShutdownTimeout
	}
	if cfg.ReadTimeout == 0 {
		cfg.ReadTimeout = 30 * time.Second
	}
	if cfg.WriteTimeout == 0 {
		cfg.WriteTimeout = 30 * time.Second
	}
	if cfg.IdleTimeout == 0 {
		cfg.IdleTimeout = 60 * time.Second
	}
	if logger == nil {
		logger = log.Default()
	}

	s := &Server{
		cfg:       cfg,
		handler:   handler,
		logger:    logger,
		startedCh: make(chan struct{}),
		errCh:     make(chan error, 1),
	}
	s.state.Store(int32(StateCreated))
	return s, nil
}

// Start binds the listener and begins serving. It returns once the server
// accepts connections, or with an error when the bind fails or ctx is
// already done.
//
// After Start returns nil, use Err to watch for serve failures.
func (s *Server) Start(ctx context.Context) error {
	if err := ctx.Err(); err != nil {
		s.fail(fmt.Errorf("context cancelled before start: %w", err))
		return s.LastError()
	}
	s.mu.Lock()
	if !s.state.CompareAndSwap(int32(StateCreated), int32(StateStarting)) {
		s.mu.Unlock()
		return fmt.Errorf("cannot start server in state %s", s.State())
	}
	s.mu.Unlock()

	addr := net.JoinHostPort(s.cfg.Host, strconv.Itoa(s.cfg.Port))
	var lc net.ListenConfig
	listener, err := lc.Listen(ctx, "tcp", addr)
	if err != nil {
		s.fail(fmt.Errorf("listening on %s: %w", addr, err))
		return s.LastError()
	}

	s.mu.Lock()
	if st := s.State(); st != StateStarting {
		s.mu.Unlock()
		_ = listener.Close()
		return fmt.Errorf("server stopped during start (state %s)", st)
	}
	s.listener = listener
	s.addr = listener.Addr().String()
	s.httpSrv = &http.Server{
		Handler:      s.handler,
		ReadTimeout:  s.cfg.ReadTimeout,
		WriteTimeout: s.cfg.WriteTimeout,
		IdleTimeout:  s.cfg.IdleTimeout,
		BaseContext:  func(net.Listener) context.Context { return context.WithoutCancel(ctx) },
	}
	srv := s.httpSrv
	s.wg.Add(1)
	s.mu.Unlock()

	go s.serve(srv, listener)

	<-s.startedCh
	if st := s.State(); st != StateRunning {
		if err := s.LastError(); err != nil {
			return err
		}
		return fmt.Errorf("server stopped during start (state %s)", st)
	}
	s.logger.Info("HTTP server started", "address", s.addr)
	return nil
}

func (s *Server) serve(srv *http.Server, listener net.Listener) {
	defer s.wg.Done()

	s.state.CompareAndSwap(int32(StateStarting), int32(StateRunning))
	s.startOnce.Do(func() { close(s.startedCh) })

	err := srv.Serve(listener)
	if err == nil || errors.Is(err, http.ErrServerClosed) || errors.Is(err, net.ErrClosed) {
		return
	}
	s.fail(fmt.Errorf("serve: %w", err))
}

// Stop shuts the server down gracefully within the shutdown timeout.
// Safe to call more than once.
func (s *Server) Stop() error {
	// The transition and the read of httpSrv happen under mu so that a
	// concurrent Start either publishes its server first or sees Stopping
	// and abandons its listener.
	s.mu.Lock()
	switch s.State() {
	case StateCreated:
		s.state.Store(int32(StateStopped))
		s.mu.Unlock()
		return nil
	case StateStarting, StateRunning:
		s.state.Store(int32(StateStopping))
	default:
		s.mu.Unlock()
		s.wg.Wait()
		return nil
	}
	srv := s.httpSrv
	s.mu.Unlock()

	ctx, cancel := context.WithTimeout(context.Background(), s.cfg.ShutdownTimeout)
	defer cancel()

	var err error
	if srv != nil {
		if err = srv.Shutdown(ctx); err != nil {
			s.logger.Error("Shutdown error", "err", err)
			_ = srv.Close()
		}
	}
	s.wg.Wait()
	s.state.Store(int32(StateStopped))
	s.logger.Info("HTTP server stopped")
	return err
}

func (s *Server) fail(err error) {
	s.mu.Lock()
	s.lastErr = err
	s.mu.Unlock()
	s.state.Store(int32(StateFailed))

	select {
	case s.errCh <- err:
	default:
	}
}

// State returns the current lifecycle state.
func (s *Server) State() State {
	return State(s.state.Load())
}

// IsRunning reports whether the server accepts connections.
func (s *Server) IsRunning() bool {
	return s.State() == StateRunning
}

// Err delivers the error that moved the server to Failed.
func (s *Server) Err() <-chan error {
	return s.errCh
}

// LastError returns the error that caused the Failed state, or nil.
func (s *Server) LastError() error {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.lastErr
}

// Address returns the bound host:port, or "" before Start succeeds.
func (s *Server) Address() string {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.addr
}

// Port returns the bound TCP port, or 0 before Start succeeds.
func (s *Server) Port() int {
	_, port, err := net.SplitHostPort(s.Address())
	if err != nil {
		return 0
	}
	n, _ := strconv.Atoi(port)
	return n
}
