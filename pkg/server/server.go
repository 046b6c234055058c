package server

import (
	"context"
	"crypto/tls"
	"errors"
	"fmt"
	"log"
	"log/slog"
	"net"
	"net/http"
	"sync"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"golang.org/x/sync/errgroup"

	"github.com/mchmarny/menulogic/pkg/logger"
	"github.com/mchmarny/menulogic/pkg/metric"
)

const (
	// DefaultPort is the default HTTP server port.
	DefaultPort = 9876

	// DefaultReadTimeout is the maximum duration for reading the entire request,
	// including the body.
	DefaultReadTimeout = 10 * time.Second

	// DefaultWriteTimeout is the maximum duration before timing out writes of the response.
	DefaultWriteTimeout = 10 * time.Second

	// DefaultIdleTimeout is the maximum amount of time to wait for the next request
	// when keep-alives are enabled.
	DefaultIdleTimeout = 60 * time.Second

	// DefaultShutdownTimeout is the grace period for in-flight menu requests
	// during shutdown.
	DefaultShutdownTimeout = 5 * time.Second

	// DefaultMaxHeaderBytes limits request header size.
	DefaultMaxHeaderBytes = 1 << 20 // 1 MB

	// MetricsPath is where WithMetrics mounts the Prometheus handler.
	MetricsPath = "/metrics"

	// ReadinessPath is where WithReadinessCheck mounts the readiness endpoint.
	ReadinessPath = "/readyz"

	// HealthPath is where WithSimpleHealth mounts the liveness endpoint.
	HealthPath = "/healthz"
)

// Server is an HTTP server serving the menu API alongside health, readiness
// and metrics endpoints. Implementations shut down gracefully when the
// context passed to Serve is canceled.
type Server interface {
	// Serve starts the HTTP server and blocks until the context is canceled.
	// It returns an error if the listener cannot be bound or shutdown fails.
	// Returns nil on graceful shutdown.
	Serve(ctx context.Context) error

	// IsRunning reports whether the listener is bound and serving. It is
	// safe to call from any goroutine.
	IsRunning() bool

	// Handler returns the request multiplexer with every registered route.
	Handler() http.Handler
}

// ReadinessChecker reports whether a dependency, such as the condition
// store, can serve requests. Unlike liveness, readiness may depend on
// external services.
type ReadinessChecker interface {
	// Ready returns nil when ready, or an error describing why not. The
	// context carries the deadline of the readiness request.
	Ready(ctx context.Context) error
}

type server struct {
	mux             *http.ServeMux
	port            int
	readTimeout     time.Duration
	writeTimeout    time.Duration
	idleTimeout     time.Duration
	shutdownTimeout time.Duration
	maxHeaderBytes  int
	errLog          *log.Logger
	tlsConfig       *TLSConfig
	mu              sync.RWMutex
	running         bool
}

// TLSConfig contains the certificate and key file paths for TLS/HTTPS support.
type TLSConfig struct {
	CertFile string // PEM certificate, chain included
	KeyFile  string // PEM private key
}

// Option is a functional option for configuring the Server.
type Option func(*server)

// WithPort sets the port number for the HTTP server. Port 0 picks a free port.
// If not specified, DefaultPort (9876) is used.
func WithPort(port int) Option {
	return func(s *server) { s.port = port }
}

// WithReadTimeout sets the maximum duration for reading the entire request,
// headers and body. If not specified, DefaultReadTimeout (10s) is used.
func WithReadTimeout(d time.Duration) Option {
	return func(s *server) { s.readTimeout = d }
}

// WithWriteTimeout sets the maximum duration before timing out writes of the response.
// It bounds a whole menu render, condition evaluation included. If not
// specified, DefaultWriteTimeout (10s) is used.
func WithWriteTimeout(d time.Duration) Option {
	return func(s *server) { s.writeTimeout = d }
}

// WithIdleTimeout sets the maximum time to wait for the next request when
// keep-alives are enabled. If not specified, DefaultIdleTimeout (60s) is used.
func WithIdleTimeout(d time.Duration) Option {
	return func(s *server) { s.idleTimeout = d }
}

// WithShutdownTimeout sets the maximum duration to wait for graceful shutdown.
// Keep it below the orchestrator's termination grace period so in-flight
// renders finish before the process is killed. If not specified,
// DefaultShutdownTimeout (5s) is used.
func WithShutdownTimeout(d time.Duration) Option {
	return func(s *server) { s.shutdownTimeout = d }
}

// WithMaxHeaderBytes sets the maximum number of bytes to read from request
// headers, user and role headers included. If not specified,
// DefaultMaxHeaderBytes (1 MB) is used.
func WithMaxHeaderBytes(n int) Option {
	return func(s *server) { s.maxHeaderBytes = n }
}

// WithHandler registers an HTTP handler for the specified pattern.
// Multiple handlers can be registered by repeating the option.
//
// Example:
//
//	m, _ := config.LoadMenu("menu.yaml")
//	srv := server.New(
//	    server.WithHandler("/api/menu", m.Handler(ev)),
//	)
func WithHandler(pattern string, handler http.Handler) Option {
	return func(s *server) {
		s.mux.Handle(pattern, handler)
	}
}

// WithSimpleHealth adds a liveness endpoint at /healthz that always returns 200 OK.
// It does not look at the condition store; use WithReadinessCheck for that.
//
// The endpoint returns:
//   - 200 OK with body "ok"
//
// Example:
//
//	srv := server.New(server.WithSimpleHealth())
func WithSimpleHealth() Option {
	return func(s *server) {
		s.mux.HandleFunc(HealthPath, func(w http.ResponseWriter, _ *http.Request) {
			w.Header().Set("Content-Type", "text/plain; charset=utf-8")
			w.WriteHeader(http.StatusOK)
			_, _ = w.Write([]byte("ok"))
		})
	}
}

// WithReadinessCheck adds a readiness endpoint at /readyz. Each request
// calls checker with a 2s deadline.
//
// The endpoint returns:
//   - 200 OK with body "ready"
//   - 503 Service Unavailable with body "not ready" while checker fails
//
// Example:
//
//	st := store.NewRedis("localhost:6379", "")
//	srv := server.New(server.WithReadinessCheck(st))
func WithReadinessCheck(checker ReadinessChecker) Option {
	return func(s *server) {
		s.mux.HandleFunc(ReadinessPath, func(w http.ResponseWriter, r *http.Request) {
			ctx, cancel := context.WithTimeout(r.Context(), 2*time.Second)
			defer cancel()

			w.Header().Set("Content-Type", "text/plain; charset=utf-8")
			if err := checker.Ready(ctx); err != nil {
				slog.Warn("readiness check failed", "error", err)
				w.WriteHeader(http.StatusServiceUnavailable)
				_, _ = w.Write([]byte("not ready"))
				return
			}
			w.WriteHeader(http.StatusOK)
			_, _ = w.Write([]byte("ready"))
		})
	}
}

// WithMetrics serves the metrics gathered by reg at /metrics. Nothing is
// registered on the global Prometheus registry.
//
// Example:
//
//	reg := prometheus.NewRegistry()
//	reg.MustRegister(collectors.NewGoCollector())
//	srv := server.New(server.WithMetrics(reg))
func WithMetrics(reg *prometheus.Registry) Option {
	return func(s *server) {
		s.mux.Handle(MetricsPath, metric.GetHandlerForRegistry(reg))
	}
}

// WithTLS configures the server to use TLS/HTTPS with the provided certificate
// and key files. The key pair is loaded when Serve binds the listener and
// TLS 1.2 is the minimum version.
//
// Example:
//
//	srv := server.New(
//	    server.WithPort(8443),
//	    server.WithTLS(server.TLSConfig{
//	        CertFile: "/etc/menulogic/tls.crt",
//	        KeyFile:  "/etc/menulogic/tls.key",
//	    }),
//	)
func WithTLS(cfg TLSConfig) Option {
	return func(s *server) {
		s.tlsConfig = &cfg
	}
}

// New creates a new HTTP server with the provided options.
//
// Default configuration:
//   - Port: 9876
//   - ReadTimeout: 10s
//   - WriteTimeout: 10s
//   - IdleTimeout: 60s
//   - ShutdownTimeout: 5s
//   - MaxHeaderBytes: 1 MB
//
// Example:
//
//	srv := server.New(
//	    server.WithPort(9876),
//	    server.WithSimpleHealth(),
//	    server.WithMetrics(reg),
//	)
func New(opts ...Option) Server {
	s := &server{
		port:            DefaultPort,
		readTimeout:     DefaultReadTimeout,
		writeTimeout:    DefaultWriteTimeout,
		idleTimeout:     DefaultIdleTimeout,
		shutdownTimeout: DefaultShutdownTimeout,
		maxHeaderBytes:  DefaultMaxHeaderBytes,
		mux:             http.NewServeMux(),
		errLog:          logger.NewLogLogger(slog.LevelError, false),
	}

	for _, opt := range opts {
		opt(s)
	}

	slog.Info("server initialized",
		"port", s.port,
		"read_timeout", s.readTimeout,
		"write_timeout", s.writeTimeout)

	return s
}

// Handler returns the mux, so tests can drive routes without a listener.
func (s *server) Handler() http.Handler { return s.mux }

// IsRunning returns true once the listener is bound and until the server
// stops. It is false before Serve is called.
//
// Example:
//
//	go srv.Serve(ctx)
//	for !srv.IsRunning() {
//	    time.Sleep(10 * time.Millisecond)
//	}
func (s *server) IsRunning() bool {
	s.mu.RLock()
	defer s.mu.RUnlock()

	return s.running
}

func (s *server) setRunning(v bool) {
	s.mu.Lock()
	s.running = v
	s.mu.Unlock()
}

func (s *server) listen(addr string) (net.Listener, error) {
	listener, err := net.Listen("tcp", addr)
	if err != nil {
		return nil, fmt.Errorf("failed to create listener: %w", err)
	}
	if s.tlsConfig == nil {
		return listener, nil
	}

	cert, err := tls.LoadX509KeyPair(s.tlsConfig.CertFile, s.tlsConfig.KeyFile)
	if err != nil {
		listener.Close()
		return nil, fmt.Errorf("failed to load TLS certificate: %w", err)
	}

	return tls.NewListener(listener, &tls.Config{
		Certificates: []tls.Certificate{cert},
		MinVersion:   tls.VersionTLS12,
	}), nil
}

// Serve binds the listener, then runs the server and a shutdown watcher in
// an errgroup:
//  1. the server goroutine serves on the bound listener, with TLS when
//     configured
//  2. the shutdown goroutine waits for ctx to be canceled and then drains
//     in-flight requests for up to the shutdown timeout
//
// It returns nil on graceful shutdown. http.ErrServerClosed is expected
// during shutdown and is not reported as an error.
//
// Example:
//
//	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
//	defer stop()
//	if err := srv.Serve(ctx); err != nil {
//	    log.Fatal(err)
//	}
func (s *server) Serve(ctx context.Context) error {
	srv := &http.Server{
		Addr:           fmt.Sprintf(":%d", s.port),
		Handler:        s.mux,
		ReadTimeout:    s.readTimeout,
		WriteTimeout:   s.writeTimeout,
		IdleTimeout:    s.idleTimeout,
		MaxHeaderBytes: s.maxHeaderBytes,
		ErrorLog:       s.errLog,
	}

	listener, err := s.listen(srv.Addr)
	if err != nil {
		return err
	}

	slog.Info("starting server", "addr", listener.Addr().String(), "tls", s.tlsConfig != nil)

	g, gCtx := errgroup.WithContext(ctx)

	g.Go(func() error {
		s.setRunning(true)
		defer s.setRunning(false)

		if err := srv.Serve(listener); err != nil && !errors.Is(err, http.ErrServerClosed) {
			return fmt.Errorf("server error: %w", err)
		}

		return nil
	})

	g.Go(func() error {
		<-gCtx.Done()

		shutdownCtx, cancel := context.WithTimeout(context.Background(), s.shutdownTimeout)
		defer cancel()

		slog.Info("shutting down server", "grace_period", s.shutdownTimeout)

		shutdownStart := time.Now()

		if err := srv.Shutdown(shutdownCtx); err != nil {
			slog.Error("server shutdown error", "error", err)
		}

		slog.Info("server shutdown complete", "duration", time.Since(shutdownStart))

		return nil
	})

	return g.Wait()
}
