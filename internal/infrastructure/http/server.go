// Package http serves the admin API for reconciliation dashboards.
package http

import (
	"cmp"
	"context"
	"log/slog"
	"net"
	"net/http"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/go-chi/chi/v5/middleware"
	"go.opentelemetry.io/contrib/instrumentation/net/http/otelhttp"

	mw "github.com/rezkam/taskguard/internal/infrastructure/http/middleware"
	"github.com/rezkam/taskguard/internal/infrastructure/http/response"
)

const (
	DefaultPort              = "8081"
	DefaultReadTimeout       = 5 * time.Second
	DefaultWriteTimeout      = 60 * time.Second // a full tenant scan runs inside the request
	DefaultIdleTimeout       = 120 * time.Second
	DefaultReadHeaderTimeout = 5 * time.Second
	DefaultMaxHeaderBytes    = 1 << 20
	DefaultMaxBodyBytes      = 64 << 10 // admin endpoints take no meaningful body

	readinessTimeout = 2 * time.Second
)

// ServerConfig holds listener limits. Zero or negative values fall back to
// the defaults above. An empty Host listens on all interfaces.
type ServerConfig struct {
	Host              string
	Port              string
	ReadTimeout       time.Duration
	WriteTimeout      time.Duration
	IdleTimeout       time.Duration
	ReadHeaderTimeout time.Duration
	MaxHeaderBytes    int
	MaxBodyBytes      int64
}

func positiveOr[T int | int64 | time.Duration](v, def T) T {
	if v <= 0 {
		return def
	}
	return v
}

func (cfg ServerConfig) withDefaults() ServerConfig {
	cfg.Port = cmp.Or(cfg.Port, DefaultPort)
	cfg.ReadTimeout = positiveOr(cfg.ReadTimeout, DefaultReadTimeout)
	cfg.WriteTimeout = positiveOr(cfg.WriteTimeout, DefaultWriteTimeout)
	cfg.IdleTimeout = positiveOr(cfg.IdleTimeout, DefaultIdleTimeout)
	cfg.ReadHeaderTimeout = positiveOr(cfg.ReadHeaderTimeout, DefaultReadHeaderTimeout)
	cfg.MaxHeaderBytes = positiveOr(cfg.MaxHeaderBytes, DefaultMaxHeaderBytes)
	cfg.MaxBodyBytes = positiveOr(cfg.MaxBodyBytes, int64(DefaultMaxBodyBytes))
	return cfg
}

// Pinger reports whether the task store is reachable.
type Pinger interface {
	Ping(ctx context.Context) error
}

// AdminServer serves the reconciliation API plus liveness and readiness probes.
type AdminServer struct {
	server *http.Server
}

// NewAdminServer mounts api at the root. /health always answers while the
// process is up; /ready answers 503 while store reports an error.
func NewAdminServer(api http.Handler, store Pinger, cfg ServerConfig) *AdminServer {
	cfg = cfg.withDefaults()

	r := chi.NewRouter()
	r.Use(middleware.RequestID, middleware.RealIP, middleware.Recoverer)
	r.Use(mw.MaxBodyBytes(cfg.MaxBodyBytes))

	r.Get("/health", func(w http.ResponseWriter, _ *http.Request) {
		response.OK(w, map[string]string{"status": "ok"})
	})
	r.Get("/ready", readiness(store))
	r.Mount("/", api)

	return &AdminServer{
		server: &http.Server{
			Addr:              net.JoinHostPort(cfg.Host, cfg.Port),
			Handler:           otelhttp.NewHandler(r, "taskguard.admin"),
			ReadTimeout:       cfg.ReadTimeout,
			WriteTimeout:      cfg.WriteTimeout,
			IdleTimeout:       cfg.IdleTimeout,
			ReadHeaderTimeout: cfg.ReadHeaderTimeout,
			MaxHeaderBytes:    cfg.MaxHeaderBytes,
		},
	}
}

func readiness(store Pinger) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		if store != nil {
			ctx, cancel := context.WithTimeout(r.Context(), readinessTimeout)
			defer cancel()
			if err := store.Ping(ctx); err != nil {
				slog.WarnContext(ctx, "Readiness check failed", "error", err)
				response.Error(w, "UNAVAILABLE", "store unavailable", http.StatusServiceUnavailable)
				return
			}
		}
		response.OK(w, map[string]string{"status": "ready"})
	}
}

// Start blocks serving requests. Returns http.ErrServerClosed after Shutdown.
func (s *AdminServer) Start() error {
	slog.Info("Starting admin server", "addr", s.server.Addr)
	return s.server.ListenAndServe()
}

// Shutdown stops accepting connections and waits for in-flight requests until ctx expires.
func (s *AdminServer) Shutdown(ctx context.Context) error {
	slog.Info("Shutting down admin server")
	return s.server.Shutdown(ctx)
}

// Handler returns the fully wrapped root handler.
func (s *AdminServer) Handler() http.Handler {
	return s.server.Handler
}
