package main

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"net/http"
	"net/url"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/rezkam/taskguard/internal/application/activity"
	"github.com/rezkam/taskguard/internal/application/dedup"
	"github.com/rezkam/taskguard/internal/config"
	"github.com/rezkam/taskguard/internal/domain"
	"github.com/rezkam/taskguard/internal/env"
	httpserver "github.com/rezkam/taskguard/internal/infrastructure/http"
	"github.com/rezkam/taskguard/internal/infrastructure/http/handler"
	"github.com/rezkam/taskguard/internal/infrastructure/observability"
	"github.com/rezkam/taskguard/internal/infrastructure/persistence/backend"
)

func main() {
	if err := run(); err != nil {
		// slog may not be initialised if config fails
		fmt.Fprintf(os.Stderr, "failed to run: %v\n", err)
		os.Exit(1)
	}
}

func run() error {
	if err := env.LoadDotEnv(); err != nil {
		return err
	}
	cfg, err := config.LoadServerConfig()
	if err != nil {
		return err
	}

	// Root context, cancelled on SIGTERM/SIGINT
	ctx, cancel := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer cancel()

	telemetry, err := observability.Init(ctx, observability.Config{
		Enabled:     cfg.Observability.OTelEnabled,
		ServiceName: cfg.Observability.ServiceName,
		LogLevel:    cfg.Observability.LogLevel,
	})
	if err != nil {
		return fmt.Errorf("failed to init observability: %w", err)
	}
	defer func() {
		// Bounded so an unreachable collector cannot hang shutdown
		shutdownCtx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
		defer cancel()
		if err := telemetry.Shutdown(shutdownCtx); err != nil {
			fmt.Fprintf(os.Stderr, "failed to shutdown telemetry: %v\n", err)
		}
	}()

	store, err := backend.Open(ctx, cfg.Storage)
	if err != nil {
		return fmt.Errorf("failed to open store: %w", err)
	}
	slog.InfoContext(ctx, "storage initialized", "type", cfg.Storage.Type, "dsn", maskPassword(cfg.Storage.DSN))

	// The activity logger outlives ctx so that events queued during shutdown drain.
	activityLogger := activity.NewLogger(context.Background(), activity.Config{
		OperationTimeout: cfg.Activity.OperationTimeout,
		QueueSize:        cfg.Activity.QueueSize,
	}, store.Sinks(activity.NewSlogSink(telemetry.Logger))...)

	defer func() {
		cleanupCtx, cancel := newShutdownContext(cfg.ShutdownTimeout)
		defer cancel()
		// Errors are logged per step.
		_ = newCleanup(
			drainStep("activity log", activityLogger),
			closeStep("store", store),
		)(cleanupCtx)
	}()

	dedupCfg := dedup.Config{
		DeleteConcurrency: cfg.Reconcile.DeleteConcurrency,
		PageSize:          cfg.Reconcile.PageSize,
	}
	scanner := dedup.NewScanner(store.Repository, activityLogger, domain.SystemClock{}, dedupCfg)
	reporter := dedup.NewReporter(store.Repository, dedupCfg)

	api := handler.NewReconciliationHandler(scanner, reporter).Routes()
	server := httpserver.NewAdminServer(api, store, httpserver.ServerConfig{
		Host:              cfg.HTTP.Host,
		Port:              cfg.HTTP.Port,
		ReadTimeout:       cfg.HTTP.ReadTimeout,
		WriteTimeout:      cfg.HTTP.WriteTimeout,
		IdleTimeout:       cfg.HTTP.IdleTimeout,
		ReadHeaderTimeout: cfg.HTTP.ReadHeaderTimeout,
		MaxHeaderBytes:    cfg.HTTP.MaxHeaderBytes,
	})

	errResult := make(chan error, 1)
	go func() {
		if err := server.Start(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			errResult <- fmt.Errorf("failed to serve HTTP: %w", err)
		}
	}()

	select {
	case <-ctx.Done():
		slog.InfoContext(ctx, "shutting down")
		httpCtx, cancel := newShutdownContext(cfg.ShutdownTimeout)
		defer cancel()
		if err := server.Shutdown(httpCtx); err != nil {
			slog.WarnContext(httpCtx, "HTTP server shutdown timed out", "error", err)
		}
		return nil
	case err := <-errResult:
		return err
	}
}

// newShutdownContext creates a fresh context with timeout for graceful shutdown.
// Uses Background() since the main context is already cancelled at shutdown time.
func newShutdownContext(timeout time.Duration) (context.Context, context.CancelFunc) {
	if timeout <= 0 {
		timeout = 10 * time.Second
	}
	return context.WithTimeout(context.Background(), timeout)
}

// maskPassword masks the password in a connection string for logging.
func maskPassword(connStr string) string {
	if connStr == "" {
		return ""
	}
	u, err := url.Parse(connStr)
	if err != nil {
		return "[REDACTED]"
	}
	if u.User != nil {
		if _, hasPassword := u.User.Password(); hasPassword {
			u.User = url.UserPassword(u.User.Username(), "xxxxxx")
		}
	}
	return u.String()
}
