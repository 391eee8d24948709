package main

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/google/uuid"

	"github.com/rezkam/taskguard/internal/application/activity"
	"github.com/rezkam/taskguard/internal/application/dedup"
	"github.com/rezkam/taskguard/internal/application/worker"
	"github.com/rezkam/taskguard/internal/config"
	"github.com/rezkam/taskguard/internal/domain"
	"github.com/rezkam/taskguard/internal/env"
	"github.com/rezkam/taskguard/internal/infrastructure/observability"
	"github.com/rezkam/taskguard/internal/infrastructure/persistence/backend"
)

func main() {
	if err := run(); err != nil {
		fmt.Fprintf(os.Stderr, "failed to run: %v\n", err)
		os.Exit(1)
	}
}

func run() error {
	if err := env.LoadDotEnv(); err != nil {
		return err
	}
	cfg, err := config.LoadWorkerConfig()
	if err != nil {
		return err
	}

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
	defer store.Close()

	activityLogger := activity.NewLogger(context.Background(), activity.Config{
		OperationTimeout: cfg.Activity.OperationTimeout,
		QueueSize:        cfg.Activity.QueueSize,
	}, store.Sinks(activity.NewSlogSink(telemetry.Logger))...)
	defer func() {
		drainCtx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
		defer cancel()
		if err := activityLogger.Shutdown(drainCtx); err != nil {
			slog.Warn("activity log drain timed out", "error", err)
		}
	}()

	scanner := dedup.NewScanner(store.Repository, activityLogger, domain.SystemClock{}, dedup.Config{
		DeleteConcurrency: cfg.Reconcile.DeleteConcurrency,
		PageSize:          cfg.Reconcile.PageSize,
	})

	workerCfg := worker.DefaultReconciliationConfig(workerID(cfg.WorkerID))
	workerCfg.Interval = cfg.Reconcile.Interval
	workerCfg.MaxStartupJitter = cfg.Reconcile.MaxStartupJitter
	workerCfg.LeaseDuration = cfg.Reconcile.LeaseDuration
	workerCfg.RetryDelay = cfg.Reconcile.RetryDelay

	slog.InfoContext(ctx, "reconciliation worker configured",
		"worker_id", workerCfg.WorkerID,
		"storage", cfg.Storage.Type,
		"interval", workerCfg.Interval)

	err = worker.NewReconciliationWorker(store.Coordinator, scanner, workerCfg).Run(ctx)
	if errors.Is(err, context.Canceled) {
		slog.Info("worker shut down gracefully")
		return nil
	}
	return err
}

// workerID returns configured when set, otherwise hostname-pid-uuid.
func workerID(configured string) string {
	if configured != "" {
		return configured
	}
	host, err := os.Hostname()
	if err != nil {
		host = "unknown"
	}
	return fmt.Sprintf("%s-%d-%s", host, os.Getpid(), uuid.NewString()[:8])
}
