package worker

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"math/rand/v2"
	"runtime/debug"
	"time"

	"github.com/rezkam/taskguard/internal/application/dedup"
)

// Scanner runs one reconciliation pass. An empty tenantID scans every tenant.
type Scanner interface {
	Scan(ctx context.Context, tenantID string) (dedup.ScanResult, error)
}

// ReconciliationConfig holds configuration for the reconciliation worker.
type ReconciliationConfig struct {
	// WorkerID is the unique identifier for this worker instance.
	// Used for lease ownership.
	WorkerID string

	// Interval between scheduled scans (default: 15min)
	Interval time.Duration

	// MaxStartupJitter is the maximum random delay before the first scan (default: 30s).
	// Keeps workers that start together from racing for the lease.
	MaxStartupJitter time.Duration

	// LeaseDuration is how long the exclusive lease is valid (default: 10min)
	LeaseDuration time.Duration

	// RetryDelay replaces Interval after a transient failure (default: 1min)
	RetryDelay time.Duration

	// ErrorHandler receives failed runs (default: DefaultErrorHandler)
	ErrorHandler ErrorHandler
}

// DefaultReconciliationConfig returns sensible defaults.
func DefaultReconciliationConfig(workerID string) ReconciliationConfig {
	return ReconciliationConfig{
		WorkerID:         workerID,
		Interval:         15 * time.Minute,
		MaxStartupJitter: 30 * time.Second,
		LeaseDuration:    10 * time.Minute,
		RetryDelay:       time.Minute,
		ErrorHandler:     &DefaultErrorHandler{},
	}
}

// ReconciliationRunType names the lease guarding the global duplicate scan.
const ReconciliationRunType = "duplicate-task-reconciliation"

// ReconciliationWorker runs the global duplicate scan on a schedule.
// Single-instance through the coordinator lease, level-triggered: every run scans
// the whole store.
type ReconciliationWorker struct {
	coordinator Coordinator
	scanner     Scanner
	cfg         ReconciliationConfig
}

func NewReconciliationWorker(coordinator Coordinator, scanner Scanner, cfg ReconciliationConfig) *ReconciliationWorker {
	if cfg.ErrorHandler == nil {
		cfg.ErrorHandler = &DefaultErrorHandler{}
	}
	return &ReconciliationWorker{
		coordinator: coordinator,
		scanner:     scanner,
		cfg:         cfg,
	}
}

// Run starts the reconciliation loop with jittered startup.
// Returns ctx.Err() once the context is cancelled.
func (w *ReconciliationWorker) Run(ctx context.Context) error {
	if w.cfg.MaxStartupJitter > 0 {
		jitter := rand.N(w.cfg.MaxStartupJitter)
		slog.InfoContext(ctx, "reconciliation worker starting",
			"startup_jitter", jitter,
			"interval", w.cfg.Interval)

		if err := sleep(ctx, jitter); err != nil {
			return err
		}
	}

	for {
		next := w.cfg.Interval
		if err := w.RunOnce(ctx); err != nil {
			if ctx.Err() != nil {
				slog.InfoContext(ctx, "reconciliation worker stopping")
				return ctx.Err()
			}
			if IsRetryable(err) && w.cfg.RetryDelay > 0 {
				next = w.cfg.RetryDelay
			}
		}

		if err := sleep(ctx, next); err != nil {
			slog.InfoContext(ctx, "reconciliation worker stopping")
			return err
		}
	}
}

// RunOnce runs a single reconciliation cycle under the exclusive lease.
// A cycle skipped because another instance holds the lease is not an error.
func (w *ReconciliationWorker) RunOnce(ctx context.Context) error {
	release, acquired, err := w.coordinator.TryAcquireExclusiveRun(
		ctx,
		ReconciliationRunType,
		w.cfg.WorkerID,
		w.cfg.LeaseDuration,
	)
	if err != nil {
		err = classify(fmt.Errorf("failed to acquire lease: %w", err))
		w.cfg.ErrorHandler.HandleError(ctx, ReconciliationRunType, err)
		return err
	}
	if !acquired {
		slog.DebugContext(ctx, "reconciliation skipped, another instance holds the lease")
		return nil
	}
	defer release()

	start := time.Now() //nolint:wallclock // monotonic reading, only used for duration
	result, err := w.scan(ctx)
	if err != nil {
		if errors.Is(err, context.Canceled) {
			slog.WarnContext(ctx, "reconciliation aborted: shutdown requested")
			return err
		}
		if IsPanic(err) {
			var p PanicError
			errors.As(err, &p)
			w.cfg.ErrorHandler.HandlePanic(ctx, ReconciliationRunType, p.Value, p.StackTrace)
			return err
		}
		err = classify(err)
		w.cfg.ErrorHandler.HandleError(ctx, ReconciliationRunType, err)
		return err
	}

	slog.InfoContext(ctx, "reconciliation completed",
		"found", result.Found,
		"removed", result.Removed,
		"duration", time.Since(start))
	return nil
}

func (w *ReconciliationWorker) scan(ctx context.Context) (result dedup.ScanResult, err error) {
	defer func() {
		if r := recover(); r != nil {
			err = PanicError{Value: r, StackTrace: string(debug.Stack())}
		}
	}()
	return w.scanner.Scan(ctx, "")
}

func sleep(ctx context.Context, d time.Duration) error {
	timer := time.NewTimer(d)
	defer timer.Stop()

	select {
	case <-ctx.Done():
		return ctx.Err()
	case <-timer.C:
		return nil
	}
}
