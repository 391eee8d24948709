package worker

import (
	"context"
	"log/slog"
)

// ErrorHandler receives failed and panicking runs for telemetry and alerting.
// Allows custom integration with error tracking services.
type ErrorHandler interface {
	// HandleError is called when a run returns an error.
	HandleError(ctx context.Context, runType string, err error)

	// HandlePanic is called when a run panics, with the panic value and stack trace.
	HandlePanic(ctx context.Context, runType string, panicVal any, stackTrace string)
}

// DefaultErrorHandler logs errors and panics with structured logging.
type DefaultErrorHandler struct{}

func (h *DefaultErrorHandler) HandleError(ctx context.Context, runType string, err error) {
	slog.ErrorContext(ctx, "Reconciliation run failed",
		slog.String("run_type", runType),
		slog.String("error", err.Error()),
		slog.Bool("retryable", IsRetryable(err)),
	)
}

func (h *DefaultErrorHandler) HandlePanic(ctx context.Context, runType string, panicVal any, stackTrace string) {
	slog.ErrorContext(ctx, "Reconciliation run panicked",
		slog.String("run_type", runType),
		slog.Any("panic_value", panicVal),
		slog.String("stack_trace", stackTrace),
	)
}
