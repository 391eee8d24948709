package main

import (
	"context"
	"errors"
	"io"
	"log/slog"
)

// shutdownStep is one named teardown action. Steps run in the order given.
type shutdownStep struct {
	name string
	fn   func(context.Context) error
}

type shutdowner interface {
	Shutdown(context.Context) error
}

func drainStep(name string, s shutdowner) shutdownStep {
	if s == nil {
		return shutdownStep{name: name}
	}
	return shutdownStep{name: name, fn: s.Shutdown}
}

func closeStep(name string, c io.Closer) shutdownStep {
	if c == nil {
		return shutdownStep{name: name}
	}
	return shutdownStep{name: name, fn: func(context.Context) error { return c.Close() }}
}

// newCleanup returns a hook running every step even if earlier ones fail.
// The activity logger must be drained before the store closes: the store is
// usually one of its sinks.
func newCleanup(steps ...shutdownStep) func(context.Context) error {
	return func(ctx context.Context) error {
		var errs []error
		for _, step := range steps {
			if step.fn == nil {
				continue
			}
			if err := step.fn(ctx); err != nil {
				slog.ErrorContext(ctx, "shutdown step failed", "step", step.name, "error", err)
				errs = append(errs, err)
			}
		}
		return errors.Join(errs...)
	}
}
