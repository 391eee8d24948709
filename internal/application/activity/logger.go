package activity

import (
	"context"
	"fmt"
	"log/slog"
	"sync"
	"time"

	"github.com/google/uuid"
	"github.com/rezkam/taskguard/internal/domain"
)

// Default configuration values.
const (
	DefaultOperationTimeout = 5 * time.Second
	DefaultQueueSize        = 1000
)

// Config holds configuration for the Logger.
type Config struct {
	OperationTimeout time.Duration // Timeout for a single sink write
	QueueSize        int           // Buffer size for pending events
}

// Sink persists or renders activity events.
type Sink interface {
	RecordActivity(ctx context.Context, event domain.ActivityEvent) error
}

// Logger delivers activity events to its sinks from a background worker.
//
// Log never blocks and never fails the caller: when the queue is full the event is
// dropped with a warning. Events queued before Shutdown are drained.
type Logger struct {
	sinks            []Sink
	appCtx           context.Context // Application context, cancelled on shutdown
	events           chan domain.ActivityEvent
	shutdownChan     chan struct{}
	shutdownOnce     sync.Once
	wg               sync.WaitGroup
	operationTimeout time.Duration
}

// NewLogger creates a logger and starts its background worker.
// The ctx parameter should be an application-level context that gets cancelled on shutdown.
// Negative OperationTimeout gets the default, zero means no timeout.
// Zero QueueSize gets the default.
func NewLogger(ctx context.Context, config Config, sinks ...Sink) *Logger {
	if config.OperationTimeout < 0 {
		config.OperationTimeout = DefaultOperationTimeout
	}
	if config.QueueSize <= 0 {
		config.QueueSize = DefaultQueueSize
	}

	l := &Logger{
		sinks:            sinks,
		appCtx:           ctx,
		events:           make(chan domain.ActivityEvent, config.QueueSize),
		shutdownChan:     make(chan struct{}),
		operationTimeout: config.OperationTimeout,
	}

	l.wg.Add(1)
	go l.process()

	return l
}

// Log queues an event. ID and OccurredAt are filled in when missing.
func (l *Logger) Log(ctx context.Context, event domain.ActivityEvent) {
	if event.ID == "" {
		if id, err := uuid.NewV7(); err == nil {
			event.ID = id.String()
		}
	}
	if event.OccurredAt.IsZero() {
		event.OccurredAt = time.Now().UTC()
	}

	select {
	case <-l.shutdownChan:
		slog.WarnContext(ctx, "Dropped activity event after shutdown",
			slog.String("type", string(event.Type)),
			slog.String("task_id", event.TaskID))
		return
	default:
	}

	select {
	case l.events <- event:
	default:
		slog.WarnContext(ctx, "Dropped activity event due to full queue",
			slog.String("type", string(event.Type)),
			slog.String("task_id", event.TaskID))
	}
}

func (l *Logger) process() {
	defer l.wg.Done()

	for {
		select {
		case event := <-l.events:
			// cancel is called per iteration, not deferred inside the loop.
			ctx, cancel := l.opContext(l.appCtx)
			l.deliver(ctx, event)
			cancel()

		case <-l.shutdownChan:
			for {
				select {
				case event := <-l.events:
					// appCtx is already cancelled during shutdown.
					ctx, cancel := l.opContext(context.Background())
					l.deliver(ctx, event)
					cancel()
				default:
					return
				}
			}
		}
	}
}

func (l *Logger) opContext(parent context.Context) (context.Context, context.CancelFunc) {
	if l.operationTimeout == 0 {
		return context.WithCancel(parent)
	}
	return context.WithTimeout(parent, l.operationTimeout)
}

func (l *Logger) deliver(ctx context.Context, event domain.ActivityEvent) {
	for _, sink := range l.sinks {
		if err := sink.RecordActivity(ctx, event); err != nil {
			slog.WarnContext(ctx, "Failed to record activity event",
				slog.String("type", string(event.Type)),
				slog.String("task_id", event.TaskID),
				slog.String("error", err.Error()))
		}
	}
}

// Shutdown stops the worker after draining queued events.
// It respects the provided context's deadline and is safe to call multiple times.
func (l *Logger) Shutdown(ctx context.Context) error {
	var shutdownErr error
	l.shutdownOnce.Do(func() {
		close(l.shutdownChan)

		done := make(chan struct{})
		go func() {
			l.wg.Wait()
			close(done)
		}()

		select {
		case <-done:
		case <-ctx.Done():
			shutdownErr = fmt.Errorf("activity logger shutdown timeout: %w", ctx.Err())
		}
	})
	return shutdownErr
}

// Nop discards every event.
type Nop struct{}

func (Nop) Log(context.Context, domain.ActivityEvent) {}
