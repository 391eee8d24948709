package dedup

import (
	"log/slog"

	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/metric"
	"go.opentelemetry.io/otel/metric/noop"
	"go.opentelemetry.io/otel/trace"
)

const instrumentationName = "github.com/rezkam/taskguard/internal/application/dedup"

type instruments struct {
	tracer            trace.Tracer
	tasksCreated      metric.Int64Counter
	tasksDeduplicated metric.Int64Counter
	duplicatesFound   metric.Int64Counter
	duplicatesRemoved metric.Int64Counter
}

// newInstruments binds to the global providers. A counter that cannot be created is
// replaced by a no-op so that metrics never fail an operation.
func newInstruments() *instruments {
	meter := otel.Meter(instrumentationName)

	counter := func(name, description string) metric.Int64Counter {
		c, err := meter.Int64Counter(name, metric.WithDescription(description))
		if err != nil {
			slog.Warn("Failed to create counter", "name", name, "error", err)
			return noop.Int64Counter{}
		}
		return c
	}

	return &instruments{
		tracer:            otel.Tracer(instrumentationName),
		tasksCreated:      counter("taskguard.tasks.created", "Tasks inserted by idempotent creation"),
		tasksDeduplicated: counter("taskguard.tasks.deduplicated", "Creations answered with an existing pending task"),
		duplicatesFound:   counter("taskguard.duplicates.found", "Duplicate groups detected"),
		duplicatesRemoved: counter("taskguard.duplicates.removed", "Duplicate tasks deleted"),
	}
}
