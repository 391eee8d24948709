// Package observability wires OpenTelemetry traces, metrics and logs for the binaries.
package observability

import (
	"context"
	"errors"
	"fmt"
	"io"
	"log/slog"
	"net/url"
	"os"
	"strings"
	"time"

	"go.opentelemetry.io/contrib/bridges/otelslog"
	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/exporters/otlp/otlplog/otlploggrpc"
	"go.opentelemetry.io/otel/exporters/otlp/otlpmetric/otlpmetricgrpc"
	"go.opentelemetry.io/otel/exporters/otlp/otlptrace/otlptracegrpc"
	"go.opentelemetry.io/otel/propagation"
	"go.opentelemetry.io/otel/sdk/log"
	sdkmetric "go.opentelemetry.io/otel/sdk/metric"
	"go.opentelemetry.io/otel/sdk/resource"
	sdktrace "go.opentelemetry.io/otel/sdk/trace"
	semconv "go.opentelemetry.io/otel/semconv/v1.26.0"
)

// DefaultServiceName is used when Config.ServiceName is empty.
const DefaultServiceName = "taskguard"

const exportTimeout = 10 * time.Second

// Config holds observability configuration.
type Config struct {
	Enabled     bool   // export traces, metrics and logs over OTLP/gRPC
	ServiceName string // defaults to DefaultServiceName
	LogLevel    string // debug, info, warn, error (default info)
}

func (c Config) serviceName() string {
	if c.ServiceName == "" {
		return DefaultServiceName
	}
	return c.ServiceName
}

// ParseLevel maps a level name to slog.Level. Unknown names map to info.
func ParseLevel(s string) slog.Level {
	var level slog.Level
	if err := level.UnmarshalText([]byte(strings.TrimSpace(s))); err != nil {
		return slog.LevelInfo
	}
	return level
}

// parseOTLPHeaders parses OTEL_EXPORTER_OTLP_HEADERS and URL-decodes values.
// Collectors behind hosted gateways hand out URL-encoded values (e.g., Basic%20token).
func parseOTLPHeaders(raw string) map[string]string {
	if raw == "" {
		return nil
	}

	headers := make(map[string]string)
	for pair := range strings.SplitSeq(raw, ",") {
		key, value, ok := strings.Cut(pair, "=")
		if !ok {
			continue
		}
		if decoded, err := url.QueryUnescape(value); err == nil {
			value = decoded
		}
		headers[strings.TrimSpace(key)] = strings.TrimSpace(value)
	}
	return headers
}

// newResource creates a resource with service metadata merged with defaults.
// Partial resource errors are non-fatal.
//
// Additional attributes can be set via OTEL_RESOURCE_ATTRIBUTES.
func newResource(ctx context.Context, serviceName string) (*resource.Resource, error) {
	serviceResource, err := resource.New(ctx,
		resource.WithFromEnv(),
		resource.WithAttributes(semconv.ServiceName(serviceName)),
		resource.WithSchemaURL(semconv.SchemaURL),
	)
	if err != nil {
		return nil, fmt.Errorf("failed to create service resource: %w", err)
	}

	res, err := resource.Merge(resource.Default(), serviceResource)
	if err != nil {
		if errors.Is(err, resource.ErrPartialResource) || errors.Is(err, resource.ErrSchemaURLConflict) {
			return res, nil
		}
		return nil, fmt.Errorf("failed to merge resources: %w", err)
	}

	return res, nil
}

// InitTracerProvider initializes an OTLP/gRPC tracer provider and installs it globally.
//
// Configuration via standard OTEL env vars:
//   - OTEL_EXPORTER_OTLP_ENDPOINT: collector address (default localhost:4317)
//   - OTEL_EXPORTER_OTLP_HEADERS: auth headers
func InitTracerProvider(ctx context.Context, cfg Config) (*sdktrace.TracerProvider, error) {
	if !cfg.Enabled {
		tp := sdktrace.NewTracerProvider()
		otel.SetTracerProvider(tp)
		return tp, nil
	}

	res, err := newResource(ctx, cfg.serviceName())
	if err != nil {
		return nil, err
	}

	// Exporter creation uses context.Background() so that it never hangs on shutdown.
	traceExporter, err := otlptracegrpc.New(context.Background(),
		otlptracegrpc.WithTimeout(exportTimeout),
		otlptracegrpc.WithHeaders(parseOTLPHeaders(os.Getenv("OTEL_EXPORTER_OTLP_HEADERS"))),
	)
	if err != nil {
		return nil, fmt.Errorf("failed to create trace exporter: %w", err)
	}

	tracerProvider := sdktrace.NewTracerProvider(
		sdktrace.WithSampler(sdktrace.ParentBased(sdktrace.AlwaysSample())),
		sdktrace.WithResource(res),
		sdktrace.WithBatcher(traceExporter, sdktrace.WithBatchTimeout(5*time.Second)),
	)
	otel.SetTracerProvider(tracerProvider)
	otel.SetTextMapPropagator(propagation.NewCompositeTextMapPropagator(
		propagation.TraceContext{},
		propagation.Baggage{},
	))

	return tracerProvider, nil
}

// InitMeterProvider initializes an OTLP/gRPC meter provider and installs it globally.
func InitMeterProvider(ctx context.Context, cfg Config) (*sdkmetric.MeterProvider, error) {
	if !cfg.Enabled {
		mp := sdkmetric.NewMeterProvider()
		otel.SetMeterProvider(mp)
		return mp, nil
	}

	res, err := newResource(ctx, cfg.serviceName())
	if err != nil {
		return nil, err
	}

	metricExporter, err := otlpmetricgrpc.New(context.Background(),
		otlpmetricgrpc.WithTimeout(exportTimeout),
		otlpmetricgrpc.WithHeaders(parseOTLPHeaders(os.Getenv("OTEL_EXPORTER_OTLP_HEADERS"))),
	)
	if err != nil {
		return nil, fmt.Errorf("failed to create metric exporter: %w", err)
	}

	meterProvider := sdkmetric.NewMeterProvider(
		sdkmetric.WithResource(res),
		sdkmetric.WithReader(sdkmetric.NewPeriodicReader(metricExporter,
			sdkmetric.WithInterval(15*time.Second),
		)),
	)
	otel.SetMeterProvider(meterProvider)

	return meterProvider, nil
}

// InitLogger returns the structured logger for the process. With OTLP enabled the
// logger is bridged to an OTLP/gRPC log provider; otherwise it writes JSON to w.
func InitLogger(ctx context.Context, cfg Config, w io.Writer) (*log.LoggerProvider, *slog.Logger, error) {
	if !cfg.Enabled {
		handler := slog.NewJSONHandler(w, &slog.HandlerOptions{Level: ParseLevel(cfg.LogLevel)})
		return log.NewLoggerProvider(), slog.New(handler), nil
	}

	res, err := newResource(ctx, cfg.serviceName())
	if err != nil {
		return nil, nil, err
	}

	logExporter, err := otlploggrpc.New(context.Background(),
		otlploggrpc.WithTimeout(exportTimeout),
		otlploggrpc.WithHeaders(parseOTLPHeaders(os.Getenv("OTEL_EXPORTER_OTLP_HEADERS"))),
	)
	if err != nil {
		return nil, nil, fmt.Errorf("failed to create log exporter: %w", err)
	}

	loggerProvider := log.NewLoggerProvider(
		log.WithProcessor(log.NewBatchProcessor(logExporter, log.WithExportTimeout(5*time.Second))),
		log.WithResource(res),
	)
	logger := otelslog.NewLogger(cfg.serviceName(), otelslog.WithLoggerProvider(loggerProvider))

	return loggerProvider, logger, nil
}

// Telemetry holds the installed providers.
type Telemetry struct {
	Logger *slog.Logger

	tracer *sdktrace.TracerProvider
	meter  *sdkmetric.MeterProvider
	logs   *log.LoggerProvider
}

// Init installs all three providers and sets the returned logger as the slog default.
func Init(ctx context.Context, cfg Config) (*Telemetry, error) {
	tp, err := InitTracerProvider(ctx, cfg)
	if err != nil {
		return nil, err
	}
	mp, err := InitMeterProvider(ctx, cfg)
	if err != nil {
		return nil, errors.Join(err, tp.Shutdown(ctx))
	}
	lp, logger, err := InitLogger(ctx, cfg, os.Stdout)
	if err != nil {
		return nil, errors.Join(err, tp.Shutdown(ctx), mp.Shutdown(ctx))
	}

	slog.SetDefault(logger)
	return &Telemetry{Logger: logger, tracer: tp, meter: mp, logs: lp}, nil
}

// Shutdown flushes and stops every provider.
func (t *Telemetry) Shutdown(ctx context.Context) error {
	return errors.Join(
		t.tracer.Shutdown(ctx),
		t.meter.Shutdown(ctx),
		t.logs.Shutdown(ctx),
	)
}
