package activity

import (
	"context"
	"log/slog"

	"github.com/rezkam/taskguard/internal/domain"
)

// SlogSink renders activity events as structured log records.
type SlogSink struct {
	logger *slog.Logger
}

// NewSlogSink returns a sink writing to logger, or to slog.Default when nil.
func NewSlogSink(logger *slog.Logger) *SlogSink {
	if logger == nil {
		logger = slog.Default()
	}
	return &SlogSink{logger: logger}
}

func (s *SlogSink) RecordActivity(ctx context.Context, event domain.ActivityEvent) error {
	attrs := []slog.Attr{
		slog.String("event_id", event.ID),
		slog.String("type", string(event.Type)),
		slog.String("tenant_id", event.TenantID),
		slog.String("task_id", event.TaskID),
		slog.Time("occurred_at", event.OccurredAt),
	}
	if event.IdentityHash != "" {
		attrs = append(attrs, slog.String("identity_hash", event.IdentityHash))
	}
	if event.KeptTaskID != "" {
		attrs = append(attrs, slog.String("kept_task_id", event.KeptTaskID))
	}
	if event.Reason != "" {
		attrs = append(attrs, slog.String("reason", string(event.Reason)))
	}

	s.logger.LogAttrs(ctx, slog.LevelInfo, "task activity", attrs...)
	return nil
}
