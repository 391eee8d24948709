package sqlite

import (
	"context"
	"time"

	"github.com/rezkam/taskguard/internal/domain"
)

// RecordActivity appends an event to the activity log.
func (s *Store) RecordActivity(ctx context.Context, event domain.ActivityEvent) error {
	_, err := s.q.ExecContext(ctx, `
		INSERT OR IGNORE INTO activity_log (id, type, tenant_id, task_id, kept_task_id, identity_hash, reason, occurred_at)
		VALUES (?, ?, ?, ?, ?, ?, ?, ?)`,
		event.ID, string(event.Type), event.TenantID, event.TaskID, event.KeptTaskID,
		event.IdentityHash, string(event.Reason), event.OccurredAt.UTC().Format(time.RFC3339Nano),
	)
	if err != nil {
		return domain.StoreError("record activity", err)
	}
	return nil
}

// ActivityForTask returns the events recorded for a task, oldest first.
func (s *Store) ActivityForTask(ctx context.Context, taskID string) ([]domain.ActivityEvent, error) {
	rows, err := s.q.QueryContext(ctx, `
		SELECT id, type, tenant_id, task_id, kept_task_id, identity_hash, reason, occurred_at
		FROM activity_log WHERE task_id = ? ORDER BY occurred_at, id`, taskID)
	if err != nil {
		return nil, domain.StoreError("find activity", err)
	}
	defer rows.Close()

	var events []domain.ActivityEvent
	for rows.Next() {
		var (
			e                       domain.ActivityEvent
			typ, reason, occurredAt string
		)
		if err := rows.Scan(&e.ID, &typ, &e.TenantID, &e.TaskID, &e.KeptTaskID, &e.IdentityHash, &reason, &occurredAt); err != nil {
			return nil, domain.StoreError("find activity", err)
		}
		e.Type = domain.ActivityType(typ)
		e.Reason = domain.CleanupReason(reason)
		if ts := domain.ParseTimestamp(occurredAt); ts != nil {
			e.OccurredAt = *ts
		}
		events = append(events, e)
	}
	if err := rows.Err(); err != nil {
		return nil, domain.StoreError("find activity", err)
	}
	return events, nil
}
