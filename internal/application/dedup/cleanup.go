package dedup

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"sync/atomic"

	"github.com/rezkam/taskguard/internal/domain"
	"golang.org/x/sync/errgroup"
)

// DefaultDeleteConcurrency bounds the deletions issued in parallel for one group.
const DefaultDeleteConcurrency = 4

// cleaner deletes surplus records of a duplicate group and reports each deletion.
type cleaner struct {
	repo        Repository
	activity    ActivityLogger
	clock       domain.Clock
	concurrency int
}

// removal describes the surplus of one group.
type removal struct {
	tenantID string
	hash     string
	keptID   string
	ids      []string
	reason   domain.CleanupReason
}

// remove deletes every surplus record concurrently. A record that is already gone
// counts as handled but not as removed. Deletions that succeeded before a failure
// stay deleted.
func (c *cleaner) remove(ctx context.Context, r removal) (int, error) {
	if len(r.ids) == 0 {
		return 0, nil
	}

	var removed atomic.Int64
	g, gctx := errgroup.WithContext(ctx)
	g.SetLimit(c.concurrency)

	for _, id := range r.ids {
		g.Go(func() error {
			err := c.repo.DeleteTask(gctx, id)
			if errors.Is(err, domain.ErrNotFound) {
				return nil
			}
			if err != nil {
				return fmt.Errorf("failed to delete duplicate %s: %w", id, err)
			}

			removed.Add(1)
			slog.InfoContext(gctx, "Removed duplicate task",
				slog.String("tenant_id", r.tenantID),
				slog.String("task_id", id),
				slog.String("kept_task_id", r.keptID),
				slog.String("reason", string(r.reason)))
			c.activity.Log(gctx, domain.ActivityEvent{
				Type:         domain.ActivityTaskDuplicateDeleted,
				TenantID:     r.tenantID,
				TaskID:       id,
				KeptTaskID:   r.keptID,
				IdentityHash: r.hash,
				Reason:       r.reason,
				OccurredAt:   c.clock.Now(),
			})
			return nil
		})
	}

	err := g.Wait()
	return int(removed.Load()), err
}

func taskIDs(tasks []*domain.Task) []string {
	ids := make([]string, len(tasks))
	for i, t := range tasks {
		ids[i] = t.ID
	}
	return ids
}
