package dedup

import (
	"slices"
	"strings"
	"time"

	"github.com/rezkam/taskguard/internal/domain"
)

// rank is the ordering key of the resolution policy. A missing AssignedAt ranks as
// the zero time, which makes it the oldest record.
type rank struct {
	assignedAt time.Time
	id         string
}

func taskRank(t *domain.Task) rank {
	r := rank{id: t.ID}
	if t.AssignedAt != nil {
		r.assignedAt = *t.AssignedAt
	}
	return r
}

func compareRank(a, b rank) int {
	if c := a.assignedAt.Compare(b.assignedAt); c != 0 {
		return c
	}
	return strings.Compare(a.id, b.id)
}

// selectSurvivor orders a group of records sharing one status and splits off the
// record the policy keeps. Pending groups keep the most recent record, done groups
// the earliest created one. Ties are broken by ID so the outcome does not depend on
// the order the store returned the records in. The input slice is not modified.
func selectSurvivor[T any](items []T, status domain.TaskStatus, key func(T) rank) (keep T, surplus []T) {
	if len(items) == 0 {
		return keep, nil
	}

	ordered := slices.Clone(items)
	slices.SortFunc(ordered, func(a, b T) int {
		c := compareRank(key(a), key(b))
		if status == domain.TaskStatusPending {
			return -c
		}
		return c
	})
	return ordered[0], ordered[1:]
}

// KeepPending applies the pending policy: the most recently assigned task survives.
func KeepPending(tasks []*domain.Task) (*domain.Task, []*domain.Task) {
	return selectSurvivor(tasks, domain.TaskStatusPending, taskRank)
}

// KeepDone applies the done policy: the earliest created task survives.
func KeepDone(tasks []*domain.Task) (*domain.Task, []*domain.Task) {
	return selectSurvivor(tasks, domain.TaskStatusDone, taskRank)
}

// partition splits tasks by status, preserving order.
func partition(tasks []*domain.Task) (pending, done []*domain.Task) {
	for _, t := range tasks {
		switch t.Status {
		case domain.TaskStatusPending:
			pending = append(pending, t)
		case domain.TaskStatusDone:
			done = append(done, t)
		}
	}
	return pending, done
}
