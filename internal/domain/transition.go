package domain

import (
	"fmt"
	"time"

	"github.com/rezkam/taskguard/internal/ptr"
)

// Complete moves a pending task to done, stamping the completion time and the
// elapsed time since assignment. A task without AssignedAt gets ElapsedNotAvailable
// instead of failing the transition.
func (t *Task) Complete(now time.Time) error {
	if t.Status != TaskStatusPending {
		return fmt.Errorf("%w: task %s is %s, expected %s", ErrInvalidTransition, t.ID, t.Status, TaskStatusPending)
	}

	completedAt := now.UTC()
	t.Status = TaskStatusDone
	t.CompletedAt = &completedAt

	if t.AssignedAt == nil || t.AssignedAt.IsZero() {
		t.Elapsed = ElapsedNotAvailable
	} else {
		t.Elapsed = FormatElapsed(completedAt.Sub(*t.AssignedAt))
	}
	return nil
}

// Revert moves a done task back to pending and clears completion metadata.
// Reports whether anything changed; reverting a pending task is a no-op.
func (t *Task) Revert() bool {
	if t.Status != TaskStatusDone {
		return false
	}

	t.Status = TaskStatusPending
	t.CompletedAt = nil
	t.Elapsed = ""
	return true
}

// TransitionPatch builds the patch persisting the status fields of t.
// All three fields are always masked so that clearing on revert reaches the store.
func TransitionPatch(t *Task) TaskPatch {
	status := t.Status
	patch := TaskPatch{
		UpdateMask:  []string{FieldStatus, FieldCompletedAt, FieldElapsed},
		Status:      &status,
		CompletedAt: ptr.Clone(t.CompletedAt),
	}
	if t.Elapsed != "" {
		elapsed := t.Elapsed
		patch.Elapsed = &elapsed
	}
	return patch
}
