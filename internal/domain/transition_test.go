package domain

import (
	"encoding/json"
	"testing"
	"time"

	"github.com/rezkam/taskguard/internal/ptr"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func pendingTask() *Task {
	return &Task{
		ID:           "task-1",
		TenantID:     "acme",
		Description:  "Call supplier",
		AssignedTo:   "alice",
		GivenBy:      "bob",
		IdentityHash: IdentityHash("acme", "Call supplier", "alice", "", "", "bob"),
		Status:       TaskStatusPending,
		Priority:     TaskPriorityHigh,
		AssignedAt:   ptr.To(time.Date(2024, 1, 1, 9, 0, 0, 0, time.UTC)),
		Comments:     json.RawMessage(`[{"by":"bob","text":"asap"}]`),
	}
}

func TestComplete_SetsCompletionMetadata(t *testing.T) {
	task := pendingTask()
	now := time.Date(2024, 1, 2, 11, 15, 0, 0, time.UTC)

	require.NoError(t, task.Complete(now))

	assert.Equal(t, TaskStatusDone, task.Status)
	require.NotNil(t, task.CompletedAt)
	assert.Equal(t, now, *task.CompletedAt)
	assert.Equal(t, "1 days, 2:15:00", task.Elapsed)
}

func TestComplete_MissingAssignedAt(t *testing.T) {
	task := pendingTask()
	task.AssignedAt = nil

	require.NoError(t, task.Complete(time.Now().UTC()))

	assert.Equal(t, TaskStatusDone, task.Status)
	assert.Equal(t, ElapsedNotAvailable, task.Elapsed)
}

func TestComplete_RejectsDoneTask(t *testing.T) {
	task := pendingTask()
	require.NoError(t, task.Complete(time.Now().UTC()))
	before := task.Clone()

	err := task.Complete(time.Now().UTC().Add(time.Hour))

	assert.ErrorIs(t, err, ErrInvalidTransition)
	assert.Equal(t, before, task, "rejected transition must not mutate")
}

func TestRevert_NoopOnPending(t *testing.T) {
	task := pendingTask()
	before := task.Clone()

	assert.False(t, task.Revert())
	assert.Equal(t, before, task)
}

func TestCompleteRevert_RoundTrip(t *testing.T) {
	original := pendingTask()
	task := original.Clone()

	require.NoError(t, task.Complete(time.Date(2024, 1, 1, 9, 45, 30, 0, time.UTC)))
	assert.Equal(t, "0:46:00", task.Elapsed)

	assert.True(t, task.Revert())

	assert.Equal(t, TaskStatusPending, task.Status)
	assert.Nil(t, task.CompletedAt)
	assert.Empty(t, task.Elapsed)
	assert.Equal(t, original, task, "revert restores the pre-completion record")
}

func TestTransitionPatch(t *testing.T) {
	t.Run("done", func(t *testing.T) {
		task := pendingTask()
		now := time.Date(2024, 1, 1, 10, 0, 0, 0, time.UTC)
		require.NoError(t, task.Complete(now))

		patch := TransitionPatch(task)

		require.NoError(t, patch.Validate())
		assert.ElementsMatch(t, []string{FieldStatus, FieldCompletedAt, FieldElapsed}, patch.UpdateMask)
		assert.Equal(t, TaskStatusDone, *patch.Status)
		assert.Equal(t, now, *patch.CompletedAt)
		assert.Equal(t, "1:00:00", *patch.Elapsed)
	})

	t.Run("pending clears completion fields", func(t *testing.T) {
		task := pendingTask()

		patch := TransitionPatch(task)

		require.NoError(t, patch.Validate())
		assert.True(t, patch.Has(FieldCompletedAt))
		assert.True(t, patch.Has(FieldElapsed))
		assert.Nil(t, patch.CompletedAt)
		assert.Nil(t, patch.Elapsed)
	})
}
