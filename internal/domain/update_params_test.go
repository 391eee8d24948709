package domain

import (
	"encoding/json"
	"testing"
	"time"

	"github.com/rezkam/taskguard/internal/ptr"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestTaskPatch_Validate(t *testing.T) {
	now := time.Date(2024, 1, 1, 10, 0, 0, 0, time.UTC)

	tests := []struct {
		name    string
		patch   TaskPatch
		wantErr error
	}{
		{
			name:    "empty mask",
			patch:   TaskPatch{},
			wantErr: ErrEmptyUpdateMask,
		},
		{
			name:    "unknown field",
			patch:   TaskPatch{UpdateMask: []string{"description"}},
			wantErr: ErrUnknownField,
		},
		{
			name:    "priority without value",
			patch:   TaskPatch{UpdateMask: []string{FieldPriority}},
			wantErr: ErrValidation,
		},
		{
			name:  "priority",
			patch: TaskPatch{UpdateMask: []string{FieldPriority}, Priority: ptr.To(TaskPriorityLow)},
		},
		{
			name:  "notes cleared",
			patch: TaskPatch{UpdateMask: []string{FieldNotes}},
		},
		{
			name:    "status alone",
			patch:   TaskPatch{UpdateMask: []string{FieldStatus}, Status: ptr.To(TaskStatusDone)},
			wantErr: ErrValidation,
		},
		{
			name: "done without completion time",
			patch: TaskPatch{
				UpdateMask: []string{FieldStatus, FieldCompletedAt, FieldElapsed},
				Status:     ptr.To(TaskStatusDone),
				Elapsed:    ptr.To("0:10:00"),
			},
			wantErr: ErrValidation,
		},
		{
			name: "pending with completion time",
			patch: TaskPatch{
				UpdateMask:  []string{FieldStatus, FieldCompletedAt, FieldElapsed},
				Status:      ptr.To(TaskStatusPending),
				CompletedAt: &now,
			},
			wantErr: ErrValidation,
		},
		{
			name:    "completion time without status",
			patch:   TaskPatch{UpdateMask: []string{FieldCompletedAt}, CompletedAt: &now},
			wantErr: ErrValidation,
		},
		{
			name: "valid done",
			patch: TaskPatch{
				UpdateMask:  []string{FieldStatus, FieldCompletedAt, FieldElapsed},
				Status:      ptr.To(TaskStatusDone),
				CompletedAt: &now,
				Elapsed:     ptr.To("0:10:00"),
			},
		},
	}

	for _, tc := range tests {
		t.Run(tc.name, func(t *testing.T) {
			err := tc.patch.Validate()
			if tc.wantErr == nil {
				assert.NoError(t, err)
				return
			}
			assert.ErrorIs(t, err, tc.wantErr)
		})
	}
}

func TestTaskPatch_Apply_OnlyMaskedFields(t *testing.T) {
	task := pendingTask()
	task.Notes = json.RawMessage(`{"k":"v"}`)

	patch := TaskPatch{
		UpdateMask: []string{FieldNotes},
		Priority:   ptr.To(TaskPriorityLow), // not masked
	}
	patch.Apply(task)

	assert.Nil(t, task.Notes, "masked nil clears")
	assert.Equal(t, TaskPriorityHigh, task.Priority, "unmasked field untouched")
}

func TestTaskPatch_Apply_Transition(t *testing.T) {
	task := pendingTask()
	done := task.Clone()
	require.NoError(t, done.Complete(time.Date(2024, 1, 1, 10, 0, 0, 0, time.UTC)))

	TransitionPatch(done).Apply(task)
	assert.Equal(t, done, task)

	reverted := done.Clone()
	reverted.Revert()
	TransitionPatch(reverted).Apply(task)
	assert.Equal(t, pendingTask(), task)
}
