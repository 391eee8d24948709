package domain

import (
	"encoding/json"
	"fmt"
	"slices"
	"time"

	"github.com/rezkam/taskguard/internal/ptr"
)

// Field names accepted in TaskPatch.UpdateMask.
// Identity fields are immutable and cannot be patched.
const (
	FieldStatus      = "status"
	FieldPriority    = "priority"
	FieldCompletedAt = "completed_at"
	FieldElapsed     = "elapsed"
	FieldComments    = "comments"
	FieldNotes       = "notes"
)

var taskPatchValidFields = map[string]struct{}{
	FieldStatus:      {},
	FieldPriority:    {},
	FieldCompletedAt: {},
	FieldElapsed:     {},
	FieldComments:    {},
	FieldNotes:       {},
}

// TaskPatch is a field-masked update of a task.
//
// Only fields named in UpdateMask are written. A masked field with a nil value is
// cleared in the store.
type TaskPatch struct {
	UpdateMask []string

	Status      *TaskStatus
	Priority    *TaskPriority
	CompletedAt *time.Time
	Elapsed     *string
	Comments    json.RawMessage
	Notes       json.RawMessage
}

// Has reports whether field is part of the update mask.
func (p TaskPatch) Has(field string) bool {
	return slices.Contains(p.UpdateMask, field)
}

// Validate checks that UpdateMask contains only known fields, that required fields
// have values, and that a status change keeps completion metadata consistent.
func (p TaskPatch) Validate() error {
	if len(p.UpdateMask) == 0 {
		return ErrEmptyUpdateMask
	}

	for _, field := range p.UpdateMask {
		if _, ok := taskPatchValidFields[field]; !ok {
			return fmt.Errorf("%w: %s", ErrUnknownField, field)
		}
	}

	if p.Has(FieldPriority) && p.Priority == nil {
		return &ValidationError{Field: FieldPriority, Reason: "is required"}
	}

	if p.Has(FieldStatus) {
		if p.Status == nil {
			return &ValidationError{Field: FieldStatus, Reason: "is required"}
		}
		if !p.Has(FieldCompletedAt) || !p.Has(FieldElapsed) {
			return &ValidationError{Field: FieldStatus, Reason: "must be updated together with completed_at and elapsed"}
		}
		switch *p.Status {
		case TaskStatusDone:
			if p.CompletedAt == nil || p.Elapsed == nil {
				return &ValidationError{Field: FieldCompletedAt, Reason: "must be set when status is done"}
			}
		case TaskStatusPending:
			if p.CompletedAt != nil || p.Elapsed != nil {
				return &ValidationError{Field: FieldCompletedAt, Reason: "must be cleared when status is pending"}
			}
		default:
			return &ValidationError{Field: FieldStatus, Reason: fmt.Sprintf("unknown value %q", *p.Status)}
		}
	} else if p.Has(FieldCompletedAt) || p.Has(FieldElapsed) {
		return &ValidationError{Field: FieldCompletedAt, Reason: "can only change together with status"}
	}

	return nil
}

// Apply writes the masked fields of the patch onto t.
// Used by stores that persist whole documents.
func (p TaskPatch) Apply(t *Task) {
	for _, field := range p.UpdateMask {
		switch field {
		case FieldStatus:
			t.Status = *p.Status
		case FieldPriority:
			t.Priority = *p.Priority
		case FieldCompletedAt:
			t.CompletedAt = ptr.Clone(p.CompletedAt)
		case FieldElapsed:
			t.Elapsed = ""
			if p.Elapsed != nil {
				t.Elapsed = *p.Elapsed
			}
		case FieldComments:
			t.Comments = slices.Clone(p.Comments)
		case FieldNotes:
			t.Notes = slices.Clone(p.Notes)
		}
	}
}
