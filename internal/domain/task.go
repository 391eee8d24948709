package domain

import (
	"encoding/json"
	"slices"
	"time"

	"github.com/rezkam/taskguard/internal/ptr"
)

// Task is the aggregate root of this module: one unit of work assigned inside a tenant.
//
// The identity tuple (TenantID, Description, AssignedTo, ClientName, Deadline, GivenBy)
// defines "the same logical task". IdentityHash is its normalized digest and is the
// lookup key used for duplicate detection.
type Task struct {
	ID       string
	TenantID string

	// Identity tuple. Values are stored trimmed but otherwise as supplied;
	// case folding only happens inside IdentityHash.
	Description string
	AssignedTo  string
	GivenBy     string
	ClientName  string // empty when the task has no client
	Deadline    string // canonical YYYY-MM-DD or empty

	IdentityHash string

	Status   TaskStatus
	Priority TaskPriority

	// AssignedAt is the creation time. Nil when a legacy document carried a missing
	// or unparsable value.
	AssignedAt *time.Time

	// CompletedAt and Elapsed are set if and only if Status is done.
	CompletedAt *time.Time
	Elapsed     string

	// Opaque payloads owned by other parts of the application.
	Comments json.RawMessage
	Notes    json.RawMessage
}

// IsPending reports whether the task is still open.
func (t *Task) IsPending() bool {
	return t.Status == TaskStatusPending
}

// IsDone reports whether the task has been completed.
func (t *Task) IsDone() bool {
	return t.Status == TaskStatusDone
}

// Identity returns the identity tuple of the task.
func (t *Task) Identity() Identity {
	return Identity{
		TenantID:    t.TenantID,
		Description: t.Description,
		AssignedTo:  t.AssignedTo,
		GivenBy:     t.GivenBy,
		ClientName:  t.ClientName,
		Deadline:    t.Deadline,
	}
}

// Clone returns a deep copy of the task.
func (t *Task) Clone() *Task {
	if t == nil {
		return nil
	}
	c := *t
	c.AssignedAt = ptr.Clone(t.AssignedAt)
	c.CompletedAt = ptr.Clone(t.CompletedAt)
	c.Comments = slices.Clone(t.Comments)
	c.Notes = slices.Clone(t.Notes)
	return &c
}

// CreateTaskParams carries caller input for idempotent task creation.
type CreateTaskParams struct {
	TenantID    string
	Description string
	AssignedTo  string
	GivenBy     string
	ClientName  string
	Deadline    string
	Priority    string // Low, Medium or High; empty defaults to Medium

	Comments json.RawMessage
	Notes    json.RawMessage
}

// Identity returns the identity tuple carried by the params.
func (p CreateTaskParams) Identity() Identity {
	return Identity{
		TenantID:    p.TenantID,
		Description: p.Description,
		AssignedTo:  p.AssignedTo,
		GivenBy:     p.GivenBy,
		ClientName:  p.ClientName,
		Deadline:    p.Deadline,
	}
}

// ParseTimestamp parses a stored timestamp string.
// Returns nil when the value is empty or matches none of the accepted layouts,
// so that a bad legacy value never fails a read.
func ParseTimestamp(s string) *time.Time {
	if s == "" {
		return nil
	}
	for _, layout := range []string{time.RFC3339Nano, "2006-01-02T15:04:05", "2006-01-02 15:04:05"} {
		if ts, err := time.Parse(layout, s); err == nil {
			utc := ts.UTC()
			return &utc
		}
	}
	return nil
}
