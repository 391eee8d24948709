package domain

import "time"

// ActivityType names a structured activity event.
type ActivityType string

const (
	ActivityTaskCreated          ActivityType = "task.created"
	ActivityTaskDuplicateDeleted ActivityType = "task.duplicate_deleted"
	ActivityTaskCompleted        ActivityType = "task.completed"
	ActivityTaskReverted         ActivityType = "task.reverted"
)

// ActivityEvent is an audit record emitted by the resolver, the transition engine
// and the scanner. Delivery is fire-and-forget.
type ActivityEvent struct {
	ID           string
	Type         ActivityType
	TenantID     string
	TaskID       string
	KeptTaskID   string // survivor of a duplicate deletion
	IdentityHash string
	Reason       CleanupReason // set on duplicate deletions
	OccurredAt   time.Time
}
