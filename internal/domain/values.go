package domain

// TaskStatus represents the current state of a task.
// Value object - immutable string enum.
type TaskStatus string

const (
	TaskStatusPending TaskStatus = "pending"
	TaskStatusDone    TaskStatus = "done"
)

// TaskPriority represents the priority level of a task.
// Value object - immutable string enum.
type TaskPriority string

const (
	TaskPriorityLow    TaskPriority = "Low"
	TaskPriorityMedium TaskPriority = "Medium"
	TaskPriorityHigh   TaskPriority = "High"
)

// CleanupReason tags a duplicate deletion with the pass that performed it.
type CleanupReason string

const (
	// CleanupReasonRace marks deletions performed inline by the resolver or by an
	// on-demand tenant scan.
	CleanupReasonRace CleanupReason = "race_cleanup"

	// CleanupReasonScheduled marks deletions performed by the global maintenance scan.
	CleanupReasonScheduled CleanupReason = "scheduled_cleanup"
)

// ElapsedNotAvailable is stored as the elapsed time when the assignment time is unknown.
const ElapsedNotAvailable = "N/A"

// DeadlineLayout is the canonical layout of the deadline date string.
const DeadlineLayout = "2006-01-02"
