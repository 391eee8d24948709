package dedup

import (
	"context"

	"github.com/rezkam/taskguard/internal/domain"
)

// Repository defines the task store operations used by the resolver, the scanner and
// the reporter. Implementations wrap I/O failures with domain.ErrStoreUnavailable.
type Repository interface {
	// InsertTask stores a new task and returns it as persisted.
	InsertTask(ctx context.Context, task *domain.Task) (*domain.Task, error)

	// FindTaskByID retrieves a single task.
	// Returns domain.ErrNotFound if the task doesn't exist.
	FindTaskByID(ctx context.Context, id string) (*domain.Task, error)

	// FindTasks returns the tasks of one tenant matching every non-nil filter field.
	// Order is backend defined; callers must not depend on it.
	FindTasks(ctx context.Context, tenantID string, filter domain.TaskFilter) ([]*domain.Task, error)

	// UpdateTask writes the fields named in the patch's update mask.
	// Returns the updated task.
	// Returns domain.ErrNotFound if the task doesn't exist.
	UpdateTask(ctx context.Context, id string, patch domain.TaskPatch) (*domain.Task, error)

	// DeleteTask removes a task.
	// Returns domain.ErrNotFound if the task doesn't exist.
	DeleteTask(ctx context.Context, id string) error

	// ListTasks pages through tasks in ascending ID order.
	// An empty TenantID lists every tenant.
	ListTasks(ctx context.Context, params domain.ListTasksParams) ([]*domain.Task, error)
}

// ConditionalInserter is implemented by backends able to insert a pending task only
// when no pending task with the same tenant and identity hash exists.
type ConditionalInserter interface {
	// InsertTaskIfAbsent returns the inserted task and true, or the existing pending
	// task and false.
	InsertTaskIfAbsent(ctx context.Context, task *domain.Task) (*domain.Task, bool, error)
}

// ActivityLogger receives activity events. Delivery is fire-and-forget.
type ActivityLogger interface {
	Log(ctx context.Context, event domain.ActivityEvent)
}
