package dedup

import (
	"context"
	"sync"
	"testing"
	"time"

	"github.com/rezkam/taskguard/internal/domain"
	"github.com/rezkam/taskguard/internal/infrastructure/persistence/memory"
	"github.com/rezkam/taskguard/internal/ptr"
	"github.com/stretchr/testify/require"
)

var baseTime = time.Date(2024, 1, 1, 9, 0, 0, 0, time.UTC)

func fixedClock(t time.Time) domain.Clock {
	return domain.ClockFunc(func() time.Time { return t })
}

// mockRepository delegates to an in-memory store unless a function field overrides
// the operation.
type mockRepository struct {
	store *memory.Store

	insertTaskFunc   func(ctx context.Context, task *domain.Task) (*domain.Task, error)
	findTasksFunc    func(ctx context.Context, tenantID string, filter domain.TaskFilter) ([]*domain.Task, error)
	updateTaskFunc   func(ctx context.Context, id string, patch domain.TaskPatch) (*domain.Task, error)
	deleteTaskFunc   func(ctx context.Context, id string) error
	listTasksFunc    func(ctx context.Context, params domain.ListTasksParams) ([]*domain.Task, error)
	insertIfAbsentFn func(ctx context.Context, task *domain.Task) (*domain.Task, bool, error)
}

func newMockRepository() *mockRepository {
	return &mockRepository{store: memory.NewStore()}
}

func (m *mockRepository) InsertTask(ctx context.Context, task *domain.Task) (*domain.Task, error) {
	if m.insertTaskFunc != nil {
		return m.insertTaskFunc(ctx, task)
	}
	return m.store.InsertTask(ctx, task)
}

func (m *mockRepository) FindTaskByID(ctx context.Context, id string) (*domain.Task, error) {
	return m.store.FindTaskByID(ctx, id)
}

func (m *mockRepository) FindTasks(ctx context.Context, tenantID string, filter domain.TaskFilter) ([]*domain.Task, error) {
	if m.findTasksFunc != nil {
		return m.findTasksFunc(ctx, tenantID, filter)
	}
	return m.store.FindTasks(ctx, tenantID, filter)
}

func (m *mockRepository) UpdateTask(ctx context.Context, id string, patch domain.TaskPatch) (*domain.Task, error) {
	if m.updateTaskFunc != nil {
		return m.updateTaskFunc(ctx, id, patch)
	}
	return m.store.UpdateTask(ctx, id, patch)
}

func (m *mockRepository) DeleteTask(ctx context.Context, id string) error {
	if m.deleteTaskFunc != nil {
		return m.deleteTaskFunc(ctx, id)
	}
	return m.store.DeleteTask(ctx, id)
}

func (m *mockRepository) ListTasks(ctx context.Context, params domain.ListTasksParams) ([]*domain.Task, error) {
	if m.listTasksFunc != nil {
		return m.listTasksFunc(ctx, params)
	}
	return m.store.ListTasks(ctx, params)
}

// conditionalRepository adds InsertTaskIfAbsent to mockRepository.
type conditionalRepository struct {
	*mockRepository
}

func (c conditionalRepository) InsertTaskIfAbsent(ctx context.Context, task *domain.Task) (*domain.Task, bool, error) {
	return c.insertIfAbsentFn(ctx, task)
}

// recordingActivity captures activity events synchronously.
type recordingActivity struct {
	mu     sync.Mutex
	events []domain.ActivityEvent
}

func (r *recordingActivity) Log(_ context.Context, event domain.ActivityEvent) {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.events = append(r.events, event)
}

func (r *recordingActivity) ofType(typ domain.ActivityType) []domain.ActivityEvent {
	r.mu.Lock()
	defer r.mu.Unlock()
	var out []domain.ActivityEvent
	for _, e := range r.events {
		if e.Type == typ {
			out = append(out, e)
		}
	}
	return out
}

type seed struct {
	id          string
	tenantID    string
	description string
	assignedTo  string
	deadline    string
	status      domain.TaskStatus
	assignedAt  *time.Time
}

// seedTask inserts a task directly into the store, bypassing the resolver.
func seedTask(t *testing.T, repo Repository, s seed) *domain.Task {
	t.Helper()

	if s.tenantID == "" {
		s.tenantID = "acme"
	}
	if s.description == "" {
		s.description = "Call supplier"
	}
	if s.assignedTo == "" {
		s.assignedTo = "alice"
	}
	if s.status == "" {
		s.status = domain.TaskStatusPending
	}

	task := &domain.Task{
		ID:           s.id,
		TenantID:     s.tenantID,
		Description:  s.description,
		AssignedTo:   s.assignedTo,
		GivenBy:      "bob",
		Deadline:     s.deadline,
		IdentityHash: domain.IdentityHash(s.tenantID, s.description, s.assignedTo, "", s.deadline, "bob"),
		Status:       s.status,
		Priority:     domain.TaskPriorityMedium,
		AssignedAt:   s.assignedAt,
	}
	if s.status == domain.TaskStatusDone {
		task.CompletedAt = ptr.To(baseTime.Add(48 * time.Hour))
		task.Elapsed = "1 days, 0:00:00"
	}

	stored, err := repo.InsertTask(context.Background(), task)
	require.NoError(t, err)
	return stored
}

func at(offset time.Duration) *time.Time {
	return ptr.To(baseTime.Add(offset))
}

func createParams() domain.CreateTaskParams {
	return domain.CreateTaskParams{
		TenantID:    "acme",
		Description: "Call supplier",
		AssignedTo:  "alice",
		GivenBy:     "bob",
	}
}
