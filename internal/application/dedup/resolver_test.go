package dedup

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/rezkam/taskguard/internal/domain"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func newTestResolver(repo Repository, activity ActivityLogger) *Resolver {
	return NewResolver(repo, activity, fixedClock(baseTime), Config{})
}

func completeFunc(now time.Time) UpdateFunc {
	return func(task domain.Task) (domain.TaskPatch, error) {
		if err := task.Complete(now); err != nil {
			return domain.TaskPatch{}, err
		}
		return domain.TransitionPatch(&task), nil
	}
}

func TestCreateOrGetExisting_Idempotent(t *testing.T) {
	repo := newMockRepository()
	activity := &recordingActivity{}
	resolver := newTestResolver(repo, activity)
	ctx := context.Background()

	first, created, err := resolver.CreateOrGetExisting(ctx, createParams())
	require.NoError(t, err)
	assert.True(t, created)
	assert.Equal(t, domain.TaskStatusPending, first.Status)
	assert.Equal(t, domain.TaskPriorityMedium, first.Priority)
	assert.Equal(t, baseTime, *first.AssignedAt)

	variant := createParams()
	variant.Description = "  CALL supplier "
	second, created, err := resolver.CreateOrGetExisting(ctx, variant)
	require.NoError(t, err)
	assert.False(t, created)
	assert.Equal(t, first.ID, second.ID)

	assert.Equal(t, 1, repo.store.Len())
	assert.Len(t, activity.ofType(domain.ActivityTaskCreated), 1)
}

func TestCreateOrGetExisting_DoneTaskDoesNotBlockNewPending(t *testing.T) {
	repo := newMockRepository()
	resolver := newTestResolver(repo, &recordingActivity{})
	done := seedTask(t, repo, seed{id: "done-1", status: domain.TaskStatusDone, assignedAt: at(-time.Hour)})

	task, created, err := resolver.CreateOrGetExisting(context.Background(), createParams())

	require.NoError(t, err)
	assert.True(t, created)
	assert.NotEqual(t, done.ID, task.ID)
}

func TestCreateOrGetExisting_ValidatesBeforeStore(t *testing.T) {
	repo := newMockRepository()
	repo.findTasksFunc = func(context.Context, string, domain.TaskFilter) ([]*domain.Task, error) {
		t.Fatal("store must not be queried for invalid input")
		return nil, nil
	}
	resolver := newTestResolver(repo, &recordingActivity{})

	tests := []struct {
		name   string
		mutate func(*domain.CreateTaskParams)
		field  string
	}{
		{"empty description", func(p *domain.CreateTaskParams) { p.Description = " " }, "description"},
		{"malformed deadline", func(p *domain.CreateTaskParams) { p.Deadline = "next week" }, "deadline"},
		{"unknown priority", func(p *domain.CreateTaskParams) { p.Priority = "urgent" }, "priority"},
	}

	for _, tc := range tests {
		t.Run(tc.name, func(t *testing.T) {
			params := createParams()
			tc.mutate(&params)

			_, _, err := resolver.CreateOrGetExisting(context.Background(), params)

			var vErr *domain.ValidationError
			require.ErrorAs(t, err, &vErr)
			assert.Equal(t, tc.field, vErr.Field)
		})
	}
}

func TestCreateOrGetExisting_CollapsesPendingDuplicates(t *testing.T) {
	repo := newMockRepository()
	activity := &recordingActivity{}
	resolver := newTestResolver(repo, activity)

	seedTask(t, repo, seed{id: "t1", assignedAt: at(0)})
	seedTask(t, repo, seed{id: "t2", assignedAt: at(2 * time.Hour)})
	seedTask(t, repo, seed{id: "t3", assignedAt: at(time.Hour)})

	task, created, err := resolver.CreateOrGetExisting(context.Background(), createParams())

	require.NoError(t, err)
	assert.False(t, created)
	assert.Equal(t, "t2", task.ID)
	assert.Equal(t, 1, repo.store.Len())

	deletions := activity.ofType(domain.ActivityTaskDuplicateDeleted)
	require.Len(t, deletions, 2)
	for _, e := range deletions {
		assert.Equal(t, "t2", e.KeptTaskID)
		assert.Equal(t, domain.CleanupReasonRace, e.Reason)
	}
}

func TestCreateOrGetExisting_CleanupFailureStillReturnsCanonical(t *testing.T) {
	repo := newMockRepository()
	seedTask(t, repo, seed{id: "t1", assignedAt: at(0)})
	seedTask(t, repo, seed{id: "t2", assignedAt: at(time.Hour)})
	repo.deleteTaskFunc = func(context.Context, string) error {
		return domain.StoreError("delete task", errors.New("connection reset"))
	}
	resolver := newTestResolver(repo, &recordingActivity{})

	task, created, err := resolver.CreateOrGetExisting(context.Background(), createParams())

	require.NoError(t, err)
	assert.False(t, created)
	assert.Equal(t, "t2", task.ID)
}

func TestCreateOrGetExisting_ConditionalInsertLosesRace(t *testing.T) {
	winner := &domain.Task{ID: "winner", TenantID: "acme", Status: domain.TaskStatusPending}
	base := newMockRepository()
	base.insertTaskFunc = func(context.Context, *domain.Task) (*domain.Task, error) {
		t.Fatal("plain insert must not be used when conditional insert is available")
		return nil, nil
	}
	base.insertIfAbsentFn = func(_ context.Context, task *domain.Task) (*domain.Task, bool, error) {
		assert.Equal(t, domain.TaskStatusPending, task.Status)
		return winner, false, nil
	}
	activity := &recordingActivity{}
	resolver := newTestResolver(conditionalRepository{base}, activity)

	task, created, err := resolver.CreateOrGetExisting(context.Background(), createParams())

	require.NoError(t, err)
	assert.False(t, created)
	assert.Equal(t, "winner", task.ID)
	assert.Empty(t, activity.ofType(domain.ActivityTaskCreated))
}

func TestCreateOrGetExisting_StoreFailure(t *testing.T) {
	repo := newMockRepository()
	repo.findTasksFunc = func(context.Context, string, domain.TaskFilter) ([]*domain.Task, error) {
		return nil, domain.StoreError("find tasks", errors.New("timeout"))
	}
	resolver := newTestResolver(repo, &recordingActivity{})

	_, _, err := resolver.CreateOrGetExisting(context.Background(), createParams())

	assert.ErrorIs(t, err, domain.ErrStoreUnavailable)
}

func TestResolveAndUpdate_CompletesCanonicalAndRemovesDuplicates(t *testing.T) {
	repo := newMockRepository()
	activity := &recordingActivity{}
	resolver := newTestResolver(repo, activity)

	seedTask(t, repo, seed{id: "old", assignedAt: at(0)})
	seedTask(t, repo, seed{id: "new", assignedAt: at(30 * time.Minute)})
	seedTask(t, repo, seed{id: "done", status: domain.TaskStatusDone, assignedAt: at(-time.Hour)})
	seedTask(t, repo, seed{id: "other", description: "File report", assignedAt: at(0)})

	now := baseTime.Add(time.Hour + 15*time.Second)
	task, err := resolver.ResolveAndUpdate(context.Background(), "acme", "call SUPPLIER", "alice", completeFunc(now))

	require.NoError(t, err)
	assert.Equal(t, "new", task.ID)
	assert.Equal(t, domain.TaskStatusDone, task.Status)
	assert.Equal(t, "0:30:00", task.Elapsed)

	_, err = repo.FindTaskByID(context.Background(), "old")
	assert.ErrorIs(t, err, domain.ErrNotFound)

	done, err := repo.FindTaskByID(context.Background(), "done")
	require.NoError(t, err)
	assert.Equal(t, "1 days, 0:00:00", done.Elapsed, "done records are not touched")

	_, err = repo.FindTaskByID(context.Background(), "other")
	assert.NoError(t, err)

	deletions := activity.ofType(domain.ActivityTaskDuplicateDeleted)
	require.Len(t, deletions, 1)
	assert.Equal(t, "old", deletions[0].TaskID)
	assert.Equal(t, "new", deletions[0].KeptTaskID)
}

func TestResolveAndUpdate_KeepsPendingTasksOfOtherIdentities(t *testing.T) {
	repo := newMockRepository()
	activity := &recordingActivity{}
	resolver := newTestResolver(repo, activity)

	seedTask(t, repo, seed{id: "jan", deadline: "2024-01-31", assignedAt: at(0)})
	seedTask(t, repo, seed{id: "feb", deadline: "2024-02-29", assignedAt: at(time.Hour)})

	task, err := resolver.ResolveAndUpdate(context.Background(), "acme", "Call supplier", "alice", completeFunc(baseTime.Add(2*time.Hour)))
	require.NoError(t, err)
	assert.Equal(t, "feb", task.ID)

	jan, err := repo.FindTaskByID(context.Background(), "jan")
	require.NoError(t, err, "a different deadline is a different task")
	assert.Equal(t, domain.TaskStatusPending, jan.Status)
	assert.Empty(t, activity.ofType(domain.ActivityTaskDuplicateDeleted))
}

func TestResolveAndUpdate_DoneOnlyIsReadOnly(t *testing.T) {
	repo := newMockRepository()
	repo.updateTaskFunc = func(context.Context, string, domain.TaskPatch) (*domain.Task, error) {
		t.Fatal("done-only resolution must not write")
		return nil, nil
	}
	repo.deleteTaskFunc = func(context.Context, string) error {
		t.Fatal("done-only resolution must not delete")
		return nil
	}
	resolver := newTestResolver(repo, &recordingActivity{})

	seedTask(t, repo, seed{id: "d2", status: domain.TaskStatusDone, assignedAt: at(time.Hour)})
	seedTask(t, repo, seed{id: "d1", status: domain.TaskStatusDone, assignedAt: at(0)})

	called := false
	task, err := resolver.ResolveAndUpdate(context.Background(), "acme", "Call supplier", "alice",
		func(domain.Task) (domain.TaskPatch, error) {
			called = true
			return domain.TaskPatch{}, nil
		})

	require.NoError(t, err)
	assert.False(t, called)
	assert.Equal(t, "d1", task.ID, "earliest created done record")
	assert.Equal(t, 2, repo.store.Len())
}

func TestResolveAndUpdate_RepeatedCompletionIsNoop(t *testing.T) {
	repo := newMockRepository()
	resolver := newTestResolver(repo, &recordingActivity{})
	seedTask(t, repo, seed{id: "t1", assignedAt: at(0)})

	first, err := resolver.ResolveAndUpdate(context.Background(), "acme", "Call supplier", "alice", completeFunc(baseTime.Add(time.Hour)))
	require.NoError(t, err)

	second, err := resolver.ResolveAndUpdate(context.Background(), "acme", "Call supplier", "alice", completeFunc(baseTime.Add(5*time.Hour)))
	require.NoError(t, err)

	assert.Equal(t, first, second)
}

func TestResolveAndUpdate_NotFound(t *testing.T) {
	repo := newMockRepository()
	resolver := newTestResolver(repo, &recordingActivity{})
	seedTask(t, repo, seed{id: "t1", assignedTo: "carol"})

	_, err := resolver.ResolveAndUpdate(context.Background(), "acme", "Call supplier", "alice", completeFunc(baseTime))

	assert.ErrorIs(t, err, domain.ErrNotFound)
}

func TestResolveAndUpdate_Validation(t *testing.T) {
	resolver := newTestResolver(newMockRepository(), &recordingActivity{})

	_, err := resolver.ResolveAndUpdate(context.Background(), "acme", "", "alice", completeFunc(baseTime))
	assert.ErrorIs(t, err, domain.ErrValidation)

	_, err = resolver.ResolveAndUpdate(context.Background(), " ", "task", "alice", completeFunc(baseTime))
	assert.ErrorIs(t, err, domain.ErrValidation)
}

func TestResolveAndUpdate_UpdateFuncErrorAborts(t *testing.T) {
	repo := newMockRepository()
	resolver := newTestResolver(repo, &recordingActivity{})
	seedTask(t, repo, seed{id: "t1", assignedAt: at(0)})
	seedTask(t, repo, seed{id: "t2", assignedAt: at(time.Hour)})
	boom := errors.New("boom")

	_, err := resolver.ResolveAndUpdate(context.Background(), "acme", "Call supplier", "alice",
		func(domain.Task) (domain.TaskPatch, error) { return domain.TaskPatch{}, boom })

	assert.ErrorIs(t, err, boom)
	assert.Equal(t, 2, repo.store.Len(), "no cleanup without a successful update")
}

func TestResolveAndUpdate_CanonicalDeletedConcurrently(t *testing.T) {
	repo := newMockRepository()
	repo.updateTaskFunc = func(_ context.Context, id string, _ domain.TaskPatch) (*domain.Task, error) {
		return nil, domain.ErrNotFound
	}
	resolver := newTestResolver(repo, &recordingActivity{})
	seedTask(t, repo, seed{id: "t1", assignedAt: at(0)})

	_, err := resolver.ResolveAndUpdate(context.Background(), "acme", "Call supplier", "alice", completeFunc(baseTime))

	assert.ErrorIs(t, err, domain.ErrInternalInconsistency)
	assert.ErrorIs(t, err, domain.ErrNotFound)
}
