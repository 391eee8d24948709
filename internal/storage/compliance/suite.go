// Package compliance holds the behavioural test suite every task store backend
// must pass.
package compliance

import (
	"context"
	"encoding/json"
	"sync"
	"testing"
	"time"

	"github.com/google/uuid"
	"github.com/rezkam/taskguard/internal/application/activity"
	"github.com/rezkam/taskguard/internal/application/dedup"
	"github.com/rezkam/taskguard/internal/application/worker"
	"github.com/rezkam/taskguard/internal/domain"
	"github.com/rezkam/taskguard/internal/ptr"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

// Setup returns a fresh, empty store and a teardown function.
type Setup func(t *testing.T) (dedup.Repository, func())

// baseTime is truncated to microseconds, the PostgreSQL timestamp precision.
var baseTime = time.Date(2024, 1, 1, 9, 0, 0, 123456000, time.UTC)

func newTask(tenantID, description string, status domain.TaskStatus, assignedAt *time.Time) *domain.Task {
	id, _ := uuid.NewV7()
	t := &domain.Task{
		ID:           id.String(),
		TenantID:     tenantID,
		Description:  description,
		AssignedTo:   "alice",
		GivenBy:      "bob",
		ClientName:   "Globex",
		Deadline:     "2024-03-01",
		IdentityHash: domain.IdentityHash(tenantID, description, "alice", "Globex", "2024-03-01", "bob"),
		Status:       domain.TaskStatusPending,
		Priority:     domain.TaskPriorityHigh,
		AssignedAt:   assignedAt,
	}
	if status == domain.TaskStatusDone {
		_ = t.Complete(baseTime.Add(time.Hour))
	}
	return t
}

func ids(tasks []*domain.Task) []string {
	out := make([]string, len(tasks))
	for i, t := range tasks {
		out[i] = t.ID
	}
	return out
}

// RunRepositoryComplianceTest runs the standard suite against a backend.
// Optional capabilities (conditional insert, activity sink, lease coordinator)
// are exercised when the store implements them.
func RunRepositoryComplianceTest(t *testing.T, setup Setup) {
	t.Run("InsertAndFindByID", func(t *testing.T) {
		store, teardown := setup(t)
		defer teardown()
		ctx := context.Background()

		task := newTask("acme", "Call supplier", domain.TaskStatusPending, ptr.To(baseTime))
		task.Comments = json.RawMessage(`[{"by":"bob","text":"asap"}]`)

		inserted, err := store.InsertTask(ctx, task)
		require.NoError(t, err)
		assert.Equal(t, task.ID, inserted.ID)

		fetched, err := store.FindTaskByID(ctx, task.ID)
		require.NoError(t, err)
		assert.Equal(t, task.TenantID, fetched.TenantID)
		assert.Equal(t, task.Description, fetched.Description)
		assert.Equal(t, task.ClientName, fetched.ClientName)
		assert.Equal(t, task.Deadline, fetched.Deadline)
		assert.Equal(t, task.IdentityHash, fetched.IdentityHash)
		assert.Equal(t, domain.TaskStatusPending, fetched.Status)
		assert.Equal(t, domain.TaskPriorityHigh, fetched.Priority)
		require.NotNil(t, fetched.AssignedAt)
		assert.True(t, baseTime.Equal(*fetched.AssignedAt))
		assert.Nil(t, fetched.CompletedAt)
		assert.Empty(t, fetched.Elapsed)
		assert.JSONEq(t, string(task.Comments), string(fetched.Comments))
		assert.Empty(t, fetched.Notes)
	})

	t.Run("MissingAssignedAtRoundTrips", func(t *testing.T) {
		store, teardown := setup(t)
		defer teardown()
		ctx := context.Background()

		task := newTask("acme", "Legacy", domain.TaskStatusPending, nil)
		_, err := store.InsertTask(ctx, task)
		require.NoError(t, err)

		fetched, err := store.FindTaskByID(ctx, task.ID)
		require.NoError(t, err)
		assert.Nil(t, fetched.AssignedAt)
	})

	t.Run("FindByIDNotFound", func(t *testing.T) {
		store, teardown := setup(t)
		defer teardown()

		_, err := store.FindTaskByID(context.Background(), uuid.NewString())
		assert.ErrorIs(t, err, domain.ErrNotFound)
	})

	t.Run("FindTasksFilters", func(t *testing.T) {
		store, teardown := setup(t)
		defer teardown()
		ctx := context.Background()

		pending := newTask("acme", "Call supplier", domain.TaskStatusPending, ptr.To(baseTime))
		done := newTask("acme", "Call supplier", domain.TaskStatusDone, ptr.To(baseTime))
		other := newTask("acme", "File report", domain.TaskStatusPending, ptr.To(baseTime))
		foreign := newTask("initech", "Call supplier", domain.TaskStatusPending, ptr.To(baseTime))
		carol := newTask("acme", "Call supplier", domain.TaskStatusPending, ptr.To(baseTime))
		carol.AssignedTo = "carol"
		carol.IdentityHash = domain.IdentityHash("acme", "Call supplier", "carol", "Globex", "2024-03-01", "bob")
		for _, task := range []*domain.Task{pending, done, other, foreign, carol} {
			_, err := store.InsertTask(ctx, task)
			require.NoError(t, err)
		}

		byIdentity, err := store.FindTasks(ctx, "acme", domain.TaskFilter{
			IdentityHash: &pending.IdentityHash,
			Status:       ptr.To(domain.TaskStatusPending),
		})
		require.NoError(t, err)
		assert.Equal(t, []string{pending.ID}, ids(byIdentity))

		byAssignee, err := store.FindTasks(ctx, "acme", domain.TaskFilter{AssignedTo: ptr.To("alice")})
		require.NoError(t, err)
		assert.ElementsMatch(t, []string{pending.ID, done.ID, other.ID}, ids(byAssignee))

		all, err := store.FindTasks(ctx, "initech", domain.TaskFilter{})
		require.NoError(t, err)
		assert.Equal(t, []string{foreign.ID}, ids(all))

		none, err := store.FindTasks(ctx, "globex", domain.TaskFilter{})
		require.NoError(t, err)
		assert.Empty(t, none)
	})

	t.Run("UpdateTaskTransition", func(t *testing.T) {
		store, teardown := setup(t)
		defer teardown()
		ctx := context.Background()

		task := newTask("acme", "Call supplier", domain.TaskStatusPending, ptr.To(baseTime))
		_, err := store.InsertTask(ctx, task)
		require.NoError(t, err)

		completed := task.Clone()
		require.NoError(t, completed.Complete(baseTime.Add(26*time.Hour+15*time.Minute)))
		updated, err := store.UpdateTask(ctx, task.ID, domain.TransitionPatch(completed))
		require.NoError(t, err)
		assert.Equal(t, domain.TaskStatusDone, updated.Status)
		assert.Equal(t, "1 days, 2:15:00", updated.Elapsed)
		require.NotNil(t, updated.CompletedAt)
		assert.True(t, completed.CompletedAt.Equal(*updated.CompletedAt))

		reverted := updated.Clone()
		require.True(t, reverted.Revert())
		updated, err = store.UpdateTask(ctx, task.ID, domain.TransitionPatch(reverted))
		require.NoError(t, err)
		assert.Equal(t, domain.TaskStatusPending, updated.Status)
		assert.Nil(t, updated.CompletedAt)
		assert.Empty(t, updated.Elapsed)

		fetched, err := store.FindTaskByID(ctx, task.ID)
		require.NoError(t, err)
		assert.Equal(t, domain.TaskStatusPending, fetched.Status)
		assert.Equal(t, task.Description, fetched.Description, "unmasked fields untouched")
	})

	t.Run("UpdateTaskClearsMaskedField", func(t *testing.T) {
		store, teardown := setup(t)
		defer teardown()
		ctx := context.Background()

		task := newTask("acme", "Call supplier", domain.TaskStatusPending, ptr.To(baseTime))
		task.Notes = json.RawMessage(`{"k":"v"}`)
		_, err := store.InsertTask(ctx, task)
		require.NoError(t, err)

		updated, err := store.UpdateTask(ctx, task.ID, domain.TaskPatch{
			UpdateMask: []string{domain.FieldNotes, domain.FieldPriority},
			Priority:   ptr.To(domain.TaskPriorityLow),
		})
		require.NoError(t, err)
		assert.Empty(t, updated.Notes)
		assert.Equal(t, domain.TaskPriorityLow, updated.Priority)
	})

	t.Run("UpdateTaskErrors", func(t *testing.T) {
		store, teardown := setup(t)
		defer teardown()
		ctx := context.Background()

		_, err := store.UpdateTask(ctx, uuid.NewString(), domain.TaskPatch{
			UpdateMask: []string{domain.FieldPriority},
			Priority:   ptr.To(domain.TaskPriorityLow),
		})
		assert.ErrorIs(t, err, domain.ErrNotFound)

		_, err = store.UpdateTask(ctx, uuid.NewString(), domain.TaskPatch{})
		assert.ErrorIs(t, err, domain.ErrEmptyUpdateMask)
	})

	t.Run("DeleteTask", func(t *testing.T) {
		store, teardown := setup(t)
		defer teardown()
		ctx := context.Background()

		task := newTask("acme", "Call supplier", domain.TaskStatusPending, ptr.To(baseTime))
		_, err := store.InsertTask(ctx, task)
		require.NoError(t, err)

		require.NoError(t, store.DeleteTask(ctx, task.ID))

		_, err = store.FindTaskByID(ctx, task.ID)
		assert.ErrorIs(t, err, domain.ErrNotFound)
		assert.ErrorIs(t, store.DeleteTask(ctx, task.ID), domain.ErrNotFound)
	})

	t.Run("ListTasksPaging", func(t *testing.T) {
		store, teardown := setup(t)
		defer teardown()
		ctx := context.Background()

		var acme []string
		for i := range 5 {
			task := newTask("acme", "Task", domain.TaskStatusPending, ptr.To(baseTime.Add(time.Duration(i)*time.Minute)))
			_, err := store.InsertTask(ctx, task)
			require.NoError(t, err)
			acme = append(acme, task.ID)
		}
		foreign := newTask("initech", "Task", domain.TaskStatusPending, ptr.To(baseTime))
		_, err := store.InsertTask(ctx, foreign)
		require.NoError(t, err)

		var seen []string
		afterID := ""
		for {
			page, err := store.ListTasks(ctx, domain.ListTasksParams{TenantID: "acme", AfterID: afterID, Limit: 2})
			require.NoError(t, err)
			assert.LessOrEqual(t, len(page), 2)
			seen = append(seen, ids(page)...)
			if len(page) < 2 {
				break
			}
			afterID = page[len(page)-1].ID
		}
		// UUIDv7 ids sort in creation order.
		assert.Equal(t, acme, seen)

		all, err := store.ListTasks(ctx, domain.ListTasksParams{Limit: 100})
		require.NoError(t, err)
		assert.Len(t, all, 6)

		_, err = store.ListTasks(ctx, domain.ListTasksParams{Limit: 0})
		assert.ErrorIs(t, err, domain.ErrValidation)
	})

	t.Run("ListTasksPagingAllTenants", func(t *testing.T) {
		store, teardown := setup(t)
		defer teardown()
		ctx := context.Background()

		want := make(map[string]bool)
		for _, tenant := range []string{"acme", "initech", "globex"} {
			for range 3 {
				task := newTask(tenant, "Task", domain.TaskStatusPending, ptr.To(baseTime))
				_, err := store.InsertTask(ctx, task)
				require.NoError(t, err)
				want[task.ID] = true
			}
		}

		seen := make(map[string]bool)
		params := domain.ListTasksParams{Limit: 2}
		for {
			page, err := store.ListTasks(ctx, params)
			require.NoError(t, err)
			if len(page) == 0 {
				break
			}
			for _, task := range page {
				assert.False(t, seen[task.ID], "task %s listed twice", task.ID)
				seen[task.ID] = true
			}
			last := page[len(page)-1]
			params.AfterID, params.AfterTenantID = last.ID, last.TenantID
		}
		assert.Equal(t, want, seen)
	})

	t.Run("ResolverAndScannerEndToEnd", func(t *testing.T) {
		store, teardown := setup(t)
		defer teardown()
		ctx := context.Background()

		clock := domain.ClockFunc(func() time.Time { return baseTime })
		resolver := dedup.NewResolver(store, activity.Nop{}, clock, dedup.Config{})
		scanner := dedup.NewScanner(store, activity.Nop{}, clock, dedup.Config{PageSize: 2})

		params := domain.CreateTaskParams{TenantID: "acme", Description: "Call supplier", AssignedTo: "alice", GivenBy: "bob"}
		first, created, err := resolver.CreateOrGetExisting(ctx, params)
		require.NoError(t, err)
		assert.True(t, created)

		// Simulate a lost race by inserting a duplicate directly.
		dup := first.Clone()
		dup.ID = uuid.NewString()
		dup.AssignedAt = ptr.To(baseTime.Add(-time.Minute))
		_, err = store.InsertTask(ctx, dup)
		require.NoError(t, err)

		result, err := scanner.Scan(ctx, "acme")
		require.NoError(t, err)
		assert.Equal(t, dedup.ScanResult{Found: 1, Removed: 1}, result)

		again, err := scanner.Scan(ctx, "acme")
		require.NoError(t, err)
		assert.Equal(t, dedup.ScanResult{}, again)

		survivor, created, err := resolver.CreateOrGetExisting(ctx, params)
		require.NoError(t, err)
		assert.False(t, created)
		assert.Equal(t, first.ID, survivor.ID)
	})

	t.Run("ConditionalInsert", func(t *testing.T) {
		store, teardown := setup(t)
		defer teardown()

		ci, ok := store.(dedup.ConditionalInserter)
		if !ok {
			t.Skip("backend has no conditional insert")
		}
		ctx := context.Background()

		const callers = 8
		var (
			wg      sync.WaitGroup
			mu      sync.Mutex
			created int
			winners = map[string]struct{}{}
		)
		for range callers {
			wg.Add(1)
			go func() {
				defer wg.Done()
				task := newTask("acme", "Call supplier", domain.TaskStatusPending, ptr.To(baseTime))
				got, ok, err := ci.InsertTaskIfAbsent(ctx, task)
				if !assert.NoError(t, err) {
					return
				}
				mu.Lock()
				defer mu.Unlock()
				if ok {
					created++
				}
				winners[got.ID] = struct{}{}
			}()
		}
		wg.Wait()

		assert.Equal(t, 1, created)
		assert.Len(t, winners, 1)

		pending, err := store.FindTasks(ctx, "acme", domain.TaskFilter{Status: ptr.To(domain.TaskStatusPending)})
		require.NoError(t, err)
		assert.Len(t, pending, 1)
	})

	t.Run("ActivitySink", func(t *testing.T) {
		store, teardown := setup(t)
		defer teardown()

		sink, ok := store.(activity.Sink)
		if !ok {
			t.Skip("backend is not an activity sink")
		}
		ctx := context.Background()

		event := domain.ActivityEvent{
			ID:         uuid.NewString(),
			Type:       domain.ActivityTaskDuplicateDeleted,
			TenantID:   "acme",
			TaskID:     uuid.NewString(),
			KeptTaskID: uuid.NewString(),
			Reason:     domain.CleanupReasonScheduled,
			OccurredAt: baseTime,
		}
		require.NoError(t, sink.RecordActivity(ctx, event))
		require.NoError(t, sink.RecordActivity(ctx, event), "redelivery is ignored")
	})

	t.Run("ExclusiveRunLease", func(t *testing.T) {
		store, teardown := setup(t)
		defer teardown()

		coordinator, ok := store.(worker.Coordinator)
		if !ok {
			t.Skip("backend is not a lease coordinator")
		}
		ctx := context.Background()

		release, acquired, err := coordinator.TryAcquireExclusiveRun(ctx, "scan", "worker-a", time.Minute)
		require.NoError(t, err)
		require.True(t, acquired)

		_, acquired, err = coordinator.TryAcquireExclusiveRun(ctx, "scan", "worker-b", time.Minute)
		require.NoError(t, err)
		assert.False(t, acquired, "lease held by worker-a")

		release()

		releaseB, acquired, err := coordinator.TryAcquireExclusiveRun(ctx, "scan", "worker-b", time.Minute)
		require.NoError(t, err)
		assert.True(t, acquired)
		releaseB()
	})

	t.Run("ExpiredLeaseIsTakenOver", func(t *testing.T) {
		store, teardown := setup(t)
		defer teardown()

		coordinator, ok := store.(worker.Coordinator)
		if !ok {
			t.Skip("backend is not a lease coordinator")
		}
		ctx := context.Background()

		_, acquired, err := coordinator.TryAcquireExclusiveRun(ctx, "scan", "crashed", -time.Minute)
		require.NoError(t, err)
		require.True(t, acquired)

		release, acquired, err := coordinator.TryAcquireExclusiveRun(ctx, "scan", "worker-b", time.Minute)
		require.NoError(t, err)
		assert.True(t, acquired)
		release()
	})
}
