package dedup

import (
	"context"
	"testing"
	"time"

	"github.com/rezkam/taskguard/internal/domain"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestStats_MatchesScan(t *testing.T) {
	repo := newMockRepository()
	seedTask(t, repo, seed{id: "p1", assignedAt: at(0)})
	seedTask(t, repo, seed{id: "p2", assignedAt: at(time.Minute)})
	seedTask(t, repo, seed{id: "d1", status: domain.TaskStatusDone, assignedAt: at(0)})
	seedTask(t, repo, seed{id: "s1", description: "File report"})
	seedTask(t, repo, seed{id: "x1", tenantID: "initech"})

	reporter := NewReporter(repo, Config{})
	stats, err := reporter.Stats(context.Background(), "acme")
	require.NoError(t, err)

	assert.Equal(t, "acme", stats.TenantID)
	assert.Equal(t, 4, stats.TotalTasks)
	assert.Equal(t, 2, stats.UniqueIdentities)
	assert.Equal(t, 1, stats.DuplicateGroups)
	assert.Equal(t, 1, stats.TotalDuplicates)
	require.Len(t, stats.Groups, 1)

	group := stats.Groups[0]
	assert.Equal(t, "Call supplier", group.Description)
	assert.Equal(t, "alice", group.AssignedTo)
	assert.Equal(t, 2, group.Pending)
	assert.Equal(t, 1, group.Done)
	assert.ElementsMatch(t, []string{"p1", "p2", "d1"}, group.TaskIDs)

	assert.Equal(t, 5, repo.store.Len(), "stats never writes")

	result, err := newTestScanner(repo, &recordingActivity{}, 0).Scan(context.Background(), "acme")
	require.NoError(t, err)
	assert.Equal(t, stats.DuplicateGroups, result.Found)
	assert.Equal(t, stats.TotalDuplicates, result.Removed)
}

func TestStats_EmptyStore(t *testing.T) {
	stats, err := NewReporter(newMockRepository(), Config{}).Stats(context.Background(), "")
	require.NoError(t, err)

	assert.Zero(t, stats.TotalTasks)
	assert.Empty(t, stats.Groups)
}
