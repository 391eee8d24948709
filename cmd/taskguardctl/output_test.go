package main

import (
	"bytes"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"gopkg.in/yaml.v3"

	"github.com/rezkam/taskguard/internal/application/dedup"
	"github.com/rezkam/taskguard/internal/domain"
	"github.com/rezkam/taskguard/internal/ptr"
)

func TestPrinter_StatsTable(t *testing.T) {
	var buf bytes.Buffer
	p, err := newPrinter(formatTable, &buf)
	require.NoError(t, err)

	require.NoError(t, p.stats(&domain.ReconciliationStats{
		TenantID:         "acme",
		TotalTasks:       3,
		UniqueIdentities: 1,
		DuplicateGroups:  1,
		TotalDuplicates:  2,
		Groups: []domain.DuplicateGroup{{
			TenantID:    "acme",
			Description: "Call client",
			AssignedTo:  "bob",
			Pending:     3,
			TaskIDs:     []string{"a", "b", "c"},
		}},
	}))

	out := buf.String()
	assert.Contains(t, out, "DUPLICATE GROUPS")
	assert.Contains(t, out, "Call client")
	assert.Contains(t, out, "acme")
}

func TestPrinter_StatsTableSkipsEmptyGroups(t *testing.T) {
	var buf bytes.Buffer
	p, err := newPrinter(formatTable, &buf)
	require.NoError(t, err)

	require.NoError(t, p.stats(&domain.ReconciliationStats{TotalTasks: 1, UniqueIdentities: 1}))
	assert.Contains(t, buf.String(), "all tenants")
	assert.NotContains(t, buf.String(), "ASSIGNED TO")
}

func TestPrinter_ScanYAML(t *testing.T) {
	var buf bytes.Buffer
	p, err := newPrinter(formatYAML, &buf)
	require.NoError(t, err)

	require.NoError(t, p.scan("acme", dedup.ScanResult{Found: 2, Removed: 5}))

	var got scanView
	require.NoError(t, yaml.Unmarshal(buf.Bytes(), &got))
	assert.Equal(t, scanView{Tenant: "acme", Found: 2, Removed: 5}, got)
}

func TestPrinter_TaskOmitsUnsetTimes(t *testing.T) {
	var buf bytes.Buffer
	p, err := newPrinter(formatYAML, &buf)
	require.NoError(t, err)

	assigned := time.Date(2024, 3, 1, 9, 30, 0, 0, time.UTC)
	require.NoError(t, p.task(&domain.Task{
		ID:          "t1",
		TenantID:    "acme",
		Description: "Call client",
		AssignedTo:  "bob",
		GivenBy:     "alice",
		Status:      domain.TaskStatusPending,
		Priority:    domain.TaskPriorityHigh,
		AssignedAt:  ptr.To(assigned),
	}, true))

	out := buf.String()
	assert.Contains(t, out, "2024-03-01T09:30:00Z")
	assert.NotContains(t, out, "completed_at")
	assert.Contains(t, out, "created: true")
}
