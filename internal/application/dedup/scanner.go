package dedup

import (
	"cmp"
	"context"
	"fmt"
	"log/slog"
	"slices"
	"strings"
	"time"

	"github.com/rezkam/taskguard/internal/domain"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/codes"
	"go.opentelemetry.io/otel/metric"
	"go.opentelemetry.io/otel/trace"
)

// DefaultPageSize is the number of tasks read per ListTasks call during a scan.
const DefaultPageSize = 500

// ScanResult summarises one reconciliation pass.
type ScanResult struct {
	Found   int // groups that needed reconciliation
	Removed int // records deleted
}

// candidate is the part of a task a scan keeps in memory.
type candidate struct {
	id          string
	status      domain.TaskStatus
	assignedAt  time.Time
	description string
	assignedTo  string
}

func (c candidate) rank() rank {
	return rank{assignedAt: c.assignedAt, id: c.id}
}

type groupKey struct {
	tenantID string
	hash     string
}

// group holds the records sharing one identity, split by status.
type group struct {
	key     groupKey
	pending []candidate
	done    []candidate
}

func (g *group) needsReconciliation() bool {
	return len(g.pending) > 1 || len(g.done) > 1
}

// surplus returns the survivors and the records the policy deletes.
func (g *group) surplus() (keptPending, keptDone string, pendingIDs, doneIDs []string) {
	keep := func(cs []candidate, status domain.TaskStatus) (string, []string) {
		if len(cs) == 0 {
			return "", nil
		}
		kept, rest := selectSurvivor(cs, status, candidate.rank)
		ids := make([]string, len(rest))
		for i, c := range rest {
			ids[i] = c.id
		}
		return kept.id, ids
	}

	keptPending, pendingIDs = keep(g.pending, domain.TaskStatusPending)
	keptDone, doneIDs = keep(g.done, domain.TaskStatusDone)
	return keptPending, keptDone, pendingIDs, doneIDs
}

// Scanner sweeps the store for duplicate groups and collapses them with the same
// policy the Resolver applies inline.
type Scanner struct {
	repo     Repository
	cleaner  *cleaner
	pageSize int
	inst     *instruments
}

// NewScanner creates a scanner. Zero config values get defaults.
func NewScanner(repo Repository, activity ActivityLogger, clock domain.Clock, config Config) *Scanner {
	if config.DeleteConcurrency <= 0 {
		config.DeleteConcurrency = DefaultDeleteConcurrency
	}
	if config.PageSize <= 0 {
		config.PageSize = DefaultPageSize
	}

	return &Scanner{
		repo:     repo,
		cleaner:  &cleaner{repo: repo, activity: activity, clock: clock, concurrency: config.DeleteConcurrency},
		pageSize: config.PageSize,
		inst:     newInstruments(),
	}
}

// Scan reconciles one tenant, or every tenant when tenantID is empty.
//
// Per group the most recent pending record and the earliest created done record
// survive. A group never loses its last record, and a second scan over an unchanged
// store reports zero found and zero removed.
func (s *Scanner) Scan(ctx context.Context, tenantID string) (ScanResult, error) {
	reason := domain.CleanupReasonRace
	if tenantID == "" {
		reason = domain.CleanupReasonScheduled
	}

	ctx, span := s.inst.tracer.Start(ctx, "dedup.Scan", trace.WithAttributes(
		attribute.String("tenant_id", tenantID),
		attribute.String("reason", string(reason)),
	))
	defer span.End()

	groups, err := collectGroups(ctx, s.repo, tenantID, s.pageSize)
	if err != nil {
		span.SetStatus(codes.Error, err.Error())
		return ScanResult{}, err
	}

	var result ScanResult
	for _, g := range groups {
		if !g.needsReconciliation() {
			continue
		}
		result.Found++

		keptPending, keptDone, pendingIDs, doneIDs := g.surplus()
		attrs := metric.WithAttributes(attribute.String("tenant_id", g.key.tenantID))
		s.inst.duplicatesFound.Add(ctx, 1, attrs)

		for _, r := range []removal{
			{tenantID: g.key.tenantID, hash: g.key.hash, keptID: keptPending, ids: pendingIDs, reason: reason},
			{tenantID: g.key.tenantID, hash: g.key.hash, keptID: keptDone, ids: doneIDs, reason: reason},
		} {
			removed, err := s.cleaner.remove(ctx, r)
			result.Removed += removed
			s.inst.duplicatesRemoved.Add(ctx, int64(removed), attrs)
			if err != nil {
				span.SetStatus(codes.Error, err.Error())
				return result, fmt.Errorf("failed to reconcile group %s: %w", g.key.hash, err)
			}
		}
	}

	span.SetAttributes(
		attribute.Int("found", result.Found),
		attribute.Int("removed", result.Removed),
	)
	slog.InfoContext(ctx, "Reconciliation scan finished",
		slog.String("tenant_id", tenantID),
		slog.String("reason", string(reason)),
		slog.Int("groups", len(groups)),
		slog.Int("found", result.Found),
		slog.Int("removed", result.Removed))

	return result, nil
}

// collectGroups pages through the scope once and groups compact candidates by
// tenant and identity hash. Groups are returned in a stable order.
//
// Only an empty page ends the sweep: a store may return a short page when records
// vanish between its listing and its reads.
func collectGroups(ctx context.Context, repo Repository, tenantID string, pageSize int) ([]*group, error) {
	index := make(map[groupKey]*group)
	var order []*group

	var afterID, afterTenantID string
	for {
		page, err := repo.ListTasks(ctx, domain.ListTasksParams{
			TenantID:      tenantID,
			AfterID:       afterID,
			AfterTenantID: afterTenantID,
			Limit:         pageSize,
		})
		if err != nil {
			return nil, fmt.Errorf("failed to list tasks after %q: %w", afterID, err)
		}
		if len(page) == 0 {
			break
		}

		for _, t := range page {
			key := groupKey{tenantID: t.TenantID, hash: t.IdentityHash}
			g, ok := index[key]
			if !ok {
				g = &group{key: key}
				index[key] = g
				order = append(order, g)
			}

			c := candidate{
				id:          t.ID,
				status:      t.Status,
				description: t.Description,
				assignedTo:  t.AssignedTo,
			}
			if t.AssignedAt != nil {
				c.assignedAt = *t.AssignedAt
			}

			switch t.Status {
			case domain.TaskStatusPending:
				g.pending = append(g.pending, c)
			case domain.TaskStatusDone:
				g.done = append(g.done, c)
			}
		}

		last := page[len(page)-1]
		afterID, afterTenantID = last.ID, last.TenantID
	}

	slices.SortFunc(order, func(a, b *group) int {
		return cmp.Or(
			strings.Compare(a.key.tenantID, b.key.tenantID),
			strings.Compare(a.key.hash, b.key.hash),
		)
	})
	return order, nil
}
