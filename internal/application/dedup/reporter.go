package dedup

import (
	"context"

	"github.com/rezkam/taskguard/internal/domain"
)

// Reporter computes duplicate statistics without writing anything.
type Reporter struct {
	repo     Repository
	pageSize int
}

// NewReporter creates a reporter. Zero PageSize gets the default.
func NewReporter(repo Repository, config Config) *Reporter {
	if config.PageSize <= 0 {
		config.PageSize = DefaultPageSize
	}
	return &Reporter{repo: repo, pageSize: config.PageSize}
}

// Stats reports duplicate groups in one tenant, or every tenant when tenantID is empty.
// TotalDuplicates equals the number of records a Scan of the same scope would remove.
func (r *Reporter) Stats(ctx context.Context, tenantID string) (*domain.ReconciliationStats, error) {
	groups, err := collectGroups(ctx, r.repo, tenantID, r.pageSize)
	if err != nil {
		return nil, err
	}

	stats := &domain.ReconciliationStats{
		TenantID:         tenantID,
		UniqueIdentities: len(groups),
		Groups:           []domain.DuplicateGroup{},
	}

	for _, g := range groups {
		stats.TotalTasks += len(g.pending) + len(g.done)
		if !g.needsReconciliation() {
			continue
		}

		_, _, pendingIDs, doneIDs := g.surplus()
		stats.DuplicateGroups++
		stats.TotalDuplicates += len(pendingIDs) + len(doneIDs)

		sample := firstCandidate(g)
		dg := domain.DuplicateGroup{
			TenantID:     g.key.tenantID,
			IdentityHash: g.key.hash,
			Description:  sample.description,
			AssignedTo:   sample.assignedTo,
			Pending:      len(g.pending),
			Done:         len(g.done),
		}
		for _, c := range g.pending {
			dg.TaskIDs = append(dg.TaskIDs, c.id)
		}
		for _, c := range g.done {
			dg.TaskIDs = append(dg.TaskIDs, c.id)
		}
		stats.Groups = append(stats.Groups, dg)
	}

	return stats, nil
}

func firstCandidate(g *group) candidate {
	if len(g.pending) > 0 {
		return g.pending[0]
	}
	return g.done[0]
}
