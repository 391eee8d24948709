package dedup

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"strings"

	"github.com/google/uuid"
	"github.com/rezkam/taskguard/internal/domain"
	"github.com/rezkam/taskguard/internal/ptr"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/codes"
	"go.opentelemetry.io/otel/metric"
	"go.opentelemetry.io/otel/trace"
)

// UpdateFunc derives the patch applied to the canonical pending task.
// It receives a copy; returning a patch with an empty mask skips the write.
type UpdateFunc func(task domain.Task) (domain.TaskPatch, error)

// Config holds configuration for the Resolver and the Scanner.
type Config struct {
	DeleteConcurrency int // parallel deletions per duplicate group
	PageSize          int // scanner page size
}

// Resolver creates tasks idempotently and addresses tasks by identity instead of ID,
// collapsing duplicates it meets on the way.
//
// Resolver holds no state between calls. Concurrent callers are not serialised here;
// backends implementing ConditionalInserter close the creation race, the Scanner
// repairs whatever slips through on the others.
type Resolver struct {
	repo     Repository
	activity ActivityLogger
	clock    domain.Clock
	cleaner  *cleaner
	inst     *instruments
}

// NewResolver creates a resolver. Zero config values get defaults.
func NewResolver(repo Repository, activity ActivityLogger, clock domain.Clock, config Config) *Resolver {
	if config.DeleteConcurrency <= 0 {
		config.DeleteConcurrency = DefaultDeleteConcurrency
	}

	return &Resolver{
		repo:     repo,
		activity: activity,
		clock:    clock,
		cleaner:  &cleaner{repo: repo, activity: activity, clock: clock, concurrency: config.DeleteConcurrency},
		inst:     newInstruments(),
	}
}

// CreateOrGetExisting returns the pending task with the identity of params, creating
// it when none exists. The boolean reports whether a new task was inserted.
// Surplus pending duplicates found during the lookup are deleted.
func (r *Resolver) CreateOrGetExisting(ctx context.Context, params domain.CreateTaskParams) (*domain.Task, bool, error) {
	identity, err := domain.NewIdentity(params.Identity())
	if err != nil {
		return nil, false, err
	}
	priority, err := domain.NewTaskPriority(params.Priority)
	if err != nil {
		return nil, false, err
	}
	hash := identity.Hash()

	ctx, span := r.inst.tracer.Start(ctx, "dedup.CreateOrGetExisting", trace.WithAttributes(
		attribute.String("tenant_id", identity.TenantID),
		attribute.String("identity_hash", hash),
	))
	defer span.End()

	matches, err := r.repo.FindTasks(ctx, identity.TenantID, domain.TaskFilter{
		IdentityHash: &hash,
		Status:       ptr.To(domain.TaskStatusPending),
	})
	if err != nil {
		span.SetStatus(codes.Error, err.Error())
		return nil, false, fmt.Errorf("failed to look up pending tasks: %w", err)
	}

	switch len(matches) {
	case 0:
		task, created, err := r.insert(ctx, identity, hash, priority, params)
		if err != nil {
			span.SetStatus(codes.Error, err.Error())
			return nil, false, err
		}
		span.SetAttributes(attribute.Bool("created", created))
		return task, created, nil

	case 1:
		r.inst.tasksDeduplicated.Add(ctx, 1, metric.WithAttributes(attribute.String("tenant_id", identity.TenantID)))
		return matches[0], false, nil

	default:
		keep, surplus := KeepPending(matches)
		r.collapse(ctx, keep, surplus)
		r.inst.tasksDeduplicated.Add(ctx, 1, metric.WithAttributes(attribute.String("tenant_id", identity.TenantID)))
		return keep, false, nil
	}
}

func (r *Resolver) insert(ctx context.Context, identity domain.Identity, hash string, priority domain.TaskPriority, params domain.CreateTaskParams) (*domain.Task, bool, error) {
	id, err := uuid.NewV7()
	if err != nil {
		return nil, false, fmt.Errorf("failed to generate id: %w", err)
	}

	now := r.clock.Now().UTC()
	task := &domain.Task{
		ID:           id.String(),
		TenantID:     identity.TenantID,
		Description:  identity.Description,
		AssignedTo:   identity.AssignedTo,
		GivenBy:      identity.GivenBy,
		ClientName:   identity.ClientName,
		Deadline:     identity.Deadline,
		IdentityHash: hash,
		Status:       domain.TaskStatusPending,
		Priority:     priority,
		AssignedAt:   &now,
		Comments:     params.Comments,
		Notes:        params.Notes,
	}

	var (
		stored  *domain.Task
		created = true
	)
	if ci, ok := r.repo.(ConditionalInserter); ok {
		stored, created, err = ci.InsertTaskIfAbsent(ctx, task)
	} else {
		stored, err = r.repo.InsertTask(ctx, task)
	}
	if err != nil {
		return nil, false, fmt.Errorf("failed to insert task: %w", err)
	}
	if stored == nil {
		return nil, false, fmt.Errorf("%w: insert of %s returned no task", domain.ErrInternalInconsistency, hash)
	}

	attrs := metric.WithAttributes(attribute.String("tenant_id", identity.TenantID))
	if !created {
		r.inst.tasksDeduplicated.Add(ctx, 1, attrs)
		return stored, false, nil
	}

	r.inst.tasksCreated.Add(ctx, 1, attrs)
	r.activity.Log(ctx, domain.ActivityEvent{
		Type:         domain.ActivityTaskCreated,
		TenantID:     stored.TenantID,
		TaskID:       stored.ID,
		IdentityHash: hash,
		OccurredAt:   now,
	})
	return stored, true, nil
}

// ResolveAndUpdate addresses a task by tenant, description and assignee.
//
// When pending matches exist, the policy picks the canonical one, fn's patch is
// written to it and the other pending matches sharing its identity hash are
// deleted. Matches from other identities (a different deadline, client or
// assigner) are left alone. When only done matches
// exist nothing is written and the earliest created done task is returned.
// Returns domain.ErrNotFound when nothing matches.
func (r *Resolver) ResolveAndUpdate(ctx context.Context, tenantID, description, assignedTo string, fn UpdateFunc) (*domain.Task, error) {
	tenantID = strings.TrimSpace(tenantID)
	assignedTo = strings.TrimSpace(assignedTo)
	switch {
	case tenantID == "":
		return nil, &domain.ValidationError{Field: "tenant_id", Reason: "is required"}
	case strings.TrimSpace(description) == "":
		return nil, &domain.ValidationError{Field: "description", Reason: "is required"}
	case assignedTo == "":
		return nil, &domain.ValidationError{Field: "assigned_to", Reason: "is required"}
	}

	ctx, span := r.inst.tracer.Start(ctx, "dedup.ResolveAndUpdate", trace.WithAttributes(
		attribute.String("tenant_id", tenantID),
	))
	defer span.End()

	candidates, err := r.repo.FindTasks(ctx, tenantID, domain.TaskFilter{AssignedTo: &assignedTo})
	if err != nil {
		span.SetStatus(codes.Error, err.Error())
		return nil, fmt.Errorf("failed to look up tasks: %w", err)
	}

	want := domain.NormalizeDescription(description)
	var matches []*domain.Task
	for _, t := range candidates {
		if domain.NormalizeDescription(t.Description) == want {
			matches = append(matches, t)
		}
	}

	pending, done := partition(matches)
	switch {
	case len(pending) > 0:
		keep, surplus := KeepPending(pending)
		updated, err := r.apply(ctx, keep, fn)
		if err != nil {
			span.SetStatus(codes.Error, err.Error())
			return nil, err
		}
		r.collapse(ctx, keep, sameIdentity(keep, surplus))
		return updated, nil

	case len(done) > 0:
		keep, _ := KeepDone(done)
		return keep, nil

	default:
		return nil, fmt.Errorf("%w: no task %q assigned to %s", domain.ErrNotFound, description, assignedTo)
	}
}

func (r *Resolver) apply(ctx context.Context, task *domain.Task, fn UpdateFunc) (*domain.Task, error) {
	patch, err := fn(*task.Clone())
	if err != nil {
		return nil, err
	}
	if len(patch.UpdateMask) == 0 {
		return task, nil
	}
	if err := patch.Validate(); err != nil {
		return nil, err
	}

	updated, err := r.repo.UpdateTask(ctx, task.ID, patch)
	if errors.Is(err, domain.ErrNotFound) {
		// Deleted by a concurrent resolver that saw a newer pending record.
		return nil, fmt.Errorf("%w: canonical task %s disappeared during resolution: %w",
			domain.ErrInternalInconsistency, task.ID, err)
	}
	if err != nil {
		return nil, fmt.Errorf("failed to update task: %w", err)
	}
	return updated, nil
}

func sameIdentity(keep *domain.Task, tasks []*domain.Task) []*domain.Task {
	var out []*domain.Task
	for _, t := range tasks {
		if t.IdentityHash == keep.IdentityHash {
			out = append(out, t)
		}
	}
	return out
}

// collapse deletes inline duplicates of keep. Failures are logged only: the
// canonical task is already established and the Scanner retries the rest.
func (r *Resolver) collapse(ctx context.Context, keep *domain.Task, surplus []*domain.Task) {
	if len(surplus) == 0 {
		return
	}

	attrs := metric.WithAttributes(attribute.String("tenant_id", keep.TenantID))
	r.inst.duplicatesFound.Add(ctx, 1, attrs)

	removed, err := r.cleaner.remove(ctx, removal{
		tenantID: keep.TenantID,
		hash:     keep.IdentityHash,
		keptID:   keep.ID,
		ids:      taskIDs(surplus),
		reason:   domain.CleanupReasonRace,
	})
	r.inst.duplicatesRemoved.Add(ctx, int64(removed), attrs)
	if err != nil {
		slog.WarnContext(ctx, "Inline duplicate cleanup incomplete",
			slog.String("tenant_id", keep.TenantID),
			slog.String("kept_task_id", keep.ID),
			slog.Int("removed", removed),
			slog.Int("surplus", len(surplus)),
			slog.String("error", err.Error()))
	}
}
