// Package lifecycle moves tasks between pending and done.
//
// Identity-addressed transitions always go through the dedup resolver so that a
// completion never lands on a duplicate that the next scan would delete.
package lifecycle

import (
	"context"
	"errors"
	"fmt"

	"github.com/rezkam/taskguard/internal/application/dedup"
	"github.com/rezkam/taskguard/internal/domain"
)

// Repository is the subset of the task store used for ID-addressed transitions.
type Repository interface {
	FindTaskByID(ctx context.Context, id string) (*domain.Task, error)
	UpdateTask(ctx context.Context, id string, patch domain.TaskPatch) (*domain.Task, error)
}

// Resolver addresses tasks by identity.
type Resolver interface {
	ResolveAndUpdate(ctx context.Context, tenantID, description, assignedTo string, fn dedup.UpdateFunc) (*domain.Task, error)
}

// Engine applies status transitions and reports them as activity events.
type Engine struct {
	repo     Repository
	resolver Resolver
	activity dedup.ActivityLogger
	clock    domain.Clock
}

// NewEngine creates a transition engine.
func NewEngine(repo Repository, resolver Resolver, activity dedup.ActivityLogger, clock domain.Clock) *Engine {
	return &Engine{
		repo:     repo,
		resolver: resolver,
		activity: activity,
		clock:    clock,
	}
}

// CompleteByIdentity completes the canonical pending task of an identity.
// When only done tasks match, the earliest one is returned unchanged.
func (e *Engine) CompleteByIdentity(ctx context.Context, tenantID, description, assignedTo string) (*domain.Task, error) {
	completed := false
	task, err := e.resolver.ResolveAndUpdate(ctx, tenantID, description, assignedTo,
		func(t domain.Task) (domain.TaskPatch, error) {
			if err := t.Complete(e.clock.Now()); err != nil {
				return domain.TaskPatch{}, err
			}
			completed = true
			return domain.TransitionPatch(&t), nil
		})
	if err != nil {
		return nil, err
	}

	if completed {
		e.record(ctx, domain.ActivityTaskCompleted, task)
	}
	return task, nil
}

// RevertByIdentity reopens a task addressed by identity.
//
// A pending match is returned unchanged. When only done tasks match, the one the
// resolver returns is reverted by ID; no pending task exists for the identity at that
// point, so the revert cannot create a duplicate.
func (e *Engine) RevertByIdentity(ctx context.Context, tenantID, description, assignedTo string) (*domain.Task, error) {
	task, err := e.resolver.ResolveAndUpdate(ctx, tenantID, description, assignedTo,
		func(domain.Task) (domain.TaskPatch, error) {
			return domain.TaskPatch{}, nil
		})
	if err != nil {
		return nil, err
	}
	if task.IsPending() {
		return task, nil
	}
	return e.RevertByID(ctx, task.ID)
}

// CompleteByID completes a task by its store ID.
// Completing a task that is already done returns domain.ErrInvalidTransition.
func (e *Engine) CompleteByID(ctx context.Context, id string) (*domain.Task, error) {
	task, err := e.find(ctx, id)
	if err != nil {
		return nil, err
	}

	if err := task.Complete(e.clock.Now()); err != nil {
		return nil, err
	}

	updated, err := e.repo.UpdateTask(ctx, id, domain.TransitionPatch(task))
	if err != nil {
		return nil, fmt.Errorf("failed to complete task: %w", err)
	}

	e.record(ctx, domain.ActivityTaskCompleted, updated)
	return updated, nil
}

// RevertByID reopens a task by its store ID. Reverting a pending task is a no-op.
func (e *Engine) RevertByID(ctx context.Context, id string) (*domain.Task, error) {
	task, err := e.find(ctx, id)
	if err != nil {
		return nil, err
	}

	if !task.Revert() {
		return task, nil
	}

	updated, err := e.repo.UpdateTask(ctx, id, domain.TransitionPatch(task))
	if err != nil {
		return nil, fmt.Errorf("failed to revert task: %w", err)
	}

	e.record(ctx, domain.ActivityTaskReverted, updated)
	return updated, nil
}

func (e *Engine) find(ctx context.Context, id string) (*domain.Task, error) {
	if id == "" {
		return nil, domain.ErrInvalidID
	}

	task, err := e.repo.FindTaskByID(ctx, id)
	if err != nil {
		if errors.Is(err, domain.ErrNotFound) {
			return nil, err
		}
		return nil, fmt.Errorf("failed to find task: %w", err)
	}
	return task, nil
}

func (e *Engine) record(ctx context.Context, typ domain.ActivityType, task *domain.Task) {
	e.activity.Log(ctx, domain.ActivityEvent{
		Type:         typ,
		TenantID:     task.TenantID,
		TaskID:       task.ID,
		IdentityHash: task.IdentityHash,
		OccurredAt:   e.clock.Now(),
	})
}
