// Package memory provides an in-process task store.
//
// It offers no conditional insert, so concurrent creations of one identity can leave
// duplicate pending tasks for the resolver and the scanner to collapse. That mirrors
// a document store without multi-document transactions.
package memory

import (
	"context"
	"fmt"
	"slices"
	"strings"
	"sync"

	"github.com/rezkam/taskguard/internal/domain"
)

// Store keeps tasks in a map guarded by a RWMutex. Every read returns a copy.
type Store struct {
	mu    sync.RWMutex
	tasks map[string]*domain.Task
	order []string // insertion order, the "store return order" of FindTasks
}

// NewStore creates an empty store.
func NewStore() *Store {
	return &Store{tasks: make(map[string]*domain.Task)}
}

// InsertTask stores a copy of task.
func (s *Store) InsertTask(_ context.Context, task *domain.Task) (*domain.Task, error) {
	if task.ID == "" {
		return nil, domain.ErrInvalidID
	}

	s.mu.Lock()
	defer s.mu.Unlock()

	if _, exists := s.tasks[task.ID]; exists {
		return nil, fmt.Errorf("%w: task %s already exists", domain.ErrInvalidID, task.ID)
	}
	s.tasks[task.ID] = task.Clone()
	s.order = append(s.order, task.ID)
	return task.Clone(), nil
}

// FindTaskByID returns a copy of the task.
func (s *Store) FindTaskByID(_ context.Context, id string) (*domain.Task, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	t, ok := s.tasks[id]
	if !ok {
		return nil, fmt.Errorf("%w: task %s", domain.ErrNotFound, id)
	}
	return t.Clone(), nil
}

// FindTasks returns matching tasks of one tenant in insertion order.
func (s *Store) FindTasks(_ context.Context, tenantID string, filter domain.TaskFilter) ([]*domain.Task, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	var out []*domain.Task
	for _, id := range s.order {
		t := s.tasks[id]
		if t.TenantID == tenantID && filter.Matches(t) {
			out = append(out, t.Clone())
		}
	}
	return out, nil
}

// UpdateTask applies the masked fields of patch.
func (s *Store) UpdateTask(_ context.Context, id string, patch domain.TaskPatch) (*domain.Task, error) {
	if err := patch.Validate(); err != nil {
		return nil, err
	}

	s.mu.Lock()
	defer s.mu.Unlock()

	t, ok := s.tasks[id]
	if !ok {
		return nil, fmt.Errorf("%w: task %s", domain.ErrNotFound, id)
	}
	patch.Apply(t)
	return t.Clone(), nil
}

// DeleteTask removes a task.
func (s *Store) DeleteTask(_ context.Context, id string) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	if _, ok := s.tasks[id]; !ok {
		return fmt.Errorf("%w: task %s", domain.ErrNotFound, id)
	}
	delete(s.tasks, id)
	s.order = slices.DeleteFunc(s.order, func(v string) bool { return v == id })
	return nil
}

// ListTasks pages through tasks in ascending ID order.
func (s *Store) ListTasks(_ context.Context, params domain.ListTasksParams) ([]*domain.Task, error) {
	if params.Limit <= 0 {
		return nil, &domain.ValidationError{Field: "limit", Reason: "must be positive"}
	}

	s.mu.RLock()
	defer s.mu.RUnlock()

	ids := make([]string, 0, len(s.tasks))
	for id, t := range s.tasks {
		if params.TenantID != "" && t.TenantID != params.TenantID {
			continue
		}
		if params.AfterID != "" && strings.Compare(id, params.AfterID) <= 0 {
			continue
		}
		ids = append(ids, id)
	}
	slices.Sort(ids)

	if len(ids) > params.Limit {
		ids = ids[:params.Limit]
	}
	out := make([]*domain.Task, len(ids))
	for i, id := range ids {
		out[i] = s.tasks[id].Clone()
	}
	return out, nil
}

// Len returns the number of stored tasks.
func (s *Store) Len() int {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return len(s.tasks)
}
