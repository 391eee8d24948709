package postgres

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/jackc/pgx/v5"
	"github.com/rezkam/taskguard/internal/domain"
)

const taskColumns = `id, tenant_id, description, assigned_to, given_by, client_name, deadline,
	identity_hash, status, priority, assigned_at, completed_at, elapsed, comments, notes`

// checkRowsAffected returns domain.ErrNotFound when an UPDATE/DELETE matched nothing.
func checkRowsAffected(rowsAffected int64, entityType, entityID string) error {
	if rowsAffected == 0 {
		return fmt.Errorf("%w: %s %s", domain.ErrNotFound, entityType, entityID)
	}
	return nil
}

func scanTask(row pgx.Row) (*domain.Task, error) {
	var (
		t           domain.Task
		status      string
		priority    string
		assignedAt  *time.Time
		completedAt *time.Time
		elapsed     *string
		comments    []byte
		notes       []byte
	)

	err := row.Scan(
		&t.ID, &t.TenantID, &t.Description, &t.AssignedTo, &t.GivenBy, &t.ClientName, &t.Deadline,
		&t.IdentityHash, &status, &priority, &assignedAt, &completedAt, &elapsed, &comments, &notes,
	)
	if err != nil {
		return nil, err
	}

	t.Status = domain.TaskStatus(status)
	t.Priority = domain.TaskPriority(priority)
	t.AssignedAt = utcPtr(assignedAt)
	t.CompletedAt = utcPtr(completedAt)
	if elapsed != nil {
		t.Elapsed = *elapsed
	}
	if len(comments) > 0 {
		t.Comments = comments
	}
	if len(notes) > 0 {
		t.Notes = notes
	}
	return &t, nil
}

func scanTasks(rows pgx.Rows) ([]*domain.Task, error) {
	defer rows.Close()

	var tasks []*domain.Task
	for rows.Next() {
		t, err := scanTask(rows)
		if err != nil {
			return nil, err
		}
		tasks = append(tasks, t)
	}
	return tasks, rows.Err()
}

func utcPtr(t *time.Time) *time.Time {
	if t == nil {
		return nil
	}
	utc := t.UTC()
	return &utc
}

// nullableJSON maps an empty payload to SQL NULL.
func nullableJSON(raw []byte) any {
	if len(raw) == 0 {
		return nil
	}
	return raw
}

func nullableString(s string) any {
	if s == "" {
		return nil
	}
	return s
}

// InsertTask stores a new task.
func (s *Store) InsertTask(ctx context.Context, task *domain.Task) (*domain.Task, error) {
	row := s.db.QueryRow(ctx, `
		INSERT INTO tasks (`+taskColumns+`)
		VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9, $10, $11, $12, $13, $14, $15)
		RETURNING `+taskColumns,
		task.ID, task.TenantID, task.Description, task.AssignedTo, task.GivenBy, task.ClientName, task.Deadline,
		task.IdentityHash, string(task.Status), string(task.Priority), task.AssignedAt, task.CompletedAt,
		nullableString(task.Elapsed), nullableJSON(task.Comments), nullableJSON(task.Notes),
	)

	stored, err := scanTask(row)
	if err != nil {
		return nil, domain.StoreError("insert task", err)
	}
	return stored, nil
}

// InsertTaskIfAbsent inserts task unless a pending task with the same tenant and
// identity hash exists. A transaction-scoped advisory lock keyed by tenant and hash
// serialises concurrent creators of one identity.
func (s *Store) InsertTaskIfAbsent(ctx context.Context, task *domain.Task) (*domain.Task, bool, error) {
	var (
		result  *domain.Task
		created bool
	)

	err := s.executeInTransaction(ctx, "insert_task_if_absent", func(tx *Store) error {
		lockKey := task.TenantID + "\x1f" + task.IdentityHash
		if _, err := tx.db.Exec(ctx, `SELECT pg_advisory_xact_lock(hashtextextended($1, 0))`, lockKey); err != nil {
			return domain.StoreError("acquire identity lock", err)
		}

		existing, err := scanTask(tx.db.QueryRow(ctx, `
			SELECT `+taskColumns+` FROM tasks
			WHERE tenant_id = $1 AND identity_hash = $2 AND status = 'pending'
			ORDER BY assigned_at DESC NULLS LAST, id DESC
			LIMIT 1`,
			task.TenantID, task.IdentityHash,
		))
		switch {
		case err == nil:
			result = existing
			return nil
		case !errors.Is(err, pgx.ErrNoRows):
			return domain.StoreError("find pending task", err)
		}

		result, err = tx.InsertTask(ctx, task)
		if err != nil {
			return err
		}
		created = true
		return nil
	})
	if err != nil {
		return nil, false, err
	}
	return result, created, nil
}

// FindTaskByID retrieves a task by ID.
func (s *Store) FindTaskByID(ctx context.Context, id string) (*domain.Task, error) {
	task, err := scanTask(s.db.QueryRow(ctx, `SELECT `+taskColumns+` FROM tasks WHERE id = $1`, id))
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, fmt.Errorf("%w: task %s", domain.ErrNotFound, id)
		}
		return nil, domain.StoreError("find task", err)
	}
	return task, nil
}

// FindTasks returns the tasks of one tenant matching the filter, in ID order.
// Nil filter fields are skipped with the "$n IS NULL OR" pattern.
func (s *Store) FindTasks(ctx context.Context, tenantID string, filter domain.TaskFilter) ([]*domain.Task, error) {
	var status *string
	if filter.Status != nil {
		v := string(*filter.Status)
		status = &v
	}

	rows, err := s.db.Query(ctx, `
		SELECT `+taskColumns+` FROM tasks
		WHERE tenant_id = $1
		  AND ($2::text IS NULL OR identity_hash = $2)
		  AND ($3::text IS NULL OR status = $3)
		  AND ($4::text IS NULL OR assigned_to = $4)
		ORDER BY id`,
		tenantID, filter.IdentityHash, status, filter.AssignedTo,
	)
	if err != nil {
		return nil, domain.StoreError("find tasks", err)
	}

	tasks, err := scanTasks(rows)
	if err != nil {
		return nil, domain.StoreError("find tasks", err)
	}
	return tasks, nil
}

// UpdateTask writes the masked fields of patch.
func (s *Store) UpdateTask(ctx context.Context, id string, patch domain.TaskPatch) (*domain.Task, error) {
	if err := patch.Validate(); err != nil {
		return nil, err
	}

	sets := make([]string, 0, len(patch.UpdateMask))
	args := make([]any, 0, len(patch.UpdateMask)+1)
	set := func(column string, value any) {
		args = append(args, value)
		sets = append(sets, fmt.Sprintf("%s = $%d", column, len(args)))
	}

	for _, field := range patch.UpdateMask {
		switch field {
		case domain.FieldStatus:
			set("status", string(*patch.Status))
		case domain.FieldPriority:
			set("priority", string(*patch.Priority))
		case domain.FieldCompletedAt:
			set("completed_at", patch.CompletedAt)
		case domain.FieldElapsed:
			set("elapsed", patch.Elapsed)
		case domain.FieldComments:
			set("comments", nullableJSON(patch.Comments))
		case domain.FieldNotes:
			set("notes", nullableJSON(patch.Notes))
		}
	}
	args = append(args, id)

	query := fmt.Sprintf(`UPDATE tasks SET %s WHERE id = $%d RETURNING %s`,
		strings.Join(sets, ", "), len(args), taskColumns)

	task, err := scanTask(s.db.QueryRow(ctx, query, args...))
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, fmt.Errorf("%w: task %s", domain.ErrNotFound, id)
		}
		return nil, domain.StoreError("update task", err)
	}
	return task, nil
}

// DeleteTask removes a task.
func (s *Store) DeleteTask(ctx context.Context, id string) error {
	tag, err := s.db.Exec(ctx, `DELETE FROM tasks WHERE id = $1`, id)
	if err != nil {
		return domain.StoreError("delete task", err)
	}
	return checkRowsAffected(tag.RowsAffected(), "task", id)
}

// ListTasks pages through tasks in ascending ID order.
func (s *Store) ListTasks(ctx context.Context, params domain.ListTasksParams) ([]*domain.Task, error) {
	if params.Limit <= 0 {
		return nil, &domain.ValidationError{Field: "limit", Reason: "must be positive"}
	}

	rows, err := s.db.Query(ctx, `
		SELECT `+taskColumns+` FROM tasks
		WHERE ($1 = '' OR tenant_id = $1)
		  AND ($2 = '' OR id > $2)
		ORDER BY id
		LIMIT $3`,
		params.TenantID, params.AfterID, params.Limit,
	)
	if err != nil {
		return nil, domain.StoreError("list tasks", err)
	}

	tasks, err := scanTasks(rows)
	if err != nil {
		return nil, domain.StoreError("list tasks", err)
	}
	return tasks, nil
}
