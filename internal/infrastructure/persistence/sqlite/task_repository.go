package sqlite

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/rezkam/taskguard/internal/domain"
)

const taskColumns = `id, tenant_id, description, assigned_to, given_by, client_name, deadline,
	identity_hash, status, priority, assigned_at, completed_at, elapsed, comments, notes`

type rowScanner interface {
	Scan(dest ...any) error
}

func scanTask(row rowScanner) (*domain.Task, error) {
	var (
		t           domain.Task
		status      string
		priority    string
		assignedAt  sql.NullString
		completedAt sql.NullString
		elapsed     sql.NullString
		comments    sql.NullString
		notes       sql.NullString
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
	// Unparsable legacy timestamps read as missing rather than failing the row.
	t.AssignedAt = domain.ParseTimestamp(assignedAt.String)
	t.CompletedAt = domain.ParseTimestamp(completedAt.String)
	t.Elapsed = elapsed.String
	if comments.Valid && comments.String != "" {
		t.Comments = []byte(comments.String)
	}
	if notes.Valid && notes.String != "" {
		t.Notes = []byte(notes.String)
	}
	return &t, nil
}

func scanTasks(rows *sql.Rows) ([]*domain.Task, error) {
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

func formatTime(t *time.Time) sql.NullString {
	if t == nil {
		return sql.NullString{}
	}
	return sql.NullString{String: t.UTC().Format(time.RFC3339Nano), Valid: true}
}

func nullString(s string) sql.NullString {
	return sql.NullString{String: s, Valid: s != ""}
}

func nullJSON(raw []byte) sql.NullString {
	return sql.NullString{String: string(raw), Valid: len(raw) > 0}
}

// InsertTask stores a new task.
func (s *Store) InsertTask(ctx context.Context, task *domain.Task) (*domain.Task, error) {
	row := s.q.QueryRowContext(ctx, `
		INSERT INTO tasks (`+taskColumns+`)
		VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?)
		RETURNING `+taskColumns,
		task.ID, task.TenantID, task.Description, task.AssignedTo, task.GivenBy, task.ClientName, task.Deadline,
		task.IdentityHash, string(task.Status), string(task.Priority),
		formatTime(task.AssignedAt), formatTime(task.CompletedAt),
		nullString(task.Elapsed), nullJSON(task.Comments), nullJSON(task.Notes),
	)

	stored, err := scanTask(row)
	if err != nil {
		return nil, domain.StoreError("insert task", err)
	}
	return stored, nil
}

// InsertTaskIfAbsent inserts task unless a pending task with the same tenant and
// identity hash exists. The immediate transaction holds the write lock from the
// lookup to the insert.
func (s *Store) InsertTaskIfAbsent(ctx context.Context, task *domain.Task) (*domain.Task, bool, error) {
	var (
		result  *domain.Task
		created bool
	)

	err := s.inTx(ctx, func(tx *Store) error {
		pending, err := tx.FindTasks(ctx, task.TenantID, domain.TaskFilter{
			IdentityHash: &task.IdentityHash,
			Status:       &task.Status,
		})
		if err != nil {
			return err
		}
		if len(pending) > 0 {
			result = pending[0]
			return nil
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
	task, err := scanTask(s.q.QueryRowContext(ctx, `SELECT `+taskColumns+` FROM tasks WHERE id = ?`, id))
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, fmt.Errorf("%w: task %s", domain.ErrNotFound, id)
		}
		return nil, domain.StoreError("find task", err)
	}
	return task, nil
}

// FindTasks returns the tasks of one tenant matching the filter, in ID order.
func (s *Store) FindTasks(ctx context.Context, tenantID string, filter domain.TaskFilter) ([]*domain.Task, error) {
	where := []string{"tenant_id = ?"}
	args := []any{tenantID}
	if filter.IdentityHash != nil {
		where = append(where, "identity_hash = ?")
		args = append(args, *filter.IdentityHash)
	}
	if filter.Status != nil {
		where = append(where, "status = ?")
		args = append(args, string(*filter.Status))
	}
	if filter.AssignedTo != nil {
		where = append(where, "assigned_to = ?")
		args = append(args, *filter.AssignedTo)
	}

	rows, err := s.q.QueryContext(ctx,
		`SELECT `+taskColumns+` FROM tasks WHERE `+strings.Join(where, " AND ")+` ORDER BY id`,
		args...)
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
	for _, field := range patch.UpdateMask {
		switch field {
		case domain.FieldStatus:
			sets, args = append(sets, "status = ?"), append(args, string(*patch.Status))
		case domain.FieldPriority:
			sets, args = append(sets, "priority = ?"), append(args, string(*patch.Priority))
		case domain.FieldCompletedAt:
			sets, args = append(sets, "completed_at = ?"), append(args, formatTime(patch.CompletedAt))
		case domain.FieldElapsed:
			var elapsed sql.NullString
			if patch.Elapsed != nil {
				elapsed = sql.NullString{String: *patch.Elapsed, Valid: true}
			}
			sets, args = append(sets, "elapsed = ?"), append(args, elapsed)
		case domain.FieldComments:
			sets, args = append(sets, "comments = ?"), append(args, nullJSON(patch.Comments))
		case domain.FieldNotes:
			sets, args = append(sets, "notes = ?"), append(args, nullJSON(patch.Notes))
		}
	}
	args = append(args, id)

	task, err := scanTask(s.q.QueryRowContext(ctx,
		`UPDATE tasks SET `+strings.Join(sets, ", ")+` WHERE id = ? RETURNING `+taskColumns,
		args...))
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, fmt.Errorf("%w: task %s", domain.ErrNotFound, id)
		}
		return nil, domain.StoreError("update task", err)
	}
	return task, nil
}

// DeleteTask removes a task.
func (s *Store) DeleteTask(ctx context.Context, id string) error {
	res, err := s.q.ExecContext(ctx, `DELETE FROM tasks WHERE id = ?`, id)
	if err != nil {
		return domain.StoreError("delete task", err)
	}
	n, err := res.RowsAffected()
	if err != nil {
		return domain.StoreError("delete task", err)
	}
	if n == 0 {
		return fmt.Errorf("%w: task %s", domain.ErrNotFound, id)
	}
	return nil
}

// ListTasks pages through tasks in ascending ID order.
func (s *Store) ListTasks(ctx context.Context, params domain.ListTasksParams) ([]*domain.Task, error) {
	if params.Limit <= 0 {
		return nil, &domain.ValidationError{Field: "limit", Reason: "must be positive"}
	}

	rows, err := s.q.QueryContext(ctx, `
		SELECT `+taskColumns+` FROM tasks
		WHERE (?1 = '' OR tenant_id = ?1)
		  AND (?2 = '' OR id > ?2)
		ORDER BY id
		LIMIT ?3`,
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
