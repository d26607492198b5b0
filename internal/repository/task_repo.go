package repository

import (
	"context"
	"errors"
	"time"

	"task_manager/internal/domain"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"
)

const taskColumns = `id, title, description, status, priority, due_date, created_by_id, assigned_to_id, created_at, updated_at`

type TaskRepository struct {
	db *pgxpool.Pool
}

func NewTaskRepository(db *pgxpool.Pool) *TaskRepository {
	return &TaskRepository{db: db}
}

func scanTask(row pgx.Row) (*domain.Task, error) {
	var (
		t        domain.Task
		status   string
		priority string
	)
	if err := row.Scan(
		&t.ID,
		&t.Title,
		&t.Description,
		&status,
		&priority,
		&t.DueDate,
		&t.CreatedByID,
		&t.AssignedToID,
		&t.CreatedAt,
		&t.UpdatedAt,
	); err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, ErrNotFound
		}
		return nil, err
	}
	t.Status = domain.TaskStatus(status)
	t.Priority = domain.TaskPriority(priority)
	t.CreatedAt = t.CreatedAt.UTC()
	t.UpdatedAt = t.UpdatedAt.UTC()
	if t.DueDate != nil {
		d := t.DueDate.UTC()
		t.DueDate = &d
	}
	return &t, nil
}

func (r *TaskRepository) Create(ctx context.Context, t *domain.Task) error {
	_, err := r.db.Exec(ctx,
		`INSERT INTO tasks (`+taskColumns+`)
		 VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9, $10)`,
		t.ID,
		t.Title,
		t.Description,
		string(t.Status),
		string(t.Priority),
		t.DueDate,
		t.CreatedByID,
		t.AssignedToID,
		t.CreatedAt,
		t.UpdatedAt,
	)
	return mapPgError(err)
}

func (r *TaskRepository) GetByID(ctx context.Context, id string) (*domain.Task, error) {
	return scanTask(r.db.QueryRow(ctx, `SELECT `+taskColumns+` FROM tasks WHERE id = $1`, id))
}

func (r *TaskRepository) ListByOwner(ctx context.Context, userID string) ([]*domain.Task, error) {
	rows, err := r.db.Query(ctx,
		`SELECT `+taskColumns+`
		 FROM tasks
		 WHERE created_by_id = $1 OR assigned_to_id = $1
		 ORDER BY created_at DESC, id DESC`,
		userID,
	)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	res := []*domain.Task{}
	for rows.Next() {
		t, err := scanTask(rows)
		if err != nil {
			return nil, err
		}
		res = append(res, t)
	}
	return res, rows.Err()
}

func (r *TaskRepository) UpdateDetails(ctx context.Context, t *domain.Task) error {
	updated, err := scanTask(r.db.QueryRow(ctx,
		`UPDATE tasks
		 SET title = $1, description = $2, priority = $3, due_date = $4, updated_at = $5
		 WHERE id = $6
		 RETURNING `+taskColumns,
		t.Title,
		t.Description,
		string(t.Priority),
		t.DueDate,
		t.UpdatedAt,
		t.ID,
	))
	if err != nil {
		return err
	}
	*t = *updated
	return nil
}

func (r *TaskRepository) UpdateStatus(ctx context.Context, id string, status domain.TaskStatus, at time.Time) (*domain.Task, error) {
	return scanTask(r.db.QueryRow(ctx,
		`UPDATE tasks SET status = $1, updated_at = $2 WHERE id = $3 RETURNING `+taskColumns,
		string(status), at, id,
	))
}

func (r *TaskRepository) Delete(ctx context.Context, id string) error {
	tag, err := r.db.Exec(ctx, `DELETE FROM tasks WHERE id = $1`, id)
	if err != nil {
		return err
	}
	if tag.RowsAffected() == 0 {
		return ErrNotFound
	}
	return nil
}
