package repository

import (
	"context"

	"github.com/jackc/pgx/v5/pgxpool"

	"taskboard/internal/domain"
)

// TaskRepository define el contrato de persistencia para tareas.
type TaskRepository interface {
	Create(ctx context.Context, task domain.Task) (domain.Task, error)
	GetByID(ctx context.Context, id int64) (domain.Task, error)
	Update(ctx context.Context, task domain.Task) (domain.Task, error)
	ListSummariesByUser(ctx context.Context, userID int64) ([]domain.TaskSummary, error)
}

// PgTaskRepository implementa TaskRepository usando pgxpool.
type PgTaskRepository struct {
	pool *pgxpool.Pool
}

func NewPgTaskRepository(pool *pgxpool.Pool) *PgTaskRepository {
	return &PgTaskRepository{pool: pool}
}

const taskColumns = `id, admin_id, project_id, name, status, is_completed, start_date, end_date, user_id`

func (r *PgTaskRepository) Create(ctx context.Context, t domain.Task) (domain.Task, error) {
	const query = `
		INSERT INTO tasks (admin_id, project_id, name, status, is_completed, start_date, end_date, user_id)
		VALUES ($1, $2, $3, $4, $5, $6, $7, $8)
		RETURNING id
	`
	err := r.pool.QueryRow(ctx, query,
		t.AdminID,
		t.ProjectID,
		t.Name,
		t.Status,
		t.IsCompleted,
		t.StartDate,
		t.EndDate,
		t.UserID,
	).Scan(&t.ID)
	return t, err
}

func (r *PgTaskRepository) GetByID(ctx context.Context, id int64) (domain.Task, error) {
	query := `SELECT ` + taskColumns + ` FROM tasks WHERE id = $1`
	var t domain.Task
	err := r.pool.QueryRow(ctx, query, id).Scan(
		&t.ID,
		&t.AdminID,
		&t.ProjectID,
		&t.Name,
		&t.Status,
		&t.IsCompleted,
		&t.StartDate,
		&t.EndDate,
		&t.UserID,
	)
	return t, err
}

func (r *PgTaskRepository) Update(ctx context.Context, t domain.Task) (domain.Task, error) {
	const query = `
		UPDATE tasks
		SET name = $1, status = $2, is_completed = $3, start_date = $4, end_date = $5, user_id = $6
		WHERE id = $7
		RETURNING ` + taskColumns
	err := r.pool.QueryRow(ctx, query,
		t.Name,
		t.Status,
		t.IsCompleted,
		t.StartDate,
		t.EndDate,
		t.UserID,
		t.ID,
	).Scan(&t.ID, &t.AdminID, &t.ProjectID, &t.Name, &t.Status, &t.IsCompleted, &t.StartDate, &t.EndDate, &t.UserID)
	return t, err
}

func (r *PgTaskRepository) ListSummariesByUser(ctx context.Context, userID int64) ([]domain.TaskSummary, error) {
	const query = `SELECT id, name, status, is_completed FROM tasks WHERE user_id = $1`
	rows, err := r.pool.Query(ctx, query, userID)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var summaries []domain.TaskSummary
	for rows.Next() {
		var s domain.TaskSummary
		if err := rows.Scan(&s.ID, &s.Name, &s.Status, &s.IsCompleted); err != nil {
			return nil, err
		}
		summaries = append(summaries, s)
	}
	return summaries, rows.Err()
}
