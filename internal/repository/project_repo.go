package repository

import (
	"context"

	"github.com/jackc/pgx/v5/pgxpool"

	"taskboard/internal/domain"
)

// ProjectRepository define el contrato de persistencia para proyectos.
type ProjectRepository interface {
	Create(ctx context.Context, project domain.Project) (domain.Project, error)
	GetByID(ctx context.Context, id int64) (domain.Project, error)
	List(ctx context.Context) ([]domain.Project, error)
	Update(ctx context.Context, project domain.Project) (domain.Project, error)
	Delete(ctx context.Context, id int64) (bool, error)
	ListSummariesByAdmin(ctx context.Context, adminID int64) ([]domain.ProjectSummary, error)
}

// PgProjectRepository implementa ProjectRepository usando pgxpool.
type PgProjectRepository struct {
	pool *pgxpool.Pool
}

func NewPgProjectRepository(pool *pgxpool.Pool) *PgProjectRepository {
	return &PgProjectRepository{pool: pool}
}

const projectColumns = `id, admin_id, name, description, start_date, end_date, user_id`

func (r *PgProjectRepository) Create(ctx context.Context, p domain.Project) (domain.Project, error) {
	const query = `
		INSERT INTO projects (admin_id, name, description, start_date, end_date, user_id)
		VALUES ($1, $2, $3, $4, $5, $6)
		RETURNING id
	`
	err := r.pool.QueryRow(ctx, query,
		p.AdminID,
		p.Name,
		p.Description,
		p.StartDate,
		p.EndDate,
		p.UserID,
	).Scan(&p.ID)
	return p, err
}

func (r *PgProjectRepository) GetByID(ctx context.Context, id int64) (domain.Project, error) {
	query := `SELECT ` + projectColumns + ` FROM projects WHERE id = $1`
	var p domain.Project
	err := r.pool.QueryRow(ctx, query, id).Scan(
		&p.ID,
		&p.AdminID,
		&p.Name,
		&p.Description,
		&p.StartDate,
		&p.EndDate,
		&p.UserID,
	)
	return p, err
}

func (r *PgProjectRepository) List(ctx context.Context) ([]domain.Project, error) {
	query := `SELECT ` + projectColumns + ` FROM projects ORDER BY id`
	rows, err := r.pool.Query(ctx, query)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var projects []domain.Project
	for rows.Next() {
		var p domain.Project
		if err := rows.Scan(&p.ID, &p.AdminID, &p.Name, &p.Description, &p.StartDate, &p.EndDate, &p.UserID); err != nil {
			return nil, err
		}
		projects = append(projects, p)
	}
	return projects, rows.Err()
}

func (r *PgProjectRepository) Update(ctx context.Context, p domain.Project) (domain.Project, error) {
	const query = `
		UPDATE projects
		SET name = $1, description = $2, start_date = $3, end_date = $4, user_id = $5
		WHERE id = $6
		RETURNING ` + projectColumns
	err := r.pool.QueryRow(ctx, query,
		p.Name,
		p.Description,
		p.StartDate,
		p.EndDate,
		p.UserID,
		p.ID,
	).Scan(&p.ID, &p.AdminID, &p.Name, &p.Description, &p.StartDate, &p.EndDate, &p.UserID)
	return p, err
}

func (r *PgProjectRepository) Delete(ctx context.Context, id int64) (bool, error) {
	const query = `DELETE FROM projects WHERE id = $1`
	tag, err := r.pool.Exec(ctx, query, id)
	if err != nil {
		return false, err
	}
	return tag.RowsAffected() > 0, nil
}

func (r *PgProjectRepository) ListSummariesByAdmin(ctx context.Context, adminID int64) ([]domain.ProjectSummary, error) {
	const query = `SELECT id, name, description FROM projects WHERE admin_id = $1`
	rows, err := r.pool.Query(ctx, query, adminID)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var summaries []domain.ProjectSummary
	for rows.Next() {
		var s domain.ProjectSummary
		if err := rows.Scan(&s.ID, &s.Name, &s.Description); err != nil {
			return nil, err
		}
		summaries = append(summaries, s)
	}
	return summaries, rows.Err()
}
