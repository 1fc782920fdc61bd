package repository

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgconn"
	"github.com/jackc/pgx/v5/pgxpool"

	"taskboard/internal/domain"
)

// ErrDuplicateEmail indica colision con el indice unico de email.
var ErrDuplicateEmail = errors.New("email already exists")

// ProfileUpdate agrupa los campos opcionales de una actualizacion parcial.
// Solo los campos no nulos se escriben.
type ProfileUpdate struct {
	Name    *string
	Surname *string
	Email   *string
}

// IsEmpty indica si no hay ningun campo para actualizar.
func (p ProfileUpdate) IsEmpty() bool {
	return p.Name == nil && p.Surname == nil && p.Email == nil
}

// UserRepository define el contrato de persistencia para usuarios.
type UserRepository interface {
	Create(ctx context.Context, user domain.User) (domain.User, error)
	GetByID(ctx context.Context, id int64) (domain.User, error)
	GetByEmail(ctx context.Context, email string) (domain.User, error)
	SetResetCode(ctx context.Context, id int64, code string, expiresAt time.Time) error
	ClearResetCode(ctx context.Context, id int64) error
	UpdatePassword(ctx context.Context, id int64, passwordHash string) error
	UpdateProfile(ctx context.Context, id int64, fields ProfileUpdate) (domain.User, error)
	Delete(ctx context.Context, id int64) (bool, error)
	ListAll(ctx context.Context) ([]domain.User, error)
}

// PgUserRepository implementa UserRepository usando pgxpool.
type PgUserRepository struct {
	pool *pgxpool.Pool
}

func NewPgUserRepository(pool *pgxpool.Pool) *PgUserRepository {
	return &PgUserRepository{pool: pool}
}

const userColumns = `id, name, surname, email, password, is_admin, reset_password_code, reset_password_code_expires, created_at`

func scanUser(row pgx.Row) (domain.User, error) {
	var (
		u         domain.User
		resetCode *string
	)
	err := row.Scan(
		&u.ID,
		&u.Name,
		&u.Surname,
		&u.Email,
		&u.PasswordHash,
		&u.IsAdmin,
		&resetCode,
		&u.ResetCodeExpires,
		&u.CreatedAt,
	)
	if err != nil {
		return domain.User{}, err
	}
	if resetCode != nil {
		u.ResetCode = *resetCode
	}
	return u, nil
}

func (r *PgUserRepository) Create(ctx context.Context, user domain.User) (domain.User, error) {
	const query = `
		INSERT INTO users (name, surname, email, password, is_admin)
		VALUES ($1, $2, $3, $4, $5)
		RETURNING id, created_at
	`
	err := r.pool.QueryRow(ctx, query,
		user.Name,
		user.Surname,
		user.Email,
		user.PasswordHash,
		user.IsAdmin,
	).Scan(&user.ID, &user.CreatedAt)
	if isUniqueViolation(err) {
		return domain.User{}, ErrDuplicateEmail
	}
	if err != nil {
		return domain.User{}, err
	}
	return user, nil
}

func (r *PgUserRepository) GetByID(ctx context.Context, id int64) (domain.User, error) {
	query := `SELECT ` + userColumns + ` FROM users WHERE id = $1`
	return scanUser(r.pool.QueryRow(ctx, query, id))
}

func (r *PgUserRepository) GetByEmail(ctx context.Context, email string) (domain.User, error) {
	query := `SELECT ` + userColumns + ` FROM users WHERE email = $1`
	return scanUser(r.pool.QueryRow(ctx, query, email))
}

func (r *PgUserRepository) SetResetCode(ctx context.Context, id int64, code string, expiresAt time.Time) error {
	const query = `
		UPDATE users
		SET reset_password_code = $1, reset_password_code_expires = $2
		WHERE id = $3
	`
	tag, err := r.pool.Exec(ctx, query, code, expiresAt, id)
	if err != nil {
		return err
	}
	if tag.RowsAffected() == 0 {
		return pgx.ErrNoRows
	}
	return nil
}

func (r *PgUserRepository) ClearResetCode(ctx context.Context, id int64) error {
	const query = `
		UPDATE users
		SET reset_password_code = NULL, reset_password_code_expires = NULL
		WHERE id = $1
	`
	_, err := r.pool.Exec(ctx, query, id)
	return err
}

func (r *PgUserRepository) UpdatePassword(ctx context.Context, id int64, passwordHash string) error {
	const query = `UPDATE users SET password = $1 WHERE id = $2`
	tag, err := r.pool.Exec(ctx, query, passwordHash, id)
	if err != nil {
		return err
	}
	if tag.RowsAffected() == 0 {
		return pgx.ErrNoRows
	}
	return nil
}

// UpdateProfile arma la sentencia a partir de un conjunto fijo de columnas
// opcionales. Los valores viajan siempre como parametros, nunca en el SQL.
func (r *PgUserRepository) UpdateProfile(ctx context.Context, id int64, fields ProfileUpdate) (domain.User, error) {
	assignments := make([]string, 0, 3)
	values := make([]any, 0, 4)

	appendField := func(column string, value *string) {
		if value == nil {
			return
		}
		values = append(values, *value)
		assignments = append(assignments, fmt.Sprintf("%s = $%d", column, len(values)))
	}
	appendField("name", fields.Name)
	appendField("surname", fields.Surname)
	appendField("email", fields.Email)

	if len(assignments) == 0 {
		return r.GetByID(ctx, id)
	}

	values = append(values, id)
	query := fmt.Sprintf(
		`UPDATE users SET %s WHERE id = $%d RETURNING `+userColumns,
		strings.Join(assignments, ", "),
		len(values),
	)

	user, err := scanUser(r.pool.QueryRow(ctx, query, values...))
	if isUniqueViolation(err) {
		return domain.User{}, ErrDuplicateEmail
	}
	return user, err
}

func (r *PgUserRepository) Delete(ctx context.Context, id int64) (bool, error) {
	const query = `DELETE FROM users WHERE id = $1`
	tag, err := r.pool.Exec(ctx, query, id)
	if err != nil {
		return false, err
	}
	return tag.RowsAffected() > 0, nil
}

func (r *PgUserRepository) ListAll(ctx context.Context) ([]domain.User, error) {
	query := `SELECT ` + userColumns + ` FROM users ORDER BY created_at DESC`
	rows, err := r.pool.Query(ctx, query)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var users []domain.User
	for rows.Next() {
		u, err := scanUser(rows)
		if err != nil {
			return nil, err
		}
		users = append(users, u)
	}
	return users, rows.Err()
}

func isUniqueViolation(err error) bool {
	var pgErr *pgconn.PgError
	return errors.As(err, &pgErr) && pgErr.Code == "23505"
}
