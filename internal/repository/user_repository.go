package repository

import (
	"context"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"

	"github.com/spec-kit/fault-service/internal/domain"
)

// UserRepository defines persistence access for user accounts.
type UserRepository interface {
	Create(ctx context.Context, user *domain.User) error
	GetByID(ctx context.Context, id string) (*domain.User, error)
	GetByEmail(ctx context.Context, email string) (*domain.User, error)
	UpdateProfile(ctx context.Context, id, name string, rollNumber *string) error
	UpdatePassword(ctx context.Context, id, passwordHash string) error
	UpdateRole(ctx context.Context, id string, role domain.Role) error
	AttachGoogleID(ctx context.Context, email, googleID string) error
	Delete(ctx context.Context, id string) error
	ListAdminEmails(ctx context.Context) ([]string, error)
	ListEmployees(ctx context.Context) ([]domain.User, error)
	ListWithWorkload(ctx context.Context) ([]domain.UserWithWorkload, error)
	GetSpecializations(ctx context.Context, userID string) ([]string, error)
	ReplaceSpecializations(ctx context.Context, userID string, categories []string) error
}

type userRepository struct {
	pool *pgxpool.Pool
}

// NewUserRepository returns a Postgres-backed implementation.
func NewUserRepository(pool *pgxpool.Pool) UserRepository {
	return &userRepository{pool: pool}
}

const userColumns = `id, name, email, password_hash, google_id, role, room_number, roll_number, created_at, updated_at`

func (r *userRepository) Create(ctx context.Context, user *domain.User) error {
	const query = `
        INSERT INTO users (name, email, password_hash, google_id, role, room_number, roll_number)
        VALUES ($1,$2,$3,$4,$5,$6,$7)
        RETURNING id, created_at, updated_at`

	if user.Role == "" {
		user.Role = domain.RoleStudent
	}
	return r.pool.QueryRow(ctx, query,
		user.Name,
		user.Email,
		user.PasswordHash,
		user.GoogleID,
		user.Role,
		user.RoomNumber,
		user.RollNumber,
	).Scan(&user.ID, &user.CreatedAt, &user.UpdatedAt)
}

func (r *userRepository) GetByID(ctx context.Context, id string) (*domain.User, error) {
	return r.fetchSingle(ctx, `SELECT `+userColumns+` FROM users WHERE id=$1`, id)
}

func (r *userRepository) GetByEmail(ctx context.Context, email string) (*domain.User, error) {
	return r.fetchSingle(ctx, `SELECT `+userColumns+` FROM users WHERE email=$1`, email)
}

func (r *userRepository) fetchSingle(ctx context.Context, query string, arg any) (*domain.User, error) {
	var user domain.User
	if err := r.pool.QueryRow(ctx, query, arg).Scan(
		&user.ID,
		&user.Name,
		&user.Email,
		&user.PasswordHash,
		&user.GoogleID,
		&user.Role,
		&user.RoomNumber,
		&user.RollNumber,
		&user.CreatedAt,
		&user.UpdatedAt,
	); err != nil {
		return nil, err
	}
	return &user, nil
}

func (r *userRepository) UpdateProfile(ctx context.Context, id, name string, rollNumber *string) error {
	const query = `UPDATE users SET name=$1, roll_number=$2, updated_at=NOW() WHERE id=$3`
	cmd, err := r.pool.Exec(ctx, query, name, rollNumber, id)
	if err != nil {
		return err
	}
	if cmd.RowsAffected() == 0 {
		return pgx.ErrNoRows
	}
	return nil
}

func (r *userRepository) UpdatePassword(ctx context.Context, id, passwordHash string) error {
	const query = `UPDATE users SET password_hash=$1, updated_at=NOW() WHERE id=$2`
	cmd, err := r.pool.Exec(ctx, query, passwordHash, id)
	if err != nil {
		return err
	}
	if cmd.RowsAffected() == 0 {
		return pgx.ErrNoRows
	}
	return nil
}

func (r *userRepository) UpdateRole(ctx context.Context, id string, role domain.Role) error {
	const query = `UPDATE users SET role=$1, updated_at=NOW() WHERE id=$2`
	cmd, err := r.pool.Exec(ctx, query, role, id)
	if err != nil {
		return err
	}
	if cmd.RowsAffected() == 0 {
		return pgx.ErrNoRows
	}
	return nil
}

func (r *userRepository) AttachGoogleID(ctx context.Context, email, googleID string) error {
	const query = `UPDATE users SET google_id=$1, updated_at=NOW() WHERE email=$2 AND google_id IS NULL`
	_, err := r.pool.Exec(ctx, query, googleID, email)
	return err
}

func (r *userRepository) Delete(ctx context.Context, id string) error {
	cmd, err := r.pool.Exec(ctx, `DELETE FROM users WHERE id=$1`, id)
	if err != nil {
		return err
	}
	if cmd.RowsAffected() == 0 {
		return pgx.ErrNoRows
	}
	return nil
}

func (r *userRepository) ListAdminEmails(ctx context.Context) ([]string, error) {
	rows, err := r.pool.Query(ctx, `SELECT email FROM users WHERE role='admin'`)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var emails []string
	for rows.Next() {
		var email string
		if err := rows.Scan(&email); err != nil {
			return nil, err
		}
		emails = append(emails, email)
	}
	return emails, rows.Err()
}

func (r *userRepository) ListEmployees(ctx context.Context) ([]domain.User, error) {
	rows, err := r.pool.Query(ctx, `SELECT id, name FROM users WHERE role='employee' ORDER BY name ASC`)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var result []domain.User
	for rows.Next() {
		var user domain.User
		if err := rows.Scan(&user.ID, &user.Name); err != nil {
			return nil, err
		}
		user.Role = domain.RoleEmployee
		result = append(result, user)
	}
	return result, rows.Err()
}

func (r *userRepository) ListWithWorkload(ctx context.Context) ([]domain.UserWithWorkload, error) {
	const query = `
        SELECT u.id, u.name, u.email, u.role, u.room_number,
               COUNT(f.id) AS total_assigned,
               COALESCE(SUM(CASE WHEN f.status = 'Resolved' THEN 1 ELSE 0 END), 0) AS resolved_count,
               COALESCE(SUM(CASE WHEN f.status = 'In Progress' THEN 1 ELSE 0 END), 0) AS pending_count
        FROM users u
        LEFT JOIN faults f ON u.id = f.assigned_to_id
        GROUP BY u.id, u.name, u.email, u.role, u.room_number, u.created_at
        ORDER BY u.created_at DESC`

	rows, err := r.pool.Query(ctx, query)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var result []domain.UserWithWorkload
	for rows.Next() {
		var item domain.UserWithWorkload
		if err := rows.Scan(
			&item.ID,
			&item.Name,
			&item.Email,
			&item.Role,
			&item.RoomNumber,
			&item.TotalAssigned,
			&item.ResolvedCount,
			&item.PendingCount,
		); err != nil {
			return nil, err
		}
		result = append(result, item)
	}
	return result, rows.Err()
}

func (r *userRepository) GetSpecializations(ctx context.Context, userID string) ([]string, error) {
	rows, err := r.pool.Query(ctx,
		`SELECT category FROM employee_specializations WHERE user_id=$1 ORDER BY category ASC`, userID)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var categories []string
	for rows.Next() {
		var category string
		if err := rows.Scan(&category); err != nil {
			return nil, err
		}
		categories = append(categories, category)
	}
	return categories, rows.Err()
}

func (r *userRepository) ReplaceSpecializations(ctx context.Context, userID string, categories []string) error {
	tx, err := r.pool.Begin(ctx)
	if err != nil {
		return err
	}
	defer tx.Rollback(ctx) //nolint:errcheck

	if _, err := tx.Exec(ctx, `DELETE FROM employee_specializations WHERE user_id=$1`, userID); err != nil {
		return err
	}
	for _, category := range categories {
		if _, err := tx.Exec(ctx,
			`INSERT INTO employee_specializations (user_id, category) VALUES ($1,$2) ON CONFLICT DO NOTHING`,
			userID, category); err != nil {
			return err
		}
	}
	return tx.Commit(ctx)
}
