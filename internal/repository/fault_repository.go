package repository

import (
	"context"
	"errors"
	"fmt"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"

	"github.com/spec-kit/fault-service/internal/domain"
)

// ErrFaultNotAssignable is returned when an assignment targets a fault that
// is missing or no longer in Submitted status.
var ErrFaultNotAssignable = errors.New("fault not found or not in submitted status")

// NoEligibleEmployeeError is returned when no specialized employee exists
// for the fault's category. The fault is left untouched.
type NoEligibleEmployeeError struct {
	Category string
}

func (e *NoEligibleEmployeeError) Error() string {
	return fmt.Sprintf("no eligible employee for category %q", e.Category)
}

// FaultRepository encapsulates fault persistence.
type FaultRepository interface {
	Create(ctx context.Context, fault *domain.Fault) error
	GetByID(ctx context.Context, id string) (*domain.Fault, error)
	GetDetail(ctx context.Context, id string) (*domain.FaultDetail, error)
	ListByReporter(ctx context.Context, reporterID string) ([]domain.Fault, error)
	ListByAssignee(ctx context.Context, employeeID string) ([]domain.FaultDetail, error)
	ListAll(ctx context.Context) ([]domain.FaultDetail, error)
	UpdateStatus(ctx context.Context, id string, status domain.FaultStatus) error
	AssignLeastBusy(ctx context.Context, faultID string) (string, error)
	Stats(ctx context.Context) (*domain.FaultStats, error)
}

type faultRepository struct {
	pool *pgxpool.Pool
}

// NewFaultRepository instantiates the repository.
func NewFaultRepository(pool *pgxpool.Pool) FaultRepository {
	return &faultRepository{pool: pool}
}

const faultColumns = `id, reporter_id, assigned_to_id, hostel_name, floor, location, description,
               category, priority, status, image_url, created_at, updated_at`

const faultDetailQuery = `
        SELECT f.id, f.reporter_id, f.assigned_to_id, f.hostel_name, f.floor, f.location, f.description,
               f.category, f.priority, f.status, f.image_url, f.created_at, f.updated_at,
               reporter.name, reporter.room_number, employee.name
        FROM faults f
        LEFT JOIN users reporter ON f.reporter_id = reporter.id
        LEFT JOIN users employee ON f.assigned_to_id = employee.id`

func (r *faultRepository) Create(ctx context.Context, fault *domain.Fault) error {
	const query = `
        INSERT INTO faults (reporter_id, assigned_to_id, hostel_name, floor, location, description, category, priority, status, image_url)
        VALUES ($1,$2,$3,$4,$5,$6,$7,$8,$9,$10)
        RETURNING id, created_at, updated_at`
	return r.pool.QueryRow(ctx, query,
		fault.ReporterID,
		fault.AssignedToID,
		fault.HostelName,
		fault.Floor,
		fault.Location,
		fault.Description,
		fault.Category,
		fault.Priority,
		fault.Status,
		fault.ImageURL,
	).Scan(&fault.ID, &fault.CreatedAt, &fault.UpdatedAt)
}

func (r *faultRepository) GetByID(ctx context.Context, id string) (*domain.Fault, error) {
	query := `SELECT ` + faultColumns + ` FROM faults WHERE id=$1`
	var fault domain.Fault
	if err := r.pool.QueryRow(ctx, query, id).Scan(
		&fault.ID,
		&fault.ReporterID,
		&fault.AssignedToID,
		&fault.HostelName,
		&fault.Floor,
		&fault.Location,
		&fault.Description,
		&fault.Category,
		&fault.Priority,
		&fault.Status,
		&fault.ImageURL,
		&fault.CreatedAt,
		&fault.UpdatedAt,
	); err != nil {
		return nil, err
	}
	return &fault, nil
}

func (r *faultRepository) GetDetail(ctx context.Context, id string) (*domain.FaultDetail, error) {
	row := r.pool.QueryRow(ctx, faultDetailQuery+` WHERE f.id=$1`, id)
	return scanFaultDetailRow(row)
}

func (r *faultRepository) ListByReporter(ctx context.Context, reporterID string) ([]domain.Fault, error) {
	query := `SELECT ` + faultColumns + ` FROM faults WHERE reporter_id=$1 ORDER BY created_at DESC`
	rows, err := r.pool.Query(ctx, query, reporterID)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var result []domain.Fault
	for rows.Next() {
		var fault domain.Fault
		if err := rows.Scan(
			&fault.ID,
			&fault.ReporterID,
			&fault.AssignedToID,
			&fault.HostelName,
			&fault.Floor,
			&fault.Location,
			&fault.Description,
			&fault.Category,
			&fault.Priority,
			&fault.Status,
			&fault.ImageURL,
			&fault.CreatedAt,
			&fault.UpdatedAt,
		); err != nil {
			return nil, err
		}
		result = append(result, fault)
	}
	return result, rows.Err()
}

func (r *faultRepository) ListByAssignee(ctx context.Context, employeeID string) ([]domain.FaultDetail, error) {
	rows, err := r.pool.Query(ctx, faultDetailQuery+` WHERE f.assigned_to_id=$1 ORDER BY f.created_at DESC`, employeeID)
	if err != nil {
		return nil, err
	}
	defer rows.Close()
	return scanFaultDetails(rows)
}

func (r *faultRepository) ListAll(ctx context.Context) ([]domain.FaultDetail, error) {
	rows, err := r.pool.Query(ctx, faultDetailQuery+` ORDER BY f.created_at DESC`)
	if err != nil {
		return nil, err
	}
	defer rows.Close()
	return scanFaultDetails(rows)
}

func (r *faultRepository) UpdateStatus(ctx context.Context, id string, status domain.FaultStatus) error {
	cmd, err := r.pool.Exec(ctx,
		`UPDATE faults SET status=$1, updated_at=NOW() WHERE id=$2`, status, id)
	if err != nil {
		return err
	}
	if cmd.RowsAffected() == 0 {
		return pgx.ErrNoRows
	}
	return nil
}

// AssignLeastBusy binds a Submitted fault to the specialized employee with
// the fewest open tasks, flipping the fault to In Progress. The whole
// read-check-write sequence runs in one transaction with the fault row
// locked, so concurrent assignment attempts serialize instead of double
// assigning. Ties on open_tasks break by ascending employee id.
func (r *faultRepository) AssignLeastBusy(ctx context.Context, faultID string) (string, error) {
	tx, err := r.pool.Begin(ctx)
	if err != nil {
		return "", err
	}
	defer tx.Rollback(ctx) //nolint:errcheck

	var category string
	err = tx.QueryRow(ctx,
		`SELECT category FROM faults WHERE id=$1 AND status='Submitted' FOR UPDATE`,
		faultID).Scan(&category)
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return "", ErrFaultNotAssignable
		}
		return "", err
	}

	const candidateQuery = `
        SELECT u.id, COUNT(f.id) AS open_tasks
        FROM users u
        JOIN employee_specializations es ON u.id = es.user_id
        LEFT JOIN faults f ON u.id = f.assigned_to_id AND f.status IN ('Submitted', 'In Progress')
        WHERE u.role = 'employee' AND es.category = $1
        GROUP BY u.id`

	rows, err := tx.Query(ctx, candidateQuery, category)
	if err != nil {
		return "", err
	}
	candidates, err := scanEmployeeLoads(rows)
	if err != nil {
		return "", err
	}

	employeeID, ok := leastBusy(candidates)
	if !ok {
		return "", &NoEligibleEmployeeError{Category: category}
	}

	if _, err := tx.Exec(ctx,
		`UPDATE faults SET assigned_to_id=$1, status='In Progress', updated_at=NOW() WHERE id=$2`,
		employeeID, faultID); err != nil {
		return "", err
	}

	if err := tx.Commit(ctx); err != nil {
		return "", err
	}
	return employeeID, nil
}

func (r *faultRepository) Stats(ctx context.Context) (*domain.FaultStats, error) {
	stats := &domain.FaultStats{}

	rows, err := r.pool.Query(ctx, `SELECT status, COUNT(*) FROM faults GROUP BY status`)
	if err != nil {
		return nil, err
	}
	for rows.Next() {
		var item domain.StatusCount
		if err := rows.Scan(&item.Status, &item.Count); err != nil {
			rows.Close()
			return nil, err
		}
		stats.StatusCounts = append(stats.StatusCounts, item)
	}
	rows.Close()
	if err := rows.Err(); err != nil {
		return nil, err
	}

	rows, err = r.pool.Query(ctx, `SELECT priority, COUNT(*) FROM faults GROUP BY priority`)
	if err != nil {
		return nil, err
	}
	for rows.Next() {
		var item domain.PriorityCount
		if err := rows.Scan(&item.Priority, &item.Count); err != nil {
			rows.Close()
			return nil, err
		}
		stats.PriorityCounts = append(stats.PriorityCounts, item)
	}
	rows.Close()
	if err := rows.Err(); err != nil {
		return nil, err
	}

	rows, err = r.pool.Query(ctx, `SELECT category, COUNT(*) FROM faults GROUP BY category`)
	if err != nil {
		return nil, err
	}
	for rows.Next() {
		var item domain.CategoryCount
		if err := rows.Scan(&item.Category, &item.Count); err != nil {
			rows.Close()
			return nil, err
		}
		stats.CategoryCounts = append(stats.CategoryCounts, item)
	}
	rows.Close()
	if err := rows.Err(); err != nil {
		return nil, err
	}

	return stats, nil
}

// employeeLoad is one assignment candidate with its open task count.
type employeeLoad struct {
	ID        string
	OpenTasks int
}

func scanEmployeeLoads(rows pgx.Rows) ([]employeeLoad, error) {
	defer rows.Close()
	var result []employeeLoad
	for rows.Next() {
		var load employeeLoad
		if err := rows.Scan(&load.ID, &load.OpenTasks); err != nil {
			return nil, err
		}
		result = append(result, load)
	}
	return result, rows.Err()
}

// leastBusy picks the candidate with the fewest open tasks, breaking ties
// by ascending employee id so repeated runs over the same state agree.
func leastBusy(candidates []employeeLoad) (string, bool) {
	if len(candidates) == 0 {
		return "", false
	}
	best := candidates[0]
	for _, candidate := range candidates[1:] {
		if candidate.OpenTasks < best.OpenTasks ||
			(candidate.OpenTasks == best.OpenTasks && candidate.ID < best.ID) {
			best = candidate
		}
	}
	return best.ID, true
}

func scanFaultDetails(rows pgx.Rows) ([]domain.FaultDetail, error) {
	var result []domain.FaultDetail
	for rows.Next() {
		detail, err := scanFaultDetailRow(rows)
		if err != nil {
			return nil, err
		}
		result = append(result, *detail)
	}
	return result, rows.Err()
}

func scanFaultDetailRow(row pgx.Row) (*domain.FaultDetail, error) {
	var detail domain.FaultDetail
	if err := row.Scan(
		&detail.ID,
		&detail.ReporterID,
		&detail.AssignedToID,
		&detail.HostelName,
		&detail.Floor,
		&detail.Location,
		&detail.Description,
		&detail.Category,
		&detail.Priority,
		&detail.Status,
		&detail.ImageURL,
		&detail.CreatedAt,
		&detail.UpdatedAt,
		&detail.ReporterName,
		&detail.ReporterRoom,
		&detail.AssignedEmployeeName,
	); err != nil {
		return nil, err
	}
	return &detail, nil
}
