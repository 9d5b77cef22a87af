package repository

import (
	"context"
	"sort"

	"github.com/jackc/pgx/v5/pgxpool"

	"github.com/spec-kit/fault-service/internal/domain"
)

// CommentRepository manages the immutable comment thread under each fault.
type CommentRepository interface {
	Create(ctx context.Context, comment *domain.Comment) error
	GetDetail(ctx context.Context, id string) (*domain.CommentDetail, error)
	ListByFault(ctx context.Context, faultID string) ([]domain.CommentDetail, error)
}

type commentRepository struct {
	pool *pgxpool.Pool
}

// NewCommentRepository builds the repository.
func NewCommentRepository(pool *pgxpool.Pool) CommentRepository {
	return &commentRepository{pool: pool}
}

func (r *commentRepository) Create(ctx context.Context, comment *domain.Comment) error {
	const query = `
        INSERT INTO fault_comments (fault_id, user_id, comment)
        VALUES ($1,$2,$3)
        RETURNING id, created_at`
	return r.pool.QueryRow(ctx, query,
		comment.FaultID,
		comment.UserID,
		comment.Body,
	).Scan(&comment.ID, &comment.CreatedAt)
}

func (r *commentRepository) GetDetail(ctx context.Context, id string) (*domain.CommentDetail, error) {
	const query = `
        SELECT c.id, c.fault_id, c.user_id, c.comment, c.created_at, u.name, u.role
        FROM fault_comments c
        JOIN users u ON c.user_id = u.id
        WHERE c.id=$1`
	var detail domain.CommentDetail
	if err := r.pool.QueryRow(ctx, query, id).Scan(
		&detail.ID,
		&detail.FaultID,
		&detail.UserID,
		&detail.Body,
		&detail.CreatedAt,
		&detail.AuthorName,
		&detail.AuthorRole,
	); err != nil {
		return nil, err
	}
	return &detail, nil
}

func (r *commentRepository) ListByFault(ctx context.Context, faultID string) ([]domain.CommentDetail, error) {
	const query = `
        SELECT c.id, c.fault_id, c.user_id, c.comment, c.created_at, u.name, u.role
        FROM fault_comments c
        JOIN users u ON c.user_id = u.id
        WHERE c.fault_id=$1
        ORDER BY c.created_at ASC`
	rows, err := r.pool.Query(ctx, query, faultID)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var result []domain.CommentDetail
	for rows.Next() {
		var detail domain.CommentDetail
		if err := rows.Scan(
			&detail.ID,
			&detail.FaultID,
			&detail.UserID,
			&detail.Body,
			&detail.CreatedAt,
			&detail.AuthorName,
			&detail.AuthorRole,
		); err != nil {
			return nil, err
		}
		result = append(result, detail)
	}
	if err := rows.Err(); err != nil {
		return nil, err
	}
	orderByCreation(result)
	return result, nil
}

// orderByCreation sorts a thread oldest first, keeping the scan order for
// comments sharing a timestamp.
func orderByCreation(comments []domain.CommentDetail) {
	sort.SliceStable(comments, func(i, j int) bool {
		return comments[i].CreatedAt.Before(comments[j].CreatedAt)
	})
}
