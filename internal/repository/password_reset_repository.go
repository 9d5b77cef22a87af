package repository

import (
	"context"
	"errors"
	"time"

	"github.com/redis/go-redis/v9"
)

// ErrResetTokenNotFound is returned for unknown or expired reset tokens.
var ErrResetTokenNotFound = errors.New("password reset token not found or expired")

// PasswordResetRepository stores single-use reset tokens. Expiry is handled
// by the store's TTL; consuming a token deletes it.
type PasswordResetRepository interface {
	Store(ctx context.Context, token, userID string, ttl time.Duration) error
	Consume(ctx context.Context, token string) (string, error)
}

type passwordResetRepository struct {
	client *redis.Client
}

// NewPasswordResetRepository returns a Redis-backed implementation.
func NewPasswordResetRepository(client *redis.Client) PasswordResetRepository {
	return &passwordResetRepository{client: client}
}

func resetKey(token string) string {
	return "password_reset:" + token
}

func (r *passwordResetRepository) Store(ctx context.Context, token, userID string, ttl time.Duration) error {
	return r.client.Set(ctx, resetKey(token), userID, ttl).Err()
}

func (r *passwordResetRepository) Consume(ctx context.Context, token string) (string, error) {
	userID, err := r.client.GetDel(ctx, resetKey(token)).Result()
	if err != nil {
		if errors.Is(err, redis.Nil) {
			return "", ErrResetTokenNotFound
		}
		return "", err
	}
	return userID, nil
}
