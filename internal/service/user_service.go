package service

import (
	"context"
	"errors"

	"github.com/jackc/pgx/v5"
	"go.uber.org/zap"

	"github.com/spec-kit/fault-service/internal/domain"
	"github.com/spec-kit/fault-service/internal/repository"
	apperrors "github.com/spec-kit/fault-service/pkg/util"
)

// UserService handles account administration and profile management.
type UserService struct {
	users  repository.UserRepository
	logger *zap.Logger
}

// NewUserService constructs the service.
func NewUserService(users repository.UserRepository, logger *zap.Logger) *UserService {
	return &UserService{users: users, logger: logger}
}

// ListWithWorkload returns all accounts with their assignment aggregates,
// for the admin user listing.
func (s *UserService) ListWithWorkload(ctx context.Context) ([]domain.UserWithWorkload, error) {
	users, err := s.users.ListWithWorkload(ctx)
	if err != nil {
		return nil, apperrors.MapError(err)
	}
	return users, nil
}

// ListEmployees returns id/name pairs for every employee account.
func (s *UserService) ListEmployees(ctx context.Context) ([]domain.User, error) {
	employees, err := s.users.ListEmployees(ctx)
	if err != nil {
		return nil, apperrors.MapError(err)
	}
	return employees, nil
}

// UpdateRole changes an account's role. Specializations are replaced when
// the new role is employee and cleared otherwise; the categories an
// employee holds decide which faults they are eligible for.
func (s *UserService) UpdateRole(ctx context.Context, userID string, role domain.Role, specializations []string) (*domain.User, error) {
	if !domain.ValidRole(role) {
		return nil, apperrors.NewValidationError("invalid role", map[string]any{"role": string(role)})
	}

	if err := s.users.UpdateRole(ctx, userID, role); err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, apperrors.NewNotFound("user", map[string]any{"user_id": userID})
		}
		return nil, apperrors.MapError(err)
	}

	if role != domain.RoleEmployee {
		specializations = nil
	}
	if err := s.users.ReplaceSpecializations(ctx, userID, specializations); err != nil {
		return nil, apperrors.MapError(err)
	}

	user, err := s.users.GetByID(ctx, userID)
	if err != nil {
		return nil, apperrors.MapError(err)
	}
	s.logger.Info("user role updated",
		zap.String("user_id", userID),
		zap.String("role", string(role)),
		zap.Int("specializations", len(specializations)))
	return user, nil
}

// Delete removes an account. Faults keep their rows with the user
// reference cleared; the account's comments and specializations go with it.
func (s *UserService) Delete(ctx context.Context, userID string) error {
	if err := s.users.Delete(ctx, userID); err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return apperrors.NewNotFound("user", map[string]any{"user_id": userID})
		}
		return apperrors.MapError(err)
	}
	return nil
}

// GetProfile returns the caller's own record.
func (s *UserService) GetProfile(ctx context.Context, userID string) (*domain.User, error) {
	user, err := s.users.GetByID(ctx, userID)
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, apperrors.NewNotFound("user", map[string]any{"user_id": userID})
		}
		return nil, apperrors.MapError(err)
	}
	return user, nil
}

// UpdateProfile sets the caller's display name and roll number.
func (s *UserService) UpdateProfile(ctx context.Context, userID, name string, rollNumber *string) (*domain.User, error) {
	if err := s.users.UpdateProfile(ctx, userID, name, rollNumber); err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, apperrors.NewNotFound("user", map[string]any{"user_id": userID})
		}
		return nil, apperrors.MapError(err)
	}
	return s.GetProfile(ctx, userID)
}

// GetSpecializations returns the employee's current category list.
func (s *UserService) GetSpecializations(ctx context.Context, userID string) ([]string, error) {
	categories, err := s.users.GetSpecializations(ctx, userID)
	if err != nil {
		return nil, apperrors.MapError(err)
	}
	return categories, nil
}
