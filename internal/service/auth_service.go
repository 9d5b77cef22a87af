package service

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/google/uuid"
	"github.com/jackc/pgx/v5"
	"go.uber.org/zap"

	"github.com/spec-kit/fault-service/internal/auth"
	"github.com/spec-kit/fault-service/internal/domain"
	"github.com/spec-kit/fault-service/internal/repository"
	apperrors "github.com/spec-kit/fault-service/pkg/util"
)

// AuthService handles registration, credential and Google sign-in, and the
// password reset flow.
type AuthService struct {
	users      repository.UserRepository
	resets     repository.PasswordResetRepository
	tokens     *auth.TokenManager
	google     auth.GoogleVerifier
	notifier   Notifier
	resetTTL   time.Duration
	bcryptCost int
	logger     *zap.Logger
}

// Notifier is the outbound email dependency. Declared here so services can
// be tested against a recording stub.
type Notifier interface {
	Send(to, subject, body string) error
}

// AuthDependencies bundles collaborators for the auth service.
type AuthDependencies struct {
	UserRepo   repository.UserRepository
	ResetRepo  repository.PasswordResetRepository
	Tokens     *auth.TokenManager
	Google     auth.GoogleVerifier
	Notifier   Notifier
	ResetTTL   time.Duration
	BcryptCost int
	Logger     *zap.Logger
}

// RegisterInput describes a self-service student registration.
type RegisterInput struct {
	Name       string
	Email      string
	Password   string
	RoomNumber *string
}

// AuthResult is an issued session token plus the authenticated user.
type AuthResult struct {
	User      *domain.User
	Token     string
	ExpiresAt time.Time
}

// NewAuthService constructs the service.
func NewAuthService(deps AuthDependencies) *AuthService {
	return &AuthService{
		users:      deps.UserRepo,
		resets:     deps.ResetRepo,
		tokens:     deps.Tokens,
		google:     deps.Google,
		notifier:   deps.Notifier,
		resetTTL:   deps.ResetTTL,
		bcryptCost: deps.BcryptCost,
		logger:     deps.Logger,
	}
}

// Register creates a student account and signs it in.
func (s *AuthService) Register(ctx context.Context, input RegisterInput) (*AuthResult, error) {
	email := normalizeEmail(input.Email)

	if existing, err := s.users.GetByEmail(ctx, email); err == nil && existing != nil {
		return nil, apperrors.NewConflict("an account with this email already exists", map[string]any{"email": email})
	} else if err != nil && !errors.Is(err, pgx.ErrNoRows) {
		return nil, apperrors.MapError(err)
	}

	hash, err := auth.HashPassword(input.Password, s.bcryptCost)
	if err != nil {
		return nil, apperrors.NewInternalError(err)
	}

	user := &domain.User{
		Name:         strings.TrimSpace(input.Name),
		Email:        email,
		PasswordHash: &hash,
		Role:         domain.RoleStudent,
		RoomNumber:   input.RoomNumber,
	}
	if err := s.users.Create(ctx, user); err != nil {
		return nil, apperrors.MapError(err)
	}
	return s.issueToken(user)
}

// Login authenticates email/password credentials. Unknown email and wrong
// password produce the same error so the response does not leak which one
// failed.
func (s *AuthService) Login(ctx context.Context, email, password string) (*AuthResult, error) {
	user, err := s.users.GetByEmail(ctx, normalizeEmail(email))
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, apperrors.NewUnauthorized("invalid email or password")
		}
		return nil, apperrors.MapError(err)
	}
	if user.PasswordHash == nil || auth.ComparePassword(*user.PasswordHash, password) != nil {
		return nil, apperrors.NewUnauthorized("invalid email or password")
	}
	return s.issueToken(user)
}

// LoginWithGoogle verifies a Google ID token and signs in the matching
// account, creating a student account on first sign-in.
func (s *AuthService) LoginWithGoogle(ctx context.Context, credential string) (*AuthResult, error) {
	identity, err := s.google.Verify(ctx, credential)
	if err != nil {
		return nil, apperrors.NewUnauthorized("google sign-in could not be verified")
	}

	email := normalizeEmail(identity.Email)
	user, err := s.users.GetByEmail(ctx, email)
	switch {
	case err == nil:
		if user.GoogleID == nil {
			if err := s.users.AttachGoogleID(ctx, email, identity.GoogleID); err != nil {
				return nil, apperrors.MapError(err)
			}
		}
	case errors.Is(err, pgx.ErrNoRows):
		name := identity.Name
		if name == "" {
			name = email
		}
		user = &domain.User{
			Name:     name,
			Email:    email,
			GoogleID: &identity.GoogleID,
			Role:     domain.RoleStudent,
		}
		if err := s.users.Create(ctx, user); err != nil {
			return nil, apperrors.MapError(err)
		}
	default:
		return nil, apperrors.MapError(err)
	}
	return s.issueToken(user)
}

// RequestPasswordReset issues a single-use token and emails it to the
// account holder. The response is identical whether or not the email is
// registered.
func (s *AuthService) RequestPasswordReset(ctx context.Context, email string) error {
	user, err := s.users.GetByEmail(ctx, normalizeEmail(email))
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil
		}
		return apperrors.MapError(err)
	}

	token := uuid.NewString()
	if err := s.resets.Store(ctx, token, user.ID, s.resetTTL); err != nil {
		return apperrors.MapError(err)
	}

	subject := "Password Reset Request"
	body := fmt.Sprintf("Hi %s,\n\nUse this token to reset your password: %s\n\nIt expires in %d minutes.",
		user.Name, token, int(s.resetTTL.Minutes()))
	if err := s.notifier.Send(user.Email, subject, body); err != nil {
		s.logger.Warn("password reset email failed",
			zap.String("email", user.Email), zap.Error(err))
	}
	return nil
}

// ResetPassword consumes a reset token and sets the new password.
func (s *AuthService) ResetPassword(ctx context.Context, token, newPassword string) error {
	userID, err := s.resets.Consume(ctx, token)
	if err != nil {
		if errors.Is(err, repository.ErrResetTokenNotFound) {
			return apperrors.NewUnauthorized("reset token is invalid or expired")
		}
		return apperrors.MapError(err)
	}

	hash, err := auth.HashPassword(newPassword, s.bcryptCost)
	if err != nil {
		return apperrors.NewInternalError(err)
	}
	if err := s.users.UpdatePassword(ctx, userID, hash); err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return apperrors.NewNotFound("user", map[string]any{"user_id": userID})
		}
		return apperrors.MapError(err)
	}
	return nil
}

func (s *AuthService) issueToken(user *domain.User) (*AuthResult, error) {
	token, expiresAt, err := s.tokens.GenerateToken(user)
	if err != nil {
		return nil, apperrors.NewInternalError(err)
	}
	return &AuthResult{User: user, Token: token, ExpiresAt: expiresAt}, nil
}

func normalizeEmail(email string) string {
	return strings.ToLower(strings.TrimSpace(email))
}
