package handlers

import (
	"net/http"

	"github.com/gofiber/fiber/v2"

	"github.com/spec-kit/fault-service/internal/api/dto"
	"github.com/spec-kit/fault-service/internal/service"
	apperrors "github.com/spec-kit/fault-service/pkg/util"
)

// AuthHandler manages registration, sign-in and password reset endpoints.
type AuthHandler struct {
	service *service.AuthService
}

// NewAuthHandler constructs handler.
func NewAuthHandler(authService *service.AuthService) *AuthHandler {
	return &AuthHandler{service: authService}
}

// Register POST /auth/register.
func (h *AuthHandler) Register(c *fiber.Ctx) error {
	var req dto.RegisterRequest
	if err := c.BodyParser(&req); err != nil {
		return apperrors.NewValidationError("invalid payload", nil)
	}
	if err := dto.Validate(&req); err != nil {
		return err
	}

	result, err := h.service.Register(c.Context(), service.RegisterInput{
		Name:       req.Name,
		Email:      req.Email,
		Password:   req.Password,
		RoomNumber: req.RoomNumber,
	})
	if err != nil {
		return err
	}
	return c.Status(http.StatusCreated).JSON(authResponse(result))
}

// Login POST /auth/login.
func (h *AuthHandler) Login(c *fiber.Ctx) error {
	var req dto.LoginRequest
	if err := c.BodyParser(&req); err != nil {
		return apperrors.NewValidationError("invalid payload", nil)
	}
	if err := dto.Validate(&req); err != nil {
		return err
	}

	result, err := h.service.Login(c.Context(), req.Email, req.Password)
	if err != nil {
		return err
	}
	return c.JSON(authResponse(result))
}

// GoogleLogin POST /auth/google.
func (h *AuthHandler) GoogleLogin(c *fiber.Ctx) error {
	var req dto.GoogleLoginRequest
	if err := c.BodyParser(&req); err != nil {
		return apperrors.NewValidationError("invalid payload", nil)
	}
	if err := dto.Validate(&req); err != nil {
		return err
	}

	result, err := h.service.LoginWithGoogle(c.Context(), req.Credential)
	if err != nil {
		return err
	}
	return c.JSON(authResponse(result))
}

// ForgotPassword POST /auth/forgot-password. Always answers 200 so the
// response does not reveal whether the email is registered.
func (h *AuthHandler) ForgotPassword(c *fiber.Ctx) error {
	var req dto.ForgotPasswordRequest
	if err := c.BodyParser(&req); err != nil {
		return apperrors.NewValidationError("invalid payload", nil)
	}
	if err := dto.Validate(&req); err != nil {
		return err
	}

	if err := h.service.RequestPasswordReset(c.Context(), req.Email); err != nil {
		return err
	}
	return c.JSON(fiber.Map{"message": "if the email is registered, a reset link has been sent"})
}

// ResetPassword PUT /auth/reset-password/:token.
func (h *AuthHandler) ResetPassword(c *fiber.Ctx) error {
	var req dto.ResetPasswordRequest
	if err := c.BodyParser(&req); err != nil {
		return apperrors.NewValidationError("invalid payload", nil)
	}
	if err := dto.Validate(&req); err != nil {
		return err
	}

	if err := h.service.ResetPassword(c.Context(), c.Params("token"), req.Password); err != nil {
		return err
	}
	return c.JSON(fiber.Map{"message": "password updated"})
}

func authResponse(result *service.AuthResult) fiber.Map {
	return fiber.Map{"data": fiber.Map{
		"token":      result.Token,
		"expires_at": result.ExpiresAt,
		"user":       dto.UserSummaryFrom(result.User),
	}}
}
