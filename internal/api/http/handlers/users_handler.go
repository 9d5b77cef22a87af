package handlers

import (
	"github.com/gofiber/fiber/v2"

	"github.com/spec-kit/fault-service/internal/api/dto"
	"github.com/spec-kit/fault-service/internal/auth"
	"github.com/spec-kit/fault-service/internal/domain"
	"github.com/spec-kit/fault-service/internal/service"
	apperrors "github.com/spec-kit/fault-service/pkg/util"
)

// UsersHandler manages account administration and profile endpoints.
type UsersHandler struct {
	service *service.UserService
}

// NewUsersHandler constructs handler.
func NewUsersHandler(userService *service.UserService) *UsersHandler {
	return &UsersHandler{service: userService}
}

// ListUsers GET /users/all. Admin listing with assignment aggregates.
func (h *UsersHandler) ListUsers(c *fiber.Ctx) error {
	users, err := h.service.ListWithWorkload(c.Context())
	if err != nil {
		return err
	}
	items := make([]dto.UserWithWorkload, 0, len(users))
	for i := range users {
		items = append(items, dto.UserWithWorkloadFrom(&users[i]))
	}
	return c.JSON(fiber.Map{"data": items})
}

// ListEmployees GET /users/employees.
func (h *UsersHandler) ListEmployees(c *fiber.Ctx) error {
	employees, err := h.service.ListEmployees(c.Context())
	if err != nil {
		return err
	}
	items := make([]dto.EmployeeSummary, 0, len(employees))
	for _, employee := range employees {
		items = append(items, dto.EmployeeSummary{ID: employee.ID, Name: employee.Name})
	}
	return c.JSON(fiber.Map{"data": items})
}

// UpdateRole PUT /users/:id/role.
func (h *UsersHandler) UpdateRole(c *fiber.Ctx) error {
	var req dto.UpdateRoleRequest
	if err := c.BodyParser(&req); err != nil {
		return apperrors.NewValidationError("invalid payload", nil)
	}
	if err := dto.Validate(&req); err != nil {
		return err
	}

	user, err := h.service.UpdateRole(c.Context(), c.Params("id"), domain.Role(req.Role), req.Specializations)
	if err != nil {
		return err
	}
	return c.JSON(fiber.Map{"data": dto.UserSummaryFrom(user)})
}

// DeleteUser DELETE /users/:id.
func (h *UsersHandler) DeleteUser(c *fiber.Ctx) error {
	principal, ok := auth.PrincipalFromContext(c)
	if !ok || principal.User == nil {
		return apperrors.NewUnauthorized("user required")
	}
	if principal.User.ID == c.Params("id") {
		return apperrors.NewConflict("cannot delete your own account", nil)
	}
	if err := h.service.Delete(c.Context(), c.Params("id")); err != nil {
		return err
	}
	return c.JSON(fiber.Map{"message": "user deleted"})
}

// GetProfile GET /users/me.
func (h *UsersHandler) GetProfile(c *fiber.Ctx) error {
	principal, ok := auth.PrincipalFromContext(c)
	if !ok || principal.User == nil {
		return apperrors.NewUnauthorized("user required")
	}
	user, err := h.service.GetProfile(c.Context(), principal.User.ID)
	if err != nil {
		return err
	}
	return c.JSON(fiber.Map{"data": dto.UserProfileFrom(user)})
}

// UpdateProfile PUT /users/me.
func (h *UsersHandler) UpdateProfile(c *fiber.Ctx) error {
	principal, ok := auth.PrincipalFromContext(c)
	if !ok || principal.User == nil {
		return apperrors.NewUnauthorized("user required")
	}
	var req dto.UpdateProfileRequest
	if err := c.BodyParser(&req); err != nil {
		return apperrors.NewValidationError("invalid payload", nil)
	}
	if err := dto.Validate(&req); err != nil {
		return err
	}

	user, err := h.service.UpdateProfile(c.Context(), principal.User.ID, req.Name, req.RollNumber)
	if err != nil {
		return err
	}
	return c.JSON(fiber.Map{"data": dto.UserProfileFrom(user)})
}
