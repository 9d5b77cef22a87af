package dto

import (
	"time"

	"github.com/spec-kit/fault-service/internal/domain"
)

// UpdateRoleRequest payload. Specializations apply only when the new role
// is employee.
type UpdateRoleRequest struct {
	Role            string   `json:"role" validate:"required"`
	Specializations []string `json:"specializations"`
}

// UpdateProfileRequest payload.
type UpdateProfileRequest struct {
	Name       string  `json:"name" validate:"required"`
	RollNumber *string `json:"roll_number"`
}

// UserSummary is the compact user shape returned by auth endpoints.
type UserSummary struct {
	ID    string `json:"id"`
	Name  string `json:"name"`
	Email string `json:"email"`
	Role  string `json:"role"`
}

// UserProfile is the caller's own record.
type UserProfile struct {
	ID         string    `json:"id"`
	Name       string    `json:"name"`
	Email      string    `json:"email"`
	Role       string    `json:"role"`
	RoomNumber *string   `json:"room_number"`
	RollNumber *string   `json:"roll_number"`
	CreatedAt  time.Time `json:"created_at"`
}

// UserWithWorkload is the admin listing row with assignment aggregates.
type UserWithWorkload struct {
	ID            string  `json:"id"`
	Name          string  `json:"name"`
	Email         string  `json:"email"`
	Role          string  `json:"role"`
	RoomNumber    *string `json:"room_number"`
	TotalAssigned int     `json:"total_assigned"`
	ResolvedCount int     `json:"resolved_count"`
	PendingCount  int     `json:"pending_count"`
}

// EmployeeSummary is the minimal employee listing row.
type EmployeeSummary struct {
	ID   string `json:"id"`
	Name string `json:"name"`
}

// UserSummaryFrom maps a domain user.
func UserSummaryFrom(user *domain.User) UserSummary {
	return UserSummary{
		ID:    user.ID,
		Name:  user.Name,
		Email: user.Email,
		Role:  string(user.Role),
	}
}

// UserProfileFrom maps a domain user to the profile shape.
func UserProfileFrom(user *domain.User) UserProfile {
	return UserProfile{
		ID:         user.ID,
		Name:       user.Name,
		Email:      user.Email,
		Role:       string(user.Role),
		RoomNumber: user.RoomNumber,
		RollNumber: user.RollNumber,
		CreatedAt:  user.CreatedAt,
	}
}

// UserWithWorkloadFrom maps the aggregate listing row.
func UserWithWorkloadFrom(item *domain.UserWithWorkload) UserWithWorkload {
	return UserWithWorkload{
		ID:            item.ID,
		Name:          item.Name,
		Email:         item.Email,
		Role:          string(item.Role),
		RoomNumber:    item.RoomNumber,
		TotalAssigned: item.TotalAssigned,
		ResolvedCount: item.ResolvedCount,
		PendingCount:  item.PendingCount,
	}
}
