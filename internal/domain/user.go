package domain

import "time"

// Role enumerates the access levels a user can hold.
type Role string

const (
	RoleStudent  Role = "student"
	RoleEmployee Role = "employee"
	RoleAdmin    Role = "admin"
)

// ValidRole reports whether the value is one of the defined roles.
func ValidRole(r Role) bool {
	switch r {
	case RoleStudent, RoleEmployee, RoleAdmin:
		return true
	}
	return false
}

// User is the domain model for every account: students who report faults,
// employees who resolve them, and admins who assign them.
type User struct {
	ID           string
	Name         string
	Email        string
	PasswordHash *string
	GoogleID     *string
	Role         Role
	RoomNumber   *string
	RollNumber   *string
	CreatedAt    time.Time
	UpdatedAt    time.Time
}

// UserWithWorkload couples a user with their fault assignment aggregates.
// The counts are zero for non-employees.
type UserWithWorkload struct {
	User
	TotalAssigned int
	ResolvedCount int
	PendingCount  int
}
