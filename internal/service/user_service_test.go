package service

import (
	"context"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"

	"github.com/spec-kit/fault-service/internal/domain"
	apperrors "github.com/spec-kit/fault-service/pkg/util"
)

func TestUserServiceUpdateRolePromotesEmployee(t *testing.T) {
	users := newMockUserRepo()
	id := users.add(domain.User{Name: "Ravi", Email: "ravi@example.com", Role: domain.RoleStudent})
	svc := NewUserService(users, zap.NewNop())

	user, err := svc.UpdateRole(context.Background(), id, domain.RoleEmployee, []string{"Plumbing", "Electrical"})
	require.NoError(t, err)
	assert.Equal(t, domain.RoleEmployee, user.Role)

	categories, err := svc.GetSpecializations(context.Background(), id)
	require.NoError(t, err)
	assert.ElementsMatch(t, []string{"Plumbing", "Electrical"}, categories)
}

func TestUserServiceUpdateRoleDemotionClearsSpecializations(t *testing.T) {
	users := newMockUserRepo()
	id := users.add(domain.User{Name: "Ravi", Email: "ravi@example.com", Role: domain.RoleEmployee})
	users.specializations[id] = []string{"Plumbing"}
	svc := NewUserService(users, zap.NewNop())

	_, err := svc.UpdateRole(context.Background(), id, domain.RoleStudent, []string{"Plumbing"})
	require.NoError(t, err)

	categories, err := svc.GetSpecializations(context.Background(), id)
	require.NoError(t, err)
	assert.Empty(t, categories)
}

func TestUserServiceUpdateRoleRejectsUnknownRole(t *testing.T) {
	svc := NewUserService(newMockUserRepo(), zap.NewNop())

	_, err := svc.UpdateRole(context.Background(), "user-1", domain.Role("superuser"), nil)

	var domainErr *apperrors.DomainError
	require.ErrorAs(t, err, &domainErr)
	assert.Equal(t, "VALIDATION_FAILED", domainErr.Code)
}

func TestUserServiceDeleteUnknownUser(t *testing.T) {
	svc := NewUserService(newMockUserRepo(), zap.NewNop())

	err := svc.Delete(context.Background(), "missing")

	var domainErr *apperrors.DomainError
	require.ErrorAs(t, err, &domainErr)
	assert.Equal(t, "NOT_FOUND", domainErr.Code)
}

func TestUserServiceUpdateProfile(t *testing.T) {
	users := newMockUserRepo()
	id := users.add(domain.User{Name: "Old Name", Email: "asha@example.com", Role: domain.RoleStudent})
	svc := NewUserService(users, zap.NewNop())

	roll := "21BCS100"
	user, err := svc.UpdateProfile(context.Background(), id, "New Name", &roll)
	require.NoError(t, err)
	assert.Equal(t, "New Name", user.Name)
	require.NotNil(t, user.RollNumber)
	assert.Equal(t, "21BCS100", *user.RollNumber)
}
