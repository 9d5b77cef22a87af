package auth

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/spec-kit/fault-service/internal/domain"
)

func TestTokenRoundTrip(t *testing.T) {
	tm := NewTokenManager("secret", 60)
	user := &domain.User{ID: "user-1", Name: "Asha", Role: domain.RoleStudent}

	token, expiresAt, err := tm.GenerateToken(user)
	require.NoError(t, err)
	assert.NotEmpty(t, token)
	assert.False(t, expiresAt.IsZero())

	claims, err := tm.ParseToken(token)
	require.NoError(t, err)
	assert.Equal(t, "user-1", claims.UserID)
	assert.Equal(t, "Asha", claims.Name)
	assert.Equal(t, domain.RoleStudent, claims.Role)
}

func TestTokenWrongSecretRejected(t *testing.T) {
	issuer := NewTokenManager("secret-a", 60)
	verifier := NewTokenManager("secret-b", 60)

	token, _, err := issuer.GenerateToken(&domain.User{ID: "user-1", Role: domain.RoleAdmin})
	require.NoError(t, err)

	_, err = verifier.ParseToken(token)
	require.Error(t, err)
}

func TestTokenGarbageRejected(t *testing.T) {
	tm := NewTokenManager("secret", 60)
	_, err := tm.ParseToken("not-a-token")
	require.Error(t, err)
}
