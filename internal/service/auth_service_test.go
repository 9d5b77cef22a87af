package service

import (
	"context"
	"errors"
	"sync"
	"testing"
	"time"

	"github.com/jackc/pgx/v5"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"

	"github.com/spec-kit/fault-service/internal/auth"
	"github.com/spec-kit/fault-service/internal/domain"
	"github.com/spec-kit/fault-service/internal/repository"
	apperrors "github.com/spec-kit/fault-service/pkg/util"
)

type mockUserRepo struct {
	mu              sync.Mutex
	users           map[string]domain.User
	specializations map[string][]string
	nextID          int
}

func newMockUserRepo() *mockUserRepo {
	return &mockUserRepo{
		users:           make(map[string]domain.User),
		specializations: make(map[string][]string),
	}
}

func (m *mockUserRepo) add(user domain.User) string {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.nextID++
	if user.ID == "" {
		user.ID = "user-" + string(rune('0'+m.nextID))
	}
	m.users[user.ID] = user
	return user.ID
}

func (m *mockUserRepo) Create(_ context.Context, user *domain.User) error {
	if user.Role == "" {
		user.Role = domain.RoleStudent
	}
	user.ID = m.add(*user)
	return nil
}

func (m *mockUserRepo) GetByID(_ context.Context, id string) (*domain.User, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	user, ok := m.users[id]
	if !ok {
		return nil, pgx.ErrNoRows
	}
	return &user, nil
}

func (m *mockUserRepo) GetByEmail(_ context.Context, email string) (*domain.User, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	for _, user := range m.users {
		if user.Email == email {
			u := user
			return &u, nil
		}
	}
	return nil, pgx.ErrNoRows
}

func (m *mockUserRepo) UpdateProfile(_ context.Context, id, name string, rollNumber *string) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	user, ok := m.users[id]
	if !ok {
		return pgx.ErrNoRows
	}
	user.Name = name
	user.RollNumber = rollNumber
	m.users[id] = user
	return nil
}

func (m *mockUserRepo) UpdatePassword(_ context.Context, id, passwordHash string) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	user, ok := m.users[id]
	if !ok {
		return pgx.ErrNoRows
	}
	user.PasswordHash = &passwordHash
	m.users[id] = user
	return nil
}

func (m *mockUserRepo) UpdateRole(_ context.Context, id string, role domain.Role) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	user, ok := m.users[id]
	if !ok {
		return pgx.ErrNoRows
	}
	user.Role = role
	m.users[id] = user
	return nil
}

func (m *mockUserRepo) AttachGoogleID(_ context.Context, email, googleID string) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	for id, user := range m.users {
		if user.Email == email && user.GoogleID == nil {
			user.GoogleID = &googleID
			m.users[id] = user
		}
	}
	return nil
}

func (m *mockUserRepo) Delete(_ context.Context, id string) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	if _, ok := m.users[id]; !ok {
		return pgx.ErrNoRows
	}
	delete(m.users, id)
	delete(m.specializations, id)
	return nil
}

func (m *mockUserRepo) ListAdminEmails(_ context.Context) ([]string, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	var emails []string
	for _, user := range m.users {
		if user.Role == domain.RoleAdmin {
			emails = append(emails, user.Email)
		}
	}
	return emails, nil
}

func (m *mockUserRepo) ListEmployees(_ context.Context) ([]domain.User, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	var result []domain.User
	for _, user := range m.users {
		if user.Role == domain.RoleEmployee {
			result = append(result, user)
		}
	}
	return result, nil
}

func (m *mockUserRepo) ListWithWorkload(_ context.Context) ([]domain.UserWithWorkload, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	result := make([]domain.UserWithWorkload, 0, len(m.users))
	for _, user := range m.users {
		result = append(result, domain.UserWithWorkload{User: user})
	}
	return result, nil
}

func (m *mockUserRepo) GetSpecializations(_ context.Context, userID string) ([]string, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	return append([]string{}, m.specializations[userID]...), nil
}

func (m *mockUserRepo) ReplaceSpecializations(_ context.Context, userID string, categories []string) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	if len(categories) == 0 {
		delete(m.specializations, userID)
		return nil
	}
	m.specializations[userID] = append([]string{}, categories...)
	return nil
}

type mockResetRepo struct {
	mu     sync.Mutex
	tokens map[string]string
}

func newMockResetRepo() *mockResetRepo {
	return &mockResetRepo{tokens: make(map[string]string)}
}

func (m *mockResetRepo) Store(_ context.Context, token, userID string, _ time.Duration) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.tokens[token] = userID
	return nil
}

func (m *mockResetRepo) Consume(_ context.Context, token string) (string, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	userID, ok := m.tokens[token]
	if !ok {
		return "", repository.ErrResetTokenNotFound
	}
	delete(m.tokens, token)
	return userID, nil
}

type sentMail struct {
	To      string
	Subject string
	Body    string
}

type recordingNotifier struct {
	mu   sync.Mutex
	sent []sentMail
	err  error
}

func (n *recordingNotifier) Send(to, subject, body string) error {
	n.mu.Lock()
	defer n.mu.Unlock()
	n.sent = append(n.sent, sentMail{To: to, Subject: subject, Body: body})
	return n.err
}

func (n *recordingNotifier) messages() []sentMail {
	n.mu.Lock()
	defer n.mu.Unlock()
	return append([]sentMail{}, n.sent...)
}

type stubGoogleVerifier struct {
	identity *auth.GoogleIdentity
	err      error
}

func (s *stubGoogleVerifier) Verify(context.Context, string) (*auth.GoogleIdentity, error) {
	if s.err != nil {
		return nil, s.err
	}
	return s.identity, nil
}

func newAuthService(users *mockUserRepo, resets *mockResetRepo, notifier *recordingNotifier, google auth.GoogleVerifier) *AuthService {
	return NewAuthService(AuthDependencies{
		UserRepo:   users,
		ResetRepo:  resets,
		Tokens:     auth.NewTokenManager("test-secret", 60),
		Google:     google,
		Notifier:   notifier,
		ResetTTL:   30 * time.Minute,
		BcryptCost: 4,
		Logger:     zap.NewNop(),
	})
}

func TestAuthServiceRegister(t *testing.T) {
	users := newMockUserRepo()
	svc := newAuthService(users, newMockResetRepo(), &recordingNotifier{}, &stubGoogleVerifier{})

	result, err := svc.Register(context.Background(), RegisterInput{
		Name:     "Asha",
		Email:    "Asha@Example.com",
		Password: "secret1",
	})
	require.NoError(t, err)

	assert.NotEmpty(t, result.Token)
	assert.Equal(t, domain.RoleStudent, result.User.Role)
	assert.Equal(t, "asha@example.com", result.User.Email)
	require.NotNil(t, result.User.PasswordHash)
	assert.NoError(t, auth.ComparePassword(*result.User.PasswordHash, "secret1"))
}

func TestAuthServiceRegisterDuplicateEmail(t *testing.T) {
	users := newMockUserRepo()
	users.add(domain.User{Email: "asha@example.com", Role: domain.RoleStudent})
	svc := newAuthService(users, newMockResetRepo(), &recordingNotifier{}, &stubGoogleVerifier{})

	_, err := svc.Register(context.Background(), RegisterInput{Name: "Asha", Email: "asha@example.com", Password: "secret1"})

	var domainErr *apperrors.DomainError
	require.ErrorAs(t, err, &domainErr)
	assert.Equal(t, "CONFLICT", domainErr.Code)
}

func TestAuthServiceLoginWrongPassword(t *testing.T) {
	users := newMockUserRepo()
	hash, err := auth.HashPassword("correct", 4)
	require.NoError(t, err)
	users.add(domain.User{Email: "asha@example.com", PasswordHash: &hash, Role: domain.RoleStudent})
	svc := newAuthService(users, newMockResetRepo(), &recordingNotifier{}, &stubGoogleVerifier{})

	_, err = svc.Login(context.Background(), "asha@example.com", "wrong")

	var domainErr *apperrors.DomainError
	require.ErrorAs(t, err, &domainErr)
	assert.Equal(t, "UNAUTHORIZED", domainErr.Code)
}

func TestAuthServiceLoginUnknownEmailSameError(t *testing.T) {
	svc := newAuthService(newMockUserRepo(), newMockResetRepo(), &recordingNotifier{}, &stubGoogleVerifier{})

	_, err := svc.Login(context.Background(), "nobody@example.com", "whatever")

	var domainErr *apperrors.DomainError
	require.ErrorAs(t, err, &domainErr)
	assert.Equal(t, "UNAUTHORIZED", domainErr.Code)
	assert.Equal(t, "invalid email or password", domainErr.Message)
}

func TestAuthServiceGoogleFirstSignInCreatesStudent(t *testing.T) {
	users := newMockUserRepo()
	google := &stubGoogleVerifier{identity: &auth.GoogleIdentity{GoogleID: "g-123", Email: "new@example.com", Name: "New User"}}
	svc := newAuthService(users, newMockResetRepo(), &recordingNotifier{}, google)

	result, err := svc.LoginWithGoogle(context.Background(), "credential")
	require.NoError(t, err)

	assert.Equal(t, domain.RoleStudent, result.User.Role)
	require.NotNil(t, result.User.GoogleID)
	assert.Equal(t, "g-123", *result.User.GoogleID)
}

func TestAuthServiceGoogleLinksExistingAccount(t *testing.T) {
	users := newMockUserRepo()
	id := users.add(domain.User{Email: "asha@example.com", Role: domain.RoleEmployee})
	google := &stubGoogleVerifier{identity: &auth.GoogleIdentity{GoogleID: "g-9", Email: "asha@example.com", Name: "Asha"}}
	svc := newAuthService(users, newMockResetRepo(), &recordingNotifier{}, google)

	result, err := svc.LoginWithGoogle(context.Background(), "credential")
	require.NoError(t, err)
	assert.Equal(t, domain.RoleEmployee, result.User.Role)

	stored, err := users.GetByID(context.Background(), id)
	require.NoError(t, err)
	require.NotNil(t, stored.GoogleID)
	assert.Equal(t, "g-9", *stored.GoogleID)
}

func TestAuthServiceGoogleInvalidCredential(t *testing.T) {
	google := &stubGoogleVerifier{err: errors.New("bad token")}
	svc := newAuthService(newMockUserRepo(), newMockResetRepo(), &recordingNotifier{}, google)

	_, err := svc.LoginWithGoogle(context.Background(), "credential")

	var domainErr *apperrors.DomainError
	require.ErrorAs(t, err, &domainErr)
	assert.Equal(t, "UNAUTHORIZED", domainErr.Code)
}

func TestAuthServicePasswordResetFlow(t *testing.T) {
	users := newMockUserRepo()
	hash, err := auth.HashPassword("old-pass", 4)
	require.NoError(t, err)
	id := users.add(domain.User{Name: "Asha", Email: "asha@example.com", PasswordHash: &hash, Role: domain.RoleStudent})

	resets := newMockResetRepo()
	notifier := &recordingNotifier{}
	svc := newAuthService(users, resets, notifier, &stubGoogleVerifier{})

	require.NoError(t, svc.RequestPasswordReset(context.Background(), "asha@example.com"))

	messages := notifier.messages()
	require.Len(t, messages, 1)
	assert.Equal(t, "asha@example.com", messages[0].To)

	resets.mu.Lock()
	require.Len(t, resets.tokens, 1)
	var token string
	for tok := range resets.tokens {
		token = tok
	}
	resets.mu.Unlock()

	require.NoError(t, svc.ResetPassword(context.Background(), token, "new-pass"))

	stored, err := users.GetByID(context.Background(), id)
	require.NoError(t, err)
	require.NotNil(t, stored.PasswordHash)
	assert.NoError(t, auth.ComparePassword(*stored.PasswordHash, "new-pass"))

	// Tokens are single use.
	err = svc.ResetPassword(context.Background(), token, "another")
	var domainErr *apperrors.DomainError
	require.ErrorAs(t, err, &domainErr)
	assert.Equal(t, "UNAUTHORIZED", domainErr.Code)
}

func TestAuthServicePasswordResetUnknownEmailIsSilent(t *testing.T) {
	notifier := &recordingNotifier{}
	svc := newAuthService(newMockUserRepo(), newMockResetRepo(), notifier, &stubGoogleVerifier{})

	require.NoError(t, svc.RequestPasswordReset(context.Background(), "nobody@example.com"))
	assert.Empty(t, notifier.messages())
}
