package service

import (
	"context"
	"io"
	"log/slog"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/sakif/learnquest/internal/apperror"
	"github.com/sakif/learnquest/internal/auth"
	"github.com/sakif/learnquest/internal/model"
)

// memUserRepo is an in-memory UserRepository for service tests.
type memUserRepo struct {
	users map[string]*model.User
}

func newMemUserRepo() *memUserRepo {
	return &memUserRepo{users: make(map[string]*model.User)}
}

func (m *memUserRepo) CreateUser(ctx context.Context, user *model.User) error {
	for _, u := range m.users {
		if u.Username == user.Username || u.Email == user.Email {
			return &apperror.AppError{Err: apperror.ErrConflict, Message: "username or email already taken"}
		}
	}
	cp := *user
	m.users[user.ID] = &cp
	return nil
}

func (m *memUserRepo) GetUserByIdentifier(ctx context.Context, identifier string) (*model.User, error) {
	for _, u := range m.users {
		if u.Username == identifier || u.Email == identifier {
			cp := *u
			return &cp, nil
		}
	}
	return nil, apperror.NotFound("user", identifier)
}

func (m *memUserRepo) GetUserByID(ctx context.Context, id string) (*model.User, error) {
	u, ok := m.users[id]
	if !ok {
		return nil, apperror.NotFound("user", id)
	}
	cp := *u
	return &cp, nil
}

func newTestAuthService(t *testing.T) (*AuthService, *memUserRepo) {
	t.Helper()
	tokens, err := auth.NewTokenService("test-secret-at-least-16-chars!!")
	require.NoError(t, err)
	repo := newMemUserRepo()
	logger := slog.New(slog.NewTextHandler(io.Discard, nil))
	// bcrypt cost 4 keeps the suite fast.
	return NewAuthService(repo, auth.NewPasswordServiceForTest(4), tokens, logger), repo
}

func TestRegister_Success(t *testing.T) {
	svc, _ := newTestAuthService(t)

	user, token, err := svc.Register(context.Background(), "alice", "Alice@Example.com", "s3cret-pass")
	require.NoError(t, err)

	assert.NotEmpty(t, user.ID)
	assert.Equal(t, "alice", user.Username)
	assert.Equal(t, "alice@example.com", user.Email, "email is normalized to lower case")
	assert.NotEmpty(t, token, "registration logs the user in")
	assert.NotEqual(t, "s3cret-pass", user.PasswordHash)
}

func TestRegister_Validation(t *testing.T) {
	svc, _ := newTestAuthService(t)
	ctx := context.Background()

	tests := []struct {
		name     string
		username string
		email    string
		password string
	}{
		{"username too short", "ab", "a@example.com", "s3cret-pass"},
		{"email without at-sign", "alice", "not-an-email", "s3cret-pass"},
		{"password too short", "alice", "a@example.com", "short"},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			_, _, err := svc.Register(ctx, tt.username, tt.email, tt.password)
			assert.ErrorIs(t, err, apperror.ErrValidation)
		})
	}
}

func TestRegister_DuplicateConflicts(t *testing.T) {
	svc, _ := newTestAuthService(t)
	ctx := context.Background()

	_, _, err := svc.Register(ctx, "alice", "alice@example.com", "s3cret-pass")
	require.NoError(t, err)

	_, _, err = svc.Register(ctx, "alice", "other@example.com", "s3cret-pass")
	assert.ErrorIs(t, err, apperror.ErrConflict)
}

func TestLogin_ByUsernameAndEmail(t *testing.T) {
	svc, _ := newTestAuthService(t)
	ctx := context.Background()

	registered, _, err := svc.Register(ctx, "alice", "alice@example.com", "s3cret-pass")
	require.NoError(t, err)

	user, token, err := svc.Login(ctx, "alice", "s3cret-pass")
	require.NoError(t, err)
	assert.Equal(t, registered.ID, user.ID)
	assert.NotEmpty(t, token)

	user, _, err = svc.Login(ctx, "alice@example.com", "s3cret-pass")
	require.NoError(t, err)
	assert.Equal(t, registered.ID, user.ID)
}

func TestLogin_BadCredentials(t *testing.T) {
	svc, _ := newTestAuthService(t)
	ctx := context.Background()

	_, _, err := svc.Register(ctx, "alice", "alice@example.com", "s3cret-pass")
	require.NoError(t, err)

	// Wrong password and unknown user produce the same error class, so the
	// response can't be used to enumerate accounts.
	_, _, err = svc.Login(ctx, "alice", "wrong-pass")
	assert.ErrorIs(t, err, apperror.ErrUnauthorized)

	_, _, err = svc.Login(ctx, "nobody", "s3cret-pass")
	assert.ErrorIs(t, err, apperror.ErrUnauthorized)

	_, _, err = svc.Login(ctx, "", "")
	assert.ErrorIs(t, err, apperror.ErrUnauthorized)
}

func TestGetUserByID(t *testing.T) {
	svc, _ := newTestAuthService(t)
	ctx := context.Background()

	registered, _, err := svc.Register(ctx, "alice", "alice@example.com", "s3cret-pass")
	require.NoError(t, err)

	got, err := svc.GetUserByID(ctx, registered.ID)
	require.NoError(t, err)
	assert.Equal(t, "alice", got.Username)

	_, err = svc.GetUserByID(ctx, "missing")
	assert.ErrorIs(t, err, apperror.ErrNotFound)
}
