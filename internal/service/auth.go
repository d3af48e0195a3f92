// Package service holds the business logic between HTTP handlers and the
// repositories. Services validate input, enforce ownership, and return
// apperror values the handler layer maps to status codes.
package service

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"strings"

	"github.com/rs/xid"

	"github.com/sakif/learnquest/internal/apperror"
	"github.com/sakif/learnquest/internal/auth"
	"github.com/sakif/learnquest/internal/model"
	"github.com/sakif/learnquest/internal/repository"
)

// AuthService handles registration, login, and identity lookups.
type AuthService struct {
	users     repository.UserRepository
	passwords *auth.PasswordService
	tokens    *auth.TokenService
	logger    *slog.Logger
}

func NewAuthService(users repository.UserRepository, passwords *auth.PasswordService, tokens *auth.TokenService, logger *slog.Logger) *AuthService {
	return &AuthService{
		users:     users,
		passwords: passwords,
		tokens:    tokens,
		logger:    logger,
	}
}

// Register creates a new account and returns the user plus a signed access
// token, so the client is logged in immediately after signing up.
func (s *AuthService) Register(ctx context.Context, username, email, password string) (*model.User, string, error) {
	username = strings.TrimSpace(username)
	email = strings.TrimSpace(strings.ToLower(email))

	if len(username) < 3 || len(username) > 32 {
		return nil, "", apperror.ValidationFailed("username", "username must be between 3 and 32 characters")
	}
	if !strings.Contains(email, "@") {
		return nil, "", apperror.ValidationFailed("email", "email address is not valid")
	}
	if len(password) < 8 {
		return nil, "", apperror.ValidationFailed("password", "password must be at least 8 characters")
	}

	hash, err := s.passwords.Hash(password)
	if err != nil {
		return nil, "", apperror.ValidationFailed("password", err.Error())
	}

	user := &model.User{
		ID:           xid.New().String(),
		Username:     username,
		Email:        email,
		PasswordHash: hash,
	}

	if err := s.users.CreateUser(ctx, user); err != nil {
		return nil, "", fmt.Errorf("registering user: %w", err)
	}

	token, err := s.tokens.Generate(user.ID)
	if err != nil {
		return nil, "", fmt.Errorf("issuing token after registration: %w", err)
	}

	s.logger.Info("user registered",
		slog.String("userID", user.ID),
		slog.String("username", user.Username),
	)

	return user, token, nil
}

// Login verifies credentials against the stored hash. The identifier may be
// a username or an email address. Unknown users and wrong passwords produce
// the same error so the response doesn't reveal which accounts exist.
func (s *AuthService) Login(ctx context.Context, identifier, password string) (*model.User, string, error) {
	identifier = strings.TrimSpace(identifier)
	if identifier == "" || password == "" {
		return nil, "", apperror.Unauthorized("invalid credentials")
	}

	user, err := s.users.GetUserByIdentifier(ctx, identifier)
	if err != nil {
		if errors.Is(err, apperror.ErrNotFound) {
			return nil, "", apperror.Unauthorized("invalid credentials")
		}
		return nil, "", fmt.Errorf("looking up user: %w", err)
	}

	if err := s.passwords.Verify(user.PasswordHash, password); err != nil {
		return nil, "", apperror.Unauthorized("invalid credentials")
	}

	token, err := s.tokens.Generate(user.ID)
	if err != nil {
		return nil, "", fmt.Errorf("issuing token: %w", err)
	}

	return user, token, nil
}

// GetUserByID returns the user profile for an authenticated ID.
func (s *AuthService) GetUserByID(ctx context.Context, id string) (*model.User, error) {
	user, err := s.users.GetUserByID(ctx, id)
	if err != nil {
		return nil, fmt.Errorf("fetching user %s: %w", id, err)
	}
	return user, nil
}
