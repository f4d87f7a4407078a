// Copyright (c) 2026, the Queqiao contributors.
// SPDX-License-Identifier: GPL-2.0-or-later

package auth

import (
	"context"
	"errors"
	"fmt"
	"strings"

	"github.com/rs/zerolog/log"

	"github.com/queqiao-arr/queqiao/internal/dbinterface"
	"github.com/queqiao-arr/queqiao/internal/models"
)

var (
	// ErrInvalidCredentials covers both an unknown username and a wrong
	// password; callers surface the same message for either.
	ErrInvalidCredentials = errors.New("invalid credentials")
	// ErrBootstrapClosed is returned once any user exists: open registration
	// only bootstraps the first (super)user.
	ErrBootstrapClosed = errors.New("registration is closed")
	ErrAdminRequired   = errors.New("administrator privileges required")
	ErrSelfDelete      = errors.New("cannot delete the account bound to the current token")
)

const minPasswordLength = 8

// Service implements account bootstrap, login, and principal resolution.
type Service struct {
	users  *models.UserStore
	tokens *TokenIssuer
}

func NewService(db dbinterface.Querier, tokens *TokenIssuer) *Service {
	return &Service{
		users:  models.NewUserStore(db),
		tokens: tokens,
	}
}

func validateCredentials(username, password string) error {
	if strings.TrimSpace(username) == "" {
		return errors.New("username is required")
	}
	if len(password) < minPasswordLength {
		return fmt.Errorf("password must be at least %d characters", minPasswordLength)
	}
	return nil
}

// BootstrapRegister creates the first account. It is only open while the
// user table is empty, and the account it creates is always a superuser.
func (s *Service) BootstrapRegister(ctx context.Context, username, password string, email *string) (*models.User, string, error) {
	if err := validateCredentials(username, password); err != nil {
		return nil, "", err
	}

	count, err := s.users.Count(ctx)
	if err != nil {
		return nil, "", fmt.Errorf("failed to count users: %w", err)
	}
	if count > 0 {
		return nil, "", ErrBootstrapClosed
	}

	hash, err := HashPassword(password)
	if err != nil {
		return nil, "", fmt.Errorf("failed to hash password: %w", err)
	}

	user, err := s.users.Create(ctx, username, hash, email, true)
	if err != nil {
		// Two racing bootstrap requests can both pass the count check.
		if errors.Is(err, models.ErrUserExists) {
			return nil, "", ErrBootstrapClosed
		}
		return nil, "", err
	}

	token, err := s.tokens.Issue(user.Username)
	if err != nil {
		return nil, "", fmt.Errorf("failed to issue token: %w", err)
	}

	log.Info().Str("username", user.Username).Msg("bootstrap superuser created")
	return user, token, nil
}

// Login verifies a username/password pair and issues a token. Unknown
// usernames, wrong passwords, and disabled accounts all fail the same way.
func (s *Service) Login(ctx context.Context, username, password string) (*models.User, string, error) {
	user, err := s.users.GetByUsername(ctx, username)
	if err != nil {
		if errors.Is(err, models.ErrUserNotFound) {
			return nil, "", ErrInvalidCredentials
		}
		return nil, "", err
	}

	ok, err := VerifyPassword(password, user.HashedPassword)
	if err != nil || !ok {
		return nil, "", ErrInvalidCredentials
	}
	if !user.IsActive {
		return nil, "", ErrInvalidCredentials
	}

	token, err := s.tokens.Issue(user.Username)
	if err != nil {
		return nil, "", fmt.Errorf("failed to issue token: %w", err)
	}

	return user, token, nil
}

// ResolveUser maps a bearer token to an active account. Any failure along
// the way reads as an invalid token.
func (s *Service) ResolveUser(ctx context.Context, tokenString string) (*models.User, error) {
	subject, err := s.tokens.Verify(tokenString)
	if err != nil {
		return nil, ErrInvalidToken
	}

	user, err := s.users.GetByUsername(ctx, subject)
	if err != nil {
		if errors.Is(err, models.ErrUserNotFound) {
			return nil, ErrInvalidToken
		}
		return nil, err
	}
	if !user.IsActive {
		return nil, ErrInvalidToken
	}

	return user, nil
}

// RefreshToken reissues a token for an already resolved principal.
func (s *Service) RefreshToken(user *models.User) (string, error) {
	return s.tokens.Issue(user.Username)
}

// DeleteUser removes an account. Only a superuser may delete, and never the
// account their own token resolves to.
func (s *Service) DeleteUser(ctx context.Context, actor *models.User, username string) error {
	if !actor.IsSuperuser {
		return ErrAdminRequired
	}
	if actor.Username == username {
		return ErrSelfDelete
	}

	if err := s.users.Delete(ctx, username); err != nil {
		return err
	}

	log.Info().Str("username", username).Str("deleted_by", actor.Username).Msg("user deleted")
	return nil
}
