package service

import (
	"context"
	"fmt"

	"github.com/yndnr/graphite-go/internal/core/domain"
)

// LoginService completes a login once the identity provider has vouched
// for the caller.
type LoginService struct {
	users    *UserService
	sessions SessionStore
}

// NewLoginService creates a new LoginService.
func NewLoginService(users *UserService, sessions SessionStore) *LoginService {
	return &LoginService{users: users, sessions: sessions}
}

// LoginResult is what a completed login hands back to the HTTP layer.
type LoginResult struct {
	Token string
	User  *domain.User
}

// CompleteLogin registers the user if needed and opens a session.
// The session carries the identity as reported by this login, so a
// changed display name shows up in new sessions.
func (s *LoginService) CompleteLogin(ctx context.Context, identity domain.Identity) (*LoginResult, error) {
	user, err := s.users.CreateIfNew(ctx, identity)
	if err != nil {
		return nil, fmt.Errorf("register user: %w", err)
	}

	token, err := s.sessions.Create(ctx, identity)
	if err != nil {
		return nil, fmt.Errorf("create session: %w", err)
	}

	return &LoginResult{Token: token, User: user}, nil
}
