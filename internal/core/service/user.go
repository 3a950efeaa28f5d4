package service

import (
	"context"
	"log/slog"

	"github.com/yndnr/graphite-go/internal/core/domain"
)

// UserRepository defines the storage interface for users.
type UserRepository interface {
	// CreateIfNew stores user unless one with the same ID exists and
	// reports whether it was created.
	CreateIfNew(ctx context.Context, user *domain.User) (bool, error)

	// Get returns the user or domain.ErrUserNotFound.
	Get(ctx context.Context, id int64) (*domain.User, error)
}

// UserService manages user records.
type UserService struct {
	repo   UserRepository
	logger *slog.Logger
}

// NewUserService creates a new UserService.
func NewUserService(repo UserRepository, logger *slog.Logger) *UserService {
	if logger == nil {
		logger = slog.Default()
	}
	return &UserService{repo: repo, logger: logger}
}

// CreateIfNew registers identity as a user on first sight. An existing
// user is returned unchanged.
func (s *UserService) CreateIfNew(ctx context.Context, identity domain.Identity) (*domain.User, error) {
	user := domain.NewUser(identity)

	created, err := s.repo.CreateIfNew(ctx, user)
	if err != nil {
		return nil, err
	}
	if created {
		s.logger.Info("user registered", "user_id", user.ID)
		return user, nil
	}

	return s.repo.Get(ctx, identity.UserID)
}

// Get returns a user by ID.
func (s *UserService) Get(ctx context.Context, id int64) (*domain.User, error) {
	if id <= 0 {
		return nil, domain.ErrInvalidArgument.WithDetails("user id must be positive")
	}
	return s.repo.Get(ctx, id)
}
