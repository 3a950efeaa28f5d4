package service

import (
	"context"

	"github.com/yndnr/graphite-go/internal/core/domain"
)

// ProjectRepository defines the storage interface for projects. Every
// lookup is scoped by owner.
type ProjectRepository interface {
	Create(ctx context.Context, p *domain.Project) error
	FindForUser(ctx context.Context, userID int64, id string) (*domain.Project, error)
	FindAllForUser(ctx context.Context, userID int64) ([]*domain.Project, error)
	Update(ctx context.Context, userID int64, id string, in domain.ProjectUpdate) (*domain.Project, error)
}

// ProjectService handles project operations for the signed-in user.
type ProjectService struct {
	repo ProjectRepository
}

// NewProjectService creates a new ProjectService.
func NewProjectService(repo ProjectRepository) *ProjectService {
	return &ProjectService{repo: repo}
}

// List returns the projects owned by userID.
func (s *ProjectService) List(ctx context.Context, userID int64) ([]*domain.Project, error) {
	return s.repo.FindAllForUser(ctx, userID)
}

// Get returns one project owned by userID.
func (s *ProjectService) Get(ctx context.Context, userID int64, id string) (*domain.Project, error) {
	return s.repo.FindForUser(ctx, userID, id)
}

// Create validates in and stores a new project for userID.
func (s *ProjectService) Create(ctx context.Context, userID int64, in domain.ProjectCreate) (*domain.Project, error) {
	if err := in.Validate(); err != nil {
		return nil, err
	}

	p, err := domain.NewProject(userID, in)
	if err != nil {
		return nil, err
	}
	if err := s.repo.Create(ctx, p); err != nil {
		return nil, err
	}
	return p, nil
}

// Update validates in and renames a project owned by userID.
func (s *ProjectService) Update(ctx context.Context, userID int64, id string, in domain.ProjectUpdate) (*domain.Project, error) {
	if err := in.Validate(); err != nil {
		return nil, err
	}
	return s.repo.Update(ctx, userID, id, in)
}
