package storage

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"sort"
	"strconv"
	"time"

	"github.com/yndnr/graphite-go/internal/core/domain"
	"github.com/yndnr/graphite-go/internal/core/service"
)

const projectKeyPrefix = "project:"

var _ service.ProjectRepository = (*ProjectRepo)(nil)

// ProjectRepo persists projects under their owner:
// project:<user_id>:<project_id>. Lookups are always scoped by owner, so
// another user's project id resolves to not found.
type ProjectRepo struct {
	kv KV
}

// NewProjectRepo creates a ProjectRepo over kv.
func NewProjectRepo(kv KV) *ProjectRepo {
	return &ProjectRepo{kv: kv}
}

func projectOwnerPrefix(userID int64) []byte {
	return []byte(projectKeyPrefix + strconv.FormatInt(userID, 10) + ":")
}

func projectKey(userID int64, id string) []byte {
	return append(projectOwnerPrefix(userID), id...)
}

// Create stores a new project.
func (r *ProjectRepo) Create(ctx context.Context, p *domain.Project) error {
	data, err := json.Marshal(p)
	if err != nil {
		return domain.ErrInternalServer.WithCause(err)
	}

	ok, err := r.kv.SetNX(ctx, projectKey(p.UserID, p.ID), data)
	if err != nil {
		return domain.ErrStorageError.WithCause(fmt.Errorf("create project: %w", err))
	}
	if !ok {
		return domain.ErrProjectValidation.WithDetails("project id already exists")
	}
	return nil
}

// FindForUser returns one project of userID or ErrProjectNotFound.
func (r *ProjectRepo) FindForUser(ctx context.Context, userID int64, id string) (*domain.Project, error) {
	if !domain.IsValidProjectID(id) {
		return nil, domain.ErrProjectNotFound
	}

	data, err := r.kv.Get(ctx, projectKey(userID, id))
	if errors.Is(err, ErrKeyNotFound) {
		return nil, domain.ErrProjectNotFound
	}
	if err != nil {
		return nil, domain.ErrStorageError.WithCause(fmt.Errorf("get project: %w", err))
	}

	var p domain.Project
	if err := json.Unmarshal(data, &p); err != nil {
		return nil, domain.ErrStorageError.WithCause(fmt.Errorf("decode project: %w", err))
	}
	return &p, nil
}

// FindAllForUser returns every project of userID, oldest first.
func (r *ProjectRepo) FindAllForUser(ctx context.Context, userID int64) ([]*domain.Project, error) {
	projects := []*domain.Project{}
	var decodeErr error

	err := r.kv.Scan(ctx, projectOwnerPrefix(userID), func(_, value []byte) bool {
		var p domain.Project
		if decodeErr = json.Unmarshal(value, &p); decodeErr != nil {
			return false
		}
		projects = append(projects, &p)
		return true
	})
	if err == nil {
		err = decodeErr
	}
	if err != nil {
		return nil, domain.ErrStorageError.WithCause(fmt.Errorf("list projects: %w", err))
	}

	// Not every backend scans in key order. Project ids are ULIDs, so
	// sorting by id sorts by creation time.
	sort.Slice(projects, func(i, j int) bool { return projects[i].ID < projects[j].ID })
	return projects, nil
}

// Update renames a project of userID and returns the stored result.
func (r *ProjectRepo) Update(ctx context.Context, userID int64, id string, in domain.ProjectUpdate) (*domain.Project, error) {
	p, err := r.FindForUser(ctx, userID, id)
	if err != nil {
		return nil, err
	}

	p.Name = in.Name
	p.UpdatedAt = time.Now().UnixMilli()

	data, err := json.Marshal(p)
	if err != nil {
		return nil, domain.ErrInternalServer.WithCause(err)
	}
	if err := r.kv.Set(ctx, projectKey(userID, id), data); err != nil {
		return nil, domain.ErrStorageError.WithCause(fmt.Errorf("update project: %w", err))
	}
	return p, nil
}
