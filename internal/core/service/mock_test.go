package service

import (
	"context"
	"fmt"
	"sync"

	"github.com/yndnr/graphite-go/internal/core/domain"
)

type mockSessionStore struct {
	mu        sync.RWMutex
	sessions  map[string]*domain.Session
	createErr error
	n         int
}

func newMockSessionStore() *mockSessionStore {
	return &mockSessionStore{sessions: make(map[string]*domain.Session)}
}

func (m *mockSessionStore) Create(ctx context.Context, identity domain.Identity) (string, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	if m.createErr != nil {
		return "", m.createErr
	}
	m.n++
	tok := fmt.Sprintf("grs_test%d", m.n)
	m.sessions[tok] = &domain.Session{ID: tok, UserID: identity.UserID, Name: identity.Name, AvatarURL: identity.AvatarURL}
	return tok, nil
}

func (m *mockSessionStore) Get(ctx context.Context, token string) (*domain.Session, bool, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()
	s, ok := m.sessions[token]
	if !ok {
		return nil, false, nil
	}
	return s.Clone(), true, nil
}

type mockUserRepo struct {
	mu     sync.RWMutex
	users  map[int64]*domain.User
	setErr error
}

func newMockUserRepo() *mockUserRepo {
	return &mockUserRepo{users: make(map[int64]*domain.User)}
}

func (m *mockUserRepo) CreateIfNew(ctx context.Context, user *domain.User) (bool, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	if m.setErr != nil {
		return false, m.setErr
	}
	if _, ok := m.users[user.ID]; ok {
		return false, nil
	}
	c := *user
	m.users[user.ID] = &c
	return true, nil
}

func (m *mockUserRepo) Get(ctx context.Context, id int64) (*domain.User, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()
	u, ok := m.users[id]
	if !ok {
		return nil, domain.ErrUserNotFound
	}
	c := *u
	return &c, nil
}

type mockProjectRepo struct {
	mu       sync.RWMutex
	projects map[string]*domain.Project
}

func newMockProjectRepo() *mockProjectRepo {
	return &mockProjectRepo{projects: make(map[string]*domain.Project)}
}

func (m *mockProjectRepo) Create(ctx context.Context, p *domain.Project) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.projects[p.ID] = p.Clone()
	return nil
}

func (m *mockProjectRepo) FindForUser(ctx context.Context, userID int64, id string) (*domain.Project, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()
	p, ok := m.projects[id]
	if !ok || p.UserID != userID {
		return nil, domain.ErrProjectNotFound
	}
	return p.Clone(), nil
}

func (m *mockProjectRepo) FindAllForUser(ctx context.Context, userID int64) ([]*domain.Project, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()
	var out []*domain.Project
	for _, p := range m.projects {
		if p.UserID == userID {
			out = append(out, p.Clone())
		}
	}
	return out, nil
}

func (m *mockProjectRepo) Update(ctx context.Context, userID int64, id string, in domain.ProjectUpdate) (*domain.Project, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	p, ok := m.projects[id]
	if !ok || p.UserID != userID {
		return nil, domain.ErrProjectNotFound
	}
	p.Name = in.Name
	return p.Clone(), nil
}
