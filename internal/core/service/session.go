package service

import (
	"context"

	"github.com/yndnr/graphite-go/internal/core/domain"
)

// SessionStore creates and resolves sessions.
//
// Get distinguishes three results: found (session, true, nil), absent
// (nil, false, nil) and backend failure (nil, false, err). Absence is
// never reported as an error.
type SessionStore interface {
	// Create persists a new session for identity and returns its token.
	// The session is resolvable by Get as soon as Create returns.
	Create(ctx context.Context, identity domain.Identity) (string, error)

	// Get resolves token to its session.
	Get(ctx context.Context, token string) (*domain.Session, bool, error)
}
