package storage

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"log/slog"
	"strings"

	"github.com/yndnr/graphite-go/internal/core/domain"
	"github.com/yndnr/graphite-go/internal/core/service"
	"github.com/yndnr/graphite-go/internal/telemetry/metric"
	"github.com/yndnr/graphite-go/pkg/token"
)

const sessionKeyPrefix = "session:"

// maxCreateAttempts bounds token regeneration on key collision.
const maxCreateAttempts = 3

var _ service.SessionStore = (*SessionStore)(nil)

// SessionStore persists sessions in a KV, keyed by a hash of the token.
type SessionStore struct {
	kv      KV
	hasher  *token.Hasher
	logger  *slog.Logger
	metrics *metric.Registry
}

// SessionStoreOption configures a SessionStore.
type SessionStoreOption func(*SessionStore)

// WithHasher sets the token hasher. The default is the unkeyed hash.
func WithHasher(h *token.Hasher) SessionStoreOption {
	return func(s *SessionStore) {
		s.hasher = h
	}
}

// WithLogger sets the logger.
func WithLogger(l *slog.Logger) SessionStoreOption {
	return func(s *SessionStore) {
		if l != nil {
			s.logger = l
		}
	}
}

// WithMetrics sets the metrics registry.
func WithMetrics(m *metric.Registry) SessionStoreOption {
	return func(s *SessionStore) {
		s.metrics = m
	}
}

// NewSessionStore creates a SessionStore over kv.
func NewSessionStore(kv KV, opts ...SessionStoreOption) *SessionStore {
	s := &SessionStore{
		kv:     kv,
		logger: slog.Default(),
	}
	for _, opt := range opts {
		opt(s)
	}
	return s
}

func (s *SessionStore) key(tok string) []byte {
	return []byte(sessionKeyPrefix + s.hasher.Sum(tok))
}

// Create stores a new session for identity and returns its token.
// It returns once the backend has acknowledged the write.
func (s *SessionStore) Create(ctx context.Context, identity domain.Identity) (string, error) {
	for attempt := 1; attempt <= maxCreateAttempts; attempt++ {
		session, err := domain.NewSession(identity)
		if err != nil {
			return "", err
		}
		if err := session.Validate(); err != nil {
			return "", err
		}

		data, err := json.Marshal(session)
		if err != nil {
			return "", domain.ErrInternalServer.WithCause(err)
		}

		ok, err := s.kv.SetNX(ctx, s.key(session.ID), data)
		if err != nil {
			s.metrics.RecordStoreError("create")
			return "", domain.ErrStorageError.WithCause(fmt.Errorf("create session: %w", err))
		}
		if ok {
			s.metrics.IncSessionCreated()
			s.logger.Debug("session created", "user_id", identity.UserID)
			return session.ID, nil
		}

		s.logger.Warn("session token collision, regenerating", "attempt", attempt)
	}

	return "", domain.ErrSessionConflict
}

// Get looks up the session for tok. found is false when no session
// exists. err is non-nil only when the backend failed or the stored
// record is unreadable.
func (s *SessionStore) Get(ctx context.Context, tok string) (*domain.Session, bool, error) {
	// Create never issues a malformed token, so none can be stored.
	if !token.IsSessionToken(tok) {
		return nil, false, nil
	}

	data, err := s.kv.Get(ctx, s.key(tok))
	if errors.Is(err, ErrKeyNotFound) {
		return nil, false, nil
	}
	if err != nil {
		s.metrics.RecordStoreError("get")
		return nil, false, domain.ErrStorageError.WithCause(fmt.Errorf("get session: %w", err))
	}

	var session domain.Session
	if err := json.Unmarshal(data, &session); err != nil {
		s.metrics.RecordStoreError("decode")
		return nil, false, domain.ErrStorageError.WithCause(fmt.Errorf("decode session: %w", err))
	}
	session.ID = tok

	return &session, true, nil
}

// SessionRecord is a stored session as seen by List. Tokens cannot be
// recovered from the store, so only the key hash identifies it.
type SessionRecord struct {
	KeyHash string `json:"key_hash"`
	domain.Session
}

// List calls fn for every stored session. Undecodable records are
// logged and skipped. fn returns false to stop.
func (s *SessionStore) List(ctx context.Context, fn func(SessionRecord) bool) error {
	err := s.kv.Scan(ctx, []byte(sessionKeyPrefix), func(key, value []byte) bool {
		var session domain.Session
		if err := json.Unmarshal(value, &session); err != nil {
			s.logger.Warn("skipping unreadable session record", "key", string(key), "error", err)
			return true
		}
		return fn(SessionRecord{
			KeyHash: strings.TrimPrefix(string(key), sessionKeyPrefix),
			Session: session,
		})
	})
	if err != nil {
		return domain.ErrStorageError.WithCause(fmt.Errorf("list sessions: %w", err))
	}
	return nil
}
