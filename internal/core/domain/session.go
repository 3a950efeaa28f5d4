package domain

import (
	"strings"
	"time"

	"github.com/yndnr/graphite-go/pkg/token"
)

// Session constraints.
const (
	MaxNameLength      = 256
	MaxAvatarURLLength = 2048
)

// Identity is the upstream identity a session is created for.
type Identity struct {
	UserID    int64  `json:"user_id"`
	Name      string `json:"name"`
	AvatarURL string `json:"avatar_url"`
}

// Session binds an opaque token to an authenticated identity.
//
// ID is the token itself. Stores never persist it in clear and leave it
// empty on records they cannot map back to a token.
type Session struct {
	ID        string `json:"-"`
	UserID    int64  `json:"user_id"`
	Name      string `json:"name"`
	AvatarURL string `json:"avatar_url"`

	// CreatedAt is the creation timestamp (Unix milliseconds).
	CreatedAt int64 `json:"created_at"`
}

// NewSession creates a session for identity with a freshly generated token.
func NewSession(identity Identity) (*Session, error) {
	tok, err := token.NewSessionToken()
	if err != nil {
		return nil, ErrInternalServer.WithCause(err)
	}

	return &Session{
		ID:        tok,
		UserID:    identity.UserID,
		Name:      identity.Name,
		AvatarURL: identity.AvatarURL,
		CreatedAt: time.Now().UnixMilli(),
	}, nil
}

// Identity returns the identity the session was created for.
func (s *Session) Identity() Identity {
	return Identity{
		UserID:    s.UserID,
		Name:      s.Name,
		AvatarURL: s.AvatarURL,
	}
}

// Validate validates the session fields against constraints.
// Returns a DomainError with code GR-SESS-4001 if validation fails.
func (s *Session) Validate() error {
	var violations []string

	if s.UserID <= 0 {
		violations = append(violations, "user_id must be positive")
	}
	if len(s.Name) > MaxNameLength {
		violations = append(violations, "name exceeds 256 characters")
	}
	if len(s.AvatarURL) > MaxAvatarURLLength {
		violations = append(violations, "avatar_url exceeds 2048 characters")
	}

	if len(violations) > 0 {
		return ErrSessionValidation.WithDetails(strings.Join(violations, "; "))
	}
	return nil
}

// Clone returns a copy of the session.
func (s *Session) Clone() *Session {
	if s == nil {
		return nil
	}
	c := *s
	return &c
}

// CreatedAtTime returns CreatedAt as time.Time.
func (s *Session) CreatedAtTime() time.Time {
	return time.UnixMilli(s.CreatedAt)
}
