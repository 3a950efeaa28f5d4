package domain

import (
	"strings"
	"time"
)

// User is an account that has completed at least one login.
// ID is the identity provider's stable user id.
type User struct {
	ID        int64  `json:"id"`
	Name      string `json:"name"`
	AvatarURL string `json:"avatar_url"`
	CreatedAt int64  `json:"created_at"`
}

// NewUser creates a user record from an upstream identity.
func NewUser(identity Identity) *User {
	return &User{
		ID:        identity.UserID,
		Name:      identity.Name,
		AvatarURL: identity.AvatarURL,
		CreatedAt: time.Now().UnixMilli(),
	}
}

// Validate validates the user fields.
func (u *User) Validate() error {
	var violations []string

	if u.ID <= 0 {
		violations = append(violations, "id must be positive")
	}
	if len(u.Name) > MaxNameLength {
		violations = append(violations, "name exceeds 256 characters")
	}
	if len(u.AvatarURL) > MaxAvatarURLLength {
		violations = append(violations, "avatar_url exceeds 2048 characters")
	}

	if len(violations) > 0 {
		return ErrUserValidation.WithDetails(strings.Join(violations, "; "))
	}
	return nil
}
