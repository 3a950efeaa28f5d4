package domain

import (
	"crypto/rand"
	"strings"
	"time"
	"unicode/utf8"

	"github.com/oklog/ulid/v2"
)

// Project constraints.
const (
	MaxProjectNameLength = 64

	// ProjectIDPrefix is the prefix for project IDs.
	ProjectIDPrefix = "prj_"
)

// Project is a named project owned by one user.
type Project struct {
	ID        string `json:"id"`
	UserID    int64  `json:"user_id"`
	Name      string `json:"name"`
	CreatedAt int64  `json:"created_at"`
	UpdatedAt int64  `json:"updated_at"`
}

// ProjectCreate is the input for creating a project.
type ProjectCreate struct {
	Name string `json:"name"`
}

// ProjectUpdate is the input for renaming a project.
type ProjectUpdate struct {
	Name string `json:"name"`
}

// Validate trims and checks the name.
func (p *ProjectCreate) Validate() error {
	name, err := validateProjectName(p.Name)
	if err != nil {
		return err
	}
	p.Name = name
	return nil
}

// Validate trims and checks the name.
func (p *ProjectUpdate) Validate() error {
	name, err := validateProjectName(p.Name)
	if err != nil {
		return err
	}
	p.Name = name
	return nil
}

func validateProjectName(name string) (string, error) {
	name = strings.TrimSpace(name)
	if name == "" {
		return "", ErrProjectValidation.WithDetails("name is required")
	}
	if utf8.RuneCountInString(name) > MaxProjectNameLength {
		return "", ErrProjectValidation.WithDetails("name exceeds 64 characters")
	}
	return name, nil
}

// NewProject creates a project owned by userID. in must already be validated.
func NewProject(userID int64, in ProjectCreate) (*Project, error) {
	id, err := GenerateProjectID()
	if err != nil {
		return nil, err
	}

	now := time.Now().UnixMilli()
	return &Project{
		ID:        id,
		UserID:    userID,
		Name:      in.Name,
		CreatedAt: now,
		UpdatedAt: now,
	}, nil
}

// GenerateProjectID generates a new project ID.
// Format: prj_{ulid_lowercase}, 30 characters total.
func GenerateProjectID() (string, error) {
	id, err := ulid.New(ulid.Timestamp(time.Now()), ulid.Monotonic(rand.Reader, 0))
	if err != nil {
		return "", ErrInternalServer.WithCause(err)
	}
	return ProjectIDPrefix + strings.ToLower(id.String()), nil
}

// IsValidProjectID checks if a string is a well-formed project ID.
func IsValidProjectID(id string) bool {
	body, ok := strings.CutPrefix(strings.ToLower(id), ProjectIDPrefix)
	if !ok || len(body) != ulid.EncodedSize {
		return false
	}
	_, err := ulid.Parse(strings.ToUpper(body))
	return err == nil
}

// Clone returns a copy of the project.
func (p *Project) Clone() *Project {
	if p == nil {
		return nil
	}
	c := *p
	return &c
}
