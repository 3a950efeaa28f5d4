package storage

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"strconv"

	"github.com/yndnr/graphite-go/internal/core/domain"
	"github.com/yndnr/graphite-go/internal/core/service"
)

const userKeyPrefix = "user:"

var _ service.UserRepository = (*UserRepo)(nil)

// UserRepo persists users keyed by their identity provider id.
type UserRepo struct {
	kv KV
}

// NewUserRepo creates a UserRepo over kv.
func NewUserRepo(kv KV) *UserRepo {
	return &UserRepo{kv: kv}
}

func userKey(id int64) []byte {
	return []byte(userKeyPrefix + strconv.FormatInt(id, 10))
}

// CreateIfNew stores user unless a user with the same id exists.
// It reports whether the user was created.
func (r *UserRepo) CreateIfNew(ctx context.Context, user *domain.User) (bool, error) {
	if err := user.Validate(); err != nil {
		return false, err
	}

	data, err := json.Marshal(user)
	if err != nil {
		return false, domain.ErrInternalServer.WithCause(err)
	}

	created, err := r.kv.SetNX(ctx, userKey(user.ID), data)
	if err != nil {
		return false, domain.ErrStorageError.WithCause(fmt.Errorf("create user: %w", err))
	}
	return created, nil
}

// Get returns the user with id or ErrUserNotFound.
func (r *UserRepo) Get(ctx context.Context, id int64) (*domain.User, error) {
	data, err := r.kv.Get(ctx, userKey(id))
	if errors.Is(err, ErrKeyNotFound) {
		return nil, domain.ErrUserNotFound
	}
	if err != nil {
		return nil, domain.ErrStorageError.WithCause(fmt.Errorf("get user: %w", err))
	}

	var user domain.User
	if err := json.Unmarshal(data, &user); err != nil {
		return nil, domain.ErrStorageError.WithCause(fmt.Errorf("decode user: %w", err))
	}
	return &user, nil
}

// List calls fn for every stored user, in key order.
func (r *UserRepo) List(ctx context.Context, fn func(*domain.User) bool) error {
	var decodeErr error
	err := r.kv.Scan(ctx, []byte(userKeyPrefix), func(_, value []byte) bool {
		var user domain.User
		if decodeErr = json.Unmarshal(value, &user); decodeErr != nil {
			return false
		}
		return fn(&user)
	})
	if err == nil {
		err = decodeErr
	}
	if err != nil {
		return domain.ErrStorageError.WithCause(fmt.Errorf("list users: %w", err))
	}
	return nil
}
