package memory

import (
	"bytes"
	"context"
	"sync/atomic"

	"github.com/yndnr/graphite-go/internal/storage"
	"github.com/yndnr/graphite-go/pkg/cmap"
)

// Store is a storage.KV kept in memory.
type Store struct {
	items  *cmap.Map[[]byte]
	closed atomic.Bool
}

// Option configures the Store.
type Option func(*storeOptions)

type storeOptions struct {
	shards int
}

// WithShards sets the number of map shards. It must be a power of two.
func WithShards(n int) Option {
	return func(o *storeOptions) {
		o.shards = n
	}
}

// New creates a new in-memory store.
func New(opts ...Option) *Store {
	o := storeOptions{shards: cmap.DefaultShardCount}
	for _, opt := range opts {
		opt(&o)
	}

	return &Store{
		items: cmap.NewWithShards[[]byte](o.shards),
	}
}

var _ storage.KV = (*Store)(nil)

// Get retrieves a copy of the value stored under key.
func (s *Store) Get(_ context.Context, key []byte) ([]byte, error) {
	if s.closed.Load() {
		return nil, storage.ErrClosed
	}

	v, ok := s.items.Get(string(key))
	if !ok {
		return nil, storage.ErrKeyNotFound
	}
	return bytes.Clone(v), nil
}

// Set stores a copy of value.
func (s *Store) Set(_ context.Context, key, value []byte) error {
	if s.closed.Load() {
		return storage.ErrClosed
	}

	s.items.Set(string(key), bytes.Clone(value))
	return nil
}

// SetNX stores a copy of value only when key is absent.
func (s *Store) SetNX(_ context.Context, key, value []byte) (bool, error) {
	if s.closed.Load() {
		return false, storage.ErrClosed
	}

	return s.items.SetIfAbsent(string(key), bytes.Clone(value)), nil
}

// Delete removes key.
func (s *Store) Delete(_ context.Context, key []byte) error {
	if s.closed.Load() {
		return storage.ErrClosed
	}

	s.items.Delete(string(key))
	return nil
}

// Scan visits keys with prefix in key order. It works on a copy taken
// up front, so fn may write to the store.
func (s *Store) Scan(ctx context.Context, prefix []byte, fn func(key, value []byte) bool) error {
	if s.closed.Load() {
		return storage.ErrClosed
	}

	var err error
	s.items.RangePrefix(string(prefix), func(key string, value []byte) bool {
		if err = ctx.Err(); err != nil {
			return false
		}
		return fn([]byte(key), bytes.Clone(value))
	})
	return err
}

// Ping reports whether the store is open.
func (s *Store) Ping(context.Context) error {
	if s.closed.Load() {
		return storage.ErrClosed
	}
	return nil
}

// Len returns the number of stored keys.
func (s *Store) Len() int {
	return s.items.Len()
}

// Close drops all values.
func (s *Store) Close() error {
	if s.closed.CompareAndSwap(false, true) {
		s.items.Clear()
	}
	return nil
}
