package redisstore

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"strings"
	"sync/atomic"

	"github.com/redis/go-redis/v9"

	"github.com/yndnr/graphite-go/internal/storage"
)

// DefaultKeyPrefix namespaces graphite keys.
const DefaultKeyPrefix = "graphite:"

// scanBatch is the COUNT hint passed to SCAN.
const scanBatch = 256

// Config configures the Redis connection.
type Config struct {
	Addr      string
	Username  string
	Password  string
	DB        int
	KeyPrefix string
}

// Store is a storage.KV backed by a Redis client.
type Store struct {
	client *redis.Client
	prefix string
	logger *slog.Logger
	closed atomic.Bool
}

var _ storage.KV = (*Store)(nil)

// Open connects to Redis and verifies the connection with PING.
func Open(ctx context.Context, cfg Config, logger *slog.Logger) (*Store, error) {
	if cfg.Addr == "" {
		return nil, fmt.Errorf("redis: addr is required")
	}

	client := redis.NewClient(&redis.Options{
		Addr:     cfg.Addr,
		Username: cfg.Username,
		Password: cfg.Password,
		DB:       cfg.DB,
	})

	if err := client.Ping(ctx).Err(); err != nil {
		client.Close()
		return nil, fmt.Errorf("redis: ping %s: %w", cfg.Addr, err)
	}

	s := New(client, cfg.KeyPrefix, logger)
	s.logger.Info("redis store connected", "addr", cfg.Addr, "db", cfg.DB, "key_prefix", s.prefix)
	return s, nil
}

// New wraps an existing client. An empty prefix means DefaultKeyPrefix.
func New(client *redis.Client, prefix string, logger *slog.Logger) *Store {
	if prefix == "" {
		prefix = DefaultKeyPrefix
	}
	if logger == nil {
		logger = slog.Default()
	}
	return &Store{client: client, prefix: prefix, logger: logger}
}

func (s *Store) key(k []byte) string {
	return s.prefix + string(k)
}

// Get retrieves a value by key.
func (s *Store) Get(ctx context.Context, key []byte) ([]byte, error) {
	if s.closed.Load() {
		return nil, storage.ErrClosed
	}

	v, err := s.client.Get(ctx, s.key(key)).Bytes()
	if errors.Is(err, redis.Nil) {
		return nil, storage.ErrKeyNotFound
	}
	if err != nil {
		return nil, fmt.Errorf("redis get: %w", err)
	}
	return v, nil
}

// Set stores a key-value pair without expiry.
func (s *Store) Set(ctx context.Context, key, value []byte) error {
	if s.closed.Load() {
		return storage.ErrClosed
	}

	if err := s.client.Set(ctx, s.key(key), value, 0).Err(); err != nil {
		return fmt.Errorf("redis set: %w", err)
	}
	return nil
}

// SetNX stores the pair only if key is absent.
func (s *Store) SetNX(ctx context.Context, key, value []byte) (bool, error) {
	if s.closed.Load() {
		return false, storage.ErrClosed
	}

	ok, err := s.client.SetNX(ctx, s.key(key), value, 0).Result()
	if err != nil {
		return false, fmt.Errorf("redis setnx: %w", err)
	}
	return ok, nil
}

// Delete removes a key.
func (s *Store) Delete(ctx context.Context, key []byte) error {
	if s.closed.Load() {
		return storage.ErrClosed
	}

	if err := s.client.Del(ctx, s.key(key)).Err(); err != nil {
		return fmt.Errorf("redis del: %w", err)
	}
	return nil
}

// Scan visits keys matching prefix with SCAN, then loads each value.
// Order is unspecified and keys deleted mid-scan are skipped. The
// callback receives keys without the namespace prefix.
func (s *Store) Scan(ctx context.Context, prefix []byte, fn func(key, value []byte) bool) error {
	if s.closed.Load() {
		return storage.ErrClosed
	}

	match := escapeGlob(s.key(prefix)) + "*"
	iter := s.client.Scan(ctx, 0, match, scanBatch).Iterator()
	for iter.Next(ctx) {
		full := iter.Val()
		v, err := s.client.Get(ctx, full).Bytes()
		if errors.Is(err, redis.Nil) {
			continue
		}
		if err != nil {
			return fmt.Errorf("redis scan get: %w", err)
		}

		if !fn([]byte(strings.TrimPrefix(full, s.prefix)), v) {
			return nil
		}
	}
	if err := iter.Err(); err != nil {
		return fmt.Errorf("redis scan: %w", err)
	}
	return nil
}

// Ping checks the connection.
func (s *Store) Ping(ctx context.Context) error {
	if s.closed.Load() {
		return storage.ErrClosed
	}
	return s.client.Ping(ctx).Err()
}

// Close closes the client. Safe to call twice.
func (s *Store) Close() error {
	if !s.closed.CompareAndSwap(false, true) {
		return nil
	}
	return s.client.Close()
}

// escapeGlob escapes the characters Redis MATCH treats as patterns.
func escapeGlob(s string) string {
	var b strings.Builder
	b.Grow(len(s))
	for _, r := range s {
		switch r {
		case '*', '?', '[', ']', '\\':
			b.WriteByte('\\')
		}
		b.WriteRune(r)
	}
	return b.String()
}
