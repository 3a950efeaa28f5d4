// Package backend opens the storage.KV selected by configuration.
package backend

import (
	"context"
	"fmt"
	"log/slog"

	"github.com/yndnr/graphite-go/internal/storage"
	"github.com/yndnr/graphite-go/internal/storage/memory"
	"github.com/yndnr/graphite-go/internal/storage/redisstore"
)

// Backend names accepted in Config.Backend.
const (
	Memory = "memory"
	Badger = "badger"
	Redis  = "redis"
)

// Config selects and configures a backend.
type Config struct {
	Backend string
	Badger  storage.KVConfig
	Redis   redisstore.Config
}

// Open creates the configured backend. Unknown names are an error.
func Open(ctx context.Context, cfg Config, logger *slog.Logger) (storage.KV, error) {
	if logger == nil {
		logger = slog.Default()
	}

	switch cfg.Backend {
	case Memory:
		logger.Warn("using in-memory storage, data is lost on restart")
		return memory.New(), nil
	case Badger, "":
		return storage.NewBadgerEngine(cfg.Badger, logger)
	case Redis:
		return redisstore.Open(ctx, cfg.Redis, logger)
	default:
		return nil, fmt.Errorf("unknown storage backend %q", cfg.Backend)
	}
}
