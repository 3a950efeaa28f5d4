package config

import (
	"os"

	"github.com/yndnr/graphite-go/internal/storage"
	"github.com/yndnr/graphite-go/internal/storage/backend"
	"github.com/yndnr/graphite-go/internal/storage/redisstore"
	"github.com/yndnr/graphite-go/internal/telemetry/logger"
)

// BackendConfig maps the storage section onto backend.Config.
func (c *ServerConfig) BackendConfig() backend.Config {
	kv := storage.DefaultKVConfig(c.Storage.DataDir)
	if c.Storage.Badger.GCInterval != "" {
		kv.Badger.GCInterval = c.Storage.Badger.GCInterval
	}
	kv.Badger.SyncWrites = c.Storage.Badger.SyncWrites

	return backend.Config{
		Backend: c.Storage.Backend,
		Badger:  kv,
		Redis: redisstore.Config{
			Addr:      c.Storage.Redis.Addr,
			Username:  c.Storage.Redis.Username,
			Password:  c.Storage.Redis.Password,
			DB:        c.Storage.Redis.DB,
			KeyPrefix: c.Storage.Redis.KeyPrefix,
		},
	}
}

// LoggerConfig maps the log section onto logger.Config, writing to stdout.
func (c *ServerConfig) LoggerConfig() logger.Config {
	return logger.Config{
		Level:  c.Log.Level,
		Format: c.Log.Format,
		Output: os.Stdout,
	}
}

// TokenHashKey returns the configured hash key, or nil for an unkeyed hash.
func (c *ServerConfig) TokenHashKey() []byte {
	if c.Security.TokenHashKey == "" {
		return nil
	}
	return []byte(c.Security.TokenHashKey)
}
