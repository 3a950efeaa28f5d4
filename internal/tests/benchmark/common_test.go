package benchmark

import (
	"context"
	"fmt"
	"io"
	"log/slog"
	"runtime"
	"testing"

	"github.com/alicebob/miniredis/v2"

	"github.com/yndnr/graphite-go/internal/core/domain"
	"github.com/yndnr/graphite-go/internal/storage"
	"github.com/yndnr/graphite-go/internal/storage/memory"
	"github.com/yndnr/graphite-go/internal/storage/redisstore"
	"github.com/yndnr/graphite-go/pkg/token"
)

// SessionCounts are the store sizes lookups are measured against.
var SessionCounts = []int{1000, 10000, 100000}

var discardLogger = slog.New(slog.NewTextHandler(io.Discard, nil))

// backend opens an empty KV for a benchmark.
type backend struct {
	name string
	open func(b *testing.B) storage.KV
}

var backends = []backend{
	{"memory", func(b *testing.B) storage.KV {
		return memory.New()
	}},
	{"badger", func(b *testing.B) storage.KV {
		kv, err := storage.NewBadgerEngine(storage.KVConfig{InMemory: true}, discardLogger)
		if err != nil {
			b.Fatalf("open badger: %v", err)
		}
		b.Cleanup(func() { kv.Close() })
		return kv
	}},
	{"redis", func(b *testing.B) storage.KV {
		mr, err := miniredis.Run()
		if err != nil {
			b.Fatalf("miniredis: %v", err)
		}
		b.Cleanup(mr.Close)
		kv, err := redisstore.Open(context.Background(), redisstore.Config{Addr: mr.Addr()}, discardLogger)
		if err != nil {
			b.Fatalf("open redis: %v", err)
		}
		b.Cleanup(func() { kv.Close() })
		return kv
	}},
}

// newSessionStore wraps kv the way the server does, with a keyed hash.
func newSessionStore(b *testing.B, kv storage.KV) *storage.SessionStore {
	b.Helper()
	hasher, err := token.NewHasher([]byte("benchmark-hash-key"))
	if err != nil {
		b.Fatal(err)
	}
	return storage.NewSessionStore(kv, storage.WithHasher(hasher), storage.WithLogger(discardLogger))
}

func identity(i int) domain.Identity {
	return domain.Identity{
		UserID:    int64(i%1000 + 1),
		Name:      fmt.Sprintf("user-%d", i%1000),
		AvatarURL: "https://avatars.example/u.png",
	}
}

// prefill creates count sessions and returns their tokens.
func prefill(b *testing.B, store *storage.SessionStore, count int) []string {
	b.Helper()
	ctx := context.Background()
	tokens := make([]string, count)
	for i := range tokens {
		tok, err := store.Create(ctx, identity(i))
		if err != nil {
			b.Fatalf("prefill: %v", err)
		}
		tokens[i] = tok
	}
	return tokens
}

// reportMemory reports heap usage after a run.
func reportMemory(b *testing.B, prefix string) {
	var m runtime.MemStats
	runtime.GC()
	runtime.ReadMemStats(&m)
	b.ReportMetric(float64(m.Alloc)/(1024*1024), prefix+"_MB")
}

// runWithSessionCounts runs benchFn once per store size.
func runWithSessionCounts(b *testing.B, counts []int, benchFn func(b *testing.B, count int)) {
	for _, count := range counts {
		b.Run(fmt.Sprintf("sessions_%d", count), func(b *testing.B) {
			benchFn(b, count)
		})
	}
}
