// Package storagetest holds the behaviour every storage.KV backend must
// share, run against each backend from its own tests.
package storagetest

import (
	"context"
	"errors"
	"fmt"
	"sync"
	"sync/atomic"
	"testing"

	"github.com/yndnr/graphite-go/internal/storage"
)

// RunKV exercises kv. The store must start empty.
func RunKV(t *testing.T, kv storage.KV) {
	t.Helper()
	ctx := context.Background()

	t.Run("Set and Get", func(t *testing.T) {
		if err := kv.Set(ctx, []byte("kv:set"), []byte("v1")); err != nil {
			t.Fatal(err)
		}
		got, err := kv.Get(ctx, []byte("kv:set"))
		if err != nil {
			t.Fatal(err)
		}
		if string(got) != "v1" {
			t.Errorf("expected v1, got %s", got)
		}

		if err := kv.Set(ctx, []byte("kv:set"), []byte("v2")); err != nil {
			t.Fatal(err)
		}
		got, _ = kv.Get(ctx, []byte("kv:set"))
		if string(got) != "v2" {
			t.Errorf("expected overwrite to v2, got %s", got)
		}
	})

	t.Run("Get non-existent key", func(t *testing.T) {
		_, err := kv.Get(ctx, []byte("kv:missing"))
		if !errors.Is(err, storage.ErrKeyNotFound) {
			t.Errorf("expected ErrKeyNotFound, got %v", err)
		}
	})

	t.Run("Get returns a private copy", func(t *testing.T) {
		if err := kv.Set(ctx, []byte("kv:copy"), []byte("abc")); err != nil {
			t.Fatal(err)
		}
		got, _ := kv.Get(ctx, []byte("kv:copy"))
		got[0] = 'X'
		again, _ := kv.Get(ctx, []byte("kv:copy"))
		if string(again) != "abc" {
			t.Errorf("stored value was mutated through Get result: %s", again)
		}
	})

	t.Run("SetNX", func(t *testing.T) {
		ok, err := kv.SetNX(ctx, []byte("kv:nx"), []byte("first"))
		if err != nil {
			t.Fatal(err)
		}
		if !ok {
			t.Fatal("expected first SetNX to write")
		}

		ok, err = kv.SetNX(ctx, []byte("kv:nx"), []byte("second"))
		if err != nil {
			t.Fatal(err)
		}
		if ok {
			t.Error("expected second SetNX to be rejected")
		}

		got, _ := kv.Get(ctx, []byte("kv:nx"))
		if string(got) != "first" {
			t.Errorf("expected first, got %s", got)
		}
	})

	t.Run("SetNX concurrent", func(t *testing.T) {
		var wins atomic.Int32
		var wg sync.WaitGroup
		for i := 0; i < 16; i++ {
			wg.Add(1)
			go func(i int) {
				defer wg.Done()
				ok, err := kv.SetNX(ctx, []byte("kv:race"), []byte(fmt.Sprint(i)))
				if err != nil {
					t.Error(err)
					return
				}
				if ok {
					wins.Add(1)
				}
			}(i)
		}
		wg.Wait()

		if wins.Load() != 1 {
			t.Errorf("expected exactly one SetNX winner, got %d", wins.Load())
		}
	})

	t.Run("Delete", func(t *testing.T) {
		if err := kv.Set(ctx, []byte("kv:del"), []byte("v")); err != nil {
			t.Fatal(err)
		}
		if err := kv.Delete(ctx, []byte("kv:del")); err != nil {
			t.Fatal(err)
		}
		if _, err := kv.Get(ctx, []byte("kv:del")); !errors.Is(err, storage.ErrKeyNotFound) {
			t.Errorf("expected ErrKeyNotFound after delete, got %v", err)
		}
		if err := kv.Delete(ctx, []byte("kv:del")); err != nil {
			t.Errorf("deleting a missing key should succeed, got %v", err)
		}
	})

	t.Run("Scan with prefix", func(t *testing.T) {
		data := map[string]string{
			"scan:user:1": "alice",
			"scan:user:2": "bob",
			"scan:user:3": "charlie",
			"scan:meta:x": "data",
		}
		for k, v := range data {
			if err := kv.Set(ctx, []byte(k), []byte(v)); err != nil {
				t.Fatal(err)
			}
		}

		got := make(map[string]string)
		err := kv.Scan(ctx, []byte("scan:user:"), func(key, value []byte) bool {
			got[string(key)] = string(value)
			return true
		})
		if err != nil {
			t.Fatal(err)
		}

		if len(got) != 3 {
			t.Fatalf("expected 3 results, got %d: %v", len(got), got)
		}
		if got["scan:user:2"] != "bob" {
			t.Errorf("expected full key in callback, got %v", got)
		}
	})

	t.Run("Scan with early stop", func(t *testing.T) {
		count := 0
		err := kv.Scan(ctx, []byte("scan:user:"), func(key, value []byte) bool {
			count++
			return count < 2
		})
		if err != nil {
			t.Fatal(err)
		}
		if count != 2 {
			t.Errorf("expected 2 iterations, got %d", count)
		}
	})

	t.Run("Ping", func(t *testing.T) {
		if err := kv.Ping(ctx); err != nil {
			t.Errorf("Ping() error = %v", err)
		}
	})
}

// RunClosed checks that kv, already closed, rejects further use.
func RunClosed(t *testing.T, kv storage.KV) {
	t.Helper()
	ctx := context.Background()

	if _, err := kv.Get(ctx, []byte("k")); err == nil {
		t.Error("expected Get to fail after Close")
	}
	if _, err := kv.SetNX(ctx, []byte("k"), []byte("v")); err == nil {
		t.Error("expected SetNX to fail after Close")
	}
	if err := kv.Ping(ctx); err == nil {
		t.Error("expected Ping to fail after Close")
	}
}
