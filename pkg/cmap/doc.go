// Package cmap provides a concurrent map keyed by strings.
//
// Keys are spread over a power-of-two number of shards, each guarded by
// its own RWMutex, so unrelated keys rarely contend. It backs the
// in-memory KV store.
//
// Usage:
//
//	m := cmap.New[[]byte]()
//	m.Set("session:abc", value)
//	v, ok := m.Get("session:abc")
package cmap
