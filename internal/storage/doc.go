// Package storage provides persistence for graphite.
//
// Every backend implements the small KV interface. The session, user
// and project repositories are written against KV only, so the same
// code runs on:
//
//   - memory: sharded in-process map (package memory), lost on restart
//   - badger: embedded LSM store (BadgerEngine), the default
//   - redis: shared store for several server processes (package redisstore)
//
// Records are JSON encoded. Session records are keyed by a hash of the
// token, never by the token itself.
package storage
