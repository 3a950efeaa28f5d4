// Package redisstore provides a storage.KV backend on Redis.
//
// All keys are namespaced with a configurable prefix so several
// deployments can share one database. Writes are acknowledged by the
// server before they return, which gives read-your-writes from any
// process talking to the same Redis.
package redisstore
