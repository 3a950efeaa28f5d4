// Package memory provides an in-process storage.KV backend.
//
// Values live in a sharded concurrent map and are lost on restart. It is
// meant for development and tests.
package memory
