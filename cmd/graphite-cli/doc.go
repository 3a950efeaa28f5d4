// Package main provides the entry point for graphite-cli.
//
// graphite-cli administers the store graphite-server uses, reading the
// same configuration:
//
//	graphite-cli -c /etc/graphite/graphite.yaml session create --user-id 42
//	graphite-cli -c /etc/graphite/graphite.yaml -o json session list
//	graphite-cli -c /etc/graphite/graphite.yaml store gc
//
// The badger backend is single-process, so commands against it run
// while the server is stopped.
package main
