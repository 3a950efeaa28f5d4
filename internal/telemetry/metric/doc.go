// Package metric provides Prometheus metrics for graphite.
//
// A Registry owns its own prometheus.Registry (not the global default)
// with the Go and process collectors and a build info collector
// registered. All recording methods are safe on a nil *Registry, which
// lets components run without metrics in tests.
//
// Metrics are exposed at /metrics in Prometheus text format.
package metric
