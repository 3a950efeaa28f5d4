// Package domain defines the core domain models for Graphite.
//
// Domain models are plain value objects without IO dependencies:
//
//   - Session: an authenticated browser session bound to a token
//   - User: a GitHub account that has logged in at least once
//   - Project: a user-owned project record
//   - Errors: coded domain errors mapped to HTTP statuses at the edge
package domain
