// Package service provides domain services for graphite.
//
// Services hold the business rules and declare the storage interfaces
// they depend on, so handlers and tests can swap implementations:
//
//   - SessionStore: create and resolve opaque session tokens
//   - UserService: first-login user registration
//   - LoginService: turns an upstream identity into a session
//   - ProjectService: per-user project CRUD
//
// Services are stateless and safe for concurrent use.
package service
