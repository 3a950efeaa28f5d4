// Package handler provides the HTTP handlers of the graphite API.
//
//   - health.go: liveness, readiness and metrics
//   - oauth.go: GitHub login and callback
//   - me.go: the signed-in identity
//   - projects.go: project CRUD scoped to the signed-in user
//
// Handlers behind authentication read the session placed in the request
// context by the session middleware and never look at cookies themselves.
// Every JSON response uses the Response envelope.
package handler
