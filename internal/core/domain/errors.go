package domain

import (
	"errors"
	"fmt"
)

// DomainError represents a business domain error with a structured code.
// Codes look like GR-<AREA>-<NNNN>; the numeric part encodes the HTTP
// status family the error maps to at the API edge.
type DomainError struct {
	Code    string // Error code (e.g., "GR-SESS-4040")
	Message string // Human-readable message
	Details string // Optional additional details
	Cause   error  // Underlying error (if any)
}

// Error implements the error interface.
func (e *DomainError) Error() string {
	if e.Details != "" {
		return fmt.Sprintf("[%s] %s: %s", e.Code, e.Message, e.Details)
	}
	return fmt.Sprintf("[%s] %s", e.Code, e.Message)
}

// Unwrap returns the underlying error for errors.Unwrap() support.
func (e *DomainError) Unwrap() error {
	return e.Cause
}

// Is matches any DomainError carrying the same code.
func (e *DomainError) Is(target error) bool {
	t, ok := target.(*DomainError)
	if !ok {
		return false
	}
	return e.Code == t.Code
}

// NewDomainError creates a new DomainError with the given code and message.
func NewDomainError(code, message string) *DomainError {
	return &DomainError{
		Code:    code,
		Message: message,
	}
}

// WithDetails returns a copy of the error with additional details.
func (e *DomainError) WithDetails(details string) *DomainError {
	c := *e
	c.Details = details
	return &c
}

// WithCause returns a copy of the error wrapping the given cause.
func (e *DomainError) WithCause(cause error) *DomainError {
	c := *e
	c.Cause = cause
	return &c
}

// IsDomainError checks if an error is a DomainError with the given code.
// If code is empty, it only checks if the error is a DomainError.
func IsDomainError(err error, code string) bool {
	var de *DomainError
	if errors.As(err, &de) {
		return code == "" || de.Code == code
	}
	return false
}

// GetErrorCode extracts the error code from an error if it's a DomainError.
func GetErrorCode(err error) string {
	var de *DomainError
	if errors.As(err, &de) {
		return de.Code
	}
	return ""
}

// Session errors.
var (
	ErrSessionNotFound   = NewDomainError("GR-SESS-4040", "session not found")
	ErrSessionConflict   = NewDomainError("GR-SESS-4090", "session id conflict")
	ErrSessionValidation = NewDomainError("GR-SESS-4001", "session validation failed")
)

// Authentication errors.
var (
	// ErrAuthRequired means the request carried no usable session cookie.
	ErrAuthRequired = NewDomainError("GR-AUTH-4010", "authentication required")

	// ErrSessionInvalid means the cookie named a session the store does not know.
	ErrSessionInvalid = NewDomainError("GR-AUTH-4011", "invalid session")

	// ErrOAuthState means the OAuth callback state did not match the login cookie.
	ErrOAuthState = NewDomainError("GR-AUTH-4003", "oauth state mismatch")

	// ErrOAuthExchange means the identity provider rejected the code or the user lookup.
	ErrOAuthExchange = NewDomainError("GR-AUTH-5020", "identity provider request failed")
)

// User errors.
var (
	ErrUserNotFound   = NewDomainError("GR-USER-4040", "user not found")
	ErrUserValidation = NewDomainError("GR-USER-4001", "user validation failed")
)

// Project errors.
var (
	ErrProjectNotFound   = NewDomainError("GR-PROJ-4040", "project not found")
	ErrProjectValidation = NewDomainError("GR-PROJ-4001", "project validation failed")
)

// System errors.
var (
	ErrInternalServer = NewDomainError("GR-SYS-5000", "internal server error")
	ErrStorageError   = NewDomainError("GR-SYS-5001", "storage error")
	ErrBadRequest     = NewDomainError("GR-SYS-4000", "bad request")

	// ErrNotReady means a dependency such as the store is unreachable.
	ErrNotReady = NewDomainError("GR-SYS-5030", "service not ready")
)

// Argument errors.
var (
	ErrInvalidArgument = NewDomainError("GR-ARG-1001", "invalid argument")
	ErrMissingArgument = NewDomainError("GR-ARG-1002", "missing required argument")
)
