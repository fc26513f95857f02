// Package common defines shared constants and sentinel errors used across
// the layers of seqtrack. Callers should use errors.Is to match these values.
package common

import "errors"

var (
	// Repository-level errors.
	ErrorNotFound      = errors.New("not found")
	ErrorAlreadyExists = errors.New("already exists")

	// ErrSchemaMissing is returned by repositories when the database reports
	// that a relation does not exist. Classified at the repository boundary so
	// services never inspect driver-specific error fields.
	ErrSchemaMissing = errors.New("schema missing")

	// Service-level errors (generic/internal flow control).
	ErrorInternal     = errors.New("internal error")
	ErrorUnauthorized = errors.New("unauthorized")

	// ErrHashing signals a failure of the password-hashing primitive itself,
	// as opposed to a credential mismatch (which is never an error).
	ErrHashing = errors.New("password hashing failed")

	// Auth errors (invalid or malformed token).
	ErrInvalidToken = errors.New("invalid token")
)
