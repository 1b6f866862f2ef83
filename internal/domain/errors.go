package domain

import "errors"

var (
	// ErrMissingCredential is returned when a command needs an API key that is not configured
	ErrMissingCredential = errors.New("missing credential")

	// ErrRetriesExhausted is returned when a transient failure persisted through every retry
	ErrRetriesExhausted = errors.New("retries exhausted")

	// ErrNotFound is returned when a single-item lookup has no data
	ErrNotFound = errors.New("not found")

	// ErrReadOnlyQuery is returned when a query would modify the store
	ErrReadOnlyQuery = errors.New("only read-only queries are allowed")

	// ErrInvalidArchive is returned when a snapshot archive cannot be read
	ErrInvalidArchive = errors.New("invalid snapshot archive")
)
