// Package errs contains sentinel errors used across layers for stable error mapping.
package errs

import "errors"

// Common sentinels across repo/service layers.
var (
	// ErrNotFound indicates the requested entity does not exist.
	ErrNotFound = errors.New("not found")

	// ErrAlreadyExists indicates a unique constraint violation (e.g., user_login taken).
	ErrAlreadyExists = errors.New("already exists")

	// ErrNotPersisted indicates an operation that needs a stored row was called on an unsaved entity.
	ErrNotPersisted = errors.New("entity is not persisted")

	// ErrAlreadyPersisted indicates Create was called on an entity that already has an id.
	ErrAlreadyPersisted = errors.New("entity is already persisted")

	// ErrInvalid indicates failed input validation.
	ErrInvalid = errors.New("invalid argument")

	// ErrUnauthorized indicates failed authentication/authorization.
	ErrUnauthorized = errors.New("unauthorized")

	// ErrRateLimited indicates temporary login lock due to rate limiting.
	ErrRateLimited = errors.New("rate limited")
)
