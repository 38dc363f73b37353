package shared

import "errors"

var (
	// ErrNotFound indicates the requested entity does not exist or is soft-deleted.
	ErrNotFound = errors.New("not found")
	// ErrInvalidState indicates the entity exists but its lifecycle state forbids the operation.
	ErrInvalidState = errors.New("invalid state")
	// ErrValidation indicates the request payload failed business validation.
	ErrValidation = errors.New("validation failed")
)
