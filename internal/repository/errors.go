package repository

import "errors"

var (
	// ErrNotFound indicates an entity was not located.
	ErrNotFound = errors.New("repository: not found")
	// ErrConflict indicates a unique constraint rejected the write.
	ErrConflict = errors.New("repository: conflict")
	// ErrInvalidReference indicates a referenced entity is missing or has the wrong role.
	ErrInvalidReference = errors.New("repository: invalid reference")
	// ErrStale indicates a conditional update found the row in an unexpected state.
	ErrStale = errors.New("repository: stale write")
)
