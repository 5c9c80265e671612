package repository

import "errors"

var (
	// ErrNotFound indicates an entity was not located.
	ErrNotFound = errors.New("repository: not found")
	// ErrVersionConflict indicates the stored aggregate changed since it was read.
	ErrVersionConflict = errors.New("repository: version conflict")
	// ErrAlreadyExists indicates an insert collided with an existing id.
	ErrAlreadyExists = errors.New("repository: already exists")
)
