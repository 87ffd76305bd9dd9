package store

import "errors"

var (
	// ErrNotFound is returned when a document does not exist.
	ErrNotFound = errors.New("store: not found")

	// ErrConflict is returned when a write collides with another writer,
	// or when a created document already exists.
	ErrConflict = errors.New("store: conflict")

	// ErrIntegrity is returned when an audit entry cannot be appended.
	// The transaction is rolled back.
	ErrIntegrity = errors.New("store: audit integrity failure")

	// ErrInvalidFilter is returned for filter fields outside [A-Za-z0-9_.].
	ErrInvalidFilter = errors.New("store: invalid filter")
)
