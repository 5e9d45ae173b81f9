package engine

import "errors"

var (
	// ErrInvalidWindow is returned when a reporting window ends before it starts
	// or spans more than the configured maximum.
	ErrInvalidWindow = errors.New("invalid reporting window")

	// ErrIncompleteRecord marks an intake event without a scheduled time or a
	// health reading without any vital sign.
	ErrIncompleteRecord = errors.New("incomplete record")

	// ErrPersistenceUnavailable wraps failures of the storage collaborators.
	ErrPersistenceUnavailable = errors.New("persistence unavailable")

	// ErrInvalidPatient is returned for empty or placeholder patient identifiers.
	ErrInvalidPatient = errors.New("invalid patient identifier")
)
