package lodging

import "errors"

var (
	// ErrInvalidTransition is returned when a status change is not in the
	// entity's transition table, or a precondition on a related entity fails.
	ErrInvalidTransition = errors.New("lodging: invalid transition")

	// ErrInvalidInput is returned when a request fails validation.
	ErrInvalidInput = errors.New("lodging: invalid input")

	// ErrCodeSpaceExhausted is returned when no unused access code was found
	// within the configured number of attempts.
	ErrCodeSpaceExhausted = errors.New("lodging: access code space exhausted")

	// ErrCabinUnavailable is returned when a booking overlaps a live stay.
	ErrCabinUnavailable = errors.New("lodging: cabin unavailable for dates")

	// ErrDuplicateTurnover is returned when a cabin already has an open turnover task.
	ErrDuplicateTurnover = errors.New("lodging: open turnover task already exists")
)
