package automation

import "errors"

// Domain errors for the automation package.
//
// Missing rules, templates and guest contacts are not errors: Fire treats
// them as no-ops. These are returned by the administrative operations only.
//
//	if errors.Is(err, automation.ErrUnknownEvent) {
//	    // reject the request
//	}
var (
	// ErrUnknownEvent is returned when a rule is addressed by an event name
	// that is not one of KnownEvents.
	ErrUnknownEvent = errors.New("automation: unknown trigger event")

	// ErrInvalidTemplate is returned when template validation fails.
	ErrInvalidTemplate = errors.New("automation: invalid template")

	// ErrInvalidRule is returned when a rule update fails validation.
	ErrInvalidRule = errors.New("automation: invalid rule")

	// ErrNotRetryable is returned when a retry targets a message that has not failed.
	ErrNotRetryable = errors.New("automation: message is not failed")
)
