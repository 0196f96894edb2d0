package trigger

import "errors"

// Errors for the trigger package.
var (
	// ErrTriggerNotFound is returned when a trigger ID does not exist.
	ErrTriggerNotFound = errors.New("trigger: not found")

	// ErrInvalidCondition marks a malformed condition. The offending
	// trigger is skipped for the evaluation pass, never aborting others.
	ErrInvalidCondition = errors.New("trigger: invalid condition")
)
