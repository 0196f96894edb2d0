package automation

import "errors"

// Errors for the automation package.
var (
	// ErrAutomationNotFound is returned when an automation ID does not exist.
	ErrAutomationNotFound = errors.New("automation: not found")

	// ErrInvalidAutomation is returned when an automation fails validation.
	ErrInvalidAutomation = errors.New("automation: invalid automation")

	// ErrExecutionFailed wraps per-action failures from an execution run.
	ErrExecutionFailed = errors.New("automation: execution failed")
)
