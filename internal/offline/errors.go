package offline

import "errors"

// Errors for the offline package.
var (
	// ErrDrainInProgress is returned when a drain is already running.
	// Connectivity-driven callers treat it as a no-op.
	ErrDrainInProgress = errors.New("offline: drain already in progress")

	// ErrReplayFailed is returned when an item could not be replayed.
	// The item and everything behind it remain queued.
	ErrReplayFailed = errors.New("offline: replay failed")
)
