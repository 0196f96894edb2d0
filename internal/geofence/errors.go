package geofence

import "errors"

// Errors for the geofence package.
var (
	// ErrFenceNotFound is returned when a fence ID does not exist.
	ErrFenceNotFound = errors.New("geofence: not found")

	// ErrInvalidFence is returned when a fence fails validation.
	ErrInvalidFence = errors.New("geofence: invalid fence")
)
