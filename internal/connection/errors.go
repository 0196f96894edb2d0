package connection

import "errors"

// Errors for the connection package.
//
// ErrCapabilityUnavailable and ErrNoMatchingDevice are expected
// conditions: the manager answers them with the simulated fallback and
// never surfaces them to callers. Only ErrConnectionDeclined propagates.
var (
	// ErrCapabilityUnavailable is returned when a transport's host
	// capability (bluetooth adapter, broker connection) is absent.
	ErrCapabilityUnavailable = errors.New("connection: capability unavailable")

	// ErrNoMatchingDevice is returned when a transport found no device
	// answering for the requested catalog entry.
	ErrNoMatchingDevice = errors.New("connection: no matching device")

	// ErrConnectionDeclined is returned when the user or host explicitly
	// refused pairing. This is the one non-recoverable connect failure.
	ErrConnectionDeclined = errors.New("connection: pairing declined")

	// ErrTransportFailure is returned when a paired transport's fetch fails.
	ErrTransportFailure = errors.New("connection: transport failure")

	// ErrUnknownTransport is returned when a device references a
	// transport the manager has no implementation for.
	ErrUnknownTransport = errors.New("connection: unknown transport")
)
