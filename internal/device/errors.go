package device

import "errors"

// Domain errors for the device package.
//
// These errors can be checked using errors.Is() for error handling:
//
//	if errors.Is(err, device.ErrDeviceNotFound) {
//	    // handle not found case
//	}
var (
	// ErrDeviceNotFound is returned when a device ID does not exist.
	ErrDeviceNotFound = errors.New("device: not found")

	// ErrDeviceExists is returned when creating a device with an ID that already exists.
	ErrDeviceExists = errors.New("device: already exists")

	// ErrInvalidDevice is returned when device validation fails.
	ErrInvalidDevice = errors.New("device: invalid")

	// ErrInvalidDeviceType is returned when a device type is not recognised.
	ErrInvalidDeviceType = errors.New("device: invalid type")

	// ErrInvalidStatus is returned when a connection status is not recognised.
	ErrInvalidStatus = errors.New("device: invalid status")

	// ErrInvalidTransport is returned when a transport value is not recognised.
	ErrInvalidTransport = errors.New("device: invalid transport")

	// ErrInvalidSyncFrequency is returned when a sync frequency is negative.
	ErrInvalidSyncFrequency = errors.New("device: invalid sync frequency")

	// ErrUnknownDevice is returned when a device name is not in the catalog.
	ErrUnknownDevice = errors.New("device: unknown catalog entry")

	// ErrSyncInProgress is returned by BeginSync when a sync is already
	// in flight for the device.
	ErrSyncInProgress = errors.New("device: sync already in progress")

	// ErrNotConnected is returned by BeginSync when the device is not in
	// the connected state.
	ErrNotConnected = errors.New("device: not connected")
)
