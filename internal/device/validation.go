package device

import (
	"fmt"

	"github.com/google/uuid"
)

// Validation constants.
const (
	maxNameLength = 100

	// Size limits for the metadata map to keep persisted payloads bounded.
	maxMetadataKeys   = 100
	maxStringValueLen = 1024
)

// Pre-computed validation sets for O(1) lookups.
var (
	validDeviceTypes map[DeviceType]struct{}
	validStatuses    map[ConnectionStatus]struct{}
	validTransports  map[Transport]struct{}
)

func init() {
	validDeviceTypes = make(map[DeviceType]struct{}, len(AllDeviceTypes()))
	for _, t := range AllDeviceTypes() {
		validDeviceTypes[t] = struct{}{}
	}

	validStatuses = make(map[ConnectionStatus]struct{}, len(AllConnectionStatuses()))
	for _, s := range AllConnectionStatuses() {
		validStatuses[s] = struct{}{}
	}

	validTransports = make(map[Transport]struct{}, len(AllTransports()))
	for _, t := range AllTransports() {
		validTransports[t] = struct{}{}
	}
}

// ValidateDevice checks a ConnectedDevice for structural validity.
//
// Returns:
//   - error: wrapping one of the ErrInvalid* sentinels, or nil if valid
func ValidateDevice(d *ConnectedDevice) error {
	if d.ID == "" {
		return fmt.Errorf("%w: missing id", ErrInvalidDevice)
	}

	if d.DeviceName == "" {
		return fmt.Errorf("%w: missing device name", ErrInvalidDevice)
	}

	if len(d.DisplayName) > maxNameLength {
		return fmt.Errorf("%w: display name exceeds %d characters", ErrInvalidDevice, maxNameLength)
	}

	if _, ok := validDeviceTypes[d.DeviceType]; !ok {
		return fmt.Errorf("%w: %q", ErrInvalidDeviceType, d.DeviceType)
	}

	if _, ok := validStatuses[d.ConnectionStatus]; !ok {
		return fmt.Errorf("%w: %q", ErrInvalidStatus, d.ConnectionStatus)
	}

	if _, ok := validTransports[d.Transport]; !ok {
		return fmt.Errorf("%w: %q", ErrInvalidTransport, d.Transport)
	}

	if d.SyncFrequencyMinutes < 0 {
		return fmt.Errorf("%w: %d", ErrInvalidSyncFrequency, d.SyncFrequencyMinutes)
	}

	if err := validateMetadata(d.DeviceMetadata); err != nil {
		return err
	}

	return nil
}

// validateMetadata bounds the sync-populated metric map.
func validateMetadata(m Metadata) error {
	if len(m) > maxMetadataKeys {
		return fmt.Errorf("%w: metadata exceeds %d keys", ErrInvalidDevice, maxMetadataKeys)
	}
	for k, v := range m {
		if s, ok := v.(string); ok && len(s) > maxStringValueLen {
			return fmt.Errorf("%w: metadata value %q exceeds %d bytes", ErrInvalidDevice, k, maxStringValueLen)
		}
	}
	return nil
}

// GenerateID creates a new UUID for a device.
func GenerateID() string {
	return uuid.NewString()
}
