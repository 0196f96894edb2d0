package device

import "time"

// ConnectedDevice represents an externally-connected device managed by the
// engine: a wearable, a companion app, a voice assistant or a smart-home hub.
//
// The registry is the single source of truth for these records. A device is
// created in StatusPending by the connection manager, moves to
// StatusConnected on success (StatusError on unrecoverable failure), cycles
// through StatusSyncing during a sync, and is removed on explicit
// disconnect, cascading removal of its triggers and automations.
type ConnectedDevice struct {
	// Identity
	ID string `json:"id"`

	// Classification
	DeviceType DeviceType `json:"deviceType"`

	// DeviceName is the catalog key (e.g. "fitbit", "philips_hue").
	DeviceName string `json:"deviceName"`

	// DisplayName is the user-facing name.
	DisplayName string `json:"displayName"`

	// Connection state
	ConnectionStatus ConnectionStatus `json:"connectionStatus"`
	Transport        Transport        `json:"transport"`

	// DeviceMetadata holds the opaque metric map populated by sync.
	// Example (wearable): {"steps": 8412, "heart_rate": 68, "sleep_hours": 7.2}
	DeviceMetadata Metadata `json:"deviceMetadata"`

	// Sync scheduling
	LastSyncAt           *time.Time `json:"lastSyncAt,omitempty"`
	AutoSyncEnabled      bool       `json:"autoSyncEnabled"`
	SyncFrequencyMinutes int        `json:"syncFrequencyMinutes"`

	// Transport-specific identifiers
	ShortRangeAddress *string `json:"shortRangeAddress,omitempty"`
	NetworkID         *string `json:"networkId,omitempty"`

	// Timestamps
	CreatedAt time.Time `json:"createdAt"`
	UpdatedAt time.Time `json:"updatedAt"`
}

// DeepCopy creates a complete independent copy of the ConnectedDevice.
// The metadata map is cloned so modifications to the copy do not affect
// the original. This is essential for cache isolation.
func (d *ConnectedDevice) DeepCopy() *ConnectedDevice {
	if d == nil {
		return nil
	}

	cpy := *d
	cpy.DeviceMetadata = deepCopyMap(d.DeviceMetadata)

	// Pointer fields (*string, *time.Time) don't need deep copy
	// because strings and time.Time are immutable in Go

	return &cpy
}

// deepCopyMap creates a deep copy of a map[string]any.
// Nested maps and slices are recursively copied.
func deepCopyMap(m map[string]any) map[string]any {
	if m == nil {
		return nil
	}
	cpy := make(map[string]any, len(m))
	for k, v := range m {
		cpy[k] = deepCopyValue(v)
	}
	return cpy
}

// deepCopyValue recursively copies a value, handling nested maps and slices.
func deepCopyValue(v any) any {
	switch val := v.(type) {
	case map[string]any:
		return deepCopyMap(val)
	case []any:
		cpy := make([]any, len(val))
		for i, elem := range val {
			cpy[i] = deepCopyValue(elem)
		}
		return cpy
	default:
		return v
	}
}

// Metadata holds sync-populated device metrics as a JSON map.
type Metadata map[string]any

// DeviceType classifies the kind of integration.
type DeviceType string //nolint:revive // device.DeviceType is clearer than device.Type in calling code

// DeviceType constants.
const (
	TypeWearable       DeviceType = "wearable"
	TypeApp            DeviceType = "app"
	TypeVoiceAssistant DeviceType = "voice_assistant"
	TypeSmartHome      DeviceType = "smart_home"
)

// AllDeviceTypes returns all valid device type values.
func AllDeviceTypes() []DeviceType {
	return []DeviceType{TypeWearable, TypeApp, TypeVoiceAssistant, TypeSmartHome}
}

// ConnectionStatus represents the lifecycle state of a device connection.
type ConnectionStatus string

// ConnectionStatus constants.
const (
	StatusPending      ConnectionStatus = "pending"
	StatusConnected    ConnectionStatus = "connected"
	StatusDisconnected ConnectionStatus = "disconnected"
	StatusError        ConnectionStatus = "error"
	StatusSyncing      ConnectionStatus = "syncing"
)

// AllConnectionStatuses returns all valid connection status values.
func AllConnectionStatuses() []ConnectionStatus {
	return []ConnectionStatus{
		StatusPending, StatusConnected, StatusDisconnected, StatusError, StatusSyncing,
	}
}

// Transport identifies how a device is connected.
type Transport string

// Transport constants. TransportSimulated is the generic fallback used
// when a preferred transport capability is unavailable or fails.
const (
	TransportBluetooth Transport = "bluetooth"
	TransportNetwork   Transport = "wifi"
	TransportSimulated Transport = "simulated"
)

// AllTransports returns all valid transport values.
func AllTransports() []Transport {
	return []Transport{TransportBluetooth, TransportNetwork, TransportSimulated}
}
