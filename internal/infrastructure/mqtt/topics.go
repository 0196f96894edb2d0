package mqtt

import "fmt"

// Topic prefixes for the devicelink MQTT hierarchy.
//
// All topics use the flat scheme: devicelink/{category}/{device_name}/{id}
const (
	// TopicPrefix is the base for all devicelink topics.
	TopicPrefix = "devicelink"

	// TopicPrefixSystem is the base for system topics.
	TopicPrefixSystem = "devicelink/system"
)

// Topics provides builders for devicelink MQTT topics.
// Using these helpers ensures consistent topic naming across the codebase.
type Topics struct{}

// Command returns the topic for smart-home commands to a device.
//
// Example: devicelink/command/philips_hue/dev-abc123
func (Topics) Command(deviceName, deviceID string) string {
	return fmt.Sprintf("%s/command/%s/%s", TopicPrefix, deviceName, deviceID)
}

// Discover returns the topic used to solicit announcements from
// local-network devices of a given catalog name.
//
// Example: devicelink/discover/philips_hue
func (Topics) Discover(deviceName string) string {
	return fmt.Sprintf("%s/discover/%s", TopicPrefix, deviceName)
}

// Announce returns the topic a local-network device answers discovery on.
//
// Example: devicelink/announce/philips_hue
func (Topics) Announce(deviceName string) string {
	return fmt.Sprintf("%s/announce/%s", TopicPrefix, deviceName)
}

// Event returns the topic for engine events.
//
// Example: devicelink/event/sync.completed
func (Topics) Event(eventType string) string {
	return fmt.Sprintf("%s/event/%s", TopicPrefix, eventType)
}

// SystemStatus returns the engine's online/offline status topic.
//
// Example: devicelink/system/status
func (Topics) SystemStatus() string {
	return TopicPrefixSystem + "/status"
}
