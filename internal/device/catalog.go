package device

// CatalogEntry describes an integratable device: its identity, type,
// preferred transport and the metric profile its syncs produce.
type CatalogEntry struct {
	// Name is the catalog key referenced by ConnectedDevice.DeviceName.
	Name string

	// DisplayName is the default user-facing name.
	DisplayName string

	// Type classifies the integration.
	Type DeviceType

	// PreferredTransport is attempted first when connecting.
	PreferredTransport Transport

	// Metrics describes the numeric readings a sync produces.
	Metrics []MetricSpec

	// DefaultSyncFrequencyMinutes is the out-of-the-box sync interval.
	// Zero means manual-only sync.
	DefaultSyncFrequencyMinutes int
}

// MetricSpec bounds a simulated metric reading.
type MetricSpec struct {
	Key string
	Min float64
	Max float64
}

// catalog holds every device integration the engine knows how to connect.
var catalog = map[string]CatalogEntry{
	"fitbit": {
		Name:               "fitbit",
		DisplayName:        "Fitbit",
		Type:               TypeWearable,
		PreferredTransport: TransportBluetooth,
		Metrics: []MetricSpec{
			{Key: "steps", Min: 0, Max: 20000},
			{Key: "heart_rate", Min: 48, Max: 120},
			{Key: "sleep_hours", Min: 3, Max: 10},
			{Key: "calories", Min: 800, Max: 3500},
		},
		DefaultSyncFrequencyMinutes: 30,
	},
	"apple_watch": {
		Name:               "apple_watch",
		DisplayName:        "Apple Watch",
		Type:               TypeWearable,
		PreferredTransport: TransportBluetooth,
		Metrics: []MetricSpec{
			{Key: "steps", Min: 0, Max: 20000},
			{Key: "heart_rate", Min: 48, Max: 120},
			{Key: "stand_hours", Min: 0, Max: 16},
			{Key: "exercise_minutes", Min: 0, Max: 180},
		},
		DefaultSyncFrequencyMinutes: 30,
	},
	"garmin": {
		Name:               "garmin",
		DisplayName:        "Garmin",
		Type:               TypeWearable,
		PreferredTransport: TransportBluetooth,
		Metrics: []MetricSpec{
			{Key: "steps", Min: 0, Max: 25000},
			{Key: "heart_rate", Min: 45, Max: 130},
			{Key: "stress_level", Min: 1, Max: 100},
		},
		DefaultSyncFrequencyMinutes: 60,
	},
	"google_fit": {
		Name:               "google_fit",
		DisplayName:        "Google Fit",
		Type:               TypeApp,
		PreferredTransport: TransportNetwork,
		Metrics: []MetricSpec{
			{Key: "steps", Min: 0, Max: 20000},
			{Key: "active_minutes", Min: 0, Max: 240},
		},
		DefaultSyncFrequencyMinutes: 60,
	},
	"apple_health": {
		Name:               "apple_health",
		DisplayName:        "Apple Health",
		Type:               TypeApp,
		PreferredTransport: TransportNetwork,
		Metrics: []MetricSpec{
			{Key: "steps", Min: 0, Max: 20000},
			{Key: "water_ml", Min: 0, Max: 4000},
			{Key: "mindful_minutes", Min: 0, Max: 120},
		},
		DefaultSyncFrequencyMinutes: 60,
	},
	"alexa": {
		Name:               "alexa",
		DisplayName:        "Amazon Alexa",
		Type:               TypeVoiceAssistant,
		PreferredTransport: TransportNetwork,
		Metrics: []MetricSpec{
			{Key: "voice_commands", Min: 0, Max: 50},
			{Key: "reminders_set", Min: 0, Max: 20},
		},
		DefaultSyncFrequencyMinutes: 120,
	},
	"google_home": {
		Name:               "google_home",
		DisplayName:        "Google Home",
		Type:               TypeVoiceAssistant,
		PreferredTransport: TransportNetwork,
		Metrics: []MetricSpec{
			{Key: "voice_commands", Min: 0, Max: 50},
			{Key: "routines_run", Min: 0, Max: 15},
		},
		DefaultSyncFrequencyMinutes: 120,
	},
	"philips_hue": {
		Name:               "philips_hue",
		DisplayName:        "Philips Hue",
		Type:               TypeSmartHome,
		PreferredTransport: TransportNetwork,
		Metrics: []MetricSpec{
			{Key: "lights_on", Min: 0, Max: 12},
			{Key: "power_watts", Min: 0, Max: 120},
		},
		DefaultSyncFrequencyMinutes: 0,
	},
	"smart_things": {
		Name:               "smart_things",
		DisplayName:        "SmartThings",
		Type:               TypeSmartHome,
		PreferredTransport: TransportNetwork,
		Metrics: []MetricSpec{
			{Key: "devices_online", Min: 0, Max: 30},
			{Key: "scenes_run", Min: 0, Max: 10},
		},
		DefaultSyncFrequencyMinutes: 0,
	},
}

// Catalog returns the entry for a device name.
// Returns ErrUnknownDevice if the name is not in the catalog.
func Catalog(name string) (CatalogEntry, error) {
	entry, ok := catalog[name]
	if !ok {
		return CatalogEntry{}, ErrUnknownDevice
	}
	return entry, nil
}

// CatalogNames returns all catalog keys.
func CatalogNames() []string {
	names := make([]string, 0, len(catalog))
	for name := range catalog {
		names = append(names, name)
	}
	return names
}
