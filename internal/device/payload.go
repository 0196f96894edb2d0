package device

// SyncPayload is what a transport's fetch produces for one device.
//
// The shape is deliberately pluggable: the orchestration layer never
// assumes a vendor schema, only a metric map plus bookkeeping counts.
type SyncPayload struct {
	// Metrics are merged into the device's metadata map.
	Metrics Metadata

	// RecordsSynced counts the records the transport pulled.
	RecordsSynced int

	// HabitsTouched names the habits the synced data relates to.
	HabitsTouched []string
}
