package syncer

import (
	"time"

	"github.com/google/uuid"
)

// SyncType classifies how a sync attempt was initiated.
type SyncType string

// SyncType constants.
const (
	SyncAuto      SyncType = "auto"
	SyncManual    SyncType = "manual"
	SyncWebhook   SyncType = "webhook"
	SyncBluetooth SyncType = "bluetooth"
	SyncWifi      SyncType = "wifi"
)

// SyncStatus is the outcome of a sync attempt.
type SyncStatus string

// SyncStatus constants.
const (
	StatusSuccess    SyncStatus = "success"
	StatusPartial    SyncStatus = "partial"
	StatusFailed     SyncStatus = "failed"
	StatusInProgress SyncStatus = "in_progress"
)

// SyncLogEntry is the immutable record of one sync attempt.
//
// Entries are appended in completion order; the store retains only the
// most recent bounded window, evicting oldest first.
type SyncLogEntry struct {
	ID            string     `json:"id"`
	DeviceID      string     `json:"deviceId"`
	DeviceName    string     `json:"deviceName"`
	SyncType      SyncType   `json:"syncType"`
	Status        SyncStatus `json:"status"`
	RecordsSynced int        `json:"recordsSynced"`
	HabitsUpdated []string   `json:"habitsUpdated,omitempty"`
	ErrorMessage  *string    `json:"errorMessage,omitempty"`
	SyncedAt      time.Time  `json:"syncedAt"`
	DurationMs    int64      `json:"durationMs"`
}

// GenerateID creates a new UUID for a sync log entry.
func GenerateID() string {
	return uuid.NewString()
}
