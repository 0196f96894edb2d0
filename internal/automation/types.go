package automation

import (
	"time"

	"github.com/google/uuid"
)

// TriggerEvent names the habit lifecycle moment an automation reacts to.
type TriggerEvent string

// TriggerEvent constants.
const (
	EventHabitStart    TriggerEvent = "habit_start"
	EventHabitComplete TriggerEvent = "habit_complete"
	EventFocusSession  TriggerEvent = "focus_session"
	EventReminder      TriggerEvent = "reminder"
)

// Action is one device command inside an automation. Actions run in
// slice order.
type Action struct {
	Device string `json:"device"`
	Action string `json:"action"`
	Value  any    `json:"value,omitempty"`
}

// Automation maps a habit lifecycle event to an ordered list of smart
// home device commands.
type Automation struct {
	ID   string `json:"id"`
	Name string `json:"name"`

	// DeviceID is the smart home hub the automation belongs to.
	DeviceID string `json:"deviceId"`

	TriggerEvent  TriggerEvent `json:"triggerEvent"`
	LinkedHabitID *string      `json:"linkedHabitId,omitempty"`
	Actions       []Action     `json:"actions"`

	IsActive       bool       `json:"isActive"`
	TimesExecuted  int        `json:"timesExecuted"`
	LastExecutedAt *time.Time `json:"lastExecutedAt,omitempty"`

	CreatedAt time.Time `json:"createdAt"`
}

// GenerateID creates a new UUID for an automation.
func GenerateID() string {
	return uuid.NewString()
}
