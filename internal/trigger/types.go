package trigger

import (
	"time"

	"github.com/google/uuid"
)

// TriggerType classifies what a trigger reacts to.
type TriggerType string //nolint:revive // trigger.TriggerType is clearer than trigger.Type in calling code

// TriggerType constants.
const (
	TypeActivity     TriggerType = "activity"
	TypeLocation     TriggerType = "location"
	TypeTime         TriggerType = "time"
	TypeDeviceEvent  TriggerType = "device_event"
	TypeVoiceCommand TriggerType = "voice_command"
)

// ActionType is what a fired trigger asks the habit collaborator to do.
type ActionType string

// ActionType constants.
const (
	ActionCompleteHabit ActionType = "complete_habit"
	ActionRemind        ActionType = "remind"
	ActionStartTimer    ActionType = "start_timer"
	ActionLogProgress   ActionType = "log_progress"
)

// Condition is the declarative rule a trigger evaluates.
//
// Activity and device_event triggers use Metric/Operator/Value against
// the device's synced metrics. Time triggers use TimeOfDay ("HH:MM").
// Location triggers reference a geofence and are resolved by the
// geofence engine, not here.
type Condition struct {
	Metric    string  `json:"metric,omitempty"`
	Operator  string  `json:"operator,omitempty"`
	Value     float64 `json:"value,omitempty"`
	TimeOfDay string  `json:"timeOfDay,omitempty"`
	GeoFence  string  `json:"geoFenceId,omitempty"`
}

// HabitTrigger links a device condition to a habit action.
type HabitTrigger struct {
	ID          string      `json:"id"`
	HabitID     *string     `json:"habitId,omitempty"`
	TriggerName string      `json:"triggerName"`
	TriggerType TriggerType `json:"triggerType"`

	// DeviceID binds the trigger to one device. Location and time
	// triggers may be unbound.
	DeviceID *string `json:"deviceId,omitempty"`

	Conditions   Condition      `json:"triggerConditions"`
	ActionType   ActionType     `json:"actionType"`
	ActionConfig map[string]any `json:"actionConfig,omitempty"`

	IsActive        bool       `json:"isActive"`
	TimesTriggered  int        `json:"timesTriggered"`
	LastTriggeredAt *time.Time `json:"lastTriggeredAt,omitempty"`

	CreatedAt time.Time `json:"createdAt"`
}

// Fired describes one trigger firing, handed to the habit-completion
// collaborator. The engine never mutates habit records itself.
type Fired struct {
	TriggerID    string
	HabitID      *string
	ActionType   ActionType
	ActionConfig map[string]any
}

// GenerateID creates a new UUID for a trigger.
func GenerateID() string {
	return uuid.NewString()
}
