package geofence

import (
	"time"

	"github.com/google/uuid"
)

// TriggerOn controls which boundary crossings a fence reacts to.
type TriggerOn string

// TriggerOn constants.
const (
	TriggerEnter TriggerOn = "enter"
	TriggerExit  TriggerOn = "exit"
	TriggerBoth  TriggerOn = "both"
)

// Transition is the crossing direction reported when a fence fires.
type Transition string

// Transition constants.
const (
	TransitionEnter Transition = "enter"
	TransitionExit  Transition = "exit"
)

// GeoFence is a circular region linked to habits.
type GeoFence struct {
	ID           string    `json:"id"`
	Name         string    `json:"name"`
	Latitude     float64   `json:"latitude"`
	Longitude    float64   `json:"longitude"`
	RadiusMeters float64   `json:"radiusMeters"`
	TriggerOn    TriggerOn `json:"triggerOn"`

	// LinkedHabits are the habit IDs notified when the fence fires.
	LinkedHabits []string `json:"linkedHabits,omitempty"`

	IsActive  bool      `json:"isActive"`
	CreatedAt time.Time `json:"createdAt"`
}

// Position is a sampled device location.
type Position struct {
	Latitude  float64
	Longitude float64
}

// FiredFence describes one boundary crossing that matched the fence's
// TriggerOn setting.
type FiredFence struct {
	FenceID      string
	Name         string
	Transition   Transition
	LinkedHabits []string
}

// GenerateID creates a new UUID for a fence.
func GenerateID() string {
	return uuid.NewString()
}
