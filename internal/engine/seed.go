package engine

import (
	"context"
	"fmt"

	"github.com/pulsehabit/devicelink/internal/automation"
	"github.com/pulsehabit/devicelink/internal/device"
	"github.com/pulsehabit/devicelink/internal/geofence"
	"github.com/pulsehabit/devicelink/internal/trigger"
)

// seedDemo populates a fresh store with a small, working example setup:
// a connected wearable, a smart home hub, and one record of each rule
// kind so a new install shows the full pipeline without any manual
// configuration.
func (e *Engine) seedDemo(ctx context.Context) error {
	now := e.clk.Now()

	fitbit := &device.ConnectedDevice{
		ID:                   device.GenerateID(),
		DeviceType:           device.TypeWearable,
		DeviceName:           "fitbit",
		DisplayName:          "Fitbit Charge",
		ConnectionStatus:     device.StatusConnected,
		Transport:            device.TransportSimulated,
		DeviceMetadata:       device.Metadata{"seeded": true},
		AutoSyncEnabled:      true,
		SyncFrequencyMinutes: 30,
		CreatedAt:            now,
		UpdatedAt:            now,
	}
	if err := e.Registry.Create(ctx, fitbit); err != nil {
		return fmt.Errorf("seeding wearable: %w", err)
	}

	hue := &device.ConnectedDevice{
		ID:                   device.GenerateID(),
		DeviceType:           device.TypeSmartHome,
		DeviceName:           "philips_hue",
		DisplayName:          "Philips Hue Bridge",
		ConnectionStatus:     device.StatusConnected,
		Transport:            device.TransportSimulated,
		DeviceMetadata:       device.Metadata{"seeded": true},
		AutoSyncEnabled:      false,
		SyncFrequencyMinutes: 60,
		CreatedAt:            now,
		UpdatedAt:            now,
	}
	if err := e.Registry.Create(ctx, hue); err != nil {
		return fmt.Errorf("seeding smart home hub: %w", err)
	}

	habitID := "demo-habit-morning-walk"
	steps := &trigger.HabitTrigger{
		TriggerName: "10k steps completes Morning Walk",
		TriggerType: trigger.TypeActivity,
		HabitID:     &habitID,
		DeviceID:    &fitbit.ID,
		Conditions: trigger.Condition{
			Metric:   "steps",
			Operator: ">=",
			Value:    10000,
		},
		ActionType: trigger.ActionCompleteHabit,
		IsActive:   true,
	}
	if err := e.Triggers.Create(ctx, steps); err != nil {
		return fmt.Errorf("seeding trigger: %w", err)
	}

	home := &geofence.GeoFence{
		Name:         "Home",
		Latitude:     51.5074,
		Longitude:    -0.1278,
		RadiusMeters: 150,
		TriggerOn:    geofence.TriggerEnter,
		LinkedHabits: []string{habitID},
		IsActive:     true,
	}
	if err := e.Fences.Create(ctx, home); err != nil {
		return fmt.Errorf("seeding geofence: %w", err)
	}

	lights := &automation.Automation{
		Name:          "Celebrate Morning Walk",
		DeviceID:      hue.ID,
		TriggerEvent:  automation.EventHabitComplete,
		LinkedHabitID: &habitID,
		Actions: []automation.Action{
			{Device: "living_room_lights", Action: "set_color", Value: "green"},
			{Device: "living_room_lights", Action: "set_brightness", Value: 80},
		},
		IsActive: true,
	}
	if err := e.Automations.Create(ctx, lights); err != nil {
		return fmt.Errorf("seeding automation: %w", err)
	}

	e.logger.Info("seeded demo records",
		"devices", 2,
		"triggers", 1,
		"geofences", 1,
		"automations", 1,
	)
	return nil
}
