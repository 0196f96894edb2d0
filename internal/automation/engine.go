package automation

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"sort"
	"sync"
	"time"

	"github.com/pulsehabit/devicelink/internal/clock"
	"github.com/pulsehabit/devicelink/internal/infrastructure/mqtt"
	"github.com/pulsehabit/devicelink/internal/store"
)

// maxExecutionTime is the hard limit for a single automation run.
// Prevents goroutine accumulation when the broker stops acknowledging.
const maxExecutionTime = 30 * time.Second

// Publisher is the interface for publishing device commands to the
// command bus.
type Publisher interface {
	// Publish sends a message to the specified MQTT topic.
	Publish(topic string, payload []byte, qos byte, retained bool) error
}

// EventHub is the interface for broadcasting execution events.
type EventHub interface {
	// Broadcast sends an event to all clients subscribed to the given channel.
	Broadcast(channel string, payload any)
}

// DeviceLookup resolves the hub device that owns an automation, used
// for command topic construction.
type DeviceLookup interface {
	DeviceName(ctx context.Context, deviceID string) (string, error)
}

// Logger defines the logging interface used by the Engine.
type Logger interface {
	Debug(msg string, args ...any)
	Info(msg string, args ...any)
	Warn(msg string, args ...any)
	Error(msg string, args ...any)
}

type noopLogger struct{}

func (noopLogger) Debug(string, ...any) {}
func (noopLogger) Info(string, ...any)  {}
func (noopLogger) Warn(string, ...any)  {}
func (noopLogger) Error(string, ...any) {}

// Engine stores automations and executes them in response to habit
// lifecycle events.
//
// Actions within an automation run strictly in order. A failing action
// never stops the remaining ones; failures are aggregated and returned
// once the run completes. The execution counter advances only when at
// least one action succeeded.
//
// Thread Safety: all public methods are safe for concurrent use.
type Engine struct {
	st      store.Store
	pub     Publisher
	devices DeviceLookup
	hub     EventHub
	topics  mqtt.Topics
	logger  Logger
	clk     clock.Clock

	mu          sync.Mutex
	automations map[string]*Automation
}

// NewEngine creates an automation engine.
//
// Parameters:
//   - st: Collection store for persistence
//   - pub: Command bus publisher (may be nil; execution then fails fast)
//   - devices: Resolves hub device names for topic construction
func NewEngine(st store.Store, pub Publisher, devices DeviceLookup) *Engine {
	return &Engine{
		st:          st,
		pub:         pub,
		devices:     devices,
		logger:      noopLogger{},
		clk:         clock.System{},
		automations: make(map[string]*Automation),
	}
}

// SetLogger sets the logger for the engine.
func (e *Engine) SetLogger(logger Logger) {
	e.logger = logger
}

// SetClock replaces the engine's time source. Intended for tests.
func (e *Engine) SetClock(clk clock.Clock) {
	e.clk = clk
}

// SetEventHub attaches a broadcast hub for execution events. May be nil.
func (e *Engine) SetEventHub(hub EventHub) {
	e.hub = hub
}

// Load reads the persisted automation collection into memory.
func (e *Engine) Load(ctx context.Context) error {
	automations, err := store.LoadCollection[Automation](ctx, e.st, store.KeyAutomations)
	if err != nil {
		return fmt.Errorf("loading automations: %w", err)
	}

	e.mu.Lock()
	defer e.mu.Unlock()

	e.automations = make(map[string]*Automation, len(automations))
	for i := range automations {
		a := automations[i]
		e.automations[a.ID] = &a
	}
	return nil
}

func (e *Engine) persistLocked(ctx context.Context) error {
	automations := make([]Automation, 0, len(e.automations))
	for _, a := range e.automations {
		automations = append(automations, *a)
	}
	sort.Slice(automations, func(i, j int) bool {
		return automations[i].CreatedAt.Before(automations[j].CreatedAt)
	})
	return store.SaveCollection(ctx, e.st, store.KeyAutomations, automations)
}

func validate(a *Automation) error {
	if a.Name == "" {
		return fmt.Errorf("%w: name is required", ErrInvalidAutomation)
	}
	if a.DeviceID == "" {
		return fmt.Errorf("%w: device ID is required", ErrInvalidAutomation)
	}
	if len(a.Actions) == 0 {
		return fmt.Errorf("%w: at least one action is required", ErrInvalidAutomation)
	}
	switch a.TriggerEvent {
	case EventHabitStart, EventHabitComplete, EventFocusSession, EventReminder:
	default:
		return fmt.Errorf("%w: unknown trigger event %q", ErrInvalidAutomation, a.TriggerEvent)
	}
	for i, act := range a.Actions {
		if act.Device == "" || act.Action == "" {
			return fmt.Errorf("%w: action %d missing device or action", ErrInvalidAutomation, i)
		}
	}
	return nil
}

// Create inserts a new automation after validation.
func (e *Engine) Create(ctx context.Context, a *Automation) error {
	if err := validate(a); err != nil {
		return err
	}
	if a.ID == "" {
		a.ID = GenerateID()
	}
	if a.CreatedAt.IsZero() {
		a.CreatedAt = e.clk.Now()
	}

	e.mu.Lock()
	defer e.mu.Unlock()

	cpy := *a
	e.automations[a.ID] = &cpy
	if err := e.persistLocked(ctx); err != nil {
		delete(e.automations, a.ID)
		return err
	}

	e.logger.Info("automation created",
		"id", a.ID,
		"name", a.Name,
		"event", a.TriggerEvent,
		"actions", len(a.Actions),
	)
	return nil
}

// Get retrieves an automation by ID.
func (e *Engine) Get(_ context.Context, id string) (*Automation, error) {
	e.mu.Lock()
	defer e.mu.Unlock()

	a, ok := e.automations[id]
	if !ok {
		return nil, ErrAutomationNotFound
	}
	cpy := *a
	return &cpy, nil
}

// List retrieves all automations ordered by creation time.
func (e *Engine) List(_ context.Context) []Automation {
	e.mu.Lock()
	defer e.mu.Unlock()

	automations := make([]Automation, 0, len(e.automations))
	for _, a := range e.automations {
		automations = append(automations, *a)
	}
	sort.Slice(automations, func(i, j int) bool {
		return automations[i].CreatedAt.Before(automations[j].CreatedAt)
	})
	return automations
}

// Delete removes an automation by ID.
func (e *Engine) Delete(ctx context.Context, id string) error {
	e.mu.Lock()
	defer e.mu.Unlock()

	prev, ok := e.automations[id]
	if !ok {
		return ErrAutomationNotFound
	}

	delete(e.automations, id)
	if err := e.persistLocked(ctx); err != nil {
		e.automations[id] = prev
		return err
	}
	return nil
}

// RemoveByDevice deletes all automations owned by a hub device.
// Called by the connection manager when the device is disconnected.
func (e *Engine) RemoveByDevice(ctx context.Context, deviceID string) (int, error) {
	e.mu.Lock()
	defer e.mu.Unlock()

	var removed []string
	for id, a := range e.automations {
		if a.DeviceID == deviceID {
			removed = append(removed, id)
		}
	}
	if len(removed) == 0 {
		return 0, nil
	}

	backup := make(map[string]*Automation, len(removed))
	for _, id := range removed {
		backup[id] = e.automations[id]
		delete(e.automations, id)
	}

	if err := e.persistLocked(ctx); err != nil {
		for id, a := range backup {
			e.automations[id] = a
		}
		return 0, err
	}
	return len(removed), nil
}

// HandleEvent executes every active automation registered for the
// event. When habitID is non-empty, automations linked to a different
// habit are skipped; automations with no linked habit always match.
//
// Per-automation failures are aggregated; one broken automation never
// blocks the others.
func (e *Engine) HandleEvent(ctx context.Context, event TriggerEvent, habitID string) error {
	e.mu.Lock()
	var due []string
	for _, a := range e.sortedLocked() {
		if !a.IsActive || a.TriggerEvent != event {
			continue
		}
		if habitID != "" && a.LinkedHabitID != nil && *a.LinkedHabitID != habitID {
			continue
		}
		due = append(due, a.ID)
	}
	e.mu.Unlock()

	var errs []error
	for _, id := range due {
		if err := e.Execute(ctx, id); err != nil {
			errs = append(errs, fmt.Errorf("automation %s: %w", id, err))
		}
	}
	return errors.Join(errs...)
}

// Execute runs a single automation's actions in order.
//
// Returns ErrExecutionFailed (wrapping per-action errors) when any
// action fails; the remaining actions still run. TimesExecuted advances
// only when at least one action succeeded.
func (e *Engine) Execute(ctx context.Context, id string) error {
	ctx, cancel := context.WithTimeout(ctx, maxExecutionTime)
	defer cancel()

	e.mu.Lock()
	a, ok := e.automations[id]
	if !ok {
		e.mu.Unlock()
		return ErrAutomationNotFound
	}
	run := *a
	e.mu.Unlock()

	deviceName, err := e.devices.DeviceName(ctx, run.DeviceID)
	if err != nil {
		return fmt.Errorf("resolving hub device: %w", err)
	}

	started := e.clk.Now()
	e.logger.Info("automation started",
		"id", run.ID,
		"name", run.Name,
		"actions", len(run.Actions),
	)

	var errs []error
	succeeded := 0
	for i, act := range run.Actions {
		select {
		case <-ctx.Done():
			errs = append(errs, fmt.Errorf("action %d: %w", i, ctx.Err()))
		default:
			if err := e.publishAction(deviceName, run.DeviceID, act); err != nil {
				e.logger.Warn("automation action failed",
					"id", run.ID,
					"action_index", i,
					"device", act.Device,
					"error", err,
				)
				errs = append(errs, fmt.Errorf("action %d (%s): %w", i, act.Device, err))
				continue
			}
			succeeded++
		}
	}

	if succeeded > 0 {
		e.mu.Lock()
		if cur, ok := e.automations[id]; ok {
			cur.TimesExecuted++
			now := e.clk.Now()
			cur.LastExecutedAt = &now
			if err := e.persistLocked(ctx); err != nil {
				e.logger.Error("persisting automation execution", "id", id, "error", err)
			}
		}
		e.mu.Unlock()
	}

	duration := e.clk.Now().Sub(started).Milliseconds()
	e.logger.Info("automation complete",
		"id", run.ID,
		"succeeded", succeeded,
		"failed", len(errs),
		"duration_ms", duration,
	)

	if e.hub != nil {
		e.hub.Broadcast("automation.executed", map[string]any{
			"automation_id": run.ID,
			"name":          run.Name,
			"succeeded":     succeeded,
			"failed":        len(errs),
			"duration_ms":   duration,
		})
	}

	if len(errs) > 0 {
		return fmt.Errorf("%w: %w", ErrExecutionFailed, errors.Join(errs...))
	}
	return nil
}

// publishAction sends one device command on the command bus.
func (e *Engine) publishAction(deviceName, deviceID string, act Action) error {
	if e.pub == nil {
		return errors.New("automation: no command publisher configured")
	}

	payload, err := json.Marshal(map[string]any{
		"device": act.Device,
		"action": act.Action,
		"value":  act.Value,
	})
	if err != nil {
		return fmt.Errorf("encoding command: %w", err)
	}

	topic := e.topics.Command(deviceName, deviceID)
	return e.pub.Publish(topic, payload, 1, false)
}

func (e *Engine) sortedLocked() []*Automation {
	out := make([]*Automation, 0, len(e.automations))
	for _, a := range e.automations {
		out = append(out, a)
	}
	sort.Slice(out, func(i, j int) bool {
		return out[i].CreatedAt.Before(out[j].CreatedAt)
	})
	return out
}
