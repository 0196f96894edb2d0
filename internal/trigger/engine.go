package trigger

import (
	"context"
	"fmt"
	"sort"
	"sync"

	"github.com/pulsehabit/devicelink/internal/clock"
	"github.com/pulsehabit/devicelink/internal/device"
	"github.com/pulsehabit/devicelink/internal/store"
)

// Logger defines the logging interface used by the Engine.
type Logger interface {
	Debug(msg string, args ...any)
	Info(msg string, args ...any)
	Warn(msg string, args ...any)
	Error(msg string, args ...any)
}

// noopLogger is a logger that does nothing.
type noopLogger struct{}

func (noopLogger) Debug(string, ...any) {}
func (noopLogger) Info(string, ...any)  {}
func (noopLogger) Warn(string, ...any)  {}
func (noopLogger) Error(string, ...any) {}

// Engine evaluates habit triggers against synced device metrics.
//
// Firing is edge-triggered: a trigger fires when its condition
// transitions from unsatisfied to satisfied and not again until the
// condition has dropped back below the threshold. This prevents a metric
// plateau (steps stuck at 5200 against a >= 5000 rule) from completing
// the same habit on every poll.
//
// All public methods are thread-safe. Edge state is in-memory only and
// resets on restart.
type Engine struct {
	st     store.Store
	logger Logger
	clk    clock.Clock

	mu       sync.Mutex
	triggers map[string]*HabitTrigger

	// satisfied tracks each trigger's last observed condition state.
	satisfied map[string]bool
}

// NewEngine creates a trigger engine backed by the given store.
func NewEngine(st store.Store) *Engine {
	return &Engine{
		st:        st,
		logger:    noopLogger{},
		clk:       clock.System{},
		triggers:  make(map[string]*HabitTrigger),
		satisfied: make(map[string]bool),
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

// Load reads the persisted trigger collection into memory.
// This should be called once at engine startup.
func (e *Engine) Load(ctx context.Context) error {
	triggers, err := store.LoadCollection[HabitTrigger](ctx, e.st, store.KeyHabitTriggers)
	if err != nil {
		return fmt.Errorf("loading triggers: %w", err)
	}

	e.mu.Lock()
	defer e.mu.Unlock()

	e.triggers = make(map[string]*HabitTrigger, len(triggers))
	for i := range triggers {
		t := triggers[i]
		e.triggers[t.ID] = &t
	}
	return nil
}

// persistLocked writes the current collection. Callers must hold e.mu.
func (e *Engine) persistLocked(ctx context.Context) error {
	triggers := make([]HabitTrigger, 0, len(e.triggers))
	for _, t := range e.triggers {
		triggers = append(triggers, *t)
	}
	sort.Slice(triggers, func(i, j int) bool {
		return triggers[i].CreatedAt.Before(triggers[j].CreatedAt)
	})
	return store.SaveCollection(ctx, e.st, store.KeyHabitTriggers, triggers)
}

// Create inserts a new trigger.
func (e *Engine) Create(ctx context.Context, t *HabitTrigger) error {
	if t.ID == "" {
		t.ID = GenerateID()
	}
	if t.CreatedAt.IsZero() {
		t.CreatedAt = e.clk.Now()
	}

	e.mu.Lock()
	defer e.mu.Unlock()

	cpy := *t
	e.triggers[t.ID] = &cpy
	if err := e.persistLocked(ctx); err != nil {
		delete(e.triggers, t.ID)
		return err
	}

	e.logger.Info("trigger created", "id", t.ID, "name", t.TriggerName, "type", t.TriggerType)
	return nil
}

// Get retrieves a trigger by ID.
func (e *Engine) Get(_ context.Context, id string) (*HabitTrigger, error) {
	e.mu.Lock()
	defer e.mu.Unlock()

	t, ok := e.triggers[id]
	if !ok {
		return nil, ErrTriggerNotFound
	}
	cpy := *t
	return &cpy, nil
}

// List retrieves all triggers ordered by creation time.
func (e *Engine) List(_ context.Context) []HabitTrigger {
	e.mu.Lock()
	defer e.mu.Unlock()

	triggers := make([]HabitTrigger, 0, len(e.triggers))
	for _, t := range e.triggers {
		triggers = append(triggers, *t)
	}
	sort.Slice(triggers, func(i, j int) bool {
		return triggers[i].CreatedAt.Before(triggers[j].CreatedAt)
	})
	return triggers
}

// Delete removes a trigger by ID.
func (e *Engine) Delete(ctx context.Context, id string) error {
	e.mu.Lock()
	defer e.mu.Unlock()

	prev, ok := e.triggers[id]
	if !ok {
		return ErrTriggerNotFound
	}

	delete(e.triggers, id)
	delete(e.satisfied, id)
	if err := e.persistLocked(ctx); err != nil {
		e.triggers[id] = prev
		return err
	}
	return nil
}

// RemoveByDevice deletes all triggers owned by a device.
// Called by the connection manager when the device is disconnected.
func (e *Engine) RemoveByDevice(ctx context.Context, deviceID string) (int, error) {
	e.mu.Lock()
	defer e.mu.Unlock()

	var removed []string
	for id, t := range e.triggers {
		if t.DeviceID != nil && *t.DeviceID == deviceID {
			removed = append(removed, id)
		}
	}
	if len(removed) == 0 {
		return 0, nil
	}

	backup := make(map[string]*HabitTrigger, len(removed))
	for _, id := range removed {
		backup[id] = e.triggers[id]
		delete(e.triggers, id)
		delete(e.satisfied, id)
	}

	if err := e.persistLocked(ctx); err != nil {
		for id, t := range backup {
			e.triggers[id] = t
		}
		return 0, err
	}
	return len(removed), nil
}

// Evaluate checks every active metric trigger bound to the device
// against the freshly synced metrics and returns the triggers that
// fired on this pass.
//
// A malformed condition skips its trigger with a log record and never
// aborts evaluation of the others. Fired triggers have their counter
// and LastTriggeredAt updated and persisted.
func (e *Engine) Evaluate(ctx context.Context, dev device.ConnectedDevice, metrics device.Metadata) []Fired {
	e.mu.Lock()
	defer e.mu.Unlock()

	now := e.clk.Now()
	var fired []Fired
	mutated := false

	for _, t := range e.sortedLocked() {
		if !t.IsActive {
			continue
		}
		if t.TriggerType != TypeActivity && t.TriggerType != TypeDeviceEvent {
			continue
		}
		if t.DeviceID == nil || *t.DeviceID != dev.ID {
			continue
		}

		sat, err := evaluateMetricCondition(t.Conditions, metrics)
		if err != nil {
			e.logger.Warn("skipping trigger with invalid condition",
				"trigger_id", t.ID,
				"name", t.TriggerName,
				"error", err,
			)
			continue
		}

		was := e.satisfied[t.ID]
		e.satisfied[t.ID] = sat

		// Edge-triggered: fire only on the unsatisfied → satisfied transition.
		if !sat || was {
			continue
		}

		t.TimesTriggered++
		t.LastTriggeredAt = &now
		mutated = true

		fired = append(fired, Fired{
			TriggerID:    t.ID,
			HabitID:      t.HabitID,
			ActionType:   t.ActionType,
			ActionConfig: t.ActionConfig,
		})
		e.logger.Info("trigger fired",
			"trigger_id", t.ID,
			"name", t.TriggerName,
			"device_id", dev.ID,
			"times_triggered", t.TimesTriggered,
		)
	}

	if mutated {
		if err := e.persistLocked(ctx); err != nil {
			e.logger.Error("persisting fired triggers", "error", err)
		}
	}
	return fired
}

// EvaluateTime fires active time triggers whose configured time of day
// matches the given instant ("HH:MM"). Matching is edge-triggered per
// minute: a trigger fires once when the minute is reached and not again
// until the minute has passed.
func (e *Engine) EvaluateTime(ctx context.Context, now clock.Clock) []Fired {
	e.mu.Lock()
	defer e.mu.Unlock()

	current := now.Now()
	hhmm := current.Format("15:04")
	var fired []Fired
	mutated := false

	for _, t := range e.sortedLocked() {
		if !t.IsActive || t.TriggerType != TypeTime {
			continue
		}
		if t.Conditions.TimeOfDay == "" {
			e.logger.Warn("skipping time trigger without time of day", "trigger_id", t.ID)
			continue
		}

		sat := t.Conditions.TimeOfDay == hhmm
		was := e.satisfied[t.ID]
		e.satisfied[t.ID] = sat
		if !sat || was {
			continue
		}

		t.TimesTriggered++
		ts := current
		t.LastTriggeredAt = &ts
		mutated = true

		fired = append(fired, Fired{
			TriggerID:    t.ID,
			HabitID:      t.HabitID,
			ActionType:   t.ActionType,
			ActionConfig: t.ActionConfig,
		})
	}

	if mutated {
		if err := e.persistLocked(ctx); err != nil {
			e.logger.Error("persisting fired time triggers", "error", err)
		}
	}
	return fired
}

// sortedLocked returns triggers in creation order. Callers must hold e.mu.
func (e *Engine) sortedLocked() []*HabitTrigger {
	out := make([]*HabitTrigger, 0, len(e.triggers))
	for _, t := range e.triggers {
		out = append(out, t)
	}
	sort.Slice(out, func(i, j int) bool {
		return out[i].CreatedAt.Before(out[j].CreatedAt)
	})
	return out
}

// evaluateMetricCondition applies a metric/operator/value rule.
// A missing metric is simply unsatisfied; an unknown operator or empty
// metric name is a condition error.
func evaluateMetricCondition(c Condition, metrics device.Metadata) (bool, error) {
	if c.Metric == "" {
		return false, fmt.Errorf("%w: missing metric name", ErrInvalidCondition)
	}

	raw, ok := metrics[c.Metric]
	if !ok {
		return false, nil
	}

	value, ok := toFloat(raw)
	if !ok {
		return false, fmt.Errorf("%w: metric %q is not numeric", ErrInvalidCondition, c.Metric)
	}

	switch c.Operator {
	case ">=":
		return value >= c.Value, nil
	case "<=":
		return value <= c.Value, nil
	case ">":
		return value > c.Value, nil
	case "<":
		return value < c.Value, nil
	case "==":
		return value == c.Value, nil
	case "!=":
		return value != c.Value, nil
	default:
		return false, fmt.Errorf("%w: unknown operator %q", ErrInvalidCondition, c.Operator)
	}
}

// toFloat coerces JSON-decoded numeric types.
func toFloat(v any) (float64, bool) {
	switch n := v.(type) {
	case float64:
		return n, true
	case float32:
		return float64(n), true
	case int:
		return float64(n), true
	case int64:
		return float64(n), true
	default:
		return 0, false
	}
}
