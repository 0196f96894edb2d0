package engine

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"time"

	"golang.org/x/sync/errgroup"

	"github.com/pulsehabit/devicelink/internal/assist"
	"github.com/pulsehabit/devicelink/internal/automation"
	"github.com/pulsehabit/devicelink/internal/capability"
	"github.com/pulsehabit/devicelink/internal/clock"
	"github.com/pulsehabit/devicelink/internal/connection"
	"github.com/pulsehabit/devicelink/internal/device"
	"github.com/pulsehabit/devicelink/internal/geofence"
	"github.com/pulsehabit/devicelink/internal/infrastructure/config"
	"github.com/pulsehabit/devicelink/internal/infrastructure/mqtt"
	"github.com/pulsehabit/devicelink/internal/offline"
	"github.com/pulsehabit/devicelink/internal/store"
	"github.com/pulsehabit/devicelink/internal/syncer"
	"github.com/pulsehabit/devicelink/internal/trigger"
)

// timeTriggerInterval is how often time-of-day triggers are checked.
// Must stay under a minute so no "HH:MM" match is skipped.
const timeTriggerInterval = 30 * time.Second

// dispatchTimeout bounds the work done in response to a single sync or
// position sample.
const dispatchTimeout = 15 * time.Second

// EventHub is the interface for broadcasting engine events to attached
// clients (the WebSocket hub).
type EventHub interface {
	Broadcast(channel string, payload any)
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

// Engine owns every collection and wires the sync pipeline together:
// registry, connection manager, scheduler, trigger/geofence/automation
// engines, the offline queue and the optional assist client.
//
// The broker doubles as the connectivity signal. Every offline→online
// transition starts exactly one drain of the offline queue.
type Engine struct {
	Registry    *device.Registry
	Logs        *syncer.LogStore
	Manager     *connection.Manager
	Scheduler   *syncer.Scheduler
	Queue       *offline.Queue
	Triggers    *trigger.Engine
	Fences      *geofence.Engine
	Automations *automation.Engine
	Assist      *assist.Client

	cfg    *config.Config
	broker *mqtt.Client
	topics mqtt.Topics
	hub    EventHub
	logger Logger
	clk    clock.Clock
}

// New assembles the engine from its infrastructure pieces.
//
// Parameters:
//   - cfg: Loaded configuration
//   - st: Collection store (SQLite in production, memory in tests)
//   - broker: MQTT client, or nil when the broker is unreachable at
//     startup; network pairing and command publishing then degrade
//   - caps: Host capability probe for the bluetooth transport
func New(cfg *config.Config, st store.Store, broker *mqtt.Client, caps capability.Provider) *Engine {
	// Shared by all transports, which fetch from concurrent sync goroutines.
	rnd := connection.NewLockedRand(time.Now().UnixNano())

	registry := device.NewRegistry(st)
	logs := syncer.NewLogStore(st, cfg.Sync.LogRetention)

	transports := []connection.Transport{
		connection.NewSimulated(rnd, 0),
		connection.NewBluetooth(caps, rnd, 0),
	}
	if broker != nil {
		transports = append(transports, connection.NewNetwork(broker, rnd, 0))
	}
	manager := connection.NewManager(registry, logs, transports...)

	scheduler := syncer.NewScheduler(registry, logs, manager)
	scheduler.SetMaxConcurrent(cfg.Sync.MaxConcurrent)

	var pub automation.Publisher
	if broker != nil {
		pub = broker
	}

	e := &Engine{
		Registry:  registry,
		Logs:      logs,
		Manager:   manager,
		Scheduler: scheduler,
		Triggers:  trigger.NewEngine(st),
		Fences:    geofence.NewEngine(st),
		Assist:    assist.New(cfg.Assist.BaseURL, time.Duration(cfg.Assist.TimeoutSeconds)*time.Second),
		cfg:       cfg,
		broker:    broker,
		logger:    noopLogger{},
		clk:       clock.System{},
	}
	e.Automations = automation.NewEngine(st, pub, e)
	e.Queue = offline.NewQueue(st, e)

	// Device removal cascades to the records it owns.
	manager.AddCascade(e.Triggers)
	manager.AddCascade(e.Automations)

	scheduler.SetOnSynced(e.handleSynced)

	if broker != nil {
		broker.SetOnConnect(e.handleOnline)
		broker.SetOnDisconnect(e.handleOffline)
	}

	return e
}

// SetLogger sets the logger for the engine and its components.
func (e *Engine) SetLogger(logger Logger) {
	e.logger = logger
	e.Registry.SetLogger(logger)
	e.Manager.SetLogger(logger)
	e.Scheduler.SetLogger(logger)
	e.Queue.SetLogger(logger)
	e.Triggers.SetLogger(logger)
	e.Fences.SetLogger(logger)
	e.Automations.SetLogger(logger)
	e.Assist.SetLogger(logger)
}

// SetClock replaces the engine's time source. Intended for tests.
func (e *Engine) SetClock(clk clock.Clock) {
	e.clk = clk
}

// SetEventHub attaches a broadcast hub for engine events. May be nil.
func (e *Engine) SetEventHub(hub EventHub) {
	e.hub = hub
	e.Automations.SetEventHub(hub)
}

// SetHistoryWriter attaches the optional time-series history sink.
func (e *Engine) SetHistoryWriter(w syncer.HistoryWriter) {
	e.Scheduler.SetHistoryWriter(w)
}

// Load reads every persisted collection into memory and seeds demo
// records on a fresh store.
func (e *Engine) Load(ctx context.Context) error {
	loaders := []struct {
		name string
		fn   func(context.Context) error
	}{
		{"devices", e.Registry.Load},
		{"sync logs", e.Logs.Load},
		{"offline queue", e.Queue.Load},
		{"triggers", e.Triggers.Load},
		{"geofences", e.Fences.Load},
		{"automations", e.Automations.Load},
	}
	for _, l := range loaders {
		if err := l.fn(ctx); err != nil {
			return fmt.Errorf("loading %s: %w", l.name, err)
		}
	}

	if e.Registry.Count() == 0 {
		if err := e.seedDemo(ctx); err != nil {
			return fmt.Errorf("seeding demo data: %w", err)
		}
	}
	return nil
}

// Run drives the periodic loops until ctx is cancelled: the auto-sync
// scheduler and the time-of-day trigger check.
func (e *Engine) Run(ctx context.Context) error {
	g, ctx := errgroup.WithContext(ctx)

	g.Go(func() error {
		ticker := clock.NewTicker(time.Duration(e.cfg.Sync.TickSeconds) * time.Second)
		defer ticker.Stop()
		e.Scheduler.Run(ctx, ticker)
		return nil
	})

	g.Go(func() error {
		ticker := clock.NewTicker(timeTriggerInterval)
		defer ticker.Stop()
		for {
			select {
			case <-ctx.Done():
				return nil
			case <-ticker.C():
				for _, f := range e.Triggers.EvaluateTime(ctx, e.clk) {
					e.dispatchTrigger(ctx, f)
				}
			}
		}
	})

	return g.Wait()
}

// handleSynced runs after every successful sync: evaluate the device's
// triggers against the fresh metrics and dispatch whatever fired.
func (e *Engine) handleSynced(dev device.ConnectedDevice, payload device.SyncPayload) {
	ctx, cancel := context.WithTimeout(context.Background(), dispatchTimeout)
	defer cancel()

	if e.hub != nil {
		e.hub.Broadcast("sync.completed", map[string]any{
			"device_id":      dev.ID,
			"device_name":    dev.DeviceName,
			"records_synced": payload.RecordsSynced,
		})
	}

	for _, f := range e.Triggers.Evaluate(ctx, dev, payload.Metrics) {
		e.dispatchTrigger(ctx, f)
	}
}

// dispatchTrigger turns one fired trigger into a habit action and, for
// habit completions, fans out to the automation engine.
func (e *Engine) dispatchTrigger(ctx context.Context, f trigger.Fired) {
	action := map[string]any{
		"actionType": string(f.ActionType),
		"triggerId":  f.TriggerID,
	}
	if f.HabitID != nil {
		action["habitId"] = *f.HabitID
	}
	for k, v := range f.ActionConfig {
		action[k] = v
	}

	e.emitAction(ctx, action)

	if e.hub != nil {
		e.hub.Broadcast("trigger.fired", action)
	}

	if f.ActionType == trigger.ActionCompleteHabit && f.HabitID != nil {
		if err := e.Automations.HandleEvent(ctx, automation.EventHabitComplete, *f.HabitID); err != nil {
			e.logger.Warn("automations for habit completion", "habit_id", *f.HabitID, "error", err)
		}
	}
}

// UpdatePosition feeds a location sample through the geofence engine
// and dispatches any boundary crossings.
func (e *Engine) UpdatePosition(ctx context.Context, pos geofence.Position) []geofence.FiredFence {
	fired := e.Fences.Evaluate(ctx, pos)
	for _, f := range fired {
		action := map[string]any{
			"actionType": "geofence_" + string(f.Transition),
			"fenceId":    f.FenceID,
			"fenceName":  f.Name,
			"habitIds":   f.LinkedHabits,
		}
		e.emitAction(ctx, action)
		if e.hub != nil {
			e.hub.Broadcast("geofence.crossed", action)
		}
	}
	return fired
}

// HandleVoiceCommand interprets a raw voice command and, when it
// resolves to a confident habit completion, dispatches it like any
// other trigger action.
func (e *Engine) HandleVoiceCommand(ctx context.Context, command string, availableHabits []string) assist.ParsedCommand {
	parsed := e.Assist.ParseVoiceCommand(ctx, command, availableHabits)
	e.logger.Info("voice command parsed", "command", command, "result", parsed.String())

	if parsed.Intent == "complete_habit" && parsed.HabitName != "" {
		e.emitAction(ctx, map[string]any{
			"actionType": "complete_habit",
			"habitName":  parsed.HabitName,
			"source":     "voice",
		})
	}
	return parsed
}

// emitAction delivers a habit action to the backend collaborator over
// the event bus, or queues it when the bus is unreachable.
func (e *Engine) emitAction(ctx context.Context, action map[string]any) {
	if e.broker != nil && e.broker.IsConnected() {
		err := e.publishAction(action)
		if err == nil {
			return
		}
		e.logger.Warn("publishing habit action, queuing instead", "error", err)
	}

	if err := e.Queue.Enqueue(ctx, action); err != nil {
		e.logger.Error("queuing habit action", "error", err)
	}
}

func (e *Engine) publishAction(action map[string]any) error {
	payload, err := json.Marshal(action)
	if err != nil {
		return fmt.Errorf("encoding action: %w", err)
	}
	return e.broker.Publish(e.topics.Event("habit.action"), payload, 1, false)
}

// Replay delivers one queued action. Implements offline.Replayer; a
// failure leaves the item at the head of the queue for the next drain.
func (e *Engine) Replay(_ context.Context, item offline.QueueItem) error {
	if e.broker == nil || !e.broker.IsConnected() {
		return mqtt.ErrNotConnected
	}
	return e.publishAction(item.Action)
}

// DeviceName resolves a device ID to its catalog name. Implements
// automation.DeviceLookup.
func (e *Engine) DeviceName(ctx context.Context, deviceID string) (string, error) {
	dev, err := e.Registry.Get(ctx, deviceID)
	if err != nil {
		return "", err
	}
	return dev.DeviceName, nil
}

// handleOnline runs on every broker connect, including reconnects.
// It drains the offline queue once; a concurrent drain already running
// is left alone.
func (e *Engine) handleOnline() {
	e.logger.Info("broker online, draining offline queue", "queued", e.Queue.Len())
	if e.hub != nil {
		e.hub.Broadcast("system.online", map[string]any{"queued": e.Queue.Len()})
	}

	go func() {
		ctx, cancel := context.WithTimeout(context.Background(), time.Minute)
		defer cancel()

		err := e.Queue.Drain(ctx)
		switch {
		case err == nil:
		case errors.Is(err, offline.ErrDrainInProgress):
			e.logger.Debug("offline drain already running")
		default:
			e.logger.Warn("offline drain stopped", "error", err, "remaining", e.Queue.Len())
		}
	}()
}

func (e *Engine) handleOffline(err error) {
	e.logger.Warn("broker offline", "error", err)
	if e.hub != nil {
		e.hub.Broadcast("system.offline", map[string]any{})
	}
}
