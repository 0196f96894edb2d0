package connection

import (
	"context"
	"errors"
	"fmt"

	"github.com/pulsehabit/devicelink/internal/clock"
	"github.com/pulsehabit/devicelink/internal/device"
	"github.com/pulsehabit/devicelink/internal/syncer"
)

// CascadeRemover deletes the records owned by a device when it is
// disconnected. Implemented by the trigger and automation engines.
type CascadeRemover interface {
	// RemoveByDevice deletes all records referencing the device.
	// Returns how many records were removed.
	RemoveByDevice(ctx context.Context, deviceID string) (int, error)
}

// Logger defines the logging interface used by the Manager.
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

// Manager establishes and tears down device connections.
//
// Connect attempts the requested transport first and falls back to the
// generic simulated transport on capability absence or transport-specific
// failure, so the caller always receives a usable device record. Only an
// explicit pairing refusal (ErrConnectionDeclined) surfaces as an error.
//
// The Manager also implements syncer.Source, routing each fetch to the
// transport the device was paired over.
type Manager struct {
	registry   *device.Registry
	transports map[device.Transport]Transport
	logs       *syncer.LogStore
	cascades   []CascadeRemover
	logger     Logger
	clk        clock.Clock
}

// NewManager creates a connection manager.
//
// Parameters:
//   - registry: Device registry to insert/remove records
//   - logs: Sync log store for the initial zero-record connection entry
//   - transports: Available transports; the simulated transport must be present
func NewManager(registry *device.Registry, logs *syncer.LogStore, transports ...Transport) *Manager {
	byKind := make(map[device.Transport]Transport, len(transports))
	for _, t := range transports {
		byKind[t.Kind()] = t
	}
	return &Manager{
		registry:   registry,
		transports: byKind,
		logs:       logs,
		logger:     noopLogger{},
		clk:        clock.System{},
	}
}

// SetLogger sets the logger for the manager.
func (m *Manager) SetLogger(logger Logger) {
	m.logger = logger
}

// SetClock replaces the manager's time source. Intended for tests.
func (m *Manager) SetClock(clk clock.Clock) {
	m.clk = clk
}

// AddCascade registers a store whose records are deleted with a device.
func (m *Manager) AddCascade(c CascadeRemover) {
	m.cascades = append(m.cascades, c)
}

// Connect pairs a catalog device and registers it.
//
// The record is created pending, paired over the requested transport
// (falling back to simulated on expected failures), moved to connected,
// and an initial zero-record sync log entry is appended.
//
// Parameters:
//   - ctx: Context bounding the pairing attempt
//   - deviceName: Catalog key (e.g. "fitbit")
//   - hint: Transport to try first; empty uses the catalog preference
//
// Returns:
//   - *device.ConnectedDevice: The registered, connected device
//   - error: device.ErrUnknownDevice for unknown names,
//     ErrConnectionDeclined when pairing was refused, or a context error
func (m *Manager) Connect(ctx context.Context, deviceName string, hint device.Transport) (*device.ConnectedDevice, error) {
	entry, err := device.Catalog(deviceName)
	if err != nil {
		return nil, err
	}

	preferred := hint
	if preferred == "" {
		preferred = entry.PreferredTransport
	}

	dev := &device.ConnectedDevice{
		ID:                   device.GenerateID(),
		DeviceType:           entry.Type,
		DeviceName:           entry.Name,
		DisplayName:          entry.DisplayName,
		ConnectionStatus:     device.StatusPending,
		Transport:            preferred,
		DeviceMetadata:       device.Metadata{},
		AutoSyncEnabled:      entry.DefaultSyncFrequencyMinutes > 0,
		SyncFrequencyMinutes: entry.DefaultSyncFrequencyMinutes,
	}
	if err := m.registry.Create(ctx, dev); err != nil {
		return nil, err
	}

	result, kind, pairErr := m.pairWithFallback(ctx, entry, preferred)
	if pairErr != nil {
		if errors.Is(pairErr, ErrConnectionDeclined) {
			// Refused pairings leave no record behind.
			if rmErr := m.registry.Remove(ctx, dev.ID); rmErr != nil {
				m.logger.Error("removing declined device", "device_id", dev.ID, "error", rmErr)
			}
			return nil, pairErr
		}
		// Context cancellation mid-pairing: the record stays in error
		// state so the caller can retry or disconnect it explicitly.
		if stErr := m.registry.SetStatus(ctx, dev.ID, device.StatusError); stErr != nil {
			m.logger.Error("marking device errored", "device_id", dev.ID, "error", stErr)
		}
		return nil, pairErr
	}

	dev.Transport = kind
	dev.ShortRangeAddress = result.ShortRangeAddress
	dev.NetworkID = result.NetworkID
	if err := m.registry.Update(ctx, dev); err != nil {
		return nil, err
	}
	if err := m.registry.SetStatus(ctx, dev.ID, device.StatusConnected); err != nil {
		return nil, err
	}
	dev.ConnectionStatus = device.StatusConnected

	// The initial connection shows up in history as a zero-record sync.
	now := m.clk.Now()
	if err := m.logs.Append(ctx, syncer.SyncLogEntry{
		ID:         syncer.GenerateID(),
		DeviceID:   dev.ID,
		DeviceName: dev.DeviceName,
		SyncType:   syncTypeFor(kind),
		Status:     syncer.StatusSuccess,
		SyncedAt:   now,
	}); err != nil {
		m.logger.Error("recording initial connection", "device_id", dev.ID, "error", err)
	}

	m.logger.Info("device connected",
		"device_id", dev.ID,
		"name", dev.DeviceName,
		"transport", kind,
	)
	return dev.DeepCopy(), nil
}

// pairWithFallback tries the preferred transport, then the simulated one.
//
// Capability absence, an empty scan/discovery, and transport-specific
// failures are expected conditions answered by fallback. Only an
// explicit refusal or context cancellation propagates.
func (m *Manager) pairWithFallback(ctx context.Context, entry device.CatalogEntry, preferred device.Transport) (PairResult, device.Transport, error) {
	if t, ok := m.transports[preferred]; ok && preferred != device.TransportSimulated {
		result, err := t.Pair(ctx, entry)
		if err == nil {
			return result, preferred, nil
		}
		if errors.Is(err, ErrConnectionDeclined) || ctx.Err() != nil {
			return PairResult{}, preferred, err
		}
		m.logger.Info("transport unavailable, using simulated fallback",
			"name", entry.Name,
			"transport", preferred,
			"reason", err,
		)
	}

	sim, ok := m.transports[device.TransportSimulated]
	if !ok {
		return PairResult{}, preferred, fmt.Errorf("%w: %q and no simulated fallback", ErrUnknownTransport, preferred)
	}
	result, err := sim.Pair(ctx, entry)
	return result, device.TransportSimulated, err
}

// Disconnect removes a device and cascades deletion of its triggers and
// automations. A sync in flight for the device keeps running against the
// transport, but its results are discarded when CompleteSync misses.
func (m *Manager) Disconnect(ctx context.Context, deviceID string) error {
	dev, err := m.registry.Get(ctx, deviceID)
	if err != nil {
		return err
	}

	if err := m.registry.Remove(ctx, deviceID); err != nil {
		return err
	}

	for _, cascade := range m.cascades {
		removed, cascadeErr := cascade.RemoveByDevice(ctx, deviceID)
		if cascadeErr != nil {
			m.logger.Error("cascade delete failed", "device_id", deviceID, "error", cascadeErr)
			continue
		}
		if removed > 0 {
			m.logger.Debug("cascade delete", "device_id", deviceID, "removed", removed)
		}
	}

	m.logger.Info("device disconnected", "device_id", deviceID, "name", dev.DeviceName)
	return nil
}

// Fetch routes a sync fetch to the device's paired transport.
// It implements syncer.Source.
func (m *Manager) Fetch(ctx context.Context, dev device.ConnectedDevice) (device.SyncPayload, error) {
	t, ok := m.transports[dev.Transport]
	if !ok {
		return device.SyncPayload{}, fmt.Errorf("%w: %q", ErrUnknownTransport, dev.Transport)
	}
	return t.Fetch(ctx, dev)
}

// syncTypeFor maps a transport to the sync type recorded for its
// initial connection entry.
func syncTypeFor(kind device.Transport) syncer.SyncType {
	switch kind {
	case device.TransportBluetooth:
		return syncer.SyncBluetooth
	case device.TransportNetwork:
		return syncer.SyncWifi
	default:
		return syncer.SyncManual
	}
}
