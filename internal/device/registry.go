package device

import (
	"context"
	"fmt"
	"sort"
	"sync"

	"github.com/pulsehabit/devicelink/internal/clock"
	"github.com/pulsehabit/devicelink/internal/store"
)

// Logger defines the logging interface used by the Registry.
// This allows different logging implementations to be used.
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

// Registry is the single source of truth for connected devices.
//
// It keeps the collection in memory and persists it as a JSON array on
// every mutation (save-on-mutate). All state transitions go through the
// registry, which is what lets it enforce the one-in-flight-sync
// invariant: BeginSync atomically moves a device from connected to
// syncing and rejects a second attempt while the first is in flight.
//
// All public methods are thread-safe.
type Registry struct {
	st      store.Store
	mu      sync.RWMutex
	devices map[string]*ConnectedDevice
	logger  Logger
	clk     clock.Clock
}

// NewRegistry creates a device registry backed by the given store.
func NewRegistry(st store.Store) *Registry {
	return &Registry{
		st:      st,
		devices: make(map[string]*ConnectedDevice),
		logger:  noopLogger{},
		clk:     clock.System{},
	}
}

// SetLogger sets the logger for the registry.
func (r *Registry) SetLogger(logger Logger) {
	r.logger = logger
}

// SetClock replaces the registry's time source. Intended for tests.
func (r *Registry) SetClock(clk clock.Clock) {
	r.clk = clk
}

// Load reads the persisted device collection into memory.
// This should be called once at engine startup.
func (r *Registry) Load(ctx context.Context) error {
	devices, err := store.LoadCollection[ConnectedDevice](ctx, r.st, store.KeyConnectedDevices)
	if err != nil {
		return fmt.Errorf("loading devices: %w", err)
	}

	r.mu.Lock()
	defer r.mu.Unlock()

	r.devices = make(map[string]*ConnectedDevice, len(devices))
	for i := range devices {
		d := devices[i]
		// A process restart cannot resume an in-flight sync.
		if d.ConnectionStatus == StatusSyncing {
			d.ConnectionStatus = StatusConnected
		}
		r.devices[d.ID] = d.DeepCopy()
	}

	r.logger.Info("device registry loaded", "count", len(devices))
	return nil
}

// persistLocked writes the current collection. Callers must hold r.mu.
func (r *Registry) persistLocked(ctx context.Context) error {
	devices := make([]ConnectedDevice, 0, len(r.devices))
	for _, d := range r.devices {
		devices = append(devices, *d.DeepCopy())
	}
	sort.Slice(devices, func(i, j int) bool {
		return devices[i].CreatedAt.Before(devices[j].CreatedAt)
	})
	return store.SaveCollection(ctx, r.st, store.KeyConnectedDevices, devices)
}

// Get retrieves a device by ID.
// Returns ErrDeviceNotFound if the device does not exist.
// The returned device is a deep copy; callers can safely modify it.
func (r *Registry) Get(_ context.Context, id string) (*ConnectedDevice, error) {
	r.mu.RLock()
	defer r.mu.RUnlock()

	d, ok := r.devices[id]
	if !ok {
		return nil, ErrDeviceNotFound
	}
	return d.DeepCopy(), nil
}

// List retrieves all devices ordered by creation time.
// The returned devices are deep copies; callers can safely modify them.
func (r *Registry) List(_ context.Context) []ConnectedDevice {
	r.mu.RLock()
	defer r.mu.RUnlock()

	devices := make([]ConnectedDevice, 0, len(r.devices))
	for _, d := range r.devices {
		devices = append(devices, *d.DeepCopy())
	}
	sort.Slice(devices, func(i, j int) bool {
		return devices[i].CreatedAt.Before(devices[j].CreatedAt)
	})
	return devices
}

// ListByStatus retrieves all devices with the given connection status.
func (r *Registry) ListByStatus(ctx context.Context, status ConnectionStatus) []ConnectedDevice {
	var out []ConnectedDevice
	for _, d := range r.List(ctx) {
		if d.ConnectionStatus == status {
			out = append(out, d)
		}
	}
	return out
}

// Create inserts a new device.
// It generates an ID if absent, validates, and persists the collection.
func (r *Registry) Create(ctx context.Context, d *ConnectedDevice) error {
	if d.ID == "" {
		d.ID = GenerateID()
	}
	now := r.clk.Now()
	if d.CreatedAt.IsZero() {
		d.CreatedAt = now
	}
	d.UpdatedAt = now

	if err := ValidateDevice(d); err != nil {
		return err
	}

	r.mu.Lock()
	defer r.mu.Unlock()

	if _, exists := r.devices[d.ID]; exists {
		return ErrDeviceExists
	}

	r.devices[d.ID] = d.DeepCopy()
	if err := r.persistLocked(ctx); err != nil {
		delete(r.devices, d.ID)
		return err
	}

	r.logger.Info("device registered", "id", d.ID, "name", d.DeviceName, "transport", d.Transport)
	return nil
}

// Update modifies an existing device's settings.
// Returns ErrDeviceNotFound if the device does not exist.
//
// ConnectionStatus and LastSyncAt are owned by the sync lifecycle and
// always kept from the registry's current record; a caller updating
// settings from a stale copy cannot reset an in-flight sync.
func (r *Registry) Update(ctx context.Context, d *ConnectedDevice) error {
	if err := ValidateDevice(d); err != nil {
		return err
	}
	d.UpdatedAt = r.clk.Now()

	r.mu.Lock()
	defer r.mu.Unlock()

	prev, ok := r.devices[d.ID]
	if !ok {
		return ErrDeviceNotFound
	}

	d.ConnectionStatus = prev.ConnectionStatus
	d.LastSyncAt = prev.LastSyncAt

	r.devices[d.ID] = d.DeepCopy()
	if err := r.persistLocked(ctx); err != nil {
		r.devices[d.ID] = prev
		return err
	}

	r.logger.Debug("device updated", "id", d.ID)
	return nil
}

// SetStatus transitions a device's connection status outside the sync
// lifecycle, used by the connection manager during pairing and teardown.
// StatusSyncing is rejected; only BeginSync may enter it.
func (r *Registry) SetStatus(ctx context.Context, id string, status ConnectionStatus) error {
	switch status {
	case StatusPending, StatusConnected, StatusDisconnected, StatusError:
	default:
		return fmt.Errorf("%w: connection status %q", ErrInvalidDevice, status)
	}

	r.mu.Lock()
	defer r.mu.Unlock()

	d, ok := r.devices[id]
	if !ok {
		return ErrDeviceNotFound
	}

	prevStatus := d.ConnectionStatus
	d.ConnectionStatus = status
	d.UpdatedAt = r.clk.Now()
	if err := r.persistLocked(ctx); err != nil {
		d.ConnectionStatus = prevStatus
		return err
	}

	r.logger.Debug("device status changed", "id", id, "from", prevStatus, "to", status)
	return nil
}

// Remove deletes a device by ID.
// Returns ErrDeviceNotFound if the device does not exist.
func (r *Registry) Remove(ctx context.Context, id string) error {
	r.mu.Lock()
	defer r.mu.Unlock()

	prev, ok := r.devices[id]
	if !ok {
		return ErrDeviceNotFound
	}

	delete(r.devices, id)
	if err := r.persistLocked(ctx); err != nil {
		r.devices[id] = prev
		return err
	}

	r.logger.Info("device removed", "id", id)
	return nil
}

// BeginSync atomically transitions a device from connected to syncing.
//
// This is the in-flight guard: a device already syncing yields
// ErrSyncInProgress, a device in any other state yields ErrNotConnected.
// The returned device is a deep copy of the record at transition time.
func (r *Registry) BeginSync(ctx context.Context, id string) (*ConnectedDevice, error) {
	r.mu.Lock()
	defer r.mu.Unlock()

	d, ok := r.devices[id]
	if !ok {
		return nil, ErrDeviceNotFound
	}

	switch d.ConnectionStatus {
	case StatusSyncing:
		return nil, ErrSyncInProgress
	case StatusConnected:
	default:
		return nil, fmt.Errorf("%w: status %q", ErrNotConnected, d.ConnectionStatus)
	}

	d.ConnectionStatus = StatusSyncing
	d.UpdatedAt = r.clk.Now()
	if err := r.persistLocked(ctx); err != nil {
		d.ConnectionStatus = StatusConnected
		return nil, err
	}

	return d.DeepCopy(), nil
}

// CompleteSync applies a finished sync's results: metadata is merged,
// LastSyncAt is set and the device returns to connected.
//
// If the device was disconnected mid-sync the registry lookup misses and
// ErrDeviceNotFound is returned; callers must discard the sync results.
func (r *Registry) CompleteSync(ctx context.Context, id string, metadata Metadata) error {
	r.mu.Lock()
	defer r.mu.Unlock()

	d, ok := r.devices[id]
	if !ok {
		return ErrDeviceNotFound
	}

	if d.DeviceMetadata == nil {
		d.DeviceMetadata = make(Metadata, len(metadata))
	}
	for k, v := range metadata {
		d.DeviceMetadata[k] = deepCopyValue(v)
	}

	now := r.clk.Now()
	d.LastSyncAt = &now
	d.ConnectionStatus = StatusConnected
	d.UpdatedAt = now

	if err := r.persistLocked(ctx); err != nil {
		return err
	}

	r.logger.Debug("sync results applied", "id", id, "metrics", len(metadata))
	return nil
}

// AbortSync returns a syncing device to connected without applying results.
// Used on transport failure; the scheduler retries on the next due cycle.
func (r *Registry) AbortSync(ctx context.Context, id string) error {
	r.mu.Lock()
	defer r.mu.Unlock()

	d, ok := r.devices[id]
	if !ok {
		// Device disconnected mid-sync; nothing to restore.
		return ErrDeviceNotFound
	}

	if d.ConnectionStatus == StatusSyncing {
		d.ConnectionStatus = StatusConnected
		d.UpdatedAt = r.clk.Now()
		return r.persistLocked(ctx)
	}
	return nil
}

// Count returns the number of registered devices.
func (r *Registry) Count() int {
	r.mu.RLock()
	defer r.mu.RUnlock()
	return len(r.devices)
}
