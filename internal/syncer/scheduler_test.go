package syncer

import (
	"context"
	"errors"
	"sync"
	"testing"
	"time"

	"github.com/pulsehabit/devicelink/internal/clock"
	"github.com/pulsehabit/devicelink/internal/device"
	"github.com/pulsehabit/devicelink/internal/store"
)

// mockSource is a test implementation of Source.
type mockSource struct {
	mu      sync.Mutex
	payload device.SyncPayload
	err     error
	calls   int
	fetched map[string]int

	// onFetch runs inside Fetch, used to simulate mid-sync events.
	onFetch func(dev device.ConnectedDevice)

	// block holds Fetch open until released.
	block chan struct{}
}

func (m *mockSource) Fetch(_ context.Context, dev device.ConnectedDevice) (device.SyncPayload, error) {
	m.mu.Lock()
	m.calls++
	if m.fetched == nil {
		m.fetched = make(map[string]int)
	}
	m.fetched[dev.ID]++
	onFetch := m.onFetch
	block := m.block
	payload, err := m.payload, m.err
	m.mu.Unlock()

	if onFetch != nil {
		onFetch(dev)
	}
	if block != nil {
		<-block
	}
	return payload, err
}

func (m *mockSource) callCount() int {
	m.mu.Lock()
	defer m.mu.Unlock()
	return m.calls
}

func (m *mockSource) countFor(id string) int {
	m.mu.Lock()
	defer m.mu.Unlock()
	return m.fetched[id]
}

func testDevice(id string) *device.ConnectedDevice {
	now := time.Now().UTC()
	return &device.ConnectedDevice{
		ID:                   id,
		DeviceType:           device.TypeWearable,
		DeviceName:           "fitbit",
		ConnectionStatus:     device.StatusConnected,
		Transport:            device.TransportSimulated,
		AutoSyncEnabled:      true,
		SyncFrequencyMinutes: 30,
		CreatedAt:            now,
		UpdatedAt:            now,
	}
}

func newTestScheduler(t *testing.T, src Source) (*Scheduler, *device.Registry) {
	t.Helper()
	st := store.NewMemory()
	registry := device.NewRegistry(st)
	logs := NewLogStore(st, DefaultRetention)
	return NewScheduler(registry, logs, src), registry
}

func TestDue(t *testing.T) {
	now := time.Now().UTC()
	past := now.Add(-time.Hour)
	recent := now.Add(-time.Minute)

	tests := []struct {
		name   string
		mutate func(*device.ConnectedDevice)
		want   bool
	}{
		{"never synced", func(*device.ConnectedDevice) {}, true},
		{"interval elapsed", func(d *device.ConnectedDevice) { d.LastSyncAt = &past }, true},
		{"interval not elapsed", func(d *device.ConnectedDevice) { d.LastSyncAt = &recent }, false},
		{"auto-sync disabled", func(d *device.ConnectedDevice) { d.AutoSyncEnabled = false }, false},
		{"zero frequency is manual-only", func(d *device.ConnectedDevice) { d.SyncFrequencyMinutes = 0 }, false},
		{"disconnected", func(d *device.ConnectedDevice) { d.ConnectionStatus = device.StatusDisconnected }, false},
		{"already syncing", func(d *device.ConnectedDevice) { d.ConnectionStatus = device.StatusSyncing }, false},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			dev := testDevice("dev-1")
			tt.mutate(dev)
			if got := Due(*dev, now); got != tt.want {
				t.Errorf("Due() = %v, want %v", got, tt.want)
			}
		})
	}
}

func TestScheduler_SyncDevice(t *testing.T) {
	ctx := context.Background()

	t.Run("successful sync applies results and logs", func(t *testing.T) {
		src := &mockSource{payload: device.SyncPayload{
			Metrics:       device.Metadata{"steps": 7200.0},
			RecordsSynced: 12,
			HabitsTouched: []string{"habit-1"},
		}}
		sched, registry := newTestScheduler(t, src)
		if err := registry.Create(ctx, testDevice("dev-1")); err != nil {
			t.Fatalf("Create() error = %v", err)
		}

		entry, err := sched.SyncDevice(ctx, "dev-1", SyncManual)
		if err != nil {
			t.Fatalf("SyncDevice() error = %v", err)
		}
		if entry.Status != StatusSuccess {
			t.Errorf("Status = %q, want %q", entry.Status, StatusSuccess)
		}
		if entry.RecordsSynced != 12 {
			t.Errorf("RecordsSynced = %d, want 12", entry.RecordsSynced)
		}

		dev, _ := registry.Get(ctx, "dev-1")
		if dev.ConnectionStatus != device.StatusConnected {
			t.Errorf("status = %q, want connected", dev.ConnectionStatus)
		}
		if dev.DeviceMetadata["steps"] != 7200.0 {
			t.Errorf("metadata steps = %v, want 7200", dev.DeviceMetadata["steps"])
		}
		if dev.LastSyncAt == nil {
			t.Error("LastSyncAt not set")
		}
	})

	t.Run("transport failure records failed entry, device stays connected", func(t *testing.T) {
		src := &mockSource{err: errors.New("radio silence")}
		sched, registry := newTestScheduler(t, src)
		if err := registry.Create(ctx, testDevice("dev-1")); err != nil {
			t.Fatalf("Create() error = %v", err)
		}

		entry, err := sched.SyncDevice(ctx, "dev-1", SyncAuto)
		if err != nil {
			t.Fatalf("SyncDevice() error = %v", err)
		}
		if entry.Status != StatusFailed {
			t.Errorf("Status = %q, want %q", entry.Status, StatusFailed)
		}
		if entry.ErrorMessage == nil || *entry.ErrorMessage != "radio silence" {
			t.Errorf("ErrorMessage = %v, want radio silence", entry.ErrorMessage)
		}

		dev, _ := registry.Get(ctx, "dev-1")
		if dev.ConnectionStatus != device.StatusConnected {
			t.Errorf("status = %q, want connected for retry", dev.ConnectionStatus)
		}
		if dev.LastSyncAt != nil {
			t.Error("LastSyncAt set on failed sync")
		}
	})

	t.Run("device removed mid-sync discards results", func(t *testing.T) {
		sched, registry := newTestScheduler(t, nil)
		src := &mockSource{
			payload: device.SyncPayload{Metrics: device.Metadata{"steps": 1.0}, RecordsSynced: 3},
			onFetch: func(dev device.ConnectedDevice) {
				if err := registry.Remove(ctx, dev.ID); err != nil {
					t.Errorf("Remove() error = %v", err)
				}
			},
		}
		sched.source = src
		if err := registry.Create(ctx, testDevice("dev-1")); err != nil {
			t.Fatalf("Create() error = %v", err)
		}

		entry, err := sched.SyncDevice(ctx, "dev-1", SyncManual)
		if err != nil {
			t.Fatalf("SyncDevice() error = %v", err)
		}
		if entry.Status != StatusFailed {
			t.Errorf("Status = %q, want failed when device removed mid-sync", entry.Status)
		}
		if entry.ErrorMessage == nil || *entry.ErrorMessage != "device removed during sync" {
			t.Errorf("ErrorMessage = %v, want removal notice", entry.ErrorMessage)
		}
	})

	t.Run("overlapping sync is rejected", func(t *testing.T) {
		release := make(chan struct{})
		src := &mockSource{block: release}
		sched, registry := newTestScheduler(t, src)
		if err := registry.Create(ctx, testDevice("dev-1")); err != nil {
			t.Fatalf("Create() error = %v", err)
		}

		done := make(chan struct{})
		go func() {
			defer close(done)
			if _, err := sched.SyncDevice(ctx, "dev-1", SyncAuto); err != nil {
				t.Errorf("first SyncDevice() error = %v", err)
			}
		}()

		// Wait for the first sync to take the in-flight slot.
		deadline := time.After(2 * time.Second)
		for {
			dev, _ := registry.Get(ctx, "dev-1")
			if dev.ConnectionStatus == device.StatusSyncing {
				break
			}
			select {
			case <-deadline:
				t.Fatal("first sync never started")
			case <-time.After(5 * time.Millisecond):
			}
		}

		if _, err := sched.SyncDevice(ctx, "dev-1", SyncManual); !errors.Is(err, device.ErrSyncInProgress) {
			t.Errorf("second SyncDevice() error = %v, want ErrSyncInProgress", err)
		}

		close(release)
		<-done

		if src.callCount() != 1 {
			t.Errorf("Fetch called %d times, want 1", src.callCount())
		}
	})

	t.Run("unknown device", func(t *testing.T) {
		sched, _ := newTestScheduler(t, &mockSource{})
		if _, err := sched.SyncDevice(ctx, "ghost", SyncManual); !errors.Is(err, device.ErrDeviceNotFound) {
			t.Errorf("SyncDevice() error = %v, want ErrDeviceNotFound", err)
		}
	})

	t.Run("onSynced hook fires with refreshed device", func(t *testing.T) {
		src := &mockSource{payload: device.SyncPayload{Metrics: device.Metadata{"steps": 5.0}}}
		sched, registry := newTestScheduler(t, src)
		if err := registry.Create(ctx, testDevice("dev-1")); err != nil {
			t.Fatalf("Create() error = %v", err)
		}

		var hooked *device.ConnectedDevice
		sched.SetOnSynced(func(dev device.ConnectedDevice, _ device.SyncPayload) {
			hooked = &dev
		})

		if _, err := sched.SyncDevice(ctx, "dev-1", SyncManual); err != nil {
			t.Fatalf("SyncDevice() error = %v", err)
		}
		if hooked == nil {
			t.Fatal("onSynced not invoked")
		}
		if hooked.DeviceMetadata["steps"] != 5.0 {
			t.Error("onSynced received stale device record")
		}
	})
}

func TestScheduler_SyncAll(t *testing.T) {
	ctx := context.Background()
	src := &mockSource{payload: device.SyncPayload{RecordsSynced: 1}}
	sched, registry := newTestScheduler(t, src)

	for _, id := range []string{"dev-1", "dev-2", "dev-3"} {
		if err := registry.Create(ctx, testDevice(id)); err != nil {
			t.Fatalf("Create() error = %v", err)
		}
	}
	offline := testDevice("dev-4")
	offline.ConnectionStatus = device.StatusDisconnected
	if err := registry.Create(ctx, offline); err != nil {
		t.Fatalf("Create() error = %v", err)
	}

	summary := sched.SyncAll(ctx, SyncManual)
	if summary.Synced != 3 {
		t.Errorf("Synced = %d, want 3", summary.Synced)
	}
	if summary.Failed != 0 || summary.Skipped != 0 {
		t.Errorf("Failed/Skipped = %d/%d, want 0/0", summary.Failed, summary.Skipped)
	}
	if src.callCount() != 3 {
		t.Errorf("Fetch called %d times, want 3", src.callCount())
	}
}

// waitFor polls until cond holds or the deadline passes.
func waitFor(t *testing.T, cond func() bool, msg string) {
	t.Helper()
	deadline := time.Now().Add(2 * time.Second)
	for time.Now().Before(deadline) {
		if cond() {
			return
		}
		time.Sleep(time.Millisecond)
	}
	t.Fatal(msg)
}

func TestScheduler_Run(t *testing.T) {
	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	src := &mockSource{payload: device.SyncPayload{RecordsSynced: 1}}
	sched, registry := newTestScheduler(t, src)

	// dev-due has never synced; dev-recent synced a minute ago and is
	// well inside its 30 minute frequency.
	if err := registry.Create(ctx, testDevice("dev-due")); err != nil {
		t.Fatalf("Create() error = %v", err)
	}
	recent := time.Now().UTC().Add(-time.Minute)
	notDue := testDevice("dev-recent")
	notDue.LastSyncAt = &recent
	if err := registry.Create(ctx, notDue); err != nil {
		t.Fatalf("Create() error = %v", err)
	}

	ticker := clock.NewManual(time.Now().UTC())
	done := make(chan struct{})
	go func() {
		sched.Run(ctx, ticker)
		close(done)
	}()

	ticker.Tick()

	waitFor(t, func() bool { return src.countFor("dev-due") == 1 },
		"due device not synced after tick")
	if got := src.countFor("dev-recent"); got != 0 {
		t.Errorf("not-due device fetched %d times, want 0", got)
	}

	// Wait for the sync to finish, then tick again: the device just
	// synced, so nothing new is dispatched.
	waitFor(t, func() bool {
		dev, err := registry.Get(ctx, "dev-due")
		return err == nil && dev.LastSyncAt != nil && dev.ConnectionStatus == device.StatusConnected
	}, "due device did not return to connected")

	ticker.Tick()
	time.Sleep(50 * time.Millisecond)
	if got := src.countFor("dev-due"); got != 1 {
		t.Errorf("freshly synced device fetched %d times, want 1", got)
	}

	cancel()
	select {
	case <-done:
	case <-time.After(2 * time.Second):
		t.Fatal("scheduler did not stop on context cancellation")
	}
}
