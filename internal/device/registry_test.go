package device

import (
	"context"
	"errors"
	"sync"
	"testing"
	"time"

	"github.com/pulsehabit/devicelink/internal/store"
)

func testDevice(id, name string) *ConnectedDevice {
	now := time.Now().UTC()
	return &ConnectedDevice{
		ID:                   id,
		DeviceType:           TypeWearable,
		DeviceName:           name,
		DisplayName:          "Test " + name,
		ConnectionStatus:     StatusConnected,
		Transport:            TransportSimulated,
		AutoSyncEnabled:      true,
		SyncFrequencyMinutes: 30,
		CreatedAt:            now,
		UpdatedAt:            now,
	}
}

func newTestRegistry(t *testing.T) *Registry {
	t.Helper()
	return NewRegistry(store.NewMemory())
}

func TestRegistry_Create(t *testing.T) {
	registry := newTestRegistry(t)
	ctx := context.Background()

	t.Run("creates and retrieves device", func(t *testing.T) {
		dev := testDevice("dev-1", "fitbit")
		if err := registry.Create(ctx, dev); err != nil {
			t.Fatalf("Create() error = %v", err)
		}

		got, err := registry.Get(ctx, "dev-1")
		if err != nil {
			t.Fatalf("Get() error = %v", err)
		}
		if got.DeviceName != "fitbit" {
			t.Errorf("DeviceName = %q, want %q", got.DeviceName, "fitbit")
		}
	})

	t.Run("rejects duplicate ID", func(t *testing.T) {
		dev := testDevice("dev-1", "garmin")
		if err := registry.Create(ctx, dev); !errors.Is(err, ErrDeviceExists) {
			t.Errorf("Create() error = %v, want ErrDeviceExists", err)
		}
	})

	t.Run("validates before creating", func(t *testing.T) {
		dev := testDevice("dev-2", "fitbit")
		dev.DeviceType = "toaster"
		if err := registry.Create(ctx, dev); !errors.Is(err, ErrInvalidDeviceType) {
			t.Errorf("Create() error = %v, want ErrInvalidDeviceType", err)
		}
	})
}

func TestRegistry_Get(t *testing.T) {
	registry := newTestRegistry(t)
	ctx := context.Background()

	dev := testDevice("dev-get", "fitbit")
	if err := registry.Create(ctx, dev); err != nil {
		t.Fatalf("Create() error = %v", err)
	}

	t.Run("returns copy, not shared state", func(t *testing.T) {
		got, err := registry.Get(ctx, "dev-get")
		if err != nil {
			t.Fatalf("Get() error = %v", err)
		}
		got.DisplayName = "mutated"

		again, _ := registry.Get(ctx, "dev-get")
		if again.DisplayName == "mutated" {
			t.Error("Get() returned shared state")
		}
	})

	t.Run("returns ErrDeviceNotFound for unknown ID", func(t *testing.T) {
		if _, err := registry.Get(ctx, "nope"); !errors.Is(err, ErrDeviceNotFound) {
			t.Errorf("Get() error = %v, want ErrDeviceNotFound", err)
		}
	})
}

func TestRegistry_Load(t *testing.T) {
	st := store.NewMemory()
	ctx := context.Background()

	first := NewRegistry(st)
	if err := first.Create(ctx, testDevice("dev-a", "fitbit")); err != nil {
		t.Fatalf("Create() error = %v", err)
	}
	syncing := testDevice("dev-b", "garmin")
	syncing.ConnectionStatus = StatusSyncing
	if err := first.Create(ctx, syncing); err != nil {
		t.Fatalf("Create() error = %v", err)
	}

	// A second registry over the same store simulates a restart.
	second := NewRegistry(st)
	if err := second.Load(ctx); err != nil {
		t.Fatalf("Load() error = %v", err)
	}

	if second.Count() != 2 {
		t.Fatalf("Count() = %d, want 2", second.Count())
	}

	// A device persisted mid-sync must come back as connected.
	got, err := second.Get(ctx, "dev-b")
	if err != nil {
		t.Fatalf("Get() error = %v", err)
	}
	if got.ConnectionStatus != StatusConnected {
		t.Errorf("ConnectionStatus = %q, want %q", got.ConnectionStatus, StatusConnected)
	}
}

func TestRegistry_BeginSync(t *testing.T) {
	registry := newTestRegistry(t)
	ctx := context.Background()

	if err := registry.Create(ctx, testDevice("dev-s", "fitbit")); err != nil {
		t.Fatalf("Create() error = %v", err)
	}

	t.Run("transitions connected to syncing", func(t *testing.T) {
		dev, err := registry.BeginSync(ctx, "dev-s")
		if err != nil {
			t.Fatalf("BeginSync() error = %v", err)
		}
		if dev.ConnectionStatus != StatusSyncing {
			t.Errorf("returned status = %q, want %q", dev.ConnectionStatus, StatusSyncing)
		}
	})

	t.Run("second BeginSync is rejected", func(t *testing.T) {
		if _, err := registry.BeginSync(ctx, "dev-s"); !errors.Is(err, ErrSyncInProgress) {
			t.Errorf("BeginSync() error = %v, want ErrSyncInProgress", err)
		}
	})

	t.Run("non-connected device is rejected", func(t *testing.T) {
		disc := testDevice("dev-d", "garmin")
		disc.ConnectionStatus = StatusDisconnected
		if err := registry.Create(ctx, disc); err != nil {
			t.Fatalf("Create() error = %v", err)
		}
		if _, err := registry.BeginSync(ctx, "dev-d"); !errors.Is(err, ErrNotConnected) {
			t.Errorf("BeginSync() error = %v, want ErrNotConnected", err)
		}
	})
}

func TestRegistry_CompleteSync(t *testing.T) {
	registry := newTestRegistry(t)
	ctx := context.Background()

	if err := registry.Create(ctx, testDevice("dev-c", "fitbit")); err != nil {
		t.Fatalf("Create() error = %v", err)
	}
	if _, err := registry.BeginSync(ctx, "dev-c"); err != nil {
		t.Fatalf("BeginSync() error = %v", err)
	}

	if err := registry.CompleteSync(ctx, "dev-c", Metadata{"steps": 8421.0}); err != nil {
		t.Fatalf("CompleteSync() error = %v", err)
	}

	got, _ := registry.Get(ctx, "dev-c")
	if got.ConnectionStatus != StatusConnected {
		t.Errorf("status = %q, want %q", got.ConnectionStatus, StatusConnected)
	}
	if got.LastSyncAt == nil {
		t.Error("LastSyncAt not set")
	}
	if got.DeviceMetadata["steps"] != 8421.0 {
		t.Errorf("metadata steps = %v, want 8421", got.DeviceMetadata["steps"])
	}

	t.Run("removed device yields ErrDeviceNotFound", func(t *testing.T) {
		if _, err := registry.BeginSync(ctx, "dev-c"); err != nil {
			t.Fatalf("BeginSync() error = %v", err)
		}
		if err := registry.Remove(ctx, "dev-c"); err != nil {
			t.Fatalf("Remove() error = %v", err)
		}
		err := registry.CompleteSync(ctx, "dev-c", Metadata{"steps": 1.0})
		if !errors.Is(err, ErrDeviceNotFound) {
			t.Errorf("CompleteSync() error = %v, want ErrDeviceNotFound", err)
		}
	})
}

func TestRegistry_AbortSync(t *testing.T) {
	registry := newTestRegistry(t)
	ctx := context.Background()

	if err := registry.Create(ctx, testDevice("dev-x", "fitbit")); err != nil {
		t.Fatalf("Create() error = %v", err)
	}
	if _, err := registry.BeginSync(ctx, "dev-x"); err != nil {
		t.Fatalf("BeginSync() error = %v", err)
	}

	if err := registry.AbortSync(ctx, "dev-x"); err != nil {
		t.Fatalf("AbortSync() error = %v", err)
	}

	got, _ := registry.Get(ctx, "dev-x")
	if got.ConnectionStatus != StatusConnected {
		t.Errorf("status = %q, want %q", got.ConnectionStatus, StatusConnected)
	}
	if got.LastSyncAt != nil {
		t.Error("LastSyncAt set on aborted sync")
	}
}

func TestRegistry_ConcurrentBeginSync(t *testing.T) {
	registry := newTestRegistry(t)
	ctx := context.Background()

	if err := registry.Create(ctx, testDevice("dev-race", "fitbit")); err != nil {
		t.Fatalf("Create() error = %v", err)
	}

	const attempts = 16
	var wg sync.WaitGroup
	var mu sync.Mutex
	won := 0

	for i := 0; i < attempts; i++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			if _, err := registry.BeginSync(ctx, "dev-race"); err == nil {
				mu.Lock()
				won++
				mu.Unlock()
			}
		}()
	}
	wg.Wait()

	if won != 1 {
		t.Errorf("BeginSync() won by %d goroutines, want exactly 1", won)
	}
}

func TestRegistry_Update(t *testing.T) {
	ctx := context.Background()

	t.Run("updates settings", func(t *testing.T) {
		registry := newTestRegistry(t)
		if err := registry.Create(ctx, testDevice("dev-1", "fitbit")); err != nil {
			t.Fatalf("Create() error = %v", err)
		}

		dev, err := registry.Get(ctx, "dev-1")
		if err != nil {
			t.Fatalf("Get() error = %v", err)
		}
		dev.DisplayName = "My Tracker"
		dev.SyncFrequencyMinutes = 15
		if err := registry.Update(ctx, dev); err != nil {
			t.Fatalf("Update() error = %v", err)
		}

		got, _ := registry.Get(ctx, "dev-1")
		if got.DisplayName != "My Tracker" || got.SyncFrequencyMinutes != 15 {
			t.Errorf("updated device = %+v", got)
		}
	})

	t.Run("stale copy cannot reset an in-flight sync", func(t *testing.T) {
		registry := newTestRegistry(t)
		if err := registry.Create(ctx, testDevice("dev-1", "fitbit")); err != nil {
			t.Fatalf("Create() error = %v", err)
		}

		// Snapshot taken while the device is still connected.
		stale, err := registry.Get(ctx, "dev-1")
		if err != nil {
			t.Fatalf("Get() error = %v", err)
		}

		if _, err := registry.BeginSync(ctx, "dev-1"); err != nil {
			t.Fatalf("BeginSync() error = %v", err)
		}

		stale.DisplayName = "Renamed mid-sync"
		if err := registry.Update(ctx, stale); err != nil {
			t.Fatalf("Update() error = %v", err)
		}

		// The settings land, the sync state does not move.
		got, _ := registry.Get(ctx, "dev-1")
		if got.DisplayName != "Renamed mid-sync" {
			t.Errorf("DisplayName = %q, want the patched name", got.DisplayName)
		}
		if got.ConnectionStatus != StatusSyncing {
			t.Errorf("ConnectionStatus = %q, want syncing", got.ConnectionStatus)
		}
		if _, err := registry.BeginSync(ctx, "dev-1"); !errors.Is(err, ErrSyncInProgress) {
			t.Errorf("second BeginSync() error = %v, want ErrSyncInProgress", err)
		}
	})

	t.Run("stale copy cannot clear the last sync time", func(t *testing.T) {
		registry := newTestRegistry(t)
		if err := registry.Create(ctx, testDevice("dev-1", "fitbit")); err != nil {
			t.Fatalf("Create() error = %v", err)
		}
		stale, _ := registry.Get(ctx, "dev-1")

		if _, err := registry.BeginSync(ctx, "dev-1"); err != nil {
			t.Fatalf("BeginSync() error = %v", err)
		}
		if err := registry.CompleteSync(ctx, "dev-1", nil); err != nil {
			t.Fatalf("CompleteSync() error = %v", err)
		}

		if err := registry.Update(ctx, stale); err != nil {
			t.Fatalf("Update() error = %v", err)
		}
		got, _ := registry.Get(ctx, "dev-1")
		if got.LastSyncAt == nil {
			t.Error("LastSyncAt cleared by stale update")
		}
	})

	t.Run("unknown device", func(t *testing.T) {
		registry := newTestRegistry(t)
		if err := registry.Update(ctx, testDevice("ghost", "fitbit")); !errors.Is(err, ErrDeviceNotFound) {
			t.Errorf("Update() error = %v, want ErrDeviceNotFound", err)
		}
	})
}

func TestRegistry_SetStatus(t *testing.T) {
	ctx := context.Background()
	registry := newTestRegistry(t)

	dev := testDevice("dev-1", "fitbit")
	dev.ConnectionStatus = StatusPending
	if err := registry.Create(ctx, dev); err != nil {
		t.Fatalf("Create() error = %v", err)
	}

	if err := registry.SetStatus(ctx, "dev-1", StatusConnected); err != nil {
		t.Fatalf("SetStatus() error = %v", err)
	}
	got, _ := registry.Get(ctx, "dev-1")
	if got.ConnectionStatus != StatusConnected {
		t.Errorf("ConnectionStatus = %q, want connected", got.ConnectionStatus)
	}

	t.Run("syncing is reserved for the sync lifecycle", func(t *testing.T) {
		if err := registry.SetStatus(ctx, "dev-1", StatusSyncing); !errors.Is(err, ErrInvalidDevice) {
			t.Errorf("SetStatus(syncing) error = %v, want ErrInvalidDevice", err)
		}
	})

	t.Run("unknown device", func(t *testing.T) {
		if err := registry.SetStatus(ctx, "ghost", StatusError); !errors.Is(err, ErrDeviceNotFound) {
			t.Errorf("SetStatus() error = %v, want ErrDeviceNotFound", err)
		}
	})
}

func TestRegistry_Remove(t *testing.T) {
	registry := newTestRegistry(t)
	ctx := context.Background()

	if err := registry.Create(ctx, testDevice("dev-r", "fitbit")); err != nil {
		t.Fatalf("Create() error = %v", err)
	}
	if err := registry.Remove(ctx, "dev-r"); err != nil {
		t.Fatalf("Remove() error = %v", err)
	}
	if _, err := registry.Get(ctx, "dev-r"); !errors.Is(err, ErrDeviceNotFound) {
		t.Errorf("Get() after Remove error = %v, want ErrDeviceNotFound", err)
	}

	if err := registry.Remove(ctx, "dev-r"); !errors.Is(err, ErrDeviceNotFound) {
		t.Errorf("second Remove() error = %v, want ErrDeviceNotFound", err)
	}
}

func TestRegistry_ListByStatus(t *testing.T) {
	registry := newTestRegistry(t)
	ctx := context.Background()

	connected := testDevice("dev-1", "fitbit")
	if err := registry.Create(ctx, connected); err != nil {
		t.Fatalf("Create() error = %v", err)
	}
	offline := testDevice("dev-2", "garmin")
	offline.ConnectionStatus = StatusDisconnected
	if err := registry.Create(ctx, offline); err != nil {
		t.Fatalf("Create() error = %v", err)
	}

	got := registry.ListByStatus(ctx, StatusConnected)
	if len(got) != 1 || got[0].ID != "dev-1" {
		t.Errorf("ListByStatus(connected) = %v, want [dev-1]", got)
	}
}
