package connection

import (
	"context"
	"errors"
	"sync"
	"testing"

	"github.com/pulsehabit/devicelink/internal/device"
	"github.com/pulsehabit/devicelink/internal/store"
	"github.com/pulsehabit/devicelink/internal/syncer"
)

// mockTransport is a test implementation of Transport.
type mockTransport struct {
	kind    device.Transport
	pairErr error
	result  PairResult
	payload device.SyncPayload

	mu        sync.Mutex
	pairCalls int
	fetches   int
}

func (m *mockTransport) Kind() device.Transport { return m.kind }

func (m *mockTransport) Pair(_ context.Context, _ device.CatalogEntry) (PairResult, error) {
	m.mu.Lock()
	m.pairCalls++
	m.mu.Unlock()
	if m.pairErr != nil {
		return PairResult{}, m.pairErr
	}
	return m.result, nil
}

func (m *mockTransport) Fetch(_ context.Context, _ device.ConnectedDevice) (device.SyncPayload, error) {
	m.mu.Lock()
	m.fetches++
	m.mu.Unlock()
	return m.payload, nil
}

// mockCascade is a test implementation of CascadeRemover.
type mockCascade struct {
	removedFor []string
	count      int
}

func (m *mockCascade) RemoveByDevice(_ context.Context, deviceID string) (int, error) {
	m.removedFor = append(m.removedFor, deviceID)
	return m.count, nil
}

func newTestManager(t *testing.T, transports ...Transport) (*Manager, *device.Registry, *syncer.LogStore) {
	t.Helper()
	st := store.NewMemory()
	registry := device.NewRegistry(st)
	logs := syncer.NewLogStore(st, syncer.DefaultRetention)
	return NewManager(registry, logs, transports...), registry, logs
}

func TestManager_Connect(t *testing.T) {
	ctx := context.Background()

	t.Run("pairs over preferred transport", func(t *testing.T) {
		addr := "AA:BB:CC:DD:EE:FF"
		bt := &mockTransport{kind: device.TransportBluetooth, result: PairResult{ShortRangeAddress: &addr}}
		sim := &mockTransport{kind: device.TransportSimulated}
		mgr, registry, logs := newTestManager(t, bt, sim)

		dev, err := mgr.Connect(ctx, "fitbit", "")
		if err != nil {
			t.Fatalf("Connect() error = %v", err)
		}
		if dev.Transport != device.TransportBluetooth {
			t.Errorf("Transport = %q, want bluetooth", dev.Transport)
		}
		if dev.ConnectionStatus != device.StatusConnected {
			t.Errorf("status = %q, want connected", dev.ConnectionStatus)
		}
		if dev.ShortRangeAddress == nil || *dev.ShortRangeAddress != addr {
			t.Errorf("ShortRangeAddress = %v, want %s", dev.ShortRangeAddress, addr)
		}
		if registry.Count() != 1 {
			t.Errorf("registry Count() = %d, want 1", registry.Count())
		}

		// Initial connection appears as a zero-record sync entry.
		entries := logs.ListByDevice(ctx, dev.ID)
		if len(entries) != 1 {
			t.Fatalf("log entries = %d, want 1", len(entries))
		}
		if entries[0].SyncType != syncer.SyncBluetooth || entries[0].RecordsSynced != 0 {
			t.Errorf("initial entry = %+v, want zero-record bluetooth sync", entries[0])
		}
	})

	t.Run("falls back to simulated when capability absent", func(t *testing.T) {
		bt := &mockTransport{kind: device.TransportBluetooth, pairErr: ErrCapabilityUnavailable}
		sim := &mockTransport{kind: device.TransportSimulated}
		mgr, _, _ := newTestManager(t, bt, sim)

		dev, err := mgr.Connect(ctx, "fitbit", device.TransportBluetooth)
		if err != nil {
			t.Fatalf("Connect() error = %v", err)
		}
		if dev.Transport != device.TransportSimulated {
			t.Errorf("Transport = %q, want simulated fallback", dev.Transport)
		}
		if bt.pairCalls != 1 {
			t.Errorf("bluetooth Pair called %d times, want 1", bt.pairCalls)
		}
	})

	t.Run("falls back when no matching device found", func(t *testing.T) {
		net := &mockTransport{kind: device.TransportNetwork, pairErr: ErrNoMatchingDevice}
		sim := &mockTransport{kind: device.TransportSimulated}
		mgr, _, _ := newTestManager(t, net, sim)

		dev, err := mgr.Connect(ctx, "philips_hue", device.TransportNetwork)
		if err != nil {
			t.Fatalf("Connect() error = %v", err)
		}
		if dev.Transport != device.TransportSimulated {
			t.Errorf("Transport = %q, want simulated fallback", dev.Transport)
		}
	})

	t.Run("declined pairing surfaces and leaves no record", func(t *testing.T) {
		bt := &mockTransport{kind: device.TransportBluetooth, pairErr: ErrConnectionDeclined}
		sim := &mockTransport{kind: device.TransportSimulated}
		mgr, registry, _ := newTestManager(t, bt, sim)

		_, err := mgr.Connect(ctx, "fitbit", device.TransportBluetooth)
		if !errors.Is(err, ErrConnectionDeclined) {
			t.Fatalf("Connect() error = %v, want ErrConnectionDeclined", err)
		}
		if registry.Count() != 0 {
			t.Errorf("registry Count() = %d, want 0 after declined pairing", registry.Count())
		}
		if sim.pairCalls != 0 {
			t.Error("declined pairing must not fall back to simulated")
		}
	})

	t.Run("unknown catalog name", func(t *testing.T) {
		mgr, _, _ := newTestManager(t, &mockTransport{kind: device.TransportSimulated})
		if _, err := mgr.Connect(ctx, "nokia-3310", ""); !errors.Is(err, device.ErrUnknownDevice) {
			t.Errorf("Connect() error = %v, want ErrUnknownDevice", err)
		}
	})
}

func TestManager_Disconnect(t *testing.T) {
	ctx := context.Background()
	sim := &mockTransport{kind: device.TransportSimulated}
	mgr, registry, _ := newTestManager(t, sim)

	cascade := &mockCascade{count: 2}
	mgr.AddCascade(cascade)

	dev, err := mgr.Connect(ctx, "fitbit", "")
	if err != nil {
		t.Fatalf("Connect() error = %v", err)
	}

	if err := mgr.Disconnect(ctx, dev.ID); err != nil {
		t.Fatalf("Disconnect() error = %v", err)
	}
	if registry.Count() != 0 {
		t.Errorf("registry Count() = %d, want 0", registry.Count())
	}
	if len(cascade.removedFor) != 1 || cascade.removedFor[0] != dev.ID {
		t.Errorf("cascade removedFor = %v, want [%s]", cascade.removedFor, dev.ID)
	}

	t.Run("unknown device", func(t *testing.T) {
		if err := mgr.Disconnect(ctx, "ghost"); !errors.Is(err, device.ErrDeviceNotFound) {
			t.Errorf("Disconnect() error = %v, want ErrDeviceNotFound", err)
		}
	})
}

func TestManager_Fetch(t *testing.T) {
	ctx := context.Background()
	sim := &mockTransport{
		kind:    device.TransportSimulated,
		payload: device.SyncPayload{RecordsSynced: 9},
	}
	mgr, _, _ := newTestManager(t, sim)

	dev := device.ConnectedDevice{ID: "dev-1", Transport: device.TransportSimulated}
	payload, err := mgr.Fetch(ctx, dev)
	if err != nil {
		t.Fatalf("Fetch() error = %v", err)
	}
	if payload.RecordsSynced != 9 {
		t.Errorf("RecordsSynced = %d, want 9", payload.RecordsSynced)
	}

	t.Run("unpaired transport", func(t *testing.T) {
		dev := device.ConnectedDevice{ID: "dev-2", Transport: device.TransportBluetooth}
		if _, err := mgr.Fetch(ctx, dev); !errors.Is(err, ErrUnknownTransport) {
			t.Errorf("Fetch() error = %v, want ErrUnknownTransport", err)
		}
	})
}
