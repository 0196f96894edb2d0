package syncer

import (
	"context"
	"fmt"
	"testing"
	"time"

	"github.com/pulsehabit/devicelink/internal/store"
)

func testEntry(id, deviceID string) SyncLogEntry {
	return SyncLogEntry{
		ID:         id,
		DeviceID:   deviceID,
		DeviceName: "fitbit",
		SyncType:   SyncAuto,
		Status:     StatusSuccess,
		SyncedAt:   time.Now().UTC(),
	}
}

func TestLogStore_Append(t *testing.T) {
	ctx := context.Background()

	t.Run("appends in order", func(t *testing.T) {
		logs := NewLogStore(store.NewMemory(), 10)
		for i := 0; i < 3; i++ {
			entry := testEntry(fmt.Sprintf("log-%d", i), "dev-1")
			if err := logs.Append(ctx, entry); err != nil {
				t.Fatalf("Append() error = %v", err)
			}
		}

		got := logs.List(ctx)
		if len(got) != 3 {
			t.Fatalf("List() len = %d, want 3", len(got))
		}
		if got[0].ID != "log-0" || got[2].ID != "log-2" {
			t.Errorf("List() order = [%s..%s], want [log-0..log-2]", got[0].ID, got[2].ID)
		}
	})

	t.Run("evicts oldest beyond retention", func(t *testing.T) {
		logs := NewLogStore(store.NewMemory(), 5)
		for i := 0; i < 8; i++ {
			if err := logs.Append(ctx, testEntry(fmt.Sprintf("log-%d", i), "dev-1")); err != nil {
				t.Fatalf("Append() error = %v", err)
			}
		}

		got := logs.List(ctx)
		if len(got) != 5 {
			t.Fatalf("List() len = %d, want 5", len(got))
		}
		if got[0].ID != "log-3" {
			t.Errorf("oldest surviving entry = %s, want log-3", got[0].ID)
		}
		if got[4].ID != "log-7" {
			t.Errorf("newest entry = %s, want log-7", got[4].ID)
		}
	})
}

func TestLogStore_ListByDevice(t *testing.T) {
	ctx := context.Background()
	logs := NewLogStore(store.NewMemory(), 10)

	for i, dev := range []string{"dev-1", "dev-2", "dev-1"} {
		if err := logs.Append(ctx, testEntry(fmt.Sprintf("log-%d", i), dev)); err != nil {
			t.Fatalf("Append() error = %v", err)
		}
	}

	got := logs.ListByDevice(ctx, "dev-1")
	if len(got) != 2 {
		t.Fatalf("ListByDevice() len = %d, want 2", len(got))
	}
	for _, entry := range got {
		if entry.DeviceID != "dev-1" {
			t.Errorf("entry %s has DeviceID %s", entry.ID, entry.DeviceID)
		}
	}
}

func TestLogStore_Load(t *testing.T) {
	ctx := context.Background()
	st := store.NewMemory()

	first := NewLogStore(st, 10)
	for i := 0; i < 6; i++ {
		if err := first.Append(ctx, testEntry(fmt.Sprintf("log-%d", i), "dev-1")); err != nil {
			t.Fatalf("Append() error = %v", err)
		}
	}

	// Reload with a smaller retention: only the newest entries survive.
	second := NewLogStore(st, 4)
	if err := second.Load(ctx); err != nil {
		t.Fatalf("Load() error = %v", err)
	}
	got := second.List(ctx)
	if len(got) != 4 {
		t.Fatalf("List() after Load len = %d, want 4", len(got))
	}
	if got[0].ID != "log-2" {
		t.Errorf("oldest after trim = %s, want log-2", got[0].ID)
	}
}
