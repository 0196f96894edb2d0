package syncer

import (
	"context"
	"fmt"
	"sync"

	"github.com/pulsehabit/devicelink/internal/store"
)

// DefaultRetention is how many sync log entries are kept when the caller
// does not configure a limit.
const DefaultRetention = 100

// LogStore is the append-only, bounded history of sync attempts.
//
// Appends are ordered by completion time. Once the retention window is
// full the oldest entry is evicted on each append. The collection is
// persisted on every mutation.
//
// All public methods are thread-safe.
type LogStore struct {
	st        store.Store
	mu        sync.RWMutex
	entries   []SyncLogEntry
	retention int
}

// NewLogStore creates a sync log store backed by the given store.
// retention bounds the history; values <= 0 fall back to DefaultRetention.
func NewLogStore(st store.Store, retention int) *LogStore {
	if retention <= 0 {
		retention = DefaultRetention
	}
	return &LogStore{
		st:        st,
		retention: retention,
	}
}

// Load reads the persisted sync log into memory.
// This should be called once at engine startup.
func (l *LogStore) Load(ctx context.Context) error {
	entries, err := store.LoadCollection[SyncLogEntry](ctx, l.st, store.KeySyncLogs)
	if err != nil {
		return fmt.Errorf("loading sync logs: %w", err)
	}

	l.mu.Lock()
	defer l.mu.Unlock()

	if len(entries) > l.retention {
		entries = entries[len(entries)-l.retention:]
	}
	l.entries = entries
	return nil
}

// Append records a completed sync attempt, evicting the oldest entry if
// the retention window is full.
func (l *LogStore) Append(ctx context.Context, entry SyncLogEntry) error {
	if entry.ID == "" {
		entry.ID = GenerateID()
	}

	l.mu.Lock()
	defer l.mu.Unlock()

	prev := l.entries
	next := append(append([]SyncLogEntry{}, l.entries...), entry)
	if len(next) > l.retention {
		next = next[len(next)-l.retention:]
	}
	l.entries = next

	if err := store.SaveCollection(ctx, l.st, store.KeySyncLogs, l.entries); err != nil {
		l.entries = prev
		return err
	}
	return nil
}

// List returns all entries, oldest first.
func (l *LogStore) List(_ context.Context) []SyncLogEntry {
	l.mu.RLock()
	defer l.mu.RUnlock()

	out := make([]SyncLogEntry, len(l.entries))
	copy(out, l.entries)
	return out
}

// ListByDevice returns entries for one device, oldest first.
func (l *LogStore) ListByDevice(_ context.Context, deviceID string) []SyncLogEntry {
	l.mu.RLock()
	defer l.mu.RUnlock()

	var out []SyncLogEntry
	for _, e := range l.entries {
		if e.DeviceID == deviceID {
			out = append(out, e)
		}
	}
	return out
}

// Len returns the number of retained entries.
func (l *LogStore) Len() int {
	l.mu.RLock()
	defer l.mu.RUnlock()
	return len(l.entries)
}
