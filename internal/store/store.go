package store

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
)

// Namespaced collection keys. Every top-level engine collection is
// persisted independently as a JSON array under one of these keys.
const (
	KeyConnectedDevices = "devicelink.connectedDevices"
	KeyHabitTriggers    = "devicelink.habitTriggers"
	KeyGeoFences        = "devicelink.geoFences"
	KeyAutomations      = "devicelink.automations"
	KeyOfflineQueue     = "devicelink.offlineQueue"
	KeySyncLogs         = "devicelink.syncLogs"
)

// Store persists raw JSON payloads under namespaced keys.
//
// Implementations must be safe for concurrent use; callers serialise
// logical mutations themselves (each collection has a single owner).
type Store interface {
	// Load returns the payload stored under key.
	// Returns ErrKeyNotFound if the key has never been saved.
	Load(ctx context.Context, key string) ([]byte, error)

	// Save writes the payload under key, replacing any previous value.
	Save(ctx context.Context, key string, payload []byte) error

	// Keys returns all keys currently present in the store.
	Keys(ctx context.Context) ([]string, error)
}

// ErrKeyNotFound is returned when a collection key has never been saved.
// Callers treat this as an empty collection.
var ErrKeyNotFound = errors.New("store: key not found")

// LoadCollection unmarshals the JSON array stored under key into a slice.
// An absent key yields an empty slice, not an error.
func LoadCollection[T any](ctx context.Context, s Store, key string) ([]T, error) {
	payload, err := s.Load(ctx, key)
	if err != nil {
		if errors.Is(err, ErrKeyNotFound) {
			return []T{}, nil
		}
		return nil, err
	}

	var items []T
	if err := json.Unmarshal(payload, &items); err != nil {
		return nil, fmt.Errorf("unmarshalling collection %q: %w", key, err)
	}
	if items == nil {
		items = []T{}
	}
	return items, nil
}

// SaveCollection marshals items as a JSON array and stores it under key.
func SaveCollection[T any](ctx context.Context, s Store, key string, items []T) error {
	if items == nil {
		items = []T{}
	}
	payload, err := json.Marshal(items)
	if err != nil {
		return fmt.Errorf("marshalling collection %q: %w", key, err)
	}
	return s.Save(ctx, key, payload)
}
