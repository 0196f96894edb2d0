// Package device provides the connected-device catalog and registry.
//
// The Registry is the single source of truth for every externally-connected
// device (wearables, companion apps, voice assistants, smart-home hubs). It
// owns the device lifecycle (pending → connected → syncing → connected,
// removed on disconnect), keeps the collection in memory and persists it as
// a JSON array on every mutation.
//
// # Key Types
//
//   - ConnectedDevice: the device record, including sync scheduling fields
//   - CatalogEntry: a known integration with its metric profile
//   - Registry: thread-safe cache + save-on-mutate persistence
//
// # In-flight guard
//
// BeginSync/CompleteSync/AbortSync implement the at-most-one-sync-per-device
// invariant: BeginSync atomically moves connected → syncing and rejects a
// second caller with ErrSyncInProgress. A device disconnected mid-sync
// makes CompleteSync miss with ErrDeviceNotFound, which callers treat as
// "discard the results".
package device
