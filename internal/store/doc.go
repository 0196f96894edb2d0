// Package store provides the persistence adapter for engine collections.
//
// Each top-level collection (connected devices, habit triggers, geofences,
// automations, offline queue, sync logs) is persisted independently as a
// JSON array under a namespaced key. The engine loads collections on init
// and saves on every mutation; nothing is accessed through ambient globals.
//
// Two implementations exist: SQLiteStore for production and Memory for
// tests. Both are safe for concurrent use.
package store
