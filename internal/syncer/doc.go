// Package syncer schedules and records device synchronisation.
//
// The Scheduler scans for due devices on an injectable ticker, performs
// transport fetches through the connection manager, and appends one
// SyncLogEntry per attempt to the bounded LogStore. Overlapping syncs for
// the same device are impossible: the device registry's connected →
// syncing transition is the single in-flight guard shared by scheduled
// ticks, manual syncs and SyncAll.
package syncer
