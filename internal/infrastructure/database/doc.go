// Package database manages the SQLite connection for devicelink.
//
// It handles connection lifecycle (open, health check, close), applies
// pragmas for WAL mode and busy timeouts, and runs embedded schema
// migrations on startup. The collection store in internal/store builds
// on top of this package.
package database
