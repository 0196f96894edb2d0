// Package mqtt wraps the Eclipse Paho client for devicelink.
//
// The broker serves three roles in the engine:
//
//   - transport: local-network device discovery (discover/announce topics)
//   - command bus: smart-home automation actions published per device
//   - connectivity signal: connect/disconnect callbacks feed the engine's
//     online/offline watcher, which drives offline-queue drains
//
// Subscriptions are tracked and restored automatically on reconnect, and
// a retained Last Will marks the engine offline when the connection drops.
package mqtt
