// Package connection establishes and tears down device connections.
//
// The Manager sits above pluggable transports (short-range wireless,
// local network over MQTT, and the generic simulated path). Connecting
// always succeeds in producing a usable device record unless the user
// explicitly declines pairing: capability absence, empty scans and
// transport hiccups all route to the simulated fallback after a fixed
// settle delay.
//
// Disconnecting removes the device from the registry and cascades
// deletion of its triggers and automations through the registered
// CascadeRemover implementations.
package connection
