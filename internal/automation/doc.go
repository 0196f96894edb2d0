// Package automation maps habit lifecycle events to ordered smart home
// device commands published on the MQTT command bus.
//
// Execution is best-effort per action: a failing command never blocks
// the remaining ones, and failures are aggregated into a single wrapped
// error for the caller.
package automation
