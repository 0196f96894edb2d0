// Package engine assembles the sync pipeline: device registry,
// connection manager, scheduler, rule engines, offline queue and the
// broker-backed connectivity signal.
//
// It is the only package that knows how the pieces connect; everything
// below it depends on narrow interfaces.
package engine
