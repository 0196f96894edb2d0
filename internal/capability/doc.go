// Package capability reports which host platform capabilities are
// available to device transports.
//
// The Provider interface abstracts the probes so the connection manager
// can be tested with a deterministic Static implementation while
// production uses HostProvider, which inspects the host with bounded
// timeouts. A timed-out probe is treated identically to an explicit
// capability absence.
package capability
