package capability

import (
	"context"
	"os"
	"time"
)

// Provider reports which host capabilities are available.
//
// The connection manager consults it before attempting a transport;
// absence of a capability routes the connection to the fallback path
// instead of failing.
type Provider interface {
	// HasShortRangeWireless reports whether a short-range wireless
	// adapter (bluetooth) is present on the host.
	HasShortRangeWireless() bool

	// HasLocation reports whether the host can supply positions.
	HasLocation() bool
}

// HostProvider probes the host platform for capabilities.
//
// Bluetooth presence is detected by listing adapters under the sysfs
// path. Location has no portable probe, so deployments opt in through
// configuration. Every probe is bounded by a timeout; a timed-out probe
// counts as capability-absent, never as an error.
type HostProvider struct {
	// BluetoothSysfsPath is where adapters are listed, normally
	// /sys/class/bluetooth.
	BluetoothSysfsPath string

	// LocationEnabled is the configured location opt-in.
	LocationEnabled bool

	// ProbeTimeout bounds each filesystem probe.
	ProbeTimeout time.Duration
}

// HasShortRangeWireless reports whether at least one bluetooth adapter
// is registered with the host.
func (p *HostProvider) HasShortRangeWireless() bool {
	timeout := p.ProbeTimeout
	if timeout <= 0 {
		timeout = 3 * time.Second
	}

	ctx, cancel := context.WithTimeout(context.Background(), timeout)
	defer cancel()

	result := make(chan bool, 1)
	go func() {
		entries, err := os.ReadDir(p.BluetoothSysfsPath)
		result <- err == nil && len(entries) > 0
	}()

	select {
	case ok := <-result:
		return ok
	case <-ctx.Done():
		// Treat a hung probe the same as capability absence.
		return false
	}
}

// HasLocation reports the configured location opt-in.
func (p *HostProvider) HasLocation() bool {
	return p.LocationEnabled
}

// Static is a deterministic Provider for tests and simulated deployments.
type Static struct {
	ShortRangeWireless bool
	Location           bool
}

// HasShortRangeWireless returns the fixed wireless flag.
func (s Static) HasShortRangeWireless() bool { return s.ShortRangeWireless }

// HasLocation returns the fixed location flag.
func (s Static) HasLocation() bool { return s.Location }
