package connection

import (
	"context"
	"fmt"
	"time"

	"github.com/pulsehabit/devicelink/internal/capability"
	"github.com/pulsehabit/devicelink/internal/device"
)

// defaultScanWindow bounds a short-range device scan.
const defaultScanWindow = 2 * time.Second

// Bluetooth is the short-range wireless transport.
//
// It is capability-gated: without a host adapter every pairing attempt
// reports ErrCapabilityUnavailable and the manager falls back to the
// simulated path. The scan itself is a stand-in; real GATT profiles are
// explicitly out of scope and live below this interface when a vendor
// integration lands.
type Bluetooth struct {
	caps capability.Provider
	rnd  RandomSource
	scan time.Duration
}

// NewBluetooth creates the short-range wireless transport.
// A scan window of 0 uses the default; tests pass a tiny value.
func NewBluetooth(caps capability.Provider, rnd RandomSource, scan time.Duration) *Bluetooth {
	if scan <= 0 {
		scan = defaultScanWindow
	}
	return &Bluetooth{caps: caps, rnd: rnd, scan: scan}
}

// Kind identifies the transport.
func (b *Bluetooth) Kind() device.Transport {
	return device.TransportBluetooth
}

// Pair scans for a device advertising the catalog entry's name.
//
// The scan window doubles as the pairing timeout: an empty scan reports
// ErrNoMatchingDevice, which the manager treats as an expected condition.
func (b *Bluetooth) Pair(ctx context.Context, entry device.CatalogEntry) (PairResult, error) {
	if !b.caps.HasShortRangeWireless() {
		return PairResult{}, ErrCapabilityUnavailable
	}

	// Wearables advertise; everything else does not answer a scan.
	if entry.Type != device.TypeWearable {
		return PairResult{}, ErrNoMatchingDevice
	}

	select {
	case <-time.After(b.scan):
	case <-ctx.Done():
		return PairResult{}, fmt.Errorf("%w: scan interrupted", ErrNoMatchingDevice)
	}

	addr := fmt.Sprintf("%02X:%02X:%02X:%02X:%02X:%02X",
		b.rnd.Intn(256), b.rnd.Intn(256), b.rnd.Intn(256),
		b.rnd.Intn(256), b.rnd.Intn(256), b.rnd.Intn(256))
	return PairResult{ShortRangeAddress: &addr}, nil
}

// Fetch pulls sync data over the short-range link.
func (b *Bluetooth) Fetch(ctx context.Context, dev device.ConnectedDevice) (device.SyncPayload, error) {
	if err := ctx.Err(); err != nil {
		return device.SyncPayload{}, err
	}
	if !b.caps.HasShortRangeWireless() {
		return device.SyncPayload{}, fmt.Errorf("%w: adapter gone", ErrTransportFailure)
	}

	entry, err := device.Catalog(dev.DeviceName)
	if err != nil {
		return device.SyncPayload{}, fmt.Errorf("%w: %w", ErrTransportFailure, err)
	}
	return generatePayload(entry, b.rnd), nil
}
