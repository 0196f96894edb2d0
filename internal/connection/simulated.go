package connection

import (
	"context"
	"fmt"
	"time"

	"github.com/pulsehabit/devicelink/internal/device"
)

// defaultSettleDelay is how long the simulated transport takes to
// "establish" a connection, mimicking a real pairing handshake.
const defaultSettleDelay = 800 * time.Millisecond

// Simulated is the generic fallback transport.
//
// It always produces a valid pairing after a fixed settle delay, so a
// caller ends up with a usable device record even without any real
// hardware. Sync data is generated from the device's catalog metric
// profile using the injected random source.
type Simulated struct {
	rnd    RandomSource
	settle time.Duration
}

// NewSimulated creates the simulated transport.
// A settle of 0 uses the default delay; tests pass a tiny value.
func NewSimulated(rnd RandomSource, settle time.Duration) *Simulated {
	if settle <= 0 {
		settle = defaultSettleDelay
	}
	return &Simulated{rnd: rnd, settle: settle}
}

// Kind identifies the transport.
func (s *Simulated) Kind() device.Transport {
	return device.TransportSimulated
}

// Pair produces a simulated pairing after the settle delay.
func (s *Simulated) Pair(ctx context.Context, _ device.CatalogEntry) (PairResult, error) {
	select {
	case <-time.After(s.settle):
	case <-ctx.Done():
		return PairResult{}, ctx.Err()
	}

	id := fmt.Sprintf("sim-%04x", s.rnd.Intn(0x10000))
	return PairResult{NetworkID: &id}, nil
}

// Fetch generates sync data from the device's catalog metric profile.
func (s *Simulated) Fetch(ctx context.Context, dev device.ConnectedDevice) (device.SyncPayload, error) {
	if err := ctx.Err(); err != nil {
		return device.SyncPayload{}, err
	}

	entry, err := device.Catalog(dev.DeviceName)
	if err != nil {
		return device.SyncPayload{}, fmt.Errorf("%w: %w", ErrTransportFailure, err)
	}
	return generatePayload(entry, s.rnd), nil
}
