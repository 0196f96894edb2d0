package connection

import (
	"context"
	"math/rand"
	"sync"

	"github.com/pulsehabit/devicelink/internal/device"
)

// Transport is one way of reaching a device: short-range wireless, local
// network, or the generic simulated path. Real vendor protocol stacks
// live below this interface; the engine only orchestrates.
type Transport interface {
	// Kind identifies the transport.
	Kind() device.Transport

	// Pair establishes a link with a device of the given catalog entry.
	//
	// Expected failures are signalled with ErrCapabilityUnavailable or
	// ErrNoMatchingDevice (both answered by fallback, not surfaced);
	// ErrConnectionDeclined is the only non-recoverable outcome.
	Pair(ctx context.Context, entry device.CatalogEntry) (PairResult, error)

	// Fetch pulls fresh sync data for a paired device.
	Fetch(ctx context.Context, dev device.ConnectedDevice) (device.SyncPayload, error)
}

// PairResult carries the transport-specific identifiers of a new pairing.
type PairResult struct {
	// ShortRangeAddress is set by the bluetooth transport.
	ShortRangeAddress *string

	// NetworkID is set by the local-network transport.
	NetworkID *string
}

// RandomSource supplies the randomness for simulated readings. A seeded
// *math/rand.Rand satisfies it; tests inject a fixed seed for exact
// assertions.
type RandomSource interface {
	Intn(n int) int
	Float64() float64
}

// LockedRand is a RandomSource safe for concurrent use. The scheduler
// fetches from transports in per-device goroutines, and a bare
// *math/rand.Rand is not safe to share between them.
type LockedRand struct {
	mu  sync.Mutex
	rnd *rand.Rand
}

// NewLockedRand creates a seeded concurrency-safe random source.
func NewLockedRand(seed int64) *LockedRand {
	return &LockedRand{rnd: rand.New(rand.NewSource(seed))} // #nosec G404 -- simulated telemetry, not security material
}

// Intn returns a uniform int in [0, n).
func (l *LockedRand) Intn(n int) int {
	l.mu.Lock()
	defer l.mu.Unlock()
	return l.rnd.Intn(n)
}

// Float64 returns a uniform float64 in [0, 1).
func (l *LockedRand) Float64() float64 {
	l.mu.Lock()
	defer l.mu.Unlock()
	return l.rnd.Float64()
}

// habitPool is the illustrative set of habit names simulated syncs touch.
var habitPool = []string{
	"Morning Walk",
	"Hydration",
	"Meditation",
	"Evening Stretch",
	"Read 20 Minutes",
}

// generatePayload builds a simulated sync payload from a catalog metric
// profile. Values are drawn uniformly from each metric's range; integer
// metrics stay integers so metadata round-trips through JSON cleanly.
func generatePayload(entry device.CatalogEntry, rnd RandomSource) device.SyncPayload {
	metrics := make(device.Metadata, len(entry.Metrics))
	for _, spec := range entry.Metrics {
		value := spec.Min + rnd.Float64()*(spec.Max-spec.Min)
		if spec.Max-spec.Min >= 10 {
			metrics[spec.Key] = float64(int(value))
		} else {
			metrics[spec.Key] = float64(int(value*10)) / 10
		}
	}

	records := 1 + rnd.Intn(50)

	touched := make([]string, 0, 2)
	for _, habit := range habitPool {
		if rnd.Intn(len(habitPool)) == 0 {
			touched = append(touched, habit)
		}
	}

	return device.SyncPayload{
		Metrics:       metrics,
		RecordsSynced: records,
		HabitsTouched: touched,
	}
}
