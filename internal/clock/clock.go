package clock

import "time"

// Clock abstracts wall-clock time so components can be tested with a
// deterministic time source instead of time.Now.
type Clock interface {
	// Now returns the current time in UTC.
	Now() time.Time
}

// Ticker abstracts a periodic tick source. The scheduler consumes ticks
// from C and tests can drive it manually without waiting on wall-clock time.
type Ticker interface {
	// C returns the channel ticks are delivered on.
	C() <-chan time.Time

	// Stop releases resources associated with the ticker.
	Stop()
}

// System is a Clock backed by the real wall clock.
type System struct{}

// Now returns the current UTC time.
func (System) Now() time.Time {
	return time.Now().UTC()
}

// wallTicker wraps time.Ticker to satisfy the Ticker interface.
type wallTicker struct {
	t *time.Ticker
}

// NewTicker creates a Ticker that fires at the given interval.
func NewTicker(interval time.Duration) Ticker {
	return &wallTicker{t: time.NewTicker(interval)}
}

func (w *wallTicker) C() <-chan time.Time {
	return w.t.C
}

func (w *wallTicker) Stop() {
	w.t.Stop()
}

// Manual is a hand-driven Ticker and Clock for tests. Tick delivers a tick
// synchronously; Advance moves the reported time forward.
type Manual struct {
	ch  chan time.Time
	now time.Time
}

// NewManual creates a Manual clock/ticker starting at the given time.
func NewManual(start time.Time) *Manual {
	return &Manual{
		ch:  make(chan time.Time, 1),
		now: start.UTC(),
	}
}

// Now returns the current manual time.
func (m *Manual) Now() time.Time {
	return m.now
}

// Advance moves the manual clock forward by d.
func (m *Manual) Advance(d time.Duration) {
	m.now = m.now.Add(d)
}

// Tick delivers one tick carrying the current manual time.
func (m *Manual) Tick() {
	m.ch <- m.now
}

// C returns the tick channel.
func (m *Manual) C() <-chan time.Time {
	return m.ch
}

// Stop is a no-op for the manual ticker.
func (m *Manual) Stop() {}
