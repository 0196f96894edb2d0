package geofence

import (
	"context"
	"fmt"
	"math"
	"sort"
	"sync"

	"github.com/pulsehabit/devicelink/internal/clock"
	"github.com/pulsehabit/devicelink/internal/store"
)

// earthRadiusMeters is the mean Earth radius used by the haversine
// distance calculation.
const earthRadiusMeters = 6371000.0

// Logger defines the logging interface used by the Engine.
type Logger interface {
	Debug(msg string, args ...any)
	Info(msg string, args ...any)
	Warn(msg string, args ...any)
	Error(msg string, args ...any)
}

type noopLogger struct{}

func (noopLogger) Debug(string, ...any) {}
func (noopLogger) Info(string, ...any)  {}
func (noopLogger) Warn(string, ...any)  {}
func (noopLogger) Error(string, ...any) {}

// Engine tracks per-fence membership and fires on boundary crossings.
//
// The first position sample after startup establishes membership without
// firing anything; crossings are detected only between consecutive
// samples. Membership state is in-memory and resets on restart.
type Engine struct {
	st     store.Store
	logger Logger
	clk    clock.Clock

	mu     sync.Mutex
	fences map[string]*GeoFence

	// inside holds last known membership per fence. Absent means the
	// fence has not been baselined yet.
	inside map[string]bool
}

// NewEngine creates a geofence engine backed by the given store.
func NewEngine(st store.Store) *Engine {
	return &Engine{
		st:     st,
		logger: noopLogger{},
		clk:    clock.System{},
		fences: make(map[string]*GeoFence),
		inside: make(map[string]bool),
	}
}

// SetLogger sets the logger for the engine.
func (e *Engine) SetLogger(logger Logger) {
	e.logger = logger
}

// SetClock replaces the engine's time source. Intended for tests.
func (e *Engine) SetClock(clk clock.Clock) {
	e.clk = clk
}

// Load reads the persisted fence collection into memory.
func (e *Engine) Load(ctx context.Context) error {
	fences, err := store.LoadCollection[GeoFence](ctx, e.st, store.KeyGeoFences)
	if err != nil {
		return fmt.Errorf("loading geofences: %w", err)
	}

	e.mu.Lock()
	defer e.mu.Unlock()

	e.fences = make(map[string]*GeoFence, len(fences))
	for i := range fences {
		f := fences[i]
		e.fences[f.ID] = &f
	}
	return nil
}

func (e *Engine) persistLocked(ctx context.Context) error {
	fences := make([]GeoFence, 0, len(e.fences))
	for _, f := range e.fences {
		fences = append(fences, *f)
	}
	sort.Slice(fences, func(i, j int) bool {
		return fences[i].CreatedAt.Before(fences[j].CreatedAt)
	})
	return store.SaveCollection(ctx, e.st, store.KeyGeoFences, fences)
}

// validate checks the fence's geometry and trigger mode.
func validate(f *GeoFence) error {
	if f.Name == "" {
		return fmt.Errorf("%w: name is required", ErrInvalidFence)
	}
	if f.RadiusMeters <= 0 {
		return fmt.Errorf("%w: radius must be positive", ErrInvalidFence)
	}
	if f.Latitude < -90 || f.Latitude > 90 {
		return fmt.Errorf("%w: latitude out of range", ErrInvalidFence)
	}
	if f.Longitude < -180 || f.Longitude > 180 {
		return fmt.Errorf("%w: longitude out of range", ErrInvalidFence)
	}
	switch f.TriggerOn {
	case TriggerEnter, TriggerExit, TriggerBoth:
	default:
		return fmt.Errorf("%w: unknown trigger mode %q", ErrInvalidFence, f.TriggerOn)
	}
	return nil
}

// Create inserts a new fence after validation.
func (e *Engine) Create(ctx context.Context, f *GeoFence) error {
	if err := validate(f); err != nil {
		return err
	}
	if f.ID == "" {
		f.ID = GenerateID()
	}
	if f.CreatedAt.IsZero() {
		f.CreatedAt = e.clk.Now()
	}

	e.mu.Lock()
	defer e.mu.Unlock()

	cpy := *f
	e.fences[f.ID] = &cpy
	if err := e.persistLocked(ctx); err != nil {
		delete(e.fences, f.ID)
		return err
	}

	e.logger.Info("geofence created", "id", f.ID, "name", f.Name, "radius_m", f.RadiusMeters)
	return nil
}

// Get retrieves a fence by ID.
func (e *Engine) Get(_ context.Context, id string) (*GeoFence, error) {
	e.mu.Lock()
	defer e.mu.Unlock()

	f, ok := e.fences[id]
	if !ok {
		return nil, ErrFenceNotFound
	}
	cpy := *f
	return &cpy, nil
}

// List retrieves all fences ordered by creation time.
func (e *Engine) List(_ context.Context) []GeoFence {
	e.mu.Lock()
	defer e.mu.Unlock()

	fences := make([]GeoFence, 0, len(e.fences))
	for _, f := range e.fences {
		fences = append(fences, *f)
	}
	sort.Slice(fences, func(i, j int) bool {
		return fences[i].CreatedAt.Before(fences[j].CreatedAt)
	})
	return fences
}

// Delete removes a fence by ID.
func (e *Engine) Delete(ctx context.Context, id string) error {
	e.mu.Lock()
	defer e.mu.Unlock()

	prev, ok := e.fences[id]
	if !ok {
		return ErrFenceNotFound
	}

	delete(e.fences, id)
	delete(e.inside, id)
	if err := e.persistLocked(ctx); err != nil {
		e.fences[id] = prev
		return err
	}
	return nil
}

// Evaluate compares the position sample against every fence and returns
// the crossings whose direction matches the fence's TriggerOn.
//
// Membership is tracked for every fence, active or not, so a fence
// toggled back on never fires from state recorded before it was off.
// The first sample seen for a fence only baselines membership.
func (e *Engine) Evaluate(_ context.Context, pos Position) []FiredFence {
	e.mu.Lock()
	defer e.mu.Unlock()

	var fired []FiredFence
	for _, f := range e.sortedLocked() {
		dist := haversineMeters(pos.Latitude, pos.Longitude, f.Latitude, f.Longitude)
		now := dist <= f.RadiusMeters

		was, baselined := e.inside[f.ID]
		e.inside[f.ID] = now
		if !f.IsActive || !baselined || was == now {
			continue
		}

		transition := TransitionExit
		if now {
			transition = TransitionEnter
		}
		if !matches(f.TriggerOn, transition) {
			continue
		}

		fired = append(fired, FiredFence{
			FenceID:      f.ID,
			Name:         f.Name,
			Transition:   transition,
			LinkedHabits: append([]string(nil), f.LinkedHabits...),
		})
		e.logger.Info("geofence crossed",
			"fence_id", f.ID,
			"name", f.Name,
			"transition", transition,
			"distance_m", math.Round(dist),
		)
	}
	return fired
}

func matches(mode TriggerOn, t Transition) bool {
	switch mode {
	case TriggerBoth:
		return true
	case TriggerEnter:
		return t == TransitionEnter
	case TriggerExit:
		return t == TransitionExit
	default:
		return false
	}
}

func (e *Engine) sortedLocked() []*GeoFence {
	out := make([]*GeoFence, 0, len(e.fences))
	for _, f := range e.fences {
		out = append(out, f)
	}
	sort.Slice(out, func(i, j int) bool {
		return out[i].CreatedAt.Before(out[j].CreatedAt)
	})
	return out
}

// haversineMeters returns the great-circle distance between two
// coordinates in meters.
func haversineMeters(lat1, lon1, lat2, lon2 float64) float64 {
	const degToRad = math.Pi / 180

	dLat := (lat2 - lat1) * degToRad
	dLon := (lon2 - lon1) * degToRad

	a := math.Sin(dLat/2)*math.Sin(dLat/2) +
		math.Cos(lat1*degToRad)*math.Cos(lat2*degToRad)*
			math.Sin(dLon/2)*math.Sin(dLon/2)
	c := 2 * math.Atan2(math.Sqrt(a), math.Sqrt(1-a))
	return earthRadiusMeters * c
}
