package syncer

import (
	"context"
	"errors"
	"sync"
	"time"

	"golang.org/x/sync/errgroup"

	"github.com/pulsehabit/devicelink/internal/clock"
	"github.com/pulsehabit/devicelink/internal/device"
)

// Source performs the transport-specific fetch for one device.
// Implemented by the connection manager, which routes to the device's
// paired transport (or the simulated fallback).
type Source interface {
	// Fetch pulls fresh data for the device.
	Fetch(ctx context.Context, dev device.ConnectedDevice) (device.SyncPayload, error)
}

// HistoryWriter receives completed sync outcomes for time-series storage.
// Implementations must not block; the scheduler calls it inline.
type HistoryWriter interface {
	// RecordSync stores one sync outcome.
	RecordSync(entry SyncLogEntry, metrics device.Metadata)
}

// Logger defines the logging interface used by the Scheduler.
type Logger interface {
	Debug(msg string, args ...any)
	Info(msg string, args ...any)
	Warn(msg string, args ...any)
	Error(msg string, args ...any)
}

// noopLogger is a logger that does nothing.
type noopLogger struct{}

func (noopLogger) Debug(string, ...any) {}
func (noopLogger) Info(string, ...any)  {}
func (noopLogger) Warn(string, ...any)  {}
func (noopLogger) Error(string, ...any) {}

// Summary aggregates the outcome of a SyncAll pass.
type Summary struct {
	Synced  int
	Failed  int
	Skipped int
}

// Scheduler drives periodic device synchronisation.
//
// Each tick scans all devices and syncs those that are due: auto-sync
// enabled, currently connected, a positive sync frequency, and at least
// that many minutes since the last sync. The registry's BeginSync
// transition is the per-device in-flight guard, so no two syncs ever
// overlap for one device regardless of how they were initiated.
//
// Failure semantics: a transport error records a failed log entry and the
// device returns to connected so the next due cycle retries. Only the
// connection manager moves devices to the error state.
type Scheduler struct {
	registry *device.Registry
	logs     *LogStore
	source   Source
	clk      clock.Clock
	logger   Logger

	// maxConcurrent bounds SyncAll fan-out.
	maxConcurrent int

	// onSynced is invoked after a successful sync with the refreshed
	// device record; the engine hooks trigger evaluation here.
	onSynced func(dev device.ConnectedDevice, payload device.SyncPayload)

	// history optionally mirrors outcomes into time-series storage.
	history HistoryWriter

	wg sync.WaitGroup
}

// NewScheduler creates a sync scheduler.
//
// Parameters:
//   - registry: Device registry (source of truth and in-flight guard)
//   - logs: Bounded sync log store
//   - source: Transport-specific fetch, routed by the connection manager
func NewScheduler(registry *device.Registry, logs *LogStore, source Source) *Scheduler {
	return &Scheduler{
		registry:      registry,
		logs:          logs,
		source:        source,
		clk:           clock.System{},
		logger:        noopLogger{},
		maxConcurrent: 4,
	}
}

// SetLogger sets the logger for the scheduler.
func (s *Scheduler) SetLogger(logger Logger) {
	s.logger = logger
}

// SetClock replaces the scheduler's time source. Intended for tests.
func (s *Scheduler) SetClock(clk clock.Clock) {
	s.clk = clk
}

// SetMaxConcurrent bounds how many devices SyncAll touches at once.
func (s *Scheduler) SetMaxConcurrent(n int) {
	if n > 0 {
		s.maxConcurrent = n
	}
}

// SetOnSynced registers the hook invoked after each successful sync.
func (s *Scheduler) SetOnSynced(fn func(dev device.ConnectedDevice, payload device.SyncPayload)) {
	s.onSynced = fn
}

// SetHistoryWriter registers an optional time-series sink for outcomes.
func (s *Scheduler) SetHistoryWriter(w HistoryWriter) {
	s.history = w
}

// Run consumes ticks until the context is cancelled. Each tick scans for
// due devices and dispatches one sync per due device. Run blocks; callers
// start it in a goroutine. In-flight syncs are waited for on shutdown.
func (s *Scheduler) Run(ctx context.Context, ticker clock.Ticker) {
	defer ticker.Stop()
	defer s.wg.Wait()

	s.logger.Info("sync scheduler started")
	for {
		select {
		case <-ctx.Done():
			s.logger.Info("sync scheduler stopping")
			return
		case <-ticker.C():
			s.tick(ctx)
		}
	}
}

// tick scans all devices and dispatches syncs for the due ones.
func (s *Scheduler) tick(ctx context.Context) {
	now := s.clk.Now()
	for _, dev := range s.registry.List(ctx) {
		if !Due(dev, now) {
			continue
		}
		s.wg.Add(1)
		go func(id string) {
			defer s.wg.Done()
			if _, err := s.SyncDevice(ctx, id, SyncAuto); err != nil &&
				!errors.Is(err, device.ErrSyncInProgress) {
				s.logger.Warn("scheduled sync failed", "device_id", id, "error", err)
			}
		}(dev.ID)
	}
}

// Due reports whether a device should be synced at the given instant.
//
// A device is due when auto-sync is enabled, it is connected, its sync
// frequency is positive (zero means manual-only), and the elapsed time
// since the last sync meets or exceeds the frequency. A device that has
// never synced is immediately due.
func Due(dev device.ConnectedDevice, now time.Time) bool {
	if !dev.AutoSyncEnabled || dev.SyncFrequencyMinutes <= 0 {
		return false
	}
	if dev.ConnectionStatus != device.StatusConnected {
		return false
	}
	if dev.LastSyncAt == nil {
		return true
	}
	return now.Sub(*dev.LastSyncAt) >= time.Duration(dev.SyncFrequencyMinutes)*time.Minute
}

// SyncDevice performs one sync attempt for a device.
//
// It transitions the device to syncing (rejecting overlap with
// device.ErrSyncInProgress), performs the transport fetch, applies
// metadata and LastSyncAt, returns the device to connected, and appends
// exactly one log entry. If the device was disconnected mid-sync the
// fetched results are discarded and the entry records a failure, never a
// success.
//
// Returns:
//   - *SyncLogEntry: The appended entry (nil when the sync never started)
//   - error: device.ErrSyncInProgress when coalesced with an in-flight
//     sync, device.ErrDeviceNotFound for unknown devices, or a log
//     persistence failure. Transport errors are recorded, not returned.
func (s *Scheduler) SyncDevice(ctx context.Context, deviceID string, syncType SyncType) (*SyncLogEntry, error) {
	dev, err := s.registry.BeginSync(ctx, deviceID)
	if err != nil {
		return nil, err
	}

	start := s.clk.Now()
	payload, fetchErr := s.source.Fetch(ctx, *dev)

	entry := SyncLogEntry{
		ID:         GenerateID(),
		DeviceID:   dev.ID,
		DeviceName: dev.DeviceName,
		SyncType:   syncType,
	}

	switch {
	case fetchErr != nil:
		// Transport failure: device stays connected, next due cycle retries.
		if abortErr := s.registry.AbortSync(ctx, deviceID); abortErr != nil &&
			!errors.Is(abortErr, device.ErrDeviceNotFound) {
			s.logger.Error("restoring device after failed sync", "device_id", deviceID, "error", abortErr)
		}
		msg := fetchErr.Error()
		entry.Status = StatusFailed
		entry.ErrorMessage = &msg
		s.logger.Warn("sync transport failure", "device_id", deviceID, "error", fetchErr)

	default:
		applyErr := s.registry.CompleteSync(ctx, deviceID, payload.Metrics)
		switch {
		case errors.Is(applyErr, device.ErrDeviceNotFound):
			// Disconnected mid-sync: discard results.
			msg := "device removed during sync"
			entry.Status = StatusFailed
			entry.ErrorMessage = &msg
			s.logger.Info("sync discarded, device removed mid-sync", "device_id", deviceID)
		case applyErr != nil:
			msg := applyErr.Error()
			entry.Status = StatusFailed
			entry.ErrorMessage = &msg
			s.logger.Error("applying sync results", "device_id", deviceID, "error", applyErr)
		default:
			entry.Status = StatusSuccess
			entry.RecordsSynced = payload.RecordsSynced
			entry.HabitsUpdated = payload.HabitsTouched
		}
	}

	completed := s.clk.Now()
	entry.SyncedAt = completed
	entry.DurationMs = completed.Sub(start).Milliseconds()

	if err := s.logs.Append(ctx, entry); err != nil {
		return nil, err
	}

	if s.history != nil {
		s.history.RecordSync(entry, payload.Metrics)
	}

	if entry.Status == StatusSuccess && s.onSynced != nil {
		if refreshed, getErr := s.registry.Get(ctx, deviceID); getErr == nil {
			s.onSynced(*refreshed, payload)
		}
	}

	s.logger.Debug("sync complete",
		"device_id", deviceID,
		"status", entry.Status,
		"records", entry.RecordsSynced,
		"duration_ms", entry.DurationMs,
	)

	return &entry, nil
}

// SyncAll synchronises every currently connected device.
//
// Devices are synced concurrently up to the configured limit, but the
// per-device in-flight guard still ensures no device sees two overlapping
// syncs. Devices already syncing are counted as skipped.
func (s *Scheduler) SyncAll(ctx context.Context, syncType SyncType) Summary {
	var (
		mu      sync.Mutex
		summary Summary
	)

	g, gctx := errgroup.WithContext(ctx)
	g.SetLimit(s.maxConcurrent)

	for _, dev := range s.registry.ListByStatus(ctx, device.StatusConnected) {
		id := dev.ID
		g.Go(func() error {
			entry, err := s.SyncDevice(gctx, id, syncType)

			mu.Lock()
			defer mu.Unlock()
			switch {
			case errors.Is(err, device.ErrSyncInProgress):
				summary.Skipped++
			case err != nil:
				summary.Failed++
			case entry.Status == StatusSuccess:
				summary.Synced++
			default:
				summary.Failed++
			}
			return nil
		})
	}

	// Workers never return errors; they fold outcomes into the summary.
	_ = g.Wait()

	s.logger.Info("sync all complete",
		"synced", summary.Synced,
		"failed", summary.Failed,
		"skipped", summary.Skipped,
	)
	return summary
}
