package offline

import (
	"context"
	"fmt"
	"sync"
	"time"

	"github.com/google/uuid"

	"github.com/pulsehabit/devicelink/internal/clock"
	"github.com/pulsehabit/devicelink/internal/store"
)

// QueueItem is one action captured while the backing network was
// unreachable. Items are replayed strictly in enqueue order.
type QueueItem struct {
	ID               string         `json:"id"`
	Action           map[string]any `json:"action"`
	CreatedOfflineAt time.Time      `json:"createdOfflineAt"`
}

// Replayer applies a queued action against its intended destination (the
// backend collaborator). Replays are at-least-once; the backend is
// expected to tolerate duplicate application.
type Replayer interface {
	Replay(ctx context.Context, item QueueItem) error
}

// Logger defines the logging interface used by the Queue.
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

// Queue is the durable FIFO of actions attempted while offline.
//
// Enqueue is permitted regardless of connectivity. Drain replays items in
// strict enqueue order and clears the queue only after every item has
// been replayed without error; a partial failure leaves the failing item
// and everything behind it queued for the next drain. At most one drain
// runs at a time; a second trigger while one is in progress is a no-op.
//
// All public methods are thread-safe.
type Queue struct {
	st       store.Store
	replayer Replayer
	logger   Logger
	clk      clock.Clock

	mu       sync.Mutex
	items    []QueueItem
	draining bool
}

// NewQueue creates an offline queue backed by the given store.
func NewQueue(st store.Store, replayer Replayer) *Queue {
	return &Queue{
		st:       st,
		replayer: replayer,
		logger:   noopLogger{},
		clk:      clock.System{},
	}
}

// SetLogger sets the logger for the queue.
func (q *Queue) SetLogger(logger Logger) {
	q.logger = logger
}

// SetClock replaces the queue's time source. Intended for tests.
func (q *Queue) SetClock(clk clock.Clock) {
	q.clk = clk
}

// Load reads the persisted queue into memory.
// This should be called once at engine startup.
func (q *Queue) Load(ctx context.Context) error {
	items, err := store.LoadCollection[QueueItem](ctx, q.st, store.KeyOfflineQueue)
	if err != nil {
		return fmt.Errorf("loading offline queue: %w", err)
	}

	q.mu.Lock()
	defer q.mu.Unlock()
	q.items = items
	return nil
}

// Enqueue appends an action, stamping it with the current time.
func (q *Queue) Enqueue(ctx context.Context, action map[string]any) error {
	item := QueueItem{
		ID:               uuid.NewString(),
		Action:           action,
		CreatedOfflineAt: q.clk.Now(),
	}

	q.mu.Lock()
	defer q.mu.Unlock()

	prev := q.items
	q.items = append(append([]QueueItem{}, q.items...), item)
	if err := store.SaveCollection(ctx, q.st, store.KeyOfflineQueue, q.items); err != nil {
		q.items = prev
		return err
	}

	q.logger.Debug("action queued offline", "item_id", item.ID, "depth", len(q.items))
	return nil
}

// Drain replays queued items in FIFO order.
//
// Each successfully replayed item is removed and the remainder persisted,
// so a crash mid-drain never replays from the beginning. The first
// failure stops the drain with ErrReplayFailed; unreplayed items stay
// queued for the next connectivity-restored event or manual trigger.
//
// Returns ErrDrainInProgress if another drain is running; callers
// reacting to connectivity events treat that as a no-op.
func (q *Queue) Drain(ctx context.Context) error {
	q.mu.Lock()
	if q.draining {
		q.mu.Unlock()
		return ErrDrainInProgress
	}
	q.draining = true
	q.mu.Unlock()

	defer func() {
		q.mu.Lock()
		q.draining = false
		q.mu.Unlock()
	}()

	replayed := 0
	for {
		q.mu.Lock()
		if len(q.items) == 0 {
			q.mu.Unlock()
			break
		}
		head := q.items[0]
		q.mu.Unlock()

		if err := q.replayer.Replay(ctx, head); err != nil {
			q.logger.Warn("replay failed, item retained",
				"item_id", head.ID,
				"replayed", replayed,
				"error", err,
			)
			return fmt.Errorf("%w: item %s: %w", ErrReplayFailed, head.ID, err)
		}

		q.mu.Lock()
		// Head is only ever removed here, so index 0 is still our item.
		q.items = q.items[1:]
		persistErr := store.SaveCollection(ctx, q.st, store.KeyOfflineQueue, q.items)
		q.mu.Unlock()
		if persistErr != nil {
			return persistErr
		}
		replayed++
	}

	if replayed > 0 {
		q.logger.Info("offline queue drained", "replayed", replayed)
	}
	return nil
}

// Len returns the number of queued items.
func (q *Queue) Len() int {
	q.mu.Lock()
	defer q.mu.Unlock()
	return len(q.items)
}

// Items returns a snapshot of the queue in enqueue order.
func (q *Queue) Items() []QueueItem {
	q.mu.Lock()
	defer q.mu.Unlock()

	out := make([]QueueItem, len(q.items))
	copy(out, q.items)
	return out
}
