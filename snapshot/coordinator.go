package snapshot

import (
	"context"
	"log/slog"
	"sync"
	"time"

	"github.com/hanksha/camping-booking-backend/aggregate"
	"github.com/hanksha/camping-booking-backend/booking"
)

// Snapshot is a full authoritative view stamped with the time the server
// produced it.
type Snapshot struct {
	View       aggregate.View `json:"view"`
	ServerTime time.Time      `json:"serverTime"`
}

type Source interface {
	Fetch(ctx context.Context) (Snapshot, error)
}

// Rollback reports an optimistic status the authoritative snapshot did not
// confirm.
type Rollback struct {
	BookingID     string
	Optimistic    booking.Status
	Authoritative booking.Status
}

// Coordinator keeps a local view in step with the authoritative source. All
// refreshes run on the Run goroutine, so two refreshes never overlap. Pushed
// snapshots and polled ones go through the same stale check.
type Coordinator struct {
	source   Source
	interval time.Duration
	trigger  chan struct{}
	logger   *slog.Logger

	mu         sync.RWMutex
	current    Snapshot
	applied    bool
	stopped    bool
	overlay    map[string]optimistic
	seq        uint64
	onRollback func(Rollback)
}

// optimistic is an overlaid status. seq orders it against the fetches that
// started before it was applied.
type optimistic struct {
	status booking.Status
	seq    uint64
}

// judgeAll marks a snapshot that settles every overlay, whenever it was
// applied.
const judgeAll = ^uint64(0)

func NewCoordinator(source Source, interval time.Duration, logger *slog.Logger) *Coordinator {
	if interval <= 0 {
		interval = 30 * time.Second
	}

	return &Coordinator{
		source:   source,
		interval: interval,
		trigger:  make(chan struct{}, 1),
		logger:   logger.With("component", "snapshot"),
		overlay:  map[string]optimistic{},
	}
}

// OnRollback registers a callback run for every rolled back optimistic
// status. It is called outside the coordinator lock.
func (c *Coordinator) OnRollback(fn func(Rollback)) {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.onRollback = fn
}

// Run refreshes once, then on every tick and every trigger until ctx is done.
// After it returns the coordinator accepts no more snapshots.
func (c *Coordinator) Run(ctx context.Context) error {
	defer c.stop()

	ticker := time.NewTicker(c.interval)
	defer ticker.Stop()

	c.refresh(ctx)

	for {
		select {
		case <-ctx.Done():
			return nil
		case <-ticker.C:
			c.refresh(ctx)
		case <-c.trigger:
			c.refresh(ctx)
		}
	}
}

// Trigger asks for a refresh. Triggers that arrive while one is pending are
// folded into it.
func (c *Coordinator) Trigger() {
	select {
	case c.trigger <- struct{}{}:
	default:
	}
}

// Push applies a snapshot received from the real-time channel. It reports
// whether the snapshot was applied.
func (c *Coordinator) Push(ctx context.Context, snap Snapshot) bool {
	return c.apply(ctx, snap, judgeAll)
}

func (c *Coordinator) HandleBookingEvent(_ context.Context, _ booking.DomainEvent) {
	c.Trigger()
}

// View returns the current view with optimistic statuses laid over it, and
// the server time of the snapshot it is based on. Stats are the
// authoritative ones.
func (c *Coordinator) View() (aggregate.View, time.Time) {
	c.mu.RLock()
	defer c.mu.RUnlock()

	view := c.current.View
	view.Bookings = make([]booking.Booking, len(c.current.View.Bookings))
	copy(view.Bookings, c.current.View.Bookings)

	for i, b := range view.Bookings {
		if o, ok := c.overlay[b.ID]; ok {
			view.Bookings[i].Status = o.status
		}
	}

	return view, c.current.ServerTime
}

// ApplyOptimistic shows status for a booking until an authoritative snapshot
// fetched after this call replaces it.
func (c *Coordinator) ApplyOptimistic(id string, status booking.Status) bool {
	c.mu.Lock()
	defer c.mu.Unlock()

	if c.stopped {
		return false
	}

	for _, b := range c.current.View.Bookings {
		if b.ID == id {
			c.seq++
			c.overlay[id] = optimistic{status: status, seq: c.seq}
			return true
		}
	}

	return false
}

func (c *Coordinator) refresh(ctx context.Context) {
	c.mu.RLock()
	seen := c.seq
	c.mu.RUnlock()

	snap, err := c.source.Fetch(ctx)

	if err != nil {
		if ctx.Err() == nil {
			c.logger.Warn("snapshot refresh failed", "error", err)
		}
		return
	}

	c.apply(ctx, snap, seen)
}

// apply replaces the current snapshot. Overlays applied after sequence seen
// were not visible to the fetch that produced snap and are kept.
func (c *Coordinator) apply(ctx context.Context, snap Snapshot, seen uint64) bool {
	c.mu.Lock()

	if c.stopped || ctx.Err() != nil {
		c.mu.Unlock()
		return false
	}

	if c.applied && snap.ServerTime.Before(c.current.ServerTime) {
		current := c.current.ServerTime
		c.mu.Unlock()
		c.logger.Debug("discarding stale snapshot", "serverTime", snap.ServerTime, "current", current)
		return false
	}

	rollbacks := []Rollback{}
	pending := map[string]optimistic{}

	for id, o := range c.overlay {
		if o.seq > seen {
			pending[id] = o
			continue
		}
		for _, b := range snap.View.Bookings {
			if b.ID == id && b.Status != o.status {
				rollbacks = append(rollbacks, Rollback{BookingID: id, Optimistic: o.status, Authoritative: b.Status})
			}
		}
	}

	c.current = snap
	c.applied = true
	c.overlay = pending
	onRollback := c.onRollback

	c.mu.Unlock()

	for _, r := range rollbacks {
		c.logger.Info("optimistic status rolled back", "bookingId", r.BookingID, "optimistic", r.Optimistic, "authoritative", r.Authoritative)
		if onRollback != nil {
			onRollback(r)
		}
	}

	return true
}

func (c *Coordinator) stop() {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.stopped = true
}
