package logview

import (
	"context"
	"time"

	"github.com/ymghtzz/LMeterX-sub000/internal/localstore"
	"github.com/ymghtzz/LMeterX-sub000/internal/metrics"
)

// CoordinationWindow is how fresh another process's poll stamp must be for
// this process to defer instead of starting its own poller.
const CoordinationWindow = 25 * time.Second

// Coordinator de-duplicates polling across console processes viewing the
// same log target. It is optimistic and advisory: two processes that check
// within the same narrow window can both decide to poll, and that is
// accepted rather than locked against.
type Coordinator struct {
	store  *localstore.Store
	window time.Duration
	now    func() time.Time
}

// CoordinatorOption configures a Coordinator.
type CoordinatorOption func(*Coordinator)

// WithWindow overrides the freshness window (tests).
func WithWindow(d time.Duration) CoordinatorOption {
	return func(c *Coordinator) {
		c.window = d
	}
}

// WithCoordinatorClock overrides the time source (tests).
func WithCoordinatorClock(now func() time.Time) CoordinatorOption {
	return func(c *Coordinator) {
		c.now = now
	}
}

// NewCoordinator creates a coordinator backed by the shared local store.
func NewCoordinator(store *localstore.Store, opts ...CoordinatorOption) *Coordinator {
	c := &Coordinator{
		store:  store,
		window: CoordinationWindow,
		now:    time.Now,
	}
	for _, opt := range opts {
		opt(c)
	}
	return c
}

// ShouldStart reports whether this process may start a poller for the
// target. A stamp younger than the window means another process is already
// polling, so this one defers. Store errors fail open: coordination is an
// optimization, never a reason to refuse to poll.
func (c *Coordinator) ShouldStart(ctx context.Context, target Target) bool {
	stamp, ok, err := c.store.PollStamp(ctx, target.Key())
	if err != nil || !ok {
		return true
	}
	if c.now().Sub(stamp) < c.window {
		metrics.RecordPollDeferral()
		return false
	}
	return true
}

// Touch refreshes the shared stamp; the active poller calls this every tick
// so other processes keep deferring.
func (c *Coordinator) Touch(ctx context.Context, target Target) error {
	return c.store.RefreshPollStamp(ctx, target.Key(), c.now())
}
