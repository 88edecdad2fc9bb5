package refresh

import (
	"context"
	"errors"
	"time"

	"github.com/timmy/doctranslate/internal/logger"
)

// Trigger carries "a file was just uploaded" events from the upload form to
// the coordinator. Notify never blocks: pending events coalesce into the most
// recent one, since any refresh replaces the whole snapshot anyway.
type Trigger struct {
	ch chan time.Time
}

// NewTrigger creates a Trigger with room for one pending event.
func NewTrigger() *Trigger {
	return &Trigger{ch: make(chan time.Time, 1)}
}

// Notify records that a refresh targeting t's day is needed.
func (t *Trigger) Notify(at time.Time) {
	for {
		select {
		case t.ch <- at:
			return
		default:
		}
		select {
		case <-t.ch:
		default:
		}
	}
}

// C returns the channel of pending refresh targets.
func (t *Trigger) C() <-chan time.Time {
	return t.ch
}

// Run drives the coordinator until ctx is done: an initial fetch of the
// cursor's day, a same-day Refresh every interval when interval > 0, and a
// Refresh targeting the event time for every trigger event.
// trigger may be nil.
func (c *Coordinator) Run(ctx context.Context, interval time.Duration, trigger *Trigger) error {
	ctx = logger.SetComponent(ctx, "refresh")
	c.runOnce(ctx, nil)

	var tick <-chan time.Time
	if interval > 0 {
		ticker := time.NewTicker(interval)
		defer ticker.Stop()
		tick = ticker.C
	}
	var uploads <-chan time.Time
	if trigger != nil {
		uploads = trigger.C()
	}

	for {
		select {
		case <-ctx.Done():
			return nil
		case <-tick:
			c.runOnce(ctx, nil)
		case at := <-uploads:
			logger.CtxDebug(ctx, "Upload event received, refreshing list")
			c.runOnce(ctx, &at)
		}
	}
}

func (c *Coordinator) runOnce(ctx context.Context, target *time.Time) {
	err := c.Refresh(ctx, target)
	switch {
	case err == nil, errors.Is(err, ErrSuperseded), errors.Is(err, ErrClosed):
	case ctx.Err() != nil:
	default:
		// Already recorded in State. Nothing retries it; the next scheduled poll is an ordinary fetch.
		logger.FromContext(ctx).WithError(err).Debug("Refresh loop fetch failed")
	}
}
