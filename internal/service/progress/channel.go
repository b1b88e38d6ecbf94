package progress

import (
	"context"
	"errors"
	"sync"
	"time"

	"MarketPulse/internal/domain/models"
)

var (
	ErrChannelClosed     = errors.New("progress channel already received its terminal event")
	ErrProgressRegressed = errors.New("progress percent must not decrease")
	ErrProgressRange     = errors.New("progress percent must be within [0, 100]")
	ErrIdleTimeout       = errors.New("no progress event within idle timeout")
)

// Channel is an unbounded FIFO of progress events for one job. It has one
// producer (the analysis run) and one consumer (the stream endpoint).
// Publish never blocks. At most one terminal event is accepted and nothing
// may follow it.
type Channel struct {
	mu      sync.Mutex
	queue   []models.ProgressEvent
	notify  chan struct{}
	last    int
	sealed  bool
	claimed bool
	touched time.Time
	now     func() time.Time
}

func newChannel(now func() time.Time) *Channel {
	return &Channel{
		notify:  make(chan struct{}, 1),
		now:     now,
		touched: now(),
	}
}

// Publish appends ev to the queue.
func (c *Channel) Publish(ev models.ProgressEvent) error {
	c.mu.Lock()
	if c.sealed {
		c.mu.Unlock()
		return ErrChannelClosed
	}
	if ev.Percent < 0 || ev.Percent > 100 {
		c.mu.Unlock()
		return ErrProgressRange
	}
	if ev.Percent < c.last {
		c.mu.Unlock()
		return ErrProgressRegressed
	}
	c.last = ev.Percent
	c.sealed = ev.Terminal()
	c.queue = append(c.queue, ev)
	c.touched = c.now()
	c.mu.Unlock()

	select {
	case c.notify <- struct{}{}:
	default:
	}
	return nil
}

// Next pops the oldest event, waiting up to idle for one to arrive.
// It returns ErrIdleTimeout when the wait elapses and ctx.Err() when ctx ends.
func (c *Channel) Next(ctx context.Context, idle time.Duration) (models.ProgressEvent, error) {
	timer := time.NewTimer(idle)
	defer timer.Stop()

	for {
		if ev, ok := c.pop(); ok {
			return ev, nil
		}
		select {
		case <-c.notify:
		case <-timer.C:
			// an event may have raced the timer
			if ev, ok := c.pop(); ok {
				return ev, nil
			}
			return models.ProgressEvent{}, ErrIdleTimeout
		case <-ctx.Done():
			return models.ProgressEvent{}, ctx.Err()
		}
	}
}

func (c *Channel) pop() (models.ProgressEvent, bool) {
	c.mu.Lock()
	defer c.mu.Unlock()
	if len(c.queue) == 0 {
		return models.ProgressEvent{}, false
	}
	ev := c.queue[0]
	c.queue[0] = models.ProgressEvent{}
	c.queue = c.queue[1:]
	c.touched = c.now()
	return ev, true
}

// claim marks the channel as owned by a consumer. It fails if another
// consumer got there first.
func (c *Channel) claim() bool {
	c.mu.Lock()
	defer c.mu.Unlock()
	if c.claimed {
		return false
	}
	c.claimed = true
	c.touched = c.now()
	return true
}

// Sealed reports whether the terminal event has been published.
func (c *Channel) Sealed() bool {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.sealed
}

func (c *Channel) idleSince() time.Time {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.touched
}
