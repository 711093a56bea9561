// Package monitor owns the monitoring session lifecycle: one filter
// active at a time, cycles fired on a fixed interval, start/stop safe to
// call concurrently with a running cycle.
package monitor

import (
	"context"
	"errors"
	"fmt"
	"log"
	"sync"
	"time"

	"github.com/fernandez-a/Tori-monitor/internal/model"
)

// CycleFunc runs one poll→reconcile→notify pass for a filter. It must
// honour ctx: a cancelled cycle may finish its fetch but must return
// before writing state.
type CycleFunc func(ctx context.Context, f model.Filter) error

// Controller is the session state machine. Idle until Start, Running
// until Stop or a superseding Start. At most one cycle per session is in
// flight; Start waits for the previous session to acknowledge
// cancellation before launching the next, so two cycles can never write
// to the same scope concurrently.
type Controller struct {
	mu       sync.Mutex
	interval time.Duration
	cycle    CycleFunc
	sess     *session
}

type session struct {
	filter model.Filter
	cancel context.CancelFunc
	done   chan struct{}
}

// NewController constructs an idle Controller firing cycle every
// interval while running.
func NewController(interval time.Duration, cycle CycleFunc) *Controller {
	return &Controller{interval: interval, cycle: cycle}
}

// Start begins monitoring f, superseding any active session. The
// previous session's cycle is cancelled and drained first. Returns a
// human-readable status line for the control surface.
func (c *Controller) Start(f model.Filter) string {
	c.mu.Lock()
	defer c.mu.Unlock()

	if c.sess != nil {
		c.sess.cancel()
		<-c.sess.done
		c.sess = nil
	}

	ctx, cancel := context.WithCancel(context.Background())
	s := &session{filter: f, cancel: cancel, done: make(chan struct{})}
	c.sess = s
	go c.run(ctx, s)

	return fmt.Sprintf("Monitoring started for items priced between %d and %d in %s!",
		f.MinPrice, f.MaxPrice, f.Location)
}

// Stop ends the active session, waiting for its cycle to drain. A Stop
// while idle is a no-op that says so.
func (c *Controller) Stop() string {
	c.mu.Lock()
	defer c.mu.Unlock()

	if c.sess == nil {
		return "Monitoring is not currently active."
	}
	c.sess.cancel()
	<-c.sess.done
	c.sess = nil
	return "Monitoring has been stopped."
}

// Active returns the filter of the running session, if any.
func (c *Controller) Active() (model.Filter, bool) {
	c.mu.Lock()
	defer c.mu.Unlock()
	if c.sess == nil {
		return model.Filter{}, false
	}
	return c.sess.filter, true
}

// run fires an immediate first cycle, then one per tick, until the
// session context is cancelled.
func (c *Controller) run(ctx context.Context, s *session) {
	defer close(s.done)
	log.Printf("[monitor] session started for %s (every %s)", s.filter, c.interval)

	c.runCycle(ctx, s.filter)

	t := time.NewTicker(c.interval)
	defer t.Stop()
	for {
		select {
		case <-ctx.Done():
			log.Printf("[monitor] session for %s ended", s.filter)
			return
		case <-t.C:
			c.runCycle(ctx, s.filter)
		}
	}
}

// runCycle executes one cycle. Cycle failures are logged, never fatal:
// the next tick retries.
func (c *Controller) runCycle(ctx context.Context, f model.Filter) {
	if ctx.Err() != nil {
		return
	}
	if err := c.cycle(ctx, f); err != nil {
		if errors.Is(err, context.Canceled) {
			log.Printf("[monitor] cycle for %s cancelled before writes", f)
			return
		}
		log.Printf("[monitor] cycle for %s failed: %v — retrying next tick", f, err)
	}
}
