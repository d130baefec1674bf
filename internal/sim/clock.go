package sim

import (
	"context"
	"log"
	"sync"
	"time"
)

// DefaultTickPeriod is the real-time period between simulation ticks.
const DefaultTickPeriod = 100 * time.Millisecond

// Clock owns the virtual timestamp of a simulation run. While running, each
// real tick period advances virtual time by period × multiplier. The clock
// only ever moves forward; Reset is the single rewind, back to the initial
// timestamp set at load.
type Clock struct {
	mu         sync.Mutex
	period     time.Duration
	multiplier float64
	initial    time.Time
	current    time.Time
	running    bool
	cancel     context.CancelFunc
	onTick     func(time.Time)
}

// NewClock creates a stopped clock ticking at the given real-time period.
func NewClock(period time.Duration, onTick func(time.Time)) *Clock {
	if period <= 0 {
		period = DefaultTickPeriod
	}
	return &Clock{
		period:     period,
		multiplier: 1,
		onTick:     onTick,
	}
}

// SetInitial pins the initial virtual timestamp (the earliest departure
// across the loaded trains) and rewinds the current time to it.
func (c *Clock) SetInitial(t time.Time) {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.initial = t
	c.current = t
}

// Now returns the current virtual timestamp; ok is false before any
// schedule has been loaded.
func (c *Clock) Now() (time.Time, bool) {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.current, !c.current.IsZero()
}

// Running reports whether the clock is advancing.
func (c *Clock) Running() bool {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.running
}

// Multiplier returns the current speed multiplier.
func (c *Clock) Multiplier() float64 {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.multiplier
}

// SetSpeed changes the speed multiplier. Takes effect on the next tick;
// already-elapsed virtual time is never rescaled. Non-positive values are
// ignored.
func (c *Clock) SetSpeed(multiplier float64) {
	if multiplier <= 0 {
		return
	}
	c.mu.Lock()
	defer c.mu.Unlock()
	c.multiplier = multiplier
}

// Start begins advancing virtual time. No-op when already running or when
// no initial timestamp has been set.
func (c *Clock) Start(ctx context.Context) {
	c.mu.Lock()
	if c.running || c.current.IsZero() {
		c.mu.Unlock()
		return
	}
	ctx, cancel := context.WithCancel(ctx)
	c.cancel = cancel
	c.running = true
	period := c.period
	c.mu.Unlock()

	go func() {
		ticker := time.NewTicker(period)
		defer ticker.Stop()

		for {
			select {
			case <-ticker.C:
				c.tick()
			case <-ctx.Done():
				log.Println("Clock: tick loop stopped")
				return
			}
		}
	}()
}

// tick advances virtual time by one period and notifies the orchestrator.
// Ticks never overlap: a single goroutine runs them sequentially.
func (c *Clock) tick() {
	c.mu.Lock()
	if !c.running {
		c.mu.Unlock()
		return
	}
	c.current = c.current.Add(time.Duration(float64(c.period) * c.multiplier))
	now := c.current
	onTick := c.onTick
	c.mu.Unlock()

	if onTick != nil {
		onTick(now)
	}
}

// Advance moves virtual time forward by the given virtual duration and runs
// one tick callback. Used by tests and single-step control.
func (c *Clock) Advance(d time.Duration) {
	c.mu.Lock()
	if c.current.IsZero() || d < 0 {
		c.mu.Unlock()
		return
	}
	c.current = c.current.Add(d)
	now := c.current
	onTick := c.onTick
	c.mu.Unlock()

	if onTick != nil {
		onTick(now)
	}
}

// Stop halts future ticks. The last computed state stays readable.
func (c *Clock) Stop() {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.stopLocked()
}

func (c *Clock) stopLocked() {
	if c.cancel != nil {
		c.cancel()
		c.cancel = nil
	}
	c.running = false
}

// Reset stops the clock and rewinds virtual time to the initial timestamp.
// It does not reload data; with nothing loaded it is a no-op.
func (c *Clock) Reset() {
	c.mu.Lock()
	defer c.mu.Unlock()
	if c.initial.IsZero() {
		return
	}
	c.stopLocked()
	c.current = c.initial
}
