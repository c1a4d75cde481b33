package tracker

import (
	"sync"
	"time"
)

// Clock supplies wall-clock instants.
type Clock interface {
	Now() time.Time
}

// SystemClock reads the real wall clock.
type SystemClock struct{}

func (SystemClock) Now() time.Time { return time.Now() }

// ManualClock is a clock advanced explicitly, for replays and tests.
type ManualClock struct {
	mu  sync.Mutex
	now time.Time
}

// NewManualClock returns a clock frozen at start.
func NewManualClock(start time.Time) *ManualClock {
	return &ManualClock{now: start}
}

func (c *ManualClock) Now() time.Time {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.now
}

// Advance moves the clock forward by d.
func (c *ManualClock) Advance(d time.Duration) {
	c.mu.Lock()
	c.now = c.now.Add(d)
	c.mu.Unlock()
}

// Set moves the clock to t. Moving backwards is ignored.
func (c *ManualClock) Set(t time.Time) {
	c.mu.Lock()
	if t.After(c.now) {
		c.now = t
	}
	c.mu.Unlock()
}

// VisibilityTracker measures active time: wall-clock time since Begin minus
// every interval the tab spent hidden. While hidden the value is frozen.
//
// When the visibility API is unavailable the tracker treats the tab as
// always visible and never pauses.
type VisibilityTracker struct {
	clock     Clock
	supported bool

	started     bool
	start       time.Time
	hidden      bool
	pauseStart  time.Time
	pausedTotal time.Duration
}

// NewVisibilityTracker builds a tracker. A nil clock falls back to the system clock.
func NewVisibilityTracker(clock Clock, supported bool) *VisibilityTracker {
	if clock == nil {
		clock = SystemClock{}
	}
	return &VisibilityTracker{clock: clock, supported: supported}
}

// Begin records the session start. If the tab starts hidden the tracker
// enters the paused state immediately.
func (v *VisibilityTracker) Begin(hidden bool) {
	v.start = v.clock.Now()
	v.started = true
	v.pausedTotal = 0
	v.hidden = false
	if hidden && v.supported {
		v.hidden = true
		v.pauseStart = v.start
	}
}

// SetHidden applies a visibility change. Repeated signals for the current
// state are ignored.
func (v *VisibilityTracker) SetHidden(hidden bool) {
	if !v.started || !v.supported || hidden == v.hidden {
		return
	}
	now := v.clock.Now()
	if hidden {
		v.pauseStart = now
		v.hidden = true
		return
	}
	if paused := now.Sub(v.pauseStart); paused > 0 {
		v.pausedTotal += paused
	}
	v.pauseStart = time.Time{}
	v.hidden = false
}

// Hidden reports whether the tab is currently hidden.
func (v *VisibilityTracker) Hidden() bool { return v.hidden }

// Start returns the wall-clock instant Begin was called.
func (v *VisibilityTracker) Start() time.Time { return v.start }

// PausedTotal returns completed hidden intervals.
func (v *VisibilityTracker) PausedTotal() time.Duration { return v.pausedTotal }

// ActiveDuration returns visible time since Begin.
func (v *VisibilityTracker) ActiveDuration() time.Duration {
	if !v.started {
		return 0
	}
	now := v.clock.Now()
	if v.hidden {
		now = v.pauseStart
	}
	d := now.Sub(v.start) - v.pausedTotal
	if d < 0 {
		return 0
	}
	return d
}
