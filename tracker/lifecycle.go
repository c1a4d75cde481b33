package tracker

import (
	"context"
	"errors"
	"fmt"
	"log"
	"math"
	"time"

	"leadmagnet/api/models"
)

// State is a lifecycle state of a Controller.
type State int

const (
	StateIdle State = iota
	StateTracking
	StateStopped
)

func (s State) String() string {
	switch s {
	case StateIdle:
		return "idle"
	case StateTracking:
		return "tracking"
	case StateStopped:
		return "stopped"
	default:
		return fmt.Sprintf("State(%d)", int(s))
	}
}

// Trigger names an input that may move the controller between states.
type Trigger string

const (
	TriggerStart      Trigger = "start"
	TriggerVisibility Trigger = "visibility"
	TriggerScroll     Trigger = "scroll"
	TriggerTick       Trigger = "tick"
	TriggerCap        Trigger = "cap"
	TriggerUnmount    Trigger = "unmount"
	TriggerUnload     Trigger = "unload"
)

// transitions is the complete transition table. Inputs missing for a state
// are ignored. Stopped is terminal; exit triggers loop on it.
var transitions = map[State]map[Trigger]State{
	StateIdle: {
		TriggerStart:   StateTracking,
		TriggerUnmount: StateStopped,
		TriggerUnload:  StateStopped,
	},
	StateTracking: {
		TriggerVisibility: StateTracking,
		TriggerScroll:     StateTracking,
		TriggerTick:       StateTracking,
		TriggerCap:        StateStopped,
		TriggerUnmount:    StateStopped,
		TriggerUnload:     StateStopped,
	},
	StateStopped: {
		TriggerCap:     StateStopped,
		TriggerUnmount: StateStopped,
		TriggerUnload:  StateStopped,
	},
}

var (
	ErrAlreadyStarted = errors.New("tracker: session already started")
	ErrNotTracking    = errors.New("tracker: controller is not tracking")
)

// SessionInfo is the page context captured with every session.
type SessionInfo struct {
	DocumentID string
	UserID     string
	Email      string
	UserAgent  string
	Referrer   string
	Viewport   models.Viewport
	Paragraphs []ParagraphBounds
}

// Options wires a Controller to its collaborators.
type Options struct {
	Config    Config
	Clock     Clock
	Storage   Storage
	Transport *Transport
	Mode      SamplerMode
	// VisibilityUnavailable makes the tracker treat the tab as always visible.
	VisibilityUnavailable bool
}

// Controller owns one page load's observation of one document. It is driven
// by synthetic or real events and is not safe for concurrent use; Run
// serializes events when a live event loop is needed.
type Controller struct {
	cfg       Config
	clock     Clock
	storage   Storage
	transport *Transport
	info      SessionInfo

	state      State
	flushed    bool
	stopReason Trigger

	visibility *VisibilityTracker
	sampler    *ScrollSampler
	dwell      *DwellBucketer
	pixels     *PixelBinner
	paragraphs *ParagraphTracker

	sessionID string
	browserID string
	startTime time.Time
	record    *models.RawSession
}

func NewController(info SessionInfo, opts Options) *Controller {
	cfg := opts.Config.withDefaults()
	clock := opts.Clock
	if clock == nil {
		clock = SystemClock{}
	}

	var sampler *ScrollSampler
	if opts.Mode == ContainerScroll {
		sampler = NewContainerSampler(clock, cfg.ScrollThrottle, cfg.ContainerLogLimit)
	} else {
		sampler = NewPageSampler(clock, cfg.ScrollThrottle)
	}
	sampler.record = cfg.RecordScrollEvents

	return &Controller{
		cfg:        cfg,
		clock:      clock,
		storage:    opts.Storage,
		transport:  opts.Transport,
		info:       info,
		state:      StateIdle,
		visibility: NewVisibilityTracker(clock, !opts.VisibilityUnavailable),
		sampler:    sampler,
		dwell:      NewDwellBucketer(),
		pixels:     NewPixelBinner(cfg.PixelBinHeight),
		paragraphs: NewParagraphTracker(info.Paragraphs),
	}
}

func (c *Controller) fire(t Trigger) bool {
	next, ok := transitions[c.state][t]
	if !ok {
		return false
	}
	c.state = next
	return true
}

// Start begins tracking. If the tab starts hidden the session begins paused.
func (c *Controller) Start(hidden bool) error {
	if c.state != StateIdle {
		return ErrAlreadyStarted
	}
	c.fire(TriggerStart)
	c.browserID = DeviceID(c.storage)
	c.sessionID = NewSessionID()
	c.startTime = c.clock.Now()
	c.visibility.Begin(hidden)
	c.paragraphs.Begin(float64(c.info.Viewport.Height))
	return nil
}

// HandleVisibility applies a tab visibility change.
func (c *Controller) HandleVisibility(hidden bool) {
	if !c.fire(TriggerVisibility) {
		return
	}
	c.visibility.SetHidden(hidden)
	c.enforceCap()
}

// HandleScroll applies a scroll signal. Signals while hidden are ignored.
func (c *Controller) HandleScroll(src ScrollSource) {
	if !c.fire(TriggerScroll) {
		return
	}
	ev, ok := c.sampler.Sample(src, c.visibility.Hidden())
	if !ok {
		return
	}
	active := c.ActiveDuration()
	c.dwell.Observe(ev.Percentage, active)
	c.pixels.Observe(ev.Position, active)
	c.paragraphs.Observe(ev.Position, ev.ViewportHeight, active)
	c.enforceCap()
}

// Tick is the periodic (about one second) heartbeat.
func (c *Controller) Tick() {
	if !c.fire(TriggerTick) {
		return
	}
	if !c.visibility.Hidden() {
		active := c.ActiveDuration()
		c.dwell.Tick(c.sampler.Current(), active)
		c.pixels.Tick(c.sampler.Position(), active)
		c.paragraphs.Tick(active)
	}
	c.enforceCap()
}

func (c *Controller) enforceCap() {
	if c.state != StateTracking {
		return
	}
	if c.visibility.ActiveDuration() >= c.cfg.SessionCap {
		if err := c.stop(context.Background(), TriggerCap, DeliveryNormal); err != nil {
			log.Printf("tracker: session %s reached the cap but was not delivered: %v", c.sessionID, err)
		}
	}
}

// Unmount stops tracking on in-app navigation and delivers synchronously.
func (c *Controller) Unmount(ctx context.Context) error {
	return c.stop(ctx, TriggerUnmount, DeliveryNormal)
}

// Unload stops tracking on page teardown with fire-and-forget delivery.
func (c *Controller) Unload() {
	_ = c.stop(context.Background(), TriggerUnload, DeliveryDegraded)
}

// stop flushes the session exactly once no matter how many exit triggers arrive.
func (c *Controller) stop(ctx context.Context, t Trigger, mode DeliveryMode) error {
	wasTracking := c.state == StateTracking
	if !c.fire(t) || c.flushed || !wasTracking {
		return nil
	}
	c.flushed = true
	c.stopReason = t

	active := c.ActiveDuration()
	c.dwell.Tick(c.sampler.Current(), active)
	c.pixels.Tick(c.sampler.Position(), active)
	c.paragraphs.Tick(active)
	c.record = c.buildSession(active)

	if c.transport == nil {
		log.Printf("tracker: no transport configured, session %s not delivered", c.sessionID)
		return nil
	}
	return c.transport.Deliver(ctx, c.record, mode)
}

func (c *Controller) buildSession(active time.Duration) *models.RawSession {
	// Rounded up so the dwell histogram total never exceeds duration*1000.
	duration := int(math.Ceil(active.Seconds()))
	return &models.RawSession{
		SessionID:           c.sessionID,
		DocumentID:          c.info.DocumentID,
		BrowserID:           c.browserID,
		UserID:              c.info.UserID,
		Email:               c.info.Email,
		StartTime:           c.startTime,
		EndTime:             c.clock.Now(),
		Duration:            duration,
		MaxScrollPercentage: c.sampler.MaxPercentage(),
		ScrollEventCount:    c.sampler.Count(),
		ScrollEvents:        c.sampler.Events(),
		DwellHistogram:      c.dwell.Histogram(),
		PixelBins:           c.pixels.Bins(),
		Paragraphs:          c.paragraphs.Records(),
		ContainerScroll:     c.sampler.Mode() == ContainerScroll,
		UserAgent:           c.info.UserAgent,
		Referrer:            c.info.Referrer,
		Viewport:            c.info.Viewport,
	}
}

// ActiveDuration returns visible time so far, never more than the cap.
func (c *Controller) ActiveDuration() time.Duration {
	active := c.visibility.ActiveDuration()
	if active > c.cfg.SessionCap {
		return c.cfg.SessionCap
	}
	return active
}

func (c *Controller) State() State { return c.state }
func (c *Controller) StopReason() Trigger { return c.stopReason }
func (c *Controller) SessionID() string { return c.sessionID }
func (c *Controller) BrowserID() string { return c.browserID }
func (c *Controller) MaxScroll() float64 { return c.sampler.MaxPercentage() }
func (c *Controller) Config() Config { return c.cfg }

// Session returns the finalized record, or nil while still tracking.
func (c *Controller) Session() *models.RawSession { return c.record }

// Event is an input for Run.
type Event interface {
	apply(ctx context.Context, c *Controller)
}

// VisibilityChange reports a tab visibility change.
type VisibilityChange struct{ Hidden bool }

// ScrollSignal reports a scroll.
type ScrollSignal struct{ Source ScrollSource }

// UnmountSignal reports in-app navigation away from the document.
type UnmountSignal struct{}

// UnloadSignal reports page teardown.
type UnloadSignal struct{}

func (e VisibilityChange) apply(_ context.Context, c *Controller) { c.HandleVisibility(e.Hidden) }
func (e ScrollSignal) apply(_ context.Context, c *Controller) { c.HandleScroll(e.Source) }
func (UnmountSignal) apply(ctx context.Context, c *Controller) { _ = c.Unmount(ctx) }
func (UnloadSignal) apply(_ context.Context, c *Controller) { c.Unload() }

// Run is a live event loop: it serializes events and periodic ticks until
// the controller stops. Cancelling ctx counts as an unmount. Pending ticks
// are discarded when Run returns.
func (c *Controller) Run(ctx context.Context, events <-chan Event) error {
	if c.state != StateTracking {
		return ErrNotTracking
	}
	ticker := time.NewTicker(c.cfg.TickInterval)
	defer ticker.Stop()

	for c.state == StateTracking {
		select {
		case <-ctx.Done():
			return c.Unmount(context.WithoutCancel(ctx))
		case <-ticker.C:
			c.Tick()
		case ev, ok := <-events:
			if !ok {
				c.Unload()
				return nil
			}
			ev.apply(ctx, c)
		}
	}
	return nil
}
