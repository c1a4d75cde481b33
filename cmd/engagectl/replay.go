package main

import (
	"context"
	"errors"
	"fmt"
	"os"
	"sort"
	"time"

	"gopkg.in/yaml.v3"

	"leadmagnet/api/config"
	"leadmagnet/api/models"
	"leadmagnet/api/tracker"
)

// ReplayScript describes one page load: the document geometry and a timed
// sequence of visitor inputs.
type ReplayScript struct {
	DocumentID     string                    `yaml:"document_id"`
	Email          string                    `yaml:"email"`
	UserAgent      string                    `yaml:"user_agent"`
	Referrer       string                    `yaml:"referrer"`
	Viewport       models.Viewport           `yaml:"viewport"`
	DocumentHeight float64                   `yaml:"document_height"`
	Container      bool                      `yaml:"container"`
	StartHidden    bool                      `yaml:"start_hidden"`
	Paragraphs     []tracker.ParagraphBounds `yaml:"paragraphs"`
	Events         []ReplayEvent             `yaml:"events"`
}

// ReplayEvent is one input at offset At from page load. Exactly one of
// Scroll, Hidden or Exit is set.
type ReplayEvent struct {
	At     time.Duration `yaml:"at"`
	Scroll *float64      `yaml:"scroll"`
	Hidden *bool         `yaml:"hidden"`
	Exit   string        `yaml:"exit"`
}

const (
	exitUnmount = "unmount"
	exitUnload  = "unload"
)

func loadReplayScript(path string) (*ReplayScript, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("reading script: %w", err)
	}
	var script ReplayScript
	if err := yaml.Unmarshal(data, &script); err != nil {
		return nil, fmt.Errorf("parsing script: %w", err)
	}
	if err := script.validate(); err != nil {
		return nil, err
	}
	return &script, nil
}

func (s *ReplayScript) validate() error {
	if s.DocumentID == "" {
		return errors.New("script: document_id is required")
	}
	for i, ev := range s.Events {
		if ev.At < 0 {
			return fmt.Errorf("script: event %d has negative offset", i)
		}
		set := 0
		if ev.Scroll != nil {
			set++
		}
		if ev.Hidden != nil {
			set++
		}
		if ev.Exit != "" {
			set++
			if ev.Exit != exitUnmount && ev.Exit != exitUnload {
				return fmt.Errorf("script: event %d has unknown exit %q", i, ev.Exit)
			}
		}
		if set != 1 {
			return fmt.Errorf("script: event %d must set exactly one of scroll, hidden or exit", i)
		}
	}
	return nil
}

func (s *ReplayScript) scrollSource(pos float64) tracker.ScrollSource {
	if s.Container {
		return tracker.ContainerMetrics{ScrollTop: pos, ScrollHeight: s.DocumentHeight, ClientHeight: float64(s.Viewport.Height)}
	}
	return tracker.WindowMetrics{ScrollY: pos, DocumentHeight: s.DocumentHeight, InnerHeight: float64(s.Viewport.Height)}
}

// replaySession drives a controller through the script on a manual clock
// that starts at start, ticking every TickInterval between events. A script
// without an exit event ends with an unmount after its last event.
func replaySession(ctx context.Context, script *ReplayScript, cfg tracker.Config, transport *tracker.Transport, storage tracker.Storage, start time.Time) (*models.RawSession, error) {
	clock := tracker.NewManualClock(start)
	mode := tracker.PageScroll
	if script.Container {
		mode = tracker.ContainerScroll
	}
	ctrl := tracker.NewController(tracker.SessionInfo{
		DocumentID: script.DocumentID,
		Email:      script.Email,
		UserAgent:  script.UserAgent,
		Referrer:   script.Referrer,
		Viewport:   script.Viewport,
		Paragraphs: script.Paragraphs,
	}, tracker.Options{
		Config:    cfg,
		Clock:     clock,
		Storage:   storage,
		Transport: transport,
		Mode:      mode,
	})
	if err := ctrl.Start(script.StartHidden); err != nil {
		return nil, err
	}

	events := append([]ReplayEvent(nil), script.Events...)
	sort.SliceStable(events, func(i, j int) bool { return events[i].At < events[j].At })

	tick := ctrl.Config().TickInterval
	next := tick
	var deliveryErr error
	for _, ev := range events {
		for next <= ev.At && ctrl.State() == tracker.StateTracking {
			clock.Set(start.Add(next))
			ctrl.Tick()
			next += tick
		}
		if ctrl.State() != tracker.StateTracking {
			break
		}
		clock.Set(start.Add(ev.At))

		switch {
		case ev.Scroll != nil:
			ctrl.HandleScroll(script.scrollSource(*ev.Scroll))
		case ev.Hidden != nil:
			ctrl.HandleVisibility(*ev.Hidden)
		case ev.Exit == exitUnmount:
			deliveryErr = ctrl.Unmount(ctx)
		case ev.Exit == exitUnload:
			ctrl.Unload()
		}
	}
	if ctrl.State() == tracker.StateTracking {
		deliveryErr = ctrl.Unmount(ctx)
	}
	if transport != nil {
		transport.Wait()
	}
	return ctrl.Session(), deliveryErr
}

// Execute implements the go-flags Commander interface for ReplayCommand.
func (c *ReplayCommand) Execute(args []string) error {
	if err := c.globals.apply(); err != nil {
		return err
	}
	cfg, err := config.Load()
	if err != nil {
		return fmt.Errorf("load configuration: %w", err)
	}

	script, err := loadReplayScript(c.Script)
	if err != nil {
		return err
	}

	var storage tracker.Storage = tracker.NewMemoryStorage()
	if c.Storage != "" {
		sqlite, err := tracker.OpenSQLiteStorage(c.Storage)
		if err != nil {
			return err
		}
		defer sqlite.Close()
		storage = sqlite
	}

	transport := tracker.NewTransport(tracker.NewHTTPSender(c.Endpoint, c.APIKey), cfg.Tracker.DeliveryTimeout)
	session, err := replaySession(context.Background(), script, cfg.Tracker, transport, storage, time.Now())
	if err != nil {
		return err
	}

	fmt.Fprintf(c.out, "Replayed session %s for %s: %ds active, %.1f%% max scroll, %d scroll events\n",
		session.SessionID, session.DocumentID, session.Duration, session.MaxScrollPercentage, session.ScrollEventCount)
	return nil
}
