package tracker

import (
	"math"
	"time"

	"leadmagnet/api/models"
)

// ScrollSource exposes the position and extents the percentage formula needs.
type ScrollSource interface {
	ScrollPosition() float64
	ScrollExtent() float64
	ViewportExtent() float64
}

// WindowMetrics measures whole-page scrolling.
type WindowMetrics struct {
	ScrollY        float64 `yaml:"scroll_y"`
	DocumentHeight float64 `yaml:"document_height"`
	InnerHeight    float64 `yaml:"inner_height"`
}

func (m WindowMetrics) ScrollPosition() float64 { return m.ScrollY }
func (m WindowMetrics) ScrollExtent() float64 { return m.DocumentHeight }
func (m WindowMetrics) ViewportExtent() float64 { return m.InnerHeight }

// ContainerMetrics measures a scrollable panel hosting rendered content.
type ContainerMetrics struct {
	ScrollTop    float64 `yaml:"scroll_top"`
	ScrollHeight float64 `yaml:"scroll_height"`
	ClientHeight float64 `yaml:"client_height"`
}

func (m ContainerMetrics) ScrollPosition() float64 { return m.ScrollTop }
func (m ContainerMetrics) ScrollExtent() float64 { return m.ScrollHeight }
func (m ContainerMetrics) ViewportExtent() float64 { return m.ClientHeight }

// ScrollPercentage is position / (extent - viewport) * 100 clamped to [0, 100].
// Content that fits in the viewport counts as fully seen.
func ScrollPercentage(src ScrollSource) float64 {
	scrollable := src.ScrollExtent() - src.ViewportExtent()
	if scrollable <= 0 {
		return 100
	}
	pct := src.ScrollPosition() / scrollable * 100
	if math.IsNaN(pct) || pct < 0 {
		return 0
	}
	if pct > 100 {
		return 100
	}
	return pct
}

// SamplerMode selects where scroll samples come from.
type SamplerMode int

const (
	PageScroll SamplerMode = iota
	ContainerScroll
)

func (m SamplerMode) String() string {
	if m == ContainerScroll {
		return "container"
	}
	return "page"
}

// ScrollSampler turns throttled scroll signals into samples and tracks the
// running maximum reach.
type ScrollSampler struct {
	mode     SamplerMode
	clock    Clock
	throttle time.Duration
	limit    int // 0 means unbounded
	record   bool

	last    time.Time
	sampled bool

	events   []models.ScrollEvent
	count    int
	max      float64
	current  float64
	position float64
	viewport float64
}

// NewPageSampler samples window scrolling. Its event log is unbounded and
// lives until the session is flushed.
func NewPageSampler(clock Clock, throttle time.Duration) *ScrollSampler {
	return newSampler(PageScroll, clock, throttle, 0)
}

// NewContainerSampler samples a scrollable container and keeps only the
// most recent limit events.
func NewContainerSampler(clock Clock, throttle time.Duration, limit int) *ScrollSampler {
	return newSampler(ContainerScroll, clock, throttle, limit)
}

func newSampler(mode SamplerMode, clock Clock, throttle time.Duration, limit int) *ScrollSampler {
	if clock == nil {
		clock = SystemClock{}
	}
	return &ScrollSampler{mode: mode, clock: clock, throttle: throttle, limit: limit, record: true}
}

// Sample records one scroll signal. It returns false when the signal was
// dropped, either because the tab is hidden or because of throttling.
func (s *ScrollSampler) Sample(src ScrollSource, hidden bool) (models.ScrollEvent, bool) {
	if hidden {
		return models.ScrollEvent{}, false
	}
	now := s.clock.Now()
	if s.sampled && now.Sub(s.last) < s.throttle {
		return models.ScrollEvent{}, false
	}
	s.last = now
	s.sampled = true

	pct := ScrollPercentage(src)
	ev := models.ScrollEvent{
		Timestamp:      now,
		Position:       src.ScrollPosition(),
		Percentage:     pct,
		ViewportHeight: src.ViewportExtent(),
		DocumentHeight: src.ScrollExtent(),
	}

	s.count++
	s.current = pct
	s.position = ev.Position
	s.viewport = ev.ViewportHeight
	if pct > s.max {
		s.max = pct
	}

	if s.record {
		s.events = append(s.events, ev)
		if s.limit > 0 && len(s.events) > s.limit {
			s.events = append(s.events[:0:0], s.events[len(s.events)-s.limit:]...)
		}
	}
	return ev, true
}

func (s *ScrollSampler) Mode() SamplerMode { return s.mode }
func (s *ScrollSampler) MaxPercentage() float64 { return s.max }
func (s *ScrollSampler) Current() float64 { return s.current }
func (s *ScrollSampler) Position() float64 { return s.position }
func (s *ScrollSampler) ViewportExtent() float64 { return s.viewport }
func (s *ScrollSampler) Count() int { return s.count }

// Events returns a copy of the retained event log.
func (s *ScrollSampler) Events() []models.ScrollEvent {
	if len(s.events) == 0 {
		return nil
	}
	out := make([]models.ScrollEvent, len(s.events))
	copy(out, s.events)
	return out
}
