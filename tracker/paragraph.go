package tracker

import (
	"time"

	"leadmagnet/api/models"
)

// ParagraphBounds is a paragraph's vertical extent in scroll coordinates.
type ParagraphBounds struct {
	Top    float64 `yaml:"top"`
	Bottom float64 `yaml:"bottom"`
}

type paragraphState struct {
	reached   bool
	completed bool
	visible   bool
	timeSpent int64
}

// ParagraphTracker records which paragraphs a visitor reached, finished and
// lingered on. A paragraph is reached once the viewport bottom passes its
// top and completed once it passes its bottom.
type ParagraphTracker struct {
	bounds []ParagraphBounds
	state  []paragraphState
	mark   time.Duration
}

func NewParagraphTracker(bounds []ParagraphBounds) *ParagraphTracker {
	return &ParagraphTracker{
		bounds: bounds,
		state:  make([]paragraphState, len(bounds)),
	}
}

// Begin marks paragraphs visible in the initial viewport.
func (t *ParagraphTracker) Begin(viewport float64) {
	t.update(0, viewport)
}

// Observe credits time to the previously visible paragraphs, then applies
// the new viewport position.
func (t *ParagraphTracker) Observe(position, viewport float64, active time.Duration) {
	t.credit(active)
	t.update(position, viewport)
}

// Tick credits time to the currently visible paragraphs.
func (t *ParagraphTracker) Tick(active time.Duration) {
	t.credit(active)
}

func (t *ParagraphTracker) credit(active time.Duration) {
	elapsed := active - t.mark
	if elapsed <= 0 {
		return
	}
	ms := elapsed.Milliseconds()
	for i := range t.state {
		if t.state[i].visible {
			t.state[i].timeSpent += ms
		}
	}
	t.mark += time.Duration(ms) * time.Millisecond
}

func (t *ParagraphTracker) update(position, viewport float64) {
	bottom := position + viewport
	for i, b := range t.bounds {
		st := &t.state[i]
		if bottom >= b.Top {
			st.reached = true
		}
		if bottom >= b.Bottom {
			st.completed = true
		}
		st.visible = b.Top < bottom && b.Bottom > position
	}
}

// Records returns one record per tracked paragraph.
func (t *ParagraphTracker) Records() []models.ParagraphRecord {
	if len(t.state) == 0 {
		return nil
	}
	out := make([]models.ParagraphRecord, len(t.state))
	for i, st := range t.state {
		out[i] = models.ParagraphRecord{
			Index:     i,
			Reached:   st.reached,
			Completed: st.completed,
			TimeSpent: st.timeSpent,
		}
	}
	return out
}
