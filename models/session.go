package models

import (
	"fmt"
	"time"
)

// Viewport is the visitor's visible area at session start.
type Viewport struct {
	Width  int `json:"width" binding:"min=0"`
	Height int `json:"height" binding:"min=0"`
}

// ScrollEvent is a single throttled scroll sample.
type ScrollEvent struct {
	Timestamp      time.Time `json:"timestamp"`
	Position       float64   `json:"position"`
	Percentage     float64   `json:"percentage"`
	ViewportHeight float64   `json:"viewportHeight"`
	DocumentHeight float64   `json:"documentHeight"`
}

// PixelBin holds active milliseconds spent with the viewport top at offset Y.
type PixelBin struct {
	Y         int   `json:"y"`
	TimeSpent int64 `json:"timeSpent"`
}

// ParagraphRecord is one session's observation of one content paragraph.
type ParagraphRecord struct {
	Index     int   `json:"index" binding:"min=0"`
	Reached   bool  `json:"reached"`
	Completed bool  `json:"completed"`
	TimeSpent int64 `json:"timeSpent" binding:"min=0"`
}

// RawSession is one visitor's observation window on one document.
// It is written once, when the session ends, and never updated.
type RawSession struct {
	SessionID  string `json:"sessionId" binding:"required"`
	DocumentID string `json:"documentId" binding:"required"`
	BrowserID  string `json:"browserId" binding:"required"`
	UserID     string `json:"userId,omitempty"`
	Email      string `json:"email,omitempty"`

	StartTime time.Time `json:"startTime"`
	EndTime   time.Time `json:"endTime"`
	// Duration is active (tab-visible) seconds.
	Duration int `json:"duration" binding:"min=0,max=90"`

	MaxScrollPercentage float64           `json:"maxScrollPercentage" binding:"min=0,max=100"`
	ScrollEventCount    int               `json:"scrollEventCount" binding:"min=0"`
	ScrollEvents        []ScrollEvent     `json:"scrollEvents,omitempty"`
	DwellHistogram      DwellHistogram    `json:"dwellHistogram,omitempty"`
	PixelBins           []PixelBin        `json:"pixelBins,omitempty"`
	Paragraphs          []ParagraphRecord `json:"paragraphs,omitempty" binding:"dive"`
	ContainerScroll     bool              `json:"containerScroll,omitempty"`

	UserAgent string   `json:"userAgent"`
	Referrer  string   `json:"referrer"`
	Viewport  Viewport `json:"viewport"`
}

// Validate checks the parts of the payload shape that binding tags cannot express.
func (s *RawSession) Validate() error {
	if s.StartTime.IsZero() {
		return fmt.Errorf("startTime is required")
	}
	if !s.EndTime.IsZero() && s.EndTime.Before(s.StartTime) {
		return fmt.Errorf("endTime %s is before startTime %s", s.EndTime.Format(time.RFC3339), s.StartTime.Format(time.RFC3339))
	}
	if s.DwellHistogram != nil {
		if err := s.DwellHistogram.Validate(); err != nil {
			return err
		}
		if s.DwellHistogram.Total() > int64(s.Duration)*1000 {
			return fmt.Errorf("dwell histogram total %dms exceeds duration %ds", s.DwellHistogram.Total(), s.Duration)
		}
	}
	return nil
}
