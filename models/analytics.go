package models

import "time"

// ScrollDepthBuckets counts sessions by the band their reach falls into.
type ScrollDepthBuckets struct {
	Depth0To25   int `json:"depth_0_25"`
	Depth25To50  int `json:"depth_25_50"`
	Depth50To75  int `json:"depth_50_75"`
	Depth75To100 int `json:"depth_75_100"`
}

// DeviceBreakdown counts sessions by viewport-width class.
type DeviceBreakdown struct {
	Mobile  int `json:"mobile"`
	Tablet  int `json:"tablet"`
	Desktop int `json:"desktop"`
}

// DailyStat is one calendar day (visitor local date) of a trend series.
type DailyStat struct {
	Date           string  `json:"date"` // YYYY-MM-DD
	Sessions       int     `json:"sessions"`
	UniqueVisitors int     `json:"uniqueVisitors"`
	AvgDuration    float64 `json:"avgDuration"`
	AvgScrollDepth float64 `json:"avgScrollDepth"`
}

// DocumentAnalytics is a recomputable snapshot for one document over one lookback window.
type DocumentAnalytics struct {
	DocumentID         string             `json:"documentId"`
	WindowDays         int                `json:"windowDays"`
	TotalSessions      int                `json:"totalSessions"`
	UniqueVisitors     int                `json:"uniqueVisitors"`
	TotalTimeSpent     int                `json:"totalTimeSpent"`
	AvgTimeSpent       float64            `json:"avgTimeSpent"`
	AvgScrollDepth     float64            `json:"avgScrollDepth"`
	CompletedSessions  int                `json:"completedSessions"`
	BouncedSessions    int                `json:"bouncedSessions"`
	ScrollDepthBuckets ScrollDepthBuckets `json:"scrollDepthBuckets"`
	DeviceBreakdown    DeviceBreakdown    `json:"deviceBreakdown"`
	ReferrerDomains    map[string]int     `json:"referrerDomains"`
	DailyStats         []DailyStat        `json:"dailyStats"`
	ComputedAt         time.Time          `json:"computedAt"`
}

// ScrollHeatmapRow reports how many sessions reached a depth decile.
type ScrollHeatmapRow struct {
	Depth           int     `json:"depth"`
	SessionsReached int     `json:"sessionsReached"`
	TotalSessions   int     `json:"totalSessions"`
	ReachPercentage float64 `json:"reachPercentage"`
}

// ParagraphMetrics is engagement with one paragraph across sessions.
type ParagraphMetrics struct {
	Index             int     `json:"index"`
	SessionsReached   int     `json:"sessionsReached"`
	SessionsCompleted int     `json:"sessionsCompleted"`
	ReachRate         float64 `json:"reachRate"`
	CompletionRate    float64 `json:"completionRate"`
	DropoffRate       float64 `json:"dropoffRate"`
	AvgTimeSpent      float64 `json:"avgTimeSpent"`
	EngagementScore   float64 `json:"engagementScore"`
}

// Engagement levels for visitor journeys.
const (
	EngagementLow    = "low"
	EngagementMedium = "medium"
	EngagementHigh   = "high"
)

// VisitorJourney summarizes one device's sessions across documents.
type VisitorJourney struct {
	BrowserID              string    `json:"browserId"`
	Email                  string    `json:"email,omitempty"`
	DocumentsViewed        int       `json:"documentsViewed"`
	TotalSessions          int       `json:"totalSessions"`
	TotalTimeSpent         int       `json:"totalTimeSpent"`
	AvgSessionsPerDocument float64   `json:"avgSessionsPerDocument"`
	EngagementScore        float64   `json:"engagementScore"`
	EngagementLevel        string    `json:"engagementLevel"`
	FirstSeen              time.Time `json:"firstSeen"`
	LastSeen               time.Time `json:"lastSeen"`
}
