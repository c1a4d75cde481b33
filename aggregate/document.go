package aggregate

import (
	"math"
	"sort"
	"time"

	"leadmagnet/api/models"
)

// InWindow returns the sessions that started no earlier than windowDays
// before now, ordered by start time then session id.
func InWindow(sessions []models.RawSession, windowDays int, now time.Time) []models.RawSession {
	cutoff := now.AddDate(0, 0, -windowDays)
	out := make([]models.RawSession, 0, len(sessions))
	for _, s := range sessions {
		if !s.StartTime.Before(cutoff) {
			out = append(out, s)
		}
	}
	sortSessions(out)
	return out
}

func sortSessions(sessions []models.RawSession) {
	sort.SliceStable(sessions, func(i, j int) bool {
		a, b := sessions[i], sessions[j]
		if !a.StartTime.Equal(b.StartTime) {
			return a.StartTime.Before(b.StartTime)
		}
		return a.SessionID < b.SessionID
	})
}

type dayAccumulator struct {
	sessions    int
	visitors    map[string]struct{}
	durationSum int
	scrollSum   float64
}

// DocumentAnalytics reduces a document's sessions into a snapshot for the
// lookback window ending at now.
func DocumentAnalytics(documentID string, windowDays int, now time.Time, sessions []models.RawSession, opts Options) models.DocumentAnalytics {
	opts = opts.withDefaults()
	selected := InWindow(sessions, windowDays, now)

	out := models.DocumentAnalytics{
		DocumentID:      documentID,
		WindowDays:      windowDays,
		ReferrerDomains: map[string]int{},
		DailyStats:      []models.DailyStat{},
		ComputedAt:      now.UTC(),
	}

	visitors := make(map[string]struct{})
	days := make(map[string]*dayAccumulator)
	var scrollSum float64

	for _, s := range selected {
		out.TotalSessions++
		out.TotalTimeSpent += s.Duration
		scrollSum += s.MaxScrollPercentage
		visitors[s.BrowserID] = struct{}{}

		if s.MaxScrollPercentage >= opts.CompletionPercent {
			out.CompletedSessions++
		}
		if s.Duration < opts.BounceSeconds {
			out.BouncedSessions++
		}
		addScrollBand(&out.ScrollDepthBuckets, s.MaxScrollPercentage)
		addDevice(&out.DeviceBreakdown, s.Viewport.Width)
		if host, ok := ReferrerHost(s.Referrer); ok {
			out.ReferrerDomains[host]++
		}

		key := DateBucket(s.StartTime)
		day, ok := days[key]
		if !ok {
			day = &dayAccumulator{visitors: make(map[string]struct{})}
			days[key] = day
		}
		day.sessions++
		day.visitors[s.BrowserID] = struct{}{}
		day.durationSum += s.Duration
		day.scrollSum += s.MaxScrollPercentage
	}

	out.UniqueVisitors = len(visitors)
	if out.TotalSessions > 0 {
		out.AvgTimeSpent = round2(float64(out.TotalTimeSpent) / float64(out.TotalSessions))
		out.AvgScrollDepth = round2(scrollSum / float64(out.TotalSessions))
	}

	keys := make([]string, 0, len(days))
	for k := range days {
		keys = append(keys, k)
	}
	sort.Strings(keys)
	for _, k := range keys {
		d := days[k]
		out.DailyStats = append(out.DailyStats, models.DailyStat{
			Date:           k,
			Sessions:       d.sessions,
			UniqueVisitors: len(d.visitors),
			AvgDuration:    round2(float64(d.durationSum) / float64(d.sessions)),
			AvgScrollDepth: round2(d.scrollSum / float64(d.sessions)),
		})
	}

	return out
}

func round2(v float64) float64 {
	return math.Round(v*100) / 100
}

func percentOf(part, total int) float64 {
	if total == 0 {
		return 0
	}
	return round2(float64(part) / float64(total) * 100)
}
