package aggregate

import (
	"sort"

	"leadmagnet/api/models"
)

// Thresholds on average sessions per document. The scoring is provisional.
const (
	mediumEngagementThreshold = 3
	highEngagementThreshold   = 7
)

// EngagementLevel buckets an average-sessions-per-document score.
func EngagementLevel(avgSessionsPerDocument float64) string {
	switch {
	case avgSessionsPerDocument >= highEngagementThreshold:
		return models.EngagementHigh
	case avgSessionsPerDocument >= mediumEngagementThreshold:
		return models.EngagementMedium
	default:
		return models.EngagementLow
	}
}

type journeyAccumulator struct {
	journey   models.VisitorJourney
	documents map[string]struct{}
}

// VisitorJourneys groups sessions by device across documents. Results are
// ordered by session count, then browser id.
func VisitorJourneys(sessions []models.RawSession) []models.VisitorJourney {
	ordered := append([]models.RawSession(nil), sessions...)
	sortSessions(ordered)

	acc := make(map[string]*journeyAccumulator)
	for _, s := range ordered {
		a, ok := acc[s.BrowserID]
		if !ok {
			a = &journeyAccumulator{
				journey:   models.VisitorJourney{BrowserID: s.BrowserID, FirstSeen: s.StartTime},
				documents: make(map[string]struct{}),
			}
			acc[s.BrowserID] = a
		}
		a.journey.TotalSessions++
		a.journey.TotalTimeSpent += s.Duration
		a.journey.LastSeen = s.StartTime
		if s.Email != "" {
			a.journey.Email = s.Email
		}
		a.documents[s.DocumentID] = struct{}{}
	}

	out := make([]models.VisitorJourney, 0, len(acc))
	for _, a := range acc {
		j := a.journey
		j.DocumentsViewed = len(a.documents)
		j.AvgSessionsPerDocument = round2(float64(j.TotalSessions) / float64(j.DocumentsViewed))
		j.EngagementScore = j.AvgSessionsPerDocument
		j.EngagementLevel = EngagementLevel(j.AvgSessionsPerDocument)
		out = append(out, j)
	}
	sort.Slice(out, func(i, k int) bool {
		if out[i].TotalSessions != out[k].TotalSessions {
			return out[i].TotalSessions > out[k].TotalSessions
		}
		return out[i].BrowserID < out[k].BrowserID
	})
	return out
}
