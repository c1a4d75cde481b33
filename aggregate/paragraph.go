package aggregate

import (
	"math"
	"sort"

	"leadmagnet/api/models"
)

type paragraphAccumulator struct {
	reached   int
	completed int
	timeSpent int64
}

// ParagraphEngagement aggregates per-paragraph records across sessions.
//
// completionRate is completed/reached, dropoffRate its complement, and
// engagementScore weights completion (60%) against average time, where
// 30 seconds of average attention saturates the time component (40%).
func ParagraphEngagement(sessions []models.RawSession) []models.ParagraphMetrics {
	acc := make(map[int]*paragraphAccumulator)
	for _, s := range sessions {
		for _, p := range s.Paragraphs {
			a, ok := acc[p.Index]
			if !ok {
				a = &paragraphAccumulator{}
				acc[p.Index] = a
			}
			if p.Reached {
				a.reached++
				a.timeSpent += p.TimeSpent
			}
			if p.Reached && p.Completed {
				a.completed++
			}
		}
	}

	indexes := make([]int, 0, len(acc))
	for i := range acc {
		indexes = append(indexes, i)
	}
	sort.Ints(indexes)

	out := make([]models.ParagraphMetrics, 0, len(indexes))
	for _, i := range indexes {
		a := acc[i]
		m := models.ParagraphMetrics{
			Index:             i,
			SessionsReached:   a.reached,
			SessionsCompleted: a.completed,
			ReachRate:         percentOf(a.reached, len(sessions)),
		}
		if a.reached > 0 {
			m.CompletionRate = percentOf(a.completed, a.reached)
			m.DropoffRate = round2(100 - m.CompletionRate)
			m.AvgTimeSpent = round2(float64(a.timeSpent) / float64(a.reached))
			timeScore := math.Min(100, m.AvgTimeSpent/300)
			m.EngagementScore = round2(0.6*m.CompletionRate + 0.4*timeScore)
		}
		out = append(out, m)
	}
	return out
}
