package aggregate

import (
	"sort"

	"leadmagnet/api/models"
)

// ScrollHeatmap reports, for each depth decile 0..90, how many sessions
// reached it.
func ScrollHeatmap(sessions []models.RawSession) []models.ScrollHeatmapRow {
	total := len(sessions)
	rows := make([]models.ScrollHeatmapRow, 0, len(models.DwellKeys))
	for depth := 0; depth <= 90; depth += 10 {
		reached := 0
		for _, s := range sessions {
			if s.MaxScrollPercentage >= float64(depth) {
				reached++
			}
		}
		rows = append(rows, models.ScrollHeatmapRow{
			Depth:           depth,
			SessionsReached: reached,
			TotalSessions:   total,
			ReachPercentage: percentOf(reached, total),
		})
	}
	return rows
}

// MergePixelBins merges bins with equal offsets, summing their time, and
// returns them sorted by offset.
func MergePixelBins(bins []models.PixelBin) []models.PixelBin {
	totals := make(map[int]int64, len(bins))
	for _, b := range bins {
		totals[b.Y] += b.TimeSpent
	}
	out := make([]models.PixelBin, 0, len(totals))
	for y, t := range totals {
		out = append(out, models.PixelBin{Y: y, TimeSpent: t})
	}
	sort.Slice(out, func(i, j int) bool { return out[i].Y < out[j].Y })
	return out
}

// SessionPixelBins merges the pixel bins of every session.
func SessionPixelBins(sessions []models.RawSession) []models.PixelBin {
	var all []models.PixelBin
	for _, s := range sessions {
		all = append(all, s.PixelBins...)
	}
	return MergePixelBins(all)
}

// DwellTotals sums the dwell histograms of every session. All ten ranges
// are present in the result.
func DwellTotals(sessions []models.RawSession) models.DwellHistogram {
	out := models.NewDwellHistogram()
	for _, s := range sessions {
		for k, v := range s.DwellHistogram.Normalize() {
			out[k] += v
		}
	}
	return out
}
