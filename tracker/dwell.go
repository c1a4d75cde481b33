package tracker

import (
	"sort"
	"time"

	"leadmagnet/api/models"
)

// attributor hands elapsed active time to the key the visitor occupies.
// Marks are active-time offsets, so hidden intervals never accrue.
type attributor[K comparable] struct {
	totals  map[K]int64
	current K
	mark    time.Duration
}

func newAttributor[K comparable](initial K) *attributor[K] {
	return &attributor[K]{totals: make(map[K]int64), current: initial}
}

// observe handles a scroll sample: on a key change the time since the last
// mark goes to the previous key and tracking switches to the new one.
func (a *attributor[K]) observe(key K, active time.Duration) {
	if key == a.current {
		return
	}
	a.credit(a.current, active)
	a.current = key
}

// tick handles a periodic tick: without a key change the elapsed time goes
// to the current key.
func (a *attributor[K]) tick(key K, active time.Duration) {
	if key != a.current {
		a.observe(key, active)
		return
	}
	a.credit(a.current, active)
}

func (a *attributor[K]) credit(key K, active time.Duration) {
	elapsed := active - a.mark
	if elapsed <= 0 {
		return
	}
	a.totals[key] += elapsed.Milliseconds()
	// Keep the sub-millisecond remainder pending so totals never exceed active time.
	a.mark += time.Duration(elapsed.Milliseconds()) * time.Millisecond
}

// DwellBucketer attributes active time to scroll-depth deciles.
type DwellBucketer struct {
	a *attributor[string]
}

func NewDwellBucketer() *DwellBucketer {
	return &DwellBucketer{a: newAttributor(models.DecileKey(0))}
}

// Observe is called for every accepted scroll sample.
func (b *DwellBucketer) Observe(pct float64, active time.Duration) {
	b.a.observe(models.DecileKey(pct), active)
}

// Tick is called on every periodic tick and once more at flush.
func (b *DwellBucketer) Tick(pct float64, active time.Duration) {
	b.a.tick(models.DecileKey(pct), active)
}

// CurrentKey returns the decile being tracked.
func (b *DwellBucketer) CurrentKey() string { return b.a.current }

// Histogram returns a zero-filled copy of the accumulated buckets.
func (b *DwellBucketer) Histogram() models.DwellHistogram {
	h := models.NewDwellHistogram()
	for k, v := range b.a.totals {
		h[k] += v
	}
	return h
}

// PixelBinner attributes active time to fixed-height vertical bins keyed by
// the scroll offset of the viewport top.
type PixelBinner struct {
	height int
	a      *attributor[int]
}

func NewPixelBinner(height int) *PixelBinner {
	if height <= 0 {
		height = 25
	}
	return &PixelBinner{height: height, a: newAttributor(0)}
}

func (p *PixelBinner) bin(position float64) int {
	if position <= 0 {
		return 0
	}
	return int(position) / p.height * p.height
}

func (p *PixelBinner) Observe(position float64, active time.Duration) {
	p.a.observe(p.bin(position), active)
}

func (p *PixelBinner) Tick(position float64, active time.Duration) {
	p.a.tick(p.bin(position), active)
}

// Bins returns non-empty bins sorted by offset.
func (p *PixelBinner) Bins() []models.PixelBin {
	bins := make([]models.PixelBin, 0, len(p.a.totals))
	for y, t := range p.a.totals {
		if t > 0 {
			bins = append(bins, models.PixelBin{Y: y, TimeSpent: t})
		}
	}
	sort.Slice(bins, func(i, j int) bool { return bins[i].Y < bins[j].Y })
	return bins
}
