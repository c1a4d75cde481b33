package models

import (
	"fmt"
	"math"
)

// DwellKeys lists the ten scroll-depth ranges in ascending order.
var DwellKeys = [10]string{
	"0-10", "10-20", "20-30", "30-40", "40-50",
	"50-60", "60-70", "70-80", "80-90", "90-100",
}

// DwellHistogram maps a scroll-depth range to accumulated active milliseconds.
// Every key in DwellKeys is always present.
type DwellHistogram map[string]int64

// NewDwellHistogram returns a zero-filled histogram.
func NewDwellHistogram() DwellHistogram {
	h := make(DwellHistogram, len(DwellKeys))
	for _, k := range DwellKeys {
		h[k] = 0
	}
	return h
}

// Decile returns the lower bound of the 10%-wide range containing pct.
// 100% belongs to the 90-100 range.
func Decile(pct float64) int {
	if math.IsNaN(pct) || pct <= 0 {
		return 0
	}
	d := int(math.Floor(pct/10)) * 10
	if d > 90 {
		d = 90
	}
	return d
}

// DecileKey returns the histogram key for a scroll percentage.
func DecileKey(pct float64) string {
	d := Decile(pct)
	return fmt.Sprintf("%d-%d", d, d+10)
}

// Total sums all buckets.
func (h DwellHistogram) Total() int64 {
	var total int64
	for _, v := range h {
		total += v
	}
	return total
}

// Validate rejects unknown keys and negative values.
func (h DwellHistogram) Validate() error {
	for k, v := range h {
		if !isDwellKey(k) {
			return fmt.Errorf("unknown dwell range %q", k)
		}
		if v < 0 {
			return fmt.Errorf("negative dwell time for range %q", k)
		}
	}
	return nil
}

// Normalize returns a copy with every key present.
func (h DwellHistogram) Normalize() DwellHistogram {
	out := NewDwellHistogram()
	for k, v := range h {
		if isDwellKey(k) {
			out[k] = v
		}
	}
	return out
}

func isDwellKey(k string) bool {
	for _, known := range DwellKeys {
		if k == known {
			return true
		}
	}
	return false
}
