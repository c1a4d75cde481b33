// Package aggregate turns raw session records into derived engagement
// statistics. Every function is pure and deterministic: the same sessions
// always produce the same output, and zero sessions produce well-formed
// zero values.
package aggregate

import (
	"net/url"
	"strings"
	"time"

	"leadmagnet/api/models"
)

// Device classes by viewport width.
const (
	DeviceMobile  = "mobile"
	DeviceTablet  = "tablet"
	DeviceDesktop = "desktop"
)

// Options holds the classification thresholds.
type Options struct {
	// BounceSeconds: sessions shorter than this bounced.
	BounceSeconds int `yaml:"bounce_seconds"`
	// CompletionPercent: sessions reaching at least this depth completed.
	CompletionPercent float64 `yaml:"completion_percent"`
}

func DefaultOptions() Options {
	return Options{BounceSeconds: 10, CompletionPercent: 90}
}

func (o Options) withDefaults() Options {
	d := DefaultOptions()
	if o.BounceSeconds <= 0 {
		o.BounceSeconds = d.BounceSeconds
	}
	if o.CompletionPercent <= 0 {
		o.CompletionPercent = d.CompletionPercent
	}
	return o
}

// DeviceClass maps a viewport width to mobile (<768), tablet (<1024) or desktop.
func DeviceClass(width int) string {
	switch {
	case width < 768:
		return DeviceMobile
	case width < 1024:
		return DeviceTablet
	default:
		return DeviceDesktop
	}
}

// addScrollBand counts reach into one of the four fixed bands.
func addScrollBand(b *models.ScrollDepthBuckets, reach float64) {
	switch {
	case reach < 25:
		b.Depth0To25++
	case reach < 50:
		b.Depth25To50++
	case reach < 75:
		b.Depth50To75++
	default:
		b.Depth75To100++
	}
}

func addDevice(d *models.DeviceBreakdown, width int) {
	switch DeviceClass(width) {
	case DeviceMobile:
		d.Mobile++
	case DeviceTablet:
		d.Tablet++
	default:
		d.Desktop++
	}
}

// DateBucket is the visitor-local calendar date of a session start.
func DateBucket(start time.Time) string {
	return start.Format("2006-01-02")
}

// ReferrerHost extracts the lowercase hostname of a referrer URL. The
// second result is false for empty or malformed referrers.
func ReferrerHost(referrer string) (string, bool) {
	referrer = strings.TrimSpace(referrer)
	if referrer == "" {
		return "", false
	}
	u, err := url.Parse(referrer)
	if err != nil {
		return "", false
	}
	host := strings.ToLower(u.Hostname())
	if host == "" {
		return "", false
	}
	return host, true
}
