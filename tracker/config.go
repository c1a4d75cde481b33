package tracker

import "time"

// Config holds the tracker tunables.
type Config struct {
	SessionCap         time.Duration `yaml:"session_cap"`
	ScrollThrottle     time.Duration `yaml:"scroll_throttle"`
	TickInterval       time.Duration `yaml:"tick_interval"`
	ContainerLogLimit  int           `yaml:"container_log_limit"`
	PixelBinHeight     int           `yaml:"pixel_bin_height"`
	RecordScrollEvents bool          `yaml:"record_scroll_events"`
	DeliveryTimeout    time.Duration `yaml:"delivery_timeout"`
}

// DefaultConfig returns the production tracker settings.
func DefaultConfig() Config {
	return Config{
		SessionCap:         90 * time.Second,
		ScrollThrottle:     100 * time.Millisecond,
		TickInterval:       time.Second,
		ContainerLogLimit:  100,
		PixelBinHeight:     25,
		RecordScrollEvents: true,
		DeliveryTimeout:    5 * time.Second,
	}
}

// withDefaults fills zero fields from DefaultConfig.
func (c Config) withDefaults() Config {
	d := DefaultConfig()
	if c.SessionCap <= 0 {
		c.SessionCap = d.SessionCap
	}
	if c.ScrollThrottle <= 0 {
		c.ScrollThrottle = d.ScrollThrottle
	}
	if c.TickInterval <= 0 {
		c.TickInterval = d.TickInterval
	}
	if c.ContainerLogLimit <= 0 {
		c.ContainerLogLimit = d.ContainerLogLimit
	}
	if c.PixelBinHeight <= 0 {
		c.PixelBinHeight = d.PixelBinHeight
	}
	if c.DeliveryTimeout <= 0 {
		c.DeliveryTimeout = d.DeliveryTimeout
	}
	return c
}
