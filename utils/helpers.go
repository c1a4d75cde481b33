package utils

import (
	"fmt"
	"strconv"
	"strings"
)

// DefaultWindowDays is used when a request names no window.
const DefaultWindowDays = 30

// ParseWindowDays accepts the supported lookback windows as "7", "30", "90"
// or the period form "7d", "30d", "90d". Empty input yields the default.
func ParseWindowDays(raw string) (int, error) {
	raw = strings.TrimSpace(strings.ToLower(raw))
	if raw == "" {
		return DefaultWindowDays, nil
	}
	days, err := strconv.Atoi(strings.TrimSuffix(raw, "d"))
	if err != nil {
		return 0, fmt.Errorf("invalid window %q", raw)
	}
	switch days {
	case 7, 30, 90:
		return days, nil
	default:
		return 0, fmt.Errorf("unsupported window %d days (use 7, 30 or 90)", days)
	}
}
