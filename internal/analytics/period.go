package analytics

import (
	"strings"
	"time"
)

// Period selects the rollup lookback.
type Period string

const (
	Period24h Period = "24h"
	Period7d  Period = "7d"
	Period30d Period = "30d"
	Period90d Period = "90d"

	DefaultPeriod = Period7d
)

// HourlyWindow bounds hourlyStats whatever the period.
const HourlyWindow = 24 * time.Hour

var lookbacks = map[Period]time.Duration{
	Period24h: 24 * time.Hour,
	Period7d:  7 * 24 * time.Hour,
	Period30d: 30 * 24 * time.Hour,
	Period90d: 90 * 24 * time.Hour,
}

// ParsePeriod maps a selector to a Period. Unrecognized values fall back to 7d.
func ParsePeriod(s string) Period {
	p := Period(strings.ToLower(strings.TrimSpace(s)))
	if _, ok := lookbacks[p]; ok {
		return p
	}
	return DefaultPeriod
}

// Lookback returns the window length.
func (p Period) Lookback() time.Duration {
	if d, ok := lookbacks[p]; ok {
		return d
	}
	return lookbacks[DefaultPeriod]
}

// Start returns the first instant included in the window ending at now.
func (p Period) Start(now time.Time) time.Time {
	return now.UTC().Add(-p.Lookback())
}
