// Package analytics computes windowed rollups over stored page views.
//
// The package is organized into focused modules:
//   - analytics.go: result types and ordering
//   - period.go: the rollup window selector
//   - metrics.go: grouped count queries over the visits table
//   - rollup.go: the Aggregator that runs the queries and assembles a Rollup
package analytics

import (
	"sort"
	"time"
)

// MetricCountResult represents a generic key-count pair for query results
type MetricCountResult struct {
	Name  string `json:"name"`
	Count int64  `json:"count"`
}

// HourlyStat is the number of page views in one UTC hour of the day.
type HourlyStat struct {
	Hour  int   `json:"hour"`
	Count int64 `json:"count"`
}

// Rollup is the analytics summary for one period.
type Rollup struct {
	Period            Period              `json:"period"`
	From              time.Time           `json:"from"`
	To                time.Time           `json:"to"`
	GeneratedAt       time.Time           `json:"generatedAt"`
	TotalVisitors     int64               `json:"totalVisitors"`
	NewVisitors       int64               `json:"newVisitors"`
	ReturningVisitors int64               `json:"returningVisitors"`
	UniqueVisitors    int64               `json:"uniqueVisitors"`
	TopPages          []MetricCountResult `json:"topPages"`
	DeviceStats       []MetricCountResult `json:"deviceStats"`
	BrowserStats      []MetricCountResult `json:"browserStats"`
	OSStats           []MetricCountResult `json:"osStats"`
	CountryStats      []MetricCountResult `json:"countryStats"`
	TopReferrers      []MetricCountResult `json:"topReferrers"`
	HourlyStats       []HourlyStat        `json:"hourlyStats"`
}

// SortCounts orders results by count descending, then name ascending.
func SortCounts(items []MetricCountResult) {
	sort.SliceStable(items, func(i, j int) bool {
		if items[i].Count != items[j].Count {
			return items[i].Count > items[j].Count
		}
		return items[i].Name < items[j].Name
	})
}
