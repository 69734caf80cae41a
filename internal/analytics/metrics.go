package analytics

import (
	"fmt"
	"sync"
	"time"

	"github.com/pariz/gountries"
	"golang.org/x/text/cases"
	"golang.org/x/text/language"
	"gorm.io/gorm"

	"folio/internal/pkg/geoip"
	"folio/internal/pkg/referrers"
)

// TopListLimit caps topPages and topReferrers.
const TopListLimit = 10

// Totals holds the counters of a window.
type Totals struct {
	Total  int64
	New    int64
	Unique int64
}

// GetTotalsInWindow counts page views, new-visitor page views and distinct addresses since from.
func GetTotalsInWindow(db *gorm.DB, from time.Time) (Totals, error) {
	var totals Totals

	query := `
    SELECT
        COUNT(*) as total,
        COALESCE(SUM(CASE WHEN is_new_visitor THEN 1 ELSE 0 END), 0) as new_count,
        COUNT(DISTINCT ip_address) as unique_count
    FROM visits
    WHERE timestamp >= ?
    `

	var row struct {
		Total       int64
		NewCount    int64
		UniqueCount int64
	}
	if err := db.Raw(query, from.UTC()).Scan(&row).Error; err != nil {
		return totals, fmt.Errorf("error fetching visit totals: %w", err)
	}

	totals.Total = row.Total
	totals.New = row.NewCount
	totals.Unique = row.UniqueCount
	return totals, nil
}

// groupedCounts runs a GROUP BY over column since from, ordered by count desc then name asc.
// A limit of zero returns every group.
func groupedCounts(db *gorm.DB, column string, from time.Time, limit int, extraWhere string) ([]MetricCountResult, error) {
	query := `
    SELECT
        ` + column + ` as name,
        COUNT(*) as count
    FROM visits
    WHERE timestamp >= ?` + extraWhere + `
    GROUP BY ` + column + `
    ORDER BY count DESC, name ASC`

	args := []any{from.UTC()}
	if limit > 0 {
		query += `
    LIMIT ?`
		args = append(args, limit)
	}

	results := []MetricCountResult{}
	if err := db.Raw(query, args...).Scan(&results).Error; err != nil {
		return nil, fmt.Errorf("error fetching %s counts: %w", column, err)
	}
	return results, nil
}

// GetTopPagesInWindow returns the ten most viewed paths.
func GetTopPagesInWindow(db *gorm.DB, from time.Time) ([]MetricCountResult, error) {
	return groupedCounts(db, "path", from, TopListLimit, "")
}

// GetDeviceStatsInWindow returns page views per device class.
func GetDeviceStatsInWindow(db *gorm.DB, from time.Time) ([]MetricCountResult, error) {
	return groupedCounts(db, "device", from, 0, "")
}

// GetBrowserStatsInWindow returns page views per browser family.
func GetBrowserStatsInWindow(db *gorm.DB, from time.Time) ([]MetricCountResult, error) {
	return groupedCounts(db, "browser", from, 0, "")
}

// GetOSStatsInWindow returns page views per operating system family.
func GetOSStatsInWindow(db *gorm.DB, from time.Time) ([]MetricCountResult, error) {
	return groupedCounts(db, "os", from, 0, "")
}

// GetCountryStatsInWindow returns page views per country with display names.
func GetCountryStatsInWindow(db *gorm.DB, from time.Time) ([]MetricCountResult, error) {
	items, err := groupedCounts(db, "country", from, 0, "")
	if err != nil {
		return nil, err
	}
	return convertCountryStats(items), nil
}

// GetTopReferrersInWindow returns the ten largest referrer sources by friendly name.
// Direct traffic is not a referrer and is left out.
func GetTopReferrersInWindow(db *gorm.DB, from time.Time) ([]MetricCountResult, error) {
	hosts, err := groupedCounts(db, "referrer_host", from, 0,
		" AND referrer_host <> '"+referrers.Direct+"' AND referrer_host <> ''")
	if err != nil {
		return nil, err
	}

	merged := make(map[string]int64, len(hosts))
	for _, h := range hosts {
		merged[referrers.FriendlyName(h.Name)] += h.Count
	}

	results := make([]MetricCountResult, 0, len(merged))
	for name, count := range merged {
		results = append(results, MetricCountResult{Name: name, Count: count})
	}
	SortCounts(results)
	if len(results) > TopListLimit {
		results = results[:TopListLimit]
	}
	return results, nil
}

// GetHourlyStats buckets the page views of (now-24h, now] by UTC hour of day, ascending.
// Hours without views are omitted.
func GetHourlyStats(db *gorm.DB, now time.Time) ([]HourlyStat, error) {
	now = now.UTC()

	var timestamps []time.Time
	err := db.Table("visits").
		Where("timestamp >= ? AND timestamp <= ?", now.Add(-HourlyWindow), now).
		Pluck("timestamp", &timestamps).Error
	if err != nil {
		return nil, fmt.Errorf("error fetching hourly stats: %w", err)
	}

	var buckets [24]int64
	for _, ts := range timestamps {
		buckets[ts.UTC().Hour()]++
	}

	stats := []HourlyStat{}
	for hour, count := range buckets {
		if count > 0 {
			stats = append(stats, HourlyStat{Hour: hour, Count: count})
		}
	}
	return stats, nil
}

var (
	countriesOnce sync.Once
	countries     *gountries.Query
)

func countryQuery() *gountries.Query {
	countriesOnce.Do(func() {
		countries = gountries.New()
	})
	return countries
}

func convertCountryStats(items []MetricCountResult) []MetricCountResult {
	caser := cases.Upper(language.AmericanEnglish)
	query := countryQuery()

	merged := make(map[string]int64, len(items))
	for _, item := range items {
		name := "Unknown"
		if item.Name != geoip.UnknownCountry && item.Name != "" {
			if country, err := query.FindCountryByAlpha(item.Name); err == nil {
				name = country.Name.Common
			} else {
				name = caser.String(item.Name)
			}
		}
		merged[name] += item.Count
	}

	result := make([]MetricCountResult, 0, len(merged))
	for name, count := range merged {
		result = append(result, MetricCountResult{Name: name, Count: count})
	}
	SortCounts(result)
	return result
}
