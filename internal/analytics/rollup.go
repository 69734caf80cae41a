package analytics

import (
	"context"
	"fmt"
	"time"

	"log/slog"

	"gorm.io/gorm"

	"folio/internal/pkg/async"
)

// Aggregator computes rollups on demand. It never writes.
type Aggregator struct {
	db     *gorm.DB
	logger *slog.Logger
	pool   *async.Pool
}

// NewAggregator runs breakdown queries on up to workers goroutines.
func NewAggregator(db *gorm.DB, logger *slog.Logger, workers int) *Aggregator {
	return &Aggregator{db: db, logger: logger, pool: async.NewPool(workers)}
}

type countsQuery func(db *gorm.DB, from time.Time) ([]MetricCountResult, error)

func countsTask(name string, db *gorm.DB, from time.Time, q countsQuery) async.Task {
	return async.Task{
		Name: name,
		Execute: func(ctx context.Context) (any, error) {
			return q(db.WithContext(ctx), from)
		},
	}
}

// Rollup summarizes the window of period ending at now. Any failed query fails the rollup.
func (a *Aggregator) Rollup(ctx context.Context, period Period, now time.Time) (*Rollup, error) {
	now = now.UTC()
	from := period.Start(now)

	tasks := []async.Task{
		{
			Name: "totals",
			Execute: func(ctx context.Context) (any, error) {
				return GetTotalsInWindow(a.db.WithContext(ctx), from)
			},
		},
		countsTask("top_pages", a.db, from, GetTopPagesInWindow),
		countsTask("devices", a.db, from, GetDeviceStatsInWindow),
		countsTask("browsers", a.db, from, GetBrowserStatsInWindow),
		countsTask("os", a.db, from, GetOSStatsInWindow),
		countsTask("countries", a.db, from, GetCountryStatsInWindow),
		countsTask("referrers", a.db, from, GetTopReferrersInWindow),
		{
			Name: "hourly",
			Execute: func(ctx context.Context) (any, error) {
				return GetHourlyStats(a.db.WithContext(ctx), now)
			},
		},
	}

	started := time.Now()
	results := a.pool.Execute(ctx, tasks)
	if err := async.FirstError(tasks, results); err != nil {
		a.logger.Error("Analytics rollup failed",
			slog.String("period", string(period)),
			slog.Any("error", err))
		return nil, fmt.Errorf("analytics rollup failed: %w", err)
	}

	totals := results["totals"].Data.(Totals)
	rollup := &Rollup{
		Period:            period,
		From:              from,
		To:                now,
		GeneratedAt:       now,
		TotalVisitors:     totals.Total,
		NewVisitors:       totals.New,
		ReturningVisitors: totals.Total - totals.New,
		UniqueVisitors:    totals.Unique,
		TopPages:          results["top_pages"].Data.([]MetricCountResult),
		DeviceStats:       results["devices"].Data.([]MetricCountResult),
		BrowserStats:      results["browsers"].Data.([]MetricCountResult),
		OSStats:           results["os"].Data.([]MetricCountResult),
		CountryStats:      results["countries"].Data.([]MetricCountResult),
		TopReferrers:      results["referrers"].Data.([]MetricCountResult),
		HourlyStats:       results["hourly"].Data.([]HourlyStat),
	}

	a.logger.Debug("Analytics rollup computed",
		slog.String("period", string(period)),
		slog.Int64("total_visitors", rollup.TotalVisitors),
		slog.Duration("elapsed", time.Since(started)))
	return rollup, nil
}
