package http

import (
	"log/slog"
	"time"

	"github.com/karloscodes/cartridge"

	"folio/internal/analytics"
	"folio/internal/config"
)

// AnalyticsAction returns the visit rollup for ?period=24h|7d|30d|90d (default 7d).
func AnalyticsAction(ctx *cartridge.Context) error {
	period := analytics.ParsePeriod(ctx.Query("period"))

	aggregator := analytics.NewAggregator(ctx.DB(), ctx.Logger, config.GetConfig().GetAnalyticsWorkers())
	rollup, err := aggregator.Rollup(ctx.UserContext(), period, time.Now().UTC())
	if err != nil {
		ctx.Logger.Error("Failed to build analytics rollup",
			slog.String("period", string(period)),
			slog.Any("error", err))
		return storageError(ctx)
	}

	return ctx.JSON(rollup)
}
