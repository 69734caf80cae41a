package http

import (
	"errors"
	"log/slog"

	"github.com/gofiber/fiber/v2"
	"github.com/karloscodes/cartridge"

	"folio/internal/settings"
)

// ExcludedIPsParams replaces the excluded address list.
type ExcludedIPsParams struct {
	IPs []string `json:"ips"`
}

// ExcludedIPsAction returns the addresses whose page views are ignored.
func ExcludedIPsAction(ctx *cartridge.Context) error {
	ips, err := settings.ExcludedIPs(ctx.DB())
	if err != nil {
		ctx.Logger.Error("failed to load excluded_ips setting", slog.Any("error", err))
		return storageError(ctx)
	}
	return ctx.JSON(fiber.Map{"ips": ips})
}

// UpdateExcludedIPsAction validates and stores the excluded address list.
func UpdateExcludedIPsAction(ctx *cartridge.Context) error {
	var params ExcludedIPsParams
	if err := ctx.BodyParser(&params); err != nil {
		return badRequest(ctx, "Invalid request")
	}

	ips, err := settings.SetExcludedIPs(ctx.DB(), ctx.Logger, params.IPs)
	if errors.Is(err, settings.ErrInvalidIP) {
		ctx.Logger.Warn("invalid IP format submitted", slog.Any("error", err))
		return validationFailed(ctx, map[string]string{"ips": err.Error()})
	}
	if err != nil {
		ctx.Logger.Error("failed to update excluded_ips setting", slog.Any("error", err))
		return storageError(ctx)
	}

	ctx.Logger.Info("excluded IPs updated", slog.Int("count", len(ips)))
	return ctx.JSON(fiber.Map{"ips": ips})
}
