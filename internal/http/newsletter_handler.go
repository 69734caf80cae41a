package http

import (
	"log/slog"
	"strings"

	"github.com/gofiber/fiber/v2"
	"github.com/karloscodes/cartridge"

	"folio/internal/newsletter"
)

// NewsletterIndexAction lists subscriptions; ?confirmed=true limits to confirmed ones.
func NewsletterIndexAction(ctx *cartridge.Context) error {
	subs, err := newsletter.List(ctx.DB(), ctx.QueryBool("confirmed", false))
	if err != nil {
		ctx.Logger.Error("Failed to list newsletter subscriptions", slog.Any("error", err))
		return storageError(ctx)
	}
	return ctx.JSON(fiber.Map{
		"subscriptions": subs,
		"total":         len(subs),
	})
}

// UnsubscribeParams names the address to drop from the list.
type UnsubscribeParams struct {
	Email string `json:"email"`
}

// NewsletterUnsubscribeAction removes an address. Unknown addresses succeed too.
func NewsletterUnsubscribeAction(ctx *cartridge.Context) error {
	var params UnsubscribeParams
	if err := ctx.BodyParser(&params); err != nil {
		return badRequest(ctx, "Invalid request")
	}
	if strings.TrimSpace(params.Email) == "" {
		return validationFailed(ctx, map[string]string{"email": "is required"})
	}

	if err := newsletter.Unsubscribe(ctx.DB(), ctx.Logger, params.Email); err != nil {
		ctx.Logger.Error("Failed to unsubscribe", slog.Any("error", err))
		return storageError(ctx)
	}
	return ctx.SendStatus(fiber.StatusNoContent)
}
