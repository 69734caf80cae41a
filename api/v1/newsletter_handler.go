package v1

import (
	"errors"
	"log/slog"
	"net/http"
	"strings"
	"time"

	"github.com/gofiber/fiber/v2"
	"github.com/karloscodes/cartridge"

	"folio/internal/newsletter"
)

// SubscribeParams is a newsletter sign-up.
type SubscribeParams struct {
	Email string `json:"email" validate:"required,email,max=254"`
}

// SubscribeNewsletterHandler registers an address. The confirmation token never
// leaves the server in the response; it goes to the subscriber's inbox only, and
// until a mail transport exists the confirmation link is written to the debug log.
func SubscribeNewsletterHandler(ctx *cartridge.Context) error {
	var params SubscribeParams
	if err := ctx.BodyParser(&params); err != nil {
		return invalidRequest(ctx.Ctx)
	}
	params.Email = strings.TrimSpace(params.Email)
	if err := requestValidator().Struct(params); err != nil {
		return validationError(ctx.Ctx, validationFields(err))
	}

	result, err := newsletter.Subscribe(ctx.DB(), ctx.Logger, params.Email, time.Now().UTC())
	if err != nil {
		ctx.Logger.Error("Failed to subscribe to newsletter", slog.Any("error", err))
		return internalError(ctx.Ctx)
	}

	if result.Token != "" {
		ctx.Logger.Debug("Newsletter confirmation link issued",
			slog.String("email", result.Subscription.Email),
			slog.String("path", "/api/v1/newsletter/confirm/"+result.Token))
	}

	return ctx.Status(http.StatusCreated).JSON(fiber.Map{
		"success":          true,
		"alreadyConfirmed": result.AlreadyConfirmed,
	})
}

// ConfirmNewsletterHandler confirms the subscription owning the token in the path.
func ConfirmNewsletterHandler(ctx *cartridge.Context) error {
	sub, err := newsletter.Confirm(ctx.DB(), ctx.Logger, ctx.Params("token"), time.Now().UTC())
	if errors.Is(err, newsletter.ErrTokenNotFound) {
		return notFound(ctx.Ctx, "Confirmation link is invalid or already used")
	}
	if err != nil {
		ctx.Logger.Error("Failed to confirm newsletter subscription", slog.Any("error", err))
		return internalError(ctx.Ctx)
	}

	return ctx.JSON(fiber.Map{
		"success":     true,
		"email":       sub.Email,
		"confirmedAt": sub.ConfirmedAt,
	})
}
