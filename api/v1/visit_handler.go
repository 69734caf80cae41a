package v1

import (
	"log/slog"
	"net/http"
	"time"

	"github.com/gofiber/fiber/v2"
	"github.com/karloscodes/cartridge"

	"folio/internal/visits"
)

// CreateVisitParams is a page view reported by the site.
type CreateVisitParams struct {
	Path      string `json:"path"`
	Referer   string `json:"referer"`
	SessionID string `json:"sessionId" validate:"max=128"`
	Duration  *int   `json:"duration" validate:"omitempty,min=0"`
}

// CreateVisitHandler records a page view and reports the visitor classification.
// Bots and excluded addresses are acknowledged with recorded=false and no
// isNewVisitor field, since nothing was classified.
func CreateVisitHandler(ctx *cartridge.Context) error {
	var params CreateVisitParams
	if err := ctx.BodyParser(&params); err != nil {
		ctx.Logger.Debug("Failed to parse visit request", slog.Any("error", err))
		return invalidRequest(ctx.Ctx)
	}
	if err := requestValidator().Struct(params); err != nil {
		return validationError(ctx.Ctx, validationFields(err))
	}

	result, err := visits.RecordVisit(ctx.DB(), ctx.Logger, visits.RecordInput{
		IPAddress: clientIP(ctx.Ctx),
		UserAgent: requestUserAgent(ctx.Ctx),
		Referrer:  params.Referer,
		Path:      params.Path,
		SessionID: params.SessionID,
		Duration:  params.Duration,
		Timestamp: time.Now().UTC(),
	})
	if err != nil {
		ctx.Logger.Error("Failed to record visit", slog.Any("error", err))
		return internalError(ctx.Ctx)
	}

	body := fiber.Map{
		"success":   true,
		"sessionId": result.SessionID,
		"recorded":  result.Recorded,
	}
	if result.Recorded {
		body["isNewVisitor"] = result.IsNewVisitor
	}
	return ctx.Status(http.StatusCreated).JSON(body)
}
