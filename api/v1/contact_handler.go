package v1

import (
	"errors"
	"log/slog"
	"math"
	"net/http"
	"strconv"
	"strings"
	"time"

	"github.com/gofiber/fiber/v2"
	"github.com/karloscodes/cartridge"

	"folio/internal/messages"
	"folio/internal/throttle"
)

// ContactParams is a contact form submission.
type ContactParams struct {
	Name    string `json:"name" validate:"required,min=2,max=100"`
	Email   string `json:"email" validate:"required,email,max=254"`
	Phone   string `json:"phone" validate:"omitempty,max=20"`
	Subject string `json:"subject" validate:"required,min=3,max=200"`
	Message string `json:"message" validate:"required,min=10,max=5000"`
}

func (p *ContactParams) trim() {
	p.Name = strings.TrimSpace(p.Name)
	p.Email = strings.TrimSpace(p.Email)
	p.Phone = strings.TrimSpace(p.Phone)
	p.Subject = strings.TrimSpace(p.Subject)
	p.Message = strings.TrimSpace(p.Message)
}

// CreateContactMessageHandler validates, throttles and stores a contact submission.
func CreateContactMessageHandler(ctx *cartridge.Context) error {
	var params ContactParams
	if err := ctx.BodyParser(&params); err != nil {
		ctx.Logger.Debug("Failed to parse contact request", slog.Any("error", err))
		return invalidRequest(ctx.Ctx)
	}
	params.trim()

	if err := requestValidator().Struct(params); err != nil {
		return validationError(ctx.Ctx, validationFields(err))
	}

	msg, err := messages.Create(ctx.DB(), ctx.Logger, messages.CreateInput{
		Name:      params.Name,
		Email:     params.Email,
		Phone:     params.Phone,
		Subject:   params.Subject,
		Body:      params.Message,
		IPAddress: clientIP(ctx.Ctx),
		UserAgent: requestUserAgent(ctx.Ctx),
	}, time.Now().UTC(), throttle.Check)
	if err != nil {
		var limitErr *throttle.LimitError
		switch {
		case errors.As(err, &limitErr):
			ctx.Logger.Info("Contact submission throttled",
				slog.String("reason", string(limitErr.Reason)),
				slog.Duration("retry_after", limitErr.RetryAfter))
			ctx.Set(fiber.HeaderRetryAfter, strconv.Itoa(retryAfterSeconds(limitErr.RetryAfter)))
			return errorResponse(ctx.Ctx, http.StatusTooManyRequests, throttle.ErrRateLimited.Error(), codeRateLimited)
		case errors.Is(err, throttle.ErrCheckFailed):
			ctx.Logger.Error("Submission throttle unavailable, rejecting contact message", slog.Any("error", err))
			return internalError(ctx.Ctx)
		default:
			ctx.Logger.Error("Failed to store contact message", slog.Any("error", err))
			return internalError(ctx.Ctx)
		}
	}

	return ctx.Status(http.StatusCreated).JSON(fiber.Map{
		"success": true,
		"id":      msg.ID,
		"status":  msg.Status,
	})
}

func retryAfterSeconds(d time.Duration) int {
	secs := int(math.Ceil(d.Seconds()))
	if secs < 1 {
		return 1
	}
	return secs
}
