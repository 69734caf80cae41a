package http

import (
	"errors"
	"log/slog"
	"time"

	"github.com/gofiber/fiber/v2"
	"github.com/karloscodes/cartridge"

	"folio/internal/http/middleware"
	"folio/internal/messages"
)

// MessagesIndexAction lists contact messages, newest first.
// Query: status (optional), page (default 1), limit (default 20, max 200).
func MessagesIndexAction(ctx *cartridge.Context) error {
	opts := messages.ListOptions{
		Page:  ctx.QueryInt("page", 1),
		Limit: ctx.QueryInt("limit", messages.DefaultPageSize),
	}

	if raw := ctx.Query("status"); raw != "" {
		status, err := messages.ParseStatus(raw)
		if err != nil {
			return validationFailed(ctx, map[string]string{"status": "must be one of new, read, replied, archived"})
		}
		opts.Status = &status
	}

	result, err := messages.List(ctx.DB(), opts)
	if err != nil {
		ctx.Logger.Error("Failed to list contact messages", slog.Any("error", err))
		return storageError(ctx)
	}

	return ctx.JSON(result)
}

// MessageShowAction returns one message and marks it read if it was new.
func MessageShowAction(ctx *cartridge.Context) error {
	id, ok := idParam(ctx, "id")
	if !ok {
		return badRequest(ctx, "Invalid message ID")
	}

	msg, err := messages.FetchAndMarkRead(ctx.DB(), ctx.Logger, id, time.Now().UTC())
	if errors.Is(err, messages.ErrNotFound) {
		return notFound(ctx, "Message not found")
	}
	if err != nil {
		ctx.Logger.Error("Failed to load contact message", slog.Any("error", err))
		return storageError(ctx)
	}

	return ctx.JSON(msg)
}

// StatusParams is an admin workflow transition.
type StatusParams struct {
	Status string  `json:"status"`
	Notes  *string `json:"notes"`
}

// MessageStatusAction moves a message through the workflow.
func MessageStatusAction(ctx *cartridge.Context) error {
	id, ok := idParam(ctx, "id")
	if !ok {
		return badRequest(ctx, "Invalid message ID")
	}

	var params StatusParams
	if err := ctx.BodyParser(&params); err != nil {
		return badRequest(ctx, "Invalid request")
	}

	msg, err := messages.UpdateStatus(ctx.DB(), ctx.Logger, id, messages.StatusUpdate{
		Status:  params.Status,
		Notes:   params.Notes,
		AdminID: middleware.AdminID(ctx.Ctx),
	}, time.Now().UTC())
	switch {
	case errors.Is(err, messages.ErrInvalidStatus):
		return validationFailed(ctx, map[string]string{"status": "must be one of new, read, replied, archived"})
	case errors.Is(err, messages.ErrNotFound):
		return notFound(ctx, "Message not found")
	case err != nil:
		ctx.Logger.Error("Failed to update message status", slog.Any("error", err))
		return storageError(ctx)
	}

	return ctx.JSON(msg)
}

// MessageDeleteAction removes a message.
func MessageDeleteAction(ctx *cartridge.Context) error {
	id, ok := idParam(ctx, "id")
	if !ok {
		return badRequest(ctx, "Invalid message ID")
	}

	err := messages.Delete(ctx.DB(), ctx.Logger, id)
	if errors.Is(err, messages.ErrNotFound) {
		return notFound(ctx, "Message not found")
	}
	if err != nil {
		ctx.Logger.Error("Failed to delete message", slog.Any("error", err))
		return storageError(ctx)
	}

	return ctx.SendStatus(fiber.StatusNoContent)
}

// MessageCountsAction returns the number of messages per status.
func MessageCountsAction(ctx *cartridge.Context) error {
	counts, err := messages.CountByStatus(ctx.DB())
	if err != nil {
		ctx.Logger.Error("Failed to count messages", slog.Any("error", err))
		return storageError(ctx)
	}
	return ctx.JSON(fiber.Map{"counts": counts})
}
