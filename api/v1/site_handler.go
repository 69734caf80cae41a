package v1

import (
	"encoding/json"
	"errors"
	"log/slog"

	"github.com/gofiber/fiber/v2"
	"github.com/karloscodes/cartridge"

	"folio/internal/content"
	"folio/internal/services"
)

// GetContentHandler serves one content block with a strong ETag.
func GetContentHandler(ctx *cartridge.Context) error {
	block, err := content.Get(ctx.DB(), ctx.Params("key"))
	if errors.Is(err, content.ErrNotFound) {
		return notFound(ctx.Ctx, "Content not found")
	}
	if err != nil {
		ctx.Logger.Error("Failed to load content block", slog.Any("error", err))
		return internalError(ctx.Ctx)
	}

	body, err := json.Marshal(block)
	if err != nil {
		ctx.Logger.Error("Failed to encode content block",
			slog.String("key", block.Key),
			slog.Any("error", err))
		return internalError(ctx.Ctx)
	}

	return sendCacheable(ctx.Ctx, body)
}

// ListServicesHandler serves the published services in display order.
func ListServicesHandler(ctx *cartridge.Context) error {
	list, err := services.List(ctx.DB(), true)
	if err != nil {
		ctx.Logger.Error("Failed to list services", slog.Any("error", err))
		return internalError(ctx.Ctx)
	}

	body, err := json.Marshal(fiber.Map{"services": list})
	if err != nil {
		ctx.Logger.Error("Failed to encode services", slog.Any("error", err))
		return internalError(ctx.Ctx)
	}

	return sendCacheable(ctx.Ctx, body)
}

// sendCacheable writes a JSON body, answering 304 when the client already has it.
func sendCacheable(c *fiber.Ctx, body []byte) error {
	etag := generateETag(body)
	c.Set(fiber.HeaderETag, etag)
	c.Set(fiber.HeaderCacheControl, "public, max-age=60")

	if c.Get(fiber.HeaderIfNoneMatch) == etag {
		return c.SendStatus(fiber.StatusNotModified)
	}

	c.Set(fiber.HeaderContentType, fiber.MIMEApplicationJSONCharsetUTF8)
	return c.Send(body)
}
