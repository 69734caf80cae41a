package http

import (
	"encoding/json"
	"errors"
	"log/slog"
	"time"

	"github.com/gofiber/fiber/v2"
	"github.com/karloscodes/cartridge"

	"folio/internal/content"
)

// ContentParams is a content block write. Value is raw JSON: a string for
// text and html, any document for json.
type ContentParams struct {
	Key   string          `json:"key"`
	Kind  string          `json:"kind"`
	Value json.RawMessage `json:"value"`
}

// ContentIndexAction lists every content block.
func ContentIndexAction(ctx *cartridge.Context) error {
	blocks, err := content.List(ctx.DB())
	if err != nil {
		ctx.Logger.Error("Failed to list content", slog.Any("error", err))
		return storageError(ctx)
	}
	return ctx.JSON(fiber.Map{"content": blocks})
}

// ContentCreateAction creates or replaces the block named in the body.
func ContentCreateAction(ctx *cartridge.Context) error {
	var params ContentParams
	if err := ctx.BodyParser(&params); err != nil {
		return badRequest(ctx, "Invalid request")
	}
	return saveContent(ctx, params.Key, params)
}

// ContentUpdateAction creates or replaces the block named in the path.
func ContentUpdateAction(ctx *cartridge.Context) error {
	var params ContentParams
	if err := ctx.BodyParser(&params); err != nil {
		return badRequest(ctx, "Invalid request")
	}
	return saveContent(ctx, ctx.Params("key"), params)
}

func saveContent(ctx *cartridge.Context, key string, params ContentParams) error {
	value, err := content.DecodeValue(params.Kind, params.Value)
	if err != nil {
		field := "value"
		if errors.Is(err, content.ErrUnknownKind) {
			field = "kind"
		}
		return validationFailed(ctx, map[string]string{field: err.Error()})
	}

	block, err := content.Put(ctx.DB(), ctx.Logger, key, value, time.Now().UTC())
	if errors.Is(err, content.ErrInvalidKey) {
		return validationFailed(ctx, map[string]string{"key": "must be 1-100 lowercase letters, digits, dots, dashes or underscores"})
	}
	if err != nil {
		ctx.Logger.Error("Failed to save content", slog.String("key", key), slog.Any("error", err))
		return storageError(ctx)
	}

	return ctx.JSON(block)
}

// ContentDeleteAction removes a block.
func ContentDeleteAction(ctx *cartridge.Context) error {
	err := content.Delete(ctx.DB(), ctx.Logger, ctx.Params("key"))
	if errors.Is(err, content.ErrNotFound) {
		return notFound(ctx, "Content not found")
	}
	if err != nil {
		ctx.Logger.Error("Failed to delete content", slog.Any("error", err))
		return storageError(ctx)
	}
	return ctx.SendStatus(fiber.StatusNoContent)
}
