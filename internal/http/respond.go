package http

import (
	"github.com/gofiber/fiber/v2"
	"github.com/karloscodes/cartridge"
)

const (
	codeInvalidRequest = "INVALID_REQUEST"
	codeValidation     = "VALIDATION_ERROR"
	codeNotFound       = "NOT_FOUND"
	codeConflict       = "CONFLICT"
	codeUnauthorized   = "UNAUTHORIZED"
	codeStorage        = "STORAGE_ERROR"

	errInternal = "Something went wrong, please try again later"
)

func errorJSON(ctx *cartridge.Context, status int, message, code string) error {
	return ctx.Status(status).JSON(fiber.Map{
		"error": message,
		"code":  code,
	})
}

func badRequest(ctx *cartridge.Context, message string) error {
	return errorJSON(ctx, fiber.StatusBadRequest, message, codeInvalidRequest)
}

func validationFailed(ctx *cartridge.Context, fields map[string]string) error {
	return ctx.Status(fiber.StatusUnprocessableEntity).JSON(fiber.Map{
		"error":  "Validation failed",
		"code":   codeValidation,
		"fields": fields,
	})
}

func notFound(ctx *cartridge.Context, message string) error {
	return errorJSON(ctx, fiber.StatusNotFound, message, codeNotFound)
}

func storageError(ctx *cartridge.Context) error {
	return errorJSON(ctx, fiber.StatusInternalServerError, errInternal, codeStorage)
}

// idParam reads a positive numeric path parameter.
func idParam(ctx *cartridge.Context, name string) (uint, bool) {
	id, err := ctx.ParamsInt(name)
	if err != nil || id <= 0 {
		return 0, false
	}
	return uint(id), true
}
