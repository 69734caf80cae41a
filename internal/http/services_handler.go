package http

import (
	"errors"
	"log/slog"

	"github.com/gofiber/fiber/v2"
	"github.com/karloscodes/cartridge"

	"folio/internal/services"
)

// ServiceParams are the editable service fields.
type ServiceParams struct {
	Title       string `json:"title"`
	Slug        string `json:"slug"`
	Description string `json:"description"`
	Icon        string `json:"icon"`
	SortOrder   int    `json:"sortOrder"`
	Published   bool   `json:"published"`
}

func (p ServiceParams) input() services.Input {
	return services.Input{
		Title:       p.Title,
		Slug:        p.Slug,
		Description: p.Description,
		Icon:        p.Icon,
		SortOrder:   p.SortOrder,
		Published:   p.Published,
	}
}

// ServicesIndexAction lists all services, drafts included.
func ServicesIndexAction(ctx *cartridge.Context) error {
	list, err := services.List(ctx.DB(), false)
	if err != nil {
		ctx.Logger.Error("Failed to list services", slog.Any("error", err))
		return storageError(ctx)
	}
	return ctx.JSON(fiber.Map{"services": list})
}

// ServiceCreateAction adds a service.
func ServiceCreateAction(ctx *cartridge.Context) error {
	var params ServiceParams
	if err := ctx.BodyParser(&params); err != nil {
		return badRequest(ctx, "Invalid request")
	}

	svc, err := services.Create(ctx.DB(), ctx.Logger, params.input())
	if err != nil {
		return serviceError(ctx, err)
	}
	return ctx.Status(fiber.StatusCreated).JSON(svc)
}

// ServiceUpdateAction replaces a service's fields.
func ServiceUpdateAction(ctx *cartridge.Context) error {
	id, ok := idParam(ctx, "id")
	if !ok {
		return badRequest(ctx, "Invalid service ID")
	}

	var params ServiceParams
	if err := ctx.BodyParser(&params); err != nil {
		return badRequest(ctx, "Invalid request")
	}

	svc, err := services.Update(ctx.DB(), ctx.Logger, id, params.input())
	if err != nil {
		return serviceError(ctx, err)
	}
	return ctx.JSON(svc)
}

// ServiceDeleteAction removes a service.
func ServiceDeleteAction(ctx *cartridge.Context) error {
	id, ok := idParam(ctx, "id")
	if !ok {
		return badRequest(ctx, "Invalid service ID")
	}

	if err := services.Delete(ctx.DB(), ctx.Logger, id); err != nil {
		return serviceError(ctx, err)
	}
	return ctx.SendStatus(fiber.StatusNoContent)
}

func serviceError(ctx *cartridge.Context, err error) error {
	switch {
	case errors.Is(err, services.ErrInvalid):
		return validationFailed(ctx, map[string]string{"title": "is required"})
	case errors.Is(err, services.ErrSlugTaken):
		return errorJSON(ctx, fiber.StatusConflict, "Service slug already in use", codeConflict)
	case errors.Is(err, services.ErrNotFound):
		return notFound(ctx, "Service not found")
	default:
		ctx.Logger.Error("Service operation failed", slog.Any("error", err))
		return storageError(ctx)
	}
}
