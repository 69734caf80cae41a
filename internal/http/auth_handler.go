package http

import (
	"errors"
	"log/slog"
	"strings"
	"time"

	"github.com/gofiber/fiber/v2"
	"github.com/karloscodes/cartridge"

	"folio/internal/config"
	"folio/internal/http/middleware"
	"folio/internal/users"
)

// LoginParams are admin credentials.
type LoginParams struct {
	Email    string `json:"email"`
	Password string `json:"password"`
}

// AdminLoginAction exchanges admin credentials for a bearer token.
func AdminLoginAction(ctx *cartridge.Context) error {
	var params LoginParams
	if err := ctx.BodyParser(&params); err != nil {
		return badRequest(ctx, "Invalid request")
	}
	params.Email = strings.TrimSpace(params.Email)
	if params.Email == "" || params.Password == "" {
		return badRequest(ctx, "Email and password are required")
	}

	db := ctx.DB()
	now := time.Now().UTC()

	user, err := users.Authenticate(db, ctx.Logger, params.Email, params.Password, now)
	if errors.Is(err, users.ErrInvalidCredentials) {
		ctx.Logger.Warn("Failed admin login attempt", slog.String("ip", ctx.IP()))
		return errorJSON(ctx, fiber.StatusUnauthorized, "Invalid email or password", codeUnauthorized)
	}
	if err != nil {
		ctx.Logger.Error("Failed to authenticate admin", slog.Any("error", err))
		return storageError(ctx)
	}

	ttl := time.Duration(config.GetConfig().GetAdminTokenTTLSeconds()) * time.Second
	secret, token, err := users.IssueToken(db, ctx.Logger, user.ID, ttl, now)
	if err != nil {
		ctx.Logger.Error("Failed to issue admin token", slog.Any("error", err))
		return storageError(ctx)
	}

	ctx.Logger.Info("Admin logged in", slog.Uint64("user_id", uint64(user.ID)))
	return ctx.JSON(fiber.Map{
		"token":     secret,
		"expiresAt": token.ExpiresAt,
	})
}

// AdminLogoutAction revokes the token used for the request.
func AdminLogoutAction(ctx *cartridge.Context) error {
	token, _ := ctx.Locals(middleware.AdminTokenKey).(string)
	if err := users.RevokeToken(ctx.DB(), ctx.Logger, token); err != nil {
		ctx.Logger.Error("Failed to revoke admin token", slog.Any("error", err))
		return storageError(ctx)
	}
	return ctx.SendStatus(fiber.StatusNoContent)
}
