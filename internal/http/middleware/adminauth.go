package middleware

import (
	"errors"
	"log/slog"
	"strings"
	"time"

	"github.com/gofiber/fiber/v2"
	"gorm.io/gorm"

	"folio/internal/users"
)

// Locals keys set by AdminTokenAuth.
const (
	AdminIDKey    = "adminID"
	AdminTokenKey = "adminToken"
)

// AdminTokenAuth validates the bearer token issued by the admin login endpoint.
// Expects: Authorization: Bearer <token>
func AdminTokenAuth(db *gorm.DB, logger *slog.Logger) fiber.Handler {
	return func(c *fiber.Ctx) error {
		token, problem := bearerToken(c.Get(fiber.HeaderAuthorization))
		if problem != "" {
			return unauthorized(c, problem)
		}

		user, err := users.VerifyToken(db, token, time.Now().UTC())
		if errors.Is(err, users.ErrInvalidToken) {
			return unauthorized(c, "Invalid or expired token")
		}
		if err != nil {
			logger.Error("Failed to verify admin token", slog.Any("error", err))
			return c.Status(fiber.StatusInternalServerError).JSON(fiber.Map{
				"error": "Failed to verify token",
				"code":  "STORAGE_ERROR",
			})
		}

		c.Locals(AdminIDKey, user.ID)
		c.Locals(AdminTokenKey, token)
		return c.Next()
	}
}

// AdminID returns the authenticated admin's id, or 0 outside AdminTokenAuth.
func AdminID(c *fiber.Ctx) uint {
	id, _ := c.Locals(AdminIDKey).(uint)
	return id
}

// bearerToken extracts the token, or describes why the header is unusable.
func bearerToken(header string) (token string, problem string) {
	if header == "" {
		return "", "Missing Authorization header"
	}
	if !strings.HasPrefix(header, "Bearer ") {
		return "", "Invalid Authorization header format. Expected: Bearer <token>"
	}
	token = strings.TrimSpace(strings.TrimPrefix(header, "Bearer "))
	if token == "" {
		return "", "Token is empty"
	}
	return token, ""
}

func unauthorized(c *fiber.Ctx, message string) error {
	return c.Status(fiber.StatusUnauthorized).JSON(fiber.Map{
		"error": message,
		"code":  "UNAUTHORIZED",
	})
}
