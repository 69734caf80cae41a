package internal

import (
	"time"

	"github.com/gofiber/fiber/v2"
	"github.com/gofiber/fiber/v2/middleware/cors"
	"github.com/karloscodes/cartridge"
	cartridgemiddleware "github.com/karloscodes/cartridge/middleware"

	v1 "folio/api/v1"
	"folio/internal/config"
	"folio/internal/http"
	"folio/internal/http/middleware"
)

// publicCORSConfig is shared by every endpoint the portfolio site calls from the browser.
func publicCORSConfig(cfg *config.Config) *cors.Config {
	return &cors.Config{
		AllowOrigins: cfg.GetAllowedOrigins(),
		AllowMethods: "POST,GET,OPTIONS",
		AllowHeaders: "Origin, Content-Type, Accept, Referrer, User-Agent, X-Forwarded-User-Agent",
	}
}

// adminCORSConfig allows an admin frontend on another origin to send bearer tokens.
func adminCORSConfig(cfg *config.Config) *cors.Config {
	return &cors.Config{
		AllowOrigins: cfg.GetAllowedOrigins(),
		AllowMethods: "GET,POST,DELETE,OPTIONS",
		AllowHeaders: "Origin, Content-Type, Accept, Authorization",
	}
}

func noContent(ctx *cartridge.Context) error {
	return ctx.SendStatus(fiber.StatusNoContent)
}

// MountAppRoutes mounts all application routes using cartridge's route API
func MountAppRoutes(srv *cartridge.Server) {
	cfg := config.GetConfig()

	// Helper to conditionally apply rate limiting (only in production)
	// In development/test, rate limiting would interfere with testing
	conditionalRateLimiter := func(limiter fiber.Handler) fiber.Handler {
		return func(c *fiber.Ctx) error {
			if cfg.IsProduction() {
				return limiter(c)
			}
			return c.Next()
		}
	}

	// Page view ingestion and public reads (70 requests per minute per IP)
	publicRateLimiter := conditionalRateLimiter(cartridgemiddleware.RateLimiter(
		cartridgemiddleware.WithMax(70),
		cartridgemiddleware.WithDuration(time.Minute),
	))

	// Form submissions and login (10 requests per minute per IP).
	// The contact throttle still applies per email and address on top of this.
	strictRateLimiter := conditionalRateLimiter(cartridgemiddleware.RateLimiter(
		cartridgemiddleware.WithMax(10),
		cartridgemiddleware.WithDuration(time.Minute),
	))

	// Public API: CORS runs first so 403 responses carry CORS headers.
	// Global SecFetchSite middleware allows: cross-site, same-site, same-origin
	publicAPIConfig := &cartridge.RouteConfig{
		EnableCORS:       true,
		WriteConcurrency: false,
		CustomMiddleware: []fiber.Handler{publicRateLimiter},
		CORSConfig:       publicCORSConfig(cfg),
	}

	formConfig := &cartridge.RouteConfig{
		EnableCORS:       true,
		CustomMiddleware: []fiber.Handler{strictRateLimiter},
		CORSConfig:       publicCORSConfig(cfg),
	}

	// Admin API authenticates with bearer tokens, so requests from scripts and
	// the CLI carry no Sec-Fetch-Site header.
	loginConfig := &cartridge.RouteConfig{
		EnableCORS:         true,
		EnableSecFetchSite: cartridge.Bool(false),
		CustomMiddleware:   []fiber.Handler{strictRateLimiter},
		CORSConfig:         adminCORSConfig(cfg),
	}

	db := srv.GetDBManager().GetConnection()
	logger := srv.GetLogger()

	adminAPIConfig := &cartridge.RouteConfig{
		EnableCORS:         true,
		EnableSecFetchSite: cartridge.Bool(false),
		CustomMiddleware:   []fiber.Handler{middleware.AdminTokenAuth(db, logger)},
		CORSConfig:         adminCORSConfig(cfg),
	}

	preflightConfig := &cartridge.RouteConfig{
		EnableCORS:         true,
		EnableSecFetchSite: cartridge.Bool(false),
		CORSConfig:         adminCORSConfig(cfg),
	}

	// Health check endpoint
	srv.Get("/_health", http.HealthIndexAction)
	srv.Head("/_health", http.HealthIndexAction)

	// === PUBLIC API ROUTES ===
	srv.Post("/api/v1/visits", v1.CreateVisitHandler, publicAPIConfig)
	srv.Options("/api/v1/visits", noContent, publicAPIConfig)

	srv.Post("/api/v1/contact", v1.CreateContactMessageHandler, formConfig)
	srv.Options("/api/v1/contact", noContent, formConfig)

	srv.Post("/api/v1/newsletter", v1.SubscribeNewsletterHandler, formConfig)
	srv.Options("/api/v1/newsletter", noContent, formConfig)
	srv.Get("/api/v1/newsletter/confirm/:token", v1.ConfirmNewsletterHandler, publicAPIConfig)

	srv.Get("/api/v1/content/:key", v1.GetContentHandler, publicAPIConfig)
	srv.Get("/api/v1/services", v1.ListServicesHandler, publicAPIConfig)

	// === AUTHENTICATION ROUTES ===
	srv.Post("/api/admin/login", http.AdminLoginAction, loginConfig)
	srv.Options("/api/admin/login", noContent, preflightConfig)
	srv.Post("/api/admin/logout", http.AdminLogoutAction, adminAPIConfig)

	// === PROTECTED ADMIN API ROUTES ===
	srv.Get("/api/admin/analytics", http.AnalyticsAction, adminAPIConfig)

	srv.Get("/api/admin/messages", http.MessagesIndexAction, adminAPIConfig)
	srv.Get("/api/admin/messages/counts", http.MessageCountsAction, adminAPIConfig)
	srv.Get("/api/admin/messages/:id", http.MessageShowAction, adminAPIConfig)
	srv.Post("/api/admin/messages/:id/status", http.MessageStatusAction, adminAPIConfig)
	srv.Delete("/api/admin/messages/:id", http.MessageDeleteAction, adminAPIConfig)

	srv.Get("/api/admin/content", http.ContentIndexAction, adminAPIConfig)
	srv.Post("/api/admin/content", http.ContentCreateAction, adminAPIConfig)
	srv.Post("/api/admin/content/:key", http.ContentUpdateAction, adminAPIConfig)
	srv.Delete("/api/admin/content/:key", http.ContentDeleteAction, adminAPIConfig)

	srv.Get("/api/admin/services", http.ServicesIndexAction, adminAPIConfig)
	srv.Post("/api/admin/services", http.ServiceCreateAction, adminAPIConfig)
	srv.Post("/api/admin/services/:id", http.ServiceUpdateAction, adminAPIConfig)
	srv.Delete("/api/admin/services/:id", http.ServiceDeleteAction, adminAPIConfig)

	srv.Get("/api/admin/newsletter", http.NewsletterIndexAction, adminAPIConfig)
	srv.Post("/api/admin/newsletter/unsubscribe", http.NewsletterUnsubscribeAction, adminAPIConfig)

	srv.Get("/api/admin/settings/excluded-ips", http.ExcludedIPsAction, adminAPIConfig)
	srv.Post("/api/admin/settings/excluded-ips", http.UpdateExcludedIPsAction, adminAPIConfig)
}
