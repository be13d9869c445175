package http

import (
	"github.com/gofiber/fiber/v2"

	"github.com/spec-kit/checkin-agent/internal/api/http/handlers"
	"github.com/spec-kit/checkin-agent/internal/auth"
	"github.com/spec-kit/checkin-agent/internal/domain"
)

// RouteConfig bundles dependencies for route registration.
type RouteConfig struct {
	Health         *handlers.HealthHandler
	Auth           *handlers.AuthHandler
	CheckIn        *handlers.CheckInHandler
	DataAccess     *handlers.DataAccessHandler
	Preferences    *handlers.PreferencesHandler
	Notifications  *handlers.NotificationsHandler
	Platform       *handlers.PlatformHandler
	Metrics        fiber.Handler
	AuthMiddleware *auth.AuthMiddleware
}

// RegisterRoutes wires HTTP routes.
func RegisterRoutes(app *fiber.App, cfg RouteConfig) {
	app.Get("/health/live", cfg.Health.Live)
	app.Get("/health/ready", cfg.Health.Ready)
	if cfg.Metrics != nil {
		app.Get("/metrics", cfg.Metrics)
	}

	app.Post("/auth/token", cfg.Auth.Token)

	// per-route guards keep the app and platform subjects apart
	appOnly := func(h fiber.Handler) []fiber.Handler {
		return []fiber.Handler{cfg.AuthMiddleware.Handle, auth.RequireSubject(domain.SubjectApp), h}
	}

	app.Get("/checkin", appOnly(cfg.CheckIn.Get)...)
	app.Post("/checkin", appOnly(cfg.CheckIn.CheckIn)...)
	app.Put("/checkin/automatic-checkout", appOnly(cfg.CheckIn.SetAutomaticCheckOut)...)
	app.Post("/checkout", appOnly(cfg.CheckIn.CheckOut)...)

	app.Get("/data-access", appOnly(cfg.DataAccess.List)...)
	app.Post("/data-access/fetch", appOnly(cfg.DataAccess.Fetch)...)

	app.Get("/preferences/automatic-checkout", appOnly(cfg.Preferences.GetAutomaticCheckout)...)
	app.Put("/preferences/automatic-checkout", appOnly(cfg.Preferences.PutAutomaticCheckout)...)
	app.Get("/preferences/location-consent", appOnly(cfg.Preferences.GetLocationConsent)...)
	app.Put("/preferences/location-consent", appOnly(cfg.Preferences.PutLocationConsent)...)

	app.Get("/notifications", appOnly(cfg.Notifications.List)...)

	platform := app.Group("/platform", cfg.AuthMiddleware.Handle, auth.RequireSubject(domain.SubjectPlatform))
	platform.Put("/location", cfg.Platform.PutLocation)
	platform.Put("/permission", cfg.Platform.PutPermission)
	platform.Put("/location-service", cfg.Platform.PutLocationService)
	platform.Post("/geofence-events", cfg.Platform.PostGeofenceEvent)
	platform.Get("/regions", cfg.Platform.ListRegions)
}
