package routes

import (
	"time"

	"github.com/gofiber/fiber/v2"
	"github.com/gofiber/fiber/v2/middleware/limiter"

	"github.com/ahmetcoskunkizilkaya/assignment-tracker/internal/config"
	"github.com/ahmetcoskunkizilkaya/assignment-tracker/internal/entitlement"
	"github.com/ahmetcoskunkizilkaya/assignment-tracker/internal/handlers"
	"github.com/ahmetcoskunkizilkaya/assignment-tracker/internal/middleware"
	"github.com/ahmetcoskunkizilkaya/assignment-tracker/internal/tracker"
)

// Handlers bundles every HTTP handler the API mounts.
type Handlers struct {
	Auth          *handlers.AuthHandler
	Health        *handlers.HealthHandler
	Assignments   *handlers.AssignmentHandler
	Sync          *handlers.SyncHandler
	Courses       *handlers.CourseHandler
	Users         *handlers.UserHandler
	Subscriptions *handlers.SubscriptionHandler
}

func Setup(app *fiber.App, cfg *config.Config, h Handlers, gate *entitlement.Gate, tiers middleware.TierResolver) {
	api := app.Group("/api")

	// General API rate limiter, per IP
	api.Use(limiter.New(limiter.Config{
		Max:               cfg.RateLimit,
		Expiration:        1 * time.Minute,
		LimiterMiddleware: limiter.SlidingWindow{},
		KeyGenerator:      func(c *fiber.Ctx) string { return c.IP() },
	}))

	api.Get("/health", h.Health.Check)
	api.Get("/plans", h.Subscriptions.Plans)

	// Auth-specific rate limit: 10 req/min per IP (stricter)
	auth := api.Group("/auth")
	auth.Use(limiter.New(limiter.Config{
		Max:               10,
		Expiration:        1 * time.Minute,
		LimiterMiddleware: limiter.SlidingWindow{},
		KeyGenerator:      func(c *fiber.Ctx) string { return c.IP() },
	}))
	auth.Post("/login", h.Auth.Login)
	auth.Post("/refresh", h.Auth.Refresh)

	protected := api.Group("", middleware.JWTProtected(cfg), middleware.RequireUser())

	protected.Post("/auth/logout", h.Auth.Logout)
	protected.Delete("/auth/account", h.Auth.DeleteAccount)

	// static segments before :id
	protected.Get("/assignments", h.Assignments.List)
	protected.Post("/assignments", h.Assignments.Create)
	protected.Get("/assignments/categorized", h.Assignments.Categorized)
	protected.Get("/assignments/:id", h.Assignments.Get)
	protected.Put("/assignments/:id", h.Assignments.Update)
	protected.Delete("/assignments/:id", h.Assignments.Delete)
	protected.Post("/assignments/:id/toggle", h.Assignments.Toggle)

	protected.Get("/calendar", h.Assignments.Month)
	protected.Get("/calendar/day", h.Assignments.Day)

	protected.Post("/canvas/sync", h.Sync.Sync(tracker.SourceCanvas))
	protected.Post("/google/sync", h.Sync.Sync(tracker.SourceGoogle))
	protected.Get("/sync/logs", h.Sync.Logs)
	protected.Delete("/sync/:provider", h.Sync.Cancel)

	protected.Get("/courses", h.Courses.List)
	protected.Post("/courses", h.Courses.Create)
	protected.Delete("/courses/:id", h.Courses.Delete)

	protected.Get("/user", h.Users.Me)
	protected.Put("/user/credentials", h.Users.UpdateCredentials)
	protected.Put("/user/settings", h.Users.UpdateSettings)

	protected.Get("/subscription", h.Subscriptions.Current)
	protected.Put("/subscription", h.Subscriptions.Checkout)
	protected.Post("/subscription/cancel", h.Subscriptions.Cancel)
	protected.Get("/entitlements", h.Subscriptions.Entitlements)

	protected.Get("/analytics",
		middleware.RequireFeature(gate, tiers, entitlement.ActionAnalytics),
		h.Subscriptions.Analytics)
	protected.Get("/export",
		middleware.RequireFeature(gate, tiers, entitlement.ActionCloudBackup),
		h.Subscriptions.Export)
}
