// Package server assembles the services, handlers and middleware into a Fiber app.
package server

import (
	"context"
	"errors"
	"fmt"
	"log/slog"

	"github.com/gofiber/fiber/v2"
	fiberlogger "github.com/gofiber/fiber/v2/middleware/logger"
	"github.com/gofiber/fiber/v2/middleware/recover"
	"github.com/gofiber/fiber/v2/middleware/requestid"
	"gorm.io/gorm"

	"github.com/ahmetcoskunkizilkaya/assignment-tracker/internal/config"
	"github.com/ahmetcoskunkizilkaya/assignment-tracker/internal/entitlement"
	"github.com/ahmetcoskunkizilkaya/assignment-tracker/internal/handlers"
	"github.com/ahmetcoskunkizilkaya/assignment-tracker/internal/middleware"
	"github.com/ahmetcoskunkizilkaya/assignment-tracker/internal/reconcile"
	"github.com/ahmetcoskunkizilkaya/assignment-tracker/internal/routes"
	"github.com/ahmetcoskunkizilkaya/assignment-tracker/internal/secrets"
	"github.com/ahmetcoskunkizilkaya/assignment-tracker/internal/services"
)

type Option func(*options)

type options struct {
	providers   services.ProviderFactory
	requestLogs bool
	extra       []fiber.Handler
}

// WithProviders replaces the HTTP provider clients, e.g. with fakes.
func WithProviders(f services.ProviderFactory) Option {
	return func(o *options) { o.providers = f }
}

// WithoutRequestLog turns off the per-request access log.
func WithoutRequestLog() Option {
	return func(o *options) { o.requestLogs = false }
}

// WithMiddleware installs handlers ahead of the API routes.
func WithMiddleware(h ...fiber.Handler) Option {
	return func(o *options) { o.extra = append(o.extra, h...) }
}

type Server struct {
	App         *fiber.App
	Catalog     *entitlement.Catalog
	Assignments *services.AssignmentService
	runner      *reconcile.Runner
}

// LoadCatalog returns the built-in plans, or the ones in cfg.PlansConfigPath.
func LoadCatalog(cfg *config.Config) (*entitlement.Catalog, error) {
	if cfg.PlansConfigPath == "" {
		return entitlement.DefaultCatalog(), nil
	}
	catalog, err := entitlement.LoadFromFile(cfg.PlansConfigPath)
	if err != nil {
		return nil, fmt.Errorf("load plans from %s: %w", cfg.PlansConfigPath, err)
	}
	return catalog, nil
}

func New(cfg *config.Config, db *gorm.DB, opts ...Option) (*Server, error) {
	o := options{providers: services.NewProviderFactory(cfg), requestLogs: true}
	for _, opt := range opts {
		opt(&o)
	}

	if cfg.JWTSecret == "" {
		return nil, errors.New("JWT_SECRET is required")
	}
	vault, err := secrets.NewVault(cfg.CredentialKey())
	if err != nil {
		return nil, err
	}
	catalog, err := LoadCatalog(cfg)
	if err != nil {
		return nil, err
	}
	if !catalog.Exists(cfg.DefaultTier) {
		return nil, fmt.Errorf("default tier %q is not in the plan catalog", cfg.DefaultTier)
	}
	gate := entitlement.NewGate(catalog)

	// Services
	subs := services.NewSubscriptionService(db, catalog, cfg.DefaultTier)
	assignments, err := services.NewAssignmentService(db, subs, gate, cfg.SessionCacheSize)
	if err != nil {
		return nil, err
	}
	users := services.NewUserService(db, vault, subs, gate)
	courses := services.NewCourseService(db, subs, gate)
	reports := services.NewReportService(users, subs, assignments, courses, gate)
	authService := services.NewAuthService(db, cfg, vault)

	runner := reconcile.NewRunner(context.Background())
	reconciler := reconcile.New(cfg.SyncTargetCourses, reconcile.WithConcurrency(cfg.SyncConcurrency))
	syncService := services.NewSyncService(db, users, assignments, courses, subs, gate, reconciler, runner, o.providers)

	// Handlers
	h := routes.Handlers{
		Auth:          handlers.NewAuthHandler(authService, assignments),
		Health:        handlers.NewHealthHandler(db),
		Assignments:   handlers.NewAssignmentHandler(assignments, cfg.Location()),
		Sync:          handlers.NewSyncHandler(syncService),
		Courses:       handlers.NewCourseHandler(courses),
		Users:         handlers.NewUserHandler(users),
		Subscriptions: handlers.NewSubscriptionHandler(subs, reports, assignments),
	}

	app := fiber.New(fiber.Config{
		BodyLimit:    4 * 1024 * 1024,
		ErrorHandler: ErrorHandler,
	})

	for _, mw := range o.extra {
		app.Use(mw)
	}
	app.Use(recover.New())
	app.Use(requestid.New())
	if o.requestLogs {
		app.Use(fiberlogger.New(fiberlogger.Config{
			Format: "${time} | ${status} | ${latency} | ${ip} | ${method} | ${path}\n",
		}))
	}
	app.Use(middleware.CORS(cfg))
	app.Use(middleware.SecurityHeaders())

	routes.Setup(app, cfg, h, gate, subs)

	return &Server{App: app, Catalog: catalog, Assignments: assignments, runner: runner}, nil
}

// Shutdown stops accepting requests, cancels running syncs and flushes every session.
func (s *Server) Shutdown(ctx context.Context) error {
	var errs []error
	if err := s.App.ShutdownWithContext(ctx); err != nil {
		errs = append(errs, fmt.Errorf("http shutdown: %w", err))
	}
	if err := s.runner.Shutdown(ctx); err != nil {
		errs = append(errs, fmt.Errorf("sync runner: %w", err))
	}
	s.Assignments.Close()
	return errors.Join(errs...)
}

// ErrorHandler hides the details of 5xx errors.
func ErrorHandler(c *fiber.Ctx, err error) error {
	code := fiber.StatusInternalServerError
	message := "Internal server error"
	var e *fiber.Error
	if errors.As(err, &e) {
		code = e.Code
		message = e.Message
	}

	// Only expose error details for client errors (4xx), not server errors (5xx)
	if code >= 500 {
		slog.Error("unhandled server error", "method", c.Method(), "path", c.Path(), "error", err.Error())
		message = "Internal server error"
	}

	return c.Status(code).JSON(fiber.Map{
		"error":   true,
		"message": message,
	})
}
