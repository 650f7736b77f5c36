package router

import (
	"github.com/gofiber/fiber/v2"

	"github.com/formgate/formgate/internal/config"
	"github.com/formgate/formgate/internal/handler"
	"github.com/formgate/formgate/internal/middleware"
	"github.com/formgate/formgate/internal/observability"
)

// Dependencies groups router dependencies for registration.
type Dependencies struct {
	SubmitHandler          *handler.SubmitHandler
	AdminSubmissionHandler *handler.AdminSubmissionHandler
	DiagnosticsHandler     *handler.DiagnosticsHandler
}

// Register wires the HTTP routes into the fiber application.
func Register(app *fiber.App, cfg config.Config, deps Dependencies) {
	api := app.Group("/api/v1", func(c *fiber.Ctx) error {
		c.Set("X-Application", cfg.AppName)
		return c.Next()
	})
	api.Get("/health", handler.HealthCheck(cfg))

	app.Get("/metrics", observability.MetricsHandler())

	if deps.SubmitHandler != nil {
		contact := api.Group("/contact", middleware.Throttle("contact", cfg.HTTPThrottleMax, cfg.HTTPThrottleWindow))
		deps.SubmitHandler.Register(contact)
	}

	// Admin read side. Authentication is out of scope; deployments are
	// expected to front these routes themselves.
	admin := app.Group("/api/admin")
	if deps.AdminSubmissionHandler != nil {
		deps.AdminSubmissionHandler.Register(admin.Group("/submissions"))
	}
	if deps.DiagnosticsHandler != nil {
		deps.DiagnosticsHandler.Register(admin)
	}
}
