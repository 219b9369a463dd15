package router

import (
	"github.com/gofiber/fiber/v2"

	"github.com/ataljudge/judge-api/internal/config"
	"github.com/ataljudge/judge-api/internal/handler"
	"github.com/ataljudge/judge-api/internal/observability"
)

// Dependencies groups router dependencies for registration.
type Dependencies struct {
	SubmissionHandler *handler.SubmissionHandler
	QuestionHandler   *handler.QuestionHandler
	GradeHandler      *handler.GradeHandler
	JWTMiddleware     fiber.Handler
}

// Register wires the HTTP routes into the fiber application.
func Register(app *fiber.App, cfg config.Config, deps Dependencies) {
	// Common v1 group for health & headers
	api := app.Group("/api/v1", func(c *fiber.Ctx) error {
		c.Set("X-Application", cfg.AppName)
		return c.Next()
	})
	api.Get("/health", handler.HealthCheck(cfg))

	app.Get("/metrics", observability.MetricsHandler())

	// Use provided JWT middleware, or a no-op if nil
	jwtMiddleware := deps.JWTMiddleware
	if jwtMiddleware == nil {
		jwtMiddleware = func(c *fiber.Ctx) error { return c.Next() }
	}

	if deps.SubmissionHandler != nil {
		submissions := app.Group("/api/v1/submissions", jwtMiddleware)
		deps.SubmissionHandler.Register(submissions)
	}

	if deps.QuestionHandler != nil {
		questions := app.Group("/api/v1/questions", jwtMiddleware)
		deps.QuestionHandler.Register(questions)
	}

	if deps.GradeHandler != nil {
		grades := app.Group("/api/v1/grades", jwtMiddleware)
		deps.GradeHandler.Register(grades)
	}
}
