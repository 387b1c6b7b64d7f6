package http

import (
	"github.com/gofiber/fiber/v2"

	"github.com/spec-kit/access-token-service/internal/api/http/handlers"
	"github.com/spec-kit/access-token-service/internal/auth"
	"github.com/spec-kit/access-token-service/internal/domain"
)

// RouteConfig bundles dependencies for route registration.
type RouteConfig struct {
	Health         *handlers.HealthHandler
	Users          *handlers.UsersHandler
	AuthMiddleware *auth.AuthMiddleware
}

// RegisterRoutes wires HTTP routes.
func RegisterRoutes(app *fiber.App, cfg RouteConfig) {
	app.Get("/health/live", cfg.Health.Live)
	app.Get("/health/ready", cfg.Health.Ready)
	app.Get("/metrics", cfg.Health.Metrics)

	users := app.Group("/user")
	users.Post("", cfg.Users.Register)
	users.Post("/login", cfg.Users.Login)
	users.Get("", cfg.AuthMiddleware.Handle, auth.RequireAbility(domain.AbilityReadProfile), cfg.Users.Me)
}
