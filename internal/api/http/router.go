package http

import (
	"github.com/gofiber/fiber/v2"

	"github.com/crm-whatsapp/crm-service/internal/api/http/handlers"
	"github.com/crm-whatsapp/crm-service/internal/auth"
	"github.com/crm-whatsapp/crm-service/internal/domain"
)

// RouteConfig bundles dependencies for route registration.
type RouteConfig struct {
	Health         *handlers.HealthHandler
	Auth           *handlers.AuthHandler
	Clients        *handlers.ClientsHandler
	Operators      *handlers.OperatorsHandler
	AuthMiddleware *auth.AuthMiddleware
}

// RegisterRoutes wires HTTP routes.
func RegisterRoutes(app *fiber.App, cfg RouteConfig) {
	app.Get("/health/live", cfg.Health.Live)
	app.Get("/health/ready", cfg.Health.Ready)

	app.Post("/auth/login", cfg.Auth.Login)

	protected := app.Group("", cfg.AuthMiddleware.Handle, auth.RequireRole())
	protected.Post("/auth/logout", cfg.Auth.Logout)
	protected.Get("/auth/me", cfg.Auth.Me)

	protected.Get("/session", cfg.Auth.Me)
	protected.Put("/session/filters", cfg.Auth.SetFilters)
	protected.Put("/session/edit-target", cfg.Auth.SetEditTarget)

	protected.Get("/meta/statuses", handlers.Statuses)

	clients := protected.Group("/clients")
	clients.Get("", cfg.Clients.List)
	clients.Post("", cfg.Clients.Create)
	clients.Get("/:id", cfg.Clients.Get)
	clients.Patch("/:id", cfg.Clients.Update)
	clients.Delete("/:id", cfg.Clients.Delete)
	clients.Post("/:id/contact", cfg.Clients.MarkContacted)
	clients.Post("/:id/message", cfg.Clients.ComposeMessage)
	clients.Post("/:id/message/save", cfg.Clients.SaveMessage)
	clients.Get("/:id/whatsapp", cfg.Clients.WhatsAppLink)

	admin := protected.Group("", auth.RequireRole(domain.RoleAdmin))
	admin.Get("/operators", cfg.Operators.List)
	admin.Post("/operators", cfg.Operators.Create)
	admin.Patch("/operators/:username", cfg.Operators.Update)
	admin.Delete("/operators/:username", cfg.Operators.Delete)
	admin.Get("/logs", cfg.Operators.Logs)
}
