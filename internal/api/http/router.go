package http

import (
	"github.com/gofiber/fiber/v2"

	"github.com/spec-kit/ticket-service/internal/api/http/handlers"
	"github.com/spec-kit/ticket-service/internal/auth"
	"github.com/spec-kit/ticket-service/internal/domain"
)

// RouteConfig bundles dependencies for route registration.
type RouteConfig struct {
	Health         *handlers.HealthHandler
	Auth           *handlers.AuthHandler
	Accounts       *handlers.AccountsHandler
	Webhooks       *handlers.WebhooksHandler
	Tickets        *handlers.TicketsHandler
	AuthMiddleware *auth.Middleware
}

// RegisterRoutes wires HTTP routes.
func RegisterRoutes(app *fiber.App, cfg RouteConfig) {
	app.Get("/health/live", cfg.Health.Live)
	app.Get("/health/ready", cfg.Health.Ready)
	app.Get("/health/metrics", cfg.Health.Metrics)

	authGroup := app.Group("/auth")
	authGroup.Post("/register", cfg.Auth.Register)
	authGroup.Post("/login", cfg.Auth.Login)
	authGroup.Post("/refresh", cfg.Auth.Refresh)
	authGroup.Post("/logout", cfg.Auth.Logout)
	authGroup.Post("/password/reset/request", cfg.Auth.RequestPasswordReset)
	authGroup.Post("/password/reset/confirm", cfg.Auth.ConfirmPasswordReset)

	protected := authGroup.Group("", cfg.AuthMiddleware.Handle)
	protected.Post("/logout-all", cfg.Auth.LogoutAll)
	protected.Post("/password/change", cfg.Auth.ChangePassword)

	accounts := protected.Group("/accounts",
		cfg.AuthMiddleware.RequirePermission(domain.ResourceAccount, domain.ActionManage))
	accounts.Put("/:id/role", cfg.Accounts.UpdateRole)
	accounts.Post("/:id/activate", cfg.Accounts.Activate)
	accounts.Post("/:id/deactivate", cfg.Accounts.Deactivate)

	// Webhooks authenticate via HMAC signatures, not bearer tokens.
	webhooks := app.Group("/webhooks")
	webhooks.Post("/chat", cfg.Webhooks.Chat)
	webhooks.Post("/ticketing", cfg.Webhooks.Ticketing)

	tickets := app.Group("/tickets", cfg.AuthMiddleware.Handle)
	tickets.Post("", cfg.Tickets.Create)
	tickets.Get("", cfg.Tickets.List)
	// Registered before /:id so "assigned" is not read as a ticket id.
	tickets.Get("/assigned", cfg.Tickets.ListAssigned)
	tickets.Get("/:id", cfg.Tickets.Get)
	tickets.Put("/:id/assignee",
		cfg.AuthMiddleware.RequireRole(domain.RoleAdmin, domain.RoleManager), cfg.Tickets.Assign)
	tickets.Post("/:id/close", cfg.Tickets.Close)
}
