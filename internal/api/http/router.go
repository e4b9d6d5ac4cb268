package http

import (
	"github.com/gofiber/fiber/v2"

	"github.com/helpdesk-br/helpdesk-service/internal/api/http/handlers"
	"github.com/helpdesk-br/helpdesk-service/internal/auth"
	"github.com/helpdesk-br/helpdesk-service/internal/domain"
)

// RouteConfig bundles dependencies for route registration.
type RouteConfig struct {
	Health         *handlers.HealthHandler
	Users          *handlers.UsersHandler
	Tickets        *handlers.TicketsHandler
	Categories     *handlers.CategoriesHandler
	Metrics        *handlers.MetricsHandler
	Assets         *handlers.AssetsHandler
	AuthMiddleware *auth.AuthMiddleware
}

// RegisterRoutes wires HTTP routes.
func RegisterRoutes(app *fiber.App, cfg RouteConfig) {
	app.Get("/health/live", cfg.Health.Live)
	app.Get("/health/ready", cfg.Health.Ready)

	api := app.Group("/api")

	users := api.Group("/users")
	users.Post("/register", cfg.Users.Register)
	users.Post("/login", cfg.Users.Login)
	users.Post("/password/reset/request", cfg.Users.RequestPasswordReset)
	users.Post("/password/reset/confirm", cfg.Users.ConfirmPasswordReset)

	usersAuth := users.Group("", cfg.AuthMiddleware.Handle, auth.RequireAuthenticated())
	usersAuth.Get("/me", cfg.Users.Profile)
	usersAuth.Put("/me", cfg.Users.UpdateProfile)
	usersAuth.Post("/me/password", cfg.Users.ChangePassword)
	usersAuth.Get("/", auth.RequireStaff(), cfg.Users.ListUsers)
	usersAuth.Post("/", auth.RequireRole(domain.RoleAdmin), cfg.Users.CreateUser)
	usersAuth.Get("/:id", cfg.Users.GetUser)
	usersAuth.Put("/:id", cfg.Users.UpdateUser)
	usersAuth.Delete("/:id", auth.RequireRole(domain.RoleAdmin), cfg.Users.DeleteUser)

	tickets := api.Group("/tickets", cfg.AuthMiddleware.Handle, auth.RequireAuthenticated())
	// Registered before /:id so "metrics" is not captured as a ticket id.
	tickets.Get("/metrics", auth.RequireStaff(), cfg.Metrics.Report)
	tickets.Get("/", cfg.Tickets.ListTickets)
	tickets.Post("/", cfg.Tickets.CreateTicket)
	tickets.Get("/:id", cfg.Tickets.GetTicket)
	tickets.Put("/:id", cfg.Tickets.UpdateTicket)
	tickets.Delete("/:id", auth.RequireStaff(), cfg.Tickets.DeleteTicket)
	tickets.Post("/:id/comments", cfg.Tickets.AddComment)
	tickets.Post("/:id/close", cfg.Tickets.CloseTicket)
	tickets.Post("/:id/reopen", cfg.Tickets.ReopenTicket)

	categories := api.Group("/categories", cfg.AuthMiddleware.Handle, auth.RequireAuthenticated())
	categories.Get("/", cfg.Categories.ListCategories)
	categories.Get("/:id", cfg.Categories.GetCategory)
	categories.Post("/", auth.RequireStaff(), cfg.Categories.CreateCategory)
	categories.Put("/:id", auth.RequireStaff(), cfg.Categories.UpdateCategory)
	categories.Delete("/:id", auth.RequireRole(domain.RoleAdmin), cfg.Categories.DeleteCategory)

	assets := api.Group("/assets", cfg.AuthMiddleware.Handle, auth.RequireStaff())
	assets.Get("/", cfg.Assets.ListAssets)
	assets.Post("/", cfg.Assets.CreateAsset)
	assets.Get("/:id", cfg.Assets.GetAsset)
	assets.Put("/:id", cfg.Assets.UpdateAsset)
	assets.Delete("/:id", cfg.Assets.DeleteAsset)
}
