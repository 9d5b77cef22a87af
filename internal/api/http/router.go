package http

import (
	"github.com/gofiber/adaptor/v2"
	"github.com/gofiber/fiber/v2"

	"github.com/spec-kit/fault-service/internal/api/http/handlers"
	"github.com/spec-kit/fault-service/internal/auth"
	"github.com/spec-kit/fault-service/internal/config"
	"github.com/spec-kit/fault-service/internal/domain"
	"github.com/spec-kit/fault-service/internal/observability"
)

// RouteConfig bundles dependencies for route registration.
type RouteConfig struct {
	Health         *handlers.HealthHandler
	Auth           *handlers.AuthHandler
	Faults         *handlers.FaultsHandler
	Users          *handlers.UsersHandler
	Realtime       *handlers.RealtimeHandler
	AuthMiddleware *auth.AuthMiddleware
	Metrics        *observability.Metrics
	Uploads        config.UploadsConfig
}

// RegisterRoutes wires HTTP routes. Static paths register before the :id
// routes so "all", "assigned" and "stats" never parse as fault ids.
func RegisterRoutes(app *fiber.App, cfg RouteConfig) {
	app.Get("/health/live", cfg.Health.Live)
	app.Get("/health/ready", cfg.Health.Ready)
	app.Get("/metrics", adaptor.HTTPHandler(cfg.Metrics.Handler()))

	app.Use("/ws", cfg.Realtime.Upgrade)
	app.Get("/ws", cfg.Realtime.Stream())

	app.Static(cfg.Uploads.BaseURL, cfg.Uploads.Dir)

	authGroup := app.Group("/auth")
	authGroup.Post("/register", cfg.Auth.Register)
	authGroup.Post("/login", cfg.Auth.Login)
	authGroup.Post("/google", cfg.Auth.GoogleLogin)
	authGroup.Post("/forgot-password", cfg.Auth.ForgotPassword)
	authGroup.Put("/reset-password/:token", cfg.Auth.ResetPassword)

	faults := app.Group("/faults", cfg.AuthMiddleware.Handle, auth.RequireAuthenticated())
	faults.Post("", cfg.Faults.CreateFault)
	faults.Get("/my-faults", cfg.Faults.ListMyFaults)
	faults.Get("/all", auth.RequireRole(domain.RoleAdmin), cfg.Faults.ListAllFaults)
	faults.Get("/assigned", auth.RequireRole(domain.RoleEmployee), cfg.Faults.ListAssignedFaults)
	faults.Get("/stats", auth.RequireRole(domain.RoleAdmin), cfg.Faults.Stats)
	faults.Get("/:id", cfg.Faults.GetFault)
	faults.Put("/:id/assign", auth.RequireRole(domain.RoleAdmin), cfg.Faults.AssignFault)
	faults.Put("/:id/status", auth.RequireRole(domain.RoleEmployee, domain.RoleAdmin), cfg.Faults.UpdateStatus)
	faults.Get("/:id/comments", cfg.Faults.ListComments)
	faults.Post("/:id/comments", cfg.Faults.AddComment)

	users := app.Group("/users", cfg.AuthMiddleware.Handle, auth.RequireAuthenticated())
	users.Get("/me", cfg.Users.GetProfile)
	users.Put("/me", cfg.Users.UpdateProfile)
	users.Get("/all", auth.RequireRole(domain.RoleAdmin), cfg.Users.ListUsers)
	users.Get("/employees", auth.RequireRole(domain.RoleAdmin), cfg.Users.ListEmployees)
	users.Put("/:id/role", auth.RequireRole(domain.RoleAdmin), cfg.Users.UpdateRole)
	users.Delete("/:id", auth.RequireRole(domain.RoleAdmin), cfg.Users.DeleteUser)
}
