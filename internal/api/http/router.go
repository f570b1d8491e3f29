package http

import (
	"github.com/gofiber/fiber/v2"
	"github.com/gofiber/fiber/v2/middleware/adaptor"

	"github.com/spec-kit/auth-service/internal/api/http/handlers"
	"github.com/spec-kit/auth-service/internal/auth"
	"github.com/spec-kit/auth-service/internal/domain"
	"github.com/spec-kit/auth-service/internal/observability"
)

// RouteConfig bundles dependencies for route registration.
type RouteConfig struct {
	Health         *handlers.HealthHandler
	Auth           *handlers.AuthHandler
	Users          *handlers.UsersHandler
	Admin          *handlers.AdminHandler
	AuthMiddleware *auth.AuthMiddleware
	Metrics        *observability.Metrics
}

// RegisterRoutes wires HTTP routes. Health checks and /metrics are mounted ahead of
// the authentication middleware; everything under /api runs through it.
func RegisterRoutes(app *fiber.App, cfg RouteConfig) {
	app.Get("/health/live", cfg.Health.Live)
	app.Get("/health/ready", cfg.Health.Ready)
	if cfg.Metrics != nil {
		app.Get("/metrics", adaptor.HTTPHandler(cfg.Metrics.Handler()))
	}

	api := app.Group("/api/v1", cfg.AuthMiddleware.Handle)

	authGroup := api.Group("/auth")
	authGroup.Post("/register", cfg.Auth.Register)
	authGroup.Post("/login", cfg.Auth.Login)
	authGroup.Post("/refresh-token", cfg.Auth.Refresh)
	authGroup.Post("/logout", cfg.Auth.Logout)
	authGroup.Post("/register-admin", auth.RequireRole(domain.RoleAdmin), cfg.Auth.RegisterAdmin)

	user := api.Group("/user", auth.RequireAuthenticated())
	user.Get("/profile", auth.RequireAuthority(domain.PermissionUserRead), cfg.Users.Profile)
	user.Put("/update", auth.RequireAuthority(domain.PermissionUserUpdate), cfg.Users.UpdateProfile)

	admin := api.Group("/admin", auth.RequireRole(domain.RoleAdmin))
	admin.Get("/users", auth.RequireAuthority(domain.PermissionAdminReadUsers), cfg.Admin.ListUsers)
	manage := auth.RequireAuthority(domain.PermissionAdminManageUsers)
	admin.Put("/users/:id", manage, cfg.Admin.UpdateUser)
	admin.Delete("/users/:id", manage, cfg.Admin.DeleteUser)
	admin.Post("/users/:id/restore", manage, cfg.Admin.RestoreUser)
	admin.Put("/roles/:name/permissions", manage, cfg.Admin.SetRolePermissions)
}
