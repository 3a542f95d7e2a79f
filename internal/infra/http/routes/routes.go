// Package routes registers all HTTP routes for the API.
// Routes are organized by domain for maintainability.
package routes

import (
	"github.com/apphubio/api/internal/app"
	infrahttp "github.com/apphubio/api/internal/infra/http"
	"github.com/apphubio/api/internal/infra/http/handler"
	"github.com/apphubio/api/internal/infra/http/middleware"
	"github.com/apphubio/api/pkg/logger"
)

// Middleware is an alias to the http package's Middleware type.
type Middleware = infrahttp.Middleware

// Router is an alias to the http package's Router interface.
type Router = infrahttp.Router

// Handlers holds all HTTP handlers for route registration.
type Handlers struct {
	Health      *handler.HealthHandler
	Auth        *handler.AuthHandler
	Profile     *handler.ProfileHandler
	Dashboard   *handler.DashboardHandler
	Application *handler.ApplicationHandler
	Group       *handler.GroupHandler
	Permission  *handler.PermissionHandler
}

// Register registers all application routes.
// This keeps route definitions in the infrastructure layer, not in main.
//
// Routes are organized across multiple files by domain:
//   - auth.go: Registration, login and session lifecycle
//   - dashboard.go: Current user profile and resolved applications
//   - admin.go: User, application, group and permission administration
//   - misc.go: Health probes and Prometheus metrics
func Register(router Router, h Handlers, authService *app.AuthService, log *logger.Logger) {
	authMiddleware := middleware.Authenticate(authService.TokenGenerator(), authService, log)

	registerHealthRoutes(router, h.Health)
	registerAuthRoutes(router, h.Auth, authMiddleware)
	registerDashboardRoutes(router, h, authMiddleware)
	registerAdminRoutes(router, h, authMiddleware)
}
