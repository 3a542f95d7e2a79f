package routes

import (
	"github.com/apphubio/api/internal/infra/http/handler"
)

// registerAuthRoutes registers registration, login and session lifecycle
// endpoints. Register, login and refresh are public; logout and password
// changes require a valid access token.
func registerAuthRoutes(router Router, h *handler.AuthHandler, authMiddleware Middleware) {
	router.Group("/api/v1/auth", func(r Router) {
		r.POST("/register", h.Register)
		r.POST("/login", h.Login)
		r.POST("/refresh", h.Refresh)

		r.POST("/logout", h.Logout, authMiddleware)
		r.POST("/logout-all", h.LogoutAll, authMiddleware)
		r.POST("/change-password", h.ChangePassword, authMiddleware)
	})
}
