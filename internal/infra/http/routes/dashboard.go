package routes

// registerDashboardRoutes registers the endpoints every authenticated user
// can reach: their own profile and their resolved application dashboard.
func registerDashboardRoutes(router Router, h Handlers, authMiddleware Middleware) {
	router.Group("/api/v1/me", func(r Router) {
		r.GET("/", h.Profile.Me)
		r.PUT("/", h.Profile.UpdateMe)
	}, authMiddleware)

	router.Group("/api/v1/my/applications", func(r Router) {
		r.GET("/", h.Dashboard.MyApplications)
		r.GET("/{appId}/launch", h.Dashboard.Launch)
	}, authMiddleware)
}
