package routes

import (
	"github.com/apphubio/api/internal/infra/http/middleware"
)

// registerAdminRoutes registers the administration API. Every route in
// this group requires an authenticated admin.
func registerAdminRoutes(router Router, h Handlers, authMiddleware Middleware) {
	router.Group("/api/v1/admin", func(r Router) {
		// User management
		r.GET("/users", h.Profile.ListUsers)
		r.GET("/users/{userId}", h.Profile.GetUser)
		r.PUT("/users/{userId}/role", h.Profile.ChangeRole)
		r.PUT("/users/{userId}/status", h.Profile.SetActive)
		r.DELETE("/users/{userId}", h.Profile.DeleteUser)
		r.GET("/users/{userId}/permissions", h.Permission.ListByUser)

		// Application catalog. The order route is registered before the
		// parameterized ones so chi does not treat "order" as an ID.
		r.PUT("/applications/order", h.Application.Reorder)
		r.GET("/applications", h.Application.List)
		r.POST("/applications", h.Application.Create)
		r.GET("/applications/{appId}", h.Application.Get)
		r.PUT("/applications/{appId}", h.Application.Update)
		r.DELETE("/applications/{appId}", h.Application.Delete)
		r.GET("/applications/{appId}/access-stats", h.Application.AccessStats)
		r.GET("/applications/{appId}/permissions", h.Permission.ListByApplication)

		// Groups, membership and group grants
		r.GET("/groups", h.Group.List)
		r.POST("/groups", h.Group.Create)
		r.GET("/groups/{groupId}", h.Group.Get)
		r.PUT("/groups/{groupId}", h.Group.Update)
		r.DELETE("/groups/{groupId}", h.Group.Delete)
		r.GET("/groups/{groupId}/members", h.Group.ListMembers)
		r.POST("/groups/{groupId}/members", h.Group.AddMember)
		r.DELETE("/groups/{groupId}/members/{userId}", h.Group.RemoveMember)
		r.GET("/groups/{groupId}/permissions", h.Group.ListGrants)
		r.PUT("/groups/{groupId}/permissions", h.Group.UpsertGrant)
		r.DELETE("/groups/{groupId}/permissions/{appId}", h.Group.RemoveGrant)

		// Individual permission grants
		r.PUT("/permissions", h.Permission.Grant)
		r.DELETE("/permissions/{userId}/{appId}", h.Permission.Revoke)
	}, authMiddleware, middleware.RequireAdmin())
}
