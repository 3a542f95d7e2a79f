// Package http provides the HTTP server, router abstraction, and route
// registration for the hub API.
package http

import "net/http"

// Middleware wraps an http.Handler.
type Middleware func(http.Handler) http.Handler

// Router is the registration surface the routes package programs
// against. Keeping handlers off the concrete mux means the router can be
// swapped without touching application code.
type Router interface {
	// Method registrars. Route middleware applies first-outermost.
	GET(path string, handler http.HandlerFunc, middlewares ...Middleware)
	POST(path string, handler http.HandlerFunc, middlewares ...Middleware)
	PUT(path string, handler http.HandlerFunc, middlewares ...Middleware)
	DELETE(path string, handler http.HandlerFunc, middlewares ...Middleware)

	// Group mounts fn under prefix; group middleware covers every route
	// registered inside.
	Group(prefix string, fn func(Router), middlewares ...Middleware)

	// Use appends middleware for all subsequently registered routes.
	Use(middlewares ...Middleware)

	// Handler yields the assembled http.Handler.
	Handler() http.Handler

	// Walk visits every registered route, for the route printer.
	Walk(fn func(method, path string, handler http.Handler) error) error
}
