package http

import (
	"net/http"

	"github.com/go-chi/chi/v5"
)

// PathParam reads a URL path parameter. Handlers go through this helper
// so they stay decoupled from the router implementation.
func PathParam(r *http.Request, key string) string {
	if val := chi.URLParam(r, key); val != "" {
		return val
	}
	return r.PathValue(key)
}
