package routes

import (
	"net/http"

	"github.com/prometheus/client_golang/prometheus/promhttp"

	"github.com/apphubio/api/internal/infra/http/handler"
)

// registerHealthRoutes registers the health probes and the Prometheus
// metrics endpoint. All of them are public and skipped by request logging.
func registerHealthRoutes(router Router, h *handler.HealthHandler) {
	router.GET("/health", h.Health)
	router.GET("/ready", h.Ready)

	metricsHandler := promhttp.Handler()
	router.GET("/metrics", func(w http.ResponseWriter, r *http.Request) {
		metricsHandler.ServeHTTP(w, r)
	})
}
