// Package metrics defines the Prometheus metrics exposed by the API.
package metrics

import (
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

// Access resolution metrics
var (
	// AccessResolutionsTotal tracks access resolutions by outcome.
	// outcome is "resolved", "cached", "fallback" or "open".
	AccessResolutionsTotal = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Namespace: "apphub",
			Name:      "access_resolutions_total",
			Help:      "Total number of access resolutions by outcome",
		},
		[]string{"outcome"},
	)

	// AccessResolveDuration tracks how long building and resolving a
	// permission snapshot takes.
	AccessResolveDuration = promauto.NewHistogram(
		prometheus.HistogramOpts{
			Namespace: "apphub",
			Name:      "access_resolve_duration_seconds",
			Help:      "Access resolution duration in seconds",
			Buckets:   []float64{0.005, 0.01, 0.025, 0.05, 0.1, 0.25, 0.5, 1, 3},
		},
	)

	// AccessFallbacksTotal counts deny-all fallbacks served because the
	// authoritative permission state could not be loaded in time.
	AccessFallbacksTotal = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Namespace: "apphub",
			Name:      "access_fallbacks_total",
			Help:      "Total number of deny-all access fallbacks by reason",
		},
		[]string{"reason"},
	)
)

// Authentication metrics
var (
	// AuthLoginsTotal tracks login attempts by result.
	// result is "success", "invalid_credentials" or "inactive".
	AuthLoginsTotal = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Namespace: "apphub",
			Name:      "auth_logins_total",
			Help:      "Total number of login attempts by result",
		},
		[]string{"result"},
	)

	// AuthRegistrationsTotal counts completed registrations.
	AuthRegistrationsTotal = promauto.NewCounter(
		prometheus.CounterOpts{
			Namespace: "apphub",
			Name:      "auth_registrations_total",
			Help:      "Total number of completed registrations",
		},
	)

	// AuthTokenRefreshesTotal tracks refresh-token exchanges by result.
	AuthTokenRefreshesTotal = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Namespace: "apphub",
			Name:      "auth_token_refreshes_total",
			Help:      "Total number of refresh token exchanges by result",
		},
		[]string{"result"},
	)
)

// Admin mutation metrics
var (
	// PermissionChangesTotal tracks grant mutations by kind.
	// kind is "individual_grant", "individual_revoke", "group_grant" or
	// "group_revoke".
	PermissionChangesTotal = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Namespace: "apphub",
			Name:      "permission_changes_total",
			Help:      "Total number of permission mutations by kind",
		},
		[]string{"kind"},
	)
)
