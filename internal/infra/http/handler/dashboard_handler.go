package handler

import (
	"errors"
	"net/http"

	"github.com/apphubio/api/internal/app"
	apphttp "github.com/apphubio/api/internal/infra/http"
	"github.com/apphubio/api/internal/infra/http/middleware"
	"github.com/apphubio/api/pkg/apierror"
	"github.com/apphubio/api/pkg/domain/profile"
	"github.com/apphubio/api/pkg/domain/shared"
	"github.com/apphubio/api/pkg/logger"
)

// DashboardHandler serves the authenticated user's resolved application
// dashboard.
type DashboardHandler struct {
	access *app.AccessService
	logger *logger.Logger
}

// NewDashboardHandler creates a new dashboard handler.
func NewDashboardHandler(access *app.AccessService, log *logger.Logger) *DashboardHandler {
	return &DashboardHandler{
		access: access,
		logger: log,
	}
}

// LaunchResponse is returned by the launch check for a single application.
type LaunchResponse struct {
	Application app.ResolvedApplication `json:"application"`
	URL         string                  `json:"url,omitempty"`
}

func (h *DashboardHandler) handleServiceError(w http.ResponseWriter, err error) {
	switch {
	case errors.Is(err, profile.ErrProfileNotFound):
		// The token outlived the account.
		apierror.NotFound("User").WriteJSON(w)
	case errors.Is(err, shared.ErrNotFound):
		apierror.NotFound("Application").WriteJSON(w)
	case errors.Is(err, shared.ErrValidation):
		apierror.BadRequest(trimSentinel(err)).WriteJSON(w)
	default:
		h.logger.Error("access resolution error", "error", err)
		apierror.InternalError(err).WriteJSON(w)
	}
}

// MyApplications handles GET /api/v1/my/applications. When resolution is
// degraded the response still succeeds, with every application locked and
// the degraded flag set.
func (h *DashboardHandler) MyApplications(w http.ResponseWriter, r *http.Request) {
	userID := middleware.GetUserID(r.Context())
	if userID == "" {
		apierror.Unauthorized("Authentication required").WriteJSON(w)
		return
	}

	resolved, err := h.access.ResolveUserApps(r.Context(), userID)
	if err != nil {
		h.handleServiceError(w, err)
		return
	}

	respondJSON(w, http.StatusOK, resolved)
}

// Launch handles GET /api/v1/my/applications/{appId}/launch. A locked
// application yields 403 and never discloses the target URL.
func (h *DashboardHandler) Launch(w http.ResponseWriter, r *http.Request) {
	userID := middleware.GetUserID(r.Context())
	if userID == "" {
		apierror.Unauthorized("Authentication required").WriteJSON(w)
		return
	}

	resolved, err := h.access.CheckAccess(r.Context(), userID, apphttp.PathParam(r, "appId"))
	if err != nil {
		h.handleServiceError(w, err)
		return
	}

	if !resolved.Accessible {
		apierror.Forbidden("You do not have access to this application").WriteJSON(w)
		return
	}

	respondJSON(w, http.StatusOK, LaunchResponse{
		Application: *resolved,
		URL:         resolved.URL,
	})
}
