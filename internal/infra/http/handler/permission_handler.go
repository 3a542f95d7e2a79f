package handler

import (
	"errors"
	"net/http"
	"time"

	"github.com/apphubio/api/internal/app"
	apphttp "github.com/apphubio/api/internal/infra/http"
	"github.com/apphubio/api/pkg/apierror"
	"github.com/apphubio/api/pkg/domain/permission"
	"github.com/apphubio/api/pkg/domain/shared"
	"github.com/apphubio/api/pkg/logger"
	"github.com/apphubio/api/pkg/validator"
)

// PermissionHandler handles individual permission grant endpoints.
type PermissionHandler struct {
	service   *app.PermissionService
	validator *validator.Validator
	logger    *logger.Logger
}

// NewPermissionHandler creates a new permission handler.
func NewPermissionHandler(svc *app.PermissionService, v *validator.Validator, log *logger.Logger) *PermissionHandler {
	return &PermissionHandler{
		service:   svc,
		validator: v,
		logger:    log,
	}
}

// PermissionGrantResponse represents an individual grant in API responses.
type PermissionGrantResponse struct {
	ID            string    `json:"id"`
	UserID        string    `json:"user_id"`
	ApplicationID string    `json:"application_id"`
	AccessLevel   string    `json:"access_level"`
	GrantedBy     string    `json:"granted_by,omitempty"`
	CreatedAt     time.Time `json:"created_at"`
	UpdatedAt     time.Time `json:"updated_at"`
}

func toPermissionGrantResponse(g *permission.Grant) PermissionGrantResponse {
	resp := PermissionGrantResponse{
		ID:            g.ID().String(),
		UserID:        g.UserID().String(),
		ApplicationID: g.ApplicationID().String(),
		AccessLevel:   g.Level().String(),
		CreatedAt:     g.CreatedAt(),
		UpdatedAt:     g.UpdatedAt(),
	}
	if g.GrantedBy() != nil {
		resp.GrantedBy = g.GrantedBy().String()
	}
	return resp
}

func (h *PermissionHandler) handleServiceError(w http.ResponseWriter, err error) {
	switch {
	case errors.Is(err, permission.ErrGrantNotFound):
		apierror.NotFound("Permission grant").WriteJSON(w)
	case errors.Is(err, shared.ErrNotFound):
		apierror.NotFound(trimSentinel(err)).WriteJSON(w)
	case errors.Is(err, shared.ErrValidation):
		apierror.BadRequest(trimSentinel(err)).WriteJSON(w)
	default:
		h.logger.Error("permission service error", "error", err)
		apierror.InternalError(err).WriteJSON(w)
	}
}

// Grant handles PUT /api/v1/admin/permissions. Granting the same
// (user, application) pair again replaces the level.
func (h *PermissionHandler) Grant(w http.ResponseWriter, r *http.Request) {
	var req app.GrantInput
	if err := decodeBody(r, &req); err != nil {
		apierror.BadRequest("Invalid request body").WriteJSON(w)
		return
	}
	if err := h.validator.Validate(req); err != nil {
		handleValidationError(w, err)
		return
	}

	g, err := h.service.Grant(r.Context(), req, actorIDPtr(r))
	if err != nil {
		h.handleServiceError(w, err)
		return
	}

	respondJSON(w, http.StatusOK, toPermissionGrantResponse(g))
}

// Revoke handles DELETE /api/v1/admin/permissions/{userId}/{appId}.
// Revoking an absent grant is a no-op.
func (h *PermissionHandler) Revoke(w http.ResponseWriter, r *http.Request) {
	userID := apphttp.PathParam(r, "userId")
	appID := apphttp.PathParam(r, "appId")

	if err := h.service.Revoke(r.Context(), userID, appID); err != nil {
		h.handleServiceError(w, err)
		return
	}

	w.WriteHeader(http.StatusNoContent)
}

// ListByUser handles GET /api/v1/admin/users/{userId}/permissions.
func (h *PermissionHandler) ListByUser(w http.ResponseWriter, r *http.Request) {
	grants, err := h.service.ListByUser(r.Context(), apphttp.PathParam(r, "userId"))
	if err != nil {
		h.handleServiceError(w, err)
		return
	}

	resp := make([]PermissionGrantResponse, len(grants))
	for i, g := range grants {
		resp[i] = toPermissionGrantResponse(g)
	}
	respondJSON(w, http.StatusOK, resp)
}

// ListByApplication handles GET /api/v1/admin/applications/{appId}/permissions.
func (h *PermissionHandler) ListByApplication(w http.ResponseWriter, r *http.Request) {
	grants, err := h.service.ListByApplication(r.Context(), apphttp.PathParam(r, "appId"))
	if err != nil {
		h.handleServiceError(w, err)
		return
	}

	resp := make([]PermissionGrantResponse, len(grants))
	for i, g := range grants {
		resp[i] = toPermissionGrantResponse(g)
	}
	respondJSON(w, http.StatusOK, resp)
}
