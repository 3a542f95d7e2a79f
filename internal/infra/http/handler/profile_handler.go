package handler

import (
	"errors"
	"net/http"
	"time"

	"github.com/apphubio/api/internal/app"
	apphttp "github.com/apphubio/api/internal/infra/http"
	"github.com/apphubio/api/internal/infra/http/middleware"
	"github.com/apphubio/api/pkg/apierror"
	"github.com/apphubio/api/pkg/domain/profile"
	"github.com/apphubio/api/pkg/domain/shared"
	"github.com/apphubio/api/pkg/logger"
	"github.com/apphubio/api/pkg/validator"
)

// ProfileHandler handles user profile administration and self-service
// endpoints.
type ProfileHandler struct {
	service   *app.ProfileService
	validator *validator.Validator
	logger    *logger.Logger
}

// NewProfileHandler creates a new profile handler.
func NewProfileHandler(svc *app.ProfileService, v *validator.Validator, log *logger.Logger) *ProfileHandler {
	return &ProfileHandler{
		service:   svc,
		validator: v,
		logger:    log,
	}
}

// ProfileResponse represents a user profile in API responses.
type ProfileResponse struct {
	ID          string     `json:"id"`
	Email       string     `json:"email"`
	FullName    string     `json:"full_name"`
	AvatarURL   string     `json:"avatar_url,omitempty"`
	Role        string     `json:"role"`
	IsActive    bool       `json:"is_active"`
	LastLoginAt *time.Time `json:"last_login_at,omitempty"`
	CreatedAt   time.Time  `json:"created_at"`
	UpdatedAt   time.Time  `json:"updated_at"`
}

// ChangeRoleRequest changes a user's role.
type ChangeRoleRequest struct {
	Role string `json:"role" validate:"required,user_role"`
}

// SetActiveRequest activates or deactivates an account.
type SetActiveRequest struct {
	IsActive *bool `json:"is_active" validate:"required"`
}

func toProfileResponse(p *profile.Profile) ProfileResponse {
	return ProfileResponse{
		ID:          p.ID().String(),
		Email:       p.Email(),
		FullName:    p.FullName(),
		AvatarURL:   p.AvatarURL(),
		Role:        p.Role().String(),
		IsActive:    p.IsActive(),
		LastLoginAt: p.LastLoginAt(),
		CreatedAt:   p.CreatedAt(),
		UpdatedAt:   p.UpdatedAt(),
	}
}

func (h *ProfileHandler) handleServiceError(w http.ResponseWriter, err error) {
	switch {
	case errors.Is(err, profile.ErrLastAdmin), errors.Is(err, profile.ErrSelfAction):
		apierror.Conflict(trimSentinel(err)).WriteJSON(w)
	case errors.Is(err, shared.ErrNotFound):
		apierror.NotFound("User").WriteJSON(w)
	case errors.Is(err, shared.ErrValidation):
		apierror.BadRequest(trimSentinel(err)).WriteJSON(w)
	case errors.Is(err, shared.ErrForbidden):
		apierror.Forbidden(err.Error()).WriteJSON(w)
	default:
		h.logger.Error("profile service error", "error", err)
		apierror.InternalError(err).WriteJSON(w)
	}
}

// Me handles GET /api/v1/me.
func (h *ProfileHandler) Me(w http.ResponseWriter, r *http.Request) {
	userID := middleware.GetUserID(r.Context())
	if userID == "" {
		apierror.Unauthorized("Authentication required").WriteJSON(w)
		return
	}

	p, err := h.service.GetProfile(r.Context(), userID)
	if err != nil {
		h.handleServiceError(w, err)
		return
	}

	respondJSON(w, http.StatusOK, toProfileResponse(p))
}

// UpdateMe handles PUT /api/v1/me.
func (h *ProfileHandler) UpdateMe(w http.ResponseWriter, r *http.Request) {
	userID := middleware.GetUserID(r.Context())
	if userID == "" {
		apierror.Unauthorized("Authentication required").WriteJSON(w)
		return
	}

	var req app.UpdateDisplayInput
	if err := decodeBody(r, &req); err != nil {
		apierror.BadRequest("Invalid request body").WriteJSON(w)
		return
	}
	if err := h.validator.Validate(req); err != nil {
		handleValidationError(w, err)
		return
	}

	p, err := h.service.UpdateDisplay(r.Context(), userID, req)
	if err != nil {
		h.handleServiceError(w, err)
		return
	}

	respondJSON(w, http.StatusOK, toProfileResponse(p))
}

// ListUsers handles GET /api/v1/admin/users.
func (h *ProfileHandler) ListUsers(w http.ResponseWriter, r *http.Request) {
	q := r.URL.Query()
	page, perPage := parsePageQuery(r)

	input := app.ListProfilesInput{
		Role:     q.Get("role"),
		IsActive: parseQueryBool(q.Get("is_active")),
		Search:   q.Get("search"),
		OrderBy:  q.Get("order_by"),
		Page:     page,
		PerPage:  perPage,
	}
	if err := h.validator.Validate(input); err != nil {
		handleValidationError(w, err)
		return
	}

	result, err := h.service.ListProfiles(r.Context(), input)
	if err != nil {
		h.handleServiceError(w, err)
		return
	}

	respondJSON(w, http.StatusOK, newListResponse(result, toProfileResponse))
}

// GetUser handles GET /api/v1/admin/users/{userId}.
func (h *ProfileHandler) GetUser(w http.ResponseWriter, r *http.Request) {
	p, err := h.service.GetProfile(r.Context(), apphttp.PathParam(r, "userId"))
	if err != nil {
		h.handleServiceError(w, err)
		return
	}

	respondJSON(w, http.StatusOK, toProfileResponse(p))
}

// ChangeRole handles PUT /api/v1/admin/users/{userId}/role.
func (h *ProfileHandler) ChangeRole(w http.ResponseWriter, r *http.Request) {
	actorID := middleware.GetUserID(r.Context())

	var req ChangeRoleRequest
	if err := decodeBody(r, &req); err != nil {
		apierror.BadRequest("Invalid request body").WriteJSON(w)
		return
	}
	if err := h.validator.Validate(req); err != nil {
		handleValidationError(w, err)
		return
	}

	p, err := h.service.ChangeRole(r.Context(), actorID, apphttp.PathParam(r, "userId"), req.Role)
	if err != nil {
		h.handleServiceError(w, err)
		return
	}

	respondJSON(w, http.StatusOK, toProfileResponse(p))
}

// SetActive handles PUT /api/v1/admin/users/{userId}/status.
func (h *ProfileHandler) SetActive(w http.ResponseWriter, r *http.Request) {
	actorID := middleware.GetUserID(r.Context())

	var req SetActiveRequest
	if err := decodeBody(r, &req); err != nil {
		apierror.BadRequest("Invalid request body").WriteJSON(w)
		return
	}
	if err := h.validator.Validate(req); err != nil {
		handleValidationError(w, err)
		return
	}

	p, err := h.service.SetActive(r.Context(), actorID, apphttp.PathParam(r, "userId"), *req.IsActive)
	if err != nil {
		h.handleServiceError(w, err)
		return
	}

	respondJSON(w, http.StatusOK, toProfileResponse(p))
}

// DeleteUser handles DELETE /api/v1/admin/users/{userId}.
func (h *ProfileHandler) DeleteUser(w http.ResponseWriter, r *http.Request) {
	actorID := middleware.GetUserID(r.Context())

	if err := h.service.DeleteProfile(r.Context(), actorID, apphttp.PathParam(r, "userId")); err != nil {
		h.handleServiceError(w, err)
		return
	}

	w.WriteHeader(http.StatusNoContent)
}
