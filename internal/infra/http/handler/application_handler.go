package handler

import (
	"errors"
	"net/http"
	"time"

	"github.com/apphubio/api/internal/app"
	apphttp "github.com/apphubio/api/internal/infra/http"
	"github.com/apphubio/api/pkg/apierror"
	"github.com/apphubio/api/pkg/domain/application"
	"github.com/apphubio/api/pkg/domain/shared"
	"github.com/apphubio/api/pkg/logger"
	"github.com/apphubio/api/pkg/validator"
)

// ApplicationHandler handles the application catalog endpoints.
type ApplicationHandler struct {
	service   *app.ApplicationService
	access    *app.AccessService
	validator *validator.Validator
	logger    *logger.Logger
}

// NewApplicationHandler creates a new application handler.
func NewApplicationHandler(svc *app.ApplicationService, access *app.AccessService, v *validator.Validator, log *logger.Logger) *ApplicationHandler {
	return &ApplicationHandler{
		service:   svc,
		access:    access,
		validator: v,
		logger:    log,
	}
}

// ApplicationResponse represents an application in API responses.
type ApplicationResponse struct {
	ID           string    `json:"id"`
	Name         string    `json:"name"`
	Description  string    `json:"description,omitempty"`
	Icon         string    `json:"icon,omitempty"`
	Color        string    `json:"color,omitempty"`
	URL          string    `json:"url"`
	Tier         string    `json:"tier"`
	IsPublic     bool      `json:"is_public"`
	IsActive     bool      `json:"is_active"`
	DisplayOrder int       `json:"display_order"`
	CreatedAt    time.Time `json:"created_at"`
	UpdatedAt    time.Time `json:"updated_at"`
}

// ReorderRequest carries the full catalog ordering.
type ReorderRequest struct {
	ApplicationIDs []string `json:"application_ids" validate:"required,min=1,dive,uuid"`
}

func toApplicationResponse(a *application.Application) ApplicationResponse {
	return ApplicationResponse{
		ID:           a.ID().String(),
		Name:         a.Name(),
		Description:  a.Description(),
		Icon:         a.Icon(),
		Color:        a.Color(),
		URL:          a.URL(),
		Tier:         a.Tier().String(),
		IsPublic:     a.IsPublic(),
		IsActive:     a.IsActive(),
		DisplayOrder: a.DisplayOrder(),
		CreatedAt:    a.CreatedAt(),
		UpdatedAt:    a.UpdatedAt(),
	}
}

func (h *ApplicationHandler) handleServiceError(w http.ResponseWriter, err error) {
	switch {
	case errors.Is(err, shared.ErrNotFound):
		apierror.NotFound("Application").WriteJSON(w)
	case errors.Is(err, shared.ErrAlreadyExists):
		apierror.Conflict("Application name already exists").WriteJSON(w)
	case errors.Is(err, shared.ErrValidation):
		apierror.BadRequest(trimSentinel(err)).WriteJSON(w)
	default:
		h.logger.Error("application service error", "error", err)
		apierror.InternalError(err).WriteJSON(w)
	}
}

// Create handles POST /api/v1/admin/applications.
func (h *ApplicationHandler) Create(w http.ResponseWriter, r *http.Request) {
	var req app.CreateApplicationInput
	if err := decodeBody(r, &req); err != nil {
		apierror.BadRequest("Invalid request body").WriteJSON(w)
		return
	}
	if err := h.validator.Validate(req); err != nil {
		handleValidationError(w, err)
		return
	}

	a, err := h.service.CreateApplication(r.Context(), req)
	if err != nil {
		h.handleServiceError(w, err)
		return
	}

	respondJSON(w, http.StatusCreated, toApplicationResponse(a))
}

// List handles GET /api/v1/admin/applications.
func (h *ApplicationHandler) List(w http.ResponseWriter, r *http.Request) {
	q := r.URL.Query()
	page, perPage := parsePageQuery(r)

	input := app.ListApplicationsInput{
		Tier:     q.Get("tier"),
		IsActive: parseQueryBool(q.Get("is_active")),
		IsPublic: parseQueryBool(q.Get("is_public")),
		Search:   q.Get("search"),
		Page:     page,
		PerPage:  perPage,
	}
	if err := h.validator.Validate(input); err != nil {
		handleValidationError(w, err)
		return
	}

	result, err := h.service.ListApplications(r.Context(), input)
	if err != nil {
		h.handleServiceError(w, err)
		return
	}

	respondJSON(w, http.StatusOK, newListResponse(result, toApplicationResponse))
}

// Get handles GET /api/v1/admin/applications/{appId}.
func (h *ApplicationHandler) Get(w http.ResponseWriter, r *http.Request) {
	a, err := h.service.GetApplication(r.Context(), apphttp.PathParam(r, "appId"))
	if err != nil {
		h.handleServiceError(w, err)
		return
	}

	respondJSON(w, http.StatusOK, toApplicationResponse(a))
}

// Update handles PUT /api/v1/admin/applications/{appId}.
func (h *ApplicationHandler) Update(w http.ResponseWriter, r *http.Request) {
	var req app.UpdateApplicationInput
	if err := decodeBody(r, &req); err != nil {
		apierror.BadRequest("Invalid request body").WriteJSON(w)
		return
	}
	if err := h.validator.Validate(req); err != nil {
		handleValidationError(w, err)
		return
	}

	a, err := h.service.UpdateApplication(r.Context(), apphttp.PathParam(r, "appId"), req)
	if err != nil {
		h.handleServiceError(w, err)
		return
	}

	respondJSON(w, http.StatusOK, toApplicationResponse(a))
}

// Delete handles DELETE /api/v1/admin/applications/{appId}.
func (h *ApplicationHandler) Delete(w http.ResponseWriter, r *http.Request) {
	if err := h.service.DeleteApplication(r.Context(), apphttp.PathParam(r, "appId")); err != nil {
		h.handleServiceError(w, err)
		return
	}

	w.WriteHeader(http.StatusNoContent)
}

// Reorder handles PUT /api/v1/admin/applications/order.
func (h *ApplicationHandler) Reorder(w http.ResponseWriter, r *http.Request) {
	var req ReorderRequest
	if err := decodeBody(r, &req); err != nil {
		apierror.BadRequest("Invalid request body").WriteJSON(w)
		return
	}
	if err := h.validator.Validate(req); err != nil {
		handleValidationError(w, err)
		return
	}

	if err := h.service.ReorderApplications(r.Context(), req.ApplicationIDs); err != nil {
		h.handleServiceError(w, err)
		return
	}

	w.WriteHeader(http.StatusNoContent)
}

// AccessStats handles GET /api/v1/admin/applications/{appId}/access-stats.
// The numbers come from a full resolution over every active profile.
func (h *ApplicationHandler) AccessStats(w http.ResponseWriter, r *http.Request) {
	stats, err := h.access.ApplicationAccessStats(r.Context(), apphttp.PathParam(r, "appId"))
	if err != nil {
		h.handleServiceError(w, err)
		return
	}

	respondJSON(w, http.StatusOK, stats)
}
