package handler

import (
	"errors"
	"net/http"
	"time"

	"github.com/apphubio/api/internal/app"
	apphttp "github.com/apphubio/api/internal/infra/http"
	"github.com/apphubio/api/internal/infra/http/middleware"
	"github.com/apphubio/api/pkg/apierror"
	"github.com/apphubio/api/pkg/domain/group"
	"github.com/apphubio/api/pkg/domain/shared"
	"github.com/apphubio/api/pkg/logger"
	"github.com/apphubio/api/pkg/validator"
)

// GroupHandler handles group, membership and group grant endpoints.
type GroupHandler struct {
	service   *app.GroupService
	validator *validator.Validator
	logger    *logger.Logger
}

// NewGroupHandler creates a new group handler.
func NewGroupHandler(svc *app.GroupService, v *validator.Validator, log *logger.Logger) *GroupHandler {
	return &GroupHandler{
		service:   svc,
		validator: v,
		logger:    log,
	}
}

// GroupResponse represents a group in API responses.
type GroupResponse struct {
	ID          string    `json:"id"`
	Name        string    `json:"name"`
	Description string    `json:"description,omitempty"`
	Color       string    `json:"color,omitempty"`
	MemberCount int64     `json:"member_count"`
	CreatedAt   time.Time `json:"created_at"`
	UpdatedAt   time.Time `json:"updated_at"`
}

// GroupMemberResponse represents a group member in API responses.
type GroupMemberResponse struct {
	UserID   string    `json:"user_id"`
	Email    string    `json:"email"`
	FullName string    `json:"full_name"`
	AddedBy  string    `json:"added_by,omitempty"`
	AddedAt  time.Time `json:"added_at"`
}

// GroupGrantResponse represents a group's access grant for an application.
type GroupGrantResponse struct {
	GroupID       string    `json:"group_id"`
	ApplicationID string    `json:"application_id"`
	AccessLevel   string    `json:"access_level"`
	GrantedBy     string    `json:"granted_by,omitempty"`
	CreatedAt     time.Time `json:"created_at"`
	UpdatedAt     time.Time `json:"updated_at"`
}

// AddMemberRequest adds a user to a group.
type AddMemberRequest struct {
	UserID string `json:"user_id" validate:"required,uuid"`
}

func toGroupResponse(g *group.Group, memberCount int64) GroupResponse {
	return GroupResponse{
		ID:          g.ID().String(),
		Name:        g.Name(),
		Description: g.Description(),
		Color:       g.Color(),
		MemberCount: memberCount,
		CreatedAt:   g.CreatedAt(),
		UpdatedAt:   g.UpdatedAt(),
	}
}

func toGroupMemberResponse(m *group.MemberWithProfile) GroupMemberResponse {
	resp := GroupMemberResponse{
		UserID:   m.Member.UserID().String(),
		Email:    m.Email,
		FullName: m.FullName,
		AddedAt:  m.Member.AddedAt(),
	}
	if m.Member.AddedBy() != nil {
		resp.AddedBy = m.Member.AddedBy().String()
	}
	return resp
}

func toGroupGrantResponse(g *group.Grant) GroupGrantResponse {
	resp := GroupGrantResponse{
		GroupID:       g.GroupID().String(),
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

// actorIDPtr returns the authenticated user ID as a pointer for grant and
// membership attribution, or nil for unauthenticated contexts.
func actorIDPtr(r *http.Request) *string {
	if id := middleware.GetUserID(r.Context()); id != "" {
		return &id
	}
	return nil
}

func (h *GroupHandler) handleServiceError(w http.ResponseWriter, err error) {
	switch {
	case errors.Is(err, group.ErrGroupNotFound):
		apierror.NotFound("Group").WriteJSON(w)
	case errors.Is(err, shared.ErrNotFound):
		apierror.NotFound(trimSentinel(err)).WriteJSON(w)
	case errors.Is(err, shared.ErrAlreadyExists):
		apierror.Conflict("Group name already exists").WriteJSON(w)
	case errors.Is(err, shared.ErrValidation):
		apierror.BadRequest(trimSentinel(err)).WriteJSON(w)
	default:
		h.logger.Error("group service error", "error", err)
		apierror.InternalError(err).WriteJSON(w)
	}
}

// Create handles POST /api/v1/admin/groups.
func (h *GroupHandler) Create(w http.ResponseWriter, r *http.Request) {
	var req app.CreateGroupInput
	if err := decodeBody(r, &req); err != nil {
		apierror.BadRequest("Invalid request body").WriteJSON(w)
		return
	}
	if err := h.validator.Validate(req); err != nil {
		handleValidationError(w, err)
		return
	}

	g, err := h.service.CreateGroup(r.Context(), req)
	if err != nil {
		h.handleServiceError(w, err)
		return
	}

	respondJSON(w, http.StatusCreated, toGroupResponse(g, 0))
}

// List handles GET /api/v1/admin/groups.
func (h *GroupHandler) List(w http.ResponseWriter, r *http.Request) {
	page, perPage := parsePageQuery(r)

	input := app.ListGroupsInput{
		Search:  r.URL.Query().Get("search"),
		Page:    page,
		PerPage: perPage,
	}
	if err := h.validator.Validate(input); err != nil {
		handleValidationError(w, err)
		return
	}

	result, err := h.service.ListGroups(r.Context(), input)
	if err != nil {
		h.handleServiceError(w, err)
		return
	}

	respondJSON(w, http.StatusOK, newListResponse(result, func(g group.GroupWithMemberCount) GroupResponse {
		return toGroupResponse(g.Group, g.MemberCount)
	}))
}

// Get handles GET /api/v1/admin/groups/{groupId}.
func (h *GroupHandler) Get(w http.ResponseWriter, r *http.Request) {
	groupID := apphttp.PathParam(r, "groupId")

	g, err := h.service.GetGroup(r.Context(), groupID)
	if err != nil {
		h.handleServiceError(w, err)
		return
	}

	members, err := h.service.ListMembers(r.Context(), groupID)
	if err != nil {
		h.handleServiceError(w, err)
		return
	}

	respondJSON(w, http.StatusOK, toGroupResponse(g, int64(len(members))))
}

// Update handles PUT /api/v1/admin/groups/{groupId}.
func (h *GroupHandler) Update(w http.ResponseWriter, r *http.Request) {
	var req app.UpdateGroupInput
	if err := decodeBody(r, &req); err != nil {
		apierror.BadRequest("Invalid request body").WriteJSON(w)
		return
	}
	if err := h.validator.Validate(req); err != nil {
		handleValidationError(w, err)
		return
	}

	g, err := h.service.UpdateGroup(r.Context(), apphttp.PathParam(r, "groupId"), req)
	if err != nil {
		h.handleServiceError(w, err)
		return
	}

	respondJSON(w, http.StatusOK, toGroupResponse(g, 0))
}

// Delete handles DELETE /api/v1/admin/groups/{groupId}. Memberships and
// grants go with the group.
func (h *GroupHandler) Delete(w http.ResponseWriter, r *http.Request) {
	if err := h.service.DeleteGroup(r.Context(), apphttp.PathParam(r, "groupId")); err != nil {
		h.handleServiceError(w, err)
		return
	}

	w.WriteHeader(http.StatusNoContent)
}

// ListMembers handles GET /api/v1/admin/groups/{groupId}/members.
func (h *GroupHandler) ListMembers(w http.ResponseWriter, r *http.Request) {
	members, err := h.service.ListMembers(r.Context(), apphttp.PathParam(r, "groupId"))
	if err != nil {
		h.handleServiceError(w, err)
		return
	}

	resp := make([]GroupMemberResponse, len(members))
	for i, m := range members {
		resp[i] = toGroupMemberResponse(m)
	}
	respondJSON(w, http.StatusOK, resp)
}

// AddMember handles POST /api/v1/admin/groups/{groupId}/members.
func (h *GroupHandler) AddMember(w http.ResponseWriter, r *http.Request) {
	var req AddMemberRequest
	if err := decodeBody(r, &req); err != nil {
		apierror.BadRequest("Invalid request body").WriteJSON(w)
		return
	}
	if err := h.validator.Validate(req); err != nil {
		handleValidationError(w, err)
		return
	}

	groupID := apphttp.PathParam(r, "groupId")
	if err := h.service.AddMember(r.Context(), groupID, req.UserID, actorIDPtr(r)); err != nil {
		h.handleServiceError(w, err)
		return
	}

	w.WriteHeader(http.StatusNoContent)
}

// RemoveMember handles DELETE /api/v1/admin/groups/{groupId}/members/{userId}.
func (h *GroupHandler) RemoveMember(w http.ResponseWriter, r *http.Request) {
	groupID := apphttp.PathParam(r, "groupId")
	userID := apphttp.PathParam(r, "userId")

	if err := h.service.RemoveMember(r.Context(), groupID, userID); err != nil {
		h.handleServiceError(w, err)
		return
	}

	w.WriteHeader(http.StatusNoContent)
}

// ListGrants handles GET /api/v1/admin/groups/{groupId}/permissions.
func (h *GroupHandler) ListGrants(w http.ResponseWriter, r *http.Request) {
	grants, err := h.service.ListGrants(r.Context(), apphttp.PathParam(r, "groupId"))
	if err != nil {
		h.handleServiceError(w, err)
		return
	}

	resp := make([]GroupGrantResponse, len(grants))
	for i, g := range grants {
		resp[i] = toGroupGrantResponse(g)
	}
	respondJSON(w, http.StatusOK, resp)
}

// UpsertGrant handles PUT /api/v1/admin/groups/{groupId}/permissions.
// Granting the same application again replaces the level.
func (h *GroupHandler) UpsertGrant(w http.ResponseWriter, r *http.Request) {
	var req app.UpsertGrantInput
	if err := decodeBody(r, &req); err != nil {
		apierror.BadRequest("Invalid request body").WriteJSON(w)
		return
	}
	if err := h.validator.Validate(req); err != nil {
		handleValidationError(w, err)
		return
	}

	groupID := apphttp.PathParam(r, "groupId")
	g, err := h.service.UpsertGrant(r.Context(), groupID, req, actorIDPtr(r))
	if err != nil {
		h.handleServiceError(w, err)
		return
	}

	respondJSON(w, http.StatusOK, toGroupGrantResponse(g))
}

// RemoveGrant handles DELETE /api/v1/admin/groups/{groupId}/permissions/{appId}.
func (h *GroupHandler) RemoveGrant(w http.ResponseWriter, r *http.Request) {
	groupID := apphttp.PathParam(r, "groupId")
	appID := apphttp.PathParam(r, "appId")

	if err := h.service.RemoveGrant(r.Context(), groupID, appID); err != nil {
		h.handleServiceError(w, err)
		return
	}

	w.WriteHeader(http.StatusNoContent)
}
