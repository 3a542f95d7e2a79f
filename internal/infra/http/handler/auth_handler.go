package handler

import (
	"errors"
	"net/http"
	"time"

	"github.com/apphubio/api/internal/app"
	"github.com/apphubio/api/internal/infra/http/middleware"
	"github.com/apphubio/api/pkg/apierror"
	"github.com/apphubio/api/pkg/domain/profile"
	"github.com/apphubio/api/pkg/domain/shared"
	"github.com/apphubio/api/pkg/jwt"
	"github.com/apphubio/api/pkg/logger"
	"github.com/apphubio/api/pkg/validator"
)

// AuthHandler handles registration, login and session lifecycle requests.
type AuthHandler struct {
	service   *app.AuthService
	validator *validator.Validator
	logger    *logger.Logger
}

// NewAuthHandler creates a new auth handler.
func NewAuthHandler(svc *app.AuthService, v *validator.Validator, log *logger.Logger) *AuthHandler {
	return &AuthHandler{
		service:   svc,
		validator: v,
		logger:    log,
	}
}

// TokenResponse carries an issued token pair.
type TokenResponse struct {
	AccessToken      string    `json:"access_token"`
	RefreshToken     string    `json:"refresh_token"`
	AccessExpiresAt  time.Time `json:"access_expires_at"`
	RefreshExpiresAt time.Time `json:"refresh_expires_at"`
	TokenType        string    `json:"token_type"`
}

// SessionResponse is returned by register and login.
type SessionResponse struct {
	User   ProfileResponse `json:"user"`
	Tokens TokenResponse   `json:"tokens"`
}

// RefreshRequest carries the refresh token being exchanged.
type RefreshRequest struct {
	RefreshToken string `json:"refresh_token" validate:"required"`
}

// LogoutRequest optionally carries the refresh token to revoke alongside
// the access token.
type LogoutRequest struct {
	RefreshToken string `json:"refresh_token"`
}

func toTokenResponse(pair *jwt.TokenPair) TokenResponse {
	return TokenResponse{
		AccessToken:      pair.AccessToken,
		RefreshToken:     pair.RefreshToken,
		AccessExpiresAt:  pair.AccessExpiresAt,
		RefreshExpiresAt: pair.RefreshExpiresAt,
		TokenType:        "Bearer",
	}
}

func (h *AuthHandler) handleServiceError(w http.ResponseWriter, err error) {
	switch {
	case errors.Is(err, app.ErrInvalidCredentials):
		apierror.Unauthorized("Invalid email or password").WriteJSON(w)
	case errors.Is(err, app.ErrInvalidRefreshToken):
		apierror.Unauthorized("Invalid or expired refresh token").WriteJSON(w)
	case errors.Is(err, app.ErrAccountDisabled):
		apierror.Forbidden("Account is disabled").WriteJSON(w)
	case errors.Is(err, app.ErrRegistrationDisabled):
		apierror.Forbidden("Registration is disabled").WriteJSON(w)
	case errors.Is(err, app.ErrPasswordMismatch):
		apierror.BadRequest("Current password is incorrect").WriteJSON(w)
	case errors.Is(err, profile.ErrEmailExists):
		apierror.Conflict("Email is already registered").WriteJSON(w)
	case errors.Is(err, shared.ErrNotFound):
		apierror.NotFound("Account").WriteJSON(w)
	case errors.Is(err, shared.ErrValidation):
		apierror.BadRequest(trimSentinel(err)).WriteJSON(w)
	default:
		h.logger.Error("auth service error", "error", err)
		apierror.InternalError(err).WriteJSON(w)
	}
}

// Register handles POST /api/v1/auth/register.
func (h *AuthHandler) Register(w http.ResponseWriter, r *http.Request) {
	var req app.RegisterInput
	if err := decodeBody(r, &req); err != nil {
		apierror.BadRequest("Invalid request body").WriteJSON(w)
		return
	}
	if err := h.validator.Validate(req); err != nil {
		handleValidationError(w, err)
		return
	}

	result, err := h.service.Register(r.Context(), req)
	if err != nil {
		h.handleServiceError(w, err)
		return
	}

	respondJSON(w, http.StatusCreated, SessionResponse{
		User:   toProfileResponse(result.Profile),
		Tokens: toTokenResponse(result.Tokens),
	})
}

// Login handles POST /api/v1/auth/login.
func (h *AuthHandler) Login(w http.ResponseWriter, r *http.Request) {
	var req app.LoginInput
	if err := decodeBody(r, &req); err != nil {
		apierror.BadRequest("Invalid request body").WriteJSON(w)
		return
	}
	if err := h.validator.Validate(req); err != nil {
		handleValidationError(w, err)
		return
	}

	result, err := h.service.Login(r.Context(), req)
	if err != nil {
		h.handleServiceError(w, err)
		return
	}

	respondJSON(w, http.StatusOK, SessionResponse{
		User:   toProfileResponse(result.Profile),
		Tokens: toTokenResponse(result.Tokens),
	})
}

// Refresh handles POST /api/v1/auth/refresh.
func (h *AuthHandler) Refresh(w http.ResponseWriter, r *http.Request) {
	var req RefreshRequest
	if err := decodeBody(r, &req); err != nil {
		apierror.BadRequest("Invalid request body").WriteJSON(w)
		return
	}
	if err := h.validator.Validate(req); err != nil {
		handleValidationError(w, err)
		return
	}

	result, err := h.service.Refresh(r.Context(), req.RefreshToken)
	if err != nil {
		h.handleServiceError(w, err)
		return
	}

	respondJSON(w, http.StatusOK, SessionResponse{
		User:   toProfileResponse(result.Profile),
		Tokens: toTokenResponse(result.Tokens),
	})
}

// Logout handles POST /api/v1/auth/logout. The access token comes from the
// Authorization header, the refresh token from the body.
func (h *AuthHandler) Logout(w http.ResponseWriter, r *http.Request) {
	var req LogoutRequest
	// An empty body only revokes the access token.
	_ = decodeBody(r, &req)

	accessToken := middleware.BearerToken(r)
	if err := h.service.Logout(r.Context(), accessToken, req.RefreshToken); err != nil {
		h.handleServiceError(w, err)
		return
	}

	w.WriteHeader(http.StatusNoContent)
}

// LogoutAll handles POST /api/v1/auth/logout-all. It revokes every refresh
// token of the authenticated user.
func (h *AuthHandler) LogoutAll(w http.ResponseWriter, r *http.Request) {
	userID := middleware.GetUserID(r.Context())
	if userID == "" {
		apierror.Unauthorized("Authentication required").WriteJSON(w)
		return
	}

	if err := h.service.LogoutAll(r.Context(), userID); err != nil {
		h.handleServiceError(w, err)
		return
	}

	w.WriteHeader(http.StatusNoContent)
}

// ChangePassword handles POST /api/v1/auth/change-password.
func (h *AuthHandler) ChangePassword(w http.ResponseWriter, r *http.Request) {
	userID := middleware.GetUserID(r.Context())
	if userID == "" {
		apierror.Unauthorized("Authentication required").WriteJSON(w)
		return
	}

	var req app.ChangePasswordInput
	if err := decodeBody(r, &req); err != nil {
		apierror.BadRequest("Invalid request body").WriteJSON(w)
		return
	}
	if err := h.validator.Validate(req); err != nil {
		handleValidationError(w, err)
		return
	}

	if err := h.service.ChangePassword(r.Context(), userID, req); err != nil {
		h.handleServiceError(w, err)
		return
	}

	w.WriteHeader(http.StatusNoContent)
}
