package middleware

import (
	"context"
	"net/http"
	"strings"

	"github.com/apphubio/api/pkg/apierror"
	"github.com/apphubio/api/pkg/jwt"
	"github.com/apphubio/api/pkg/logger"
)

// Auth-related context keys.
const (
	UserIDKey                   = logger.ContextKeyUserID
	RoleKey   logger.ContextKey = "role"
	EmailKey  logger.ContextKey = "email"
	ClaimsKey logger.ContextKey = "jwt_claims"
)

// BlacklistChecker reports whether an access token jti has been revoked.
type BlacklistChecker interface {
	IsTokenBlacklisted(ctx context.Context, jti string) (bool, error)
}

// GetUserID extracts the authenticated user ID from context.
func GetUserID(ctx context.Context) string {
	if id, ok := ctx.Value(UserIDKey).(string); ok {
		return id
	}
	return ""
}

// GetRole extracts the user role from context.
func GetRole(ctx context.Context) string {
	if role, ok := ctx.Value(RoleKey).(string); ok {
		return role
	}
	return ""
}

// GetEmail extracts the user email from context.
func GetEmail(ctx context.Context) string {
	if email, ok := ctx.Value(EmailKey).(string); ok {
		return email
	}
	return ""
}

// GetClaims extracts the full token claims from context.
func GetClaims(ctx context.Context) *jwt.Claims {
	if claims, ok := ctx.Value(ClaimsKey).(*jwt.Claims); ok {
		return claims
	}
	return nil
}

// BearerToken extracts the bearer token from the Authorization header.
func BearerToken(r *http.Request) string {
	header := r.Header.Get("Authorization")
	if header == "" {
		return ""
	}
	parts := strings.SplitN(header, " ", 2)
	if len(parts) != 2 || !strings.EqualFold(parts[0], "Bearer") {
		return ""
	}
	return strings.TrimSpace(parts[1])
}

// Authenticate validates the bearer token and stores its claims in the
// request context. The blacklist check cuts off tokens revoked by logout;
// when the blacklist itself is unreachable the token is refused, never
// waved through.
func Authenticate(gen *jwt.Generator, blacklist BlacklistChecker, log *logger.Logger) func(http.Handler) http.Handler {
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			token := BearerToken(r)
			if token == "" {
				apierror.Unauthorized("Missing or malformed Authorization header").WriteJSON(w)
				return
			}

			claims, err := gen.ValidateAccessToken(token)
			if err != nil {
				apierror.SafeUnauthorized(err).WriteJSON(w)
				return
			}

			if blacklist != nil && claims.ID != "" {
				revoked, err := blacklist.IsTokenBlacklisted(r.Context(), claims.ID)
				if err != nil {
					log.Error("token blacklist check failed", "error", err,
						"request_id", GetRequestID(r.Context()))
					apierror.Unauthorized("Token could not be verified").WriteJSON(w)
					return
				}
				if revoked {
					apierror.Unauthorized("Token has been revoked").WriteJSON(w)
					return
				}
			}

			ctx := r.Context()
			ctx = context.WithValue(ctx, UserIDKey, claims.UserID)
			ctx = context.WithValue(ctx, RoleKey, claims.Role)
			ctx = context.WithValue(ctx, EmailKey, claims.Email)
			ctx = context.WithValue(ctx, ClaimsKey, claims)

			next.ServeHTTP(w, r.WithContext(ctx))
		})
	}
}

// RequireAdmin refuses requests whose token does not carry the admin role.
// Must run after Authenticate.
func RequireAdmin() func(http.Handler) http.Handler {
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			claims := GetClaims(r.Context())
			if claims == nil {
				apierror.Unauthorized("Authentication required").WriteJSON(w)
				return
			}
			if !claims.IsAdmin() {
				apierror.Forbidden("Administrator role required").WriteJSON(w)
				return
			}
			next.ServeHTTP(w, r)
		})
	}
}
