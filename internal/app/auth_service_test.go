package app

import (
	"context"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/apphubio/api/internal/config"
	"github.com/apphubio/api/pkg/domain/profile"
	"github.com/apphubio/api/pkg/jwt"
	"github.com/apphubio/api/pkg/logger"
)

func testAuthConfig() config.AuthConfig {
	return config.AuthConfig{
		JWTSecret:            "test-secret-key-that-is-long-enough-for-hs256",
		JWTIssuer:            "apphub-test",
		AccessTokenDuration:  15 * time.Minute,
		RefreshTokenDuration: 24 * time.Hour,
		PasswordMinLength:    8,
		AllowRegistration:    true,
		ProvisionMaxAttempts: 3,
		ProvisionBaseDelay:   time.Millisecond,
	}
}

func newTestAuthService(repo *mockProfileRepo, store *mockTokenStore) *AuthService {
	return NewAuthService(repo, store, testAuthConfig(), logger.NewNop())
}

func TestAuthService_Register(t *testing.T) {
	ctx := context.Background()

	t.Run("first account becomes admin", func(t *testing.T) {
		repo := newMockProfileRepo()
		svc := newTestAuthService(repo, newMockTokenStore())

		result, err := svc.Register(ctx, RegisterInput{
			Email:    "Alice@Example.com",
			Password: "correct horse battery",
			FullName: "Alice",
		})

		require.NoError(t, err)
		assert.Equal(t, "alice@example.com", result.Profile.Email())
		assert.True(t, result.Profile.IsAdmin())
		assert.NotEmpty(t, result.Tokens.AccessToken)
		assert.NotEmpty(t, result.Tokens.RefreshToken)
	})

	t.Run("second account stays regular user", func(t *testing.T) {
		repo := newMockProfileRepo()
		svc := newTestAuthService(repo, newMockTokenStore())

		_, err := svc.Register(ctx, RegisterInput{
			Email: "first@example.com", Password: "correct horse battery", FullName: "First",
		})
		require.NoError(t, err)

		result, err := svc.Register(ctx, RegisterInput{
			Email: "second@example.com", Password: "correct horse battery", FullName: "Second",
		})
		require.NoError(t, err)
		assert.False(t, result.Profile.IsAdmin())
	})

	t.Run("duplicate email rejected", func(t *testing.T) {
		repo := newMockProfileRepo()
		svc := newTestAuthService(repo, newMockTokenStore())

		_, err := svc.Register(ctx, RegisterInput{
			Email: "dup@example.com", Password: "correct horse battery", FullName: "One",
		})
		require.NoError(t, err)

		_, err = svc.Register(ctx, RegisterInput{
			Email: "DUP@example.com", Password: "correct horse battery", FullName: "Two",
		})
		assert.ErrorIs(t, err, profile.ErrEmailExists)
	})

	t.Run("weak password rejected", func(t *testing.T) {
		svc := newTestAuthService(newMockProfileRepo(), newMockTokenStore())

		_, err := svc.Register(ctx, RegisterInput{
			Email: "weak@example.com", Password: "short", FullName: "Weak",
		})
		assert.Error(t, err)
	})

	t.Run("registration disabled", func(t *testing.T) {
		cfg := testAuthConfig()
		cfg.AllowRegistration = false
		svc := NewAuthService(newMockProfileRepo(), newMockTokenStore(), cfg, logger.NewNop())

		_, err := svc.Register(ctx, RegisterInput{
			Email: "no@example.com", Password: "correct horse battery", FullName: "No",
		})
		assert.ErrorIs(t, err, ErrRegistrationDisabled)
	})
}

func TestAuthService_Login(t *testing.T) {
	ctx := context.Background()

	register := func(t *testing.T, svc *AuthService, email string) *profile.Profile {
		t.Helper()
		result, err := svc.Register(ctx, RegisterInput{
			Email: email, Password: "correct horse battery", FullName: "Tester",
		})
		require.NoError(t, err)
		return result.Profile
	}

	t.Run("success records login time", func(t *testing.T) {
		repo := newMockProfileRepo()
		svc := newTestAuthService(repo, newMockTokenStore())
		register(t, svc, "login@example.com")

		result, err := svc.Login(ctx, LoginInput{
			Email: "login@example.com", Password: "correct horse battery",
		})

		require.NoError(t, err)
		assert.NotNil(t, result.Profile.LastLoginAt())
		assert.NotEmpty(t, result.Tokens.AccessToken)
	})

	t.Run("wrong password", func(t *testing.T) {
		repo := newMockProfileRepo()
		svc := newTestAuthService(repo, newMockTokenStore())
		register(t, svc, "wrong@example.com")

		_, err := svc.Login(ctx, LoginInput{
			Email: "wrong@example.com", Password: "not the password",
		})
		assert.ErrorIs(t, err, ErrInvalidCredentials)
	})

	t.Run("unknown email", func(t *testing.T) {
		svc := newTestAuthService(newMockProfileRepo(), newMockTokenStore())

		_, err := svc.Login(ctx, LoginInput{
			Email: "nobody@example.com", Password: "whatever it is",
		})
		assert.ErrorIs(t, err, ErrInvalidCredentials)
	})

	t.Run("disabled account", func(t *testing.T) {
		repo := newMockProfileRepo()
		svc := newTestAuthService(repo, newMockTokenStore())
		p := register(t, svc, "disabled@example.com")

		p.Deactivate()
		require.NoError(t, repo.Update(ctx, p))

		_, err := svc.Login(ctx, LoginInput{
			Email: "disabled@example.com", Password: "correct horse battery",
		})
		assert.ErrorIs(t, err, ErrAccountDisabled)
	})
}

func TestAuthService_Refresh(t *testing.T) {
	ctx := context.Background()

	t.Run("rotation invalidates the old token", func(t *testing.T) {
		repo := newMockProfileRepo()
		store := newMockTokenStore()
		svc := newTestAuthService(repo, store)

		reg, err := svc.Register(ctx, RegisterInput{
			Email: "rotate@example.com", Password: "correct horse battery", FullName: "Rotate",
		})
		require.NoError(t, err)

		refreshed, err := svc.Refresh(ctx, reg.Tokens.RefreshToken)
		require.NoError(t, err)
		assert.NotEmpty(t, refreshed.Tokens.AccessToken)

		// Replaying the original refresh token must fail.
		_, err = svc.Refresh(ctx, reg.Tokens.RefreshToken)
		assert.ErrorIs(t, err, ErrInvalidRefreshToken)

		// The rotated token still works.
		_, err = svc.Refresh(ctx, refreshed.Tokens.RefreshToken)
		assert.NoError(t, err)
	})

	t.Run("garbage token rejected", func(t *testing.T) {
		svc := newTestAuthService(newMockProfileRepo(), newMockTokenStore())

		_, err := svc.Refresh(ctx, "not.a.token")
		assert.ErrorIs(t, err, ErrInvalidRefreshToken)
	})

	t.Run("refresh for deactivated account rejected", func(t *testing.T) {
		repo := newMockProfileRepo()
		svc := newTestAuthService(repo, newMockTokenStore())

		reg, err := svc.Register(ctx, RegisterInput{
			Email: "gone@example.com", Password: "correct horse battery", FullName: "Gone",
		})
		require.NoError(t, err)

		reg.Profile.Deactivate()
		require.NoError(t, repo.Update(ctx, reg.Profile))

		_, err = svc.Refresh(ctx, reg.Tokens.RefreshToken)
		assert.ErrorIs(t, err, ErrAccountDisabled)
	})
}

func TestAuthService_Logout(t *testing.T) {
	ctx := context.Background()
	repo := newMockProfileRepo()
	store := newMockTokenStore()
	svc := newTestAuthService(repo, store)

	reg, err := svc.Register(ctx, RegisterInput{
		Email: "bye@example.com", Password: "correct horse battery", FullName: "Bye",
	})
	require.NoError(t, err)

	require.NoError(t, svc.Logout(ctx, reg.Tokens.AccessToken, reg.Tokens.RefreshToken))

	// Access token jti is blacklisted.
	claims, err := svc.TokenGenerator().ValidateAccessToken(reg.Tokens.AccessToken)
	require.NoError(t, err)
	blacklisted, err := svc.IsTokenBlacklisted(ctx, claims.ID)
	require.NoError(t, err)
	assert.True(t, blacklisted)

	// Refresh token is revoked.
	_, err = svc.Refresh(ctx, reg.Tokens.RefreshToken)
	assert.ErrorIs(t, err, ErrInvalidRefreshToken)
}

func TestAuthService_ChangePassword(t *testing.T) {
	ctx := context.Background()
	repo := newMockProfileRepo()
	store := newMockTokenStore()
	svc := newTestAuthService(repo, store)

	reg, err := svc.Register(ctx, RegisterInput{
		Email: "pw@example.com", Password: "correct horse battery", FullName: "PW",
	})
	require.NoError(t, err)
	userID := reg.Profile.ID().String()

	t.Run("wrong current password", func(t *testing.T) {
		err := svc.ChangePassword(ctx, userID, ChangePasswordInput{
			CurrentPassword: "nope nope nope", NewPassword: "a whole new passphrase",
		})
		assert.ErrorIs(t, err, ErrPasswordMismatch)
	})

	t.Run("success revokes refresh tokens", func(t *testing.T) {
		err := svc.ChangePassword(ctx, userID, ChangePasswordInput{
			CurrentPassword: "correct horse battery", NewPassword: "a whole new passphrase",
		})
		require.NoError(t, err)
		assert.Contains(t, store.revokedAll, userID)

		_, err = svc.Login(ctx, LoginInput{Email: "pw@example.com", Password: "a whole new passphrase"})
		assert.NoError(t, err)
	})
}

func TestAuthService_TokenClaims(t *testing.T) {
	ctx := context.Background()
	svc := newTestAuthService(newMockProfileRepo(), newMockTokenStore())

	reg, err := svc.Register(ctx, RegisterInput{
		Email: "claims@example.com", Password: "correct horse battery", FullName: "Claims",
	})
	require.NoError(t, err)

	claims, err := svc.TokenGenerator().ValidateAccessToken(reg.Tokens.AccessToken)
	require.NoError(t, err)
	assert.Equal(t, reg.Profile.ID().String(), claims.UserID)
	assert.Equal(t, "claims@example.com", claims.Email)
	assert.Equal(t, "admin", claims.Role)
	assert.Equal(t, string(jwt.TokenTypeAccess), string(claims.TokenType))
}
