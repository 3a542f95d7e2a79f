package app

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/apphubio/api/internal/config"
	"github.com/apphubio/api/internal/metrics"
	"github.com/apphubio/api/pkg/domain/profile"
	"github.com/apphubio/api/pkg/jwt"
	"github.com/apphubio/api/pkg/logger"
	"github.com/apphubio/api/pkg/password"
	"github.com/apphubio/api/pkg/retry"
	"github.com/google/uuid"
)

// AuthService errors.
var (
	ErrInvalidCredentials   = errors.New("invalid email or password")
	ErrAccountDisabled      = errors.New("account is disabled")
	ErrRegistrationDisabled = errors.New("registration is disabled")
	ErrInvalidRefreshToken  = errors.New("invalid or expired refresh token")
	ErrPasswordMismatch     = errors.New("current password is incorrect")
)

// TokenStore abstracts the Redis-backed token state the auth flow needs:
// a blacklist for revoked access tokens and per-user refresh token hashes.
type TokenStore interface {
	BlacklistToken(ctx context.Context, jti string, expiry time.Duration) error
	IsBlacklisted(ctx context.Context, jti string) (bool, error)
	StoreRefreshToken(ctx context.Context, userID, tokenHash string, ttl time.Duration) error
	ValidateRefreshToken(ctx context.Context, userID, tokenHash string) (bool, error)
	RevokeRefreshToken(ctx context.Context, userID, tokenHash string) error
	RevokeAllRefreshTokens(ctx context.Context, userID string) error
	RotateRefreshToken(ctx context.Context, userID, oldTokenHash, newTokenHash string, ttl time.Duration) error
}

// AuthService handles registration, login and token lifecycle.
type AuthService struct {
	profileRepo    profile.Repository
	tokenStore     TokenStore
	passwordHasher *password.Hasher
	tokenGenerator *jwt.Generator
	config         config.AuthConfig
	logger         *logger.Logger
}

// NewAuthService creates a new AuthService.
func NewAuthService(
	profileRepo profile.Repository,
	tokenStore TokenStore,
	cfg config.AuthConfig,
	log *logger.Logger,
) *AuthService {
	hasher := password.New(password.WithPolicy(password.Policy{
		MinLength:      cfg.PasswordMinLength,
		RequireUpper:   cfg.PasswordRequireUpper,
		RequireLower:   cfg.PasswordRequireLower,
		RequireNumber:  cfg.PasswordRequireNumber,
		RequireSpecial: cfg.PasswordRequireSpecial,
	}))

	tokenGen := jwt.NewGenerator(jwt.TokenConfig{
		Secret:               cfg.JWTSecret,
		Issuer:               cfg.JWTIssuer,
		AccessTokenDuration:  cfg.AccessTokenDuration,
		RefreshTokenDuration: cfg.RefreshTokenDuration,
	})

	return &AuthService{
		profileRepo:    profileRepo,
		tokenStore:     tokenStore,
		passwordHasher: hasher,
		tokenGenerator: tokenGen,
		config:         cfg,
		logger:         log.With("service", "auth"),
	}
}

// TokenGenerator exposes the generator, for middleware that validates tokens.
func (s *AuthService) TokenGenerator() *jwt.Generator {
	return s.tokenGenerator
}

// RegisterInput represents the input for registration.
type RegisterInput struct {
	Email    string `json:"email" validate:"required,email,max=255"`
	Password string `json:"password" validate:"required,min=8,max=128"`
	FullName string `json:"full_name" validate:"required,min=2,max=255"`
}

// RegisterResult represents the result of registration.
type RegisterResult struct {
	Profile *profile.Profile
	Tokens  *jwt.TokenPair
}

// Register creates a new profile and signs it in. The very first account
// becomes an administrator so a fresh install is manageable without manual
// database edits.
func (s *AuthService) Register(ctx context.Context, input RegisterInput) (*RegisterResult, error) {
	if !s.config.AllowRegistration {
		return nil, ErrRegistrationDisabled
	}

	email := normalizeEmail(input.Email)

	if err := s.passwordHasher.Validate(input.Password); err != nil {
		return nil, err
	}

	exists, err := s.profileRepo.ExistsByEmail(ctx, email)
	if err != nil {
		return nil, fmt.Errorf("failed to check email existence: %w", err)
	}
	if exists {
		return nil, profile.ErrEmailExists
	}

	hash, err := s.passwordHasher.Hash(input.Password)
	if err != nil {
		return nil, fmt.Errorf("failed to hash password: %w", err)
	}

	p, err := profile.NewWithPassword(email, strings.TrimSpace(input.FullName), hash)
	if err != nil {
		return nil, err
	}

	if err := s.profileRepo.Create(ctx, p); err != nil {
		return nil, fmt.Errorf("failed to create profile: %w", err)
	}

	// The profile row may lag behind the insert when reads go to a replica.
	// Wait for it to become readable before issuing tokens against it.
	provisioned, err := s.waitForProfile(ctx, p)
	if err != nil {
		s.logger.Error("profile not readable after registration", "error", err, "email", email)
		return nil, fmt.Errorf("profile provisioning incomplete: %w", err)
	}

	if err := s.promoteFirstAdmin(ctx, provisioned); err != nil {
		s.logger.Warn("first-admin promotion failed", "error", err, "id", provisioned.ID().String())
	}

	tokens, err := s.issueTokens(ctx, provisioned)
	if err != nil {
		return nil, err
	}

	metrics.AuthRegistrationsTotal.Inc()
	s.logger.Info("profile registered", "id", provisioned.ID().String(), "email", email)

	return &RegisterResult{Profile: provisioned, Tokens: tokens}, nil
}

// waitForProfile polls until the freshly created profile is readable.
func (s *AuthService) waitForProfile(ctx context.Context, p *profile.Profile) (*profile.Profile, error) {
	var found *profile.Profile
	cfg := retry.Config{
		MaxAttempts: s.config.ProvisionMaxAttempts,
		BaseDelay:   s.config.ProvisionBaseDelay,
		MaxDelay:    2 * time.Second,
	}
	err := retry.Do(ctx, cfg, func(ctx context.Context) error {
		got, err := s.profileRepo.GetByID(ctx, p.ID())
		if err != nil {
			return err
		}
		found = got
		return nil
	})
	if err != nil {
		return nil, err
	}
	return found, nil
}

// promoteFirstAdmin makes the only profile an administrator.
func (s *AuthService) promoteFirstAdmin(ctx context.Context, p *profile.Profile) error {
	admins, err := s.profileRepo.CountAdmins(ctx)
	if err != nil {
		return err
	}
	if admins > 0 {
		return nil
	}
	total, err := s.profileRepo.Count(ctx, profile.ListFilter{})
	if err != nil {
		return err
	}
	if total != 1 {
		return nil
	}
	if err := p.ChangeRole(profile.RoleAdmin); err != nil {
		return err
	}
	if err := s.profileRepo.Update(ctx, p); err != nil {
		return err
	}
	s.logger.Info("first profile promoted to admin", "id", p.ID().String())
	return nil
}

// LoginInput represents the input for login.
type LoginInput struct {
	Email    string `json:"email" validate:"required,email"`
	Password string `json:"password" validate:"required"`
}

// LoginResult represents a successful login.
type LoginResult struct {
	Profile *profile.Profile
	Tokens  *jwt.TokenPair
}

// Login authenticates a profile by email and password.
func (s *AuthService) Login(ctx context.Context, input LoginInput) (*LoginResult, error) {
	email := normalizeEmail(input.Email)

	p, err := s.profileRepo.GetByEmail(ctx, email)
	if err != nil {
		if profile.IsProfileNotFound(err) {
			metrics.AuthLoginsTotal.WithLabelValues("invalid_credentials").Inc()
			return nil, ErrInvalidCredentials
		}
		return nil, fmt.Errorf("failed to load profile: %w", err)
	}

	if p.PasswordHash() == nil {
		metrics.AuthLoginsTotal.WithLabelValues("invalid_credentials").Inc()
		return nil, ErrInvalidCredentials
	}
	if err := s.passwordHasher.Verify(input.Password, *p.PasswordHash()); err != nil {
		metrics.AuthLoginsTotal.WithLabelValues("invalid_credentials").Inc()
		return nil, ErrInvalidCredentials
	}

	// The active check runs after password verification so a disabled
	// account cannot be probed with arbitrary passwords.
	if !p.IsActive() {
		metrics.AuthLoginsTotal.WithLabelValues("inactive").Inc()
		return nil, ErrAccountDisabled
	}

	p.RecordLogin()
	if err := s.profileRepo.Update(ctx, p); err != nil {
		s.logger.Warn("failed to record login time", "error", err, "id", p.ID().String())
	}

	tokens, err := s.issueTokens(ctx, p)
	if err != nil {
		return nil, err
	}

	metrics.AuthLoginsTotal.WithLabelValues("success").Inc()
	s.logger.Info("login", "id", p.ID().String(), "email", p.Email())

	return &LoginResult{Profile: p, Tokens: tokens}, nil
}

// Refresh exchanges a valid refresh token for a new token pair. The old
// refresh token is rotated out atomically so a replayed token fails.
func (s *AuthService) Refresh(ctx context.Context, refreshToken string) (*LoginResult, error) {
	claims, err := s.tokenGenerator.ValidateRefreshToken(refreshToken)
	if err != nil {
		metrics.AuthTokenRefreshesTotal.WithLabelValues("invalid").Inc()
		return nil, ErrInvalidRefreshToken
	}

	oldHash := jwt.HashToken(refreshToken)
	valid, err := s.tokenStore.ValidateRefreshToken(ctx, claims.UserID, oldHash)
	if err != nil {
		return nil, fmt.Errorf("failed to validate refresh token: %w", err)
	}
	if !valid {
		metrics.AuthTokenRefreshesTotal.WithLabelValues("revoked").Inc()
		return nil, ErrInvalidRefreshToken
	}

	id, err := parseID(claims.UserID)
	if err != nil {
		return nil, ErrInvalidRefreshToken
	}
	p, err := s.profileRepo.GetByID(ctx, id)
	if err != nil {
		if profile.IsProfileNotFound(err) {
			return nil, ErrInvalidRefreshToken
		}
		return nil, fmt.Errorf("failed to load profile: %w", err)
	}
	if !p.IsActive() {
		metrics.AuthTokenRefreshesTotal.WithLabelValues("inactive").Inc()
		return nil, ErrAccountDisabled
	}

	sessionID := uuid.NewString()
	pair, err := s.tokenGenerator.GenerateTokenPair(
		p.ID().String(), p.Email(), p.FullName(), p.Role().String(), sessionID,
	)
	if err != nil {
		return nil, fmt.Errorf("failed to generate tokens: %w", err)
	}

	newHash := jwt.HashToken(pair.RefreshToken)
	ttl := time.Until(pair.RefreshExpiresAt)
	if err := s.tokenStore.RotateRefreshToken(ctx, claims.UserID, oldHash, newHash, ttl); err != nil {
		return nil, fmt.Errorf("failed to rotate refresh token: %w", err)
	}

	metrics.AuthTokenRefreshesTotal.WithLabelValues("success").Inc()
	return &LoginResult{Profile: p, Tokens: pair}, nil
}

// Logout revokes the refresh token and blacklists the access token for the
// remainder of its lifetime.
func (s *AuthService) Logout(ctx context.Context, accessToken, refreshToken string) error {
	claims, err := s.tokenGenerator.ValidateAccessToken(accessToken)
	if err != nil {
		// An expired access token still allows logout of the refresh side.
		claims = nil
	}

	if claims != nil && claims.ID != "" {
		remaining := time.Until(claims.ExpiresAt.Time)
		if remaining > 0 {
			if err := s.tokenStore.BlacklistToken(ctx, claims.ID, remaining); err != nil {
				s.logger.Warn("failed to blacklist access token", "error", err)
			}
		}
	}

	if refreshToken == "" {
		return nil
	}
	refreshClaims, err := s.tokenGenerator.ValidateRefreshToken(refreshToken)
	if err != nil {
		return nil
	}
	hash := jwt.HashToken(refreshToken)
	if err := s.tokenStore.RevokeRefreshToken(ctx, refreshClaims.UserID, hash); err != nil {
		return fmt.Errorf("failed to revoke refresh token: %w", err)
	}
	return nil
}

// LogoutAll revokes every refresh token for a user. Used when an account is
// deactivated or its password changes.
func (s *AuthService) LogoutAll(ctx context.Context, userID string) error {
	if err := s.tokenStore.RevokeAllRefreshTokens(ctx, userID); err != nil {
		return fmt.Errorf("failed to revoke refresh tokens: %w", err)
	}
	return nil
}

// ChangePasswordInput represents the input for a password change.
type ChangePasswordInput struct {
	CurrentPassword string `json:"current_password" validate:"required"`
	NewPassword     string `json:"new_password" validate:"required,min=8,max=128"`
}

// ChangePassword verifies the current password and replaces it. All refresh
// tokens of the user are revoked afterwards.
func (s *AuthService) ChangePassword(ctx context.Context, userID string, input ChangePasswordInput) error {
	id, err := parseID(userID)
	if err != nil {
		return err
	}
	p, err := s.profileRepo.GetByID(ctx, id)
	if err != nil {
		return err
	}
	if p.PasswordHash() == nil {
		return ErrPasswordMismatch
	}
	if err := s.passwordHasher.Verify(input.CurrentPassword, *p.PasswordHash()); err != nil {
		return ErrPasswordMismatch
	}
	if err := s.passwordHasher.Validate(input.NewPassword); err != nil {
		return err
	}
	hash, err := s.passwordHasher.Hash(input.NewPassword)
	if err != nil {
		return fmt.Errorf("failed to hash password: %w", err)
	}
	if err := p.SetPasswordHash(hash); err != nil {
		return err
	}
	if err := s.profileRepo.Update(ctx, p); err != nil {
		return fmt.Errorf("failed to update profile: %w", err)
	}
	if err := s.LogoutAll(ctx, userID); err != nil {
		s.logger.Warn("failed to revoke sessions after password change", "error", err, "id", userID)
	}
	s.logger.Info("password changed", "id", userID)
	return nil
}

// IsTokenBlacklisted reports whether an access token jti has been revoked.
func (s *AuthService) IsTokenBlacklisted(ctx context.Context, jti string) (bool, error) {
	return s.tokenStore.IsBlacklisted(ctx, jti)
}

// issueTokens generates a token pair and stores the refresh token hash.
func (s *AuthService) issueTokens(ctx context.Context, p *profile.Profile) (*jwt.TokenPair, error) {
	sessionID := uuid.NewString()
	pair, err := s.tokenGenerator.GenerateTokenPair(
		p.ID().String(), p.Email(), p.FullName(), p.Role().String(), sessionID,
	)
	if err != nil {
		return nil, fmt.Errorf("failed to generate tokens: %w", err)
	}
	hash := jwt.HashToken(pair.RefreshToken)
	ttl := time.Until(pair.RefreshExpiresAt)
	if err := s.tokenStore.StoreRefreshToken(ctx, p.ID().String(), hash, ttl); err != nil {
		return nil, fmt.Errorf("failed to store refresh token: %w", err)
	}
	return pair, nil
}

func normalizeEmail(email string) string {
	return strings.ToLower(strings.TrimSpace(email))
}
