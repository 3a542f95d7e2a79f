package app

import (
	"context"
	"fmt"

	"github.com/apphubio/api/pkg/domain/profile"
	"github.com/apphubio/api/pkg/domain/shared"
	"github.com/apphubio/api/pkg/logger"
	"github.com/apphubio/api/pkg/pagination"
)

// ProfileService handles profile administration and self-service updates.
type ProfileService struct {
	repo        profile.Repository
	sessions    SessionRevoker
	invalidator AccessInvalidator
	logger      *logger.Logger
}

// SessionRevoker revokes all refresh tokens of a user. Deactivating or
// deleting an account must cut its live sessions, not just future logins.
type SessionRevoker interface {
	RevokeAllRefreshTokens(ctx context.Context, userID string) error
}

// AccessInvalidator drops cached access state for a user, or for everyone.
// Services call it after permission-relevant mutations so the next
// resolution observes fresh data.
type AccessInvalidator interface {
	InvalidateUser(ctx context.Context, userID shared.ID)
	InvalidateAll(ctx context.Context)
}

// ProfileServiceOption is a functional option for ProfileService.
type ProfileServiceOption func(*ProfileService)

// WithSessionRevoker sets the revoker used on deactivation and deletion.
func WithSessionRevoker(r SessionRevoker) ProfileServiceOption {
	return func(s *ProfileService) {
		s.sessions = r
	}
}

// WithProfileAccessInvalidator sets the access cache invalidator.
func WithProfileAccessInvalidator(inv AccessInvalidator) ProfileServiceOption {
	return func(s *ProfileService) {
		s.invalidator = inv
	}
}

// NewProfileService creates a new ProfileService.
func NewProfileService(repo profile.Repository, log *logger.Logger, opts ...ProfileServiceOption) *ProfileService {
	s := &ProfileService{
		repo:   repo,
		logger: log.With("service", "profile"),
	}
	for _, opt := range opts {
		opt(s)
	}
	return s
}

// ListProfilesInput represents the input for listing profiles.
type ListProfilesInput struct {
	Role     string `json:"role" validate:"omitempty,user_role"`
	IsActive *bool  `json:"is_active"`
	Search   string `json:"search" validate:"max=255"`
	OrderBy  string `json:"order_by" validate:"omitempty,oneof=full_name email created_at"`
	Page     int    `json:"page"`
	PerPage  int    `json:"per_page"`
}

// ListProfiles returns a page of profiles with the total count.
func (s *ProfileService) ListProfiles(ctx context.Context, input ListProfilesInput) (*pagination.Result[*profile.Profile], error) {
	page := pagination.New(input.Page, input.PerPage)

	filter := profile.DefaultListFilter()
	filter.Search = input.Search
	filter.IsActive = input.IsActive
	filter.Limit = page.Limit()
	filter.Offset = page.Offset()
	if input.OrderBy != "" {
		filter.OrderBy = input.OrderBy
	}
	if input.Role != "" {
		role := profile.Role(input.Role)
		if !role.IsValid() {
			return nil, fmt.Errorf("%w: invalid role %q", shared.ErrValidation, input.Role)
		}
		filter.Role = &role
	}

	profiles, err := s.repo.List(ctx, filter)
	if err != nil {
		return nil, fmt.Errorf("failed to list profiles: %w", err)
	}
	total, err := s.repo.Count(ctx, filter)
	if err != nil {
		return nil, fmt.Errorf("failed to count profiles: %w", err)
	}

	result := pagination.NewResult(profiles, total, page)
	return &result, nil
}

// GetProfile returns a profile by ID.
func (s *ProfileService) GetProfile(ctx context.Context, id string) (*profile.Profile, error) {
	pid, err := parseID(id)
	if err != nil {
		return nil, err
	}
	return s.repo.GetByID(ctx, pid)
}

// UpdateDisplayInput represents the self-service display update.
type UpdateDisplayInput struct {
	FullName  string `json:"full_name" validate:"required,min=2,max=255"`
	AvatarURL string `json:"avatar_url" validate:"omitempty,url,max=2048"`
}

// UpdateDisplay updates the name and avatar of a profile.
func (s *ProfileService) UpdateDisplay(ctx context.Context, id string, input UpdateDisplayInput) (*profile.Profile, error) {
	pid, err := parseID(id)
	if err != nil {
		return nil, err
	}
	p, err := s.repo.GetByID(ctx, pid)
	if err != nil {
		return nil, err
	}
	p.UpdateDisplay(input.FullName, input.AvatarURL)
	if err := s.repo.Update(ctx, p); err != nil {
		return nil, fmt.Errorf("failed to update profile: %w", err)
	}
	return p, nil
}

// ChangeRole changes the global role of a profile.
//
// Guards:
//   - An admin cannot change their own role; demotion must come from a peer.
//   - The last active admin cannot be demoted.
func (s *ProfileService) ChangeRole(ctx context.Context, actorID, targetID, newRole string) (*profile.Profile, error) {
	role := profile.Role(newRole)
	if !role.IsValid() {
		return nil, fmt.Errorf("%w: invalid role %q", shared.ErrValidation, newRole)
	}
	if actorID == targetID {
		return nil, profile.ErrSelfAction
	}

	tid, err := parseID(targetID)
	if err != nil {
		return nil, err
	}
	p, err := s.repo.GetByID(ctx, tid)
	if err != nil {
		return nil, err
	}

	if p.IsAdmin() && role != profile.RoleAdmin {
		if err := s.ensureNotLastAdmin(ctx); err != nil {
			return nil, err
		}
	}

	if err := p.ChangeRole(role); err != nil {
		return nil, err
	}
	if err := s.repo.Update(ctx, p); err != nil {
		return nil, fmt.Errorf("failed to update profile: %w", err)
	}

	s.logger.Info("role changed", "id", targetID, "role", newRole, "actor", actorID)
	return p, nil
}

// SetActive activates or deactivates a profile.
//
// Guards on deactivation:
//   - An admin cannot deactivate themselves.
//   - The last active admin cannot be deactivated.
//
// Deactivation revokes the user's refresh tokens and drops their cached
// access state so existing sessions stop resolving anything.
func (s *ProfileService) SetActive(ctx context.Context, actorID, targetID string, active bool) (*profile.Profile, error) {
	tid, err := parseID(targetID)
	if err != nil {
		return nil, err
	}
	p, err := s.repo.GetByID(ctx, tid)
	if err != nil {
		return nil, err
	}

	if !active {
		if actorID == targetID {
			return nil, profile.ErrSelfAction
		}
		if p.IsAdmin() && p.IsActive() {
			if err := s.ensureNotLastAdmin(ctx); err != nil {
				return nil, err
			}
		}
		p.Deactivate()
	} else {
		p.Activate()
	}

	if err := s.repo.Update(ctx, p); err != nil {
		return nil, fmt.Errorf("failed to update profile: %w", err)
	}

	if !active {
		s.revokeSessions(ctx, targetID)
		s.invalidateUser(ctx, tid)
	}

	s.logger.Info("active flag changed", "id", targetID, "active", active, "actor", actorID)
	return p, nil
}

// DeleteProfile deletes a profile. Memberships and individual grants
// cascade in storage. Self-deletion and deleting the last active admin are
// refused.
func (s *ProfileService) DeleteProfile(ctx context.Context, actorID, targetID string) error {
	if actorID == targetID {
		return profile.ErrSelfAction
	}
	tid, err := parseID(targetID)
	if err != nil {
		return err
	}
	p, err := s.repo.GetByID(ctx, tid)
	if err != nil {
		return err
	}
	if p.IsAdmin() && p.IsActive() {
		if err := s.ensureNotLastAdmin(ctx); err != nil {
			return err
		}
	}

	if err := s.repo.Delete(ctx, tid); err != nil {
		return fmt.Errorf("failed to delete profile: %w", err)
	}

	s.revokeSessions(ctx, targetID)
	s.invalidateUser(ctx, tid)

	s.logger.Info("profile deleted", "id", targetID, "actor", actorID)
	return nil
}

func (s *ProfileService) ensureNotLastAdmin(ctx context.Context) error {
	admins, err := s.repo.CountAdmins(ctx)
	if err != nil {
		return fmt.Errorf("failed to count admins: %w", err)
	}
	if admins <= 1 {
		return profile.ErrLastAdmin
	}
	return nil
}

func (s *ProfileService) revokeSessions(ctx context.Context, userID string) {
	if s.sessions == nil {
		return
	}
	if err := s.sessions.RevokeAllRefreshTokens(ctx, userID); err != nil {
		s.logger.Warn("failed to revoke sessions", "error", err, "id", userID)
	}
}

func (s *ProfileService) invalidateUser(ctx context.Context, userID shared.ID) {
	if s.invalidator == nil {
		return
	}
	s.invalidator.InvalidateUser(ctx, userID)
}
