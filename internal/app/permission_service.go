package app

import (
	"context"
	"fmt"

	"github.com/apphubio/api/internal/metrics"
	"github.com/apphubio/api/pkg/domain/permission"
	"github.com/apphubio/api/pkg/domain/profile"
	"github.com/apphubio/api/pkg/domain/shared"
	"github.com/apphubio/api/pkg/logger"
)

// PermissionService handles individual permission grants. Individual grants
// override anything inherited from groups, including an explicit locked that
// shuts a public application for one user.
type PermissionService struct {
	repo        permission.Repository
	profileRepo profile.Repository
	appResolver ApplicationChecker
	invalidator AccessInvalidator
	logger      *logger.Logger
}

// PermissionServiceOption is a functional option for PermissionService.
type PermissionServiceOption func(*PermissionService)

// WithPermissionAccessInvalidator sets the access cache invalidator.
func WithPermissionAccessInvalidator(inv AccessInvalidator) PermissionServiceOption {
	return func(s *PermissionService) {
		s.invalidator = inv
	}
}

// WithPermissionApplicationChecker sets the application existence check.
func WithPermissionApplicationChecker(c ApplicationChecker) PermissionServiceOption {
	return func(s *PermissionService) {
		s.appResolver = c
	}
}

// NewPermissionService creates a new PermissionService.
func NewPermissionService(
	repo permission.Repository,
	profileRepo profile.Repository,
	log *logger.Logger,
	opts ...PermissionServiceOption,
) *PermissionService {
	s := &PermissionService{
		repo:        repo,
		profileRepo: profileRepo,
		logger:      log.With("service", "permission"),
	}
	for _, opt := range opts {
		opt(s)
	}
	return s
}

// GrantInput represents an individual grant mutation.
type GrantInput struct {
	UserID        string `json:"user_id" validate:"required,uuid"`
	ApplicationID string `json:"application_id" validate:"required,uuid"`
	AccessLevel   string `json:"access_level" validate:"required,access_level"`
}

// Grant sets the individual access level for (user, application). A second
// grant for the same pair replaces the level rather than erroring.
func (s *PermissionService) Grant(ctx context.Context, input GrantInput, grantedBy *string) (*permission.Grant, error) {
	uid, err := parseID(input.UserID)
	if err != nil {
		return nil, err
	}
	aid, err := parseID(input.ApplicationID)
	if err != nil {
		return nil, err
	}
	level, ok := permission.ParseAccessLevel(input.AccessLevel)
	if !ok {
		return nil, permission.ErrInvalidAccessLevel
	}

	if _, err := s.profileRepo.GetByID(ctx, uid); err != nil {
		return nil, err
	}
	if s.appResolver != nil {
		if _, err := s.appResolver.GetApplication(ctx, input.ApplicationID); err != nil {
			return nil, err
		}
	}

	var granter *shared.ID
	if grantedBy != nil {
		id, err := parseID(*grantedBy)
		if err != nil {
			return nil, err
		}
		granter = &id
	}

	g, err := permission.NewGrant(uid, aid, level, granter)
	if err != nil {
		return nil, err
	}
	if err := s.repo.Upsert(ctx, g); err != nil {
		return nil, fmt.Errorf("failed to upsert grant: %w", err)
	}

	metrics.PermissionChangesTotal.WithLabelValues("individual_grant").Inc()
	s.invalidateUser(ctx, uid)
	s.logger.Info("grant set",
		"user", input.UserID, "application", input.ApplicationID, "level", level.String())
	return g, nil
}

// Revoke deletes the individual grant for (user, application). The user
// falls back to group-derived or public access. Revoking an absent grant is
// a no-op.
func (s *PermissionService) Revoke(ctx context.Context, userID, applicationID string) error {
	uid, err := parseID(userID)
	if err != nil {
		return err
	}
	aid, err := parseID(applicationID)
	if err != nil {
		return err
	}

	if err := s.repo.Delete(ctx, uid, aid); err != nil {
		return fmt.Errorf("failed to delete grant: %w", err)
	}

	metrics.PermissionChangesTotal.WithLabelValues("individual_revoke").Inc()
	s.invalidateUser(ctx, uid)
	s.logger.Info("grant revoked", "user", userID, "application", applicationID)
	return nil
}

// GetGrant returns the individual grant for (user, application).
func (s *PermissionService) GetGrant(ctx context.Context, userID, applicationID string) (*permission.Grant, error) {
	uid, err := parseID(userID)
	if err != nil {
		return nil, err
	}
	aid, err := parseID(applicationID)
	if err != nil {
		return nil, err
	}
	return s.repo.GetByUserAndApp(ctx, uid, aid)
}

// ListByUser returns all individual grants of a user.
func (s *PermissionService) ListByUser(ctx context.Context, userID string) ([]*permission.Grant, error) {
	uid, err := parseID(userID)
	if err != nil {
		return nil, err
	}
	return s.repo.ListByUser(ctx, uid)
}

// ListByApplication returns all individual grants for an application.
func (s *PermissionService) ListByApplication(ctx context.Context, applicationID string) ([]*permission.Grant, error) {
	aid, err := parseID(applicationID)
	if err != nil {
		return nil, err
	}
	return s.repo.ListByApplication(ctx, aid)
}

func (s *PermissionService) invalidateUser(ctx context.Context, userID shared.ID) {
	if s.invalidator == nil {
		return
	}
	s.invalidator.InvalidateUser(ctx, userID)
}
