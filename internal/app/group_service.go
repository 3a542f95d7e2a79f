package app

import (
	"context"
	"fmt"

	"github.com/apphubio/api/internal/metrics"
	"github.com/apphubio/api/pkg/domain/application"
	"github.com/apphubio/api/pkg/domain/group"
	"github.com/apphubio/api/pkg/domain/permission"
	"github.com/apphubio/api/pkg/domain/profile"
	"github.com/apphubio/api/pkg/domain/shared"
	"github.com/apphubio/api/pkg/logger"
	"github.com/apphubio/api/pkg/pagination"
)

// GroupService handles groups, their members, and group-level grants.
type GroupService struct {
	repo        group.Repository
	profileRepo profile.Repository
	appResolver ApplicationChecker
	invalidator AccessInvalidator
	logger      *logger.Logger
}

// ApplicationChecker verifies that an application exists before a grant
// references it. Satisfied by ApplicationService.
type ApplicationChecker interface {
	GetApplication(ctx context.Context, id string) (*application.Application, error)
}

// GroupServiceOption is a functional option for GroupService.
type GroupServiceOption func(*GroupService)

// WithGroupAccessInvalidator sets the access cache invalidator.
func WithGroupAccessInvalidator(inv AccessInvalidator) GroupServiceOption {
	return func(s *GroupService) {
		s.invalidator = inv
	}
}

// WithGroupApplicationChecker sets the application existence check used
// before group grants are written.
func WithGroupApplicationChecker(c ApplicationChecker) GroupServiceOption {
	return func(s *GroupService) {
		s.appResolver = c
	}
}

// NewGroupService creates a new GroupService.
func NewGroupService(
	repo group.Repository,
	profileRepo profile.Repository,
	log *logger.Logger,
	opts ...GroupServiceOption,
) *GroupService {
	s := &GroupService{
		repo:        repo,
		profileRepo: profileRepo,
		logger:      log.With("service", "group"),
	}
	for _, opt := range opts {
		opt(s)
	}
	return s
}

// CreateGroupInput represents the input for creating a group.
type CreateGroupInput struct {
	Name        string `json:"name" validate:"required,min=2,max=100"`
	Description string `json:"description" validate:"max=500"`
	Color       string `json:"color" validate:"omitempty,hex_color"`
}

// CreateGroup creates a new group.
func (s *GroupService) CreateGroup(ctx context.Context, input CreateGroupInput) (*group.Group, error) {
	exists, err := s.repo.ExistsByName(ctx, input.Name)
	if err != nil {
		return nil, fmt.Errorf("failed to check name existence: %w", err)
	}
	if exists {
		return nil, group.ErrNameExists
	}

	g, err := group.New(input.Name)
	if err != nil {
		return nil, err
	}
	g.UpdateDescription(input.Description)
	g.UpdateColor(input.Color)

	if err := s.repo.Create(ctx, g); err != nil {
		return nil, fmt.Errorf("failed to create group: %w", err)
	}

	s.logger.Info("group created", "id", g.ID().String(), "name", g.Name())
	return g, nil
}

// ListGroupsInput represents the input for listing groups.
type ListGroupsInput struct {
	Search  string `json:"search" validate:"max=255"`
	Page    int    `json:"page"`
	PerPage int    `json:"per_page"`
}

// ListGroups returns a page of groups with their member counts.
func (s *GroupService) ListGroups(ctx context.Context, input ListGroupsInput) (*pagination.Result[group.GroupWithMemberCount], error) {
	page := pagination.New(input.Page, input.PerPage)

	filter := group.DefaultListFilter()
	filter.Search = input.Search
	filter.Limit = page.Limit()
	filter.Offset = page.Offset()

	groups, err := s.repo.List(ctx, filter)
	if err != nil {
		return nil, fmt.Errorf("failed to list groups: %w", err)
	}
	total, err := s.repo.Count(ctx, filter)
	if err != nil {
		return nil, fmt.Errorf("failed to count groups: %w", err)
	}

	withCounts := make([]group.GroupWithMemberCount, 0, len(groups))
	for _, g := range groups {
		count, err := s.repo.CountMembers(ctx, g.ID())
		if err != nil {
			return nil, fmt.Errorf("failed to count members of %s: %w", g.ID().String(), err)
		}
		withCounts = append(withCounts, group.GroupWithMemberCount{Group: g, MemberCount: count})
	}

	result := pagination.NewResult(withCounts, total, page)
	return &result, nil
}

// GetGroup returns a group by ID.
func (s *GroupService) GetGroup(ctx context.Context, id string) (*group.Group, error) {
	gid, err := parseID(id)
	if err != nil {
		return nil, err
	}
	return s.repo.GetByID(ctx, gid)
}

// UpdateGroupInput represents the input for updating a group. Nil fields
// are left unchanged.
type UpdateGroupInput struct {
	Name        *string `json:"name" validate:"omitempty,min=2,max=100"`
	Description *string `json:"description" validate:"omitempty,max=500"`
	Color       *string `json:"color" validate:"omitempty,hex_color"`
}

// UpdateGroup applies a partial update to a group.
func (s *GroupService) UpdateGroup(ctx context.Context, id string, input UpdateGroupInput) (*group.Group, error) {
	gid, err := parseID(id)
	if err != nil {
		return nil, err
	}
	g, err := s.repo.GetByID(ctx, gid)
	if err != nil {
		return nil, err
	}

	if input.Name != nil && *input.Name != g.Name() {
		exists, err := s.repo.ExistsByName(ctx, *input.Name)
		if err != nil {
			return nil, fmt.Errorf("failed to check name existence: %w", err)
		}
		if exists {
			return nil, group.ErrNameExists
		}
		if err := g.Rename(*input.Name); err != nil {
			return nil, err
		}
	}
	if input.Description != nil {
		g.UpdateDescription(*input.Description)
	}
	if input.Color != nil {
		g.UpdateColor(*input.Color)
	}

	if err := s.repo.Update(ctx, g); err != nil {
		return nil, fmt.Errorf("failed to update group: %w", err)
	}
	return g, nil
}

// DeleteGroup removes a group. Memberships and group grants cascade, so
// members lose the inherited access on their next resolution.
func (s *GroupService) DeleteGroup(ctx context.Context, id string) error {
	gid, err := parseID(id)
	if err != nil {
		return err
	}
	if err := s.repo.Delete(ctx, gid); err != nil {
		return fmt.Errorf("failed to delete group: %w", err)
	}
	s.invalidateAll(ctx)
	s.logger.Info("group deleted", "id", id)
	return nil
}

// AddMember adds a user to a group. Adding an existing member is a no-op.
func (s *GroupService) AddMember(ctx context.Context, groupID, userID string, addedBy *string) error {
	gid, err := parseID(groupID)
	if err != nil {
		return err
	}
	uid, err := parseID(userID)
	if err != nil {
		return err
	}
	if _, err := s.repo.GetByID(ctx, gid); err != nil {
		return err
	}
	if _, err := s.profileRepo.GetByID(ctx, uid); err != nil {
		return err
	}

	var adder *shared.ID
	if addedBy != nil {
		id, err := parseID(*addedBy)
		if err != nil {
			return err
		}
		adder = &id
	}

	m, err := group.NewMember(gid, uid, adder)
	if err != nil {
		return err
	}
	if err := s.repo.AddMember(ctx, m); err != nil {
		return fmt.Errorf("failed to add member: %w", err)
	}

	s.invalidateUser(ctx, uid)
	s.logger.Info("member added", "group", groupID, "user", userID)
	return nil
}

// RemoveMember removes a user from a group. Removing a non-member is a
// no-op.
func (s *GroupService) RemoveMember(ctx context.Context, groupID, userID string) error {
	gid, err := parseID(groupID)
	if err != nil {
		return err
	}
	uid, err := parseID(userID)
	if err != nil {
		return err
	}
	if _, err := s.repo.GetByID(ctx, gid); err != nil {
		return err
	}
	if err := s.repo.RemoveMember(ctx, gid, uid); err != nil {
		return fmt.Errorf("failed to remove member: %w", err)
	}

	s.invalidateUser(ctx, uid)
	s.logger.Info("member removed", "group", groupID, "user", userID)
	return nil
}

// ListMembers returns the members of a group with their profile display
// fields.
func (s *GroupService) ListMembers(ctx context.Context, groupID string) ([]*group.MemberWithProfile, error) {
	gid, err := parseID(groupID)
	if err != nil {
		return nil, err
	}
	if _, err := s.repo.GetByID(ctx, gid); err != nil {
		return nil, err
	}
	return s.repo.ListMembers(ctx, gid)
}

// UpsertGrantInput represents a group grant mutation.
type UpsertGrantInput struct {
	ApplicationID string `json:"application_id" validate:"required,uuid"`
	AccessLevel   string `json:"access_level" validate:"required,access_level"`
}

// UpsertGrant sets the access level a group conveys for an application.
// A second grant for the same pair replaces the level.
func (s *GroupService) UpsertGrant(ctx context.Context, groupID string, input UpsertGrantInput, grantedBy *string) (*group.Grant, error) {
	gid, err := parseID(groupID)
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

	if _, err := s.repo.GetByID(ctx, gid); err != nil {
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

	grant, err := group.NewGrant(gid, aid, level, granter)
	if err != nil {
		return nil, err
	}
	if err := s.repo.UpsertGrant(ctx, grant); err != nil {
		return nil, fmt.Errorf("failed to upsert group grant: %w", err)
	}

	metrics.PermissionChangesTotal.WithLabelValues("group_grant").Inc()
	s.invalidateGroupMembers(ctx, gid)
	s.logger.Info("group grant set", "group", groupID, "application", input.ApplicationID, "level", level.String())
	return grant, nil
}

// RemoveGrant deletes a group grant. Removing an absent grant is a no-op.
func (s *GroupService) RemoveGrant(ctx context.Context, groupID, applicationID string) error {
	gid, err := parseID(groupID)
	if err != nil {
		return err
	}
	aid, err := parseID(applicationID)
	if err != nil {
		return err
	}
	if _, err := s.repo.GetByID(ctx, gid); err != nil {
		return err
	}
	if err := s.repo.RemoveGrant(ctx, gid, aid); err != nil {
		return fmt.Errorf("failed to remove group grant: %w", err)
	}

	metrics.PermissionChangesTotal.WithLabelValues("group_revoke").Inc()
	s.invalidateGroupMembers(ctx, gid)
	s.logger.Info("group grant removed", "group", groupID, "application", applicationID)
	return nil
}

// ListGrants returns the grants of a group.
func (s *GroupService) ListGrants(ctx context.Context, groupID string) ([]*group.Grant, error) {
	gid, err := parseID(groupID)
	if err != nil {
		return nil, err
	}
	if _, err := s.repo.GetByID(ctx, gid); err != nil {
		return nil, err
	}
	return s.repo.ListGrants(ctx, gid)
}

// invalidateGroupMembers drops cached access for every member of a group.
func (s *GroupService) invalidateGroupMembers(ctx context.Context, groupID shared.ID) {
	if s.invalidator == nil {
		return
	}
	members, err := s.repo.ListMembers(ctx, groupID)
	if err != nil {
		// Cannot enumerate members; flush everything instead of serving
		// stale grants.
		s.logger.Warn("failed to list members for invalidation", "error", err, "group", groupID.String())
		s.invalidator.InvalidateAll(ctx)
		return
	}
	for _, m := range members {
		s.invalidator.InvalidateUser(ctx, m.Member.UserID())
	}
}

func (s *GroupService) invalidateUser(ctx context.Context, userID shared.ID) {
	if s.invalidator == nil {
		return
	}
	s.invalidator.InvalidateUser(ctx, userID)
}

func (s *GroupService) invalidateAll(ctx context.Context) {
	if s.invalidator == nil {
		return
	}
	s.invalidator.InvalidateAll(ctx)
}
