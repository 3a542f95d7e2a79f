package group

import (
	"context"

	"github.com/apphubio/api/pkg/domain/shared"
)

// Repository defines the interface for group persistence.
type Repository interface {
	// Group CRUD operations
	Create(ctx context.Context, g *Group) error
	GetByID(ctx context.Context, id shared.ID) (*Group, error)
	GetByName(ctx context.Context, name string) (*Group, error)
	Update(ctx context.Context, g *Group) error

	// Delete removes the group. Memberships and group grants cascade;
	// members lose the inherited access on the next resolution.
	Delete(ctx context.Context, id shared.ID) error

	List(ctx context.Context, filter ListFilter) ([]*Group, error)
	Count(ctx context.Context, filter ListFilter) (int64, error)
	ExistsByName(ctx context.Context, name string) (bool, error)

	// Member operations. AddMember must be idempotent: adding an existing
	// member is a no-op, not a uniqueness error. RemoveMember on a
	// non-member is likewise a no-op.
	AddMember(ctx context.Context, m *Member) error
	RemoveMember(ctx context.Context, groupID, userID shared.ID) error
	IsMember(ctx context.Context, groupID, userID shared.ID) (bool, error)
	ListMembers(ctx context.Context, groupID shared.ID) ([]*MemberWithProfile, error)
	CountMembers(ctx context.Context, groupID shared.ID) (int64, error)
	ListGroupIDsByUser(ctx context.Context, userID shared.ID) ([]shared.ID, error)

	// Group grant operations. UpsertGrant replaces an existing level.
	UpsertGrant(ctx context.Context, g *Grant) error
	RemoveGrant(ctx context.Context, groupID, applicationID shared.ID) error
	ListGrants(ctx context.Context, groupID shared.ID) ([]*Grant, error)
	ListGrantsByApplication(ctx context.Context, applicationID shared.ID) ([]*Grant, error)
	ListAllGrants(ctx context.Context) ([]*Grant, error)
}

// ListFilter contains filter options for listing groups.
type ListFilter struct {
	Search string // matches name and description
	Limit  int
	Offset int
}

// DefaultListFilter returns a default filter.
func DefaultListFilter() ListFilter {
	return ListFilter{Limit: 50}
}

// GroupWithMemberCount represents a group with its member count for listing.
type GroupWithMemberCount struct {
	Group       *Group
	MemberCount int64
}
