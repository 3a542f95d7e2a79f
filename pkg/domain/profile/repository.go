package profile

import (
	"context"

	"github.com/apphubio/api/pkg/domain/shared"
)

// Repository defines the interface for profile persistence.
type Repository interface {
	Create(ctx context.Context, p *Profile) error
	GetByID(ctx context.Context, id shared.ID) (*Profile, error)
	GetByEmail(ctx context.Context, email string) (*Profile, error)
	Update(ctx context.Context, p *Profile) error

	// Delete removes the profile. Memberships and individual grants cascade.
	Delete(ctx context.Context, id shared.ID) error

	List(ctx context.Context, filter ListFilter) ([]*Profile, error)
	Count(ctx context.Context, filter ListFilter) (int64, error)
	ExistsByEmail(ctx context.Context, email string) (bool, error)

	// CountAdmins returns the number of active administrators. The last-admin
	// guard reads this before role changes and deletions.
	CountAdmins(ctx context.Context) (int64, error)
}

// ListFilter contains filter options for listing profiles.
type ListFilter struct {
	Role     *Role
	IsActive *bool
	Search   string // matches email and full name
	Limit    int
	Offset   int
	OrderBy  string // "full_name", "email", "created_at"
}

// DefaultListFilter returns a default filter.
func DefaultListFilter() ListFilter {
	return ListFilter{Limit: 50, OrderBy: "full_name"}
}
