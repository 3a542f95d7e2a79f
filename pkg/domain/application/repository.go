package application

import (
	"context"

	"github.com/apphubio/api/pkg/domain/shared"
)

// Repository defines the interface for application persistence.
type Repository interface {
	Create(ctx context.Context, a *Application) error
	GetByID(ctx context.Context, id shared.ID) (*Application, error)
	Update(ctx context.Context, a *Application) error
	Delete(ctx context.Context, id shared.ID) error

	// List returns applications ordered by (tier, display_order, name).
	List(ctx context.Context, filter ListFilter) ([]*Application, error)
	Count(ctx context.Context, filter ListFilter) (int64, error)
	ExistsByName(ctx context.Context, name string) (bool, error)

	// Reorder persists a new display order. IDs not present keep their
	// current position relative to the reordered set.
	Reorder(ctx context.Context, orderedIDs []shared.ID) error
}

// ListFilter contains filter options for listing applications.
type ListFilter struct {
	Tier       *Tier
	IsActive   *bool
	IsPublic   *bool
	Search     string // matches name and description
	Limit      int
	Offset     int
}

// DefaultListFilter returns a default filter.
func DefaultListFilter() ListFilter {
	return ListFilter{Limit: 100}
}
