package permission

import (
	"context"

	"github.com/apphubio/api/pkg/domain/shared"
)

// Repository defines the interface for individual permission persistence.
type Repository interface {
	// Upsert creates or updates the grant for (user, application).
	// The (user_id, application_id) pair is unique; a second grant for the
	// same pair replaces the level rather than erroring.
	Upsert(ctx context.Context, g *Grant) error

	// GetByUserAndApp returns the grant for (user, application).
	// Returns ErrGrantNotFound when no record exists so callers can
	// distinguish "no such record" from a failed call.
	GetByUserAndApp(ctx context.Context, userID, applicationID shared.ID) (*Grant, error)

	// Delete removes the grant for (user, application). Deleting an absent
	// grant is a no-op.
	Delete(ctx context.Context, userID, applicationID shared.ID) error

	// ListByUser returns all grants for a user.
	ListByUser(ctx context.Context, userID shared.ID) ([]*Grant, error)

	// ListByApplication returns all grants for an application.
	ListByApplication(ctx context.Context, applicationID shared.ID) ([]*Grant, error)

	// ListAll returns every individual grant. Used by admin screens.
	ListAll(ctx context.Context) ([]*Grant, error)
}
