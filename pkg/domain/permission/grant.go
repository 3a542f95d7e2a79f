package permission

import (
	"fmt"
	"time"

	"github.com/apphubio/api/pkg/domain/shared"
)

// Grant represents an explicit per-user permission for an application.
// An explicit AccessLocked grant is a real override that suppresses group
// and public access; it is distinct from the absence of a record.
type Grant struct {
	id            shared.ID
	userID        shared.ID
	applicationID shared.ID
	level         AccessLevel
	grantedBy     *shared.ID
	createdAt     time.Time
	updatedAt     time.Time
}

// NewGrant creates a new individual permission grant.
func NewGrant(userID, applicationID shared.ID, level AccessLevel, grantedBy *shared.ID) (*Grant, error) {
	if userID.IsZero() {
		return nil, fmt.Errorf("%w: userID is required", shared.ErrValidation)
	}
	if applicationID.IsZero() {
		return nil, fmt.Errorf("%w: applicationID is required", shared.ErrValidation)
	}
	if !level.IsValid() {
		return nil, fmt.Errorf("%w: invalid access level %q", shared.ErrValidation, level)
	}

	now := time.Now().UTC()
	return &Grant{
		id:            shared.NewID(),
		userID:        userID,
		applicationID: applicationID,
		level:         level,
		grantedBy:     grantedBy,
		createdAt:     now,
		updatedAt:     now,
	}, nil
}

// ReconstituteGrant recreates a Grant from persistence.
func ReconstituteGrant(
	id shared.ID,
	userID shared.ID,
	applicationID shared.ID,
	level AccessLevel,
	grantedBy *shared.ID,
	createdAt, updatedAt time.Time,
) *Grant {
	return &Grant{
		id:            id,
		userID:        userID,
		applicationID: applicationID,
		level:         level,
		grantedBy:     grantedBy,
		createdAt:     createdAt,
		updatedAt:     updatedAt,
	}
}

// ID returns the grant ID.
func (g *Grant) ID() shared.ID {
	return g.id
}

// UserID returns the user the grant applies to.
func (g *Grant) UserID() shared.ID {
	return g.userID
}

// ApplicationID returns the application the grant applies to.
func (g *Grant) ApplicationID() shared.ID {
	return g.applicationID
}

// Level returns the granted access level.
func (g *Grant) Level() AccessLevel {
	return g.level
}

// GrantedBy returns the admin who performed the grant, if recorded.
func (g *Grant) GrantedBy() *shared.ID {
	return g.grantedBy
}

// CreatedAt returns the creation timestamp.
func (g *Grant) CreatedAt() time.Time {
	return g.createdAt
}

// UpdatedAt returns the last update timestamp.
func (g *Grant) UpdatedAt() time.Time {
	return g.updatedAt
}

// UpdateLevel changes the granted access level.
func (g *Grant) UpdateLevel(level AccessLevel, grantedBy *shared.ID) error {
	if !level.IsValid() {
		return fmt.Errorf("%w: invalid access level %q", shared.ErrValidation, level)
	}
	g.level = level
	g.grantedBy = grantedBy
	g.updatedAt = time.Now().UTC()
	return nil
}
