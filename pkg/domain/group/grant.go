package group

import (
	"fmt"
	"time"

	"github.com/apphubio/api/pkg/domain/permission"
	"github.com/apphubio/api/pkg/domain/shared"
)

// Grant represents the access level a group grants its members for an
// application. When a user belongs to several groups with conflicting grants
// for the same application, the most permissive one wins.
type Grant struct {
	groupID       shared.ID
	applicationID shared.ID
	level         permission.AccessLevel
	grantedBy     *shared.ID
	createdAt     time.Time
	updatedAt     time.Time
}

// NewGrant creates a new group grant.
func NewGrant(groupID, applicationID shared.ID, level permission.AccessLevel, grantedBy *shared.ID) (*Grant, error) {
	if groupID.IsZero() {
		return nil, fmt.Errorf("%w: groupID is required", shared.ErrValidation)
	}
	if applicationID.IsZero() {
		return nil, fmt.Errorf("%w: applicationID is required", shared.ErrValidation)
	}
	if !level.IsValid() {
		return nil, fmt.Errorf("%w: invalid access level %q", shared.ErrValidation, level)
	}

	now := time.Now().UTC()
	return &Grant{
		groupID:       groupID,
		applicationID: applicationID,
		level:         level,
		grantedBy:     grantedBy,
		createdAt:     now,
		updatedAt:     now,
	}, nil
}

// ReconstituteGrant recreates a group Grant from persistence.
func ReconstituteGrant(
	groupID, applicationID shared.ID,
	level permission.AccessLevel,
	grantedBy *shared.ID,
	createdAt, updatedAt time.Time,
) *Grant {
	return &Grant{
		groupID:       groupID,
		applicationID: applicationID,
		level:         level,
		grantedBy:     grantedBy,
		createdAt:     createdAt,
		updatedAt:     updatedAt,
	}
}

// GroupID returns the group the grant belongs to.
func (g *Grant) GroupID() shared.ID {
	return g.groupID
}

// ApplicationID returns the application the grant applies to.
func (g *Grant) ApplicationID() shared.ID {
	return g.applicationID
}

// Level returns the granted access level.
func (g *Grant) Level() permission.AccessLevel {
	return g.level
}

// GrantedBy returns the admin who set the grant, if recorded.
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
func (g *Grant) UpdateLevel(level permission.AccessLevel, grantedBy *shared.ID) error {
	if !level.IsValid() {
		return fmt.Errorf("%w: invalid access level %q", shared.ErrValidation, level)
	}
	g.level = level
	g.grantedBy = grantedBy
	g.updatedAt = time.Now().UTC()
	return nil
}
