package group

import (
	"fmt"
	"time"

	"github.com/apphubio/api/pkg/domain/shared"
)

// Member represents a user's membership in a group.
type Member struct {
	groupID shared.ID
	userID  shared.ID
	addedBy *shared.ID
	addedAt time.Time
}

// NewMember creates a new group membership.
func NewMember(groupID, userID shared.ID, addedBy *shared.ID) (*Member, error) {
	if groupID.IsZero() {
		return nil, fmt.Errorf("%w: groupID is required", shared.ErrValidation)
	}
	if userID.IsZero() {
		return nil, fmt.Errorf("%w: userID is required", shared.ErrValidation)
	}

	return &Member{
		groupID: groupID,
		userID:  userID,
		addedBy: addedBy,
		addedAt: time.Now().UTC(),
	}, nil
}

// ReconstituteMember recreates a Member from persistence.
func ReconstituteMember(groupID, userID shared.ID, addedBy *shared.ID, addedAt time.Time) *Member {
	return &Member{
		groupID: groupID,
		userID:  userID,
		addedBy: addedBy,
		addedAt: addedAt,
	}
}

// GroupID returns the group ID.
func (m *Member) GroupID() shared.ID {
	return m.groupID
}

// UserID returns the user ID.
func (m *Member) UserID() shared.ID {
	return m.userID
}

// AddedBy returns the admin who added this member, if recorded.
func (m *Member) AddedBy() *shared.ID {
	return m.addedBy
}

// AddedAt returns when the member joined the group.
func (m *Member) AddedAt() time.Time {
	return m.addedAt
}

// MemberWithProfile represents a group member with user details for admin
// screens.
type MemberWithProfile struct {
	Member   *Member
	Email    string
	FullName string
}
