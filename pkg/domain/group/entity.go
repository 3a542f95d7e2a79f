// Package group defines user groups, memberships, and group-level grants.
package group

import (
	"fmt"
	"strings"
	"time"

	"github.com/apphubio/api/pkg/domain/shared"
)

// Group represents a named collection of users sharing application grants.
type Group struct {
	id          shared.ID
	name        string
	description string
	color       string
	createdAt   time.Time
	updatedAt   time.Time
}

// New creates a new Group.
func New(name string) (*Group, error) {
	name = strings.TrimSpace(name)
	if name == "" {
		return nil, fmt.Errorf("%w: name is required", shared.ErrValidation)
	}
	if len(name) > 100 {
		return nil, fmt.Errorf("%w: name must be at most 100 characters", shared.ErrValidation)
	}

	now := time.Now().UTC()
	return &Group{
		id:        shared.NewID(),
		name:      name,
		createdAt: now,
		updatedAt: now,
	}, nil
}

// Reconstitute recreates a Group from persistence.
func Reconstitute(
	id shared.ID,
	name, description, color string,
	createdAt, updatedAt time.Time,
) *Group {
	return &Group{
		id:          id,
		name:        name,
		description: description,
		color:       color,
		createdAt:   createdAt,
		updatedAt:   updatedAt,
	}
}

// ID returns the group ID.
func (g *Group) ID() shared.ID {
	return g.id
}

// Name returns the group name. Names are unique across the hub.
func (g *Group) Name() string {
	return g.name
}

// Description returns the group description.
func (g *Group) Description() string {
	return g.description
}

// Color returns the presentation color.
func (g *Group) Color() string {
	return g.color
}

// CreatedAt returns the creation timestamp.
func (g *Group) CreatedAt() time.Time {
	return g.createdAt
}

// UpdatedAt returns the last update timestamp.
func (g *Group) UpdatedAt() time.Time {
	return g.updatedAt
}

// Rename changes the group name.
func (g *Group) Rename(name string) error {
	name = strings.TrimSpace(name)
	if name == "" {
		return fmt.Errorf("%w: name is required", shared.ErrValidation)
	}
	g.name = name
	g.touch()
	return nil
}

// UpdateDescription updates the group description.
func (g *Group) UpdateDescription(description string) {
	g.description = description
	g.touch()
}

// UpdateColor updates the presentation color.
func (g *Group) UpdateColor(color string) {
	g.color = color
	g.touch()
}

func (g *Group) touch() {
	g.updatedAt = time.Now().UTC()
}
