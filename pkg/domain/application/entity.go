// Package application defines the hub application catalog entities.
package application

import (
	"fmt"
	"net/url"
	"strings"
	"time"

	"github.com/apphubio/api/pkg/domain/shared"
)

// Application represents an internal application published on the hub.
type Application struct {
	id           shared.ID
	name         string
	description  string
	icon         string
	color        string
	url          string
	tier         Tier
	isPublic     bool
	isActive     bool
	displayOrder int
	createdAt    time.Time
	updatedAt    time.Time
}

// New creates a new Application.
func New(name, appURL string, tier Tier) (*Application, error) {
	if strings.TrimSpace(name) == "" {
		return nil, fmt.Errorf("%w: name is required", shared.ErrValidation)
	}
	if err := validateURL(appURL); err != nil {
		return nil, err
	}
	if !tier.IsValid() {
		return nil, fmt.Errorf("%w: invalid tier %q", shared.ErrValidation, tier)
	}

	now := time.Now().UTC()
	return &Application{
		id:        shared.NewID(),
		name:      strings.TrimSpace(name),
		url:       appURL,
		tier:      tier,
		isActive:  true,
		createdAt: now,
		updatedAt: now,
	}, nil
}

// Reconstitute recreates an Application from persistence.
func Reconstitute(
	id shared.ID,
	name, description, icon, color, appURL string,
	tier Tier,
	isPublic, isActive bool,
	displayOrder int,
	createdAt, updatedAt time.Time,
) *Application {
	return &Application{
		id:           id,
		name:         name,
		description:  description,
		icon:         icon,
		color:        color,
		url:          appURL,
		tier:         tier,
		isPublic:     isPublic,
		isActive:     isActive,
		displayOrder: displayOrder,
		createdAt:    createdAt,
		updatedAt:    updatedAt,
	}
}

// ID returns the application ID.
func (a *Application) ID() shared.ID {
	return a.id
}

// Name returns the application name.
func (a *Application) Name() string {
	return a.name
}

// Description returns the application description.
func (a *Application) Description() string {
	return a.description
}

// Icon returns the logical icon name rendered by the UI.
func (a *Application) Icon() string {
	return a.icon
}

// Color returns the presentation color.
func (a *Application) Color() string {
	return a.color
}

// URL returns the application URL.
func (a *Application) URL() string {
	return a.url
}

// Tier returns the UI grouping tier.
func (a *Application) Tier() Tier {
	return a.tier
}

// IsPublic reports whether every authenticated user gets at least viewer
// access without an explicit grant.
func (a *Application) IsPublic() bool {
	return a.isPublic
}

// IsActive reports whether the application is accessible at all. Inactive
// applications are gated before permission resolution.
func (a *Application) IsActive() bool {
	return a.isActive
}

// DisplayOrder returns the position within the tier on the dashboard.
func (a *Application) DisplayOrder() int {
	return a.displayOrder
}

// CreatedAt returns the creation timestamp.
func (a *Application) CreatedAt() time.Time {
	return a.createdAt
}

// UpdatedAt returns the last update timestamp.
func (a *Application) UpdatedAt() time.Time {
	return a.updatedAt
}

// UpdateName updates the application name.
func (a *Application) UpdateName(name string) error {
	if strings.TrimSpace(name) == "" {
		return fmt.Errorf("%w: name is required", shared.ErrValidation)
	}
	a.name = strings.TrimSpace(name)
	a.touch()
	return nil
}

// UpdateDescription updates the application description.
func (a *Application) UpdateDescription(description string) {
	a.description = description
	a.touch()
}

// UpdateAppearance updates the icon and color.
func (a *Application) UpdateAppearance(icon, color string) {
	a.icon = icon
	a.color = color
	a.touch()
}

// UpdateURL updates the application URL.
func (a *Application) UpdateURL(appURL string) error {
	if err := validateURL(appURL); err != nil {
		return err
	}
	a.url = appURL
	a.touch()
	return nil
}

// UpdateTier updates the UI grouping tier.
func (a *Application) UpdateTier(tier Tier) error {
	if !tier.IsValid() {
		return fmt.Errorf("%w: invalid tier %q", shared.ErrValidation, tier)
	}
	a.tier = tier
	a.touch()
	return nil
}

// SetPublic marks the application public or private.
func (a *Application) SetPublic(public bool) {
	a.isPublic = public
	a.touch()
}

// Activate makes the application accessible again.
func (a *Application) Activate() {
	a.isActive = true
	a.touch()
}

// Deactivate hard-gates the application for every user regardless of grants.
func (a *Application) Deactivate() {
	a.isActive = false
	a.touch()
}

// SetDisplayOrder updates the dashboard position.
func (a *Application) SetDisplayOrder(order int) {
	a.displayOrder = order
	a.touch()
}

func (a *Application) touch() {
	a.updatedAt = time.Now().UTC()
}

func validateURL(appURL string) error {
	if appURL == "" {
		return fmt.Errorf("%w: url is required", shared.ErrValidation)
	}
	u, err := url.Parse(appURL)
	if err != nil || u.Scheme == "" || u.Host == "" {
		return fmt.Errorf("%w: url must be absolute", shared.ErrValidation)
	}
	return nil
}
