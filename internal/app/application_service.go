package app

import (
	"context"
	"fmt"

	"github.com/apphubio/api/pkg/domain/application"
	"github.com/apphubio/api/pkg/domain/shared"
	"github.com/apphubio/api/pkg/logger"
	"github.com/apphubio/api/pkg/pagination"
)

// ApplicationService handles the application catalog.
type ApplicationService struct {
	repo        application.Repository
	invalidator AccessInvalidator
	logger      *logger.Logger
}

// ApplicationServiceOption is a functional option for ApplicationService.
type ApplicationServiceOption func(*ApplicationService)

// WithApplicationAccessInvalidator sets the access cache invalidator.
func WithApplicationAccessInvalidator(inv AccessInvalidator) ApplicationServiceOption {
	return func(s *ApplicationService) {
		s.invalidator = inv
	}
}

// NewApplicationService creates a new ApplicationService.
func NewApplicationService(repo application.Repository, log *logger.Logger, opts ...ApplicationServiceOption) *ApplicationService {
	s := &ApplicationService{
		repo:   repo,
		logger: log.With("service", "application"),
	}
	for _, opt := range opts {
		opt(s)
	}
	return s
}

// CreateApplicationInput represents the input for creating an application.
type CreateApplicationInput struct {
	Name        string `json:"name" validate:"required,min=2,max=100"`
	Description string `json:"description" validate:"max=500"`
	Icon        string `json:"icon" validate:"max=100"`
	Color       string `json:"color" validate:"omitempty,hex_color"`
	URL         string `json:"url" validate:"required,url,max=2048"`
	Tier        string `json:"tier" validate:"required,app_tier"`
	IsPublic    bool   `json:"is_public"`
}

// CreateApplication registers a new application in the catalog.
func (s *ApplicationService) CreateApplication(ctx context.Context, input CreateApplicationInput) (*application.Application, error) {
	tier := application.Tier(input.Tier)
	if !tier.IsValid() {
		return nil, fmt.Errorf("%w: invalid tier %q", shared.ErrValidation, input.Tier)
	}

	exists, err := s.repo.ExistsByName(ctx, input.Name)
	if err != nil {
		return nil, fmt.Errorf("failed to check name existence: %w", err)
	}
	if exists {
		return nil, application.ErrNameExists
	}

	a, err := application.New(input.Name, input.URL, tier)
	if err != nil {
		return nil, err
	}
	a.UpdateDescription(input.Description)
	a.UpdateAppearance(input.Icon, input.Color)
	a.SetPublic(input.IsPublic)

	if err := s.repo.Create(ctx, a); err != nil {
		return nil, fmt.Errorf("failed to create application: %w", err)
	}

	s.invalidateAll(ctx)
	s.logger.Info("application created", "id", a.ID().String(), "name", a.Name())
	return a, nil
}

// ListApplicationsInput represents the input for listing applications.
type ListApplicationsInput struct {
	Tier     string `json:"tier" validate:"omitempty,app_tier"`
	IsActive *bool  `json:"is_active"`
	IsPublic *bool  `json:"is_public"`
	Search   string `json:"search" validate:"max=255"`
	Page     int    `json:"page"`
	PerPage  int    `json:"per_page"`
}

// ListApplications returns a page of the catalog in display order.
func (s *ApplicationService) ListApplications(ctx context.Context, input ListApplicationsInput) (*pagination.Result[*application.Application], error) {
	page := pagination.New(input.Page, input.PerPage)

	filter := application.DefaultListFilter()
	filter.IsActive = input.IsActive
	filter.IsPublic = input.IsPublic
	filter.Search = input.Search
	filter.Limit = page.Limit()
	filter.Offset = page.Offset()
	if input.Tier != "" {
		tier := application.Tier(input.Tier)
		if !tier.IsValid() {
			return nil, fmt.Errorf("%w: invalid tier %q", shared.ErrValidation, input.Tier)
		}
		filter.Tier = &tier
	}

	apps, err := s.repo.List(ctx, filter)
	if err != nil {
		return nil, fmt.Errorf("failed to list applications: %w", err)
	}
	total, err := s.repo.Count(ctx, filter)
	if err != nil {
		return nil, fmt.Errorf("failed to count applications: %w", err)
	}

	result := pagination.NewResult(apps, total, page)
	return &result, nil
}

// GetApplication returns an application by ID.
func (s *ApplicationService) GetApplication(ctx context.Context, id string) (*application.Application, error) {
	aid, err := parseID(id)
	if err != nil {
		return nil, err
	}
	return s.repo.GetByID(ctx, aid)
}

// UpdateApplicationInput represents the input for updating an application.
// Nil fields are left unchanged.
type UpdateApplicationInput struct {
	Name        *string `json:"name" validate:"omitempty,min=2,max=100"`
	Description *string `json:"description" validate:"omitempty,max=500"`
	Icon        *string `json:"icon" validate:"omitempty,max=100"`
	Color       *string `json:"color" validate:"omitempty,hex_color"`
	URL         *string `json:"url" validate:"omitempty,url,max=2048"`
	Tier        *string `json:"tier" validate:"omitempty,app_tier"`
	IsPublic    *bool   `json:"is_public"`
	IsActive    *bool   `json:"is_active"`
}

// UpdateApplication applies a partial update to an application.
func (s *ApplicationService) UpdateApplication(ctx context.Context, id string, input UpdateApplicationInput) (*application.Application, error) {
	aid, err := parseID(id)
	if err != nil {
		return nil, err
	}
	a, err := s.repo.GetByID(ctx, aid)
	if err != nil {
		return nil, err
	}

	if input.Name != nil && *input.Name != a.Name() {
		exists, err := s.repo.ExistsByName(ctx, *input.Name)
		if err != nil {
			return nil, fmt.Errorf("failed to check name existence: %w", err)
		}
		if exists {
			return nil, application.ErrNameExists
		}
		if err := a.UpdateName(*input.Name); err != nil {
			return nil, err
		}
	}
	if input.Description != nil {
		a.UpdateDescription(*input.Description)
	}
	if input.Icon != nil || input.Color != nil {
		icon, color := a.Icon(), a.Color()
		if input.Icon != nil {
			icon = *input.Icon
		}
		if input.Color != nil {
			color = *input.Color
		}
		a.UpdateAppearance(icon, color)
	}
	if input.URL != nil {
		if err := a.UpdateURL(*input.URL); err != nil {
			return nil, err
		}
	}
	if input.Tier != nil {
		if err := a.UpdateTier(application.Tier(*input.Tier)); err != nil {
			return nil, err
		}
	}
	if input.IsPublic != nil {
		a.SetPublic(*input.IsPublic)
	}
	if input.IsActive != nil {
		if *input.IsActive {
			a.Activate()
		} else {
			a.Deactivate()
		}
	}

	if err := s.repo.Update(ctx, a); err != nil {
		return nil, fmt.Errorf("failed to update application: %w", err)
	}

	// Visibility and activity changes alter resolution results for
	// everyone, so drop the whole snapshot cache.
	s.invalidateAll(ctx)
	s.logger.Info("application updated", "id", id, "name", a.Name())
	return a, nil
}

// DeleteApplication removes an application. Grants referencing it cascade.
func (s *ApplicationService) DeleteApplication(ctx context.Context, id string) error {
	aid, err := parseID(id)
	if err != nil {
		return err
	}
	if err := s.repo.Delete(ctx, aid); err != nil {
		return fmt.Errorf("failed to delete application: %w", err)
	}
	s.invalidateAll(ctx)
	s.logger.Info("application deleted", "id", id)
	return nil
}

// ReorderApplications persists a new display order. Unknown IDs fail the
// whole request so a stale admin screen cannot scramble the order.
func (s *ApplicationService) ReorderApplications(ctx context.Context, orderedIDs []string) error {
	if len(orderedIDs) == 0 {
		return fmt.Errorf("%w: empty order", shared.ErrValidation)
	}
	ids := make([]shared.ID, 0, len(orderedIDs))
	seen := make(map[shared.ID]struct{}, len(orderedIDs))
	for _, raw := range orderedIDs {
		id, err := parseID(raw)
		if err != nil {
			return err
		}
		if _, dup := seen[id]; dup {
			return fmt.Errorf("%w: duplicate id %q in order", shared.ErrValidation, raw)
		}
		seen[id] = struct{}{}
		if _, err := s.repo.GetByID(ctx, id); err != nil {
			return err
		}
		ids = append(ids, id)
	}

	if err := s.repo.Reorder(ctx, ids); err != nil {
		return fmt.Errorf("failed to reorder applications: %w", err)
	}
	s.logger.Info("applications reordered", "count", len(ids))
	return nil
}

func (s *ApplicationService) invalidateAll(ctx context.Context) {
	if s.invalidator == nil {
		return
	}
	s.invalidator.InvalidateAll(ctx)
}
