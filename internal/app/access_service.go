package app

import (
	"context"
	"errors"
	"fmt"
	"time"

	"golang.org/x/sync/errgroup"

	"github.com/apphubio/api/internal/config"
	"github.com/apphubio/api/internal/metrics"
	"github.com/apphubio/api/pkg/domain/accesscontrol"
	"github.com/apphubio/api/pkg/domain/application"
	"github.com/apphubio/api/pkg/domain/group"
	"github.com/apphubio/api/pkg/domain/permission"
	"github.com/apphubio/api/pkg/domain/profile"
	"github.com/apphubio/api/pkg/domain/shared"
	"github.com/apphubio/api/pkg/logger"
)

// ResolvedApplication is the wire-friendly form of one resolved catalog
// entry. It carries the application display fields together with the
// effective level so the dashboard needs a single call.
type ResolvedApplication struct {
	ID           string `json:"id"`
	Name         string `json:"name"`
	Description  string `json:"description,omitempty"`
	Icon         string `json:"icon,omitempty"`
	Color        string `json:"color,omitempty"`
	URL          string `json:"url"`
	Tier         string `json:"tier"`
	DisplayOrder int    `json:"display_order"`
	AccessLevel  string `json:"access_level"`
	Source       string `json:"source"`
	Accessible   bool   `json:"accessible"`
}

// ResolvedAccess is the cached unit: one user's fully resolved catalog.
type ResolvedAccess struct {
	Apps       []ResolvedApplication `json:"apps"`
	Degraded   bool                  `json:"degraded"`
	ResolvedAt time.Time             `json:"resolved_at"`
}

// AccessCache stores resolved access per user. Satisfied by the Redis
// cache; nil disables caching.
type AccessCache interface {
	Get(ctx context.Context, key string) (*ResolvedAccess, error)
	Set(ctx context.Context, key string, value ResolvedAccess) error
	Delete(ctx context.Context, key string) error
	DeletePattern(ctx context.Context, pattern string) error
}

// AccessService resolves which applications a user can open and at what
// level. Resolution is bounded by a timeout; when the authoritative state
// cannot be loaded in time the user receives a deny-all catalog rather
// than an error page.
type AccessService struct {
	profileRepo profile.Repository
	appRepo     application.Repository
	groupRepo   group.Repository
	permRepo    permission.Repository
	resolver    *accesscontrol.Resolver
	cache       AccessCache
	cfg         config.AccessControlConfig
	logger      *logger.Logger
}

// AccessServiceOption is a functional option for AccessService.
type AccessServiceOption func(*AccessService)

// WithAccessCache sets the per-user snapshot cache.
func WithAccessCache(cache AccessCache) AccessServiceOption {
	return func(s *AccessService) {
		s.cache = cache
	}
}

// NewAccessService creates a new AccessService.
func NewAccessService(
	profileRepo profile.Repository,
	appRepo application.Repository,
	groupRepo group.Repository,
	permRepo permission.Repository,
	cfg config.AccessControlConfig,
	log *logger.Logger,
	opts ...AccessServiceOption,
) *AccessService {
	s := &AccessService{
		profileRepo: profileRepo,
		appRepo:     appRepo,
		groupRepo:   groupRepo,
		permRepo:    permRepo,
		resolver:    accesscontrol.NewResolver(),
		cfg:         cfg,
		logger:      log.With("service", "access"),
	}
	for _, opt := range opts {
		opt(s)
	}
	return s
}

// ResolveUserApps returns the full catalog with the user's effective level
// per application, ordered for display. Storage failures degrade to a
// deny-all result instead of erroring; only a malformed ID or a user that
// does not exist returns an error.
func (s *AccessService) ResolveUserApps(ctx context.Context, userID string) (*ResolvedAccess, error) {
	uid, err := parseID(userID)
	if err != nil {
		return nil, err
	}

	start := time.Now()
	rctx, cancel := context.WithTimeout(ctx, s.cfg.ResolveTimeout)
	defer cancel()

	if s.cfg.Mode == config.ModeOpen {
		return s.resolveOpen(rctx)
	}

	if s.cache != nil {
		cached, err := s.cache.Get(rctx, userID)
		if err == nil && cached != nil && !cached.Degraded {
			metrics.AccessResolutionsTotal.WithLabelValues("cached").Inc()
			return cached, nil
		}
	}

	snap, p, err := s.loadSnapshot(rctx, uid)
	if err != nil {
		// An unknown user is a definitive answer, not a storage fault.
		if errors.Is(err, profile.ErrProfileNotFound) {
			return nil, err
		}
		return s.fallback(ctx, snap, err), nil
	}

	var resolved []accesscontrol.ResolvedApp
	if !p.IsActive() {
		// Disabled accounts see the catalog fully locked.
		resolved = accesscontrol.SafeDeny(snap.Applications)
	} else {
		resolved = s.resolver.ResolveUserApps(uid, snap)
	}

	result := &ResolvedAccess{
		Apps:       toResolvedApplications(resolved),
		ResolvedAt: time.Now().UTC(),
	}

	if s.cache != nil && p.IsActive() {
		if err := s.cache.Set(rctx, userID, *result); err != nil {
			s.logger.Warn("failed to cache resolved access", "error", err, "user", userID)
		}
	}

	metrics.AccessResolutionsTotal.WithLabelValues("resolved").Inc()
	metrics.AccessResolveDuration.Observe(time.Since(start).Seconds())
	return result, nil
}

// CheckAccess resolves a single (user, application) pair. Used by the
// launch endpoint before redirecting into an application.
func (s *AccessService) CheckAccess(ctx context.Context, userID, applicationID string) (*ResolvedApplication, error) {
	access, err := s.ResolveUserApps(ctx, userID)
	if err != nil {
		return nil, err
	}
	for i := range access.Apps {
		if access.Apps[i].ID == applicationID {
			return &access.Apps[i], nil
		}
	}
	return nil, application.ErrApplicationNotFound
}

// ApplicationAccessStats aggregates the effective level of every active
// user for one application. All users are resolved from a single snapshot
// so the counts are mutually consistent.
func (s *AccessService) ApplicationAccessStats(ctx context.Context, applicationID string) (*application.AccessStats, error) {
	aid, err := parseID(applicationID)
	if err != nil {
		return nil, err
	}

	rctx, cancel := context.WithTimeout(ctx, s.cfg.ResolveTimeout)
	defer cancel()

	if _, err := s.appRepo.GetByID(rctx, aid); err != nil {
		return nil, err
	}

	base, err := s.loadSharedSnapshot(rctx)
	if err != nil {
		return nil, fmt.Errorf("failed to load permission state: %w", err)
	}
	allGrants, err := s.permRepo.ListAll(rctx)
	if err != nil {
		return nil, fmt.Errorf("failed to load grants: %w", err)
	}

	active := true
	profiles, err := s.profileRepo.List(rctx, profile.ListFilter{IsActive: &active, Limit: 10000})
	if err != nil {
		return nil, fmt.Errorf("failed to load profiles: %w", err)
	}

	stats := &application.AccessStats{TotalUsers: len(profiles)}
	for _, p := range profiles {
		memberships, err := s.groupRepo.ListGroupIDsByUser(rctx, p.ID())
		if err != nil {
			return nil, fmt.Errorf("failed to load memberships: %w", err)
		}
		snap := accesscontrol.Snapshot{
			Applications: base.Applications,
			Grants:       allGrants,
			Memberships:  memberships,
			GroupGrants:  base.GroupGrants,
		}
		resolved, ok := s.resolver.ResolveApp(p.ID(), aid, snap)
		if !ok {
			continue
		}
		switch resolved.Level {
		case permission.AccessEditor:
			stats.Editors++
		case permission.AccessViewer:
			stats.Viewers++
		default:
			stats.Locked++
		}
	}
	return stats, nil
}

// InvalidateUser drops the cached access of one user.
func (s *AccessService) InvalidateUser(ctx context.Context, userID shared.ID) {
	if s.cache == nil {
		return
	}
	if err := s.cache.Delete(ctx, userID.String()); err != nil {
		s.logger.Warn("failed to invalidate access cache", "error", err, "user", userID.String())
	}
}

// InvalidateAll drops every cached access entry.
func (s *AccessService) InvalidateAll(ctx context.Context) {
	if s.cache == nil {
		return
	}
	if err := s.cache.DeletePattern(ctx, "*"); err != nil {
		s.logger.Warn("failed to flush access cache", "error", err)
	}
}

// loadSnapshot loads everything one resolution needs. The queries run
// concurrently and share the bounded context, so a slow database trips the
// deadline once instead of four times in sequence.
func (s *AccessService) loadSnapshot(ctx context.Context, userID shared.ID) (accesscontrol.Snapshot, *profile.Profile, error) {
	var (
		snap accesscontrol.Snapshot
		p    *profile.Profile
	)

	g, gctx := errgroup.WithContext(ctx)
	g.Go(func() error {
		var err error
		p, err = s.profileRepo.GetByID(gctx, userID)
		return err
	})
	g.Go(func() error {
		var err error
		snap.Applications, err = s.appRepo.List(gctx, application.ListFilter{Limit: 10000})
		return err
	})
	g.Go(func() error {
		var err error
		snap.Grants, err = s.permRepo.ListByUser(gctx, userID)
		return err
	})
	g.Go(func() error {
		var err error
		snap.Memberships, err = s.groupRepo.ListGroupIDsByUser(gctx, userID)
		return err
	})
	g.Go(func() error {
		var err error
		snap.GroupGrants, err = s.groupRepo.ListAllGrants(gctx)
		return err
	})

	if err := g.Wait(); err != nil {
		return snap, nil, err
	}
	return snap, p, nil
}

// loadSharedSnapshot loads the user-independent parts of the snapshot.
func (s *AccessService) loadSharedSnapshot(ctx context.Context) (accesscontrol.Snapshot, error) {
	var snap accesscontrol.Snapshot

	g, gctx := errgroup.WithContext(ctx)
	g.Go(func() error {
		var err error
		snap.Applications, err = s.appRepo.List(gctx, application.ListFilter{Limit: 10000})
		return err
	})
	g.Go(func() error {
		var err error
		snap.GroupGrants, err = s.groupRepo.ListAllGrants(gctx)
		return err
	})

	if err := g.Wait(); err != nil {
		return snap, err
	}
	return snap, nil
}

// resolveOpen serves the development-only open mode: every active
// application at editor level.
func (s *AccessService) resolveOpen(ctx context.Context) (*ResolvedAccess, error) {
	apps, err := s.appRepo.List(ctx, application.ListFilter{Limit: 10000})
	if err != nil {
		return s.fallback(ctx, accesscontrol.Snapshot{}, err), nil
	}
	metrics.AccessResolutionsTotal.WithLabelValues("open").Inc()
	return &ResolvedAccess{
		Apps:       toResolvedApplications(accesscontrol.OpenAccess(apps)),
		ResolvedAt: time.Now().UTC(),
	}, nil
}

// fallback produces the deny-all result for whatever part of the catalog
// is known. Denying is always preferred over failing open or erroring.
func (s *AccessService) fallback(ctx context.Context, snap accesscontrol.Snapshot, cause error) *ResolvedAccess {
	reason := "load_error"
	if errors.Is(cause, context.DeadlineExceeded) {
		reason = "timeout"
	} else if errors.Is(cause, context.Canceled) {
		reason = "canceled"
	}
	metrics.AccessResolutionsTotal.WithLabelValues("fallback").Inc()
	metrics.AccessFallbacksTotal.WithLabelValues(reason).Inc()
	s.logger.Error("access resolution degraded to deny-all", "reason", reason, "error", cause)

	return &ResolvedAccess{
		Apps:       toResolvedApplications(accesscontrol.SafeDeny(snap.Applications)),
		Degraded:   true,
		ResolvedAt: time.Now().UTC(),
	}
}

func toResolvedApplications(resolved []accesscontrol.ResolvedApp) []ResolvedApplication {
	out := make([]ResolvedApplication, 0, len(resolved))
	for _, r := range resolved {
		a := r.Application
		out = append(out, ResolvedApplication{
			ID:           a.ID().String(),
			Name:         a.Name(),
			Description:  a.Description(),
			Icon:         a.Icon(),
			Color:        a.Color(),
			URL:          a.URL(),
			Tier:         a.Tier().String(),
			DisplayOrder: a.DisplayOrder(),
			AccessLevel:  r.Level.String(),
			Source:       r.Source.String(),
			Accessible:   r.Accessible(),
		})
	}
	return out
}
