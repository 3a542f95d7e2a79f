package app

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/apphubio/api/internal/config"
	"github.com/apphubio/api/pkg/domain/application"
	"github.com/apphubio/api/pkg/domain/group"
	"github.com/apphubio/api/pkg/domain/permission"
	"github.com/apphubio/api/pkg/domain/profile"
	"github.com/apphubio/api/pkg/logger"
)

func testAccessConfig() config.AccessControlConfig {
	return config.AccessControlConfig{
		Mode:             config.ModeEnforced,
		ResolveTimeout:   time.Second,
		SnapshotCacheTTL: 30 * time.Second,
	}
}

type accessFixture struct {
	profiles *mockProfileRepo
	apps     *mockApplicationRepo
	groups   *mockGroupRepo
	perms    *mockPermissionRepo
	cache    *mockAccessCache
	svc      *AccessService
}

func newAccessFixture(t *testing.T) *accessFixture {
	t.Helper()
	f := &accessFixture{
		profiles: newMockProfileRepo(),
		apps:     newMockApplicationRepo(),
		groups:   newMockGroupRepo(),
		perms:    newMockPermissionRepo(),
		cache:    newMockAccessCache(),
	}
	f.svc = NewAccessService(
		f.profiles, f.apps, f.groups, f.perms,
		testAccessConfig(), logger.NewNop(),
		WithAccessCache(f.cache),
	)
	return f
}

func (f *accessFixture) seedUser(t *testing.T, email string) *profile.Profile {
	t.Helper()
	p, err := profile.New(email, "Access Tester")
	require.NoError(t, err)
	require.NoError(t, f.profiles.Create(context.Background(), p))
	return p
}

func (f *accessFixture) seedApp(t *testing.T, name string, public bool) *application.Application {
	t.Helper()
	a, err := application.New(name, "https://"+name+".example.com", application.TierPrimary)
	require.NoError(t, err)
	a.SetPublic(public)
	require.NoError(t, f.apps.Create(context.Background(), a))
	return a
}

func levelFor(t *testing.T, access *ResolvedAccess, appID string) (string, string) {
	t.Helper()
	for _, a := range access.Apps {
		if a.ID == appID {
			return a.AccessLevel, a.Source
		}
	}
	t.Fatalf("application %s not in resolved set", appID)
	return "", ""
}

func TestAccessService_ResolveUserApps(t *testing.T) {
	ctx := context.Background()

	t.Run("default deny for private application", func(t *testing.T) {
		f := newAccessFixture(t)
		user := f.seedUser(t, "user@example.com")
		app := f.seedApp(t, "wiki", false)

		access, err := f.svc.ResolveUserApps(ctx, user.ID().String())

		require.NoError(t, err)
		level, source := levelFor(t, access, app.ID().String())
		assert.Equal(t, "locked", level)
		assert.Equal(t, "default", source)
		assert.False(t, access.Degraded)
	})

	t.Run("public application grants viewer", func(t *testing.T) {
		f := newAccessFixture(t)
		user := f.seedUser(t, "user@example.com")
		app := f.seedApp(t, "docs", true)

		access, err := f.svc.ResolveUserApps(ctx, user.ID().String())

		require.NoError(t, err)
		level, source := levelFor(t, access, app.ID().String())
		assert.Equal(t, "viewer", level)
		assert.Equal(t, "public", source)
	})

	t.Run("individual grant overrides group grant", func(t *testing.T) {
		f := newAccessFixture(t)
		user := f.seedUser(t, "user@example.com")
		app := f.seedApp(t, "crm", false)

		g, err := group.New("sales")
		require.NoError(t, err)
		require.NoError(t, f.groups.Create(ctx, g))
		m, err := group.NewMember(g.ID(), user.ID(), nil)
		require.NoError(t, err)
		require.NoError(t, f.groups.AddMember(ctx, m))
		gg, err := group.NewGrant(g.ID(), app.ID(), permission.AccessEditor, nil)
		require.NoError(t, err)
		require.NoError(t, f.groups.UpsertGrant(ctx, gg))

		ig, err := permission.NewGrant(user.ID(), app.ID(), permission.AccessViewer, nil)
		require.NoError(t, err)
		require.NoError(t, f.perms.Upsert(ctx, ig))

		access, err := f.svc.ResolveUserApps(ctx, user.ID().String())

		require.NoError(t, err)
		level, source := levelFor(t, access, app.ID().String())
		assert.Equal(t, "viewer", level)
		assert.Equal(t, "individual", source)
	})

	t.Run("individual locked shuts a public application", func(t *testing.T) {
		f := newAccessFixture(t)
		user := f.seedUser(t, "user@example.com")
		app := f.seedApp(t, "portal", true)

		ig, err := permission.NewGrant(user.ID(), app.ID(), permission.AccessLocked, nil)
		require.NoError(t, err)
		require.NoError(t, f.perms.Upsert(ctx, ig))

		access, err := f.svc.ResolveUserApps(ctx, user.ID().String())

		require.NoError(t, err)
		level, _ := levelFor(t, access, app.ID().String())
		assert.Equal(t, "locked", level)
	})

	t.Run("inactive user sees everything locked", func(t *testing.T) {
		f := newAccessFixture(t)
		user := f.seedUser(t, "user@example.com")
		f.seedApp(t, "docs", true)
		user.Deactivate()
		require.NoError(t, f.profiles.Update(ctx, user))

		access, err := f.svc.ResolveUserApps(ctx, user.ID().String())

		require.NoError(t, err)
		for _, a := range access.Apps {
			assert.Equal(t, "locked", a.AccessLevel)
		}
	})

	t.Run("second resolution served from cache", func(t *testing.T) {
		f := newAccessFixture(t)
		user := f.seedUser(t, "user@example.com")
		f.seedApp(t, "docs", true)

		first, err := f.svc.ResolveUserApps(ctx, user.ID().String())
		require.NoError(t, err)
		require.Len(t, first.Apps, 1)

		// A catalog change without invalidation is not observed yet.
		f.seedApp(t, "late-arrival", true)
		second, err := f.svc.ResolveUserApps(ctx, user.ID().String())
		require.NoError(t, err)
		assert.Len(t, second.Apps, 1)

		f.svc.InvalidateUser(ctx, user.ID())
		third, err := f.svc.ResolveUserApps(ctx, user.ID().String())
		require.NoError(t, err)
		assert.Len(t, third.Apps, 2)
	})

	t.Run("storage failure degrades to deny-all", func(t *testing.T) {
		f := newAccessFixture(t)
		user := f.seedUser(t, "user@example.com")
		f.perms.failWith = errors.New("connection refused")

		access, err := f.svc.ResolveUserApps(ctx, user.ID().String())

		require.NoError(t, err)
		assert.True(t, access.Degraded)
		for _, a := range access.Apps {
			assert.Equal(t, "locked", a.AccessLevel)
			assert.False(t, a.Accessible)
		}
	})

	t.Run("unresponsive storage degrades within the timeout bound", func(t *testing.T) {
		f := newAccessFixture(t)
		user := f.seedUser(t, "user@example.com")
		f.seedApp(t, "docs", true)
		f.perms.stall = true

		cfg := testAccessConfig()
		cfg.ResolveTimeout = 100 * time.Millisecond
		f.svc = NewAccessService(
			f.profiles, f.apps, f.groups, f.perms,
			cfg, logger.NewNop(), WithAccessCache(f.cache),
		)

		start := time.Now()
		access, err := f.svc.ResolveUserApps(ctx, user.ID().String())
		elapsed := time.Since(start)

		require.NoError(t, err)
		assert.True(t, access.Degraded)
		assert.Less(t, elapsed, time.Second, "resolution must not hang past the deadline")
		for _, a := range access.Apps {
			assert.Equal(t, "locked", a.AccessLevel)
			assert.False(t, a.Accessible)
		}
	})

	t.Run("unknown user is not-found, not a degradation", func(t *testing.T) {
		f := newAccessFixture(t)
		f.seedApp(t, "docs", true)

		access, err := f.svc.ResolveUserApps(ctx, "2f0c72cb-96c1-4dbb-a9c8-6da84c39b8a1")

		assert.ErrorIs(t, err, profile.ErrProfileNotFound)
		assert.Nil(t, access)
	})

	t.Run("degraded results are not cached", func(t *testing.T) {
		f := newAccessFixture(t)
		user := f.seedUser(t, "user@example.com")
		f.seedApp(t, "docs", true)
		f.perms.failWith = errors.New("connection refused")

		access, err := f.svc.ResolveUserApps(ctx, user.ID().String())
		require.NoError(t, err)
		require.True(t, access.Degraded)

		// Recovery: the next resolution observes the real state.
		f.perms.failWith = nil
		recovered, err := f.svc.ResolveUserApps(ctx, user.ID().String())
		require.NoError(t, err)
		assert.False(t, recovered.Degraded)
	})

	t.Run("invalid user id", func(t *testing.T) {
		f := newAccessFixture(t)
		_, err := f.svc.ResolveUserApps(ctx, "not-a-uuid")
		assert.Error(t, err)
	})
}

func TestAccessService_OpenMode(t *testing.T) {
	ctx := context.Background()
	f := newAccessFixture(t)
	cfg := testAccessConfig()
	cfg.Mode = config.ModeOpen
	f.svc = NewAccessService(f.profiles, f.apps, f.groups, f.perms, cfg, logger.NewNop())

	user := f.seedUser(t, "dev@example.com")
	active := f.seedApp(t, "tool", false)
	inactive := f.seedApp(t, "legacy", false)
	inactive.Deactivate()
	require.NoError(t, f.apps.Update(ctx, inactive))

	access, err := f.svc.ResolveUserApps(ctx, user.ID().String())
	require.NoError(t, err)

	level, _ := levelFor(t, access, active.ID().String())
	assert.Equal(t, "editor", level)
	level, _ = levelFor(t, access, inactive.ID().String())
	assert.Equal(t, "locked", level)
}

func TestAccessService_CheckAccess(t *testing.T) {
	ctx := context.Background()
	f := newAccessFixture(t)
	user := f.seedUser(t, "user@example.com")
	app := f.seedApp(t, "docs", true)

	t.Run("known application", func(t *testing.T) {
		resolved, err := f.svc.CheckAccess(ctx, user.ID().String(), app.ID().String())
		require.NoError(t, err)
		assert.Equal(t, "viewer", resolved.AccessLevel)
		assert.True(t, resolved.Accessible)
	})

	t.Run("unknown application", func(t *testing.T) {
		_, err := f.svc.CheckAccess(ctx, user.ID().String(), "2f0c72cb-96c1-4dbb-a9c8-6da84c39b8a1")
		assert.ErrorIs(t, err, application.ErrApplicationNotFound)
	})
}

func TestAccessService_ApplicationAccessStats(t *testing.T) {
	ctx := context.Background()
	f := newAccessFixture(t)

	editorUser := f.seedUser(t, "editor@example.com")
	viewerUser := f.seedUser(t, "viewer@example.com")
	f.seedUser(t, "nobody@example.com")
	app := f.seedApp(t, "crm", false)

	ig, err := permission.NewGrant(editorUser.ID(), app.ID(), permission.AccessEditor, nil)
	require.NoError(t, err)
	require.NoError(t, f.perms.Upsert(ctx, ig))

	g, err := group.New("viewers")
	require.NoError(t, err)
	require.NoError(t, f.groups.Create(ctx, g))
	m, err := group.NewMember(g.ID(), viewerUser.ID(), nil)
	require.NoError(t, err)
	require.NoError(t, f.groups.AddMember(ctx, m))
	gg, err := group.NewGrant(g.ID(), app.ID(), permission.AccessViewer, nil)
	require.NoError(t, err)
	require.NoError(t, f.groups.UpsertGrant(ctx, gg))

	stats, err := f.svc.ApplicationAccessStats(ctx, app.ID().String())

	require.NoError(t, err)
	assert.Equal(t, 3, stats.TotalUsers)
	assert.Equal(t, 1, stats.Editors)
	assert.Equal(t, 1, stats.Viewers)
	assert.Equal(t, 1, stats.Locked)
}
