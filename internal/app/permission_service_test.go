package app

import (
	"context"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/apphubio/api/pkg/domain/permission"
	"github.com/apphubio/api/pkg/domain/profile"
	"github.com/apphubio/api/pkg/logger"
)

func TestPermissionService_Grant(t *testing.T) {
	ctx := context.Background()
	appID := "8c3be0c9-0b4f-47a4-b7da-1fdc3ab86a26"

	setup := func(t *testing.T) (*PermissionService, *mockPermissionRepo, *profile.Profile) {
		t.Helper()
		repo := newMockPermissionRepo()
		profiles := newMockProfileRepo()
		p, err := profile.New("grantee@example.com", "Grantee")
		require.NoError(t, err)
		require.NoError(t, profiles.Create(ctx, p))
		svc := NewPermissionService(repo, profiles, logger.NewNop())
		return svc, repo, p
	}

	t.Run("grant then replace", func(t *testing.T) {
		svc, _, p := setup(t)

		g, err := svc.Grant(ctx, GrantInput{
			UserID: p.ID().String(), ApplicationID: appID, AccessLevel: "viewer",
		}, nil)
		require.NoError(t, err)
		assert.Equal(t, permission.AccessViewer, g.Level())

		g, err = svc.Grant(ctx, GrantInput{
			UserID: p.ID().String(), ApplicationID: appID, AccessLevel: "locked",
		}, nil)
		require.NoError(t, err)
		assert.Equal(t, permission.AccessLocked, g.Level())

		grants, err := svc.ListByUser(ctx, p.ID().String())
		require.NoError(t, err)
		require.Len(t, grants, 1)
		assert.Equal(t, permission.AccessLocked, grants[0].Level())
	})

	t.Run("unknown user rejected", func(t *testing.T) {
		svc, _, _ := setup(t)

		_, err := svc.Grant(ctx, GrantInput{
			UserID:        "2a7e9dd2-4e6f-43e0-8ff6-9a7e5da9c8ba",
			ApplicationID: appID,
			AccessLevel:   "editor",
		}, nil)
		assert.ErrorIs(t, err, profile.ErrProfileNotFound)
	})

	t.Run("invalid level rejected", func(t *testing.T) {
		svc, _, p := setup(t)

		_, err := svc.Grant(ctx, GrantInput{
			UserID: p.ID().String(), ApplicationID: appID, AccessLevel: "admin",
		}, nil)
		assert.ErrorIs(t, err, permission.ErrInvalidAccessLevel)
	})

	t.Run("grant invalidates the user's cache", func(t *testing.T) {
		repo := newMockPermissionRepo()
		profiles := newMockProfileRepo()
		cache := newMockAccessCache()
		access := NewAccessService(profiles, newMockApplicationRepo(), newMockGroupRepo(), repo, testAccessConfig(), logger.NewNop(), WithAccessCache(cache))
		svc := NewPermissionService(repo, profiles, logger.NewNop(), WithPermissionAccessInvalidator(access))

		p, err := profile.New("cached@example.com", "Cached")
		require.NoError(t, err)
		require.NoError(t, profiles.Create(ctx, p))
		require.NoError(t, cache.Set(ctx, p.ID().String(), ResolvedAccess{}))

		_, err = svc.Grant(ctx, GrantInput{
			UserID: p.ID().String(), ApplicationID: appID, AccessLevel: "editor",
		}, nil)
		require.NoError(t, err)

		cached, _ := cache.Get(ctx, p.ID().String())
		assert.Nil(t, cached)
	})
}

func TestPermissionService_Revoke(t *testing.T) {
	ctx := context.Background()
	appID := "8c3be0c9-0b4f-47a4-b7da-1fdc3ab86a26"
	repo := newMockPermissionRepo()
	profiles := newMockProfileRepo()
	p, err := profile.New("revokee@example.com", "Revokee")
	require.NoError(t, err)
	require.NoError(t, profiles.Create(ctx, p))
	svc := NewPermissionService(repo, profiles, logger.NewNop())

	t.Run("revoke removes the grant", func(t *testing.T) {
		_, err := svc.Grant(ctx, GrantInput{
			UserID: p.ID().String(), ApplicationID: appID, AccessLevel: "editor",
		}, nil)
		require.NoError(t, err)

		require.NoError(t, svc.Revoke(ctx, p.ID().String(), appID))

		_, err = svc.GetGrant(ctx, p.ID().String(), appID)
		assert.ErrorIs(t, err, permission.ErrGrantNotFound)
	})

	t.Run("revoking an absent grant is a no-op", func(t *testing.T) {
		assert.NoError(t, svc.Revoke(ctx, p.ID().String(), appID))
	})
}
