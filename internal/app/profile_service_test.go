package app

import (
	"context"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/apphubio/api/pkg/domain/profile"
	"github.com/apphubio/api/pkg/logger"
)

func seedProfile(t *testing.T, repo *mockProfileRepo, email string, role profile.Role) *profile.Profile {
	t.Helper()
	p, err := profile.New(email, "Seeded User")
	require.NoError(t, err)
	require.NoError(t, p.ChangeRole(role))
	require.NoError(t, repo.Create(context.Background(), p))
	return p
}

func TestProfileService_ChangeRole(t *testing.T) {
	ctx := context.Background()

	t.Run("promote user to admin", func(t *testing.T) {
		repo := newMockProfileRepo()
		svc := NewProfileService(repo, logger.NewNop())
		admin := seedProfile(t, repo, "admin@example.com", profile.RoleAdmin)
		user := seedProfile(t, repo, "user@example.com", profile.RoleUser)

		updated, err := svc.ChangeRole(ctx, admin.ID().String(), user.ID().String(), "admin")

		require.NoError(t, err)
		assert.True(t, updated.IsAdmin())
	})

	t.Run("self role change refused", func(t *testing.T) {
		repo := newMockProfileRepo()
		svc := NewProfileService(repo, logger.NewNop())
		admin := seedProfile(t, repo, "admin@example.com", profile.RoleAdmin)

		_, err := svc.ChangeRole(ctx, admin.ID().String(), admin.ID().String(), "user")
		assert.ErrorIs(t, err, profile.ErrSelfAction)
	})

	t.Run("demoting the last admin refused", func(t *testing.T) {
		repo := newMockProfileRepo()
		svc := NewProfileService(repo, logger.NewNop())
		admin := seedProfile(t, repo, "only@example.com", profile.RoleAdmin)
		other := seedProfile(t, repo, "peer@example.com", profile.RoleUser)

		_, err := svc.ChangeRole(ctx, other.ID().String(), admin.ID().String(), "user")
		assert.ErrorIs(t, err, profile.ErrLastAdmin)
	})

	t.Run("demotion allowed with two admins", func(t *testing.T) {
		repo := newMockProfileRepo()
		svc := NewProfileService(repo, logger.NewNop())
		a1 := seedProfile(t, repo, "a1@example.com", profile.RoleAdmin)
		a2 := seedProfile(t, repo, "a2@example.com", profile.RoleAdmin)

		updated, err := svc.ChangeRole(ctx, a1.ID().String(), a2.ID().String(), "user")
		require.NoError(t, err)
		assert.False(t, updated.IsAdmin())
	})

	t.Run("invalid role", func(t *testing.T) {
		repo := newMockProfileRepo()
		svc := NewProfileService(repo, logger.NewNop())
		admin := seedProfile(t, repo, "admin@example.com", profile.RoleAdmin)
		user := seedProfile(t, repo, "user@example.com", profile.RoleUser)

		_, err := svc.ChangeRole(ctx, admin.ID().String(), user.ID().String(), "superuser")
		assert.Error(t, err)
	})
}

func TestProfileService_SetActive(t *testing.T) {
	ctx := context.Background()

	t.Run("deactivation revokes sessions and cache", func(t *testing.T) {
		repo := newMockProfileRepo()
		store := newMockTokenStore()
		cache := newMockAccessCache()
		access := NewAccessService(repo, newMockApplicationRepo(), newMockGroupRepo(), newMockPermissionRepo(), testAccessConfig(), logger.NewNop(), WithAccessCache(cache))
		svc := NewProfileService(repo, logger.NewNop(),
			WithSessionRevoker(store),
			WithProfileAccessInvalidator(access),
		)
		admin := seedProfile(t, repo, "admin@example.com", profile.RoleAdmin)
		user := seedProfile(t, repo, "user@example.com", profile.RoleUser)
		require.NoError(t, cache.Set(ctx, user.ID().String(), ResolvedAccess{}))

		updated, err := svc.SetActive(ctx, admin.ID().String(), user.ID().String(), false)

		require.NoError(t, err)
		assert.False(t, updated.IsActive())
		assert.Contains(t, store.revokedAll, user.ID().String())
		cached, _ := cache.Get(ctx, user.ID().String())
		assert.Nil(t, cached)
	})

	t.Run("self deactivation refused", func(t *testing.T) {
		repo := newMockProfileRepo()
		svc := NewProfileService(repo, logger.NewNop())
		admin := seedProfile(t, repo, "admin@example.com", profile.RoleAdmin)

		_, err := svc.SetActive(ctx, admin.ID().String(), admin.ID().String(), false)
		assert.ErrorIs(t, err, profile.ErrSelfAction)
	})

	t.Run("deactivating the last admin refused", func(t *testing.T) {
		repo := newMockProfileRepo()
		svc := NewProfileService(repo, logger.NewNop())
		admin := seedProfile(t, repo, "only@example.com", profile.RoleAdmin)
		user := seedProfile(t, repo, "user@example.com", profile.RoleUser)

		_, err := svc.SetActive(ctx, user.ID().String(), admin.ID().String(), false)
		assert.ErrorIs(t, err, profile.ErrLastAdmin)
	})

	t.Run("reactivation", func(t *testing.T) {
		repo := newMockProfileRepo()
		svc := NewProfileService(repo, logger.NewNop())
		admin := seedProfile(t, repo, "admin@example.com", profile.RoleAdmin)
		user := seedProfile(t, repo, "user@example.com", profile.RoleUser)
		user.Deactivate()
		require.NoError(t, repo.Update(ctx, user))

		updated, err := svc.SetActive(ctx, admin.ID().String(), user.ID().String(), true)
		require.NoError(t, err)
		assert.True(t, updated.IsActive())
	})
}

func TestProfileService_DeleteProfile(t *testing.T) {
	ctx := context.Background()

	t.Run("self deletion refused", func(t *testing.T) {
		repo := newMockProfileRepo()
		svc := NewProfileService(repo, logger.NewNop())
		admin := seedProfile(t, repo, "admin@example.com", profile.RoleAdmin)

		err := svc.DeleteProfile(ctx, admin.ID().String(), admin.ID().String())
		assert.ErrorIs(t, err, profile.ErrSelfAction)
	})

	t.Run("deleting the last admin refused", func(t *testing.T) {
		repo := newMockProfileRepo()
		svc := NewProfileService(repo, logger.NewNop())
		admin := seedProfile(t, repo, "only@example.com", profile.RoleAdmin)
		user := seedProfile(t, repo, "user@example.com", profile.RoleUser)

		err := svc.DeleteProfile(ctx, user.ID().String(), admin.ID().String())
		assert.ErrorIs(t, err, profile.ErrLastAdmin)
	})

	t.Run("regular deletion", func(t *testing.T) {
		repo := newMockProfileRepo()
		store := newMockTokenStore()
		svc := NewProfileService(repo, logger.NewNop(), WithSessionRevoker(store))
		admin := seedProfile(t, repo, "admin@example.com", profile.RoleAdmin)
		user := seedProfile(t, repo, "user@example.com", profile.RoleUser)

		err := svc.DeleteProfile(ctx, admin.ID().String(), user.ID().String())
		require.NoError(t, err)

		_, err = repo.GetByID(ctx, user.ID())
		assert.ErrorIs(t, err, profile.ErrProfileNotFound)
		assert.Contains(t, store.revokedAll, user.ID().String())
	})
}

func TestProfileService_ListProfiles(t *testing.T) {
	ctx := context.Background()
	repo := newMockProfileRepo()
	svc := NewProfileService(repo, logger.NewNop())
	seedProfile(t, repo, "a@example.com", profile.RoleAdmin)
	seedProfile(t, repo, "b@example.com", profile.RoleUser)
	seedProfile(t, repo, "c@example.com", profile.RoleUser)

	t.Run("all", func(t *testing.T) {
		result, err := svc.ListProfiles(ctx, ListProfilesInput{})
		require.NoError(t, err)
		assert.Equal(t, int64(3), result.Total)
	})

	t.Run("filter by role", func(t *testing.T) {
		result, err := svc.ListProfiles(ctx, ListProfilesInput{Role: "admin"})
		require.NoError(t, err)
		assert.Equal(t, int64(1), result.Total)
	})

	t.Run("invalid role rejected", func(t *testing.T) {
		_, err := svc.ListProfiles(ctx, ListProfilesInput{Role: "owner"})
		assert.Error(t, err)
	})
}
