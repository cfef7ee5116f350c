package service

import (
	"context"
	"testing"

	"github.com/stretchr/testify/require"

	"estate-web/internal/model"
	"estate-web/pkg/apierror"
)

func seededAdmin(t *testing.T) (*fakeBackend, *Session, *AdminService) {
	t.Helper()

	backend := newFakeBackend(t)
	backend.seedUsers(
		model.UserRecord{ID: 1, Email: validEmail, FullName: "Ann", Role: model.RoleUser},
		model.UserRecord{ID: 2, Email: "root@b.com", Role: model.RoleAdmin},
		model.UserRecord{ID: 3, Email: "mod@b.com", Role: model.RoleModerator},
	)
	_, s := signedIn(t, backend, "root@b.com")
	return backend, s, NewAdminService(backend.client())
}

func TestAdminLoad(t *testing.T) {
	t.Parallel()

	t.Run("regular users get the restricted view without a request", func(t *testing.T) {
		backend := newFakeBackend(t)
		_, s := signedIn(t, backend, validEmail)
		admin := NewAdminService(backend.client())

		view, err := admin.Load(context.Background(), s.Snapshot(), s.Users())
		require.ErrorIs(t, err, model.ErrForbidden)
		require.False(t, view.Loaded)
		require.Zero(t, backend.count("GET", "/api/v1/admin/users"))
	})

	t.Run("anonymous sessions are not authenticated", func(t *testing.T) {
		backend := newFakeBackend(t)
		admin := NewAdminService(backend.client())

		_, err := admin.Load(context.Background(), SessionView{}, &UserDirectory{})
		require.ErrorIs(t, err, model.ErrNotAuthenticated)
		require.Zero(t, backend.count("GET", "/api/v1/admin/users"))
	})

	t.Run("staff see the list", func(t *testing.T) {
		_, s, admin := seededAdmin(t)
		view, err := admin.Load(context.Background(), s.Snapshot(), s.Users())
		require.NoError(t, err)
		require.True(t, view.Loaded)
		require.Len(t, view.Items, 3)
	})
}

func TestAdminUpdate(t *testing.T) {
	t.Parallel()

	t.Run("replaces the row by id after confirmation", func(t *testing.T) {
		_, s, admin := seededAdmin(t)
		dir := s.Users()
		_, err := admin.Load(context.Background(), s.Snapshot(), dir)
		require.NoError(t, err)

		admin.StartEdit(dir, 1)
		require.Equal(t, int64(1), dir.View().EditingID)

		updated, err := admin.Update(context.Background(), s.Snapshot(), dir, 1, "Ann Lee", "Moderator")
		require.NoError(t, err)
		require.Equal(t, model.RoleModerator, updated.Role)

		view := dir.View()
		require.Zero(t, view.EditingID)
		require.Equal(t, "Ann Lee", view.Items[0].FullName)
		require.Equal(t, model.RoleModerator, view.Items[0].Role)
		require.Equal(t, model.RoleAdmin, view.Items[1].Role)
	})

	t.Run("unknown roles are rejected locally", func(t *testing.T) {
		backend, s, admin := seededAdmin(t)
		dir := s.Users()

		_, err := admin.Update(context.Background(), s.Snapshot(), dir, 1, "", "owner")
		require.True(t, apierror.HasCode(err, apierror.CodeValidation))
		require.Zero(t, backend.count("PATCH", "/api/v1/admin/users/1"))
		require.NotEmpty(t, dir.View().Error)
	})

	t.Run("backend failure keeps the displayed row", func(t *testing.T) {
		_, s, admin := seededAdmin(t)
		dir := s.Users()
		_, err := admin.Load(context.Background(), s.Snapshot(), dir)
		require.NoError(t, err)

		_, err = admin.Update(context.Background(), s.Snapshot(), dir, 99, "Ghost", model.RoleUser)
		require.Error(t, err)
		require.Equal(t, "User not found", dir.View().Error)
		require.Len(t, dir.View().Items, 3)
	})

	t.Run("cancel clears the editing row", func(t *testing.T) {
		_, s, admin := seededAdmin(t)
		dir := s.Users()
		admin.StartEdit(dir, 3)
		admin.CancelEdit(dir)
		require.Zero(t, dir.View().EditingID)
	})
}

func TestAdminDelete(t *testing.T) {
	t.Parallel()

	backend, s, admin := seededAdmin(t)
	dir := s.Users()
	_, err := admin.Load(context.Background(), s.Snapshot(), dir)
	require.NoError(t, err)

	require.ErrorIs(t, admin.Delete(context.Background(), s.Snapshot(), dir, 3, false), model.ErrConfirmationRequired)
	require.Zero(t, backend.count("DELETE", "/api/v1/admin/users/3"))

	require.NoError(t, admin.Delete(context.Background(), s.Snapshot(), dir, 3, true))
	view := dir.View()
	require.Len(t, view.Items, 2)
	for _, u := range view.Items {
		require.NotEqual(t, int64(3), u.ID)
	}
}

func TestLogoutResetsUserDirectory(t *testing.T) {
	t.Parallel()

	backend := newFakeBackend(t)
	backend.seedUsers(model.UserRecord{ID: 1, Email: validEmail, Role: model.RoleUser})
	auth, s := signedIn(t, backend, "root@b.com")
	admin := NewAdminService(backend.client())

	_, err := admin.Load(context.Background(), s.Snapshot(), s.Users())
	require.NoError(t, err)
	require.Len(t, s.Users().View().Items, 1)

	auth.Logout(context.Background(), s)
	require.Empty(t, s.Users().View().Items)
	require.False(t, s.Users().View().Loaded)
}
