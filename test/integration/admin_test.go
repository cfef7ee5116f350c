//go:build integration

package integration

import (
	"net/http"
	"net/url"
	"testing"

	"github.com/stretchr/testify/require"

	"estate-web/internal/model"
)

func TestAdminPageIsRestrictedForRegularUsers(t *testing.T) {
	t.Parallel()

	env := newTestEnv(t)
	env.signIn(t, "a@b.com")

	resp, body := env.get(t, "/admin/users")
	require.Equal(t, http.StatusForbidden, resp.StatusCode)
	require.Contains(t, body, "Access restricted")
	require.Zero(t, env.backend.count(http.MethodGet, "/api/v1/admin/users"))
}

func TestAdminEditsUserInPlace(t *testing.T) {
	t.Parallel()

	env := newTestEnv(t)
	env.backend.seedUsers(
		model.UserRecord{ID: 1, Email: "a@b.com", FullName: "Ann", Role: model.RoleUser},
		model.UserRecord{ID: 2, Email: "root@b.com", Role: model.RoleAdmin},
	)
	env.signIn(t, "root@b.com")

	resp, body := env.get(t, "/admin/users")
	require.Equal(t, http.StatusOK, resp.StatusCode)
	require.Contains(t, body, ">Users<")
	require.Contains(t, body, "a@b.com")

	_, body = env.get(t, "/admin/users?edit=1")
	require.Contains(t, body, `action="/admin/users/1"`)

	resp, body = env.post(t, "/admin/users/1", url.Values{"full_name": {"Ann Lee"}, "role": {"Moderator"}})
	require.Equal(t, http.StatusOK, resp.StatusCode)
	require.Contains(t, body, "User updated")
	require.Contains(t, body, "Ann Lee")
	require.NotContains(t, body, `action="/admin/users/1"`)
	require.Equal(t, 1, env.backend.count(http.MethodGet, "/api/v1/admin/users"))
	require.Equal(t, 1, env.backend.count(http.MethodPatch, "/api/v1/admin/users/1"))
}

func TestAdminRejectsUnknownRole(t *testing.T) {
	t.Parallel()

	env := newTestEnv(t)
	env.backend.seedUsers(model.UserRecord{ID: 1, Email: "a@b.com", Role: model.RoleUser})
	env.signIn(t, "root@b.com")
	env.get(t, "/admin/users")

	resp, body := env.post(t, "/admin/users/1", url.Values{"role": {"owner"}})
	require.Equal(t, http.StatusUnprocessableEntity, resp.StatusCode)
	require.Contains(t, body, "a@b.com")
	require.Zero(t, env.backend.count(http.MethodPatch, "/api/v1/admin/users/1"))
}
