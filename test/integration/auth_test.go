//go:build integration

package integration

import (
	"net/http"
	"net/url"
	"strings"
	"testing"

	"github.com/stretchr/testify/require"
)

func TestAuthFlowAndRoleNavigation(t *testing.T) {
	t.Parallel()

	env := newTestEnv(t)

	resp, body := env.get(t, "/listings")
	require.Equal(t, http.StatusOK, resp.StatusCode)
	require.Contains(t, body, ">Sign in<")
	require.NotContains(t, body, "Sign out")

	env.signIn(t, "a@b.com")

	_, body = env.get(t, "/listings")
	require.Contains(t, body, "Sign out")
	require.Contains(t, body, ">New listing<")
	require.NotContains(t, body, ">Users<")
	require.Contains(t, body, "Ann (user)")

	resp, body = env.post(t, "/logout", nil)
	require.Equal(t, http.StatusOK, resp.StatusCode)
	require.Equal(t, "/listings", resp.Request.URL.Path)
	require.Contains(t, body, ">Sign in<")
}

func TestLoginFailureShowsBackendMessage(t *testing.T) {
	t.Parallel()

	env := newTestEnv(t)

	resp, body := env.post(t, "/login", url.Values{"email": {"a@b.com"}, "password": {"wrong"}})
	require.Equal(t, http.StatusUnauthorized, resp.StatusCode)
	require.Contains(t, body, "Incorrect email or password")
	require.Contains(t, body, `value="a@b.com"`)
	require.Zero(t, env.backend.count(http.MethodGet, "/api/v1/auth/me"))
}

func TestProtectedPageReturnsAfterLogin(t *testing.T) {
	t.Parallel()

	env := newTestEnv(t)

	resp, body := env.get(t, "/listings/new")
	require.Equal(t, "/login", resp.Request.URL.Path)
	require.Equal(t, "/listings/new", resp.Request.URL.Query().Get("next"))
	require.Contains(t, body, `name="next" value="/listings/new"`)

	resp, body = env.post(t, "/login", url.Values{
		"email":    {"a@b.com"},
		"password": {testPassword},
		"next":     {"/listings/new"},
	})
	require.Equal(t, http.StatusOK, resp.StatusCode)
	require.Equal(t, "/listings/new", resp.Request.URL.Path)
	require.Contains(t, body, "Create listing")
}

func TestLoginIgnoresOffsiteNext(t *testing.T) {
	t.Parallel()

	env := newTestEnv(t)

	resp, _ := env.post(t, "/login", url.Values{
		"email":    {"a@b.com"},
		"password": {testPassword},
		"next":     {"//evil.example/steal"},
	})
	require.Equal(t, "/listings", resp.Request.URL.Path)
	require.Equal(t, env.server.URL, "http://"+resp.Request.URL.Host)
}

func TestFormPostWithoutTokenIsRejected(t *testing.T) {
	t.Parallel()

	env := newTestEnv(t)
	env.get(t, "/login")

	req, err := http.NewRequest(http.MethodPost, env.server.URL+"/login",
		strings.NewReader(url.Values{"email": {"a@b.com"}, "password": {testPassword}}.Encode()))
	require.NoError(t, err)
	req.Header.Set("Content-Type", "application/x-www-form-urlencoded")

	resp, _ := env.do(t, req)
	require.Equal(t, http.StatusForbidden, resp.StatusCode)
	require.Zero(t, env.backend.count(http.MethodPost, "/api/v1/auth/login"))
}
