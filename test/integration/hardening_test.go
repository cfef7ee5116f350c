//go:build integration

package integration

import (
	"encoding/json"
	"net/http"
	"testing"

	"github.com/stretchr/testify/require"
)

func TestSecurityHeadersOnPages(t *testing.T) {
	t.Parallel()

	env := newTestEnv(t)

	resp, _ := env.get(t, "/listings")
	require.Equal(t, http.StatusOK, resp.StatusCode)
	require.Equal(t, "nosniff", resp.Header.Get("X-Content-Type-Options"))
	require.Equal(t, "DENY", resp.Header.Get("X-Frame-Options"))
	require.Equal(t, "same-origin", resp.Header.Get("Referrer-Policy"))
	require.Equal(t, "no-store", resp.Header.Get("Cache-Control"))
	require.NotEmpty(t, resp.Header.Get("X-Request-ID"))
	require.Contains(t, resp.Header.Get("Content-Type"), "text/html")
}

func TestSessionCookieIsHTTPOnly(t *testing.T) {
	t.Parallel()

	env := newTestEnv(t)

	resp, _ := env.get(t, "/login")
	var found bool
	for _, cookie := range resp.Cookies() {
		if cookie.Name == "estate_session" {
			found = true
			require.True(t, cookie.HttpOnly)
		}
	}
	require.True(t, found)
}

func TestRootRedirectsToListings(t *testing.T) {
	t.Parallel()

	env := newTestEnv(t)

	resp, _ := env.get(t, "/")
	require.Equal(t, "/listings", resp.Request.URL.Path)
}

func TestHealthEndpoint(t *testing.T) {
	t.Parallel()

	env := newTestEnv(t)

	resp, body := env.get(t, "/health")
	require.Equal(t, http.StatusOK, resp.StatusCode)

	var parsed struct {
		Success bool `json:"success"`
		Data    struct {
			Status string `json:"status"`
		} `json:"data"`
	}
	require.NoError(t, json.Unmarshal([]byte(body), &parsed))
	require.True(t, parsed.Success)
	require.Equal(t, "ok", parsed.Data.Status)
}
