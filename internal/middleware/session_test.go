package middleware

import (
	"bytes"
	"mime/multipart"
	"net/http"
	"net/http/httptest"
	"net/url"
	"strings"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func newTestSession(t *testing.T) (*SessionMiddleware, SessionKeys) {
	t.Helper()
	keys, err := DeriveSessionKeys("0123456789abcdef0123")
	require.NoError(t, err)
	return NewSessionMiddleware(keys, time.Hour, false), keys
}

func echoSession() http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		sid, _ := SessionIDFromContext(r.Context())
		_, _ = w.Write([]byte(sid))
	})
}

func TestSessionMiddleware(t *testing.T) {
	t.Parallel()

	mw, _ := newTestSession(t)
	handler := mw.Handler(echoSession())

	first := httptest.NewRecorder()
	handler.ServeHTTP(first, httptest.NewRequest(http.MethodGet, "/listings", nil))
	cookies := first.Result().Cookies()
	require.Len(t, cookies, 1)
	require.Equal(t, SessionCookieName, cookies[0].Name)
	require.True(t, cookies[0].HttpOnly)
	sid := first.Body.String()
	require.NotEmpty(t, sid)

	t.Run("valid cookie keeps the session", func(t *testing.T) {
		req := httptest.NewRequest(http.MethodGet, "/listings", nil)
		req.AddCookie(cookies[0])
		rec := httptest.NewRecorder()
		handler.ServeHTTP(rec, req)

		assert.Equal(t, sid, rec.Body.String())
		assert.Empty(t, rec.Result().Cookies())
	})

	t.Run("forged cookie is replaced", func(t *testing.T) {
		other, _ := DeriveSessionKeys("another-secret-value")
		forged, err := other.signSession(sid, time.Now(), time.Hour)
		require.NoError(t, err)

		req := httptest.NewRequest(http.MethodGet, "/listings", nil)
		req.AddCookie(&http.Cookie{Name: SessionCookieName, Value: forged})
		rec := httptest.NewRecorder()
		handler.ServeHTTP(rec, req)

		assert.NotEqual(t, sid, rec.Body.String())
		assert.Len(t, rec.Result().Cookies(), 1)
	})

	t.Run("expired cookie is replaced", func(t *testing.T) {
		keys, _ := DeriveSessionKeys("0123456789abcdef0123")
		expired, err := keys.signSession(sid, time.Now().Add(-2*time.Hour), time.Hour)
		require.NoError(t, err)

		req := httptest.NewRequest(http.MethodGet, "/listings", nil)
		req.AddCookie(&http.Cookie{Name: SessionCookieName, Value: expired})
		rec := httptest.NewRecorder()
		handler.ServeHTTP(rec, req)

		assert.NotEqual(t, sid, rec.Body.String())
	})
}

func TestSessionMiddlewareMarksMintedSessions(t *testing.T) {
	t.Parallel()

	mw, _ := newTestSession(t)
	handler := mw.Handler(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if SessionIsNew(r.Context()) {
			_, _ = w.Write([]byte("new"))
			return
		}
		_, _ = w.Write([]byte("known"))
	}))

	first := httptest.NewRecorder()
	handler.ServeHTTP(first, httptest.NewRequest(http.MethodGet, "/listings", nil))
	assert.Equal(t, "new", first.Body.String())

	req := httptest.NewRequest(http.MethodGet, "/listings", nil)
	req.AddCookie(first.Result().Cookies()[0])
	second := httptest.NewRecorder()
	handler.ServeHTTP(second, req)
	assert.Equal(t, "known", second.Body.String())
	assert.False(t, SessionIsNew(httptest.NewRequest(http.MethodGet, "/", nil).Context()))
}

func TestDeriveSessionKeys(t *testing.T) {
	t.Parallel()

	_, err := DeriveSessionKeys("")
	require.Error(t, err)

	a, err := DeriveSessionKeys("0123456789abcdef0123")
	require.NoError(t, err)
	b, err := DeriveSessionKeys("0123456789abcdef0123")
	require.NoError(t, err)

	assert.Equal(t, a.CSRFToken("sid"), b.CSRFToken("sid"))
	assert.NotEqual(t, a.CSRFToken("sid"), a.CSRFToken("other"))
	assert.NotEqual(t, a.cookie, a.csrf)
}

func TestCSRF(t *testing.T) {
	t.Parallel()

	mw, keys := newTestSession(t)
	ok := http.HandlerFunc(func(w http.ResponseWriter, _ *http.Request) {
		w.WriteHeader(http.StatusNoContent)
	})
	handler := mw.Handler(CSRF(ok))

	first := httptest.NewRecorder()
	handler.ServeHTTP(first, httptest.NewRequest(http.MethodGet, "/login", nil))
	require.Equal(t, http.StatusNoContent, first.Code)
	cookie := first.Result().Cookies()[0]
	sid, err := keys.parseSession(cookie.Value)
	require.NoError(t, err)

	post := func(token string) *httptest.ResponseRecorder {
		form := url.Values{"email": {"a@b.com"}}
		if token != "" {
			form.Set(CSRFFieldName, token)
		}
		req := httptest.NewRequest(http.MethodPost, "/login", strings.NewReader(form.Encode()))
		req.Header.Set("Content-Type", "application/x-www-form-urlencoded")
		req.AddCookie(cookie)
		rec := httptest.NewRecorder()
		handler.ServeHTTP(rec, req)
		return rec
	}

	assert.Equal(t, http.StatusNoContent, post(keys.CSRFToken(sid)).Code)
	assert.Equal(t, http.StatusForbidden, post("").Code)
	assert.Equal(t, http.StatusForbidden, post(keys.CSRFToken("someone-else")).Code)
}

func TestCSRFOversizedForm(t *testing.T) {
	t.Parallel()

	mw, _ := newTestSession(t)
	ok := http.HandlerFunc(func(w http.ResponseWriter, _ *http.Request) {
		w.WriteHeader(http.StatusNoContent)
	})
	handler := LimitBody(64)(mw.Handler(CSRF(ok)))

	t.Run("url-encoded", func(t *testing.T) {
		form := url.Values{"description": {strings.Repeat("x", 512)}}
		req := httptest.NewRequest(http.MethodPost, "/listings/1/edit", strings.NewReader(form.Encode()))
		req.Header.Set("Content-Type", "application/x-www-form-urlencoded")
		rec := httptest.NewRecorder()
		handler.ServeHTTP(rec, req)

		assert.Equal(t, http.StatusRequestEntityTooLarge, rec.Code)
	})

	t.Run("multipart", func(t *testing.T) {
		var body bytes.Buffer
		writer := multipart.NewWriter(&body)
		require.NoError(t, writer.WriteField("description", strings.Repeat("x", 512)))
		require.NoError(t, writer.Close())

		req := httptest.NewRequest(http.MethodPost, "/listings/new", &body)
		req.Header.Set("Content-Type", writer.FormDataContentType())
		rec := httptest.NewRecorder()
		handler.ServeHTTP(rec, req)

		assert.Equal(t, http.StatusRequestEntityTooLarge, rec.Code)
	})
}
