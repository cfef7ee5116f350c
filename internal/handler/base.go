package handler

import (
	"context"
	"log/slog"
	"net/http"
	"net/url"
	"strings"

	"estate-web/internal/middleware"
	"estate-web/internal/service"
	"estate-web/internal/views"
	"estate-web/pkg/apierror"
)

// Base resolves the browser session behind a request and renders pages for it.
type Base struct {
	auth *service.AuthService
}

func NewBase(auth *service.AuthService) *Base {
	return &Base{auth: auth}
}

func (b *Base) current(r *http.Request) *service.Session {
	sessionID, ok := middleware.SessionIDFromContext(r.Context())
	if !ok {
		// Only reachable when a route is mounted without the session middleware.
		slog.ErrorContext(r.Context(), "request without a browser session")
		sessionID = "anonymous"
	}
	if middleware.SessionIsNew(r.Context()) {
		return b.auth.NewSession(sessionID)
	}
	return b.auth.Session(r.Context(), sessionID)
}

// fail renders the generic error page for err.
func (b *Base) fail(w http.ResponseWriter, r *http.Request, s *service.Session, err error) {
	b.forgetRejectedToken(r.Context(), s, err)
	pc := b.page(r, s, "Something went wrong")
	pc.Error = service.StatusMessage(err)
	render(w, r, statusFor(err), views.ErrorPage(pc))
}

func (b *Base) restricted(w http.ResponseWriter, r *http.Request, s *service.Session) {
	render(w, r, http.StatusForbidden, views.RestrictedPage(b.page(r, s, "Access restricted")))
}

// forgetRejectedToken signs the session out when the backend rejected its
// token, without raising anything further.
func (b *Base) forgetRejectedToken(ctx context.Context, s *service.Session, err error) {
	if !apierror.HasCode(err, apierror.CodeUnauthorized) || s.Snapshot().Token == "" {
		return
	}
	slog.InfoContext(ctx, "backend rejected session token, signing out")
	b.auth.Logout(ctx, s)
}

// requireSignIn redirects anonymous sessions to the login page and reports
// whether the caller may continue.
func (b *Base) requireSignIn(w http.ResponseWriter, r *http.Request, s *service.Session) bool {
	if s.Snapshot().Authenticated() {
		return true
	}
	seeOther(w, r, "/login?next="+url.QueryEscape(r.URL.RequestURI()))
	return false
}

// safeNext keeps post-login redirects on this site.
func safeNext(raw string) string {
	if raw == "" || !strings.HasPrefix(raw, "/") || strings.HasPrefix(raw, "//") || strings.HasPrefix(raw, "/\\") {
		return "/listings"
	}
	return raw
}
