package handler

import (
	"bytes"
	"log/slog"
	"net/http"

	"github.com/a-h/templ"

	"estate-web/internal/middleware"
	"estate-web/internal/service"
	"estate-web/internal/views"
)

// page builds the layout context for a page shown to the session as it is now.
func (b *Base) page(r *http.Request, s *service.Session, title string) views.PageContext {
	user := s.Snapshot().User
	return views.PageContext{
		Title: title,
		User:  user,
		Nav:   service.NavLinks(user),
		CSRF:  middleware.CSRFTokenFromContext(r.Context()),
	}
}

// render writes a page. Components render into a buffer first so a failing
// one never leaves a half-written page behind.
func render(w http.ResponseWriter, r *http.Request, status int, page templ.Component) {
	var buf bytes.Buffer
	if err := page.Render(r.Context(), &buf); err != nil {
		slog.ErrorContext(r.Context(), "failed to render page", "path", r.URL.Path, "error", err)
		http.Error(w, "page not available", http.StatusInternalServerError)
		return
	}

	w.Header().Set("Content-Type", "text/html; charset=utf-8")
	w.WriteHeader(status)
	_, _ = buf.WriteTo(w)
}
