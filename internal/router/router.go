package router

import (
	"net/http"
	"time"

	"github.com/go-chi/chi/v5"

	"estate-web/internal/config"
	"estate-web/internal/handler"
	"estate-web/internal/middleware"
)

const (
	formBodyLimit     = 1 << 20
	uploadIdleTimeout = 30 * time.Second
)

type Handlers struct {
	Auth    *handler.AuthHandler
	Listing *handler.ListingHandler
	Admin   *handler.AdminHandler
	WS      *handler.WSHandler
	Health  *handler.HealthHandler
}

func New(cfg *config.Config, sessions *middleware.SessionMiddleware, h Handlers) http.Handler {
	r := chi.NewRouter()

	r.Use(middleware.Recovery)
	r.Use(middleware.Logging)
	r.Use(middleware.SecurityHeaders)

	r.With(middleware.CORS(cfg.CORSOrigins)).Get("/health", h.Health.Health)

	r.Group(func(r chi.Router) {
		r.Use(sessions.Handler)

		// The websocket stays outside Timeout, which cannot hijack.
		r.With(middleware.CORS(cfg.CORSOrigins)).Get("/ws", h.WS.Serve)

		// Image uploads stream through TransferTimeout; the body limit runs
		// before CSRF so an oversized form is cut off while it is parsed.
		r.Group(func(r chi.Router) {
			r.Use(middleware.NoCache)
			r.Use(middleware.LimitBody(cfg.MaxUploadSize))
			r.Use(middleware.TransferTimeout(cfg.ServerWriteTimeout, uploadIdleTimeout))
			r.Use(middleware.CSRF)

			r.Post("/listings/new", h.Listing.Create)
			r.Post("/listings/{id}/images", h.Listing.AddImages)
		})

		r.Group(func(r chi.Router) {
			r.Use(middleware.NoCache)
			r.Use(middleware.LimitBody(formBodyLimit))
			r.Use(middleware.Timeout(cfg.RequestTimeout))
			r.Use(middleware.CSRF)

			r.Get("/", func(w http.ResponseWriter, r *http.Request) {
				http.Redirect(w, r, "/listings", http.StatusFound)
			})

			r.Get("/login", h.Auth.LoginPage)
			r.Post("/login", h.Auth.Login)
			r.Get("/register", h.Auth.RegisterPage)
			r.Post("/register", h.Auth.Register)
			r.Post("/logout", h.Auth.Logout)

			r.Get("/listings", h.Listing.List)
			r.Post("/listings/reset", h.Listing.Reset)
			r.Get("/listings/new", h.Listing.NewForm)
			r.Get("/listings/{id}", h.Listing.Detail)
			r.Get("/listings/{id}/delete", h.Listing.ConfirmDelete)
			r.Post("/listings/{id}/delete", h.Listing.Delete)
			r.Get("/listings/{id}/edit", h.Listing.EditForm)
			r.Post("/listings/{id}/edit", h.Listing.Update)
			r.Get("/listings/{id}/edit/delete", h.Listing.EditConfirmDelete)
			r.Post("/listings/{id}/edit/delete", h.Listing.EditDelete)

			r.Route("/admin/users", func(admin chi.Router) {
				admin.Get("/", h.Admin.Users)
				admin.Post("/{id}", h.Admin.UpdateUser)
				admin.Get("/{id}/delete", h.Admin.ConfirmDeleteUser)
				admin.Post("/{id}/delete", h.Admin.DeleteUser)
			})
		})
	})

	return r
}
