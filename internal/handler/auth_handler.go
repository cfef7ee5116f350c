package handler

import (
	"net/http"
	"strings"

	"estate-web/internal/service"
	"estate-web/internal/views"
)

type AuthHandler struct {
	base *Base
	auth *service.AuthService
}

func NewAuthHandler(base *Base, auth *service.AuthService) *AuthHandler {
	return &AuthHandler{base: base, auth: auth}
}

func (h *AuthHandler) LoginPage(w http.ResponseWriter, r *http.Request) {
	s := h.base.current(r)
	next := safeNext(r.URL.Query().Get("next"))
	if s.Snapshot().Authenticated() {
		seeOther(w, r, next)
		return
	}

	render(w, r, http.StatusOK, views.LoginPage(h.base.page(r, s, "Sign in"), views.CredentialsForm{Next: next}))
}

func (h *AuthHandler) Login(w http.ResponseWriter, r *http.Request) {
	s := h.base.current(r)
	form := views.CredentialsForm{
		Email: strings.TrimSpace(r.PostFormValue("email")),
		Next:  safeNext(r.PostFormValue("next")),
	}

	if err := h.auth.Login(r.Context(), s, form.Email, r.PostFormValue("password")); err != nil {
		pc := h.base.page(r, s, "Sign in")
		pc.Error = service.StatusMessage(err)
		render(w, r, statusFor(err), views.LoginPage(pc, form))
		return
	}

	seeOther(w, r, form.Next)
}

func (h *AuthHandler) RegisterPage(w http.ResponseWriter, r *http.Request) {
	s := h.base.current(r)
	if s.Snapshot().Authenticated() {
		seeOther(w, r, "/listings")
		return
	}

	render(w, r, http.StatusOK, views.RegisterPage(h.base.page(r, s, "Create an account"), views.CredentialsForm{Next: "/listings"}))
}

func (h *AuthHandler) Register(w http.ResponseWriter, r *http.Request) {
	s := h.base.current(r)
	form := views.CredentialsForm{
		Email:    strings.TrimSpace(r.PostFormValue("email")),
		FullName: strings.TrimSpace(r.PostFormValue("full_name")),
		Next:     "/listings",
	}

	if err := h.auth.Register(r.Context(), s, form.Email, r.PostFormValue("password"), form.FullName); err != nil {
		pc := h.base.page(r, s, "Create an account")
		pc.Error = service.StatusMessage(err)
		render(w, r, statusFor(err), views.RegisterPage(pc, form))
		return
	}

	seeOther(w, r, "/listings")
}

func (h *AuthHandler) Logout(w http.ResponseWriter, r *http.Request) {
	h.auth.Logout(r.Context(), h.base.current(r))
	seeOther(w, r, "/listings")
}
