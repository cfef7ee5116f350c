package handler

import (
	"errors"
	"fmt"
	"net/http"
	"strconv"

	"estate-web/internal/model"
	"estate-web/internal/service"
	"estate-web/internal/views"
)

type AdminHandler struct {
	base  *Base
	admin *service.AdminService
}

func NewAdminHandler(base *Base, admin *service.AdminService) *AdminHandler {
	return &AdminHandler{base: base, admin: admin}
}

// Users lists accounts. ?edit=<id> opens the inline editor for one row and
// ?cancel=1 closes it; both work on the rows already on display.
func (h *AdminHandler) Users(w http.ResponseWriter, r *http.Request) {
	s := h.base.current(r)
	dir := s.Users()
	query := r.URL.Query()
	toggling := query.Get("edit") != "" || query.Get("cancel") != ""

	var err error
	if toggling && dir.View().Loaded && service.CanAdminister(s.Snapshot().User) {
		if id, convErr := strconv.ParseInt(query.Get("edit"), 10, 64); convErr == nil && id > 0 {
			h.admin.StartEdit(dir, id)
		} else {
			h.admin.CancelEdit(dir)
		}
	} else {
		_, err = h.admin.Load(r.Context(), s.Snapshot(), dir)
		if isRestricted(err) {
			h.base.restricted(w, r, s)
			return
		}
		h.base.forgetRejectedToken(r.Context(), s, err)
	}

	h.renderUsers(w, r, s, err, "")
}

func (h *AdminHandler) UpdateUser(w http.ResponseWriter, r *http.Request) {
	s := h.base.current(r)
	if !service.CanAdminister(s.Snapshot().User) {
		h.base.restricted(w, r, s)
		return
	}
	id, ok := idParam(r, "id")
	if !ok {
		h.base.fail(w, r, s, model.ErrInvalidInput)
		return
	}

	_, err := h.admin.Update(r.Context(), s.Snapshot(), s.Users(), id, r.PostFormValue("full_name"), r.PostFormValue("role"))
	h.base.forgetRejectedToken(r.Context(), s, err)

	notice := ""
	if err == nil {
		notice = "User updated"
	}
	h.renderUsers(w, r, s, err, notice)
}

func (h *AdminHandler) ConfirmDeleteUser(w http.ResponseWriter, r *http.Request) {
	s := h.base.current(r)
	if !service.CanAdminister(s.Snapshot().User) {
		h.base.restricted(w, r, s)
		return
	}
	id, ok := idParam(r, "id")
	if !ok {
		h.base.fail(w, r, s, model.ErrInvalidInput)
		return
	}

	name := fmt.Sprintf("user #%d", id)
	for _, u := range s.Users().View().Items {
		if u.ID == id {
			name = u.Email
			break
		}
	}

	render(w, r, http.StatusOK, views.ConfirmPage(h.base.page(r, s, "Delete user"), views.ConfirmData{
		Heading: "Delete user",
		Message: "Delete " + name + "? Their account will be removed.",
		Action:  fmt.Sprintf("/admin/users/%d/delete", id),
		Cancel:  "/admin/users",
	}))
}

func (h *AdminHandler) DeleteUser(w http.ResponseWriter, r *http.Request) {
	s := h.base.current(r)
	if !service.CanAdminister(s.Snapshot().User) {
		h.base.restricted(w, r, s)
		return
	}
	id, ok := idParam(r, "id")
	if !ok {
		h.base.fail(w, r, s, model.ErrInvalidInput)
		return
	}

	err := h.admin.Delete(r.Context(), s.Snapshot(), s.Users(), id, confirmed(r))
	h.base.forgetRejectedToken(r.Context(), s, err)

	notice := ""
	if err == nil {
		notice = "User deleted"
	}
	h.renderUsers(w, r, s, err, notice)
}

func (h *AdminHandler) renderUsers(w http.ResponseWriter, r *http.Request, s *service.Session, err error, notice string) {
	view := s.Users().View()
	status := http.StatusOK
	if err != nil {
		status = statusFor(err)
	}

	pc := h.base.page(r, s, "Users")
	pc.Error = view.Error
	pc.Notice = notice
	render(w, r, status, views.AdminUsersPage(pc, view))
}

func isRestricted(err error) bool {
	return errors.Is(err, model.ErrForbidden) || errors.Is(err, model.ErrNotAuthenticated)
}
