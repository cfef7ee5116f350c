package service

import (
	"context"
	"log/slog"
	"strings"
	"sync"

	"estate-web/internal/model"
	"estate-web/pkg/apierror"
)

type adminAPI interface {
	ListUsers(ctx context.Context, token string) ([]model.UserRecord, error)
	UpdateUser(ctx context.Context, token string, id int64, update model.UserUpdate) (model.UserRecord, error)
	DeleteUser(ctx context.Context, token string, id int64) error
}

// UserDirectory is the admin page state of one browser: the user list and
// the row being edited inline.
type UserDirectory struct {
	mu        sync.Mutex
	items     []model.UserRecord
	loaded    bool
	editingID int64
	errMsg    string
}

type UserDirectoryView struct {
	Items     []model.UserRecord
	Loaded    bool
	EditingID int64
	Error     string
}

func (d *UserDirectory) View() UserDirectoryView {
	d.mu.Lock()
	defer d.mu.Unlock()

	items := make([]model.UserRecord, len(d.items))
	copy(items, d.items)
	return UserDirectoryView{Items: items, Loaded: d.loaded, EditingID: d.editingID, Error: d.errMsg}
}

func (d *UserDirectory) reset() {
	d.mu.Lock()
	defer d.mu.Unlock()

	d.items = nil
	d.loaded = false
	d.editingID = 0
	d.errMsg = ""
}

func (d *UserDirectory) setError(err error) error {
	d.mu.Lock()
	d.errMsg = StatusMessage(err)
	d.mu.Unlock()
	return err
}

type AdminService struct {
	api adminAPI
}

func NewAdminService(api adminAPI) *AdminService {
	return &AdminService{api: api}
}

func requireStaff(session SessionView) error {
	if session.Token == "" {
		return model.ErrNotAuthenticated
	}
	if !CanAdminister(session.User) {
		return model.ErrForbidden
	}
	return nil
}

// Load fetches the user list. Sessions without an admin or moderator role
// get ErrForbidden and no request is made.
func (a *AdminService) Load(ctx context.Context, session SessionView, dir *UserDirectory) (UserDirectoryView, error) {
	if err := requireStaff(session); err != nil {
		return dir.View(), err
	}

	users, err := a.api.ListUsers(ctx, session.Token)
	if err != nil {
		dir.setError(err)
		return dir.View(), err
	}

	dir.mu.Lock()
	dir.items = users
	dir.loaded = true
	dir.errMsg = ""
	dir.mu.Unlock()
	return dir.View(), nil
}

func (a *AdminService) StartEdit(dir *UserDirectory, id int64) {
	dir.mu.Lock()
	defer dir.mu.Unlock()
	dir.editingID = id
}

func (a *AdminService) CancelEdit(dir *UserDirectory) {
	a.StartEdit(dir, 0)
}

// Update commits an inline edit. The displayed row is replaced only after the
// backend confirms the change.
func (a *AdminService) Update(ctx context.Context, session SessionView, dir *UserDirectory, id int64, fullName string, role string) (model.UserRecord, error) {
	if err := requireStaff(session); err != nil {
		return model.UserRecord{}, dir.setError(err)
	}

	role = strings.ToLower(strings.TrimSpace(role))
	if !model.IsValidRole(role) {
		return model.UserRecord{}, dir.setError(apierror.Validation("role", "Role must be one of "+strings.Join(model.Roles, ", ")))
	}

	update := model.UserUpdate{Role: role}
	if name := strings.TrimSpace(fullName); name != "" {
		update.FullName = &name
	}

	updated, err := a.api.UpdateUser(ctx, session.Token, id, update)
	if err != nil {
		return model.UserRecord{}, dir.setError(err)
	}

	dir.mu.Lock()
	for i := range dir.items {
		if dir.items[i].ID == updated.ID {
			dir.items[i] = updated
			break
		}
	}
	dir.editingID = 0
	dir.errMsg = ""
	dir.mu.Unlock()

	slog.InfoContext(ctx, "user updated", "user_id", updated.ID, "role", updated.Role)
	return updated, nil
}

func (a *AdminService) Delete(ctx context.Context, session SessionView, dir *UserDirectory, id int64, confirmed bool) error {
	if err := requireStaff(session); err != nil {
		return dir.setError(err)
	}
	if !confirmed {
		return dir.setError(model.ErrConfirmationRequired)
	}

	if err := a.api.DeleteUser(ctx, session.Token, id); err != nil {
		return dir.setError(err)
	}

	dir.mu.Lock()
	for i := range dir.items {
		if dir.items[i].ID == id {
			dir.items = append(dir.items[:i:i], dir.items[i+1:]...)
			break
		}
	}
	if dir.editingID == id {
		dir.editingID = 0
	}
	dir.errMsg = ""
	dir.mu.Unlock()

	slog.InfoContext(ctx, "user deleted", "user_id", id)
	return nil
}
