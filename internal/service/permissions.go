package service

import (
	"errors"

	"estate-web/internal/model"
	"estate-web/pkg/apierror"
)

// CanManage decides whether edit and delete controls are shown for a listing.
// It is a display gate only; the backend enforces the real rule.
func CanManage(user *model.SessionUser, ownerID int64) bool {
	if user == nil {
		return false
	}
	return user.IsStaff() || user.ID == ownerID
}

func CanAdminister(user *model.SessionUser) bool {
	return user.IsStaff()
}

// StatusMessage converts any error from an action into the text shown on the page.
func StatusMessage(err error) string {
	switch {
	case err == nil:
		return ""
	case errors.Is(err, model.ErrBusy):
		return "Please wait, your previous request is still in progress"
	case errors.Is(err, model.ErrNotAuthenticated):
		return "Please sign in first"
	case errors.Is(err, model.ErrConfirmationRequired):
		return "Please confirm the deletion"
	case errors.Is(err, model.ErrForbidden):
		return "You do not have permission to do that"
	case errors.Is(err, model.ErrSuperseded):
		return "A newer request replaced this one"
	case errors.Is(err, model.ErrListingNotFound):
		return "Listing not found"
	}
	return apierror.UserMessage(err)
}
