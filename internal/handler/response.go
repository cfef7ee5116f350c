package handler

import (
	"encoding/json"
	"errors"
	"log/slog"
	"net/http"
	"strconv"
	"strings"

	"github.com/go-chi/chi/v5"

	"estate-web/internal/model"
	"estate-web/pkg/apierror"
)

func writeSuccess(w http.ResponseWriter, status int, data any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	_ = json.NewEncoder(w).Encode(model.APIResponse{
		Success: true,
		Data:    data,
	})
}

func writeError(w http.ResponseWriter, status int, code string, message string) {
	writeErrorData(w, status, code, message, nil)
}

// writeErrorData is writeError with a payload describing the failure.
func writeErrorData(w http.ResponseWriter, status int, code string, message string, data any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	_ = json.NewEncoder(w).Encode(model.APIResponse{
		Success: false,
		Data:    data,
		Error:   &model.APIError{Code: code, Message: message},
	})
}

// statusFor picks the HTTP status of a page that shows err.
func statusFor(err error) int {
	var apiErr *apierror.APIError
	switch {
	case err == nil:
		return http.StatusOK
	case errors.Is(err, model.ErrBusy), errors.Is(err, model.ErrSuperseded):
		return http.StatusConflict
	case errors.Is(err, model.ErrNotAuthenticated):
		return http.StatusUnauthorized
	case errors.Is(err, model.ErrForbidden):
		return http.StatusForbidden
	case errors.Is(err, model.ErrListingNotFound):
		return http.StatusNotFound
	case errors.Is(err, model.ErrConfirmationRequired), errors.Is(err, model.ErrInvalidInput):
		return http.StatusBadRequest
	case errors.As(err, &apiErr):
		if apiErr.HTTPStatus >= 400 {
			return apiErr.HTTPStatus
		}
		return http.StatusBadGateway
	}

	slog.Error("unhandled error while rendering page", "error", err.Error())
	return http.StatusInternalServerError
}

func isPayloadTooLarge(err error) bool {
	var maxBytesErr *http.MaxBytesError
	if errors.As(err, &maxBytesErr) {
		return true
	}

	return strings.Contains(strings.ToLower(err.Error()), "request body too large")
}

func idParam(r *http.Request, name string) (int64, bool) {
	id, err := strconv.ParseInt(chi.URLParam(r, name), 10, 64)
	if err != nil || id <= 0 {
		return 0, false
	}
	return id, true
}

// seeOther finishes a successful form post.
func seeOther(w http.ResponseWriter, r *http.Request, target string) {
	http.Redirect(w, r, target, http.StatusSeeOther)
}

func confirmed(r *http.Request) bool {
	return r.PostFormValue("confirm") == "yes"
}
