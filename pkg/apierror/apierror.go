package apierror

import (
	"errors"
	"fmt"
	"net/http"
)

const (
	CodeNetwork      = "NETWORK_ERROR"
	CodeHTTP         = "HTTP_ERROR"
	CodeValidation   = "VALIDATION_ERROR"
	CodeAuth         = "AUTH_ERROR"
	CodeUnauthorized = "UNAUTHORIZED"
	CodeForbidden    = "FORBIDDEN"
)

type APIError struct {
	Code       string `json:"code"`
	Message    string `json:"message"`
	Details    string `json:"details,omitempty"`
	HTTPStatus int    `json:"-"`
}

func (e *APIError) Error() string {
	if e == nil {
		return ""
	}

	if e.Details != "" {
		return fmt.Sprintf("%s: %s (%s)", e.Code, e.Message, e.Details)
	}

	return fmt.Sprintf("%s: %s", e.Code, e.Message)
}

func New(code string, message string, details string, status int) *APIError {
	return &APIError{Code: code, Message: message, Details: details, HTTPStatus: status}
}

// Network reports a transport failure talking to the backend.
func Network(err error) *APIError {
	details := ""
	if err != nil {
		details = err.Error()
	}
	return New(CodeNetwork, "unable to reach the listings service", details, http.StatusBadGateway)
}

func Validation(field string, message string) *APIError {
	return New(CodeValidation, message, field, http.StatusUnprocessableEntity)
}

func Forbidden(message string) *APIError {
	return New(CodeForbidden, message, "", http.StatusForbidden)
}

// As returns the *APIError wrapped in err, if any.
func As(err error) (*APIError, bool) {
	var apiErr *APIError
	if errors.As(err, &apiErr) {
		return apiErr, true
	}
	return nil, false
}

// HasCode reports whether err wraps an *APIError carrying code.
func HasCode(err error, code string) bool {
	apiErr, ok := As(err)
	return ok && apiErr.Code == code
}

// UserMessage is the text shown to the end-user for err.
func UserMessage(err error) string {
	if err == nil {
		return ""
	}
	if apiErr, ok := As(err); ok && apiErr.Message != "" {
		return apiErr.Message
	}
	return "Something went wrong, please try again"
}
