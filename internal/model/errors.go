package model

import "errors"

var (
	// Session related errors
	ErrBusy             = errors.New("another request is already in progress")
	ErrNotAuthenticated = errors.New("not authenticated")
	ErrSuperseded       = errors.New("superseded by a newer request")

	// Listing related errors
	ErrListingNotFound = errors.New("listing not found")

	// Permission/Access related errors
	ErrForbidden = errors.New("forbidden")

	// Form related errors
	ErrConfirmationRequired = errors.New("confirmation required")
	ErrInvalidInput         = errors.New("invalid input")
)
