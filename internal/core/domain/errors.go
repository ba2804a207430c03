package domain

import "errors"

// Common domain errors
var (
	ErrValidation       = errors.New("invalid input")
	ErrUnauthorized     = errors.New("unauthorized")
	ErrForbidden        = errors.New("forbidden")
	ErrNotFound         = errors.New("resource not found")
	ErrInvalidState     = errors.New("transition not legal from current status")
	ErrConflict         = errors.New("duplicate entry")
	ErrUnsupportedMedia = errors.New("unsupported media type")
	ErrPayloadTooLarge  = errors.New("payload too large")
	ErrInternal         = errors.New("internal server error")
)
