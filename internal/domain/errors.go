package domain

import "errors"

var (
	ErrNotFound        = errors.New("not found")
	ErrUnauthorized    = errors.New("unauthorized")
	ErrInvalidPrompt   = errors.New("invalid prompt")
	ErrProviderFailure = errors.New("provider failure")
)
