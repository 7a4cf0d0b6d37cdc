package domain

import "errors"

var (
	ErrNotFound       = errors.New("not found")
	ErrInvalidPath    = errors.New("invalid path")
	ErrInvalidRequest = errors.New("invalid request")
	ErrNotConfigured  = errors.New("not configured")
)
