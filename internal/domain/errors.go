package domain

import "errors"

var (
	ErrNotFound            = errors.New("not found")
	ErrUnauthorized        = errors.New("unauthorized")
	ErrNotConfigured       = errors.New("generation provider not configured")
	ErrInvalidPayload      = errors.New("invalid payload")
	ErrInsufficientCredits = errors.New("insufficient credits")
)
