package domain

import "errors"

var (
	ErrNotFound            = errors.New("not found")
	ErrUnauthorized        = errors.New("unauthorized")
	ErrProfileNotFound     = errors.New("billing profile not found")
	ErrUpgradeRequired     = errors.New("upgrade required")
	ErrInsufficientCredits = errors.New("insufficient credits")
	ErrUnknownTier         = errors.New("unknown tier")
	ErrNoCredits           = errors.New("no credits to decrement")
)
