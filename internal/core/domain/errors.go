package domain

import "errors"

var (
	ErrValidation            = errors.New("validation failed")
	ErrUnauthenticated       = errors.New("missing or malformed credentials")
	ErrInvalidOrExpiredToken = errors.New("invalid or expired token")
	ErrForbidden             = errors.New("access forbidden")
	ErrNotOwner              = errors.New("order is assigned to another agent")
	ErrOrderNotFound         = errors.New("order not found")
	ErrUserNotFound          = errors.New("user not found")
	ErrAlreadyAssigned       = errors.New("order already assigned")
	ErrInvalidTransition     = errors.New("invalid status transition")
	ErrInvariantViolation    = errors.New("order invariant violated")
	ErrConflict              = errors.New("concurrent modification, retry")
	ErrDuplicateOrder        = errors.New("order already exists")
	ErrNotificationFailed    = errors.New("notification dispatch failed")
)
