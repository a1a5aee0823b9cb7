package service

import (
	"errors"
	"fmt"
)

var (
	ErrValidation         = errors.New("validation failed")
	ErrDuplicateUsername  = errors.New("username is already taken")
	ErrDuplicateEmail     = errors.New("email is already registered")
	ErrInvalidCredentials = errors.New("invalid email or password")
	ErrNotFound           = errors.New("sweet not found")
	ErrInsufficientStock  = errors.New("insufficient stock")
	ErrInvalidQuantity    = fmt.Errorf("%w: quantity must be positive", ErrValidation)
	ErrUnauthorized       = errors.New("authentication required")
	ErrForbidden          = errors.New("admin access required")
	ErrSearchUnavailable  = errors.New("full-text search is not configured")
)

func validation(msg string) error {
	return fmt.Errorf("%w: %s", ErrValidation, msg)
}
