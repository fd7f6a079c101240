// Package businessflow contains the core business logic and use cases for search and saved-filter workflows
package businessflow

import (
	"errors"
	"fmt"
)

// Business flow error constants
var (
	// Customer-related errors
	ErrCustomerNotFound   = errors.New("customer not found")
	ErrAccountInactive    = errors.New("account is inactive")
	ErrIncorrectPassword  = errors.New("incorrect password")
	ErrEmailAlreadyExists = errors.New("email already exists")

	// Saved filter errors
	ErrSavedFilterNotFound     = errors.New("saved filter not found")
	ErrSavedFilterAccessDenied = errors.New("saved filter access denied")
	ErrSavedFilterQuotaReached = errors.New("saved filter quota reached")
	ErrSavedFilterNameTaken    = errors.New("a saved filter with this name already exists")
	ErrSavedFilterNameRequired = errors.New("saved filter name is required")
	ErrNoConditions            = errors.New("at least one condition is required")
	ErrInvalidConditions       = errors.New("filter conditions are invalid")

	// Job search errors
	ErrJobNotFound       = errors.New("job not found")
	ErrInvalidPage       = errors.New("page must be at least 1")
	ErrInvalidPageSize   = errors.New("page size must be between 1 and 100")
	ErrExportTooLarge    = errors.New("export exceeds the maximum row limit")
	ErrCacheNotAvailable = errors.New("cache not available")

	// Favorite errors
	ErrAlreadyFavorited = errors.New("job is already favorited")
	ErrFavoriteNotFound = errors.New("favorite not found")
)

type BusinessError struct {
	Code    string
	Message string
	Err     error
}

func (e *BusinessError) Error() string {
	if e.Err != nil {
		return fmt.Sprintf("%s: %v", e.Message, e.Err)
	}
	return e.Message
}

func (e *BusinessError) Unwrap() error {
	return e.Err
}

func NewBusinessError(code, message string, err error) *BusinessError {
	return &BusinessError{
		Code:    code,
		Message: message,
		Err:     err,
	}
}

func NewBusinessErrorf(code, message string, err error, args ...any) *BusinessError {
	return &BusinessError{
		Code:    code,
		Message: fmt.Sprintf(message, args...),
		Err:     err,
	}
}

func IsCustomerNotFound(err error) bool {
	return errors.Is(err, ErrCustomerNotFound)
}

func IsAccountInactive(err error) bool {
	return errors.Is(err, ErrAccountInactive)
}

func IsIncorrectPassword(err error) bool {
	return errors.Is(err, ErrIncorrectPassword)
}

func IsEmailAlreadyExists(err error) bool {
	return errors.Is(err, ErrEmailAlreadyExists)
}

func IsSavedFilterNotFound(err error) bool {
	return errors.Is(err, ErrSavedFilterNotFound)
}

func IsSavedFilterAccessDenied(err error) bool {
	return errors.Is(err, ErrSavedFilterAccessDenied)
}

func IsSavedFilterQuotaReached(err error) bool {
	return errors.Is(err, ErrSavedFilterQuotaReached)
}

func IsSavedFilterNameTaken(err error) bool {
	return errors.Is(err, ErrSavedFilterNameTaken)
}

func IsSavedFilterNameRequired(err error) bool {
	return errors.Is(err, ErrSavedFilterNameRequired)
}

func IsNoConditions(err error) bool {
	return errors.Is(err, ErrNoConditions)
}

func IsInvalidConditions(err error) bool {
	return errors.Is(err, ErrInvalidConditions)
}

func IsJobNotFound(err error) bool {
	return errors.Is(err, ErrJobNotFound)
}

func IsInvalidPage(err error) bool {
	return errors.Is(err, ErrInvalidPage)
}

func IsInvalidPageSize(err error) bool {
	return errors.Is(err, ErrInvalidPageSize)
}

func IsExportTooLarge(err error) bool {
	return errors.Is(err, ErrExportTooLarge)
}

func IsCacheNotAvailable(err error) bool {
	return errors.Is(err, ErrCacheNotAvailable)
}

func IsAlreadyFavorited(err error) bool {
	return errors.Is(err, ErrAlreadyFavorited)
}

func IsFavoriteNotFound(err error) bool {
	return errors.Is(err, ErrFavoriteNotFound)
}
