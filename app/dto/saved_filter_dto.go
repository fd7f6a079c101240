// Package dto contains Data Transfer Objects for API request and response structures
package dto

import (
	"time"

	"github.com/jobradar/jobradar/models"
)

// CreateSavedFilterRequest represents the request to save a named filter
type CreateSavedFilterRequest struct {
	Name                 string                   `json:"name" validate:"required,min=1,max=100" example:"Remote Go jobs"`
	Conditions           []models.FilterCondition `json:"conditions" validate:"required,min=1,dive"`
	NotificationsEnabled bool                     `json:"notifications_enabled" example:"false"`
}

// UpdateSavedFilterRequest represents a partial update of a saved filter.
// Only non-nil fields are applied; replacing conditions resets freshness state.
type UpdateSavedFilterRequest struct {
	Name                 *string                   `json:"name,omitempty" validate:"omitempty,min=1,max=100"`
	Conditions           *[]models.FilterCondition `json:"conditions,omitempty" validate:"omitempty,min=1,dive"`
	NotificationsEnabled *bool                     `json:"notifications_enabled,omitempty"`
}

// SavedFilterDTO represents a saved filter in API responses
type SavedFilterDTO struct {
	ID                   uint                     `json:"id" example:"7"`
	UUID                 string                   `json:"uuid"`
	Name                 string                   `json:"name" example:"Remote Go jobs"`
	Conditions           []models.FilterCondition `json:"conditions"`
	NotificationsEnabled bool                     `json:"notifications_enabled"`
	LastCheckedAt        *time.Time               `json:"last_checked_at,omitempty"`

	// NewCount is the frozen freshness badge: how many matches appeared since
	// the filter was last applied. Nil means no badge is shown.
	NewCount       *int64     `json:"new_count,omitempty" example:"12"`
	BadgeExpiresAt *time.Time `json:"badge_expires_at,omitempty"`

	CreatedAt time.Time  `json:"created_at"`
	UpdatedAt *time.Time `json:"updated_at,omitempty"`
}

// ApplySavedFilterRequest applies a saved filter and pages through its matches
type ApplySavedFilterRequest struct {
	Page     int `json:"page" validate:"omitempty,min=1" example:"1"`
	PageSize int `json:"page_size" validate:"omitempty,min=1,max=100" example:"20"`
}

// ApplySavedFilterResult is the outcome of applying a saved filter: the page of
// matches plus the viewing boundary the "new" divider should be drawn at.
type ApplySavedFilterResult struct {
	Filter       SavedFilterDTO   `json:"filter"`
	Results      SearchJobsResult `json:"results"`
	ViewingSince *time.Time       `json:"viewing_since,omitempty"`
}

// FilterContextDTO describes the customer's cross-device viewing context
type FilterContextDTO struct {
	SavedFilterID   uint       `json:"saved_filter_id"`
	SavedFilterUUID string     `json:"saved_filter_uuid"`
	ViewingSince    *time.Time `json:"viewing_since,omitempty"`
	ExpiresAt       time.Time  `json:"expires_at"`
}

// Common error codes for saved filter operations
const (
	ErrorSavedFilterNotFound = "SAVED_FILTER_NOT_FOUND"
	ErrorSavedFilterDenied   = "SAVED_FILTER_ACCESS_DENIED"
	ErrorQuotaReached        = "SAVED_FILTER_QUOTA_REACHED"
	ErrorNameTaken           = "SAVED_FILTER_NAME_TAKEN"
)
