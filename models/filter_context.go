package models

import (
	"time"
)

// FilterContext is the per-customer singleton recording which saved filter is
// currently "in play" and the checkpoint boundary its freshness badge was
// computed against. A second device applying the same filter inside the
// expiry window reads viewing_since from here instead of resetting the
// boundary to now.
type FilterContext struct {
	ID            uint         `gorm:"primaryKey" json:"id"`
	CustomerID    uint         `gorm:"not null;uniqueIndex:uk_filter_contexts_customer_id" json:"customer_id"`
	Customer      *Customer    `gorm:"foreignKey:CustomerID;references:ID" json:"-"`
	SavedFilterID uint         `gorm:"not null;index:idx_filter_contexts_saved_filter_id" json:"saved_filter_id"`
	SavedFilter   *SavedFilter `gorm:"foreignKey:SavedFilterID;references:ID" json:"-"`

	// Copy of the previous last_checked_at, captured before the apply
	// overwrote it; nil when the apply had no prior checkpoint.
	ViewingSince *time.Time `json:"viewing_since,omitempty"`
	ExpiresAt    time.Time  `gorm:"not null;index:idx_filter_contexts_expires_at" json:"expires_at"`

	CreatedAt time.Time  `gorm:"default:(CURRENT_TIMESTAMP AT TIME ZONE 'UTC')" json:"created_at"`
	UpdatedAt *time.Time `json:"updated_at,omitempty"`
}

func (FilterContext) TableName() string {
	return "filter_contexts"
}

// FilterContextFilter represents filter criteria for filter context queries
type FilterContextFilter struct {
	ID            *uint
	CustomerID    *uint
	SavedFilterID *uint
	ExpiredBefore *time.Time
}

// IsExpired reports whether the context is past its expiry at now
func (c *FilterContext) IsExpired(now time.Time) bool {
	return !now.Before(c.ExpiresAt)
}
