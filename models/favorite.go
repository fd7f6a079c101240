package models

import (
	"time"
)

// Favorite marks a job posting bookmarked by a customer
type Favorite struct {
	ID         uint      `gorm:"primaryKey" json:"id"`
	CustomerID uint      `gorm:"not null;uniqueIndex:uk_favorites_customer_job;index:idx_favorites_customer_id" json:"customer_id"`
	Customer   *Customer `gorm:"foreignKey:CustomerID;references:ID" json:"-"`
	JobID      uint      `gorm:"not null;uniqueIndex:uk_favorites_customer_job" json:"job_id"`
	Job        *Job      `gorm:"foreignKey:JobID;references:ID" json:"job,omitempty"`

	CreatedAt time.Time `gorm:"default:(CURRENT_TIMESTAMP AT TIME ZONE 'UTC');index:idx_favorites_created_at" json:"created_at"`
}

func (Favorite) TableName() string {
	return "favorites"
}

// FavoriteFilter represents filter criteria for favorite queries
type FavoriteFilter struct {
	ID         *uint
	CustomerID *uint
	JobID      *uint
}
