// Package repository provides data access layer implementations and interfaces for database operations
package repository

import (
	"context"
	"fmt"
	"time"

	"github.com/jobradar/jobradar/models"
	"github.com/jobradar/jobradar/utils"
	"gorm.io/gorm"
	"gorm.io/gorm/clause"
)

// FilterContextRepositoryImpl implements FilterContextRepository interface
type FilterContextRepositoryImpl struct {
	*BaseRepository[models.FilterContext, models.FilterContextFilter]
}

// NewFilterContextRepository creates a new filter context repository
func NewFilterContextRepository(db *gorm.DB) FilterContextRepository {
	return &FilterContextRepositoryImpl{
		BaseRepository: NewBaseRepository[models.FilterContext, models.FilterContextFilter](db),
	}
}

// ByCustomer retrieves a customer's current filter context, if any
func (r *FilterContextRepositoryImpl) ByCustomer(ctx context.Context, customerID uint) (*models.FilterContext, error) {
	db := r.getDB(ctx)

	var fc models.FilterContext
	err := db.Where("customer_id = ?", customerID).First(&fc).Error
	if err != nil {
		if err == gorm.ErrRecordNotFound {
			return nil, nil
		}
		return nil, fmt.Errorf("failed to find filter context: %w", err)
	}

	return &fc, nil
}

// Upsert writes the customer's singleton context, replacing any existing row
func (r *FilterContextRepositoryImpl) Upsert(ctx context.Context, fc *models.FilterContext) error {
	db, shouldCommit, err := r.getDBForWrite(ctx)
	if err != nil {
		return err
	}

	if shouldCommit {
		defer func() {
			if err != nil {
				db.Rollback()
			} else {
				db.Commit()
			}
		}()
	}

	now := utils.UTCNow()
	err = db.Clauses(clause.OnConflict{
		Columns: []clause.Column{{Name: "customer_id"}},
		DoUpdates: clause.Assignments(map[string]any{
			"saved_filter_id": fc.SavedFilterID,
			"viewing_since":   fc.ViewingSince,
			"expires_at":      fc.ExpiresAt,
			"updated_at":      now,
		}),
	}).Create(fc).Error
	if err != nil {
		return fmt.Errorf("failed to upsert filter context: %w", err)
	}

	return nil
}

// DeleteByCustomer removes a customer's context
func (r *FilterContextRepositoryImpl) DeleteByCustomer(ctx context.Context, customerID uint) error {
	db, shouldCommit, err := r.getDBForWrite(ctx)
	if err != nil {
		return err
	}

	if shouldCommit {
		defer func() {
			if err != nil {
				db.Rollback()
			} else {
				db.Commit()
			}
		}()
	}

	err = db.Where("customer_id = ?", customerID).Delete(&models.FilterContext{}).Error
	if err != nil {
		return fmt.Errorf("failed to delete filter context: %w", err)
	}

	return nil
}

// DeleteBySavedFilter removes any contexts referencing a saved filter, used when the filter is deleted
func (r *FilterContextRepositoryImpl) DeleteBySavedFilter(ctx context.Context, savedFilterID uint) error {
	db, shouldCommit, err := r.getDBForWrite(ctx)
	if err != nil {
		return err
	}

	if shouldCommit {
		defer func() {
			if err != nil {
				db.Rollback()
			} else {
				db.Commit()
			}
		}()
	}

	err = db.Where("saved_filter_id = ?", savedFilterID).Delete(&models.FilterContext{}).Error
	if err != nil {
		return fmt.Errorf("failed to delete filter contexts for saved filter: %w", err)
	}

	return nil
}

// DeleteExpired removes contexts past their expiry and returns how many were removed
func (r *FilterContextRepositoryImpl) DeleteExpired(ctx context.Context, now time.Time) (int64, error) {
	db, shouldCommit, err := r.getDBForWrite(ctx)
	if err != nil {
		return 0, err
	}

	if shouldCommit {
		defer func() {
			if err != nil {
				db.Rollback()
			} else {
				db.Commit()
			}
		}()
	}

	result := db.Where("expires_at <= ?", now).Delete(&models.FilterContext{})
	if result.Error != nil {
		err = fmt.Errorf("failed to delete expired filter contexts: %w", result.Error)
		return 0, err
	}

	return result.RowsAffected, nil
}
