// Package repository provides data access layer implementations and interfaces for database operations
package repository

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/jobradar/jobradar/models"
	"github.com/jobradar/jobradar/utils"
	"gorm.io/gorm"
)

// ErrStaleCheckpoint is returned by a guarded badge update when a concurrent
// apply already advanced the checkpoint past the value the caller read.
var ErrStaleCheckpoint = errors.New("saved filter checkpoint already advanced")

// SavedFilterRepositoryImpl implements SavedFilterRepository interface
type SavedFilterRepositoryImpl struct {
	*BaseRepository[models.SavedFilter, models.SavedFilterFilter]
}

// NewSavedFilterRepository creates a new saved filter repository
func NewSavedFilterRepository(db *gorm.DB) SavedFilterRepository {
	return &SavedFilterRepositoryImpl{
		BaseRepository: NewBaseRepository[models.SavedFilter, models.SavedFilterFilter](db),
	}
}

// ByUUID retrieves a saved filter by UUID
func (r *SavedFilterRepositoryImpl) ByUUID(ctx context.Context, uuid string) (*models.SavedFilter, error) {
	db := r.getDB(ctx)

	var filter models.SavedFilter
	err := db.Where("uuid = ?", uuid).First(&filter).Error
	if err != nil {
		if err == gorm.ErrRecordNotFound {
			return nil, nil
		}
		return nil, fmt.Errorf("failed to find saved filter by UUID: %w", err)
	}

	return &filter, nil
}

// ListByCustomer retrieves all saved filters belonging to a customer, newest first
func (r *SavedFilterRepositoryImpl) ListByCustomer(ctx context.Context, customerID uint) ([]*models.SavedFilter, error) {
	db := r.getDB(ctx)

	var filters []*models.SavedFilter
	err := db.Where("customer_id = ?", customerID).
		Order("created_at DESC").
		Find(&filters).Error
	if err != nil {
		return nil, fmt.Errorf("failed to list saved filters: %w", err)
	}

	return filters, nil
}

// ByCustomerAndName retrieves a customer's saved filter by its unique name
func (r *SavedFilterRepositoryImpl) ByCustomerAndName(ctx context.Context, customerID uint, name string) (*models.SavedFilter, error) {
	db := r.getDB(ctx)

	var filter models.SavedFilter
	err := db.Where("customer_id = ? AND name = ?", customerID, name).First(&filter).Error
	if err != nil {
		if err == gorm.ErrRecordNotFound {
			return nil, nil
		}
		return nil, fmt.Errorf("failed to find saved filter by name: %w", err)
	}

	return &filter, nil
}

// CountByCustomer returns how many saved filters a customer currently has
func (r *SavedFilterRepositoryImpl) CountByCustomer(ctx context.Context, customerID uint) (int64, error) {
	db := r.getDB(ctx)

	var count int64
	err := db.Model(&models.SavedFilter{}).
		Where("customer_id = ?", customerID).
		Count(&count).Error
	if err != nil {
		return 0, fmt.Errorf("failed to count saved filters: %w", err)
	}

	return count, nil
}

// Update persists mutable saved filter fields (name, conditions, notifications)
func (r *SavedFilterRepositoryImpl) Update(ctx context.Context, filter *models.SavedFilter) error {
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
	err = db.Model(&models.SavedFilter{}).
		Where("id = ?", filter.ID).
		Updates(map[string]any{
			"name":                  filter.Name,
			"conditions":            filter.Conditions,
			"notifications_enabled": filter.NotificationsEnabled,
			"updated_at":            now,
		}).Error
	if err != nil {
		return fmt.Errorf("failed to update saved filter: %w", err)
	}

	return nil
}

// UpdateBadge advances the freshness checkpoint and replaces the frozen badge
// snapshot, guarded by a compare on the checkpoint the caller read. When a
// concurrent apply already moved last_checked_at, no row matches and
// ErrStaleCheckpoint is returned so the caller can adopt the winner's snapshot
// instead of overwriting it.
func (r *SavedFilterRepositoryImpl) UpdateBadge(ctx context.Context, filterID uint, prevCheckedAt, checkedAt *time.Time, snapshot *int64, expiresAt *time.Time) error {
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

	result := db.Model(&models.SavedFilter{}).
		Where("id = ? AND last_checked_at IS NOT DISTINCT FROM ?", filterID, prevCheckedAt).
		Updates(map[string]any{
			"last_checked_at":        checkedAt,
			"badge_count_snapshot":   snapshot,
			"badge_count_expires_at": expiresAt,
		})
	if result.Error != nil {
		err = fmt.Errorf("failed to update saved filter badge: %w", result.Error)
		return err
	}
	if result.RowsAffected == 0 {
		err = ErrStaleCheckpoint
		return err
	}

	return nil
}

// ClearBadge drops the checkpoint and frozen snapshot unconditionally, used
// when a conditions replacement invalidates the freshness state.
func (r *SavedFilterRepositoryImpl) ClearBadge(ctx context.Context, filterID uint) error {
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

	err = db.Model(&models.SavedFilter{}).
		Where("id = ?", filterID).
		Updates(map[string]any{
			"last_checked_at":        nil,
			"badge_count_snapshot":   nil,
			"badge_count_expires_at": nil,
		}).Error
	if err != nil {
		return fmt.Errorf("failed to clear saved filter badge: %w", err)
	}

	return nil
}

// Delete removes a saved filter
func (r *SavedFilterRepositoryImpl) Delete(ctx context.Context, filterID uint) error {
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

	err = db.Delete(&models.SavedFilter{}, filterID).Error
	if err != nil {
		return fmt.Errorf("failed to delete saved filter: %w", err)
	}

	return nil
}
