// Package repository provides data access layer implementations and interfaces for database operations
package repository

import (
	"context"
	"fmt"

	"github.com/jobradar/jobradar/models"
	"gorm.io/gorm"
)

// FavoriteRepositoryImpl implements FavoriteRepository interface
type FavoriteRepositoryImpl struct {
	*BaseRepository[models.Favorite, models.FavoriteFilter]
}

// NewFavoriteRepository creates a new favorite repository
func NewFavoriteRepository(db *gorm.DB) FavoriteRepository {
	return &FavoriteRepositoryImpl{
		BaseRepository: NewBaseRepository[models.Favorite, models.FavoriteFilter](db),
	}
}

// ListByCustomer retrieves a customer's favorites with the job preloaded, newest first
func (r *FavoriteRepositoryImpl) ListByCustomer(ctx context.Context, customerID uint, limit, offset int) ([]*models.Favorite, error) {
	db := r.getDB(ctx)

	var favorites []*models.Favorite
	err := db.Where("customer_id = ?", customerID).
		Order("created_at DESC").
		Limit(limit).
		Offset(offset).
		Preload("Job").
		Find(&favorites).Error
	if err != nil {
		return nil, fmt.Errorf("failed to list favorites: %w", err)
	}

	return favorites, nil
}

// JobIDsByCustomer returns the IDs of every job the customer has favorited
func (r *FavoriteRepositoryImpl) JobIDsByCustomer(ctx context.Context, customerID uint) ([]uint, error) {
	db := r.getDB(ctx)

	var ids []uint
	err := db.Model(&models.Favorite{}).
		Where("customer_id = ?", customerID).
		Pluck("job_id", &ids).Error
	if err != nil {
		return nil, fmt.Errorf("failed to list favorite job IDs: %w", err)
	}

	return ids, nil
}

// Exists checks whether a customer already favorited a job
func (r *FavoriteRepositoryImpl) Exists(ctx context.Context, customerID, jobID uint) (bool, error) {
	db := r.getDB(ctx)

	var count int64
	err := db.Model(&models.Favorite{}).
		Where("customer_id = ? AND job_id = ?", customerID, jobID).
		Count(&count).Error
	if err != nil {
		return false, fmt.Errorf("failed to check favorite existence: %w", err)
	}

	return count > 0, nil
}

// Remove deletes a customer's favorite for a job
func (r *FavoriteRepositoryImpl) Remove(ctx context.Context, customerID, jobID uint) error {
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

	err = db.Where("customer_id = ? AND job_id = ?", customerID, jobID).
		Delete(&models.Favorite{}).Error
	if err != nil {
		return fmt.Errorf("failed to remove favorite: %w", err)
	}

	return nil
}
