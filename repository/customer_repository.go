// Package repository provides data access layer implementations and interfaces for database operations
package repository

import (
	"context"
	"fmt"
	"strings"

	"github.com/jobradar/jobradar/models"
	"gorm.io/gorm"
)

// CustomerRepositoryImpl implements CustomerRepository interface
type CustomerRepositoryImpl struct {
	*BaseRepository[models.Customer, models.CustomerFilter]
}

// NewCustomerRepository creates a new customer repository
func NewCustomerRepository(db *gorm.DB) CustomerRepository {
	return &CustomerRepositoryImpl{
		BaseRepository: NewBaseRepository[models.Customer, models.CustomerFilter](db),
	}
}

// ByEmail retrieves a customer by email address
func (r *CustomerRepositoryImpl) ByEmail(ctx context.Context, email string) (*models.Customer, error) {
	db := r.getDB(ctx)

	var customer models.Customer
	err := db.Where("email = ?", strings.ToLower(strings.TrimSpace(email))).First(&customer).Error
	if err != nil {
		if err == gorm.ErrRecordNotFound {
			return nil, nil
		}
		return nil, fmt.Errorf("failed to find customer by email: %w", err)
	}

	return &customer, nil
}

// ByUUID retrieves a customer by UUID
func (r *CustomerRepositoryImpl) ByUUID(ctx context.Context, uuid string) (*models.Customer, error) {
	db := r.getDB(ctx)

	var customer models.Customer
	err := db.Where("uuid = ?", uuid).First(&customer).Error
	if err != nil {
		if err == gorm.ErrRecordNotFound {
			return nil, nil
		}
		return nil, fmt.Errorf("failed to find customer by UUID: %w", err)
	}

	return &customer, nil
}

// UpdatePassword updates a customer's password hash
func (r *CustomerRepositoryImpl) UpdatePassword(ctx context.Context, customerID uint, passwordHash string) error {
	db := r.getDB(ctx)

	err := db.Model(&models.Customer{}).
		Where("id = ?", customerID).
		Update("password_hash", passwordHash).Error
	if err != nil {
		return fmt.Errorf("failed to update customer password: %w", err)
	}

	return nil
}

// UpdatePreferredCurrency updates a customer's preferred display currency
func (r *CustomerRepositoryImpl) UpdatePreferredCurrency(ctx context.Context, customerID uint, currency string) error {
	db := r.getDB(ctx)

	err := db.Model(&models.Customer{}).
		Where("id = ?", customerID).
		Update("preferred_currency", strings.ToUpper(currency)).Error
	if err != nil {
		return fmt.Errorf("failed to update preferred currency: %w", err)
	}

	return nil
}
