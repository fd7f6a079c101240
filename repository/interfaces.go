// Package repository provides data access layer implementations and interfaces for database operations
package repository

import (
	"context"
	"time"

	"github.com/jobradar/jobradar/filterengine"
	"github.com/jobradar/jobradar/models"
)

// RepositoryContext key for transaction in context
type contextKey string

const TxContextKey contextKey = "tx"

type Repository[T any, F any] interface {
	ByID(ctx context.Context, id uint) (*T, error)
	Save(ctx context.Context, entity *T) error
	SaveBatch(ctx context.Context, entities []*T) error
}

// CustomerRepository defines operations for customers
type CustomerRepository interface {
	Repository[models.Customer, models.CustomerFilter]
	ByEmail(ctx context.Context, email string) (*models.Customer, error)
	ByUUID(ctx context.Context, uuid string) (*models.Customer, error)
	UpdatePassword(ctx context.Context, customerID uint, passwordHash string) error
	UpdatePreferredCurrency(ctx context.Context, customerID uint, currency string) error
}

// JobRepository defines operations for job postings, including plan-driven search
type JobRepository interface {
	Repository[models.Job, models.JobFilter]
	SearchByPlan(ctx context.Context, plan *filterengine.QueryPlan, limit, offset int) ([]*models.Job, int64, error)
	CountByPlan(ctx context.Context, plan *filterengine.QueryPlan) (int64, error)
	CountNewSince(ctx context.Context, plan *filterengine.QueryPlan, since time.Time) (int64, error)
	ByIDs(ctx context.Context, ids []uint) ([]*models.Job, error)
	UpsertBatch(ctx context.Context, jobs []*models.Job) (int64, error)
	Sample(ctx context.Context, limit int) ([]*models.Job, error)
	DistinctSalaryCurrencies(ctx context.Context) ([]string, error)
}

// SavedFilterRepository defines operations for saved filters and their freshness snapshots
type SavedFilterRepository interface {
	Repository[models.SavedFilter, models.SavedFilterFilter]
	ByUUID(ctx context.Context, uuid string) (*models.SavedFilter, error)
	ListByCustomer(ctx context.Context, customerID uint) ([]*models.SavedFilter, error)
	ByCustomerAndName(ctx context.Context, customerID uint, name string) (*models.SavedFilter, error)
	CountByCustomer(ctx context.Context, customerID uint) (int64, error)
	Update(ctx context.Context, filter *models.SavedFilter) error
	UpdateBadge(ctx context.Context, filterID uint, prevCheckedAt, checkedAt *time.Time, snapshot *int64, expiresAt *time.Time) error
	ClearBadge(ctx context.Context, filterID uint) error
	Delete(ctx context.Context, filterID uint) error
}

// FilterContextRepository defines operations for the cross-device viewing context
type FilterContextRepository interface {
	Repository[models.FilterContext, models.FilterContextFilter]
	ByCustomer(ctx context.Context, customerID uint) (*models.FilterContext, error)
	Upsert(ctx context.Context, fc *models.FilterContext) error
	DeleteByCustomer(ctx context.Context, customerID uint) error
	DeleteBySavedFilter(ctx context.Context, savedFilterID uint) error
	DeleteExpired(ctx context.Context, now time.Time) (int64, error)
}

// FavoriteRepository defines operations for favorited jobs
type FavoriteRepository interface {
	Repository[models.Favorite, models.FavoriteFilter]
	ListByCustomer(ctx context.Context, customerID uint, limit, offset int) ([]*models.Favorite, error)
	JobIDsByCustomer(ctx context.Context, customerID uint) ([]uint, error)
	Exists(ctx context.Context, customerID, jobID uint) (bool, error)
	Remove(ctx context.Context, customerID, jobID uint) error
}

// AuditLogRepository defines operations for audit logs
type AuditLogRepository interface {
	Repository[models.AuditLog, models.AuditLogFilter]
	ListByCustomer(ctx context.Context, customerID uint, limit, offset int) ([]*models.AuditLog, error)
	ListByAction(ctx context.Context, action string, limit, offset int) ([]*models.AuditLog, error)
}
