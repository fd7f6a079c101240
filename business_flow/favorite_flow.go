// Package businessflow contains the core business logic and use cases for search and saved-filter workflows
package businessflow

import (
	"context"
	"fmt"

	"github.com/jobradar/jobradar/app/dto"
	"github.com/jobradar/jobradar/models"
	"github.com/jobradar/jobradar/repository"
	"github.com/jobradar/jobradar/utils"
	"gorm.io/gorm"
)

// FavoriteFlow handles bookmarking of job postings
type FavoriteFlow interface {
	AddFavorite(ctx context.Context, customerID, jobID uint, metadata *ClientMetadata) error
	RemoveFavorite(ctx context.Context, customerID, jobID uint, metadata *ClientMetadata) error
	ListFavorites(ctx context.Context, customerID uint, page, pageSize int) ([]dto.JobDTO, error)
}

// FavoriteFlowImpl implements the favorite business flow
type FavoriteFlowImpl struct {
	favoriteRepo repository.FavoriteRepository
	jobRepo      repository.JobRepository
	auditRepo    repository.AuditLogRepository
	db           *gorm.DB
}

// NewFavoriteFlow creates a new favorite flow instance
func NewFavoriteFlow(
	favoriteRepo repository.FavoriteRepository,
	jobRepo repository.JobRepository,
	auditRepo repository.AuditLogRepository,
	db *gorm.DB,
) FavoriteFlow {
	return &FavoriteFlowImpl{
		favoriteRepo: favoriteRepo,
		jobRepo:      jobRepo,
		auditRepo:    auditRepo,
		db:           db,
	}
}

// AddFavorite bookmarks a job for the customer
func (ff *FavoriteFlowImpl) AddFavorite(ctx context.Context, customerID, jobID uint, metadata *ClientMetadata) error {
	err := repository.WithTransaction(ctx, ff.db, func(ctx context.Context) error {
		job, err := ff.jobRepo.ByID(ctx, jobID)
		if err != nil {
			return err
		}
		if job == nil {
			return ErrJobNotFound
		}

		exists, err := ff.favoriteRepo.Exists(ctx, customerID, jobID)
		if err != nil {
			return err
		}
		if exists {
			return ErrAlreadyFavorited
		}

		return ff.favoriteRepo.Save(ctx, &models.Favorite{
			CustomerID: customerID,
			JobID:      jobID,
		})
	})

	if err != nil {
		return NewBusinessError("FAVORITE_ADD_FAILED", "Failed to add favorite", err)
	}

	msg := fmt.Sprintf("Job favorited: %d", jobID)
	ff.logFavoriteEvent(ctx, customerID, models.AuditActionFavoriteAdded, msg, metadata)
	return nil
}

// RemoveFavorite removes a bookmark
func (ff *FavoriteFlowImpl) RemoveFavorite(ctx context.Context, customerID, jobID uint, metadata *ClientMetadata) error {
	exists, err := ff.favoriteRepo.Exists(ctx, customerID, jobID)
	if err != nil {
		return NewBusinessError("FAVORITE_REMOVE_FAILED", "Failed to remove favorite", err)
	}
	if !exists {
		return NewBusinessError("FAVORITE_NOT_FOUND", "Favorite not found", ErrFavoriteNotFound)
	}

	if err := ff.favoriteRepo.Remove(ctx, customerID, jobID); err != nil {
		return NewBusinessError("FAVORITE_REMOVE_FAILED", "Failed to remove favorite", err)
	}

	msg := fmt.Sprintf("Job unfavorited: %d", jobID)
	ff.logFavoriteEvent(ctx, customerID, models.AuditActionFavoriteRemoved, msg, metadata)
	return nil
}

// ListFavorites returns the customer's bookmarked jobs, newest bookmark first
func (ff *FavoriteFlowImpl) ListFavorites(ctx context.Context, customerID uint, page, pageSize int) ([]dto.JobDTO, error) {
	if page < 1 {
		page = 1
	}
	if pageSize < 1 {
		pageSize = 20
	}

	favorites, err := ff.favoriteRepo.ListByCustomer(ctx, customerID, pageSize, (page-1)*pageSize)
	if err != nil {
		return nil, NewBusinessError("FAVORITE_LIST_FAILED", "Failed to list favorites", err)
	}

	jobs := make([]dto.JobDTO, 0, len(favorites))
	for _, fav := range favorites {
		if fav.Job == nil {
			continue
		}
		jobs = append(jobs, ToJobDTO(*fav.Job, true))
	}
	return jobs, nil
}

func (ff *FavoriteFlowImpl) logFavoriteEvent(ctx context.Context, customerID uint, action, description string, metadata *ClientMetadata) {
	ipAddress := "127.0.0.1"
	userAgent := ""
	if metadata != nil {
		ipAddress = metadata.IPAddress
		userAgent = metadata.UserAgent
	}

	audit := &models.AuditLog{
		CustomerID:  &customerID,
		Action:      action,
		Description: &description,
		Success:     utils.ToPtr(true),
		IPAddress:   &ipAddress,
		UserAgent:   &userAgent,
	}

	if requestID, ok := ctx.Value(RequestIDKey).(string); ok {
		audit.RequestID = &requestID
	}

	_ = ff.auditRepo.Save(ctx, audit)
}
