// Package businessflow contains the core business logic and use cases for search and saved-filter workflows
package businessflow

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/google/uuid"
	"github.com/jobradar/jobradar/app/dto"
	"github.com/jobradar/jobradar/app/middleware"
	"github.com/jobradar/jobradar/app/services"
	"github.com/jobradar/jobradar/config"
	"github.com/jobradar/jobradar/filterengine"
	"github.com/jobradar/jobradar/models"
	"github.com/jobradar/jobradar/repository"
	"github.com/jobradar/jobradar/utils"
	"gorm.io/gorm"
)

// SavedFilterFlow handles the saved-filter lifecycle and the apply workflow
// with its freshness badge state machine.
type SavedFilterFlow interface {
	CreateSavedFilter(ctx context.Context, customerID uint, request *dto.CreateSavedFilterRequest, metadata *ClientMetadata) (*dto.SavedFilterDTO, error)
	ListSavedFilters(ctx context.Context, customerID uint) ([]dto.SavedFilterDTO, error)
	UpdateSavedFilter(ctx context.Context, customerID uint, filterUUID string, request *dto.UpdateSavedFilterRequest, metadata *ClientMetadata) (*dto.SavedFilterDTO, error)
	DeleteSavedFilter(ctx context.Context, customerID uint, filterUUID string, metadata *ClientMetadata) error
	ApplySavedFilter(ctx context.Context, customerID uint, filterUUID string, request *dto.ApplySavedFilterRequest, metadata *ClientMetadata) (*dto.ApplySavedFilterResult, error)
	GetFilterContext(ctx context.Context, customerID uint) (*dto.FilterContextDTO, error)
	ClearFilterContext(ctx context.Context, customerID uint, metadata *ClientMetadata) error
}

// SavedFilterFlowImpl implements the saved filter business flow
type SavedFilterFlowImpl struct {
	savedFilterRepo repository.SavedFilterRepository
	contextRepo     repository.FilterContextRepository
	jobRepo         repository.JobRepository
	favoriteRepo    repository.FavoriteRepository
	auditRepo       repository.AuditLogRepository
	rateService     services.ExchangeRateService
	cfg             *config.FiltersConfig
	location        *time.Location
	db              *gorm.DB
}

// NewSavedFilterFlow creates a new saved filter flow instance
func NewSavedFilterFlow(
	savedFilterRepo repository.SavedFilterRepository,
	contextRepo repository.FilterContextRepository,
	jobRepo repository.JobRepository,
	favoriteRepo repository.FavoriteRepository,
	auditRepo repository.AuditLogRepository,
	rateService services.ExchangeRateService,
	cfg *config.FiltersConfig,
	db *gorm.DB,
) SavedFilterFlow {
	loc, err := time.LoadLocation(cfg.Timezone)
	if err != nil {
		loc = time.UTC
	}
	return &SavedFilterFlowImpl{
		savedFilterRepo: savedFilterRepo,
		contextRepo:     contextRepo,
		jobRepo:         jobRepo,
		favoriteRepo:    favoriteRepo,
		auditRepo:       auditRepo,
		rateService:     rateService,
		cfg:             cfg,
		location:        loc,
		db:              db,
	}
}

// CreateSavedFilter saves a named condition list, subject to the per-customer quota
func (sf *SavedFilterFlowImpl) CreateSavedFilter(ctx context.Context, customerID uint, request *dto.CreateSavedFilterRequest, metadata *ClientMetadata) (*dto.SavedFilterDTO, error) {
	name := strings.TrimSpace(request.Name)
	if name == "" {
		return nil, NewBusinessError("NAME_REQUIRED", "Saved filter name is required", ErrSavedFilterNameRequired)
	}
	if len(request.Conditions) == 0 {
		return nil, NewBusinessError("NO_CONDITIONS", "At least one condition is required", ErrNoConditions)
	}
	if err := filterengine.ValidateConditions(request.Conditions); err != nil {
		return nil, NewBusinessError("INVALID_CONDITIONS", "Filter conditions are invalid", err)
	}

	var filter *models.SavedFilter

	err := repository.WithTransaction(ctx, sf.db, func(ctx context.Context) error {
		count, err := sf.savedFilterRepo.CountByCustomer(ctx, customerID)
		if err != nil {
			return err
		}
		if count >= int64(sf.cfg.MaxSavedFilters) {
			return ErrSavedFilterQuotaReached
		}

		existing, err := sf.savedFilterRepo.ByCustomerAndName(ctx, customerID, name)
		if err != nil {
			return err
		}
		if existing != nil {
			return ErrSavedFilterNameTaken
		}

		filter = &models.SavedFilter{
			UUID:                 uuid.New(),
			CustomerID:           customerID,
			Name:                 name,
			Conditions:           request.Conditions,
			NotificationsEnabled: utils.ToPtr(request.NotificationsEnabled),
		}
		return sf.savedFilterRepo.Save(ctx, filter)
	})

	if err != nil {
		errMsg := fmt.Sprintf("Saved filter creation failed: %s", err.Error())
		sf.logFilterEvent(ctx, customerID, models.AuditActionSavedFilterCreateFailed, errMsg, false, metadata)
		return nil, NewBusinessError("SAVED_FILTER_CREATE_FAILED", "Failed to create saved filter", err)
	}

	msg := fmt.Sprintf("Saved filter created: %s", filter.UUID)
	sf.logFilterEvent(ctx, customerID, models.AuditActionSavedFilterCreated, msg, true, metadata)

	result := ToSavedFilterDTO(*filter, utils.UTCNow())
	return &result, nil
}

// ListSavedFilters returns all of a customer's saved filters with live badge state
func (sf *SavedFilterFlowImpl) ListSavedFilters(ctx context.Context, customerID uint) ([]dto.SavedFilterDTO, error) {
	filters, err := sf.savedFilterRepo.ListByCustomer(ctx, customerID)
	if err != nil {
		return nil, NewBusinessError("SAVED_FILTER_LIST_FAILED", "Failed to list saved filters", err)
	}

	now := utils.UTCNow()
	out := make([]dto.SavedFilterDTO, 0, len(filters))
	for _, f := range filters {
		out = append(out, ToSavedFilterDTO(*f, now))
	}
	return out, nil
}

// UpdateSavedFilter applies a partial update. Replacing the condition list
// resets the freshness state: the old checkpoint describes matches of the old
// conditions and cannot be carried over.
func (sf *SavedFilterFlowImpl) UpdateSavedFilter(ctx context.Context, customerID uint, filterUUID string, request *dto.UpdateSavedFilterRequest, metadata *ClientMetadata) (*dto.SavedFilterDTO, error) {
	var updated *models.SavedFilter

	err := repository.WithTransaction(ctx, sf.db, func(ctx context.Context) error {
		filter, err := sf.ownedFilter(ctx, customerID, filterUUID)
		if err != nil {
			return err
		}

		conditionsReplaced := false

		if request.Name != nil {
			name := strings.TrimSpace(*request.Name)
			if name == "" {
				return ErrSavedFilterNameRequired
			}
			if name != filter.Name {
				existing, err := sf.savedFilterRepo.ByCustomerAndName(ctx, customerID, name)
				if err != nil {
					return err
				}
				if existing != nil && existing.ID != filter.ID {
					return ErrSavedFilterNameTaken
				}
				filter.Name = name
			}
		}

		if request.Conditions != nil {
			if len(*request.Conditions) == 0 {
				return ErrNoConditions
			}
			if err := filterengine.ValidateConditions(*request.Conditions); err != nil {
				return ErrInvalidConditions
			}
			filter.Conditions = *request.Conditions
			conditionsReplaced = true
		}

		if request.NotificationsEnabled != nil {
			filter.NotificationsEnabled = request.NotificationsEnabled
		}

		if err := sf.savedFilterRepo.Update(ctx, filter); err != nil {
			return err
		}

		if conditionsReplaced {
			if err := sf.savedFilterRepo.ClearBadge(ctx, filter.ID); err != nil {
				return err
			}
			filter.LastCheckedAt = nil
			filter.BadgeCountSnapshot = nil
			filter.BadgeCountExpiresAt = nil

			if err := sf.contextRepo.DeleteBySavedFilter(ctx, filter.ID); err != nil {
				return err
			}
		}

		updated = filter
		return nil
	})

	if err != nil {
		return nil, NewBusinessError("SAVED_FILTER_UPDATE_FAILED", "Failed to update saved filter", err)
	}

	msg := fmt.Sprintf("Saved filter updated: %s", updated.UUID)
	sf.logFilterEvent(ctx, customerID, models.AuditActionSavedFilterUpdated, msg, true, metadata)

	result := ToSavedFilterDTO(*updated, utils.UTCNow())
	return &result, nil
}

// DeleteSavedFilter removes a saved filter and any viewing context pointing at it
func (sf *SavedFilterFlowImpl) DeleteSavedFilter(ctx context.Context, customerID uint, filterUUID string, metadata *ClientMetadata) error {
	err := repository.WithTransaction(ctx, sf.db, func(ctx context.Context) error {
		filter, err := sf.ownedFilter(ctx, customerID, filterUUID)
		if err != nil {
			return err
		}

		if err := sf.contextRepo.DeleteBySavedFilter(ctx, filter.ID); err != nil {
			return err
		}
		return sf.savedFilterRepo.Delete(ctx, filter.ID)
	})

	if err != nil {
		return NewBusinessError("SAVED_FILTER_DELETE_FAILED", "Failed to delete saved filter", err)
	}

	msg := fmt.Sprintf("Saved filter deleted: %s", filterUUID)
	sf.logFilterEvent(ctx, customerID, models.AuditActionSavedFilterDeleted, msg, true, metadata)
	return nil
}

// ApplySavedFilter runs a saved filter and maintains its freshness badge.
//
// The badge is the number of matches first seen after the previous checkpoint,
// frozen at the moment of computation and held stable until its expiry. While
// the frozen snapshot is fresh, repeated applies (from any device) reuse it and
// the shared viewing boundary instead of recomputing, so the "N new" number a
// customer saw on one device is the number they see on the next.
func (sf *SavedFilterFlowImpl) ApplySavedFilter(ctx context.Context, customerID uint, filterUUID string, request *dto.ApplySavedFilterRequest, metadata *ClientMetadata) (*dto.ApplySavedFilterResult, error) {
	page, pageSize, err := sf.normalizePagination(request.Page, request.PageSize)
	if err != nil {
		return nil, NewBusinessError("INVALID_PAGINATION", "Invalid pagination", err)
	}

	var (
		applied      *models.SavedFilter
		viewingSince *time.Time
		plan         filterengine.QueryPlan
	)

	err = repository.WithTransaction(ctx, sf.db, func(ctx context.Context) error {
		filter, err := sf.ownedFilter(ctx, customerID, filterUUID)
		if err != nil {
			return err
		}

		now := utils.UTCNow()

		plan, err = sf.compilePlan(ctx, filter.Conditions)
		if err != nil {
			return err
		}

		if filter.HasFreshSnapshot(now) {
			// Frozen badge still fresh: reuse it and the shared viewing
			// boundary; extend the context to the badge's lifetime.
			viewingSince, err = sf.reuseContext(ctx, customerID, filter, now)
			if err != nil {
				return err
			}

			applied = filter
			middleware.BadgeComputationsTotal.WithLabelValues("reused").Inc()
			return nil
		}

		// Snapshot absent or expired: compute a new badge against the previous
		// checkpoint and advance the checkpoint to now.
		expiresAt := utils.BadgeExpiry(now, sf.cfg.BadgeMaxTTL, sf.cfg.DailyRefreshHour, sf.location)

		var badge int64
		prevCheckedAt := filter.LastCheckedAt
		if prevCheckedAt != nil {
			badge, err = sf.jobRepo.CountNewSince(ctx, &plan, *prevCheckedAt)
			if err != nil {
				// A failed delta count must not block the apply; show no new
				// matches and still advance the checkpoint.
				badge = 0
				middleware.BadgeComputationsTotal.WithLabelValues("delta_failed").Inc()
			} else {
				middleware.BadgeComputationsTotal.WithLabelValues("computed").Inc()
			}
		} else {
			middleware.BadgeComputationsTotal.WithLabelValues("first_apply").Inc()
		}

		if err := sf.savedFilterRepo.UpdateBadge(ctx, filter.ID, prevCheckedAt, &now, &badge, &expiresAt); err != nil {
			if !errors.Is(err, repository.ErrStaleCheckpoint) {
				return err
			}

			// A concurrent apply advanced the checkpoint first. Adopt its
			// snapshot so both devices show the same badge.
			winner, err := sf.savedFilterRepo.ByID(ctx, filter.ID)
			if err != nil {
				return err
			}
			if winner == nil {
				return ErrSavedFilterNotFound
			}

			applied = winner
			middleware.BadgeComputationsTotal.WithLabelValues("reused").Inc()
			if winner.HasFreshSnapshot(now) {
				viewingSince, err = sf.reuseContext(ctx, customerID, winner, now)
				return err
			}
			return nil
		}

		viewingSince = prevCheckedAt
		if err := sf.contextRepo.Upsert(ctx, &models.FilterContext{
			CustomerID:    customerID,
			SavedFilterID: filter.ID,
			ViewingSince:  viewingSince,
			ExpiresAt:     expiresAt,
		}); err != nil {
			return err
		}

		filter.LastCheckedAt = &now
		filter.BadgeCountSnapshot = &badge
		filter.BadgeCountExpiresAt = &expiresAt
		applied = filter
		return nil
	})

	if err != nil {
		errMsg := fmt.Sprintf("Saved filter apply failed: %s", err.Error())
		sf.logFilterEvent(ctx, customerID, models.AuditActionSavedFilterApplyFailed, errMsg, false, metadata)
		return nil, NewBusinessError("SAVED_FILTER_APPLY_FAILED", "Failed to apply saved filter", err)
	}

	jobs, total, err := sf.jobRepo.SearchByPlan(ctx, &plan, pageSize, (page-1)*pageSize)
	if err != nil {
		return nil, NewBusinessError("SEARCH_FAILED", "Job search failed", err)
	}

	msg := fmt.Sprintf("Saved filter applied: %s", applied.UUID)
	sf.logFilterEvent(ctx, customerID, models.AuditActionSavedFilterApplied, msg, true, metadata)

	favoriteIDs := make(map[uint]bool)
	if ids, err := sf.favoriteRepo.JobIDsByCustomer(ctx, customerID); err == nil {
		for _, id := range ids {
			favoriteIDs[id] = true
		}
	}

	jobDTOs := make([]dto.JobDTO, 0, len(jobs))
	for _, job := range jobs {
		jobDTOs = append(jobDTOs, ToJobDTO(*job, favoriteIDs[job.ID]))
	}

	totalPages := int((total + int64(pageSize) - 1) / int64(pageSize))
	return &dto.ApplySavedFilterResult{
		Filter: ToSavedFilterDTO(*applied, utils.UTCNow()),
		Results: dto.SearchJobsResult{
			Jobs:       jobDTOs,
			Total:      total,
			Page:       page,
			PageSize:   pageSize,
			TotalPages: totalPages,
			ShareURL:   filterengine.EncodeConditions(applied.Conditions),
		},
		ViewingSince: viewingSince,
	}, nil
}

// GetFilterContext returns the customer's unexpired viewing context, if any
func (sf *SavedFilterFlowImpl) GetFilterContext(ctx context.Context, customerID uint) (*dto.FilterContextDTO, error) {
	fc, err := sf.contextRepo.ByCustomer(ctx, customerID)
	if err != nil {
		return nil, err
	}
	if fc == nil || fc.IsExpired(utils.UTCNow()) {
		return nil, nil
	}

	filter, err := sf.savedFilterRepo.ByID(ctx, fc.SavedFilterID)
	if err != nil || filter == nil {
		return nil, err
	}

	return &dto.FilterContextDTO{
		SavedFilterID:   fc.SavedFilterID,
		SavedFilterUUID: filter.UUID.String(),
		ViewingSince:    fc.ViewingSince,
		ExpiresAt:       fc.ExpiresAt,
	}, nil
}

// ClearFilterContext drops the customer's viewing context
func (sf *SavedFilterFlowImpl) ClearFilterContext(ctx context.Context, customerID uint, metadata *ClientMetadata) error {
	if err := sf.contextRepo.DeleteByCustomer(ctx, customerID); err != nil {
		return NewBusinessError("CONTEXT_CLEAR_FAILED", "Failed to clear filter context", err)
	}

	sf.logFilterEvent(ctx, customerID, models.AuditActionFilterContextCleared, "Filter context cleared", true, metadata)
	return nil
}

// Private helper methods

func (sf *SavedFilterFlowImpl) ownedFilter(ctx context.Context, customerID uint, filterUUID string) (*models.SavedFilter, error) {
	filter, err := sf.savedFilterRepo.ByUUID(ctx, filterUUID)
	if err != nil {
		return nil, err
	}
	if filter == nil {
		return nil, ErrSavedFilterNotFound
	}
	if filter.CustomerID != customerID {
		return nil, ErrSavedFilterAccessDenied
	}
	return filter, nil
}

// reuseContext extends the shared viewing context to the frozen badge's
// lifetime and returns the boundary results should be read against: the
// context's own boundary when it still points at this filter, otherwise the
// filter's checkpoint.
func (sf *SavedFilterFlowImpl) reuseContext(ctx context.Context, customerID uint, filter *models.SavedFilter, now time.Time) (*time.Time, error) {
	existing, err := sf.contextRepo.ByCustomer(ctx, customerID)
	if err != nil {
		return nil, err
	}

	viewingSince := filter.LastCheckedAt
	if existing != nil && existing.SavedFilterID == filter.ID && !existing.IsExpired(now) {
		viewingSince = existing.ViewingSince
	}

	if err := sf.contextRepo.Upsert(ctx, &models.FilterContext{
		CustomerID:    customerID,
		SavedFilterID: filter.ID,
		ViewingSince:  viewingSince,
		ExpiresAt:     *filter.BadgeCountExpiresAt,
	}); err != nil {
		return nil, err
	}

	return viewingSince, nil
}

func (sf *SavedFilterFlowImpl) normalizePagination(page, pageSize int) (int, int, error) {
	if page == 0 {
		page = 1
	}
	if pageSize == 0 {
		pageSize = sf.cfg.DefaultPageSize
	}
	if page < 1 {
		return 0, 0, ErrInvalidPage
	}
	if pageSize < 1 || pageSize > sf.cfg.MaxPageSize {
		return 0, 0, ErrInvalidPageSize
	}
	return page, pageSize, nil
}

func (sf *SavedFilterFlowImpl) compilePlan(ctx context.Context, conditions []models.FilterCondition) (filterengine.QueryPlan, error) {
	var rates map[string]float64

	if filterengine.HasCurrencyQualifier(conditions) {
		target := conditionCurrency(conditions)
		sources, err := sf.jobRepo.DistinctSalaryCurrencies(ctx)
		if err != nil {
			return filterengine.QueryPlan{}, err
		}
		rates, err = sf.rateService.RatesFor(ctx, target, sources)
		if err != nil {
			rates = map[string]float64{}
		}
	}

	return filterengine.Compile(conditions, rates)
}

func (sf *SavedFilterFlowImpl) logFilterEvent(ctx context.Context, customerID uint, action, description string, success bool, metadata *ClientMetadata) {
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
		Success:     utils.ToPtr(success),
		IPAddress:   &ipAddress,
		UserAgent:   &userAgent,
	}

	if requestID, ok := ctx.Value(RequestIDKey).(string); ok {
		audit.RequestID = &requestID
	}

	_ = sf.auditRepo.Save(ctx, audit)
}
