// Package businessflow contains integration tests for the saved-filter workflow
package businessflow_test

import (
	"context"
	"errors"
	"fmt"
	"testing"
	"time"

	"github.com/jobradar/jobradar/app/dto"
	"github.com/jobradar/jobradar/app/services"
	businessflow "github.com/jobradar/jobradar/business_flow"
	"github.com/jobradar/jobradar/config"
	"github.com/jobradar/jobradar/filterengine"
	"github.com/jobradar/jobradar/models"
	"github.com/jobradar/jobradar/repository"
	testingutil "github.com/jobradar/jobradar/testing"
	"github.com/jobradar/jobradar/utils"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func testFiltersConfig() *config.FiltersConfig {
	return &config.FiltersConfig{
		MaxSavedFilters:  3,
		BadgeMaxTTL:      12 * time.Hour,
		DailyRefreshHour: 4,
		Timezone:         "UTC",
		DefaultPageSize:  20,
		MaxPageSize:      100,
	}
}

func titleConditions(needle string) []models.FilterCondition {
	return []models.FilterCondition{
		{ID: "c1", Field: "title", Operator: models.OperatorContains, Value: models.ScalarText(needle)},
	}
}

func testMetadata() *businessflow.ClientMetadata {
	return &businessflow.ClientMetadata{IPAddress: "127.0.0.1", UserAgent: "Test User Agent"}
}

func TestSavedFilterLifecycle(t *testing.T) {
	err := testingutil.TestWithDB(func(testDB *testingutil.TestDB) error {
		fixtures := testingutil.NewTestFixtures(testDB)

		savedFilterRepo := repository.NewSavedFilterRepository(testDB.DB)
		contextRepo := repository.NewFilterContextRepository(testDB.DB)
		jobRepo := repository.NewJobRepository(testDB.DB)
		favoriteRepo := repository.NewFavoriteRepository(testDB.DB)
		auditRepo := repository.NewAuditLogRepository(testDB.DB)
		rateService := services.NewMockExchangeRateService(map[string]float64{"USD": 0.9})

		flow := businessflow.NewSavedFilterFlow(
			savedFilterRepo,
			contextRepo,
			jobRepo,
			favoriteRepo,
			auditRepo,
			rateService,
			testFiltersConfig(),
			testDB.DB,
		)

		customer, err := fixtures.CreateTestCustomer()
		require.NoError(t, err)

		t.Run("CreateSavedFilter", func(t *testing.T) {
			created, err := flow.CreateSavedFilter(context.Background(), customer.ID, &dto.CreateSavedFilterRequest{
				Name:       "Go jobs",
				Conditions: titleConditions("go"),
			}, testMetadata())
			require.NoError(t, err)
			assert.Equal(t, "Go jobs", created.Name)
			assert.NotEmpty(t, created.UUID)
			assert.Nil(t, created.LastCheckedAt)
			assert.Nil(t, created.NewCount)
		})

		t.Run("DuplicateNameRejected", func(t *testing.T) {
			_, err := flow.CreateSavedFilter(context.Background(), customer.ID, &dto.CreateSavedFilterRequest{
				Name:       "Go jobs",
				Conditions: titleConditions("go"),
			}, testMetadata())
			assert.True(t, businessflow.IsSavedFilterNameTaken(err))
		})

		t.Run("BlankNameRejected", func(t *testing.T) {
			_, err := flow.CreateSavedFilter(context.Background(), customer.ID, &dto.CreateSavedFilterRequest{
				Name:       "   ",
				Conditions: titleConditions("go"),
			}, testMetadata())
			assert.True(t, businessflow.IsSavedFilterNameRequired(err))
		})

		t.Run("EmptyConditionsRejected", func(t *testing.T) {
			_, err := flow.CreateSavedFilter(context.Background(), customer.ID, &dto.CreateSavedFilterRequest{
				Name: "No conditions",
			}, testMetadata())
			assert.True(t, businessflow.IsNoConditions(err))
		})

		t.Run("InvalidConditionsRejectedAtSave", func(t *testing.T) {
			// Unknown operators fail closed at the save boundary even though
			// the evaluator would tolerate them
			_, err := flow.CreateSavedFilter(context.Background(), customer.ID, &dto.CreateSavedFilterRequest{
				Name: "Bad operator",
				Conditions: []models.FilterCondition{
					{ID: "c1", Field: "title", Operator: models.FilterOperator("matches_regex"), Value: models.ScalarText("x")},
				},
			}, testMetadata())
			assert.Error(t, err)
		})

		t.Run("QuotaEnforced", func(t *testing.T) {
			for i := 0; ; i++ {
				_, err := flow.CreateSavedFilter(context.Background(), customer.ID, &dto.CreateSavedFilterRequest{
					Name:       fmt.Sprintf("Filler %d", i),
					Conditions: titleConditions("go"),
				}, testMetadata())
				if err != nil {
					assert.True(t, businessflow.IsSavedFilterQuotaReached(err))
					break
				}
				require.Less(t, i, 10, "quota never enforced")
			}
		})

		t.Run("ListAndUpdateAndDelete", func(t *testing.T) {
			filters, err := flow.ListSavedFilters(context.Background(), customer.ID)
			require.NoError(t, err)
			require.NotEmpty(t, filters)

			target := filters[0]

			newName := "Renamed filter"
			updated, err := flow.UpdateSavedFilter(context.Background(), customer.ID, target.UUID, &dto.UpdateSavedFilterRequest{
				Name: &newName,
			}, testMetadata())
			require.NoError(t, err)
			assert.Equal(t, newName, updated.Name)

			err = flow.DeleteSavedFilter(context.Background(), customer.ID, target.UUID, testMetadata())
			require.NoError(t, err)

			_, err = flow.UpdateSavedFilter(context.Background(), customer.ID, target.UUID, &dto.UpdateSavedFilterRequest{
				Name: &newName,
			}, testMetadata())
			assert.True(t, businessflow.IsSavedFilterNotFound(err))
		})

		t.Run("OtherCustomerDenied", func(t *testing.T) {
			other, err := fixtures.CreateTestCustomer()
			require.NoError(t, err)

			filters, err := flow.ListSavedFilters(context.Background(), customer.ID)
			require.NoError(t, err)
			require.NotEmpty(t, filters)

			_, err = flow.ApplySavedFilter(context.Background(), other.ID, filters[0].UUID, &dto.ApplySavedFilterRequest{}, testMetadata())
			assert.True(t, businessflow.IsSavedFilterAccessDenied(err))
		})

		return nil
	})
	require.NoError(t, err)
}

// unreliableJobRepository fails delta counts on demand while delegating
// everything else to a real repository.
type unreliableJobRepository struct {
	repository.JobRepository
	failCounts bool
}

func (r *unreliableJobRepository) CountNewSince(ctx context.Context, plan *filterengine.QueryPlan, since time.Time) (int64, error) {
	if r.failCounts {
		return 0, errors.New("connection reset by peer")
	}
	return r.JobRepository.CountNewSince(ctx, plan, since)
}

// contendedSavedFilterRepository lets another writer advance the checkpoint
// just before the caller's own badge update, so the update hits the
// optimistic guard the way a concurrent apply from a second device would.
type contendedSavedFilterRepository struct {
	repository.SavedFilterRepository
	winnerBadge int64
	contend     bool
}

func (r *contendedSavedFilterRepository) UpdateBadge(ctx context.Context, filterID uint, prevCheckedAt, checkedAt *time.Time, snapshot *int64, expiresAt *time.Time) error {
	if r.contend {
		r.contend = false
		winnerAt := utils.UTCNow()
		winnerExpiry := winnerAt.Add(time.Hour)
		if err := r.SavedFilterRepository.UpdateBadge(ctx, filterID, prevCheckedAt, &winnerAt, &r.winnerBadge, &winnerExpiry); err != nil {
			return err
		}
	}
	return r.SavedFilterRepository.UpdateBadge(ctx, filterID, prevCheckedAt, checkedAt, snapshot, expiresAt)
}

func TestApplySavedFilterDeltaFailure(t *testing.T) {
	err := testingutil.TestWithDB(func(testDB *testingutil.TestDB) error {
		fixtures := testingutil.NewTestFixtures(testDB)

		jobRepo := &unreliableJobRepository{JobRepository: repository.NewJobRepository(testDB.DB)}
		savedFilterRepo := repository.NewSavedFilterRepository(testDB.DB)

		flow := businessflow.NewSavedFilterFlow(
			savedFilterRepo,
			repository.NewFilterContextRepository(testDB.DB),
			jobRepo,
			repository.NewFavoriteRepository(testDB.DB),
			repository.NewAuditLogRepository(testDB.DB),
			services.NewMockExchangeRateService(nil),
			testFiltersConfig(),
			testDB.DB,
		)

		customer, err := fixtures.CreateTestCustomer()
		require.NoError(t, err)

		_, err = fixtures.CreateTestJob(func(j *models.Job) {
			j.Title = "Go Developer"
			j.FirstSeenAt = utils.UTCNow().Add(-48 * time.Hour)
		})
		require.NoError(t, err)

		saved, err := flow.CreateSavedFilter(context.Background(), customer.ID, &dto.CreateSavedFilterRequest{
			Name:       "Go watch",
			Conditions: titleConditions("go developer"),
		}, testMetadata())
		require.NoError(t, err)

		first, err := flow.ApplySavedFilter(context.Background(), customer.ID, saved.UUID, &dto.ApplySavedFilterRequest{}, testMetadata())
		require.NoError(t, err)
		require.NotNil(t, first.Filter.LastCheckedAt)
		checkpoint := *first.Filter.LastCheckedAt

		// A match the badge would normally report
		_, err = fixtures.CreateTestJob(func(j *models.Job) {
			j.Title = "Senior Go Developer"
		})
		require.NoError(t, err)

		expired := utils.UTCNow().Add(-time.Minute)
		require.NoError(t, testDB.DB.Model(&models.SavedFilter{}).
			Where("uuid = ?", saved.UUID).
			Update("badge_count_expires_at", expired).Error)

		// Delta count fails: the apply must still succeed, show no new
		// matches, and advance the checkpoint.
		jobRepo.failCounts = true
		result, err := flow.ApplySavedFilter(context.Background(), customer.ID, saved.UUID, &dto.ApplySavedFilterRequest{}, testMetadata())
		require.NoError(t, err)

		require.NotNil(t, result.Filter.NewCount)
		assert.Equal(t, int64(0), *result.Filter.NewCount)
		assert.Equal(t, int64(2), result.Results.Total, "results stay live even when the delta fails")

		require.NotNil(t, result.Filter.LastCheckedAt)
		assert.True(t, result.Filter.LastCheckedAt.After(checkpoint), "checkpoint advances despite the failed count")

		stored, err := savedFilterRepo.ByUUID(context.Background(), saved.UUID)
		require.NoError(t, err)
		require.NotNil(t, stored.LastCheckedAt)
		assert.True(t, stored.LastCheckedAt.After(checkpoint))

		return nil
	})
	require.NoError(t, err)
}

func TestApplySavedFilterConcurrentCheckpoint(t *testing.T) {
	err := testingutil.TestWithDB(func(testDB *testingutil.TestDB) error {
		fixtures := testingutil.NewTestFixtures(testDB)

		savedFilterRepo := &contendedSavedFilterRepository{
			SavedFilterRepository: repository.NewSavedFilterRepository(testDB.DB),
			winnerBadge:           5,
		}

		flow := businessflow.NewSavedFilterFlow(
			savedFilterRepo,
			repository.NewFilterContextRepository(testDB.DB),
			repository.NewJobRepository(testDB.DB),
			repository.NewFavoriteRepository(testDB.DB),
			repository.NewAuditLogRepository(testDB.DB),
			services.NewMockExchangeRateService(nil),
			testFiltersConfig(),
			testDB.DB,
		)

		customer, err := fixtures.CreateTestCustomer()
		require.NoError(t, err)

		_, err = fixtures.CreateTestJob(func(j *models.Job) {
			j.Title = "Go Developer"
			j.FirstSeenAt = utils.UTCNow().Add(-48 * time.Hour)
		})
		require.NoError(t, err)

		saved, err := flow.CreateSavedFilter(context.Background(), customer.ID, &dto.CreateSavedFilterRequest{
			Name:       "Go watch",
			Conditions: titleConditions("go developer"),
		}, testMetadata())
		require.NoError(t, err)

		// Another device wins the checkpoint race mid-apply: this apply must
		// adopt the winner's badge rather than overwrite it.
		savedFilterRepo.contend = true
		result, err := flow.ApplySavedFilter(context.Background(), customer.ID, saved.UUID, &dto.ApplySavedFilterRequest{}, testMetadata())
		require.NoError(t, err)

		require.NotNil(t, result.Filter.NewCount)
		assert.Equal(t, int64(5), *result.Filter.NewCount, "loser shows the winner's frozen badge")

		stored, err := savedFilterRepo.ByUUID(context.Background(), saved.UUID)
		require.NoError(t, err)
		require.NotNil(t, stored.BadgeCountSnapshot)
		assert.Equal(t, int64(5), *stored.BadgeCountSnapshot, "winner's snapshot survives")

		return nil
	})
	require.NoError(t, err)
}

func TestApplySavedFilterFreshness(t *testing.T) {
	err := testingutil.TestWithDB(func(testDB *testingutil.TestDB) error {
		fixtures := testingutil.NewTestFixtures(testDB)

		savedFilterRepo := repository.NewSavedFilterRepository(testDB.DB)
		contextRepo := repository.NewFilterContextRepository(testDB.DB)
		jobRepo := repository.NewJobRepository(testDB.DB)
		favoriteRepo := repository.NewFavoriteRepository(testDB.DB)
		auditRepo := repository.NewAuditLogRepository(testDB.DB)
		rateService := services.NewMockExchangeRateService(nil)

		flow := businessflow.NewSavedFilterFlow(
			savedFilterRepo,
			contextRepo,
			jobRepo,
			favoriteRepo,
			auditRepo,
			rateService,
			testFiltersConfig(),
			testDB.DB,
		)

		customer, err := fixtures.CreateTestCustomer()
		require.NoError(t, err)

		past := utils.UTCNow().Add(-48 * time.Hour)
		_, err = fixtures.CreateTestJob(func(j *models.Job) {
			j.Title = "Go Developer"
			j.FirstSeenAt = past
		})
		require.NoError(t, err)

		saved, err := flow.CreateSavedFilter(context.Background(), customer.ID, &dto.CreateSavedFilterRequest{
			Name:       "Go watch",
			Conditions: titleConditions("go developer"),
		}, testMetadata())
		require.NoError(t, err)

		t.Run("FirstApplyShowsZeroBadge", func(t *testing.T) {
			result, err := flow.ApplySavedFilter(context.Background(), customer.ID, saved.UUID, &dto.ApplySavedFilterRequest{}, testMetadata())
			require.NoError(t, err)

			require.NotNil(t, result.Filter.NewCount)
			assert.Equal(t, int64(0), *result.Filter.NewCount)
			assert.NotNil(t, result.Filter.LastCheckedAt)
			assert.Nil(t, result.ViewingSince, "no prior checkpoint on first apply")
			assert.Equal(t, int64(1), result.Results.Total)
			assert.NotEmpty(t, result.Results.ShareURL)
		})

		t.Run("FrozenBadgeStableWhileFresh", func(t *testing.T) {
			// A new match arrives, but the snapshot is still inside its window
			_, err := fixtures.CreateTestJob(func(j *models.Job) {
				j.Title = "Senior Go Developer"
			})
			require.NoError(t, err)

			result, err := flow.ApplySavedFilter(context.Background(), customer.ID, saved.UUID, &dto.ApplySavedFilterRequest{}, testMetadata())
			require.NoError(t, err)

			require.NotNil(t, result.Filter.NewCount)
			assert.Equal(t, int64(0), *result.Filter.NewCount, "frozen badge must not move")
			assert.Equal(t, int64(2), result.Results.Total, "results are always live")
		})

		t.Run("ExpiredSnapshotRecomputesDelta", func(t *testing.T) {
			// Force the snapshot out of its window
			expired := utils.UTCNow().Add(-time.Minute)
			err := testDB.DB.Model(&models.SavedFilter{}).
				Where("uuid = ?", saved.UUID).
				Update("badge_count_expires_at", expired).Error
			require.NoError(t, err)

			result, err := flow.ApplySavedFilter(context.Background(), customer.ID, saved.UUID, &dto.ApplySavedFilterRequest{}, testMetadata())
			require.NoError(t, err)

			require.NotNil(t, result.Filter.NewCount)
			assert.Equal(t, int64(1), *result.Filter.NewCount, "one match appeared since the checkpoint")
			require.NotNil(t, result.ViewingSince, "boundary is the previous checkpoint")

			require.NotNil(t, result.Filter.BadgeExpiresAt)
			assert.True(t, result.Filter.BadgeExpiresAt.After(utils.UTCNow()))
			assert.True(t, result.Filter.BadgeExpiresAt.Sub(utils.UTCNow()) <= 12*time.Hour+time.Minute)
		})

		t.Run("ViewingContextSurvivesReapply", func(t *testing.T) {
			fc, err := flow.GetFilterContext(context.Background(), customer.ID)
			require.NoError(t, err)
			require.NotNil(t, fc)
			assert.Equal(t, saved.UUID, fc.SavedFilterUUID)
			boundary := fc.ViewingSince

			// Second device applies while the snapshot is fresh: same boundary
			result, err := flow.ApplySavedFilter(context.Background(), customer.ID, saved.UUID, &dto.ApplySavedFilterRequest{}, testMetadata())
			require.NoError(t, err)
			require.NotNil(t, result.ViewingSince)
			require.NotNil(t, boundary)
			assert.WithinDuration(t, *boundary, *result.ViewingSince, time.Second)
		})

		t.Run("ConditionsUpdateResetsFreshness", func(t *testing.T) {
			newConds := titleConditions("senior")
			updated, err := flow.UpdateSavedFilter(context.Background(), customer.ID, saved.UUID, &dto.UpdateSavedFilterRequest{
				Conditions: &newConds,
			}, testMetadata())
			require.NoError(t, err)

			assert.Nil(t, updated.LastCheckedAt)
			assert.Nil(t, updated.NewCount)
			assert.Nil(t, updated.BadgeExpiresAt)

			fc, err := flow.GetFilterContext(context.Background(), customer.ID)
			require.NoError(t, err)
			assert.Nil(t, fc, "viewing context must not outlive the conditions it described")
		})

		t.Run("ClearFilterContext", func(t *testing.T) {
			_, err := flow.ApplySavedFilter(context.Background(), customer.ID, saved.UUID, &dto.ApplySavedFilterRequest{}, testMetadata())
			require.NoError(t, err)

			fc, err := flow.GetFilterContext(context.Background(), customer.ID)
			require.NoError(t, err)
			require.NotNil(t, fc)

			require.NoError(t, flow.ClearFilterContext(context.Background(), customer.ID, testMetadata()))

			fc, err = flow.GetFilterContext(context.Background(), customer.ID)
			require.NoError(t, err)
			assert.Nil(t, fc)
		})

		t.Run("InvalidPaginationRejected", func(t *testing.T) {
			_, err := flow.ApplySavedFilter(context.Background(), customer.ID, saved.UUID, &dto.ApplySavedFilterRequest{Page: -1}, testMetadata())
			assert.True(t, businessflow.IsInvalidPage(err))

			_, err = flow.ApplySavedFilter(context.Background(), customer.ID, saved.UUID, &dto.ApplySavedFilterRequest{PageSize: 1000}, testMetadata())
			assert.True(t, businessflow.IsInvalidPageSize(err))
		})

		return nil
	})
	require.NoError(t, err)
}
