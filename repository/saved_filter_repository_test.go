// Package repository contains integration tests for saved-filter badge state
// and the cross-device viewing context.
package repository_test

import (
	"context"
	"testing"
	"time"

	"github.com/jobradar/jobradar/models"
	"github.com/jobradar/jobradar/repository"
	testingutil "github.com/jobradar/jobradar/testing"
	"github.com/jobradar/jobradar/utils"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestUpdateBadge(t *testing.T) {
	err := testingutil.TestWithDB(func(testDB *testingutil.TestDB) error {
		fixtures := testingutil.NewTestFixtures(testDB)
		savedFilterRepo := repository.NewSavedFilterRepository(testDB.DB)

		customer, err := fixtures.CreateTestCustomer()
		require.NoError(t, err)

		saved, err := fixtures.CreateTestSavedFilter(customer.ID, "Badge filter", []models.FilterCondition{
			{ID: "c1", Field: "title", Operator: models.OperatorContains, Value: models.ScalarText("go")},
		})
		require.NoError(t, err)

		now := utils.UTCNow()
		badge := int64(7)
		expiresAt := now.Add(12 * time.Hour)

		t.Run("SetSnapshot", func(t *testing.T) {
			err := savedFilterRepo.UpdateBadge(context.Background(), saved.ID, nil, &now, &badge, &expiresAt)
			require.NoError(t, err)

			got, err := savedFilterRepo.ByID(context.Background(), saved.ID)
			require.NoError(t, err)
			require.NotNil(t, got.LastCheckedAt)
			assert.WithinDuration(t, now, *got.LastCheckedAt, time.Second)
			require.NotNil(t, got.BadgeCountSnapshot)
			assert.Equal(t, int64(7), *got.BadgeCountSnapshot)
			assert.True(t, got.HasFreshSnapshot(now))
		})

		t.Run("StaleCheckpointRejected", func(t *testing.T) {
			// The guard compares against the checkpoint the caller read; a nil
			// prev no longer matches once the checkpoint is set.
			later := now.Add(time.Hour)
			newBadge := int64(2)
			err := savedFilterRepo.UpdateBadge(context.Background(), saved.ID, nil, &later, &newBadge, &expiresAt)
			require.ErrorIs(t, err, repository.ErrStaleCheckpoint)

			stalePrev := now.Add(-time.Hour)
			err = savedFilterRepo.UpdateBadge(context.Background(), saved.ID, &stalePrev, &later, &newBadge, &expiresAt)
			require.ErrorIs(t, err, repository.ErrStaleCheckpoint)

			got, err := savedFilterRepo.ByID(context.Background(), saved.ID)
			require.NoError(t, err)
			require.NotNil(t, got.BadgeCountSnapshot)
			assert.Equal(t, int64(7), *got.BadgeCountSnapshot)
		})

		t.Run("MatchingCheckpointAccepted", func(t *testing.T) {
			got, err := savedFilterRepo.ByID(context.Background(), saved.ID)
			require.NoError(t, err)

			later := now.Add(time.Hour)
			newBadge := int64(3)
			err = savedFilterRepo.UpdateBadge(context.Background(), saved.ID, got.LastCheckedAt, &later, &newBadge, &expiresAt)
			require.NoError(t, err)

			got, err = savedFilterRepo.ByID(context.Background(), saved.ID)
			require.NoError(t, err)
			require.NotNil(t, got.BadgeCountSnapshot)
			assert.Equal(t, int64(3), *got.BadgeCountSnapshot)
		})

		t.Run("ClearBadge", func(t *testing.T) {
			err := savedFilterRepo.ClearBadge(context.Background(), saved.ID)
			require.NoError(t, err)

			got, err := savedFilterRepo.ByID(context.Background(), saved.ID)
			require.NoError(t, err)
			assert.Nil(t, got.LastCheckedAt)
			assert.Nil(t, got.BadgeCountSnapshot)
			assert.Nil(t, got.BadgeCountExpiresAt)
			assert.False(t, got.HasFreshSnapshot(now))
		})

		return nil
	})
	require.NoError(t, err)
}

func TestFilterContextUpsert(t *testing.T) {
	err := testingutil.TestWithDB(func(testDB *testingutil.TestDB) error {
		fixtures := testingutil.NewTestFixtures(testDB)
		contextRepo := repository.NewFilterContextRepository(testDB.DB)

		customer, err := fixtures.CreateTestCustomer()
		require.NoError(t, err)

		first, err := fixtures.CreateTestSavedFilter(customer.ID, "First filter", []models.FilterCondition{
			{ID: "c1", Field: "title", Operator: models.OperatorContains, Value: models.ScalarText("go")},
		})
		require.NoError(t, err)

		second, err := fixtures.CreateTestSavedFilter(customer.ID, "Second filter", []models.FilterCondition{
			{ID: "c1", Field: "title", Operator: models.OperatorContains, Value: models.ScalarText("rust")},
		})
		require.NoError(t, err)

		now := utils.UTCNow()
		since := now.Add(-2 * time.Hour)

		require.NoError(t, contextRepo.Upsert(context.Background(), &models.FilterContext{
			CustomerID:    customer.ID,
			SavedFilterID: first.ID,
			ViewingSince:  &since,
			ExpiresAt:     now.Add(12 * time.Hour),
		}))

		t.Run("SingletonPerCustomer", func(t *testing.T) {
			// A second upsert repoints the row instead of adding one
			require.NoError(t, contextRepo.Upsert(context.Background(), &models.FilterContext{
				CustomerID:    customer.ID,
				SavedFilterID: second.ID,
				ExpiresAt:     now.Add(12 * time.Hour),
			}))

			got, err := contextRepo.ByCustomer(context.Background(), customer.ID)
			require.NoError(t, err)
			require.NotNil(t, got)
			assert.Equal(t, second.ID, got.SavedFilterID)
			assert.Nil(t, got.ViewingSince)
		})

		t.Run("DeleteBySavedFilter", func(t *testing.T) {
			require.NoError(t, contextRepo.DeleteBySavedFilter(context.Background(), second.ID))

			got, err := contextRepo.ByCustomer(context.Background(), customer.ID)
			require.NoError(t, err)
			assert.Nil(t, got)
		})

		t.Run("DeleteExpired", func(t *testing.T) {
			require.NoError(t, contextRepo.Upsert(context.Background(), &models.FilterContext{
				CustomerID:    customer.ID,
				SavedFilterID: first.ID,
				ExpiresAt:     now.Add(-time.Minute),
			}))

			removed, err := contextRepo.DeleteExpired(context.Background(), now)
			require.NoError(t, err)
			assert.Equal(t, int64(1), removed)

			got, err := contextRepo.ByCustomer(context.Background(), customer.ID)
			require.NoError(t, err)
			assert.Nil(t, got)
		})

		return nil
	})
	require.NoError(t, err)
}
