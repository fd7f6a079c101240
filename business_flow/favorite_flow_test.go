// Package businessflow contains integration tests for the favorite workflow
package businessflow_test

import (
	"context"
	"testing"

	businessflow "github.com/jobradar/jobradar/business_flow"
	"github.com/jobradar/jobradar/models"
	"github.com/jobradar/jobradar/repository"
	testingutil "github.com/jobradar/jobradar/testing"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestFavoriteLifecycle(t *testing.T) {
	err := testingutil.TestWithDB(func(testDB *testingutil.TestDB) error {
		fixtures := testingutil.NewTestFixtures(testDB)

		favoriteRepo := repository.NewFavoriteRepository(testDB.DB)
		jobRepo := repository.NewJobRepository(testDB.DB)
		auditRepo := repository.NewAuditLogRepository(testDB.DB)

		flow := businessflow.NewFavoriteFlow(favoriteRepo, jobRepo, auditRepo, testDB.DB)

		customer, err := fixtures.CreateTestCustomer()
		require.NoError(t, err)

		job, err := fixtures.CreateTestJob()
		require.NoError(t, err)

		secondJob, err := fixtures.CreateTestJob(func(j *models.Job) {
			j.Title = "Platform Engineer"
		})
		require.NoError(t, err)

		t.Run("AddFavorite", func(t *testing.T) {
			err := flow.AddFavorite(context.Background(), customer.ID, job.ID, testMetadata())
			require.NoError(t, err)

			exists, err := favoriteRepo.Exists(context.Background(), customer.ID, job.ID)
			require.NoError(t, err)
			assert.True(t, exists)
		})

		t.Run("DuplicateFavoriteRejected", func(t *testing.T) {
			err := flow.AddFavorite(context.Background(), customer.ID, job.ID, testMetadata())
			assert.True(t, businessflow.IsAlreadyFavorited(err))
		})

		t.Run("NonexistentJobRejected", func(t *testing.T) {
			err := flow.AddFavorite(context.Background(), customer.ID, 999999, testMetadata())
			assert.True(t, businessflow.IsJobNotFound(err))
		})

		t.Run("ListFavoritesNewestFirst", func(t *testing.T) {
			err := flow.AddFavorite(context.Background(), customer.ID, secondJob.ID, testMetadata())
			require.NoError(t, err)

			jobs, err := flow.ListFavorites(context.Background(), customer.ID, 1, 20)
			require.NoError(t, err)
			require.Len(t, jobs, 2)
			assert.Equal(t, "Platform Engineer", jobs[0].Title)
			for _, j := range jobs {
				assert.True(t, j.IsFavorite)
			}
		})

		t.Run("ListFavoritesPagination", func(t *testing.T) {
			first, err := flow.ListFavorites(context.Background(), customer.ID, 1, 1)
			require.NoError(t, err)
			require.Len(t, first, 1)

			second, err := flow.ListFavorites(context.Background(), customer.ID, 2, 1)
			require.NoError(t, err)
			require.Len(t, second, 1)
			assert.NotEqual(t, first[0].ID, second[0].ID)
		})

		t.Run("RemoveFavorite", func(t *testing.T) {
			err := flow.RemoveFavorite(context.Background(), customer.ID, job.ID, testMetadata())
			require.NoError(t, err)

			exists, err := favoriteRepo.Exists(context.Background(), customer.ID, job.ID)
			require.NoError(t, err)
			assert.False(t, exists)
		})

		t.Run("RemoveMissingFavoriteRejected", func(t *testing.T) {
			err := flow.RemoveFavorite(context.Background(), customer.ID, job.ID, testMetadata())
			assert.True(t, businessflow.IsFavoriteNotFound(err))
		})

		t.Run("FavoritesAreScopedPerCustomer", func(t *testing.T) {
			other, err := fixtures.CreateTestCustomer()
			require.NoError(t, err)

			jobs, err := flow.ListFavorites(context.Background(), other.ID, 1, 20)
			require.NoError(t, err)
			assert.Empty(t, jobs)
		})

		return nil
	})
	require.NoError(t, err)
}
