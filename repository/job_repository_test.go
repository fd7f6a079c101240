// Package repository contains integration tests for plan-driven job queries
package repository_test

import (
	"context"
	"testing"
	"time"

	"github.com/jobradar/jobradar/filterengine"
	"github.com/jobradar/jobradar/models"
	"github.com/jobradar/jobradar/repository"
	testingutil "github.com/jobradar/jobradar/testing"
	"github.com/jobradar/jobradar/utils"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func compilePlan(t *testing.T, rates map[string]float64, conds ...models.FilterCondition) *filterengine.QueryPlan {
	t.Helper()
	plan, err := filterengine.Compile(conds, rates)
	require.NoError(t, err)
	return &plan
}

func TestSearchByPlanPredicates(t *testing.T) {
	err := testingutil.TestWithDB(func(testDB *testingutil.TestDB) error {
		fixtures := testingutil.NewTestFixtures(testDB)
		jobRepo := repository.NewJobRepository(testDB.DB)

		_, err := fixtures.CreateTestJob(func(j *models.Job) {
			j.Title = "Senior Go Developer"
		})
		require.NoError(t, err)

		_, err = fixtures.CreateTestJob(func(j *models.Job) {
			j.Title = "Frontend Developer"
		})
		require.NoError(t, err)

		t.Run("ContainsUsesIlike", func(t *testing.T) {
			plan := compilePlan(t, nil, models.FilterCondition{
				ID: "c1", Field: "title", Operator: models.OperatorContains, Value: models.ScalarText("GO dev"),
			})
			require.False(t, plan.IsProcedure())

			jobs, total, err := jobRepo.SearchByPlan(context.Background(), plan, 20, 0)
			require.NoError(t, err)
			assert.Equal(t, int64(1), total)
			require.Len(t, jobs, 1)
			assert.Equal(t, "Senior Go Developer", jobs[0].Title)
		})

		t.Run("NotEqualsMatchesMissingValue", func(t *testing.T) {
			plan := compilePlan(t, nil, models.FilterCondition{
				ID: "c1", Field: "ai_experience_level", Operator: models.OperatorNotEquals, Value: models.ScalarText("senior"),
			})

			_, total, err := jobRepo.SearchByPlan(context.Background(), plan, 20, 0)
			require.NoError(t, err)
			assert.Equal(t, int64(2), total)
		})

		t.Run("CountByPlanAgreesWithSearch", func(t *testing.T) {
			plan := compilePlan(t, nil, models.FilterCondition{
				ID: "c1", Field: "title", Operator: models.OperatorContains, Value: models.ScalarText("developer"),
			})

			_, total, err := jobRepo.SearchByPlan(context.Background(), plan, 1, 0)
			require.NoError(t, err)

			count, err := jobRepo.CountByPlan(context.Background(), plan)
			require.NoError(t, err)
			assert.Equal(t, total, count)
		})

		t.Run("NilPlanReturnsEverything", func(t *testing.T) {
			_, total, err := jobRepo.SearchByPlan(context.Background(), nil, 20, 0)
			require.NoError(t, err)
			assert.Equal(t, int64(2), total)
		})

		return nil
	})
	require.NoError(t, err)
}

func TestSearchByPlanProcedure(t *testing.T) {
	err := testingutil.TestWithDB(func(testDB *testingutil.TestDB) error {
		fixtures := testingutil.NewTestFixtures(testDB)
		jobRepo := repository.NewJobRepository(testDB.DB)

		_, err := fixtures.CreateTestJob(func(j *models.Job) {
			j.Title = "Backend Engineer"
			j.AIKeySkills = []string{"Go", "Kubernetes"}
		})
		require.NoError(t, err)

		_, err = fixtures.CreateTestJob(func(j *models.Job) {
			j.Title = "Data Engineer"
			j.AIKeySkills = []string{"Python", "Spark"}
		})
		require.NoError(t, err)

		_, err = fixtures.CreateTestJob(testingutil.WithSalary(100000, 120000, "USD", "YEAR"), func(j *models.Job) {
			j.Title = "Engineering Manager"
			j.AIKeySkills = []string{"Leadership"}
		})
		require.NoError(t, err)

		t.Run("ArrayOverlap", func(t *testing.T) {
			plan := compilePlan(t, nil, models.FilterCondition{
				ID: "c1", Field: "ai_key_skills", Operator: models.OperatorIsAnyOf, Value: models.SetOf("Go", "Rust"),
			})
			require.True(t, plan.IsProcedure())

			jobs, total, err := jobRepo.SearchByPlan(context.Background(), plan, 20, 0)
			require.NoError(t, err)
			assert.Equal(t, int64(1), total)
			require.Len(t, jobs, 1)
			assert.Equal(t, "Backend Engineer", jobs[0].Title)
		})

		t.Run("ArrayContainsElement", func(t *testing.T) {
			plan := compilePlan(t, nil, models.FilterCondition{
				ID: "c1", Field: "ai_key_skills", Operator: models.OperatorContains, Value: models.ScalarText("spark"),
			})

			_, total, err := jobRepo.SearchByPlan(context.Background(), plan, 20, 0)
			require.NoError(t, err)
			assert.Equal(t, int64(1), total)
		})

		t.Run("SalaryConvertedByRate", func(t *testing.T) {
			// 100000 USD at rate 0.5 is 50000 in the requested currency
			cond := models.FilterCondition{
				ID:             "c1",
				Field:          "ai_salary_minvalue",
				Operator:       models.OperatorGreaterThan,
				Value:          models.ScalarNumber(45000),
				SalaryPeriod:   utils.ToPtr("YEAR"),
				SalaryCurrency: utils.ToPtr("EUR"),
			}
			plan := compilePlan(t, map[string]float64{"USD": 0.5}, cond)
			require.True(t, plan.IsProcedure())

			_, total, err := jobRepo.SearchByPlan(context.Background(), plan, 20, 0)
			require.NoError(t, err)
			assert.Equal(t, int64(1), total)

			cond.Value = models.ScalarNumber(55000)
			plan = compilePlan(t, map[string]float64{"USD": 0.5}, cond)
			_, total, err = jobRepo.SearchByPlan(context.Background(), plan, 20, 0)
			require.NoError(t, err)
			assert.Equal(t, int64(0), total)
		})

		t.Run("MissingRateFallsBackToIdentity", func(t *testing.T) {
			plan := compilePlan(t, map[string]float64{}, models.FilterCondition{
				ID:             "c1",
				Field:          "ai_salary_minvalue",
				Operator:       models.OperatorGreaterThan,
				Value:          models.ScalarNumber(90000),
				SalaryPeriod:   utils.ToPtr("YEAR"),
				SalaryCurrency: utils.ToPtr("EUR"),
			})

			_, total, err := jobRepo.SearchByPlan(context.Background(), plan, 20, 0)
			require.NoError(t, err)
			assert.Equal(t, int64(1), total)
		})

		return nil
	})
	require.NoError(t, err)
}

func TestCountNewSince(t *testing.T) {
	err := testingutil.TestWithDB(func(testDB *testingutil.TestDB) error {
		fixtures := testingutil.NewTestFixtures(testDB)
		jobRepo := repository.NewJobRepository(testDB.DB)

		now := utils.UTCNow()

		_, err := fixtures.CreateTestJob(testingutil.WithFirstSeenAt(now.Add(-72 * time.Hour)))
		require.NoError(t, err)

		_, err = fixtures.CreateTestJob(testingutil.WithFirstSeenAt(now.Add(-1 * time.Hour)))
		require.NoError(t, err)

		plan := compilePlan(t, nil, models.FilterCondition{
			ID: "c1", Field: "title", Operator: models.OperatorContains, Value: models.ScalarText("engineer"),
		})

		count, err := jobRepo.CountNewSince(context.Background(), plan, now.Add(-24*time.Hour))
		require.NoError(t, err)
		assert.Equal(t, int64(1), count)

		count, err = jobRepo.CountNewSince(context.Background(), plan, now.Add(-96*time.Hour))
		require.NoError(t, err)
		assert.Equal(t, int64(2), count)

		count, err = jobRepo.CountNewSince(context.Background(), plan, now)
		require.NoError(t, err)
		assert.Equal(t, int64(0), count)

		return nil
	})
	require.NoError(t, err)
}

func TestUpsertBatch(t *testing.T) {
	err := testingutil.TestWithDB(func(testDB *testingutil.TestDB) error {
		jobRepo := repository.NewJobRepository(testDB.DB)
		now := utils.UTCNow()

		batch := []*models.Job{
			{ExternalID: "ext-upsert-1", Title: "Backend Engineer", Organization: "Acme", FirstSeenAt: now},
			{ExternalID: "ext-upsert-2", Title: "SRE", Organization: "Acme", FirstSeenAt: now},
		}
		_, err := jobRepo.UpsertBatch(context.Background(), batch)
		require.NoError(t, err)

		count, err := jobRepo.CountByPlan(context.Background(), nil)
		require.NoError(t, err)
		assert.Equal(t, int64(2), count)

		// Re-ingesting the same external IDs updates in place
		refreshed := []*models.Job{
			{ExternalID: "ext-upsert-1", Title: "Staff Backend Engineer", Organization: "Acme", FirstSeenAt: now},
			{ExternalID: "ext-upsert-2", Title: "SRE", Organization: "Acme", FirstSeenAt: now},
		}
		_, err = jobRepo.UpsertBatch(context.Background(), refreshed)
		require.NoError(t, err)

		count, err = jobRepo.CountByPlan(context.Background(), nil)
		require.NoError(t, err)
		assert.Equal(t, int64(2), count)

		plan := compilePlan(t, nil, models.FilterCondition{
			ID: "c1", Field: "title", Operator: models.OperatorContains, Value: models.ScalarText("staff"),
		})
		jobs, _, err := jobRepo.SearchByPlan(context.Background(), plan, 20, 0)
		require.NoError(t, err)
		require.Len(t, jobs, 1)
		assert.Equal(t, "ext-upsert-1", jobs[0].ExternalID)

		return nil
	})
	require.NoError(t, err)
}

func TestDistinctSalaryCurrencies(t *testing.T) {
	err := testingutil.TestWithDB(func(testDB *testingutil.TestDB) error {
		fixtures := testingutil.NewTestFixtures(testDB)
		jobRepo := repository.NewJobRepository(testDB.DB)

		_, err := fixtures.CreateTestJob(testingutil.WithSalary(50000, 60000, "USD", "YEAR"))
		require.NoError(t, err)
		_, err = fixtures.CreateTestJob(testingutil.WithSalary(40000, 50000, "GBP", "YEAR"))
		require.NoError(t, err)
		_, err = fixtures.CreateTestJob()
		require.NoError(t, err)

		currencies, err := jobRepo.DistinctSalaryCurrencies(context.Background())
		require.NoError(t, err)
		assert.ElementsMatch(t, []string{"USD", "GBP"}, currencies)

		return nil
	})
	require.NoError(t, err)
}
