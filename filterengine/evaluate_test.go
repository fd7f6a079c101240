package filterengine

import (
	"testing"
	"time"

	"github.com/jobradar/jobradar/models"
	"github.com/jobradar/jobradar/utils"
	"github.com/stretchr/testify/assert"
)

func sampleJob() *models.Job {
	return &models.Job{
		Title:             "Senior Backend Engineer",
		Organization:      "Acme GmbH",
		DescriptionText:   "Design and run distributed systems in Go.",
		AIExperienceLevel: utils.ToPtr("senior"),
		EmploymentType:    []string{"FULL_TIME"},
		CitiesDerived:     []string{"Berlin", "Hamburg"},
		CountriesDerived:  []string{"Germany"},
		AIKeySkills:       []string{"Go", "Kubernetes", "PostgreSQL"},
		RemoteDerived:     utils.ToPtr(true),
		AISalaryMinValue:  utils.ToPtr(70000.0),
		AISalaryMaxValue:  utils.ToPtr(90000.0),
		AISalaryCurrency:  utils.ToPtr("USD"),
		AISalaryUnitText:  utils.ToPtr("YEAR"),
		DatePosted:        utils.ToPtr(time.Date(2026, 8, 20, 0, 0, 0, 0, time.UTC)),
	}
}

func cond(field string, op models.FilterOperator, value models.ConditionValue) models.FilterCondition {
	return models.FilterCondition{ID: "c1", Field: field, Operator: op, Value: value}
}

func TestMatchesContains(t *testing.T) {
	job := sampleJob()

	t.Run("TextSubstringCaseInsensitive", func(t *testing.T) {
		assert.True(t, Matches(job, cond("title", models.OperatorContains, models.ScalarText("backend"))))
		assert.False(t, Matches(job, cond("title", models.OperatorContains, models.ScalarText("frontend"))))
	})

	t.Run("ListMatchesAnyElement", func(t *testing.T) {
		assert.True(t, Matches(job, cond("cities_derived", models.OperatorContains, models.ScalarText("ham"))))
		assert.False(t, Matches(job, cond("cities_derived", models.OperatorContains, models.ScalarText("Munich"))))
	})

	t.Run("NotContainsNegates", func(t *testing.T) {
		assert.True(t, Matches(job, cond("title", models.OperatorNotContains, models.ScalarText("frontend"))))
		assert.False(t, Matches(job, cond("title", models.OperatorNotContains, models.ScalarText("Senior"))))
	})

	t.Run("NotContainsMatchesMissingValue", func(t *testing.T) {
		empty := &models.Job{}
		assert.True(t, Matches(empty, cond("title", models.OperatorNotContains, models.ScalarText("anything"))))
	})
}

func TestMatchesEquals(t *testing.T) {
	job := sampleJob()

	t.Run("TextStrict", func(t *testing.T) {
		assert.True(t, Matches(job, cond("organization", models.OperatorEquals, models.ScalarText("Acme GmbH"))))
		assert.False(t, Matches(job, cond("organization", models.OperatorEquals, models.ScalarText("acme gmbh"))))
	})

	t.Run("Boolean", func(t *testing.T) {
		assert.True(t, Matches(job, cond("remote_derived", models.OperatorEquals, models.ScalarBool(true))))
		assert.False(t, Matches(job, cond("remote_derived", models.OperatorEquals, models.ScalarBool(false))))
	})

	t.Run("NoCoercionAcrossTypes", func(t *testing.T) {
		assert.False(t, Matches(job, cond("organization", models.OperatorEquals, models.ScalarNumber(42))))
	})

	t.Run("NotEqualsMatchesMissingValue", func(t *testing.T) {
		empty := &models.Job{}
		assert.True(t, Matches(empty, cond("remote_derived", models.OperatorNotEquals, models.ScalarBool(true))))
	})
}

func TestMatchesAnyOf(t *testing.T) {
	job := sampleJob()

	t.Run("ScalarMembership", func(t *testing.T) {
		assert.True(t, Matches(job, cond("ai_experience_level", models.OperatorIsAnyOf, models.SetOf("senior", "lead"))))
		assert.False(t, Matches(job, cond("ai_experience_level", models.OperatorIsAnyOf, models.SetOf("junior", "mid"))))
	})

	t.Run("ListOverlapNotSubset", func(t *testing.T) {
		// One shared element suffices even when the set names skills the job lacks
		assert.True(t, Matches(job, cond("ai_key_skills", models.OperatorIsAnyOf, models.SetOf("Go", "Rust", "Erlang"))))
		assert.False(t, Matches(job, cond("ai_key_skills", models.OperatorIsAnyOf, models.SetOf("Rust", "Erlang"))))
	})

	t.Run("IsNotAnyOfMatchesEmptyList", func(t *testing.T) {
		empty := &models.Job{}
		assert.True(t, Matches(empty, cond("ai_key_skills", models.OperatorIsNotAnyOf, models.SetOf("Go"))))
	})
}

func TestMatchesOrderedAndBetween(t *testing.T) {
	job := sampleJob()

	t.Run("GreaterLess", func(t *testing.T) {
		assert.True(t, Matches(job, cond("ai_salary_minvalue", models.OperatorGreaterThan, models.ScalarNumber(60000))))
		assert.False(t, Matches(job, cond("ai_salary_minvalue", models.OperatorGreaterThan, models.ScalarNumber(70000))))
		assert.True(t, Matches(job, cond("ai_salary_minvalue", models.OperatorLessThan, models.ScalarNumber(80000))))
	})

	t.Run("BetweenInclusiveBounds", func(t *testing.T) {
		assert.True(t, Matches(job, cond("ai_salary_minvalue", models.OperatorBetween, models.NumberRange(70000, 90000))))
		assert.True(t, Matches(job, cond("ai_salary_minvalue", models.OperatorBetween, models.NumberRange(50000, 70000))))
		assert.False(t, Matches(job, cond("ai_salary_minvalue", models.OperatorBetween, models.NumberRange(70001, 90000))))
	})

	t.Run("DateBetween", func(t *testing.T) {
		v := models.ConditionValue{Kind: models.ValueKindRange, Range: &models.RangeValue{
			Min: models.ScalarValue{Text: utils.ToPtr("2026-08-01T00:00:00Z")},
			Max: models.ScalarValue{Text: utils.ToPtr("2026-08-31T00:00:00Z")},
		}}
		assert.True(t, Matches(job, cond("date_posted", models.OperatorBetween, v)))
	})

	t.Run("MissingValueNeverOrders", func(t *testing.T) {
		empty := &models.Job{}
		assert.False(t, Matches(empty, cond("ai_salary_minvalue", models.OperatorGreaterThan, models.ScalarNumber(0))))
	})
}

func TestMatchesEmptiness(t *testing.T) {
	job := sampleJob()
	empty := &models.Job{}

	assert.True(t, Matches(empty, cond("title", models.OperatorIsEmpty, models.NoValue())))
	assert.True(t, Matches(empty, cond("ai_key_skills", models.OperatorIsEmpty, models.NoValue())))
	assert.False(t, Matches(job, cond("ai_key_skills", models.OperatorIsEmpty, models.NoValue())))
	assert.True(t, Matches(job, cond("ai_key_skills", models.OperatorIsNotEmpty, models.NoValue())))
}

func TestMatchesUnknowns(t *testing.T) {
	job := sampleJob()

	t.Run("UnknownFieldNeverMatches", func(t *testing.T) {
		assert.False(t, Matches(job, cond("no_such_field", models.OperatorEquals, models.ScalarText("x"))))
	})

	t.Run("UnknownOperatorFailsOpen", func(t *testing.T) {
		assert.True(t, Matches(job, cond("title", models.FilterOperator("matches_regex"), models.ScalarText("x"))))
	})
}

func TestSalaryNormalization(t *testing.T) {
	job := sampleJob() // 70000 USD / YEAR
	rates := map[string]float64{"USD": 0.9}

	qualified := func(op models.FilterOperator, v models.ConditionValue, period, currency string) models.FilterCondition {
		c := cond("ai_salary_minvalue", op, v)
		c.SalaryPeriod = &period
		c.SalaryCurrency = &currency
		return c
	}

	t.Run("ConvertsThroughRate", func(t *testing.T) {
		// 70000 * 0.9 = 63000 EUR
		c := qualified(models.OperatorGreaterThan, models.ScalarNumber(62000), "YEAR", "EUR")
		assert.True(t, MatchesWithRates(job, c, rates))

		c = qualified(models.OperatorGreaterThan, models.ScalarNumber(64000), "YEAR", "EUR")
		assert.False(t, MatchesWithRates(job, c, rates))
	})

	t.Run("MissingRateDefaultsToOne", func(t *testing.T) {
		c := qualified(models.OperatorEquals, models.ScalarNumber(70000), "YEAR", "EUR")
		assert.True(t, MatchesWithRates(job, c, nil))
	})

	t.Run("ZeroRateDefaultsToOne", func(t *testing.T) {
		c := qualified(models.OperatorEquals, models.ScalarNumber(70000), "YEAR", "EUR")
		assert.True(t, MatchesWithRates(job, c, map[string]float64{"USD": 0}))
	})

	t.Run("PeriodMismatchTreatedAsMissing", func(t *testing.T) {
		c := qualified(models.OperatorGreaterThan, models.ScalarNumber(0), "MONTH", "EUR")
		assert.False(t, MatchesWithRates(job, c, rates))

		// Negative operators therefore match on a period mismatch
		c = qualified(models.OperatorNotEquals, models.ScalarNumber(63000), "MONTH", "EUR")
		assert.True(t, MatchesWithRates(job, c, rates))
	})

	t.Run("PeriodComparedCaseInsensitively", func(t *testing.T) {
		c := qualified(models.OperatorGreaterThan, models.ScalarNumber(62000), "year", "EUR")
		assert.True(t, MatchesWithRates(job, c, rates))
	})

	t.Run("NoCurrencyQualifierPassesThrough", func(t *testing.T) {
		c := cond("ai_salary_minvalue", models.OperatorEquals, models.ScalarNumber(70000))
		assert.True(t, MatchesWithRates(job, c, rates))
	})
}

func TestApplyAll(t *testing.T) {
	berlin := sampleJob()
	remoteJob := sampleJob()
	remoteJob.CitiesDerived = nil
	remoteJob.Title = "Platform Engineer"

	jobs := []*models.Job{berlin, remoteJob}

	t.Run("AndAcrossConditions", func(t *testing.T) {
		got := ApplyAll(jobs, []models.FilterCondition{
			cond("title", models.OperatorContains, models.ScalarText("engineer")),
			cond("cities_derived", models.OperatorContains, models.ScalarText("Berlin")),
		})
		assert.Len(t, got, 1)
		assert.Equal(t, berlin, got[0])
	})

	t.Run("NoConditionsKeepsEverything", func(t *testing.T) {
		got := ApplyAll(jobs, nil)
		assert.Len(t, got, 2)
	})
}
