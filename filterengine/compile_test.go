package filterengine

import (
	"testing"

	"github.com/jobradar/jobradar/models"
	"github.com/jobradar/jobradar/utils"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestRequiresProcedure(t *testing.T) {
	t.Run("SimpleColumnsStayOnPredicatePath", func(t *testing.T) {
		conds := []models.FilterCondition{
			cond("title", models.OperatorContains, models.ScalarText("go")),
			cond("remote_derived", models.OperatorEquals, models.ScalarBool(true)),
		}
		assert.False(t, RequiresProcedure(conds))
	})

	t.Run("MultiValueFieldForcesProcedure", func(t *testing.T) {
		conds := []models.FilterCondition{
			cond("title", models.OperatorContains, models.ScalarText("go")),
			cond("ai_key_skills", models.OperatorIsAnyOf, models.SetOf("Go")),
		}
		assert.True(t, RequiresProcedure(conds))
	})

	t.Run("CurrencyQualifierForcesProcedure", func(t *testing.T) {
		c := cond("ai_salary_minvalue", models.OperatorGreaterThan, models.ScalarNumber(50000))
		c.SalaryPeriod = utils.ToPtr("YEAR")
		c.SalaryCurrency = utils.ToPtr("EUR")
		assert.True(t, RequiresProcedure([]models.FilterCondition{c}))
	})

	t.Run("UnqualifiedSalaryStaysSimple", func(t *testing.T) {
		c := cond("ai_salary_minvalue", models.OperatorGreaterThan, models.ScalarNumber(50000))
		assert.False(t, RequiresProcedure([]models.FilterCondition{c}))
	})
}

func TestCompilePredicates(t *testing.T) {
	t.Run("ContainsBecomesILike", func(t *testing.T) {
		plan, err := Compile([]models.FilterCondition{
			cond("title", models.OperatorContains, models.ScalarText("engineer")),
		}, nil)
		require.NoError(t, err)
		assert.False(t, plan.IsProcedure())
		require.Len(t, plan.Predicates, 1)
		assert.Equal(t, "title ILIKE ?", plan.Predicates[0].Expr)
		assert.Equal(t, []any{"%engineer%"}, plan.Predicates[0].Args)
	})

	t.Run("NegationsIncludeNullRows", func(t *testing.T) {
		plan, err := Compile([]models.FilterCondition{
			cond("ai_experience_level", models.OperatorNotEquals, models.ScalarText("senior")),
		}, nil)
		require.NoError(t, err)
		require.Len(t, plan.Predicates, 1)
		assert.Equal(t, "(ai_experience_level IS NULL OR ai_experience_level <> ?)", plan.Predicates[0].Expr)
	})

	t.Run("IsEmptyOnTextCoversEmptyString", func(t *testing.T) {
		plan, err := Compile([]models.FilterCondition{
			cond("organization", models.OperatorIsEmpty, models.NoValue()),
		}, nil)
		require.NoError(t, err)
		require.Len(t, plan.Predicates, 1)
		assert.Equal(t, "(organization IS NULL OR organization = '')", plan.Predicates[0].Expr)
	})

	t.Run("BetweenProducesTwoArgs", func(t *testing.T) {
		plan, err := Compile([]models.FilterCondition{
			cond("ai_salary_minvalue", models.OperatorBetween, models.NumberRange(50000, 80000)),
		}, nil)
		require.NoError(t, err)
		require.Len(t, plan.Predicates, 1)
		assert.Equal(t, "ai_salary_minvalue BETWEEN ? AND ?", plan.Predicates[0].Expr)
		assert.Equal(t, []any{50000.0, 80000.0}, plan.Predicates[0].Args)
	})

	t.Run("UnknownOperatorCompilesToNoPredicate", func(t *testing.T) {
		plan, err := Compile([]models.FilterCondition{
			cond("title", models.FilterOperator("matches_regex"), models.ScalarText("x")),
		}, nil)
		require.NoError(t, err)
		assert.Empty(t, plan.Predicates)
	})

	t.Run("UnknownFieldFails", func(t *testing.T) {
		_, err := Compile([]models.FilterCondition{
			cond("no_such_field", models.OperatorEquals, models.ScalarText("x")),
		}, nil)
		assert.ErrorIs(t, err, ErrUnknownField)
	})
}

func TestCompileProcedure(t *testing.T) {
	salary := cond("ai_salary_minvalue", models.OperatorGreaterThan, models.ScalarNumber(50000))
	salary.SalaryPeriod = utils.ToPtr("YEAR")
	salary.SalaryCurrency = utils.ToPtr("EUR")

	conds := []models.FilterCondition{
		cond("ai_key_skills", models.OperatorIsAnyOf, models.SetOf("Go", "Rust")),
		cond("title", models.OperatorContains, models.ScalarText("engineer")),
		salary,
	}
	rates := map[string]float64{"USD": 0.9, "GBP": 1.15}

	plan, err := Compile(conds, rates)
	require.NoError(t, err)
	require.True(t, plan.IsProcedure())

	call := plan.Procedure
	assert.Equal(t, ProcedureName, call.Name)
	assert.Equal(t, rates, call.ExchangeRates)
	require.Len(t, call.Filters, 3)

	// One qualifying condition drags the whole set through the procedure
	assert.Equal(t, "ai_key_skills", call.Filters[0].Field)
	assert.True(t, call.Filters[0].IsArrayValue)
	assert.Equal(t, []string{"Go", "Rust"}, call.Filters[0].Value)

	assert.Equal(t, "title", call.Filters[1].Field)
	assert.False(t, call.Filters[1].IsArrayValue)
	assert.Equal(t, "engineer", call.Filters[1].Value)

	assert.Equal(t, "ai_salary_minvalue", call.Filters[2].Field)
	assert.Equal(t, "YEAR", *call.Filters[2].SalaryPeriod)
	assert.Equal(t, "EUR", *call.Filters[2].SalaryCurrency)
	assert.Equal(t, 50000.0, call.Filters[2].Value)
}

func TestCompileProcedureDefaultsRates(t *testing.T) {
	conds := []models.FilterCondition{
		cond("cities_derived", models.OperatorIsAnyOf, models.SetOf("Berlin")),
	}
	plan, err := Compile(conds, nil)
	require.NoError(t, err)
	require.True(t, plan.IsProcedure())
	assert.NotNil(t, plan.Procedure.ExchangeRates)
	assert.Empty(t, plan.Procedure.ExchangeRates)
}

func TestSourceCurrencies(t *testing.T) {
	jobs := []*models.Job{
		{AISalaryCurrency: utils.ToPtr("usd")},
		{AISalaryCurrency: utils.ToPtr("USD")},
		{AISalaryCurrency: utils.ToPtr("GBP")},
		{AISalaryCurrency: nil},
		{AISalaryCurrency: utils.ToPtr("")},
	}
	assert.Equal(t, []string{"USD", "GBP"}, SourceCurrencies(jobs))
}
