package filterengine

import (
	"encoding/base64"
	"testing"

	"github.com/jobradar/jobradar/models"
	"github.com/jobradar/jobradar/utils"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestEncodeDecodeConditions(t *testing.T) {
	salary := models.FilterCondition{
		ID:             "c3",
		Field:          "ai_salary_minvalue",
		Operator:       models.OperatorGreaterThan,
		Value:          models.ScalarNumber(60000),
		SalaryPeriod:   utils.ToPtr("YEAR"),
		SalaryCurrency: utils.ToPtr("EUR"),
	}

	conds := []models.FilterCondition{
		{ID: "c1", Field: "title", Operator: models.OperatorContains, Value: models.ScalarText("engineer")},
		{ID: "c2", Field: "ai_key_skills", Operator: models.OperatorIsAnyOf, Value: models.SetOf("Go", "Rust")},
		salary,
		{ID: "c4", Field: "remote_derived", Operator: models.OperatorEquals, Value: models.ScalarBool(true)},
		{ID: "c5", Field: "organization", Operator: models.OperatorIsNotEmpty, Value: models.NoValue()},
		{ID: "c6", Field: "date_posted", Operator: models.OperatorBetween, Value: models.ConditionValue{
			Kind: models.ValueKindRange,
			Range: &models.RangeValue{
				Min: models.ScalarValue{Text: utils.ToPtr("2026-08-01T00:00:00Z")},
				Max: models.ScalarValue{Text: utils.ToPtr("2026-08-31T00:00:00Z")},
			},
		}},
	}

	encoded := EncodeConditions(conds)
	require.NotEmpty(t, encoded)

	decoded := DecodeConditions(encoded)
	require.Len(t, decoded, len(conds))

	for i, got := range decoded {
		assert.Equal(t, conds[i].ID, got.ID)
		assert.Equal(t, conds[i].Field, got.Field)
		assert.Equal(t, conds[i].Operator, got.Operator)
	}

	assert.Equal(t, "engineer", *decoded[0].Value.Scalar.Text)
	assert.Equal(t, []string{"Go", "Rust"}, decoded[1].Value.Set)
	assert.Equal(t, 60000.0, *decoded[2].Value.Scalar.Number)
	assert.Equal(t, "YEAR", *decoded[2].SalaryPeriod)
	assert.Equal(t, "EUR", *decoded[2].SalaryCurrency)
	assert.True(t, *decoded[3].Value.Scalar.Bool)
	assert.Equal(t, models.ValueKindNone, decoded[4].Value.Kind)
	assert.Equal(t, "2026-08-01T00:00:00Z", *decoded[5].Value.Range.Min.Text)
}

func TestEncodeConditionsEmpty(t *testing.T) {
	assert.Empty(t, EncodeConditions(nil))
	assert.Empty(t, EncodeConditions([]models.FilterCondition{}))
}

func TestDecodeConditionsCorruptInput(t *testing.T) {
	t.Run("EmptyString", func(t *testing.T) {
		assert.Nil(t, DecodeConditions(""))
	})

	t.Run("NotBase64", func(t *testing.T) {
		assert.Nil(t, DecodeConditions("***not-base64***"))
	})

	t.Run("Base64ButNotJSON", func(t *testing.T) {
		assert.Nil(t, DecodeConditions("bm90LWpzb24"))
	})

	t.Run("UnknownFieldDropsWholeSet", func(t *testing.T) {
		payload := `[{"i":"c1","f":"no_such_field","o":"contains","v":"x"}]`
		tampered := base64.RawURLEncoding.EncodeToString([]byte(payload))
		assert.Nil(t, DecodeConditions(tampered))
	})

	t.Run("ValueShapeMismatchDropsWholeSet", func(t *testing.T) {
		payload := `[{"i":"c1","f":"ai_salary_minvalue","o":"equals","v":"not-a-number"}]`
		tampered := base64.RawURLEncoding.EncodeToString([]byte(payload))
		assert.Nil(t, DecodeConditions(tampered))
	})
}

func TestDeclareFields(t *testing.T) {
	opts := DynamicOptions{Options: map[string][]Option{
		"seniority": {{Value: "senior", Label: "senior"}},
	}}

	fields := DeclareFields(opts)
	require.NotEmpty(t, fields)

	byName := make(map[string]FilterField, len(fields))
	for _, f := range fields {
		byName[f.Name] = f
	}

	title := byName["title"]
	assert.Equal(t, FieldTypeText, title.Type)
	assert.Contains(t, title.Operators, models.OperatorContains)
	assert.NotContains(t, title.Operators, models.OperatorBetween)

	seniority := byName["seniority"]
	require.Len(t, seniority.Options, 1)
	assert.Equal(t, "senior", seniority.Options[0].Value)

	skills := byName["ai_key_skills"]
	assert.True(t, skills.MultiValued)

	salaryField := byName["ai_salary_minvalue"]
	assert.True(t, salaryField.IsSalary)
}
