package filterengine

import (
	"encoding/base64"
	"encoding/json"

	"github.com/jobradar/jobradar/models"
)

// compactCondition is the positional-key wire form of one condition used for
// the shareable URL state: single-letter keys keep the encoded query
// parameter short.
type compactCondition struct {
	I string          `json:"i"`           // condition id
	F string          `json:"f"`           // field
	L string          `json:"l,omitempty"` // display label
	O string          `json:"o"`           // operator
	V json.RawMessage `json:"v,omitempty"` // value, shape keyed by operator
	P string          `json:"p,omitempty"` // salary period
	C string          `json:"c,omitempty"` // salary currency
}

// EncodeConditions serializes an active condition list into a single compact
// query-parameter value so a filtered view is shareable and survives reload.
func EncodeConditions(conds []models.FilterCondition) string {
	if len(conds) == 0 {
		return ""
	}

	compact := make([]compactCondition, 0, len(conds))
	for _, cond := range conds {
		c := compactCondition{
			I: cond.ID,
			F: cond.Field,
			L: fieldsByName[cond.Field].label,
			O: cond.Operator.String(),
		}
		if raw, err := json.Marshal(compactValue(cond.Value)); err == nil && string(raw) != "null" {
			c.V = raw
		}
		if cond.SalaryPeriod != nil {
			c.P = *cond.SalaryPeriod
		}
		if cond.SalaryCurrency != nil {
			c.C = *cond.SalaryCurrency
		}
		compact = append(compact, c)
	}

	raw, err := json.Marshal(compact)
	if err != nil {
		return ""
	}
	return base64.RawURLEncoding.EncodeToString(raw)
}

// DecodeConditions parses an encoded condition list. Any decode failure
// degrades to an empty condition list rather than an error: a corrupted or
// stale URL must never break the page.
func DecodeConditions(encoded string) []models.FilterCondition {
	if encoded == "" {
		return nil
	}

	raw, err := base64.RawURLEncoding.DecodeString(encoded)
	if err != nil {
		return nil
	}

	var compact []compactCondition
	if err := json.Unmarshal(raw, &compact); err != nil {
		return nil
	}

	conds := make([]models.FilterCondition, 0, len(compact))
	for _, c := range compact {
		spec, ok := fieldsByName[c.F]
		if !ok {
			return nil
		}
		op := models.FilterOperator(c.O)
		value, ok := expandValue(spec.typ, op, c.V)
		if !ok {
			return nil
		}
		cond := models.FilterCondition{
			ID:       c.I,
			Field:    c.F,
			Operator: op,
			Value:    value,
		}
		if c.P != "" {
			cond.SalaryPeriod = &c.P
		}
		if c.C != "" {
			cond.SalaryCurrency = &c.C
		}
		conds = append(conds, cond)
	}
	return conds
}

// compactValue flattens a tagged value into bare JSON: scalars become JSON
// scalars, ranges two-element arrays, sets string arrays.
func compactValue(v models.ConditionValue) any {
	return procedureValue(v)
}

// expandValue rebuilds the tagged value from bare JSON, using the field type
// and operator to disambiguate the shape.
func expandValue(t FieldType, op models.FilterOperator, raw json.RawMessage) (models.ConditionValue, bool) {
	switch op {
	case models.OperatorIsEmpty, models.OperatorIsNotEmpty:
		return models.NoValue(), true

	case models.OperatorIsAnyOf, models.OperatorIsNotAnyOf:
		var set []string
		if err := json.Unmarshal(raw, &set); err != nil {
			return models.ConditionValue{}, false
		}
		return models.SetOf(set...), true

	case models.OperatorBetween:
		switch t {
		case FieldTypeDate:
			var bounds [2]string
			if err := json.Unmarshal(raw, &bounds); err != nil {
				return models.ConditionValue{}, false
			}
			return models.ConditionValue{Kind: models.ValueKindRange, Range: &models.RangeValue{
				Min: models.ScalarValue{Text: &bounds[0]},
				Max: models.ScalarValue{Text: &bounds[1]},
			}}, true
		default:
			var bounds [2]float64
			if err := json.Unmarshal(raw, &bounds); err != nil {
				return models.ConditionValue{}, false
			}
			return models.NumberRange(bounds[0], bounds[1]), true
		}

	default:
		switch t {
		case FieldTypeNumber:
			var n float64
			if err := json.Unmarshal(raw, &n); err != nil {
				return models.ConditionValue{}, false
			}
			return models.ScalarNumber(n), true
		case FieldTypeBoolean:
			var b bool
			if err := json.Unmarshal(raw, &b); err != nil {
				return models.ConditionValue{}, false
			}
			return models.ScalarBool(b), true
		default:
			var s string
			if err := json.Unmarshal(raw, &s); err != nil {
				return models.ConditionValue{}, false
			}
			return models.ScalarText(s), true
		}
	}
}
