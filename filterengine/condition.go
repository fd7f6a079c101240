package filterengine

import (
	"errors"
	"fmt"
	"time"

	"github.com/jobradar/jobradar/models"
)

// Condition validation errors
var (
	ErrUnknownField      = errors.New("unknown filter field")
	ErrUnknownOperator   = errors.New("unknown filter operator")
	ErrOperatorNotLegal  = errors.New("operator not legal for field type")
	ErrBadValueShape     = errors.New("condition value shape does not match operator")
	ErrRangeNotOrdered   = errors.New("range lower bound exceeds upper bound")
	ErrSalaryQualifiers  = errors.New("salary period and currency are required together")
	ErrSalaryOnNonSalary = errors.New("salary qualifiers are only valid on salary fields")
)

// ValidateCondition checks a single condition against the field vocabulary:
// the operator must be legal for the field's type and the value shape must
// match what the operator expects. Unknown operators are rejected here
// (fail-closed at the validation boundary) even though the evaluator itself
// treats them as a permissive no-op.
func ValidateCondition(cond models.FilterCondition) error {
	spec, ok := fieldsByName[cond.Field]
	if !ok {
		return fmt.Errorf("%w: %q", ErrUnknownField, cond.Field)
	}

	if !cond.Operator.Valid() {
		return fmt.Errorf("%w: %q", ErrUnknownOperator, cond.Operator)
	}

	legal := false
	for _, op := range operatorsByType[spec.typ] {
		if op == cond.Operator {
			legal = true
			break
		}
	}
	if !legal {
		return fmt.Errorf("%w: %s on %s field %q", ErrOperatorNotLegal, cond.Operator, spec.typ, cond.Field)
	}

	if err := validateValueShape(spec, cond); err != nil {
		return err
	}

	return validateSalaryQualifiers(spec, cond)
}

// ValidateConditions validates every condition of a set; the first violation
// is returned so the caller can reject the whole set before it reaches the
// evaluator or the data layer.
func ValidateConditions(conds []models.FilterCondition) error {
	for i, cond := range conds {
		if err := ValidateCondition(cond); err != nil {
			return fmt.Errorf("condition %d: %w", i, err)
		}
	}
	return nil
}

func validateValueShape(spec fieldSpec, cond models.FilterCondition) error {
	v := cond.Value

	switch cond.Operator {
	case models.OperatorIsEmpty, models.OperatorIsNotEmpty:
		// No value expected; a stale value is ignored rather than rejected
		return nil

	case models.OperatorContains, models.OperatorNotContains:
		if v.Kind != models.ValueKindScalar || v.Scalar == nil || v.Scalar.Text == nil || *v.Scalar.Text == "" {
			return fmt.Errorf("%w: %s expects a non-empty text value", ErrBadValueShape, cond.Operator)
		}
		return nil

	case models.OperatorEquals, models.OperatorNotEquals:
		if v.Kind != models.ValueKindScalar || v.Scalar == nil {
			return fmt.Errorf("%w: %s expects a scalar value", ErrBadValueShape, cond.Operator)
		}
		return validateScalarType(spec.typ, *v.Scalar, cond.Operator)

	case models.OperatorIsAnyOf, models.OperatorIsNotAnyOf:
		if v.Kind != models.ValueKindSet || len(v.Set) == 0 {
			return fmt.Errorf("%w: %s expects a non-empty value set", ErrBadValueShape, cond.Operator)
		}
		return nil

	case models.OperatorGreaterThan, models.OperatorLessThan:
		if v.Kind != models.ValueKindScalar || v.Scalar == nil {
			return fmt.Errorf("%w: %s expects a scalar value", ErrBadValueShape, cond.Operator)
		}
		return validateScalarType(spec.typ, *v.Scalar, cond.Operator)

	case models.OperatorBetween:
		if v.Kind != models.ValueKindRange || v.Range == nil {
			return fmt.Errorf("%w: between expects a two-element range", ErrBadValueShape)
		}
		return validateRange(spec.typ, *v.Range)
	}

	return nil
}

func validateScalarType(t FieldType, s models.ScalarValue, op models.FilterOperator) error {
	switch t {
	case FieldTypeNumber:
		if s.Number == nil {
			return fmt.Errorf("%w: %s on a number field expects a numeric value", ErrBadValueShape, op)
		}
	case FieldTypeBoolean:
		if s.Bool == nil {
			return fmt.Errorf("%w: %s on a boolean field expects a boolean value", ErrBadValueShape, op)
		}
	case FieldTypeDate:
		if s.Text == nil {
			return fmt.Errorf("%w: %s on a date field expects an RFC3339 text value", ErrBadValueShape, op)
		}
		if _, err := time.Parse(time.RFC3339, *s.Text); err != nil {
			return fmt.Errorf("%w: invalid date %q", ErrBadValueShape, *s.Text)
		}
	default:
		if s.Text == nil {
			return fmt.Errorf("%w: %s on a %s field expects a text value", ErrBadValueShape, op, t)
		}
	}
	return nil
}

func validateRange(t FieldType, r models.RangeValue) error {
	switch t {
	case FieldTypeNumber:
		if r.Min.Number == nil || r.Max.Number == nil {
			return fmt.Errorf("%w: between on a number field expects two numeric bounds", ErrBadValueShape)
		}
		if *r.Min.Number > *r.Max.Number {
			return ErrRangeNotOrdered
		}
	case FieldTypeDate:
		if r.Min.Text == nil || r.Max.Text == nil {
			return fmt.Errorf("%w: between on a date field expects two RFC3339 bounds", ErrBadValueShape)
		}
		min, err := time.Parse(time.RFC3339, *r.Min.Text)
		if err != nil {
			return fmt.Errorf("%w: invalid date %q", ErrBadValueShape, *r.Min.Text)
		}
		max, err := time.Parse(time.RFC3339, *r.Max.Text)
		if err != nil {
			return fmt.Errorf("%w: invalid date %q", ErrBadValueShape, *r.Max.Text)
		}
		if min.After(max) {
			return ErrRangeNotOrdered
		}
	default:
		return fmt.Errorf("%w: between is not defined for %s fields", ErrBadValueShape, t)
	}
	return nil
}

func validateSalaryQualifiers(spec fieldSpec, cond models.FilterCondition) error {
	hasPeriod := cond.SalaryPeriod != nil && *cond.SalaryPeriod != ""
	hasCurrency := cond.SalaryCurrency != nil && *cond.SalaryCurrency != ""

	if !spec.isSalary {
		if hasPeriod || hasCurrency {
			return fmt.Errorf("%w: field %q", ErrSalaryOnNonSalary, cond.Field)
		}
		return nil
	}

	// Salary comparison is meaningless without both a normalization period
	// and a currency, so the qualifiers come as a pair or not at all.
	if hasPeriod != hasCurrency {
		return ErrSalaryQualifiers
	}
	return nil
}

// HasCurrencyQualifier reports whether any condition of the set carries a
// salary currency, i.e. whether the query needs an exchange-rate table.
func HasCurrencyQualifier(conds []models.FilterCondition) bool {
	for _, cond := range conds {
		if IsSalaryField(cond.Field) && cond.SalaryCurrency != nil && *cond.SalaryCurrency != "" {
			return true
		}
	}
	return false
}
