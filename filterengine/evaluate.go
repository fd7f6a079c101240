package filterengine

import (
	"strings"
	"time"

	"github.com/jobradar/jobradar/models"
)

// Matches decides whether a single job satisfies one condition. Conditions on
// unknown fields never match; conditions with an unknown operator always
// match. The latter is deliberate fail-open behavior: an unrecognized future
// operator degrades to a no-op instead of silently hiding results.
func Matches(job *models.Job, cond models.FilterCondition) bool {
	return MatchesWithRates(job, cond, nil)
}

// MatchesWithRates is Matches with an exchange-rate table for salary
// conditions carrying a currency qualifier. A missing rate counts as 1.
func MatchesWithRates(job *models.Job, cond models.FilterCondition, rates map[string]float64) bool {
	spec, ok := fieldsByName[cond.Field]
	if !ok {
		return false
	}

	value := spec.extract(job)
	if spec.isSalary {
		value = normalizeSalary(job, cond, value, rates)
	}

	switch cond.Operator {
	case models.OperatorContains:
		return containsMatch(value, cond.Value)
	case models.OperatorNotContains:
		return !containsMatch(value, cond.Value)
	case models.OperatorEquals:
		return equalsMatch(value, cond.Value)
	case models.OperatorNotEquals:
		return !equalsMatch(value, cond.Value)
	case models.OperatorIsAnyOf:
		return anyOfMatch(value, cond.Value)
	case models.OperatorIsNotAnyOf:
		return !anyOfMatch(value, cond.Value)
	case models.OperatorGreaterThan:
		return orderedMatch(value, cond.Value, func(c int) bool { return c > 0 })
	case models.OperatorLessThan:
		return orderedMatch(value, cond.Value, func(c int) bool { return c < 0 })
	case models.OperatorBetween:
		return betweenMatch(value, cond.Value)
	case models.OperatorIsEmpty:
		return isEmpty(value)
	case models.OperatorIsNotEmpty:
		return !isEmpty(value)
	default:
		// Fail open on operators outside the vocabulary
		return true
	}
}

// ApplyAll returns the jobs matching every condition (AND semantics across
// conditions; set-valued conditions are OR within their value set).
func ApplyAll(jobs []*models.Job, conds []models.FilterCondition) []*models.Job {
	return ApplyAllWithRates(jobs, conds, nil)
}

// ApplyAllWithRates is ApplyAll with an exchange-rate table
func ApplyAllWithRates(jobs []*models.Job, conds []models.FilterCondition, rates map[string]float64) []*models.Job {
	matched := make([]*models.Job, 0, len(jobs))
	for _, job := range jobs {
		ok := true
		for _, cond := range conds {
			if !MatchesWithRates(job, cond, rates) {
				ok = false
				break
			}
		}
		if ok {
			matched = append(matched, job)
		}
	}
	return matched
}

// normalizeSalary converts a salary amount into the condition's comparison
// currency and filters on the normalization period. When the condition has no
// currency qualifier the value passes through untouched.
func normalizeSalary(job *models.Job, cond models.FilterCondition, value fieldValue, rates map[string]float64) fieldValue {
	if cond.SalaryCurrency == nil || *cond.SalaryCurrency == "" {
		return value
	}
	if value.kind != kindNumber {
		return value
	}

	// A different pay period makes the amounts incomparable
	if cond.SalaryPeriod != nil && *cond.SalaryPeriod != "" {
		if job.AISalaryUnitText == nil || !strings.EqualFold(*job.AISalaryUnitText, *cond.SalaryPeriod) {
			return fieldValue{kind: kindMissing}
		}
	}

	rate := 1.0
	if job.AISalaryCurrency != nil {
		if r, ok := rates[strings.ToUpper(*job.AISalaryCurrency)]; ok && r > 0 {
			rate = r
		}
	}
	value.number *= rate
	return value
}

// containsMatch is a case-insensitive substring test; on a multi-value
// collection it is true when any element substring-matches, never against a
// serialized form of the whole collection.
func containsMatch(value fieldValue, cv models.ConditionValue) bool {
	if cv.Kind != models.ValueKindScalar || cv.Scalar == nil || cv.Scalar.Text == nil {
		return false
	}
	needle := strings.ToLower(*cv.Scalar.Text)

	switch value.kind {
	case kindText:
		return strings.Contains(strings.ToLower(value.text), needle)
	case kindList:
		for _, item := range value.list {
			if strings.Contains(strings.ToLower(item), needle) {
				return true
			}
		}
	}
	return false
}

// equalsMatch is strict, type-sensitive equality with no coercion
func equalsMatch(value fieldValue, cv models.ConditionValue) bool {
	if cv.Kind != models.ValueKindScalar || cv.Scalar == nil {
		return false
	}
	s := *cv.Scalar

	switch value.kind {
	case kindText:
		return s.Text != nil && value.text == *s.Text
	case kindNumber:
		return s.Number != nil && value.number == *s.Number
	case kindBool:
		return s.Bool != nil && value.b == *s.Bool
	case kindTime:
		if s.Text == nil {
			return false
		}
		t, err := time.Parse(time.RFC3339, *s.Text)
		return err == nil && value.t.Equal(t)
	}
	return false
}

// anyOfMatch is set membership for scalar fields and set overlap (any shared
// element, not subset) for multi-value fields.
func anyOfMatch(value fieldValue, cv models.ConditionValue) bool {
	if cv.Kind != models.ValueKindSet || len(cv.Set) == 0 {
		return false
	}

	switch value.kind {
	case kindText:
		for _, want := range cv.Set {
			if value.text == want {
				return true
			}
		}
	case kindList:
		wanted := make(map[string]struct{}, len(cv.Set))
		for _, want := range cv.Set {
			wanted[want] = struct{}{}
		}
		for _, have := range value.list {
			if _, ok := wanted[have]; ok {
				return true
			}
		}
	}
	return false
}

// orderedMatch compares a numeric or date value against a scalar bound; a
// missing field value never satisfies the comparison.
func orderedMatch(value fieldValue, cv models.ConditionValue, accept func(int) bool) bool {
	if cv.Kind != models.ValueKindScalar || cv.Scalar == nil {
		return false
	}
	s := *cv.Scalar

	switch value.kind {
	case kindNumber:
		if s.Number == nil {
			return false
		}
		switch {
		case value.number > *s.Number:
			return accept(1)
		case value.number < *s.Number:
			return accept(-1)
		default:
			return accept(0)
		}
	case kindTime:
		if s.Text == nil {
			return false
		}
		t, err := time.Parse(time.RFC3339, *s.Text)
		if err != nil {
			return false
		}
		return accept(value.t.Compare(t))
	}
	return false
}

// betweenMatch is an inclusive [min, max] test. Bounds are assumed ordered;
// any normalization of a reversed range is the caller's responsibility and is
// never performed here.
func betweenMatch(value fieldValue, cv models.ConditionValue) bool {
	if cv.Kind != models.ValueKindRange || cv.Range == nil {
		return false
	}
	r := *cv.Range

	switch value.kind {
	case kindNumber:
		if r.Min.Number == nil || r.Max.Number == nil {
			return false
		}
		return value.number >= *r.Min.Number && value.number <= *r.Max.Number
	case kindTime:
		if r.Min.Text == nil || r.Max.Text == nil {
			return false
		}
		min, err := time.Parse(time.RFC3339, *r.Min.Text)
		if err != nil {
			return false
		}
		max, err := time.Parse(time.RFC3339, *r.Max.Text)
		if err != nil {
			return false
		}
		return !value.t.Before(min) && !value.t.After(max)
	}
	return false
}

// isEmpty treats nil/missing, empty string, and zero-length collections as
// empty.
func isEmpty(value fieldValue) bool {
	switch value.kind {
	case kindMissing:
		return true
	case kindText:
		return value.text == ""
	case kindList:
		return len(value.list) == 0
	}
	return false
}
