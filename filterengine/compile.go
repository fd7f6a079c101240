package filterengine

import (
	"fmt"
	"strings"
	"time"

	"github.com/jobradar/jobradar/models"
)

// ProcedureName is the server-side procedure carrying the special execution
// path: array-overlap predicates and currency-normalized salary comparison
// cannot be expressed as simple column predicates.
const ProcedureName = "filter_jobs"

// Predicate is one per-column SQL predicate of the simple execution path,
// ready to be appended to a base query.
type Predicate struct {
	Expr string
	Args []any
}

// ProcedureParam is one structured filter parameter of the procedure path
type ProcedureParam struct {
	Field          string  `json:"field"`
	Operator       string  `json:"operator"`
	Value          any     `json:"value"`
	IsArrayValue   bool    `json:"is_array_value"`
	SalaryPeriod   *string `json:"salary_period,omitempty"`
	SalaryCurrency *string `json:"salary_currency,omitempty"`
}

// ProcedureCall is the compiled special path: the full condition list as
// structured parameters plus the exchange-rate table.
type ProcedureCall struct {
	Name          string             `json:"name"`
	Filters       []ProcedureParam   `json:"filters"`
	ExchangeRates map[string]float64 `json:"exchange_rates"`
}

// QueryPlan is the compiled form of a condition set: either a sequence of
// simple predicates or a single procedure invocation, never a mix. Counting
// and fetching consume the same plan, so the rows a count sees and the rows a
// page fetch sees can never diverge.
type QueryPlan struct {
	Predicates []Predicate
	Procedure  *ProcedureCall
}

// IsProcedure reports whether the plan runs through the server-side procedure
func (p QueryPlan) IsProcedure() bool {
	return p.Procedure != nil
}

// RequiresProcedure reports whether any condition of the set needs the
// procedure path: a multi-value field, or a salary field with a currency
// qualifier. One such condition forces the whole set through the procedure.
func RequiresProcedure(conds []models.FilterCondition) bool {
	for _, cond := range conds {
		spec, ok := fieldsByName[cond.Field]
		if !ok {
			continue
		}
		if spec.multiValued {
			return true
		}
		if spec.isSalary && cond.SalaryCurrency != nil && *cond.SalaryCurrency != "" {
			return true
		}
	}
	return false
}

// Compile translates a validated condition set into a query plan. The rates
// table is only consulted on the procedure path; pass nil when no condition
// carries a currency qualifier.
func Compile(conds []models.FilterCondition, rates map[string]float64) (QueryPlan, error) {
	if RequiresProcedure(conds) {
		call, err := compileProcedure(conds, rates)
		if err != nil {
			return QueryPlan{}, err
		}
		return QueryPlan{Procedure: call}, nil
	}

	predicates := make([]Predicate, 0, len(conds))
	for _, cond := range conds {
		pred, ok, err := compilePredicate(cond)
		if err != nil {
			return QueryPlan{}, err
		}
		if ok {
			predicates = append(predicates, pred)
		}
	}
	return QueryPlan{Predicates: predicates}, nil
}

// compilePredicate translates one condition into a per-column predicate with
// the same semantics the in-memory evaluator implements. Operators outside
// the vocabulary compile to no predicate at all, mirroring the evaluator's
// fail-open behavior.
func compilePredicate(cond models.FilterCondition) (Predicate, bool, error) {
	spec, ok := fieldsByName[cond.Field]
	if !ok {
		return Predicate{}, false, fmt.Errorf("%w: %q", ErrUnknownField, cond.Field)
	}
	col := spec.column

	switch cond.Operator {
	case models.OperatorContains:
		needle, err := scalarText(cond.Value)
		if err != nil {
			return Predicate{}, false, err
		}
		return Predicate{Expr: col + " ILIKE ?", Args: []any{"%" + needle + "%"}}, true, nil

	case models.OperatorNotContains:
		needle, err := scalarText(cond.Value)
		if err != nil {
			return Predicate{}, false, err
		}
		return Predicate{
			Expr: "(" + col + " IS NULL OR " + col + " NOT ILIKE ?)",
			Args: []any{"%" + needle + "%"},
		}, true, nil

	case models.OperatorEquals:
		arg, err := scalarArg(spec.typ, cond.Value)
		if err != nil {
			return Predicate{}, false, err
		}
		return Predicate{Expr: col + " = ?", Args: []any{arg}}, true, nil

	case models.OperatorNotEquals:
		arg, err := scalarArg(spec.typ, cond.Value)
		if err != nil {
			return Predicate{}, false, err
		}
		return Predicate{
			Expr: "(" + col + " IS NULL OR " + col + " <> ?)",
			Args: []any{arg},
		}, true, nil

	case models.OperatorIsAnyOf:
		if cond.Value.Kind != models.ValueKindSet || len(cond.Value.Set) == 0 {
			return Predicate{}, false, fmt.Errorf("%w: is_any_of expects a non-empty set", ErrBadValueShape)
		}
		return Predicate{Expr: col + " IN ?", Args: []any{cond.Value.Set}}, true, nil

	case models.OperatorIsNotAnyOf:
		if cond.Value.Kind != models.ValueKindSet || len(cond.Value.Set) == 0 {
			return Predicate{}, false, fmt.Errorf("%w: is_not_any_of expects a non-empty set", ErrBadValueShape)
		}
		return Predicate{
			Expr: "(" + col + " IS NULL OR " + col + " NOT IN ?)",
			Args: []any{cond.Value.Set},
		}, true, nil

	case models.OperatorGreaterThan:
		arg, err := scalarArg(spec.typ, cond.Value)
		if err != nil {
			return Predicate{}, false, err
		}
		return Predicate{Expr: col + " > ?", Args: []any{arg}}, true, nil

	case models.OperatorLessThan:
		arg, err := scalarArg(spec.typ, cond.Value)
		if err != nil {
			return Predicate{}, false, err
		}
		return Predicate{Expr: col + " < ?", Args: []any{arg}}, true, nil

	case models.OperatorBetween:
		lo, hi, err := rangeArgs(spec.typ, cond.Value)
		if err != nil {
			return Predicate{}, false, err
		}
		return Predicate{Expr: col + " BETWEEN ? AND ?", Args: []any{lo, hi}}, true, nil

	case models.OperatorIsEmpty:
		if spec.typ == FieldTypeText || spec.typ == FieldTypeSingleSelect {
			return Predicate{Expr: "(" + col + " IS NULL OR " + col + " = '')"}, true, nil
		}
		return Predicate{Expr: col + " IS NULL"}, true, nil

	case models.OperatorIsNotEmpty:
		if spec.typ == FieldTypeText || spec.typ == FieldTypeSingleSelect {
			return Predicate{Expr: "(" + col + " IS NOT NULL AND " + col + " <> '')"}, true, nil
		}
		return Predicate{Expr: col + " IS NOT NULL"}, true, nil
	}

	// Unknown operator: no predicate, fail open like the evaluator
	return Predicate{}, false, nil
}

func compileProcedure(conds []models.FilterCondition, rates map[string]float64) (*ProcedureCall, error) {
	params := make([]ProcedureParam, 0, len(conds))
	for _, cond := range conds {
		spec, ok := fieldsByName[cond.Field]
		if !ok {
			return nil, fmt.Errorf("%w: %q", ErrUnknownField, cond.Field)
		}
		params = append(params, ProcedureParam{
			Field:          spec.column,
			Operator:       cond.Operator.String(),
			Value:          procedureValue(cond.Value),
			IsArrayValue:   spec.multiValued,
			SalaryPeriod:   cond.SalaryPeriod,
			SalaryCurrency: cond.SalaryCurrency,
		})
	}

	if rates == nil {
		rates = map[string]float64{}
	}
	return &ProcedureCall{
		Name:          ProcedureName,
		Filters:       params,
		ExchangeRates: rates,
	}, nil
}

// procedureValue flattens a tagged condition value into plain JSON for the
// procedure parameter list.
func procedureValue(v models.ConditionValue) any {
	switch v.Kind {
	case models.ValueKindScalar:
		if v.Scalar == nil {
			return nil
		}
		switch {
		case v.Scalar.Text != nil:
			return *v.Scalar.Text
		case v.Scalar.Number != nil:
			return *v.Scalar.Number
		case v.Scalar.Bool != nil:
			return *v.Scalar.Bool
		}
		return nil
	case models.ValueKindRange:
		if v.Range == nil {
			return nil
		}
		return []any{procedureScalar(v.Range.Min), procedureScalar(v.Range.Max)}
	case models.ValueKindSet:
		return v.Set
	}
	return nil
}

func procedureScalar(s models.ScalarValue) any {
	switch {
	case s.Text != nil:
		return *s.Text
	case s.Number != nil:
		return *s.Number
	case s.Bool != nil:
		return *s.Bool
	}
	return nil
}

func scalarText(v models.ConditionValue) (string, error) {
	if v.Kind != models.ValueKindScalar || v.Scalar == nil || v.Scalar.Text == nil {
		return "", fmt.Errorf("%w: expected a text value", ErrBadValueShape)
	}
	return *v.Scalar.Text, nil
}

// scalarArg converts a scalar condition value into a query argument of the
// column's native type.
func scalarArg(t FieldType, v models.ConditionValue) (any, error) {
	if v.Kind != models.ValueKindScalar || v.Scalar == nil {
		return nil, fmt.Errorf("%w: expected a scalar value", ErrBadValueShape)
	}
	s := *v.Scalar

	switch t {
	case FieldTypeNumber:
		if s.Number == nil {
			return nil, fmt.Errorf("%w: expected a numeric value", ErrBadValueShape)
		}
		return *s.Number, nil
	case FieldTypeBoolean:
		if s.Bool == nil {
			return nil, fmt.Errorf("%w: expected a boolean value", ErrBadValueShape)
		}
		return *s.Bool, nil
	case FieldTypeDate:
		if s.Text == nil {
			return nil, fmt.Errorf("%w: expected an RFC3339 value", ErrBadValueShape)
		}
		parsed, err := time.Parse(time.RFC3339, *s.Text)
		if err != nil {
			return nil, fmt.Errorf("%w: invalid date %q", ErrBadValueShape, *s.Text)
		}
		return parsed, nil
	default:
		if s.Text == nil {
			return nil, fmt.Errorf("%w: expected a text value", ErrBadValueShape)
		}
		return *s.Text, nil
	}
}

func rangeArgs(t FieldType, v models.ConditionValue) (any, any, error) {
	if v.Kind != models.ValueKindRange || v.Range == nil {
		return nil, nil, fmt.Errorf("%w: expected a range value", ErrBadValueShape)
	}
	r := *v.Range

	switch t {
	case FieldTypeNumber:
		if r.Min.Number == nil || r.Max.Number == nil {
			return nil, nil, fmt.Errorf("%w: expected numeric bounds", ErrBadValueShape)
		}
		return *r.Min.Number, *r.Max.Number, nil
	case FieldTypeDate:
		if r.Min.Text == nil || r.Max.Text == nil {
			return nil, nil, fmt.Errorf("%w: expected RFC3339 bounds", ErrBadValueShape)
		}
		lo, err := time.Parse(time.RFC3339, *r.Min.Text)
		if err != nil {
			return nil, nil, fmt.Errorf("%w: invalid date %q", ErrBadValueShape, *r.Min.Text)
		}
		hi, err := time.Parse(time.RFC3339, *r.Max.Text)
		if err != nil {
			return nil, nil, fmt.Errorf("%w: invalid date %q", ErrBadValueShape, *r.Max.Text)
		}
		return lo, hi, nil
	default:
		return nil, nil, fmt.Errorf("%w: between is not defined for %s fields", ErrBadValueShape, t)
	}
}

// SourceCurrencies lists the distinct uppercased source currencies present in
// a job sample, for resolving an exchange-rate table ahead of compilation.
func SourceCurrencies(jobs []*models.Job) []string {
	seen := make(map[string]struct{})
	out := make([]string, 0, 4)
	for _, job := range jobs {
		if job.AISalaryCurrency == nil {
			continue
		}
		c := strings.ToUpper(*job.AISalaryCurrency)
		if c == "" {
			continue
		}
		if _, ok := seen[c]; !ok {
			seen[c] = struct{}{}
			out = append(out, c)
		}
	}
	return out
}
