package models

import (
	"database/sql/driver"
	"encoding/json"
	"fmt"
	"time"

	"github.com/google/uuid"
	"gorm.io/gorm"
)

// MaxSavedFiltersPerCustomer is the hard quota of saved filters per owner
const MaxSavedFiltersPerCustomer = 25

// FilterOperator identifies one comparison operator of the filter vocabulary
type FilterOperator string

const (
	OperatorContains    FilterOperator = "contains"
	OperatorNotContains FilterOperator = "not_contains"
	OperatorEquals      FilterOperator = "equals"
	OperatorNotEquals   FilterOperator = "not_equals"
	OperatorIsAnyOf     FilterOperator = "is_any_of"
	OperatorIsNotAnyOf  FilterOperator = "is_not_any_of"
	OperatorGreaterThan FilterOperator = "greater_than"
	OperatorLessThan    FilterOperator = "less_than"
	OperatorBetween     FilterOperator = "between"
	OperatorIsEmpty     FilterOperator = "is_empty"
	OperatorIsNotEmpty  FilterOperator = "is_not_empty"
)

// String returns the string representation of the operator
func (o FilterOperator) String() string {
	return string(o)
}

// Valid checks if the operator is a member of the closed vocabulary
func (o FilterOperator) Valid() bool {
	switch o {
	case OperatorContains, OperatorNotContains,
		OperatorEquals, OperatorNotEquals,
		OperatorIsAnyOf, OperatorIsNotAnyOf,
		OperatorGreaterThan, OperatorLessThan, OperatorBetween,
		OperatorIsEmpty, OperatorIsNotEmpty:
		return true
	default:
		return false
	}
}

// ValueKind tags the shape of a condition value
type ValueKind string

const (
	ValueKindNone   ValueKind = "none" // is_empty / is_not_empty carry no value
	ValueKindScalar ValueKind = "scalar"
	ValueKindRange  ValueKind = "range"
	ValueKindSet    ValueKind = "set"
)

// ScalarValue holds exactly one of a text, numeric, or boolean value.
// Dates are carried as RFC3339 text.
type ScalarValue struct {
	Text   *string  `json:"text,omitempty"`
	Number *float64 `json:"number,omitempty"`
	Bool   *bool    `json:"bool,omitempty"`
}

// RangeValue is an inclusive [Min, Max] pair. The UI normalizes ordering
// before the condition is stored; consumers assume Min <= Max.
type RangeValue struct {
	Min ScalarValue `json:"min"`
	Max ScalarValue `json:"max"`
}

// ConditionValue is the polymorphic value of a filter condition, represented
// as a tagged union so each operator's expected shape is checkable.
type ConditionValue struct {
	Kind   ValueKind    `json:"kind"`
	Scalar *ScalarValue `json:"scalar,omitempty"`
	Range  *RangeValue  `json:"range,omitempty"`
	Set    []string     `json:"set,omitempty"`
}

// ScalarText is a convenience constructor for a text scalar value
func ScalarText(s string) ConditionValue {
	return ConditionValue{Kind: ValueKindScalar, Scalar: &ScalarValue{Text: &s}}
}

// ScalarNumber is a convenience constructor for a numeric scalar value
func ScalarNumber(n float64) ConditionValue {
	return ConditionValue{Kind: ValueKindScalar, Scalar: &ScalarValue{Number: &n}}
}

// ScalarBool is a convenience constructor for a boolean scalar value
func ScalarBool(b bool) ConditionValue {
	return ConditionValue{Kind: ValueKindScalar, Scalar: &ScalarValue{Bool: &b}}
}

// NumberRange is a convenience constructor for an inclusive numeric range
func NumberRange(min, max float64) ConditionValue {
	return ConditionValue{Kind: ValueKindRange, Range: &RangeValue{
		Min: ScalarValue{Number: &min},
		Max: ScalarValue{Number: &max},
	}}
}

// SetOf is a convenience constructor for a set value
func SetOf(values ...string) ConditionValue {
	return ConditionValue{Kind: ValueKindSet, Set: values}
}

// NoValue is the value used by operators that carry none
func NoValue() ConditionValue {
	return ConditionValue{Kind: ValueKindNone}
}

// FilterCondition is one atomic field+operator+value constraint. The ID is an
// opaque token kept stable across edits so the UI can reconcile rows.
type FilterCondition struct {
	ID             string         `json:"id"`
	Field          string         `json:"field"`
	Operator       FilterOperator `json:"operator"`
	Value          ConditionValue `json:"value"`
	SalaryPeriod   *string        `json:"salary_period,omitempty"`
	SalaryCurrency *string        `json:"salary_currency,omitempty"`
}

// FilterConditionList is an ordered condition list stored as a JSONB column
type FilterConditionList []FilterCondition

// Value implements the driver.Valuer interface for FilterConditionList
func (l FilterConditionList) Value() (driver.Value, error) {
	if l == nil {
		l = FilterConditionList{}
	}
	return json.Marshal(l)
}

// Scan implements the sql.Scanner interface for FilterConditionList
func (l *FilterConditionList) Scan(value any) error {
	if value == nil {
		*l = FilterConditionList{}
		return nil
	}

	var bytes []byte
	switch v := value.(type) {
	case []byte:
		bytes = v
	case string:
		bytes = []byte(v)
	default:
		return fmt.Errorf("cannot scan %T into FilterConditionList", value)
	}

	return json.Unmarshal(bytes, l)
}

// SavedFilter is a named, user-owned, ordered list of filter conditions,
// together with the freshness-badge state described in the apply workflow:
// last_checked_at is the live checkpoint, while badge_count_snapshot and
// badge_count_expires_at freeze the "new matches" number so repeated applies
// within the expiry window show a stable badge.
type SavedFilter struct {
	ID         uint      `gorm:"primaryKey" json:"id"`
	UUID       uuid.UUID `gorm:"type:uuid;not null;uniqueIndex:uk_saved_filters_uuid" json:"uuid"`
	CustomerID uint      `gorm:"not null;index:idx_saved_filters_customer_id;uniqueIndex:uk_saved_filters_customer_name" json:"customer_id"`
	Customer   *Customer `gorm:"foreignKey:CustomerID;references:ID" json:"-"`

	Name       string              `gorm:"size:100;not null;uniqueIndex:uk_saved_filters_customer_name" json:"name"`
	Conditions FilterConditionList `gorm:"type:jsonb;not null" json:"conditions"`

	NotificationsEnabled *bool `gorm:"default:false" json:"notifications_enabled"`

	LastCheckedAt       *time.Time `json:"last_checked_at,omitempty"`
	BadgeCountSnapshot  *int64     `json:"badge_count_snapshot,omitempty"`
	BadgeCountExpiresAt *time.Time `json:"badge_count_expires_at,omitempty"`

	CreatedAt time.Time  `gorm:"default:(CURRENT_TIMESTAMP AT TIME ZONE 'UTC')" json:"created_at"`
	UpdatedAt *time.Time `json:"updated_at,omitempty"`
}

func (SavedFilter) TableName() string {
	return "saved_filters"
}

// BeforeCreate ensures UUID is set
func (f *SavedFilter) BeforeCreate(tx *gorm.DB) error {
	if f.UUID == uuid.Nil {
		f.UUID = uuid.New()
	}
	return nil
}

// SavedFilterFilter represents filter criteria for saved filter queries
type SavedFilterFilter struct {
	ID         *uint
	UUID       *uuid.UUID
	CustomerID *uint
	Name       *string
}

// HasFreshSnapshot reports whether the frozen badge is still inside its
// expiry window at the given instant.
func (f *SavedFilter) HasFreshSnapshot(now time.Time) bool {
	return f.BadgeCountSnapshot != nil &&
		f.BadgeCountExpiresAt != nil &&
		now.Before(*f.BadgeCountExpiresAt)
}
