// Package filterengine implements the dynamic filter core: the vocabulary of
// filterable job attributes, condition validation, the in-memory evaluator,
// and the remote query compiler. The per-operator semantics live in a single
// shared table so the local and remote execution paths cannot drift apart.
package filterengine

import (
	"time"

	"github.com/jobradar/jobradar/models"
)

// FieldType classifies a filterable attribute and determines its legal operators
type FieldType string

const (
	FieldTypeText         FieldType = "text"
	FieldTypeNumber       FieldType = "number"
	FieldTypeSingleSelect FieldType = "single_select"
	FieldTypeMultiSelect  FieldType = "multi_select"
	FieldTypeBoolean      FieldType = "boolean"
	FieldTypeDate         FieldType = "date"
)

// operatorsByType is the single source of truth for which operators are legal
// per field type. Validation, the evaluator, and the query compiler all
// consult this table.
var operatorsByType = map[FieldType][]models.FilterOperator{
	FieldTypeText: {
		models.OperatorContains, models.OperatorNotContains,
		models.OperatorEquals, models.OperatorNotEquals,
		models.OperatorIsEmpty, models.OperatorIsNotEmpty,
	},
	FieldTypeNumber: {
		models.OperatorEquals, models.OperatorNotEquals,
		models.OperatorGreaterThan, models.OperatorLessThan, models.OperatorBetween,
		models.OperatorIsEmpty, models.OperatorIsNotEmpty,
	},
	FieldTypeSingleSelect: {
		models.OperatorEquals, models.OperatorNotEquals,
		models.OperatorIsAnyOf, models.OperatorIsNotAnyOf,
		models.OperatorIsEmpty, models.OperatorIsNotEmpty,
	},
	FieldTypeMultiSelect: {
		models.OperatorContains, models.OperatorNotContains,
		models.OperatorIsAnyOf, models.OperatorIsNotAnyOf,
		models.OperatorIsEmpty, models.OperatorIsNotEmpty,
	},
	FieldTypeBoolean: {
		models.OperatorEquals, models.OperatorNotEquals,
	},
	FieldTypeDate: {
		models.OperatorGreaterThan, models.OperatorLessThan, models.OperatorBetween,
		models.OperatorIsEmpty, models.OperatorIsNotEmpty,
	},
}

// OperatorsForType returns a copy of the legal operator set for a field type
func OperatorsForType(t FieldType) []models.FilterOperator {
	ops := operatorsByType[t]
	out := make([]models.FilterOperator, len(ops))
	copy(out, ops)
	return out
}

// Option is one selectable value of a select/multiselect field
type Option struct {
	Value string `json:"value"`
	Label string `json:"label"`
}

// FilterField describes one filterable attribute as presented to consumers:
// its type, legal operators and, for select types, the currently known options.
type FilterField struct {
	Name        string                  `json:"name"`
	Label       string                  `json:"label"`
	Type        FieldType               `json:"type"`
	Operators   []models.FilterOperator `json:"operators"`
	Options     []Option                `json:"options,omitempty"`
	MultiValued bool                    `json:"multi_valued"`
	IsSalary    bool                    `json:"is_salary"`
}

// valueKind classifies the runtime shape of an extracted job attribute
type valueKind int

const (
	kindMissing valueKind = iota
	kindText
	kindNumber
	kindBool
	kindTime
	kindList
)

// fieldValue is the evaluation-time view of one job attribute
type fieldValue struct {
	kind   valueKind
	text   string
	number float64
	b      bool
	t      time.Time
	list   []string
}

// fieldSpec is one entry of the closed, versioned field vocabulary
type fieldSpec struct {
	name        string
	label       string
	typ         FieldType
	column      string // storage column consulted by the query compiler
	multiValued bool
	isSalary    bool
	dynamic     bool // select options derived from the live sample
	extract     func(*models.Job) fieldValue
}

func textValue(s string) fieldValue {
	if s == "" {
		return fieldValue{kind: kindMissing}
	}
	return fieldValue{kind: kindText, text: s}
}

func textPtrValue(s *string) fieldValue {
	if s == nil {
		return fieldValue{kind: kindMissing}
	}
	return textValue(*s)
}

func numberPtrValue(n *float64) fieldValue {
	if n == nil {
		return fieldValue{kind: kindMissing}
	}
	return fieldValue{kind: kindNumber, number: *n}
}

func boolPtrValue(b *bool) fieldValue {
	if b == nil {
		return fieldValue{kind: kindMissing}
	}
	return fieldValue{kind: kindBool, b: *b}
}

func timePtrValue(t *time.Time) fieldValue {
	if t == nil {
		return fieldValue{kind: kindMissing}
	}
	return fieldValue{kind: kindTime, t: *t}
}

func listValue(l []string) fieldValue {
	return fieldValue{kind: kindList, list: l}
}

// fieldSpecs is the closed field vocabulary, in declaration order
var fieldSpecs = []fieldSpec{
	{
		name: "title", label: "Job title", typ: FieldTypeText, column: "title",
		extract: func(j *models.Job) fieldValue { return textValue(j.Title) },
	},
	{
		name: "organization", label: "Company", typ: FieldTypeText, column: "organization",
		extract: func(j *models.Job) fieldValue { return textValue(j.Organization) },
	},
	{
		name: "description_text", label: "Description", typ: FieldTypeText, column: "description_text",
		extract: func(j *models.Job) fieldValue { return textValue(j.DescriptionText) },
	},
	{
		name: "ai_experience_level", label: "Experience level", typ: FieldTypeSingleSelect,
		column: "ai_experience_level", dynamic: true,
		extract: func(j *models.Job) fieldValue { return textPtrValue(j.AIExperienceLevel) },
	},
	{
		name: "seniority", label: "Seniority", typ: FieldTypeSingleSelect,
		column: "seniority", dynamic: true,
		extract: func(j *models.Job) fieldValue { return textPtrValue(j.Seniority) },
	},
	{
		name: "employment_type", label: "Employment type", typ: FieldTypeMultiSelect,
		column: "employment_type", multiValued: true, dynamic: true,
		extract: func(j *models.Job) fieldValue { return listValue(j.EmploymentType) },
	},
	{
		name: "cities_derived", label: "City", typ: FieldTypeMultiSelect,
		column: "cities_derived", multiValued: true, dynamic: true,
		extract: func(j *models.Job) fieldValue { return listValue(j.CitiesDerived) },
	},
	{
		name: "countries_derived", label: "Country", typ: FieldTypeMultiSelect,
		column: "countries_derived", multiValued: true, dynamic: true,
		extract: func(j *models.Job) fieldValue { return listValue(j.CountriesDerived) },
	},
	{
		name: "ai_key_skills", label: "Key skills", typ: FieldTypeMultiSelect,
		column: "ai_key_skills", multiValued: true, dynamic: true,
		extract: func(j *models.Job) fieldValue { return listValue(j.AIKeySkills) },
	},
	{
		name: "remote_derived", label: "Remote", typ: FieldTypeBoolean, column: "remote_derived",
		extract: func(j *models.Job) fieldValue { return boolPtrValue(j.RemoteDerived) },
	},
	{
		name: "ai_salary_minvalue", label: "Salary (min)", typ: FieldTypeNumber,
		column: "ai_salary_minvalue", isSalary: true,
		extract: func(j *models.Job) fieldValue { return numberPtrValue(j.AISalaryMinValue) },
	},
	{
		name: "ai_salary_maxvalue", label: "Salary (max)", typ: FieldTypeNumber,
		column: "ai_salary_maxvalue", isSalary: true,
		extract: func(j *models.Job) fieldValue { return numberPtrValue(j.AISalaryMaxValue) },
	},
	{
		name: "date_posted", label: "Date posted", typ: FieldTypeDate, column: "date_posted",
		extract: func(j *models.Job) fieldValue { return timePtrValue(j.DatePosted) },
	},
}

var fieldsByName = func() map[string]fieldSpec {
	m := make(map[string]fieldSpec, len(fieldSpecs))
	for _, f := range fieldSpecs {
		m[f.name] = f
	}
	return m
}()

// KnownField reports whether name is part of the field vocabulary
func KnownField(name string) bool {
	_, ok := fieldsByName[name]
	return ok
}

// IsMultiValued reports whether the named field holds a collection
func IsMultiValued(name string) bool {
	return fieldsByName[name].multiValued
}

// IsSalaryField reports whether the named field is a currency-qualified
// salary amount
func IsSalaryField(name string) bool {
	return fieldsByName[name].isSalary
}

// DeclareFields produces the filterable field list for a dynamic-options
// snapshot. Pure and deterministic for a given snapshot: same input, same
// field list, same option ordering.
func DeclareFields(opts DynamicOptions) []FilterField {
	fields := make([]FilterField, 0, len(fieldSpecs))
	for _, spec := range fieldSpecs {
		f := FilterField{
			Name:        spec.name,
			Label:       spec.label,
			Type:        spec.typ,
			Operators:   OperatorsForType(spec.typ),
			MultiValued: spec.multiValued,
			IsSalary:    spec.isSalary,
		}
		if spec.dynamic {
			f.Options = opts.OptionsFor(spec.name)
		}
		fields = append(fields, f)
	}
	return fields
}
