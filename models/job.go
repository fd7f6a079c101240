package models

import (
	"time"

	"github.com/google/uuid"
	"github.com/lib/pq"
	"gorm.io/gorm"
)

// Job represents a single job posting ingested from the external provider.
// Multi-valued attributes (cities, countries, skills, employment types) are
// stored as Postgres text arrays so the remote filter path can use set-overlap
// predicates instead of serialized-string matching.
type Job struct {
	ID   uint      `gorm:"primaryKey" json:"id"`
	UUID uuid.UUID `gorm:"type:uuid;not null;uniqueIndex:uk_jobs_uuid" json:"uuid"`

	// Provider identity; upserts during ingestion key on this
	ExternalID string `gorm:"size:64;not null;uniqueIndex:uk_jobs_external_id" json:"external_id"`

	Title           string  `gorm:"size:512;not null;index:idx_jobs_title" json:"title"`
	Organization    string  `gorm:"size:255;not null;index:idx_jobs_organization" json:"organization"`
	OrganizationURL *string `gorm:"size:512" json:"organization_url,omitempty"`
	URL             string  `gorm:"size:512;not null" json:"url"`
	DescriptionText string  `gorm:"type:text" json:"description_text"`

	// Provider-derived classification fields
	AIExperienceLevel *string        `gorm:"size:32;index:idx_jobs_ai_experience_level" json:"ai_experience_level,omitempty"`
	Seniority         *string        `gorm:"size:64" json:"seniority,omitempty"`
	EmploymentType    pq.StringArray `gorm:"type:text[]" json:"employment_type"`
	CitiesDerived     pq.StringArray `gorm:"type:text[];index:idx_jobs_cities_derived,type:gin" json:"cities_derived"`
	CountriesDerived  pq.StringArray `gorm:"type:text[]" json:"countries_derived"`
	AIKeySkills       pq.StringArray `gorm:"type:text[];index:idx_jobs_ai_key_skills,type:gin" json:"ai_key_skills"`
	RemoteDerived     *bool          `gorm:"index:idx_jobs_remote_derived" json:"remote_derived,omitempty"`

	// Salary as published; currency/unit qualify the numeric bounds
	AISalaryMinValue *float64 `gorm:"column:ai_salary_minvalue;index:idx_jobs_ai_salary_minvalue" json:"ai_salary_minvalue,omitempty"`
	AISalaryMaxValue *float64 `gorm:"column:ai_salary_maxvalue" json:"ai_salary_maxvalue,omitempty"`
	AISalaryCurrency *string  `gorm:"size:3" json:"ai_salary_currency,omitempty"`
	AISalaryUnitText *string  `gorm:"column:ai_salary_unittext;size:16" json:"ai_salary_unittext,omitempty"` // HOUR, MONTH, YEAR

	DatePosted  *time.Time `gorm:"index:idx_jobs_date_posted" json:"date_posted,omitempty"`
	FirstSeenAt time.Time  `gorm:"not null;index:idx_jobs_first_seen_at" json:"first_seen_at"`

	CreatedAt time.Time  `gorm:"default:(CURRENT_TIMESTAMP AT TIME ZONE 'UTC')" json:"created_at"`
	UpdatedAt *time.Time `json:"updated_at,omitempty"`
}

func (Job) TableName() string {
	return "jobs"
}

// BeforeCreate ensures UUID is set
func (j *Job) BeforeCreate(tx *gorm.DB) error {
	if j.UUID == uuid.Nil {
		j.UUID = uuid.New()
	}
	return nil
}

// JobFilter represents plain (non-condition) filter criteria for job queries
type JobFilter struct {
	ID             *uint
	UUID           *uuid.UUID
	ExternalID     *string
	Organization   *string
	RemoteDerived  *bool
	PostedAfter    *time.Time
	PostedBefore   *time.Time
	FirstSeenAfter *time.Time
}

// HasSalary reports whether the posting carries a usable salary lower bound
func (j *Job) HasSalary() bool {
	return j.AISalaryMinValue != nil && j.AISalaryCurrency != nil
}
