// Package dto contains Data Transfer Objects for API request and response structures
package dto

import (
	"time"

	"github.com/jobradar/jobradar/models"
)

// SearchJobsRequest represents an ad-hoc (unsaved) filtered search
type SearchJobsRequest struct {
	Conditions []models.FilterCondition `json:"conditions" validate:"omitempty,dive"`
	Page       int                      `json:"page" validate:"omitempty,min=1" example:"1"`
	PageSize   int                      `json:"page_size" validate:"omitempty,min=1,max=100" example:"20"`

	// Encoded is the shareable-URL form of conditions; when present it takes
	// precedence over the structured list.
	Encoded string `json:"encoded,omitempty" validate:"omitempty,max=8192"`
}

// JobDTO represents a job posting in API responses
type JobDTO struct {
	ID               uint       `json:"id" example:"42"`
	UUID             string     `json:"uuid"`
	Title            string     `json:"title" example:"Senior Go Engineer"`
	Organization     string     `json:"organization" example:"Acme B.V."`
	URL              string     `json:"url"`
	DescriptionText  string     `json:"description_text,omitempty"`
	ExperienceLevel  *string    `json:"ai_experience_level,omitempty"`
	Seniority        *string    `json:"seniority,omitempty"`
	EmploymentType   []string   `json:"employment_type,omitempty"`
	Cities           []string   `json:"cities_derived,omitempty"`
	Countries        []string   `json:"countries_derived,omitempty"`
	KeySkills        []string   `json:"ai_key_skills,omitempty"`
	Remote           *bool      `json:"remote_derived,omitempty"`
	SalaryMin        *float64   `json:"ai_salary_minvalue,omitempty"`
	SalaryMax        *float64   `json:"ai_salary_maxvalue,omitempty"`
	SalaryCurrency   *string    `json:"ai_salary_currency,omitempty"`
	SalaryUnit       *string    `json:"ai_salary_unittext,omitempty"`
	DatePosted       *time.Time `json:"date_posted,omitempty"`
	FirstSeenAt      time.Time  `json:"first_seen_at"`
	IsFavorite       bool       `json:"is_favorite"`
}

// SearchJobsResult represents one page of search matches
type SearchJobsResult struct {
	Jobs       []JobDTO `json:"jobs"`
	Total      int64    `json:"total" example:"137"`
	Page       int      `json:"page" example:"1"`
	PageSize   int      `json:"page_size" example:"20"`
	TotalPages int      `json:"total_pages" example:"7"`

	// ShareURL is the encoded form of the applied conditions, suitable for links
	ShareURL string `json:"share_url,omitempty"`
}

// FilterFieldDTO describes one filterable field for UI construction
type FilterFieldDTO struct {
	Name        string         `json:"name" example:"cities_derived"`
	Label       string         `json:"label" example:"City"`
	Type        string         `json:"type" example:"multi_select"`
	Operators   []string       `json:"operators"`
	MultiValued bool           `json:"multi_valued"`
	IsSalary    bool           `json:"is_salary"`
	Options     []FilterOption `json:"options,omitempty"`
}

// FilterOption is one selectable value of a select-typed field
type FilterOption struct {
	Value string `json:"value" example:"Amsterdam"`
	Label string `json:"label" example:"Amsterdam"`
}

// ListFilterFieldsResult returns the full field vocabulary plus option metadata
type ListFilterFieldsResult struct {
	Fields      []FilterFieldDTO `json:"fields"`
	SampleSize  int              `json:"sample_size" example:"2000"`
	GeneratedAt time.Time        `json:"generated_at"`
}

// ExportJobsRequest exports the matches of a condition list as a spreadsheet
type ExportJobsRequest struct {
	Conditions []models.FilterCondition `json:"conditions" validate:"omitempty,dive"`
	Encoded    string                   `json:"encoded,omitempty" validate:"omitempty,max=8192"`
}

// Common error codes for job operations
const (
	ErrorJobNotFound        = "JOB_NOT_FOUND"
	ErrorInvalidConditions  = "INVALID_CONDITIONS"
	ErrorInvalidPagination  = "INVALID_PAGINATION"
	ErrorExportTooLarge     = "EXPORT_TOO_LARGE"
	ErrorAlreadyFavorited   = "ALREADY_FAVORITED"
	ErrorFavoriteNotFound   = "FAVORITE_NOT_FOUND"
)
