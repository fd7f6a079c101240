// Package services provides external service integrations and technical concerns like tokens and exchange rates
package services

import (
	"context"
	"encoding/json"
	"fmt"
	"net/http"
	"strings"
	"time"

	"github.com/jobradar/jobradar/config"
)

// JobProviderClient pulls active job postings from the upstream listings API
type JobProviderClient interface {
	// FetchPage returns one page of postings and whether more pages remain
	FetchPage(ctx context.Context, page int) ([]ProviderJob, bool, error)
}

// ProviderJob is the upstream representation of a posting before it is mapped into a model
type ProviderJob struct {
	ID               string     `json:"id"`
	Title            string     `json:"title"`
	Organization     string     `json:"organization"`
	URL              string     `json:"url"`
	DescriptionText  string     `json:"description_text"`
	EmploymentType   []string   `json:"employment_type"`
	CitiesDerived    []string   `json:"cities_derived"`
	CountriesDerived []string   `json:"countries_derived"`
	RemoteDerived    *bool      `json:"remote_derived"`
	DatePosted       *time.Time `json:"date_posted"`

	AIExperienceLevel *string  `json:"ai_experience_level"`
	AISeniority       *string  `json:"ai_seniority"`
	AIKeySkills       []string `json:"ai_key_skills"`
	AISalaryMinValue  *float64 `json:"ai_salary_minvalue"`
	AISalaryMaxValue  *float64 `json:"ai_salary_maxvalue"`
	AISalaryCurrency  *string  `json:"ai_salary_currency"`
	AISalaryUnitText  *string  `json:"ai_salary_unittext"`
}

// providerPage is the paginated response envelope
type providerPage struct {
	Jobs       []ProviderJob `json:"jobs"`
	Page       int           `json:"page"`
	TotalPages int           `json:"total_pages"`
}

// JobProviderClientImpl implements JobProviderClient
type JobProviderClientImpl struct {
	config *config.JobProviderConfig
	client *http.Client
}

// NewJobProviderClient creates a new job provider client instance
func NewJobProviderClient(cfg *config.JobProviderConfig) JobProviderClient {
	return &JobProviderClientImpl{
		config: cfg,
		client: &http.Client{
			Timeout: cfg.Timeout,
		},
	}
}

// FetchPage fetches a single page of postings from the provider
func (c *JobProviderClientImpl) FetchPage(ctx context.Context, page int) ([]ProviderJob, bool, error) {
	endpoint := fmt.Sprintf("%s/jobs?page=%d&per_page=%d",
		strings.TrimRight(c.config.BaseURL, "/"), page, c.config.PageSize)

	req, err := http.NewRequestWithContext(ctx, "GET", endpoint, nil)
	if err != nil {
		return nil, false, fmt.Errorf("failed to create HTTP request: %w", err)
	}
	req.Header.Set("Accept", "application/json")
	req.Header.Set("x-api-key", c.config.APIKey)

	resp, err := c.client.Do(req)
	if err != nil {
		return nil, false, fmt.Errorf("failed to fetch job postings: %w", err)
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		return nil, false, fmt.Errorf("job provider returned status %d", resp.StatusCode)
	}

	var payload providerPage
	if err := json.NewDecoder(resp.Body).Decode(&payload); err != nil {
		return nil, false, fmt.Errorf("failed to decode job provider response: %w", err)
	}

	hasMore := payload.Page < payload.TotalPages
	return payload.Jobs, hasMore, nil
}

// MockJobProviderClient implements JobProviderClient for testing
type MockJobProviderClient struct {
	Pages [][]ProviderJob
	Err   error
	Calls int
}

// NewMockJobProviderClient creates a new mock job provider client
func NewMockJobProviderClient(pages ...[]ProviderJob) *MockJobProviderClient {
	return &MockJobProviderClient{Pages: pages}
}

func (m *MockJobProviderClient) FetchPage(ctx context.Context, page int) ([]ProviderJob, bool, error) {
	m.Calls++
	if m.Err != nil {
		return nil, false, m.Err
	}
	idx := page - 1
	if idx < 0 || idx >= len(m.Pages) {
		return nil, false, nil
	}
	return m.Pages[idx], idx < len(m.Pages)-1, nil
}
