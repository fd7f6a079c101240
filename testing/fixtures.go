// Package testing provides test utilities and database setup for testing the job-listing application
package testing

import (
	"fmt"
	"math/rand"
	"time"

	"github.com/google/uuid"
	"github.com/jobradar/jobradar/models"
	"github.com/jobradar/jobradar/utils"
	"golang.org/x/crypto/bcrypt"
)

// TestFixtures provides helper methods for creating test data
type TestFixtures struct {
	DB *TestDB
}

// NewTestFixtures creates a new test fixtures instance
func NewTestFixtures(db *TestDB) *TestFixtures {
	return &TestFixtures{DB: db}
}

// CreateTestCustomer creates a test customer with a unique email
func (tf *TestFixtures) CreateTestCustomer() (*models.Customer, error) {
	hashedPassword, err := bcrypt.GenerateFromPassword([]byte("TestPass123!"), bcrypt.DefaultCost)
	if err != nil {
		return nil, fmt.Errorf("failed to hash password: %w", err)
	}

	randomDigits := fmt.Sprintf("%09d", rand.Intn(900000000)+100000000)

	customer := &models.Customer{
		UUID:              uuid.New(),
		FirstName:         "John",
		LastName:          "Doe",
		Email:             fmt.Sprintf("john.doe.%s@example.com", randomDigits),
		PasswordHash:      string(hashedPassword),
		PreferredCurrency: models.DefaultPreferredCurrency,
		IsEmailVerified:   utils.ToPtr(false),
		IsActive:          utils.ToPtr(true),
	}

	err = tf.DB.DB.Create(customer).Error
	if err != nil {
		return nil, fmt.Errorf("failed to create test customer: %w", err)
	}

	return customer, nil
}

// CreateTestJob creates a job posting with sensible defaults, mutated by opts
func (tf *TestFixtures) CreateTestJob(opts ...func(*models.Job)) (*models.Job, error) {
	randomDigits := fmt.Sprintf("%09d", rand.Intn(900000000)+100000000)
	now := utils.UTCNow()

	job := &models.Job{
		UUID:             uuid.New(),
		ExternalID:       fmt.Sprintf("ext-%s", randomDigits),
		Title:            "Backend Engineer",
		Organization:     "Test Org GmbH",
		URL:              fmt.Sprintf("https://jobs.example.com/%s", randomDigits),
		DescriptionText:  "Build and operate backend services.",
		EmploymentType:   []string{"FULL_TIME"},
		CitiesDerived:    []string{"Berlin"},
		CountriesDerived: []string{"Germany"},
		AIKeySkills:      []string{"Go", "PostgreSQL"},
		RemoteDerived:    utils.ToPtr(false),
		DatePosted:       utils.ToPtr(now.Add(-24 * time.Hour)),
		FirstSeenAt:      now,
	}

	for _, opt := range opts {
		opt(job)
	}

	err := tf.DB.DB.Create(job).Error
	if err != nil {
		return nil, fmt.Errorf("failed to create test job: %w", err)
	}

	return job, nil
}

// WithSalary sets the published salary fields on a test job
func WithSalary(min, max float64, currency, unit string) func(*models.Job) {
	return func(j *models.Job) {
		j.AISalaryMinValue = &min
		j.AISalaryMaxValue = &max
		j.AISalaryCurrency = &currency
		j.AISalaryUnitText = &unit
	}
}

// WithFirstSeenAt overrides the ingestion timestamp on a test job
func WithFirstSeenAt(t time.Time) func(*models.Job) {
	return func(j *models.Job) {
		j.FirstSeenAt = t
	}
}

// CreateTestSavedFilter creates a saved filter owned by the given customer
func (tf *TestFixtures) CreateTestSavedFilter(customerID uint, name string, conditions []models.FilterCondition) (*models.SavedFilter, error) {
	filter := &models.SavedFilter{
		UUID:                 uuid.New(),
		CustomerID:           customerID,
		Name:                 name,
		Conditions:           conditions,
		NotificationsEnabled: utils.ToPtr(false),
	}

	err := tf.DB.DB.Create(filter).Error
	if err != nil {
		return nil, fmt.Errorf("failed to create test saved filter: %w", err)
	}

	return filter, nil
}

// CreateTestFavorite bookmarks a job for a customer
func (tf *TestFixtures) CreateTestFavorite(customerID, jobID uint) (*models.Favorite, error) {
	favorite := &models.Favorite{
		CustomerID: customerID,
		JobID:      jobID,
	}

	err := tf.DB.DB.Create(favorite).Error
	if err != nil {
		return nil, fmt.Errorf("failed to create test favorite: %w", err)
	}

	return favorite, nil
}

// CreateTestFilterContext records an active filter context for a customer
func (tf *TestFixtures) CreateTestFilterContext(customerID, savedFilterID uint, viewingSince *time.Time, expiresAt time.Time) (*models.FilterContext, error) {
	fc := &models.FilterContext{
		CustomerID:    customerID,
		SavedFilterID: savedFilterID,
		ViewingSince:  viewingSince,
		ExpiresAt:     expiresAt,
	}

	err := tf.DB.DB.Create(fc).Error
	if err != nil {
		return nil, fmt.Errorf("failed to create test filter context: %w", err)
	}

	return fc, nil
}

// CreateTestAuditLog creates a test audit log entry
func (tf *TestFixtures) CreateTestAuditLog(customerID *uint, action string, success bool) (*models.AuditLog, error) {
	description := fmt.Sprintf("Test %s action", action)
	ipAddress := "127.0.0.1"
	userAgent := "Test User Agent"

	audit := &models.AuditLog{
		CustomerID:  customerID,
		Action:      action,
		Description: &description,
		Success:     &success,
		IPAddress:   &ipAddress,
		UserAgent:   &userAgent,
	}

	if !success {
		errorMessage := "Test failed action"
		audit.ErrorMessage = &errorMessage
	}

	err := tf.DB.DB.Create(audit).Error
	if err != nil {
		return nil, fmt.Errorf("failed to create test audit log: %w", err)
	}

	return audit, nil
}
