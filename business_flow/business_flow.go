// Package businessflow contains the business logic for the application.
package businessflow

import (
	"fmt"
	"strings"
	"time"

	"github.com/jobradar/jobradar/app/dto"
	"github.com/jobradar/jobradar/models"
)

const RequestIDKey = "X-Request-ID"

// ClientMetadata holds all client-related information for audit logging and session tracking
type ClientMetadata struct {
	IPAddress  string            `json:"ip_address"`
	UserAgent  string            `json:"user_agent"`
	DeviceInfo map[string]string `json:"device_info,omitempty"`
	RequestID  string            `json:"request_id,omitempty"`
	Additional map[string]string `json:"additional,omitempty"`
}

// NewClientMetadata creates a new ClientMetadata instance with basic information
func NewClientMetadata(ipAddress, userAgent string) *ClientMetadata {
	return &ClientMetadata{
		IPAddress:  ipAddress,
		UserAgent:  userAgent,
		DeviceInfo: make(map[string]string),
		Additional: make(map[string]string),
	}
}

// AddDeviceInfo adds device information to the metadata
func (cm *ClientMetadata) AddDeviceInfo(key, value string) {
	if cm.DeviceInfo == nil {
		cm.DeviceInfo = make(map[string]string)
	}
	cm.DeviceInfo[key] = value
}

// AddAdditional adds additional custom information to the metadata
func (cm *ClientMetadata) AddAdditional(key, value string) {
	if cm.Additional == nil {
		cm.Additional = make(map[string]string)
	}
	cm.Additional[key] = value
}

// SetRequestID sets the request ID
func (cm *ClientMetadata) SetRequestID(requestID string) {
	cm.RequestID = requestID
}

// redisKey builds a namespaced cache key
func redisKey(prefix string, parts ...string) string {
	return fmt.Sprintf("%s:%s", prefix, strings.Join(parts, ":"))
}

// ToAuthCustomerDTO converts a customer model to AuthCustomerDTO for authentication responses
func ToAuthCustomerDTO(customer models.Customer) dto.AuthCustomerDTO {
	return dto.AuthCustomerDTO{
		ID:                customer.ID,
		UUID:              customer.UUID.String(),
		Email:             customer.Email,
		FirstName:         customer.FirstName,
		LastName:          customer.LastName,
		PreferredCurrency: customer.PreferredCurrency,
		IsActive:          customer.IsActive,
		IsEmailVerified:   customer.IsEmailVerified,
		CreatedAt:         customer.CreatedAt.Format(time.RFC3339),
	}
}

// ToJobDTO converts a job model to its API representation
func ToJobDTO(job models.Job, isFavorite bool) dto.JobDTO {
	return dto.JobDTO{
		ID:              job.ID,
		UUID:            job.UUID.String(),
		Title:           job.Title,
		Organization:    job.Organization,
		URL:             job.URL,
		DescriptionText: job.DescriptionText,
		ExperienceLevel: job.AIExperienceLevel,
		Seniority:       job.Seniority,
		EmploymentType:  job.EmploymentType,
		Cities:          job.CitiesDerived,
		Countries:       job.CountriesDerived,
		KeySkills:       job.AIKeySkills,
		Remote:          job.RemoteDerived,
		SalaryMin:       job.AISalaryMinValue,
		SalaryMax:       job.AISalaryMaxValue,
		SalaryCurrency:  job.AISalaryCurrency,
		SalaryUnit:      job.AISalaryUnitText,
		DatePosted:      job.DatePosted,
		FirstSeenAt:     job.FirstSeenAt,
		IsFavorite:      isFavorite,
	}
}

// ToSavedFilterDTO converts a saved filter model to its API representation.
// The frozen badge is surfaced only while its expiry window is open.
func ToSavedFilterDTO(filter models.SavedFilter, now time.Time) dto.SavedFilterDTO {
	out := dto.SavedFilterDTO{
		ID:                   filter.ID,
		UUID:                 filter.UUID.String(),
		Name:                 filter.Name,
		Conditions:           filter.Conditions,
		NotificationsEnabled: filter.NotificationsEnabled != nil && *filter.NotificationsEnabled,
		LastCheckedAt:        filter.LastCheckedAt,
		CreatedAt:            filter.CreatedAt,
		UpdatedAt:            filter.UpdatedAt,
	}

	if filter.HasFreshSnapshot(now) {
		out.NewCount = filter.BadgeCountSnapshot
		out.BadgeExpiresAt = filter.BadgeCountExpiresAt
	}

	return out
}
