package models

import (
	"encoding/json"
	"time"
)

type AuditLog struct {
	ID           uint            `gorm:"primaryKey" json:"id"`
	CustomerID   *uint           `gorm:"index:idx_audit_customer_id" json:"customer_id,omitempty"`
	Customer     *Customer       `gorm:"foreignKey:CustomerID;references:ID" json:"customer,omitempty"`
	Action       string          `gorm:"size:64;not null;index:idx_audit_action" json:"action"`
	Description  *string         `gorm:"type:text" json:"description,omitempty"`
	IPAddress    *string         `gorm:"type:inet;index:idx_audit_ip_address" json:"ip_address,omitempty"`
	UserAgent    *string         `gorm:"type:text" json:"user_agent,omitempty"`
	RequestID    *string         `gorm:"size:255;index:idx_audit_request_id" json:"request_id,omitempty"`
	Metadata     json.RawMessage `gorm:"type:jsonb" json:"metadata,omitempty"`
	Success      *bool           `gorm:"default:true;index:idx_audit_success" json:"success"`
	ErrorMessage *string         `gorm:"type:text" json:"error_message,omitempty"`
	CreatedAt    time.Time       `gorm:"default:CURRENT_TIMESTAMP;index:idx_audit_created_at" json:"created_at"`
}

func (AuditLog) TableName() string {
	return "audit_log"
}

// Audit action constants
const (
	AuditActionSignupCompleted          = "signup_completed"
	AuditActionSignupFailed             = "signup_failed"
	AuditActionLoginSuccessful          = "login_successful"
	AuditActionLoginFailed              = "login_failed"
	AuditActionLogout                   = "logout"
	AuditActionSavedFilterCreated       = "saved_filter_created"
	AuditActionSavedFilterCreateFailed  = "saved_filter_create_failed"
	AuditActionSavedFilterUpdated       = "saved_filter_updated"
	AuditActionSavedFilterDeleted       = "saved_filter_deleted"
	AuditActionSavedFilterApplied       = "saved_filter_applied"
	AuditActionSavedFilterApplyFailed   = "saved_filter_apply_failed"
	AuditActionFilterContextCleared     = "filter_context_cleared"
	AuditActionFavoriteAdded            = "favorite_added"
	AuditActionFavoriteRemoved          = "favorite_removed"
	AuditActionJobsExported             = "jobs_exported"
	AuditActionJobIngestionRunCompleted = "job_ingestion_run_completed"
)

// AuditLogFilter represents filter criteria for audit log queries
type AuditLogFilter struct {
	ID            *uint
	CustomerID    *uint
	Action        *string
	Success       *bool
	IPAddress     *string
	RequestID     *string
	CreatedAfter  *time.Time
	CreatedBefore *time.Time
}

func (a *AuditLog) IsFailed() bool {
	return a.Success != nil && !*a.Success
}
