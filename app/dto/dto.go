// Package dto contains Data Transfer Objects for API request and response structures
package dto

// APIResponse is the envelope every endpoint returns: a success flag and a
// human-readable message, with either the operation's payload in Data or an
// ErrorDetail in Error. Both payload fields are omitted when empty so error
// responses stay compact.
type APIResponse struct {
	Success bool   `json:"success"`
	Message string `json:"message"`
	Data    any    `json:"data,omitempty" validate:"omitempty"`
	Error   any    `json:"error,omitempty" validate:"omitempty"`
}

// ErrorDetail carries the machine-readable error code (INVALID_CONDITIONS,
// SAVED_FILTER_QUOTA_EXCEEDED, ...) alongside optional details such as
// per-field validation messages.
type ErrorDetail struct {
	Code    string `json:"code"`
	Details any    `json:"details,omitempty" validate:"omitempty"`
}
