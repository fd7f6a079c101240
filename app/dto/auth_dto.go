// Package dto contains Data Transfer Objects for API request and response structures
package dto

import "time"

// SignupRequest represents the request payload for account creation
type SignupRequest struct {
	FirstName         string `json:"first_name" validate:"required,min=1,max=100" example:"John"`
	LastName          string `json:"last_name" validate:"required,min=1,max=100" example:"Doe"`
	Email             string `json:"email" validate:"required,email,max=255" example:"user@example.com"`
	Password          string `json:"password" validate:"required,min=8,max=100,password_strength" example:"SecurePass123!"`
	ConfirmPassword   string `json:"confirm_password" validate:"required,eqfield=Password" example:"SecurePass123!"`
	PreferredCurrency string `json:"preferred_currency,omitempty" validate:"omitempty,currency_code" example:"EUR"`
}

// LoginRequest represents the request payload for user login
type LoginRequest struct {
	Email    string `json:"email" validate:"required,email,max=255" example:"user@example.com"`
	Password string `json:"password" validate:"required,min=8,max=100" example:"SecurePass123!"`
}

// AuthCustomerDTO represents customer information returned in auth responses
type AuthCustomerDTO struct {
	ID                uint   `json:"id" example:"123"`
	UUID              string `json:"uuid" example:"550e8400-e29b-41d4-a716-446655440000"`
	Email             string `json:"email" example:"user@example.com"`
	FirstName         string `json:"first_name" example:"John"`
	LastName          string `json:"last_name" example:"Doe"`
	PreferredCurrency string `json:"preferred_currency" example:"EUR"`
	IsActive          *bool  `json:"is_active" example:"true"`
	IsEmailVerified   *bool  `json:"is_email_verified" example:"true"`
	CreatedAt         string `json:"created_at" example:"2026-01-15T10:30:00Z"`
}

// TokenPairDTO represents issued access and refresh tokens
type TokenPairDTO struct {
	AccessToken  string    `json:"access_token"`
	RefreshToken string    `json:"refresh_token"`
	TokenType    string    `json:"token_type" example:"Bearer"`
	ExpiresIn    int       `json:"expires_in" example:"900"`
	ExpiresAt    time.Time `json:"expires_at"`
}

// AuthResult bundles the customer and tokens returned by signup and login
type AuthResult struct {
	Customer AuthCustomerDTO `json:"customer"`
	Tokens   TokenPairDTO    `json:"tokens"`
}

// RefreshTokenRequest represents the request to exchange a refresh token
type RefreshTokenRequest struct {
	RefreshToken string `json:"refresh_token" validate:"required"`
}

// UpdatePreferredCurrencyRequest changes the customer's display currency
type UpdatePreferredCurrencyRequest struct {
	Currency string `json:"currency" validate:"required,currency_code" example:"USD"`
}

// Common error codes for auth operations
const (
	ErrorUserNotFound       = "USER_NOT_FOUND"
	ErrorIncorrectPassword  = "INCORRECT_PASSWORD"
	ErrorAccountInactive    = "ACCOUNT_INACTIVE"
	ErrorEmailAlreadyExists = "EMAIL_ALREADY_EXISTS"
	ErrorTokenInvalid       = "TOKEN_INVALID"
	ErrorTokenExpired       = "TOKEN_EXPIRED"
	ErrorInternalServer     = "INTERNAL_SERVER_ERROR"
	ErrorValidationFailed   = "VALIDATION_FAILED"
)
