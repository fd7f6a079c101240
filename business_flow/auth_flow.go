// Package businessflow contains the core business logic and use cases for authentication workflows
package businessflow

import (
	"context"
	"fmt"
	"strings"
	"time"

	"github.com/google/uuid"
	"github.com/jobradar/jobradar/app/dto"
	"github.com/jobradar/jobradar/app/services"
	"github.com/jobradar/jobradar/models"
	"github.com/jobradar/jobradar/repository"
	"github.com/jobradar/jobradar/utils"
	"golang.org/x/crypto/bcrypt"
	"gorm.io/gorm"
)

// AuthFlow handles account creation, authentication, and profile settings
type AuthFlow interface {
	Signup(ctx context.Context, request *dto.SignupRequest, metadata *ClientMetadata) (*dto.AuthResult, error)
	Login(ctx context.Context, request *dto.LoginRequest, metadata *ClientMetadata) (*dto.AuthResult, error)
	RefreshTokens(ctx context.Context, request *dto.RefreshTokenRequest, metadata *ClientMetadata) (*dto.TokenPairDTO, error)
	Logout(ctx context.Context, customerID uint, accessToken string, metadata *ClientMetadata) error
	UpdatePreferredCurrency(ctx context.Context, customerID uint, request *dto.UpdatePreferredCurrencyRequest) (*dto.AuthCustomerDTO, error)
}

// AuthFlowImpl implements the authentication business flow
type AuthFlowImpl struct {
	customerRepo   repository.CustomerRepository
	auditRepo      repository.AuditLogRepository
	tokenService   services.TokenService
	accessTokenTTL time.Duration
	bcryptCost     int
	db             *gorm.DB
}

// NewAuthFlow creates a new authentication flow instance
func NewAuthFlow(
	customerRepo repository.CustomerRepository,
	auditRepo repository.AuditLogRepository,
	tokenService services.TokenService,
	accessTokenTTL time.Duration,
	bcryptCost int,
	db *gorm.DB,
) AuthFlow {
	if bcryptCost < bcrypt.MinCost || bcryptCost > bcrypt.MaxCost {
		bcryptCost = bcrypt.DefaultCost
	}
	return &AuthFlowImpl{
		customerRepo:   customerRepo,
		auditRepo:      auditRepo,
		tokenService:   tokenService,
		accessTokenTTL: accessTokenTTL,
		bcryptCost:     bcryptCost,
		db:             db,
	}
}

// Signup registers a new customer account
func (af *AuthFlowImpl) Signup(ctx context.Context, request *dto.SignupRequest, metadata *ClientMetadata) (*dto.AuthResult, error) {
	email := strings.ToLower(strings.TrimSpace(request.Email))

	var customer *models.Customer

	resp, err := af.withAuthTransaction(ctx, func(ctx context.Context) (*dto.AuthResult, error) {
		existing, err := af.customerRepo.ByEmail(ctx, email)
		if err != nil {
			return nil, err
		}
		if existing != nil {
			return nil, ErrEmailAlreadyExists
		}

		hashedPassword, err := bcrypt.GenerateFromPassword([]byte(request.Password), af.bcryptCost)
		if err != nil {
			return nil, err
		}

		currency := strings.ToUpper(strings.TrimSpace(request.PreferredCurrency))
		if currency == "" {
			currency = models.DefaultPreferredCurrency
		}

		customer = &models.Customer{
			UUID:              uuid.New(),
			FirstName:         strings.TrimSpace(request.FirstName),
			LastName:          strings.TrimSpace(request.LastName),
			Email:             email,
			PasswordHash:      string(hashedPassword),
			PreferredCurrency: currency,
			IsEmailVerified:   utils.ToPtr(false),
			IsActive:          utils.ToPtr(true),
		}

		if err := af.customerRepo.Save(ctx, customer); err != nil {
			return nil, err
		}

		tokens, err := af.issueTokens(customer.ID)
		if err != nil {
			return nil, err
		}

		return &dto.AuthResult{
			Customer: ToAuthCustomerDTO(*customer),
			Tokens:   *tokens,
		}, nil
	})

	if err != nil {
		errMsg := fmt.Sprintf("Signup failed: %s", err.Error())
		_ = af.logAuthEvent(ctx, customer, models.AuditActionSignupFailed, errMsg, false, &errMsg, metadata)
		return nil, NewBusinessError("SIGNUP_FAILED", "Signup failed", err)
	}

	msg := fmt.Sprintf("Account created: %d", resp.Customer.ID)
	_ = af.logAuthEvent(ctx, customer, models.AuditActionSignupCompleted, msg, true, nil, metadata)

	return resp, nil
}

// Login authenticates a customer with email and password
func (af *AuthFlowImpl) Login(ctx context.Context, request *dto.LoginRequest, metadata *ClientMetadata) (*dto.AuthResult, error) {
	var customer *models.Customer

	resp, err := af.withAuthTransaction(ctx, func(ctx context.Context) (*dto.AuthResult, error) {
		var err error
		customer, err = af.customerRepo.ByEmail(ctx, request.Email)
		if err != nil {
			return nil, err
		}
		if customer == nil {
			return nil, ErrCustomerNotFound
		}

		if !utils.IsTrue(customer.IsActive) {
			return nil, ErrAccountInactive
		}

		if err := bcrypt.CompareHashAndPassword([]byte(customer.PasswordHash), []byte(request.Password)); err != nil {
			return nil, ErrIncorrectPassword
		}

		tokens, err := af.issueTokens(customer.ID)
		if err != nil {
			return nil, err
		}

		return &dto.AuthResult{
			Customer: ToAuthCustomerDTO(*customer),
			Tokens:   *tokens,
		}, nil
	})

	if err != nil {
		errMsg := fmt.Sprintf("Login failed: %s", err.Error())
		_ = af.logAuthEvent(ctx, customer, models.AuditActionLoginFailed, errMsg, false, &errMsg, metadata)
		return nil, NewBusinessError("LOGIN_FAILED", "Login failed", err)
	}

	msg := fmt.Sprintf("User logged in successfully: %d", resp.Customer.ID)
	_ = af.logAuthEvent(ctx, customer, models.AuditActionLoginSuccessful, msg, true, nil, metadata)

	return resp, nil
}

// RefreshTokens exchanges a valid refresh token for a new token pair
func (af *AuthFlowImpl) RefreshTokens(ctx context.Context, request *dto.RefreshTokenRequest, metadata *ClientMetadata) (*dto.TokenPairDTO, error) {
	accessToken, refreshToken, err := af.tokenService.RefreshToken(request.RefreshToken)
	if err != nil {
		return nil, NewBusinessError("TOKEN_REFRESH_FAILED", "Token refresh failed", err)
	}

	now := utils.UTCNow()
	return &dto.TokenPairDTO{
		AccessToken:  accessToken,
		RefreshToken: refreshToken,
		TokenType:    "Bearer",
		ExpiresIn:    int(af.accessTokenTTL.Seconds()),
		ExpiresAt:    now.Add(af.accessTokenTTL),
	}, nil
}

// Logout revokes the presented access token
func (af *AuthFlowImpl) Logout(ctx context.Context, customerID uint, accessToken string, metadata *ClientMetadata) error {
	if err := af.tokenService.RevokeToken(accessToken); err != nil {
		return NewBusinessError("LOGOUT_FAILED", "Logout failed", err)
	}

	customer, err := af.customerRepo.ByID(ctx, customerID)
	if err == nil {
		msg := fmt.Sprintf("User logged out: %d", customerID)
		_ = af.logAuthEvent(ctx, customer, models.AuditActionLogout, msg, true, nil, metadata)
	}

	return nil
}

// UpdatePreferredCurrency changes the customer's display currency for salary conversion
func (af *AuthFlowImpl) UpdatePreferredCurrency(ctx context.Context, customerID uint, request *dto.UpdatePreferredCurrencyRequest) (*dto.AuthCustomerDTO, error) {
	customer, err := af.customerRepo.ByID(ctx, customerID)
	if err != nil {
		return nil, err
	}
	if customer == nil {
		return nil, NewBusinessError("CUSTOMER_NOT_FOUND", "Customer not found", ErrCustomerNotFound)
	}

	currency := strings.ToUpper(strings.TrimSpace(request.Currency))
	if err := af.customerRepo.UpdatePreferredCurrency(ctx, customerID, currency); err != nil {
		return nil, NewBusinessError("CURRENCY_UPDATE_FAILED", "Failed to update preferred currency", err)
	}

	customer.PreferredCurrency = currency
	result := ToAuthCustomerDTO(*customer)
	return &result, nil
}

// Private helper methods

func (af *AuthFlowImpl) issueTokens(customerID uint) (*dto.TokenPairDTO, error) {
	accessToken, refreshToken, err := af.tokenService.GenerateTokens(customerID)
	if err != nil {
		return nil, err
	}

	now := utils.UTCNow()
	return &dto.TokenPairDTO{
		AccessToken:  accessToken,
		RefreshToken: refreshToken,
		TokenType:    "Bearer",
		ExpiresIn:    int(af.accessTokenTTL.Seconds()),
		ExpiresAt:    now.Add(af.accessTokenTTL),
	}, nil
}

func (af *AuthFlowImpl) logAuthEvent(ctx context.Context, customer *models.Customer, action string, description string, success bool, errMsg *string, metadata *ClientMetadata) error {
	var customerID *uint
	if customer != nil {
		customerID = &customer.ID
	}

	ipAddress := "127.0.0.1"
	userAgent := ""
	if metadata != nil {
		ipAddress = metadata.IPAddress
		userAgent = metadata.UserAgent
	}

	audit := &models.AuditLog{
		CustomerID:   customerID,
		Action:       action,
		Description:  &description,
		Success:      utils.ToPtr(success),
		IPAddress:    &ipAddress,
		UserAgent:    &userAgent,
		ErrorMessage: errMsg,
	}

	requestID := ctx.Value(RequestIDKey)
	if requestID != nil {
		requestIDStr, ok := requestID.(string)
		if ok {
			audit.RequestID = &requestIDStr
		}
	}

	return af.auditRepo.Save(ctx, audit)
}

func (af *AuthFlowImpl) withAuthTransaction(ctx context.Context, fn func(context.Context) (*dto.AuthResult, error)) (*dto.AuthResult, error) {
	var result *dto.AuthResult
	var fnErr error

	err := repository.WithTransaction(ctx, af.db, func(ctx context.Context) error {
		result, fnErr = fn(ctx)
		return fnErr
	})

	if err != nil {
		return nil, err
	}
	return result, fnErr
}
