// Package handlers contains HTTP request handlers and presentation layer logic for the API endpoints
package handlers

import (
	"context"
	"log"
	"time"

	"github.com/go-playground/validator/v10"
	"github.com/gofiber/fiber/v3"
	"github.com/jobradar/jobradar/app/dto"
	businessflow "github.com/jobradar/jobradar/business_flow"
)

// SavedFilterHandlerInterface defines the contract for saved filter handlers
type SavedFilterHandlerInterface interface {
	CreateSavedFilter(c fiber.Ctx) error
	ListSavedFilters(c fiber.Ctx) error
	UpdateSavedFilter(c fiber.Ctx) error
	DeleteSavedFilter(c fiber.Ctx) error
	ApplySavedFilter(c fiber.Ctx) error
	GetFilterContext(c fiber.Ctx) error
	ClearFilterContext(c fiber.Ctx) error
}

// SavedFilterHandler handles saved filter HTTP requests
type SavedFilterHandler struct {
	filterFlow businessflow.SavedFilterFlow
	validator  *validator.Validate
}

func (h *SavedFilterHandler) ErrorResponse(c fiber.Ctx, statusCode int, message, errorCode string, details any) error {
	return c.Status(statusCode).JSON(dto.APIResponse{
		Success: false,
		Message: message,
		Error: dto.ErrorDetail{
			Code:    errorCode,
			Details: details,
		},
	})
}

func (h *SavedFilterHandler) SuccessResponse(c fiber.Ctx, statusCode int, message string, data any) error {
	return c.Status(statusCode).JSON(dto.APIResponse{
		Success: true,
		Message: message,
		Data:    data,
	})
}

// NewSavedFilterHandler creates a new saved filter handler
func NewSavedFilterHandler(filterFlow businessflow.SavedFilterFlow) *SavedFilterHandler {
	return &SavedFilterHandler{
		filterFlow: filterFlow,
		validator:  validator.New(),
	}
}

// CreateSavedFilter saves a named filter
// @Summary Create Saved Filter
// @Description Save a named condition list, subject to the per-customer quota
// @Tags SavedFilters
// @Accept json
// @Produce json
// @Security BearerAuth
// @Param request body dto.CreateSavedFilterRequest true "Filter name and conditions"
// @Success 201 {object} dto.APIResponse{data=dto.SavedFilterDTO} "Filter saved"
// @Failure 400 {object} dto.APIResponse "Validation error"
// @Failure 409 {object} dto.APIResponse "Name taken or quota reached"
// @Router /api/v1/filters [post]
func (h *SavedFilterHandler) CreateSavedFilter(c fiber.Ctx) error {
	customerID, ok := c.Locals("customer_id").(uint)
	if !ok {
		return h.ErrorResponse(c, fiber.StatusUnauthorized, "Unauthorized", "UNAUTHORIZED", nil)
	}

	var req dto.CreateSavedFilterRequest
	if err := c.Bind().JSON(&req); err != nil {
		return h.ErrorResponse(c, fiber.StatusBadRequest, "Invalid request body", "INVALID_REQUEST", err.Error())
	}

	if err := h.validator.Struct(&req); err != nil {
		return h.ErrorResponse(c, fiber.StatusBadRequest, "Validation failed", "VALIDATION_ERROR", validationMessages(err))
	}

	metadata := businessflow.NewClientMetadata(c.IP(), c.Get("User-Agent"))

	filter, err := h.filterFlow.CreateSavedFilter(h.createRequestContext(c, "/api/v1/filters"), customerID, &req, metadata)
	if err != nil {
		if businessflow.IsSavedFilterQuotaReached(err) {
			return h.ErrorResponse(c, fiber.StatusConflict, "Saved filter quota reached", dto.ErrorQuotaReached, nil)
		}
		if businessflow.IsSavedFilterNameTaken(err) {
			return h.ErrorResponse(c, fiber.StatusConflict, "A filter with this name already exists", dto.ErrorNameTaken, nil)
		}
		if businessflow.IsNoConditions(err) || businessflow.IsInvalidConditions(err) || businessflow.IsSavedFilterNameRequired(err) {
			return h.ErrorResponse(c, fiber.StatusBadRequest, "Invalid saved filter", dto.ErrorInvalidConditions, nil)
		}

		log.Println("Saved filter creation failed", err)
		return h.ErrorResponse(c, fiber.StatusInternalServerError, "Failed to create saved filter", "SAVED_FILTER_CREATE_FAILED", nil)
	}

	return h.SuccessResponse(c, fiber.StatusCreated, "Saved filter created", filter)
}

// ListSavedFilters lists the caller's saved filters
// @Summary List Saved Filters
// @Description Return every saved filter of the caller with its freshness badge state
// @Tags SavedFilters
// @Produce json
// @Security BearerAuth
// @Success 200 {object} dto.APIResponse{data=[]dto.SavedFilterDTO} "Saved filters"
// @Router /api/v1/filters [get]
func (h *SavedFilterHandler) ListSavedFilters(c fiber.Ctx) error {
	customerID, ok := c.Locals("customer_id").(uint)
	if !ok {
		return h.ErrorResponse(c, fiber.StatusUnauthorized, "Unauthorized", "UNAUTHORIZED", nil)
	}

	filters, err := h.filterFlow.ListSavedFilters(h.createRequestContext(c, "/api/v1/filters"), customerID)
	if err != nil {
		log.Println("Saved filter listing failed", err)
		return h.ErrorResponse(c, fiber.StatusInternalServerError, "Failed to list saved filters", "SAVED_FILTER_LIST_FAILED", nil)
	}

	return h.SuccessResponse(c, fiber.StatusOK, "Saved filters retrieved successfully", filters)
}

// UpdateSavedFilter partially updates a saved filter
// @Summary Update Saved Filter
// @Description Rename a filter, replace its conditions, or toggle notifications; replacing conditions resets freshness state
// @Tags SavedFilters
// @Accept json
// @Produce json
// @Security BearerAuth
// @Param uuid path string true "Saved filter UUID"
// @Param request body dto.UpdateSavedFilterRequest true "Fields to update"
// @Success 200 {object} dto.APIResponse{data=dto.SavedFilterDTO} "Filter updated"
// @Failure 403 {object} dto.APIResponse "Not the owner"
// @Failure 404 {object} dto.APIResponse "Filter not found"
// @Router /api/v1/filters/{uuid} [patch]
func (h *SavedFilterHandler) UpdateSavedFilter(c fiber.Ctx) error {
	customerID, ok := c.Locals("customer_id").(uint)
	if !ok {
		return h.ErrorResponse(c, fiber.StatusUnauthorized, "Unauthorized", "UNAUTHORIZED", nil)
	}

	var req dto.UpdateSavedFilterRequest
	if err := c.Bind().JSON(&req); err != nil {
		return h.ErrorResponse(c, fiber.StatusBadRequest, "Invalid request body", "INVALID_REQUEST", err.Error())
	}

	if err := h.validator.Struct(&req); err != nil {
		return h.ErrorResponse(c, fiber.StatusBadRequest, "Validation failed", "VALIDATION_ERROR", validationMessages(err))
	}

	metadata := businessflow.NewClientMetadata(c.IP(), c.Get("User-Agent"))

	filter, err := h.filterFlow.UpdateSavedFilter(h.createRequestContext(c, "/api/v1/filters/:uuid"), customerID, c.Params("uuid"), &req, metadata)
	if err != nil {
		return h.savedFilterError(c, err, "SAVED_FILTER_UPDATE_FAILED", "Failed to update saved filter")
	}

	return h.SuccessResponse(c, fiber.StatusOK, "Saved filter updated", filter)
}

// DeleteSavedFilter removes a saved filter
// @Summary Delete Saved Filter
// @Description Delete a saved filter and any viewing context pointing at it
// @Tags SavedFilters
// @Produce json
// @Security BearerAuth
// @Param uuid path string true "Saved filter UUID"
// @Success 200 {object} dto.APIResponse "Filter deleted"
// @Failure 403 {object} dto.APIResponse "Not the owner"
// @Failure 404 {object} dto.APIResponse "Filter not found"
// @Router /api/v1/filters/{uuid} [delete]
func (h *SavedFilterHandler) DeleteSavedFilter(c fiber.Ctx) error {
	customerID, ok := c.Locals("customer_id").(uint)
	if !ok {
		return h.ErrorResponse(c, fiber.StatusUnauthorized, "Unauthorized", "UNAUTHORIZED", nil)
	}

	metadata := businessflow.NewClientMetadata(c.IP(), c.Get("User-Agent"))

	if err := h.filterFlow.DeleteSavedFilter(h.createRequestContext(c, "/api/v1/filters/:uuid"), customerID, c.Params("uuid"), metadata); err != nil {
		return h.savedFilterError(c, err, "SAVED_FILTER_DELETE_FAILED", "Failed to delete saved filter")
	}

	return h.SuccessResponse(c, fiber.StatusOK, "Saved filter deleted", nil)
}

// ApplySavedFilter runs a saved filter and refreshes its badge
// @Summary Apply Saved Filter
// @Description Run a saved filter, maintain its freshness badge, and return a page of matches with the viewing boundary
// @Tags SavedFilters
// @Accept json
// @Produce json
// @Security BearerAuth
// @Param uuid path string true "Saved filter UUID"
// @Param request body dto.ApplySavedFilterRequest true "Pagination"
// @Success 200 {object} dto.APIResponse{data=dto.ApplySavedFilterResult} "Matches and badge state"
// @Failure 403 {object} dto.APIResponse "Not the owner"
// @Failure 404 {object} dto.APIResponse "Filter not found"
// @Router /api/v1/filters/{uuid}/apply [post]
func (h *SavedFilterHandler) ApplySavedFilter(c fiber.Ctx) error {
	customerID, ok := c.Locals("customer_id").(uint)
	if !ok {
		return h.ErrorResponse(c, fiber.StatusUnauthorized, "Unauthorized", "UNAUTHORIZED", nil)
	}

	var req dto.ApplySavedFilterRequest
	if err := c.Bind().JSON(&req); err != nil {
		return h.ErrorResponse(c, fiber.StatusBadRequest, "Invalid request body", "INVALID_REQUEST", err.Error())
	}

	if err := h.validator.Struct(&req); err != nil {
		return h.ErrorResponse(c, fiber.StatusBadRequest, "Validation failed", "VALIDATION_ERROR", validationMessages(err))
	}

	metadata := businessflow.NewClientMetadata(c.IP(), c.Get("User-Agent"))

	result, err := h.filterFlow.ApplySavedFilter(h.createRequestContext(c, "/api/v1/filters/:uuid/apply"), customerID, c.Params("uuid"), &req, metadata)
	if err != nil {
		if businessflow.IsInvalidPage(err) || businessflow.IsInvalidPageSize(err) {
			return h.ErrorResponse(c, fiber.StatusBadRequest, "Invalid pagination", dto.ErrorInvalidPagination, nil)
		}
		return h.savedFilterError(c, err, "SAVED_FILTER_APPLY_FAILED", "Failed to apply saved filter")
	}

	return h.SuccessResponse(c, fiber.StatusOK, "Saved filter applied", result)
}

// GetFilterContext returns the caller's current viewing context
// @Summary Get Filter Context
// @Description Return the cross-device viewing context, if one is active
// @Tags SavedFilters
// @Produce json
// @Security BearerAuth
// @Success 200 {object} dto.APIResponse{data=dto.FilterContextDTO} "Viewing context, null when none"
// @Router /api/v1/filters/context [get]
func (h *SavedFilterHandler) GetFilterContext(c fiber.Ctx) error {
	customerID, ok := c.Locals("customer_id").(uint)
	if !ok {
		return h.ErrorResponse(c, fiber.StatusUnauthorized, "Unauthorized", "UNAUTHORIZED", nil)
	}

	fc, err := h.filterFlow.GetFilterContext(h.createRequestContext(c, "/api/v1/filters/context"), customerID)
	if err != nil {
		log.Println("Filter context retrieval failed", err)
		return h.ErrorResponse(c, fiber.StatusInternalServerError, "Failed to retrieve filter context", "CONTEXT_RETRIEVAL_FAILED", nil)
	}

	return h.SuccessResponse(c, fiber.StatusOK, "Filter context retrieved successfully", fc)
}

// ClearFilterContext drops the caller's viewing context
// @Summary Clear Filter Context
// @Description Remove the cross-device viewing context
// @Tags SavedFilters
// @Produce json
// @Security BearerAuth
// @Success 200 {object} dto.APIResponse "Context cleared"
// @Router /api/v1/filters/context [delete]
func (h *SavedFilterHandler) ClearFilterContext(c fiber.Ctx) error {
	customerID, ok := c.Locals("customer_id").(uint)
	if !ok {
		return h.ErrorResponse(c, fiber.StatusUnauthorized, "Unauthorized", "UNAUTHORIZED", nil)
	}

	metadata := businessflow.NewClientMetadata(c.IP(), c.Get("User-Agent"))

	if err := h.filterFlow.ClearFilterContext(h.createRequestContext(c, "/api/v1/filters/context"), customerID, metadata); err != nil {
		log.Println("Filter context clearing failed", err)
		return h.ErrorResponse(c, fiber.StatusInternalServerError, "Failed to clear filter context", "CONTEXT_CLEAR_FAILED", nil)
	}

	return h.SuccessResponse(c, fiber.StatusOK, "Filter context cleared", nil)
}

func (h *SavedFilterHandler) savedFilterError(c fiber.Ctx, err error, fallbackCode, fallbackMessage string) error {
	if businessflow.IsSavedFilterNotFound(err) {
		return h.ErrorResponse(c, fiber.StatusNotFound, "Saved filter not found", dto.ErrorSavedFilterNotFound, nil)
	}
	if businessflow.IsSavedFilterAccessDenied(err) {
		return h.ErrorResponse(c, fiber.StatusForbidden, "Saved filter belongs to another customer", dto.ErrorSavedFilterDenied, nil)
	}
	if businessflow.IsSavedFilterNameTaken(err) {
		return h.ErrorResponse(c, fiber.StatusConflict, "A filter with this name already exists", dto.ErrorNameTaken, nil)
	}
	if businessflow.IsNoConditions(err) || businessflow.IsInvalidConditions(err) || businessflow.IsSavedFilterNameRequired(err) {
		return h.ErrorResponse(c, fiber.StatusBadRequest, "Invalid saved filter", dto.ErrorInvalidConditions, nil)
	}

	log.Println(fallbackMessage, err)
	return h.ErrorResponse(c, fiber.StatusInternalServerError, fallbackMessage, fallbackCode, nil)
}

// createRequestContext creates a context with timeout and request metadata for business flows
func (h *SavedFilterHandler) createRequestContext(c fiber.Ctx, endpoint string) context.Context {
	return createRequestContextWithTimeout(c, endpoint, 30*time.Second)
}
