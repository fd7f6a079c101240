// Package handlers contains HTTP request handlers and presentation layer logic for the API endpoints
package handlers

import (
	"context"
	"log"
	"strconv"
	"time"

	"github.com/go-playground/validator/v10"
	"github.com/gofiber/fiber/v3"
	"github.com/jobradar/jobradar/app/dto"
	businessflow "github.com/jobradar/jobradar/business_flow"
)

// JobHandlerInterface defines the contract for job search handlers
type JobHandlerInterface interface {
	SearchJobs(c fiber.Ctx) error
	GetJob(c fiber.Ctx) error
	ListFilterFields(c fiber.Ctx) error
	ExportJobs(c fiber.Ctx) error
}

// JobHandler handles job search HTTP requests
type JobHandler struct {
	searchFlow businessflow.JobSearchFlow
	validator  *validator.Validate
}

func (h *JobHandler) ErrorResponse(c fiber.Ctx, statusCode int, message, errorCode string, details any) error {
	return c.Status(statusCode).JSON(dto.APIResponse{
		Success: false,
		Message: message,
		Error: dto.ErrorDetail{
			Code:    errorCode,
			Details: details,
		},
	})
}

func (h *JobHandler) SuccessResponse(c fiber.Ctx, statusCode int, message string, data any) error {
	return c.Status(statusCode).JSON(dto.APIResponse{
		Success: true,
		Message: message,
		Data:    data,
	})
}

// NewJobHandler creates a new job search handler
func NewJobHandler(searchFlow businessflow.JobSearchFlow) *JobHandler {
	return &JobHandler{
		searchFlow: searchFlow,
		validator:  validator.New(),
	}
}

// SearchJobs runs a dynamic filter over the job corpus
// @Summary Search Jobs
// @Description Evaluate a condition list (or an encoded shareable filter) and return a page of matches
// @Tags Jobs
// @Accept json
// @Produce json
// @Security BearerAuth
// @Param request body dto.SearchJobsRequest true "Filter conditions and pagination"
// @Success 200 {object} dto.APIResponse{data=dto.SearchJobsResult} "Page of matching jobs"
// @Failure 400 {object} dto.APIResponse "Invalid conditions or pagination"
// @Failure 500 {object} dto.APIResponse "Internal server error"
// @Router /api/v1/jobs/search [post]
func (h *JobHandler) SearchJobs(c fiber.Ctx) error {
	customerID, ok := c.Locals("customer_id").(uint)
	if !ok {
		return h.ErrorResponse(c, fiber.StatusUnauthorized, "Unauthorized", "UNAUTHORIZED", nil)
	}

	var req dto.SearchJobsRequest
	if err := c.Bind().JSON(&req); err != nil {
		return h.ErrorResponse(c, fiber.StatusBadRequest, "Invalid request body", "INVALID_REQUEST", err.Error())
	}

	if err := h.validator.Struct(&req); err != nil {
		return h.ErrorResponse(c, fiber.StatusBadRequest, "Validation failed", "VALIDATION_ERROR", validationMessages(err))
	}

	metadata := businessflow.NewClientMetadata(c.IP(), c.Get("User-Agent"))

	result, err := h.searchFlow.SearchJobs(h.createRequestContext(c, "/api/v1/jobs/search"), customerID, &req, metadata)
	if err != nil {
		if businessflow.IsInvalidConditions(err) {
			return h.ErrorResponse(c, fiber.StatusBadRequest, "Filter conditions are invalid", dto.ErrorInvalidConditions, nil)
		}
		if businessflow.IsInvalidPage(err) || businessflow.IsInvalidPageSize(err) {
			return h.ErrorResponse(c, fiber.StatusBadRequest, "Invalid pagination", dto.ErrorInvalidPagination, nil)
		}

		log.Println("Job search failed", err)
		return h.ErrorResponse(c, fiber.StatusInternalServerError, "Job search failed", "SEARCH_FAILED", nil)
	}

	return h.SuccessResponse(c, fiber.StatusOK, "Jobs retrieved successfully", result)
}

// GetJob returns a single job posting
// @Summary Get Job
// @Description Fetch one job posting by its numeric ID
// @Tags Jobs
// @Produce json
// @Security BearerAuth
// @Param id path int true "Job ID"
// @Success 200 {object} dto.APIResponse{data=dto.JobDTO} "Job details"
// @Failure 404 {object} dto.APIResponse "Job not found"
// @Router /api/v1/jobs/{id} [get]
func (h *JobHandler) GetJob(c fiber.Ctx) error {
	customerID, ok := c.Locals("customer_id").(uint)
	if !ok {
		return h.ErrorResponse(c, fiber.StatusUnauthorized, "Unauthorized", "UNAUTHORIZED", nil)
	}

	jobID, err := strconv.ParseUint(c.Params("id"), 10, 64)
	if err != nil {
		return h.ErrorResponse(c, fiber.StatusBadRequest, "Invalid job ID", "INVALID_JOB_ID", nil)
	}

	job, err := h.searchFlow.GetJob(h.createRequestContext(c, "/api/v1/jobs/:id"), customerID, uint(jobID))
	if err != nil {
		if businessflow.IsJobNotFound(err) {
			return h.ErrorResponse(c, fiber.StatusNotFound, "Job not found", dto.ErrorJobNotFound, nil)
		}

		log.Println("Job retrieval failed", err)
		return h.ErrorResponse(c, fiber.StatusInternalServerError, "Failed to retrieve job", "JOB_RETRIEVAL_FAILED", nil)
	}

	return h.SuccessResponse(c, fiber.StatusOK, "Job retrieved successfully", job)
}

// ListFilterFields describes the filterable field vocabulary
// @Summary List Filter Fields
// @Description Return every filterable field with its operators and, for closed-vocabulary fields, the current options
// @Tags Jobs
// @Produce json
// @Security BearerAuth
// @Success 200 {object} dto.APIResponse{data=dto.ListFilterFieldsResult} "Field vocabulary"
// @Failure 500 {object} dto.APIResponse "Internal server error"
// @Router /api/v1/jobs/filter-fields [get]
func (h *JobHandler) ListFilterFields(c fiber.Ctx) error {
	result, err := h.searchFlow.ListFilterFields(h.createRequestContext(c, "/api/v1/jobs/filter-fields"))
	if err != nil {
		log.Println("Filter field listing failed", err)
		return h.ErrorResponse(c, fiber.StatusInternalServerError, "Failed to list filter fields", "FILTER_FIELDS_FAILED", nil)
	}

	return h.SuccessResponse(c, fiber.StatusOK, "Filter fields retrieved successfully", result)
}

// ExportJobs downloads the matches of a filter as a spreadsheet
// @Summary Export Jobs
// @Description Evaluate a condition list and stream the matches as an xlsx workbook
// @Tags Jobs
// @Accept json
// @Produce application/vnd.openxmlformats-officedocument.spreadsheetml.sheet
// @Security BearerAuth
// @Param request body dto.ExportJobsRequest true "Filter conditions"
// @Success 200 {file} binary "Workbook"
// @Failure 400 {object} dto.APIResponse "Invalid conditions"
// @Failure 413 {object} dto.APIResponse "Too many matches to export"
// @Router /api/v1/jobs/export [post]
func (h *JobHandler) ExportJobs(c fiber.Ctx) error {
	customerID, ok := c.Locals("customer_id").(uint)
	if !ok {
		return h.ErrorResponse(c, fiber.StatusUnauthorized, "Unauthorized", "UNAUTHORIZED", nil)
	}

	var req dto.ExportJobsRequest
	if err := c.Bind().JSON(&req); err != nil {
		return h.ErrorResponse(c, fiber.StatusBadRequest, "Invalid request body", "INVALID_REQUEST", err.Error())
	}

	if err := h.validator.Struct(&req); err != nil {
		return h.ErrorResponse(c, fiber.StatusBadRequest, "Validation failed", "VALIDATION_ERROR", validationMessages(err))
	}

	metadata := businessflow.NewClientMetadata(c.IP(), c.Get("User-Agent"))

	// Workbook generation can take a while on large result sets
	ctx := createRequestContextWithTimeout(c, "/api/v1/jobs/export", 2*time.Minute)

	workbook, filename, err := h.searchFlow.ExportJobs(ctx, customerID, &req, metadata)
	if err != nil {
		if businessflow.IsInvalidConditions(err) {
			return h.ErrorResponse(c, fiber.StatusBadRequest, "Filter conditions are invalid", dto.ErrorInvalidConditions, nil)
		}
		if businessflow.IsExportTooLarge(err) {
			return h.ErrorResponse(c, fiber.StatusRequestEntityTooLarge, "Too many matches to export", dto.ErrorExportTooLarge, nil)
		}

		log.Println("Job export failed", err)
		return h.ErrorResponse(c, fiber.StatusInternalServerError, "Job export failed", "EXPORT_FAILED", nil)
	}

	c.Set("Content-Type", "application/vnd.openxmlformats-officedocument.spreadsheetml.sheet")
	c.Set("Content-Disposition", `attachment; filename="`+filename+`"`)
	return c.Send(workbook)
}

// createRequestContext creates a context with timeout and request metadata for business flows
func (h *JobHandler) createRequestContext(c fiber.Ctx, endpoint string) context.Context {
	return createRequestContextWithTimeout(c, endpoint, 30*time.Second)
}
