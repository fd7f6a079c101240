// Package handlers contains HTTP request handlers and presentation layer logic for the API endpoints
package handlers

import (
	"context"
	"log"
	"strconv"
	"time"

	"github.com/gofiber/fiber/v3"
	"github.com/jobradar/jobradar/app/dto"
	businessflow "github.com/jobradar/jobradar/business_flow"
)

// FavoriteHandlerInterface defines the contract for favorite handlers
type FavoriteHandlerInterface interface {
	AddFavorite(c fiber.Ctx) error
	RemoveFavorite(c fiber.Ctx) error
	ListFavorites(c fiber.Ctx) error
}

// FavoriteHandler handles favorite HTTP requests
type FavoriteHandler struct {
	favoriteFlow businessflow.FavoriteFlow
}

func (h *FavoriteHandler) ErrorResponse(c fiber.Ctx, statusCode int, message, errorCode string, details any) error {
	return c.Status(statusCode).JSON(dto.APIResponse{
		Success: false,
		Message: message,
		Error: dto.ErrorDetail{
			Code:    errorCode,
			Details: details,
		},
	})
}

func (h *FavoriteHandler) SuccessResponse(c fiber.Ctx, statusCode int, message string, data any) error {
	return c.Status(statusCode).JSON(dto.APIResponse{
		Success: true,
		Message: message,
		Data:    data,
	})
}

// NewFavoriteHandler creates a new favorite handler
func NewFavoriteHandler(favoriteFlow businessflow.FavoriteFlow) *FavoriteHandler {
	return &FavoriteHandler{favoriteFlow: favoriteFlow}
}

// AddFavorite bookmarks a job
// @Summary Add Favorite
// @Description Bookmark a job posting
// @Tags Favorites
// @Produce json
// @Security BearerAuth
// @Param id path int true "Job ID"
// @Success 201 {object} dto.APIResponse "Job favorited"
// @Failure 404 {object} dto.APIResponse "Job not found"
// @Failure 409 {object} dto.APIResponse "Already favorited"
// @Router /api/v1/jobs/{id}/favorite [post]
func (h *FavoriteHandler) AddFavorite(c fiber.Ctx) error {
	customerID, ok := c.Locals("customer_id").(uint)
	if !ok {
		return h.ErrorResponse(c, fiber.StatusUnauthorized, "Unauthorized", "UNAUTHORIZED", nil)
	}

	jobID, err := strconv.ParseUint(c.Params("id"), 10, 64)
	if err != nil {
		return h.ErrorResponse(c, fiber.StatusBadRequest, "Invalid job ID", "INVALID_JOB_ID", nil)
	}

	metadata := businessflow.NewClientMetadata(c.IP(), c.Get("User-Agent"))

	if err := h.favoriteFlow.AddFavorite(h.createRequestContext(c, "/api/v1/jobs/:id/favorite"), customerID, uint(jobID), metadata); err != nil {
		if businessflow.IsJobNotFound(err) {
			return h.ErrorResponse(c, fiber.StatusNotFound, "Job not found", dto.ErrorJobNotFound, nil)
		}
		if businessflow.IsAlreadyFavorited(err) {
			return h.ErrorResponse(c, fiber.StatusConflict, "Job is already favorited", "ALREADY_FAVORITED", nil)
		}

		log.Println("Favorite addition failed", err)
		return h.ErrorResponse(c, fiber.StatusInternalServerError, "Failed to add favorite", "FAVORITE_ADD_FAILED", nil)
	}

	return h.SuccessResponse(c, fiber.StatusCreated, "Job favorited", nil)
}

// RemoveFavorite removes a bookmark
// @Summary Remove Favorite
// @Description Remove a bookmark from a job posting
// @Tags Favorites
// @Produce json
// @Security BearerAuth
// @Param id path int true "Job ID"
// @Success 200 {object} dto.APIResponse "Favorite removed"
// @Failure 404 {object} dto.APIResponse "Favorite not found"
// @Router /api/v1/jobs/{id}/favorite [delete]
func (h *FavoriteHandler) RemoveFavorite(c fiber.Ctx) error {
	customerID, ok := c.Locals("customer_id").(uint)
	if !ok {
		return h.ErrorResponse(c, fiber.StatusUnauthorized, "Unauthorized", "UNAUTHORIZED", nil)
	}

	jobID, err := strconv.ParseUint(c.Params("id"), 10, 64)
	if err != nil {
		return h.ErrorResponse(c, fiber.StatusBadRequest, "Invalid job ID", "INVALID_JOB_ID", nil)
	}

	metadata := businessflow.NewClientMetadata(c.IP(), c.Get("User-Agent"))

	if err := h.favoriteFlow.RemoveFavorite(h.createRequestContext(c, "/api/v1/jobs/:id/favorite"), customerID, uint(jobID), metadata); err != nil {
		if businessflow.IsFavoriteNotFound(err) {
			return h.ErrorResponse(c, fiber.StatusNotFound, "Favorite not found", "FAVORITE_NOT_FOUND", nil)
		}

		log.Println("Favorite removal failed", err)
		return h.ErrorResponse(c, fiber.StatusInternalServerError, "Failed to remove favorite", "FAVORITE_REMOVE_FAILED", nil)
	}

	return h.SuccessResponse(c, fiber.StatusOK, "Favorite removed", nil)
}

// ListFavorites lists the caller's bookmarked jobs
// @Summary List Favorites
// @Description Return the caller's bookmarked jobs, newest first
// @Tags Favorites
// @Produce json
// @Security BearerAuth
// @Param page query int false "Page number"
// @Param page_size query int false "Page size"
// @Success 200 {object} dto.APIResponse{data=[]dto.JobDTO} "Favorited jobs"
// @Router /api/v1/favorites [get]
func (h *FavoriteHandler) ListFavorites(c fiber.Ctx) error {
	customerID, ok := c.Locals("customer_id").(uint)
	if !ok {
		return h.ErrorResponse(c, fiber.StatusUnauthorized, "Unauthorized", "UNAUTHORIZED", nil)
	}

	page, _ := strconv.Atoi(c.Query("page", "1"))
	pageSize, _ := strconv.Atoi(c.Query("page_size", "20"))

	jobs, err := h.favoriteFlow.ListFavorites(h.createRequestContext(c, "/api/v1/favorites"), customerID, page, pageSize)
	if err != nil {
		log.Println("Favorite listing failed", err)
		return h.ErrorResponse(c, fiber.StatusInternalServerError, "Failed to list favorites", "FAVORITE_LIST_FAILED", nil)
	}

	return h.SuccessResponse(c, fiber.StatusOK, "Favorites retrieved successfully", jobs)
}

// createRequestContext creates a context with timeout and request metadata for business flows
func (h *FavoriteHandler) createRequestContext(c fiber.Ctx, endpoint string) context.Context {
	return createRequestContextWithTimeout(c, endpoint, 30*time.Second)
}
