package utils

import (
	"strconv"

	"github.com/gin-gonic/gin"
	"github.com/yukikurage/task-realtime-api/internal/constants"
)

// PaginationParams holds the pagination parameters
type PaginationParams struct {
	Page   int
	Limit  int
	Offset int
}

// PaginationResponse represents the pagination metadata in API responses
type PaginationResponse struct {
	Page       int   `json:"page"`
	Limit      int   `json:"limit"`
	Total      int64 `json:"total"`
	TotalPages int   `json:"totalPages"`
}

// NewPaginationParams clamps page and limit into the supported range.
// Out-of-range limits fall back to the default rather than the maximum.
func NewPaginationParams(page, limit int) PaginationParams {
	if page < constants.MinPageSize {
		page = constants.MinPageSize
	}
	if limit < constants.MinPageSize || limit > constants.MaxPageSize {
		limit = constants.DefaultPageSize
	}

	return PaginationParams{
		Page:   page,
		Limit:  limit,
		Offset: (page - 1) * limit,
	}
}

// GetPaginationParams extracts and validates pagination parameters from the request
func GetPaginationParams(c *gin.Context) PaginationParams {
	page, _ := strconv.Atoi(c.DefaultQuery("page", strconv.Itoa(constants.MinPageSize)))
	limit, _ := strconv.Atoi(c.DefaultQuery("limit", strconv.Itoa(constants.DefaultPageSize)))
	return NewPaginationParams(page, limit)
}

// NewPaginationResponse builds the metadata block for a page of results.
func NewPaginationResponse(params PaginationParams, total int64) PaginationResponse {
	totalPages := 0
	if params.Limit > 0 {
		totalPages = int((total + int64(params.Limit) - 1) / int64(params.Limit))
	}
	return PaginationResponse{
		Page:       params.Page,
		Limit:      params.Limit,
		Total:      total,
		TotalPages: totalPages,
	}
}
