package backend

import (
	"strconv"

	"github.com/gin-gonic/gin"
	"github.com/yukikurage/task-management-client/internal/database"
)

const (
	MinPageSize     = 1
	DefaultPageSize = 50
	MaxPageSize     = 200
)

// PaginationParams holds the pagination parameters
type PaginationParams struct {
	Page   int
	Limit  int
	Offset int
}

// PaginationResponse represents the pagination metadata in API responses
type PaginationResponse struct {
	Page  int   `json:"page"`
	Limit int   `json:"limit"`
	Total int64 `json:"total"`
}

// GetPaginationParams extracts pagination parameters from the request. It
// reports false when the request asks for no pagination at all, in which case
// every row is returned.
func GetPaginationParams(c *gin.Context) (PaginationParams, bool) {
	if c.Query("page") == "" && c.Query("limit") == "" {
		return PaginationParams{}, false
	}

	page, _ := strconv.Atoi(c.DefaultQuery("page", strconv.Itoa(MinPageSize)))
	limit, _ := strconv.Atoi(c.DefaultQuery("limit", strconv.Itoa(DefaultPageSize)))

	if page < MinPageSize {
		page = MinPageSize
	}
	if limit < MinPageSize || limit > MaxPageSize {
		limit = DefaultPageSize
	}

	return PaginationParams{
		Page:   page,
		Limit:  limit,
		Offset: (page - 1) * limit,
	}, true
}

func (p PaginationParams) window() database.Page {
	return database.Page{Offset: p.Offset, Limit: p.Limit}
}
