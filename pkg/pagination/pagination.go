package pagination

import (
	"strconv"

	"github.com/gin-gonic/gin"
)

const (
	// DefaultLimit is the page size used when none is requested
	DefaultLimit = 20
	// MaxLimit caps the requested page size
	MaxLimit = 100
	// DefaultOffset is the offset used when none is requested
	DefaultOffset = 0
)

// Params holds parsed pagination parameters
type Params struct {
	Limit  int
	Offset int
}

// Meta describes the pagination state of a list response
type Meta struct {
	Limit      int   `json:"limit"`
	Offset     int   `json:"offset"`
	Total      int64 `json:"total"`
	TotalPages int   `json:"total_pages"`
	HasMore    bool  `json:"has_more"`
}

// ParseParams extracts limit/offset query parameters with sane defaults
func ParseParams(c *gin.Context) Params {
	params := Params{Limit: DefaultLimit, Offset: DefaultOffset}

	if raw := c.Query("limit"); raw != "" {
		if limit, err := strconv.Atoi(raw); err == nil && limit > 0 {
			if limit > MaxLimit {
				limit = MaxLimit
			}
			params.Limit = limit
		}
	}

	if raw := c.Query("offset"); raw != "" {
		if offset, err := strconv.Atoi(raw); err == nil && offset >= 0 {
			params.Offset = offset
		}
	}

	return params
}

// BuildMeta builds pagination meta for a response
func BuildMeta(limit, offset int, total int64) *Meta {
	totalPages := 0
	if limit > 0 {
		totalPages = int((total + int64(limit) - 1) / int64(limit))
	}

	return &Meta{
		Limit:      limit,
		Offset:     offset,
		Total:      total,
		TotalPages: totalPages,
		HasMore:    HasMore(offset, limit, total),
	}
}

// HasMore reports whether more items exist past the current page
func HasMore(offset, limit int, total int64) bool {
	return int64(offset+limit) < total
}

// GetCurrentPage converts an offset/limit pair to a 1-based page number
func GetCurrentPage(offset, limit int) int {
	if limit <= 0 {
		return 1
	}
	return offset/limit + 1
}
