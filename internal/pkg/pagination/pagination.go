package pagination

import (
	"errors"
	"strconv"

	"github.com/gofiber/fiber/v2"
)

const (
	// DefaultLimit is the page size when none is requested
	DefaultLimit = 10
	// MaxLimit caps the page size
	MaxLimit = 100
	// MaxPage keeps (page-1)*limit far from int overflow on any platform
	MaxPage = 1_000_000
)

// Params is a validated page request
type Params struct {
	Page   int
	Limit  int
	Offset int
}

// Meta describes where a page sits in the full result
type Meta struct {
	Page       int   `json:"page"`
	Limit      int   `json:"limit"`
	Total      int64 `json:"total"`
	TotalPages int64 `json:"total_pages"`
	HasNext    bool  `json:"has_next"`
	HasPrev    bool  `json:"has_prev"`
}

// Page is one page of items with its metadata
type Page[T any] struct {
	Data []T  `json:"data"`
	Meta Meta `json:"meta"`
}

// Parse clamps raw page and limit values. Unparseable or non-positive values
// fall back to the first page and the default limit; oversized ones are capped.
func Parse(rawPage, rawLimit string) Params {
	page := clamp(rawPage, 1, 1, MaxPage)
	limit := clamp(rawLimit, DefaultLimit, 1, MaxLimit)
	return Params{
		Page:   page,
		Limit:  limit,
		Offset: (page - 1) * limit,
	}
}

// FromQuery reads the page and limit query parameters
func FromQuery(c *fiber.Ctx) Params {
	return Parse(c.Query("page"), c.Query("limit"))
}

func clamp(raw string, fallback, lo, hi int) int {
	v, err := strconv.ParseInt(raw, 10, 64)
	if err != nil {
		if errors.Is(err, strconv.ErrRange) && v > 0 {
			return hi
		}
		return fallback
	}
	if v < int64(lo) {
		return fallback
	}
	if v > int64(hi) {
		return hi
	}
	return int(v)
}

// NewMeta computes page counts from the total number of items
func NewMeta(params Params, total int64) Meta {
	limit := int64(params.Limit)
	totalPages := total / limit
	if total%limit > 0 {
		totalPages++
	}

	return Meta{
		Page:       params.Page,
		Limit:      params.Limit,
		Total:      total,
		TotalPages: totalPages,
		HasNext:    int64(params.Page) < totalPages,
		HasPrev:    params.Page > 1,
	}
}

// NewPage wraps items with their metadata. A nil slice is returned as empty.
func NewPage[T any](items []T, params Params, total int64) Page[T] {
	if items == nil {
		items = []T{}
	}
	return Page[T]{Data: items, Meta: NewMeta(params, total)}
}
