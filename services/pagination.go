package services

import "math"

const maxPageSize = 100

// Pagination describes one page of a list response
type Pagination struct {
	CurrentPage  int   `json:"currentPage"`
	TotalPages   int   `json:"totalPages"`
	TotalItems   int64 `json:"totalItems"`
	ItemsPerPage int   `json:"itemsPerPage"`
}

// PageRequest carries the caller's page and limit, normalized against a default
type PageRequest struct {
	Page  int
	Limit int
}

// Normalize clamps page to >= 1 and limit to 1..100, using def when unset
func (p PageRequest) Normalize(def int) PageRequest {
	if p.Page < 1 {
		p.Page = 1
	}
	if p.Limit < 1 {
		p.Limit = def
	}
	if p.Limit > maxPageSize {
		p.Limit = maxPageSize
	}
	return p
}

// Offset returns the row offset for the page
func (p PageRequest) Offset() int {
	return (p.Page - 1) * p.Limit
}

func newPagination(p PageRequest, total int64) Pagination {
	return Pagination{
		CurrentPage:  p.Page,
		TotalPages:   int(math.Ceil(float64(total) / float64(p.Limit))),
		TotalItems:   total,
		ItemsPerPage: p.Limit,
	}
}
