package item

import "math"

// Page size defaults.
const (
	DefaultPage  = 1
	DefaultLimit = 20
)

// Pagination describes one page of a list.
type Pagination struct {
	Page       int `json:"page"`
	Limit      int `json:"limit"`
	Total      int `json:"total"`
	TotalPages int `json:"totalPages"`
}

// NewPagination computes TotalPages as ceil(total/limit).
func NewPagination(page, limit, total int) Pagination {
	pages := 0
	if limit > 0 {
		pages = total / limit
		if total%limit != 0 {
			pages++
		}
	}
	return Pagination{Page: page, Limit: limit, Total: total, TotalPages: pages}
}

// ListQuery is a list request. Non-positive Page and Limit take the defaults.
type ListQuery struct {
	Page    int
	Limit   int
	OwnerID string
}

func (q ListQuery) normalized() ListQuery {
	if q.Page <= 0 {
		q.Page = DefaultPage
	}
	if q.Limit <= 0 {
		q.Limit = DefaultLimit
	}
	return q
}

// Offset returns the number of rows before the page. It is only meaningful
// when OffsetOverflows is false.
func (q ListQuery) Offset() int {
	return (q.Page - 1) * q.Limit
}

// OffsetOverflows reports whether the page starts beyond the largest int
// offset. Such a page is always empty.
func (q ListQuery) OffsetOverflows() bool {
	return q.Page-1 > math.MaxInt/q.Limit
}

// ListResult is one page of items.
type ListResult struct {
	Items      []Item     `json:"items"`
	Pagination Pagination `json:"pagination"`
}
