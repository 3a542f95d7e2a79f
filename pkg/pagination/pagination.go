// Package pagination provides page/offset helpers and a generic paged result.
package pagination

const (
	defaultPerPage = 20
	maxPerPage     = 100
)

// Pagination holds normalized paging parameters.
type Pagination struct {
	Page    int
	PerPage int
}

// New clamps page and perPage to sane bounds. A perPage of zero or less
// falls back to the default; anything above the cap is reduced to it.
func New(page, perPage int) Pagination {
	if page < 1 {
		page = 1
	}
	if perPage < 1 {
		perPage = defaultPerPage
	}
	if perPage > maxPerPage {
		perPage = maxPerPage
	}
	return Pagination{Page: page, PerPage: perPage}
}

// Offset returns the row offset for the current page.
func (p Pagination) Offset() int {
	return (p.Page - 1) * p.PerPage
}

// Limit returns the row limit for the current page.
func (p Pagination) Limit() int {
	return p.PerPage
}

// Result is a page of items together with the total count across all pages.
type Result[T any] struct {
	Data       []T   `json:"data"`
	Total      int64 `json:"total"`
	Page       int   `json:"page"`
	PerPage    int   `json:"per_page"`
	TotalPages int   `json:"total_pages"`
}

// NewResult wraps a page of data. A nil slice becomes an empty one so the
// JSON encoding is always an array.
func NewResult[T any](data []T, total int64, p Pagination) Result[T] {
	if data == nil {
		data = make([]T, 0)
	}

	totalPages := int(total) / p.PerPage
	if int(total)%p.PerPage > 0 {
		totalPages++
	}

	return Result[T]{
		Data:       data,
		Total:      total,
		Page:       p.Page,
		PerPage:    p.PerPage,
		TotalPages: totalPages,
	}
}
