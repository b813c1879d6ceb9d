package shared

// Listing page bounds. Out-of-range requests are clamped, never rejected.
const (
	DefaultPageSize = 20
	MaxPageSize     = 100
)

// ClampPage returns page and size forced into range: page at least 1, size in
// (0, MaxPageSize] with DefaultPageSize standing in for anything outside it.
func ClampPage(page, size int) (int, int) {
	if page < 1 {
		page = 1
	}
	if size < 1 || size > MaxPageSize {
		size = DefaultPageSize
	}
	return page, size
}

// Filter is the paging and ordering part of a ledger listing. OrderBy is only a
// request; repositories check it against their sortable columns.
type Filter struct {
	Page     int
	PageSize int
	OrderBy  string
	OrderDir string
}

// Clamp applies ClampPage to the filter in place.
func (f *Filter) Clamp() {
	f.Page, f.PageSize = ClampPage(f.Page, f.PageSize)
}

// Offset is the number of rows before the filter's page.
func (f Filter) Offset() int {
	if f.Page < 1 {
		return 0
	}
	return (f.Page - 1) * f.PageSize
}

// Paginated is one page of a listing plus the totals a client needs to page on.
type Paginated[T any] struct {
	Items      []T   `json:"items"`
	Total      int64 `json:"total"`
	Page       int   `json:"page"`
	PageSize   int   `json:"page_size"`
	TotalPages int   `json:"total_pages"`
}

// NewPaginated wraps items as page of a listing with total rows overall.
func NewPaginated[T any](items []T, total int64, page, pageSize int) Paginated[T] {
	if pageSize <= 0 {
		pageSize = DefaultPageSize
	}
	size := int64(pageSize)
	return Paginated[T]{
		Items:      items,
		Total:      total,
		Page:       page,
		PageSize:   pageSize,
		TotalPages: int((total + size - 1) / size),
	}
}
