package repository

// Pagination is a 1-based page request.
type Pagination struct {
	Page     int
	PageSize int
}

// Normalize clamps the request to sane bounds.
func (p Pagination) Normalize(defaultSize, maxSize int) Pagination {
	if p.Page < 1 {
		p.Page = 1
	}
	if p.PageSize < 1 {
		p.PageSize = defaultSize
	}
	if maxSize > 0 && p.PageSize > maxSize {
		p.PageSize = maxSize
	}
	return p
}

func (p Pagination) Offset() int {
	return (p.Page - 1) * p.PageSize
}

// PageResult is the paginated list envelope.
type PageResult[T any] struct {
	Count      int64 `json:"count"`
	Page       int   `json:"page"`
	PageSize   int   `json:"page_size"`
	TotalPages int   `json:"total_pages"`
	Results    []T   `json:"results"`
}

func NewPageResult[T any](results []T, count int64, p Pagination) *PageResult[T] {
	if results == nil {
		results = []T{}
	}
	pages := 0
	if p.PageSize > 0 {
		pages = int((count + int64(p.PageSize) - 1) / int64(p.PageSize))
	}
	return &PageResult[T]{
		Count:      count,
		Page:       p.Page,
		PageSize:   p.PageSize,
		TotalPages: pages,
		Results:    results,
	}
}

// MapPage converts the results of a page, keeping its counters.
func MapPage[T, U any](page *PageResult[T], fn func(*T) U) *PageResult[U] {
	out := make([]U, 0, len(page.Results))
	for i := range page.Results {
		out = append(out, fn(&page.Results[i]))
	}
	return &PageResult[U]{
		Count:      page.Count,
		Page:       page.Page,
		PageSize:   page.PageSize,
		TotalPages: page.TotalPages,
		Results:    out,
	}
}
