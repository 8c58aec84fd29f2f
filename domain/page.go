package domain

// Page is the pagination envelope shared by list endpoints.
type Page[T any] struct {
	Items   []T   `json:"items"`
	Page    int   `json:"page"`
	PerPage int   `json:"per_page"`
	Total   int64 `json:"total"`
	Pages   int   `json:"pages"`
}

// NewPage computes the page count; Items is never nil so it encodes as [].
func NewPage[T any](items []T, page, perPage int, total int64) Page[T] {
	if items == nil {
		items = []T{}
	}
	pages := 0
	if perPage > 0 {
		pages = int((total + int64(perPage) - 1) / int64(perPage))
	}
	return Page[T]{Items: items, Page: page, PerPage: perPage, Total: total, Pages: pages}
}
