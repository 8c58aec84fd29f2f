package service

const (
	defaultPerPage = 10
	maxPerPage     = 100
)

// PageRequest is a 1-based page selection.
type PageRequest struct {
	Page    int
	PerPage int
}

// Normalize clamps the request to page >= 1 and 1 <= per_page <= 100.
func (p PageRequest) Normalize() PageRequest {
	if p.Page < 1 {
		p.Page = 1
	}
	if p.PerPage < 1 {
		p.PerPage = defaultPerPage
	}
	if p.PerPage > maxPerPage {
		p.PerPage = maxPerPage
	}
	return p
}

func (p PageRequest) Offset() int {
	return (p.Page - 1) * p.PerPage
}
