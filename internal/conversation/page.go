package conversation

const (
	DefaultPerPage = 20
	MaxPerPage     = 100
)

// Page selects a slice of a listing. Page numbers start at 1.
type Page struct {
	PerPage int `json:"per_page"`
	Page    int `json:"page"`
}

// Normalize applies defaults and caps.
func (p Page) Normalize() Page {
	if p.PerPage <= 0 {
		p.PerPage = DefaultPerPage
	}
	if p.PerPage > MaxPerPage {
		p.PerPage = MaxPerPage
	}
	if p.Page <= 0 {
		p.Page = 1
	}
	return p
}

// Offset is the number of rows before this page.
func (p Page) Offset() int {
	return (p.Page - 1) * p.PerPage
}

// Paged is one page of results with totals.
type Paged[T any] struct {
	Items   []T `json:"items"`
	Total   int `json:"total"`
	Page    int `json:"page"`
	PerPage int `json:"per_page"`
	Pages   int `json:"pages"`
}

func newPaged[T any](items []T, total int, p Page) *Paged[T] {
	pages := (total + p.PerPage - 1) / p.PerPage
	return &Paged[T]{Items: items, Total: total, Page: p.Page, PerPage: p.PerPage, Pages: pages}
}
