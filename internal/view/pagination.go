package view

import "kasa/internal/core"

// Pagination describes the page window over a filtered collection.
type Pagination struct {
	CurrentPage int `json:"currentPage"`
	PageSize    int `json:"pageSize"`
	TotalPages  int `json:"totalPages"`
	TotalItems  int `json:"totalItems"`
}

// Paginate returns the slice of items on currentPage. A page past the end is
// reset to 1; with no items the page number is left as given.
func Paginate(items []core.Category, currentPage int) ([]core.Category, Pagination) {
	if currentPage < 1 {
		currentPage = 1
	}
	p := Pagination{
		CurrentPage: currentPage,
		PageSize:    PageSize,
		TotalItems:  len(items),
		TotalPages:  (len(items) + PageSize - 1) / PageSize,
	}
	if p.TotalPages == 0 {
		return []core.Category{}, p
	}
	if p.CurrentPage > p.TotalPages {
		p.CurrentPage = 1
	}
	start := (p.CurrentPage - 1) * PageSize
	end := min(start+PageSize, len(items))
	return items[start:end], p
}
