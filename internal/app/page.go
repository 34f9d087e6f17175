package app

import (
	"kasa/internal/core"
	"kasa/internal/view"
)

// Page is the rendered state of the category list.
type Page struct {
	Categories []core.Category `json:"categories"`
	Usage      map[int64]int   `json:"usage"`
	Pagination view.Pagination `json:"pagination"`
	Filter     view.Filter     `json:"filter"`
}

// Page returns the current page of categories with their usage counts.
func (a *App) Page() Page {
	a.mu.Lock()
	defer a.mu.Unlock()
	return a.pageLocked()
}

func (a *App) pageLocked() Page {
	cats := append([]core.Category{}, a.view.CurrentPage()...)
	usage := make(map[int64]int, len(cats))
	for _, c := range cats {
		usage[c.ID] = a.usage.Of(c.ID)
	}
	return Page{
		Categories: cats,
		Usage:      usage,
		Pagination: a.view.Pagination(),
		Filter:     a.view.Filter(),
	}
}

func (a *App) Filter() view.Filter {
	a.mu.Lock()
	defer a.mu.Unlock()
	return a.view.Filter()
}

// ApplyFilter replaces the filter, keeping the archive toggle, and returns to page 1.
func (a *App) ApplyFilter(f view.Filter) Page {
	return a.update(func(s *view.State) { s.Apply(f) })
}

// ClearFilter resets the filter except the archive toggle.
func (a *App) ClearFilter() Page {
	return a.update(func(s *view.State) { s.Clear() })
}

// ShowArchived switches between the active and the archived list.
func (a *App) ShowArchived(archived bool) Page {
	return a.update(func(s *view.State) { s.SetShowArchived(archived) })
}

// GoToPage moves to page p and reports whether p was in range.
func (a *App) GoToPage(p int) (Page, bool) {
	a.mu.Lock()
	defer a.mu.Unlock()
	ok := a.view.GoToPage(p)
	return a.pageLocked(), ok
}

func (a *App) update(change func(s *view.State)) Page {
	a.mu.Lock()
	defer a.mu.Unlock()
	change(a.view)
	return a.pageLocked()
}
