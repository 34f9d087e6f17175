package view

import "kasa/internal/core"

// State holds the page's category data, filter and current page, and keeps
// the derived page up to date. State is not safe for concurrent use; the
// owner serializes access.
type State struct {
	engine *Engine

	categories []core.Category
	usage      core.UsageCounts
	filter     Filter
	page       int

	filtered   []core.Category
	current    []core.Category
	pagination Pagination
}

func NewState(engine *Engine) *State {
	if engine == nil {
		engine = defaultEngine
	}
	s := &State{engine: engine, filter: DefaultFilter(), page: 1}
	s.recompute()
	return s
}

// SetData replaces the category snapshot and usage counts. The current page is
// kept unless the filtered set shrank below it.
func (s *State) SetData(categories []core.Category, usage core.UsageCounts) {
	s.categories = categories
	s.usage = usage
	s.recompute()
}

func (s *State) Categories() []core.Category { return s.categories }

func (s *State) Usage() core.UsageCounts { return s.usage }

func (s *State) Filter() Filter { return s.filter }

func (s *State) SetType(t TypeFilter) { s.change(func(f *Filter) { f.Type = t }) }

func (s *State) SetUsage(u UsageFilter) { s.change(func(f *Filter) { f.Usage = u }) }

func (s *State) SetOrigin(o OriginFilter) { s.change(func(f *Filter) { f.Origin = o }) }

func (s *State) SetSearch(q string) { s.change(func(f *Filter) { f.Search = q }) }

func (s *State) SetSort(o SortOrder) { s.change(func(f *Filter) { f.Sort = o }) }

// SetShowArchived switches partitions without touching the other fields.
func (s *State) SetShowArchived(archived bool) {
	s.change(func(f *Filter) { f.ShowArchived = archived })
}

// Apply replaces every filter field except ShowArchived.
func (s *State) Apply(next Filter) {
	s.change(func(f *Filter) {
		archived := f.ShowArchived
		*f = next
		f.ShowArchived = archived
	})
}

// Clear resets the filter to defaults, keeping ShowArchived.
func (s *State) Clear() {
	s.change(func(f *Filter) { *f = f.Cleared() })
}

// GoToPage moves to page p. It reports false and leaves the state untouched
// when p is outside [1, TotalPages].
func (s *State) GoToPage(p int) bool {
	if p < 1 || p > s.pagination.TotalPages {
		return false
	}
	s.page = p
	s.recompute()
	return true
}

// CurrentPage returns the categories on the current page.
func (s *State) CurrentPage() []core.Category { return s.current }

func (s *State) Pagination() Pagination { return s.pagination }

// Filtered returns every category that passed the filters, sorted.
func (s *State) Filtered() []core.Category { return s.filtered }

func (s *State) change(mutate func(f *Filter)) {
	mutate(&s.filter)
	s.page = 1
	s.recompute()
}

func (s *State) recompute() {
	s.filtered = s.engine.Apply(s.categories, s.usage, s.filter)
	s.current, s.pagination = Paginate(s.filtered, s.page)
	s.page = s.pagination.CurrentPage
}
