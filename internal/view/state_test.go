package view

import (
	"fmt"
	"testing"

	"kasa/internal/core"
)

func manyCategories(n int) []core.Category {
	out := make([]core.Category, n)
	for i := range out {
		out[i] = cat(int64(i+1), fmt.Sprintf("Category %02d", i+1), core.Expense)
	}
	return out
}

func TestPaginateScenario(t *testing.T) {
	items := manyCategories(25)

	page, p := Paginate(items, 3)
	if p.TotalPages != 3 || p.CurrentPage != 3 || len(page) != 5 {
		t.Fatalf("page 3: %+v len=%d", p, len(page))
	}

	_, p = Paginate(items, 4)
	if p.CurrentPage != 1 {
		t.Fatalf("page past end should reset to 1, got %d", p.CurrentPage)
	}

	page, p = Paginate(nil, 2)
	if p.TotalPages != 0 || p.CurrentPage != 2 || len(page) != 0 {
		t.Fatalf("empty: %+v len=%d", p, len(page))
	}
}

func TestStateGoToPage(t *testing.T) {
	s := NewState(nil)
	s.SetData(manyCategories(25), nil)

	if !s.GoToPage(3) {
		t.Fatal("GoToPage(3) rejected")
	}
	if got := len(s.CurrentPage()); got != 5 {
		t.Fatalf("page 3 has %d items, want 5", got)
	}

	before := s.Pagination()
	for _, p := range []int{0, -1, 4} {
		if s.GoToPage(p) {
			t.Fatalf("GoToPage(%d) accepted", p)
		}
		if s.Pagination() != before {
			t.Fatalf("GoToPage(%d) changed state: %+v", p, s.Pagination())
		}
	}
}

func TestStateFilterChangesResetPage(t *testing.T) {
	changes := map[string]func(s *State){
		"type":     func(s *State) { s.SetType(TypeExpense) },
		"usage":    func(s *State) { s.SetUsage(UsageUnused) },
		"origin":   func(s *State) { s.SetOrigin(OriginCustom) },
		"search":   func(s *State) { s.SetSearch("category") },
		"sort":     func(s *State) { s.SetSort(SortName) },
		"apply":    func(s *State) { s.Apply(DefaultFilter()) },
		"clear":    func(s *State) { s.Clear() },
		"archived": func(s *State) { s.SetShowArchived(false) },
	}
	for name, change := range changes {
		t.Run(name, func(t *testing.T) {
			s := NewState(nil)
			s.SetData(manyCategories(25), nil)
			s.GoToPage(2)
			change(s)
			if got := s.Pagination().CurrentPage; got != 1 {
				t.Fatalf("current page = %d, want 1", got)
			}
		})
	}
}

func TestStateShowArchivedKeepsOtherFields(t *testing.T) {
	s := NewState(nil)
	s.SetType(TypeIncome)
	s.SetSearch("sal")
	s.SetSort(SortUsage)

	s.SetShowArchived(true)
	f := s.Filter()
	if !f.ShowArchived || f.Type != TypeIncome || f.Search != "sal" || f.Sort != SortUsage {
		t.Fatalf("unexpected filter after archive toggle: %+v", f)
	}
}

func TestStateClearPreservesArchived(t *testing.T) {
	s := NewState(nil)
	s.SetShowArchived(true)
	s.SetType(TypeExpense)
	s.SetUsage(UsageFrequent)
	s.SetOrigin(OriginDefault)
	s.SetSearch("x")
	s.SetSort(SortName)

	s.Clear()
	want := DefaultFilter()
	want.ShowArchived = true
	if s.Filter() != want {
		t.Fatalf("Clear() = %+v, want %+v", s.Filter(), want)
	}
}

func TestStateApplyKeepsArchived(t *testing.T) {
	s := NewState(nil)
	s.SetShowArchived(true)
	next := DefaultFilter()
	next.Type = TypeIncome
	next.ShowArchived = false
	s.Apply(next)
	if !s.Filter().ShowArchived || s.Filter().Type != TypeIncome {
		t.Fatalf("Apply() = %+v", s.Filter())
	}
}

func TestStateShrinkingDataClampsPage(t *testing.T) {
	s := NewState(nil)
	s.SetData(manyCategories(25), nil)
	s.GoToPage(3)

	s.SetData(manyCategories(12), nil)
	if p := s.Pagination(); p.CurrentPage != 1 || p.TotalPages != 2 {
		t.Fatalf("after shrink: %+v", p)
	}

	s.GoToPage(2)
	s.SetData(nil, nil)
	if p := s.Pagination(); p.TotalPages != 0 || len(s.CurrentPage()) != 0 || p.CurrentPage != 2 {
		t.Fatalf("after empty: %+v", p)
	}
}
