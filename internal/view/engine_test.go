package view

import (
	"fmt"
	"testing"
	"time"

	"golang.org/x/text/language"

	"kasa/internal/cache"
	"kasa/internal/core"
)

var base = time.Date(2025, 1, 1, 0, 0, 0, 0, time.UTC)

func cat(id int64, name string, typ core.CategoryType) core.Category {
	return core.Category{ID: id, Name: name, Type: typ, CreatedAt: base.Add(time.Duration(id) * time.Hour)}
}

func names(cs []core.Category) []string {
	out := make([]string, len(cs))
	for i, c := range cs {
		out[i] = c.Name
	}
	return out
}

func equalNames(t *testing.T, got []core.Category, want ...string) {
	t.Helper()
	g := names(got)
	if fmt.Sprint(g) != fmt.Sprint(want) {
		t.Fatalf("got %v, want %v", g, want)
	}
}

func TestPartitionArchivedIsIdempotent(t *testing.T) {
	in := []core.Category{
		cat(1, "Rent", core.Expense),
		{ID: 2, Name: "Old", IsDeleted: true},
		cat(3, "Salary", core.Income),
	}
	for _, archived := range []bool{false, true} {
		once := PartitionArchived(in, archived)
		twice := PartitionArchived(once, archived)
		if fmt.Sprint(names(once)) != fmt.Sprint(names(twice)) {
			t.Fatalf("archived=%v: once=%v twice=%v", archived, names(once), names(twice))
		}
		for _, c := range once {
			if c.IsDeleted != archived {
				t.Fatalf("archived=%v: mixed partition contains %q", archived, c.Name)
			}
		}
	}
}

func TestApplyFilters(t *testing.T) {
	cats := []core.Category{
		cat(1, "Rent", core.Expense),
		cat(2, "Salary", core.Income),
		{ID: 3, Name: "Groceries", Type: core.Expense, IsDefault: true, CreatedAt: base.Add(3 * time.Hour)},
		{ID: 4, Name: "Gifts", Type: core.Income, IsDeleted: true, CreatedAt: base.Add(4 * time.Hour)},
		cat(5, "Fuel", core.Expense),
	}
	usage := core.UsageCounts{1: 3, 3: 12}

	tests := []struct {
		name string
		f    func(f *Filter)
		want []string
	}{
		{"defaults hide archived, newest first", func(f *Filter) {}, []string{"Fuel", "Groceries", "Salary", "Rent"}},
		{"archived only", func(f *Filter) { f.ShowArchived = true }, []string{"Gifts"}},
		{"type income", func(f *Filter) { f.Type = TypeIncome }, []string{"Salary"}},
		{"usage active", func(f *Filter) { f.Usage = UsageActive }, []string{"Groceries", "Rent"}},
		{"usage unused", func(f *Filter) { f.Usage = UsageUnused }, []string{"Fuel", "Salary"}},
		{"usage frequent", func(f *Filter) { f.Usage = UsageFrequent }, []string{"Groceries"}},
		{"origin default", func(f *Filter) { f.Origin = OriginDefault }, []string{"Groceries"}},
		{"origin custom", func(f *Filter) { f.Origin = OriginCustom }, []string{"Fuel", "Salary", "Rent"}},
		{"search", func(f *Filter) { f.Search = "  E " }, []string{"Fuel", "Groceries", "Rent"}},
		{"combined", func(f *Filter) { f.Type = TypeExpense; f.Usage = UsageActive; f.Origin = OriginCustom }, []string{"Rent"}},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			f := DefaultFilter()
			tt.f(&f)
			equalNames(t, defaultEngine.Apply(cats, usage, f), tt.want...)
		})
	}
}

func TestApplyDoesNotModifyInput(t *testing.T) {
	cats := []core.Category{cat(1, "B", core.Expense), cat(2, "A", core.Expense)}
	f := DefaultFilter()
	f.Sort = SortName
	_ = defaultEngine.Apply(cats, nil, f)
	equalNames(t, cats, "B", "A")
}

func TestSortOrders(t *testing.T) {
	cats := []core.Category{
		cat(1, "banana", core.Expense),
		cat(2, "Apple", core.Income),
		cat(3, "cherry", core.Expense),
		cat(4, "Date", core.Income),
	}
	usage := core.UsageCounts{1: 5, 2: 1, 3: 9, 4: 5}

	tests := []struct {
		order SortOrder
		want  []string
	}{
		{SortName, []string{"Apple", "banana", "cherry", "Date"}},
		{SortNameDesc, []string{"Date", "cherry", "banana", "Apple"}},
		{SortUsage, []string{"cherry", "banana", "Date", "Apple"}},
		{SortOldest, []string{"banana", "Apple", "cherry", "Date"}},
		{SortNewest, []string{"Date", "cherry", "Apple", "banana"}},
		{SortOrder("bogus"), []string{"Date", "cherry", "Apple", "banana"}},
		{SortType, []string{"Apple", "Date", "banana", "cherry"}},
	}
	for _, tt := range tests {
		t.Run(string(tt.order), func(t *testing.T) {
			out := append([]core.Category(nil), cats...)
			defaultEngine.Sort(out, usage, tt.order)
			equalNames(t, out, tt.want...)
		})
	}
}

func TestSortNameUsesCollation(t *testing.T) {
	cats := []core.Category{cat(1, "Øl", core.Expense), cat(2, "Zebra", core.Expense), cat(3, "Avocado", core.Expense)}
	e := NewEngine(language.Danish, nil)
	e.Sort(cats, nil, SortName)
	// Danish places Ø after Z.
	equalNames(t, cats, "Avocado", "Zebra", "Øl")
}

func TestMatches(t *testing.T) {
	tests := []struct {
		name, query string
		want        bool
	}{
		{"Храна", "Хран", true},
		{"Храна", "храна", true},
		{"Храна и пијалоци", "пиј хра", true},
		{"Храна и пијалоци", "месо", false},
		{"Public   Transport", "public transport", true},
		{"Public Transport", "trans pub", true},
		{"Public Transport", "trans car", false},
		{"Café", "café", true},
		{"Anything", "   ", true},
	}
	for _, tt := range tests {
		if got := Matches(tt.name, tt.query); got != tt.want {
			t.Errorf("Matches(%q, %q) = %v, want %v", tt.name, tt.query, got, tt.want)
		}
	}
}

func TestSearchCyrillicThroughPipeline(t *testing.T) {
	cats := []core.Category{cat(1, "Храна", core.Expense), cat(2, "Кирија", core.Expense)}
	f := DefaultFilter()
	f.Search = "Хран"
	e := NewEngine(language.Und, cache.NewLRUCache[string](16, time.Minute))
	equalNames(t, e.Apply(cats, nil, f), "Храна")
	// A second pass is served from the name cache and must agree.
	equalNames(t, e.Apply(cats, nil, f), "Храна")
}

func TestParseHelpers(t *testing.T) {
	if v, ok := ParseTypeFilter("income"); !ok || v != TypeIncome {
		t.Fatalf("ParseTypeFilter(income) = %q, %v", v, ok)
	}
	if v, ok := ParseTypeFilter(""); !ok || v != TypeAll {
		t.Fatalf("ParseTypeFilter(\"\") = %q, %v", v, ok)
	}
	if _, ok := ParseTypeFilter("savings"); ok {
		t.Fatal("expected unknown type to fail")
	}
	if _, ok := ParseUsageFilter("sometimes"); ok {
		t.Fatal("expected unknown usage to fail")
	}
	if v, ok := ParseOriginFilter("Custom"); !ok || v != OriginCustom {
		t.Fatalf("ParseOriginFilter(Custom) = %q, %v", v, ok)
	}
	if ParseSortOrder("NAME_DESC") != SortNameDesc || ParseSortOrder("?") != SortNewest {
		t.Fatal("unexpected sort parsing")
	}
}
