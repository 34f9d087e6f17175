package view

import (
	"slices"
	"strings"

	"golang.org/x/text/collate"
	"golang.org/x/text/language"
	"golang.org/x/text/unicode/norm"

	"kasa/internal/cache"
	"kasa/internal/core"
)

// Engine applies the filter pipeline. It is safe for concurrent use.
type Engine struct {
	locale     language.Tag
	normalized cache.Cache[string]
}

// NewEngine returns an engine that compares names using the collation rules
// of locale. names memoizes normalized category names and may be nil.
func NewEngine(locale language.Tag, names cache.Cache[string]) *Engine {
	return &Engine{locale: locale, normalized: names}
}

var defaultEngine = NewEngine(language.Und, nil)

// ApplyView runs the whole pipeline with the default engine.
func ApplyView(categories []core.Category, usage core.UsageCounts, f Filter, currentPage int) ([]core.Category, Pagination) {
	return defaultEngine.ApplyView(categories, usage, f, currentPage)
}

// ApplyView filters, sorts and pages categories.
func (e *Engine) ApplyView(categories []core.Category, usage core.UsageCounts, f Filter, currentPage int) ([]core.Category, Pagination) {
	return Paginate(e.Apply(categories, usage, f), currentPage)
}

// Apply runs the filter stages followed by the sort. The input is not modified.
func (e *Engine) Apply(categories []core.Category, usage core.UsageCounts, f Filter) []core.Category {
	out := PartitionArchived(categories, f.ShowArchived)
	out = filterType(out, f.Type)
	out = filterUsage(out, usage, f.Usage)
	out = filterOrigin(out, f.Origin)
	out = e.filterSearch(out, f.Search)
	e.Sort(out, usage, f.Sort)
	return out
}

// PartitionArchived keeps only archived categories when archived is true and
// only live ones otherwise. The result never mixes the two.
func PartitionArchived(categories []core.Category, archived bool) []core.Category {
	out := make([]core.Category, 0, len(categories))
	for _, c := range categories {
		if c.IsDeleted == archived {
			out = append(out, c)
		}
	}
	return out
}

func filterType(in []core.Category, t TypeFilter) []core.Category {
	if t == TypeAll || t == "" {
		return in
	}
	return slices.DeleteFunc(in, func(c core.Category) bool {
		return string(c.Type) != string(t)
	})
}

func filterUsage(in []core.Category, usage core.UsageCounts, u UsageFilter) []core.Category {
	var keep func(n int) bool
	switch u {
	case UsageActive:
		keep = func(n int) bool { return n > 0 }
	case UsageUnused:
		keep = func(n int) bool { return n == 0 }
	case UsageFrequent:
		keep = func(n int) bool { return n >= FrequentThreshold }
	default:
		return in
	}
	return slices.DeleteFunc(in, func(c core.Category) bool {
		return !keep(usage.Of(c.ID))
	})
}

func filterOrigin(in []core.Category, o OriginFilter) []core.Category {
	switch o {
	case OriginDefault:
		return slices.DeleteFunc(in, func(c core.Category) bool { return !c.IsDefault })
	case OriginCustom:
		return slices.DeleteFunc(in, func(c core.Category) bool { return c.IsDefault })
	}
	return in
}

func (e *Engine) filterSearch(in []core.Category, query string) []core.Category {
	q := Normalize(query)
	if q == "" {
		return in
	}
	return slices.DeleteFunc(in, func(c core.Category) bool {
		return !matchNormalized(e.normalizedName(c.Name), q)
	})
}

func (e *Engine) normalizedName(name string) string {
	if e.normalized == nil {
		return Normalize(name)
	}
	if n, ok := e.normalized.Get(name); ok {
		return n
	}
	n := Normalize(name)
	e.normalized.Set(name, n)
	return n
}

// Normalize lowercases s, composes it to NFC and collapses runs of whitespace.
func Normalize(s string) string {
	return strings.Join(strings.Fields(strings.ToLower(norm.NFC.String(s))), " ")
}

// Matches reports whether a category name matches a search query: either the
// whole normalized query occurs in the name, or every query word occurs inside
// some word of the name.
func Matches(name, query string) bool {
	q := Normalize(query)
	if q == "" {
		return true
	}
	return matchNormalized(Normalize(name), q)
}

func matchNormalized(name, query string) bool {
	if strings.Contains(name, query) {
		return true
	}
	words := strings.Fields(name)
	for _, token := range strings.Fields(query) {
		if !slices.ContainsFunc(words, func(w string) bool { return strings.Contains(w, token) }) {
			return false
		}
	}
	return true
}

// Sort orders categories in place. Ties keep their input order.
func (e *Engine) Sort(categories []core.Category, usage core.UsageCounts, order SortOrder) {
	// Collators keep internal buffers, so each call gets its own.
	col := collate.New(e.locale)
	byName := func(a, b core.Category) int { return col.CompareString(a.Name, b.Name) }

	var cmp func(a, b core.Category) int
	switch order {
	case SortName:
		cmp = byName
	case SortNameDesc:
		cmp = func(a, b core.Category) int { return byName(b, a) }
	case SortUsage:
		cmp = func(a, b core.Category) int { return usage.Of(b.ID) - usage.Of(a.ID) }
	case SortOldest:
		cmp = func(a, b core.Category) int { return a.CreatedAt.Compare(b.CreatedAt) }
	case SortType:
		cmp = func(a, b core.Category) int {
			if ra, rb := typeRank(a.Type), typeRank(b.Type); ra != rb {
				return ra - rb
			}
			return byName(a, b)
		}
	default:
		cmp = func(a, b core.Category) int { return b.CreatedAt.Compare(a.CreatedAt) }
	}
	slices.SortStableFunc(categories, cmp)
}

func typeRank(t core.CategoryType) int {
	switch t {
	case core.Income:
		return 0
	case core.Expense:
		return 1
	}
	return 2
}
