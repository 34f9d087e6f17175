// Package view derives the filtered, sorted and paged category list shown on
// the categories page from raw backend data and a filter configuration.
package view

import "strings"

const (
	// PageSize is the fixed number of categories per page.
	PageSize = 10
	// FrequentThreshold is the usage count from which a category counts as frequent.
	FrequentThreshold = 10
)

type (
	TypeFilter   string
	UsageFilter  string
	OriginFilter string
	SortOrder    string
)

const (
	TypeAll     TypeFilter = "all"
	TypeIncome  TypeFilter = "INCOME"
	TypeExpense TypeFilter = "EXPENSE"
)

const (
	UsageAll      UsageFilter = "all"
	UsageActive   UsageFilter = "active"
	UsageUnused   UsageFilter = "unused"
	UsageFrequent UsageFilter = "frequent"
)

const (
	OriginAll     OriginFilter = "all"
	OriginDefault OriginFilter = "default"
	OriginCustom  OriginFilter = "custom"
)

const (
	SortNewest   SortOrder = "newest"
	SortOldest   SortOrder = "oldest"
	SortName     SortOrder = "name"
	SortNameDesc SortOrder = "name_desc"
	SortUsage    SortOrder = "usage"
	SortType     SortOrder = "type"
)

// Filter is the page's filter configuration. ShowArchived selects the archive
// partition and is independent of every other field.
type Filter struct {
	Type         TypeFilter   `json:"type"`
	Usage        UsageFilter  `json:"usage"`
	Origin       OriginFilter `json:"origin"`
	Search       string       `json:"search"`
	Sort         SortOrder    `json:"sort"`
	ShowArchived bool         `json:"showArchived"`
}

// DefaultFilter returns the configuration of a freshly opened page.
func DefaultFilter() Filter {
	return Filter{
		Type:   TypeAll,
		Usage:  UsageAll,
		Origin: OriginAll,
		Sort:   SortNewest,
	}
}

// Cleared resets every field to its default except ShowArchived.
func (f Filter) Cleared() Filter {
	c := DefaultFilter()
	c.ShowArchived = f.ShowArchived
	return c
}

// ParseTypeFilter accepts "all", "income" or "expense" in any case.
func ParseTypeFilter(s string) (TypeFilter, bool) {
	switch t := TypeFilter(strings.ToUpper(strings.TrimSpace(s))); t {
	case TypeIncome, TypeExpense:
		return t, true
	case "ALL", "":
		return TypeAll, true
	}
	return "", false
}

func ParseUsageFilter(s string) (UsageFilter, bool) {
	switch u := UsageFilter(strings.ToLower(strings.TrimSpace(s))); u {
	case UsageAll, UsageActive, UsageUnused, UsageFrequent:
		return u, true
	case "":
		return UsageAll, true
	}
	return "", false
}

func ParseOriginFilter(s string) (OriginFilter, bool) {
	switch o := OriginFilter(strings.ToLower(strings.TrimSpace(s))); o {
	case OriginAll, OriginDefault, OriginCustom:
		return o, true
	case "":
		return OriginAll, true
	}
	return "", false
}

// ParseSortOrder never fails: unknown values sort newest first.
func ParseSortOrder(s string) SortOrder {
	switch o := SortOrder(strings.ToLower(strings.TrimSpace(s))); o {
	case SortOldest, SortName, SortNameDesc, SortUsage, SortType:
		return o
	}
	return SortNewest
}
