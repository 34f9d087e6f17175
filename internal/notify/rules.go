package notify

import (
	"fmt"
	"strings"
	"time"

	"kasa/internal/core"
)

// FrequentUsage is the transaction count from which a category is reported as frequently used.
const FrequentUsage = 10

// imbalanceRatio is how many times one type may outnumber the other before it is reported.
const imbalanceRatio = 3

// maxListedNames bounds how many category names a message spells out.
const maxListedNames = 3

// Rule derives at most one notification from the current category data.
// Each rule has a stable id so regenerating it never duplicates it, and a
// fixed offset that places its timestamp in the past.
type Rule interface {
	ID() string
	Offset() time.Duration
	Evaluate(categories []core.Category, usage core.UsageCounts) (Draft, bool)
}

// Draft is the content of a derived notification before it is stamped.
type Draft struct {
	Title   string
	Message string
	Type    core.NotificationType
}

// UnusedCategoriesRule reports active categories with no transactions.
type UnusedCategoriesRule struct{}

func (UnusedCategoriesRule) ID() string { return "unused-categories" }

func (UnusedCategoriesRule) Offset() time.Duration { return 2 * time.Hour }

func (UnusedCategoriesRule) Evaluate(categories []core.Category, usage core.UsageCounts) (Draft, bool) {
	var unused []string
	for _, c := range active(categories) {
		if usage.Of(c.ID) == 0 {
			unused = append(unused, c.Name)
		}
	}
	if len(unused) == 0 {
		return Draft{}, false
	}
	return Draft{
		Title:   "Unused categories",
		Message: fmt.Sprintf("%s not used by any transaction: %s", countCategories(len(unused)), listNames(unused)),
		Type:    core.NotificationWarning,
	}, true
}

// FrequentCategoriesRule reports active categories used at least FrequentUsage times.
type FrequentCategoriesRule struct{}

func (FrequentCategoriesRule) ID() string { return "frequent-categories" }

func (FrequentCategoriesRule) Offset() time.Duration { return 4 * time.Hour }

func (FrequentCategoriesRule) Evaluate(categories []core.Category, usage core.UsageCounts) (Draft, bool) {
	var frequent []string
	for _, c := range active(categories) {
		if usage.Of(c.ID) >= FrequentUsage {
			frequent = append(frequent, c.Name)
		}
	}
	if len(frequent) == 0 {
		return Draft{}, false
	}
	return Draft{
		Title:   "Frequently used categories",
		Message: fmt.Sprintf("%s used %d or more times: %s", countCategories(len(frequent)), FrequentUsage, listNames(frequent)),
		Type:    core.NotificationSuccess,
	}, true
}

// CategoryImbalanceRule reports when one category type is missing while the
// other exists, or outnumbers the other more than threefold.
type CategoryImbalanceRule struct{}

func (CategoryImbalanceRule) ID() string { return "category-imbalance" }

func (CategoryImbalanceRule) Offset() time.Duration { return 6 * time.Hour }

func (CategoryImbalanceRule) Evaluate(categories []core.Category, _ core.UsageCounts) (Draft, bool) {
	var income, expense int
	for _, c := range active(categories) {
		switch c.Type {
		case core.Income:
			income++
		case core.Expense:
			expense++
		}
	}

	var msg string
	switch {
	case income == 0 && expense == 0:
		return Draft{}, false
	case income == 0:
		msg = "You have no income categories yet. Add one to track what comes in."
	case expense == 0:
		msg = "You have no expense categories yet. Add one to track what goes out."
	case expense > income*imbalanceRatio || income > expense*imbalanceRatio:
		msg = fmt.Sprintf("You have %d expense and %d income categories. Consider balancing them.", expense, income)
	default:
		return Draft{}, false
	}
	return Draft{Title: "Category balance", Message: msg, Type: core.NotificationInfo}, true
}

// rules is the registry of derived-notification strategies, in evaluation order.
var rules = []Rule{
	UnusedCategoriesRule{},
	FrequentCategoriesRule{},
	CategoryImbalanceRule{},
}

// DefaultRules returns a copy of the built-in rule set.
func DefaultRules() []Rule {
	return append([]Rule(nil), rules...)
}

func active(categories []core.Category) []core.Category {
	out := make([]core.Category, 0, len(categories))
	for _, c := range categories {
		if !c.IsDeleted {
			out = append(out, c)
		}
	}
	return out
}

func countCategories(n int) string {
	if n == 1 {
		return "1 category is"
	}
	return fmt.Sprintf("%d categories are", n)
}

func listNames(names []string) string {
	if len(names) <= maxListedNames {
		return strings.Join(names, ", ")
	}
	return fmt.Sprintf("%s and %d more", strings.Join(names[:maxListedNames], ", "), len(names)-maxListedNames)
}
