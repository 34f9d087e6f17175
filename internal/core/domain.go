package core

import (
	"strings"
	"time"
)

const (
	Income  CategoryType = "INCOME"
	Expense CategoryType = "EXPENSE"
)

const (
	NotificationInfo    NotificationType = "info"
	NotificationWarning NotificationType = "warning"
	NotificationSuccess NotificationType = "success"
	NotificationError   NotificationType = "error"
)

// NotificationRetention is the age at which a notification stops being visible.
const NotificationRetention = 24 * time.Hour

// MaxCategoryNameLength bounds category names accepted from user input.
const MaxCategoryNameLength = 50

type (
	CategoryType string

	NotificationType string

	// Category is a snapshot of a backend-owned category.
	Category struct {
		ID        int64        `json:"id"`
		Name      string       `json:"name"`
		Type      CategoryType `json:"type"`
		Color     string       `json:"color"`
		IsDefault bool         `json:"isDefault"`
		IsDeleted bool         `json:"isDeleted"`
		CreatedAt time.Time    `json:"createdAt"`
	}

	// CategoryInput carries user-entered fields for create and update.
	CategoryInput struct {
		Name  string       `json:"name"`
		Type  CategoryType `json:"type"`
		Color string       `json:"color"`
	}

	// Transaction is read only to count category usage.
	Transaction struct {
		ID         int64
		CategoryID int64
		Date       time.Time
	}

	// UsageCounts maps a category id to the number of transactions referencing it.
	UsageCounts map[int64]int

	Notification struct {
		ID        string           `json:"id"`
		Title     string           `json:"title"`
		Message   string           `json:"message"`
		Type      NotificationType `json:"type"`
		Timestamp time.Time        `json:"timestamp"`
		IsRead    bool             `json:"isRead"`
	}
)

// ParseCategoryType accepts INCOME/EXPENSE in any letter case.
func ParseCategoryType(s string) (CategoryType, error) {
	t := CategoryType(strings.ToUpper(strings.TrimSpace(s)))
	if !t.Valid() {
		return "", NewValidationError("type", "category type must be INCOME or EXPENSE")
	}
	return t, nil
}

func (t CategoryType) Valid() bool {
	return t == Income || t == Expense
}

// Deletable reports whether the category may be archived. Default categories never are.
func (c Category) Deletable() bool {
	return !c.IsDefault
}

// Validate checks the input fields without consulting existing categories.
func (in CategoryInput) Validate() error {
	name := strings.TrimSpace(in.Name)
	if name == "" {
		return NewValidationError("name", "category name is required")
	}
	if len([]rune(name)) > MaxCategoryNameLength {
		return NewValidationError("name", "category name is too long (max 50 characters)")
	}
	if !in.Type.Valid() {
		return NewValidationError("type", "category type must be INCOME or EXPENSE")
	}
	if in.Color != "" && !isHexColor(in.Color) {
		return NewValidationError("color", "color must look like #RRGGBB")
	}
	return nil
}

func isHexColor(s string) bool {
	if len(s) != 7 || s[0] != '#' {
		return false
	}
	for _, r := range s[1:] {
		switch {
		case r >= '0' && r <= '9', r >= 'a' && r <= 'f', r >= 'A' && r <= 'F':
		default:
			return false
		}
	}
	return true
}

// CountUsage tallies transactions per category id.
func CountUsage(txs []Transaction) UsageCounts {
	counts := make(UsageCounts, len(txs))
	for _, tx := range txs {
		if tx.CategoryID == 0 {
			continue
		}
		counts[tx.CategoryID]++
	}
	return counts
}

// Of returns the usage for id, zero when unknown. Safe on a nil map.
func (u UsageCounts) Of(id int64) int {
	return u[id]
}

// Age returns how old the notification is at now.
func (n Notification) Age(now time.Time) time.Duration {
	return now.Sub(n.Timestamp)
}

// Expired reports whether the notification reached the retention boundary.
func (n Notification) Expired(now time.Time) bool {
	return n.Age(now) >= NotificationRetention
}
