package core

import (
	"errors"
	"fmt"
	"strings"
	"testing"
	"time"
)

func TestCategoryInputValidate(t *testing.T) {
	good := CategoryInput{Name: "Храна", Type: Expense, Color: "#aa00FF"}
	if err := good.Validate(); err != nil {
		t.Fatalf("expected ok, got %v", err)
	}

	bads := []CategoryInput{
		{Name: "   ", Type: Expense},
		{Name: strings.Repeat("я", 51), Type: Expense},
		{Name: "Rent", Type: "SAVINGS"},
		{Name: "Rent", Type: Income, Color: "red"},
		{Name: "Rent", Type: Income, Color: "#12345G"},
	}
	for i, in := range bads {
		err := in.Validate()
		if err == nil {
			t.Fatalf("case %d expected error", i)
		}
		if !IsValidationError(err) {
			t.Fatalf("case %d expected validation error, got %T", i, err)
		}
	}
}

func TestParseCategoryType(t *testing.T) {
	for _, in := range []string{"income", " INCOME ", "Income"} {
		got, err := ParseCategoryType(in)
		if err != nil || got != Income {
			t.Fatalf("ParseCategoryType(%q) = %q, %v", in, got, err)
		}
	}
	if _, err := ParseCategoryType("other"); err == nil {
		t.Fatal("expected error for unknown type")
	}
}

func TestCategoryDeletable(t *testing.T) {
	if (Category{IsDefault: true}).Deletable() {
		t.Fatal("default category must not be deletable")
	}
	if !(Category{}).Deletable() {
		t.Fatal("custom category must be deletable")
	}
}

func TestCountUsage(t *testing.T) {
	counts := CountUsage([]Transaction{
		{ID: 1, CategoryID: 7},
		{ID: 2, CategoryID: 7},
		{ID: 3, CategoryID: 9},
		{ID: 4},
	})
	if counts.Of(7) != 2 || counts.Of(9) != 1 || counts.Of(0) != 0 {
		t.Fatalf("unexpected counts: %v", counts)
	}
	var nilCounts UsageCounts
	if nilCounts.Of(1) != 0 {
		t.Fatal("nil counts must read as zero")
	}
}

func TestNotificationExpired(t *testing.T) {
	now := time.Date(2025, 3, 1, 12, 0, 0, 0, time.UTC)
	cases := []struct {
		age  time.Duration
		want bool
	}{
		{0, false},
		{23*time.Hour + 59*time.Minute, false},
		{24 * time.Hour, true},
		{25 * time.Hour, true},
	}
	for _, tc := range cases {
		n := Notification{Timestamp: now.Add(-tc.age)}
		if got := n.Expired(now); got != tc.want {
			t.Errorf("age %v: Expired() = %v, want %v", tc.age, got, tc.want)
		}
	}
}

func TestDescribe(t *testing.T) {
	cases := []struct {
		err      error
		severity NotificationType
		contains string
	}{
		{NewValidationError("name", "category name is required"), NotificationError, "required"},
		{fmt.Errorf("list categories: %w", ErrNetwork), NotificationError, "connection"},
		{fmt.Errorf("get: %w", ErrNotFound), NotificationWarning, "no longer exists"},
		{ErrConflict, NotificationWarning, "already changed"},
		{errors.New("boom"), NotificationError, "went wrong"},
	}
	for i, tc := range cases {
		msg, sev := Describe(tc.err)
		if sev != tc.severity || !strings.Contains(msg, tc.contains) {
			t.Errorf("case %d: got (%q, %q)", i, msg, sev)
		}
	}
}
