package memory

import (
	"context"
	"errors"
	"os"
	"path/filepath"
	"testing"

	"kasa/internal/core"
)

func TestNewFromFilesDefaults(t *testing.T) {
	s, err := NewFromFiles(t.TempDir())
	if err != nil {
		t.Fatal(err)
	}
	cats, _ := s.ListCategories(context.Background(), true)
	if len(cats) == 0 {
		t.Fatal("expected default categories when files are missing")
	}
	for _, c := range cats {
		if !c.IsDefault || c.Deletable() {
			t.Fatalf("default seed %q should not be deletable", c.Name)
		}
	}
}

func TestNewFromFilesSeeds(t *testing.T) {
	dir := t.TempDir()
	mustWrite := func(name, content string) {
		t.Helper()
		if err := os.WriteFile(filepath.Join(dir, name), []byte(content), 0o644); err != nil {
			t.Fatalf("write %s: %v", name, err)
		}
	}
	mustWrite(CategoriesFile, "# type;name;color\nINCOME;Salary;default\nexpense;Food;#ff0000\n\n")
	mustWrite(TransactionsFile, "# category;amount;date\nfood;12,50;2025-01-03\nSalary;2000\nUnknown;1\n")

	s, err := NewFromFiles(dir)
	if err != nil {
		t.Fatal(err)
	}
	ctx := context.Background()
	cats, _ := s.ListCategories(ctx, false)
	if len(cats) != 2 || cats[0].Name != "Salary" || !cats[0].IsDefault || cats[1].Color != "#ff0000" || cats[1].Type != core.Expense {
		t.Fatalf("unexpected categories %+v", cats)
	}

	txs, _ := s.ListTransactions(ctx)
	usage := core.CountUsage(txs)
	if len(txs) != 3 || usage.Of(cats[0].ID) != 1 || usage.Of(cats[1].ID) != 1 {
		t.Fatalf("unexpected transactions %+v", txs)
	}
	if txs[0].Date.IsZero() || !txs[1].Date.IsZero() {
		t.Fatalf("unexpected first transaction %+v", txs[0])
	}
}

func TestNewFromFilesRejectsBadLines(t *testing.T) {
	dir := t.TempDir()
	if err := os.WriteFile(filepath.Join(dir, CategoriesFile), []byte("SAVINGS;Jar\n"), 0o644); err != nil {
		t.Fatal(err)
	}
	if _, err := NewFromFiles(dir); err == nil {
		t.Fatal("expected an error for an unknown category type")
	}
}

func TestCategoryLifecycle(t *testing.T) {
	ctx := context.Background()
	s := New([]core.Category{{ID: 1, Name: "Rent", Type: core.Expense, IsDefault: true}}, nil)

	c, err := s.CreateCategory(ctx, core.CategoryInput{Name: " Gym ", Type: core.Expense})
	if err != nil {
		t.Fatalf("create: %v", err)
	}
	if c.ID != 2 || c.Name != "Gym" || c.CreatedAt.IsZero() {
		t.Fatalf("created %+v", c)
	}

	if _, err := s.CreateCategory(ctx, core.CategoryInput{Name: "gym", Type: core.Expense}); !errors.Is(err, core.ErrConflict) {
		t.Fatalf("duplicate create: %v", err)
	}
	if _, err := s.CreateCategory(ctx, core.CategoryInput{Name: "gym", Type: core.Income}); err != nil {
		t.Fatalf("same name other type: %v", err)
	}

	if _, err := s.UpdateCategory(ctx, c.ID, core.CategoryInput{Name: "Fitness", Type: core.Expense}); err != nil {
		t.Fatalf("update: %v", err)
	}
	if err := s.ArchiveCategory(ctx, c.ID); err != nil {
		t.Fatalf("archive: %v", err)
	}
	if err := s.ArchiveCategory(ctx, c.ID); !errors.Is(err, core.ErrConflict) {
		t.Fatalf("second archive: %v", err)
	}
	if err := s.ArchiveCategory(ctx, 1); !errors.Is(err, core.ErrConflict) {
		t.Fatalf("archive default: %v", err)
	}

	active, _ := s.ListCategories(ctx, false)
	all, _ := s.ListCategories(ctx, true)
	if len(active) != 2 || len(all) != 3 {
		t.Fatalf("active=%d all=%d", len(active), len(all))
	}

	restored, err := s.RestoreCategory(ctx, c.ID)
	if err != nil || restored.IsDeleted || restored.Name != "Fitness" {
		t.Fatalf("restore: %+v %v", restored, err)
	}
	if _, err := s.GetCategory(ctx, 99); !errors.Is(err, core.ErrNotFound) {
		t.Fatalf("get missing: %v", err)
	}
}

func TestCreateValidates(t *testing.T) {
	s := New(nil, nil)
	_, err := s.CreateCategory(context.Background(), core.CategoryInput{Name: "", Type: core.Expense})
	if !core.IsValidationError(err) {
		t.Fatalf("expected validation error, got %v", err)
	}
}
