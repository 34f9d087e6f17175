// Package memory is an in-process categories backend, seeded from text files
// for local runs and used by tests.
package memory

import (
	"bufio"
	"context"
	"fmt"
	"os"
	"path/filepath"
	"slices"
	"strings"
	"sync"
	"time"

	"kasa/internal/core"
	"kasa/internal/source"
)

// Seed file names looked up by NewFromFiles.
const (
	CategoriesFile   = "seed_categories.txt"
	TransactionsFile = "seed_transactions.txt"
)

type Store struct {
	mu     sync.Mutex
	now    func() time.Time
	nextID int64
	cats   []core.Category
	txs    []core.Transaction
}

var _ source.Backend = (*Store)(nil)

// New returns a store holding copies of cats and txs. Categories without an
// id are numbered after the highest given id.
func New(cats []core.Category, txs []core.Transaction) *Store {
	s := &Store{now: time.Now}
	for _, c := range cats {
		s.nextID = max(s.nextID, c.ID)
	}
	for _, c := range cats {
		if c.ID == 0 {
			s.nextID++
			c.ID = s.nextID
		}
		s.cats = append(s.cats, c)
	}
	s.txs = append(s.txs, txs...)
	return s
}

// NewFromFiles seeds a store from base/seed_categories.txt and
// base/seed_transactions.txt.
//
// Category lines are "TYPE;Name[;#color][;default]". Transaction lines are
// "Category name[;amount][;YYYY-MM-DD]" and reference a category by name;
// the amount is ignored.
// Blank lines and lines starting with # are skipped. Without a category file
// a small default set is used.
func NewFromFiles(base string) (*Store, error) {
	created := time.Now().Add(-30 * 24 * time.Hour)

	var cats []core.Category
	for i, line := range readLines(filepath.Join(base, CategoriesFile)) {
		c, err := parseCategoryLine(line)
		if err != nil {
			return nil, fmt.Errorf("%s line %q: %w", CategoriesFile, line, err)
		}
		c.ID = int64(i + 1)
		c.CreatedAt = created.Add(time.Duration(i) * time.Minute)
		cats = append(cats, c)
	}
	if len(cats) == 0 {
		cats = defaultCategories(created)
	}

	byName := make(map[string]int64, len(cats))
	for _, c := range cats {
		byName[strings.ToLower(c.Name)] = c.ID
	}
	var txs []core.Transaction
	for i, line := range readLines(filepath.Join(base, TransactionsFile)) {
		tx, name, err := parseTransactionLine(line)
		if err != nil {
			return nil, fmt.Errorf("%s line %q: %w", TransactionsFile, line, err)
		}
		tx.ID = int64(i + 1)
		tx.CategoryID = byName[strings.ToLower(name)]
		txs = append(txs, tx)
	}
	return New(cats, txs), nil
}

func defaultCategories(created time.Time) []core.Category {
	names := []struct {
		name string
		typ  core.CategoryType
	}{
		{"Salary", core.Income},
		{"Groceries", core.Expense},
		{"Rent", core.Expense},
		{"Transport", core.Expense},
	}
	out := make([]core.Category, len(names))
	for i, n := range names {
		out[i] = core.Category{
			ID:        int64(i + 1),
			Name:      n.name,
			Type:      n.typ,
			IsDefault: true,
			CreatedAt: created.Add(time.Duration(i) * time.Minute),
		}
	}
	return out
}

func parseCategoryLine(line string) (core.Category, error) {
	parts := strings.Split(line, ";")
	if len(parts) < 2 {
		return core.Category{}, fmt.Errorf("want TYPE;Name")
	}
	typ, err := core.ParseCategoryType(parts[0])
	if err != nil {
		return core.Category{}, err
	}
	c := core.Category{Name: strings.TrimSpace(parts[1]), Type: typ}
	for _, extra := range parts[2:] {
		extra = strings.TrimSpace(extra)
		switch {
		case strings.EqualFold(extra, "default"):
			c.IsDefault = true
		case strings.HasPrefix(extra, "#"):
			c.Color = extra
		}
	}
	return c, nil
}

func parseTransactionLine(line string) (core.Transaction, string, error) {
	parts := strings.Split(line, ";")
	name := strings.TrimSpace(parts[0])
	if name == "" {
		return core.Transaction{}, "", fmt.Errorf("want Category[;amount][;date]")
	}
	var tx core.Transaction
	for _, extra := range parts[1:] {
		if d, err := time.Parse("2006-01-02", strings.TrimSpace(extra)); err == nil {
			tx.Date = d
		}
	}
	return tx, name, nil
}

func (s *Store) ListCategories(ctx context.Context, includeArchived bool) ([]core.Category, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}
	s.mu.Lock()
	defer s.mu.Unlock()
	out := make([]core.Category, 0, len(s.cats))
	for _, c := range s.cats {
		if includeArchived || !c.IsDeleted {
			out = append(out, c)
		}
	}
	return out, nil
}

func (s *Store) GetCategory(ctx context.Context, id int64) (core.Category, error) {
	if err := ctx.Err(); err != nil {
		return core.Category{}, err
	}
	s.mu.Lock()
	defer s.mu.Unlock()
	i, err := s.find(id)
	if err != nil {
		return core.Category{}, err
	}
	return s.cats[i], nil
}

func (s *Store) CreateCategory(ctx context.Context, in core.CategoryInput) (core.Category, error) {
	if err := ctx.Err(); err != nil {
		return core.Category{}, err
	}
	if err := in.Validate(); err != nil {
		return core.Category{}, err
	}
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.nameTaken(in, 0) {
		return core.Category{}, fmt.Errorf("%w: name %q already in use", core.ErrConflict, in.Name)
	}
	s.nextID++
	c := core.Category{
		ID:        s.nextID,
		Name:      strings.TrimSpace(in.Name),
		Type:      in.Type,
		Color:     in.Color,
		CreatedAt: s.now(),
	}
	s.cats = append(s.cats, c)
	return c, nil
}

func (s *Store) UpdateCategory(ctx context.Context, id int64, in core.CategoryInput) (core.Category, error) {
	if err := ctx.Err(); err != nil {
		return core.Category{}, err
	}
	if err := in.Validate(); err != nil {
		return core.Category{}, err
	}
	s.mu.Lock()
	defer s.mu.Unlock()
	i, err := s.find(id)
	if err != nil {
		return core.Category{}, err
	}
	if s.nameTaken(in, id) {
		return core.Category{}, fmt.Errorf("%w: name %q already in use", core.ErrConflict, in.Name)
	}
	c := &s.cats[i]
	c.Name = strings.TrimSpace(in.Name)
	c.Type = in.Type
	c.Color = in.Color
	return *c, nil
}

// ArchiveCategory marks the category deleted. Archiving a default or an
// already archived category is a conflict.
func (s *Store) ArchiveCategory(ctx context.Context, id int64) error {
	if err := ctx.Err(); err != nil {
		return err
	}
	s.mu.Lock()
	defer s.mu.Unlock()
	i, err := s.find(id)
	if err != nil {
		return err
	}
	switch c := &s.cats[i]; {
	case !c.Deletable():
		return fmt.Errorf("%w: default category %d cannot be archived", core.ErrConflict, id)
	case c.IsDeleted:
		return fmt.Errorf("%w: category %d is already archived", core.ErrConflict, id)
	default:
		c.IsDeleted = true
	}
	return nil
}

func (s *Store) RestoreCategory(ctx context.Context, id int64) (core.Category, error) {
	if err := ctx.Err(); err != nil {
		return core.Category{}, err
	}
	s.mu.Lock()
	defer s.mu.Unlock()
	i, err := s.find(id)
	if err != nil {
		return core.Category{}, err
	}
	c := &s.cats[i]
	if !c.IsDeleted {
		return core.Category{}, fmt.Errorf("%w: category %d is not archived", core.ErrConflict, id)
	}
	c.IsDeleted = false
	return *c, nil
}

func (s *Store) ListTransactions(ctx context.Context) ([]core.Transaction, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}
	s.mu.Lock()
	defer s.mu.Unlock()
	return slices.Clone(s.txs), nil
}

// AddTransaction records a transaction, mainly for tests and seeding.
func (s *Store) AddTransaction(tx core.Transaction) {
	s.mu.Lock()
	defer s.mu.Unlock()
	if tx.ID == 0 {
		tx.ID = int64(len(s.txs) + 1)
	}
	s.txs = append(s.txs, tx)
}

func (s *Store) find(id int64) (int, error) {
	i := slices.IndexFunc(s.cats, func(c core.Category) bool { return c.ID == id })
	if i < 0 {
		return -1, fmt.Errorf("%w: id %d", core.ErrNotFound, id)
	}
	return i, nil
}

// nameTaken reports whether another active category of the same type has the
// same name, ignoring case.
func (s *Store) nameTaken(in core.CategoryInput, exceptID int64) bool {
	name := strings.TrimSpace(in.Name)
	return slices.ContainsFunc(s.cats, func(c core.Category) bool {
		return c.ID != exceptID && !c.IsDeleted && c.Type == in.Type && strings.EqualFold(c.Name, name)
	})
}

func readLines(path string) []string {
	f, err := os.Open(path)
	if err != nil {
		return nil
	}
	defer f.Close()
	var out []string
	sc := bufio.NewScanner(f)
	for sc.Scan() {
		line := strings.TrimSpace(sc.Text())
		if line == "" || strings.HasPrefix(line, "#") {
			continue
		}
		out = append(out, line)
	}
	return out
}
