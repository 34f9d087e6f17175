// Package source defines the ports through which kasa reads and changes
// backend-owned categories and reads transactions.
package source

import (
	"context"

	"kasa/internal/core"
)

// Ports for outbound adapters.
type (
	CategoryReader interface {
		// ListCategories returns active categories, or every category
		// including archived ones when includeArchived is set.
		ListCategories(ctx context.Context, includeArchived bool) ([]core.Category, error)
		GetCategory(ctx context.Context, id int64) (core.Category, error)
	}

	CategoryWriter interface {
		CreateCategory(ctx context.Context, in core.CategoryInput) (core.Category, error)
		UpdateCategory(ctx context.Context, id int64, in core.CategoryInput) (core.Category, error)
		ArchiveCategory(ctx context.Context, id int64) error
		RestoreCategory(ctx context.Context, id int64) (core.Category, error)
	}

	TransactionReader interface {
		ListTransactions(ctx context.Context) ([]core.Transaction, error)
	}

	// Backend is the full set of ports a data source provides.
	Backend interface {
		CategoryReader
		CategoryWriter
		TransactionReader
	}
)
