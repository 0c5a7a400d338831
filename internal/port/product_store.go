package port

import (
	"context"
	"errors"
	"iter"

	"github.com/airship/tripstore/internal/core/domain"
)

var (
	ErrProductNotFound = errors.New("product not found")
	ErrProductExists   = errors.New("product id already exists")
)

// ProductStore is the inventory-side catalog contract. Every operation except
// List is an O(1) point lookup on the product id.
type ProductStore interface {
	// Get returns the product or ErrProductNotFound.
	Get(ctx context.Context, productID string) (*domain.Product, error)

	// List lazily yields products whose title matches filterTerm
	// (case-insensitive substring/regex), paginated by page/perPage.
	// A zero page or perPage disables pagination. The returned total counts
	// the filtered set, not the whole catalog. The sequence is single-pass.
	List(ctx context.Context, filterTerm string, page, perPage int) (iter.Seq2[domain.Product, error], int, error)

	// Create stores a new product, failing with ErrProductExists when the id
	// is already taken. The existing entry is left untouched on conflict.
	Create(ctx context.Context, product domain.Product) error

	// Update merges the non-nil fields into the stored record or fails with
	// ErrProductNotFound.
	Update(ctx context.Context, productID string, fields domain.ProductUpdate) error

	// Delete removes the product or fails with ErrProductNotFound.
	Delete(ctx context.Context, productID string) error

	// DecrementStock atomically subtracts amount from the product's stock and
	// returns the resulting value. There is no floor; the result may go
	// negative. Safe under concurrent callers.
	DecrementStock(ctx context.Context, productID string, amount int) (int, error)
}
