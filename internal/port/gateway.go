package port

import (
	"context"

	"github.com/airship/tripstore/internal/core/domain"
)

// Gateway exposes the order and product use cases to transport adapters.
type Gateway interface {
	CreateOrder(ctx context.Context, details []domain.NewOrderDetail) (int64, error)
	GetOrder(ctx context.Context, orderID int64) (*domain.EnrichedOrder, error)
	ListOrders(ctx context.Context, page, perPage int) (*domain.OrderPage, error)
	DeleteOrder(ctx context.Context, orderID int64) error

	GetProduct(ctx context.Context, productID string) (*domain.Product, error)
	ListProducts(ctx context.Context, filterTerm string, page, perPage int) (*domain.ProductPage, error)
	CreateProduct(ctx context.Context, product domain.Product) error
	UpdateProduct(ctx context.Context, productID string, fields domain.ProductUpdate) error
	DeleteProduct(ctx context.Context, productID string) error
}
