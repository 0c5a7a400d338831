package port

import (
	"context"
	"errors"

	"github.com/airship/tripstore/internal/core/domain"
)

var ErrOrderNotFound = errors.New("order not found")

// OrderRepository persists orders and their line items.
type OrderRepository interface {
	// GetOrder returns the order or ErrOrderNotFound. Repeated lookups of the
	// same id may be served from a bounded recent-lookup cache; mutating
	// operations invalidate it before returning.
	GetOrder(ctx context.Context, orderID int64) (*domain.Order, error)

	// ListOrders returns one page of orders in insertion order plus the full
	// order count.
	ListOrders(ctx context.Context, page, perPage int) ([]domain.Order, int, error)

	// CreateOrder persists a new order and all its line items atomically,
	// assigns generated ids and returns the materialized order. On success an
	// order_created event is published best-effort; a publish failure never
	// fails the creation.
	CreateOrder(ctx context.Context, details []domain.NewOrderDetail) (*domain.Order, error)

	// UpdateOrder overwrites price and quantity of every input line item
	// whose id exists on the stored order; unknown line-item ids are silently
	// ignored. Fails with ErrOrderNotFound when the order is absent.
	UpdateOrder(ctx context.Context, order domain.Order) error

	// DeleteOrder removes the order and all its line items atomically, or
	// fails with ErrOrderNotFound.
	DeleteOrder(ctx context.Context, orderID int64) error
}
