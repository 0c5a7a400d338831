package domain

import (
	"errors"
	"fmt"

	"github.com/shopspring/decimal"
)

var (
	ErrNoOrderDetails   = errors.New("order must contain at least one line item")
	ErrMissingProductID = errors.New("product id is required")
	ErrInvalidQuantity  = errors.New("quantity must be greater than zero")
	ErrInvalidPrice     = errors.New("price is not a valid decimal")
)

// OrderDetail is one product+price+quantity line item on a persisted order.
// Price is a decimal string; it is validated as a decimal but kept
// string-serialized end to end so no rounding ever happens.
type OrderDetail struct {
	ID        int64  `json:"id"`
	OrderID   int64  `json:"order_id"`
	ProductID string `json:"product_id"`
	Price     string `json:"price"`
	Quantity  int    `json:"quantity"`
}

// Order is the persisted aggregate. IDs are store-generated.
type Order struct {
	ID      int64         `json:"id"`
	Details []OrderDetail `json:"order_details"`
}

// Total sums price*quantity over all line items.
func (o Order) Total() decimal.Decimal {
	total := decimal.Zero
	for _, d := range o.Details {
		price, err := decimal.NewFromString(d.Price)
		if err != nil {
			continue
		}
		total = total.Add(price.Mul(decimal.NewFromInt(int64(d.Quantity))))
	}
	return total
}

// NewOrderDetail is a caller-supplied line item for order creation, before
// the store has assigned identifiers.
type NewOrderDetail struct {
	ProductID string `json:"product_id"`
	Price     string `json:"price"`
	Quantity  int    `json:"quantity"`
}

// Validate checks the line item before any store interaction.
func (d NewOrderDetail) Validate() error {
	if d.ProductID == "" {
		return ErrMissingProductID
	}
	if d.Quantity <= 0 {
		return ErrInvalidQuantity
	}
	if _, err := decimal.NewFromString(d.Price); err != nil {
		return fmt.Errorf("%w: %q", ErrInvalidPrice, d.Price)
	}
	return nil
}

// ValidateOrderDetails checks a whole order-creation payload.
func ValidateOrderDetails(details []NewOrderDetail) error {
	if len(details) == 0 {
		return ErrNoOrderDetails
	}
	for _, d := range details {
		if err := d.Validate(); err != nil {
			return err
		}
	}
	return nil
}

// EnrichedOrderDetail is the read-path projection of a line item: the stored
// fields plus a live product snapshot and a derived image reference. It is
// assembled per request and never persisted.
type EnrichedOrderDetail struct {
	OrderDetail
	Product Product `json:"product"`
	Image   string  `json:"image"`
}

// EnrichedOrder is the read-path projection of an order.
type EnrichedOrder struct {
	ID      int64                 `json:"id"`
	Details []EnrichedOrderDetail `json:"order_details"`
}

// OrderPage is one page of the order listing. TotalOrders is the full,
// unfiltered count.
type OrderPage struct {
	Orders      []Order `json:"orders"`
	Page        int     `json:"page"`
	PerPage     int     `json:"per_page"`
	TotalOrders int     `json:"total_orders"`
}
