package service

import (
	"context"
	"fmt"

	"golang.org/x/sync/errgroup"

	"github.com/airship/tripstore/internal/core/domain"
	"github.com/airship/tripstore/internal/port"
)

// GatewayService coordinates the inventory store and the order repository.
// It owns no persistent state; everything it holds is per-request
// composition. Store errors pass through untranslated.
type GatewayService struct {
	products  port.ProductStore
	orders    port.OrderRepository
	imageRoot string
}

var _ port.Gateway = (*GatewayService)(nil)

func NewGatewayService(products port.ProductStore, orders port.OrderRepository, imageRoot string) *GatewayService {
	return &GatewayService{
		products:  products,
		orders:    orders,
		imageRoot: imageRoot,
	}
}

// CreateOrder verifies that every referenced product exists, then persists
// the order and returns its generated id. The existence checks are
// independent and fan out concurrently; every check is issued and the first
// failure wins. Nothing is reserved against inventory here, so a persistence
// failure after validation leaves no dangling state.
func (s *GatewayService) CreateOrder(ctx context.Context, details []domain.NewOrderDetail) (int64, error) {
	g, checkCtx := errgroup.WithContext(ctx)
	for _, d := range details {
		g.Go(func() error {
			_, err := s.products.Get(checkCtx, d.ProductID)
			return err
		})
	}
	if err := g.Wait(); err != nil {
		return 0, err
	}

	order, err := s.orders.CreateOrder(ctx, details)
	if err != nil {
		return 0, err
	}
	return order.ID, nil
}

// GetOrder fetches the order and enriches every line item with a live
// product snapshot and a derived image reference. An order referencing a
// since-deleted product surfaces the product's not-found error unchanged.
func (s *GatewayService) GetOrder(ctx context.Context, orderID int64) (*domain.EnrichedOrder, error) {
	order, err := s.orders.GetOrder(ctx, orderID)
	if err != nil {
		return nil, err
	}

	enriched := &domain.EnrichedOrder{
		ID:      order.ID,
		Details: make([]domain.EnrichedOrderDetail, len(order.Details)),
	}
	for i, d := range order.Details {
		product, err := s.products.Get(ctx, d.ProductID)
		if err != nil {
			return nil, err
		}
		enriched.Details[i] = domain.EnrichedOrderDetail{
			OrderDetail: d,
			Product:     *product,
			Image:       fmt.Sprintf("%s/%s.jpg", s.imageRoot, d.ProductID),
		}
	}
	return enriched, nil
}

// ListOrders is a pass-through; list responses carry no product enrichment.
func (s *GatewayService) ListOrders(ctx context.Context, page, perPage int) (*domain.OrderPage, error) {
	orders, total, err := s.orders.ListOrders(ctx, page, perPage)
	if err != nil {
		return nil, err
	}
	return &domain.OrderPage{
		Orders:      orders,
		Page:        page,
		PerPage:     perPage,
		TotalOrders: total,
	}, nil
}

func (s *GatewayService) DeleteOrder(ctx context.Context, orderID int64) error {
	return s.orders.DeleteOrder(ctx, orderID)
}

func (s *GatewayService) GetProduct(ctx context.Context, productID string) (*domain.Product, error) {
	return s.products.Get(ctx, productID)
}

// ListProducts echoes page/per_page back even though the total reflects the
// filtered set.
func (s *GatewayService) ListProducts(ctx context.Context, filterTerm string, page, perPage int) (*domain.ProductPage, error) {
	seq, total, err := s.products.List(ctx, filterTerm, page, perPage)
	if err != nil {
		return nil, err
	}
	products := make([]domain.Product, 0, perPage)
	for product, err := range seq {
		if err != nil {
			return nil, err
		}
		products = append(products, product)
	}
	return &domain.ProductPage{
		Products:      products,
		Page:          page,
		PerPage:       perPage,
		TotalProducts: total,
	}, nil
}

func (s *GatewayService) CreateProduct(ctx context.Context, product domain.Product) error {
	return s.products.Create(ctx, product)
}

func (s *GatewayService) UpdateProduct(ctx context.Context, productID string, fields domain.ProductUpdate) error {
	return s.products.Update(ctx, productID, fields)
}

func (s *GatewayService) DeleteProduct(ctx context.Context, productID string) error {
	return s.products.Delete(ctx, productID)
}
