package storage

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"log"

	"github.com/airship/tripstore/internal/core/domain"
	"github.com/airship/tripstore/internal/port"
)

const orderCacheCapacity = 100

// orderCreatedEvent is published after a successful order creation.
const orderCreatedEvent = "order_created"

// MySQLRepository persists orders and their line items. product_id carries no
// foreign key into the inventory store; the two stores are independent and
// reference validity is enforced at order-creation time by the gateway.
type MySQLRepository struct {
	db     *sql.DB
	events port.EventPublisher
	cache  *orderCache
}

var _ port.OrderRepository = (*MySQLRepository)(nil)

func NewMySQLRepository(db *sql.DB, events port.EventPublisher) *MySQLRepository {
	return &MySQLRepository{
		db:     db,
		events: events,
		cache:  newOrderCache(orderCacheCapacity),
	}
}

// EnsureSchema creates the order tables when they do not exist yet.
func (m *MySQLRepository) EnsureSchema(ctx context.Context) error {
	stmts := []string{
		`CREATE TABLE IF NOT EXISTS orders (
			id BIGINT NOT NULL AUTO_INCREMENT PRIMARY KEY,
			created_at TIMESTAMP NOT NULL DEFAULT CURRENT_TIMESTAMP
		)`,
		`CREATE TABLE IF NOT EXISTS order_details (
			id BIGINT NOT NULL AUTO_INCREMENT PRIMARY KEY,
			order_id BIGINT NOT NULL,
			product_id VARCHAR(255) NOT NULL,
			price DECIMAL(18,2) NOT NULL,
			quantity INT NOT NULL,
			KEY idx_order_details_order_id (order_id),
			CONSTRAINT fk_order_details_order FOREIGN KEY (order_id) REFERENCES orders (id)
		)`,
	}
	for _, stmt := range stmts {
		if _, err := m.db.ExecContext(ctx, stmt); err != nil {
			return fmt.Errorf("ensure schema: %w", err)
		}
	}
	return nil
}

func (m *MySQLRepository) GetOrder(ctx context.Context, orderID int64) (*domain.Order, error) {
	if order, ok := m.cache.get(orderID); ok {
		return order, nil
	}

	var id int64
	err := m.db.QueryRowContext(ctx, `SELECT id FROM orders WHERE id = ?`, orderID).Scan(&id)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, fmt.Errorf("%w: %d", port.ErrOrderNotFound, orderID)
	}
	if err != nil {
		return nil, fmt.Errorf("query order: %w", err)
	}

	details, err := m.loadDetails(ctx, id)
	if err != nil {
		return nil, err
	}

	order := &domain.Order{ID: id, Details: details}
	m.cache.put(order)
	return cloneOrder(*order), nil
}

func (m *MySQLRepository) loadDetails(ctx context.Context, orderID int64) ([]domain.OrderDetail, error) {
	rows, err := m.db.QueryContext(ctx, `
		SELECT id, order_id, product_id, price, quantity
		FROM order_details WHERE order_id = ? ORDER BY id`, orderID)
	if err != nil {
		return nil, fmt.Errorf("query order details: %w", err)
	}
	defer rows.Close()

	details := make([]domain.OrderDetail, 0, 4)
	for rows.Next() {
		var d domain.OrderDetail
		if err := rows.Scan(&d.ID, &d.OrderID, &d.ProductID, &d.Price, &d.Quantity); err != nil {
			return nil, fmt.Errorf("scan order detail: %w", err)
		}
		details = append(details, d)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("iterate order details: %w", err)
	}
	return details, nil
}

func (m *MySQLRepository) ListOrders(ctx context.Context, page, perPage int) ([]domain.Order, int, error) {
	var total int
	if err := m.db.QueryRowContext(ctx, `SELECT COUNT(*) FROM orders`).Scan(&total); err != nil {
		return nil, 0, fmt.Errorf("count orders: %w", err)
	}

	rows, err := m.db.QueryContext(ctx,
		`SELECT id FROM orders ORDER BY id LIMIT ? OFFSET ?`,
		perPage, (page-1)*perPage)
	if err != nil {
		return nil, 0, fmt.Errorf("query orders: %w", err)
	}
	defer rows.Close()

	ids := make([]int64, 0, perPage)
	for rows.Next() {
		var id int64
		if err := rows.Scan(&id); err != nil {
			return nil, 0, fmt.Errorf("scan order: %w", err)
		}
		ids = append(ids, id)
	}
	if err := rows.Err(); err != nil {
		return nil, 0, fmt.Errorf("iterate orders: %w", err)
	}

	orders := make([]domain.Order, 0, len(ids))
	for _, id := range ids {
		details, err := m.loadDetails(ctx, id)
		if err != nil {
			return nil, 0, err
		}
		orders = append(orders, domain.Order{ID: id, Details: details})
	}
	return orders, total, nil
}

func (m *MySQLRepository) CreateOrder(ctx context.Context, details []domain.NewOrderDetail) (*domain.Order, error) {
	tx, err := m.db.BeginTx(ctx, nil)
	if err != nil {
		return nil, fmt.Errorf("begin tx: %w", err)
	}
	defer tx.Rollback()

	result, err := tx.ExecContext(ctx, `INSERT INTO orders () VALUES ()`)
	if err != nil {
		return nil, fmt.Errorf("insert order: %w", err)
	}
	orderID, err := result.LastInsertId()
	if err != nil {
		return nil, fmt.Errorf("order id: %w", err)
	}

	order := &domain.Order{ID: orderID, Details: make([]domain.OrderDetail, 0, len(details))}
	for _, d := range details {
		result, err := tx.ExecContext(ctx, `
			INSERT INTO order_details (order_id, product_id, price, quantity)
			VALUES (?, ?, ?, ?)`,
			orderID, d.ProductID, d.Price, d.Quantity)
		if err != nil {
			return nil, fmt.Errorf("insert order detail: %w", err)
		}
		detailID, err := result.LastInsertId()
		if err != nil {
			return nil, fmt.Errorf("order detail id: %w", err)
		}
		order.Details = append(order.Details, domain.OrderDetail{
			ID:        detailID,
			OrderID:   orderID,
			ProductID: d.ProductID,
			Price:     d.Price,
			Quantity:  d.Quantity,
		})
	}

	if err := tx.Commit(); err != nil {
		return nil, fmt.Errorf("commit order: %w", err)
	}

	m.publishCreated(ctx, order)
	return order, nil
}

// publishCreated notifies downstream services of a new order. Failures are
// logged and swallowed; the order is already committed.
func (m *MySQLRepository) publishCreated(ctx context.Context, order *domain.Order) {
	if m.events == nil {
		return
	}
	payload := map[string]any{
		"order": order,
		"total": order.Total().String(),
	}
	if err := m.events.Publish(ctx, orderCreatedEvent, payload); err != nil {
		log.Printf("publish %s for order %d: %v", orderCreatedEvent, order.ID, err)
	}
}

func (m *MySQLRepository) UpdateOrder(ctx context.Context, order domain.Order) error {
	tx, err := m.db.BeginTx(ctx, nil)
	if err != nil {
		return fmt.Errorf("begin tx: %w", err)
	}
	defer tx.Rollback()

	var id int64
	err = tx.QueryRowContext(ctx, `SELECT id FROM orders WHERE id = ?`, order.ID).Scan(&id)
	if errors.Is(err, sql.ErrNoRows) {
		return fmt.Errorf("%w: %d", port.ErrOrderNotFound, order.ID)
	}
	if err != nil {
		return fmt.Errorf("query order: %w", err)
	}

	rows, err := tx.QueryContext(ctx, `SELECT id FROM order_details WHERE order_id = ?`, order.ID)
	if err != nil {
		return fmt.Errorf("query order details: %w", err)
	}
	existing := make(map[int64]bool)
	for rows.Next() {
		var detailID int64
		if err := rows.Scan(&detailID); err != nil {
			rows.Close()
			return fmt.Errorf("scan order detail: %w", err)
		}
		existing[detailID] = true
	}
	if err := rows.Close(); err != nil {
		return fmt.Errorf("close order details: %w", err)
	}

	// Line items the stored order does not have are silently ignored.
	for _, d := range order.Details {
		if !existing[d.ID] {
			continue
		}
		_, err := tx.ExecContext(ctx, `
			UPDATE order_details SET price = ?, quantity = ?
			WHERE id = ? AND order_id = ?`,
			d.Price, d.Quantity, d.ID, order.ID)
		if err != nil {
			return fmt.Errorf("update order detail: %w", err)
		}
	}

	if err := tx.Commit(); err != nil {
		return fmt.Errorf("commit order update: %w", err)
	}

	m.cache.remove(order.ID)
	return nil
}

func (m *MySQLRepository) DeleteOrder(ctx context.Context, orderID int64) error {
	tx, err := m.db.BeginTx(ctx, nil)
	if err != nil {
		return fmt.Errorf("begin tx: %w", err)
	}
	defer tx.Rollback()

	if _, err := tx.ExecContext(ctx, `DELETE FROM order_details WHERE order_id = ?`, orderID); err != nil {
		return fmt.Errorf("delete order details: %w", err)
	}

	result, err := tx.ExecContext(ctx, `DELETE FROM orders WHERE id = ?`, orderID)
	if err != nil {
		return fmt.Errorf("delete order: %w", err)
	}
	rows, _ := result.RowsAffected()
	if rows == 0 {
		return fmt.Errorf("%w: %d", port.ErrOrderNotFound, orderID)
	}

	if err := tx.Commit(); err != nil {
		return fmt.Errorf("commit order delete: %w", err)
	}

	m.cache.remove(orderID)
	return nil
}
