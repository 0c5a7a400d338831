package storage

import (
	"context"
	"database/sql"
	"errors"
	"os"
	"sync"
	"testing"

	_ "github.com/go-sql-driver/mysql"

	"github.com/airship/tripstore/internal/core/domain"
	"github.com/airship/tripstore/internal/port"
)

func getMySQLDB(t *testing.T) *sql.DB {
	dsn := os.Getenv("MYSQL_DSN")
	if dsn == "" {
		dsn = "root:root@tcp(localhost:3306)/orders?parseTime=true"
	}

	db, err := sql.Open("mysql", dsn)
	if err != nil {
		t.Skipf("MySQL not available: %v", err)
	}
	if err := db.Ping(); err != nil {
		t.Skipf("MySQL not available: %v", err)
	}
	return db
}

// recordingPublisher captures published events for assertions.
type recordingPublisher struct {
	mu     sync.Mutex
	events []string
}

func (p *recordingPublisher) Publish(_ context.Context, event string, _ any) error {
	p.mu.Lock()
	defer p.mu.Unlock()
	p.events = append(p.events, event)
	return nil
}

func newTestRepository(t *testing.T) (*MySQLRepository, *recordingPublisher, *sql.DB) {
	t.Helper()
	db := getMySQLDB(t)
	events := &recordingPublisher{}
	repo := NewMySQLRepository(db, events)
	if err := repo.EnsureSchema(context.Background()); err != nil {
		t.Fatalf("ensure schema: %v", err)
	}
	return repo, events, db
}

func TestCreateOrder_AssignsIDs(t *testing.T) {
	repo, events, db := newTestRepository(t)
	defer db.Close()

	ctx := context.Background()
	order, err := repo.CreateOrder(ctx, []domain.NewOrderDetail{
		{ProductID: "the_odyssey", Price: "99.99", Quantity: 1},
		{ProductID: "the_enigma", Price: "5.99", Quantity: 2},
	})
	if err != nil {
		t.Fatalf("CreateOrder failed: %v", err)
	}
	defer repo.DeleteOrder(ctx, order.ID)

	if order.ID == 0 {
		t.Error("expected generated order id")
	}
	if len(order.Details) != 2 {
		t.Fatalf("expected 2 details, got %d", len(order.Details))
	}
	for _, d := range order.Details {
		if d.ID == 0 {
			t.Error("expected generated detail id")
		}
		if d.OrderID != order.ID {
			t.Errorf("expected detail order_id %d, got %d", order.ID, d.OrderID)
		}
	}

	events.mu.Lock()
	published := len(events.events) == 1 && events.events[0] == orderCreatedEvent
	events.mu.Unlock()
	if !published {
		t.Errorf("expected one %s event, got %v", orderCreatedEvent, events.events)
	}

	// The id must be usable immediately, and prices come back verbatim.
	got, err := repo.GetOrder(ctx, order.ID)
	if err != nil {
		t.Fatalf("GetOrder failed: %v", err)
	}
	if got.Details[0].Price != "99.99" || got.Details[1].Price != "5.99" {
		t.Errorf("prices not preserved: %+v", got.Details)
	}
}

func TestGetOrder_NotFound(t *testing.T) {
	repo, _, db := newTestRepository(t)
	defer db.Close()

	_, err := repo.GetOrder(context.Background(), -1)
	if !errors.Is(err, port.ErrOrderNotFound) {
		t.Errorf("expected ErrOrderNotFound, got: %v", err)
	}
}

func TestListOrders_Pagination(t *testing.T) {
	repo, _, db := newTestRepository(t)
	defer db.Close()

	ctx := context.Background()

	_, before, err := repo.ListOrders(ctx, 1, 1)
	if err != nil {
		t.Fatalf("ListOrders failed: %v", err)
	}

	var created []int64
	for i := 0; i < 3; i++ {
		order, err := repo.CreateOrder(ctx, []domain.NewOrderDetail{
			{ProductID: "pagination-test", Price: "1.00", Quantity: 1},
		})
		if err != nil {
			t.Fatalf("CreateOrder failed: %v", err)
		}
		created = append(created, order.ID)
	}
	defer func() {
		for _, id := range created {
			repo.DeleteOrder(ctx, id)
		}
	}()

	orders, total, err := repo.ListOrders(ctx, 1, 2)
	if err != nil {
		t.Fatalf("ListOrders failed: %v", err)
	}
	if total != before+3 {
		t.Errorf("expected total %d, got %d", before+3, total)
	}
	if len(orders) > 2 {
		t.Errorf("expected at most 2 orders, got %d", len(orders))
	}
}

func TestUpdateOrder(t *testing.T) {
	repo, _, db := newTestRepository(t)
	defer db.Close()

	ctx := context.Background()
	order, err := repo.CreateOrder(ctx, []domain.NewOrderDetail{
		{ProductID: "update-test", Price: "10.00", Quantity: 1},
	})
	if err != nil {
		t.Fatalf("CreateOrder failed: %v", err)
	}
	defer repo.DeleteOrder(ctx, order.ID)

	update := domain.Order{
		ID: order.ID,
		Details: []domain.OrderDetail{
			{ID: order.Details[0].ID, Price: "12.50", Quantity: 4},
			{ID: order.Details[0].ID + 10000, Price: "1.00", Quantity: 1}, // unknown, ignored
		},
	}
	if err := repo.UpdateOrder(ctx, update); err != nil {
		t.Fatalf("UpdateOrder failed: %v", err)
	}

	got, err := repo.GetOrder(ctx, order.ID)
	if err != nil {
		t.Fatalf("GetOrder failed: %v", err)
	}
	if len(got.Details) != 1 {
		t.Fatalf("expected 1 detail (no upsert), got %d", len(got.Details))
	}
	if got.Details[0].Price != "12.50" || got.Details[0].Quantity != 4 {
		t.Errorf("expected updated price/quantity, got %+v", got.Details[0])
	}
}

func TestUpdateOrder_NotFound(t *testing.T) {
	repo, _, db := newTestRepository(t)
	defer db.Close()

	err := repo.UpdateOrder(context.Background(), domain.Order{ID: -1})
	if !errors.Is(err, port.ErrOrderNotFound) {
		t.Errorf("expected ErrOrderNotFound, got: %v", err)
	}
}

func TestDeleteOrder_Cascades(t *testing.T) {
	repo, _, db := newTestRepository(t)
	defer db.Close()

	ctx := context.Background()
	order, err := repo.CreateOrder(ctx, []domain.NewOrderDetail{
		{ProductID: "delete-test", Price: "3.00", Quantity: 1},
		{ProductID: "delete-test", Price: "4.00", Quantity: 2},
	})
	if err != nil {
		t.Fatalf("CreateOrder failed: %v", err)
	}

	if err := repo.DeleteOrder(ctx, order.ID); err != nil {
		t.Fatalf("DeleteOrder failed: %v", err)
	}

	if _, err := repo.GetOrder(ctx, order.ID); !errors.Is(err, port.ErrOrderNotFound) {
		t.Errorf("expected ErrOrderNotFound after delete, got: %v", err)
	}

	var remaining int
	db.QueryRowContext(ctx, `SELECT COUNT(*) FROM order_details WHERE order_id = ?`, order.ID).Scan(&remaining)
	if remaining != 0 {
		t.Errorf("expected no remaining details, got %d", remaining)
	}

	if err := repo.DeleteOrder(ctx, order.ID); !errors.Is(err, port.ErrOrderNotFound) {
		t.Errorf("expected ErrOrderNotFound on second delete, got: %v", err)
	}
}

func TestGetOrder_CacheInvalidatedOnWrite(t *testing.T) {
	repo, _, db := newTestRepository(t)
	defer db.Close()

	ctx := context.Background()
	order, err := repo.CreateOrder(ctx, []domain.NewOrderDetail{
		{ProductID: "cache-test", Price: "20.00", Quantity: 2},
	})
	if err != nil {
		t.Fatalf("CreateOrder failed: %v", err)
	}
	defer repo.DeleteOrder(ctx, order.ID)

	// Populate the cache.
	if _, err := repo.GetOrder(ctx, order.ID); err != nil {
		t.Fatalf("GetOrder failed: %v", err)
	}

	update := domain.Order{
		ID:      order.ID,
		Details: []domain.OrderDetail{{ID: order.Details[0].ID, Price: "25.00", Quantity: 5}},
	}
	if err := repo.UpdateOrder(ctx, update); err != nil {
		t.Fatalf("UpdateOrder failed: %v", err)
	}

	// A read after the write must see the write, not a cached snapshot.
	got, err := repo.GetOrder(ctx, order.ID)
	if err != nil {
		t.Fatalf("GetOrder failed: %v", err)
	}
	if got.Details[0].Price != "25.00" || got.Details[0].Quantity != 5 {
		t.Errorf("stale read after update: %+v", got.Details[0])
	}
}
