// Command stocktest hammers the inventory store's atomic stock decrement
// with concurrent callers and verifies no update is lost. The gateway's
// order-creation workflow deliberately does not decrement stock; this tool
// is how the capability gets exercised and verified against a live store.
package main

import (
	"context"
	"fmt"
	"log"
	"sync"
	"sync/atomic"
	"time"

	"github.com/redis/go-redis/v9"

	"github.com/airship/tripstore/internal/adapter/storage"
	"github.com/airship/tripstore/internal/config"
	"github.com/airship/tripstore/internal/core/domain"
)

const (
	productID     = "stocktest-ship"
	initialStock  = 250
	totalRequests = 500
	perRequest    = 1
)

func main() {
	ctx := context.Background()
	cfg := config.Load()

	rdb := redis.NewClient(&redis.Options{Addr: cfg.RedisAddr})
	if err := rdb.Ping(ctx).Err(); err != nil {
		log.Fatalf("failed to connect redis: %v", err)
	}
	defer rdb.Close()

	store := storage.NewRedisStore(rdb)

	// Clear previous test data and seed a fresh product
	rdb.Del(ctx, "products:"+productID)
	err := store.Create(ctx, domain.Product{
		ID:                productID,
		Title:             "Stocktest Ship",
		PassengerCapacity: 10,
		MaximumSpeed:      100,
		InStock:           initialStock,
	})
	if err != nil {
		log.Fatalf("failed to seed product: %v", err)
	}

	var errCount atomic.Int32
	var wg sync.WaitGroup
	start := time.Now()

	for i := 0; i < totalRequests; i++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			if _, err := store.DecrementStock(ctx, productID, perRequest); err != nil {
				errCount.Add(1)
			}
		}()
	}

	wg.Wait()
	elapsed := time.Since(start)

	product, err := store.Get(ctx, productID)
	if err != nil {
		log.Fatalf("failed to read back product: %v", err)
	}

	expected := initialStock - totalRequests*perRequest

	fmt.Println("========== STOCK DECREMENT RESULTS ==========")
	fmt.Printf("Initial Stock:    %d\n", initialStock)
	fmt.Printf("Total Requests:   %d\n", totalRequests)
	fmt.Printf("Errors:           %d\n", errCount.Load())
	fmt.Printf("Duration:         %v\n", elapsed)
	fmt.Printf("Final Stock:      %d\n", product.InStock)
	fmt.Println("=============================================")

	if product.InStock == expected && errCount.Load() == 0 {
		fmt.Printf("PASS: no lost updates, final stock %d\n", expected)
	} else {
		fmt.Printf("FAIL: expected final stock %d, got %d (%d errors)\n",
			expected, product.InStock, errCount.Load())
	}
}
