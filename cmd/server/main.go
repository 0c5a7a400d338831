package main

import (
	"context"
	"database/sql"
	"log"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	_ "github.com/go-sql-driver/mysql"
	"github.com/redis/go-redis/v9"

	"github.com/airship/tripstore/internal/adapter/handler"
	"github.com/airship/tripstore/internal/adapter/notifier"
	"github.com/airship/tripstore/internal/adapter/storage"
	"github.com/airship/tripstore/internal/config"
	"github.com/airship/tripstore/internal/core/service"
	"github.com/airship/tripstore/internal/port"
)

func main() {
	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	cfg := config.Load()

	// Initialize MySQL
	db, err := sql.Open("mysql", cfg.MySQLDSN)
	if err != nil {
		log.Fatalf("failed to connect mysql: %v", err)
	}
	db.SetMaxOpenConns(50)
	db.SetMaxIdleConns(25)
	db.SetConnMaxLifetime(5 * time.Minute)

	if err := db.PingContext(ctx); err != nil {
		log.Fatalf("failed to ping mysql: %v", err)
	}
	log.Println("connected to mysql")

	// Initialize Redis
	rdb := redis.NewClient(&redis.Options{
		Addr:     cfg.RedisAddr,
		PoolSize: 100,
	})
	if err := rdb.Ping(ctx).Err(); err != nil {
		log.Fatalf("failed to connect redis: %v", err)
	}
	log.Println("connected to redis")

	// Initialize the notifier; the broker being down must not take orders
	// down with it.
	var events port.EventPublisher
	rabbit, err := notifier.NewRabbitMQPublisher(cfg.AMQPURL)
	if err != nil {
		log.Printf("rabbitmq unavailable, order events disabled: %v", err)
		events = notifier.NopPublisher{}
	} else {
		events = rabbit
		log.Println("connected to rabbitmq")
	}

	// Initialize adapters
	products := storage.NewRedisStore(rdb)
	orders := storage.NewMySQLRepository(db, events)

	if err := orders.EnsureSchema(ctx); err != nil {
		log.Fatalf("failed to ensure schema: %v", err)
	}

	// Initialize service and HTTP server
	gateway := service.NewGatewayService(products, orders, cfg.ImageRoot)

	mux := http.NewServeMux()
	handler.NewHTTPHandler(gateway).Register(mux)

	httpServer := &http.Server{
		Addr:    cfg.HTTPAddr,
		Handler: mux,
	}

	go func() {
		log.Printf("HTTP server listening on %s", cfg.HTTPAddr)
		if err := httpServer.ListenAndServe(); err != http.ErrServerClosed {
			log.Printf("HTTP server error: %v", err)
		}
	}()

	// Graceful shutdown
	quit := make(chan os.Signal, 1)
	signal.Notify(quit, syscall.SIGINT, syscall.SIGTERM)
	<-quit

	log.Println("shutting down...")

	shutdownCtx, shutdownCancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer shutdownCancel()
	httpServer.Shutdown(shutdownCtx)
	log.Println("HTTP server stopped")

	if rabbit != nil {
		rabbit.Close()
	}
	rdb.Close()
	db.Close()
	log.Println("connections closed")
}
