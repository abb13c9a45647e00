package main

import (
	"context"
	"log"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/golang-migrate/migrate/v4"
	_ "github.com/golang-migrate/migrate/v4/database/postgres"
	_ "github.com/golang-migrate/migrate/v4/source/file"

	"github.com/MAshrafM/FinStat-sub000/internal/api"
	"github.com/MAshrafM/FinStat-sub000/internal/config"
	"github.com/MAshrafM/FinStat-sub000/internal/database"
	"github.com/MAshrafM/FinStat-sub000/internal/kafka"
	"github.com/MAshrafM/FinStat-sub000/internal/redis"
)

func main() {
	// Load configuration
	cfg := config.Load()

	// Connect to database
	db, err := database.New(cfg.Database.ConnectionString())
	if err != nil {
		log.Fatalf("Failed to connect to database: %v", err)
	}
	defer db.Close()

	// Run migrations
	if err := runMigrations(cfg.Database.ConnectionString()); err != nil {
		log.Fatalf("Failed to run database migrations: %v", err)
	}
	log.Println("Connected to PostgreSQL database")

	// Connect to Redis. The service degrades gracefully without it: every
	// portfolio read simply recomputes from the ledger.
	redisClient, err := redis.New(cfg.Redis)
	if err != nil {
		log.Printf("Warning: Failed to connect to Redis: %v (continuing without cache)", err)
		redisClient = nil
	} else {
		defer redisClient.Close()
		log.Println("Connected to Redis cache")
	}

	// Create Kafka producer for ledger events
	producer := kafka.NewProducer(cfg.Kafka.Brokers, cfg.Kafka.TradesTopic)
	defer producer.Close()
	log.Printf("Kafka producer initialized (brokers: %v, topic: %s)",
		cfg.Kafka.Brokers, cfg.Kafka.TradesTopic)

	// Create context for graceful shutdown
	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	// Start the market quotes consumer
	var priceCache kafka.PriceCache
	if redisClient != nil {
		priceCache = redisClient
	}
	quotesConsumer := kafka.NewQuotesConsumer(
		cfg.Kafka.Brokers,
		cfg.Kafka.QuotesTopic,
		cfg.Kafka.ConsumerGroup,
		db,
		priceCache,
		cfg.Portfolio.PriceTTL,
	)
	go func() {
		log.Printf("Starting quotes consumer for topic: %s (group: %s)",
			cfg.Kafka.QuotesTopic, cfg.Kafka.ConsumerGroup)
		if err := quotesConsumer.Start(ctx); err != nil {
			log.Printf("Quotes consumer error: %v", err)
		}
	}()

	// Set up HTTP handler and routes
	var cache api.Cache
	if redisClient != nil {
		cache = redisClient
	}
	handler := api.NewHandler(db, producer, cache, cfg)
	router := api.SetupRoutes(handler)

	// Create HTTP server
	addr := cfg.Server.Host + ":" + cfg.Server.Port
	srv := &http.Server{
		Addr:         addr,
		Handler:      router,
		ReadTimeout:  15 * time.Second,
		WriteTimeout: 15 * time.Second,
		IdleTimeout:  60 * time.Second,
	}

	// Start server in goroutine
	go func() {
		log.Printf("Starting server on %s", addr)
		if err := srv.ListenAndServe(); err != nil && err != http.ErrServerClosed {
			log.Fatalf("Failed to start server: %v", err)
		}
	}()

	// Wait for interrupt signal
	quit := make(chan os.Signal, 1)
	signal.Notify(quit, syscall.SIGINT, syscall.SIGTERM)
	<-quit

	log.Println("Shutting down server...")

	// Cancel context to stop the Kafka consumer
	cancel()

	// Graceful shutdown with timeout
	shutdownCtx, shutdownCancel := context.WithTimeout(context.Background(), 30*time.Second)
	defer shutdownCancel()

	if err := srv.Shutdown(shutdownCtx); err != nil {
		log.Fatalf("Server forced to shutdown: %v", err)
	}

	if err := quotesConsumer.Close(); err != nil {
		log.Printf("Error closing quotes consumer: %v", err)
	}

	log.Println("Server stopped")
}

func runMigrations(databaseURL string) error {
	m, err := migrate.New("file://./db/migrations", databaseURL)
	if err != nil {
		return err
	}

	err = m.Up()
	if err != nil && err != migrate.ErrNoChange {
		return err
	}
	if err == migrate.ErrNoChange {
		log.Println("No migrations to apply; database is up to date.")
	}

	return nil
}
