package kafka

import (
	"context"
	"encoding/json"
	"fmt"
	"log"
	"strings"
	"time"

	"github.com/segmentio/kafka-go"
	"github.com/shopspring/decimal"

	"github.com/MAshrafM/FinStat-sub000/internal/models"
)

// QuoteStore defines the interface for persisting market prices
type QuoteStore interface {
	UpsertQuote(q *models.Quote) error
}

// PriceCache defines the optional fast-path price cache
type PriceCache interface {
	SetPrice(ctx context.Context, stockCode string, price decimal.Decimal, ttl time.Duration) error
}

// QuotesConsumer ingests market price updates from Kafka into the quote
// store and, when available, the price cache. The portfolio computation
// only ever reads prices; it never waits on the feed.
type QuotesConsumer struct {
	reader   *kafka.Reader
	store    QuoteStore
	cache    PriceCache
	priceTTL time.Duration
}

// NewQuotesConsumer creates a new Kafka consumer for quote events.
func NewQuotesConsumer(brokers []string, topic, groupID string, store QuoteStore, cache PriceCache, priceTTL time.Duration) *QuotesConsumer {
	reader := kafka.NewReader(kafka.ReaderConfig{
		Brokers:        brokers,
		Topic:          topic,
		GroupID:        groupID + "-quotes",
		MinBytes:       10e3, // 10KB
		MaxBytes:       10e6, // 10MB
		MaxWait:        1 * time.Second,
		StartOffset:    kafka.LastOffset, // Stale prices are useless; only read new quotes
		CommitInterval: time.Second,
	})

	return &QuotesConsumer{
		reader:   reader,
		store:    store,
		cache:    cache,
		priceTTL: priceTTL,
	}
}

// Start begins consuming messages from Kafka
func (c *QuotesConsumer) Start(ctx context.Context) error {
	log.Printf("Starting quotes consumer for topic: %s", c.reader.Config().Topic)

	for {
		select {
		case <-ctx.Done():
			log.Println("Quotes consumer shutting down...")
			return c.reader.Close()
		default:
			msg, err := c.reader.ReadMessage(ctx)
			if err != nil {
				if ctx.Err() != nil {
					return nil // Context cancelled, normal shutdown
				}
				log.Printf("Error reading quote message: %v", err)
				continue
			}

			if err := c.processMessage(ctx, msg); err != nil {
				log.Printf("Error processing quote message: %v", err)
				// Continue processing other messages
			}
		}
	}
}

// processMessage handles a single Kafka message
func (c *QuotesConsumer) processMessage(ctx context.Context, msg kafka.Message) error {
	var event models.QuoteEvent
	if err := json.Unmarshal(msg.Value, &event); err != nil {
		return fmt.Errorf("failed to unmarshal quote event: %w", err)
	}

	if event.EventType != models.EventQuoteUpdate {
		log.Printf("Ignoring quote event type: %s", event.EventType)
		return nil
	}

	log.Printf("Processing quote update: %d quotes from %s",
		len(event.Data.Quotes), event.Source)

	for _, qd := range event.Data.Quotes {
		quote, err := c.convertQuoteData(qd)
		if err != nil {
			log.Printf("Warning: skipping quote %s: %v", qd.StockCode, err)
			continue
		}

		if err := c.store.UpsertQuote(quote); err != nil {
			log.Printf("Error storing quote %s: %v", quote.StockCode, err)
			continue
		}

		if c.cache != nil {
			if err := c.cache.SetPrice(ctx, quote.StockCode, quote.Price, c.priceTTL); err != nil {
				log.Printf("Warning: failed to cache price %s: %v", quote.StockCode, err)
			}
		}
	}

	return nil
}

// convertQuoteData parses the string-typed feed payload into a Quote.
func (c *QuotesConsumer) convertQuoteData(qd models.QuoteData) (*models.Quote, error) {
	stockCode := strings.ToUpper(strings.TrimSpace(qd.StockCode))
	if stockCode == "" {
		return nil, fmt.Errorf("empty stock code")
	}

	price, err := decimal.NewFromString(qd.Price)
	if err != nil {
		return nil, fmt.Errorf("invalid price %q: %w", qd.Price, err)
	}
	if price.IsNegative() {
		return nil, fmt.Errorf("negative price %s", price)
	}

	asOf := time.Now()
	if qd.AsOf != "" {
		if parsed, err := time.Parse(time.RFC3339, qd.AsOf); err == nil {
			asOf = parsed
		}
	}

	return &models.Quote{
		StockCode: stockCode,
		Price:     price,
		AsOf:      asOf,
	}, nil
}

// Close closes the Kafka consumer
func (c *QuotesConsumer) Close() error {
	return c.reader.Close()
}
