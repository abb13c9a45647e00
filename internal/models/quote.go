package models

import (
	"time"

	"github.com/shopspring/decimal"
)

// Quote is the latest known market price for a stock code.
type Quote struct {
	StockCode string          `json:"stock_code"`
	Price     decimal.Decimal `json:"price"`
	AsOf      time.Time       `json:"as_of"`
	UpdatedAt time.Time       `json:"updated_at"`
}

// QuoteEvent represents a Kafka message carrying market price updates.
type QuoteEvent struct {
	EventType string         `json:"event_type"`
	Source    string         `json:"source"`
	Timestamp string         `json:"timestamp"`
	Data      QuoteEventData `json:"data"`
}

// QuoteEventData holds the quotes in a price update event.
type QuoteEventData struct {
	Quotes []QuoteData `json:"quotes"`
}

// QuoteData is a single price in a quote event. Numeric fields arrive as
// strings from the feed and are parsed on ingestion.
type QuoteData struct {
	StockCode string `json:"stock_code"`
	Price     string `json:"price"`
	AsOf      string `json:"as_of,omitempty"`
}

// TradeEvent is published whenever the ledger is mutated.
type TradeEvent struct {
	EventType string `json:"event_type"`
	Timestamp string `json:"timestamp"`
	Trade     *Trade `json:"trade,omitempty"`
	TradeID   string `json:"trade_id,omitempty"`
}

// Trade event types.
const (
	EventTradeCreated = "TRADE_CREATED"
	EventTradeUpdated = "TRADE_UPDATED"
	EventTradeDeleted = "TRADE_DELETED"

	// EventQuoteUpdate is the only quote event type the consumer acts on.
	EventQuoteUpdate = "QUOTE_UPDATE"
)
