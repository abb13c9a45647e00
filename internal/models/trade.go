package models

import (
	"time"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"
)

// Broker identifies the brokerage a trade was executed through.
type Broker string

const (
	BrokerThndr Broker = "Thndr"
	BrokerEFG   Broker = "EFG"
)

// Valid reports whether the broker is one of the known brokerages.
func (b Broker) Valid() bool {
	return b == BrokerThndr || b == BrokerEFG
}

// TradeType classifies a ledger entry.
type TradeType string

const (
	TradeTypeBuy      TradeType = "Buy"
	TradeTypeSell     TradeType = "Sell"
	TradeTypeDividend TradeType = "Dividend"
	TradeTypeTopUp    TradeType = "TopUp"
	TradeTypeWithdraw TradeType = "Withdraw"
)

// Valid reports whether the trade type is one of the known types.
func (t TradeType) Valid() bool {
	switch t {
	case TradeTypeBuy, TradeTypeSell, TradeTypeDividend, TradeTypeTopUp, TradeTypeWithdraw:
		return true
	}
	return false
}

// IsCash reports whether the type moves cash only (no stock involved).
func (t TradeType) IsCash() bool {
	return t == TradeTypeTopUp || t == TradeTypeWithdraw
}

// Trade is a single immutable ledger entry. StockCode is empty for cash
// trades (top-ups and withdrawals). TotalValue is the signed cash impact
// of the trade, fees included. Iteration is a manual re-entry counter
// supplied by the data-entry layer; nil means the first cycle.
type Trade struct {
	ID            uuid.UUID       `json:"id"`
	Broker        Broker          `json:"broker"`
	StockCode     string          `json:"stock_code,omitempty"`
	Type          TradeType       `json:"type"`
	Shares        decimal.Decimal `json:"shares"`
	PricePerShare decimal.Decimal `json:"price_per_share"`
	Fees          decimal.Decimal `json:"fees"`
	TotalValue    decimal.Decimal `json:"total_value"`
	Iteration     *int            `json:"iteration,omitempty"`
	Date          time.Time       `json:"date"`
	CreatedAt     time.Time       `json:"created_at"`
	UpdatedAt     time.Time       `json:"updated_at"`
}

// IterationOrZero normalizes a missing iteration to cycle 0.
func (t *Trade) IterationOrZero() int {
	if t.Iteration == nil {
		return 0
	}
	return *t.Iteration
}
