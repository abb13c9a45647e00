package portfolio

import (
	"time"

	"github.com/shopspring/decimal"

	"github.com/MAshrafM/FinStat-sub000/internal/models"
)

// GroupKey identifies one ownership cycle of a stock at a broker.
// Iteration is an opaque counter from the data-entry layer; the engine
// never infers it.
type GroupKey struct {
	Broker    models.Broker `json:"broker"`
	StockCode string        `json:"stock_code"`
	Iteration int           `json:"iteration"`
}

// PositionGroup accumulates the raw sums for one group key. It is derived
// from the ledger on every computation and never persisted.
type PositionGroup struct {
	Key                 GroupKey
	TotalBuyValue       decimal.Decimal
	TotalSellValue      decimal.Decimal
	TotalDividendValue  decimal.Decimal
	TotalSharesBought   decimal.Decimal
	TotalSharesSold     decimal.Decimal
	TotalSharesDividend decimal.Decimal
	TotalFees           decimal.Decimal
	TradeCount          int
	FirstTradeDate      time.Time
	LastTradeDate       time.Time

	// Most recent Sell in the group, kept for the exit-price display on
	// closed positions.
	lastSellDate  time.Time
	lastSellPrice decimal.Decimal
}

// aggregate folds the full ledger into per-group sums plus the cash-only
// subset (top-ups and withdrawals). The fold is commutative: input order
// only matters for resolving min/max dates, which are compared explicitly.
func aggregate(trades []models.Trade) (map[GroupKey]*PositionGroup, []models.Trade) {
	groups := make(map[GroupKey]*PositionGroup)
	var cash []models.Trade

	for i := range trades {
		t := &trades[i]
		if t.Type.IsCash() {
			cash = append(cash, *t)
			continue
		}

		key := GroupKey{Broker: t.Broker, StockCode: t.StockCode, Iteration: t.IterationOrZero()}
		g, ok := groups[key]
		if !ok {
			g = &PositionGroup{Key: key, FirstTradeDate: t.Date, LastTradeDate: t.Date}
			groups[key] = g
		}
		g.apply(t)
	}

	return groups, cash
}

// apply folds a single trade into the group sums.
func (g *PositionGroup) apply(t *models.Trade) {
	switch t.Type {
	case models.TradeTypeBuy:
		g.TotalBuyValue = g.TotalBuyValue.Add(t.TotalValue)
		g.TotalSharesBought = g.TotalSharesBought.Add(t.Shares)
	case models.TradeTypeSell:
		g.TotalSellValue = g.TotalSellValue.Add(t.TotalValue)
		g.TotalSharesSold = g.TotalSharesSold.Add(t.Shares)
		if g.lastSellDate.IsZero() || t.Date.After(g.lastSellDate) {
			g.lastSellDate = t.Date
			g.lastSellPrice = t.PricePerShare
		}
	case models.TradeTypeDividend:
		// Stock dividends are zero-cost share additions; cash dividends
		// carry value with zero shares. Both fold the same way.
		g.TotalDividendValue = g.TotalDividendValue.Add(t.TotalValue)
		g.TotalSharesDividend = g.TotalSharesDividend.Add(t.Shares)
	}

	g.TotalFees = g.TotalFees.Add(t.Fees)
	g.TradeCount++
	if t.Date.Before(g.FirstTradeDate) {
		g.FirstTradeDate = t.Date
	}
	if t.Date.After(g.LastTradeDate) {
		g.LastTradeDate = t.Date
	}
}
