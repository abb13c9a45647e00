// Package portfolio turns an append-only trade ledger into position-level
// accounting: holdings, weighted-average cost basis, realized and
// unrealized profit, and wallet reconciliation.
//
// The engine is a pure function over immutable inputs. It performs no I/O,
// holds no state between calls, and is safe to invoke concurrently.
// Arithmetic never panics: zero denominators and missing market prices
// resolve to zero, optionally flagged on the affected group.
package portfolio

import (
	"sort"

	"github.com/shopspring/decimal"

	"github.com/MAshrafM/FinStat-sub000/internal/models"
)

// PriceMap supplies the current market price per stock code. A code absent
// from the map is treated as price zero.
type PriceMap map[string]decimal.Decimal

// Config carries the engine's tunables.
type Config struct {
	// MarginProfit is the display-only profit margin used for target
	// prices. Never enforced.
	MarginProfit decimal.Decimal
}

// DefaultConfig returns the engine defaults (20% profit margin).
func DefaultConfig() Config {
	return Config{MarginProfit: decimal.NewFromFloat(0.20)}
}

// Result is the full output of one computation.
type Result struct {
	OpenPositions   []PositionResult `json:"open_positions"`
	ClosedPositions []PositionResult `json:"closed_positions"`
	Summary         SummaryMetrics   `json:"summary_metrics"`
}

// ComputePositions reduces one owner's complete trade list into open and
// closed positions plus wallet-level summary metrics. The whole ledger is
// recomputed on every call; there is no incremental position state to
// drift out of sync.
func ComputePositions(trades []models.Trade, prices PriceMap, cfg Config) Result {
	groups, cash := aggregate(trades)

	var open, closed []PositionResult
	for _, g := range groups {
		cb := computeCostBasis(g)
		if cb.CurrentShares.IsPositive() {
			price, ok := prices[g.Key.StockCode]
			open = append(open, evaluateOpen(g, cb, price, ok, cfg))
		} else {
			closed = append(closed, evaluateClosed(g, cb))
		}
	}

	// Map iteration order is random; sort so recomputation on the same
	// ledger is bit-identical.
	sortResults(open)
	sortResults(closed)

	return Result{
		OpenPositions:   open,
		ClosedPositions: closed,
		Summary:         summarize(cash, open, closed),
	}
}

func sortResults(rs []PositionResult) {
	sort.Slice(rs, func(i, j int) bool {
		a, b := &rs[i], &rs[j]
		if a.Broker != b.Broker {
			return a.Broker < b.Broker
		}
		if a.StockCode != b.StockCode {
			return a.StockCode < b.StockCode
		}
		return a.Iteration < b.Iteration
	})
}
