package portfolio

import "github.com/shopspring/decimal"

// safeDiv divides a by b, resolving a zero denominator to zero instead of
// panicking. Every division in the engine goes through here so the
// degrade-to-zero policy stays in one place.
func safeDiv(a, b decimal.Decimal) decimal.Decimal {
	if b.IsZero() {
		return decimal.Zero
	}
	return a.Div(b)
}

// costBasis holds the weighted-average pricing derived from one group's sums.
type costBasis struct {
	CurrentShares    decimal.Decimal
	AverageBuyPrice  decimal.Decimal
	AdjustedAvgPrice decimal.Decimal
	CostOfSoldShares decimal.Decimal
	NetBreakEven     decimal.Decimal

	// Clamped is set when the share count went negative, which means the
	// manually entered ledger sold more than it ever bought.
	Clamped bool
}

// computeCostBasis derives average cost figures for a group. Weighted
// average only; there is no lot tracking.
func computeCostBasis(g *PositionGroup) costBasis {
	var cb costBasis

	cb.CurrentShares = g.TotalSharesBought.Add(g.TotalSharesDividend).Sub(g.TotalSharesSold)
	if cb.CurrentShares.IsNegative() {
		cb.CurrentShares = decimal.Zero
		cb.Clamped = true
	}

	cb.AverageBuyPrice = safeDiv(g.TotalBuyValue, g.TotalSharesBought)

	// Dividends reduce basis while adding shares.
	adjustedShares := g.TotalSharesBought.Add(g.TotalSharesDividend)
	if adjustedShares.IsPositive() {
		cb.AdjustedAvgPrice = g.TotalBuyValue.Sub(g.TotalDividendValue).Div(adjustedShares)
	}

	cb.CostOfSoldShares = g.TotalSharesSold.Mul(cb.AverageBuyPrice)

	// Per-remaining-share price at which cumulative cash flow nets to zero.
	if cb.CurrentShares.IsPositive() {
		netCost := g.TotalBuyValue.Sub(g.TotalSellValue.Add(g.TotalDividendValue))
		cb.NetBreakEven = netCost.Div(cb.CurrentShares)
	}

	return cb
}
