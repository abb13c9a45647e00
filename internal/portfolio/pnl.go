package portfolio

import (
	"time"

	"github.com/shopspring/decimal"

	"github.com/MAshrafM/FinStat-sub000/internal/models"
)

// PositionResult is the fully evaluated view of one position group. Open
// positions carry market-dependent fields (market price, unrealized P/L,
// targets); closed positions carry the exit figures instead.
type PositionResult struct {
	Broker    models.Broker `json:"broker"`
	StockCode string        `json:"stock_code"`
	Iteration int           `json:"iteration"`

	TotalBuyValue       decimal.Decimal `json:"total_buy_value"`
	TotalSellValue      decimal.Decimal `json:"total_sell_value"`
	TotalDividendValue  decimal.Decimal `json:"total_dividend_value"`
	TotalSharesBought   decimal.Decimal `json:"total_shares_bought"`
	TotalSharesSold     decimal.Decimal `json:"total_shares_sold"`
	TotalSharesDividend decimal.Decimal `json:"total_shares_dividend"`
	TotalFees           decimal.Decimal `json:"total_fees"`
	TradeCount          int             `json:"trade_count"`
	FirstTradeDate      time.Time       `json:"first_trade_date"`
	LastTradeDate       time.Time       `json:"last_trade_date"`

	CurrentShares     decimal.Decimal `json:"current_shares"`
	AverageBuyPrice   decimal.Decimal `json:"average_buy_price"`
	AdjustedAvgPrice  decimal.Decimal `json:"adjusted_avg_price"`
	CostOfSoldShares  decimal.Decimal `json:"cost_of_sold_shares"`
	NetBreakEvenPrice decimal.Decimal `json:"net_break_even_price"`

	RealizedPL decimal.Decimal `json:"realized_pl"`

	// Open positions only.
	MarketPrice     decimal.Decimal `json:"market_price"`
	TotalValueNow   decimal.Decimal `json:"total_value_now"`
	UnrealizedPL    decimal.Decimal `json:"unrealized_pl"`
	TotDeals        decimal.Decimal `json:"tot_deals"`
	ChangeNow       decimal.Decimal `json:"change_now"`
	TargetPrice     decimal.Decimal `json:"target_price"`
	BreakEvenTarget decimal.Decimal `json:"break_even_target"`

	// Closed positions only.
	ProfitPercentage decimal.Decimal `json:"profit_percentage"`
	SellingPrice     decimal.Decimal `json:"selling_price"`

	// Non-fatal flags surfaced to the presentation layer.
	PriceUnavailable     bool `json:"price_unavailable,omitempty"`
	DataIntegrityWarning bool `json:"data_integrity_warning,omitempty"`
}

// baseResult copies the group sums and cost basis into a result shell.
func baseResult(g *PositionGroup, cb costBasis) PositionResult {
	return PositionResult{
		Broker:               g.Key.Broker,
		StockCode:            g.Key.StockCode,
		Iteration:            g.Key.Iteration,
		TotalBuyValue:        g.TotalBuyValue,
		TotalSellValue:       g.TotalSellValue,
		TotalDividendValue:   g.TotalDividendValue,
		TotalSharesBought:    g.TotalSharesBought,
		TotalSharesSold:      g.TotalSharesSold,
		TotalSharesDividend:  g.TotalSharesDividend,
		TotalFees:            g.TotalFees,
		TradeCount:           g.TradeCount,
		FirstTradeDate:       g.FirstTradeDate,
		LastTradeDate:        g.LastTradeDate,
		CurrentShares:        cb.CurrentShares,
		AverageBuyPrice:      cb.AverageBuyPrice,
		AdjustedAvgPrice:     cb.AdjustedAvgPrice,
		CostOfSoldShares:     cb.CostOfSoldShares,
		NetBreakEvenPrice:    cb.NetBreakEven,
		RealizedPL:           realizedPL(g, cb),
		DataIntegrityWarning: cb.Clamped,
	}
}

// realizedPL is the profit already locked in: sells above weighted-average
// cost plus dividends received. The same formula serves open and closed
// groups.
func realizedPL(g *PositionGroup, cb costBasis) decimal.Decimal {
	return g.TotalSellValue.Sub(cb.CostOfSoldShares).Add(g.TotalDividendValue)
}

// evaluateOpen computes the market-dependent figures for a group that still
// holds shares. A missing market price computes as zero and sets the
// PriceUnavailable flag.
func evaluateOpen(g *PositionGroup, cb costBasis, price decimal.Decimal, priceKnown bool, cfg Config) PositionResult {
	r := baseResult(g, cb)
	r.PriceUnavailable = !priceKnown

	r.MarketPrice = price
	r.TotalValueNow = price.Mul(cb.CurrentShares)
	r.UnrealizedPL = r.TotalValueNow.Sub(cb.AverageBuyPrice.Mul(cb.CurrentShares))

	// Net cash still invested in the group; negative means the group has
	// already returned more cash than it consumed.
	r.TotDeals = g.TotalBuyValue.Sub(g.TotalSellValue.Add(g.TotalDividendValue))

	breakEvenCost := cb.NetBreakEven.Mul(cb.CurrentShares)
	if breakEvenCost.IsPositive() {
		r.ChangeNow = r.TotalValueNow.Sub(breakEvenCost).Div(breakEvenCost)
	} else {
		// Degenerate fallback for groups whose break-even cost is already
		// non-positive. Known quirk: dimensionally different from the
		// primary formula.
		r.ChangeNow = safeDiv(r.TotDeals.Neg(), r.TotalValueNow)
	}

	factor := decimal.NewFromInt(1).Add(cfg.MarginProfit)
	r.TargetPrice = cb.AverageBuyPrice.Mul(factor)
	r.BreakEvenTarget = cb.NetBreakEven.Mul(factor)

	return r
}

// evaluateClosed computes the exit figures for a fully sold group.
func evaluateClosed(g *PositionGroup, cb costBasis) PositionResult {
	r := baseResult(g, cb)

	denom := cb.CostOfSoldShares
	if denom.IsZero() {
		denom = g.TotalSellValue
	}
	r.ProfitPercentage = safeDiv(r.RealizedPL, denom)
	r.SellingPrice = g.lastSellPrice

	return r
}
