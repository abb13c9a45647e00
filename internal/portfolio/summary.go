package portfolio

import (
	"github.com/shopspring/decimal"

	"github.com/MAshrafM/FinStat-sub000/internal/models"
)

// SummaryMetrics are the wallet-level figures folded from cash trades and
// all position groups.
type SummaryMetrics struct {
	TopUps         decimal.Decimal `json:"top_ups"`
	Withdraws      decimal.Decimal `json:"withdraws"`
	TotalFees      decimal.Decimal `json:"total_fees"`
	TotalTrades    decimal.Decimal `json:"total_trades"`
	TotalTradesNow decimal.Decimal `json:"total_trades_now"`
	WalletBalance  decimal.Decimal `json:"wallet_balance"`
	RealizedProfit decimal.Decimal `json:"realized_profit"`
	TotalProfitNow decimal.Decimal `json:"total_profit_now"`
}

// summarize folds cash-only trades and the evaluated groups into wallet
// metrics. Pure fold, recomputed in full on every call.
func summarize(cash []models.Trade, open, closed []PositionResult) SummaryMetrics {
	var m SummaryMetrics

	for i := range cash {
		t := &cash[i]
		switch t.Type {
		case models.TradeTypeTopUp:
			m.TopUps = m.TopUps.Add(t.TotalValue)
		case models.TradeTypeWithdraw:
			m.Withdraws = m.Withdraws.Add(t.TotalValue)
		}
		m.TotalFees = m.TotalFees.Add(t.Fees)
	}

	var buys, sells, dividends decimal.Decimal
	fold := func(r *PositionResult) {
		buys = buys.Add(r.TotalBuyValue)
		sells = sells.Add(r.TotalSellValue)
		dividends = dividends.Add(r.TotalDividendValue)
		m.TotalFees = m.TotalFees.Add(r.TotalFees)
		m.RealizedProfit = m.RealizedProfit.Add(r.RealizedPL)
	}
	for i := range open {
		fold(&open[i])
		m.TotalTrades = m.TotalTrades.Add(open[i].TotDeals)
		m.TotalTradesNow = m.TotalTradesNow.Add(open[i].TotalValueNow)
	}
	for i := range closed {
		fold(&closed[i])
	}

	m.WalletBalance = m.TopUps.Add(sells).Add(dividends).
		Sub(buys).Sub(m.Withdraws).Sub(m.TotalFees)

	// Paper value of open positions plus remaining cash, versus net cash
	// put into the wallet.
	m.TotalProfitNow = m.TotalTradesNow.Add(m.WalletBalance).
		Sub(m.TopUps.Sub(m.Withdraws))

	return m
}
