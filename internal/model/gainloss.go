package model

import (
	"time"

	"github.com/shopspring/decimal"
)

// GainLossRecord aggregates realized and unrealized results for one symbol over
// the whole ledger. Invariant: TotalReturn = RealizedGainLoss + UnrealizedGainLoss
// + DividendIncome + OptionGainLoss.
type GainLossRecord struct {
	CurrentUnits       decimal.Decimal `json:"current_units"`
	MarketValue        decimal.Decimal `json:"market_value"`
	TotalCostBasis     decimal.Decimal `json:"total_cost_basis"`
	AdjustedCostBasis  decimal.Decimal `json:"adjusted_cost_basis"`
	RealizedGainLoss   decimal.Decimal `json:"realized_gain_loss"`
	UnrealizedGainLoss decimal.Decimal `json:"unrealized_gain_loss"`
	DividendIncome     decimal.Decimal `json:"dividend_income"`
	OptionGainLoss     decimal.Decimal `json:"option_gain_loss"`
	TotalReturn        decimal.Decimal `json:"total_return"`
	// Percentages are cost-basis-relative and 0 when the basis is 0.
	UnrealizedGainLossPct float64         `json:"unrealized_gain_loss_pct"`
	TotalReturnPct        float64         `json:"total_return_pct"`
	LastPrice             decimal.Decimal `json:"last_price"`
	LastUpdate            time.Time       `json:"last_update"`
}
