package model

import (
	"time"

	"github.com/shopspring/decimal"
)

// Holding is a reconstructed position as of a snapshot date.
type Holding struct {
	Symbol       string          `json:"symbol"`
	Units        decimal.Decimal `json:"units"`
	CostBasis    decimal.Decimal `json:"cost_basis"`
	LastPrice    decimal.Decimal `json:"last_price"`
	MarketValue  decimal.Decimal `json:"market_value"`
	Weight       float64         `json:"weight"`
	SecurityType SecurityType    `json:"security_type"`
	// PriceStale marks a holding whose external price lookup failed: its
	// LastPrice is a 0.0 fallback, not a true market zero.
	PriceStale bool      `json:"price_stale"`
	LastUpdate time.Time `json:"last_update"`
}

// Holdings maps symbol to position for one snapshot date.
type Holdings map[string]Holding

// TotalMarketValue sums market value over all positions, cash included.
func (h Holdings) TotalMarketValue() decimal.Decimal {
	total := decimal.Zero
	for _, holding := range h {
		total = total.Add(holding.MarketValue)
	}
	return total
}

// HoldingsByDate is the range-mode result: one snapshot per period endpoint.
type HoldingsByDate map[time.Time]Holdings

type Frequency string

const (
	FreqDaily   Frequency = "D"
	FreqWeekly  Frequency = "W"
	FreqMonthly Frequency = "M"
)

// RunningBalance is the per-symbol trajectory point persisted by the
// transaction processor so later queries can resume from a snapshot.
type RunningBalance struct {
	Symbol         string
	Date           time.Time
	RunningUnits   decimal.Decimal
	CostBasis      decimal.Decimal
	RealizedGL     decimal.Decimal
	DividendIncome decimal.Decimal
	OptionGL       decimal.Decimal
}
