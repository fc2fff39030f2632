package model

import (
	"math"
	"time"
)

// FloatClamp bounds every float returned to callers so results stay
// JSON-serializable even after degenerate return arithmetic.
const FloatClamp = 1e300

type PerformanceMetrics struct {
	AnnualizedReturn float64 `json:"annualized_return"`
	Volatility       float64 `json:"volatility"`
	SharpeRatio      float64 `json:"sharpe_ratio"`
}

// PerformanceResult is the weekly valuation time series plus derived metrics.
// InvestedAmounts tracks cumulative contributions (cash transfers and employer
// stock transfers) separately from market performance.
type PerformanceResult struct {
	Dates            []time.Time        `json:"dates"`
	PortfolioValues  []float64          `json:"portfolio_values"`
	InvestedAmounts  []float64          `json:"invested_amounts"`
	Metrics          PerformanceMetrics `json:"metrics"`
	MetricsComputed  bool               `json:"metrics_computed"`
}

// SafeFloat coerces NaN/Inf to 0 and clamps the value into the serializable range.
func SafeFloat(v float64) float64 {
	if math.IsNaN(v) || math.IsInf(v, 0) {
		return 0.0
	}
	return math.Max(-FloatClamp, math.Min(FloatClamp, v))
}
