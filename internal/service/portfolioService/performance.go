package portfolioService

import (
	"context"
	"log/slog"
	"math"
	"sort"
	"time"

	"github.com/vkarpov-dev/portfolio_analyzer/internal/model"
	"github.com/vkarpov-dev/portfolio_analyzer/utils"
)

const (
	metricTypePerformance = "performance"
	weeksPerYear          = 52.0
)

// CalculatePerformance builds the weekly valuation series over the whole
// ledger span and derives annualized return, volatility and Sharpe ratio.
// Invested amounts track contributions (cash transfers plus employer stock
// transfers) separately so market growth can be told apart from deposits.
func (s *Service) CalculatePerformance(ctx context.Context, userID string, ledger []model.Transaction) (result model.PerformanceResult, err error) {
	op := "PortfolioService.CalculatePerformance"
	rqID := utils.GetRequestIDFromCtx(ctx)
	slog.Debug("start", slog.String("op", op), slog.String("rqID", rqID), slog.String("userID", userID))
	defer func() {
		if err != nil {
			slog.Error("finished with error", slog.String("op", op), slog.String("rqID", rqID), slog.String("err", err.Error()))
		} else {
			slog.Debug("finished", slog.String("op", op), slog.String("rqID", rqID))
		}
	}()

	proc, err := newTransactionProcessor(ledger)
	if err != nil {
		return model.PerformanceResult{}, err
	}
	if proc.empty() {
		return model.PerformanceResult{Dates: []time.Time{}, PortfolioValues: []float64{}, InvestedAmounts: []float64{}}, nil
	}

	start, end := proc.firstDate(), proc.lastDate()
	fingerprint := proc.fingerprint()
	if cached, cacheErr := s.metricsCache.Get(ctx, userID, metricTypePerformance, fingerprint, start, end); cacheErr == nil {
		return cached, nil
	}

	byDate, err := s.HoldingsOverRange(ctx, userID, ledger, start, end, model.FreqWeekly)
	if err != nil {
		return model.PerformanceResult{}, err
	}

	dates := make([]time.Time, 0, len(byDate))
	for date := range byDate {
		dates = append(dates, date)
	}
	sort.Slice(dates, func(i, j int) bool { return dates[i].Before(dates[j]) })

	values := make([]float64, len(dates))
	invested := make([]float64, len(dates))
	contributed := 0.0
	next := 0
	for i, date := range dates {
		for next < len(proc.txns) && !proc.txns[next].Date.After(date) {
			t := proc.txns[next]
			switch {
			case t.Type == model.TxnTransfer && t.SecurityType == model.SecurityCash:
				amount, _ := t.SignedAmountOr(t.Units).Float64()
				contributed += amount
			case t.Type == model.TxnStockTransfer:
				amount, _ := t.Units.Mul(t.Price).Float64()
				contributed += amount
			}
			next++
		}
		total, _ := byDate[date].TotalMarketValue().Float64()
		values[i] = model.SafeFloat(total)
		invested[i] = model.SafeFloat(contributed)
	}

	result = model.PerformanceResult{
		Dates:           dates,
		PortfolioValues: values,
		InvestedAmounts: invested,
	}
	if len(values) >= 2 {
		result.Metrics = computeMetrics(values, s.cfg.RiskFreeRate)
		result.MetricsComputed = true
	}

	if cacheErr := s.metricsCache.Set(ctx, userID, metricTypePerformance, fingerprint, start, end, result); cacheErr != nil {
		slog.Warn("can't cache performance result", slog.String("op", op), slog.String("rqID", rqID), slog.String("err", cacheErr.Error()))
	}

	return result, nil
}

// computeMetrics derives the annualized metrics from week-over-week relative
// changes. Samples with a zero base are discarded rather than producing Inf.
func computeMetrics(values []float64, riskFreeRate float64) model.PerformanceMetrics {
	returns := make([]float64, 0, len(values)-1)
	for i := 1; i < len(values); i++ {
		if values[i-1] == 0 {
			continue
		}
		r := (values[i] - values[i-1]) / values[i-1]
		if math.IsNaN(r) || math.IsInf(r, 0) {
			continue
		}
		returns = append(returns, r)
	}
	if len(returns) == 0 {
		return model.PerformanceMetrics{}
	}

	cumulative := 1.0
	for _, r := range returns {
		cumulative *= 1 + r
	}
	if cumulative <= 0 {
		// wiped-out portfolio, annualizing is meaningless
		return model.PerformanceMetrics{}
	}

	annualized := math.Pow(cumulative, weeksPerYear/float64(len(returns))) - 1

	mean := 0.0
	for _, r := range returns {
		mean += r
	}
	mean /= float64(len(returns))
	variance := 0.0
	for _, r := range returns {
		variance += (r - mean) * (r - mean)
	}
	variance /= float64(len(returns))
	volatility := math.Sqrt(variance) * math.Sqrt(weeksPerYear)

	sharpe := 0.0
	if volatility > 0 {
		sharpe = (annualized - riskFreeRate) / volatility
	}

	return model.PerformanceMetrics{
		AnnualizedReturn: model.SafeFloat(annualized),
		Volatility:       model.SafeFloat(volatility),
		SharpeRatio:      model.SafeFloat(sharpe),
	}
}
