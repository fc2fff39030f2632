package portfolioService

import (
	"context"
	"log/slog"
	"time"

	"github.com/shopspring/decimal"
	"github.com/vkarpov-dev/portfolio_analyzer/internal/marketdata"
	"github.com/vkarpov-dev/portfolio_analyzer/internal/model"
	"github.com/vkarpov-dev/portfolio_analyzer/utils"
)

// CalculateStockHoldings reconstructs the portfolio as of today.
func (s *Service) CalculateStockHoldings(ctx context.Context, userID string, ledger []model.Transaction) (model.Holdings, error) {
	return s.HoldingsAsOf(ctx, userID, ledger, s.now())
}

// HoldingsAsOf replays every transaction dated at or before asOf and returns
// the priced snapshot. Results are memoized per (user, ledger fingerprint, date).
func (s *Service) HoldingsAsOf(ctx context.Context, userID string, ledger []model.Transaction, asOf time.Time) (holdings model.Holdings, err error) {
	op := "PortfolioService.HoldingsAsOf"
	rqID := utils.GetRequestIDFromCtx(ctx)
	asOf = marketdata.Day(asOf)
	slog.Debug("start", slog.String("op", op), slog.String("rqID", rqID), slog.String("userID", userID), slog.String("date", marketdata.FormatDay(asOf)))
	defer func() {
		if err != nil {
			slog.Error("finished with error", slog.String("op", op), slog.String("rqID", rqID), slog.String("err", err.Error()))
		} else {
			slog.Debug("finished", slog.String("op", op), slog.String("rqID", rqID))
		}
	}()

	proc, err := newTransactionProcessor(ledger)
	if err != nil {
		return nil, err
	}
	if proc.empty() {
		return model.Holdings{}, nil
	}

	fingerprint := proc.fingerprint()
	if cached, cacheErr := s.holdingsCache.Get(ctx, userID, fingerprint, asOf); cacheErr == nil {
		return cached, nil
	}

	s.persistBalances(ctx, userID, proc)

	var prices map[string]model.PriceSeries
	if symbols := proc.symbolsRequiringPrices(); len(symbols) > 0 {
		prices = s.prices.PricesBatch(ctx, symbols, asOf, asOf)
	}

	holdings = s.buildSnapshot(ctx, proc.transactionsUntil(asOf), asOf, prices)

	if cacheErr := s.holdingsCache.Set(ctx, userID, fingerprint, asOf, holdings); cacheErr != nil {
		slog.Warn("can't cache holdings snapshot", slog.String("op", op), slog.String("rqID", rqID), slog.String("err", cacheErr.Error()))
	}

	return holdings, nil
}

// HoldingsOverRange computes one snapshot per period endpoint between start and
// end. All required prices are fetched in a single batch so the external call
// count stays proportional to the number of symbols, not symbols times dates.
func (s *Service) HoldingsOverRange(ctx context.Context, userID string, ledger []model.Transaction, start, end time.Time, freq model.Frequency) (result model.HoldingsByDate, err error) {
	op := "PortfolioService.HoldingsOverRange"
	rqID := utils.GetRequestIDFromCtx(ctx)
	start, end = marketdata.Day(start), marketdata.Day(end)
	slog.Debug("start", slog.String("op", op), slog.String("rqID", rqID), slog.String("userID", userID),
		slog.String("from", marketdata.FormatDay(start)), slog.String("to", marketdata.FormatDay(end)), slog.String("freq", string(freq)))
	defer func() {
		if err != nil {
			slog.Error("finished with error", slog.String("op", op), slog.String("rqID", rqID), slog.String("err", err.Error()))
		} else {
			slog.Debug("finished", slog.String("op", op), slog.String("rqID", rqID))
		}
	}()

	proc, err := newTransactionProcessor(ledger)
	if err != nil {
		return nil, err
	}
	if proc.empty() {
		return model.HoldingsByDate{start: model.Holdings{}}, nil
	}

	dates := periodEndpoints(start, end, freq)
	result = make(model.HoldingsByDate, len(dates))
	if len(dates) == 0 {
		return result, nil
	}

	fingerprint := proc.fingerprint()
	missing := make([]time.Time, 0, len(dates))
	for _, date := range dates {
		if cached, cacheErr := s.holdingsCache.Get(ctx, userID, fingerprint, date); cacheErr == nil {
			result[date] = cached
		} else {
			missing = append(missing, date)
		}
	}
	if len(missing) == 0 {
		return result, nil
	}

	s.persistBalances(ctx, userID, proc)

	var prices map[string]model.PriceSeries
	if symbols := proc.symbolsRequiringPrices(); len(symbols) > 0 {
		prices = s.prices.PricesBatch(ctx, symbols, dates[0], dates[len(dates)-1])
	}

	for _, date := range missing {
		snapshot := s.buildSnapshot(ctx, proc.transactionsUntil(date), date, prices)
		result[date] = snapshot
		if cacheErr := s.holdingsCache.Set(ctx, userID, fingerprint, date, snapshot); cacheErr != nil {
			slog.Warn("can't cache holdings snapshot", slog.String("op", op), slog.String("rqID", rqID), slog.String("err", cacheErr.Error()))
		}
	}

	return result, nil
}

func (s *Service) persistBalances(ctx context.Context, userID string, proc *transactionProcessor) {
	if err := s.balances.ReplaceBalances(ctx, userID, proc.runningBalances()); err != nil {
		slog.Warn("can't persist running balances",
			slog.String("rqID", utils.GetRequestIDFromCtx(ctx)), slog.String("userID", userID), slog.String("err", err.Error()))
	}
}

type position struct {
	units        decimal.Decimal
	costBasis    decimal.Decimal
	securityType model.SecurityType
}

// buildSnapshot replays txns through the transaction-type dispatch and prices
// the resulting positions as of the snapshot date.
func (s *Service) buildSnapshot(ctx context.Context, txns []model.Transaction, asOf time.Time, prices map[string]model.PriceSeries) model.Holdings {
	rqID := utils.GetRequestIDFromCtx(ctx)

	positions := make(map[string]*position)
	cash := decimal.Zero
	pos := func(t model.Transaction) *position {
		p, ok := positions[t.Symbol]
		if !ok {
			p = &position{securityType: t.SecurityType}
			positions[t.Symbol] = p
		}
		return p
	}

	for _, t := range txns {
		switch {
		case t.Type == model.TxnBuy || t.Type == model.TxnReinvest || t.Type == model.TxnStockTransfer:
			p := pos(t)
			gross := t.Units.Mul(t.Price).Add(t.Fee)
			p.units = p.units.Add(t.Units)
			p.costBasis = p.costBasis.Add(gross)
			if t.Type != model.TxnStockTransfer {
				cash = cash.Sub(t.CashAmountOr(gross))
			}
		case t.Type == model.TxnSell:
			p := pos(t)
			if p.units.IsPositive() {
				costPerUnit := p.costBasis.Div(p.units)
				p.costBasis = p.costBasis.Sub(t.Units.Mul(costPerUnit))
				p.units = p.units.Sub(t.Units)
			}
			cash = cash.Add(t.CashAmountOr(t.Units.Mul(t.Price).Sub(t.Fee)))
		case t.Type == model.TxnTransfer && t.SecurityType == model.SecurityCash:
			cash = cash.Add(t.SignedAmountOr(t.Units))
		case t.Type == model.TxnDividend || t.Type == model.TxnInterest:
			cash = cash.Add(t.CashAmountOr(t.Units))
		case t.Type.IsOptionLeg():
			premium := t.CashAmountOr(t.Units.Mul(t.Price).Sub(t.Fee))
			if t.Type.IsOptionCredit() {
				cash = cash.Add(premium)
			} else {
				cash = cash.Sub(premium)
			}
		case t.Type == model.TxnSplit && t.SecurityType == model.SecurityStock:
			p := pos(t)
			p.units = p.units.Add(t.Units)
		default:
			// assigned, expired, adjustment, other: no position or cash effect
		}
	}

	// fold explicit cash-sentinel rows into the synthetic cash position
	cashPos, ok := positions[model.CashSymbol]
	if !ok {
		cashPos = &position{securityType: model.SecurityCash}
		positions[model.CashSymbol] = cashPos
	}
	cashPos.units = cashPos.units.Add(cash)
	cashPos.costBasis = cashPos.units

	holdings := make(model.Holdings, len(positions))
	for symbol, p := range positions {
		if p.units.IsZero() && symbol != model.CashSymbol {
			continue
		}

		price := decimal.Zero
		stale := false
		switch {
		case symbol == model.CashSymbol || p.securityType == model.SecurityCash:
			price = model.CashPrice
		case symbol == model.FixedIncomeSymbol || p.securityType == model.SecurityFixedIncome:
			price = model.FixedIncomePrice
		default:
			if close, found := prices[symbol].LastOnOrBefore(asOf); found {
				price = close
			} else {
				slog.Warn("no price for symbol, valuing position at zero",
					slog.String("rqID", rqID), slog.String("symbol", symbol), slog.String("date", marketdata.FormatDay(asOf)))
				stale = true
			}
		}

		holdings[symbol] = model.Holding{
			Symbol:       symbol,
			Units:        p.units,
			CostBasis:    p.costBasis,
			LastPrice:    price,
			MarketValue:  p.units.Mul(price),
			SecurityType: p.securityType,
			PriceStale:   stale,
			LastUpdate:   asOf,
		}
	}

	total := holdings.TotalMarketValue()
	for symbol, holding := range holdings {
		if total.IsPositive() {
			holding.Weight, _ = holding.MarketValue.Div(total).Float64()
		}
		holdings[symbol] = holding
	}

	return holdings
}

// periodEndpoints lists snapshot dates for range mode: every day, each Sunday
// inside the range, or the last calendar day of each month. No label ever
// falls outside [start, end].
func periodEndpoints(start, end time.Time, freq model.Frequency) []time.Time {
	if end.Before(start) {
		return nil
	}

	var dates []time.Time
	switch freq {
	case model.FreqWeekly:
		d := start
		for d.Weekday() != time.Sunday {
			d = d.AddDate(0, 0, 1)
		}
		for !d.After(end) {
			dates = append(dates, d)
			d = d.AddDate(0, 0, 7)
		}
	case model.FreqMonthly:
		d := time.Date(start.Year(), start.Month(), 1, 0, 0, 0, 0, time.UTC).AddDate(0, 1, -1)
		for !d.After(end) {
			if !d.Before(start) {
				dates = append(dates, d)
			}
			d = time.Date(d.Year(), d.Month(), 1, 0, 0, 0, 0, time.UTC).AddDate(0, 2, -1)
		}
	default:
		for d := start; !d.After(end); d = d.AddDate(0, 0, 1) {
			dates = append(dates, d)
		}
	}
	return dates
}
