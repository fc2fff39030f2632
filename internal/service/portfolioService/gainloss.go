package portfolioService

import (
	"context"
	"log/slog"

	"github.com/shopspring/decimal"
	"github.com/vkarpov-dev/portfolio_analyzer/internal/marketdata"
	"github.com/vkarpov-dev/portfolio_analyzer/internal/model"
	"github.com/vkarpov-dev/portfolio_analyzer/utils"
)

// symbolTally is the per-symbol accumulator shared by the gain/loss fold and
// the persisted running-balance trajectory.
type symbolTally struct {
	units     decimal.Decimal
	costBasis decimal.Decimal
	realized  decimal.Decimal
	dividends decimal.Decimal
	optionGL  decimal.Decimal
}

func (a *symbolTally) apply(t model.Transaction) {
	switch {
	case t.Type == model.TxnBuy || t.Type == model.TxnReinvest || t.Type == model.TxnStockTransfer:
		a.units = a.units.Add(t.Units)
		a.costBasis = a.costBasis.Add(t.Units.Mul(t.Price).Add(t.Fee))
	case t.Type == model.TxnSell:
		if a.units.IsPositive() {
			costPerUnit := a.costBasis.Div(a.units)
			a.realized = a.realized.Add(t.Units.Mul(t.Price.Sub(costPerUnit))).Sub(t.Fee)
			a.costBasis = a.costBasis.Sub(t.Units.Mul(costPerUnit))
			a.units = a.units.Sub(t.Units)
		}
	case t.Type == model.TxnDividend:
		// interest credits cash in the holdings replay but is not income
		// attributable to a position
		a.dividends = a.dividends.Add(t.CashAmountOr(t.Units))
	case t.Type.IsOptionLeg():
		premium := t.CashAmountOr(t.Units.Mul(t.Price).Sub(t.Fee))
		if t.Type.IsOptionCredit() {
			a.optionGL = a.optionGL.Add(premium)
		} else {
			a.optionGL = a.optionGL.Sub(premium)
		}
	case t.Type == model.TxnSplit && t.SecurityType == model.SecurityStock:
		a.units = a.units.Add(t.Units)
	}
}

// CalculateGainLoss folds each ledger symbol chronologically into realized and
// unrealized results. Current units and prices come from the holdings snapshot
// at today, so both views agree on valuation.
func (s *Service) CalculateGainLoss(ctx context.Context, userID string, ledger []model.Transaction) (records map[string]model.GainLossRecord, err error) {
	op := "PortfolioService.CalculateGainLoss"
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
		return nil, err
	}
	if proc.empty() {
		return map[string]model.GainLossRecord{}, nil
	}

	holdings, err := s.HoldingsAsOf(ctx, userID, ledger, s.now())
	if err != nil {
		return nil, err
	}

	tallies := make(map[string]*symbolTally, len(proc.symbols))
	for _, t := range proc.txns {
		tally, ok := tallies[t.Symbol]
		if !ok {
			tally = &symbolTally{}
			tallies[t.Symbol] = tally
		}
		tally.apply(t)
	}

	asOf := marketdata.Day(s.now())
	records = make(map[string]model.GainLossRecord, len(tallies))
	for _, symbol := range proc.symbols {
		tally := tallies[symbol]
		holding := holdings[symbol]
		if holding.LastUpdate.IsZero() {
			// position fully closed, keep the snapshot date anyway
			holding.LastUpdate = asOf
		}

		sentinel := symbol == model.CashSymbol || symbol == model.FixedIncomeSymbol
		totalCostBasis := tally.costBasis
		if sentinel {
			totalCostBasis = holding.Units
		}

		adjustedCostBasis := totalCostBasis
		if !sentinel {
			adjustedCostBasis = totalCostBasis.Sub(tally.realized).Sub(tally.dividends).Sub(tally.optionGL)
		}

		marketValue := holding.Units.Mul(holding.LastPrice)
		unrealized := decimal.Zero
		if holding.Units.IsPositive() {
			unrealized = marketValue.Sub(totalCostBasis)
		}

		totalReturn := tally.realized.Add(unrealized).Add(tally.dividends).Add(tally.optionGL)

		var unrealizedPct, totalReturnPct float64
		if !totalCostBasis.IsZero() {
			unrealizedPct, _ = unrealized.Div(totalCostBasis).Float64()
			totalReturnPct, _ = totalReturn.Div(totalCostBasis).Float64()
		}

		records[symbol] = model.GainLossRecord{
			CurrentUnits:          holding.Units,
			MarketValue:           marketValue,
			TotalCostBasis:        totalCostBasis,
			AdjustedCostBasis:     adjustedCostBasis,
			RealizedGainLoss:      tally.realized,
			UnrealizedGainLoss:    unrealized,
			DividendIncome:        tally.dividends,
			OptionGainLoss:        tally.optionGL,
			TotalReturn:           totalReturn,
			UnrealizedGainLossPct: model.SafeFloat(unrealizedPct),
			TotalReturnPct:        model.SafeFloat(totalReturnPct),
			LastPrice:             holding.LastPrice,
			LastUpdate:            holding.LastUpdate,
		}
	}

	return records, nil
}
