package portfolioService

import (
	"fmt"
	"sort"
	"time"

	"github.com/vkarpov-dev/portfolio_analyzer/internal/marketdata"
	"github.com/vkarpov-dev/portfolio_analyzer/internal/model"
	"github.com/vkarpov-dev/portfolio_analyzer/internal/service"
)

// transactionProcessor holds a validated, date-sorted copy of the caller's
// ledger. All engines work off this view so sorting and validation happen once
// per request.
type transactionProcessor struct {
	txns    []model.Transaction
	symbols []string
}

func newTransactionProcessor(ledger []model.Transaction) (*transactionProcessor, error) {
	txns := make([]model.Transaction, len(ledger))
	copy(txns, ledger)

	for i := range txns {
		if txns[i].Date.IsZero() {
			return nil, fmt.Errorf("%w: row %d has no date", service.ErrBadTransaction, i)
		}
		if txns[i].Symbol == "" {
			return nil, fmt.Errorf("%w: row %d has no symbol", service.ErrBadTransaction, i)
		}
		if _, err := model.ParseTransactionType(string(txns[i].Type)); err != nil {
			return nil, fmt.Errorf("%w: row %d: %s", service.ErrBadTransaction, i, err.Error())
		}
		if _, err := model.ParseSecurityType(string(txns[i].SecurityType)); err != nil {
			return nil, fmt.Errorf("%w: row %d: %s", service.ErrBadTransaction, i, err.Error())
		}
		if txns[i].Units.IsNegative() {
			return nil, fmt.Errorf("%w: row %d has negative units", service.ErrBadTransaction, i)
		}
		if txns[i].Price.IsNegative() {
			return nil, fmt.Errorf("%w: row %d has negative price", service.ErrBadTransaction, i)
		}
		if txns[i].Fee.IsNegative() {
			return nil, fmt.Errorf("%w: row %d has negative fee", service.ErrBadTransaction, i)
		}
		txns[i].Date = marketdata.Day(txns[i].Date)
	}

	sort.SliceStable(txns, func(i, j int) bool {
		if !txns[i].Date.Equal(txns[j].Date) {
			return txns[i].Date.Before(txns[j].Date)
		}
		return txns[i].Symbol < txns[j].Symbol
	})

	seen := make(map[string]struct{})
	symbols := make([]string, 0)
	for _, t := range txns {
		if _, ok := seen[t.Symbol]; !ok {
			seen[t.Symbol] = struct{}{}
			symbols = append(symbols, t.Symbol)
		}
	}
	sort.Strings(symbols)

	return &transactionProcessor{txns: txns, symbols: symbols}, nil
}

func (p *transactionProcessor) empty() bool {
	return len(p.txns) == 0
}

func (p *transactionProcessor) firstDate() time.Time {
	return p.txns[0].Date
}

func (p *transactionProcessor) lastDate() time.Time {
	return p.txns[len(p.txns)-1].Date
}

// fingerprint identifies the ledger contents for cache keys. An upload that
// appends rows changes both the count and usually the max date, so keys built
// from a superseded ledger are never read again.
func (p *transactionProcessor) fingerprint() string {
	if p.empty() {
		return "0"
	}
	return fmt.Sprintf("%d-%s", len(p.txns), marketdata.FormatDay(p.lastDate()))
}

// transactionsUntil returns the prefix of transactions dated at or before date.
func (p *transactionProcessor) transactionsUntil(date time.Time) []model.Transaction {
	date = marketdata.Day(date)
	n := sort.Search(len(p.txns), func(i int) bool {
		return p.txns[i].Date.After(date)
	})
	return p.txns[:n]
}

// symbolsRequiringPrices lists symbols that need an external close price: the
// sentinels and anything traded as cash or fixed income are valued at fixed
// prices instead.
func (p *transactionProcessor) symbolsRequiringPrices() []string {
	fixed := map[string]bool{
		model.CashSymbol:        true,
		model.FixedIncomeSymbol: true,
	}
	for _, t := range p.txns {
		if t.SecurityType == model.SecurityCash || t.SecurityType == model.SecurityFixedIncome {
			fixed[t.Symbol] = true
		}
	}

	symbols := make([]string, 0, len(p.symbols))
	for _, symbol := range p.symbols {
		if !fixed[symbol] {
			symbols = append(symbols, symbol)
		}
	}
	return symbols
}

// runningBalances folds the whole ledger once per symbol and returns the final
// trajectory point for each, dated at the symbol's last transaction.
func (p *transactionProcessor) runningBalances() []model.RunningBalance {
	tallies := make(map[string]*symbolTally)
	lastDates := make(map[string]time.Time)
	for _, t := range p.txns {
		tally, ok := tallies[t.Symbol]
		if !ok {
			tally = &symbolTally{}
			tallies[t.Symbol] = tally
		}
		tally.apply(t)
		lastDates[t.Symbol] = t.Date
	}

	balances := make([]model.RunningBalance, 0, len(tallies))
	for _, symbol := range p.symbols {
		tally := tallies[symbol]
		balances = append(balances, model.RunningBalance{
			Symbol:         symbol,
			Date:           lastDates[symbol],
			RunningUnits:   tally.units,
			CostBasis:      tally.costBasis,
			RealizedGL:     tally.realized,
			DividendIncome: tally.dividends,
			OptionGL:       tally.optionGL,
		})
	}
	return balances
}
