package portfolioService

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"github.com/vkarpov-dev/portfolio_analyzer/internal/marketdata"
	"github.com/vkarpov-dev/portfolio_analyzer/internal/model"
)

func TestProcessorSortsAndIndexes(t *testing.T) {
	ledger := []model.Transaction{
		txn("2024-12-31", "SWVXX", model.TxnReinvest, "16.19", "1.00", "0", model.SecurityCash),
		txn("2024-11-08", "KO", model.TxnBuy, "100", "66.00", "0", model.SecurityStock),
		txn("2024-11-15", "KO", model.TxnSell, "50", "70.00", "0", model.SecurityStock),
	}

	proc, err := newTransactionProcessor(ledger)
	require.NoError(t, err)

	assert.Equal(t, marketdata.MustDay("2024-11-08"), proc.firstDate())
	assert.Equal(t, marketdata.MustDay("2024-12-31"), proc.lastDate())
	assert.Equal(t, []string{"KO", "SWVXX"}, proc.symbols)

	until := proc.transactionsUntil(marketdata.MustDay("2024-11-30"))
	assert.Len(t, until, 2)
	// the caller's slice is untouched
	assert.Equal(t, "SWVXX", ledger[0].Symbol)
}

func TestProcessorSymbolsRequiringPrices(t *testing.T) {
	ledger := []model.Transaction{
		txn("2024-11-08", "KO", model.TxnBuy, "100", "66.00", "0", model.SecurityStock),
		txn("2024-11-08", "SWVXX", model.TxnReinvest, "10", "1.00", "0", model.SecurityCash),
		txn("2024-11-08", model.FixedIncomeSymbol, model.TxnBuy, "5", "100.00", "0", model.SecurityFixedIncome),
		txn("2024-11-08", model.CashSymbol, model.TxnTransfer, "1000", "0", "0", model.SecurityCash),
	}

	proc, err := newTransactionProcessor(ledger)
	require.NoError(t, err)

	assert.Equal(t, []string{"KO"}, proc.symbolsRequiringPrices())
}

func TestProcessorFingerprintChangesWithLedger(t *testing.T) {
	base := []model.Transaction{
		txn("2024-11-08", "KO", model.TxnBuy, "100", "66.00", "0", model.SecurityStock),
	}
	grown := append(append([]model.Transaction{}, base...),
		txn("2024-12-31", "KO", model.TxnBuy, "10", "70.00", "0", model.SecurityStock))

	procBase, err := newTransactionProcessor(base)
	require.NoError(t, err)
	procGrown, err := newTransactionProcessor(grown)
	require.NoError(t, err)

	assert.NotEqual(t, procBase.fingerprint(), procGrown.fingerprint())
}

func TestProcessorRunningBalances(t *testing.T) {
	ledger := []model.Transaction{
		txn("2024-11-08", "KO", model.TxnBuy, "100", "66.00", "0", model.SecurityStock),
		txn("2024-11-15", "KO", model.TxnSell, "50", "70.00", "0", model.SecurityStock),
		txn("2024-12-02", "KO", model.TxnDividend, "48.50", "0", "0", model.SecurityStock),
	}

	proc, err := newTransactionProcessor(ledger)
	require.NoError(t, err)

	balances := proc.runningBalances()
	require.Len(t, balances, 1)

	ko := balances[0]
	assert.Equal(t, "KO", ko.Symbol)
	assert.Equal(t, marketdata.MustDay("2024-12-02"), ko.Date)
	assert.True(t, ko.RunningUnits.Equal(d("50")))
	assert.True(t, ko.CostBasis.Equal(d("3300")))
	assert.True(t, ko.RealizedGL.Equal(d("200")))
	assert.True(t, ko.DividendIncome.Equal(d("48.50")))
}

func TestPeriodEndpoints(t *testing.T) {
	start := marketdata.MustDay("2024-11-08")
	end := marketdata.MustDay("2024-11-20")

	daily := periodEndpoints(start, end, model.FreqDaily)
	assert.Len(t, daily, 13)
	assert.Equal(t, start, daily[0])
	assert.Equal(t, end, daily[len(daily)-1])

	weekly := periodEndpoints(start, end, model.FreqWeekly)
	require.Len(t, weekly, 2)
	for _, date := range weekly {
		assert.Equal(t, time.Sunday, date.Weekday())
		assert.False(t, date.After(end), "weekly label %s past range end", date)
	}
	assert.Equal(t, marketdata.MustDay("2024-11-10"), weekly[0])
	assert.Equal(t, marketdata.MustDay("2024-11-17"), weekly[1])

	// six Sundays fit in [2024-11-08, 2024-12-20], none past Dec 15
	longRange := periodEndpoints(start, marketdata.MustDay("2024-12-20"), model.FreqWeekly)
	require.Len(t, longRange, 6)
	assert.Equal(t, marketdata.MustDay("2024-12-15"), longRange[5])

	monthly := periodEndpoints(marketdata.MustDay("2024-10-15"), marketdata.MustDay("2024-12-31"), model.FreqMonthly)
	assert.Equal(t, []time.Time{
		marketdata.MustDay("2024-10-31"),
		marketdata.MustDay("2024-11-30"),
		marketdata.MustDay("2024-12-31"),
	}, monthly)

	assert.Empty(t, periodEndpoints(end, start, model.FreqDaily))
}
