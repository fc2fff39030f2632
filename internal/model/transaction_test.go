package model

import (
	"math"
	"testing"
	"time"

	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/assert"
)

func mustDay(t *testing.T, value string) time.Time {
	t.Helper()
	day, err := time.Parse("2006-01-02", value)
	if err != nil {
		t.Fatal(err)
	}
	return day
}


func TestParseTransactionType(t *testing.T) {
	parsed, err := ParseTransactionType("buy")
	assert.NoError(t, err)
	assert.Equal(t, TxnBuy, parsed)

	_, err = ParseTransactionType("short_squeeze")
	assert.Error(t, err)

	_, err = ParseTransactionType("")
	assert.Error(t, err)
}

func TestOptionLegClassification(t *testing.T) {
	assert.True(t, TxnSellToOpen.IsOptionLeg())
	assert.True(t, TxnBuyToClose.IsOptionLeg())
	assert.False(t, TxnBuy.IsOptionLeg())
	assert.False(t, TxnExpired.IsOptionLeg())

	assert.True(t, TxnSellToOpen.IsOptionCredit())
	assert.True(t, TxnSellToClose.IsOptionCredit())
	assert.False(t, TxnBuyToOpen.IsOptionCredit())
}

func TestCashAmountOverride(t *testing.T) {
	fallback := decimal.RequireFromString("500")

	noOverride := Transaction{}
	assert.True(t, noOverride.CashAmountOr(fallback).Equal(fallback))

	zeroOverride := Transaction{Amount: decimal.NewNullDecimal(decimal.Zero)}
	assert.True(t, zeroOverride.CashAmountOr(fallback).Equal(fallback))

	// the broker reports net settled amounts as negative debits
	negative := Transaction{Amount: decimal.NewNullDecimal(decimal.RequireFromString("-501.95"))}
	assert.True(t, negative.CashAmountOr(fallback).Equal(decimal.RequireFromString("501.95")))

	signed := Transaction{Amount: decimal.NewNullDecimal(decimal.RequireFromString("-250"))}
	assert.True(t, signed.SignedAmountOr(fallback).Equal(decimal.RequireFromString("-250")))
}

func TestHoldingsTotalMarketValue(t *testing.T) {
	holdings := Holdings{
		"KO":       {MarketValue: decimal.RequireFromString("7000")},
		CashSymbol: {MarketValue: decimal.RequireFromString("-6616.19")},
	}
	assert.True(t, holdings.TotalMarketValue().Equal(decimal.RequireFromString("383.81")))
}

func TestPriceSeriesLastOnOrBefore(t *testing.T) {
	series := PriceSeries{
		{Date: mustDay(t, "2024-11-06"), Price: decimal.RequireFromString("65")},
		{Date: mustDay(t, "2024-11-08"), Price: decimal.RequireFromString("66")},
	}

	price, ok := series.LastOnOrBefore(mustDay(t, "2024-11-09"))
	assert.True(t, ok)
	assert.True(t, price.Equal(decimal.RequireFromString("66")))

	price, ok = series.LastOnOrBefore(mustDay(t, "2024-11-07"))
	assert.True(t, ok)
	assert.True(t, price.Equal(decimal.RequireFromString("65")))

	_, ok = series.LastOnOrBefore(mustDay(t, "2024-11-05"))
	assert.False(t, ok)
}

func TestSafeFloat(t *testing.T) {
	assert.Zero(t, SafeFloat(math.NaN()))
	assert.Zero(t, SafeFloat(math.Inf(1)))
	assert.Zero(t, SafeFloat(math.Inf(-1)))
	assert.Equal(t, FloatClamp, SafeFloat(2e300))
	assert.Equal(t, -FloatClamp, SafeFloat(-2e300))
	assert.Equal(t, 1.5, SafeFloat(1.5))
}
