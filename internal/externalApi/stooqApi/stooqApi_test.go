package stooqApi

import (
	"testing"

	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"github.com/vkarpov-dev/portfolio_analyzer/internal/marketdata"
)

func TestParseDailyCSV(t *testing.T) {
	body := `Date,Open,High,Low,Close,Volume
2024-11-07,65.10,66.20,65.00,65.90,10500000
2024-11-08,65.95,66.40,65.80,66.00,9800000`

	api := &StooqApi{}
	series, err := api.parseDailyCSV(body)
	require.NoError(t, err)
	require.Len(t, series, 2)

	assert.Equal(t, marketdata.MustDay("2024-11-07"), series[0].Date)
	assert.True(t, series[0].Price.Equal(decimal.RequireFromString("65.90")))
	assert.True(t, series[1].Price.Equal(decimal.RequireFromString("66.00")))
}

func TestParseDailyCSVNoData(t *testing.T) {
	api := &StooqApi{}

	series, err := api.parseDailyCSV("No data")
	require.NoError(t, err)
	assert.Empty(t, series)

	series, err = api.parseDailyCSV("")
	require.NoError(t, err)
	assert.Empty(t, series)
}

func TestParseDailyCSVMalformedRow(t *testing.T) {
	api := &StooqApi{}

	_, err := api.parseDailyCSV("Date,Open,High,Low,Close,Volume\n2024-11-07,65.10")
	assert.Error(t, err)

	_, err = api.parseDailyCSV("Date,Open,High,Low,Close,Volume\nnot-a-date,1,2,3,4,5")
	assert.Error(t, err)
}

func TestParseDailyCSVSortsOutOfOrderRows(t *testing.T) {
	body := `Date,Open,High,Low,Close,Volume
2024-11-08,65.95,66.40,65.80,66.00,9800000
2024-11-07,65.10,66.20,65.00,65.90,10500000`

	api := &StooqApi{}
	series, err := api.parseDailyCSV(body)
	require.NoError(t, err)
	require.Len(t, series, 2)
	assert.True(t, series[0].Date.Before(series[1].Date))
}
