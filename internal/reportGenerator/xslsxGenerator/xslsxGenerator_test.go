package xslsxGenerator

import (
	"bytes"
	"context"
	"testing"
	"time"

	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"github.com/vkarpov-dev/portfolio_analyzer/internal/model"
	"github.com/xuri/excelize/v2"
)

func testReport() model.PortfolioReport {
	asOf := time.Date(2024, 12, 31, 0, 0, 0, 0, time.UTC)
	return model.PortfolioReport{
		User:        "user1",
		GeneratedAt: asOf,
		AsOf:        asOf,
		Holdings: []model.Holding{
			{
				Symbol:      model.CashSymbol,
				Units:       decimal.RequireFromString("-6616.19"),
				CostBasis:   decimal.RequireFromString("-6616.19"),
				LastPrice:   decimal.NewFromInt(1),
				MarketValue: decimal.RequireFromString("-6616.19"),
			},
			{
				Symbol:      "KO",
				Units:       decimal.NewFromInt(100),
				CostBasis:   decimal.RequireFromString("6600"),
				LastPrice:   decimal.RequireFromString("70"),
				MarketValue: decimal.RequireFromString("7000"),
				Weight:      1.0,
			},
		},
		GainLoss: map[string]model.GainLossRecord{
			"KO": {
				CurrentUnits:       decimal.NewFromInt(100),
				MarketValue:        decimal.RequireFromString("7000"),
				TotalCostBasis:     decimal.RequireFromString("6600"),
				AdjustedCostBasis:  decimal.RequireFromString("6600"),
				UnrealizedGainLoss: decimal.RequireFromString("400"),
				TotalReturn:        decimal.RequireFromString("400"),
				LastPrice:          decimal.RequireFromString("70"),
				LastUpdate:         asOf,
			},
		},
		Performance: model.PerformanceResult{
			Dates: []time.Time{asOf.AddDate(0, 0, -7), asOf},
			PortfolioValues: []float64{383.81, 383.81},
			InvestedAmounts: []float64{0, 0},
			Metrics:         model.PerformanceMetrics{AnnualizedReturn: 0.06, Volatility: 0.12, SharpeRatio: 0.33},
			MetricsComputed: true,
		},
	}
}

func TestGenerateWorkbook(t *testing.T) {
	generator := New(nil)

	fileBytes, ext, err := generator.Generate(context.Background(), testReport())
	require.NoError(t, err)
	assert.Equal(t, ".xlsx", ext)
	require.NotEmpty(t, fileBytes)

	f, err := excelize.OpenReader(bytes.NewReader(fileBytes))
	require.NoError(t, err)
	defer f.Close()

	assert.Contains(t, f.GetSheetList(), "Holdings")
	assert.Contains(t, f.GetSheetList(), "Gain Loss")
	assert.Contains(t, f.GetSheetList(), "Performance")

	symbol, err := f.GetCellValue("Holdings", "A3")
	require.NoError(t, err)
	assert.Equal(t, model.CashSymbol, symbol)

	realizedHeader, err := f.GetCellValue("Gain Loss", "F2")
	require.NoError(t, err)
	assert.Equal(t, "realized", realizedHeader)
}

func TestGenerateRejectsEmptyHoldings(t *testing.T) {
	generator := New(nil)

	_, _, err := generator.Generate(context.Background(), model.PortfolioReport{})
	assert.Error(t, err)
}

type fakeChartRenderer struct{ called bool }

func (r *fakeChartRenderer) RenderPerformanceChart(model.PerformanceResult) ([]byte, error) {
	r.called = true
	// 1x1 transparent PNG
	return []byte{
		0x89, 0x50, 0x4e, 0x47, 0x0d, 0x0a, 0x1a, 0x0a, 0x00, 0x00, 0x00, 0x0d,
		0x49, 0x48, 0x44, 0x52, 0x00, 0x00, 0x00, 0x01, 0x00, 0x00, 0x00, 0x01,
		0x08, 0x06, 0x00, 0x00, 0x00, 0x1f, 0x15, 0xc4, 0x89, 0x00, 0x00, 0x00,
		0x0d, 0x49, 0x44, 0x41, 0x54, 0x78, 0x9c, 0x62, 0x00, 0x01, 0x00, 0x00,
		0x05, 0x00, 0x01, 0x0d, 0x0a, 0x2d, 0xb4, 0x00, 0x00, 0x00, 0x00, 0x49,
		0x45, 0x4e, 0x44, 0xae, 0x42, 0x60, 0x82,
	}, nil
}

func TestGenerateEmbedsChart(t *testing.T) {
	renderer := &fakeChartRenderer{}
	generator := New(renderer)

	fileBytes, _, err := generator.Generate(context.Background(), testReport())
	require.NoError(t, err)
	assert.True(t, renderer.called)
	assert.NotEmpty(t, fileBytes)
}
