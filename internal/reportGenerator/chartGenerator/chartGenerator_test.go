package chartGenerator

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"github.com/vkarpov-dev/portfolio_analyzer/internal/model"
)

func TestRenderPerformanceChart(t *testing.T) {
	base := time.Date(2024, 11, 10, 0, 0, 0, 0, time.UTC)
	result := model.PerformanceResult{
		Dates:           []time.Time{base, base.AddDate(0, 0, 7), base.AddDate(0, 0, 14)},
		PortfolioValues: []float64{10000, 10200, 10150},
		InvestedAmounts: []float64{10000, 10000, 10000},
	}

	generator := New()
	png, err := generator.RenderPerformanceChart(result)
	require.NoError(t, err)
	require.NotEmpty(t, png)

	// PNG magic bytes
	assert.Equal(t, []byte{0x89, 'P', 'N', 'G'}, png[:4])
}

func TestRenderPerformanceChartRejectsShortSeries(t *testing.T) {
	generator := New()

	_, err := generator.RenderPerformanceChart(model.PerformanceResult{
		Dates:           []time.Time{time.Now()},
		PortfolioValues: []float64{10000},
		InvestedAmounts: []float64{10000},
	})
	assert.Error(t, err)
}
