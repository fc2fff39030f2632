package dbConverter

import (
	"github.com/vkarpov-dev/portfolio_analyzer/internal/marketdata"
	"github.com/vkarpov-dev/portfolio_analyzer/internal/model"
	"github.com/vkarpov-dev/portfolio_analyzer/internal/model/dbModel"
)

func ConvertPrice(p dbModel.Price) model.PricePoint {
	return model.PricePoint{
		Date:  marketdata.Day(p.Date),
		Price: p.Price,
	}
}

func ConvertPrices(rows []dbModel.Price) model.PriceSeries {
	series := make(model.PriceSeries, 0, len(rows))
	for _, row := range rows {
		series = append(series, ConvertPrice(row))
	}
	series.Sort()
	return series
}
