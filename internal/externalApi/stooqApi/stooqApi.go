// Package stooqApi downloads daily close prices from the stooq.com CSV endpoint.
package stooqApi

import (
	"context"
	"encoding/csv"
	"fmt"
	"log/slog"
	"net/http"
	"strings"
	"time"

	"github.com/go-resty/resty/v2"
	"github.com/shopspring/decimal"
	"github.com/vkarpov-dev/portfolio_analyzer/config"
	"github.com/vkarpov-dev/portfolio_analyzer/internal/externalApi"
	"github.com/vkarpov-dev/portfolio_analyzer/internal/marketdata"
	"github.com/vkarpov-dev/portfolio_analyzer/internal/model"
	"github.com/vkarpov-dev/portfolio_analyzer/utils"
)

const requestDateLayout = "20060102"

type StooqApi struct {
	client *resty.Client
}

func New(cfg *config.Config) *StooqApi {
	client := resty.New().
		SetDebug(cfg.API.Debug).
		SetTimeout(cfg.API.Timeout).
		SetBaseURL(cfg.API.StooqApi.Url)
	return &StooqApi{client: client}
}

// GetDailyCloses fetches closes for one symbol over [from, to]. An unknown
// symbol or a non-trading window yields an empty series, not an error.
func (a *StooqApi) GetDailyCloses(ctx context.Context, symbol string, from, to time.Time) (model.PriceSeries, error) {
	rqID := utils.GetRequestIDFromCtx(ctx)
	params := map[string]string{
		"s":  strings.ToLower(symbol),
		"d1": from.Format(requestDateLayout),
		"d2": to.Format(requestDateLayout),
		"i":  "d",
	}

	slog.Debug("start StooqApi.GetDailyCloses request", slog.String("rqID", rqID), slog.String("symbol", symbol))

	resp, err := a.client.R().
		SetContext(ctx).
		SetQueryParams(params).
		Get("/q/d/l/")

	if err != nil {
		slog.Error("error while dialing StooqApi", slog.String("err", err.Error()), slog.String("rqID", rqID))
		return nil, err
	}

	if resp.IsError() {
		if resp.StatusCode() == http.StatusNotFound {
			slog.Warn("StooqApi symbol not found", slog.String("rqID", rqID), slog.String("symbol", symbol))
			return nil, externalApi.ErrNotFound
		}
		err = fmt.Errorf("stooq responded with status %d", resp.StatusCode())
		slog.Error("StooqApi bad status", slog.String("err", err.Error()), slog.String("rqID", rqID))
		return nil, err
	}

	series, err := a.parseDailyCSV(resp.String())
	if err != nil {
		slog.Error("can't parse stooq csv", slog.String("err", err.Error()), slog.String("rqID", rqID), slog.String("symbol", symbol))
		return nil, err
	}

	slog.Debug("StooqApi.GetDailyCloses request complete", slog.String("rqID", rqID), slog.String("symbol", symbol), slog.Int("points", len(series)))

	return series, nil
}

// parseDailyCSV parses "Date,Open,High,Low,Close,Volume" rows. Stooq answers
// "No data" in the body for unknown symbols.
func (a *StooqApi) parseDailyCSV(body string) (model.PriceSeries, error) {
	trimmed := strings.TrimSpace(body)
	if trimmed == "" || strings.EqualFold(trimmed, "No data") {
		return model.PriceSeries{}, nil
	}

	reader := csv.NewReader(strings.NewReader(trimmed))
	reader.FieldsPerRecord = -1

	records, err := reader.ReadAll()
	if err != nil {
		return nil, fmt.Errorf("read csv: %w", err)
	}

	series := make(model.PriceSeries, 0, len(records))
	for i, record := range records {
		if i == 0 && len(record) > 0 && strings.EqualFold(record[0], "Date") {
			continue
		}
		if len(record) < 5 {
			return nil, fmt.Errorf("row %d: expected at least 5 columns, got %d", i, len(record))
		}

		day, err := time.Parse(marketdata.DateLayout, record[0])
		if err != nil {
			return nil, fmt.Errorf("row %d: parse date %q: %w", i, record[0], err)
		}

		closePrice, err := decimal.NewFromString(record[4])
		if err != nil {
			return nil, fmt.Errorf("row %d: parse close %q: %w", i, record[4], err)
		}

		series = append(series, model.PricePoint{Date: marketdata.Day(day), Price: closePrice})
	}

	series.Sort()
	return series, nil
}
