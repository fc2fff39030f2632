// Package priceService implements the two-tier close-price cache in front of
// the external quote source: in-process memory, then the persistent store, then
// the network. Settled historical closes are cached effectively forever
// (finality rule); today's prices expire within minutes.
package priceService

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"time"

	"github.com/shopspring/decimal"
	"github.com/vkarpov-dev/portfolio_analyzer/config"
	"github.com/vkarpov-dev/portfolio_analyzer/data/cache"
	"github.com/vkarpov-dev/portfolio_analyzer/data/repository"
	"github.com/vkarpov-dev/portfolio_analyzer/internal/marketdata"
	"github.com/vkarpov-dev/portfolio_analyzer/internal/model"
	"github.com/vkarpov-dev/portfolio_analyzer/utils"
)

// lookbackDays widens every external request so source gaps (holidays the
// calendar misses, thin tickers) still produce a usable prior close.
const lookbackDays = 5

type PriceRepo interface {
	GetPrice(ctx context.Context, symbol string, date time.Time) (model.PricePoint, time.Time, error)
	GetPriceRange(ctx context.Context, symbol string, from, to time.Time) (model.PriceSeries, error)
	UpsertPrices(ctx context.Context, symbol string, series model.PriceSeries) error
	DeleteUnsettledPricesBefore(ctx context.Context, settledBefore, updatedBefore time.Time) (int64, error)
}

type PriceSource interface {
	GetDailyCloses(ctx context.Context, symbol string, from, to time.Time) (model.PriceSeries, error)
}

type PriceService struct {
	cfg    *config.Config
	memory *cache.MemoryStore
	repo   PriceRepo
	source PriceSource
	now    func() time.Time
}

func New(cfg *config.Config, memory *cache.MemoryStore, repo PriceRepo, source PriceSource) *PriceService {
	return &PriceService{
		cfg:    cfg,
		memory: memory,
		repo:   repo,
		source: source,
		now:    time.Now,
	}
}

func priceKey(symbol string, date time.Time) string {
	return fmt.Sprintf("price:%s:%s", symbol, marketdata.FormatDay(date))
}

// isSettled reports whether a close for date can no longer change at the
// source: anything older than yesterday is final.
func (s *PriceService) isSettled(date time.Time) bool {
	return marketdata.Day(date).Before(marketdata.Day(s.now()).AddDate(0, 0, -1))
}

func (s *PriceService) entryTTL(date time.Time) time.Duration {
	if s.isSettled(date) {
		return s.cfg.Cache.PriceFinalExpiration
	}
	return s.cfg.Cache.PriceShortExpiration
}

func (s *PriceService) isFresh(date, updatedAt time.Time) bool {
	return s.now().Sub(updatedAt) < s.entryTTL(date)
}

// Price resolves the close for (symbol, date). Weekend and holiday dates walk
// back to the previous trading day before any tier is consulted. A failed or
// empty lookup yields an Unavailable quote, never an error: callers pick the
// fallback policy.
func (s *PriceService) Price(ctx context.Context, symbol string, date time.Time) model.PriceQuote {
	rqID := utils.GetRequestIDFromCtx(ctx)
	op := "PriceService.Price"

	tradingDay := marketdata.PrevTradingDay(date)
	key := priceKey(symbol, tradingDay)

	slog.Debug("Price start", slog.String("rqID", rqID), slog.String("op", op), slog.String("symbol", symbol), slog.String("date", marketdata.FormatDay(tradingDay)))

	if value, ok := s.memory.Get(key); ok {
		if price, ok := value.(decimal.Decimal); ok {
			return model.Priced(symbol, tradingDay, price)
		}
	}

	point, updatedAt, err := s.repo.GetPrice(ctx, symbol, tradingDay)
	if err == nil && s.isFresh(point.Date, updatedAt) {
		s.memory.Set(key, point.Price, s.entryTTL(point.Date))
		return model.Priced(symbol, tradingDay, point.Price)
	}
	if err != nil && !errors.Is(err, repository.ErrNotFound) {
		slog.Warn("persistent price tier unavailable, falling through to source", slog.String("rqID", rqID), slog.String("op", op), slog.String("err", err.Error()))
	}

	series, err := s.source.GetDailyCloses(ctx, symbol, tradingDay.AddDate(0, 0, -lookbackDays), tradingDay.AddDate(0, 0, 1))
	if err != nil {
		slog.Warn("price download failed", slog.String("rqID", rqID), slog.String("op", op), slog.String("symbol", symbol), slog.String("err", err.Error()))
		return model.Unavailable(symbol, tradingDay, fmt.Sprintf("download failed: %s", err))
	}

	if len(series) > 0 {
		if err = s.repo.UpsertPrices(ctx, symbol, series); err != nil {
			slog.Error("price write-back failed", slog.String("rqID", rqID), slog.String("op", op), slog.String("err", err.Error()))
		}
	}

	price, ok := series.LastOnOrBefore(tradingDay)
	if !ok {
		slog.Warn("no price returned by source", slog.String("rqID", rqID), slog.String("op", op), slog.String("symbol", symbol), slog.String("date", marketdata.FormatDay(tradingDay)))
		return model.Unavailable(symbol, tradingDay, "source returned no data")
	}

	s.memory.Set(key, price, s.entryTTL(tradingDay))

	slog.Debug("Price finished", slog.String("rqID", rqID), slog.String("op", op), slog.String("symbol", symbol))

	return model.Priced(symbol, tradingDay, price)
}

// PricesBatch resolves closes for many symbols over [start, end] with at most
// one external call per symbol, and none for symbols whose range is already
// resident in the persistent tier. Failures degrade per symbol: the returned
// map simply lacks points the source could not provide.
func (s *PriceService) PricesBatch(ctx context.Context, symbols []string, start, end time.Time) map[string]model.PriceSeries {
	rqID := utils.GetRequestIDFromCtx(ctx)
	op := "PriceService.PricesBatch"

	start, end = marketdata.Day(start), marketdata.Day(end)
	windowStart := start.AddDate(0, 0, -lookbackDays)

	slog.Debug("PricesBatch start", slog.String("rqID", rqID), slog.String("op", op),
		slog.Int("symbols", len(symbols)), slog.String("start", marketdata.FormatDay(start)), slog.String("end", marketdata.FormatDay(end)))

	expected := marketdata.TradingDaysBetween(start, end)
	result := make(map[string]model.PriceSeries, len(symbols))

	for _, symbol := range symbols {
		cached, err := s.repo.GetPriceRange(ctx, symbol, windowStart, end)
		if err != nil {
			slog.Warn("persistent price tier read failed", slog.String("rqID", rqID), slog.String("op", op), slog.String("symbol", symbol), slog.String("err", err.Error()))
			cached = model.PriceSeries{}
		}

		if s.rangeResident(cached, start, end, expected) {
			result[symbol] = cached
			continue
		}

		downloaded, err := s.source.GetDailyCloses(ctx, symbol, windowStart, end.AddDate(0, 0, 1))
		if err != nil {
			slog.Warn("batch price download failed, serving partial cache", slog.String("rqID", rqID), slog.String("op", op), slog.String("symbol", symbol), slog.String("err", err.Error()))
			result[symbol] = cached
			continue
		}

		if len(downloaded) > 0 {
			if err = s.repo.UpsertPrices(ctx, symbol, downloaded); err != nil {
				slog.Error("batch price write-back failed", slog.String("rqID", rqID), slog.String("op", op), slog.String("symbol", symbol), slog.String("err", err.Error()))
			}
		}

		result[symbol] = mergeSeries(cached, downloaded)
	}

	slog.Debug("PricesBatch finished", slog.String("rqID", rqID), slog.String("op", op))

	return result
}

// rangeResident reports whether the cached series already covers every trading
// day of the requested range.
func (s *PriceService) rangeResident(series model.PriceSeries, start, end time.Time, expected int) bool {
	if expected == 0 {
		// Non-trading window: the lookback points are all that can exist.
		return len(series) > 0
	}

	resident := 0
	for _, point := range series {
		if !point.Date.Before(start) && !point.Date.After(end) {
			resident++
		}
	}
	return resident >= expected
}

func mergeSeries(cached, downloaded model.PriceSeries) model.PriceSeries {
	byDate := make(map[time.Time]decimal.Decimal, len(cached)+len(downloaded))
	for _, point := range cached {
		byDate[point.Date] = point.Price
	}
	for _, point := range downloaded {
		byDate[point.Date] = point.Price
	}

	merged := make(model.PriceSeries, 0, len(byDate))
	for date, price := range byDate {
		merged = append(merged, model.PricePoint{Date: date, Price: price})
	}
	merged.Sort()
	return merged
}

// ClearExpired prunes the in-memory tier and drops unsettled persistent
// entries past the short TTL. Settled closes stay put (finality).
func (s *PriceService) ClearExpired(ctx context.Context) error {
	rqID := utils.GetRequestIDFromCtx(ctx)
	op := "PriceService.ClearExpired"

	removed := s.memory.ClearExpired()

	settledBefore := marketdata.Day(s.now()).AddDate(0, 0, -1)
	deleted, err := s.repo.DeleteUnsettledPricesBefore(ctx, settledBefore, s.now().Add(-s.cfg.Cache.PriceShortExpiration))
	if err != nil {
		slog.Error("failed pruning persistent price tier", slog.String("rqID", rqID), slog.String("op", op), slog.String("err", err.Error()))
		return err
	}

	slog.Info("price cache maintenance done", slog.String("rqID", rqID), slog.Int("memoryRemoved", removed), slog.Int64("persistentDeleted", deleted))

	return nil
}
