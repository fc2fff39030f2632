package priceService

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"github.com/vkarpov-dev/portfolio_analyzer/config"
	"github.com/vkarpov-dev/portfolio_analyzer/data/cache"
	"github.com/vkarpov-dev/portfolio_analyzer/data/repository"
	"github.com/vkarpov-dev/portfolio_analyzer/internal/marketdata"
	"github.com/vkarpov-dev/portfolio_analyzer/internal/model"
)

type fakeRepo struct {
	series    map[string]model.PriceSeries
	updatedAt map[string]time.Time
	upserts   int
}

func newFakeRepo() *fakeRepo {
	return &fakeRepo{
		series:    make(map[string]model.PriceSeries),
		updatedAt: make(map[string]time.Time),
	}
}

func (r *fakeRepo) put(symbol, date, price string, updatedAt time.Time) {
	day := marketdata.MustDay(date)
	r.series[symbol] = append(r.series[symbol], model.PricePoint{Date: day, Price: decimal.RequireFromString(price)})
	r.series[symbol].Sort()
	r.updatedAt[symbol+":"+date] = updatedAt
}

func (r *fakeRepo) GetPrice(_ context.Context, symbol string, date time.Time) (model.PricePoint, time.Time, error) {
	for _, point := range r.series[symbol] {
		if point.Date.Equal(marketdata.Day(date)) {
			return point, r.updatedAt[symbol+":"+marketdata.FormatDay(date)], nil
		}
	}
	return model.PricePoint{}, time.Time{}, repository.ErrNotFound
}

func (r *fakeRepo) GetPriceRange(_ context.Context, symbol string, from, to time.Time) (model.PriceSeries, error) {
	var out model.PriceSeries
	for _, point := range r.series[symbol] {
		if !point.Date.Before(marketdata.Day(from)) && !point.Date.After(marketdata.Day(to)) {
			out = append(out, point)
		}
	}
	return out, nil
}

func (r *fakeRepo) UpsertPrices(_ context.Context, symbol string, series model.PriceSeries) error {
	r.upserts++
	for _, point := range series {
		found := false
		for i, existing := range r.series[symbol] {
			if existing.Date.Equal(point.Date) {
				r.series[symbol][i] = point
				found = true
				break
			}
		}
		if !found {
			r.series[symbol] = append(r.series[symbol], point)
		}
	}
	r.series[symbol].Sort()
	return nil
}

func (r *fakeRepo) DeleteUnsettledPricesBefore(_ context.Context, _, _ time.Time) (int64, error) {
	return 0, nil
}

type fakeSource struct {
	series map[string]model.PriceSeries
	err    error
	calls  int
}

func newFakeSource() *fakeSource {
	return &fakeSource{series: make(map[string]model.PriceSeries)}
}

func (s *fakeSource) put(symbol, date, price string) {
	s.series[symbol] = append(s.series[symbol], model.PricePoint{
		Date:  marketdata.MustDay(date),
		Price: decimal.RequireFromString(price),
	})
	s.series[symbol].Sort()
}

func (s *fakeSource) GetDailyCloses(_ context.Context, symbol string, from, to time.Time) (model.PriceSeries, error) {
	s.calls++
	if s.err != nil {
		return nil, s.err
	}
	var out model.PriceSeries
	for _, point := range s.series[symbol] {
		if !point.Date.Before(marketdata.Day(from)) && !point.Date.After(marketdata.Day(to)) {
			out = append(out, point)
		}
	}
	return out, nil
}

func testConfig() *config.Config {
	return &config.Config{
		Cache: config.Cache{
			HoldingsExpiration:   time.Minute,
			MetricsExpiration:    24 * time.Hour,
			PriceShortExpiration: 15 * time.Minute,
			PriceFinalExpiration: 87600 * time.Hour,
			BalancesExpiration:   8760 * time.Hour,
		},
	}
}

func newTestService(repo *fakeRepo, source *fakeSource, now string) *PriceService {
	svc := New(testConfig(), cache.NewMemoryStore(), repo, source)
	svc.now = func() time.Time { return marketdata.MustDay(now).Add(12 * time.Hour) }
	return svc
}

func TestPriceSaturdayResolvesToPriorTradingDay(t *testing.T) {
	repo := newFakeRepo()
	source := newFakeSource()
	svc := newTestService(repo, source, "2025-03-10")

	// Friday close is settled and cached, Saturday lookup must not hit the source
	repo.put("KO", "2025-03-07", "66.00", marketdata.MustDay("2025-03-08"))

	quote := svc.Price(context.Background(), "KO", marketdata.MustDay("2025-03-08"))

	require.Equal(t, model.PriceAvailable, quote.Status)
	assert.Equal(t, marketdata.MustDay("2025-03-07"), quote.Date)
	assert.True(t, quote.Price.Equal(decimal.RequireFromString("66.00")))
	assert.Equal(t, 0, source.calls)
}

func TestPriceFallsThroughToSourceAndWritesBack(t *testing.T) {
	repo := newFakeRepo()
	source := newFakeSource()
	svc := newTestService(repo, source, "2025-03-10")

	source.put("KO", "2025-03-07", "66.50")

	quote := svc.Price(context.Background(), "KO", marketdata.MustDay("2025-03-07"))

	require.Equal(t, model.PriceAvailable, quote.Status)
	assert.True(t, quote.Price.Equal(decimal.RequireFromString("66.50")))
	assert.Equal(t, 1, source.calls)
	assert.Equal(t, 1, repo.upserts)

	// second lookup is served from memory
	quote = svc.Price(context.Background(), "KO", marketdata.MustDay("2025-03-07"))
	require.Equal(t, model.PriceAvailable, quote.Status)
	assert.Equal(t, 1, source.calls)
}

func TestPriceStalePersistentEntryRefetches(t *testing.T) {
	repo := newFakeRepo()
	source := newFakeSource()
	svc := newTestService(repo, source, "2025-03-11")

	// Monday's close is unsettled (yesterday) and was written an hour ago,
	// past the short TTL
	repo.put("KO", "2025-03-10", "60.00", marketdata.MustDay("2025-03-11").Add(11*time.Hour))
	source.put("KO", "2025-03-10", "61.00")

	quote := svc.Price(context.Background(), "KO", marketdata.MustDay("2025-03-10"))

	require.Equal(t, model.PriceAvailable, quote.Status)
	assert.True(t, quote.Price.Equal(decimal.RequireFromString("61.00")))
	assert.Equal(t, 1, source.calls)
}

func TestPriceUnavailableOnEmptySource(t *testing.T) {
	repo := newFakeRepo()
	source := newFakeSource()
	svc := newTestService(repo, source, "2025-03-10")

	quote := svc.Price(context.Background(), "UNKNOWN", marketdata.MustDay("2025-03-07"))

	assert.Equal(t, model.PriceUnavailable, quote.Status)
	assert.NotEmpty(t, quote.Reason)
}

func TestPriceUnavailableOnSourceError(t *testing.T) {
	repo := newFakeRepo()
	source := newFakeSource()
	source.err = errors.New("connection refused")
	svc := newTestService(repo, source, "2025-03-10")

	quote := svc.Price(context.Background(), "KO", marketdata.MustDay("2025-03-07"))

	assert.Equal(t, model.PriceUnavailable, quote.Status)
}

func TestPricesBatchServesResidentRangeFromCache(t *testing.T) {
	repo := newFakeRepo()
	source := newFakeSource()
	svc := newTestService(repo, source, "2025-03-12")

	settled := marketdata.MustDay("2025-03-12")
	repo.put("KO", "2025-03-03", "66.00", settled)
	repo.put("KO", "2025-03-04", "66.10", settled)
	repo.put("KO", "2025-03-05", "66.20", settled)
	repo.put("KO", "2025-03-06", "66.30", settled)
	repo.put("KO", "2025-03-07", "66.40", settled)

	result := svc.PricesBatch(context.Background(), []string{"KO"}, marketdata.MustDay("2025-03-03"), marketdata.MustDay("2025-03-07"))

	require.Contains(t, result, "KO")
	assert.Len(t, result["KO"], 5)
	assert.Equal(t, 0, source.calls)
}

func TestPricesBatchFetchesOnlyGapSymbols(t *testing.T) {
	repo := newFakeRepo()
	source := newFakeSource()
	svc := newTestService(repo, source, "2025-03-12")

	settled := marketdata.MustDay("2025-03-12")
	repo.put("KO", "2025-03-03", "66.00", settled)
	repo.put("KO", "2025-03-04", "66.10", settled)
	repo.put("KO", "2025-03-05", "66.20", settled)
	repo.put("KO", "2025-03-06", "66.30", settled)
	repo.put("KO", "2025-03-07", "66.40", settled)

	source.put("PEP", "2025-03-07", "150.00")

	result := svc.PricesBatch(context.Background(), []string{"KO", "PEP"},
		marketdata.MustDay("2025-03-03"), marketdata.MustDay("2025-03-07"))

	require.Contains(t, result, "KO")
	require.Contains(t, result, "PEP")
	assert.Equal(t, 1, source.calls)
	assert.Equal(t, 1, repo.upserts)

	price, ok := result["PEP"].LastOnOrBefore(marketdata.MustDay("2025-03-07"))
	require.True(t, ok)
	assert.True(t, price.Equal(decimal.RequireFromString("150.00")))
}

func TestPricesBatchDegradesPerSymbolOnSourceError(t *testing.T) {
	repo := newFakeRepo()
	source := newFakeSource()
	source.err = errors.New("timeout")
	svc := newTestService(repo, source, "2025-03-12")

	result := svc.PricesBatch(context.Background(), []string{"KO"},
		marketdata.MustDay("2025-03-03"), marketdata.MustDay("2025-03-07"))

	require.Contains(t, result, "KO")
	assert.Empty(t, result["KO"])
}
