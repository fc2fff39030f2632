package portfolioService

import (
	"context"
	"time"

	"github.com/vkarpov-dev/portfolio_analyzer/config"
	"github.com/vkarpov-dev/portfolio_analyzer/internal/model"
)

type PriceProvider interface {
	PricesBatch(ctx context.Context, symbols []string, start, end time.Time) map[string]model.PriceSeries
}

type HoldingsCache interface {
	Get(ctx context.Context, userID, fingerprint string, date time.Time) (model.Holdings, error)
	Set(ctx context.Context, userID, fingerprint string, date time.Time, holdings model.Holdings) error
}

type MetricsCache interface {
	Get(ctx context.Context, userID, metricType, fingerprint string, start, end time.Time) (model.PerformanceResult, error)
	Set(ctx context.Context, userID, metricType, fingerprint string, start, end time.Time, result model.PerformanceResult) error
}

type BalanceRepo interface {
	ReplaceBalances(ctx context.Context, userID string, balances []model.RunningBalance) error
}

type ReportGenerator interface {
	Generate(ctx context.Context, report model.PortfolioReport) (fileBytes []byte, fileExtension string, err error)
}

type CloudStorage interface {
	UploadFile(ctx context.Context, file []byte, filename string) (link string, err error)
}

// Service reconstructs portfolio state from a transaction ledger. It owns no
// ledger state itself: every method is a function of (ledger, caches, prices).
type Service struct {
	cfg             *config.Config
	prices          PriceProvider
	holdingsCache   HoldingsCache
	metricsCache    MetricsCache
	balances        BalanceRepo
	reportGenerator ReportGenerator
	cloudStorage    CloudStorage
	now             func() time.Time
}

func New(
	cfg *config.Config,
	prices PriceProvider,
	holdingsCache HoldingsCache,
	metricsCache MetricsCache,
	balances BalanceRepo,
	reportGenerator ReportGenerator,
	cloudStorage CloudStorage,
) *Service {
	return &Service{
		cfg:             cfg,
		prices:          prices,
		holdingsCache:   holdingsCache,
		metricsCache:    metricsCache,
		balances:        balances,
		reportGenerator: reportGenerator,
		cloudStorage:    cloudStorage,
		now:             time.Now,
	}
}
