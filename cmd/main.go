package main

import (
	"context"
	"encoding/json"
	"fmt"
	"log/slog"
	"os"
	"os/signal"
	"path/filepath"
	"syscall"
	"time"

	"github.com/vkarpov-dev/portfolio_analyzer/config"
	"github.com/vkarpov-dev/portfolio_analyzer/data"
	"github.com/vkarpov-dev/portfolio_analyzer/data/cache"
	"github.com/vkarpov-dev/portfolio_analyzer/data/repository/postgres"
	"github.com/vkarpov-dev/portfolio_analyzer/internal/externalApi/cloudStorageApi/googleDriveApi"
	"github.com/vkarpov-dev/portfolio_analyzer/internal/externalApi/stooqApi"
	"github.com/vkarpov-dev/portfolio_analyzer/internal/model"
	"github.com/vkarpov-dev/portfolio_analyzer/internal/reportGenerator/chartGenerator"
	"github.com/vkarpov-dev/portfolio_analyzer/internal/reportGenerator/xslsxGenerator"
	"github.com/vkarpov-dev/portfolio_analyzer/internal/scheduler"
	"github.com/vkarpov-dev/portfolio_analyzer/internal/service/portfolioService"
	"github.com/vkarpov-dev/portfolio_analyzer/internal/service/priceService"
	"github.com/vkarpov-dev/portfolio_analyzer/utils"
)

func main() {
	cfg := config.MustLoad()

	setupLogger(cfg)

	slog.Debug("config", slog.Any("cfg", cfg))

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	pgClient := data.NewPostgresClient(cfg)
	defer pgClient.Close()

	pgRepo := postgres.NewPostgres(cfg, pgClient)

	redisClient := data.NewRedisClient(cfg)
	defer redisClient.Close()

	memoryStore := cache.NewMemoryStore()
	holdingsCache := cache.NewHoldingsCache(memoryStore, redisClient, cfg)
	metricsCache := cache.NewMetricsCache(memoryStore, redisClient, cfg)

	stooqApiClient := stooqApi.New(cfg)

	priceSrv := priceService.New(cfg, memoryStore, pgRepo, stooqApiClient)

	reportGenerator := xslsxGenerator.New(chartGenerator.New())

	var cloudStorage portfolioService.CloudStorage
	sched := scheduler.New()
	if cfg.GoogleDrive.Enabled {
		googleCloudStorage := googleDriveApi.New(ctx, cfg)
		cloudStorage = googleCloudStorage
		sched.NewIntervalJob("delete old drive files", googleCloudStorage.DeleteOldFiles, cfg.Jobs.DriveCleanupInterval, false)
	}

	portfolioSrv := portfolioService.New(cfg, priceSrv, holdingsCache, metricsCache, pgRepo, reportGenerator, cloudStorage)

	if cfg.LedgerFile != "" {
		if err := analyzeLedger(ctx, cfg, portfolioSrv); err != nil {
			slog.Error("ledger analysis failed", slog.String("err", err.Error()))
			os.Exit(1)
		}
		return
	}

	sched.NewIntervalJob("clear expired price cache", priceSrv.ClearExpired, cfg.Jobs.CacheMaintenanceInterval, true)
	sched.NewIntervalJob("clear stale running balances", func(ctx context.Context) error {
		_, err := pgRepo.DeleteBalancesUpdatedBefore(ctx, time.Now().Add(-cfg.Cache.BalancesExpiration))
		return err
	}, cfg.Jobs.CacheMaintenanceInterval, false)
	sched.Start()
	defer sched.Stop()

	// Waiting interruption signal
	interrupt := make(chan os.Signal, 1)
	signal.Notify(interrupt, os.Interrupt, syscall.SIGTERM, syscall.SIGINT)
	<-interrupt
}

// analyzeLedger is the one-shot CLI mode: read a normalized ledger file,
// run every analysis, write the workbook next to REPORT_DIR and print a JSON
// summary to stdout.
func analyzeLedger(ctx context.Context, cfg *config.Config, srv *portfolioService.Service) error {
	ctx = utils.CreateCtxWithRqID(ctx)

	raw, err := os.ReadFile(cfg.LedgerFile)
	if err != nil {
		return fmt.Errorf("can't read ledger file: %w", err)
	}

	var ledger []model.Transaction
	if err := json.Unmarshal(raw, &ledger); err != nil {
		return fmt.Errorf("can't parse ledger file: %w", err)
	}

	holdings, err := srv.CalculateStockHoldings(ctx, cfg.UserID, ledger)
	if err != nil {
		return err
	}

	gainLoss, err := srv.CalculateGainLoss(ctx, cfg.UserID, ledger)
	if err != nil {
		return err
	}

	performance, err := srv.CalculatePerformance(ctx, cfg.UserID, ledger)
	if err != nil {
		return err
	}

	fileBytes, link, err := srv.GenerateReport(ctx, cfg.UserID, ledger)
	if err != nil {
		return err
	}

	reportPath := filepath.Join(cfg.ReportDir, fmt.Sprintf("portfolio_%s.xlsx", cfg.UserID))
	if err := os.WriteFile(reportPath, fileBytes, 0o644); err != nil {
		return fmt.Errorf("can't write report file: %w", err)
	}

	summary := struct {
		Holdings    model.Holdings                  `json:"holdings"`
		GainLoss    map[string]model.GainLossRecord `json:"gain_loss"`
		Performance model.PerformanceResult         `json:"performance"`
		ReportPath  string                          `json:"report_path"`
		ReportLink  string                          `json:"report_link,omitempty"`
	}{holdings, gainLoss, performance, reportPath, link}

	enc := json.NewEncoder(os.Stdout)
	enc.SetIndent("", "  ")
	return enc.Encode(summary)
}

func setupLogger(cfg *config.Config) {
	var logLevel slog.Level

	switch cfg.LogLevel {
	case "debug":
		logLevel = slog.LevelDebug
	case "info":
		logLevel = slog.LevelInfo
	case "warning":
		logLevel = slog.LevelWarn
	case "error":
		logLevel = slog.LevelError
	default:
		logLevel = slog.LevelInfo
	}

	log := slog.New(slog.NewJSONHandler(os.Stdout, &slog.HandlerOptions{Level: logLevel}))
	slog.SetDefault(log)
}
