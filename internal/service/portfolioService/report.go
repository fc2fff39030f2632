package portfolioService

import (
	"context"
	"fmt"
	"log/slog"
	"sort"

	"github.com/vkarpov-dev/portfolio_analyzer/internal/marketdata"
	"github.com/vkarpov-dev/portfolio_analyzer/internal/model"
	"github.com/vkarpov-dev/portfolio_analyzer/utils"
)

// GenerateReport renders the full portfolio workbook. When cloud storage is
// configured the file is uploaded and the share link returned alongside the
// raw bytes.
func (s *Service) GenerateReport(ctx context.Context, userID string, ledger []model.Transaction) (fileBytes []byte, link string, err error) {
	op := "PortfolioService.GenerateReport"
	rqID := utils.GetRequestIDFromCtx(ctx)
	slog.Debug("start", slog.String("op", op), slog.String("rqID", rqID), slog.String("userID", userID))
	defer func() {
		if err != nil {
			slog.Error("finished with error", slog.String("op", op), slog.String("rqID", rqID), slog.String("err", err.Error()))
		} else {
			slog.Debug("finished", slog.String("op", op), slog.String("rqID", rqID))
		}
	}()

	holdings, err := s.CalculateStockHoldings(ctx, userID, ledger)
	if err != nil {
		return nil, "", err
	}

	gainLoss, err := s.CalculateGainLoss(ctx, userID, ledger)
	if err != nil {
		return nil, "", err
	}

	performance, err := s.CalculatePerformance(ctx, userID, ledger)
	if err != nil {
		return nil, "", err
	}

	sorted := make([]model.Holding, 0, len(holdings))
	for _, holding := range holdings {
		sorted = append(sorted, holding)
	}
	sort.Slice(sorted, func(i, j int) bool { return sorted[i].Symbol < sorted[j].Symbol })

	now := s.now()
	report := model.PortfolioReport{
		User:        userID,
		GeneratedAt: now,
		AsOf:        marketdata.Day(now),
		Holdings:    sorted,
		GainLoss:    gainLoss,
		Performance: performance,
	}

	fileBytes, ext, err := s.reportGenerator.Generate(ctx, report)
	if err != nil {
		return nil, "", err
	}

	if s.cloudStorage != nil {
		filename := fmt.Sprintf("portfolio_%s_%s%s", userID, marketdata.FormatDay(now), ext)
		link, err = s.cloudStorage.UploadFile(ctx, fileBytes, filename)
		if err != nil {
			slog.Warn("can't upload report to cloud storage", slog.String("op", op), slog.String("rqID", rqID), slog.String("err", err.Error()))
			// the caller still gets the file itself
			err = nil
			link = ""
		}
	}

	return fileBytes, link, nil
}
