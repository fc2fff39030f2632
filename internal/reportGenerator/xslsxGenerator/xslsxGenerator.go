package xslsxGenerator

import (
	"context"
	"errors"
	"fmt"
	"log/slog"

	"github.com/vkarpov-dev/portfolio_analyzer/internal/marketdata"
	"github.com/vkarpov-dev/portfolio_analyzer/internal/model"
	"github.com/vkarpov-dev/portfolio_analyzer/utils"
	"github.com/xuri/excelize/v2"
)

type ChartRenderer interface {
	RenderPerformanceChart(result model.PerformanceResult) ([]byte, error)
}

type XSLSXGenerator struct {
	charts ChartRenderer
}

func New(charts ChartRenderer) *XSLSXGenerator {
	return &XSLSXGenerator{charts: charts}
}

func (g *XSLSXGenerator) Generate(ctx context.Context, report model.PortfolioReport) (fileBytes []byte, fileExtension string, err error) {
	rqID := utils.GetRequestIDFromCtx(ctx)
	op := "XSLSXGenerator.Generate"

	if len(report.Holdings) == 0 {
		return nil, "", errors.New("empty holdings")
	}

	slog.Debug("Generate start", slog.String("rqID", rqID), slog.String("op", op))

	f := excelize.NewFile()
	defer func() {
		if err := f.Close(); err != nil {
			slog.Error("got error while closing file", slog.String("rqID", rqID), slog.String("op", op), slog.String("err", err.Error()))
		}
	}()

	if err := g.fillHoldingsSheet(ctx, f, report); err != nil {
		return nil, "", err
	}
	if err := g.fillGainLossSheet(ctx, f, report); err != nil {
		return nil, "", err
	}
	if err := g.fillPerformanceSheet(ctx, f, report); err != nil {
		return nil, "", err
	}

	// drop the default "Sheet1"
	if err := f.DeleteSheet("Sheet1"); err != nil {
		slog.Error("got error while deleting Sheet1", slog.String("rqID", rqID), slog.String("op", op), slog.String("err", err.Error()))
	}

	buf, err := f.WriteToBuffer()
	if err != nil {
		slog.Error("got error while Saving file to bytes buffer", slog.String("rqID", rqID), slog.String("op", op), slog.String("err", err.Error()))
		return nil, "", err
	}

	slog.Debug("Generate completed", slog.String("rqID", rqID), slog.String("op", op))

	return buf.Bytes(), ".xlsx", nil
}

func (g *XSLSXGenerator) headerStyle(f *excelize.File, color string) (int, error) {
	return f.NewStyle(&excelize.Style{
		Alignment: &excelize.Alignment{
			Horizontal: "center",
			Vertical:   "center",
		},
		Font: &excelize.Font{
			Bold: true,
			Size: 11,
		},
		Fill: excelize.Fill{
			Type:    "pattern",
			Pattern: 1,
			Color:   []string{color},
		},
	})
}

func (g *XSLSXGenerator) fillHoldingsSheet(ctx context.Context, f *excelize.File, report model.PortfolioReport) error {
	rqID := utils.GetRequestIDFromCtx(ctx)
	op := "XSLSXGenerator.fillHoldingsSheet"

	sheetName := "Holdings"
	_, err := f.NewSheet(sheetName)
	if err != nil {
		slog.Error("got error while creating NewSheet", slog.String("rqID", rqID), slog.String("op", op), slog.String("err", err.Error()))
		return err
	}

	if err = f.MergeCell(sheetName, "A1", "G1"); err != nil {
		return err
	}
	f.SetCellValue(sheetName, "A1", fmt.Sprintf("Holdings as of %s", marketdata.FormatDay(report.AsOf)))

	styleID, err := g.headerStyle(f, "#cfe2f3") // light blue
	if err != nil {
		return err
	}
	if err := f.SetCellStyle(sheetName, "A1", "A1", styleID); err != nil {
		return fmt.Errorf("can't apply style: %w", err)
	}

	_ = f.SetCellStr(sheetName, "A2", "symbol")
	_ = f.SetCellStr(sheetName, "B2", "units")
	_ = f.SetCellStr(sheetName, "C2", "cost basis")
	_ = f.SetCellStr(sheetName, "D2", "last price")
	_ = f.SetCellStr(sheetName, "E2", "market value")
	_ = f.SetCellStr(sheetName, "F2", "weight")
	_ = f.SetCellStr(sheetName, "G2", "stale price")

	for i, holding := range report.Holdings {
		_ = f.SetCellStr(sheetName, fmt.Sprintf("A%d", i+3), holding.Symbol)
		_ = f.SetCellValue(sheetName, fmt.Sprintf("B%d", i+3), holding.Units.InexactFloat64())
		_ = f.SetCellValue(sheetName, fmt.Sprintf("C%d", i+3), holding.CostBasis.InexactFloat64())
		_ = f.SetCellValue(sheetName, fmt.Sprintf("D%d", i+3), holding.LastPrice.InexactFloat64())
		_ = f.SetCellValue(sheetName, fmt.Sprintf("E%d", i+3), holding.MarketValue.InexactFloat64())
		_ = f.SetCellValue(sheetName, fmt.Sprintf("F%d", i+3), holding.Weight)
		_ = f.SetCellBool(sheetName, fmt.Sprintf("G%d", i+3), holding.PriceStale)
	}

	totalRow := len(report.Holdings) + 3
	total := model.Holdings{}
	for _, holding := range report.Holdings {
		total[holding.Symbol] = holding
	}
	_ = f.SetCellStr(sheetName, fmt.Sprintf("A%d", totalRow), "TOTAL")
	_ = f.SetCellValue(sheetName, fmt.Sprintf("E%d", totalRow), total.TotalMarketValue().InexactFloat64())

	return nil
}

func (g *XSLSXGenerator) fillGainLossSheet(ctx context.Context, f *excelize.File, report model.PortfolioReport) error {
	rqID := utils.GetRequestIDFromCtx(ctx)
	op := "XSLSXGenerator.fillGainLossSheet"

	sheetName := "Gain Loss"
	_, err := f.NewSheet(sheetName)
	if err != nil {
		slog.Error("got error while creating NewSheet", slog.String("rqID", rqID), slog.String("op", op), slog.String("err", err.Error()))
		return err
	}

	if err = f.MergeCell(sheetName, "A1", "J1"); err != nil {
		return err
	}
	f.SetCellValue(sheetName, "A1", "Gain / Loss")

	styleID, err := g.headerStyle(f, "#d9ead3") // light green
	if err != nil {
		return err
	}
	if err := f.SetCellStyle(sheetName, "A1", "A1", styleID); err != nil {
		return fmt.Errorf("can't apply style: %w", err)
	}

	_ = f.SetCellStr(sheetName, "A2", "symbol")
	_ = f.SetCellStr(sheetName, "B2", "units")
	_ = f.SetCellStr(sheetName, "C2", "market value")
	_ = f.SetCellStr(sheetName, "D2", "cost basis")
	_ = f.SetCellStr(sheetName, "E2", "adjusted basis")
	_ = f.SetCellStr(sheetName, "F2", "realized")
	_ = f.SetCellStr(sheetName, "G2", "unrealized")
	_ = f.SetCellStr(sheetName, "H2", "dividends")
	_ = f.SetCellStr(sheetName, "I2", "options")
	_ = f.SetCellStr(sheetName, "J2", "total return")

	row := 2
	for _, holding := range report.Holdings {
		record, ok := report.GainLoss[holding.Symbol]
		if !ok {
			continue
		}
		row++
		_ = f.SetCellStr(sheetName, fmt.Sprintf("A%d", row), holding.Symbol)
		_ = f.SetCellValue(sheetName, fmt.Sprintf("B%d", row), record.CurrentUnits.InexactFloat64())
		_ = f.SetCellValue(sheetName, fmt.Sprintf("C%d", row), record.MarketValue.InexactFloat64())
		_ = f.SetCellValue(sheetName, fmt.Sprintf("D%d", row), record.TotalCostBasis.InexactFloat64())
		_ = f.SetCellValue(sheetName, fmt.Sprintf("E%d", row), record.AdjustedCostBasis.InexactFloat64())
		_ = f.SetCellValue(sheetName, fmt.Sprintf("F%d", row), record.RealizedGainLoss.InexactFloat64())
		_ = f.SetCellValue(sheetName, fmt.Sprintf("G%d", row), record.UnrealizedGainLoss.InexactFloat64())
		_ = f.SetCellValue(sheetName, fmt.Sprintf("H%d", row), record.DividendIncome.InexactFloat64())
		_ = f.SetCellValue(sheetName, fmt.Sprintf("I%d", row), record.OptionGainLoss.InexactFloat64())
		_ = f.SetCellValue(sheetName, fmt.Sprintf("J%d", row), record.TotalReturn.InexactFloat64())
	}

	return nil
}

func (g *XSLSXGenerator) fillPerformanceSheet(ctx context.Context, f *excelize.File, report model.PortfolioReport) error {
	rqID := utils.GetRequestIDFromCtx(ctx)
	op := "XSLSXGenerator.fillPerformanceSheet"

	sheetName := "Performance"
	_, err := f.NewSheet(sheetName)
	if err != nil {
		slog.Error("got error while creating NewSheet", slog.String("rqID", rqID), slog.String("op", op), slog.String("err", err.Error()))
		return err
	}

	if err = f.MergeCell(sheetName, "A1", "B1"); err != nil {
		return err
	}
	f.SetCellValue(sheetName, "A1", "Performance")

	styleID, err := g.headerStyle(f, "#f9cb9c") // light orange
	if err != nil {
		return err
	}
	if err := f.SetCellStyle(sheetName, "A1", "A1", styleID); err != nil {
		return fmt.Errorf("can't apply style: %w", err)
	}

	_ = f.SetCellStr(sheetName, "A2", "annualized return")
	_ = f.SetCellStr(sheetName, "A3", "volatility")
	_ = f.SetCellStr(sheetName, "A4", "sharpe ratio")
	if report.Performance.MetricsComputed {
		_ = f.SetCellValue(sheetName, "B2", report.Performance.Metrics.AnnualizedReturn)
		_ = f.SetCellValue(sheetName, "B3", report.Performance.Metrics.Volatility)
		_ = f.SetCellValue(sheetName, "B4", report.Performance.Metrics.SharpeRatio)
	} else {
		_ = f.SetCellStr(sheetName, "B2", "n/a")
		_ = f.SetCellStr(sheetName, "B3", "n/a")
		_ = f.SetCellStr(sheetName, "B4", "n/a")
	}

	if g.charts == nil {
		return nil
	}

	png, err := g.charts.RenderPerformanceChart(report.Performance)
	if err != nil {
		// the workbook is still useful without the picture
		slog.Warn("can't render performance chart", slog.String("rqID", rqID), slog.String("op", op), slog.String("err", err.Error()))
		return nil
	}

	if err := f.AddPictureFromBytes(sheetName, "A6", &excelize.Picture{
		Extension: ".png",
		File:      png,
	}); err != nil {
		slog.Error("got error while adding chart picture", slog.String("rqID", rqID), slog.String("op", op), slog.String("err", err.Error()))
	}

	return nil
}
