package postgres

import (
	"context"
	"database/sql"
	"errors"
	"log/slog"
	"time"

	"github.com/vkarpov-dev/portfolio_analyzer/data/repository"
	"github.com/vkarpov-dev/portfolio_analyzer/internal/converter/dbConverter"
	"github.com/vkarpov-dev/portfolio_analyzer/internal/marketdata"
	"github.com/vkarpov-dev/portfolio_analyzer/internal/model"
	"github.com/vkarpov-dev/portfolio_analyzer/internal/model/dbModel"
	"github.com/vkarpov-dev/portfolio_analyzer/utils"
)

// GetPrice returns the cached close for an exact (symbol, date) key.
func (r *Postgres) GetPrice(ctx context.Context, symbol string, date time.Time) (point model.PricePoint, updatedAt time.Time, err error) {
	rqID := utils.GetRequestIDFromCtx(ctx)
	query := `SELECT symbol, date, price, updated_at FROM price_cache WHERE symbol = $1 AND date = $2`

	slog.Debug("GetPrice start", slog.String("rqID", rqID), slog.String("query", query))
	defer func() {
		if err != nil && !errors.Is(err, repository.ErrNotFound) {
			slog.Error("GetPrice failed", slog.String("rqID", rqID), slog.String("err", err.Error()))
		} else {
			slog.Debug("GetPrice completed", slog.String("rqID", rqID))
		}
	}()

	row := dbModel.Price{}
	err = r.txOrDb(ctx).GetContext(ctx, &row, query, symbol, marketdata.Day(date))
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return model.PricePoint{}, time.Time{}, repository.ErrNotFound
		}
		return model.PricePoint{}, time.Time{}, err
	}

	return dbConverter.ConvertPrice(row), row.UpdatedAt, nil
}

// GetPriceRange returns cached closes for symbol in [from, to] sorted ascending.
func (r *Postgres) GetPriceRange(ctx context.Context, symbol string, from, to time.Time) (series model.PriceSeries, err error) {
	rqID := utils.GetRequestIDFromCtx(ctx)
	query := `
		SELECT symbol, date, price, updated_at
		FROM price_cache
		WHERE symbol = $1 AND date BETWEEN $2 AND $3
		ORDER BY date
		`

	slog.Debug("GetPriceRange start", slog.String("rqID", rqID), slog.String("query", query))
	defer func() {
		if err != nil {
			slog.Error("GetPriceRange failed", slog.String("rqID", rqID), slog.String("err", err.Error()))
		} else {
			slog.Debug("GetPriceRange completed", slog.String("rqID", rqID))
		}
	}()

	rows := []dbModel.Price{}
	err = r.txOrDb(ctx).SelectContext(ctx, &rows, query, symbol, marketdata.Day(from), marketdata.Day(to))
	if err != nil {
		return nil, err
	}

	return dbConverter.ConvertPrices(rows), nil
}

// UpsertPrices writes a downloaded series back to the persistent tier.
func (r *Postgres) UpsertPrices(ctx context.Context, symbol string, series model.PriceSeries) (err error) {
	rqID := utils.GetRequestIDFromCtx(ctx)
	query := `
		INSERT INTO price_cache(symbol, date, price, updated_at)
		VALUES ($1, $2, $3, $4)
		ON CONFLICT (symbol, date) DO UPDATE SET price = EXCLUDED.price, updated_at = EXCLUDED.updated_at
		`

	slog.Debug("UpsertPrices start", slog.String("rqID", rqID), slog.String("query", query), slog.Int("points", len(series)))
	defer func() {
		if err != nil {
			slog.Error("UpsertPrices failed", slog.String("rqID", rqID), slog.String("err", err.Error()))
		} else {
			slog.Debug("UpsertPrices completed", slog.String("rqID", rqID))
		}
	}()

	now := time.Now().UTC()
	for _, point := range series {
		_, err = r.txOrDb(ctx).ExecContext(ctx, query, symbol, marketdata.Day(point.Date), point.Price, now)
		if err != nil {
			return err
		}
	}

	return nil
}

// DeleteUnsettledPricesBefore prunes entries still inside the intraday-revision
// window whose updated_at is older than the short TTL. Settled entries (finality
// rule) are never touched here.
func (r *Postgres) DeleteUnsettledPricesBefore(ctx context.Context, settledBefore time.Time, updatedBefore time.Time) (deleted int64, err error) {
	rqID := utils.GetRequestIDFromCtx(ctx)
	query := `DELETE FROM price_cache WHERE date >= $1 AND updated_at < $2`

	slog.Debug("DeleteUnsettledPricesBefore start", slog.String("rqID", rqID), slog.String("query", query))
	defer func() {
		if err != nil {
			slog.Error("DeleteUnsettledPricesBefore failed", slog.String("rqID", rqID), slog.String("err", err.Error()))
		} else {
			slog.Debug("DeleteUnsettledPricesBefore completed", slog.String("rqID", rqID), slog.Int64("deleted", deleted))
		}
	}()

	res, err := r.txOrDb(ctx).ExecContext(ctx, query, marketdata.Day(settledBefore), updatedBefore)
	if err != nil {
		return 0, err
	}

	deleted, _ = res.RowsAffected()
	return deleted, nil
}
