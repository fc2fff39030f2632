package postgres

import (
	"context"
	"log/slog"
	"time"

	"github.com/vkarpov-dev/portfolio_analyzer/internal/marketdata"
	"github.com/vkarpov-dev/portfolio_analyzer/internal/model"
	"github.com/vkarpov-dev/portfolio_analyzer/internal/model/dbModel"
	"github.com/vkarpov-dev/portfolio_analyzer/utils"
)

// ReplaceBalances swaps the stored running-balance snapshots for a user with a
// freshly computed set, inside one transaction.
func (r *Postgres) ReplaceBalances(ctx context.Context, userID string, balances []model.RunningBalance) error {
	return r.WithinTransaction(ctx, func(ctx context.Context) error {
		if err := r.deleteBalances(ctx, userID); err != nil {
			return err
		}
		return r.upsertBalances(ctx, userID, balances)
	})
}

func (r *Postgres) deleteBalances(ctx context.Context, userID string) (err error) {
	rqID := utils.GetRequestIDFromCtx(ctx)
	query := `DELETE FROM transaction_cache WHERE user_id = $1`

	slog.Debug("deleteBalances start", slog.String("rqID", rqID), slog.String("query", query))
	defer func() {
		if err != nil {
			slog.Error("deleteBalances failed", slog.String("rqID", rqID), slog.String("err", err.Error()))
		} else {
			slog.Debug("deleteBalances completed", slog.String("rqID", rqID))
		}
	}()

	_, err = r.txOrDb(ctx).ExecContext(ctx, query, userID)
	return err
}

func (r *Postgres) upsertBalances(ctx context.Context, userID string, balances []model.RunningBalance) (err error) {
	rqID := utils.GetRequestIDFromCtx(ctx)
	query := `
		INSERT INTO transaction_cache(user_id, date, symbol, running_units, cost_basis, realized_gl, dividend_income, option_gl, updated_at)
		VALUES (:user_id, :date, :symbol, :running_units, :cost_basis, :realized_gl, :dividend_income, :option_gl, :updated_at)
		ON CONFLICT (user_id, date, symbol) DO UPDATE SET
			running_units = EXCLUDED.running_units,
			cost_basis = EXCLUDED.cost_basis,
			realized_gl = EXCLUDED.realized_gl,
			dividend_income = EXCLUDED.dividend_income,
			option_gl = EXCLUDED.option_gl,
			updated_at = EXCLUDED.updated_at
		`

	slog.Debug("upsertBalances start", slog.String("rqID", rqID), slog.String("query", query), slog.Int("balances", len(balances)))
	defer func() {
		if err != nil {
			slog.Error("upsertBalances failed", slog.String("rqID", rqID), slog.String("err", err.Error()))
		} else {
			slog.Debug("upsertBalances completed", slog.String("rqID", rqID))
		}
	}()

	now := time.Now().UTC()
	for _, b := range balances {
		row := dbModel.Balance{
			UserID:         userID,
			Date:           marketdata.Day(b.Date),
			Symbol:         b.Symbol,
			RunningUnits:   b.RunningUnits,
			CostBasis:      b.CostBasis,
			RealizedGL:     b.RealizedGL,
			DividendIncome: b.DividendIncome,
			OptionGL:       b.OptionGL,
			UpdatedAt:      now,
		}
		_, err = r.txOrDb(ctx).NamedExecContext(ctx, query, row)
		if err != nil {
			return err
		}
	}

	return nil
}

// DeleteBalancesUpdatedBefore prunes snapshots that outlived the balances TTL.
func (r *Postgres) DeleteBalancesUpdatedBefore(ctx context.Context, updatedBefore time.Time) (deleted int64, err error) {
	rqID := utils.GetRequestIDFromCtx(ctx)
	query := `DELETE FROM transaction_cache WHERE updated_at < $1`

	slog.Debug("DeleteBalancesUpdatedBefore start", slog.String("rqID", rqID), slog.String("query", query))
	defer func() {
		if err != nil {
			slog.Error("DeleteBalancesUpdatedBefore failed", slog.String("rqID", rqID), slog.String("err", err.Error()))
		} else {
			slog.Debug("DeleteBalancesUpdatedBefore completed", slog.String("rqID", rqID), slog.Int64("deleted", deleted))
		}
	}()

	res, err := r.txOrDb(ctx).ExecContext(ctx, query, updatedBefore)
	if err != nil {
		return 0, err
	}

	deleted, _ = res.RowsAffected()
	return deleted, nil
}
