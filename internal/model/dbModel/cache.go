package dbModel

import (
	"time"

	"github.com/shopspring/decimal"
)

// Price is one price_cache row.
type Price struct {
	Symbol    string          `db:"symbol"`
	Date      time.Time       `db:"date"`
	Price     decimal.Decimal `db:"price"`
	UpdatedAt time.Time       `db:"updated_at"`
}

// Balance is one transaction_cache row: the latest running totals for a
// (user, symbol) pair as of Date.
type Balance struct {
	UserID         string          `db:"user_id"`
	Date           time.Time       `db:"date"`
	Symbol         string          `db:"symbol"`
	RunningUnits   decimal.Decimal `db:"running_units"`
	CostBasis      decimal.Decimal `db:"cost_basis"`
	RealizedGL     decimal.Decimal `db:"realized_gl"`
	DividendIncome decimal.Decimal `db:"dividend_income"`
	OptionGL       decimal.Decimal `db:"option_gl"`
	UpdatedAt      time.Time       `db:"updated_at"`
}
