package model

import (
	"fmt"
	"time"

	"github.com/shopspring/decimal"
)

// Reserved ledger symbols. Neither is ever priced externally: cash is fixed at
// 1.0 per unit, fixed income at 100.0 face value.
const (
	CashSymbol        = "CASH EQUIVALENTS"
	FixedIncomeSymbol = "FIXED INCOME"
)

var (
	CashPrice        = decimal.NewFromInt(1)
	FixedIncomePrice = decimal.NewFromInt(100)
)

type TransactionType string

const (
	TxnBuy           TransactionType = "buy"
	TxnSell          TransactionType = "sell"
	TxnReinvest      TransactionType = "reinvest"
	TxnDividend      TransactionType = "dividend"
	TxnInterest      TransactionType = "interest"
	TxnTransfer      TransactionType = "transfer"
	TxnStockTransfer TransactionType = "stock_transfer"
	TxnSplit         TransactionType = "split"
	TxnSellToOpen    TransactionType = "sell_to_open"
	TxnSellToClose   TransactionType = "sell_to_close"
	TxnBuyToOpen     TransactionType = "buy_to_open"
	TxnBuyToClose    TransactionType = "buy_to_close"
	TxnAssigned      TransactionType = "assigned"
	TxnExpired       TransactionType = "expired"
	TxnAdjustment    TransactionType = "adjustment"
	TxnOther         TransactionType = "other"
)

var transactionTypes = map[TransactionType]struct{}{
	TxnBuy: {}, TxnSell: {}, TxnReinvest: {}, TxnDividend: {}, TxnInterest: {},
	TxnTransfer: {}, TxnStockTransfer: {}, TxnSplit: {}, TxnSellToOpen: {},
	TxnSellToClose: {}, TxnBuyToOpen: {}, TxnBuyToClose: {}, TxnAssigned: {},
	TxnExpired: {}, TxnAdjustment: {}, TxnOther: {},
}

func ParseTransactionType(s string) (TransactionType, error) {
	t := TransactionType(s)
	if _, ok := transactionTypes[t]; !ok {
		return "", fmt.Errorf("unknown transaction type %q", s)
	}
	return t, nil
}

// IsOptionLeg reports whether the type is one of the four option premium legs.
func (t TransactionType) IsOptionLeg() bool {
	switch t {
	case TxnSellToOpen, TxnSellToClose, TxnBuyToOpen, TxnBuyToClose:
		return true
	}
	return false
}

// IsOptionCredit reports whether the leg credits cash (premium received).
func (t TransactionType) IsOptionCredit() bool {
	return t == TxnSellToOpen || t == TxnSellToClose
}

type SecurityType string

const (
	SecurityStock       SecurityType = "stock"
	SecurityOption      SecurityType = "option"
	SecurityCash        SecurityType = "cash"
	SecurityFixedIncome SecurityType = "fixed_income"
)

func ParseSecurityType(s string) (SecurityType, error) {
	switch t := SecurityType(s); t {
	case SecurityStock, SecurityOption, SecurityCash, SecurityFixedIncome:
		return t, nil
	}
	return "", fmt.Errorf("unknown security type %q", s)
}

type OptionType string

const (
	OptionNone OptionType = ""
	OptionCall OptionType = "call"
	OptionPut  OptionType = "put"
)

// Transaction is one normalized brokerage ledger row. The ledger is produced by
// the external CSV ingestion layer and is read-only here.
type Transaction struct {
	Date         time.Time
	Symbol       string
	Type         TransactionType
	Units        decimal.Decimal
	Price        decimal.Decimal
	Fee          decimal.Decimal
	SecurityType SecurityType
	OptionType   OptionType
	// Amount is an optional signed cash-flow override. When the broker reports the
	// net settled amount it takes precedence over units*price±fee.
	Amount decimal.NullDecimal
}

// CashAmountOr returns |Amount| when a non-zero override is present, otherwise fallback.
func (t Transaction) CashAmountOr(fallback decimal.Decimal) decimal.Decimal {
	if t.Amount.Valid && !t.Amount.Decimal.IsZero() {
		return t.Amount.Decimal.Abs()
	}
	return fallback
}

// SignedAmountOr returns the signed Amount when a non-zero override is present,
// otherwise fallback. Used for cash transfers where the sign carries direction.
func (t Transaction) SignedAmountOr(fallback decimal.Decimal) decimal.Decimal {
	if t.Amount.Valid && !t.Amount.Decimal.IsZero() {
		return t.Amount.Decimal
	}
	return fallback
}
