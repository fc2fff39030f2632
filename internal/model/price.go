package model

import (
	"sort"
	"time"

	"github.com/shopspring/decimal"
)

type PriceStatus string

const (
	PriceAvailable   PriceStatus = "priced"
	PriceUnavailable PriceStatus = "unavailable"
)

// PriceQuote distinguishes a real close price from a failed lookup so callers
// choose the fallback policy instead of receiving a silent 0.0.
type PriceQuote struct {
	Symbol string
	Date   time.Time
	Price  decimal.Decimal
	Status PriceStatus
	Reason string
}

func Priced(symbol string, date time.Time, price decimal.Decimal) PriceQuote {
	return PriceQuote{Symbol: symbol, Date: date, Price: price, Status: PriceAvailable}
}

func Unavailable(symbol string, date time.Time, reason string) PriceQuote {
	return PriceQuote{Symbol: symbol, Date: date, Status: PriceUnavailable, Reason: reason}
}

type PricePoint struct {
	Date  time.Time
	Price decimal.Decimal
}

// PriceSeries is a per-symbol day-close series sorted ascending by date.
type PriceSeries []PricePoint

func (s PriceSeries) Sort() {
	sort.Slice(s, func(i, j int) bool { return s[i].Date.Before(s[j].Date) })
}

// LastOnOrBefore returns the latest close at or before d, walking past
// weekends and source gaps.
func (s PriceSeries) LastOnOrBefore(d time.Time) (decimal.Decimal, bool) {
	for i := len(s) - 1; i >= 0; i-- {
		if !s[i].Date.After(d) {
			return s[i].Price, true
		}
	}
	return decimal.Zero, false
}
