// Package marketdata provides date normalization and the US trading-day calendar
// used by the price cache to resolve lookups that fall on non-trading days.
package marketdata

import "time"

const DateLayout = "2006-01-02"

// Day truncates t to midnight UTC so dates are comparable and usable as map keys.
func Day(t time.Time) time.Time {
	return time.Date(t.Year(), t.Month(), t.Day(), 0, 0, 0, 0, time.UTC)
}

func MustDay(value string) time.Time {
	t, err := time.Parse(DateLayout, value)
	if err != nil {
		panic(err)
	}
	return t
}

func FormatDay(t time.Time) string {
	return t.Format(DateLayout)
}
