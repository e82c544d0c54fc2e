package utils

import (
	"fmt"
	"time"

	"github.com/shopspring/decimal"
)

// DateLayout is the calendar date format used in month keys, API payloads and logs.
const DateLayout = "2006-01-02"

// DateOnly drops the time-of-day and returns the calendar date of t as UTC midnight.
// The calendar date is taken in t's own location.
func DateOnly(t time.Time) time.Time {
	y, m, d := t.Date()
	return time.Date(y, m, d, 0, 0, 0, 0, time.UTC)
}

// WholeDaysBetween returns the number of calendar days from `from` to `to`.
// Negative when `to` is before `from`.
func WholeDaysBetween(from, to time.Time) int {
	diff := DateOnly(to).Sub(DateOnly(from))
	return int(diff.Hours() / 24)
}

// FirstDayOfMonth returns the first calendar day of the given month.
func FirstDayOfMonth(year int, month time.Month) time.Time {
	return time.Date(year, month, 1, 0, 0, 0, 0, time.UTC)
}

// LastDayOfMonth returns the last calendar day of the given month.
func LastDayOfMonth(year int, month time.Month) time.Time {
	return FirstDayOfMonth(year, month).AddDate(0, 1, -1)
}

// MonthKey formats a calendar month as YYYY-MM.
func MonthKey(year int, month time.Month) string {
	return fmt.Sprintf("%04d-%02d", year, int(month))
}

// IsDateOverdue reports whether dueDate lies strictly before today, comparing calendar dates only.
func IsDateOverdue(dueDate, today time.Time) bool {
	return DateOnly(dueDate).Before(DateOnly(today))
}

// ParseDate parses a YYYY-MM-DD calendar date.
func ParseDate(s string) (time.Time, error) {
	return time.Parse(DateLayout, s)
}

// MinDecimal returns the smaller of a and b.
func MinDecimal(a, b decimal.Decimal) decimal.Decimal {
	if a.LessThan(b) {
		return a
	}
	return b
}
