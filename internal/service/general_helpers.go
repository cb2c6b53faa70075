package service

import (
	"time"

	"github.com/shopspring/decimal"
)

// PercentScale is the number of fractional digits kept for percentages
// (pnlPercent, weights, allocation, alert measurements).
const PercentScale int32 = 8

var (
	hundred = decimal.NewFromInt(100)
	two     = decimal.NewFromInt(2)
)

// divHalfEven divides num by den and rounds the quotient half-to-even at scale
// fractional digits. Rounding is done once, on the exact remainder, so repeated
// folds never accumulate double-rounding error.
//
// Example:
//
//	divHalfEven(decimal.NewFromInt(1), decimal.NewFromInt(8), 2)  // 0.12
//	divHalfEven(decimal.NewFromInt(3), decimal.NewFromInt(8), 2)  // 0.38
//	divHalfEven(decimal.NewFromInt(-5), decimal.NewFromInt(2), 0) // -2
//
// den must not be zero.
func divHalfEven(num, den decimal.Decimal, scale int32) decimal.Decimal {
	q, r := num.QuoRem(den, scale)
	if r.IsZero() {
		return q
	}

	unit := decimal.New(1, -scale)
	cmp := r.Abs().Mul(two).Cmp(den.Abs().Mul(unit))
	roundAway := cmp > 0
	if cmp == 0 {
		// exact tie: round to the even neighbour
		roundAway = q.Shift(scale).BigInt().Bit(0) == 1
	}
	if !roundAway {
		return q
	}
	if num.Sign()*den.Sign() < 0 {
		return q.Sub(unit)
	}
	return q.Add(unit)
}

// percentOf returns part/whole*100 at PercentScale, or zero when whole is zero.
func percentOf(part, whole decimal.Decimal) decimal.Decimal {
	if whole.IsZero() {
		return decimal.Zero
	}
	return divHalfEven(part.Mul(hundred), whole, PercentScale)
}

// startOfDay truncates t to midnight UTC.
func startOfDay(t time.Time) time.Time {
	t = t.UTC()
	return time.Date(t.Year(), t.Month(), t.Day(), 0, 0, 0, 0, time.UTC)
}

// endOfDay returns the last representable instant of t's UTC day.
func endOfDay(t time.Time) time.Time {
	return startOfDay(t).AddDate(0, 0, 1).Add(-time.Nanosecond)
}

// dateKey formats t as YYYY-MM-DD in UTC.
func dateKey(t time.Time) string {
	return t.UTC().Format(time.DateOnly)
}
