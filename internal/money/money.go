// Package money holds the integer rounding rules applied to payouts.
// Amounts are minor currency units.
package money

import "github.com/shopspring/decimal"

// Bucket is the payout granularity.
const Bucket int64 = 50

// RoundDownTo50 returns the largest multiple of 50 not greater than a.
// Negative amounts move toward negative infinity on the same grid.
func RoundDownTo50(a int64) int64 {
	r := a % Bucket
	if r < 0 {
		r += Bucket
	}
	return a - r
}

// FloorMul returns floor(amount × factor).
func FloorMul(amount int64, factor decimal.Decimal) int64 {
	return decimal.NewFromInt(amount).Mul(factor).Floor().IntPart()
}

// FloorDiv returns floor(amount / n); n <= 0 yields 0.
func FloorDiv(amount int64, n int) int64 {
	if n <= 0 {
		return 0
	}
	q := amount / int64(n)
	if amount%int64(n) != 0 && amount < 0 {
		q--
	}
	return q
}

// FloorShare returns floor(amount × part / whole) without intermediate rounding.
func FloorShare(amount int64, part, whole decimal.Decimal) int64 {
	if whole.Sign() <= 0 {
		return 0
	}
	return decimal.NewFromInt(amount).Mul(part).Div(whole).Floor().IntPart()
}

// Abs is the absolute value of an amount.
func Abs(a int64) int64 {
	if a < 0 {
		return -a
	}
	return a
}

// NonNegative clips a at zero.
func NonNegative(a int64) int64 {
	if a < 0 {
		return 0
	}
	return a
}
