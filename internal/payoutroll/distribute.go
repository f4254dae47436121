// Package payoutroll accumulates daily points into week and season totals
// exactly once per seller and day, and splits the weekly and season pools.
package payoutroll

import (
	"github.com/shopspring/decimal"
	"github.com/smallbiznis/shiftledger/internal/money"
)

// RankShares returns the pool share of each rank for n ranked sellers.
func RankShares(n int) []decimal.Decimal {
	switch {
	case n <= 0:
		return nil
	case n == 1:
		return []decimal.Decimal{decimal.NewFromInt(1)}
	case n == 2:
		return []decimal.Decimal{
			decimal.RequireFromString("0.6"),
			decimal.RequireFromString("0.4"),
		}
	default:
		return []decimal.Decimal{
			decimal.RequireFromString("0.5"),
			decimal.RequireFromString("0.3"),
			decimal.RequireFromString("0.2"),
		}
	}
}

// DistributeWeekly pays sellers already sorted by rank. Each share is floored
// to 50 on its own and the remainder is not redistributed.
func DistributeWeekly(pool int64, ranked []WeeklySeller) ([]WeeklySeller, int64) {
	shares := RankShares(len(ranked))
	out := make([]WeeklySeller, len(ranked))
	var paid int64
	for i, s := range ranked {
		s.Rank = i + 1
		s.Share = decimal.Zero
		s.Payout = 0
		if i < len(shares) && pool > 0 {
			s.Share = shares[i]
			s.Payout = money.RoundDownTo50(money.FloorMul(pool, shares[i]))
		}
		paid += s.Payout
		out[i] = s
	}
	return out, paid
}

// DistributeSeason splits pool proportionally to points among eligible sellers.
func DistributeSeason(pool int64, sellers []SeasonSeller) ([]SeasonSeller, int64) {
	total := decimal.Zero
	for _, s := range sellers {
		if s.Eligible && s.Points.Sign() > 0 {
			total = total.Add(s.Points)
		}
	}
	out := make([]SeasonSeller, len(sellers))
	var paid int64
	for i, s := range sellers {
		s.Payout = 0
		if s.Eligible && s.Points.Sign() > 0 && pool > 0 {
			s.Payout = money.RoundDownTo50(money.FloorShare(pool, s.Points, total))
		}
		paid += s.Payout
		out[i] = s
	}
	return out, paid
}
