package payoutroll

import (
	"testing"

	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestRankShares(t *testing.T) {
	assert.Empty(t, RankShares(0))
	assert.Len(t, RankShares(1), 1)
	assert.True(t, RankShares(2)[0].Equal(decimal.RequireFromString("0.6")))
	assert.True(t, RankShares(2)[1].Equal(decimal.RequireFromString("0.4")))
	assert.Len(t, RankShares(7), 3)
}

func TestDistributeWeeklySingleSeller(t *testing.T) {
	out, paid := DistributeWeekly(104, []WeeklySeller{{SellerID: 1, Points: decimal.NewFromInt(10)}})
	require.Len(t, out, 1)
	assert.Equal(t, 1, out[0].Rank)
	assert.Equal(t, int64(100), out[0].Payout)
	assert.Equal(t, int64(100), paid)
}

func TestDistributeWeeklyThreeSellers(t *testing.T) {
	ranked := []WeeklySeller{
		{SellerID: 1, Points: decimal.NewFromInt(100000)},
		{SellerID: 2, Points: decimal.NewFromInt(80000)},
		{SellerID: 3, Points: decimal.NewFromInt(50000)},
	}
	out, paid := DistributeWeekly(15000, ranked)
	assert.Equal(t, int64(7500), out[0].Payout)
	assert.Equal(t, int64(4500), out[1].Payout)
	assert.Equal(t, int64(3000), out[2].Payout)
	assert.Equal(t, int64(15000), paid)
}

func TestDistributeWeeklyBeyondRankThree(t *testing.T) {
	ranked := make([]WeeklySeller, 5)
	for i := range ranked {
		ranked[i] = WeeklySeller{SellerID: 1}
	}
	out, paid := DistributeWeekly(10399, ranked)
	assert.Equal(t, int64(5150), out[0].Payout)
	assert.Equal(t, int64(3100), out[1].Payout)
	assert.Equal(t, int64(2050), out[2].Payout)
	assert.Zero(t, out[3].Payout)
	assert.Zero(t, out[4].Payout)
	assert.LessOrEqual(t, paid, int64(10399))
	assert.Equal(t, int64(10300), paid)
}

func TestDistributeSeasonSkipsIneligible(t *testing.T) {
	sellers := []SeasonSeller{
		{SellerID: 1, Points: decimal.NewFromInt(9999), WorkedDays: 74, Eligible: false},
		{SellerID: 2, Points: decimal.NewFromInt(100), WorkedDays: 75, Eligible: true},
		{SellerID: 3, Points: decimal.NewFromInt(200), WorkedDays: 80, Eligible: true},
	}
	out, paid := DistributeSeason(40000, sellers)
	assert.Zero(t, out[0].Payout)
	assert.Equal(t, int64(13300), out[1].Payout)
	assert.Equal(t, int64(26650), out[2].Payout)
	assert.Equal(t, int64(39950), paid)
}
