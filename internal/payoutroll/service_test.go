package payoutroll

import (
	"context"
	"testing"
	"time"

	"github.com/shopspring/decimal"
	"github.com/smallbiznis/shiftledger/internal/businessday"
	"github.com/smallbiznis/shiftledger/internal/clock"
	"github.com/smallbiznis/shiftledger/internal/config"
	"github.com/smallbiznis/shiftledger/internal/settings"
	staffdomain "github.com/smallbiznis/shiftledger/internal/staff/domain"
	"github.com/smallbiznis/shiftledger/pkg/db"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap/zaptest"
	"gorm.io/gorm"
)

func newTestService(t *testing.T) (*Service, *gorm.DB) {
	t.Helper()
	conn, err := db.NewTest()
	require.NoError(t, err)
	require.NoError(t, conn.AutoMigrate(&DayStat{}, &SeasonStat{}, &AppliedDay{}, &settings.DaySettings{}))

	log := zaptest.NewLogger(t)
	clk := clock.NewFakeClock(time.Date(2024, 7, 1, 22, 0, 0, 0, time.UTC))
	live := config.NewStaticOwnerSettingsHolder(config.DefaultOwnerSettings())
	svc := NewService(Params{
		DB:       conn,
		Log:      log,
		Clock:    clk,
		Settings: settings.NewWithSource(conn, log, clk, live),
	})
	return svc, conn
}

func defaultRules() settings.SeasonRules {
	return settings.Defaults().Season
}

func TestApplyDayTwiceKeepsSeasonPoints(t *testing.T) {
	svc, _ := newTestService(t)
	ctx := context.Background()
	day := businessday.MustParse("2024-07-01")
	rows := []DayRow{{SellerID: 10, Role: staffdomain.RoleSeller, Revenue: 100000, Points: decimal.RequireFromString("171.6")}}

	res, err := svc.ApplyDay(ctx, nil, day, rows, defaultRules())
	require.NoError(t, err)
	assert.Equal(t, 1, res.Applied)

	once, err := svc.SeasonPoints(ctx, 10, "2024")
	require.NoError(t, err)

	res, err = svc.ApplyDay(ctx, nil, day, rows, defaultRules())
	require.NoError(t, err)
	assert.Zero(t, res.Applied)
	assert.Equal(t, 1, res.Skipped)

	twice, err := svc.SeasonPoints(ctx, 10, "2024")
	require.NoError(t, err)
	assert.True(t, once.Equal(twice))
	assert.True(t, twice.Equal(decimal.RequireFromString("171.6")))
}

func TestApplyDayCountsSeasonWindows(t *testing.T) {
	svc, conn := newTestService(t)
	ctx := context.Background()

	for _, raw := range []string{"2024-07-01", "2024-09-10", "2024-09-28", "2024-10-02"} {
		_, err := svc.ApplyDay(ctx, nil, businessday.MustParse(raw), []DayRow{
			{SellerID: 10, Role: staffdomain.RoleSeller, Revenue: 1000, Points: decimal.NewFromInt(1)},
		}, defaultRules())
		require.NoError(t, err)
	}

	var stat SeasonStat
	require.NoError(t, conn.Where("seller_id = ? AND season_id = ?", 10, "2024").First(&stat).Error)
	assert.Equal(t, int64(3000), stat.RevenueTotal)
	assert.True(t, stat.PointsTotal.Equal(decimal.NewFromInt(3)))
	assert.Equal(t, 3, stat.WorkedDays)
	assert.Equal(t, 2, stat.FinalMonthWorkedDays)
	assert.Equal(t, 1, stat.EndWindowWorkedDays)
}

func TestOffSeasonDayStaysOutOfSeasonTotals(t *testing.T) {
	svc, conn := newTestService(t)
	ctx := context.Background()

	res, err := svc.ApplyDay(ctx, nil, businessday.MustParse("2024-01-15"), []DayRow{
		{SellerID: 10, Role: staffdomain.RoleSeller, Revenue: 1000000, Points: decimal.NewFromInt(1000)},
	}, defaultRules())
	require.NoError(t, err)
	assert.Equal(t, 1, res.Applied)

	var days int64
	require.NoError(t, conn.Model(&DayStat{}).Where("business_day = ?", "2024-01-15").Count(&days).Error)
	assert.Equal(t, int64(1), days)

	sum, err := svc.SeasonSummary(ctx, "2024")
	require.NoError(t, err)
	assert.Zero(t, sum.RevenueTotal)
	assert.Zero(t, sum.Pool)
	assert.Empty(t, sum.Sellers)

	points, err := svc.SeasonPoints(ctx, 10, "2024")
	require.NoError(t, err)
	assert.True(t, points.IsZero())

	_, err = svc.ApplyDay(ctx, nil, businessday.MustParse("2024-06-03"), []DayRow{
		{SellerID: 10, Role: staffdomain.RoleSeller, Revenue: 50000, Points: decimal.NewFromInt(50)},
	}, defaultRules())
	require.NoError(t, err)

	sum, err = svc.SeasonSummary(ctx, "2024")
	require.NoError(t, err)
	assert.Equal(t, int64(50000), sum.RevenueTotal)
	assert.Equal(t, int64(1000), sum.Pool)
	require.Len(t, sum.Sellers, 1)
	assert.True(t, sum.Sellers[0].Points.Equal(decimal.NewFromInt(50)))
}

func TestWeeklySummarySingleSeller(t *testing.T) {
	svc, _ := newTestService(t)
	ctx := context.Background()

	_, err := svc.ApplyDay(ctx, nil, businessday.MustParse("2024-07-03"), []DayRow{
		{SellerID: 10, Role: staffdomain.RoleSeller, Revenue: 10499, Points: decimal.RequireFromString("10.5")},
	}, defaultRules())
	require.NoError(t, err)

	sum, err := svc.WeeklySummary(ctx, "2024-W27")
	require.NoError(t, err)
	assert.Equal(t, "2024-07-01", sum.From)
	assert.Equal(t, "2024-07-07", sum.To)
	assert.Equal(t, int64(104), sum.Pool)
	require.Len(t, sum.Sellers, 1)
	assert.Equal(t, int64(100), sum.Sellers[0].Payout)
	assert.Equal(t, int64(4), sum.Remainder)
}

func TestWeeklySummaryExcludesDispatchersFromRanking(t *testing.T) {
	svc, _ := newTestService(t)
	ctx := context.Background()

	_, err := svc.ApplyDay(ctx, nil, businessday.MustParse("2024-07-02"), []DayRow{
		{SellerID: 10, Role: staffdomain.RoleSeller, Revenue: 400000, Points: decimal.NewFromInt(400)},
		{SellerID: 11, Role: staffdomain.RoleSeller, Revenue: 300000, Points: decimal.NewFromInt(500)},
		{SellerID: 20, Role: staffdomain.RoleDispatcher, Revenue: 300000, Points: decimal.NewFromInt(900)},
	}, defaultRules())
	require.NoError(t, err)

	sum, err := svc.WeeklySummary(ctx, "2024-W27")
	require.NoError(t, err)
	assert.Equal(t, int64(10000), sum.Pool)
	require.Len(t, sum.Sellers, 2)
	assert.EqualValues(t, 11, sum.Sellers[0].SellerID)
	assert.Equal(t, int64(6000), sum.Sellers[0].Payout)
	assert.EqualValues(t, 10, sum.Sellers[1].SellerID)
	assert.Equal(t, int64(4000), sum.Sellers[1].Payout)
}

func TestWeeklySummaryRejectsBadWeek(t *testing.T) {
	svc, _ := newTestService(t)
	_, err := svc.WeeklySummary(context.Background(), "2024-27")
	assert.ErrorIs(t, err, businessday.ErrInvalidWeekID)
}

func TestSeasonSummaryEligibility(t *testing.T) {
	svc, conn := newTestService(t)
	ctx := context.Background()
	now := time.Date(2024, 10, 1, 0, 0, 0, 0, time.UTC)

	for _, st := range []SeasonStat{
		{SellerID: 1, SeasonID: "2024", Role: staffdomain.RoleSeller, RevenueTotal: 1000000, PointsTotal: decimal.NewFromInt(9999), WorkedDays: 74, FinalMonthWorkedDays: 25, EndWindowWorkedDays: 5, UpdatedAt: now},
		{SellerID: 2, SeasonID: "2024", Role: staffdomain.RoleSeller, RevenueTotal: 500000, PointsTotal: decimal.NewFromInt(100), WorkedDays: 75, FinalMonthWorkedDays: 20, EndWindowWorkedDays: 1, UpdatedAt: now},
		{SellerID: 3, SeasonID: "2024", Role: staffdomain.RoleSeller, RevenueTotal: 500000, PointsTotal: decimal.NewFromInt(200), WorkedDays: 80, FinalMonthWorkedDays: 22, EndWindowWorkedDays: 3, UpdatedAt: now},
		{SellerID: 4, SeasonID: "2024", Role: staffdomain.RoleSeller, RevenueTotal: 0, PointsTotal: decimal.NewFromInt(50), WorkedDays: 90, FinalMonthWorkedDays: 25, EndWindowWorkedDays: 0, UpdatedAt: now},
	} {
		require.NoError(t, conn.Create(&st).Error)
	}

	sum, err := svc.SeasonSummary(ctx, "2024")
	require.NoError(t, err)
	assert.Equal(t, "2024-05-01", sum.From)
	assert.Equal(t, "2024-09-30", sum.To)
	assert.Equal(t, "2024-09-24", sum.EndWindowStart)
	assert.Equal(t, int64(40000), sum.Pool)

	require.Len(t, sum.Sellers, 4)
	assert.False(t, sum.Sellers[0].Eligible)
	assert.Zero(t, sum.Sellers[0].Payout)
	assert.Equal(t, int64(13300), sum.Sellers[1].Payout)
	assert.Equal(t, int64(26650), sum.Sellers[2].Payout)
	assert.False(t, sum.Sellers[3].Eligible)
	assert.Equal(t, int64(50), sum.Remainder)
}
