package sellerstate

import (
	"context"
	"testing"
	"time"

	"github.com/bwmarrin/snowflake"
	"github.com/smallbiznis/shiftledger/internal/businessday"
	"github.com/smallbiznis/shiftledger/internal/clock"
	staffdomain "github.com/smallbiznis/shiftledger/internal/staff/domain"
	staffrepo "github.com/smallbiznis/shiftledger/internal/staff/repository"
	"github.com/smallbiznis/shiftledger/pkg/db"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap/zaptest"
	"gorm.io/gorm"
)

func setupService(t *testing.T) (*Service, *gorm.DB) {
	t.Helper()
	conn, err := db.NewTest()
	require.NoError(t, err)
	require.NoError(t, conn.AutoMigrate(&staffdomain.Staff{}, &State{}))

	now := time.Date(2024, 7, 1, 21, 0, 0, 0, time.UTC)
	for _, st := range []staffdomain.Staff{
		{ID: 10, Name: "Anna", Role: staffdomain.RoleSeller, Active: true, CreatedAt: now, UpdatedAt: now},
		{ID: 11, Name: "Boris", Role: staffdomain.RoleSeller, Active: true, CreatedAt: now, UpdatedAt: now},
		{ID: 20, Name: "Vera", Role: staffdomain.RoleDispatcher, Active: true, CreatedAt: now, UpdatedAt: now},
	} {
		require.NoError(t, conn.Create(&st).Error)
	}

	svc := NewService(Params{
		DB:        conn,
		Log:       zaptest.NewLogger(t),
		Clock:     clock.NewFakeClock(now),
		StaffRepo: staffrepo.Provide(),
	})
	return svc, conn
}

func TestApplyDayOncePerSeller(t *testing.T) {
	svc, _ := setupService(t)
	ctx := context.Background()
	day := businessday.MustParse("2024-07-01")

	res, err := svc.ApplyDay(ctx, nil, day, map[snowflake.ID]int64{10: 42000})
	require.NoError(t, err)
	assert.Len(t, res.Updated, 2)
	assert.Zero(t, res.Skipped)

	anna, err := svc.Get(ctx, 10)
	require.NoError(t, err)
	assert.Equal(t, 1, anna.CalibrationWorkedDays)
	assert.Equal(t, int64(42000), anna.CalibrationRevenueSum)

	boris, err := svc.Get(ctx, 11)
	require.NoError(t, err)
	assert.Equal(t, "2024-07-01", boris.LastEvalDay)
	assert.Zero(t, boris.CalibrationWorkedDays)

	res, err = svc.ApplyDay(ctx, nil, day, map[snowflake.ID]int64{10: 42000})
	require.NoError(t, err)
	assert.Empty(t, res.Updated)
	assert.Equal(t, 2, res.Skipped)

	anna, err = svc.Get(ctx, 10)
	require.NoError(t, err)
	assert.Equal(t, 1, anna.CalibrationWorkedDays)
}

func TestStreaks(t *testing.T) {
	svc, conn := setupService(t)
	ctx := context.Background()

	require.NoError(t, conn.Create(&State{SellerID: 10, Calibrated: true, CurrentLevel: LevelMid, StreakDays: 4, UpdatedAt: time.Now()}).Error)

	streaks, err := svc.Streaks(ctx, nil, []snowflake.ID{10, 11})
	require.NoError(t, err)
	assert.Equal(t, 4, streaks[10])
	assert.Equal(t, 0, streaks[11])
}
