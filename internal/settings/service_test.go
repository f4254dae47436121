package settings

import (
	"context"
	"testing"
	"time"

	"github.com/shopspring/decimal"
	"github.com/smallbiznis/shiftledger/internal/clock"
	"github.com/smallbiznis/shiftledger/internal/config"
	"github.com/smallbiznis/shiftledger/pkg/db"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/mock"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap/zaptest"
)

type liveSourceMock struct {
	mock.Mock
}

func (m *liveSourceMock) Get() config.OwnerSettings {
	args := m.Called()
	return args.Get(0).(config.OwnerSettings)
}

func newTestService(t *testing.T, live LiveSource) *Service {
	t.Helper()
	conn, err := db.NewTest()
	require.NoError(t, err)
	require.NoError(t, conn.AutoMigrate(&DaySettings{}))
	clk := clock.NewFakeClock(time.Date(2024, 7, 1, 20, 0, 0, 0, time.UTC))
	return NewWithSource(conn, zaptest.NewLogger(t), clk, live)
}

func TestFreezeForDayIgnoresLaterChanges(t *testing.T) {
	first := config.DefaultOwnerSettings()
	first.MotivationPercent = 0.15
	changed := config.DefaultOwnerSettings()
	changed.MotivationPercent = 0.25

	live := &liveSourceMock{}
	live.On("Get").Return(first).Once()
	live.On("Get").Return(changed)

	svc := newTestService(t, live)
	ctx := context.Background()

	frozen, err := svc.FreezeForDay(ctx, nil, "2024-07-01")
	require.NoError(t, err)
	assert.True(t, frozen.MotivationPercent.Equal(decimal.RequireFromString("0.15")))

	again, err := svc.FreezeForDay(ctx, nil, "2024-07-01")
	require.NoError(t, err)
	assert.True(t, again.MotivationPercent.Equal(decimal.RequireFromString("0.15")))

	next, err := svc.FreezeForDay(ctx, nil, "2024-07-02")
	require.NoError(t, err)
	assert.True(t, next.MotivationPercent.Equal(decimal.RequireFromString("0.25")))

	live.AssertNumberOfCalls(t, "Get", 2)
}

func TestForDayDoesNotFreeze(t *testing.T) {
	live := &liveSourceMock{}
	live.On("Get").Return(config.DefaultOwnerSettings())

	svc := newTestService(t, live)
	ctx := context.Background()

	got, frozen, err := svc.ForDay(ctx, "2024-07-03")
	require.NoError(t, err)
	assert.False(t, frozen)
	assert.Equal(t, config.MotivationModeAdaptive, got.Mode)

	var count int64
	require.NoError(t, svc.db.Model(&DaySettings{}).Count(&count).Error)
	assert.Zero(t, count)
}

func TestLatestFrozenInRange(t *testing.T) {
	early := config.DefaultOwnerSettings()
	early.WeeklyPercent = 0.01
	late := config.DefaultOwnerSettings()
	late.WeeklyPercent = 0.02

	live := &liveSourceMock{}
	live.On("Get").Return(early).Once()
	live.On("Get").Return(late)

	svc := newTestService(t, live)
	ctx := context.Background()

	_, err := svc.FreezeForDay(ctx, nil, "2024-07-01")
	require.NoError(t, err)
	_, err = svc.FreezeForDay(ctx, nil, "2024-07-04")
	require.NoError(t, err)

	got, frozen, err := svc.LatestFrozenInRange(ctx, nil, "2024-07-01", "2024-07-07")
	require.NoError(t, err)
	assert.True(t, frozen)
	assert.True(t, got.WeeklyPercent.Equal(decimal.RequireFromString("0.02")))

	got, frozen, err = svc.LatestFrozenInRange(ctx, nil, "2024-07-01", "2024-07-03")
	require.NoError(t, err)
	assert.True(t, frozen)
	assert.True(t, got.WeeklyPercent.Equal(decimal.RequireFromString("0.01")))

	_, frozen, err = svc.LatestFrozenInRange(ctx, nil, "2024-08-01", "2024-08-07")
	require.NoError(t, err)
	assert.False(t, frozen)
}

func TestNormalize(t *testing.T) {
	s := Settings{
		TeamShare:       decimal.RequireFromString("0.6"),
		IndividualShare: decimal.RequireFromString("0.6"),
	}.Normalize()
	assert.True(t, s.TeamShare.Equal(decimal.RequireFromString("0.5")))
	assert.True(t, s.IndividualShare.Equal(decimal.RequireFromString("0.5")))

	zero := Settings{}.Normalize()
	assert.True(t, zero.TeamShare.Equal(decimal.RequireFromString("0.3")))
	assert.True(t, zero.IndividualShare.Equal(decimal.RequireFromString("0.7")))
}

func TestCoefficientDefaultsToOne(t *testing.T) {
	s := Defaults()
	assert.True(t, Coefficient(s.ZoneCoefficients, "Hedgehog").Equal(decimal.RequireFromString("1.3")))
	assert.True(t, Coefficient(s.ZoneCoefficients, "lighthouse").Equal(decimal.NewFromInt(1)))
}
