package service

import (
	"context"
	"encoding/json"
	"testing"
	"time"

	"github.com/bwmarrin/snowflake"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/testutil"
	"github.com/smallbiznis/shiftledger/internal/businessday"
	"github.com/smallbiznis/shiftledger/internal/clock"
	"github.com/smallbiznis/shiftledger/internal/config"
	"github.com/smallbiznis/shiftledger/internal/ledger/aggregate"
	ledgerdomain "github.com/smallbiznis/shiftledger/internal/ledger/domain"
	ledgerservice "github.com/smallbiznis/shiftledger/internal/ledger/service"
	"github.com/smallbiznis/shiftledger/internal/motivation"
	obsmetrics "github.com/smallbiznis/shiftledger/internal/observability/metrics"
	"github.com/smallbiznis/shiftledger/internal/payoutroll"
	"github.com/smallbiznis/shiftledger/internal/sellerstate"
	"github.com/smallbiznis/shiftledger/internal/settings"
	"github.com/smallbiznis/shiftledger/internal/shiftclose/domain"
	"github.com/smallbiznis/shiftledger/internal/shiftclose/repository"
	staffdomain "github.com/smallbiznis/shiftledger/internal/staff/domain"
	staffrepo "github.com/smallbiznis/shiftledger/internal/staff/repository"
	"github.com/smallbiznis/shiftledger/pkg/db"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap/zaptest"
	"gorm.io/gorm"
)

const testDay = "2024-07-01"

type fixture struct {
	db      *gorm.DB
	ledger  ledgerdomain.Service
	svc     *Service
	metrics *obsmetrics.SchedulerMetrics
}

func newFixture(t *testing.T) *fixture {
	t.Helper()
	conn, err := db.NewTest()
	require.NoError(t, err)
	require.NoError(t, conn.AutoMigrate(
		&staffdomain.Staff{},
		&ledgerdomain.LedgerEntry{},
		&ledgerdomain.Presale{},
		&ledgerdomain.SlotCompletion{},
		&domain.BusinessDay{},
		&domain.Snapshot{},
		&settings.DaySettings{},
		&sellerstate.State{},
		&payoutroll.DayStat{},
		&payoutroll.SeasonStat{},
		&payoutroll.AppliedDay{},
	))

	node, err := snowflake.NewNode(7)
	require.NoError(t, err)
	log := zaptest.NewLogger(t)
	clk := clock.NewFakeClock(time.Date(2024, 7, 1, 21, 30, 0, 0, time.UTC))
	staff := staffrepo.Provide()
	schedMetrics := obsmetrics.NewSchedulerMetricsForRegistry(prometheus.NewRegistry())

	now := clk.Now()
	for _, st := range []staffdomain.Staff{
		{ID: 10, Name: "Anna", Role: staffdomain.RoleSeller, Zone: "center", Active: true, CreatedAt: now, UpdatedAt: now},
		{ID: 11, Name: "Boris", Role: staffdomain.RoleSeller, Zone: "hedgehog", Active: true, CreatedAt: now, UpdatedAt: now},
	} {
		require.NoError(t, conn.Create(&st).Error)
	}

	owner := config.DefaultOwnerSettings()
	owner.Mode = config.MotivationModePersonal
	settingsSvc := settings.NewWithSource(conn, log, clk, config.NewStaticOwnerSettingsHolder(owner))
	agg := aggregate.NewAggregator(log, schedMetrics)
	sellerState := sellerstate.NewService(sellerstate.Params{DB: conn, Log: log, Clock: clk, StaffRepo: staff})
	motivationSvc := motivation.NewService(motivation.Params{
		DB:          conn,
		Log:         log,
		Clock:       clk,
		Aggregator:  agg,
		Settings:    settingsSvc,
		SellerState: sellerState,
		StaffRepo:   staff,
	})
	roll := payoutroll.NewService(payoutroll.Params{DB: conn, Log: log, Clock: clk, Settings: settingsSvc})

	svc := New(Params{
		DB:           conn,
		Log:          log,
		GenID:        node,
		Clock:        clk,
		Repo:         repository.Provide(),
		Aggregator:   agg,
		Settings:     settingsSvc,
		Motivation:   motivationSvc,
		SellerState:  sellerState,
		PayoutRoll:   roll,
		SchedMetrics: schedMetrics,
	})
	ledger := ledgerservice.NewService(ledgerservice.Params{
		DB:           conn,
		Log:          log,
		GenID:        node,
		Clock:        clk,
		SchedMetrics: schedMetrics,
	})
	return &fixture{db: conn, ledger: ledger, svc: svc, metrics: schedMetrics}
}

func (f *fixture) post(t *testing.T, seller int64, typ ledgerdomain.EntryType, method ledgerdomain.Method, amount int64) {
	t.Helper()
	id := snowflake.ID(seller)
	_, err := f.ledger.PostEntry(context.Background(), ledgerdomain.PostEntryRequest{
		BusinessDay: testDay,
		Type:        typ,
		Method:      method,
		Amount:      amount,
		SellerID:    &id,
	})
	require.NoError(t, err)
}

func (f *fixture) seedDay(t *testing.T) {
	t.Helper()
	f.post(t, 10, ledgerdomain.TypeSaleAcceptedCash, "", 60000)
	f.post(t, 10, ledgerdomain.TypeSaleAcceptedCard, "", 20000)
	f.post(t, 10, ledgerdomain.TypeSaleCancelReverse, ledgerdomain.MethodCash, 5000)
	f.post(t, 10, ledgerdomain.TypeDepositToOwnerCash, "", 40000)
	f.post(t, 11, ledgerdomain.TypeSaleAcceptedCash, "", 30000)
	f.post(t, 11, ledgerdomain.TypeDepositToOwnerCash, "", 30000)
}

func count(t *testing.T, conn *gorm.DB, model interface{}) int64 {
	t.Helper()
	var n int64
	require.NoError(t, conn.Model(model).Count(&n).Error)
	return n
}

func TestCloseShiftIsIdempotent(t *testing.T) {
	f := newFixture(t)
	f.seedDay(t)
	ctx := context.Background()
	counted := int64(20000)

	first, err := f.svc.CloseShift(ctx, domain.CloseShiftRequest{BusinessDay: testDay, ClosedBy: "owner", CashboxCount: &counted})
	require.NoError(t, err)

	entries := count(t, f.db, &ledgerdomain.LedgerEntry{})
	points, err := json.Marshal(seasonStats(t, f.db))
	require.NoError(t, err)

	second, err := f.svc.CloseShift(ctx, domain.CloseShiftRequest{BusinessDay: testDay, ClosedBy: "someone-else"})
	require.NoError(t, err)

	a, err := json.Marshal(first)
	require.NoError(t, err)
	b, err := json.Marshal(second)
	require.NoError(t, err)
	assert.Equal(t, string(a), string(b))

	pointsAfter, err := json.Marshal(seasonStats(t, f.db))
	require.NoError(t, err)
	assert.Equal(t, string(points), string(pointsAfter))
	assert.Equal(t, entries, count(t, f.db, &ledgerdomain.LedgerEntry{}))
	assert.Equal(t, int64(1), count(t, f.db, &domain.Snapshot{}))
	assert.Equal(t, int64(2), count(t, f.db, &payoutroll.AppliedDay{}))

	assert.Equal(t, float64(1), testutil.ToFloat64(f.metrics.ShiftClosesCounter(obsmetrics.CloseResultClosed)))
	assert.Equal(t, float64(1), testutil.ToFloat64(f.metrics.ShiftClosesCounter(obsmetrics.CloseResultAlreadyClosed)))
}

func TestCloseShiftRollsBackWhenSnapshotInsertFails(t *testing.T) {
	f := newFixture(t)
	f.seedDay(t)
	ctx := context.Background()
	entries := count(t, f.db, &ledgerdomain.LedgerEntry{})

	require.NoError(t, f.db.Exec(`CREATE TRIGGER reject_snapshot BEFORE INSERT ON shift_closures
BEGIN SELECT RAISE(ABORT, 'snapshot rejected'); END;`).Error)

	_, err := f.svc.CloseShift(ctx, domain.CloseShiftRequest{BusinessDay: testDay, ClosedBy: "owner"})
	require.Error(t, err)
	assert.Contains(t, err.Error(), "snapshot rejected")

	// the rolls ran before the insert and must be gone with it
	assert.Zero(t, count(t, f.db, &domain.Snapshot{}))
	assert.Zero(t, count(t, f.db, &payoutroll.AppliedDay{}))
	assert.Zero(t, count(t, f.db, &payoutroll.DayStat{}))
	assert.Zero(t, count(t, f.db, &payoutroll.SeasonStat{}))
	assert.Zero(t, count(t, f.db, &sellerstate.State{}))
	assert.Equal(t, entries, count(t, f.db, &ledgerdomain.LedgerEntry{}))
	assert.Equal(t, float64(1), testutil.ToFloat64(f.metrics.ShiftClosesCounter(obsmetrics.CloseResultFailed)))

	// the day is still open for writes
	f.post(t, 11, ledgerdomain.TypeSaleAcceptedCard, "", 1000)

	require.NoError(t, f.db.Exec(`DROP TRIGGER reject_snapshot`).Error)
	snap, err := f.svc.CloseShift(ctx, domain.CloseShiftRequest{BusinessDay: testDay, ClosedBy: "owner"})
	require.NoError(t, err)
	assert.Equal(t, int64(111000), snap.CollectedTotal)
	assert.Equal(t, int64(2), count(t, f.db, &payoutroll.AppliedDay{}))
}

func seasonStats(t *testing.T, conn *gorm.DB) []payoutroll.SeasonStat {
	t.Helper()
	var out []payoutroll.SeasonStat
	require.NoError(t, conn.Order("seller_id asc").Find(&out).Error)
	for i := range out {
		out[i].UpdatedAt = time.Time{}
	}
	return out
}

func TestCloseShiftTotals(t *testing.T) {
	f := newFixture(t)
	f.seedDay(t)
	counted := int64(20000)

	snap, err := f.svc.CloseShift(context.Background(), domain.CloseShiftRequest{BusinessDay: testDay, ClosedBy: "owner", CashboxCount: &counted})
	require.NoError(t, err)

	assert.Equal(t, int64(110000), snap.CollectedTotal)
	assert.Equal(t, int64(90000), snap.CollectedCash)
	assert.Equal(t, int64(20000), snap.CollectedCard)
	assert.Equal(t, int64(5000), snap.RefundTotal)
	assert.Equal(t, snap.CollectedTotal-snap.RefundTotal, snap.NetTotal)
	assert.Equal(t, int64(70000), snap.DepositCash)

	// personal mode at 15%: Anna 75,000 -> 11,250; Boris 30,000 -> 4,500
	assert.Equal(t, "personal", snap.MotivationMode)
	assert.Equal(t, int64(15750), snap.MotivationFund)
	assert.Equal(t, int64(15750), snap.SalaryDue)

	var sellers []domain.SellerRow
	require.NoError(t, json.Unmarshal(snap.Sellers, &sellers))
	require.Len(t, sellers, 2)
	assert.Equal(t, int64(20000), sellers[0].CashDue)
	assert.Equal(t, int64(20000), sellers[0].CardDue)
	assert.Equal(t, int64(11250), sellers[0].SalaryDue)
	assert.Zero(t, sellers[1].Liability)

	// owner cash = net - salary due - liabilities
	assert.Equal(t, snap.NetTotal-snap.SalaryDue-40000, snap.OwnerCashAvailable)

	var check domain.CashboxCheck
	require.NoError(t, json.Unmarshal(snap.CashboxCheck, &check))
	assert.Equal(t, int64(20000), check.Expected)
	require.NotNil(t, check.Discrepancy)
	assert.Zero(t, *check.Discrepancy)
	assert.Empty(t, check.Warnings)

	state, err := f.svc.sellerState.Get(context.Background(), 10)
	require.NoError(t, err)
	assert.Equal(t, testDay, state.LastEvalDay)
	assert.Equal(t, 1, state.CalibrationWorkedDays)
}

func TestRefundAfterCloseIsRejected(t *testing.T) {
	f := newFixture(t)
	f.seedDay(t)
	ctx := context.Background()

	_, err := f.svc.CloseShift(ctx, domain.CloseShiftRequest{BusinessDay: testDay, ClosedBy: "owner"})
	require.NoError(t, err)
	before := count(t, f.db, &ledgerdomain.LedgerEntry{})

	seller := snowflake.ID(10)
	_, err = f.ledger.PostEntry(ctx, ledgerdomain.PostEntryRequest{
		BusinessDay: testDay,
		Type:        ledgerdomain.TypeSaleCancelReverse,
		Method:      ledgerdomain.MethodCash,
		Amount:      1000,
		SellerID:    &seller,
	})
	closed, ok := domain.AsShiftClosed(err)
	require.True(t, ok)
	assert.Equal(t, testDay, closed.BusinessDay)
	assert.Equal(t, before, count(t, f.db, &ledgerdomain.LedgerEntry{}))
	assert.Equal(t, float64(1), testutil.ToFloat64(f.metrics.ShiftClosedRejectionsCounter("post_entry")))
}

func TestCloseShiftCashboxWarnings(t *testing.T) {
	f := newFixture(t)
	f.seedDay(t)

	snap, err := f.svc.CloseShift(context.Background(), domain.CloseShiftRequest{BusinessDay: testDay, ClosedBy: "owner"})
	require.NoError(t, err)

	var check domain.CashboxCheck
	require.NoError(t, json.Unmarshal(snap.CashboxCheck, &check))
	assert.Nil(t, check.Actual)
	require.Len(t, check.Warnings, 1)
	assert.Equal(t, ledgerdomain.WarningCashboxCountMissing, check.Warnings[0].Code)
}

func TestBuildCashboxCheckDiscrepancy(t *testing.T) {
	counted := int64(18000)
	check := BuildCashboxCheck([]aggregate.SellerAggregate{{SellerID: 1, CashDue: 15000}, {SellerID: 2, CashDue: 5000}}, &counted)

	assert.Equal(t, int64(20000), check.Expected)
	require.NotNil(t, check.Discrepancy)
	assert.Equal(t, int64(-2000), *check.Discrepancy)
	require.Len(t, check.Warnings, 1)
	assert.Equal(t, ledgerdomain.WarningCashboxDiscrepancy, check.Warnings[0].Code)
}

func TestCloseShiftValidation(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()
	negative := int64(-1)

	_, err := f.svc.CloseShift(ctx, domain.CloseShiftRequest{BusinessDay: "2024/07/01", ClosedBy: "owner"})
	assert.ErrorIs(t, err, businessday.ErrInvalidDayFormat)
	_, err = f.svc.CloseShift(ctx, domain.CloseShiftRequest{BusinessDay: testDay, ClosedBy: "  "})
	assert.ErrorIs(t, err, domain.ErrInvalidClosedBy)
	_, err = f.svc.CloseShift(ctx, domain.CloseShiftRequest{BusinessDay: testDay, ClosedBy: "owner", CashboxCount: &negative})
	assert.ErrorIs(t, err, domain.ErrInvalidCashbox)
	assert.Zero(t, count(t, f.db, &domain.Snapshot{}))
}

func TestSnapshotReads(t *testing.T) {
	f := newFixture(t)
	f.seedDay(t)
	ctx := context.Background()

	_, err := f.svc.GetSnapshot(ctx, testDay)
	assert.ErrorIs(t, err, domain.ErrSnapshotNotFound)

	_, err = f.svc.CloseShift(ctx, domain.CloseShiftRequest{BusinessDay: testDay, ClosedBy: "owner"})
	require.NoError(t, err)

	snap, err := f.svc.GetSnapshot(ctx, testDay)
	require.NoError(t, err)
	assert.Equal(t, "owner", snap.ClosedBy)

	list, err := f.svc.ListSnapshots(ctx, "2024-06-01", "2024-07-31")
	require.NoError(t, err)
	assert.Len(t, list, 1)

	_, err = f.svc.ListSnapshots(ctx, "2024-07-31", "2024-06-01")
	assert.ErrorIs(t, err, domain.ErrInvalidDateRange)
}

func TestDaySummaryOpenThenClosed(t *testing.T) {
	f := newFixture(t)
	f.seedDay(t)
	ctx := context.Background()

	open, err := f.svc.DaySummary(ctx, testDay)
	require.NoError(t, err)
	assert.False(t, open.Closed)
	require.NotNil(t, open.Aggregate)
	assert.Equal(t, int64(15750), open.SalaryDue)
	assert.Equal(t, open.Aggregate.Net.Total-open.SalaryDue-40000, open.OwnerCashAvailable)

	_, err = f.svc.CloseShift(ctx, domain.CloseShiftRequest{BusinessDay: testDay, ClosedBy: "owner"})
	require.NoError(t, err)

	closed, err := f.svc.DaySummary(ctx, testDay)
	require.NoError(t, err)
	assert.True(t, closed.Closed)
	require.NotNil(t, closed.Snapshot)
	assert.Equal(t, open.SalaryDue, closed.SalaryDue)
	assert.Equal(t, open.OwnerCashAvailable, closed.OwnerCashAvailable)
	assert.True(t, closed.Motivation.Closed)
}
