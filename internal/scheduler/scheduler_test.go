package scheduler

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/bwmarrin/snowflake"
	"github.com/prometheus/client_golang/prometheus"
	dto "github.com/prometheus/client_model/go"
	"github.com/smallbiznis/shiftledger/internal/clock"
	ledgerdomain "github.com/smallbiznis/shiftledger/internal/ledger/domain"
	obsmetrics "github.com/smallbiznis/shiftledger/internal/observability/metrics"
	shiftclosedomain "github.com/smallbiznis/shiftledger/internal/shiftclose/domain"
	"github.com/smallbiznis/shiftledger/internal/shiftclose/repository"
	"github.com/smallbiznis/shiftledger/pkg/db"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/mock"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"
	"go.uber.org/zap/zaptest"
	"gorm.io/gorm"
)

type closerMock struct {
	mock.Mock
}

func (m *closerMock) CloseShift(ctx context.Context, req shiftclosedomain.CloseShiftRequest) (*shiftclosedomain.Snapshot, error) {
	args := m.Called(ctx, req)
	snap, _ := args.Get(0).(*shiftclosedomain.Snapshot)
	return snap, args.Error(1)
}

func closeReq(day string) shiftclosedomain.CloseShiftRequest {
	return shiftclosedomain.CloseShiftRequest{BusinessDay: day, ClosedBy: "scheduler"}
}

func newTestScheduler(t *testing.T, cfg Config, closer DayCloser) (*Scheduler, *gorm.DB) {
	t.Helper()
	conn, err := db.NewTest()
	require.NoError(t, err)
	require.NoError(t, conn.AutoMigrate(&ledgerdomain.LedgerEntry{}, &shiftclosedomain.Snapshot{}))

	node, err := snowflake.NewNode(3)
	require.NoError(t, err)
	s, err := New(Params{
		DB:           conn,
		Log:          zaptest.NewLogger(t),
		GenID:        node,
		Clock:        clock.NewFakeClock(time.Date(2024, 7, 1, 10, 0, 0, 0, time.UTC)),
		Repo:         repository.Provide(),
		Closer:       closer,
		SchedMetrics: obsmetrics.NewSchedulerMetricsForRegistry(prometheus.NewRegistry()),
		Config:       cfg,
	})
	require.NoError(t, err)
	return s, conn
}

func seedEntry(t *testing.T, conn *gorm.DB, id int64, day string) {
	t.Helper()
	require.NoError(t, conn.Create(&ledgerdomain.LedgerEntry{
		ID:          snowflake.ID(id),
		BusinessDay: day,
		Kind:        ledgerdomain.KindSellerShift,
		Type:        ledgerdomain.TypeSaleAcceptedCash,
		Amount:      1000,
		Method:      ledgerdomain.MethodCash,
		Status:      ledgerdomain.StatusPosted,
		CreatedAt:   time.Date(2024, 7, 1, 9, 0, 0, 0, time.UTC),
	}).Error)
}

func TestAutoCloseClosesStaleOpenDays(t *testing.T) {
	closer := &closerMock{}
	s, conn := newTestScheduler(t, Config{AutoCloseAfterDays: 1}, closer)

	seedEntry(t, conn, 1, "2024-06-28")
	seedEntry(t, conn, 2, "2024-06-29")
	seedEntry(t, conn, 3, "2024-06-30")
	seedEntry(t, conn, 4, "2024-06-30")
	seedEntry(t, conn, 5, "2024-07-01")
	require.NoError(t, conn.Create(&shiftclosedomain.Snapshot{
		ID:           9,
		BusinessDay:  "2024-06-29",
		ClosedAt:     time.Date(2024, 6, 29, 22, 0, 0, 0, time.UTC),
		ClosedBy:     "owner",
		Sellers:      []byte("[]"),
		Payouts:      []byte("{}"),
		CashboxCheck: []byte("{}"),
		Warnings:     []byte("[]"),
	}).Error)

	closer.On("CloseShift", mock.Anything, closeReq("2024-06-28")).
		Return(&shiftclosedomain.Snapshot{BusinessDay: "2024-06-28", ClosedBy: "scheduler"}, nil).Once()
	closer.On("CloseShift", mock.Anything, closeReq("2024-06-30")).
		Return(&shiftclosedomain.Snapshot{BusinessDay: "2024-06-30", ClosedBy: "scheduler"}, nil).Once()

	require.NoError(t, s.RunOnce(context.Background()))
	closer.AssertExpectations(t)
	closer.AssertNotCalled(t, "CloseShift", mock.Anything, closeReq("2024-07-01"))
	closer.AssertNotCalled(t, "CloseShift", mock.Anything, closeReq("2024-06-29"))
}

func TestAutoCloseReportsFailuresAndSkipsHeldLocks(t *testing.T) {
	closer := &closerMock{}
	s, conn := newTestScheduler(t, Config{AutoCloseAfterDays: 2}, closer)

	seedEntry(t, conn, 1, "2024-06-27")
	seedEntry(t, conn, 2, "2024-06-28")
	seedEntry(t, conn, 3, "2024-06-29")
	seedEntry(t, conn, 4, "2024-06-30")

	boom := errors.New("boom")
	closer.On("CloseShift", mock.Anything, closeReq("2024-06-27")).Return(nil, shiftclosedomain.ErrCloseLockNotHeld).Once()
	closer.On("CloseShift", mock.Anything, closeReq("2024-06-28")).Return(nil, boom).Once()
	closer.On("CloseShift", mock.Anything, closeReq("2024-06-29")).
		Return(&shiftclosedomain.Snapshot{BusinessDay: "2024-06-29", ClosedBy: "scheduler"}, nil).Once()

	err := s.RunOnce(context.Background())
	require.Error(t, err)
	assert.ErrorIs(t, err, boom)
	assert.NotErrorIs(t, err, shiftclosedomain.ErrCloseLockNotHeld)
	closer.AssertExpectations(t)
	closer.AssertNotCalled(t, "CloseShift", mock.Anything, closeReq("2024-06-30"))
}

func TestAutoCloseDisabled(t *testing.T) {
	closer := &closerMock{}
	s, conn := newTestScheduler(t, Config{}, closer)
	seedEntry(t, conn, 1, "2024-06-01")

	require.NoError(t, s.RunOnce(context.Background()))
	closer.AssertNotCalled(t, "CloseShift", mock.Anything, mock.Anything)
}

func TestAutoCloseRespectsEnabledJobs(t *testing.T) {
	closer := &closerMock{}
	s, conn := newTestScheduler(t, Config{AutoCloseAfterDays: 1, EnabledJobs: []string{"something_else"}}, closer)
	seedEntry(t, conn, 1, "2024-06-01")

	require.NoError(t, s.RunOnce(context.Background()))
	closer.AssertNotCalled(t, "CloseShift", mock.Anything, mock.Anything)
}

func TestRunJobTimeoutDoesNotReturnErrorAndIncrementsTimeout(t *testing.T) {
	registry := prometheus.NewRegistry()
	restore := swapPrometheusRegistry(registry)
	defer restore()

	obsmetrics.ResetSchedulerMetricsForTest()
	obsmetrics.SchedulerWithConfig(obsmetrics.Config{
		ServiceName: "shiftledger",
		Environment: "test",
	})

	node, err := snowflake.NewNode(1)
	if err != nil {
		t.Fatalf("snowflake node: %v", err)
	}

	s := &Scheduler{log: zap.NewNop(), genID: node, clock: clock.SystemClock{}}
	err = s.runJob(context.Background(), "timeout_job", 0, 5*time.Millisecond, func(ctx context.Context) error {
		<-ctx.Done()
		return ctx.Err()
	})
	if err != nil {
		t.Fatalf("expected no error, got %v", err)
	}

	labels := map[string]string{
		"service": "shiftledger",
		"env":     "test",
		"job":     "timeout_job",
	}
	if got := getCounterValue(t, registry, "shiftledger_scheduler_job_timeouts_total", labels); got != 1 {
		t.Fatalf("expected timeout count 1, got %v", got)
	}

	errorLabels := map[string]string{
		"service": "shiftledger",
		"env":     "test",
		"job":     "timeout_job",
		"reason":  obsmetrics.SchedulerJobReasonDeadlineExceeded,
	}
	if got := getCounterValue(t, registry, "shiftledger_scheduler_job_errors_total", errorLabels); got != 1 {
		t.Fatalf("expected error count 1, got %v", got)
	}
}

func swapPrometheusRegistry(registry *prometheus.Registry) func() {
	oldRegisterer := prometheus.DefaultRegisterer
	oldGatherer := prometheus.DefaultGatherer
	prometheus.DefaultRegisterer = registry
	prometheus.DefaultGatherer = registry
	return func() {
		prometheus.DefaultRegisterer = oldRegisterer
		prometheus.DefaultGatherer = oldGatherer
		obsmetrics.ResetSchedulerMetricsForTest()
	}
}

func getCounterValue(t *testing.T, registry *prometheus.Registry, name string, labels map[string]string) float64 {
	t.Helper()
	metricFamilies, err := registry.Gather()
	if err != nil {
		t.Fatalf("gather metrics: %v", err)
	}
	for _, mf := range metricFamilies {
		if mf.GetName() != name {
			continue
		}
		for _, metric := range mf.Metric {
			if !labelsMatch(metric, labels) {
				continue
			}
			if metric.Counter == nil {
				t.Fatalf("metric %s is not a counter", name)
			}
			return metric.GetCounter().GetValue()
		}
	}
	t.Fatalf("metric %s with labels %v not found", name, labels)
	return 0
}

func labelsMatch(metric *dto.Metric, labels map[string]string) bool {
	if len(metric.Label) != len(labels) {
		return false
	}
	for _, label := range metric.Label {
		if labels[label.GetName()] != label.GetValue() {
			return false
		}
	}
	return true
}
