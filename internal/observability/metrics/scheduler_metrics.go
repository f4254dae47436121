package metrics

import (
	"context"
	"errors"
	"strings"
	"sync"
	"time"

	"github.com/jackc/pgx/v5/pgconn"
	"github.com/prometheus/client_golang/prometheus"
	"gorm.io/gorm"
)

const (
	SchedulerJobReasonDeadlineExceeded     = "deadline_exceeded"
	SchedulerJobReasonDBLockTimeout        = "db_lock_timeout"
	SchedulerJobReasonSerializationFailure = "serialization_failure"
	SchedulerJobReasonUniqueViolation      = "unique_violation"
	SchedulerJobReasonShiftClosed          = "shift_closed"
	SchedulerJobReasonUnknown              = "unknown"
)

const (
	CloseResultClosed        = "closed"
	CloseResultAlreadyClosed = "already_closed"
	CloseResultLostRace      = "lost_race"
	CloseResultFailed        = "failed"
)

type codedError interface {
	error
	Code() string
}

// SchedulerMetrics captures scheduler and settlement health signals.
type SchedulerMetrics struct {
	jobRuns        *prometheus.CounterVec
	jobDuration    *prometheus.HistogramVec
	jobTimeouts    *prometheus.CounterVec
	jobErrors      *prometheus.CounterVec
	batchProcessed *prometheus.CounterVec
	runLoopLag     prometheus.Observer

	shiftCloses       *prometheus.CounterVec
	closeDuration     prometheus.Observer
	closedRejections  *prometheus.CounterVec
	mixedApproximated prometheus.Counter
	cashboxMismatches prometheus.Counter
}

var (
	schedulerMetricsOnce sync.Once
	schedulerMetrics     *SchedulerMetrics
)

// Scheduler returns the singleton scheduler metrics registry.
func Scheduler() *SchedulerMetrics {
	return SchedulerWithConfig(Config{})
}

// SchedulerWithConfig returns the singleton scheduler metrics registry using config labels.
func SchedulerWithConfig(cfg Config) *SchedulerMetrics {
	schedulerMetricsOnce.Do(func() {
		schedulerMetrics = newSchedulerMetrics(prometheus.DefaultRegisterer, cfg)
	})
	return schedulerMetrics
}

// ResetSchedulerMetricsForTest resets the scheduler metrics singleton for tests.
func ResetSchedulerMetricsForTest() {
	schedulerMetricsOnce = sync.Once{}
	schedulerMetrics = nil
}

// NewSchedulerMetricsForRegistry builds scheduler metrics on an isolated registry.
func NewSchedulerMetricsForRegistry(registerer prometheus.Registerer) *SchedulerMetrics {
	return newSchedulerMetrics(registerer, Config{Environment: "test"})
}

// ShiftClosesCounter exposes the close counter for one result label.
func (m *SchedulerMetrics) ShiftClosesCounter(result string) prometheus.Counter {
	return m.shiftCloses.WithLabelValues(result)
}

// ShiftClosedRejectionsCounter exposes the rejection counter for one operation.
func (m *SchedulerMetrics) ShiftClosedRejectionsCounter(operation string) prometheus.Counter {
	return m.closedRejections.WithLabelValues(operation)
}

func newSchedulerMetrics(registerer prometheus.Registerer, cfg Config) *SchedulerMetrics {
	if registerer == nil {
		registerer = prometheus.DefaultRegisterer
	}

	serviceName := strings.TrimSpace(cfg.ServiceName)
	if serviceName == "" {
		serviceName = "shiftledger"
	}
	environment := strings.TrimSpace(cfg.Environment)
	if environment == "" {
		environment = "unknown"
	}
	constLabels := prometheus.Labels{
		"service": serviceName,
		"env":     environment,
	}

	jobRuns := prometheus.NewCounterVec(prometheus.CounterOpts{
		Name:        "shiftledger_scheduler_job_runs_total",
		Help:        "Scheduler job runs by name.",
		ConstLabels: constLabels,
	}, []string{"job"})
	jobDuration := prometheus.NewHistogramVec(prometheus.HistogramOpts{
		Name:        "shiftledger_scheduler_job_duration_seconds",
		Help:        "Scheduler job latency.",
		Buckets:     []float64{0.01, 0.025, 0.05, 0.1, 0.25, 0.5, 1, 2.5, 5, 10, 30, 60, 300},
		ConstLabels: constLabels,
	}, []string{"job"})
	jobTimeouts := prometheus.NewCounterVec(prometheus.CounterOpts{
		Name:        "shiftledger_scheduler_job_timeouts_total",
		Help:        "Scheduler job timeouts.",
		ConstLabels: constLabels,
	}, []string{"job"})
	jobErrors := prometheus.NewCounterVec(prometheus.CounterOpts{
		Name:        "shiftledger_scheduler_job_errors_total",
		Help:        "Scheduler job errors by low-cardinality reason.",
		ConstLabels: constLabels,
	}, []string{"job", "reason"})
	batchProcessed := prometheus.NewCounterVec(prometheus.CounterOpts{
		Name:        "shiftledger_scheduler_batch_processed_total",
		Help:        "Scheduler batch items processed.",
		ConstLabels: constLabels,
	}, []string{"job", "resource"})
	runLoopLag := prometheus.NewHistogram(prometheus.HistogramOpts{
		Name:        "shiftledger_scheduler_runloop_lag_seconds",
		Help:        "Scheduler run loop lag beyond the configured interval.",
		Buckets:     []float64{0.01, 0.05, 0.1, 0.25, 0.5, 1, 2.5, 5, 10, 30, 60, 120, 300},
		ConstLabels: constLabels,
	})

	shiftCloses := prometheus.NewCounterVec(prometheus.CounterOpts{
		Name:        "shiftledger_shift_close_total",
		Help:        "Shift close attempts by outcome.",
		ConstLabels: constLabels,
	}, []string{"result"})
	closeDuration := prometheus.NewHistogram(prometheus.HistogramOpts{
		Name:        "shiftledger_shift_close_duration_seconds",
		Help:        "Time spent in the atomic close transaction.",
		Buckets:     []float64{0.005, 0.01, 0.025, 0.05, 0.1, 0.25, 0.5, 1, 2.5, 5, 10},
		ConstLabels: constLabels,
	})
	closedRejections := prometheus.NewCounterVec(prometheus.CounterOpts{
		Name:        "shiftledger_shift_closed_rejections_total",
		Help:        "Mutations rejected because the business day is closed.",
		ConstLabels: constLabels,
	}, []string{"operation"})
	mixedApproximated := prometheus.NewCounter(prometheus.CounterOpts{
		Name:        "shiftledger_mixed_split_approximated_total",
		Help:        "MIXED ledger rows attributed entirely to cash for lack of split data.",
		ConstLabels: constLabels,
	})
	cashboxMismatches := prometheus.NewCounter(prometheus.CounterOpts{
		Name:        "shiftledger_cashbox_discrepancy_total",
		Help:        "Closed days whose counted cash differs from the expected cash due.",
		ConstLabels: constLabels,
	})

	registerer.MustRegister(
		jobRuns,
		jobDuration,
		jobTimeouts,
		jobErrors,
		batchProcessed,
		runLoopLag,
		shiftCloses,
		closeDuration,
		closedRejections,
		mixedApproximated,
		cashboxMismatches,
	)

	return &SchedulerMetrics{
		jobRuns:           jobRuns,
		jobDuration:       jobDuration,
		jobTimeouts:       jobTimeouts,
		jobErrors:         jobErrors,
		batchProcessed:    batchProcessed,
		runLoopLag:        runLoopLag,
		shiftCloses:       shiftCloses,
		closeDuration:     closeDuration,
		closedRejections:  closedRejections,
		mixedApproximated: mixedApproximated,
		cashboxMismatches: cashboxMismatches,
	}
}

// IncJobRun increments the run counter for a scheduler job.
func (m *SchedulerMetrics) IncJobRun(job string) {
	if m == nil {
		return
	}
	m.jobRuns.WithLabelValues(job).Inc()
}

// ObserveJobDuration records scheduler job latency in seconds.
func (m *SchedulerMetrics) ObserveJobDuration(job string, duration time.Duration) {
	if m == nil {
		return
	}
	m.jobDuration.WithLabelValues(job).Observe(duration.Seconds())
}

// IncJobTimeout increments the timeout counter for the scheduler job.
func (m *SchedulerMetrics) IncJobTimeout(job string) {
	if m == nil {
		return
	}
	m.jobTimeouts.WithLabelValues(job).Inc()
}

// IncJobError increments the scheduler job error counter with classification.
func (m *SchedulerMetrics) IncJobError(job string, err error) {
	if m == nil || err == nil {
		return
	}
	m.jobErrors.WithLabelValues(job, ClassifySchedulerJobReason(err)).Inc()
}

// AddBatchProcessed increments the batch processed counter for a resource by count.
func (m *SchedulerMetrics) AddBatchProcessed(job, resource string, count int) {
	if m == nil || count <= 0 {
		return
	}
	m.batchProcessed.WithLabelValues(job, resource).Add(float64(count))
}

// ObserveRunLoopLag records lag between the scheduled tick and actual run start.
func (m *SchedulerMetrics) ObserveRunLoopLag(duration time.Duration) {
	if m == nil {
		return
	}
	lag := duration
	if lag < 0 {
		lag = 0
	}
	m.runLoopLag.Observe(lag.Seconds())
}

// IncShiftClose counts a close attempt by outcome.
func (m *SchedulerMetrics) IncShiftClose(result string) {
	if m == nil {
		return
	}
	m.shiftCloses.WithLabelValues(result).Inc()
}

// ObserveCloseDuration records the close transaction latency.
func (m *SchedulerMetrics) ObserveCloseDuration(duration time.Duration) {
	if m == nil {
		return
	}
	m.closeDuration.Observe(duration.Seconds())
}

// IncShiftClosedRejection counts a mutation refused on a closed day.
func (m *SchedulerMetrics) IncShiftClosedRejection(operation string) {
	if m == nil {
		return
	}
	m.closedRejections.WithLabelValues(operation).Inc()
}

// AddMixedApproximated counts MIXED rows that fell back to cash attribution.
func (m *SchedulerMetrics) AddMixedApproximated(count int) {
	if m == nil || count <= 0 {
		return
	}
	m.mixedApproximated.Add(float64(count))
}

// IncCashboxDiscrepancy counts a close whose cashbox count did not match.
func (m *SchedulerMetrics) IncCashboxDiscrepancy() {
	if m == nil {
		return
	}
	m.cashboxMismatches.Inc()
}

// ClassifySchedulerJobReason maps scheduler job errors to low-cardinality reasons.
func ClassifySchedulerJobReason(err error) string {
	if err == nil {
		return SchedulerJobReasonUnknown
	}
	if errors.Is(err, context.DeadlineExceeded) || errors.Is(err, context.Canceled) {
		return SchedulerJobReasonDeadlineExceeded
	}
	var coded codedError
	if errors.As(err, &coded) && coded.Code() == "SHIFT_CLOSED" {
		return SchedulerJobReasonShiftClosed
	}
	if isDBLockTimeout(err) {
		return SchedulerJobReasonDBLockTimeout
	}
	if isSerializationFailure(err) {
		return SchedulerJobReasonSerializationFailure
	}
	if isUniqueViolation(err) {
		return SchedulerJobReasonUniqueViolation
	}
	return SchedulerJobReasonUnknown
}

// IsSchedulerErrorRetryable reports whether the scheduler error should be retried.
func IsSchedulerErrorRetryable(err error) bool {
	if err == nil {
		return false
	}
	if errors.Is(err, context.DeadlineExceeded) || errors.Is(err, context.Canceled) {
		return true
	}
	return isDBLockTimeout(err) || isSerializationFailure(err)
}

func isDBLockTimeout(err error) bool {
	if hasPGCode(err, "55P03") {
		return true
	}
	return strings.Contains(err.Error(), "database is locked")
}

func isSerializationFailure(err error) bool {
	return hasPGCode(err, "40001") || hasPGCode(err, "40P01")
}

func isUniqueViolation(err error) bool {
	if errors.Is(err, gorm.ErrDuplicatedKey) {
		return true
	}
	return hasPGCode(err, "23505")
}

func hasPGCode(err error, code string) bool {
	var pgErr *pgconn.PgError
	if errors.As(err, &pgErr) {
		return pgErr.Code == code
	}
	return false
}
