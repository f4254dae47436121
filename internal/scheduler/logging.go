package scheduler

import (
	"context"
	"time"

	obslogger "github.com/smallbiznis/shiftledger/internal/observability/logger"
	obsmetrics "github.com/smallbiznis/shiftledger/internal/observability/metrics"
	"go.uber.org/zap"
)

// jobRun tracks one execution of a job and the business days it touched.
type jobRun struct {
	job       string
	runID     string
	batchSize int
	startedAt time.Time

	closed  []string
	skipped []string
	failed  []string
}

type jobRunKey struct{}

func (r *jobRun) dayClosed(day string) {
	if r != nil {
		r.closed = append(r.closed, day)
	}
}

func (r *jobRun) daySkipped(day string) {
	if r != nil {
		r.skipped = append(r.skipped, day)
	}
}

func (r *jobRun) dayFailed(day string) {
	if r != nil {
		r.failed = append(r.failed, day)
	}
}

// runFailed marks a failure not tied to one day, such as a listing error.
func (r *jobRun) runFailed() {
	if r != nil && len(r.failed) == 0 {
		r.failed = append(r.failed, "")
	}
}

// ensureJobRun reuses the run already on ctx, so a job invoked through
// runJob logs start and finish once.
func (s *Scheduler) ensureJobRun(ctx context.Context, job string, batchSize int) (context.Context, *jobRun, bool) {
	if ctx == nil {
		ctx = context.Background()
	}
	if existing, ok := ctx.Value(jobRunKey{}).(*jobRun); ok && existing != nil {
		return ctx, existing, false
	}
	run := &jobRun{
		job:       job,
		runID:     s.genID.Generate().String(),
		batchSize: batchSize,
		startedAt: s.clock.Now(),
	}
	ctx = context.WithValue(ctx, jobRunKey{}, run)
	ctx = obslogger.WithOperator(ctx, schedulerOperator)
	return ctx, run, true
}

func (s *Scheduler) logger(ctx context.Context) *zap.Logger {
	return obslogger.WithContext(ctx, s.log)
}

func (s *Scheduler) logJobStart(ctx context.Context, run *jobRun) {
	s.logger(ctx).Info("scheduler.job.start",
		zap.String("job", run.job),
		zap.String("run_id", run.runID),
		zap.Int("batch_size", run.batchSize),
	)
}

func (s *Scheduler) logJobFinish(ctx context.Context, run *jobRun) {
	fields := []zap.Field{
		zap.String("job", run.job),
		zap.String("run_id", run.runID),
		zap.Int64("duration_ms", s.clock.Now().Sub(run.startedAt).Milliseconds()),
		zap.Strings("closed_days", run.closed),
		zap.Strings("skipped_days", run.skipped),
		zap.Int("failed_count", len(run.failed)),
	}
	if len(run.failed) > 0 {
		s.logger(ctx).Warn("scheduler.job.finish", fields...)
		return
	}
	s.logger(ctx).Info("scheduler.job.finish", fields...)
}

// logDayError records err against day; an empty day means the whole run.
func (s *Scheduler) logDayError(ctx context.Context, run *jobRun, msg, day string, err error) {
	if err == nil {
		return
	}
	if day == "" {
		run.runFailed()
	} else {
		run.dayFailed(day)
	}
	s.logger(ctx).Error(msg,
		zap.String("job", run.job),
		zap.String("business_day", day),
		zap.String("error_type", obsmetrics.ClassifySchedulerJobReason(err)),
		zap.Bool("retryable", obsmetrics.IsSchedulerErrorRetryable(err)),
		zap.Error(err),
	)
}
