package scheduler

import (
	"context"
	"errors"

	"github.com/smallbiznis/shiftledger/internal/businessday"
	shiftclosedomain "github.com/smallbiznis/shiftledger/internal/shiftclose/domain"
	"go.uber.org/zap"
)

// AutoCloseJob closes every day with ledger activity that is at least
// AutoCloseAfterDays old and still has no snapshot. One batch per run; days
// that fail stay open and are retried on the next tick.
func (s *Scheduler) AutoCloseJob(ctx context.Context) error {
	if s.cfg.AutoCloseAfterDays <= 0 {
		return nil
	}
	ctx, run, owner := s.ensureJobRun(ctx, JobAutoClose, s.cfg.BatchSize)
	if owner {
		s.logJobStart(ctx, run)
		defer s.logJobFinish(ctx, run)
	}

	today := businessday.FromTime(s.clock.Now(), s.cfg.Location)
	before := today.AddDays(1 - s.cfg.AutoCloseAfterDays)

	days, err := s.repo.ListUnclosedDays(ctx, s.db, before.String(), s.cfg.BatchSize)
	if err != nil {
		s.logDayError(ctx, run, "scheduler.auto_close.list_failed", "", err)
		return err
	}

	var jobErr error
	for _, day := range days {
		if ctx.Err() != nil {
			return errors.Join(jobErr, ctx.Err())
		}
		snap, err := s.closer.CloseShift(ctx, shiftclosedomain.CloseShiftRequest{
			BusinessDay: day,
			ClosedBy:    schedulerOperator,
		})
		if errors.Is(err, shiftclosedomain.ErrCloseLockNotHeld) {
			run.daySkipped(day)
			s.logger(ctx).Info("scheduler.auto_close.skipped", zap.String("business_day", day), zap.String("reason", "lock_held"))
			continue
		}
		if err != nil {
			jobErr = errors.Join(jobErr, err)
			s.logDayError(ctx, run, "scheduler.auto_close.failed", day, err)
			continue
		}
		run.dayClosed(day)
		s.logger(ctx).Info("scheduler.auto_close.closed",
			zap.String("business_day", snap.BusinessDay),
			zap.String("closed_by", snap.ClosedBy),
			zap.Int64("salary_due", snap.SalaryDue),
		)
	}
	s.metrics().AddBatchProcessed(JobAutoClose, "business_days", len(run.closed))
	return jobErr
}
