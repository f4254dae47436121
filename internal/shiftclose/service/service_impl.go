package service

import (
	"context"
	"encoding/json"
	"errors"
	"sort"
	"strings"
	"time"

	"github.com/bwmarrin/snowflake"
	"github.com/smallbiznis/shiftledger/internal/businessday"
	"github.com/smallbiznis/shiftledger/internal/clock"
	"github.com/smallbiznis/shiftledger/internal/ledger/aggregate"
	ledgerdomain "github.com/smallbiznis/shiftledger/internal/ledger/domain"
	"github.com/smallbiznis/shiftledger/internal/motivation"
	obslogger "github.com/smallbiznis/shiftledger/internal/observability/logger"
	obsmetrics "github.com/smallbiznis/shiftledger/internal/observability/metrics"
	"github.com/smallbiznis/shiftledger/internal/observability/tracing"
	"github.com/smallbiznis/shiftledger/internal/payoutroll"
	"github.com/smallbiznis/shiftledger/internal/sellerstate"
	"github.com/smallbiznis/shiftledger/internal/settings"
	"github.com/smallbiznis/shiftledger/internal/shiftclose/domain"
	"github.com/smallbiznis/shiftledger/internal/shiftclose/guard"
	"github.com/smallbiznis/shiftledger/internal/shiftclose/lock"
	staffdomain "github.com/smallbiznis/shiftledger/internal/staff/domain"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/codes"
	"go.uber.org/fx"
	"go.uber.org/zap"
	"gorm.io/datatypes"
	"gorm.io/gorm"
)

var errLostRace = errors.New("snapshot_inserted_concurrently")

type Params struct {
	fx.In

	DB           *gorm.DB
	Log          *zap.Logger
	GenID        *snowflake.Node
	Clock        clock.Clock
	Repo         domain.Repository
	Aggregator   *aggregate.Aggregator
	Settings     *settings.Service
	Motivation   *motivation.Service
	SellerState  *sellerstate.Service
	PayoutRoll   *payoutroll.Service
	Locker       *lock.Locker                 `optional:"true"`
	ObsMetrics   *obsmetrics.Metrics          `optional:"true"`
	SchedMetrics *obsmetrics.SchedulerMetrics `optional:"true"`
}

type Service struct {
	db           *gorm.DB
	log          *zap.Logger
	genID        *snowflake.Node
	clock        clock.Clock
	repo         domain.Repository
	aggregator   *aggregate.Aggregator
	settings     *settings.Service
	motivation   *motivation.Service
	sellerState  *sellerstate.Service
	payoutRoll   *payoutroll.Service
	locker       *lock.Locker
	obsMetrics   *obsmetrics.Metrics
	schedMetrics *obsmetrics.SchedulerMetrics
}

func New(p Params) *Service {
	return &Service{
		db:           p.DB,
		log:          p.Log.Named("shiftclose.service"),
		genID:        p.GenID,
		clock:        p.Clock,
		repo:         p.Repo,
		aggregator:   p.Aggregator,
		settings:     p.Settings,
		motivation:   p.Motivation,
		sellerState:  p.SellerState,
		payoutRoll:   p.PayoutRoll,
		locker:       p.Locker,
		obsMetrics:   p.ObsMetrics,
		schedMetrics: p.SchedMetrics,
	}
}

// CloseShift freezes the day exactly once. Closing a closed day returns the
// stored snapshot without recomputing anything.
func (s *Service) CloseShift(ctx context.Context, req domain.CloseShiftRequest) (*domain.Snapshot, error) {
	day, err := businessday.Parse(req.BusinessDay)
	if err != nil {
		return nil, err
	}
	closedBy := strings.TrimSpace(req.ClosedBy)
	if closedBy == "" {
		return nil, domain.ErrInvalidClosedBy
	}
	if req.CashboxCount != nil && *req.CashboxCount < 0 {
		return nil, domain.ErrInvalidCashbox
	}

	ctx = obslogger.WithDay(ctx, day.String())
	ctx, span := tracing.StartSpan(ctx, "shiftclose.CloseShift", attribute.String("business_day", day.String()))
	defer span.End()

	existing, err := s.repo.FindByDay(ctx, s.db, day.String())
	if err != nil {
		return nil, err
	}
	if existing != nil {
		s.schedMetrics.IncShiftClose(obsmetrics.CloseResultAlreadyClosed)
		span.SetAttributes(attribute.String("result", obsmetrics.CloseResultAlreadyClosed))
		return existing, nil
	}

	if s.locker.Enabled() {
		token, ok, err := s.locker.TryLock(ctx, day.String())
		switch {
		case err != nil:
			s.log.Warn("close lock unavailable, continuing without it",
				zap.String("business_day", day.String()),
				zap.Error(err),
			)
		case !ok:
			return nil, domain.ErrCloseLockNotHeld
		default:
			defer func() {
				if err := s.locker.Release(context.WithoutCancel(ctx), day.String(), token); err != nil {
					s.log.Warn("close lock release failed", zap.String("business_day", day.String()), zap.Error(err))
				}
			}()
		}
	}

	started := s.clock.Now()
	var (
		snap   *domain.Snapshot
		result = obsmetrics.CloseResultClosed
		mot    motivation.Result
	)
	err = s.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		if err := guard.TouchDay(ctx, tx, day.String(), started); err != nil {
			return err
		}
		current, err := s.repo.FindByDay(ctx, tx, day.String())
		if err != nil {
			return err
		}
		if current != nil {
			snap = current
			result = obsmetrics.CloseResultAlreadyClosed
			return nil
		}

		built, m, err := s.buildSnapshot(ctx, tx, day, closedBy, req.CashboxCount, started)
		if err != nil {
			return err
		}
		inserted, err := s.repo.Insert(ctx, tx, built)
		if err != nil {
			return err
		}
		if !inserted {
			return errLostRace
		}
		snap, err = s.repo.FindByDay(ctx, tx, day.String())
		if err != nil {
			return err
		}
		mot = m
		return nil
	})
	if errors.Is(err, errLostRace) {
		result = obsmetrics.CloseResultLostRace
		snap, err = s.repo.FindByDay(ctx, s.db, day.String())
		if err == nil && snap == nil {
			err = domain.ErrSnapshotNotFound
		}
	}
	s.schedMetrics.ObserveCloseDuration(s.clock.Now().Sub(started))
	if err != nil {
		s.schedMetrics.IncShiftClose(obsmetrics.CloseResultFailed)
		span.RecordError(tracing.SafeError(err))
		span.SetStatus(codes.Error, "close failed")
		s.log.Error("close shift failed", zap.String("business_day", day.String()), zap.Error(err))
		return nil, err
	}

	s.schedMetrics.IncShiftClose(result)
	span.SetAttributes(attribute.String("result", result))
	if result == obsmetrics.CloseResultClosed {
		s.obsMetrics.RecordSettlement(ctx, mot.Mode, mot.FundTotal, len(mot.Payouts))
		var check domain.CashboxCheck
		if err := json.Unmarshal(snap.CashboxCheck, &check); err == nil && check.Discrepancy != nil && *check.Discrepancy != 0 {
			s.schedMetrics.IncCashboxDiscrepancy()
		}
		s.log.Info("shift closed",
			zap.String("business_day", snap.BusinessDay),
			zap.String("closed_by", snap.ClosedBy),
			zap.Int64("net_total", snap.NetTotal),
			zap.Int64("salary_due", snap.SalaryDue),
			zap.Int64("owner_cash_available", snap.OwnerCashAvailable),
			zap.String("motivation_mode", snap.MotivationMode),
		)
	}
	return snap, nil
}

func (s *Service) buildSnapshot(ctx context.Context, tx *gorm.DB, day businessday.Day, closedBy string, counted *int64, now time.Time) (*domain.Snapshot, motivation.Result, error) {
	agg, err := s.aggregator.Aggregate(ctx, tx, day.String(), aggregate.Filter{})
	if err != nil {
		return nil, motivation.Result{}, err
	}
	set, err := s.settings.FreezeForDay(ctx, tx, day.String())
	if err != nil {
		return nil, motivation.Result{}, err
	}
	mot, err := s.motivation.Compute(ctx, tx, day, set)
	if err != nil {
		return nil, motivation.Result{}, err
	}
	mot.SettingsFrozen = true
	mot.Closed = true

	revenues := map[snowflake.ID]int64{}
	rows := make([]payoutroll.DayRow, 0, len(mot.Payouts))
	for _, p := range mot.Payouts {
		if p.Role == staffdomain.RoleSeller {
			revenues[p.StaffID] = p.Revenue
		}
		rows = append(rows, payoutroll.DayRow{
			SellerID: p.StaffID,
			Role:     p.Role,
			Revenue:  p.Revenue,
			Points:   p.PointsTotal,
		})
	}
	if _, err := s.sellerState.ApplyDay(ctx, tx, day, revenues); err != nil {
		return nil, motivation.Result{}, err
	}
	if _, err := s.payoutRoll.ApplyDay(ctx, tx, day, rows, set.Season); err != nil {
		return nil, motivation.Result{}, err
	}

	salaryDue := mot.PaidTotal
	sellers := sellerRows(agg.Sellers, mot.Payouts)
	check := BuildCashboxCheck(agg.Sellers, counted)
	warnings := mergeWarnings(agg.Warnings, mot.Warnings)

	sellersJSON, err := json.Marshal(sellers)
	if err != nil {
		return nil, motivation.Result{}, err
	}
	payoutsJSON, err := json.Marshal(mot)
	if err != nil {
		return nil, motivation.Result{}, err
	}
	checkJSON, err := json.Marshal(check)
	if err != nil {
		return nil, motivation.Result{}, err
	}
	warningsJSON, err := json.Marshal(warnings)
	if err != nil {
		return nil, motivation.Result{}, err
	}

	return &domain.Snapshot{
		ID:                 s.genID.Generate(),
		BusinessDay:        day.String(),
		ClosedAt:           now,
		ClosedBy:           closedBy,
		CollectedTotal:     agg.Collected.Total,
		CollectedCash:      agg.Collected.Cash,
		CollectedCard:      agg.Collected.Card,
		RefundTotal:        agg.Refunded.Total,
		RefundCash:         agg.Refunded.Cash,
		RefundCard:         agg.Refunded.Card,
		NetTotal:           agg.Net.Total,
		NetCash:            agg.Net.Cash,
		NetCard:            agg.Net.Card,
		DepositCash:        agg.Deposited.Cash,
		DepositCard:        agg.Deposited.Card,
		SalaryDue:          salaryDue,
		SalaryPaidCash:     agg.SalaryPaid.Cash,
		SalaryPaidCard:     agg.SalaryPaid.Card,
		SalaryPaidTotal:    agg.SalaryPaid.Total,
		OwnerCashAvailable: aggregate.OwnerCashAvailable(agg.Net.Total, salaryDue, agg.Sellers),
		MotivationMode:     mot.Mode,
		MotivationFund:     mot.FundTotal,
		Sellers:            datatypes.JSON(sellersJSON),
		Payouts:            datatypes.JSON(payoutsJSON),
		CashboxCheck:       datatypes.JSON(checkJSON),
		Warnings:           datatypes.JSON(warningsJSON),
	}, mot, nil
}

// sellerRows lists every staff member with ledger activity or a payout.
func sellerRows(sellers []aggregate.SellerAggregate, payouts []motivation.Payout) []domain.SellerRow {
	due := map[snowflake.ID]int64{}
	for _, p := range payouts {
		due[p.StaffID] = p.Total
	}

	out := make([]domain.SellerRow, 0, len(sellers)+len(payouts))
	seen := map[snowflake.ID]struct{}{}
	for _, s := range sellers {
		seen[s.SellerID] = struct{}{}
		out = append(out, domain.SellerRow{
			SellerID:       s.SellerID,
			CollectedCash:  s.Collected.Cash,
			CollectedCard:  s.Collected.Card,
			CollectedTotal: s.Collected.Total,
			RefundCash:     s.Refunded.Cash,
			RefundCard:     s.Refunded.Card,
			RefundTotal:    s.Refunded.Total,
			DepositCash:    s.Deposited.Cash,
			DepositCard:    s.Deposited.Card,
			SalaryPaidCash: s.SalaryPaid.Cash,
			SalaryPaidCard: s.SalaryPaid.Card,
			SalaryPaid:     s.SalaryPaid.Total,
			Revenue:        s.Revenue,
			CashDue:        s.CashDue,
			CardDue:        s.CardDue,
			Liability:      s.Liability,
			SalaryDue:      due[s.SellerID],
		})
	}
	for _, p := range payouts {
		if _, ok := seen[p.StaffID]; ok {
			continue
		}
		out = append(out, domain.SellerRow{SellerID: p.StaffID, Revenue: p.Revenue, SalaryDue: p.Total})
	}
	sort.Slice(out, func(i, j int) bool { return out[i].SellerID < out[j].SellerID })
	return out
}

func mergeWarnings(groups ...[]ledgerdomain.Warning) []ledgerdomain.Warning {
	out := []ledgerdomain.Warning{}
	seen := map[ledgerdomain.Warning]struct{}{}
	for _, group := range groups {
		for _, w := range group {
			if _, ok := seen[w]; ok {
				continue
			}
			seen[w] = struct{}{}
			out = append(out, w)
		}
	}
	return out
}
