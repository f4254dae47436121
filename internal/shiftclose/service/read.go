package service

import (
	"context"
	"encoding/json"
	"fmt"

	"github.com/smallbiznis/shiftledger/internal/businessday"
	"github.com/smallbiznis/shiftledger/internal/ledger/aggregate"
	"github.com/smallbiznis/shiftledger/internal/motivation"
	"github.com/smallbiznis/shiftledger/internal/shiftclose/domain"
)

func (s *Service) GetSnapshot(ctx context.Context, rawDay string) (*domain.Snapshot, error) {
	day, err := businessday.Parse(rawDay)
	if err != nil {
		return nil, err
	}
	snap, err := s.repo.FindByDay(ctx, s.db, day.String())
	if err != nil {
		return nil, err
	}
	if snap == nil {
		return nil, domain.ErrSnapshotNotFound
	}
	return snap, nil
}

func (s *Service) ListSnapshots(ctx context.Context, rawFrom, rawTo string) ([]domain.Snapshot, error) {
	from, err := businessday.Parse(rawFrom)
	if err != nil {
		return nil, err
	}
	to, err := businessday.Parse(rawTo)
	if err != nil {
		return nil, err
	}
	if to.Before(from) {
		return nil, domain.ErrInvalidDateRange
	}
	return s.repo.ListRange(ctx, s.db, from.String(), to.String())
}

// DaySummary is the dashboard view of a day: frozen when closed, live otherwise.
type DaySummary struct {
	BusinessDay        string                  `json:"business_day"`
	Closed             bool                    `json:"closed"`
	Snapshot           *domain.Snapshot        `json:"snapshot,omitempty"`
	Aggregate          *aggregate.DayAggregate `json:"aggregate,omitempty"`
	Motivation         *motivation.Result      `json:"motivation"`
	SalaryDue          int64                   `json:"salary_due"`
	OwnerCashAvailable int64                   `json:"owner_cash_available"`
	CashboxCheck       domain.CashboxCheck     `json:"cashbox_check"`
}

func (s *Service) DaySummary(ctx context.Context, rawDay string) (*DaySummary, error) {
	day, err := businessday.Parse(rawDay)
	if err != nil {
		return nil, err
	}

	snap, err := s.repo.FindByDay(ctx, s.db, day.String())
	if err != nil {
		return nil, err
	}
	if snap != nil {
		out := &DaySummary{
			BusinessDay:        snap.BusinessDay,
			Closed:             true,
			Snapshot:           snap,
			SalaryDue:          snap.SalaryDue,
			OwnerCashAvailable: snap.OwnerCashAvailable,
		}
		var mot motivation.Result
		if err := json.Unmarshal(snap.Payouts, &mot); err != nil {
			return nil, fmt.Errorf("decode snapshot payouts: %w", err)
		}
		mot.Closed = true
		out.Motivation = &mot
		if err := json.Unmarshal(snap.CashboxCheck, &out.CashboxCheck); err != nil {
			return nil, fmt.Errorf("decode snapshot cashbox: %w", err)
		}
		return out, nil
	}

	agg, err := s.aggregator.Aggregate(ctx, s.db, day.String(), aggregate.Filter{})
	if err != nil {
		return nil, err
	}
	mot, err := s.motivation.ComputeDay(ctx, day.String())
	if err != nil {
		return nil, err
	}
	return &DaySummary{
		BusinessDay:        day.String(),
		Aggregate:          agg,
		Motivation:         mot,
		SalaryDue:          mot.PaidTotal,
		OwnerCashAvailable: aggregate.OwnerCashAvailable(agg.Net.Total, mot.PaidTotal, agg.Sellers),
		CashboxCheck:       BuildCashboxCheck(agg.Sellers, nil),
	}, nil
}
