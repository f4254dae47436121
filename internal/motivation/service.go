package motivation

import (
	"context"
	"encoding/json"
	"fmt"

	"github.com/bwmarrin/snowflake"
	"github.com/smallbiznis/shiftledger/internal/businessday"
	"github.com/smallbiznis/shiftledger/internal/clock"
	"github.com/smallbiznis/shiftledger/internal/ledger/aggregate"
	ledgerdomain "github.com/smallbiznis/shiftledger/internal/ledger/domain"
	"github.com/smallbiznis/shiftledger/internal/sellerstate"
	"github.com/smallbiznis/shiftledger/internal/settings"
	shiftclosedomain "github.com/smallbiznis/shiftledger/internal/shiftclose/domain"
	staffdomain "github.com/smallbiznis/shiftledger/internal/staff/domain"
	"go.uber.org/fx"
	"go.uber.org/zap"
	"gorm.io/gorm"
)

type Params struct {
	fx.In

	DB          *gorm.DB
	Log         *zap.Logger
	Clock       clock.Clock
	Aggregator  *aggregate.Aggregator
	Settings    *settings.Service
	SellerState *sellerstate.Service
	StaffRepo   staffdomain.Repository
}

type Service struct {
	db          *gorm.DB
	log         *zap.Logger
	clock       clock.Clock
	aggregator  *aggregate.Aggregator
	settings    *settings.Service
	sellerState *sellerstate.Service
	staffRepo   staffdomain.Repository
}

func NewService(p Params) *Service {
	return &Service{
		db:          p.DB,
		log:         p.Log.Named("motivation.service"),
		clock:       p.Clock,
		aggregator:  p.Aggregator,
		settings:    p.Settings,
		sellerState: p.SellerState,
		staffRepo:   p.StaffRepo,
	}
}

// ComputeDay returns the day's payouts. A closed day answers from its
// snapshot; an open day freezes its settings on first computation, except
// for days after today which preview the live settings.
func (s *Service) ComputeDay(ctx context.Context, rawDay string) (*Result, error) {
	day, err := businessday.Parse(rawDay)
	if err != nil {
		return nil, err
	}

	if stored, ok, err := s.fromSnapshot(ctx, day.String()); err != nil || ok {
		return stored, err
	}

	today := businessday.FromTime(s.clock.Now(), nil)
	if day.After(today) {
		set, frozen, err := s.settings.ForDay(ctx, day.String())
		if err != nil {
			return nil, err
		}
		result, err := s.Compute(ctx, s.db, day, set)
		if err != nil {
			return nil, err
		}
		result.SettingsFrozen = frozen
		return &result, nil
	}

	var result Result
	err = s.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		set, err := s.settings.FreezeForDay(ctx, tx, day.String())
		if err != nil {
			return err
		}
		result, err = s.Compute(ctx, tx, day, set)
		if err != nil {
			return err
		}
		result.SettingsFrozen = true
		return nil
	})
	if err != nil {
		return nil, err
	}
	return &result, nil
}

// Compute loads the day's participants inside tx and runs the engine with set.
func (s *Service) Compute(ctx context.Context, tx *gorm.DB, day businessday.Day, set settings.Settings) (Result, error) {
	input, warnings, err := s.loadInput(ctx, tx, day)
	if err != nil {
		return Result{}, err
	}
	result := Compute(input, set)
	result.Warnings = append(warnings, result.Warnings...)
	return result, nil
}

func (s *Service) loadInput(ctx context.Context, tx *gorm.DB, day businessday.Day) (DayInput, []ledgerdomain.Warning, error) {
	buckets, warnings, err := s.aggregator.RevenueBuckets(ctx, tx, day.String())
	if err != nil {
		return DayInput{}, nil, fmt.Errorf("load revenue buckets: %w", err)
	}

	byStaff := map[snowflake.ID]*Participant{}
	order := []snowflake.ID{}
	for _, b := range buckets {
		p, ok := byStaff[b.StaffID]
		if !ok {
			role := staffdomain.RoleSeller
			if b.Kind == ledgerdomain.KindDispatcherShift {
				role = staffdomain.RoleDispatcher
			}
			p = &Participant{StaffID: b.StaffID, Role: role}
			byStaff[b.StaffID] = p
			order = append(order, b.StaffID)
		}
		p.Buckets = append(p.Buckets, Bucket{
			BoatType:   b.BoatType,
			ZoneAtSale: b.ZoneAtSale,
			Revenue:    b.Revenue,
		})
	}

	dispatchers, err := s.staffRepo.ListActiveByRole(ctx, tx, staffdomain.RoleDispatcher)
	if err != nil {
		return DayInput{}, nil, err
	}
	for _, d := range dispatchers {
		if _, ok := byStaff[d.ID]; ok {
			continue
		}
		byStaff[d.ID] = &Participant{StaffID: d.ID, Role: staffdomain.RoleDispatcher, Zone: d.Zone}
		order = append(order, d.ID)
	}

	known, err := s.staffRepo.ListByIDs(ctx, tx, order)
	if err != nil {
		return DayInput{}, nil, err
	}
	for _, st := range known {
		p := byStaff[st.ID]
		p.Role = st.Role
		p.Zone = st.Zone
	}

	streaks, err := s.sellerState.Streaks(ctx, tx, order)
	if err != nil {
		return DayInput{}, nil, err
	}

	input := DayInput{BusinessDay: day.String()}
	for _, id := range order {
		p := byStaff[id]
		p.StreakDays = streaks[id]
		input.Participants = append(input.Participants, *p)
	}
	return input, warnings, nil
}

func (s *Service) fromSnapshot(ctx context.Context, day string) (*Result, bool, error) {
	var snap shiftclosedomain.Snapshot
	res := s.db.WithContext(ctx).
		Model(&shiftclosedomain.Snapshot{}).
		Where("business_day = ?", day).
		Limit(1).
		Find(&snap)
	if res.Error != nil {
		return nil, false, res.Error
	}
	if res.RowsAffected == 0 {
		return nil, false, nil
	}
	var out Result
	if err := json.Unmarshal(snap.Payouts, &out); err != nil {
		return nil, false, fmt.Errorf("decode snapshot payouts for %s: %w", day, err)
	}
	out.Closed = true
	return &out, true, nil
}
