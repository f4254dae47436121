package payoutroll

import (
	"context"
	"fmt"

	"github.com/bwmarrin/snowflake"
	"github.com/shopspring/decimal"
	"github.com/smallbiznis/shiftledger/internal/businessday"
	"github.com/smallbiznis/shiftledger/internal/clock"
	"github.com/smallbiznis/shiftledger/internal/settings"
	"go.uber.org/fx"
	"go.uber.org/zap"
	"gorm.io/gorm"
)

type Params struct {
	fx.In

	DB       *gorm.DB
	Log      *zap.Logger
	Clock    clock.Clock
	Settings *settings.Service
}

type Service struct {
	db       *gorm.DB
	log      *zap.Logger
	clock    clock.Clock
	settings *settings.Service
}

func NewService(p Params) *Service {
	return &Service{
		db:       p.DB,
		log:      p.Log.Named("payoutroll.service"),
		clock:    p.Clock,
		settings: p.Settings,
	}
}

// ApplyDay records each row's day stats and adds it to the season totals.
// A (seller, day) pair already in the applied set leaves the season untouched.
func (s *Service) ApplyDay(ctx context.Context, tx *gorm.DB, day businessday.Day, rows []DayRow, rules settings.SeasonRules) (ApplyResult, error) {
	if tx == nil {
		tx = s.db
	}
	seasonID := businessday.SeasonID(day)
	window, err := businessday.NewSeasonWindow(seasonID, rules.StartMonthDay, rules.EndMonthDay, rules.EndWindowDays)
	if err != nil {
		return ApplyResult{}, fmt.Errorf("season window: %w", err)
	}
	weekID := businessday.WeekID(day)
	now := s.clock.Now()

	var result ApplyResult
	for _, row := range rows {
		points := row.Points.Round(2)
		if err := tx.WithContext(ctx).Exec(
			`INSERT INTO seller_day_stats (seller_id, business_day, role, week_id, season_id, revenue_day, points_day_total, updated_at)
			 VALUES (?, ?, ?, ?, ?, ?, ?, ?)
			 ON CONFLICT (seller_id, business_day)
			 DO UPDATE SET role = EXCLUDED.role,
			               revenue_day = EXCLUDED.revenue_day,
			               points_day_total = EXCLUDED.points_day_total,
			               updated_at = EXCLUDED.updated_at`,
			row.SellerID,
			day.String(),
			row.Role,
			weekID,
			seasonID,
			row.Revenue,
			points,
			now,
		).Error; err != nil {
			return ApplyResult{}, err
		}

		res := tx.WithContext(ctx).Exec(
			`INSERT INTO seller_season_applied_days (seller_id, business_day, season_id, applied_at)
			 VALUES (?, ?, ?, ?)
			 ON CONFLICT (seller_id, business_day) DO NOTHING`,
			row.SellerID,
			day.String(),
			seasonID,
			now,
		)
		if res.Error != nil {
			return ApplyResult{}, res.Error
		}
		if res.RowsAffected == 0 {
			result.Skipped++
			continue
		}

		if err := s.addToSeason(ctx, tx, seasonID, window, day, row, points); err != nil {
			return ApplyResult{}, err
		}
		result.Applied++
	}

	s.log.Debug("season roll applied",
		zap.String("business_day", day.String()),
		zap.String("season_id", seasonID),
		zap.Int("applied", result.Applied),
		zap.Int("skipped", result.Skipped),
	)
	return result, nil
}

// addToSeason is a no-op for days outside the season window. Such days keep
// their day stats and applied mark but never reach the season totals.
func (s *Service) addToSeason(ctx context.Context, tx *gorm.DB, seasonID string, window businessday.SeasonWindow, day businessday.Day, row DayRow, points decimal.Decimal) error {
	if !window.Contains(day) {
		return nil
	}
	var current SeasonStat
	found := tx.WithContext(ctx).
		Model(&SeasonStat{}).
		Where("seller_id = ? AND season_id = ?", row.SellerID, seasonID).
		Limit(1).
		Find(&current)
	if found.Error != nil {
		return found.Error
	}
	if found.RowsAffected == 0 {
		current = SeasonStat{SellerID: row.SellerID, SeasonID: seasonID, PointsTotal: decimal.Zero}
	}

	current.Role = row.Role
	current.RevenueTotal += row.Revenue
	current.PointsTotal = current.PointsTotal.Add(points).Round(2)
	if row.Revenue > 0 {
		current.WorkedDays++
		if window.InFinalMonth(day) {
			current.FinalMonthWorkedDays++
		}
		if window.InEndWindow(day) {
			current.EndWindowWorkedDays++
		}
	}
	current.UpdatedAt = s.clock.Now()

	return tx.WithContext(ctx).Exec(
		`INSERT INTO seller_season_stats (
			seller_id, season_id, role, revenue_total, points_total,
			worked_days, final_month_worked_days, end_window_worked_days, updated_at
		) VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?)
		ON CONFLICT (seller_id, season_id)
		DO UPDATE SET role = EXCLUDED.role,
		              revenue_total = EXCLUDED.revenue_total,
		              points_total = EXCLUDED.points_total,
		              worked_days = EXCLUDED.worked_days,
		              final_month_worked_days = EXCLUDED.final_month_worked_days,
		              end_window_worked_days = EXCLUDED.end_window_worked_days,
		              updated_at = EXCLUDED.updated_at`,
		current.SellerID,
		current.SeasonID,
		current.Role,
		current.RevenueTotal,
		current.PointsTotal,
		current.WorkedDays,
		current.FinalMonthWorkedDays,
		current.EndWindowWorkedDays,
		current.UpdatedAt,
	).Error
}

// SeasonPoints returns a seller's accumulated season points.
func (s *Service) SeasonPoints(ctx context.Context, sellerID snowflake.ID, seasonID string) (decimal.Decimal, error) {
	var stat SeasonStat
	res := s.db.WithContext(ctx).
		Model(&SeasonStat{}).
		Where("seller_id = ? AND season_id = ?", sellerID, seasonID).
		Limit(1).
		Find(&stat)
	if res.Error != nil {
		return decimal.Zero, res.Error
	}
	if res.RowsAffected == 0 {
		return decimal.Zero, nil
	}
	return stat.PointsTotal, nil
}
