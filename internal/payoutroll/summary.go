package payoutroll

import (
	"context"
	"fmt"
	"sort"

	"github.com/bwmarrin/snowflake"
	"github.com/shopspring/decimal"
	"github.com/smallbiznis/shiftledger/internal/businessday"
	"github.com/smallbiznis/shiftledger/internal/money"
	staffdomain "github.com/smallbiznis/shiftledger/internal/staff/domain"
)

// WeeklySummary ranks the week's sellers by points and splits the weekly pool.
// The pool percent comes from the latest day of the week with frozen settings.
func (s *Service) WeeklySummary(ctx context.Context, weekID string) (*WeeklySummary, error) {
	from, to, err := businessday.WeekRange(weekID)
	if err != nil {
		return nil, err
	}

	var stats []DayStat
	if err := s.db.WithContext(ctx).
		Model(&DayStat{}).
		Where("business_day >= ? AND business_day <= ?", from.String(), to.String()).
		Order("seller_id asc, business_day asc").
		Find(&stats).Error; err != nil {
		return nil, err
	}

	set, _, err := s.settings.LatestFrozenInRange(ctx, nil, from.String(), to.String())
	if err != nil {
		return nil, err
	}

	bySeller := map[snowflake.ID]*WeeklySeller{}
	var revenueTotal int64
	for _, st := range stats {
		revenueTotal += st.RevenueDay
		if st.Role != staffdomain.RoleSeller {
			continue
		}
		row, ok := bySeller[st.SellerID]
		if !ok {
			row = &WeeklySeller{SellerID: st.SellerID, Points: decimal.Zero}
			bySeller[st.SellerID] = row
		}
		row.Revenue += st.RevenueDay
		row.Points = row.Points.Add(st.PointsDayTotal)
	}

	ranked := make([]WeeklySeller, 0, len(bySeller))
	for _, row := range bySeller {
		ranked = append(ranked, *row)
	}
	sort.Slice(ranked, func(i, j int) bool {
		if c := ranked[i].Points.Cmp(ranked[j].Points); c != 0 {
			return c > 0
		}
		if ranked[i].Revenue != ranked[j].Revenue {
			return ranked[i].Revenue > ranked[j].Revenue
		}
		return ranked[i].SellerID < ranked[j].SellerID
	})

	revenueTotal = money.NonNegative(revenueTotal)
	pool := money.FloorMul(revenueTotal, set.WeeklyPercent)
	payouts, paid := DistributeWeekly(pool, ranked)

	return &WeeklySummary{
		WeekID:        weekID,
		From:          from.String(),
		To:            to.String(),
		RevenueTotal:  revenueTotal,
		WeeklyPercent: set.WeeklyPercent,
		Pool:          pool,
		Sellers:       payouts,
		PaidTotal:     paid,
		Remainder:     pool - paid,
	}, nil
}

// SeasonSummary applies the eligibility rule and splits the season pool by
// points among eligible sellers.
func (s *Service) SeasonSummary(ctx context.Context, seasonID string) (*SeasonSummary, error) {
	probe, err := businessday.NewSeasonWindow(seasonID, "01-01", "12-31", 1)
	if err != nil {
		return nil, err
	}
	set, _, err := s.settings.LatestFrozenInRange(ctx, nil, probe.Start.String(), probe.End.String())
	if err != nil {
		return nil, err
	}
	rules := set.Season
	window, err := businessday.NewSeasonWindow(seasonID, rules.StartMonthDay, rules.EndMonthDay, rules.EndWindowDays)
	if err != nil {
		return nil, fmt.Errorf("season window: %w", err)
	}

	var stats []SeasonStat
	if err := s.db.WithContext(ctx).
		Model(&SeasonStat{}).
		Where("season_id = ?", seasonID).
		Order("seller_id asc").
		Find(&stats).Error; err != nil {
		return nil, err
	}

	var revenueTotal int64
	sellers := make([]SeasonSeller, 0, len(stats))
	for _, st := range stats {
		revenueTotal += st.RevenueTotal
		if st.Role != staffdomain.RoleSeller {
			continue
		}
		sellers = append(sellers, SeasonSeller{
			SellerID:             st.SellerID,
			Revenue:              st.RevenueTotal,
			Points:               st.PointsTotal,
			WorkedDays:           st.WorkedDays,
			FinalMonthWorkedDays: st.FinalMonthWorkedDays,
			EndWindowWorkedDays:  st.EndWindowWorkedDays,
			Eligible: st.WorkedDays >= rules.MinWorkedDays &&
				st.FinalMonthWorkedDays >= rules.MinFinalMonthDays &&
				st.EndWindowWorkedDays >= rules.MinEndWindowDays,
		})
	}

	revenueTotal = money.NonNegative(revenueTotal)
	pool := money.FloorMul(revenueTotal, set.SeasonPercent)
	payouts, paid := DistributeSeason(pool, sellers)

	return &SeasonSummary{
		SeasonID:        seasonID,
		From:            window.Start.String(),
		To:              window.End.String(),
		FinalMonthStart: window.FinalMonthStart.String(),
		EndWindowStart:  window.EndWindowStart.String(),
		RevenueTotal:    revenueTotal,
		SeasonPercent:   set.SeasonPercent,
		Pool:            pool,
		Sellers:         payouts,
		PaidTotal:       paid,
		Remainder:       pool - paid,
	}, nil
}
