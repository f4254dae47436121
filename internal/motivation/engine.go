// Package motivation computes the daily bonus fund and its distribution
// across sellers and dispatchers.
package motivation

import (
	"sort"

	"github.com/bwmarrin/snowflake"
	"github.com/shopspring/decimal"
	"github.com/smallbiznis/shiftledger/internal/config"
	ledgerdomain "github.com/smallbiznis/shiftledger/internal/ledger/domain"
	"github.com/smallbiznis/shiftledger/internal/money"
	"github.com/smallbiznis/shiftledger/internal/settings"
	staffdomain "github.com/smallbiznis/shiftledger/internal/staff/domain"
)

// Bucket is net sales of one participant for a boat type and zone at sale.
type Bucket struct {
	BoatType   ledgerdomain.BoatType `json:"boat_type"`
	ZoneAtSale string                `json:"zone_at_sale"`
	Revenue    int64                 `json:"revenue"`
}

// Participant is a staff member considered for the day. Zone is the current
// zone, used only for buckets without a zone at sale.
type Participant struct {
	StaffID    snowflake.ID
	Role       staffdomain.Role
	Zone       string
	StreakDays int
	Buckets    []Bucket
}

// Revenue is the participant's net sales clipped at zero.
func (p Participant) Revenue() int64 {
	var total int64
	for _, b := range p.Buckets {
		total += b.Revenue
	}
	return money.NonNegative(total)
}

type DayInput struct {
	BusinessDay  string
	Participants []Participant
}

type Payout struct {
	StaffID          snowflake.ID     `json:"staff_id"`
	Role             staffdomain.Role `json:"role"`
	Revenue          int64            `json:"revenue"`
	TeamPart         int64            `json:"team_part"`
	IndividualPart   int64            `json:"individual_part"`
	DispatcherBonus  int64            `json:"dispatcher_bonus"`
	Total            int64            `json:"total"`
	PointsBase       decimal.Decimal  `json:"points_base"`
	StreakDays       int              `json:"streak_days"`
	StreakMultiplier decimal.Decimal  `json:"streak_multiplier"`
	PointsTotal      decimal.Decimal  `json:"points_total"`
}

type Result struct {
	BusinessDay          string                 `json:"business_day"`
	Mode                 string                 `json:"mode"`
	RevenueTotal         int64                  `json:"revenue_total"`
	FundTotal            int64                  `json:"fund_total"`
	TeamFund             int64                  `json:"team_fund"`
	IndividualFund       int64                  `json:"individual_fund"`
	DispatcherBonusTotal int64                  `json:"dispatcher_bonus_total"`
	PaidTotal            int64                  `json:"paid_total"`
	Payouts              []Payout               `json:"payouts"`
	Warnings             []ledgerdomain.Warning `json:"warnings"`
	Settings             settings.Settings      `json:"settings"`
	SettingsFrozen       bool                   `json:"settings_frozen"`
	Closed               bool                   `json:"closed"`
}

// PayoutFor returns the payout of staffID, if any.
func (r Result) PayoutFor(staffID snowflake.ID) (Payout, bool) {
	for _, p := range r.Payouts {
		if p.StaffID == staffID {
			return p, true
		}
	}
	return Payout{}, false
}

type draft struct {
	Payout
	team       decimal.Decimal
	individual decimal.Decimal
}

// Compute is a pure function of the day's participants and frozen settings.
// Proportional parts stay exact until each payout is floored to 50 at the end.
//
// In adaptive mode the individual share goes to sellers only, weighted by
// revenue × k_dispatchers. Dispatchers take part in the team share when
// configured and always get the flat dispatcher bonus.
func Compute(in DayInput, s settings.Settings) Result {
	s = s.Normalize()
	mode := s.Mode
	switch mode {
	case config.MotivationModePersonal, config.MotivationModeTeam, config.MotivationModeAdaptive:
	default:
		mode = config.MotivationModeAdaptive
	}

	participants := append([]Participant(nil), in.Participants...)
	sort.Slice(participants, func(i, j int) bool { return participants[i].StaffID < participants[j].StaffID })

	var raw int64
	for _, p := range participants {
		for _, b := range p.Buckets {
			raw += b.Revenue
		}
	}
	revenueTotal := money.NonNegative(raw)
	fund := money.FloorMul(revenueTotal, s.MotivationPercent)

	res := Result{
		BusinessDay:  in.BusinessDay,
		Mode:         mode,
		RevenueTotal: revenueTotal,
		FundTotal:    fund,
		Settings:     s,
		Payouts:      []Payout{},
		Warnings:     []ledgerdomain.Warning{},
	}

	drafts := make([]*draft, 0, len(participants))
	for _, p := range participants {
		d := &draft{Payout: Payout{
			StaffID:    p.StaffID,
			Role:       p.Role,
			Revenue:    p.Revenue(),
			StreakDays: p.StreakDays,
		}}
		d.PointsBase, d.StreakMultiplier, d.PointsTotal = points(p, s)
		drafts = append(drafts, d)
	}

	fundDec := decimal.NewFromInt(fund)
	poolShared := false

	switch mode {
	case config.MotivationModePersonal:
		for _, d := range drafts {
			if d.Role != staffdomain.RoleSeller || d.Revenue <= 0 {
				continue
			}
			d.individual = decimal.NewFromInt(d.Revenue).Mul(s.MotivationPercent)
			poolShared = true
		}
		res.IndividualFund = fund

	case config.MotivationModeTeam:
		team := teamMembers(drafts, s)
		if len(team) > 0 {
			share := fundDec.Div(decimal.NewFromInt(int64(len(team))))
			for _, d := range team {
				d.team = share
			}
			poolShared = true
		}
		res.TeamFund = fund

	case config.MotivationModeAdaptive:
		teamFund := fundDec.Mul(s.TeamShare)
		individualFund := fundDec.Mul(s.IndividualShare)
		res.TeamFund = teamFund.Floor().IntPart()
		res.IndividualFund = individualFund.Floor().IntPart()

		team := teamMembers(drafts, s)
		if len(team) > 0 {
			share := teamFund.Div(decimal.NewFromInt(int64(len(team))))
			for _, d := range team {
				d.team = share
			}
			poolShared = true
		}

		weights := map[snowflake.ID]decimal.Decimal{}
		totalWeight := decimal.Zero
		for _, d := range drafts {
			if d.Role != staffdomain.RoleSeller || d.Revenue <= 0 {
				continue
			}
			w := decimal.NewFromInt(d.Revenue).Mul(s.KDispatchers)
			weights[d.StaffID] = w
			totalWeight = totalWeight.Add(w)
		}
		if totalWeight.Sign() > 0 {
			for _, d := range drafts {
				w, ok := weights[d.StaffID]
				if !ok {
					continue
				}
				d.individual = individualFund.Mul(w).Div(totalWeight)
			}
			poolShared = true
		}
	}

	if !poolShared {
		res.Warnings = append(res.Warnings, ledgerdomain.Warning{
			Code:    ledgerdomain.WarningNoParticipants,
			Message: "motivation fund has no participants",
		})
	}

	bonus := money.FloorMul(revenueTotal, s.DispatcherBonusRate)
	for _, d := range drafts {
		if d.Role == staffdomain.RoleDispatcher && d.Revenue > 0 {
			d.DispatcherBonus = bonus
			res.DispatcherBonusTotal += bonus
		}
	}

	for _, d := range drafts {
		d.TeamPart = d.team.Floor().IntPart()
		d.IndividualPart = d.individual.Floor().IntPart()
		exact := d.team.Add(d.individual).Floor().IntPart() + d.DispatcherBonus
		d.Total = money.RoundDownTo50(exact)
		if d.Total <= 0 && d.Revenue <= 0 {
			continue
		}
		res.PaidTotal += d.Total
		res.Payouts = append(res.Payouts, d.Payout)
	}
	return res
}

func teamMembers(drafts []*draft, s settings.Settings) []*draft {
	out := make([]*draft, 0, len(drafts))
	for _, d := range drafts {
		switch d.Role {
		case staffdomain.RoleSeller:
			if d.Revenue > 0 {
				out = append(out, d)
			}
		case staffdomain.RoleDispatcher:
			if s.TeamIncludeDispatchers {
				out = append(out, d)
			}
		}
	}
	return out
}

func points(p Participant, s settings.Settings) (base, multiplier, total decimal.Decimal) {
	base = decimal.Zero
	for _, b := range p.Buckets {
		zone := b.ZoneAtSale
		if zone == "" {
			zone = p.Zone
		}
		base = base.Add(BucketPoints(b.Revenue, b.BoatType, zone, s))
	}
	if base.Sign() < 0 {
		base = decimal.Zero
	}
	multiplier = StreakMultiplier(p.StreakDays)
	return RoundPoints(base), multiplier, RoundPoints(base.Mul(multiplier))
}
