// Package settings freezes the owner's motivation settings per business day so
// a later settings change never alters numbers of an already computed day.
package settings

import (
	"sort"
	"strings"

	"github.com/shopspring/decimal"
	"github.com/smallbiznis/shiftledger/internal/config"
)

// Settings is the immutable configuration a day's computation runs with.
type Settings struct {
	MotivationPercent      decimal.Decimal            `json:"motivation_percent"`
	WeeklyPercent          decimal.Decimal            `json:"weekly_percent"`
	SeasonPercent          decimal.Decimal            `json:"season_percent"`
	Mode                   string                     `json:"mode"`
	TeamShare              decimal.Decimal            `json:"team_share"`
	IndividualShare        decimal.Decimal            `json:"individual_share"`
	KDispatchers           decimal.Decimal            `json:"k_dispatchers"`
	TeamIncludeDispatchers bool                       `json:"team_include_dispatchers"`
	DispatcherBonusRate    decimal.Decimal            `json:"dispatcher_bonus_rate"`
	ProductCoefficients    map[string]decimal.Decimal `json:"product_coefficients"`
	ZoneCoefficients       map[string]decimal.Decimal `json:"zone_coefficients"`
	BananaZoneCoefficients map[string]decimal.Decimal `json:"banana_zone_coefficients"`
	Season                 SeasonRules                `json:"season"`
}

type SeasonRules struct {
	StartMonthDay     string `json:"start_month_day"`
	EndMonthDay       string `json:"end_month_day"`
	EndWindowDays     int    `json:"end_window_days"`
	MinWorkedDays     int    `json:"min_worked_days"`
	MinFinalMonthDays int    `json:"min_final_month_days"`
	MinEndWindowDays  int    `json:"min_end_window_days"`
}

// FromOwner converts the live float configuration into decimals.
func FromOwner(o config.OwnerSettings) Settings {
	return Settings{
		MotivationPercent:      decimal.NewFromFloat(o.MotivationPercent),
		WeeklyPercent:          decimal.NewFromFloat(o.WeeklyPercent),
		SeasonPercent:          decimal.NewFromFloat(o.SeasonPercent),
		Mode:                   strings.ToLower(strings.TrimSpace(o.Mode)),
		TeamShare:              decimal.NewFromFloat(o.TeamShare),
		IndividualShare:        decimal.NewFromFloat(o.IndividualShare),
		KDispatchers:           decimal.NewFromFloat(o.KDispatchers),
		TeamIncludeDispatchers: o.TeamIncludeDispatchers,
		DispatcherBonusRate:    decimal.NewFromFloat(o.DispatcherBonusRate),
		ProductCoefficients:    decimalTable(o.ProductCoefficients),
		ZoneCoefficients:       decimalTable(o.ZoneCoefficients),
		BananaZoneCoefficients: decimalTable(o.BananaZoneCoefficients),
		Season: SeasonRules{
			StartMonthDay:     o.Season.StartMonthDay,
			EndMonthDay:       o.Season.EndMonthDay,
			EndWindowDays:     o.Season.EndWindowDays,
			MinWorkedDays:     o.Season.MinWorkedDays,
			MinFinalMonthDays: o.Season.MinFinalMonthDays,
			MinEndWindowDays:  o.Season.MinEndWindowDays,
		},
	}
}

// Defaults are the built-in owner settings as a frozen value.
func Defaults() Settings {
	return FromOwner(config.DefaultOwnerSettings())
}

// Normalize rescales team and individual shares to sum to 1. A non-positive
// sum falls back to the default 0.3 / 0.7 split.
func (s Settings) Normalize() Settings {
	sum := s.TeamShare.Add(s.IndividualShare)
	if sum.Sign() <= 0 || s.TeamShare.Sign() < 0 || s.IndividualShare.Sign() < 0 {
		s.TeamShare = decimal.RequireFromString("0.3")
		s.IndividualShare = decimal.RequireFromString("0.7")
		return s
	}
	if sum.Equal(decimal.NewFromInt(1)) {
		return s
	}
	s.TeamShare = s.TeamShare.DivRound(sum, 8)
	s.IndividualShare = decimal.NewFromInt(1).Sub(s.TeamShare)
	return s
}

// Coefficient looks up key in table, defaulting to 1.
func Coefficient(table map[string]decimal.Decimal, key string) decimal.Decimal {
	if v, ok := table[strings.ToLower(strings.TrimSpace(key))]; ok {
		return v
	}
	return decimal.NewFromInt(1)
}

func decimalTable(in map[string]float64) map[string]decimal.Decimal {
	out := make(map[string]decimal.Decimal, len(in))
	keys := make([]string, 0, len(in))
	for k := range in {
		keys = append(keys, k)
	}
	sort.Strings(keys)
	for _, k := range keys {
		out[strings.ToLower(strings.TrimSpace(k))] = decimal.NewFromFloat(in[k])
	}
	return out
}
