package motivation

import (
	"github.com/shopspring/decimal"
	ledgerdomain "github.com/smallbiznis/shiftledger/internal/ledger/domain"
	"github.com/smallbiznis/shiftledger/internal/settings"
)

var pointsDivisor = decimal.NewFromInt(1000)

// streakMultipliers is indexed by consecutive qualifying days.
var streakMultipliers = []decimal.Decimal{
	decimal.RequireFromString("1.00"),
	decimal.RequireFromString("1.00"),
	decimal.RequireFromString("1.05"),
	decimal.RequireFromString("1.10"),
	decimal.RequireFromString("1.15"),
	decimal.RequireFromString("1.20"),
	decimal.RequireFromString("1.25"),
	decimal.RequireFromString("1.30"),
}

// StreakMultiplier steps from 1.00 to 1.30 at seven days and stays there.
func StreakMultiplier(days int) decimal.Decimal {
	if days < 0 {
		days = 0
	}
	if days >= len(streakMultipliers) {
		return streakMultipliers[len(streakMultipliers)-1]
	}
	return streakMultipliers[days]
}

// BucketPoints weighs one revenue bucket: revenue / 1000 × product × zone.
// Banana trips use only the banana zone coefficient.
func BucketPoints(revenue int64, boat ledgerdomain.BoatType, zone string, s settings.Settings) decimal.Decimal {
	base := decimal.NewFromInt(revenue).Div(pointsDivisor)
	if boat == ledgerdomain.BoatBanana {
		return base.Mul(settings.Coefficient(s.BananaZoneCoefficients, zone))
	}
	return base.
		Mul(settings.Coefficient(s.ProductCoefficients, string(boat))).
		Mul(settings.Coefficient(s.ZoneCoefficients, zone))
}

// RoundPoints rounds to two decimal places.
func RoundPoints(p decimal.Decimal) decimal.Decimal {
	return p.Round(2)
}
