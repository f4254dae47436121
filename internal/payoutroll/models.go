package payoutroll

import (
	"time"

	"github.com/bwmarrin/snowflake"
	"github.com/shopspring/decimal"
	staffdomain "github.com/smallbiznis/shiftledger/internal/staff/domain"
)

// DayStat is one staff member's revenue and points for a business day.
// Re-applying a day overwrites it with the same values.
type DayStat struct {
	SellerID       snowflake.ID     `gorm:"primaryKey" json:"seller_id"`
	BusinessDay    string           `gorm:"primaryKey;type:varchar(10)" json:"business_day"`
	Role           staffdomain.Role `gorm:"type:varchar(16);not null" json:"role"`
	WeekID         string           `gorm:"type:varchar(8);not null;index" json:"week_id"`
	SeasonID       string           `gorm:"type:varchar(4);not null;index" json:"season_id"`
	RevenueDay     int64            `gorm:"not null" json:"revenue_day"`
	PointsDayTotal decimal.Decimal  `gorm:"type:numeric(14,2);not null" json:"points_day_total"`
	UpdatedAt      time.Time        `gorm:"not null" json:"updated_at"`
}

func (DayStat) TableName() string { return "seller_day_stats" }

// SeasonStat accumulates applied days of a season.
type SeasonStat struct {
	SellerID             snowflake.ID     `gorm:"primaryKey" json:"seller_id"`
	SeasonID             string           `gorm:"primaryKey;type:varchar(4)" json:"season_id"`
	Role                 staffdomain.Role `gorm:"type:varchar(16);not null" json:"role"`
	RevenueTotal         int64            `gorm:"not null;default:0" json:"revenue_total"`
	PointsTotal          decimal.Decimal  `gorm:"type:numeric(14,2);not null" json:"points_total"`
	WorkedDays           int              `gorm:"not null;default:0" json:"worked_days"`
	FinalMonthWorkedDays int              `gorm:"not null;default:0" json:"final_month_worked_days"`
	EndWindowWorkedDays  int              `gorm:"not null;default:0" json:"end_window_worked_days"`
	UpdatedAt            time.Time        `gorm:"not null" json:"updated_at"`
}

func (SeasonStat) TableName() string { return "seller_season_stats" }

// AppliedDay records that a (seller, day) pair reached the season totals.
type AppliedDay struct {
	SellerID    snowflake.ID `gorm:"primaryKey" json:"seller_id"`
	BusinessDay string       `gorm:"primaryKey;type:varchar(10)" json:"business_day"`
	SeasonID    string       `gorm:"type:varchar(4);not null" json:"season_id"`
	AppliedAt   time.Time    `gorm:"not null" json:"applied_at"`
}

func (AppliedDay) TableName() string { return "seller_season_applied_days" }

// DayRow is the input for one staff member when a day is applied.
type DayRow struct {
	SellerID snowflake.ID
	Role     staffdomain.Role
	Revenue  int64
	Points   decimal.Decimal
}

type ApplyResult struct {
	Applied int `json:"applied"`
	Skipped int `json:"skipped"`
}

type WeeklySeller struct {
	SellerID snowflake.ID    `json:"seller_id"`
	Rank     int             `json:"rank"`
	Revenue  int64           `json:"revenue"`
	Points   decimal.Decimal `json:"points"`
	Share    decimal.Decimal `json:"share"`
	Payout   int64           `json:"payout"`
}

type WeeklySummary struct {
	WeekID        string          `json:"week_id"`
	From          string          `json:"from"`
	To            string          `json:"to"`
	RevenueTotal  int64           `json:"revenue_total"`
	WeeklyPercent decimal.Decimal `json:"weekly_percent"`
	Pool          int64           `json:"weekly_pool_total"`
	Sellers       []WeeklySeller  `json:"sellers"`
	PaidTotal     int64           `json:"paid_total"`
	Remainder     int64           `json:"remainder"`
}

type SeasonSeller struct {
	SellerID             snowflake.ID    `json:"seller_id"`
	Revenue              int64           `json:"revenue"`
	Points               decimal.Decimal `json:"points"`
	WorkedDays           int             `json:"worked_days"`
	FinalMonthWorkedDays int             `json:"final_month_worked_days"`
	EndWindowWorkedDays  int             `json:"end_window_worked_days"`
	Eligible             bool            `json:"eligible"`
	Payout               int64           `json:"payout"`
}

type SeasonSummary struct {
	SeasonID        string          `json:"season_id"`
	From            string          `json:"from"`
	To              string          `json:"to"`
	FinalMonthStart string          `json:"final_month_start"`
	EndWindowStart  string          `json:"end_window_start"`
	RevenueTotal    int64           `json:"revenue_total"`
	SeasonPercent   decimal.Decimal `json:"season_percent"`
	Pool            int64           `json:"season_pool_total"`
	Sellers         []SeasonSeller  `json:"sellers"`
	PaidTotal       int64           `json:"paid_total"`
	Remainder       int64           `json:"remainder"`
}
