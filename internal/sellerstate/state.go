// Package sellerstate tracks each seller's calibration level and qualifying
// streak. State advances at most once per seller and business day.
package sellerstate

import (
	"time"

	"github.com/bwmarrin/snowflake"
	"github.com/smallbiznis/shiftledger/internal/businessday"
)

type Level string

const (
	LevelNone   Level = "NONE"
	LevelWeak   Level = "WEAK"
	LevelMid    Level = "MID"
	LevelStrong Level = "STRONG"
	LevelTop    Level = "TOP"
)

// CalibrationDays is the number of worked days before a level is assigned.
const CalibrationDays = 3

type State struct {
	SellerID              snowflake.ID `gorm:"primaryKey" json:"seller_id"`
	Calibrated            bool         `gorm:"not null;default:false" json:"calibrated"`
	CalibrationWorkedDays int          `gorm:"not null;default:0" json:"calibration_worked_days"`
	CalibrationRevenueSum int64        `gorm:"not null;default:0" json:"calibration_revenue_sum"`
	CurrentLevel          Level        `gorm:"type:varchar(10);not null;default:'NONE'" json:"current_level"`
	StreakDays            int          `gorm:"not null;default:0" json:"streak_days"`
	LastEvalDay           string       `gorm:"type:varchar(10)" json:"last_eval_day,omitempty"`
	WeekID                string       `gorm:"type:varchar(8)" json:"week_id,omitempty"`
	WeekWorkedDays        int          `gorm:"not null;default:0" json:"week_worked_days"`
	WeekRevenueSum        int64        `gorm:"not null;default:0" json:"week_revenue_sum"`
	UpdatedAt             time.Time    `gorm:"not null" json:"updated_at"`
}

func (State) TableName() string { return "seller_motivation_state" }

// NewState is the initial uncalibrated state.
func NewState(sellerID snowflake.ID) State {
	return State{SellerID: sellerID, CurrentLevel: LevelNone}
}

// DayOutcome is one seller's result for a business day.
type DayOutcome struct {
	Day     businessday.Day
	Revenue int64
}

// Worked reports whether the seller had positive net sales.
func (o DayOutcome) Worked() bool { return o.Revenue > 0 }

// LevelFor maps an average daily revenue onto a level.
func LevelFor(avg int64) Level {
	switch {
	case avg < 40000:
		return LevelNone
	case avg < 50000:
		return LevelWeak
	case avg < 60000:
		return LevelMid
	case avg < 70000:
		return LevelStrong
	default:
		return LevelTop
	}
}

// StreakThreshold is the day revenue a seller of the level must exceed to
// extend a streak.
func StreakThreshold(l Level) int64 {
	switch l {
	case LevelWeak:
		return 40000
	case LevelMid:
		return 50000
	case LevelStrong:
		return 60000
	case LevelTop:
		return 70000
	default:
		return 30000
	}
}

// Advance applies one business day to s. It returns false and s unchanged
// when the day was already evaluated.
func Advance(s State, o DayOutcome) (State, bool) {
	day := o.Day.String()
	if s.LastEvalDay != "" && day <= s.LastEvalDay {
		return s, false
	}
	if s.CurrentLevel == "" {
		s.CurrentLevel = LevelNone
	}

	weekID := businessday.WeekID(o.Day)
	if s.WeekID != weekID {
		s.WeekID = weekID
		s.WeekWorkedDays = 0
		s.WeekRevenueSum = 0
	}
	if o.Worked() {
		s.WeekWorkedDays++
		s.WeekRevenueSum += o.Revenue
	}

	if !s.Calibrated {
		if o.Worked() {
			s.CalibrationWorkedDays++
			s.CalibrationRevenueSum += o.Revenue
		}
		if s.CalibrationWorkedDays >= CalibrationDays {
			s.Calibrated = true
			s.CurrentLevel = LevelFor(s.CalibrationRevenueSum / int64(s.CalibrationWorkedDays))
			s.StreakDays = 0
		}
	} else {
		switch {
		case !o.Worked():
			s.StreakDays = 0
		case o.Revenue > StreakThreshold(s.CurrentLevel):
			s.StreakDays++
		default:
			s.StreakDays = 0
		}
	}

	if o.Day.IsSunday() {
		if s.Calibrated && s.WeekWorkedDays > 0 {
			s.CurrentLevel = LevelFor(s.WeekRevenueSum / int64(s.WeekWorkedDays))
		}
		s.WeekWorkedDays = 0
		s.WeekRevenueSum = 0
	}

	s.LastEvalDay = day
	return s, true
}
