package sellerstate

import (
	"testing"

	"github.com/smallbiznis/shiftledger/internal/businessday"
	"github.com/stretchr/testify/assert"
)

func outcome(day string, revenue int64) DayOutcome {
	return DayOutcome{Day: businessday.MustParse(day), Revenue: revenue}
}

func TestCalibrationAfterThreeWorkedDays(t *testing.T) {
	s := NewState(1)

	s, ok := Advance(s, outcome("2024-07-01", 45000))
	assert.True(t, ok)
	s, _ = Advance(s, outcome("2024-07-02", 0))
	s, _ = Advance(s, outcome("2024-07-03", 52000))
	assert.False(t, s.Calibrated)
	assert.Equal(t, 2, s.CalibrationWorkedDays)

	s, _ = Advance(s, outcome("2024-07-04", 53000))
	assert.True(t, s.Calibrated)
	assert.Equal(t, LevelWeak, s.CurrentLevel)
	assert.Equal(t, 0, s.StreakDays)
	assert.Equal(t, "2024-07-04", s.LastEvalDay)
}

func TestAdvanceSkipsEvaluatedDay(t *testing.T) {
	s := NewState(1)
	s, _ = Advance(s, outcome("2024-07-02", 10000))

	again, ok := Advance(s, outcome("2024-07-02", 99000))
	assert.False(t, ok)
	assert.Equal(t, s, again)

	earlier, ok := Advance(s, outcome("2024-07-01", 99000))
	assert.False(t, ok)
	assert.Equal(t, s, earlier)
}

func TestStreakRequiresExceedingThreshold(t *testing.T) {
	s := State{SellerID: 1, Calibrated: true, CurrentLevel: LevelMid, LastEvalDay: "2024-07-01"}

	s, _ = Advance(s, outcome("2024-07-02", 50001))
	assert.Equal(t, 1, s.StreakDays)
	s, _ = Advance(s, outcome("2024-07-03", 65000))
	assert.Equal(t, 2, s.StreakDays)
	s, _ = Advance(s, outcome("2024-07-04", 50000))
	assert.Equal(t, 0, s.StreakDays)
	s, _ = Advance(s, outcome("2024-07-05", 70000))
	assert.Equal(t, 1, s.StreakDays)
	s, _ = Advance(s, outcome("2024-07-06", 0))
	assert.Equal(t, 0, s.StreakDays)
}

func TestSundayRelevelKeepsStreak(t *testing.T) {
	s := State{SellerID: 1, Calibrated: true, CurrentLevel: LevelWeak, LastEvalDay: "2024-06-30"}

	for _, day := range []string{"2024-07-01", "2024-07-02", "2024-07-03", "2024-07-04", "2024-07-05", "2024-07-06"} {
		s, _ = Advance(s, outcome(day, 75000))
	}
	assert.Equal(t, 6, s.StreakDays)
	assert.Equal(t, LevelWeak, s.CurrentLevel)
	assert.Equal(t, "2024-W27", s.WeekID)

	s, _ = Advance(s, outcome("2024-07-07", 75000))
	assert.Equal(t, LevelTop, s.CurrentLevel)
	assert.Equal(t, 7, s.StreakDays)
	assert.Zero(t, s.WeekWorkedDays)
	assert.Zero(t, s.WeekRevenueSum)
}

func TestSundayWithoutWorkKeepsLevel(t *testing.T) {
	s := State{SellerID: 1, Calibrated: true, CurrentLevel: LevelStrong, StreakDays: 3, LastEvalDay: "2024-07-06", WeekID: "2024-W27"}

	s, _ = Advance(s, outcome("2024-07-07", 0))
	assert.Equal(t, LevelStrong, s.CurrentLevel)
	assert.Equal(t, 0, s.StreakDays)
}

func TestLevelFor(t *testing.T) {
	assert.Equal(t, LevelNone, LevelFor(39999))
	assert.Equal(t, LevelWeak, LevelFor(40000))
	assert.Equal(t, LevelMid, LevelFor(59999))
	assert.Equal(t, LevelStrong, LevelFor(60000))
	assert.Equal(t, LevelTop, LevelFor(70000))
}
