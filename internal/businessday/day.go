package businessday

import (
	"errors"
	"fmt"
	"regexp"
	"strconv"
	"strings"
	"time"
)

const layout = "2006-01-02"

var (
	ErrInvalidDayFormat = errors.New("invalid_day_format")
	ErrInvalidWeekID    = errors.New("invalid_week_id")
	ErrInvalidSeasonID  = errors.New("invalid_season_id")
)

var dayPattern = regexp.MustCompile(`^\d{4}-\d{2}-\d{2}$`)

// Day is a calendar date a financial event is attributed to. The zero value is invalid.
type Day struct {
	t time.Time
}

// Parse accepts strictly YYYY-MM-DD and rejects anything else before it reaches a query.
func Parse(raw string) (Day, error) {
	raw = strings.TrimSpace(raw)
	if !dayPattern.MatchString(raw) {
		return Day{}, fmt.Errorf("%w: %q", ErrInvalidDayFormat, raw)
	}
	t, err := time.ParseInLocation(layout, raw, time.UTC)
	if err != nil {
		return Day{}, fmt.Errorf("%w: %q", ErrInvalidDayFormat, raw)
	}
	return Day{t: t}, nil
}

// MustParse is Parse for constants in tests and defaults.
func MustParse(raw string) Day {
	d, err := Parse(raw)
	if err != nil {
		panic(err)
	}
	return d
}

// FromTime takes the calendar date of t in loc.
func FromTime(t time.Time, loc *time.Location) Day {
	if loc == nil {
		loc = time.UTC
	}
	y, m, d := t.In(loc).Date()
	return Day{t: time.Date(y, m, d, 0, 0, 0, 0, time.UTC)}
}

func (d Day) String() string {
	if d.t.IsZero() {
		return ""
	}
	return d.t.Format(layout)
}

func (d Day) IsZero() bool { return d.t.IsZero() }

func (d Day) Time() time.Time { return d.t }

func (d Day) AddDays(n int) Day { return Day{t: d.t.AddDate(0, 0, n)} }

func (d Day) Weekday() time.Weekday { return d.t.Weekday() }

// IsSunday marks the last day of an ISO week.
func (d Day) IsSunday() bool { return d.t.Weekday() == time.Sunday }

func (d Day) Before(o Day) bool { return d.t.Before(o.t) }

func (d Day) After(o Day) bool { return d.t.After(o.t) }

func (d Day) Equal(o Day) bool { return d.t.Equal(o.t) }

func (d Day) Year() int { return d.t.Year() }

func (d Day) Month() time.Month { return d.t.Month() }

// DaysUntil counts calendar days from d to o (negative when o is earlier).
func (d Day) DaysUntil(o Day) int {
	return int(o.t.Sub(d.t).Hours() / 24)
}

// WeekID returns the ISO week of the day as YYYY-Www.
func WeekID(d Day) string {
	year, week := d.t.ISOWeek()
	return fmt.Sprintf("%04d-W%02d", year, week)
}

// WeekRange returns Monday and Sunday of an ISO week id.
func WeekRange(weekID string) (Day, Day, error) {
	weekID = strings.TrimSpace(weekID)
	parts := strings.SplitN(weekID, "-W", 2)
	if len(parts) != 2 || len(parts[0]) != 4 || len(parts[1]) != 2 {
		return Day{}, Day{}, fmt.Errorf("%w: %q", ErrInvalidWeekID, weekID)
	}
	year, err := strconv.Atoi(parts[0])
	if err != nil {
		return Day{}, Day{}, fmt.Errorf("%w: %q", ErrInvalidWeekID, weekID)
	}
	week, err := strconv.Atoi(parts[1])
	if err != nil || week < 1 || week > 53 {
		return Day{}, Day{}, fmt.Errorf("%w: %q", ErrInvalidWeekID, weekID)
	}

	// January 4th is always in ISO week 1.
	jan4 := time.Date(year, time.January, 4, 0, 0, 0, 0, time.UTC)
	offset := (int(jan4.Weekday()) + 6) % 7
	monday := Day{t: jan4.AddDate(0, 0, -offset+(week-1)*7)}
	if WeekID(monday) != weekID {
		return Day{}, Day{}, fmt.Errorf("%w: %q", ErrInvalidWeekID, weekID)
	}
	return monday, monday.AddDays(6), nil
}
