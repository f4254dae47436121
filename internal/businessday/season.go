package businessday

import (
	"fmt"
	"strconv"
	"strings"
)

// SeasonID identifies the season a day belongs to; seasons never span a year boundary.
func SeasonID(d Day) string {
	return strconv.Itoa(d.Year())
}

// SeasonWindow is the calendar frame used for season eligibility.
type SeasonWindow struct {
	ID              string
	Start           Day
	End             Day
	FinalMonthStart Day
	EndWindowStart  Day
}

// NewSeasonWindow builds the window for seasonID from MM-DD bounds and the
// length of the end-of-season window in days.
func NewSeasonWindow(seasonID, startMonthDay, endMonthDay string, endWindowDays int) (SeasonWindow, error) {
	seasonID = strings.TrimSpace(seasonID)
	year, err := strconv.Atoi(seasonID)
	if err != nil || year < 1970 || year > 9999 {
		return SeasonWindow{}, fmt.Errorf("%w: %q", ErrInvalidSeasonID, seasonID)
	}
	start, err := Parse(fmt.Sprintf("%04d-%s", year, strings.TrimSpace(startMonthDay)))
	if err != nil {
		return SeasonWindow{}, err
	}
	end, err := Parse(fmt.Sprintf("%04d-%s", year, strings.TrimSpace(endMonthDay)))
	if err != nil {
		return SeasonWindow{}, err
	}
	if end.Before(start) {
		return SeasonWindow{}, fmt.Errorf("%w: season %s ends before it starts", ErrInvalidSeasonID, seasonID)
	}
	if endWindowDays < 1 {
		endWindowDays = 1
	}

	finalMonth := Day{t: end.t.AddDate(0, 0, -end.t.Day()+1)}
	if finalMonth.Before(start) {
		finalMonth = start
	}
	window := end.AddDays(-(endWindowDays - 1))
	if window.Before(start) {
		window = start
	}

	return SeasonWindow{
		ID:              seasonID,
		Start:           start,
		End:             end,
		FinalMonthStart: finalMonth,
		EndWindowStart:  window,
	}, nil
}

func (w SeasonWindow) Contains(d Day) bool {
	return !d.Before(w.Start) && !d.After(w.End)
}

func (w SeasonWindow) InFinalMonth(d Day) bool {
	return !d.Before(w.FinalMonthStart) && !d.After(w.End)
}

func (w SeasonWindow) InEndWindow(d Day) bool {
	return !d.Before(w.EndWindowStart) && !d.After(w.End)
}
