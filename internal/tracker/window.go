package tracker

import (
	"time"

	"github.com/julianstephens/habitual/internal/constants"
	"github.com/julianstephens/habitual/internal/utils"
)

// Window is the run of calendar days shown in the habit grid, oldest first
type Window struct {
	Today string
	Days  []string
}

// NewWindow returns the days from today-3 through today+3. Only the calendar
// date of today is used.
func NewWindow(today time.Time) Window {
	days := make([]string, 0, constants.WindowSize)
	for i := -constants.WindowDaysBefore; i <= constants.WindowDaysAfter; i++ {
		days = append(days, utils.AddDays(today, i).Format(constants.DateFormat))
	}
	return Window{
		Today: today.Format(constants.DateFormat),
		Days:  days,
	}
}

// Start returns the first day of the window
func (w Window) Start() string {
	if len(w.Days) == 0 {
		return ""
	}
	return w.Days[0]
}

// End returns the last day of the window
func (w Window) End() string {
	if len(w.Days) == 0 {
		return ""
	}
	return w.Days[len(w.Days)-1]
}

// Contains reports whether day falls inside the window
func (w Window) Contains(day string) bool {
	for _, d := range w.Days {
		if d == day {
			return true
		}
	}
	return false
}

// WindowStartingAt rebuilds the window whose first day is start
func WindowStartingAt(start string) (Window, error) {
	first, err := utils.ParseDate(start)
	if err != nil {
		return Window{}, err
	}
	return NewWindow(utils.AddDays(first, constants.WindowDaysBefore)), nil
}
