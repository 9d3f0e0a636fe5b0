package plan

import "fmt"

// demandFillHour is the hour of day at which the previous day's demand is
// consumed from product stock. Demand recognized on day d leaves inventory
// during the 08:00-09:00 window of day d+1.
const demandFillHour = 8

// Window is the daily operating window, inclusive on both ends. Equipment may
// only run and purchases may only be placed at hours h with
// Start <= h%24 <= End.
type Window struct {
	Start int
	End   int
}

// DefaultWindow is the 08:00-20:00 factory operating window.
func DefaultWindow() Window { return Window{Start: 8, End: 20} }

func (w Window) validate() error {
	if w.Start < 0 || w.End > 23 || w.Start > w.End {
		return &ConfigurationError{Detail: fmt.Sprintf("operating window %02d:00-%02d:00 is not a valid span within a day", w.Start, w.End)}
	}
	return nil
}

// Contains reports whether the given hour of day falls inside the window.
func (w Window) Contains(hourOfDay int) bool {
	return hourOfDay >= w.Start && hourOfDay <= w.End
}

// Operable reports whether absolute hour t is inside the window.
func (w Window) Operable(t int) bool {
	return w.Contains(t % 24)
}

// DemandHour returns the absolute hour at which demand for the given 1-based
// day is consumed: 08:00 of the following day. Day 1 covers hours 0-23.
func DemandHour(day int) int {
	return 24*day + demandFillHour
}

// demandDay inverts DemandHour: it returns the 1-based demand day consumed at
// the given hour, if any.
func demandDay(hour int) (int, bool) {
	if hour < 24+demandFillHour || (hour-demandFillHour)%24 != 0 {
		return 0, false
	}
	return (hour - demandFillHour) / 24, true
}

// operableHours lists every hour in [0, horizon) that falls inside the window,
// in order. Consecutive entries of this sequence are what the continuous-run
// limit is measured over: closed hours freeze the run counter rather than
// resetting it.
func operableHours(horizon int, w Window) []int {
	hours := make([]int, 0, horizon)
	for t := 0; t < horizon; t++ {
		if w.Operable(t) {
			hours = append(hours, t)
		}
	}
	return hours
}
