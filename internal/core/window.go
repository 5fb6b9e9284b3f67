package core

import "time"

// Window is a contiguous time interval used to filter records for
// aggregation. Both bounds are inclusive.
type Window struct {
	Start time.Time
	End   time.Time
}

// TodayWindow spans from local midnight to now.
func TodayWindow(now time.Time) Window {
	return Window{Start: midnight(now), End: now}
}

// WeekWindow spans the 7 days ending at the most recent week-start,
// with the week anchored to weekday index 0 (Sunday), matching SQLite's
// `weekday 0` modifier: the anchor is the next Sunday, or today when today
// is already Sunday, and the window starts seven days before it.
func WeekWindow(now time.Time) Window {
	daysToSunday := (7 - int(now.Weekday())) % 7
	anchor := midnight(now).AddDate(0, 0, daysToSunday)
	return Window{Start: anchor.AddDate(0, 0, -7), End: now}
}

// MonthWindow spans from the first of the current month to now, so it holds
// exactly the records whose year-month matches the current year-month.
func MonthWindow(now time.Time) Window {
	start := time.Date(now.Year(), now.Month(), 1, 0, 0, 0, 0, now.Location())
	return Window{Start: start, End: now}
}

// RangeWindow spans two calendar days inclusively: from midnight of start
// to the last instant of end.
func RangeWindow(start, end time.Time) Window {
	return Window{
		Start: midnight(start),
		End:   midnight(end).AddDate(0, 0, 1).Add(-time.Nanosecond),
	}
}

func midnight(t time.Time) time.Time {
	return time.Date(t.Year(), t.Month(), t.Day(), 0, 0, 0, 0, t.Location())
}

// Contains reports whether t falls inside the window.
func (w Window) Contains(t time.Time) bool {
	return !t.Before(w.Start) && !t.After(w.End)
}
