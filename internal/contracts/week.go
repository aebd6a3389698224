package contracts

import "time"

// WeekStart normalizes t to the ISO week start: Monday 00:00 in t's
// location. Every (symbol, week) key in the stage collections uses this.
func WeekStart(t time.Time) time.Time {
	weekday := int(t.Weekday())
	if weekday == 0 {
		weekday = 7 // Sunday
	}
	day := t.AddDate(0, 0, -(weekday - 1))
	return time.Date(day.Year(), day.Month(), day.Day(), 0, 0, 0, 0, t.Location())
}

// PrevWeek returns the Monday one week before week
func PrevWeek(week time.Time) time.Time {
	return week.AddDate(0, 0, -7)
}

// SameWeek reports whether a and b fall in the same ISO week
func SameWeek(a, b time.Time) bool {
	return WeekStart(a).Equal(WeekStart(b))
}
