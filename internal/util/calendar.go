package util

import "time"

// IsTradingDay reports whether t falls on a weekday. Exchange holidays are
// not modelled; weekend exclusion is enough for daily equity series.
func IsTradingDay(t time.Time) bool {
	switch t.Weekday() {
	case time.Saturday, time.Sunday:
		return false
	}
	return true
}

// TradingDays returns every weekday in [start, end] at start's time of day.
// Returns nil when end precedes start.
func TradingDays(start, end time.Time) []time.Time {
	var days []time.Time
	for d := start; !d.After(end); d = d.AddDate(0, 0, 1) {
		if IsTradingDay(d) {
			days = append(days, d)
		}
	}
	return days
}
