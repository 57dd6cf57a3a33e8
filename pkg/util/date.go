package util

import (
	"time"
)

const DateLayout = "2006-01-02"

// ParseDate parses a YYYY-MM-DD date string. Returns (t, true) if it worked.
func ParseDate(s string) (time.Time, bool) {
	if s == "" {
		return time.Time{}, false
	}
	t, err := time.Parse(DateLayout, s)
	if err != nil {
		return time.Time{}, false
	}
	return t, true
}

// DateString formats t as YYYY-MM-DD.
func DateString(t time.Time) string {
	return t.Format(DateLayout)
}

// IsTradingDay reports whether t falls on a weekday in the given location.
// Exchange holidays are not modeled: a holiday scan simply finds no fresh
// bars and returns cached data.
func IsTradingDay(t time.Time, loc *time.Location) bool {
	wd := t.In(loc).Weekday()
	return wd != time.Saturday && wd != time.Sunday
}

// SameTradingDay reports whether a and b fall on the same calendar date in
// the given location. Used by the daily scan gate.
func SameTradingDay(a, b time.Time, loc *time.Location) bool {
	ay, am, ad := a.In(loc).Date()
	by, bm, bd := b.In(loc).Date()
	return ay == by && am == bm && ad == bd
}

// DaysUntil returns the number of whole calendar days from today (in loc)
// until the YYYY-MM-DD date s. Returns (0, false) if s does not parse.
func DaysUntil(s string, now time.Time, loc *time.Location) (int, bool) {
	d, ok := ParseDate(s)
	if !ok {
		return 0, false
	}
	ny, nm, nd := now.In(loc).Date()
	today := time.Date(ny, nm, nd, 0, 0, 0, 0, time.UTC)
	return int(d.Sub(today).Hours() / 24), true
}
