package utils

import (
	"fmt"
	"strings"
	"time"
)

// DateLayout is the wire and storage form of a calendar date.
const DateLayout = "2006-01-02"

// CivilDate returns midnight of t's calendar day as observed in loc.
func CivilDate(t time.Time, loc *time.Location) time.Time {
	local := t.In(loc)
	return time.Date(local.Year(), local.Month(), local.Day(), 0, 0, 0, 0, loc)
}

// InLocation reinterprets the year/month/day of d (e.g. a DATE scanned as UTC) as a day in loc.
func InLocation(d time.Time, loc *time.Location) time.Time {
	return time.Date(d.Year(), d.Month(), d.Day(), 0, 0, 0, 0, loc)
}

// DateKey formats the calendar day of d without converting zones.
func DateKey(d time.Time) string {
	return d.Format(DateLayout)
}

// ParseDateIn parses "YYYY-MM-DD" as midnight in loc.
func ParseDateIn(s string, loc *time.Location) (time.Time, error) {
	return time.ParseInLocation(DateLayout, s, loc)
}

// IsMidnight reports whether t falls exactly on 00:00:00 in loc.
func IsMidnight(t time.Time, loc *time.Location) bool {
	local := t.In(loc)
	return local.Hour() == 0 && local.Minute() == 0 && local.Second() == 0 && local.Nanosecond() == 0
}

// DaysInRange enumerates every calendar day in [start, end] inclusive.
// Both bounds are truncated to their calendar day in start's location.
func DaysInRange(start, end time.Time) []time.Time {
	loc := start.Location()
	from := InLocation(start, loc)
	to := InLocation(end.In(loc), loc)
	if to.Before(from) {
		return nil
	}
	var days []time.Time
	for d := from; !d.After(to); d = d.AddDate(0, 0, 1) {
		days = append(days, d)
	}
	return days
}

// MonthBounds returns the first and last calendar day of the month.
func MonthBounds(year int, month time.Month, loc *time.Location) (time.Time, time.Time) {
	first := time.Date(year, month, 1, 0, 0, 0, 0, loc)
	last := first.AddDate(0, 1, -1)
	return first, last
}

// ParseClock parses a wall-clock value ("17:45" or "17:45:00") into an offset from midnight.
func ParseClock(s string) (time.Duration, error) {
	s = strings.TrimSpace(s)
	layouts := []string{"15:04:05", "15:04"}
	for _, layout := range layouts {
		if t, err := time.Parse(layout, s); err == nil {
			return time.Duration(t.Hour())*time.Hour +
				time.Duration(t.Minute())*time.Minute +
				time.Duration(t.Second())*time.Second, nil
		}
	}
	return 0, fmt.Errorf("invalid clock value %q", s)
}

// MustParseClock is ParseClock for constants.
func MustParseClock(s string) time.Duration {
	d, err := ParseClock(s)
	if err != nil {
		panic(err)
	}
	return d
}

// TimeOfDay returns the offset of t from midnight in loc.
func TimeOfDay(t time.Time, loc *time.Location) time.Duration {
	local := t.In(loc)
	return time.Duration(local.Hour())*time.Hour +
		time.Duration(local.Minute())*time.Minute +
		time.Duration(local.Second())*time.Second +
		time.Duration(local.Nanosecond())
}

// FormatClock renders a time-of-day offset as "HH:MM".
func FormatClock(d time.Duration) string {
	return FormatHHMM(int(d / time.Minute))
}

// FormatHHMM renders a non-negative minute count as "HH:MM". Hours may exceed 24.
func FormatHHMM(minutes int) string {
	if minutes < 0 {
		minutes = 0
	}
	return fmt.Sprintf("%02d:%02d", minutes/60, minutes%60)
}
