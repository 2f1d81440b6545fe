package calendar

import (
	"strings"
	"time"
)

// CalendarDay is one row of the calendar seed.
type CalendarDay struct {
	Date            time.Time
	DayName         string
	IsWeekend       bool
	IsPublicHoliday bool
	HolidayName     *string
}

// IsWorkingDay reports whether absence should be counted on this day.
func (d CalendarDay) IsWorkingDay() bool {
	return !d.IsWeekend && !d.IsPublicHoliday
}

// IsSunday matches on the seeded day_name.
func (d CalendarDay) IsSunday() bool {
	return strings.EqualFold(strings.TrimSpace(d.DayName), "sunday")
}
