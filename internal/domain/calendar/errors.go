package calendar

import "errors"

var ErrCalendarNotConfigured = errors.New("calendar table dim_calendar does not exist; seed it with the calendar setup script before requesting reports")
