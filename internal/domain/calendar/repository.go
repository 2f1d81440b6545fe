package calendar

import (
	"context"
	"time"
)

type CalendarRepository interface {
	// TableExists reports whether the calendar seed table is present at all,
	// which is distinct from having no rows in a range.
	TableExists(ctx context.Context) (bool, error)

	// ListByRange returns days in [start, end] ordered by date.
	ListByRange(ctx context.Context, start, end time.Time) ([]CalendarDay, error)
}
