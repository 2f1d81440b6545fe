package postgresql

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/cmlabs-hris/attendance-backend-go/internal/domain/calendar"
	"github.com/cmlabs-hris/attendance-backend-go/internal/pkg/database"
	"github.com/cmlabs-hris/attendance-backend-go/internal/pkg/utils"
	"github.com/jackc/pgx/v5/pgconn"
)

const pgUndefinedTable = "42P01"

type calendarRepository struct {
	db  *database.DB
	loc *time.Location
}

// TableExists implements calendar.CalendarRepository.
func (r *calendarRepository) TableExists(ctx context.Context) (bool, error) {
	q := GetQuerier(ctx, r.db)

	query := `
		SELECT EXISTS (
			SELECT 1 FROM information_schema.tables
			WHERE table_schema = current_schema()
			  AND table_name = 'dim_calendar'
		)
	`

	var exists bool
	if err := q.QueryRow(ctx, query).Scan(&exists); err != nil {
		return false, fmt.Errorf("failed to check calendar table: %w", err)
	}
	return exists, nil
}

// ListByRange implements calendar.CalendarRepository.
func (r *calendarRepository) ListByRange(ctx context.Context, start, end time.Time) ([]calendar.CalendarDay, error) {
	q := GetQuerier(ctx, r.db)

	query := `
		SELECT calendar_date, day_name, is_weekend, is_public_holiday, holiday_name
		FROM dim_calendar
		WHERE calendar_date BETWEEN $1::date AND $2::date
		ORDER BY calendar_date
	`

	rows, err := q.Query(ctx, query, utils.DateKey(start), utils.DateKey(end))
	if err != nil {
		if isUndefinedTable(err) {
			return nil, calendar.ErrCalendarNotConfigured
		}
		return nil, fmt.Errorf("failed to list calendar days: %w", err)
	}
	defer rows.Close()

	var days []calendar.CalendarDay
	for rows.Next() {
		var d calendar.CalendarDay
		if err := rows.Scan(&d.Date, &d.DayName, &d.IsWeekend, &d.IsPublicHoliday, &d.HolidayName); err != nil {
			return nil, fmt.Errorf("failed to scan calendar day: %w", err)
		}
		d.Date = utils.InLocation(d.Date, r.loc)
		days = append(days, d)
	}
	if err := rows.Err(); err != nil {
		if isUndefinedTable(err) {
			return nil, calendar.ErrCalendarNotConfigured
		}
		return nil, fmt.Errorf("failed to iterate calendar days: %w", err)
	}
	return days, nil
}

func isUndefinedTable(err error) bool {
	var pgErr *pgconn.PgError
	return errors.As(err, &pgErr) && pgErr.Code == pgUndefinedTable
}

func NewCalendarRepository(db *database.DB, loc *time.Location) calendar.CalendarRepository {
	if loc == nil {
		loc = time.UTC
	}
	return &calendarRepository{db: db, loc: loc}
}
