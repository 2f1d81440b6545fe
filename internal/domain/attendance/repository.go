package attendance

import (
	"context"
	"time"
)

// AttendanceRepository defines data access methods for attendance records.
type AttendanceRepository interface {
	// LockStaffDay serializes read-decide-write sequences on (staffID, date).
	// Must be called inside a transaction; the lock is released on commit or rollback.
	LockStaffDay(ctx context.Context, staffID string, date time.Time) error

	// GetByStaffAndDate returns nil, nil when no record exists.
	GetByStaffAndDate(ctx context.Context, staffID string, date time.Time) (*Attendance, error)

	// Create inserts a record; ErrCheckInExists on a (staff_id, date) conflict.
	Create(ctx context.Context, attendance Attendance) (Attendance, error)

	// Update rewrites every mutable column of the record identified by ID.
	Update(ctx context.Context, attendance Attendance) (Attendance, error)

	// ListByDateRange returns records in [start, end], optionally for one staff member,
	// ordered by date then staff_id.
	ListByDateRange(ctx context.Context, start, end time.Time, staffID *string) ([]Attendance, error)
}
