package postgresql

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/cmlabs-hris/attendance-backend-go/internal/domain/staff"
	"github.com/cmlabs-hris/attendance-backend-go/internal/pkg/database"
	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgtype"
)

type staffRepository struct {
	db *database.DB
}

const staffColumns = `
	staff_id, full_name, department, designation, email, is_active,
	work_start_time, work_end_time, break_time_minutes, ot_threshold_minutes,
	overtime_enabled, created_at, updated_at`

// GetByID implements staff.StaffRepository.
func (r *staffRepository) GetByID(ctx context.Context, staffID string) (staff.Staff, error) {
	q := GetQuerier(ctx, r.db)

	query := `SELECT ` + staffColumns + ` FROM staff WHERE staff_id = $1`

	s, err := scanStaff(q.QueryRow(ctx, query, staffID))
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return staff.Staff{}, staff.ErrStaffNotFound
		}
		return staff.Staff{}, fmt.Errorf("failed to get staff by id: %w", err)
	}
	return s, nil
}

// ListActive implements staff.StaffRepository.
func (r *staffRepository) ListActive(ctx context.Context) ([]staff.Staff, error) {
	q := GetQuerier(ctx, r.db)

	query := `SELECT ` + staffColumns + ` FROM staff WHERE is_active = TRUE ORDER BY staff_id`

	rows, err := q.Query(ctx, query)
	if err != nil {
		return nil, fmt.Errorf("failed to list active staff: %w", err)
	}
	defer rows.Close()

	var list []staff.Staff
	for rows.Next() {
		s, err := scanStaff(rows)
		if err != nil {
			return nil, fmt.Errorf("failed to scan staff: %w", err)
		}
		list = append(list, s)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("failed to iterate staff: %w", err)
	}
	return list, nil
}

// GetMany implements staff.StaffRepository.
func (r *staffRepository) GetMany(ctx context.Context, staffIDs []string) (map[string]staff.Staff, error) {
	result := make(map[string]staff.Staff, len(staffIDs))
	if len(staffIDs) == 0 {
		return result, nil
	}

	q := GetQuerier(ctx, r.db)

	query := `SELECT ` + staffColumns + ` FROM staff WHERE staff_id = ANY($1)`

	rows, err := q.Query(ctx, query, staffIDs)
	if err != nil {
		return nil, fmt.Errorf("failed to get staff: %w", err)
	}
	defer rows.Close()

	for rows.Next() {
		s, err := scanStaff(rows)
		if err != nil {
			return nil, fmt.Errorf("failed to scan staff: %w", err)
		}
		result[s.ID] = s
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("failed to iterate staff: %w", err)
	}
	return result, nil
}

// scanStaff applies schedule defaults for NULL schedule columns.
func scanStaff(row pgx.Row) (staff.Staff, error) {
	var s staff.Staff
	var workStart, workEnd pgtype.Time
	var breakMinutes, otThreshold pgtype.Int4

	err := row.Scan(
		&s.ID, &s.FullName, &s.Department, &s.Designation, &s.Email, &s.IsActive,
		&workStart, &workEnd, &breakMinutes, &otThreshold,
		&s.Schedule.OvertimeEnabled, &s.CreatedAt, &s.UpdatedAt,
	)
	if err != nil {
		return staff.Staff{}, err
	}

	defaults := staff.DefaultScheduleConfig()
	s.Schedule.WorkStartTime = clockOrDefault(workStart, defaults.WorkStartTime)
	s.Schedule.WorkEndTime = clockOrDefault(workEnd, defaults.WorkEndTime)
	s.Schedule.BreakTimeMinutes = defaults.BreakTimeMinutes
	if breakMinutes.Valid {
		s.Schedule.BreakTimeMinutes = int(breakMinutes.Int32)
	}
	s.Schedule.OTThresholdMinutes = defaults.OTThresholdMinutes
	if otThreshold.Valid {
		s.Schedule.OTThresholdMinutes = int(otThreshold.Int32)
	}
	return s, nil
}

func clockOrDefault(t pgtype.Time, fallback time.Duration) time.Duration {
	if !t.Valid {
		return fallback
	}
	return time.Duration(t.Microseconds) * time.Microsecond
}

func NewStaffRepository(db *database.DB) staff.StaffRepository {
	return &staffRepository{db: db}
}
