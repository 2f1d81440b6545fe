package postgresql

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/cmlabs-hris/attendance-backend-go/internal/domain/attendance"
	"github.com/cmlabs-hris/attendance-backend-go/internal/pkg/database"
	"github.com/cmlabs-hris/attendance-backend-go/internal/pkg/utils"
	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgconn"
)

const pgUniqueViolation = "23505"

type attendanceRepository struct {
	db  *database.DB
	loc *time.Location
}

const attendanceColumns = `
	a.attendance_id, a.staff_id, a.date, a.check_in_time, a.check_out_time,
	a.status, a.attendance_notes, a.work_from_home,
	a.check_in_face_image_path, a.check_out_face_image_path,
	a.check_in_confidence_score, a.check_out_confidence_score,
	a.created_at, a.updated_at`

// LockStaffDay implements attendance.AttendanceRepository.
func (r *attendanceRepository) LockStaffDay(ctx context.Context, staffID string, date time.Time) error {
	q := GetQuerier(ctx, r.db)

	// Transaction-scoped, so it also covers the no-row-yet case that FOR UPDATE cannot.
	_, err := q.Exec(ctx, `SELECT pg_advisory_xact_lock(hashtext($1))`, staffID+":"+utils.DateKey(date))
	if err != nil {
		return fmt.Errorf("failed to lock attendance for %s on %s: %w", staffID, utils.DateKey(date), err)
	}
	return nil
}

// GetByStaffAndDate implements attendance.AttendanceRepository.
func (r *attendanceRepository) GetByStaffAndDate(ctx context.Context, staffID string, date time.Time) (*attendance.Attendance, error) {
	q := GetQuerier(ctx, r.db)

	query := `
		SELECT ` + attendanceColumns + `
		FROM attendance a
		WHERE a.staff_id = $1
		  AND a.date = $2::date
		LIMIT 1
	`

	att, err := r.scan(q.QueryRow(ctx, query, staffID, utils.DateKey(date)), false)
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, nil
		}
		return nil, fmt.Errorf("failed to get attendance by staff and date: %w", err)
	}

	return &att, nil
}

// Create implements attendance.AttendanceRepository.
func (r *attendanceRepository) Create(ctx context.Context, newAttendance attendance.Attendance) (attendance.Attendance, error) {
	q := GetQuerier(ctx, r.db)

	query := `
		INSERT INTO attendance (
			staff_id, date, check_in_time, check_out_time, status,
			attendance_notes, work_from_home,
			check_in_face_image_path, check_out_face_image_path,
			check_in_confidence_score, check_out_confidence_score
		) VALUES (
			$1, $2::date, $3, $4, $5, $6, $7, $8, $9, $10, $11
		) RETURNING attendance_id, created_at, updated_at
	`

	err := q.QueryRow(ctx, query,
		newAttendance.StaffID,
		utils.DateKey(newAttendance.Date),
		newAttendance.CheckInTime,
		newAttendance.CheckOutTime,
		string(newAttendance.Status),
		newAttendance.AttendanceNotes,
		newAttendance.WorkFromHome,
		newAttendance.CheckInFaceImagePath,
		newAttendance.CheckOutFaceImagePath,
		newAttendance.CheckInConfidenceScore,
		newAttendance.CheckOutConfidenceScore,
	).Scan(&newAttendance.ID, &newAttendance.CreatedAt, &newAttendance.UpdatedAt)

	if err != nil {
		var pgErr *pgconn.PgError
		if errors.As(err, &pgErr) && pgErr.Code == pgUniqueViolation {
			return attendance.Attendance{}, attendance.ErrCheckInExists
		}
		return attendance.Attendance{}, fmt.Errorf("failed to create attendance: %w", err)
	}

	return newAttendance, nil
}

// Update implements attendance.AttendanceRepository.
func (r *attendanceRepository) Update(ctx context.Context, att attendance.Attendance) (attendance.Attendance, error) {
	q := GetQuerier(ctx, r.db)

	query := `
		UPDATE attendance SET
			check_in_time = $2,
			check_out_time = $3,
			status = $4,
			attendance_notes = $5,
			work_from_home = $6,
			check_in_face_image_path = $7,
			check_out_face_image_path = $8,
			check_in_confidence_score = $9,
			check_out_confidence_score = $10,
			updated_at = NOW()
		WHERE attendance_id = $1
		RETURNING updated_at
	`

	err := q.QueryRow(ctx, query,
		att.ID,
		att.CheckInTime,
		att.CheckOutTime,
		string(att.Status),
		att.AttendanceNotes,
		att.WorkFromHome,
		att.CheckInFaceImagePath,
		att.CheckOutFaceImagePath,
		att.CheckInConfidenceScore,
		att.CheckOutConfidenceScore,
	).Scan(&att.UpdatedAt)

	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return attendance.Attendance{}, fmt.Errorf("attendance %d not found: %w", att.ID, err)
		}
		return attendance.Attendance{}, fmt.Errorf("failed to update attendance: %w", err)
	}

	return att, nil
}

// ListByDateRange implements attendance.AttendanceRepository.
func (r *attendanceRepository) ListByDateRange(ctx context.Context, start, end time.Time, staffID *string) ([]attendance.Attendance, error) {
	q := GetQuerier(ctx, r.db)

	var sb strings.Builder
	sb.WriteString(`
		SELECT ` + attendanceColumns + `, s.full_name, s.department
		FROM attendance a
		LEFT JOIN staff s ON s.staff_id = a.staff_id
		WHERE a.date BETWEEN $1::date AND $2::date`)
	args := []interface{}{utils.DateKey(start), utils.DateKey(end)}
	if staffID != nil {
		args = append(args, *staffID)
		sb.WriteString(fmt.Sprintf(" AND a.staff_id = $%d", len(args)))
	}
	sb.WriteString(" ORDER BY a.date, a.staff_id")

	rows, err := q.Query(ctx, sb.String(), args...)
	if err != nil {
		return nil, fmt.Errorf("failed to list attendance: %w", err)
	}
	defer rows.Close()

	var list []attendance.Attendance
	for rows.Next() {
		att, err := r.scan(rows, true)
		if err != nil {
			return nil, fmt.Errorf("failed to scan attendance: %w", err)
		}
		list = append(list, att)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("failed to iterate attendance: %w", err)
	}

	return list, nil
}

// scan reads one row; withStaff expects the joined full_name and department columns.
func (r *attendanceRepository) scan(row pgx.Row, withStaff bool) (attendance.Attendance, error) {
	var att attendance.Attendance
	var status string
	dest := []interface{}{
		&att.ID, &att.StaffID, &att.Date, &att.CheckInTime, &att.CheckOutTime,
		&status, &att.AttendanceNotes, &att.WorkFromHome,
		&att.CheckInFaceImagePath, &att.CheckOutFaceImagePath,
		&att.CheckInConfidenceScore, &att.CheckOutConfidenceScore,
		&att.CreatedAt, &att.UpdatedAt,
	}
	if withStaff {
		dest = append(dest, &att.StaffName, &att.Department)
	}
	if err := row.Scan(dest...); err != nil {
		return attendance.Attendance{}, err
	}
	att.Status = attendance.Status(status)
	att.Date = utils.InLocation(att.Date, r.loc)
	return att, nil
}

func NewAttendanceRepository(db *database.DB, loc *time.Location) attendance.AttendanceRepository {
	if loc == nil {
		loc = time.UTC
	}
	return &attendanceRepository{db: db, loc: loc}
}
