package leave

import (
	"fmt"
	"time"

	"github.com/cmlabs-hris/attendance-backend-go/internal/domain/attendance"
	"github.com/cmlabs-hris/attendance-backend-go/internal/pkg/validator"
)

// ========================================
// LEAVE RANGE DTOs
// ========================================

type RecordLeaveRequest struct {
	StaffID        string  `json:"staff_id"`
	LeaveType      string  `json:"leave_type"`
	LeaveStartDate string  `json:"leave_start_date"`
	LeaveEndDate   string  `json:"leave_end_date"`
	Notes          *string `json:"notes,omitempty"`
	Overwrite      bool    `json:"overwrite"`
}

func (r *RecordLeaveRequest) Validate() error {
	var errs validator.ValidationErrors

	if validator.IsEmpty(r.StaffID) {
		errs = append(errs, validator.ValidationError{
			Field:   "staff_id",
			Message: "staff_id is required",
		})
	} else if !validator.IsValidStaffID(r.StaffID) {
		errs = append(errs, validator.ValidationError{
			Field:   "staff_id",
			Message: "staff_id contains invalid characters",
		})
	}

	if !attendance.Status(r.LeaveType).IsLeave() {
		errs = append(errs, validator.ValidationError{
			Field:   "leave_type",
			Message: fmt.Sprintf("leave_type must be one of: casual_leave, medical_leave, unpaid_leave, hospitalised_leave; got %q", r.LeaveType),
		})
	}

	start, startOK := validator.IsValidDate(r.LeaveStartDate)
	if !startOK {
		errs = append(errs, validator.ValidationError{
			Field:   "leave_start_date",
			Message: "leave_start_date must be in YYYY-MM-DD format",
		})
	}
	end, endOK := validator.IsValidDate(r.LeaveEndDate)
	if !endOK {
		errs = append(errs, validator.ValidationError{
			Field:   "leave_end_date",
			Message: "leave_end_date must be in YYYY-MM-DD format",
		})
	}
	if startOK && endOK && end.Before(start) {
		errs = append(errs, validator.ValidationError{
			Field:   "leave_end_date",
			Message: fmt.Sprintf("leave_end_date %s is before leave_start_date %s", r.LeaveEndDate, r.LeaveStartDate),
		})
	}

	if r.Notes != nil && len(*r.Notes) > 500 {
		errs = append(errs, validator.ValidationError{
			Field:   "notes",
			Message: "notes must not exceed 500 characters",
		})
	}

	if len(errs) > 0 {
		return errs
	}

	return nil
}

// Skip reasons reported per date when overwrite is false.
const (
	SkipReasonLeaveExists      = "leave already exists"
	SkipReasonAttendanceExists = "attendance already exists"
)

type SkippedDate struct {
	Date   string `json:"date"`
	Reason string `json:"reason"`
}

type RecordLeaveResult struct {
	RequestID    string                          `json:"request_id"`
	StaffID      string                          `json:"staff_id"`
	LeaveType    attendance.Status               `json:"leave_type"`
	StartDate    string                          `json:"leave_start_date"`
	EndDate      string                          `json:"leave_end_date"`
	TotalDays    int                             `json:"total_days"`
	Created      int                             `json:"created"`
	Updated      int                             `json:"updated"`
	Skipped      int                             `json:"skipped"`
	Errored      int                             `json:"errored"`
	Records      []attendance.AttendanceResponse `json:"records"`
	SkippedDates []SkippedDate                   `json:"skipped_dates"`
	Failures     []attendance.ItemFailure        `json:"failures,omitempty"`
}

// Window is the allowed date range for leave recording, inclusive.
type Window struct {
	Earliest time.Time
	Latest   time.Time
}

func (w Window) Contains(d time.Time) bool {
	return !d.Before(w.Earliest) && !d.After(w.Latest)
}
