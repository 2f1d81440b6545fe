package attendance

import (
	"fmt"
	"strings"
	"time"

	"github.com/cmlabs-hris/attendance-backend-go/internal/pkg/export"
	"github.com/cmlabs-hris/attendance-backend-go/internal/pkg/validator"
)

// ========================================
// ATTENDANCE DTOs
// ========================================

type FaceEventRequest struct {
	StaffID         string   `json:"staff_id"`
	ConfidenceScore *float64 `json:"confidence_score,omitempty"`
	FaceImagePath   *string  `json:"face_image_path,omitempty"`
}

func (r *FaceEventRequest) Validate() error {
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

	if r.ConfidenceScore != nil && (*r.ConfidenceScore < 0 || *r.ConfidenceScore > 100) {
		errs = append(errs, validator.ValidationError{
			Field:   "confidence_score",
			Message: "confidence_score must be between 0 and 100",
		})
	}

	if len(errs) > 0 {
		return errs
	}

	return nil
}

type FaceEventAction string

const (
	ActionCheckedIn         FaceEventAction = "checked_in"
	ActionCheckedOut        FaceEventAction = "checked_out"
	ActionCheckedOutUpdated FaceEventAction = "checked_out_updated"
	ActionIgnored           FaceEventAction = "ignored"
)

// Stream event names for the admin check-in/check-out paths. Face events
// are published under their FaceEventAction.
const (
	EventManualCheckIn  = "manual_check_in"
	EventManualCheckOut = "manual_check_out"
)

const (
	ReasonMinIntervalNotElapsed = "min_interval_not_elapsed"
	ReasonLeaveRecorded         = "leave_recorded"
)

type FaceEventResult struct {
	Action     FaceEventAction    `json:"action"`
	Reason     string             `json:"reason,omitempty"`
	Attendance AttendanceResponse `json:"attendance"`
}

type CheckInRequest struct {
	StaffID         string  `json:"staff_id"`
	CustomDateTime  *string `json:"custom_date_time,omitempty"`
	AttendanceNotes *string `json:"attendance_notes,omitempty"`
	ManualReason    *string `json:"manual_reason,omitempty"`
	Overwrite       bool    `json:"overwrite"`
}

// ManualReasonWorkFromHome marks a manual check-in as work from home.
const ManualReasonWorkFromHome = "work_from_home"

func (r *CheckInRequest) Validate() error {
	var errs validator.ValidationErrors

	errs = append(errs, validateStaffID(r.StaffID)...)
	errs = append(errs, validateCustomDateTime(r.CustomDateTime)...)

	if r.AttendanceNotes != nil && len(*r.AttendanceNotes) > 500 {
		errs = append(errs, validator.ValidationError{
			Field:   "attendance_notes",
			Message: "attendance_notes must not exceed 500 characters",
		})
	}

	if len(errs) > 0 {
		return errs
	}

	return nil
}

// IsWorkFromHome reports whether the manual reason flags work from home.
func (r *CheckInRequest) IsWorkFromHome() bool {
	return r.ManualReason != nil && strings.EqualFold(strings.TrimSpace(*r.ManualReason), ManualReasonWorkFromHome)
}

type CheckOutRequest struct {
	StaffID        string  `json:"staff_id"`
	CustomDateTime *string `json:"custom_date_time,omitempty"`
	Overwrite      bool    `json:"overwrite"`
}

func (r *CheckOutRequest) Validate() error {
	var errs validator.ValidationErrors

	errs = append(errs, validateStaffID(r.StaffID)...)
	errs = append(errs, validateCustomDateTime(r.CustomDateTime)...)

	if len(errs) > 0 {
		return errs
	}

	return nil
}

const (
	DateFilterCurrentMonth = "current_month"
	DateFilterLastMonth    = "last_month"
)

type AttendanceFilter struct {
	StartDate  *string `json:"start_date,omitempty"`
	EndDate    *string `json:"end_date,omitempty"`
	StaffID    *string `json:"staff_id,omitempty"`
	DateFilter *string `json:"date_filter,omitempty"`
}

func (f *AttendanceFilter) Validate() error {
	var errs validator.ValidationErrors

	var start, end time.Time
	var hasStart, hasEnd bool
	if f.StartDate != nil {
		if start, hasStart = validator.IsValidDate(*f.StartDate); !hasStart {
			errs = append(errs, validator.ValidationError{
				Field:   "start_date",
				Message: "start_date must be in YYYY-MM-DD format",
			})
		}
	}
	if f.EndDate != nil {
		if end, hasEnd = validator.IsValidDate(*f.EndDate); !hasEnd {
			errs = append(errs, validator.ValidationError{
				Field:   "end_date",
				Message: "end_date must be in YYYY-MM-DD format",
			})
		}
	}
	if hasStart && hasEnd && end.Before(start) {
		errs = append(errs, validator.ValidationError{
			Field:   "end_date",
			Message: fmt.Sprintf("end_date %s is before start_date %s", *f.EndDate, *f.StartDate),
		})
	}

	if f.DateFilter != nil && !validator.IsInSlice(*f.DateFilter, []string{DateFilterCurrentMonth, DateFilterLastMonth}) {
		errs = append(errs, validator.ValidationError{
			Field:   "date_filter",
			Message: "date_filter must be one of: current_month, last_month",
		})
	}

	if f.StaffID != nil && !validator.IsValidStaffID(*f.StaffID) {
		errs = append(errs, validator.ValidationError{
			Field:   "staff_id",
			Message: "staff_id contains invalid characters",
		})
	}

	if len(errs) > 0 {
		return errs
	}

	return nil
}

type ExportFormat = export.Format

const (
	ExportFormatCSV   = export.FormatCSV
	ExportFormatExcel = export.FormatExcel
)

// ParseExportFormat accepts csv, excel and xlsx.
func ParseExportFormat(s string) (ExportFormat, error) {
	switch strings.ToLower(strings.TrimSpace(s)) {
	case "", "csv":
		return ExportFormatCSV, nil
	case "excel", "xlsx":
		return ExportFormatExcel, nil
	}
	return "", validator.Single("format", fmt.Sprintf("format must be csv or excel, got %q", s))
}

type AttendanceResponse struct {
	ID                      int64    `json:"attendance_id"`
	StaffID                 string   `json:"staff_id"`
	StaffName               *string  `json:"full_name,omitempty"`
	Department              *string  `json:"department,omitempty"`
	Date                    string   `json:"date"`
	CheckInTime             *string  `json:"check_in_time"`
	CheckOutTime            *string  `json:"check_out_time"`
	Status                  Status   `json:"status"`
	AttendanceNotes         *string  `json:"attendance_notes,omitempty"`
	WorkFromHome            bool     `json:"work_from_home"`
	CheckInConfidenceScore  *float64 `json:"check_in_confidence_score,omitempty"`
	CheckOutConfidenceScore *float64 `json:"check_out_confidence_score,omitempty"`
	TotalHours              *string  `json:"total_hours"`
	DayHours                *string  `json:"day_hours"`
	OvertimeHours           string   `json:"overtime_hours"`
	IsHalfDay               bool     `json:"is_half_day"`
	LateMinutes             int      `json:"late_minutes"`
	EarlyDepartureMinutes   int      `json:"early_departure_minutes"`
}

type ListAttendanceResponse struct {
	StartDate   string               `json:"start_date"`
	EndDate     string               `json:"end_date"`
	TotalCount  int                  `json:"total_count"`
	Attendances []AttendanceResponse `json:"attendances"`
}

func validateStaffID(staffID string) validator.ValidationErrors {
	if validator.IsEmpty(staffID) {
		return validator.Single("staff_id", "staff_id is required")
	}
	if !validator.IsValidStaffID(staffID) {
		return validator.Single("staff_id", "staff_id contains invalid characters")
	}
	return nil
}

func validateCustomDateTime(s *string) validator.ValidationErrors {
	if s == nil {
		return nil
	}
	if _, err := ParseCustomDateTime(*s, time.UTC); err != nil {
		return validator.Single("custom_date_time", "custom_date_time must be RFC3339 or YYYY-MM-DDTHH:MM")
	}
	return nil
}

// ParseCustomDateTime accepts RFC3339 timestamps, or a zone-less local timestamp
// which is interpreted in loc.
func ParseCustomDateTime(s string, loc *time.Location) (time.Time, error) {
	s = strings.TrimSpace(s)
	if t, ok := validator.IsValidDateTime(s); ok {
		return t, nil
	}
	for _, layout := range []string{"2006-01-02T15:04:05", "2006-01-02T15:04", "2006-01-02 15:04:05", "2006-01-02 15:04"} {
		if t, err := time.ParseInLocation(layout, s, loc); err == nil {
			return t, nil
		}
	}
	return time.Time{}, fmt.Errorf("invalid date time %q", s)
}
