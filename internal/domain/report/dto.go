package report

import (
	"fmt"
	"time"

	"github.com/cmlabs-hris/attendance-backend-go/internal/domain/attendance"
	"github.com/cmlabs-hris/attendance-backend-go/internal/pkg/validator"
	"github.com/shopspring/decimal"
)

// ========================================
// MONTH REQUEST
// ========================================

type MonthRequest struct {
	Month int `json:"month"`
	Year  int `json:"year"`
}

func (r *MonthRequest) Validate() error {
	var errs validator.ValidationErrors

	if r.Month < 1 || r.Month > 12 {
		errs = append(errs, validator.ValidationError{
			Field:   "month",
			Message: fmt.Sprintf("month must be between 1 and 12, got %d", r.Month),
		})
	}

	currentYear := time.Now().Year()
	if r.Year < 2000 || r.Year > currentYear+1 {
		errs = append(errs, validator.ValidationError{
			Field:   "year",
			Message: fmt.Sprintf("year must be between 2000 and %d, got %d", currentYear+1, r.Year),
		})
	}

	if len(errs) > 0 {
		return errs
	}
	return nil
}

// ========================================
// MONTH SUMMARY (day across staff)
// ========================================

type MonthSummary struct {
	Year        int          `json:"year"`
	Month       int          `json:"month"`
	StartDate   string       `json:"start_date"`
	EndDate     string       `json:"end_date"`
	ActiveStaff int          `json:"active_staff"`
	GeneratedAt string       `json:"generated_at"`
	Totals      MonthTotals  `json:"totals"`
	Days        []DaySummary `json:"days"`

	Failures []attendance.ItemFailure `json:"failures,omitempty"`
}

type DaySummary struct {
	Date            string          `json:"date"`
	DayName         string          `json:"day_name"`
	IsWeekend       bool            `json:"is_weekend"`
	IsPublicHoliday bool            `json:"is_public_holiday"`
	HolidayName     *string         `json:"holiday_name,omitempty"`
	TotalPresent    int             `json:"total_present"`
	TotalLeave      int             `json:"total_leave"`
	TotalAbsent     int             `json:"total_absent"`
	TotalOTDays     int             `json:"total_ot_days"`
	TotalOTMinutes  int             `json:"total_ot_minutes"`
	TotalOTHours    decimal.Decimal `json:"total_ot_hours"`
}

type MonthTotals struct {
	WorkingDays  int             `json:"working_days"`
	Present      int             `json:"present"`
	Leave        int             `json:"leave"`
	Absent       int             `json:"absent"`
	OTDays       int             `json:"ot_days"`
	TotalOTHours decimal.Decimal `json:"total_ot_hours"`
}

// ========================================
// DETAILED SUMMARY (staff across days)
// ========================================

// Day status codes in the detailed summary matrix. Leave codes come from attendance.Status.Code.
const (
	CodeWeekOff = "WO"
	CodeHoliday = "NH"
	CodeHalfDay = "HD"
	CodePresent = "P"
	CodeAbsent  = "A"
)

type DetailedSummary struct {
	Year        int                  `json:"year"`
	Month       int                  `json:"month"`
	DaysInMonth int                  `json:"days_in_month"`
	GeneratedAt string               `json:"generated_at"`
	Rows        []DetailedSummaryRow `json:"rows"`

	Failures []attendance.ItemFailure `json:"failures,omitempty"`
}

type DetailedSummaryRow struct {
	SerialNo         int             `json:"s_no"`
	StaffID          string          `json:"staff_id"`
	FullName         string          `json:"full_name"`
	Department       string          `json:"department"`
	TotalWorkingDays int             `json:"total_working_days"`
	PresentDays      decimal.Decimal `json:"present_days"`
	AbsentDays       decimal.Decimal `json:"absent_days"`
	TotalOTHours     decimal.Decimal `json:"total_ot_hours"`
	SundayOTHours    decimal.Decimal `json:"sunday_ot_hours"`

	// Days[i] holds the status code of day i+1.
	Days []string `json:"days"`
}
