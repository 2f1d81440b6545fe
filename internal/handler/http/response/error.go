package response

import (
	"errors"
	"log/slog"
	"net/http"

	"github.com/cmlabs-hris/attendance-backend-go/internal/domain/attendance"
	"github.com/cmlabs-hris/attendance-backend-go/internal/domain/calendar"
	"github.com/cmlabs-hris/attendance-backend-go/internal/domain/staff"
	"github.com/cmlabs-hris/attendance-backend-go/internal/pkg/validator"
)

// HandleError maps domain errors to HTTP responses
func HandleError(w http.ResponseWriter, err error) {
	// Check if it's a validation error
	var validationErrs validator.ValidationErrors
	if errors.As(err, &validationErrs) {
		ValidationError(w, validationErrs.ToMap())
		return
	}

	switch {
	// Attendance domain errors
	case errors.Is(err, attendance.ErrCheckInExists):
		Conflict(w, err.Error())
	case errors.Is(err, attendance.ErrCheckOutExists):
		Conflict(w, err.Error())
	case errors.Is(err, attendance.ErrCheckInNotFound):
		NotFound(w, err.Error())

	// Staff domain errors
	case errors.Is(err, staff.ErrStaffNotFound):
		NotFound(w, err.Error())

	// Calendar domain errors
	case errors.Is(err, calendar.ErrCalendarNotConfigured):
		ServiceUnavailable(w, "CALENDAR_NOT_CONFIGURED", err.Error())

	// Default
	default:
		slog.Error("Unhandled error", "error", err)
		InternalServerError(w, "An unexpected error occurred")
	}
}

// Partial reports whether err only signals skipped items of a bulk operation,
// in which case the result is still delivered.
func Partial(err error) bool {
	var partial *attendance.PartialProcessingError
	return errors.As(err, &partial)
}
