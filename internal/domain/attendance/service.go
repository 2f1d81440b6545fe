package attendance

import (
	"context"

	"github.com/cmlabs-hris/attendance-backend-go/internal/pkg/export"
)

// AttendanceService defines business logic for attendance operations
type AttendanceService interface {
	// FaceEvent applies an automatic face-recognition sighting to today's record
	FaceEvent(ctx context.Context, req FaceEventRequest) (FaceEventResult, error)

	// CheckIn records a manual check-in (admin path)
	CheckIn(ctx context.Context, req CheckInRequest) (AttendanceResponse, error)

	// CheckOut records a manual check-out (admin path)
	CheckOut(ctx context.Context, req CheckOutRequest) (AttendanceResponse, error)

	// ListAttendance returns records with derived time metrics
	ListAttendance(ctx context.Context, filter AttendanceFilter) (ListAttendanceResponse, error)

	// ExportAttendance encodes the ListAttendance rows as CSV or XLSX
	ExportAttendance(ctx context.Context, filter AttendanceFilter, format ExportFormat) (export.File, error)
}
