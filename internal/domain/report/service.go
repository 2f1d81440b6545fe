package report

import (
	"context"

	"github.com/cmlabs-hris/attendance-backend-go/internal/domain/attendance"
	"github.com/cmlabs-hris/attendance-backend-go/internal/pkg/export"
)

// ReportService builds calendar-based attendance aggregations.
type ReportService interface {
	// MonthSummary aggregates each calendar day across active staff.
	MonthSummary(ctx context.Context, req MonthRequest) (MonthSummary, error)

	// DetailedSummary builds the staff-by-day status matrix.
	DetailedSummary(ctx context.Context, req MonthRequest) (DetailedSummary, error)

	// ExportDetailedSummary encodes the detailed summary matrix.
	ExportDetailedSummary(ctx context.Context, req MonthRequest, format attendance.ExportFormat) (export.File, error)
}
