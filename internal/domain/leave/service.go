package leave

import "context"

// LeaveService expands a leave request into per-day attendance records.
type LeaveService interface {
	// RecordLeave upserts one leave record per date in the requested range.
	// A *attendance.PartialProcessingError is returned with the result when some dates failed.
	RecordLeave(ctx context.Context, req RecordLeaveRequest) (RecordLeaveResult, error)
}
