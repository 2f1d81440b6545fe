package attendance

import (
	"errors"
	"fmt"
	"strings"
)

// Attendance domain errors
var (
	// Check-in errors
	ErrCheckInExists = errors.New("attendance already recorded for this date")

	// Check-out errors
	ErrCheckInNotFound = errors.New("no check-in found for this date")
	ErrCheckOutExists  = errors.New("check-out already recorded for this date")

	// Data errors
	ErrNegativeInterval = errors.New("check-out time is before check-in time")
)

// ItemFailure describes one item a bulk operation could not process.
type ItemFailure struct {
	Key    string `json:"key"`
	Reason string `json:"reason"`
}

// PartialProcessingError is returned alongside a populated result when some
// items of a bulk operation failed and the rest were processed.
type PartialProcessingError struct {
	Operation string
	Failures  []ItemFailure
}

func (e *PartialProcessingError) Error() string {
	keys := make([]string, 0, len(e.Failures))
	for _, f := range e.Failures {
		keys = append(keys, f.Key)
	}
	return fmt.Sprintf("%s: %d item(s) failed: %s", e.Operation, len(e.Failures), strings.Join(keys, ", "))
}
