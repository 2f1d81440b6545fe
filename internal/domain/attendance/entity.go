package attendance

import (
	"strings"
	"time"
)

type Status string

const (
	StatusPresent           Status = "present"
	StatusCasualLeave       Status = "casual_leave"
	StatusMedicalLeave      Status = "medical_leave"
	StatusUnpaidLeave       Status = "unpaid_leave"
	StatusHospitalisedLeave Status = "hospitalised_leave"
)

// LeaveStatuses is the leave set.
var LeaveStatuses = []Status{
	StatusCasualLeave,
	StatusMedicalLeave,
	StatusUnpaidLeave,
	StatusHospitalisedLeave,
}

// IsLeave reports whether s belongs to the leave set.
func (s Status) IsLeave() bool {
	for _, l := range LeaveStatuses {
		if s == l {
			return true
		}
	}
	return false
}

func (s Status) IsValid() bool {
	return s == StatusPresent || s.IsLeave()
}

// Code returns the matrix code for a leave status: word initials, e.g. casual_leave -> CL.
// Older exports used the first two letters of the status (CA, ME, UN, HO); those codes are not produced.
func (s Status) Code() string {
	var b strings.Builder
	for _, part := range strings.Split(string(s), "_") {
		if part != "" {
			b.WriteString(strings.ToUpper(part[:1]))
		}
	}
	return b.String()
}

// Attendance is one row per (staff, calendar date).
// Leave rows carry check-in and check-out at midnight of Date.
type Attendance struct {
	ID                      int64
	StaffID                 string
	Date                    time.Time
	CheckInTime             *time.Time
	CheckOutTime            *time.Time
	Status                  Status
	AttendanceNotes         *string
	WorkFromHome            bool
	CheckInFaceImagePath    *string
	CheckOutFaceImagePath   *string
	CheckInConfidenceScore  *float64
	CheckOutConfidenceScore *float64
	CreatedAt               time.Time
	UpdatedAt               time.Time

	// DTO
	StaffName  *string
	Department *string
}

// Clone returns a copy that shares no pointers with a.
func (a Attendance) Clone() Attendance {
	c := a
	c.CheckInTime = clonePtr(a.CheckInTime)
	c.CheckOutTime = clonePtr(a.CheckOutTime)
	c.AttendanceNotes = clonePtr(a.AttendanceNotes)
	c.CheckInFaceImagePath = clonePtr(a.CheckInFaceImagePath)
	c.CheckOutFaceImagePath = clonePtr(a.CheckOutFaceImagePath)
	c.CheckInConfidenceScore = clonePtr(a.CheckInConfidenceScore)
	c.CheckOutConfidenceScore = clonePtr(a.CheckOutConfidenceScore)
	c.StaffName = clonePtr(a.StaffName)
	c.Department = clonePtr(a.Department)
	return c
}

func clonePtr[T any](p *T) *T {
	if p == nil {
		return nil
	}
	v := *p
	return &v
}

// DayState is the per-day position in the check-in/check-out lifecycle.
type DayState int

const (
	StateNone DayState = iota
	StateCheckedIn
	StateCheckedInAndOut
)

func (s DayState) String() string {
	switch s {
	case StateCheckedIn:
		return "CHECKED_IN"
	case StateCheckedInAndOut:
		return "CHECKED_IN_AND_OUT"
	default:
		return "NONE"
	}
}

// StateOf derives the day state from an optional record.
func StateOf(a *Attendance) DayState {
	switch {
	case a == nil || a.CheckInTime == nil:
		return StateNone
	case a.CheckOutTime == nil:
		return StateCheckedIn
	default:
		return StateCheckedInAndOut
	}
}
