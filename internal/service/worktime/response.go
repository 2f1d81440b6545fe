package worktime

import (
	"time"

	"github.com/cmlabs-hris/attendance-backend-go/internal/domain/attendance"
	"github.com/cmlabs-hris/attendance-backend-go/internal/domain/staff"
	"github.com/cmlabs-hris/attendance-backend-go/internal/pkg/utils"
)

// timePtrToString safely converts a *time.Time to a string in loc.
func timePtrToString(t *time.Time, loc *time.Location) *string {
	if t == nil {
		return nil
	}
	format := t.In(loc).Format("2006-01-02 15:04:05")
	return &format
}

// ToResponse renders a record with its derived metrics. When the metrics
// cannot be derived the response is still returned, without them, next to the error.
func (c *Calculator) ToResponse(a attendance.Attendance, schedule staff.ScheduleConfig) (attendance.AttendanceResponse, error) {
	resp := attendance.AttendanceResponse{
		ID:                      a.ID,
		StaffID:                 a.StaffID,
		StaffName:               a.StaffName,
		Department:              a.Department,
		Date:                    utils.DateKey(a.Date),
		CheckInTime:             timePtrToString(a.CheckInTime, c.loc),
		CheckOutTime:            timePtrToString(a.CheckOutTime, c.loc),
		Status:                  a.Status,
		AttendanceNotes:         a.AttendanceNotes,
		WorkFromHome:            a.WorkFromHome,
		CheckInConfidenceScore:  a.CheckInConfidenceScore,
		CheckOutConfidenceScore: a.CheckOutConfidenceScore,
		OvertimeHours:           utils.FormatHHMM(0),
	}

	m, err := c.CalculateRecord(a, schedule)
	if err != nil {
		return resp, err
	}
	resp.TotalHours = m.TotalHours()
	resp.DayHours = m.DayHours()
	resp.OvertimeHours = m.OvertimeHours()
	resp.IsHalfDay = m.IsHalfDay
	resp.LateMinutes = m.LateMinutes
	resp.EarlyDepartureMinutes = m.EarlyDepartureMinutes
	return resp, nil
}
