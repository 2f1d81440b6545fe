package worktime

import (
	"fmt"
	"time"

	"github.com/cmlabs-hris/attendance-backend-go/internal/domain/attendance"
	"github.com/cmlabs-hris/attendance-backend-go/internal/domain/staff"
	"github.com/cmlabs-hris/attendance-backend-go/internal/pkg/utils"
)

const (
	// BreakDeductionThreshold is the raw interval a day must exceed before the break is deducted.
	BreakDeductionThreshold = 4*time.Hour + 30*time.Minute
	// HalfDayThreshold marks present days with less total time as half days.
	HalfDayThreshold = 4 * time.Hour
	// RegularDayCap caps day_hours; the excess is not regular time.
	RegularDayCap = 8 * time.Hour
)

// Input is everything needed to derive metrics for one attendance record.
type Input struct {
	Date     time.Time
	CheckIn  *time.Time
	CheckOut *time.Time
	Status   attendance.Status
	Schedule staff.ScheduleConfig
}

// InputFor builds an Input from a stored record.
func InputFor(a attendance.Attendance, schedule staff.ScheduleConfig) Input {
	return Input{
		Date:     a.Date,
		CheckIn:  a.CheckInTime,
		CheckOut: a.CheckOutTime,
		Status:   a.Status,
		Schedule: schedule,
	}
}

// Calculator derives total, regular and overtime hours for attendance records.
// It is the single place these numbers are computed; every read path calls it.
type Calculator struct {
	loc *time.Location
}

func NewCalculator(loc *time.Location) *Calculator {
	if loc == nil {
		loc = time.UTC
	}
	return &Calculator{loc: loc}
}

// Location returns the timezone used for time-of-day comparisons.
func (c *Calculator) Location() *time.Location {
	return c.loc
}

// Calculate applies the accounting rules in order. A check-out before the
// check-in is reported as attendance.ErrNegativeInterval.
func (c *Calculator) Calculate(in Input) (attendance.TimeMetrics, error) {
	zero := 0

	// Rule 1: leave days and midnight sentinels never carry real durations.
	if in.Status.IsLeave() || c.isMidnightSentinel(in) {
		return attendance.TimeMetrics{
			TotalMinutes: &zero,
			DayMinutes:   &zero,
		}, nil
	}

	var m attendance.TimeMetrics
	if in.CheckIn != nil {
		m.LateMinutes = c.lateMinutes(*in.CheckIn, in.Schedule)
	}

	// Rule 2: open or incomplete record.
	if in.CheckIn == nil || in.CheckOut == nil {
		return m, nil
	}

	// Rule 3: durations.
	raw := in.CheckOut.Sub(*in.CheckIn)
	if raw < 0 {
		return attendance.TimeMetrics{}, fmt.Errorf("%w: check-in %s, check-out %s",
			attendance.ErrNegativeInterval,
			in.CheckIn.In(c.loc).Format(time.RFC3339),
			in.CheckOut.In(c.loc).Format(time.RFC3339),
		)
	}

	total := raw
	if raw > BreakDeductionThreshold {
		total = raw - time.Duration(in.Schedule.BreakTimeMinutes)*time.Minute
		if total < 0 {
			total = 0
		}
	}
	day := total
	if day > RegularDayCap {
		day = RegularDayCap
	}

	totalMinutes := int(total / time.Minute)
	dayMinutes := int(day / time.Minute)
	m.TotalMinutes = &totalMinutes
	m.DayMinutes = &dayMinutes
	m.IsHalfDay = total > 0 && total < HalfDayThreshold
	m.EarlyDepartureMinutes = c.earlyDepartureMinutes(*in.CheckOut, in.Schedule)

	// Rule 4: step-function overtime on check-out time of day.
	m.OvertimeMinutes = c.overtimeMinutes(*in.CheckOut, in.Schedule)

	return m, nil
}

// CalculateRecord is Calculate for a stored record.
func (c *Calculator) CalculateRecord(a attendance.Attendance, schedule staff.ScheduleConfig) (attendance.TimeMetrics, error) {
	return c.Calculate(InputFor(a, schedule))
}

func (c *Calculator) isMidnightSentinel(in Input) bool {
	if in.CheckIn == nil || in.CheckOut == nil {
		return false
	}
	// Date carries the civil day in its year/month/day fields.
	midnight := utils.InLocation(in.Date, c.loc)
	return in.CheckIn.Equal(midnight) && in.CheckOut.Equal(midnight)
}

// overtimeMinutes is zero until check-out passes work end plus the threshold,
// then counts the full excess over work end. Check-in time is not considered.
func (c *Calculator) overtimeMinutes(checkOut time.Time, s staff.ScheduleConfig) int {
	if !s.OvertimeEnabled {
		return 0
	}
	tod := utils.TimeOfDay(checkOut, c.loc)
	threshold := s.WorkEndTime + time.Duration(s.OTThresholdMinutes)*time.Minute
	if tod <= threshold {
		return 0
	}
	return int((tod - s.WorkEndTime) / time.Minute)
}

func (c *Calculator) lateMinutes(checkIn time.Time, s staff.ScheduleConfig) int {
	if s.WorkStartTime <= 0 {
		return 0
	}
	tod := utils.TimeOfDay(checkIn, c.loc)
	if tod <= s.WorkStartTime {
		return 0
	}
	return int((tod - s.WorkStartTime) / time.Minute)
}

func (c *Calculator) earlyDepartureMinutes(checkOut time.Time, s staff.ScheduleConfig) int {
	if s.WorkEndTime <= 0 {
		return 0
	}
	tod := utils.TimeOfDay(checkOut, c.loc)
	if tod >= s.WorkEndTime {
		return 0
	}
	return int((s.WorkEndTime - tod) / time.Minute)
}
