package worktime

import (
	"testing"
	"time"

	"github.com/cmlabs-hris/attendance-backend-go/internal/domain/attendance"
	"github.com/cmlabs-hris/attendance-backend-go/internal/domain/staff"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

var sgt = func() *time.Location {
	loc, err := time.LoadLocation("Asia/Singapore")
	if err != nil {
		panic(err)
	}
	return loc
}()

var workDay = time.Date(2024, 3, 4, 0, 0, 0, 0, sgt)

func at(h, m int) *time.Time {
	t := time.Date(2024, 3, 4, h, m, 0, 0, sgt)
	return &t
}

func schedule() staff.ScheduleConfig {
	s := staff.DefaultScheduleConfig()
	s.OvertimeEnabled = true
	return s
}

func calc(t *testing.T, in Input) attendance.TimeMetrics {
	t.Helper()
	if in.Date.IsZero() {
		in.Date = workDay
	}
	if in.Status == "" {
		in.Status = attendance.StatusPresent
	}
	m, err := NewCalculator(sgt).Calculate(in)
	require.NoError(t, err)
	return m
}

func hours(t *testing.T, s *string) string {
	t.Helper()
	require.NotNil(t, s)
	return *s
}

func TestCalculate_LeaveStatusIsAllZero(t *testing.T) {
	for _, status := range attendance.LeaveStatuses {
		t.Run(string(status), func(t *testing.T) {
			m := calc(t, Input{
				CheckIn:  at(0, 0),
				CheckOut: at(0, 0),
				Status:   status,
				Schedule: schedule(),
			})
			assert.Equal(t, "00:00", hours(t, m.TotalHours()))
			assert.Equal(t, "00:00", hours(t, m.DayHours()))
			assert.Equal(t, "00:00", m.OvertimeHours())
			assert.False(t, m.IsHalfDay)
		})
	}
}

func TestCalculate_LeaveStatusIgnoresRealTimes(t *testing.T) {
	m := calc(t, Input{
		CheckIn:  at(9, 0),
		CheckOut: at(20, 0),
		Status:   attendance.StatusMedicalLeave,
		Schedule: schedule(),
	})
	assert.Equal(t, "00:00", hours(t, m.TotalHours()))
	assert.Equal(t, "00:00", m.OvertimeHours())
}

func TestCalculate_MidnightSentinelOnPresent(t *testing.T) {
	m := calc(t, Input{CheckIn: at(0, 0), CheckOut: at(0, 0), Schedule: schedule()})
	assert.Equal(t, "00:00", hours(t, m.TotalHours()))
	assert.Equal(t, "00:00", hours(t, m.DayHours()))
	assert.False(t, m.IsHalfDay)
}

func TestCalculate_OpenRecord(t *testing.T) {
	m := calc(t, Input{CheckIn: at(9, 30), Schedule: schedule()})
	assert.Nil(t, m.TotalHours())
	assert.Nil(t, m.DayHours())
	assert.Equal(t, "00:00", m.OvertimeHours())
	assert.False(t, m.IsHalfDay)
	assert.Equal(t, 15, m.LateMinutes)

	m = calc(t, Input{CheckOut: at(18, 0), Schedule: schedule()})
	assert.Nil(t, m.TotalHours())
	assert.Equal(t, "00:00", m.OvertimeHours())
}

func TestCalculate_FullDayWithOvertime(t *testing.T) {
	// raw 9h20m minus 30m break = 8h50m; regular time capped at 8h.
	// 18:20 is past 17:45 + 30m, so overtime counts from 17:45.
	m := calc(t, Input{CheckIn: at(9, 0), CheckOut: at(18, 20), Schedule: schedule()})
	assert.Equal(t, "08:50", hours(t, m.TotalHours()))
	assert.Equal(t, "08:00", hours(t, m.DayHours()))
	assert.Equal(t, "00:35", m.OvertimeHours())
	assert.False(t, m.IsHalfDay)
	assert.Equal(t, "0.58", m.OvertimeDecimal().String())
}

func TestCalculate_ShortDayIsHalfDayWithoutBreak(t *testing.T) {
	m := calc(t, Input{CheckIn: at(9, 0), CheckOut: at(12, 30), Schedule: schedule()})
	assert.Equal(t, "03:30", hours(t, m.TotalHours()))
	assert.Equal(t, "03:30", hours(t, m.DayHours()))
	assert.True(t, m.IsHalfDay)
	assert.Equal(t, "00:00", m.OvertimeHours())
}

func TestCalculate_BreakThresholdBoundaries(t *testing.T) {
	cases := []struct {
		name    string
		out     *time.Time
		total   string
		halfDay bool
	}{
		{"just under half-day threshold", at(12, 59), "03:59", true},
		{"exactly four hours", at(13, 0), "04:00", false},
		{"band between half-day and break", at(13, 15), "04:15", false},
		{"exactly break threshold keeps full duration", at(13, 30), "04:30", false},
		{"one minute over break threshold", at(13, 31), "04:01", false},
	}
	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			m := calc(t, Input{CheckIn: at(9, 0), CheckOut: tc.out, Schedule: schedule()})
			assert.Equal(t, tc.total, hours(t, m.TotalHours()))
			assert.Equal(t, tc.halfDay, m.IsHalfDay)
		})
	}
}

func TestCalculate_OvertimeThresholdBoundary(t *testing.T) {
	m := calc(t, Input{CheckIn: at(9, 0), CheckOut: at(18, 15), Schedule: schedule()})
	assert.Equal(t, "00:00", m.OvertimeHours(), "exactly at work end + threshold")

	m = calc(t, Input{CheckIn: at(9, 0), CheckOut: at(18, 16), Schedule: schedule()})
	assert.Equal(t, "00:31", m.OvertimeHours(), "full excess from work end once crossed")
}

func TestCalculate_OvertimeMonotonicPastThreshold(t *testing.T) {
	prev := -1
	for minute := 18*60 + 16; minute < 24*60; minute += 7 {
		out := at(minute/60, minute%60)
		m := calc(t, Input{CheckIn: at(9, 0), CheckOut: out, Schedule: schedule()})
		assert.GreaterOrEqual(t, m.OvertimeMinutes, prev)
		prev = m.OvertimeMinutes
	}
}

func TestCalculate_OvertimeDisabled(t *testing.T) {
	s := schedule()
	s.OvertimeEnabled = false
	m := calc(t, Input{CheckIn: at(9, 0), CheckOut: at(21, 0), Schedule: s})
	assert.Equal(t, "00:00", m.OvertimeHours())
	assert.False(t, m.HasOvertime())
}

func TestCalculate_OvertimeIgnoresCheckInTime(t *testing.T) {
	m := calc(t, Input{CheckIn: at(14, 0), CheckOut: at(18, 30), Schedule: schedule()})
	assert.Equal(t, "00:45", m.OvertimeHours())
	assert.Equal(t, 285, m.LateMinutes)
}

func TestCalculate_EarlyDeparture(t *testing.T) {
	m := calc(t, Input{CheckIn: at(9, 0), CheckOut: at(17, 0), Schedule: schedule()})
	assert.Equal(t, 45, m.EarlyDepartureMinutes)
	assert.Equal(t, 0, m.LateMinutes)
}

func TestCalculate_NegativeIntervalRejected(t *testing.T) {
	_, err := NewCalculator(sgt).Calculate(Input{
		Date:     workDay,
		CheckIn:  at(18, 0),
		CheckOut: at(9, 0),
		Status:   attendance.StatusPresent,
		Schedule: schedule(),
	})
	require.Error(t, err)
	assert.ErrorIs(t, err, attendance.ErrNegativeInterval)
	assert.Contains(t, err.Error(), "2024-03-04T18:00:00+08:00")
}

func TestCalculate_DayHoursBounded(t *testing.T) {
	for minutes := 1; minutes <= 16*60; minutes += 13 {
		out := workDay.Add(6*time.Hour + time.Duration(minutes)*time.Minute)
		m := calc(t, Input{CheckIn: at(6, 0), CheckOut: &out, Schedule: schedule()})
		require.NotNil(t, m.DayMinutes)
		require.NotNil(t, m.TotalMinutes)
		assert.GreaterOrEqual(t, *m.DayMinutes, 0)
		assert.LessOrEqual(t, *m.DayMinutes, 480)
		assert.LessOrEqual(t, *m.DayMinutes, *m.TotalMinutes)
	}
}

func TestCalculate_Deterministic(t *testing.T) {
	in := Input{Date: workDay, CheckIn: at(8, 47), CheckOut: at(19, 3), Status: attendance.StatusPresent, Schedule: schedule()}
	c := NewCalculator(sgt)
	first, err := c.Calculate(in)
	require.NoError(t, err)
	for i := 0; i < 5; i++ {
		again, err := c.Calculate(in)
		require.NoError(t, err)
		assert.Equal(t, first, again)
	}
}

func TestCalculate_UsesConfiguredTimezone(t *testing.T) {
	// 10:20 UTC is 18:20 in Singapore.
	in := time.Date(2024, 3, 4, 1, 0, 0, 0, time.UTC)
	out := time.Date(2024, 3, 4, 10, 20, 0, 0, time.UTC)
	m := calc(t, Input{CheckIn: &in, CheckOut: &out, Schedule: schedule()})
	assert.Equal(t, "00:35", m.OvertimeHours())
}
