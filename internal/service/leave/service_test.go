package leave

import (
	"context"
	"errors"
	"io"
	"log/slog"
	"testing"
	"time"

	"github.com/cmlabs-hris/attendance-backend-go/internal/domain/attendance"
	"github.com/cmlabs-hris/attendance-backend-go/internal/domain/leave"
	"github.com/cmlabs-hris/attendance-backend-go/internal/domain/settings"
	"github.com/cmlabs-hris/attendance-backend-go/internal/domain/staff"
	"github.com/cmlabs-hris/attendance-backend-go/internal/pkg/utils"
	"github.com/cmlabs-hris/attendance-backend-go/internal/pkg/validator"
	"github.com/cmlabs-hris/attendance-backend-go/internal/repository/memory"
	"github.com/cmlabs-hris/attendance-backend-go/internal/service/worktime"
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

func newService(t *testing.T, store *memory.Store) leave.LeaveService {
	t.Helper()
	store.AddStaff(staff.Staff{ID: "EMP001", FullName: "Alice Tan", IsActive: true, Schedule: staff.DefaultScheduleConfig()})
	store.AddStaff(staff.Staff{ID: "EMP009", FullName: "Former Staff", IsActive: false, Schedule: staff.DefaultScheduleConfig()})

	return NewLeaveService(
		store.Transactor(),
		store.Attendance(),
		store.Staff(),
		store.Settings(),
		worktime.NewCalculator(sgt),
		Options{
			Workers: 3,
			Now:     func() time.Time { return time.Date(2024, 3, 4, 10, 0, 0, 0, sgt) },
			Logger:  slog.New(slog.NewTextHandler(io.Discard, nil)),
		},
	)
}

func request(start, end string, overwrite bool) leave.RecordLeaveRequest {
	return leave.RecordLeaveRequest{
		StaffID:        "EMP001",
		LeaveType:      string(attendance.StatusMedicalLeave),
		LeaveStartDate: start,
		LeaveEndDate:   end,
		Overwrite:      overwrite,
	}
}

func TestRecordLeave_CreatesThenSkips(t *testing.T) {
	store := memory.NewStore()
	svc := newService(t, store)
	ctx := context.Background()

	result, err := svc.RecordLeave(ctx, request("2024-03-11", "2024-03-13", false))
	require.NoError(t, err)
	assert.Equal(t, 3, result.TotalDays)
	assert.Equal(t, 3, result.Created)
	assert.Zero(t, result.Updated)
	assert.Zero(t, result.Skipped)
	assert.Zero(t, result.Errored)
	assert.NotEmpty(t, result.RequestID)

	require.Len(t, result.Records, 3)
	for i, r := range result.Records {
		date := []string{"2024-03-11", "2024-03-12", "2024-03-13"}[i]
		assert.Equal(t, date, r.Date)
		assert.Equal(t, date+" 00:00:00", *r.CheckInTime)
		assert.Equal(t, date+" 00:00:00", *r.CheckOutTime)
		assert.Equal(t, attendance.StatusMedicalLeave, r.Status)
		assert.Equal(t, "00:00", *r.TotalHours)
		assert.Equal(t, "00:00", r.OvertimeHours)
	}

	result, err = svc.RecordLeave(ctx, request("2024-03-11", "2024-03-13", false))
	require.NoError(t, err)
	assert.Zero(t, result.Created)
	assert.Equal(t, 3, result.Skipped)
	assert.Empty(t, result.Records)
	for _, sd := range result.SkippedDates {
		assert.Equal(t, leave.SkipReasonLeaveExists, sd.Reason)
	}
	assert.Len(t, store.Attendances(), 3)
}

func TestRecordLeave_OverwriteSupersedesPresent(t *testing.T) {
	store := memory.NewStore()
	svc := newService(t, store)
	in := time.Date(2024, 3, 12, 9, 0, 0, 0, sgt)
	out := time.Date(2024, 3, 12, 18, 0, 0, 0, sgt)
	store.PutAttendance(attendance.Attendance{
		StaffID:      "EMP001",
		Date:         time.Date(2024, 3, 12, 0, 0, 0, 0, sgt),
		CheckInTime:  &in,
		CheckOutTime: &out,
		Status:       attendance.StatusPresent,
		WorkFromHome: true,
	})

	result, err := svc.RecordLeave(context.Background(), request("2024-03-11", "2024-03-13", false))
	require.NoError(t, err)
	assert.Equal(t, 2, result.Created)
	require.Len(t, result.SkippedDates, 1)
	assert.Equal(t, leave.SkippedDate{Date: "2024-03-12", Reason: leave.SkipReasonAttendanceExists}, result.SkippedDates[0])

	req := request("2024-03-12", "2024-03-12", true)
	req.LeaveType = string(attendance.StatusCasualLeave)
	result, err = svc.RecordLeave(context.Background(), req)
	require.NoError(t, err)
	assert.Equal(t, 1, result.Updated)

	var overwritten attendance.Attendance
	for _, a := range store.Attendances() {
		if utils.DateKey(a.Date) == "2024-03-12" {
			overwritten = a
		}
	}
	assert.Equal(t, attendance.StatusCasualLeave, overwritten.Status)
	assert.False(t, overwritten.WorkFromHome)
	assert.True(t, overwritten.CheckInTime.Equal(time.Date(2024, 3, 12, 0, 0, 0, 0, sgt)))
	assert.True(t, overwritten.CheckOutTime.Equal(*overwritten.CheckInTime))
}

func TestRecordLeave_Window(t *testing.T) {
	store := memory.NewStore()
	svc := newService(t, store)
	ctx := context.Background()

	// Defaults: six months either side of 2024-03-04.
	_, err := svc.RecordLeave(ctx, request("2023-09-04", "2023-09-04", false))
	assert.NoError(t, err)

	_, err = svc.RecordLeave(ctx, request("2024-09-04", "2024-09-05", false))
	var verrs validator.ValidationErrors
	require.ErrorAs(t, err, &verrs)
	assert.Contains(t, verrs.ToMap(), "leave_end_date")
	assert.NotContains(t, verrs.ToMap(), "leave_start_date")

	store.SetSetting(settings.KeyLeaveMaxPastMonths, "1")
	_, err = svc.RecordLeave(ctx, request("2024-02-03", "2024-02-05", false))
	require.ErrorAs(t, err, &verrs)
	assert.Contains(t, verrs.ToMap()["leave_start_date"], "2024-02-04 to 2024-09-04")
}

func TestRecordLeave_Validation(t *testing.T) {
	svc := newService(t, memory.NewStore())

	req := request("2024-03-13", "2024-03-11", false)
	req.LeaveType = "sabbatical"
	_, err := svc.RecordLeave(context.Background(), req)

	var verrs validator.ValidationErrors
	require.ErrorAs(t, err, &verrs)
	assert.Contains(t, verrs.ToMap(), "leave_type")
	assert.Contains(t, verrs.ToMap(), "leave_end_date")
}

func TestRecordLeave_UnknownOrInactiveStaff(t *testing.T) {
	svc := newService(t, memory.NewStore())

	req := request("2024-03-11", "2024-03-11", false)
	req.StaffID = "EMP404"
	_, err := svc.RecordLeave(context.Background(), req)
	assert.ErrorIs(t, err, staff.ErrStaffNotFound)

	req.StaffID = "EMP009"
	_, err = svc.RecordLeave(context.Background(), req)
	assert.ErrorIs(t, err, staff.ErrStaffNotFound)
}

func TestRecordLeave_PartialFailure(t *testing.T) {
	store := memory.NewStore()
	svc := newService(t, store)
	store.FailWrite = func(staffID string, date time.Time) error {
		switch utils.DateKey(date) {
		case "2024-03-12":
			return errors.New("disk full")
		case "2024-03-14":
			panic("corrupt row")
		}
		return nil
	}

	result, err := svc.RecordLeave(context.Background(), request("2024-03-11", "2024-03-15", false))

	var partial *attendance.PartialProcessingError
	require.ErrorAs(t, err, &partial)
	assert.Len(t, partial.Failures, 2)

	assert.Equal(t, 5, result.TotalDays)
	assert.Equal(t, 3, result.Created)
	assert.Equal(t, 2, result.Errored)
	require.Len(t, result.Failures, 2)
	assert.Equal(t, "2024-03-12", result.Failures[0].Key)
	assert.Contains(t, result.Failures[0].Reason, "disk full")
	assert.Equal(t, "2024-03-14", result.Failures[1].Key)
	assert.Contains(t, result.Failures[1].Reason, "panic")
	assert.Len(t, store.Attendances(), 3)
}

func TestRecordLeave_PanicOnOneDateIsCountedAsErrored(t *testing.T) {
	store := memory.NewStore()
	svc := newService(t, store)
	store.FailWrite = func(staffID string, date time.Time) error {
		if utils.DateKey(date) == "2024-03-12" {
			panic("corrupt row")
		}
		return nil
	}

	result, err := svc.RecordLeave(context.Background(), request("2024-03-11", "2024-03-13", false))

	var partial *attendance.PartialProcessingError
	require.ErrorAs(t, err, &partial)
	assert.Equal(t, 2, result.Created)
	assert.Equal(t, 1, result.Errored)
	require.Len(t, result.Failures, 1)
	assert.Equal(t, "2024-03-12", result.Failures[0].Key)
	require.Len(t, result.Records, 2)
	assert.Equal(t, "2024-03-11", result.Records[0].Date)
	assert.Equal(t, "2024-03-13", result.Records[1].Date)
}

func TestRecordLeave_LongRangeIsOrdered(t *testing.T) {
	store := memory.NewStore()
	svc := newService(t, store)

	result, err := svc.RecordLeave(context.Background(), request("2024-02-20", "2024-03-10", false))
	require.NoError(t, err)
	assert.Equal(t, 20, result.Created)
	for i := 1; i < len(result.Records); i++ {
		assert.Less(t, result.Records[i-1].Date, result.Records[i].Date)
	}
}
