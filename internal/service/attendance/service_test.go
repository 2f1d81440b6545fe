package attendance

import (
	"context"
	"io"
	"log/slog"
	"strings"
	"sync"
	"testing"
	"time"

	"github.com/cmlabs-hris/attendance-backend-go/internal/domain/attendance"
	"github.com/cmlabs-hris/attendance-backend-go/internal/domain/staff"
	"github.com/cmlabs-hris/attendance-backend-go/internal/pkg/sse"
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

type clock struct {
	mu  sync.Mutex
	now time.Time
}

func (c *clock) Now() time.Time {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.now
}

func (c *clock) Advance(d time.Duration) {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.now = c.now.Add(d)
}

type fixture struct {
	store *memory.Store
	clock *clock
	hub   *sse.Hub
	svc   attendance.AttendanceService
}

func newFixture(t *testing.T) *fixture {
	t.Helper()
	store := memory.NewStore()
	dept := "Engineering"
	sched := staff.DefaultScheduleConfig()
	sched.OvertimeEnabled = true
	store.AddStaff(staff.Staff{ID: "EMP001", FullName: "Alice Tan", Department: &dept, IsActive: true, Schedule: sched})
	store.AddStaff(staff.Staff{ID: "EMP002", FullName: "Bob Lim", IsActive: false, Schedule: sched})

	c := &clock{now: time.Date(2024, 3, 4, 9, 0, 0, 0, sgt)}
	hub := sse.NewHub()
	svc := NewAttendanceService(
		store.Transactor(),
		store.Attendance(),
		store.Staff(),
		worktime.NewCalculator(sgt),
		Options{
			MinCheckoutInterval: 5 * time.Minute,
			ManualBackdateDays:  60,
			Now:                 c.Now,
			Logger:              slog.New(slog.NewTextHandler(io.Discard, nil)),
			Events:              hub,
		},
	)
	return &fixture{store: store, clock: c, hub: hub, svc: svc}
}

func strPtr(s string) *string { return &s }

func sgtTime(month time.Month, day, h, m int) time.Time {
	return time.Date(2024, month, day, h, m, 0, 0, sgt)
}

// ===== FACE EVENT =====

func TestFaceEvent_FirstSightingChecksIn(t *testing.T) {
	f := newFixture(t)
	score := 97.5

	res, err := f.svc.FaceEvent(context.Background(), attendance.FaceEventRequest{
		StaffID:         "EMP001",
		ConfidenceScore: &score,
		FaceImagePath:   strPtr("captures/EMP001/in.jpg"),
	})
	require.NoError(t, err)
	assert.Equal(t, attendance.ActionCheckedIn, res.Action)
	assert.Equal(t, "2024-03-04", res.Attendance.Date)
	assert.Equal(t, attendance.StatusPresent, res.Attendance.Status)
	require.NotNil(t, res.Attendance.StaffName)
	assert.Equal(t, "Alice Tan", *res.Attendance.StaffName)

	stored := f.store.Attendances()
	require.Len(t, stored, 1)
	assert.Equal(t, &score, stored[0].CheckInConfidenceScore)
	assert.Nil(t, stored[0].CheckOutTime)
}

func TestFaceEvent_WithinMinimumIntervalIsIgnored(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()

	_, err := f.svc.FaceEvent(ctx, attendance.FaceEventRequest{StaffID: "EMP001"})
	require.NoError(t, err)
	before := f.store.Attendances()

	for _, step := range []time.Duration{time.Minute, 3*time.Minute + 59*time.Second} {
		f.clock.Advance(step)
		res, err := f.svc.FaceEvent(ctx, attendance.FaceEventRequest{StaffID: "EMP001"})
		require.NoError(t, err)
		assert.Equal(t, attendance.ActionIgnored, res.Action)
		assert.Equal(t, attendance.ReasonMinIntervalNotElapsed, res.Reason)
	}

	assert.Equal(t, before, f.store.Attendances())
}

func TestFaceEvent_PublishesRecordedActions(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()
	events, cleanup := f.hub.Subscribe("EMP001")
	defer cleanup()

	_, err := f.svc.FaceEvent(ctx, attendance.FaceEventRequest{StaffID: "EMP001"})
	require.NoError(t, err)
	f.clock.Advance(time.Minute)
	_, err = f.svc.FaceEvent(ctx, attendance.FaceEventRequest{StaffID: "EMP001"})
	require.NoError(t, err)
	f.clock.Advance(time.Hour)
	_, err = f.svc.FaceEvent(ctx, attendance.FaceEventRequest{StaffID: "EMP001"})
	require.NoError(t, err)

	// The ignored sighting in between is not published.
	require.Len(t, events, 2)
	first := <-events
	assert.Equal(t, string(attendance.ActionCheckedIn), first.Name)
	assert.Equal(t, "EMP001", first.Topic)
	second := <-events
	assert.Equal(t, string(attendance.ActionCheckedOut), second.Name)
	record, ok := second.Data.(attendance.AttendanceResponse)
	require.True(t, ok)
	assert.NotNil(t, record.CheckOutTime)
}

func TestFaceEvent_CheckOutThenAdvance(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()

	_, err := f.svc.FaceEvent(ctx, attendance.FaceEventRequest{StaffID: "EMP001"})
	require.NoError(t, err)

	f.clock.Advance(5 * time.Minute)
	res, err := f.svc.FaceEvent(ctx, attendance.FaceEventRequest{StaffID: "EMP001"})
	require.NoError(t, err)
	assert.Equal(t, attendance.ActionCheckedOut, res.Action)
	require.NotNil(t, res.Attendance.CheckOutTime)
	assert.Equal(t, "2024-03-04 09:05:00", *res.Attendance.CheckOutTime)

	// No guard once checked out: the latest sighting wins.
	f.clock.Advance(time.Minute)
	res, err = f.svc.FaceEvent(ctx, attendance.FaceEventRequest{StaffID: "EMP001"})
	require.NoError(t, err)
	assert.Equal(t, attendance.ActionCheckedOutUpdated, res.Action)
	assert.Equal(t, "2024-03-04 09:06:00", *res.Attendance.CheckOutTime)

	assert.Len(t, f.store.Attendances(), 1)
}

func TestFaceEvent_LeaveDayIsIgnored(t *testing.T) {
	f := newFixture(t)
	midnight := sgtTime(time.March, 4, 0, 0)
	f.store.PutAttendance(attendance.Attendance{
		StaffID:      "EMP001",
		Date:         midnight,
		CheckInTime:  &midnight,
		CheckOutTime: &midnight,
		Status:       attendance.StatusMedicalLeave,
	})
	before := f.store.Attendances()

	res, err := f.svc.FaceEvent(context.Background(), attendance.FaceEventRequest{StaffID: "EMP001"})
	require.NoError(t, err)
	assert.Equal(t, attendance.ActionIgnored, res.Action)
	assert.Equal(t, attendance.ReasonLeaveRecorded, res.Reason)
	assert.Equal(t, before, f.store.Attendances())
}

func TestFaceEvent_UnknownOrInactiveStaff(t *testing.T) {
	f := newFixture(t)

	_, err := f.svc.FaceEvent(context.Background(), attendance.FaceEventRequest{StaffID: "NOPE"})
	assert.ErrorIs(t, err, staff.ErrStaffNotFound)

	_, err = f.svc.FaceEvent(context.Background(), attendance.FaceEventRequest{StaffID: "EMP002"})
	assert.ErrorIs(t, err, staff.ErrStaffNotFound)
}

func TestFaceEvent_Validation(t *testing.T) {
	f := newFixture(t)
	bad := 140.0

	_, err := f.svc.FaceEvent(context.Background(), attendance.FaceEventRequest{StaffID: " ", ConfidenceScore: &bad})
	var verrs validator.ValidationErrors
	require.ErrorAs(t, err, &verrs)
	assert.Contains(t, verrs.ToMap(), "staff_id")
	assert.Contains(t, verrs.ToMap(), "confidence_score")
}

func TestFaceEvent_ConcurrentSightingsCreateOneRecord(t *testing.T) {
	f := newFixture(t)

	const n = 12
	actions := make([]attendance.FaceEventAction, n)
	var wg sync.WaitGroup
	for i := 0; i < n; i++ {
		wg.Add(1)
		go func(i int) {
			defer wg.Done()
			res, err := f.svc.FaceEvent(context.Background(), attendance.FaceEventRequest{StaffID: "EMP001"})
			assert.NoError(t, err)
			actions[i] = res.Action
		}(i)
	}
	wg.Wait()

	assert.Len(t, f.store.Attendances(), 1)
	checkedIn := 0
	for _, a := range actions {
		if a == attendance.ActionCheckedIn {
			checkedIn++
		} else {
			assert.Equal(t, attendance.ActionIgnored, a)
		}
	}
	assert.Equal(t, 1, checkedIn)
}

// ===== MANUAL CHECK-IN =====

func TestCheckIn_CreatesPresentRecordWithNotes(t *testing.T) {
	f := newFixture(t)

	resp, err := f.svc.CheckIn(context.Background(), attendance.CheckInRequest{
		StaffID:         "EMP001",
		CustomDateTime:  strPtr("2024-03-01T08:55"),
		AttendanceNotes: strPtr("badge reader offline"),
		ManualReason:    strPtr("work_from_home"),
	})
	require.NoError(t, err)
	assert.Equal(t, "2024-03-01", resp.Date)
	assert.Equal(t, "2024-03-01 08:55:00", *resp.CheckInTime)
	assert.True(t, resp.WorkFromHome)
	assert.Equal(t, "badge reader offline", *resp.AttendanceNotes)
}

func TestCheckIn_ConflictWithoutOverwrite(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()

	_, err := f.svc.CheckIn(ctx, attendance.CheckInRequest{StaffID: "EMP001"})
	require.NoError(t, err)

	_, err = f.svc.CheckIn(ctx, attendance.CheckInRequest{StaffID: "EMP001"})
	assert.ErrorIs(t, err, attendance.ErrCheckInExists)
}

func TestCheckIn_OverwriteMustPrecedeCheckOut(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()
	in := sgtTime(time.March, 1, 9, 0)
	out := sgtTime(time.March, 1, 17, 0)
	f.store.PutAttendance(attendance.Attendance{
		StaffID: "EMP001", Date: sgtTime(time.March, 1, 0, 0),
		CheckInTime: &in, CheckOutTime: &out, Status: attendance.StatusPresent,
	})

	_, err := f.svc.CheckIn(ctx, attendance.CheckInRequest{
		StaffID: "EMP001", CustomDateTime: strPtr("2024-03-01T17:00"), Overwrite: true,
	})
	var verrs validator.ValidationErrors
	require.ErrorAs(t, err, &verrs)
	assert.Contains(t, verrs.Error(), "2024-03-01 17:00:00")

	resp, err := f.svc.CheckIn(ctx, attendance.CheckInRequest{
		StaffID: "EMP001", CustomDateTime: strPtr("2024-03-01T08:30"), Overwrite: true,
	})
	require.NoError(t, err)
	assert.Equal(t, "2024-03-01 08:30:00", *resp.CheckInTime)
	assert.Equal(t, "2024-03-01 17:00:00", *resp.CheckOutTime)
}

func TestCheckIn_OverwriteReplacesLeave(t *testing.T) {
	f := newFixture(t)
	midnight := sgtTime(time.March, 1, 0, 0)
	f.store.PutAttendance(attendance.Attendance{
		StaffID: "EMP001", Date: midnight,
		CheckInTime: &midnight, CheckOutTime: &midnight, Status: attendance.StatusCasualLeave,
	})

	resp, err := f.svc.CheckIn(context.Background(), attendance.CheckInRequest{
		StaffID: "EMP001", CustomDateTime: strPtr("2024-03-01T09:10"), Overwrite: true,
	})
	require.NoError(t, err)
	assert.Equal(t, attendance.StatusPresent, resp.Status)
	assert.Nil(t, resp.CheckOutTime)
}

func TestCheckIn_CustomDateTimeWindow(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()

	_, err := f.svc.CheckIn(ctx, attendance.CheckInRequest{StaffID: "EMP001", CustomDateTime: strPtr("2024-03-04T09:01")})
	var verrs validator.ValidationErrors
	require.ErrorAs(t, err, &verrs)
	assert.Contains(t, verrs.Error(), "future")

	_, err = f.svc.CheckIn(ctx, attendance.CheckInRequest{StaffID: "EMP001", CustomDateTime: strPtr("2024-01-03T08:59")})
	require.ErrorAs(t, err, &verrs)
	assert.Contains(t, verrs.Error(), "60 days")

	_, err = f.svc.CheckIn(ctx, attendance.CheckInRequest{StaffID: "EMP001", CustomDateTime: strPtr("2024-01-04T09:00")})
	assert.NoError(t, err)
}

// ===== MANUAL CHECK-OUT =====

func TestCheckOut_WithoutCheckInIsNotFound(t *testing.T) {
	f := newFixture(t)
	_, err := f.svc.CheckOut(context.Background(), attendance.CheckOutRequest{StaffID: "EMP001"})
	assert.ErrorIs(t, err, attendance.ErrCheckInNotFound)
}

func TestCheckOut_BeforeCheckIn(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()
	f.clock.now = sgtTime(time.March, 4, 19, 0)
	in := sgtTime(time.March, 4, 9, 0)
	f.store.PutAttendance(attendance.Attendance{
		StaffID: "EMP001", Date: sgtTime(time.March, 4, 0, 0),
		CheckInTime: &in, Status: attendance.StatusPresent,
	})

	_, err := f.svc.CheckOut(ctx, attendance.CheckOutRequest{StaffID: "EMP001", CustomDateTime: strPtr("2024-03-04T08:00")})
	var verrs validator.ValidationErrors
	require.ErrorAs(t, err, &verrs)
	assert.Contains(t, verrs.Error(), "2024-03-04 09:00:00")

	_, err = f.svc.CheckOut(ctx, attendance.CheckOutRequest{StaffID: "EMP001", CustomDateTime: strPtr("2024-03-04T09:00")})
	require.ErrorAs(t, err, &verrs)

	_, err = f.svc.CheckOut(ctx, attendance.CheckOutRequest{StaffID: "EMP001", CustomDateTime: strPtr("2024-03-04T08:00"), Overwrite: true})
	require.ErrorAs(t, err, &verrs)

	resp, err := f.svc.CheckOut(ctx, attendance.CheckOutRequest{StaffID: "EMP001", CustomDateTime: strPtr("2024-03-04T09:00"), Overwrite: true})
	require.NoError(t, err)
	assert.Equal(t, "00:00", *resp.TotalHours)
}

func TestCheckOut_ExistingCheckOut(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()
	f.clock.now = sgtTime(time.March, 4, 19, 0)
	in := sgtTime(time.March, 4, 9, 0)
	out := sgtTime(time.March, 4, 17, 45)
	f.store.PutAttendance(attendance.Attendance{
		StaffID: "EMP001", Date: sgtTime(time.March, 4, 0, 0),
		CheckInTime: &in, CheckOutTime: &out, Status: attendance.StatusPresent,
	})

	_, err := f.svc.CheckOut(ctx, attendance.CheckOutRequest{StaffID: "EMP001"})
	assert.ErrorIs(t, err, attendance.ErrCheckOutExists)

	resp, err := f.svc.CheckOut(ctx, attendance.CheckOutRequest{StaffID: "EMP001", CustomDateTime: strPtr("2024-03-04T18:20"), Overwrite: true})
	require.NoError(t, err)
	assert.Equal(t, "08:00", *resp.DayHours)
	assert.Equal(t, "00:35", resp.OvertimeHours)
}

func TestCheckOut_LeaveForcedToMidnight(t *testing.T) {
	f := newFixture(t)
	midnight := sgtTime(time.March, 4, 0, 0)
	f.clock.now = sgtTime(time.March, 4, 20, 0)
	f.store.PutAttendance(attendance.Attendance{
		StaffID: "EMP001", Date: midnight,
		CheckInTime: &midnight, CheckOutTime: &midnight, Status: attendance.StatusUnpaidLeave,
	})

	resp, err := f.svc.CheckOut(context.Background(), attendance.CheckOutRequest{StaffID: "EMP001", Overwrite: true})
	require.NoError(t, err)
	assert.Equal(t, "2024-03-04 00:00:00", *resp.CheckOutTime)
	assert.Equal(t, "00:00", *resp.TotalHours)
	assert.Equal(t, "00:00", resp.OvertimeHours)
}

// ===== LIST / EXPORT =====

func TestListAttendance_DerivesMetrics(t *testing.T) {
	f := newFixture(t)
	in := sgtTime(time.March, 1, 9, 0)
	out := sgtTime(time.March, 1, 12, 30)
	f.store.PutAttendance(attendance.Attendance{
		StaffID: "EMP001", Date: sgtTime(time.March, 1, 0, 0),
		CheckInTime: &in, CheckOutTime: &out, Status: attendance.StatusPresent,
	})

	list, err := f.svc.ListAttendance(context.Background(), attendance.AttendanceFilter{
		DateFilter: strPtr(attendance.DateFilterCurrentMonth),
	})
	require.NoError(t, err)
	assert.Equal(t, "2024-03-01", list.StartDate)
	assert.Equal(t, "2024-03-31", list.EndDate)
	require.Equal(t, 1, list.TotalCount)
	assert.Equal(t, "03:30", *list.Attendances[0].TotalHours)
	assert.True(t, list.Attendances[0].IsHalfDay)
	assert.Equal(t, "Alice Tan", *list.Attendances[0].StaffName)

	list, err = f.svc.ListAttendance(context.Background(), attendance.AttendanceFilter{
		DateFilter: strPtr(attendance.DateFilterLastMonth),
	})
	require.NoError(t, err)
	assert.Equal(t, "2024-02-01", list.StartDate)
	assert.Equal(t, "2024-02-29", list.EndDate)
	assert.Zero(t, list.TotalCount)
}

func TestExportAttendance_CSV(t *testing.T) {
	f := newFixture(t)
	in := sgtTime(time.March, 1, 9, 0)
	out := sgtTime(time.March, 1, 18, 20)
	f.store.PutAttendance(attendance.Attendance{
		StaffID: "EMP001", Date: sgtTime(time.March, 1, 0, 0),
		CheckInTime: &in, CheckOutTime: &out, Status: attendance.StatusPresent,
	})

	file, err := f.svc.ExportAttendance(context.Background(), attendance.AttendanceFilter{
		StartDate: strPtr("2024-03-01"), EndDate: strPtr("2024-03-01"),
	}, attendance.ExportFormatCSV)
	require.NoError(t, err)
	assert.Equal(t, "attendance_2024-03-01_2024-03-01.csv", file.Filename)

	lines := strings.Split(strings.TrimSpace(string(file.Data)), "\n")
	require.Len(t, lines, 2)
	assert.True(t, strings.HasPrefix(lines[0], "Date,Staff ID,Name"))
	assert.Contains(t, lines[1], "2024-03-01,EMP001,Alice Tan,Engineering,present")
	assert.Contains(t, lines[1], "08:50,08:00,00:35")
}
