package attendance

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"time"

	"github.com/cmlabs-hris/attendance-backend-go/internal/domain/attendance"
	"github.com/cmlabs-hris/attendance-backend-go/internal/domain/staff"
	"github.com/cmlabs-hris/attendance-backend-go/internal/pkg/database"
	"github.com/cmlabs-hris/attendance-backend-go/internal/pkg/export"
	"github.com/cmlabs-hris/attendance-backend-go/internal/pkg/sse"
	"github.com/cmlabs-hris/attendance-backend-go/internal/pkg/utils"
	"github.com/cmlabs-hris/attendance-backend-go/internal/pkg/validator"
	"github.com/cmlabs-hris/attendance-backend-go/internal/service/worktime"
)

// Options tunes the check-in/check-out rules.
type Options struct {
	MinCheckoutInterval time.Duration
	ManualBackdateDays  int
	Now                 func() time.Time
	Logger              *slog.Logger
	// Events receives a live event per recorded check-in or check-out. Optional.
	Events *sse.Hub
}

type AttendanceServiceImpl struct {
	tx database.Transactor
	attendance.AttendanceRepository
	staff.StaffRepository
	calc *worktime.Calculator

	minCheckoutInterval time.Duration
	manualBackdateDays  int
	now                 func() time.Time
	logger              *slog.Logger
	events              *sse.Hub
}

// FaceEvent implements attendance.AttendanceService.
func (s *AttendanceServiceImpl) FaceEvent(ctx context.Context, req attendance.FaceEventRequest) (attendance.FaceEventResult, error) {
	if err := req.Validate(); err != nil {
		return attendance.FaceEventResult{}, err
	}

	// Wall clock is read once per event.
	now := s.now()
	member, err := s.activeStaff(ctx, req.StaffID)
	if err != nil {
		return attendance.FaceEventResult{}, err
	}
	date := utils.CivilDate(now, s.calc.Location())

	var result attendance.FaceEventResult
	var record attendance.Attendance
	err = s.tx.WithinTransaction(ctx, func(ctx context.Context) error {
		if err := s.AttendanceRepository.LockStaffDay(ctx, req.StaffID, date); err != nil {
			return err
		}
		existing, err := s.AttendanceRepository.GetByStaffAndDate(ctx, req.StaffID, date)
		if err != nil {
			return fmt.Errorf("failed to get today's attendance: %w", err)
		}

		if existing != nil && existing.Status.IsLeave() {
			result.Action = attendance.ActionIgnored
			result.Reason = attendance.ReasonLeaveRecorded
			record = *existing
			return nil
		}

		switch attendance.StateOf(existing) {
		case attendance.StateNone:
			result.Action = attendance.ActionCheckedIn
			if existing != nil {
				existing.CheckInTime = &now
				existing.CheckInFaceImagePath = req.FaceImagePath
				existing.CheckInConfidenceScore = req.ConfidenceScore
				record, err = s.AttendanceRepository.Update(ctx, *existing)
				return err
			}
			record, err = s.AttendanceRepository.Create(ctx, attendance.Attendance{
				StaffID:                req.StaffID,
				Date:                   date,
				CheckInTime:            &now,
				Status:                 attendance.StatusPresent,
				CheckInFaceImagePath:   req.FaceImagePath,
				CheckInConfidenceScore: req.ConfidenceScore,
			})
			return err

		case attendance.StateCheckedIn:
			if now.Sub(*existing.CheckInTime) < s.minCheckoutInterval {
				result.Action = attendance.ActionIgnored
				result.Reason = attendance.ReasonMinIntervalNotElapsed
				record = *existing
				return nil
			}
			result.Action = attendance.ActionCheckedOut

		default:
			result.Action = attendance.ActionCheckedOutUpdated
		}

		existing.CheckOutTime = &now
		if req.FaceImagePath != nil {
			existing.CheckOutFaceImagePath = req.FaceImagePath
		}
		if req.ConfidenceScore != nil {
			existing.CheckOutConfidenceScore = req.ConfidenceScore
		}
		record, err = s.AttendanceRepository.Update(ctx, *existing)
		return err
	})
	if err != nil {
		s.logger.Error("Failed to process face event", "staff_id", req.StaffID, "error", err)
		return attendance.FaceEventResult{}, fmt.Errorf("failed to process face event: %w", err)
	}

	s.logger.Info("Face event processed",
		"staff_id", req.StaffID,
		"date", utils.DateKey(date),
		"action", result.Action,
		"reason", result.Reason,
	)

	result.Attendance = s.toResponse(record, member)
	if result.Action != attendance.ActionIgnored {
		s.publish(string(result.Action), result.Attendance)
	}
	return result, nil
}

// CheckIn implements attendance.AttendanceService.
func (s *AttendanceServiceImpl) CheckIn(ctx context.Context, req attendance.CheckInRequest) (attendance.AttendanceResponse, error) {
	if err := req.Validate(); err != nil {
		return attendance.AttendanceResponse{}, err
	}

	checkIn, err := s.resolveManualTime(req.CustomDateTime)
	if err != nil {
		return attendance.AttendanceResponse{}, err
	}
	member, err := s.activeStaff(ctx, req.StaffID)
	if err != nil {
		return attendance.AttendanceResponse{}, err
	}
	date := utils.CivilDate(checkIn, s.calc.Location())

	var record attendance.Attendance
	err = s.tx.WithinTransaction(ctx, func(ctx context.Context) error {
		if err := s.AttendanceRepository.LockStaffDay(ctx, req.StaffID, date); err != nil {
			return err
		}
		existing, err := s.AttendanceRepository.GetByStaffAndDate(ctx, req.StaffID, date)
		if err != nil {
			return fmt.Errorf("failed to get attendance: %w", err)
		}

		if existing == nil {
			record, err = s.AttendanceRepository.Create(ctx, attendance.Attendance{
				StaffID:         req.StaffID,
				Date:            date,
				CheckInTime:     &checkIn,
				Status:          attendance.StatusPresent,
				AttendanceNotes: req.AttendanceNotes,
				WorkFromHome:    req.IsWorkFromHome(),
			})
			return err
		}

		if !req.Overwrite {
			return fmt.Errorf("%w: staff %s on %s", attendance.ErrCheckInExists, req.StaffID, utils.DateKey(date))
		}

		if existing.Status.IsLeave() {
			// A real check-in replaces the leave marking for the day.
			existing.Status = attendance.StatusPresent
			existing.CheckOutTime = nil
		} else if existing.CheckOutTime != nil && !checkIn.Before(*existing.CheckOutTime) {
			return validator.Single("custom_date_time", fmt.Sprintf(
				"check-in time %s must be before existing check-out time %s",
				s.format(checkIn), s.format(*existing.CheckOutTime),
			))
		}

		existing.CheckInTime = &checkIn
		if req.AttendanceNotes != nil {
			existing.AttendanceNotes = req.AttendanceNotes
		}
		existing.WorkFromHome = req.IsWorkFromHome()
		record, err = s.AttendanceRepository.Update(ctx, *existing)
		return err
	})
	if err != nil {
		return attendance.AttendanceResponse{}, s.wrapManualError("check-in", req.StaffID, err)
	}

	s.logger.Info("Manual check-in recorded",
		"staff_id", req.StaffID,
		"date", utils.DateKey(date),
		"overwrite", req.Overwrite,
		"work_from_home", record.WorkFromHome,
	)

	resp := s.toResponse(record, member)
	s.publish(attendance.EventManualCheckIn, resp)
	return resp, nil
}

// CheckOut implements attendance.AttendanceService.
func (s *AttendanceServiceImpl) CheckOut(ctx context.Context, req attendance.CheckOutRequest) (attendance.AttendanceResponse, error) {
	if err := req.Validate(); err != nil {
		return attendance.AttendanceResponse{}, err
	}

	checkOut, err := s.resolveManualTime(req.CustomDateTime)
	if err != nil {
		return attendance.AttendanceResponse{}, err
	}
	member, err := s.activeStaff(ctx, req.StaffID)
	if err != nil {
		return attendance.AttendanceResponse{}, err
	}
	date := utils.CivilDate(checkOut, s.calc.Location())

	var record attendance.Attendance
	err = s.tx.WithinTransaction(ctx, func(ctx context.Context) error {
		if err := s.AttendanceRepository.LockStaffDay(ctx, req.StaffID, date); err != nil {
			return err
		}
		existing, err := s.AttendanceRepository.GetByStaffAndDate(ctx, req.StaffID, date)
		if err != nil {
			return fmt.Errorf("failed to get attendance: %w", err)
		}

		if existing == nil || existing.CheckInTime == nil {
			return fmt.Errorf("%w: staff %s on %s", attendance.ErrCheckInNotFound, req.StaffID, utils.DateKey(date))
		}
		if existing.CheckOutTime != nil && !req.Overwrite {
			return fmt.Errorf("%w: staff %s on %s", attendance.ErrCheckOutExists, req.StaffID, utils.DateKey(date))
		}

		if existing.Status.IsLeave() {
			midnight := utils.InLocation(existing.Date, s.calc.Location())
			existing.CheckInTime = &midnight
			existing.CheckOutTime = &midnight
			record, err = s.AttendanceRepository.Update(ctx, *existing)
			return err
		}

		checkIn := *existing.CheckInTime
		if !checkOut.After(checkIn) {
			if !req.Overwrite || checkOut.Before(checkIn) {
				return validator.Single("custom_date_time", fmt.Sprintf(
					"check-out time %s must be after check-in time %s",
					s.format(checkOut), s.format(checkIn),
				))
			}
		}

		existing.CheckOutTime = &checkOut
		record, err = s.AttendanceRepository.Update(ctx, *existing)
		return err
	})
	if err != nil {
		return attendance.AttendanceResponse{}, s.wrapManualError("check-out", req.StaffID, err)
	}

	s.logger.Info("Manual check-out recorded",
		"staff_id", req.StaffID,
		"date", utils.DateKey(date),
		"overwrite", req.Overwrite,
		"status", record.Status,
	)

	resp := s.toResponse(record, member)
	s.publish(attendance.EventManualCheckOut, resp)
	return resp, nil
}

// ListAttendance implements attendance.AttendanceService.
func (s *AttendanceServiceImpl) ListAttendance(ctx context.Context, filter attendance.AttendanceFilter) (attendance.ListAttendanceResponse, error) {
	if err := filter.Validate(); err != nil {
		return attendance.ListAttendanceResponse{}, err
	}

	start, end := s.resolveRange(filter)
	records, err := s.AttendanceRepository.ListByDateRange(ctx, start, end, filter.StaffID)
	if err != nil {
		return attendance.ListAttendanceResponse{}, fmt.Errorf("failed to list attendance: %w", err)
	}

	ids := make([]string, 0, len(records))
	seen := make(map[string]bool)
	for _, r := range records {
		if !seen[r.StaffID] {
			seen[r.StaffID] = true
			ids = append(ids, r.StaffID)
		}
	}
	members, err := s.StaffRepository.GetMany(ctx, ids)
	if err != nil {
		return attendance.ListAttendanceResponse{}, fmt.Errorf("failed to load staff schedules: %w", err)
	}

	responses := make([]attendance.AttendanceResponse, 0, len(records))
	for _, r := range records {
		member, ok := members[r.StaffID]
		if !ok {
			member = staff.Staff{ID: r.StaffID, Schedule: staff.DefaultScheduleConfig()}
		}
		responses = append(responses, s.toResponse(r, member))
	}

	return attendance.ListAttendanceResponse{
		StartDate:   utils.DateKey(start),
		EndDate:     utils.DateKey(end),
		TotalCount:  len(responses),
		Attendances: responses,
	}, nil
}

// ExportAttendance implements attendance.AttendanceService.
func (s *AttendanceServiceImpl) ExportAttendance(ctx context.Context, filter attendance.AttendanceFilter, format attendance.ExportFormat) (export.File, error) {
	list, err := s.ListAttendance(ctx, filter)
	if err != nil {
		return export.File{}, err
	}

	table := export.Table{
		SheetName: "Attendance",
		Headers: []string{
			"Date", "Staff ID", "Name", "Department", "Status", "Check In", "Check Out",
			"Total Hours", "Day Hours", "Overtime Hours", "Half Day",
			"Late Minutes", "Early Departure Minutes", "Work From Home", "Notes",
		},
		ColWidths: []float64{12, 12, 24, 18, 18, 20, 20},
	}
	for _, a := range list.Attendances {
		table.Rows = append(table.Rows, []any{
			a.Date, a.StaffID, a.StaffName, a.Department, string(a.Status), a.CheckInTime, a.CheckOutTime,
			a.TotalHours, a.DayHours, a.OvertimeHours, a.IsHalfDay,
			a.LateMinutes, a.EarlyDepartureMinutes, a.WorkFromHome, a.AttendanceNotes,
		})
	}

	file, err := export.Encode(table, format, fmt.Sprintf("attendance_%s_%s", list.StartDate, list.EndDate))
	if err != nil {
		return export.File{}, fmt.Errorf("failed to encode attendance export: %w", err)
	}
	return file, nil
}

// activeStaff maps unknown and inactive staff to staff.ErrStaffNotFound.
func (s *AttendanceServiceImpl) activeStaff(ctx context.Context, staffID string) (staff.Staff, error) {
	member, err := s.StaffRepository.GetByID(ctx, staffID)
	if err != nil {
		if errors.Is(err, staff.ErrStaffNotFound) {
			return staff.Staff{}, fmt.Errorf("%w: %s", staff.ErrStaffNotFound, staffID)
		}
		return staff.Staff{}, fmt.Errorf("failed to get staff: %w", err)
	}
	if !member.IsActive {
		return staff.Staff{}, fmt.Errorf("%w: %s is inactive", staff.ErrStaffNotFound, staffID)
	}
	return member, nil
}

// resolveManualTime returns now, or the custom time when it lies within
// [now - ManualBackdateDays, now].
func (s *AttendanceServiceImpl) resolveManualTime(custom *string) (time.Time, error) {
	now := s.now()
	if custom == nil {
		return now, nil
	}

	t, err := attendance.ParseCustomDateTime(*custom, s.calc.Location())
	if err != nil {
		return time.Time{}, validator.Single("custom_date_time", err.Error())
	}
	if t.After(now) {
		return time.Time{}, validator.Single("custom_date_time", fmt.Sprintf(
			"custom_date_time %s cannot be in the future (now %s)", s.format(t), s.format(now),
		))
	}
	earliest := now.AddDate(0, 0, -s.manualBackdateDays)
	if t.Before(earliest) {
		return time.Time{}, validator.Single("custom_date_time", fmt.Sprintf(
			"custom_date_time %s is more than %d days in the past (earliest %s)",
			s.format(t), s.manualBackdateDays, s.format(earliest),
		))
	}
	return t, nil
}

// resolveRange defaults to the current month when no bounds are given.
func (s *AttendanceServiceImpl) resolveRange(f attendance.AttendanceFilter) (time.Time, time.Time) {
	loc := s.calc.Location()
	today := utils.CivilDate(s.now(), loc)

	if f.DateFilter != nil {
		month := today
		if *f.DateFilter == attendance.DateFilterLastMonth {
			month = time.Date(today.Year(), today.Month(), 1, 0, 0, 0, 0, loc).AddDate(0, -1, 0)
		}
		return utils.MonthBounds(month.Year(), month.Month(), loc)
	}

	var start, end time.Time
	if f.StartDate != nil {
		start, _ = utils.ParseDateIn(*f.StartDate, loc)
	}
	if f.EndDate != nil {
		end, _ = utils.ParseDateIn(*f.EndDate, loc)
	}
	switch {
	case start.IsZero() && end.IsZero():
		return utils.MonthBounds(today.Year(), today.Month(), loc)
	case start.IsZero():
		start = end
	case end.IsZero():
		end = start
	}
	return start, end
}

func (s *AttendanceServiceImpl) toResponse(a attendance.Attendance, member staff.Staff) attendance.AttendanceResponse {
	if a.StaffName == nil && member.FullName != "" {
		name := member.FullName
		a.StaffName = &name
	}
	if a.Department == nil {
		a.Department = member.Department
	}
	resp, err := s.calc.ToResponse(a, member.Schedule)
	if err != nil {
		s.logger.Warn("Failed to derive attendance metrics",
			"attendance_id", a.ID,
			"staff_id", a.StaffID,
			"date", utils.DateKey(a.Date),
			"error", err,
		)
	}
	return resp
}

func (s *AttendanceServiceImpl) wrapManualError(action, staffID string, err error) error {
	var validationErrs validator.ValidationErrors
	switch {
	case errors.As(err, &validationErrs),
		errors.Is(err, attendance.ErrCheckInExists),
		errors.Is(err, attendance.ErrCheckOutExists),
		errors.Is(err, attendance.ErrCheckInNotFound):
		return err
	}
	s.logger.Error("Failed to record manual "+action, "staff_id", staffID, "error", err)
	return fmt.Errorf("failed to record %s: %w", action, err)
}

func (s *AttendanceServiceImpl) publish(name string, record attendance.AttendanceResponse) {
	if s.events == nil {
		return
	}
	s.events.Publish(sse.Event{Topic: record.StaffID, Name: name, Data: record})
}

func (s *AttendanceServiceImpl) format(t time.Time) string {
	return t.In(s.calc.Location()).Format("2006-01-02 15:04:05")
}

func NewAttendanceService(
	tx database.Transactor,
	attendanceRepo attendance.AttendanceRepository,
	staffRepo staff.StaffRepository,
	calc *worktime.Calculator,
	opts Options,
) attendance.AttendanceService {
	if opts.MinCheckoutInterval <= 0 {
		opts.MinCheckoutInterval = 5 * time.Minute
	}
	if opts.ManualBackdateDays <= 0 {
		opts.ManualBackdateDays = 60
	}
	if opts.Now == nil {
		opts.Now = time.Now
	}
	if opts.Logger == nil {
		opts.Logger = slog.Default()
	}
	return &AttendanceServiceImpl{
		tx:                   tx,
		AttendanceRepository: attendanceRepo,
		StaffRepository:      staffRepo,
		calc:                 calc,
		minCheckoutInterval:  opts.MinCheckoutInterval,
		manualBackdateDays:   opts.ManualBackdateDays,
		now:                  opts.Now,
		logger:               opts.Logger,
		events:               opts.Events,
	}
}
