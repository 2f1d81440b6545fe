package leave

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"time"

	"github.com/cmlabs-hris/attendance-backend-go/internal/domain/attendance"
	"github.com/cmlabs-hris/attendance-backend-go/internal/domain/leave"
	"github.com/cmlabs-hris/attendance-backend-go/internal/domain/settings"
	"github.com/cmlabs-hris/attendance-backend-go/internal/domain/staff"
	"github.com/cmlabs-hris/attendance-backend-go/internal/pkg/database"
	"github.com/cmlabs-hris/attendance-backend-go/internal/pkg/utils"
	"github.com/cmlabs-hris/attendance-backend-go/internal/pkg/validator"
	"github.com/cmlabs-hris/attendance-backend-go/internal/service/worktime"
	"github.com/google/uuid"
	"golang.org/x/sync/errgroup"
)

// Options holds the fallbacks used when global settings lack the window keys.
type Options struct {
	MaxPastMonths   int
	MaxFutureMonths int
	Workers         int
	Now             func() time.Time
	Logger          *slog.Logger
}

type LeaveServiceImpl struct {
	tx database.Transactor
	attendance.AttendanceRepository
	staff.StaffRepository
	settings.SettingsRepository
	calc *worktime.Calculator

	maxPastMonths   int
	maxFutureMonths int
	workers         int
	now             func() time.Time
	logger          *slog.Logger
}

type outcomeKind int

const (
	outcomeCreated outcomeKind = iota
	outcomeUpdated
	outcomeSkipped
	outcomeErrored
)

type dayOutcome struct {
	kind   outcomeKind
	record attendance.Attendance
	reason string
	err    error
}

// RecordLeave implements leave.LeaveService.
func (s *LeaveServiceImpl) RecordLeave(ctx context.Context, req leave.RecordLeaveRequest) (leave.RecordLeaveResult, error) {
	if err := req.Validate(); err != nil {
		return leave.RecordLeaveResult{}, err
	}

	loc := s.calc.Location()
	member, err := s.StaffRepository.GetByID(ctx, req.StaffID)
	if err != nil {
		if errors.Is(err, staff.ErrStaffNotFound) {
			return leave.RecordLeaveResult{}, fmt.Errorf("%w: %s", staff.ErrStaffNotFound, req.StaffID)
		}
		return leave.RecordLeaveResult{}, fmt.Errorf("failed to get staff: %w", err)
	}
	if !member.IsActive {
		return leave.RecordLeaveResult{}, fmt.Errorf("%w: %s is inactive", staff.ErrStaffNotFound, req.StaffID)
	}

	// Validate already checked the layout.
	start, _ := utils.ParseDateIn(req.LeaveStartDate, loc)
	end, _ := utils.ParseDateIn(req.LeaveEndDate, loc)

	window := s.window(ctx)
	if err := checkWindow(window, start, end); err != nil {
		return leave.RecordLeaveResult{}, err
	}

	dates := utils.DaysInRange(start, end)
	outcomes := make([]dayOutcome, len(dates))

	g := new(errgroup.Group)
	g.SetLimit(s.workers)
	for i, date := range dates {
		i, date := i, date
		g.Go(func() error {
			outcomes[i] = s.recordDay(ctx, req, date)
			return nil
		})
	}
	// Per-date failures are collected in outcomes, never returned to the group.
	_ = g.Wait()

	result := leave.RecordLeaveResult{
		RequestID:    uuid.NewString(),
		StaffID:      req.StaffID,
		LeaveType:    attendance.Status(req.LeaveType),
		StartDate:    utils.DateKey(start),
		EndDate:      utils.DateKey(end),
		TotalDays:    len(dates),
		Records:      []attendance.AttendanceResponse{},
		SkippedDates: []leave.SkippedDate{},
	}
	for i, o := range outcomes {
		key := utils.DateKey(dates[i])
		switch o.kind {
		case outcomeCreated, outcomeUpdated:
			if o.kind == outcomeCreated {
				result.Created++
			} else {
				result.Updated++
			}
			resp, err := s.calc.ToResponse(o.record, member.Schedule)
			if err != nil {
				s.logger.Warn("Failed to derive leave record metrics", "staff_id", req.StaffID, "date", key, "error", err)
			}
			result.Records = append(result.Records, resp)
		case outcomeSkipped:
			result.Skipped++
			result.SkippedDates = append(result.SkippedDates, leave.SkippedDate{Date: key, Reason: o.reason})
		case outcomeErrored:
			result.Errored++
			result.Failures = append(result.Failures, attendance.ItemFailure{Key: key, Reason: o.err.Error()})
			s.logger.Warn("Failed to record leave day",
				"request_id", result.RequestID,
				"staff_id", req.StaffID,
				"date", key,
				"error", o.err,
			)
		}
	}

	s.logger.Info("Leave range recorded",
		"request_id", result.RequestID,
		"staff_id", req.StaffID,
		"leave_type", req.LeaveType,
		"start_date", result.StartDate,
		"end_date", result.EndDate,
		"created", result.Created,
		"updated", result.Updated,
		"skipped", result.Skipped,
		"errored", result.Errored,
	)

	if len(result.Failures) > 0 {
		return result, &attendance.PartialProcessingError{Operation: "record leave", Failures: result.Failures}
	}
	return result, nil
}

// recordDay runs one atomic upsert for a single date. A panic is converted into an errored outcome.
func (s *LeaveServiceImpl) recordDay(ctx context.Context, req leave.RecordLeaveRequest, date time.Time) (out dayOutcome) {
	defer func() {
		if p := recover(); p != nil {
			out = dayOutcome{kind: outcomeErrored, err: fmt.Errorf("panic while recording leave: %v", p)}
		}
	}()

	if err := ctx.Err(); err != nil {
		return dayOutcome{kind: outcomeErrored, err: err}
	}

	status := attendance.Status(req.LeaveType)
	midnight := utils.InLocation(date, s.calc.Location())

	var res dayOutcome
	err := s.tx.WithinTransaction(ctx, func(ctx context.Context) error {
		if err := s.AttendanceRepository.LockStaffDay(ctx, req.StaffID, date); err != nil {
			return err
		}
		existing, err := s.AttendanceRepository.GetByStaffAndDate(ctx, req.StaffID, date)
		if err != nil {
			return fmt.Errorf("failed to get attendance: %w", err)
		}

		if existing == nil {
			checkIn, checkOut := midnight, midnight
			record, err := s.AttendanceRepository.Create(ctx, attendance.Attendance{
				StaffID:         req.StaffID,
				Date:            date,
				CheckInTime:     &checkIn,
				CheckOutTime:    &checkOut,
				Status:          status,
				AttendanceNotes: req.Notes,
			})
			if err != nil {
				return fmt.Errorf("failed to create leave record: %w", err)
			}
			res = dayOutcome{kind: outcomeCreated, record: record}
			return nil
		}

		if !req.Overwrite {
			reason := leave.SkipReasonAttendanceExists
			if existing.Status.IsLeave() {
				reason = leave.SkipReasonLeaveExists
			}
			res = dayOutcome{kind: outcomeSkipped, record: *existing, reason: reason}
			return nil
		}

		checkIn, checkOut := midnight, midnight
		existing.CheckInTime = &checkIn
		existing.CheckOutTime = &checkOut
		existing.Status = status
		existing.WorkFromHome = false
		if req.Notes != nil {
			existing.AttendanceNotes = req.Notes
		}
		record, err := s.AttendanceRepository.Update(ctx, *existing)
		if err != nil {
			return fmt.Errorf("failed to overwrite attendance: %w", err)
		}
		res = dayOutcome{kind: outcomeUpdated, record: record}
		return nil
	})
	if err != nil {
		return dayOutcome{kind: outcomeErrored, err: err}
	}
	return res
}

// window reads the allowed range from global settings, falling back to the configured defaults.
func (s *LeaveServiceImpl) window(ctx context.Context) leave.Window {
	past, err := s.SettingsRepository.GetInt(ctx, settings.KeyLeaveMaxPastMonths, s.maxPastMonths)
	if err != nil {
		s.logger.Warn("Failed to read leave window setting", "key", settings.KeyLeaveMaxPastMonths, "error", err)
		past = s.maxPastMonths
	}
	future, err := s.SettingsRepository.GetInt(ctx, settings.KeyLeaveMaxFutureMonths, s.maxFutureMonths)
	if err != nil {
		s.logger.Warn("Failed to read leave window setting", "key", settings.KeyLeaveMaxFutureMonths, "error", err)
		future = s.maxFutureMonths
	}

	today := utils.CivilDate(s.now(), s.calc.Location())
	return leave.Window{
		Earliest: today.AddDate(0, -past, 0),
		Latest:   today.AddDate(0, future, 0),
	}
}

func checkWindow(w leave.Window, start, end time.Time) error {
	var errs validator.ValidationErrors
	allowed := fmt.Sprintf("allowed range is %s to %s", utils.DateKey(w.Earliest), utils.DateKey(w.Latest))
	if !w.Contains(start) {
		errs = append(errs, validator.ValidationError{
			Field:   "leave_start_date",
			Message: fmt.Sprintf("leave_start_date %s is outside the allowed window: %s", utils.DateKey(start), allowed),
		})
	}
	if !w.Contains(end) {
		errs = append(errs, validator.ValidationError{
			Field:   "leave_end_date",
			Message: fmt.Sprintf("leave_end_date %s is outside the allowed window: %s", utils.DateKey(end), allowed),
		})
	}
	if len(errs) > 0 {
		return errs
	}
	return nil
}

func NewLeaveService(
	tx database.Transactor,
	attendanceRepo attendance.AttendanceRepository,
	staffRepo staff.StaffRepository,
	settingsRepo settings.SettingsRepository,
	calc *worktime.Calculator,
	opts Options,
) leave.LeaveService {
	if opts.MaxPastMonths <= 0 {
		opts.MaxPastMonths = 6
	}
	if opts.MaxFutureMonths <= 0 {
		opts.MaxFutureMonths = 6
	}
	if opts.Workers <= 0 {
		opts.Workers = 4
	}
	if opts.Now == nil {
		opts.Now = time.Now
	}
	if opts.Logger == nil {
		opts.Logger = slog.Default()
	}
	return &LeaveServiceImpl{
		tx:                   tx,
		AttendanceRepository: attendanceRepo,
		StaffRepository:      staffRepo,
		SettingsRepository:   settingsRepo,
		calc:                 calc,
		maxPastMonths:        opts.MaxPastMonths,
		maxFutureMonths:      opts.MaxFutureMonths,
		workers:              opts.Workers,
		now:                  opts.Now,
		logger:               opts.Logger,
	}
}
