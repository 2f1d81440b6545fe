package report

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"strconv"
	"time"

	"github.com/cmlabs-hris/attendance-backend-go/internal/domain/attendance"
	"github.com/cmlabs-hris/attendance-backend-go/internal/domain/calendar"
	"github.com/cmlabs-hris/attendance-backend-go/internal/domain/report"
	"github.com/cmlabs-hris/attendance-backend-go/internal/domain/staff"
	"github.com/cmlabs-hris/attendance-backend-go/internal/pkg/export"
	"github.com/cmlabs-hris/attendance-backend-go/internal/pkg/utils"
	"github.com/cmlabs-hris/attendance-backend-go/internal/service/worktime"
	"github.com/shopspring/decimal"
)

type Options struct {
	Now    func() time.Time
	Logger *slog.Logger
}

type ReportServiceImpl struct {
	attendance.AttendanceRepository
	staff.StaffRepository
	calendar.CalendarRepository
	calc *worktime.Calculator

	now    func() time.Time
	logger *slog.Logger
}

var half = decimal.NewFromFloat(0.5)

// monthData is the join shared by both aggregations, loaded once per call.
type monthData struct {
	year     int
	month    time.Month
	start    time.Time
	end      time.Time
	days     []calendar.CalendarDay
	staff    []staff.Staff
	records  map[string]map[string]attendance.Attendance // staff_id -> date -> record
	failures []attendance.ItemFailure
}

func (m *monthData) record(staffID string, date time.Time) (attendance.Attendance, bool) {
	a, ok := m.records[staffID][utils.DateKey(date)]
	return a, ok
}

func (s *ReportServiceImpl) loadMonth(ctx context.Context, req report.MonthRequest) (*monthData, error) {
	exists, err := s.CalendarRepository.TableExists(ctx)
	if err != nil {
		return nil, fmt.Errorf("failed to check calendar table: %w", err)
	}
	if !exists {
		return nil, calendar.ErrCalendarNotConfigured
	}

	loc := s.calc.Location()
	data := &monthData{year: req.Year, month: time.Month(req.Month)}
	data.start, data.end = utils.MonthBounds(req.Year, time.Month(req.Month), loc)

	data.days, err = s.CalendarRepository.ListByRange(ctx, data.start, data.end)
	if err != nil {
		if errors.Is(err, calendar.ErrCalendarNotConfigured) {
			return nil, err
		}
		return nil, fmt.Errorf("failed to list calendar days: %w", err)
	}

	seeded := make(map[string]bool, len(data.days))
	for _, d := range data.days {
		seeded[utils.DateKey(d.Date)] = true
	}
	for _, d := range utils.DaysInRange(data.start, data.end) {
		if key := utils.DateKey(d); !seeded[key] {
			data.failures = append(data.failures, attendance.ItemFailure{Key: key, Reason: "calendar day is not seeded"})
		}
	}

	data.staff, err = s.StaffRepository.ListActive(ctx)
	if err != nil {
		return nil, fmt.Errorf("failed to list active staff: %w", err)
	}

	records, err := s.AttendanceRepository.ListByDateRange(ctx, data.start, data.end, nil)
	if err != nil {
		return nil, fmt.Errorf("failed to list attendance: %w", err)
	}
	data.records = make(map[string]map[string]attendance.Attendance)
	for _, r := range records {
		byDate, ok := data.records[r.StaffID]
		if !ok {
			byDate = make(map[string]attendance.Attendance)
			data.records[r.StaffID] = byDate
		}
		byDate[utils.DateKey(r.Date)] = r
	}

	return data, nil
}

// MonthSummary implements report.ReportService.
func (s *ReportServiceImpl) MonthSummary(ctx context.Context, req report.MonthRequest) (report.MonthSummary, error) {
	if err := req.Validate(); err != nil {
		return report.MonthSummary{}, err
	}

	data, err := s.loadMonth(ctx, req)
	if err != nil {
		return report.MonthSummary{}, err
	}

	summary := report.MonthSummary{
		Year:        req.Year,
		Month:       req.Month,
		StartDate:   utils.DateKey(data.start),
		EndDate:     utils.DateKey(data.end),
		ActiveStaff: len(data.staff),
		GeneratedAt: s.now().In(s.calc.Location()).Format(time.RFC3339),
		Days:        make([]report.DaySummary, 0, len(data.days)),
		Failures:    data.failures,
	}

	totalOTMinutes := 0
	for _, day := range data.days {
		var row report.DaySummary
		err := recovered(func() error {
			var failures []attendance.ItemFailure
			row, failures = s.summarizeDay(data, day)
			summary.Failures = append(summary.Failures, failures...)
			return nil
		})
		if err != nil {
			s.skip(&summary.Failures, utils.DateKey(day.Date), err)
			continue
		}

		summary.Days = append(summary.Days, row)
		if day.IsWorkingDay() {
			summary.Totals.WorkingDays++
		}
		summary.Totals.Present += row.TotalPresent
		summary.Totals.Leave += row.TotalLeave
		summary.Totals.Absent += row.TotalAbsent
		summary.Totals.OTDays += row.TotalOTDays
		totalOTMinutes += row.TotalOTMinutes
	}
	summary.Totals.TotalOTHours = attendance.MinutesToHours(totalOTMinutes)

	s.logger.Info("Month summary generated",
		"year", req.Year,
		"month", req.Month,
		"days", len(summary.Days),
		"active_staff", summary.ActiveStaff,
		"failures", len(summary.Failures),
	)

	if len(summary.Failures) > 0 {
		return summary, &attendance.PartialProcessingError{Operation: "month summary", Failures: summary.Failures}
	}
	return summary, nil
}

// summarizeDay classifies every active staff member for one calendar day.
// Weekends and holidays never count towards absence.
func (s *ReportServiceImpl) summarizeDay(data *monthData, day calendar.CalendarDay) (report.DaySummary, []attendance.ItemFailure) {
	row := report.DaySummary{
		Date:            utils.DateKey(day.Date),
		DayName:         day.DayName,
		IsWeekend:       day.IsWeekend,
		IsPublicHoliday: day.IsPublicHoliday,
		HolidayName:     day.HolidayName,
	}

	var failures []attendance.ItemFailure
	for _, member := range data.staff {
		rec, ok := data.record(member.ID, day.Date)
		switch {
		case !ok:
			if day.IsWorkingDay() {
				row.TotalAbsent++
			}
		case rec.Status.IsLeave():
			row.TotalLeave++
		default:
			m, err := s.calc.CalculateRecord(rec, member.Schedule)
			if err != nil {
				s.skip(&failures, row.Date+" "+member.ID, err)
				continue
			}
			row.TotalPresent++
			if m.HasOvertime() {
				row.TotalOTDays++
				row.TotalOTMinutes += m.OvertimeMinutes
			}
		}
	}
	row.TotalOTHours = attendance.MinutesToHours(row.TotalOTMinutes)
	return row, failures
}

// DetailedSummary implements report.ReportService.
func (s *ReportServiceImpl) DetailedSummary(ctx context.Context, req report.MonthRequest) (report.DetailedSummary, error) {
	if err := req.Validate(); err != nil {
		return report.DetailedSummary{}, err
	}

	data, err := s.loadMonth(ctx, req)
	if err != nil {
		return report.DetailedSummary{}, err
	}

	summary := report.DetailedSummary{
		Year:        req.Year,
		Month:       req.Month,
		DaysInMonth: data.end.Day(),
		GeneratedAt: s.now().In(s.calc.Location()).Format(time.RFC3339),
		Rows:        make([]report.DetailedSummaryRow, 0, len(data.staff)),
		Failures:    data.failures,
	}

	for _, member := range data.staff {
		var row report.DetailedSummaryRow
		err := recovered(func() error {
			var failures []attendance.ItemFailure
			row, failures = s.staffRow(data, member)
			summary.Failures = append(summary.Failures, failures...)
			return nil
		})
		if err != nil {
			s.skip(&summary.Failures, member.ID, err)
			continue
		}
		row.SerialNo = len(summary.Rows) + 1
		summary.Rows = append(summary.Rows, row)
	}

	s.logger.Info("Detailed summary generated",
		"year", req.Year,
		"month", req.Month,
		"rows", len(summary.Rows),
		"failures", len(summary.Failures),
	)

	if len(summary.Failures) > 0 {
		return summary, &attendance.PartialProcessingError{Operation: "detailed summary", Failures: summary.Failures}
	}
	return summary, nil
}

// staffRow assigns one code per day of the month and keeps the running totals.
// Half-days add 0.5 to both present and absent; leave adds a full absent day.
func (s *ReportServiceImpl) staffRow(data *monthData, member staff.Staff) (report.DetailedSummaryRow, []attendance.ItemFailure) {
	row := report.DetailedSummaryRow{
		StaffID:       member.ID,
		FullName:      member.FullName,
		Department:    member.DepartmentName(),
		PresentDays:   decimal.Zero,
		AbsentDays:    decimal.Zero,
		TotalOTHours:  decimal.Zero,
		SundayOTHours: decimal.Zero,
		Days:          make([]string, data.end.Day()),
	}

	var failures []attendance.ItemFailure
	otMinutes, sundayOTMinutes := 0, 0
	for _, day := range data.days {
		if day.IsWorkingDay() {
			row.TotalWorkingDays++
		}

		rec, ok := data.record(member.ID, day.Date)
		var m attendance.TimeMetrics
		if ok {
			var err error
			if m, err = s.calc.CalculateRecord(rec, member.Schedule); err != nil {
				s.skip(&failures, utils.DateKey(day.Date)+" "+member.ID, err)
				continue
			}
			if !rec.Status.IsLeave() {
				otMinutes += m.OvertimeMinutes
				if day.IsSunday() {
					sundayOTMinutes += m.OvertimeMinutes
				}
			}
		}

		var code string
		switch {
		case day.IsWeekend:
			code = report.CodeWeekOff
		case day.IsPublicHoliday:
			code = report.CodeHoliday
		case !ok:
			code = report.CodeAbsent
			row.AbsentDays = row.AbsentDays.Add(decimal.NewFromInt(1))
		case rec.Status.IsLeave():
			code = rec.Status.Code()
			row.AbsentDays = row.AbsentDays.Add(decimal.NewFromInt(1))
		case m.IsHalfDay:
			code = report.CodeHalfDay
			row.PresentDays = row.PresentDays.Add(half)
			row.AbsentDays = row.AbsentDays.Add(half)
		default:
			code = report.CodePresent
			row.PresentDays = row.PresentDays.Add(decimal.NewFromInt(1))
		}
		row.Days[day.Date.Day()-1] = code
	}

	row.TotalOTHours = attendance.MinutesToHours(otMinutes)
	row.SundayOTHours = attendance.MinutesToHours(sundayOTMinutes)
	return row, failures
}

// ExportDetailedSummary implements report.ReportService.
func (s *ReportServiceImpl) ExportDetailedSummary(ctx context.Context, req report.MonthRequest, format attendance.ExportFormat) (export.File, error) {
	summary, err := s.DetailedSummary(ctx, req)
	var partial *attendance.PartialProcessingError
	if err != nil && !errors.As(err, &partial) {
		return export.File{}, err
	}

	headers := []string{
		"S.No", "Staff ID", "Name", "Department", "Total Working Days",
		"Absent Days", "Present Days", "OT Hours", "Sunday OT Hours",
	}
	widths := []float64{6, 12, 24, 18, 18, 12, 12, 10, 16}
	for d := 1; d <= summary.DaysInMonth; d++ {
		headers = append(headers, "Day "+strconv.Itoa(d))
		widths = append(widths, 7)
	}

	table := export.Table{
		SheetName: "Detailed Summary",
		Headers:   headers,
		ColWidths: widths,
	}
	for _, r := range summary.Rows {
		cells := []any{
			r.SerialNo, r.StaffID, r.FullName, r.Department, r.TotalWorkingDays,
			r.AbsentDays, r.PresentDays, r.TotalOTHours, r.SundayOTHours,
		}
		for _, code := range r.Days {
			cells = append(cells, code)
		}
		table.Rows = append(table.Rows, cells)
	}

	file, err := export.Encode(table, format, fmt.Sprintf("detailed_summary_%d_%02d", req.Year, req.Month))
	if err != nil {
		return export.File{}, fmt.Errorf("failed to encode detailed summary: %w", err)
	}
	if partial != nil {
		s.logger.Warn("Detailed summary exported with skipped items", "year", req.Year, "month", req.Month, "failures", len(partial.Failures))
	}
	return file, nil
}

func (s *ReportServiceImpl) skip(failures *[]attendance.ItemFailure, key string, err error) {
	s.logger.Warn("Skipping item in report", "key", key, "error", err)
	*failures = append(*failures, attendance.ItemFailure{Key: key, Reason: err.Error()})
}

// recovered runs fn and turns a panic into an error.
func recovered(fn func() error) (err error) {
	defer func() {
		if p := recover(); p != nil {
			err = fmt.Errorf("panic: %v", p)
		}
	}()
	return fn()
}

func NewReportService(
	attendanceRepo attendance.AttendanceRepository,
	staffRepo staff.StaffRepository,
	calendarRepo calendar.CalendarRepository,
	calc *worktime.Calculator,
	opts Options,
) report.ReportService {
	if opts.Now == nil {
		opts.Now = time.Now
	}
	if opts.Logger == nil {
		opts.Logger = slog.Default()
	}
	return &ReportServiceImpl{
		AttendanceRepository: attendanceRepo,
		StaffRepository:      staffRepo,
		CalendarRepository:   calendarRepo,
		calc:                 calc,
		now:                  opts.Now,
		logger:               opts.Logger,
	}
}
