package http

import (
	"net/http"
	"strconv"
	"time"

	"github.com/cmlabs-hris/attendance-backend-go/internal/domain/attendance"
	"github.com/cmlabs-hris/attendance-backend-go/internal/domain/report"
	"github.com/cmlabs-hris/attendance-backend-go/internal/handler/http/response"
)

type ReportHandler interface {
	// Day-across-staff calendar summary
	CalendarSummary(w http.ResponseWriter, r *http.Request)

	// Staff-across-days status matrix
	DetailedSummary(w http.ResponseWriter, r *http.Request)
	ExportDetailedSummary(w http.ResponseWriter, r *http.Request)
}

type reportHandlerImpl struct {
	reportService report.ReportService
	loc           *time.Location
}

func NewReportHandler(reportService report.ReportService, loc *time.Location) ReportHandler {
	return &reportHandlerImpl{
		reportService: reportService,
		loc:           loc,
	}
}

// CalendarSummary handles GET /reports/calendar-summary
func (h *reportHandlerImpl) CalendarSummary(w http.ResponseWriter, r *http.Request) {
	req, ok := h.monthRequest(w, r)
	if !ok {
		return
	}

	result, err := h.reportService.MonthSummary(r.Context(), req)
	if err != nil && !response.Partial(err) {
		response.HandleError(w, err)
		return
	}

	response.Success(w, result)
}

// DetailedSummary handles GET /reports/detailed-summary
func (h *reportHandlerImpl) DetailedSummary(w http.ResponseWriter, r *http.Request) {
	req, ok := h.monthRequest(w, r)
	if !ok {
		return
	}

	result, err := h.reportService.DetailedSummary(r.Context(), req)
	if err != nil && !response.Partial(err) {
		response.HandleError(w, err)
		return
	}

	response.Success(w, result)
}

// ExportDetailedSummary handles GET /reports/detailed-summary/export
func (h *reportHandlerImpl) ExportDetailedSummary(w http.ResponseWriter, r *http.Request) {
	req, ok := h.monthRequest(w, r)
	if !ok {
		return
	}

	format, err := attendance.ParseExportFormat(r.URL.Query().Get("format"))
	if err != nil {
		response.HandleError(w, err)
		return
	}

	file, err := h.reportService.ExportDetailedSummary(r.Context(), req, format)
	if err != nil {
		response.HandleError(w, err)
		return
	}

	response.File(w, file)
}

// monthRequest reads month and year, defaulting to the current month.
func (h *reportHandlerImpl) monthRequest(w http.ResponseWriter, r *http.Request) (report.MonthRequest, bool) {
	now := time.Now().In(h.loc)
	req := report.MonthRequest{Month: int(now.Month()), Year: now.Year()}

	if monthStr := r.URL.Query().Get("month"); monthStr != "" {
		month, err := strconv.Atoi(monthStr)
		if err != nil {
			response.BadRequest(w, "invalid month parameter", nil)
			return report.MonthRequest{}, false
		}
		req.Month = month
	}

	if yearStr := r.URL.Query().Get("year"); yearStr != "" {
		year, err := strconv.Atoi(yearStr)
		if err != nil {
			response.BadRequest(w, "invalid year parameter", nil)
			return report.MonthRequest{}, false
		}
		req.Year = year
	}

	return req, true
}
