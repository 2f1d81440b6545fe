package attendance

import (
	"github.com/cmlabs-hris/attendance-backend-go/internal/pkg/utils"
	"github.com/shopspring/decimal"
)

// TimeMetrics are derived on every read and never stored.
// TotalMinutes and DayMinutes are nil for an open or incomplete record.
type TimeMetrics struct {
	TotalMinutes          *int
	DayMinutes            *int
	OvertimeMinutes       int
	IsHalfDay             bool
	LateMinutes           int
	EarlyDepartureMinutes int
}

func (m TimeMetrics) TotalHours() *string {
	return hhmmPtr(m.TotalMinutes)
}

func (m TimeMetrics) DayHours() *string {
	return hhmmPtr(m.DayMinutes)
}

func (m TimeMetrics) OvertimeHours() string {
	return utils.FormatHHMM(m.OvertimeMinutes)
}

// HasOvertime reports whether overtime_hours differs from "00:00".
func (m TimeMetrics) HasOvertime() bool {
	return m.OvertimeMinutes > 0
}

// OvertimeDecimal is overtime in decimal hours, e.g. 35 minutes -> 0.58.
func (m TimeMetrics) OvertimeDecimal() decimal.Decimal {
	return MinutesToHours(m.OvertimeMinutes)
}

// TotalDecimal is total_hours in decimal hours, zero for an open record.
func (m TimeMetrics) TotalDecimal() decimal.Decimal {
	if m.TotalMinutes == nil {
		return decimal.Zero
	}
	return MinutesToHours(*m.TotalMinutes)
}

// MinutesToHours converts minutes into hours rounded to two places.
func MinutesToHours(minutes int) decimal.Decimal {
	return decimal.NewFromInt(int64(minutes)).Div(decimal.NewFromInt(60)).Round(2)
}

func hhmmPtr(minutes *int) *string {
	if minutes == nil {
		return nil
	}
	s := utils.FormatHHMM(*minutes)
	return &s
}
