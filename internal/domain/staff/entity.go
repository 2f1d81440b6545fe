package staff

import (
	"time"
)

// Staff is the profile slice the attendance core reads; CRUD lives elsewhere.
type Staff struct {
	ID          string
	FullName    string
	Department  *string
	Designation *string
	Email       *string
	IsActive    bool
	Schedule    ScheduleConfig
	CreatedAt   time.Time
	UpdatedAt   time.Time
}

// ScheduleConfig holds per-staff work parameters. Clock values are offsets from midnight.
type ScheduleConfig struct {
	WorkStartTime      time.Duration
	WorkEndTime        time.Duration
	BreakTimeMinutes   int
	OTThresholdMinutes int
	OvertimeEnabled    bool
}

const (
	DefaultWorkStartTime      = 9*time.Hour + 15*time.Minute
	DefaultWorkEndTime        = 17*time.Hour + 45*time.Minute
	DefaultBreakTimeMinutes   = 30
	DefaultOTThresholdMinutes = 30
)

// DefaultScheduleConfig is applied for columns left NULL on the staff row.
func DefaultScheduleConfig() ScheduleConfig {
	return ScheduleConfig{
		WorkStartTime:      DefaultWorkStartTime,
		WorkEndTime:        DefaultWorkEndTime,
		BreakTimeMinutes:   DefaultBreakTimeMinutes,
		OTThresholdMinutes: DefaultOTThresholdMinutes,
	}
}

func (s Staff) DepartmentName() string {
	if s.Department == nil {
		return ""
	}
	return *s.Department
}
