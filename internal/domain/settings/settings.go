package settings

import "context"

const (
	KeyLeaveMaxPastMonths   = "leave_max_past_months"
	KeyLeaveMaxFutureMonths = "leave_max_future_months"
)

// SettingsRepository reads global_settings.
type SettingsRepository interface {
	// GetInt returns fallback when the key is missing or not an integer.
	GetInt(ctx context.Context, key string, fallback int) (int, error)
}
