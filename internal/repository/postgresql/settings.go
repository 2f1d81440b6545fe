package postgresql

import (
	"context"
	"errors"
	"fmt"
	"strconv"
	"strings"

	"github.com/cmlabs-hris/attendance-backend-go/internal/domain/settings"
	"github.com/cmlabs-hris/attendance-backend-go/internal/pkg/database"
	"github.com/jackc/pgx/v5"
)

type settingsRepository struct {
	db *database.DB
}

// GetInt implements settings.SettingsRepository.
func (r *settingsRepository) GetInt(ctx context.Context, key string, fallback int) (int, error) {
	q := GetQuerier(ctx, r.db)

	var value string
	err := q.QueryRow(ctx, `SELECT setting_value FROM global_settings WHERE setting_key = $1`, key).Scan(&value)
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return fallback, nil
		}
		if isUndefinedTable(err) {
			return fallback, nil
		}
		return fallback, fmt.Errorf("failed to get setting %s: %w", key, err)
	}

	n, err := strconv.Atoi(strings.TrimSpace(value))
	if err != nil {
		return fallback, nil
	}
	return n, nil
}

func NewSettingsRepository(db *database.DB) settings.SettingsRepository {
	return &settingsRepository{db: db}
}
