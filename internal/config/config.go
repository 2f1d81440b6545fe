package config

import (
	"errors"
	"fmt"
	"log/slog"
	"os"
	"strconv"
	"strings"
	"time"

	"github.com/joho/godotenv"
)

type Config struct {
	Database   DatabaseConfig
	App        AppConfig
	Attendance AttendanceConfig
	Leave      LeaveConfig
	CORS       CORSConfig
}

type DatabaseConfig struct {
	Host     string
	Port     int
	User     string
	Password string
	Name     string
	SSLMode  string
	MaxConns int32
	MinConns int32

	// AutoMigrate applies the embedded schema on startup.
	AutoMigrate bool
}

// AppConfig holds application configuration
type AppConfig struct {
	Port     int
	Env      string
	LogLevel string
	Version  string
	Timezone string
}

// AttendanceConfig holds the check-in/check-out rules
type AttendanceConfig struct {
	MinCheckoutInterval time.Duration
	ManualBackdateDays  int
}

// LeaveConfig holds fallbacks used when global settings lack the leave window keys.
type LeaveConfig struct {
	MaxPastMonths   int
	MaxFutureMonths int
	Workers         int
}

type CORSConfig struct {
	AllowedOrigins []string
}

func Load() (*Config, error) {
	// .env is optional; deployments usually inject the environment directly.
	if err := godotenv.Load(); err != nil && !errors.Is(err, os.ErrNotExist) {
		return nil, fmt.Errorf("error loading .env file: %w", err)
	}

	config := &Config{}

	// Database configuration
	dbPort, err := strconv.Atoi(getEnv("DB_PORT", "5432"))
	if err != nil {
		return nil, fmt.Errorf("invalid DB_PORT: %w", err)
	}
	maxConns, err := strconv.Atoi(getEnv("DB_MAX_CONNS", "25"))
	if err != nil {
		return nil, fmt.Errorf("invalid DB_MAX_CONNS: %w", err)
	}
	minConns, err := strconv.Atoi(getEnv("DB_MIN_CONNS", "5"))
	if err != nil {
		return nil, fmt.Errorf("invalid DB_MIN_CONNS: %w", err)
	}

	autoMigrate, err := strconv.ParseBool(getEnv("DB_AUTO_MIGRATE", "false"))
	if err != nil {
		return nil, fmt.Errorf("invalid DB_AUTO_MIGRATE: %w", err)
	}

	config.Database = DatabaseConfig{
		Host:     getEnv("DB_HOST", "localhost"),
		Port:     dbPort,
		User:     getEnv("DB_USER", "postgres"),
		Password: getEnv("DB_PASSWORD", ""),
		Name:     getEnv("DB_NAME", "face_attendance"),
		SSLMode:  getEnv("DB_SSL_MODE", "disable"),
		MaxConns: int32(maxConns),
		MinConns: int32(minConns),

		AutoMigrate: autoMigrate,
	}

	// Application configuration
	appPort, err := strconv.Atoi(getEnv("APP_PORT", "8080"))
	if err != nil {
		return nil, fmt.Errorf("invalid APP_PORT: %w", err)
	}

	config.App = AppConfig{
		Port:     appPort,
		Env:      getEnv("APP_ENV", "development"),
		LogLevel: getEnv("LOG_LEVEL", "info"),
		Version:  getEnv("APP_VERSION", "v1.0.0"),
		Timezone: getEnv("APP_TIMEZONE", getEnv("TZ", "Asia/Singapore")),
	}

	// Attendance configuration
	minInterval, err := time.ParseDuration(getEnv("ATTENDANCE_MIN_CHECKOUT_INTERVAL", "5m"))
	if err != nil {
		return nil, fmt.Errorf("invalid ATTENDANCE_MIN_CHECKOUT_INTERVAL: %w", err)
	}
	backdateDays, err := strconv.Atoi(getEnv("ATTENDANCE_MANUAL_BACKDATE_DAYS", "60"))
	if err != nil {
		return nil, fmt.Errorf("invalid ATTENDANCE_MANUAL_BACKDATE_DAYS: %w", err)
	}

	config.Attendance = AttendanceConfig{
		MinCheckoutInterval: minInterval,
		ManualBackdateDays:  backdateDays,
	}

	// Leave configuration
	pastMonths, err := strconv.Atoi(getEnv("LEAVE_MAX_PAST_MONTHS", "6"))
	if err != nil {
		return nil, fmt.Errorf("invalid LEAVE_MAX_PAST_MONTHS: %w", err)
	}
	futureMonths, err := strconv.Atoi(getEnv("LEAVE_MAX_FUTURE_MONTHS", "6"))
	if err != nil {
		return nil, fmt.Errorf("invalid LEAVE_MAX_FUTURE_MONTHS: %w", err)
	}
	workers, err := strconv.Atoi(getEnv("LEAVE_WORKERS", "4"))
	if err != nil {
		return nil, fmt.Errorf("invalid LEAVE_WORKERS: %w", err)
	}

	config.Leave = LeaveConfig{
		MaxPastMonths:   pastMonths,
		MaxFutureMonths: futureMonths,
		Workers:         workers,
	}

	config.CORS = CORSConfig{
		AllowedOrigins: getEnvSlice("CORS_ALLOWED_ORIGINS", []string{"http://localhost:3000"}),
	}

	// Validate required fields
	if err := config.Validate(); err != nil {
		return nil, fmt.Errorf("configuration validation failed: %w", err)
	}

	return config, nil
}

// Validate validates the configuration
func (c *Config) Validate() error {
	if c.Database.Password == "" {
		return fmt.Errorf("DB_PASSWORD is required")
	}
	if c.Database.MinConns > c.Database.MaxConns {
		return fmt.Errorf("DB_MIN_CONNS must not exceed DB_MAX_CONNS")
	}
	if _, err := time.LoadLocation(c.App.Timezone); err != nil {
		return fmt.Errorf("invalid timezone %q: %w", c.App.Timezone, err)
	}
	if c.Attendance.MinCheckoutInterval <= 0 {
		return fmt.Errorf("ATTENDANCE_MIN_CHECKOUT_INTERVAL must be positive")
	}
	if c.Attendance.ManualBackdateDays <= 0 {
		return fmt.Errorf("ATTENDANCE_MANUAL_BACKDATE_DAYS must be positive")
	}
	if c.Leave.MaxPastMonths < 0 || c.Leave.MaxFutureMonths < 0 {
		return fmt.Errorf("leave window months must not be negative")
	}
	if c.Leave.Workers <= 0 {
		return fmt.Errorf("LEAVE_WORKERS must be positive")
	}
	return nil
}

// DatabaseURL returns the PostgreSQL connection string
func (c *Config) DatabaseURL() string {
	return fmt.Sprintf("postgres://%s:%s@%s:%d/%s?sslmode=%s",
		c.Database.User,
		c.Database.Password,
		c.Database.Host,
		c.Database.Port,
		c.Database.Name,
		c.Database.SSLMode,
	)
}

// Location resolves the configured attendance timezone.
func (c *Config) Location() *time.Location {
	loc, err := time.LoadLocation(c.App.Timezone)
	if err != nil {
		return time.UTC
	}
	return loc
}

// SlogLevel maps LOG_LEVEL onto a slog level, defaulting to info.
func (c *Config) SlogLevel() slog.Level {
	switch strings.ToLower(c.App.LogLevel) {
	case "debug":
		return slog.LevelDebug
	case "warn", "warning":
		return slog.LevelWarn
	case "error":
		return slog.LevelError
	default:
		return slog.LevelInfo
	}
}

func getEnv(key, fallback string) string {
	if value := os.Getenv(key); value != "" {
		return value
	}
	return fallback
}

func getEnvSlice(env string, fallback []string) []string {
	value := getEnv(env, "")
	if value == "" {
		return fallback
	}
	var result []string
	for _, item := range strings.Split(value, ",") {
		if item = strings.TrimSpace(item); item != "" {
			result = append(result, item)
		}
	}
	return result
}
