package main

import (
	"context"
	"fmt"
	"log/slog"
	"net/http"
	"os"

	"github.com/cmlabs-hris/attendance-backend-go/internal/config"
	appHTTP "github.com/cmlabs-hris/attendance-backend-go/internal/handler/http"
	"github.com/cmlabs-hris/attendance-backend-go/internal/pkg/database"
	"github.com/cmlabs-hris/attendance-backend-go/internal/pkg/sse"
	"github.com/cmlabs-hris/attendance-backend-go/internal/repository/postgresql"
	attendanceService "github.com/cmlabs-hris/attendance-backend-go/internal/service/attendance"
	leaveService "github.com/cmlabs-hris/attendance-backend-go/internal/service/leave"
	reportService "github.com/cmlabs-hris/attendance-backend-go/internal/service/report"
	"github.com/cmlabs-hris/attendance-backend-go/internal/service/worktime"
	"github.com/cmlabs-hris/attendance-backend-go/migrations"
	"github.com/go-chi/httplog/v3"
)

func main() {
	cfg, err := config.Load()
	if err != nil {
		fmt.Println("Error loading config:", err)
		os.Exit(1)
	}

	logFormat := httplog.SchemaECS.Concise(false)
	logger := slog.New(slog.NewJSONHandler(os.Stdout, &slog.HandlerOptions{
		Level:       cfg.SlogLevel(),
		ReplaceAttr: logFormat.ReplaceAttr,
	})).With(
		slog.String("app", "face-attendance"),
		slog.String("version", cfg.App.Version),
		slog.String("env", cfg.App.Env),
	)
	slog.SetDefault(logger)

	db, err := database.NewPostgreSQLDB(cfg.DatabaseURL(), database.PoolOptions{
		MaxConns: cfg.Database.MaxConns,
		MinConns: cfg.Database.MinConns,
	})
	if err != nil {
		logger.Error("Error connecting to database", "error", err)
		os.Exit(1)
	}
	defer db.Close()

	if cfg.Database.AutoMigrate {
		if err := migrations.Apply(context.Background(), db.Pool); err != nil {
			logger.Error("Error applying migrations", "error", err)
			os.Exit(1)
		}
		logger.Info("Migrations applied")
	}

	loc := cfg.Location()

	attendanceRepo := postgresql.NewAttendanceRepository(db, loc)
	staffRepo := postgresql.NewStaffRepository(db)
	calendarRepo := postgresql.NewCalendarRepository(db, loc)
	settingsRepo := postgresql.NewSettingsRepository(db)
	transactor := postgresql.NewTransactor(db)

	calculator := worktime.NewCalculator(loc)
	eventHub := sse.NewHub()

	attendanceSvc := attendanceService.NewAttendanceService(
		transactor,
		attendanceRepo,
		staffRepo,
		calculator,
		attendanceService.Options{
			MinCheckoutInterval: cfg.Attendance.MinCheckoutInterval,
			ManualBackdateDays:  cfg.Attendance.ManualBackdateDays,
			Logger:              logger.With(slog.String("component", "attendance")),
			Events:              eventHub,
		},
	)
	leaveSvc := leaveService.NewLeaveService(
		transactor,
		attendanceRepo,
		staffRepo,
		settingsRepo,
		calculator,
		leaveService.Options{
			MaxPastMonths:   cfg.Leave.MaxPastMonths,
			MaxFutureMonths: cfg.Leave.MaxFutureMonths,
			Workers:         cfg.Leave.Workers,
			Logger:          logger.With(slog.String("component", "leave")),
		},
	)
	reportSvc := reportService.NewReportService(
		attendanceRepo,
		staffRepo,
		calendarRepo,
		calculator,
		reportService.Options{
			Logger: logger.With(slog.String("component", "report")),
		},
	)

	attendanceHandler := appHTTP.NewAttendanceHandler(attendanceSvc, eventHub)
	leaveHandler := appHTTP.NewLeaveHandler(leaveSvc)
	reportHandler := appHTTP.NewReportHandler(reportSvc, loc)

	router := appHTTP.NewRouter(
		logger,
		cfg.CORS.AllowedOrigins,
		attendanceHandler,
		leaveHandler,
		reportHandler,
	)

	port := fmt.Sprintf(":%d", cfg.App.Port)
	logger.Info("Server running", "addr", "http://localhost"+port, "timezone", loc.String())
	if err := http.ListenAndServe(port, router); err != nil {
		logger.Error("Server error", "error", err)
		os.Exit(1)
	}
}
