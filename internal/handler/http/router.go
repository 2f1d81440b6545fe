package http

import (
	"log/slog"

	"github.com/go-chi/chi/v5"
	chiMiddleware "github.com/go-chi/chi/v5/middleware"
	"github.com/go-chi/cors"
	"github.com/go-chi/httplog/v3"
)

func NewRouter(
	logger *slog.Logger,
	allowedOrigins []string,
	attendanceHandler AttendanceHandler,
	leaveHandler LeaveHandler,
	reportHandler ReportHandler,
) *chi.Mux {
	r := chi.NewRouter()

	r.Use(cors.Handler(cors.Options{
		AllowedOrigins:   allowedOrigins,
		AllowCredentials: true,
		AllowedMethods:   []string{"GET", "POST", "OPTIONS"},
		AllowedHeaders:   []string{"Accept", "Content-Type", "X-CSRF-Token"},
		ExposedHeaders:   []string{"Content-Disposition"},
		MaxAge:           300,
	}))

	r.Use(httplog.RequestLogger(logger, &httplog.Options{
		Level:  slog.LevelDebug,
		Schema: httplog.SchemaECS,
	}))

	r.Use(chiMiddleware.CleanPath)
	r.Use(chiMiddleware.Recoverer)
	r.Use(chiMiddleware.Heartbeat("/"))

	r.Route("/api/v1", func(r chi.Router) {
		r.Route("/attendance", func(r chi.Router) {
			r.Get("/", attendanceHandler.List)
			r.Get("/export", attendanceHandler.Export)
			r.Get("/stream", attendanceHandler.Stream)
			r.Post("/face-event", attendanceHandler.FaceEvent)
			r.Post("/check-in", attendanceHandler.CheckIn)
			r.Post("/check-out", attendanceHandler.CheckOut)
		})

		r.Route("/leave", func(r chi.Router) {
			r.Post("/record", leaveHandler.RecordLeave)
		})

		r.Route("/reports", func(r chi.Router) {
			r.Get("/calendar-summary", reportHandler.CalendarSummary)
			r.Route("/detailed-summary", func(r chi.Router) {
				r.Get("/", reportHandler.DetailedSummary)
				r.Get("/export", reportHandler.ExportDetailedSummary)
			})
		})
	})
	return r
}
