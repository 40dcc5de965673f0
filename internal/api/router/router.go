package router

import (
	"net/http"

	"github.com/go-chi/chi/v5"
	"github.com/go-chi/chi/v5/middleware"

	"github.com/slotwise/booking-platform/internal/http/handlers"
	httpmiddleware "github.com/slotwise/booking-platform/internal/http/middleware"
	"github.com/slotwise/booking-platform/pkg/logging"
)

// Config holds router configuration.
type Config struct {
	Logger        *logging.Logger
	Availability  *handlers.AvailabilityHandler
	Reservations  *handlers.ReservationsHandler
	ScheduleAdmin *handlers.ScheduleAdminHandler
	Health        *handlers.HealthHandler

	AdminAuthSecret    string
	MetricsHandler     http.Handler
	CORSAllowedOrigins []string

	// RateLimitPerSecond <= 0 disables per-IP rate limiting.
	RateLimitPerSecond float64
	RateLimitBurst     int
}

// New creates a Chi router with all routes configured.
func New(cfg *Config) http.Handler {
	r := chi.NewRouter()

	r.Use(middleware.RequestID)
	r.Use(middleware.RealIP)
	r.Use(middleware.Recoverer)
	r.Use(middleware.Compress(5))
	if len(cfg.CORSAllowedOrigins) > 0 {
		r.Use(httpmiddleware.CORS(cfg.CORSAllowedOrigins))
	}
	if cfg.Logger != nil {
		r.Use(httpmiddleware.RequestLogger(cfg.Logger))
	}
	if cfg.RateLimitPerSecond > 0 {
		r.Use(httpmiddleware.RateLimit(cfg.RateLimitPerSecond, cfg.RateLimitBurst))
	}

	// Public endpoints (probes, metrics)
	r.Group(func(public chi.Router) {
		if cfg.Health != nil {
			public.Get("/healthz", cfg.Health.Live)
			public.Get("/readyz", cfg.Health.Ready)
		}
		if cfg.MetricsHandler != nil {
			public.Handle("/metrics", cfg.MetricsHandler)
		}
	})

	// Tenant-scoped API routes
	r.Route("/v1", func(v1 chi.Router) {
		v1.Use(httpmiddleware.RequireTenant())

		if cfg.Availability != nil {
			v1.Route("/availability", func(r chi.Router) {
				r.Get("/slots", cfg.Availability.GetSlots)
				r.Get("/check", cfg.Availability.Check)
			})
		}
		if cfg.Reservations != nil {
			v1.Route("/reservations", func(r chi.Router) {
				r.Post("/", cfg.Reservations.Reserve)
				r.Get("/", cfg.Reservations.List)
				r.Route("/{reservationID}", func(r chi.Router) {
					r.Get("/", cfg.Reservations.Get)
					r.Post("/reschedule", cfg.Reservations.Reschedule)
					r.Post("/status", cfg.Reservations.UpdateStatus)
				})
			})
		}
	})

	// Admin routes (protected by HMAC JWT)
	if cfg.AdminAuthSecret != "" {
		r.Route("/admin", func(admin chi.Router) {
			admin.Use(httpmiddleware.AdminJWT(cfg.AdminAuthSecret))
			admin.Use(httpmiddleware.RequireTenant())

			if cfg.Availability != nil {
				admin.Get("/calendar", cfg.Availability.CalendarDay)
			}
			if cfg.ScheduleAdmin != nil {
				admin.Route("/staff/{staffID}", func(r chi.Router) {
					r.Get("/schedule", cfg.ScheduleAdmin.GetWeekly)
					r.Put("/schedule", cfg.ScheduleAdmin.PutWeekly)
					r.Post("/holidays", cfg.ScheduleAdmin.AddHoliday)
					r.Delete("/holidays/{date}", cfg.ScheduleAdmin.RemoveHoliday)
				})
				admin.Get("/settings", cfg.ScheduleAdmin.GetSettings)
				admin.Put("/settings", cfg.ScheduleAdmin.PutSettings)
			}
		})
	}

	return r
}
