package api

import (
	"github.com/go-chi/chi/v5"
	"github.com/go-chi/cors"
	"github.com/prometheus/client_golang/prometheus/promhttp"
	"github.com/rs/zerolog"

	"github.com/sungwon/healthmate/internal/auth"
)

// RouterConfig holds all dependencies needed to build the HTTP router.
type RouterConfig struct {
	Log       zerolog.Logger
	DB        Pinger
	Health    ProviderHealth // optional
	Identity  auth.IdentityResolver
	Alerts    AlertTrigger
	Limiter   AlertLimiter // optional; nil disables the alert cooldown
	Reminders ReminderSender

	AllowedOrigins []string
	CORSMaxAge     int
}

// NewRouter creates a chi.Mux with all routes, middleware, and handlers configured.
func NewRouter(cfg RouterConfig) *chi.Mux {
	r := chi.NewRouter()

	origins := cfg.AllowedOrigins
	if len(origins) == 0 {
		origins = []string{"*"}
	}

	// Global middleware
	r.Use(cors.Handler(cors.Options{
		AllowedOrigins:   origins,
		AllowedMethods:   []string{"GET", "POST", "OPTIONS"},
		AllowedHeaders:   []string{"Authorization", "X-Client-Info", "Apikey", "Content-Type", "X-Correlation-ID"},
		ExposedHeaders:   []string{"X-Correlation-ID", "Retry-After"},
		AllowCredentials: false,
		MaxAge:           cfg.CORSMaxAge,
	}))
	r.Use(CorrelationIDMiddleware(cfg.Log))
	r.Use(LoggingMiddleware(cfg.Log))
	r.Use(RecoverMiddleware(cfg.Log))
	r.Use(MetricsMiddleware)

	// Health and metrics endpoints (no auth required)
	r.Get("/healthz", HealthzHandler())
	r.Get("/readyz", ReadyzHandler(cfg.DB, cfg.Health))
	r.Handle("/metrics", promhttp.Handler())

	r.Route("/api/v1", func(r chi.Router) {
		r.Use(auth.BearerAuth(cfg.Identity))

		r.Post("/emergency-alerts", EmergencyAlertHandler(cfg.Alerts, cfg.Limiter))
		r.Post("/medication-reminders", MedicationReminderHandler(cfg.Reminders))
	})

	return r
}
