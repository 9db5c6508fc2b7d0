package api

import (
	"context"
	"net/http"
	"time"

	"github.com/sungwon/healthmate/internal/provider"
)

// Pinger reports whether a backing store is reachable.
type Pinger interface {
	Ping(ctx context.Context) error
}

// ProviderHealth exposes the provider health checker state.
type ProviderHealth interface {
	AllHealthy() bool
	GetAllStatuses() map[string]provider.HealthStatus
}

type providerStatus struct {
	Healthy   bool      `json:"healthy"`
	LastCheck time.Time `json:"last_check"`
	LastError string    `json:"last_error,omitempty"`
}

// HealthzHandler handles GET /healthz.
// Always returns 200 OK with {"status":"ok"}.
func HealthzHandler() http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		respondJSON(w, http.StatusOK, map[string]string{"status": "ok"})
	}
}

// ReadyzHandler handles GET /readyz.
// Checks database connectivity and, when health is non-nil, provider health.
// Returns 200 if ready, 503 with Retry-After header otherwise.
func ReadyzHandler(db Pinger, health ProviderHealth) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		if err := db.Ping(r.Context()); err != nil {
			w.Header().Set("Retry-After", "30")
			respondError(w, http.StatusServiceUnavailable, "database unavailable")
			return
		}

		if health == nil {
			respondJSON(w, http.StatusOK, map[string]string{"status": "ok"})
			return
		}

		providers := make(map[string]providerStatus)
		for name, s := range health.GetAllStatuses() {
			providers[name] = providerStatus{Healthy: s.Healthy, LastCheck: s.LastCheck, LastError: s.LastError}
		}
		if !health.AllHealthy() {
			w.Header().Set("Retry-After", "30")
			respondJSON(w, http.StatusServiceUnavailable, map[string]interface{}{
				"error":     "email provider unavailable",
				"providers": providers,
			})
			return
		}
		respondJSON(w, http.StatusOK, map[string]interface{}{
			"status":    "ok",
			"providers": providers,
		})
	}
}
