package api

import (
	"context"
	"errors"
	"math"
	"net/http"
	"strconv"
	"time"

	"github.com/google/uuid"

	"github.com/sungwon/healthmate/internal/alert"
	"github.com/sungwon/healthmate/internal/auth"
	"github.com/sungwon/healthmate/internal/logger"
)

// AlertTrigger dispatches an alert for an authenticated user.
type AlertTrigger interface {
	Trigger(ctx context.Context, id alert.Identity, req alert.Request) (*alert.Report, error)
}

// AlertLimiter enforces the per-user alert cooldown.
type AlertLimiter interface {
	AcquireAlertSlot(ctx context.Context, userID uuid.UUID) (time.Duration, error)
	ReleaseAlertSlot(ctx context.Context, userID uuid.UUID) error
}

type alertRequest struct {
	Message  string `json:"message"`
	Location string `json:"location"`
	UserName string `json:"userName"`
}

type alertResultResponse struct {
	Contact   string `json:"contact"`
	Email     string `json:"email"`
	Success   bool   `json:"success"`
	Detail    string `json:"detail,omitempty"`
	MessageID string `json:"messageId,omitempty"`
	Attempts  int    `json:"attempts"`
}

type alertResponse struct {
	Success       bool                  `json:"success"`
	TotalContacts int                   `json:"totalContacts"`
	SuccessCount  int                   `json:"successCount"`
	Results       []alertResultResponse `json:"results"`
}

func toAlertResponse(report *alert.Report) alertResponse {
	results := make([]alertResultResponse, len(report.Results))
	for i, r := range report.Results {
		results[i] = alertResultResponse{
			Contact:   r.ContactName,
			Email:     r.Email,
			Success:   r.Success,
			Detail:    r.Detail,
			MessageID: r.MessageID,
			Attempts:  len(r.Attempts),
		}
	}
	return alertResponse{
		Success:       true,
		TotalContacts: report.TotalContacts,
		SuccessCount:  report.SuccessCount,
		Results:       results,
	}
}

// EmergencyAlertHandler handles POST /api/v1/emergency-alerts.
// limiter may be nil, which disables the cooldown.
func EmergencyAlertHandler(trigger AlertTrigger, limiter AlertLimiter) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		log := logger.FromContext(r.Context())

		identity, ok := auth.IdentityFromContext(r.Context())
		if !ok {
			respondError(w, http.StatusUnauthorized, "Unauthorized")
			return
		}

		var req alertRequest
		if err := decodeJSON(r, &req); err != nil {
			respondError(w, http.StatusBadRequest, "invalid request body")
			return
		}

		if limiter != nil {
			retryAfter, err := limiter.AcquireAlertSlot(r.Context(), identity.UserID)
			switch {
			case errors.Is(err, auth.ErrAlertCooldown):
				w.Header().Set("Retry-After", strconv.Itoa(int(math.Ceil(retryAfter.Seconds()))))
				respondError(w, http.StatusTooManyRequests, err.Error())
				return
			case err != nil:
				// Cooldown store unavailable: an alert must still go out.
				log.Warn().Err(err).Str("user_id", identity.UserID.String()).Msg("alert cooldown unavailable")
			}
		}

		// Keep delivering if the caller disconnects mid-dispatch.
		ctx := context.WithoutCancel(r.Context())

		report, err := trigger.Trigger(ctx, alert.Identity{
			UserID:      identity.UserID,
			DisplayName: identity.Name,
		}, alert.Request{
			Message:  req.Message,
			Location: req.Location,
			UserName: req.UserName,
		})
		if err != nil {
			if limiter != nil {
				if relErr := limiter.ReleaseAlertSlot(ctx, identity.UserID); relErr != nil {
					log.Warn().Err(relErr).Msg("release alert slot")
				}
			}
			switch {
			case errors.Is(err, alert.ErrNoContacts):
				respondError(w, http.StatusBadRequest, "No emergency contacts found")
			default:
				log.Error().Err(err).Str("user_id", identity.UserID.String()).Msg("emergency alert failed")
				respondError(w, http.StatusInternalServerError, "internal server error")
			}
			return
		}

		respondJSON(w, http.StatusOK, toAlertResponse(report))
	}
}
