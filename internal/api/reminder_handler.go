package api

import (
	"context"
	"errors"
	"net/http"

	"github.com/sungwon/healthmate/internal/logger"
	"github.com/sungwon/healthmate/internal/reminder"
)

// ReminderSender sends one medication reminder.
type ReminderSender interface {
	Send(ctx context.Context, r reminder.Reminder) (string, error)
}

type reminderRequest struct {
	Email        string `json:"email"`
	MedicineName string `json:"medicineName"`
	Dosage       string `json:"dosage"`
	TimeOfDay    string `json:"timeOfDay"`
}

// MedicationReminderHandler handles POST /api/v1/medication-reminders.
func MedicationReminderHandler(sender ReminderSender) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		var req reminderRequest
		if err := decodeJSON(r, &req); err != nil {
			respondError(w, http.StatusBadRequest, "invalid request body")
			return
		}

		messageID, err := sender.Send(r.Context(), reminder.Reminder{
			Email:        req.Email,
			MedicineName: req.MedicineName,
			Dosage:       req.Dosage,
			TimeOfDay:    req.TimeOfDay,
		})
		switch {
		case err == nil:
			respondJSON(w, http.StatusOK, map[string]interface{}{
				"success":   true,
				"messageId": messageID,
			})
		case errors.Is(err, reminder.ErrInvalidReminder):
			respondError(w, http.StatusBadRequest, err.Error())
		case errors.Is(err, reminder.ErrDeliveryFailed):
			respondError(w, http.StatusBadGateway, reminder.ErrDeliveryFailed.Error())
		default:
			log := logger.FromContext(r.Context())
			log.Error().Err(err).Msg("medication reminder failed")
			respondError(w, http.StatusInternalServerError, "internal server error")
		}
	}
}
