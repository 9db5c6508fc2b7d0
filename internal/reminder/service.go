// Package reminder sends single-recipient medication reminder emails.
package reminder

import (
	"context"
	"errors"
	"fmt"
	"net/mail"
	"strings"

	"github.com/rs/zerolog"

	"github.com/sungwon/healthmate/internal/logger"
	"github.com/sungwon/healthmate/internal/metrics"
	"github.com/sungwon/healthmate/internal/notify"
)

var (
	// ErrInvalidReminder wraps validation failures.
	ErrInvalidReminder = errors.New("invalid reminder")
	// ErrDeliveryFailed is returned when the provider did not accept the email.
	ErrDeliveryFailed = errors.New("failed to send email")
)

// Reminder is one medication reminder request.
type Reminder struct {
	Email        string
	MedicineName string
	Dosage       string
	TimeOfDay    string
}

// Validate checks required fields.
func (r Reminder) Validate() error {
	if strings.TrimSpace(r.Email) == "" {
		return fmt.Errorf("%w: email is required", ErrInvalidReminder)
	}
	if _, err := mail.ParseAddress(strings.TrimSpace(r.Email)); err != nil {
		return fmt.Errorf("%w: email is not a valid address", ErrInvalidReminder)
	}
	if strings.TrimSpace(r.MedicineName) == "" {
		return fmt.Errorf("%w: medicineName is required", ErrInvalidReminder)
	}
	return nil
}

// Deliverer sends one notification with retries.
type Deliverer interface {
	Deliver(ctx context.Context, env notify.Envelope) notify.Delivery
}

// Service renders and sends medication reminders.
type Service struct {
	deliverer Deliverer
	log       zerolog.Logger
}

// NewService creates a reminder Service.
func NewService(deliverer Deliverer, log zerolog.Logger) *Service {
	return &Service{deliverer: deliverer, log: log}
}

// Send delivers r and returns the provider message ID.
func (s *Service) Send(ctx context.Context, r Reminder) (string, error) {
	if err := r.Validate(); err != nil {
		return "", err
	}

	log := s.log
	if id := logger.CorrelationIDFromContext(ctx); id != "" {
		log = log.With().Str("correlation_id", id).Logger()
	}

	delivery := s.deliverer.Deliver(ctx, notify.Envelope{
		To: strings.TrimSpace(r.Email),
		Notification: notify.RenderReminder(notify.ReminderContent{
			MedicineName: r.MedicineName,
			Dosage:       r.Dosage,
			TimeOfDay:    r.TimeOfDay,
		}),
	})

	final := delivery.Final()
	if !delivery.Success() {
		metrics.RemindersTotal.WithLabelValues("failed").Inc()
		log.Error().
			Int("attempts", len(delivery.Attempts)).
			Int("status_code", final.StatusCode).
			Str("detail", final.Detail).
			Msg("medication reminder not delivered")
		return "", fmt.Errorf("%w: %s", ErrDeliveryFailed, final.Detail)
	}

	metrics.RemindersTotal.WithLabelValues("sent").Inc()
	log.Info().Str("provider_message_id", final.MessageID).Msg("medication reminder sent")
	return final.MessageID, nil
}
