package alert

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/google/uuid"
	"github.com/rs/zerolog"

	"github.com/sungwon/healthmate/internal/logger"
	"github.com/sungwon/healthmate/internal/metrics"
)

var (
	// ErrNoContacts is returned when the user has no emergency contacts.
	ErrNoContacts = errors.New("no emergency contacts found")
	// ErrContactLookup is returned when the contact store cannot be read.
	ErrContactLookup = errors.New("failed to fetch emergency contacts")
)

// ContactStore lists a user's emergency contacts, oldest first.
type ContactStore interface {
	ListContacts(ctx context.Context, userID uuid.UUID) ([]Contact, error)
}

// Record summarises one dispatched alert for the alert log.
type Record struct {
	ID            uuid.UUID
	UserID        uuid.UUID
	Message       string
	Location      string
	TotalContacts int
	SuccessCount  int
	CreatedAt     time.Time
}

// Recorder persists alert summaries.
type Recorder interface {
	RecordAlert(ctx context.Context, rec Record) error
}

// Identity is the authenticated caller.
type Identity struct {
	UserID      uuid.UUID
	DisplayName string
}

// Request is the caller-supplied part of an alert.
type Request struct {
	Message  string
	Location string
	UserName string
}

// Service resolves contacts for a user and dispatches an alert to them.
type Service struct {
	contacts   ContactStore
	recorder   Recorder
	dispatcher *Dispatcher
	log        zerolog.Logger
}

// NewService creates a Service. recorder may be nil.
func NewService(contacts ContactStore, recorder Recorder, dispatcher *Dispatcher, log zerolog.Logger) *Service {
	return &Service{
		contacts:   contacts,
		recorder:   recorder,
		dispatcher: dispatcher,
		log:        log,
	}
}

// Trigger sends an alert to every contact of id. A non-nil Report means the
// dispatch ran; individual contacts may still have failed.
func (s *Service) Trigger(ctx context.Context, id Identity, req Request) (*Report, error) {
	log := s.logFor(ctx).With().Stringer("user_id", id.UserID).Logger()

	contacts, err := s.contacts.ListContacts(ctx, id.UserID)
	if err != nil {
		log.Error().Err(err).Msg("failed to list emergency contacts")
		metrics.AlertsTotal.WithLabelValues("lookup_failed").Inc()
		return nil, fmt.Errorf("%w: %v", ErrContactLookup, err)
	}
	if len(contacts) == 0 {
		log.Info().Msg("alert rejected: no emergency contacts")
		metrics.AlertsTotal.WithLabelValues("no_contacts").Inc()
		return nil, ErrNoContacts
	}

	payload := Payload{
		Message:    strings.TrimSpace(req.Message),
		Location:   strings.TrimSpace(req.Location),
		SenderName: strings.TrimSpace(req.UserName),
	}
	if payload.SenderName == "" {
		payload.SenderName = strings.TrimSpace(id.DisplayName)
	}

	log.Info().Int("contacts", len(contacts)).Msg("dispatching emergency alert")

	start := time.Now()
	report := s.dispatcher.Dispatch(ctx, contacts, payload)
	elapsed := time.Since(start)

	metrics.AlertsTotal.WithLabelValues("dispatched").Inc()
	metrics.AlertContacts.Observe(float64(report.TotalContacts))
	metrics.AlertDispatchDuration.Observe(elapsed.Seconds())
	metrics.AlertRecipientsTotal.WithLabelValues("sent").Add(float64(report.SuccessCount))
	metrics.AlertRecipientsTotal.WithLabelValues("failed").Add(float64(report.FailedCount()))

	log.Info().
		Int("total_contacts", report.TotalContacts).
		Int("success_count", report.SuccessCount).
		Dur("elapsed", elapsed).
		Msg("emergency alert dispatched")

	s.record(ctx, log, id.UserID, payload, report)
	return report, nil
}

// record writes the alert log row. Failures are logged and otherwise ignored.
func (s *Service) record(ctx context.Context, log zerolog.Logger, userID uuid.UUID, p Payload, report *Report) {
	if s.recorder == nil {
		return
	}
	rec := Record{
		ID:            uuid.New(),
		UserID:        userID,
		Message:       p.Message,
		Location:      p.Location,
		TotalContacts: report.TotalContacts,
		SuccessCount:  report.SuccessCount,
		CreatedAt:     time.Now().UTC(),
	}
	if err := s.recorder.RecordAlert(ctx, rec); err != nil {
		log.Error().Err(err).Stringer("alert_id", rec.ID).Msg("failed to record alert")
	}
}

func (s *Service) logFor(ctx context.Context) zerolog.Logger {
	if id := logger.CorrelationIDFromContext(ctx); id != "" {
		return s.log.With().Str("correlation_id", id).Logger()
	}
	return s.log
}
