package notify

import (
	"context"
	"errors"
	"time"

	"github.com/google/uuid"
	"github.com/rs/zerolog"

	"github.com/sungwon/healthmate/internal/logger"
	"github.com/sungwon/healthmate/internal/metrics"
	"github.com/sungwon/healthmate/internal/provider"
)

// DefaultAttemptTimeout bounds a single provider call.
const DefaultAttemptTimeout = 10 * time.Second

// Envelope addresses a rendered notification to one recipient.
type Envelope struct {
	// ID identifies the message across retries. Generated when empty.
	ID string
	// RecipientID is recorded on every attempt, typically the contact ID.
	RecipientID  string
	To           string
	Notification Notification
	Headers      map[string]string
}

// DelivererConfig configures a Deliverer.
type DelivererConfig struct {
	From           string
	AttemptTimeout time.Duration
	Retry          RetryPolicy
}

// Deliverer runs the per-recipient retry state machine against a provider.
// It holds no per-call state and is safe for concurrent use.
type Deliverer struct {
	provider       provider.Provider
	from           string
	attemptTimeout time.Duration
	policy         RetryPolicy
	log            zerolog.Logger

	sleep   func(ctx context.Context, d time.Duration) error
	backoff func(attempt int) time.Duration
	now     func() time.Time
}

// Option customises a Deliverer.
type Option func(*Deliverer)

// WithSleep replaces the backoff sleep. Tests use it to avoid real delays.
func WithSleep(fn func(ctx context.Context, d time.Duration) error) Option {
	return func(d *Deliverer) { d.sleep = fn }
}

// WithBackoff replaces the backoff computation.
func WithBackoff(fn func(attempt int) time.Duration) Option {
	return func(d *Deliverer) { d.backoff = fn }
}

// NewDeliverer creates a Deliverer sending through p.
func NewDeliverer(p provider.Provider, cfg DelivererConfig, log zerolog.Logger, opts ...Option) *Deliverer {
	d := &Deliverer{
		provider:       p,
		from:           cfg.From,
		attemptTimeout: cfg.AttemptTimeout,
		policy:         cfg.Retry.withDefaults(),
		log:            log,
		sleep:          SleepContext,
		now:            time.Now,
	}
	if d.attemptTimeout <= 0 {
		d.attemptTimeout = DefaultAttemptTimeout
	}
	d.backoff = d.policy.NextBackoff
	for _, opt := range opts {
		opt(d)
	}
	return d
}

// Policy returns the effective retry policy.
func (d *Deliverer) Policy() RetryPolicy { return d.policy }

// ProviderName returns the name of the underlying provider.
func (d *Deliverer) ProviderName() string { return d.provider.GetName() }

// Deliver sends env until it is sent, fails terminally, or exhausts the
// retry budget. It never returns an error: the last attempt in the returned
// Delivery carries the final state.
func (d *Deliverer) Deliver(ctx context.Context, env Envelope) Delivery {
	if env.ID == "" {
		env.ID = uuid.NewString()
	}
	log := d.logFor(ctx).With().
		Str("recipient_id", env.RecipientID).
		Str("message_id", env.ID).
		Logger()

	var out Delivery
	for n := 1; ; n++ {
		outcome := d.attempt(ctx, env)

		retry := outcome.State == StateRetryableFailure && d.policy.ShouldRetry(n)
		if outcome.State == StateRetryableFailure && !retry {
			outcome.State = StateTerminalFailure
		}

		out.Attempts = append(out.Attempts, Attempt{
			ContactID: env.RecipientID,
			Number:    n,
			Outcome:   outcome,
			Timestamp: d.now(),
		})

		ev := log.Debug()
		if outcome.State == StateTerminalFailure {
			ev = log.Warn()
		}
		ev.Int("attempt", n).
			Str("state", outcome.State.String()).
			Int("status_code", outcome.StatusCode).
			Str("detail", outcome.Detail).
			Msg("delivery attempt")

		if !retry {
			return out
		}

		if err := d.sleep(ctx, d.backoff(n)); err != nil {
			last := &out.Attempts[len(out.Attempts)-1].Outcome
			last.State = StateTerminalFailure
			log.Warn().Err(err).Int("attempt", n).Msg("retry abandoned")
			return out
		}
	}
}

func (d *Deliverer) attempt(ctx context.Context, env Envelope) Outcome {
	actx, cancel := context.WithTimeout(ctx, d.attemptTimeout)
	defer cancel()

	name := d.provider.GetName()
	start := time.Now()
	result, err := d.provider.Send(actx, &provider.Message{
		ID:       env.ID,
		From:     d.from,
		To:       env.To,
		Subject:  env.Notification.Subject,
		Headers:  env.Headers,
		TextBody: env.Notification.Text,
		HTMLBody: env.Notification.HTML,
	})
	metrics.DeliverySendDuration.WithLabelValues(name).Observe(time.Since(start).Seconds())

	if err == nil {
		metrics.DeliveryAttemptsTotal.WithLabelValues(name, "sent").Inc()
		return Outcome{State: StateSent, MessageID: result.ProviderMessageID}
	}

	outcome := Outcome{Kind: provider.KindOf(err), Detail: err.Error()}
	var pe *provider.ProviderError
	if errors.As(err, &pe) {
		outcome.StatusCode = pe.StatusCode
		outcome.Detail = pe.Message
	}
	// The attempt deadline fired while the caller's context is still live.
	if errors.Is(actx.Err(), context.DeadlineExceeded) && ctx.Err() == nil {
		outcome.Kind = provider.KindUnavailable
		outcome.StatusCode = 0
		outcome.Detail = provider.DetailTimeout
	}

	if outcome.Kind.Retryable() {
		outcome.State = StateRetryableFailure
	} else {
		outcome.State = StateTerminalFailure
	}
	metrics.DeliveryAttemptsTotal.WithLabelValues(name, outcome.Kind.String()).Inc()
	return outcome
}

func (d *Deliverer) logFor(ctx context.Context) zerolog.Logger {
	if id := logger.CorrelationIDFromContext(ctx); id != "" {
		return d.log.With().Str("correlation_id", id).Logger()
	}
	return d.log
}

// SleepContext waits for dur or until ctx is done, whichever comes first.
func SleepContext(ctx context.Context, dur time.Duration) error {
	if dur <= 0 {
		return ctx.Err()
	}
	t := time.NewTimer(dur)
	defer t.Stop()
	select {
	case <-ctx.Done():
		return ctx.Err()
	case <-t.C:
		return nil
	}
}
