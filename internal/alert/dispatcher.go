package alert

import (
	"context"
	"sync"
	"time"

	"github.com/rs/zerolog"

	"github.com/sungwon/healthmate/internal/metrics"
	"github.com/sungwon/healthmate/internal/notify"
)

// Dispatch defaults keep a sustained rate under 2 requests per second.
const (
	DefaultBatchSize       = 2
	DefaultInterBatchDelay = 700 * time.Millisecond
)

// Deliverer sends one notification to one recipient with retries.
type Deliverer interface {
	Deliver(ctx context.Context, env notify.Envelope) notify.Delivery
}

// DispatchConfig controls batching.
type DispatchConfig struct {
	BatchSize       int           `mapstructure:"batch_size"`
	InterBatchDelay time.Duration `mapstructure:"inter_batch_delay"`
}

// Dispatcher partitions contacts into batches, delivers each batch
// concurrently, and waits between batches.
type Dispatcher struct {
	deliverer Deliverer
	batchSize int
	delay     time.Duration
	sleep     func(ctx context.Context, d time.Duration) error
	log       zerolog.Logger
}

// NewDispatcher creates a Dispatcher. Zero config values select the defaults.
func NewDispatcher(deliverer Deliverer, cfg DispatchConfig, log zerolog.Logger) *Dispatcher {
	d := &Dispatcher{
		deliverer: deliverer,
		batchSize: cfg.BatchSize,
		delay:     cfg.InterBatchDelay,
		sleep:     notify.SleepContext,
		log:       log,
	}
	if d.batchSize <= 0 {
		d.batchSize = DefaultBatchSize
	}
	if d.delay <= 0 {
		d.delay = DefaultInterBatchDelay
	}
	return d
}

// Dispatch notifies every contact and returns a report in input order. It
// always returns a report: per-contact failures are recorded, not returned.
func (d *Dispatcher) Dispatch(ctx context.Context, contacts []Contact, payload Payload) *Report {
	report := &Report{
		TotalContacts: len(contacts),
		Results:       make([]Result, len(contacts)),
	}
	if len(contacts) == 0 {
		return report
	}

	content := payload.content()
	for start := 0; start < len(contacts); start += d.batchSize {
		end := min(start+d.batchSize, len(contacts))

		var wg sync.WaitGroup
		for i := start; i < end; i++ {
			wg.Add(1)
			go func(i int) {
				defer wg.Done()
				report.Results[i] = d.deliverTo(ctx, contacts[i], content)
			}(i)
		}
		wg.Wait()
		metrics.AlertBatchesTotal.Inc()

		if end < len(contacts) {
			if err := d.sleep(ctx, d.delay); err != nil {
				d.log.Warn().Err(err).Int("next_batch_start", end).Msg("inter-batch delay interrupted")
			}
		}
	}

	for _, r := range report.Results {
		if r.Success {
			report.SuccessCount++
		}
	}
	return report
}

func (d *Dispatcher) deliverTo(ctx context.Context, c Contact, content notify.AlertContent) Result {
	delivery := d.deliverer.Deliver(ctx, notify.Envelope{
		RecipientID:  c.ID.String(),
		To:           c.Email,
		Notification: notify.RenderAlert(content, c.Name),
	})

	final := delivery.Final()
	result := Result{
		ContactID:   c.ID,
		ContactName: c.Name,
		Email:       c.Email,
		Success:     delivery.Success(),
		MessageID:   final.MessageID,
		Attempts:    delivery.Attempts,
	}
	if !result.Success {
		result.Detail = final.Detail
		result.StatusCode = final.StatusCode
	}
	return result
}
