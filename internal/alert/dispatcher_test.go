package alert

import (
	"context"
	"fmt"
	"strings"
	"sync"
	"sync/atomic"
	"testing"
	"time"

	"github.com/google/uuid"
	"github.com/rs/zerolog"

	"github.com/sungwon/healthmate/internal/notify"
	"github.com/sungwon/healthmate/internal/provider"
)

// mockDeliverer implements Deliverer via a function field and tracks
// concurrency.
type mockDeliverer struct {
	deliverFn func(ctx context.Context, env notify.Envelope) notify.Delivery

	mu        sync.Mutex
	envelopes []notify.Envelope
	inFlight  atomic.Int32
	maxFlight atomic.Int32
}

func (m *mockDeliverer) Deliver(ctx context.Context, env notify.Envelope) notify.Delivery {
	n := m.inFlight.Add(1)
	defer m.inFlight.Add(-1)
	for {
		cur := m.maxFlight.Load()
		if n <= cur || m.maxFlight.CompareAndSwap(cur, n) {
			break
		}
	}

	m.mu.Lock()
	m.envelopes = append(m.envelopes, env)
	m.mu.Unlock()

	if m.deliverFn != nil {
		return m.deliverFn(ctx, env)
	}
	return sent("id-" + env.To)
}

func sent(messageID string) notify.Delivery {
	return notify.Delivery{Attempts: []notify.Attempt{{
		Number:  1,
		Outcome: notify.Outcome{State: notify.StateSent, MessageID: messageID},
	}}}
}

func failed(code int, detail string) notify.Delivery {
	return notify.Delivery{Attempts: []notify.Attempt{{
		Number:  1,
		Outcome: notify.Outcome{State: notify.StateTerminalFailure, StatusCode: code, Detail: detail},
	}}}
}

func makeContacts(n int) []Contact {
	contacts := make([]Contact, n)
	for i := range contacts {
		contacts[i] = Contact{
			ID:    uuid.New(),
			Name:  fmt.Sprintf("Contact %d", i),
			Email: fmt.Sprintf("c%d@example.com", i),
		}
	}
	return contacts
}

func newTestDispatcher(del Deliverer, batchSize int, sleeps *[]time.Duration) *Dispatcher {
	d := NewDispatcher(del, DispatchConfig{BatchSize: batchSize, InterBatchDelay: 700 * time.Millisecond}, zerolog.Nop())
	d.sleep = func(_ context.Context, dur time.Duration) error {
		*sleeps = append(*sleeps, dur)
		return nil
	}
	return d
}

func TestNewDispatcher_Defaults(t *testing.T) {
	d := NewDispatcher(&mockDeliverer{}, DispatchConfig{}, zerolog.Nop())
	if d.batchSize != DefaultBatchSize {
		t.Errorf("batchSize = %d, want %d", d.batchSize, DefaultBatchSize)
	}
	if d.delay != DefaultInterBatchDelay {
		t.Errorf("delay = %v, want %v", d.delay, DefaultInterBatchDelay)
	}
}

func TestDispatch_Empty(t *testing.T) {
	del := &mockDeliverer{}
	var sleeps []time.Duration

	report := newTestDispatcher(del, 2, &sleeps).Dispatch(context.Background(), nil, Payload{})

	if report.TotalContacts != 0 || report.SuccessCount != 0 {
		t.Errorf("report = %+v, want zero counts", report)
	}
	if report.Results == nil || len(report.Results) != 0 {
		t.Errorf("Results = %#v, want empty non-nil slice", report.Results)
	}
	if len(del.envelopes) != 0 || len(sleeps) != 0 {
		t.Errorf("expected no sends and no sleeps, got %d sends %d sleeps", len(del.envelopes), len(sleeps))
	}
}

func TestDispatch_Batching(t *testing.T) {
	tests := []struct {
		name       string
		contacts   int
		batchSize  int
		wantSleeps int
	}{
		{name: "5 contacts batch 2", contacts: 5, batchSize: 2, wantSleeps: 2},
		{name: "4 contacts batch 2", contacts: 4, batchSize: 2, wantSleeps: 1},
		{name: "1 contact", contacts: 1, batchSize: 2, wantSleeps: 0},
		{name: "batch larger than list", contacts: 3, batchSize: 10, wantSleeps: 0},
		{name: "batch of one", contacts: 3, batchSize: 1, wantSleeps: 2},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			del := &mockDeliverer{}
			var sleeps []time.Duration

			report := newTestDispatcher(del, tt.batchSize, &sleeps).Dispatch(context.Background(), makeContacts(tt.contacts), Payload{})

			if len(sleeps) != tt.wantSleeps {
				t.Errorf("sleeps = %d, want %d", len(sleeps), tt.wantSleeps)
			}
			for _, s := range sleeps {
				if s != 700*time.Millisecond {
					t.Errorf("sleep = %v, want 700ms", s)
				}
			}
			if got := int(del.maxFlight.Load()); got > tt.batchSize {
				t.Errorf("max concurrent sends = %d, exceeds batch size %d", got, tt.batchSize)
			}
			if report.TotalContacts != tt.contacts || len(report.Results) != tt.contacts {
				t.Errorf("report sizes = %d/%d, want %d", report.TotalContacts, len(report.Results), tt.contacts)
			}
		})
	}
}

func TestDispatch_BatchBoundaries(t *testing.T) {
	// Sleeps are recorded between sends, so the send count observed at each
	// sleep identifies the batch boundaries.
	del := &mockDeliverer{}
	var sendsAtSleep []int
	d := NewDispatcher(del, DispatchConfig{BatchSize: 2}, zerolog.Nop())
	d.sleep = func(_ context.Context, _ time.Duration) error {
		del.mu.Lock()
		sendsAtSleep = append(sendsAtSleep, len(del.envelopes))
		del.mu.Unlock()
		return nil
	}

	d.Dispatch(context.Background(), makeContacts(5), Payload{})

	if len(sendsAtSleep) != 2 || sendsAtSleep[0] != 2 || sendsAtSleep[1] != 4 {
		t.Errorf("sends at each sleep = %v, want [2 4]", sendsAtSleep)
	}
	if len(del.envelopes) != 5 {
		t.Errorf("total sends = %d, want 5", len(del.envelopes))
	}
}

func TestDispatch_PreservesOrder(t *testing.T) {
	contacts := makeContacts(2)
	firstRelease := make(chan struct{})

	del := &mockDeliverer{deliverFn: func(_ context.Context, env notify.Envelope) notify.Delivery {
		if env.To == contacts[0].Email {
			// The first contact finishes only after the second one has.
			<-firstRelease
			return sent("first")
		}
		defer close(firstRelease)
		return sent("second")
	}}
	var sleeps []time.Duration

	report := newTestDispatcher(del, 2, &sleeps).Dispatch(context.Background(), contacts, Payload{})

	if report.Results[0].ContactName != contacts[0].Name || report.Results[0].MessageID != "first" {
		t.Errorf("Results[0] = %+v", report.Results[0])
	}
	if report.Results[1].ContactName != contacts[1].Name || report.Results[1].MessageID != "second" {
		t.Errorf("Results[1] = %+v", report.Results[1])
	}
}

func TestDispatch_PartialFailure(t *testing.T) {
	contacts := makeContacts(5)
	del := &mockDeliverer{deliverFn: func(_ context.Context, env notify.Envelope) notify.Delivery {
		if env.To == contacts[1].Email || env.To == contacts[3].Email {
			return failed(403, "You can only send testing emails to your own email address")
		}
		return sent("ok")
	}}
	var sleeps []time.Duration

	report := newTestDispatcher(del, 2, &sleeps).Dispatch(context.Background(), contacts, Payload{})

	if report.SuccessCount != 3 || report.FailedCount() != 2 {
		t.Errorf("success/failed = %d/%d, want 3/2", report.SuccessCount, report.FailedCount())
	}
	count := 0
	for i, r := range report.Results {
		if r.Success {
			count++
			if r.Detail != "" {
				t.Errorf("Results[%d] success with detail %q", i, r.Detail)
			}
		}
		if r.Email != contacts[i].Email || r.ContactID != contacts[i].ID {
			t.Errorf("Results[%d] not aligned with input", i)
		}
	}
	if count != report.SuccessCount {
		t.Errorf("SuccessCount = %d, counted %d", report.SuccessCount, count)
	}
	if r := report.Results[1]; r.StatusCode != 403 || !strings.Contains(r.Detail, "testing emails") {
		t.Errorf("Results[1] = %+v", r)
	}
}

func TestDispatch_RendersPerContact(t *testing.T) {
	del := &mockDeliverer{}
	var sleeps []time.Duration
	contacts := makeContacts(1)

	newTestDispatcher(del, 2, &sleeps).Dispatch(context.Background(), contacts, Payload{
		Message:    "<b>help</b>",
		SenderName: "Alice",
	})

	env := del.envelopes[0]
	if env.RecipientID != contacts[0].ID.String() {
		t.Errorf("RecipientID = %q", env.RecipientID)
	}
	if env.Notification.Subject != notify.AlertSubject {
		t.Errorf("Subject = %q", env.Notification.Subject)
	}
	if !strings.Contains(env.Notification.HTML, "Hi Contact 0,") || !strings.Contains(env.Notification.HTML, "&lt;b&gt;help&lt;/b&gt;") {
		t.Errorf("unexpected HTML: %s", env.Notification.HTML)
	}
}

// scriptedProvider returns statuses per recipient, one per call.
type scriptedProvider struct {
	mu     sync.Mutex
	script map[string][]int
	calls  map[string]int
}

func (p *scriptedProvider) Send(_ context.Context, msg *provider.Message) (*provider.DeliveryResult, error) {
	p.mu.Lock()
	defer p.mu.Unlock()
	statuses := p.script[msg.To]
	i := p.calls[msg.To]
	p.calls[msg.To]++
	code := statuses[len(statuses)-1]
	if i < len(statuses) {
		code = statuses[i]
	}
	if err := provider.ClassifyHTTPError("scripted", code, "body"); err != nil {
		return nil, err
	}
	return &provider.DeliveryResult{ProviderMessageID: msg.To}, nil
}

func (p *scriptedProvider) GetName() string                     { return "scripted" }
func (p *scriptedProvider) HealthCheck(_ context.Context) error { return nil }

func TestDispatch_WithRetryStateMachine(t *testing.T) {
	contacts := makeContacts(3)
	p := &scriptedProvider{
		script: map[string][]int{
			contacts[0].Email: {429},
			contacts[1].Email: {403},
			contacts[2].Email: {500, 200},
		},
		calls: map[string]int{},
	}
	noSleep := func(context.Context, time.Duration) error { return nil }
	deliverer := notify.NewDeliverer(p, notify.DelivererConfig{Retry: notify.DefaultRetryPolicy()}, zerolog.Nop(), notify.WithSleep(noSleep))
	d := NewDispatcher(deliverer, DispatchConfig{BatchSize: 2}, zerolog.Nop())
	d.sleep = noSleep

	report := d.Dispatch(context.Background(), contacts, Payload{SenderName: "Alice"})

	want := []struct {
		success  bool
		attempts int
	}{
		{false, notify.DefaultMaxRetries},
		{false, 1},
		{true, 2},
	}
	for i, w := range want {
		r := report.Results[i]
		if r.Success != w.success || len(r.Attempts) != w.attempts {
			t.Errorf("Results[%d] success=%v attempts=%d, want %v/%d", i, r.Success, len(r.Attempts), w.success, w.attempts)
		}
		if len(r.Attempts) > notify.DefaultMaxRetries {
			t.Errorf("Results[%d] exceeded max retries", i)
		}
	}
	if report.SuccessCount != 1 {
		t.Errorf("SuccessCount = %d, want 1", report.SuccessCount)
	}
}
