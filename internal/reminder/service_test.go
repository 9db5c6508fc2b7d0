package reminder

import (
	"context"
	"errors"
	"testing"

	"github.com/rs/zerolog"

	"github.com/sungwon/healthmate/internal/notify"
)

type mockDeliverer struct {
	deliverFn func(ctx context.Context, env notify.Envelope) notify.Delivery
	calls     []notify.Envelope
}

func (m *mockDeliverer) Deliver(ctx context.Context, env notify.Envelope) notify.Delivery {
	m.calls = append(m.calls, env)
	return m.deliverFn(ctx, env)
}

func outcome(o notify.Outcome) notify.Delivery {
	return notify.Delivery{Attempts: []notify.Attempt{{Number: 1, Outcome: o}}}
}

func TestReminder_Validate(t *testing.T) {
	tests := []struct {
		name    string
		r       Reminder
		wantErr bool
	}{
		{name: "valid", r: Reminder{Email: "me@example.com", MedicineName: "Aspirin"}},
		{name: "missing email", r: Reminder{MedicineName: "Aspirin"}, wantErr: true},
		{name: "bad email", r: Reminder{Email: "not-an-email", MedicineName: "Aspirin"}, wantErr: true},
		{name: "missing medicine", r: Reminder{Email: "me@example.com", MedicineName: "  "}, wantErr: true},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			err := tt.r.Validate()
			if (err != nil) != tt.wantErr {
				t.Fatalf("Validate() error = %v, wantErr %v", err, tt.wantErr)
			}
			if err != nil && !errors.Is(err, ErrInvalidReminder) {
				t.Errorf("expected ErrInvalidReminder, got %v", err)
			}
		})
	}
}

func TestService_Send(t *testing.T) {
	del := &mockDeliverer{deliverFn: func(context.Context, notify.Envelope) notify.Delivery {
		return outcome(notify.Outcome{State: notify.StateSent, MessageID: "re_123"})
	}}
	svc := NewService(del, zerolog.Nop())

	id, err := svc.Send(context.Background(), Reminder{
		Email:        " me@example.com ",
		MedicineName: "Metformin",
		Dosage:       "500mg",
		TimeOfDay:    "08:00",
	})
	if err != nil {
		t.Fatalf("Send() error = %v", err)
	}
	if id != "re_123" {
		t.Errorf("id = %q, want re_123", id)
	}
	if len(del.calls) != 1 {
		t.Fatalf("calls = %d, want 1", len(del.calls))
	}
	env := del.calls[0]
	if env.To != "me@example.com" {
		t.Errorf("To = %q", env.To)
	}
	if env.Notification.Subject != "Medication Reminder: Metformin" {
		t.Errorf("Subject = %q", env.Notification.Subject)
	}
}

func TestService_Send_ValidationSkipsDelivery(t *testing.T) {
	del := &mockDeliverer{}
	_, err := NewService(del, zerolog.Nop()).Send(context.Background(), Reminder{Email: "me@example.com"})

	if !errors.Is(err, ErrInvalidReminder) {
		t.Fatalf("error = %v, want ErrInvalidReminder", err)
	}
	if len(del.calls) != 0 {
		t.Error("expected no delivery")
	}
}

func TestService_Send_ProviderFailure(t *testing.T) {
	del := &mockDeliverer{deliverFn: func(context.Context, notify.Envelope) notify.Delivery {
		return outcome(notify.Outcome{State: notify.StateTerminalFailure, StatusCode: 403, Detail: "domain not verified"})
	}}

	_, err := NewService(del, zerolog.Nop()).Send(context.Background(), Reminder{Email: "me@example.com", MedicineName: "Aspirin"})

	if !errors.Is(err, ErrDeliveryFailed) {
		t.Fatalf("error = %v, want ErrDeliveryFailed", err)
	}
}
