package provider

import (
	"context"
	"time"
)

// Provider is an outbound email service. Send is called concurrently, one
// goroutine per contact, so implementations must not share mutable state.
type Provider interface {
	// Send hands msg to the service. A failed send returns *ProviderError.
	Send(ctx context.Context, msg *Message) (*DeliveryResult, error)
	GetName() string
	// HealthCheck is a cheap authenticated probe; nil means usable.
	HealthCheck(ctx context.Context) error
}

// Message is one email to one recipient. ID is ours, not the ESP's; it
// doubles as the idempotency key where the ESP supports one.
type Message struct {
	ID       string
	From     string
	To       string
	Subject  string
	TextBody string
	HTMLBody string
	Headers  map[string]string
}

// DeliveryResult is what the ESP told us when it accepted a message.
type DeliveryResult struct {
	ProviderMessageID string
	Timestamp         time.Time
	Metadata          map[string]string
}

// HTTPClient is the transport the HTTP-based providers send through.
// Tests substitute a fake.
type HTTPClient interface {
	Do(ctx context.Context, req *HTTPRequest) (*HTTPResponse, error)
}

type HTTPRequest struct {
	Method  string
	URL     string
	Headers map[string]string
	Body    []byte
}

type HTTPResponse struct {
	StatusCode int
	Headers    map[string]string
	Body       []byte
}
