package provider

import (
	"context"
	"encoding/json"
	"fmt"
)

const (
	resendDefaultEndpoint = "https://api.resend.com"
	resendSendPath        = "/emails"
	resendDomainsPath     = "/domains"
)

// Resend implements the Provider interface for the Resend HTTP API.
type Resend struct {
	api espAPI
}

// NewResend creates a Resend provider from the given configuration.
func NewResend(cfg ProviderConfig, client HTTPClient) *Resend {
	return &Resend{
		api: newESPAPI("resend", cfg.Endpoint, resendDefaultEndpoint, "Bearer "+cfg.APIKey, client),
	}
}

func (r *Resend) GetName() string { return r.api.name }

// Send delivers a message via the Resend send-email endpoint. msg.ID is
// sent as the Idempotency-Key so a retry after a lost response does not
// produce a second email.
func (r *Resend) Send(ctx context.Context, msg *Message) (*DeliveryResult, error) {
	body, err := json.Marshal(resendPayloadFor(msg))
	if err != nil {
		return nil, fmt.Errorf("resend: marshal request: %w", err)
	}

	var extra map[string]string
	if msg.ID != "" {
		extra = map[string]string{"Idempotency-Key": msg.ID}
	}
	resp, err := r.api.post(ctx, resendSendPath, "application/json", body, extra)
	if err != nil {
		return nil, err
	}

	var out resendResponse
	if err := json.Unmarshal(resp.Body, &out); err != nil {
		// 2xx without the documented body: treat as not confirmed.
		return nil, &ProviderError{
			Provider:   r.api.name,
			StatusCode: resp.StatusCode,
			Message:    "decode response: " + err.Error(),
			Kind:       KindRetryable,
		}
	}
	return accepted(out.ID, resp), nil
}

// HealthCheck verifies Resend API connectivity by listing sending domains.
func (r *Resend) HealthCheck(ctx context.Context) error {
	return r.api.probe(ctx, resendDomainsPath)
}

// resendPayload matches the Resend POST /emails JSON schema.
type resendPayload struct {
	From    string            `json:"from"`
	To      []string          `json:"to"`
	Subject string            `json:"subject"`
	HTML    string            `json:"html,omitempty"`
	Text    string            `json:"text,omitempty"`
	Headers map[string]string `json:"headers,omitempty"`
}

type resendResponse struct {
	ID string `json:"id"`
}

func resendPayloadFor(msg *Message) resendPayload {
	return resendPayload{
		From:    msg.From,
		To:      []string{msg.To},
		Subject: msg.Subject,
		HTML:    msg.HTMLBody,
		Text:    msg.TextBody,
		Headers: msg.Headers,
	}
}
