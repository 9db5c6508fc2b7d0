package provider

import (
	"context"
	"encoding/json"
	"fmt"
)

const (
	sendgridDefaultEndpoint = "https://api.sendgrid.com"
	sendgridSendPath        = "/v3/mail/send"
	sendgridScopesPath      = "/v3/scopes"
)

// SendGrid implements the Provider interface for the SendGrid v3 API.
type SendGrid struct {
	api espAPI
}

// NewSendGrid creates a SendGrid provider from the given configuration.
func NewSendGrid(cfg ProviderConfig, client HTTPClient) *SendGrid {
	return &SendGrid{
		api: newESPAPI("sendgrid", cfg.Endpoint, sendgridDefaultEndpoint, "Bearer "+cfg.APIKey, client),
	}
}

func (s *SendGrid) GetName() string { return s.api.name }

// Send delivers a message via the v3 Mail Send API. SendGrid answers 202
// with an empty body; the message ID comes back in X-Message-Id.
func (s *SendGrid) Send(ctx context.Context, msg *Message) (*DeliveryResult, error) {
	body, err := json.Marshal(sendgridPayloadFor(msg))
	if err != nil {
		return nil, fmt.Errorf("sendgrid: marshal request: %w", err)
	}

	resp, err := s.api.post(ctx, sendgridSendPath, "application/json", body, nil)
	if err != nil {
		return nil, err
	}
	return accepted(resp.Headers["X-Message-Id"], resp), nil
}

// HealthCheck verifies the API key by listing its scopes.
func (s *SendGrid) HealthCheck(ctx context.Context) error {
	return s.api.probe(ctx, sendgridScopesPath)
}

// sendgridPayload matches the SendGrid v3 mail/send JSON schema.
type sendgridPayload struct {
	Personalizations []sendgridPersonalization `json:"personalizations"`
	From             sendgridAddress           `json:"from"`
	Subject          string                    `json:"subject"`
	Content          []sendgridContent         `json:"content"`
	Headers          map[string]string         `json:"headers,omitempty"`
	CustomArgs       map[string]string         `json:"custom_args,omitempty"`
}

type sendgridPersonalization struct {
	To []sendgridAddress `json:"to"`
}

type sendgridAddress struct {
	Email string `json:"email"`
}

type sendgridContent struct {
	Type  string `json:"type"`
	Value string `json:"value"`
}

func sendgridPayloadFor(msg *Message) sendgridPayload {
	// text/plain must precede text/html.
	var content []sendgridContent
	if msg.TextBody != "" {
		content = append(content, sendgridContent{Type: "text/plain", Value: msg.TextBody})
	}
	if msg.HTMLBody != "" {
		content = append(content, sendgridContent{Type: "text/html", Value: msg.HTMLBody})
	}
	if len(content) == 0 {
		content = []sendgridContent{{Type: "text/plain", Value: " "}}
	}

	p := sendgridPayload{
		Personalizations: []sendgridPersonalization{
			{To: []sendgridAddress{{Email: msg.To}}},
		},
		From:    sendgridAddress{Email: msg.From},
		Subject: msg.Subject,
		Content: content,
		Headers: msg.Headers,
	}
	if msg.ID != "" {
		p.CustomArgs = map[string]string{"healthmate_message_id": msg.ID}
	}
	return p
}
