package provider

import (
	"context"
	"encoding/base64"
	"encoding/json"
	"net/url"
	"strings"
)

const mailgunDefaultEndpoint = "https://api.mailgun.net"

// Mailgun implements the Provider interface for the Mailgun messages API.
type Mailgun struct {
	api    espAPI
	domain string
}

// NewMailgun creates a Mailgun provider from the given configuration.
// Use Endpoint https://api.eu.mailgun.net for EU-hosted domains.
func NewMailgun(cfg ProviderConfig, client HTTPClient) *Mailgun {
	return &Mailgun{
		api:    newESPAPI("mailgun", cfg.Endpoint, mailgunDefaultEndpoint, "Basic "+basicAuth("api", cfg.APIKey), client),
		domain: cfg.Domain,
	}
}

func (m *Mailgun) GetName() string { return m.api.name }

// Send posts the message as a form. The returned ID is stripped of the
// angle brackets Mailgun wraps it in.
func (m *Mailgun) Send(ctx context.Context, msg *Message) (*DeliveryResult, error) {
	form := mailgunForm(msg)
	resp, err := m.api.post(ctx, "/v3/"+m.domain+"/messages", "application/x-www-form-urlencoded", []byte(form.Encode()), nil)
	if err != nil {
		return nil, err
	}

	var out struct {
		ID      string `json:"id"`
		Message string `json:"message"`
	}
	// Mailgun has already queued the message; a body we cannot read only
	// costs us the ID.
	_ = json.Unmarshal(resp.Body, &out)

	result := accepted(strings.Trim(out.ID, "<>"), resp)
	if out.Message != "" {
		result.Metadata["message"] = out.Message
	}
	return result, nil
}

// HealthCheck verifies the key and domain by fetching the domain record.
func (m *Mailgun) HealthCheck(ctx context.Context) error {
	return m.api.probe(ctx, "/v3/domains/"+m.domain)
}

func mailgunForm(msg *Message) url.Values {
	form := url.Values{
		"from":    {msg.From},
		"to":      {msg.To},
		"subject": {msg.Subject},
	}
	if msg.TextBody != "" {
		form.Set("text", msg.TextBody)
	}
	if msg.HTMLBody != "" {
		form.Set("html", msg.HTMLBody)
	}
	if msg.ID != "" {
		form.Set("v:healthmate_message_id", msg.ID)
	}
	for k, v := range msg.Headers {
		form.Set("h:"+k, v)
	}
	return form
}

// basicAuth encodes credentials for HTTP Basic Authentication.
func basicAuth(username, password string) string {
	return base64.StdEncoding.EncodeToString([]byte(username + ":" + password))
}
