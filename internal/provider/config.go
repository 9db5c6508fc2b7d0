package provider

import (
	"errors"
	"time"
)

// ProviderConfig holds configuration for an ESP provider.
type ProviderConfig struct {
	// Type identifies the provider: "resend", "sendgrid", "mailgun", "smtp", "stdout".
	Type string `mapstructure:"type"`

	// APIKey is the authentication credential for the provider. For SMTP it
	// is the account password.
	APIKey string `mapstructure:"api_key"`

	// Endpoint overrides the default API URL (useful for testing). For SMTP
	// it is the relay host[:port].
	Endpoint string `mapstructure:"endpoint"`

	// Timeout is the maximum duration for a single API call.
	Timeout time.Duration `mapstructure:"timeout"`

	// Domain is the Mailgun sending domain.
	Domain string `mapstructure:"domain"`

	// SMTP-specific fields.
	Username string `mapstructure:"username"`
	TLSMode  string `mapstructure:"tls_mode"` // starttls (default), tls, none

	// RateLimit is the ESP's requests-per-second ceiling; zero disables the
	// provider-side token bucket.
	RateLimit float64 `mapstructure:"rate_limit"`
	RateBurst int     `mapstructure:"rate_burst"`
}

const defaultTimeout = 10 * time.Second

// Validate checks that required fields are set based on provider type.
func (c *ProviderConfig) Validate() error {
	if c.Type == "" {
		return errors.New("provider type is required")
	}

	if c.Timeout == 0 {
		c.Timeout = defaultTimeout
	}

	switch c.Type {
	case "resend":
		if c.APIKey == "" {
			return errors.New("resend: api_key is required")
		}
	case "sendgrid":
		if c.APIKey == "" {
			return errors.New("sendgrid: api_key is required")
		}
	case "mailgun":
		if c.APIKey == "" {
			return errors.New("mailgun: api_key is required")
		}
		if c.Domain == "" {
			return errors.New("mailgun: domain is required")
		}
	case "smtp":
		if c.Endpoint == "" {
			return errors.New("smtp: endpoint is required")
		}
		switch c.TLSMode {
		case "", "starttls", "tls", "none":
		default:
			return errors.New("smtp: tls_mode must be starttls, tls or none")
		}
	case "stdout":
		// No configuration required.
	default:
		return errors.New("unknown provider type: " + c.Type)
	}

	return nil
}
