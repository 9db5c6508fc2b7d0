package provider

import (
	"fmt"
)

// NewProvider creates a provider instance from the given config and HTTP
// client, wrapped in a token bucket when cfg.RateLimit is set.
func NewProvider(cfg ProviderConfig, client HTTPClient) (Provider, error) {
	if err := cfg.Validate(); err != nil {
		return nil, fmt.Errorf("invalid provider config: %w", err)
	}
	if client == nil {
		client = NewHTTPClient(cfg.Timeout)
	}

	var p Provider
	switch cfg.Type {
	case "resend":
		p = NewResend(cfg, client)
	case "sendgrid":
		p = NewSendGrid(cfg, client)
	case "mailgun":
		p = NewMailgun(cfg, client)
	case "smtp":
		p = NewSMTP(cfg)
	case "stdout":
		p = NewStdout(cfg)
	default:
		return nil, fmt.Errorf("unsupported provider type: %s", cfg.Type)
	}

	return NewRateLimited(p, cfg.RateLimit, cfg.RateBurst), nil
}
