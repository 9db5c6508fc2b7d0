package provider

import (
	"context"
	"testing"
)

// mockHTTPClient implements HTTPClient, recording the last request.
type mockHTTPClient struct {
	doFn    func(ctx context.Context, req *HTTPRequest) (*HTTPResponse, error)
	lastReq *HTTPRequest
}

func (m *mockHTTPClient) Do(ctx context.Context, req *HTTPRequest) (*HTTPResponse, error) {
	m.lastReq = req
	if m.doFn != nil {
		return m.doFn(ctx, req)
	}
	return &HTTPResponse{StatusCode: 200, Body: []byte(`{"id":"msg-1"}`)}, nil
}

func TestNewProvider(t *testing.T) {
	tests := []struct {
		name     string
		cfg      ProviderConfig
		wantName string
		wantErr  bool
	}{
		{name: "resend", cfg: ProviderConfig{Type: "resend", APIKey: "re_key"}, wantName: "resend"},
		{name: "sendgrid", cfg: ProviderConfig{Type: "sendgrid", APIKey: "sg_key"}, wantName: "sendgrid"},
		{name: "mailgun", cfg: ProviderConfig{Type: "mailgun", APIKey: "mg_key", Domain: "mg.example.com"}, wantName: "mailgun"},
		{name: "smtp", cfg: ProviderConfig{Type: "smtp", Endpoint: "localhost:2525", TLSMode: "none"}, wantName: "smtp"},
		{name: "stdout", cfg: ProviderConfig{Type: "stdout"}, wantName: "stdout"},
		{name: "invalid config", cfg: ProviderConfig{Type: "resend"}, wantErr: true},
		{name: "unknown type", cfg: ProviderConfig{Type: "fax"}, wantErr: true},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			p, err := NewProvider(tt.cfg, &mockHTTPClient{})
			if tt.wantErr {
				if err == nil {
					t.Fatal("NewProvider() expected error, got nil")
				}
				return
			}
			if err != nil {
				t.Fatalf("NewProvider() error = %v", err)
			}
			if p.GetName() != tt.wantName {
				t.Errorf("GetName() = %q, want %q", p.GetName(), tt.wantName)
			}
			if _, limited := p.(*RateLimited); limited {
				t.Error("expected no rate limiter when rate_limit is zero")
			}
		})
	}
}

func TestNewProvider_WrapsRateLimiter(t *testing.T) {
	p, err := NewProvider(ProviderConfig{Type: "resend", APIKey: "re_key", RateLimit: 2}, &mockHTTPClient{})
	if err != nil {
		t.Fatalf("NewProvider() error = %v", err)
	}
	rl, ok := p.(*RateLimited)
	if !ok {
		t.Fatalf("expected *RateLimited, got %T", p)
	}
	if rl.GetName() != "resend" {
		t.Errorf("GetName() = %q, want resend", rl.GetName())
	}
}

func TestNewProvider_DefaultHTTPClient(t *testing.T) {
	p, err := NewProvider(ProviderConfig{Type: "resend", APIKey: "re_key"}, nil)
	if err != nil {
		t.Fatalf("NewProvider() error = %v", err)
	}
	r, ok := p.(*Resend)
	if !ok {
		t.Fatalf("expected *Resend, got %T", p)
	}
	if _, ok := r.api.client.(*DefaultHTTPClient); !ok {
		t.Errorf("expected *DefaultHTTPClient, got %T", r.api.client)
	}
}
