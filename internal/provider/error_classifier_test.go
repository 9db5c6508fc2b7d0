package provider

import (
	"context"
	"errors"
	"fmt"
	"net"
	"testing"
)

func TestClassifyHTTPError(t *testing.T) {
	tests := []struct {
		name       string
		statusCode int
		body       string
		wantNil    bool
		wantKind   FailureKind
	}{
		{name: "200 returns nil", statusCode: 200, wantNil: true},
		{name: "202 returns nil", statusCode: 202, wantNil: true},
		{name: "299 returns nil", statusCode: 299, wantNil: true},
		{name: "429 is retryable", statusCode: 429, body: "too many requests", wantKind: KindRetryable},
		{name: "500 is retryable", statusCode: 500, body: "internal server error", wantKind: KindRetryable},
		{name: "502 is retryable", statusCode: 502, body: "bad gateway", wantKind: KindRetryable},
		{name: "503 is retryable", statusCode: 503, body: "unavailable", wantKind: KindRetryable},
		{name: "400 is terminal", statusCode: 400, body: "invalid email", wantKind: KindTerminal},
		{name: "401 is unauthorized", statusCode: 401, body: "invalid api key", wantKind: KindUnauthorized},
		{name: "403 sandbox rejection is terminal", statusCode: 403, body: "you can only send testing emails to your own address", wantKind: KindTerminal},
		{name: "404 is terminal", statusCode: 404, body: "not found", wantKind: KindTerminal},
		{name: "422 malformed recipient is terminal", statusCode: 422, body: "invalid `to` field", wantKind: KindTerminal},
		{name: "302 is terminal", statusCode: 302, body: "", wantKind: KindTerminal},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			pe := ClassifyHTTPError("test", tt.statusCode, tt.body)
			if tt.wantNil {
				if pe != nil {
					t.Fatalf("expected nil, got %+v", pe)
				}
				return
			}
			if pe == nil {
				t.Fatal("expected ProviderError, got nil")
			}
			if pe.Kind != tt.wantKind {
				t.Errorf("Kind = %v, want %v", pe.Kind, tt.wantKind)
			}
			if pe.StatusCode != tt.statusCode {
				t.Errorf("StatusCode = %d, want %d", pe.StatusCode, tt.statusCode)
			}
			if pe.Provider != "test" {
				t.Errorf("Provider = %q, want %q", pe.Provider, "test")
			}
		})
	}
}

func TestClassifyHTTPError_EmptyBody(t *testing.T) {
	pe := ClassifyHTTPError("resend", 500, "   ")
	if pe.Message != "empty response body" {
		t.Errorf("Message = %q, want %q", pe.Message, "empty response body")
	}
	if pe.Error() != "resend: empty response body" {
		t.Errorf("Error() = %q", pe.Error())
	}
}

func TestFailureKind_Retryable(t *testing.T) {
	tests := []struct {
		kind FailureKind
		want bool
	}{
		{KindRetryable, true},
		{KindUnavailable, true},
		{KindTerminal, false},
		{KindUnauthorized, false},
	}
	for _, tt := range tests {
		t.Run(tt.kind.String(), func(t *testing.T) {
			if got := tt.kind.Retryable(); got != tt.want {
				t.Errorf("%v.Retryable() = %v, want %v", tt.kind, got, tt.want)
			}
		})
	}
}

func TestKindOf(t *testing.T) {
	t.Run("provider error", func(t *testing.T) {
		err := ClassifyHTTPError("resend", 403, "forbidden")
		if KindOf(err) != KindTerminal {
			t.Errorf("KindOf() = %v, want terminal", KindOf(err))
		}
		if IsRetryable(err) {
			t.Error("expected 403 to be non-retryable")
		}
	})

	t.Run("wrapped provider error", func(t *testing.T) {
		err := fmt.Errorf("send: %w", ClassifyHTTPError("resend", 429, "slow down"))
		if KindOf(err) != KindRetryable {
			t.Errorf("KindOf() = %v, want retryable", KindOf(err))
		}
	})

	t.Run("unknown error is unavailable", func(t *testing.T) {
		err := errors.New("boom")
		if KindOf(err) != KindUnavailable {
			t.Errorf("KindOf() = %v, want unavailable", KindOf(err))
		}
		if !IsRetryable(err) {
			t.Error("expected unknown errors to be retryable")
		}
	})
}

type timeoutErr struct{}

func (timeoutErr) Error() string   { return "i/o timeout" }
func (timeoutErr) Timeout() bool   { return true }
func (timeoutErr) Temporary() bool { return true }

var _ net.Error = timeoutErr{}

func TestClassifyTransportError(t *testing.T) {
	tests := []struct {
		name       string
		err        error
		wantDetail string
	}{
		{"deadline exceeded", context.DeadlineExceeded, DetailTimeout},
		{"wrapped deadline", fmt.Errorf("post: %w", context.DeadlineExceeded), DetailTimeout},
		{"net timeout", timeoutErr{}, DetailTimeout},
		{"connection refused", errors.New("dial tcp: connection refused"), "dial tcp: connection refused"},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			pe := ClassifyTransportError("resend", tt.err)
			if pe.Kind != KindUnavailable {
				t.Errorf("Kind = %v, want unavailable", pe.Kind)
			}
			if pe.StatusCode != 0 {
				t.Errorf("StatusCode = %d, want 0", pe.StatusCode)
			}
			if pe.Message != tt.wantDetail {
				t.Errorf("Message = %q, want %q", pe.Message, tt.wantDetail)
			}
		})
	}
}
