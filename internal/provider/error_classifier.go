package provider

import (
	"context"
	"errors"
	"net"
	"strings"
)

// FailureKind is the closed set of delivery failure classes. It is decided
// once, where the provider response is received, so retry logic never has
// to look at raw status codes.
type FailureKind int

const (
	// KindRetryable covers rate limiting (429) and server errors (5xx).
	KindRetryable FailureKind = iota + 1
	// KindTerminal covers client-side rejections that will not change on retry.
	KindTerminal
	// KindUnauthorized means the ESP rejected our credentials.
	KindUnauthorized
	// KindUnavailable means the ESP could not be reached or timed out.
	KindUnavailable
)

func (k FailureKind) String() string {
	switch k {
	case KindRetryable:
		return "retryable"
	case KindTerminal:
		return "terminal"
	case KindUnauthorized:
		return "unauthorized"
	case KindUnavailable:
		return "unavailable"
	default:
		return "unknown"
	}
}

// Retryable reports whether a failure of this kind may succeed on a later attempt.
func (k FailureKind) Retryable() bool {
	return k == KindRetryable || k == KindUnavailable
}

// DetailTimeout is the detail recorded when an attempt exceeds its deadline.
const DetailTimeout = "timeout"

// ProviderError wraps an ESP API error with classification metadata.
type ProviderError struct {
	// Provider is the name of the ESP that returned the error.
	Provider string
	// StatusCode is the HTTP (or SMTP reply) status code. Zero when no
	// response was received.
	StatusCode int
	// Message is the error description from the ESP API.
	Message string
	// Kind classifies the failure.
	Kind FailureKind
}

func (e *ProviderError) Error() string {
	return e.Provider + ": " + e.Message
}

// KindOf returns the FailureKind of err. Errors that are not a
// *ProviderError are treated as unavailable, so they are retried rather
// than silently dropped.
func KindOf(err error) FailureKind {
	var pe *ProviderError
	if errors.As(err, &pe) {
		return pe.Kind
	}
	return KindUnavailable
}

// IsRetryable returns true if the error is a temporary failure that may
// succeed on retry.
func IsRetryable(err error) bool {
	return KindOf(err).Retryable()
}

// ClassifyHTTPError creates a ProviderError from an HTTP status code and
// response body. Returns nil for 2xx codes.
func ClassifyHTTPError(providerName string, statusCode int, body string) *ProviderError {
	pe := &ProviderError{
		Provider:   providerName,
		StatusCode: statusCode,
		Message:    strings.TrimSpace(body),
	}
	if pe.Message == "" {
		pe.Message = "empty response body"
	}

	switch {
	case statusCode >= 200 && statusCode < 300:
		return nil

	case statusCode == 429:
		pe.Kind = KindRetryable

	case statusCode >= 500:
		pe.Kind = KindRetryable

	case statusCode == 401:
		pe.Kind = KindUnauthorized

	case statusCode >= 400:
		// 403 sandbox rejections, 422 malformed recipients and the rest.
		pe.Kind = KindTerminal

	default:
		// 1xx/3xx are never expected from a JSON send endpoint.
		pe.Kind = KindTerminal
	}

	return pe
}

// ClassifyTransportError wraps an error raised before any response was
// received (dial failure, deadline exceeded, connection reset).
func ClassifyTransportError(providerName string, err error) *ProviderError {
	pe := &ProviderError{
		Provider: providerName,
		Message:  err.Error(),
		Kind:     KindUnavailable,
	}
	if isTimeout(err) {
		pe.Message = DetailTimeout
	}
	return pe
}

func isTimeout(err error) bool {
	if errors.Is(err, context.DeadlineExceeded) {
		return true
	}
	var ne net.Error
	return errors.As(err, &ne) && ne.Timeout()
}
