package provider

import (
	"context"

	"golang.org/x/time/rate"
)

// RateLimited wraps a Provider with a token bucket so that every Send,
// retries included, stays under the ESP's requests-per-second ceiling.
type RateLimited struct {
	Provider
	limiter *rate.Limiter
}

// NewRateLimited returns p limited to rps requests per second with the
// given burst. A non-positive rps disables limiting and returns p unchanged.
func NewRateLimited(p Provider, rps float64, burst int) Provider {
	if rps <= 0 {
		return p
	}
	if burst < 1 {
		burst = 1
	}
	return &RateLimited{
		Provider: p,
		limiter:  rate.NewLimiter(rate.Limit(rps), burst),
	}
}

// Send waits for a token before delegating. A context that expires while
// waiting yields an unavailable failure so the caller may retry.
func (r *RateLimited) Send(ctx context.Context, msg *Message) (*DeliveryResult, error) {
	if err := r.limiter.Wait(ctx); err != nil {
		return nil, ClassifyTransportError(r.GetName(), err)
	}
	return r.Provider.Send(ctx, msg)
}

// HealthCheck spends a token too: ESPs count probe calls against the same
// per-second limit as sends.
func (r *RateLimited) HealthCheck(ctx context.Context) error {
	if err := r.limiter.Wait(ctx); err != nil {
		return ClassifyTransportError(r.GetName(), err)
	}
	return r.Provider.HealthCheck(ctx)
}
