package provider

import (
	"context"
	"sync"
	"time"

	"github.com/rs/zerolog"

	"github.com/sungwon/healthmate/internal/metrics"
)

const (
	defaultCheckInterval = 60 * time.Second
	defaultCheckTimeout  = 10 * time.Second
	unhealthyThreshold   = 3
)

// HealthStatus represents the current health state of a provider.
type HealthStatus struct {
	Healthy             bool
	LastCheck           time.Time
	ConsecutiveFailures int
	LastError           string
}

// HealthChecker probes providers in the background and feeds /readyz and
// the provider_healthy gauge. It never sits on the delivery path: a
// provider marked unhealthy is still used for alerts.
type HealthChecker struct {
	providers []Provider
	interval  time.Duration
	timeout   time.Duration
	log       zerolog.Logger

	mu       sync.RWMutex
	statuses map[string]*HealthStatus

	cancel context.CancelFunc
	done   chan struct{}
}

// NewHealthChecker creates a health checker for the given providers.
// A non-positive interval selects the default.
func NewHealthChecker(interval time.Duration, log zerolog.Logger, providers ...Provider) *HealthChecker {
	if interval <= 0 {
		interval = defaultCheckInterval
	}
	return &HealthChecker{
		providers: providers,
		interval:  interval,
		timeout:   defaultCheckTimeout,
		log:       log,
		statuses:  make(map[string]*HealthStatus),
	}
}

// Start runs one probe round immediately and then one per interval until
// Stop is called or ctx ends.
func (hc *HealthChecker) Start(ctx context.Context) {
	ctx, hc.cancel = context.WithCancel(ctx)
	hc.done = make(chan struct{})
	go hc.run(ctx)
}

// Stop ends the probe loop and waits for the current round to finish.
func (hc *HealthChecker) Stop() {
	if hc.cancel == nil {
		return
	}
	hc.cancel()
	<-hc.done
}

// IsHealthy returns whether a provider is currently healthy. Unknown
// providers are unhealthy.
func (hc *HealthChecker) IsHealthy(name string) bool {
	hc.mu.RLock()
	defer hc.mu.RUnlock()
	status, ok := hc.statuses[name]
	return ok && status.Healthy
}

// AllHealthy reports whether every monitored provider is healthy. Providers
// that have not been checked yet count as healthy so a fresh process is
// ready before the first probe completes.
func (hc *HealthChecker) AllHealthy() bool {
	hc.mu.RLock()
	defer hc.mu.RUnlock()
	for _, status := range hc.statuses {
		if !status.Healthy {
			return false
		}
	}
	return true
}

// GetStatus returns the full health status for a provider.
func (hc *HealthChecker) GetStatus(name string) (HealthStatus, bool) {
	hc.mu.RLock()
	defer hc.mu.RUnlock()
	if status, ok := hc.statuses[name]; ok {
		return *status, true
	}
	return HealthStatus{}, false
}

// GetAllStatuses returns a snapshot of all provider health statuses.
func (hc *HealthChecker) GetAllStatuses() map[string]HealthStatus {
	hc.mu.RLock()
	defer hc.mu.RUnlock()
	out := make(map[string]HealthStatus, len(hc.statuses))
	for name, status := range hc.statuses {
		out[name] = *status
	}
	return out
}

func (hc *HealthChecker) run(ctx context.Context) {
	defer close(hc.done)

	hc.checkAll(ctx)

	ticker := time.NewTicker(hc.interval)
	defer ticker.Stop()
	for {
		select {
		case <-ctx.Done():
			return
		case <-ticker.C:
			hc.checkAll(ctx)
		}
	}
}

func (hc *HealthChecker) checkAll(ctx context.Context) {
	for _, p := range hc.providers {
		pctx, cancel := context.WithTimeout(ctx, hc.timeout)
		err := p.HealthCheck(pctx)
		cancel()
		hc.record(p.GetName(), err)
	}
}

// record folds one probe result into the status. Three consecutive
// failures mark a provider unhealthy; one success restores it.
func (hc *HealthChecker) record(name string, err error) {
	hc.mu.Lock()
	status, ok := hc.statuses[name]
	if !ok {
		status = &HealthStatus{Healthy: true}
		hc.statuses[name] = status
	}
	wasHealthy := status.Healthy
	status.LastCheck = time.Now()
	if err != nil {
		status.ConsecutiveFailures++
		status.LastError = err.Error()
		if status.ConsecutiveFailures >= unhealthyThreshold {
			status.Healthy = false
		}
	} else {
		status.ConsecutiveFailures = 0
		status.LastError = ""
		status.Healthy = true
	}
	healthy := status.Healthy
	hc.mu.Unlock()

	gauge := 0.0
	if healthy {
		gauge = 1
	}
	metrics.ProviderHealthy.WithLabelValues(name).Set(gauge)

	switch {
	case wasHealthy && !healthy:
		hc.log.Warn().Err(err).Str("provider", name).Msg("email provider marked unhealthy")
	case !wasHealthy && healthy:
		hc.log.Info().Str("provider", name).Msg("email provider recovered")
	}
}
