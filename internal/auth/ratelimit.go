package auth

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/google/uuid"
	"github.com/redis/go-redis/v9"
)

// DefaultAlertCooldown is the minimum spacing between alerts from one user.
const DefaultAlertCooldown = 30 * time.Second

// ErrAlertCooldown is returned when the user already has an alert in flight
// or sent one within the cooldown.
var ErrAlertCooldown = errors.New("an emergency alert was sent recently, please wait before retrying")

// RateLimitConfig holds alert cooldown configuration.
type RateLimitConfig struct {
	AlertCooldown time.Duration `mapstructure:"alert_cooldown"`
}

// RateLimiter guards alert dispatch per user with a Redis key.
type RateLimiter struct {
	client *redis.Client
	config RateLimitConfig
}

// NewRateLimiter creates a RateLimiter. A nil client disables the cooldown.
func NewRateLimiter(client *redis.Client, config RateLimitConfig) *RateLimiter {
	if config.AlertCooldown <= 0 {
		config.AlertCooldown = DefaultAlertCooldown
	}
	return &RateLimiter{
		client: client,
		config: config,
	}
}

// AcquireAlertSlot claims the alert slot for userID. When the slot is held
// it returns ErrAlertCooldown and the time until it frees up.
func (rl *RateLimiter) AcquireAlertSlot(ctx context.Context, userID uuid.UUID) (time.Duration, error) {
	if rl.client == nil {
		// No Redis client configured; skip rate limiting.
		return 0, nil
	}

	key := alertKey(userID)
	ok, err := rl.client.SetNX(ctx, key, time.Now().UTC().Unix(), rl.config.AlertCooldown).Result()
	if err != nil {
		return 0, fmt.Errorf("acquire alert slot: %w", err)
	}
	if ok {
		return 0, nil
	}

	ttl, err := rl.client.TTL(ctx, key).Result()
	if err != nil || ttl < 0 {
		ttl = rl.config.AlertCooldown
	}
	return ttl, ErrAlertCooldown
}

// ReleaseAlertSlot frees the slot early, used when the alert never went out.
func (rl *RateLimiter) ReleaseAlertSlot(ctx context.Context, userID uuid.UUID) error {
	if rl.client == nil {
		return nil
	}
	if err := rl.client.Del(ctx, alertKey(userID)).Err(); err != nil {
		return fmt.Errorf("release alert slot: %w", err)
	}
	return nil
}

// Ping reports whether Redis is reachable. Nil client is always reachable.
func (rl *RateLimiter) Ping(ctx context.Context) error {
	if rl.client == nil {
		return nil
	}
	return rl.client.Ping(ctx).Err()
}

func alertKey(userID uuid.UUID) string {
	return "cooldown:alert:" + userID.String()
}
