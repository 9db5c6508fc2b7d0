package config

import (
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/google/uuid"
	"github.com/spf13/viper"

	"github.com/sungwon/healthmate/internal/alert"
	"github.com/sungwon/healthmate/internal/auth"
	"github.com/sungwon/healthmate/internal/logger"
	"github.com/sungwon/healthmate/internal/notify"
	"github.com/sungwon/healthmate/internal/provider"
	"github.com/sungwon/healthmate/internal/storage"
)

// EnvPrefix prefixes every environment override, e.g.
// HEALTHMATE_PROVIDER_API_KEY overrides provider.api_key.
const EnvPrefix = "HEALTHMATE"

// Config holds all application configuration.
type Config struct {
	API       APIConfig       `mapstructure:"api"`
	Database  DatabaseConfig  `mapstructure:"database"`
	Redis     RedisConfig     `mapstructure:"redis"`
	Logging   LoggingConfig   `mapstructure:"logging"`
	Auth      AuthConfig      `mapstructure:"auth"`
	Provider  ProviderConfig  `mapstructure:"provider"`
	Dispatch  DispatchConfig  `mapstructure:"dispatch"`
	CORS      CORSConfig      `mapstructure:"cors"`
	Bootstrap BootstrapConfig `mapstructure:"bootstrap"`
}

// APIConfig holds REST API server configuration.
type APIConfig struct {
	Host            string        `mapstructure:"host"`
	Port            int           `mapstructure:"port"`
	ReadTimeout     time.Duration `mapstructure:"read_timeout"`
	WriteTimeout    time.Duration `mapstructure:"write_timeout"`
	ShutdownTimeout time.Duration `mapstructure:"shutdown_timeout"`
}

// Addr returns host:port for the HTTP listener.
func (c APIConfig) Addr() string {
	return fmt.Sprintf("%s:%d", c.Host, c.Port)
}

// DatabaseConfig holds PostgreSQL connection configuration.
type DatabaseConfig struct {
	URL            string        `mapstructure:"url"`
	PoolMin        int32         `mapstructure:"pool_min"`
	PoolMax        int32         `mapstructure:"pool_max"`
	ConnectTimeout time.Duration `mapstructure:"connect_timeout"`
	SlowQuery      time.Duration `mapstructure:"slow_query"`
	AutoMigrate    bool          `mapstructure:"auto_migrate"`
}

// Pool converts the section into storage.PoolConfig.
func (c DatabaseConfig) Pool() storage.PoolConfig {
	return storage.PoolConfig{
		URL:            c.URL,
		MinConns:       c.PoolMin,
		MaxConns:       c.PoolMax,
		ConnectTimeout: c.ConnectTimeout,
		SlowQuery:      c.SlowQuery,
	}
}

// RedisConfig configures the alert cooldown store. An empty Addr disables it.
type RedisConfig struct {
	Addr     string `mapstructure:"addr"`
	Password string `mapstructure:"password"`
	DB       int    `mapstructure:"db"`
}

// LoggingConfig holds logging configuration.
type LoggingConfig struct {
	Level     string `mapstructure:"level"`
	Output    string `mapstructure:"output"`
	FilePath  string `mapstructure:"file_path"`
	MaxSizeMB int    `mapstructure:"max_size_mb"`
	MaxFiles  int    `mapstructure:"max_files"`
}

// Logger converts the section into logger.LoggingConfig.
func (c LoggingConfig) Logger() logger.LoggingConfig {
	return logger.LoggingConfig{
		Level:     c.Level,
		Output:    c.Output,
		FilePath:  c.FilePath,
		MaxSizeMB: c.MaxSizeMB,
		MaxFiles:  c.MaxFiles,
	}
}

// AuthConfig holds token validation and per-user alert cooldown settings.
type AuthConfig struct {
	JWT       auth.JWTConfig       `mapstructure:"jwt"`
	RateLimit auth.RateLimitConfig `mapstructure:"rate_limit"`
}

// ProviderConfig configures the email provider and the sender address.
type ProviderConfig struct {
	provider.ProviderConfig `mapstructure:",squash"`

	From           string        `mapstructure:"from"`
	HealthInterval time.Duration `mapstructure:"health_interval"`
}

// DispatchConfig covers batching and the per-recipient retry policy.
type DispatchConfig struct {
	BatchSize       int           `mapstructure:"batch_size"`
	InterBatchDelay time.Duration `mapstructure:"inter_batch_delay"`
	MaxRetries      int           `mapstructure:"max_retries"`
	BaseDelay       time.Duration `mapstructure:"base_delay"`
	MaxJitter       time.Duration `mapstructure:"max_jitter"`
	AttemptTimeout  time.Duration `mapstructure:"attempt_timeout"`
}

// Alert returns the dispatcher batching settings.
func (c DispatchConfig) Alert() alert.DispatchConfig {
	return alert.DispatchConfig{
		BatchSize:       c.BatchSize,
		InterBatchDelay: c.InterBatchDelay,
	}
}

// Deliverer returns the retry state machine settings for the given sender.
func (c DispatchConfig) Deliverer(from string) notify.DelivererConfig {
	return notify.DelivererConfig{
		From:           from,
		AttemptTimeout: c.AttemptTimeout,
		Retry: notify.RetryPolicy{
			MaxRetries: c.MaxRetries,
			BaseDelay:  c.BaseDelay,
			MaxJitter:  c.MaxJitter,
		},
	}
}

// CORSConfig lists origins allowed to call the API from a browser.
type CORSConfig struct {
	AllowedOrigins []string `mapstructure:"allowed_origins"`
	MaxAge         int      `mapstructure:"max_age"`
}

// BootstrapConfig seeds demo contacts for one user at startup.
// An empty DemoUserID disables seeding.
type BootstrapConfig struct {
	DemoUserID   string        `mapstructure:"demo_user_id"`
	DemoContacts []SeedContact `mapstructure:"demo_contacts"`
}

// SeedContact is one configured demo contact.
type SeedContact struct {
	Name         string `mapstructure:"name"`
	Email        string `mapstructure:"email"`
	Phone        string `mapstructure:"phone"`
	Relationship string `mapstructure:"relationship"`
}

// Contacts converts the configured demo contacts.
func (c BootstrapConfig) Contacts() []alert.Contact {
	out := make([]alert.Contact, 0, len(c.DemoContacts))
	for _, s := range c.DemoContacts {
		out = append(out, alert.Contact{
			Name:         s.Name,
			Email:        s.Email,
			Phone:        s.Phone,
			Relationship: s.Relationship,
		})
	}
	return out
}

func setDefaults(v *viper.Viper) {
	v.SetDefault("api.host", "0.0.0.0")
	v.SetDefault("api.port", 8080)
	v.SetDefault("api.read_timeout", 10*time.Second)
	v.SetDefault("api.write_timeout", 60*time.Second)
	v.SetDefault("api.shutdown_timeout", 15*time.Second)

	v.SetDefault("database.url", "")
	v.SetDefault("database.pool_min", 2)
	v.SetDefault("database.pool_max", 10)
	v.SetDefault("database.connect_timeout", 5*time.Second)
	v.SetDefault("database.slow_query", 500*time.Millisecond)
	v.SetDefault("database.auto_migrate", true)

	v.SetDefault("redis.addr", "")
	v.SetDefault("redis.password", "")
	v.SetDefault("redis.db", 0)

	v.SetDefault("logging.level", "info")
	v.SetDefault("logging.output", "stdout")
	v.SetDefault("logging.file_path", "")
	v.SetDefault("logging.max_size_mb", 100)
	v.SetDefault("logging.max_files", 5)

	v.SetDefault("auth.jwt.signing_key", "")
	v.SetDefault("auth.jwt.access_token_expiry", 15*time.Minute)
	v.SetDefault("auth.jwt.issuer", "")
	v.SetDefault("auth.jwt.audience", "")
	v.SetDefault("auth.rate_limit.alert_cooldown", auth.DefaultAlertCooldown)

	v.SetDefault("provider.type", "stdout")
	v.SetDefault("provider.api_key", "")
	v.SetDefault("provider.endpoint", "")
	v.SetDefault("provider.timeout", 10*time.Second)
	v.SetDefault("provider.domain", "")
	v.SetDefault("provider.username", "")
	v.SetDefault("provider.tls_mode", "")
	v.SetDefault("provider.rate_limit", 0)
	v.SetDefault("provider.rate_burst", 0)
	v.SetDefault("provider.from", "Health Mate <onboarding@resend.dev>")
	v.SetDefault("provider.health_interval", 30*time.Second)

	v.SetDefault("dispatch.batch_size", alert.DefaultBatchSize)
	v.SetDefault("dispatch.inter_batch_delay", alert.DefaultInterBatchDelay)
	retry := notify.DefaultRetryPolicy()
	v.SetDefault("dispatch.max_retries", retry.MaxRetries)
	v.SetDefault("dispatch.base_delay", retry.BaseDelay)
	v.SetDefault("dispatch.max_jitter", retry.MaxJitter)
	v.SetDefault("dispatch.attempt_timeout", notify.DefaultAttemptTimeout)

	v.SetDefault("cors.allowed_origins", []string{"*"})
	v.SetDefault("cors.max_age", 300)

	v.SetDefault("bootstrap.demo_user_id", "")
}

// Load reads configuration from the given config directory path.
// It looks for a file named "config.yaml" in that directory.
// Environment variables with prefix HEALTHMATE_ override file values.
// For example, HEALTHMATE_DATABASE_URL overrides database.url.
func Load(configPath string) (*Config, error) {
	v := viper.New()

	v.SetConfigName("config")
	v.SetConfigType("yaml")
	v.AddConfigPath(configPath)

	v.SetEnvPrefix(EnvPrefix)
	v.SetEnvKeyReplacer(strings.NewReplacer(".", "_"))
	v.AutomaticEnv()
	setDefaults(v)

	if err := v.ReadInConfig(); err != nil {
		return nil, fmt.Errorf("read config file: %w", err)
	}

	var cfg Config
	if err := v.Unmarshal(&cfg); err != nil {
		return nil, fmt.Errorf("unmarshal config: %w", err)
	}

	return &cfg, nil
}

// Validate checks the settings the api-server cannot start without.
func (c *Config) Validate() error {
	var errs []error
	if c.Database.URL == "" {
		errs = append(errs, errors.New("database.url is required"))
	}
	if c.Auth.JWT.SigningKey == "" {
		errs = append(errs, errors.New("auth.jwt.signing_key is required"))
	}
	if err := c.Provider.ProviderConfig.Validate(); err != nil {
		errs = append(errs, fmt.Errorf("provider: %w", err))
	}
	if c.Provider.From == "" {
		errs = append(errs, errors.New("provider.from is required"))
	}
	if c.Dispatch.BatchSize < 0 {
		errs = append(errs, errors.New("dispatch.batch_size must not be negative"))
	}
	if c.Bootstrap.DemoUserID != "" {
		if _, err := uuid.Parse(c.Bootstrap.DemoUserID); err != nil {
			errs = append(errs, fmt.Errorf("bootstrap.demo_user_id: %w", err))
		}
	}
	return errors.Join(errs...)
}
