package config

import (
	"fmt"
	"strings"
	"time"

	"github.com/caarlos0/env/v10"
	"go.uber.org/zap"
)

type Config struct {
	Port            string        `env:"PORT" envDefault:"8080"`
	DatabaseURL     string        `env:"DATABASE_URL"`
	RedisURL        string        `env:"REDIS_URL"`
	KafkaBrokers    []string      `env:"KAFKA_BROKERS" envSeparator:","`
	NatsURL         string        `env:"NATS_URL"`
	JaegerEndpoint  string        `env:"JAEGER_ENDPOINT" envDefault:"jaeger:4318"`
	TraceSampling   float64       `env:"TRACE_SAMPLE_RATIO" envDefault:"1"`
	LogLevel        string        `env:"LOG_LEVEL" envDefault:"info"`
	ShutdownTimeout time.Duration `env:"SHUTDOWN_TIMEOUT" envDefault:"5s"`
	ProviderTimeout time.Duration `env:"PROVIDER_TIMEOUT" envDefault:"15s"`

	PaymentEventsTopic string `env:"PAYMENT_EVENTS_TOPIC" envDefault:"payment.state.changed"`
	EmailTaskTopic     string `env:"EMAIL_TASK_TOPIC" envDefault:"notification.email.requested"`
	EmailGroupID       string `env:"EMAIL_GROUP_ID" envDefault:"momo-gateway-email"`

	MoMo  MoMoConfig
	Email EmailConfig
}

// MoMoConfig holds the collection API credentials. Secrets have no defaults.
type MoMoConfig struct {
	APIUser           string `env:"MOMO_API_USER"`
	APIKey            string `env:"MOMO_API_KEY"`
	SubscriptionKey   string `env:"MOMO_SUBSCRIPTION_KEY"`
	CallbackURL       string `env:"MOMO_CALLBACK_URL"`
	BaseURL           string `env:"MOMO_BASE_URL" envDefault:"https://sandbox.momodeveloper.mtn.com"`
	TargetEnvironment string `env:"MOMO_TARGET_ENVIRONMENT" envDefault:"sandbox"`
	Currency          string `env:"MOMO_CURRENCY" envDefault:"RWF"`
}

type EmailConfig struct {
	ResendAPIKey string        `env:"RESEND_API_KEY"`
	ResendURL    string        `env:"RESEND_URL" envDefault:"https://api.resend.com/emails"`
	From         string        `env:"EMAIL_FROM" envDefault:"Iseta <orders@iseta.com>"`
	MaxAttempts  int           `env:"NOTIFY_MAX_ATTEMPTS" envDefault:"3"`
	BackoffBase  time.Duration `env:"NOTIFY_BACKOFF_BASE" envDefault:"1s"`
}

// ConfigError lists every required setting that is absent.
type ConfigError struct {
	Missing []string
}

func (e *ConfigError) Error() string {
	return "configuration error: missing " + strings.Join(e.Missing, ", ")
}

// Details renders the missing names the way API responses report them.
func (e *ConfigError) Details() []string {
	details := make([]string, 0, len(e.Missing))
	for _, name := range e.Missing {
		details = append(details, name+" is missing")
	}
	return details
}

// Load reads the process environment once. An incomplete MoMo section is not
// a load error; callers check MoMo.Validate before talking to the provider.
func Load() (*Config, error) {
	var cfg Config
	if err := env.Parse(&cfg); err != nil {
		return nil, fmt.Errorf("parse environment: %w", err)
	}
	if err := cfg.validate(); err != nil {
		return nil, err
	}
	return &cfg, nil
}

func (c *Config) validate() error {
	if c.Port == "" {
		return fmt.Errorf("PORT is required")
	}
	if c.ShutdownTimeout <= 0 {
		return fmt.Errorf("SHUTDOWN_TIMEOUT must be positive")
	}
	if c.ProviderTimeout <= 0 {
		return fmt.Errorf("PROVIDER_TIMEOUT must be positive")
	}
	if c.TraceSampling < 0 || c.TraceSampling > 1 {
		return fmt.Errorf("TRACE_SAMPLE_RATIO must be between 0 and 1")
	}
	if c.Email.MaxAttempts <= 0 {
		return fmt.Errorf("NOTIFY_MAX_ATTEMPTS must be positive")
	}
	if c.Email.BackoffBase <= 0 {
		return fmt.Errorf("NOTIFY_BACKOFF_BASE must be positive")
	}
	return nil
}

// Validate returns a *ConfigError naming every missing credential, or nil.
func (m MoMoConfig) Validate() error {
	var missing []string
	if m.APIUser == "" {
		missing = append(missing, "MOMO_API_USER")
	}
	if m.APIKey == "" {
		missing = append(missing, "MOMO_API_KEY")
	}
	if m.SubscriptionKey == "" {
		missing = append(missing, "MOMO_SUBSCRIPTION_KEY")
	}
	if m.CallbackURL == "" {
		missing = append(missing, "MOMO_CALLBACK_URL")
	}
	if len(missing) > 0 {
		return &ConfigError{Missing: missing}
	}
	return nil
}

// LogFields describes the configuration with secrets masked.
func (c *Config) LogFields() []zap.Field {
	return []zap.Field{
		zap.String("port", c.Port),
		zap.String("database_url", maskDSN(c.DatabaseURL)),
		zap.String("redis_url", c.RedisURL),
		zap.Strings("kafka_brokers", c.KafkaBrokers),
		zap.String("nats_url", c.NatsURL),
		zap.String("jaeger_endpoint", c.JaegerEndpoint),
		zap.Float64("trace_sample_ratio", c.TraceSampling),
		zap.String("momo_base_url", c.MoMo.BaseURL),
		zap.String("momo_target_environment", c.MoMo.TargetEnvironment),
		zap.String("momo_api_user", maskToken(c.MoMo.APIUser)),
		zap.String("momo_subscription_key", maskToken(c.MoMo.SubscriptionKey)),
		zap.String("momo_callback_url", c.MoMo.CallbackURL),
		zap.Bool("email_provider_configured", c.Email.ResendAPIKey != ""),
		zap.Duration("provider_timeout", c.ProviderTimeout),
	}
}

func maskDSN(dsn string) string {
	schemeEnd := strings.Index(dsn, "://")
	at := strings.LastIndex(dsn, "@")
	if schemeEnd < 0 || at < 0 {
		return dsn
	}
	userinfo := dsn[schemeEnd+3 : at]
	colon := strings.Index(userinfo, ":")
	if colon < 0 {
		return dsn
	}
	return dsn[:schemeEnd+3] + userinfo[:colon+1] + "***" + dsn[at:]
}

func maskToken(token string) string {
	if token == "" {
		return ""
	}
	if len(token) <= 8 {
		return "***"
	}
	return token[:4] + "***" + token[len(token)-4:]
}
