package config

import (
	"fmt"
	"log/slog"
	"net/url"
	"strings"
	"time"

	"github.com/caarlos0/env/v11"
	"github.com/go-playground/validator/v10"
)

type Config struct {
	DatabaseURL string `env:"DATABASE_URL" validate:"required_if=KVProvider postgres"`
	KVProvider  string `env:"KV_PROVIDER" envDefault:"postgres" validate:"omitempty,oneof=postgres memory"`

	PesapalConsumerKey    string        `env:"PESAPAL_CONSUMER_KEY,required" validate:"required"`
	PesapalConsumerSecret string        `env:"PESAPAL_CONSUMER_SECRET,required" validate:"required"`
	PesapalBaseURL        string        `env:"PESAPAL_BASE_URL" envDefault:"https://cybqa.pesapal.com/pesapalv3" validate:"required,url"`
	PesapalIPNID          string        `env:"PESAPAL_IPN_ID,required" validate:"required"`
	PesapalTimeout        time.Duration `env:"PESAPAL_TIMEOUT" envDefault:"30s"`
	Currency              string        `env:"CURRENCY" envDefault:"TZS" validate:"required,len=3"`

	BaseURL string `env:"BASE_URL,required" validate:"required,url"`

	ShippingRatesPath string `env:"SHIPPING_RATES_PATH" envDefault:"shipping_rates.yaml" validate:"required"`

	AdminKey        string        `env:"ADMIN_KEY,required" validate:"required,min=16"`
	JWTSigningKey   string        `env:"JWT_SIGNING_KEY,required" validate:"required,min=32"`
	AdminSessionTTL time.Duration `env:"ADMIN_SESSION_TTL" envDefault:"12h"`

	CacheProvider         string `env:"CACHE_PROVIDER" envDefault:"memory" validate:"omitempty,oneof=memory redis"`
	RedisConnectionString string `env:"REDIS_CONNECTION_STRING" envDefault:"redis://localhost:6379/0" validate:"required_if=CacheProvider redis"`

	EmailProvider string `env:"EMAIL_PROVIDER" validate:"omitempty,oneof=resend"`
	EmailAPIKey   string `env:"EMAIL_API_KEY" validate:"required_with=EmailProvider"`
	EmailFrom     string `env:"EMAIL_FROM" validate:"required_with=EmailProvider,omitempty,email"`

	LogLevel  slog.Level `env:"LOG_LEVEL" envDefault:"INFO"`
	LogFormat string     `env:"LOG_FORMAT" envDefault:"text" validate:"omitempty,oneof=text json"`
	Port      string     `env:"PORT" envDefault:"8080"`
}

var configValidator = validator.New()

func Load() (*Config, error) {
	var cfg Config

	if err := env.Parse(&cfg); err != nil {
		return nil, fmt.Errorf("failed to parse config: %w", err)
	}

	if err := cfg.validate(); err != nil {
		return nil, err
	}

	return &cfg, nil
}

func (c *Config) validate() error {
	if err := configValidator.Struct(c); err != nil {
		return err
	}

	baseURL := strings.TrimSpace(c.BaseURL)
	parsed, err := url.Parse(baseURL)
	if err != nil || parsed.Hostname() == "" {
		return fmt.Errorf("BASE_URL must be a valid absolute URL")
	}
	if !isLocalHost(parsed.Hostname()) && !strings.EqualFold(parsed.Scheme, "https") {
		return fmt.Errorf("BASE_URL must use https outside local development")
	}

	return nil
}

// CallbackURL is where the gateway redirects the shopper after payment.
func (c *Config) CallbackURL() string {
	return strings.TrimRight(c.BaseURL, "/") + "/payment/callback"
}

// CancellationURL is where the gateway sends shoppers who abandon payment.
func (c *Config) CancellationURL() string {
	return strings.TrimRight(c.BaseURL, "/") + "/payment/cancelled"
}

func isLocalHost(host string) bool {
	switch strings.ToLower(strings.TrimSpace(host)) {
	case "localhost", "127.0.0.1", "::1":
		return true
	default:
		return false
	}
}
