package app

import (
	"os"
	"time"

	"github.com/cristalhq/aconfig"
	"github.com/cristalhq/aconfig/aconfigyaml"
	"github.com/go-faster/errors"
	"github.com/shopspring/decimal"
)

const defaultAddr = "0.0.0.0:8080"

// Config holds the complete application configuration, loadable from
// environment variables (BITE_ prefix), flags, or YAML config files.
type Config struct {
	Addr         string `default:"0.0.0.0:8080" usage:"API server listen address"`
	DatabaseURL  string `usage:"PostgreSQL connection URL; orders are kept in memory when empty" flag:"database-url"`
	MenuFile     string `usage:"JSON menu file replacing the built-in catalog" flag:"menu-file"`
	PromoFile    string `usage:"JSON promo table replacing the built-in codes" flag:"promo-file"`
	ImageBaseURL string `default:"" usage:"Base URL for relative item images" flag:"image-base-url"`

	SessionPepper string        `usage:"HMAC pepper for session token hashing; random when empty" flag:"session-pepper"`
	SessionTTL    time.Duration `default:"24h" usage:"Idle session lifetime, 0 keeps sessions until logout" flag:"session-ttl"`

	Pricing    PricingConfig
	Simulation SimulationConfig
	RateLimit  RateLimitConfig
	CORS       CORSConfig
	Graceful   GracefulConfig
}

// PricingConfig controls order pricing.
type PricingConfig struct {
	DeliveryFee string        `default:"0" usage:"Flat delivery fee added to every order" flag:"delivery-fee"`
	PrepBuffer  time.Duration `default:"5m" usage:"Buffer added to the slowest preparation time" flag:"prep-buffer"`
}

// Fee parses DeliveryFee.
func (c PricingConfig) Fee() (decimal.Decimal, error) {
	if c.DeliveryFee == "" {
		return decimal.Zero, nil
	}
	fee, err := decimal.NewFromString(c.DeliveryFee)
	if err != nil {
		return decimal.Zero, errors.Wrapf(err, "parse delivery fee %q", c.DeliveryFee)
	}
	if fee.IsNegative() {
		return decimal.Zero, errors.Errorf("delivery fee %s is negative", fee)
	}
	return fee, nil
}

// SimulationConfig controls the latency of the mocked external services.
type SimulationConfig struct {
	AuthDelay      time.Duration `default:"1500ms" usage:"Simulated login and sign-up latency" flag:"auth-delay"`
	OTPDelay       time.Duration `default:"1s" usage:"Simulated OTP verification latency" flag:"otp-delay"`
	PaymentDelay   time.Duration `default:"3s" usage:"Simulated payment latency" flag:"payment-delay"`
	PaymentTimeout time.Duration `default:"10s" usage:"Payment gives up after this long" flag:"payment-timeout"`
}

// RateLimitConfig controls the per-client sliding window rate limiter.
type RateLimitConfig struct {
	Max    int           `default:"100" usage:"Max requests per window"`
	Window time.Duration `default:"1m"  usage:"Rate limit window duration"`
}

// CORSConfig controls Cross-Origin Resource Sharing headers.
type CORSConfig struct {
	Origins          []string `default:"*" usage:"Allowed CORS origins"`
	AllowCredentials bool     `default:"false" usage:"Allow credentials (cookies, auth headers)" flag:"cors-credentials"`
}

// GracefulConfig controls graceful shutdown timing.
type GracefulConfig struct {
	ReadinessDelay  time.Duration `default:"3s"  usage:"Delay after readiness=false before shutdown" flag:"readiness-delay"`
	ShutdownTimeout time.Duration `default:"15s" usage:"Maximum shutdown duration" flag:"shutdown-timeout"`
}

// LoadConfig loads configuration from the command line, environment
// variables and YAML config files, then applies platform defaults.
func LoadConfig() (*Config, error) {
	return loadConfig(os.Args[1:])
}

func loadConfig(args []string) (*Config, error) {
	var cfg Config
	loader := aconfig.LoaderFor(&cfg, aconfig.Config{
		EnvPrefix: "BITE",
		Args:      args,
		Files:     []string{"config.yaml", "/etc/orderly-bite/config.yaml"},
		FileDecoders: map[string]aconfig.FileDecoder{
			".yaml": aconfigyaml.New(),
		},
	})
	if err := loader.Load(); err != nil {
		return nil, errors.Wrap(err, "load config")
	}
	cfg.applyPlatformDefaults()

	if err := cfg.validate(); err != nil {
		return nil, errors.Wrap(err, "invalid config")
	}
	return &cfg, nil
}

func (c *Config) validate() error {
	if _, err := c.Pricing.Fee(); err != nil {
		return err
	}
	switch {
	case c.Pricing.PrepBuffer < 0:
		return errors.New("prep buffer must not be negative")
	case c.Simulation.PaymentTimeout < 0:
		return errors.New("payment timeout must not be negative")
	case c.RateLimit.Max <= 0 || c.RateLimit.Window <= 0:
		return errors.New("rate limit max and window must be positive")
	}
	return nil
}

// applyPlatformDefaults maps platform-provided environment variables
// (Railway, Render, etc.) such as DATABASE_URL and PORT onto the
// BITE_-prefixed configuration.
func (c *Config) applyPlatformDefaults() {
	if c.DatabaseURL == "" {
		if v := os.Getenv("DATABASE_URL"); v != "" {
			c.DatabaseURL = v
		}
	}
	if port := os.Getenv("PORT"); port != "" && c.Addr == defaultAddr {
		c.Addr = "0.0.0.0:" + port
	}
}
