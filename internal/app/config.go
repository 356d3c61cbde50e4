package app

import (
	"os"
	"time"

	"github.com/cristalhq/aconfig"
	"github.com/cristalhq/aconfig/aconfigyaml"
	"github.com/go-faster/errors"
)

// Config holds the complete application configuration, loadable from
// environment variables (BAKERY_ prefix), flags, or YAML config files.
type Config struct {
	Addr        string `default:"0.0.0.0:8080" usage:"API server listen address"`
	DatabaseURL string `usage:"PostgreSQL connection URL (BAKERY_DATABASE_URL or DATABASE_URL)" flag:"database-url"`
	RedisURL    string `default:"redis://localhost:6379/0" usage:"Redis URL for carts and sessions (BAKERY_REDIS_URL or REDIS_URL)" flag:"redis-url"`
	// Timezone buckets the finance series and reads expense dates.
	Timezone      string `default:"America/Argentina/Tucuman" usage:"IANA time zone of the bakery"`
	SecureCookies bool   `default:"false" usage:"Mark cookies Secure (enable behind TLS)" flag:"secure-cookies"`
	Cart          CartConfig
	Orders        OrdersConfig
	Auth          AuthConfig
	Storage       StorageConfig
	WhatsApp      WhatsAppConfig
	RateLimit     RateLimitConfig
	CORS          CORSConfig
	Graceful      GracefulConfig
}

// CartConfig controls cart persistence.
type CartConfig struct {
	TTL time.Duration `default:"720h" usage:"Lifetime of an idle cart"`
}

// OrdersConfig controls order submission.
type OrdersConfig struct {
	Compensate bool `default:"false" usage:"Roll back committed steps when a submission fails"`
	// StrictPhone rejects checkout phones that are not Argentine numbers.
	StrictPhone bool `default:"false" usage:"Require Argentine phone numbers at checkout (BAKERY_ORDERS_STRICT_PHONE)"`
}

// AuthConfig controls back-office sign-in.
type AuthConfig struct {
	Pepper     string        `usage:"HMAC pepper for session keys (BAKERY_AUTH_PEPPER)"`
	SessionTTL time.Duration `default:"12h" usage:"Back-office session lifetime" flag:"session-ttl"`
	// LoginRateLimit caps sign-in attempts per client and minute.
	LoginRateLimit int `default:"10" usage:"Sign-in attempts per minute and client" flag:"login-rate-limit"`
}

// StorageConfig selects where product images are stored.
type StorageConfig struct {
	// Driver is "dir", "s3" or "none".
	Driver string `default:"dir" usage:"Image storage driver: dir, s3 or none"`
	Dir    string `default:"media" usage:"Directory for the dir driver"`
	S3     S3Config
}

// S3Config configures the s3 image storage driver.
type S3Config struct {
	Bucket          string `usage:"Bucket name"`
	Region          string `default:"us-east-1" usage:"Bucket region"`
	Endpoint        string `usage:"Endpoint of an S3-compatible provider"`
	AccessKeyID     string `usage:"Static access key ID"`
	SecretAccessKey string `usage:"Static secret access key"`
	UsePathStyle    bool   `default:"false" usage:"Use path-style addressing"`
	PublicURL       string `usage:"Public base URL of stored objects"`
}

// WhatsAppConfig configures order notifications.
type WhatsAppConfig struct {
	Phone string `usage:"Business WhatsApp number orders are sent to"`
}

// RateLimitConfig controls the per-client sliding window rate limiter.
type RateLimitConfig struct {
	Max    int           `default:"300" usage:"Max requests per window"`
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

// LoadConfig loads configuration from environment variables, YAML config files,
// and applies platform-specific defaults.
func LoadConfig() (*Config, error) {
	var cfg Config
	loader := aconfig.LoaderFor(&cfg, aconfig.Config{
		EnvPrefix: "BAKERY",
		Files:     []string{"config.yaml", "/etc/bakery/config.yaml"},
		FileDecoders: map[string]aconfig.FileDecoder{
			".yaml": aconfigyaml.New(),
		},
	})
	if err := loader.Load(); err != nil {
		return nil, errors.Wrap(err, "load config")
	}
	cfg.applyPlatformDefaults()

	if err := cfg.validate(); err != nil {
		return nil, err
	}
	return &cfg, nil
}

func (c *Config) validate() error {
	if c.DatabaseURL == "" {
		return errors.New("database URL is required: set BAKERY_DATABASE_URL or DATABASE_URL")
	}
	if c.Auth.Pepper == "" {
		return errors.New("session pepper is required: set BAKERY_AUTH_PEPPER")
	}
	switch c.Storage.Driver {
	case "dir", "none":
	case "s3":
		if c.Storage.S3.Bucket == "" {
			return errors.New("s3 storage requires a bucket")
		}
	default:
		return errors.Errorf("unknown storage driver %q", c.Storage.Driver)
	}
	if _, err := time.LoadLocation(c.Timezone); err != nil {
		return errors.Wrapf(err, "timezone %q", c.Timezone)
	}
	return nil
}

// applyPlatformDefaults maps platform-provided environment variables (Railway,
// Render, etc.) that use standard names like DATABASE_URL and PORT to the
// application's BAKERY_-prefixed configuration.
func (c *Config) applyPlatformDefaults() {
	if c.DatabaseURL == "" {
		if v := os.Getenv("DATABASE_URL"); v != "" {
			c.DatabaseURL = v
		}
	}
	if v := os.Getenv("REDIS_URL"); v != "" && c.RedisURL == "redis://localhost:6379/0" {
		c.RedisURL = v
	}
	if port := os.Getenv("PORT"); port != "" && c.Addr == "0.0.0.0:8080" {
		c.Addr = "0.0.0.0:" + port
	}
}
