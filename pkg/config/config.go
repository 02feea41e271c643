package config

import (
	"fmt"
	"net/netip"
	"os"
	"strconv"
	"strings"
	"time"

	"github.com/BurntSushi/toml"
)

// Config holds the application configuration
type Config struct {
	Environment string `toml:"environment"`
	ServerPort  int    `toml:"server_port"`
	LogLevel    string `toml:"log_level"`

	DatabaseDriver string `toml:"database_driver"` // postgres or sqlite3
	DatabaseURL    string `toml:"database_url"`
	RedisURL       string `toml:"redis_url"` // empty keeps sessions and flashes in memory

	SessionSecret string        `toml:"session_secret"`
	SessionIssuer string        `toml:"session_issuer"`
	SessionTTL    time.Duration `toml:"session_ttl"`
	RememberTTL   time.Duration `toml:"remember_ttl"`
	CookieSecure  bool          `toml:"cookie_secure"`
	BcryptCost    int           `toml:"bcrypt_cost"`

	PageSize int `toml:"page_size"`

	ImageBackend string   `toml:"image_backend"` // filesystem or s3
	StaticDir    string   `toml:"static_dir"`
	S3           S3Config `toml:"s3"`

	// TrustedProxies holds the CIDRs or addresses of reverse proxies whose
	// X-Forwarded-For header is believed. Empty keys clients by socket address.
	TrustedProxies []string `toml:"trusted_proxies"`

	AuthRateLimit          int           `toml:"auth_rate_limit"`
	AuthRateWindow         time.Duration `toml:"auth_rate_window"`
	CleanupIntervalMinutes int           `toml:"cleanup_interval_minutes"`
}

// S3Config configures the object storage image backend
type S3Config struct {
	Bucket    string `toml:"bucket"`
	Prefix    string `toml:"prefix"`
	Region    string `toml:"region"`
	Endpoint  string `toml:"endpoint"`
	AccessKey string `toml:"access_key"`
	SecretKey string `toml:"secret_key"`
	PublicURL string `toml:"public_url"`
}

// Defaults returns the development configuration
func Defaults() *Config {
	return &Config{
		Environment:            "development",
		ServerPort:             8080,
		LogLevel:               "info",
		DatabaseDriver:         "sqlite3",
		DatabaseURL:            "file:grievances.db?_foreign_keys=on",
		SessionIssuer:          "grievanceportal",
		SessionTTL:             24 * time.Hour,
		RememberTTL:            30 * 24 * time.Hour,
		BcryptCost:             10,
		PageSize:               3,
		ImageBackend:           "filesystem",
		StaticDir:              "static",
		S3:                     S3Config{Region: "us-east-1"},
		AuthRateLimit:          20,
		AuthRateWindow:         time.Minute,
		CleanupIntervalMinutes: 5,
	}
}

// Load reads configuration from an optional TOML file named by CONFIG_FILE and
// then from environment variables, which take precedence.
func Load() (*Config, error) {
	cfg := Defaults()

	if path := os.Getenv("CONFIG_FILE"); path != "" {
		if _, err := toml.DecodeFile(path, cfg); err != nil {
			return nil, fmt.Errorf("invalid CONFIG_FILE %s: %w", path, err)
		}
	}

	if err := cfg.applyEnv(); err != nil {
		return nil, err
	}
	if err := cfg.Validate(); err != nil {
		return nil, err
	}
	return cfg, nil
}

func (c *Config) applyEnv() error {
	var err error

	c.Environment = getEnv("ENVIRONMENT", c.Environment)
	c.LogLevel = getEnv("LOG_LEVEL", c.LogLevel)
	c.DatabaseDriver = getEnv("DATABASE_DRIVER", c.DatabaseDriver)
	c.DatabaseURL = getEnv("DATABASE_URL", c.DatabaseURL)
	c.RedisURL = getEnv("REDIS_URL", c.RedisURL)
	c.SessionSecret = getEnv("SESSION_SECRET", c.SessionSecret)
	c.SessionIssuer = getEnv("SESSION_ISSUER", c.SessionIssuer)
	c.ImageBackend = getEnv("IMAGE_BACKEND", c.ImageBackend)
	c.StaticDir = getEnv("STATIC_DIR", c.StaticDir)
	c.S3.Bucket = getEnv("S3_BUCKET", c.S3.Bucket)
	c.S3.Prefix = getEnv("S3_PREFIX", c.S3.Prefix)
	c.S3.Region = getEnv("S3_REGION", c.S3.Region)
	c.S3.Endpoint = getEnv("S3_ENDPOINT", c.S3.Endpoint)
	c.S3.AccessKey = getEnv("S3_ACCESS_KEY", c.S3.AccessKey)
	c.S3.SecretKey = getEnv("S3_SECRET_KEY", c.S3.SecretKey)
	c.S3.PublicURL = getEnv("S3_PUBLIC_URL", c.S3.PublicURL)
	if v := os.Getenv("TRUSTED_PROXIES"); v != "" {
		c.TrustedProxies = strings.Split(v, ",")
	}

	if c.ServerPort, err = getEnvInt("SERVER_PORT", c.ServerPort); err != nil {
		return err
	}
	if c.BcryptCost, err = getEnvInt("BCRYPT_COST", c.BcryptCost); err != nil {
		return err
	}
	if c.PageSize, err = getEnvInt("PAGE_SIZE", c.PageSize); err != nil {
		return err
	}
	if c.AuthRateLimit, err = getEnvInt("AUTH_RATE_LIMIT", c.AuthRateLimit); err != nil {
		return err
	}
	if c.CleanupIntervalMinutes, err = getEnvInt("CLEANUP_INTERVAL_MINUTES", c.CleanupIntervalMinutes); err != nil {
		return err
	}
	if c.SessionTTL, err = getEnvDuration("SESSION_TTL", c.SessionTTL); err != nil {
		return err
	}
	if c.RememberTTL, err = getEnvDuration("REMEMBER_TTL", c.RememberTTL); err != nil {
		return err
	}
	if c.AuthRateWindow, err = getEnvDuration("AUTH_RATE_WINDOW", c.AuthRateWindow); err != nil {
		return err
	}
	if c.CookieSecure, err = getEnvBool("COOKIE_SECURE", c.CookieSecure); err != nil {
		return err
	}
	return nil
}

// Validate rejects configurations the server cannot start with
func (c *Config) Validate() error {
	switch c.DatabaseDriver {
	case "postgres", "sqlite3":
	default:
		return fmt.Errorf("unsupported DATABASE_DRIVER %q", c.DatabaseDriver)
	}
	switch c.ImageBackend {
	case "filesystem":
	case "s3":
		if c.S3.Bucket == "" {
			return fmt.Errorf("S3_BUCKET is required when IMAGE_BACKEND=s3")
		}
	default:
		return fmt.Errorf("unsupported IMAGE_BACKEND %q", c.ImageBackend)
	}
	if c.PageSize <= 0 {
		return fmt.Errorf("PAGE_SIZE must be positive, got %d", c.PageSize)
	}
	for _, p := range c.TrustedProxies {
		p = strings.TrimSpace(p)
		if _, err := netip.ParsePrefix(p); err == nil {
			continue
		}
		if _, err := netip.ParseAddr(p); err != nil && p != "" {
			return fmt.Errorf("invalid TRUSTED_PROXIES entry %q", p)
		}
	}
	if c.SessionSecret == "" && c.Environment == "production" {
		return fmt.Errorf("SESSION_SECRET is required in production")
	}
	return nil
}

func getEnv(key, defaultValue string) string {
	if value := os.Getenv(key); value != "" {
		return value
	}
	return defaultValue
}

func getEnvInt(key string, defaultValue int) (int, error) {
	value := os.Getenv(key)
	if value == "" {
		return defaultValue, nil
	}
	n, err := strconv.Atoi(value)
	if err != nil {
		return 0, fmt.Errorf("invalid %s: %w", key, err)
	}
	return n, nil
}

func getEnvDuration(key string, defaultValue time.Duration) (time.Duration, error) {
	value := os.Getenv(key)
	if value == "" {
		return defaultValue, nil
	}
	d, err := time.ParseDuration(value)
	if err != nil {
		return 0, fmt.Errorf("invalid %s: %w", key, err)
	}
	return d, nil
}

func getEnvBool(key string, defaultValue bool) (bool, error) {
	value := strings.TrimSpace(os.Getenv(key))
	if value == "" {
		return defaultValue, nil
	}
	b, err := strconv.ParseBool(value)
	if err != nil {
		return false, fmt.Errorf("invalid %s: %w", key, err)
	}
	return b, nil
}
