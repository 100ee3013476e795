package config

import (
	"fmt"
	"os"
	"strings"
	"time"

	"github.com/joho/godotenv"
	"github.com/spf13/viper"
)

type Config struct {
	// Application
	App AppConfig `mapstructure:"app"`

	// PostgreSQL
	Postgres PostgresConfig `mapstructure:"postgres"`

	// Redis
	Redis RedisConfig `mapstructure:"redis"`

	// NATS
	NATS NATSConfig `mapstructure:"nats"`

	// Prometheus
	Prometheus PrometheusConfig `mapstructure:"prometheus"`

	Auth      AuthConfig      `mapstructure:"auth"`
	Billing   BillingConfig   `mapstructure:"billing"`
	Captcha   CaptchaConfig   `mapstructure:"captcha"`
	RateLimit RateLimitConfig `mapstructure:"rate_limit"`
}

type AppConfig struct {
	Env         string `mapstructure:"env"`
	Addr        string `mapstructure:"addr"`
	BaseURL     string `mapstructure:"base_url"`
	FrontendURL string `mapstructure:"frontend_url"`
	LogLevel    string `mapstructure:"log_level"`
	// ProxyHeader names the header holding the client IP when running behind
	// a reverse proxy, e.g. X-Forwarded-For. Empty uses the socket address.
	ProxyHeader string `mapstructure:"proxy_header"`
}

// Production reports whether the service runs with production defaults.
func (c AppConfig) Production() bool {
	return c.Env == "production"
}

type PostgresConfig struct {
	Host              string `mapstructure:"host"`
	User              string `mapstructure:"user"`
	Password          string `mapstructure:"password"`
	Database          string `mapstructure:"database"`
	Port              int    `mapstructure:"port"`
	SSLMode           string `mapstructure:"sslmode"`
	MaxConns          int32  `mapstructure:"max_conns"`
	MinConns          int32  `mapstructure:"min_conns"`
	MaxConnLifetime   string `mapstructure:"max_conn_lifetime"`
	MaxConnIdleTime   string `mapstructure:"max_conn_idle_time"`
	HealthCheckPeriod string `mapstructure:"health_check_period"`
}

type RedisConfig struct {
	Enabled  bool   `mapstructure:"enabled"`
	Host     string `mapstructure:"host"`
	Port     int    `mapstructure:"port"`
	Password string `mapstructure:"password"`
	DB       int    `mapstructure:"db"`
}

type NATSConfig struct {
	Enabled  bool   `mapstructure:"enabled"`
	Host     string `mapstructure:"host"`
	Port     int    `mapstructure:"port"`
	User     string `mapstructure:"user"`
	Password string `mapstructure:"password"`
}

type PrometheusConfig struct {
	Enabled bool   `mapstructure:"enabled"`
	Port    int    `mapstructure:"port"`
	Path    string `mapstructure:"path"`
}

type AuthConfig struct {
	JWTSecret string        `mapstructure:"jwt_secret"`
	TokenTTL  time.Duration `mapstructure:"token_ttl"`
}

// BillingConfig selects the payment provider. Provider "local" signs webhook
// events with WebhookSecret itself and activates plans without a checkout page.
type BillingConfig struct {
	Provider          string `mapstructure:"provider"`
	SecretKey         string `mapstructure:"secret_key"`
	WebhookSecret     string `mapstructure:"webhook_secret"`
	PremiumPriceID    string `mapstructure:"premium_price_id"`
	EnterprisePriceID string `mapstructure:"enterprise_price_id"`
}

type CaptchaConfig struct {
	Enabled   bool          `mapstructure:"enabled"`
	Secret    string        `mapstructure:"secret"`
	VerifyURL string        `mapstructure:"verify_url"`
	Timeout   time.Duration `mapstructure:"timeout"`
}

type RateLimitConfig struct {
	CreateMax      int           `mapstructure:"create_max"`
	CreateWindow   time.Duration `mapstructure:"create_window"`
	RedirectMax    int           `mapstructure:"redirect_max"`
	RedirectWindow time.Duration `mapstructure:"redirect_window"`
	APIMax         int           `mapstructure:"api_max"`
	APIWindow      time.Duration `mapstructure:"api_window"`
}

func Load() (*Config, error) {
	// Load local .env for development (ignored when missing).
	if err := godotenv.Load(".env"); err != nil && !os.IsNotExist(err) {
		return nil, fmt.Errorf("failed to load .env file: %w", err)
	}

	v := viper.New()
	setDefaults(v)

	// Search for config/config.yaml (plus root for overrides).
	v.SetConfigName("config")
	v.SetConfigType("yaml")
	v.AddConfigPath(".")
	v.AddConfigPath("./config")

	// Allow environment variables to override YAML entries.
	v.SetEnvPrefix("")
	v.SetEnvKeyReplacer(strings.NewReplacer(".", "_"))
	v.AutomaticEnv()

	if err := v.ReadInConfig(); err != nil {
		if _, ok := err.(viper.ConfigFileNotFoundError); !ok {
			return nil, fmt.Errorf("failed to read config file: %w", err)
		}
	}

	// Preserve legacy env variable names.
	bindEnvVars(v)

	var cfg Config
	if err := v.Unmarshal(&cfg); err != nil {
		return nil, fmt.Errorf("failed to unmarshal config: %w", err)
	}

	if err := cfg.validate(); err != nil {
		return nil, err
	}

	return &cfg, nil
}

func (c *Config) validate() error {
	if c.Auth.JWTSecret == "" {
		if c.App.Production() {
			return fmt.Errorf("config: auth.jwt_secret is required in production")
		}
		c.Auth.JWTSecret = "dev-only-secret"
	}
	switch c.Billing.Provider {
	case "local", "stripe":
	default:
		return fmt.Errorf("config: unknown billing provider %q", c.Billing.Provider)
	}
	if c.Billing.Provider == "stripe" && (c.Billing.SecretKey == "" || c.Billing.WebhookSecret == "") {
		return fmt.Errorf("config: stripe billing requires secret_key and webhook_secret")
	}
	if c.Captcha.Enabled && c.Captcha.Secret == "" {
		return fmt.Errorf("config: captcha.secret is required when captcha is enabled")
	}
	return nil
}

func setDefaults(v *viper.Viper) {
	v.SetDefault("app.env", "development")
	v.SetDefault("app.addr", ":8080")
	v.SetDefault("app.base_url", "http://localhost:8080")
	v.SetDefault("app.frontend_url", "http://localhost:5173")
	v.SetDefault("app.log_level", "")
	v.SetDefault("app.proxy_header", "")

	v.SetDefault("postgres.host", "localhost")
	v.SetDefault("postgres.user", "postgres")
	v.SetDefault("postgres.password", "")
	v.SetDefault("postgres.database", "shortcut")
	v.SetDefault("postgres.port", 5432)
	v.SetDefault("postgres.sslmode", "disable")
	v.SetDefault("postgres.max_conns", 0)
	v.SetDefault("postgres.min_conns", 0)
	v.SetDefault("postgres.max_conn_lifetime", "")
	v.SetDefault("postgres.max_conn_idle_time", "")
	v.SetDefault("postgres.health_check_period", "")

	v.SetDefault("redis.enabled", false)
	v.SetDefault("redis.host", "localhost")
	v.SetDefault("redis.port", 6379)
	v.SetDefault("redis.password", "")
	v.SetDefault("redis.db", 0)

	v.SetDefault("nats.enabled", false)
	v.SetDefault("nats.host", "localhost")
	v.SetDefault("nats.port", 4222)
	v.SetDefault("nats.user", "")
	v.SetDefault("nats.password", "")

	v.SetDefault("prometheus.enabled", false)
	v.SetDefault("prometheus.port", 9090)
	v.SetDefault("prometheus.path", "/metrics")

	v.SetDefault("auth.jwt_secret", "")
	v.SetDefault("auth.token_ttl", "720h")

	v.SetDefault("billing.provider", "local")
	v.SetDefault("billing.secret_key", "")
	v.SetDefault("billing.webhook_secret", "local-webhook-secret")
	v.SetDefault("billing.premium_price_id", "")
	v.SetDefault("billing.enterprise_price_id", "")

	v.SetDefault("captcha.enabled", false)
	v.SetDefault("captcha.secret", "")
	v.SetDefault("captcha.verify_url", "https://www.google.com/recaptcha/api/siteverify")
	v.SetDefault("captcha.timeout", "5s")

	v.SetDefault("rate_limit.create_max", 10)
	v.SetDefault("rate_limit.create_window", "1h")
	v.SetDefault("rate_limit.redirect_max", 120)
	v.SetDefault("rate_limit.redirect_window", "1m")
	v.SetDefault("rate_limit.api_max", 100)
	v.SetDefault("rate_limit.api_window", "15m")
}

func bindEnvVars(v *viper.Viper) {
	v.BindEnv("app.env", "APP_ENV")
	v.BindEnv("app.addr", "APP_ADDR")
	v.BindEnv("app.base_url", "BASE_URL")
	v.BindEnv("app.frontend_url", "FRONTEND_URL")
	v.BindEnv("app.log_level", "LOG_LEVEL")
	v.BindEnv("app.proxy_header", "PROXY_HEADER")

	// PostgreSQL
	v.BindEnv("postgres.host", "PG_HOST")
	v.BindEnv("postgres.user", "PG_USER")
	v.BindEnv("postgres.password", "PG_PASSWORD")
	v.BindEnv("postgres.database", "PG_DB")
	v.BindEnv("postgres.port", "PG_PORT")
	v.BindEnv("postgres.sslmode", "PG_SSLMODE")

	// Redis
	v.BindEnv("redis.enabled", "REDIS_ENABLED")
	v.BindEnv("redis.host", "REDIS_HOST")
	v.BindEnv("redis.port", "REDIS_PORT")
	v.BindEnv("redis.password", "REDIS_PASSWORD")
	v.BindEnv("redis.db", "REDIS_DB")

	// NATS
	v.BindEnv("nats.enabled", "NATS_ENABLED")
	v.BindEnv("nats.host", "NATS_HOST")
	v.BindEnv("nats.port", "NATS_PORT")
	v.BindEnv("nats.user", "NATS_USER")
	v.BindEnv("nats.password", "NATS_PASSWORD")

	// Prometheus
	v.BindEnv("prometheus.enabled", "PROM_ENABLED")
	v.BindEnv("prometheus.port", "PROM_PORT")
	v.BindEnv("prometheus.path", "PROM_PATH")

	v.BindEnv("auth.jwt_secret", "JWT_SECRET")
	v.BindEnv("auth.token_ttl", "JWT_TTL")

	// Billing
	v.BindEnv("billing.provider", "BILLING_PROVIDER")
	v.BindEnv("billing.secret_key", "STRIPE_SECRET_KEY")
	v.BindEnv("billing.webhook_secret", "STRIPE_WEBHOOK_SECRET")
	v.BindEnv("billing.premium_price_id", "STRIPE_PREMIUM_PRICE_ID")
	v.BindEnv("billing.enterprise_price_id", "STRIPE_ENTERPRISE_PRICE_ID")

	v.BindEnv("captcha.enabled", "CAPTCHA_ENABLED")
	v.BindEnv("captcha.secret", "RECAPTCHA_SECRET_KEY")
}
