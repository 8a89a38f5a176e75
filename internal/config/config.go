package config

import (
	"errors"
	"fmt"
	"io/fs"
	"net/url"
	"strings"
	"time"

	"github.com/MrEthical07/goContacts/internal/rate"
	"github.com/joho/godotenv"
	"github.com/spf13/viper"
)

const minSecretLength = 32

type Config struct {
	HTTPAddr         string        `mapstructure:"HTTP_ADDR"`
	HTTPReadTimeout  time.Duration `mapstructure:"HTTP_READ_TIMEOUT"`
	HTTPWriteTimeout time.Duration `mapstructure:"HTTP_WRITE_TIMEOUT"`
	RequestTimeout   time.Duration `mapstructure:"REQUEST_TIMEOUT"`
	ShutdownTimeout  time.Duration `mapstructure:"SHUTDOWN_TIMEOUT"`

	LogLevel  string `mapstructure:"LOG_LEVEL"`
	LogFormat string `mapstructure:"LOG_FORMAT"`

	// An empty DSN keeps accounts and contacts in memory.
	DatabaseDSN       string        `mapstructure:"DATABASE_DSN"`
	DBMaxOpenConns    int           `mapstructure:"DB_MAX_OPEN_CONNS"`
	DBMaxIdleConns    int           `mapstructure:"DB_MAX_IDLE_CONNS"`
	DBConnMaxLifetime time.Duration `mapstructure:"DB_CONN_MAX_LIFETIME"`
	MigrateOnStart    bool          `mapstructure:"MIGRATE_ON_START"`

	RedisAddr     string `mapstructure:"REDIS_ADDR"`
	RedisPassword string `mapstructure:"REDIS_PASSWORD"`
	RedisDB       int    `mapstructure:"REDIS_DB"`

	JWTSecret       string        `mapstructure:"JWT_SECRET"`
	JWTIssuer       string        `mapstructure:"JWT_ISSUER"`
	AccessTokenTTL  time.Duration `mapstructure:"ACCESS_TOKEN_TTL"`
	RefreshTokenTTL time.Duration `mapstructure:"REFRESH_TOKEN_TTL"`
	ConfirmTokenTTL time.Duration `mapstructure:"CONFIRM_TOKEN_TTL"`
	RevokeOnReuse   bool          `mapstructure:"REVOKE_ON_REUSE"`

	RateLimitBackend       string        `mapstructure:"RATE_LIMIT_BACKEND"`
	RateLimitFailurePolicy string        `mapstructure:"RATE_LIMIT_FAILURE_POLICY"`
	RateLimitStoreTimeout  time.Duration `mapstructure:"RATE_LIMIT_STORE_TIMEOUT"`
	RateLimitDefault       string        `mapstructure:"RATE_LIMIT_DEFAULT"`
	RateLimitRoutes        string        `mapstructure:"RATE_LIMIT_ROUTES"`

	// An empty bucket disables avatar uploads.
	S3Region       string `mapstructure:"S3_REGION"`
	S3Endpoint     string `mapstructure:"S3_ENDPOINT"`
	S3AccessKey    string `mapstructure:"S3_ACCESS_KEY"`
	S3SecretKey    string `mapstructure:"S3_SECRET_KEY"`
	S3Bucket       string `mapstructure:"S3_BUCKET"`
	S3PublicURL    string `mapstructure:"S3_PUBLIC_URL"`
	S3UsePathStyle bool   `mapstructure:"S3_USE_PATH_STYLE"`
	AvatarMaxBytes int64  `mapstructure:"AVATAR_MAX_BYTES"`

	MailBackend   string   `mapstructure:"MAIL_BACKEND"`
	KafkaBrokers  []string `mapstructure:"KAFKA_BROKERS"`
	KafkaTopic    string   `mapstructure:"KAFKA_TOPIC"`
	PublicBaseURL string   `mapstructure:"PUBLIC_BASE_URL"`

	AuditSink      string `mapstructure:"AUDIT_SINK"`
	AuditBuffer    int    `mapstructure:"AUDIT_BUFFER"`
	MetricsEnabled bool   `mapstructure:"METRICS_ENABLED"`
	MetricsRuntime bool   `mapstructure:"METRICS_RUNTIME"`

	// OTelMetricsEndpoint is a full OTLP/HTTP URL, e.g.
	// http://collector:4318/v1/metrics. Empty disables the push exporter.
	OTelMetricsEndpoint string        `mapstructure:"OTEL_METRICS_ENDPOINT"`
	OTelMetricsInterval time.Duration `mapstructure:"OTEL_METRICS_INTERVAL"`
}

var defaults = map[string]any{
	"HTTP_ADDR":          ":8000",
	"HTTP_READ_TIMEOUT":  "10s",
	"HTTP_WRITE_TIMEOUT": "10s",
	"REQUEST_TIMEOUT":    "5s",
	"SHUTDOWN_TIMEOUT":   "10s",

	"LOG_LEVEL":  "info",
	"LOG_FORMAT": "json",

	"DATABASE_DSN":         "",
	"DB_MAX_OPEN_CONNS":    20,
	"DB_MAX_IDLE_CONNS":    5,
	"DB_CONN_MAX_LIFETIME": "30m",
	"MIGRATE_ON_START":     true,

	"REDIS_ADDR":     "localhost:6379",
	"REDIS_PASSWORD": "",
	"REDIS_DB":       0,

	"JWT_SECRET":        "",
	"JWT_ISSUER":        "goContacts",
	"ACCESS_TOKEN_TTL":  "15m",
	"REFRESH_TOKEN_TTL": "168h",
	"CONFIRM_TOKEN_TTL": "24h",
	"REVOKE_ON_REUSE":   true,

	"RATE_LIMIT_BACKEND":        "redis",
	"RATE_LIMIT_FAILURE_POLICY": "error",
	"RATE_LIMIT_STORE_TIMEOUT":  "250ms",
	"RATE_LIMIT_DEFAULT":        "100/1m",
	"RATE_LIMIT_ROUTES":         "auth.signup=5/1m,auth.login=5/1m,auth.refresh=10/1m,auth.confirm=10/1m,auth.request_email=3/1m,contacts.create=10/1m",

	"S3_REGION":         "us-east-1",
	"S3_ENDPOINT":       "",
	"S3_ACCESS_KEY":     "",
	"S3_SECRET_KEY":     "",
	"S3_BUCKET":         "",
	"S3_PUBLIC_URL":     "",
	"S3_USE_PATH_STYLE": true,
	"AVATAR_MAX_BYTES":  2 << 20,

	"MAIL_BACKEND":    "log",
	"KAFKA_BROKERS":   []string{"localhost:9092"},
	"KAFKA_TOPIC":     "contacts.mail",
	"PUBLIC_BASE_URL": "http://localhost:8000",

	"AUDIT_SINK":      "zap",
	"AUDIT_BUFFER":    1024,
	"METRICS_ENABLED": true,
	"METRICS_RUNTIME": true,

	"OTEL_METRICS_ENDPOINT": "",
	"OTEL_METRICS_INTERVAL": "30s",
}

// Load reads the optional .env files (the working directory's .env when none
// are given), then the environment, applies defaults and validates.
// Variables already set in the environment win over .env entries.
func Load(envFiles ...string) (*Config, error) {
	if err := loadDotenv(envFiles); err != nil {
		return nil, err
	}

	v := viper.New()
	for key, value := range defaults {
		v.SetDefault(key, value)
	}
	v.SetEnvKeyReplacer(strings.NewReplacer(".", "_"))
	v.AutomaticEnv()

	var cfg Config
	if err := v.Unmarshal(&cfg); err != nil {
		return nil, fmt.Errorf("failed to unmarshal config: %w", err)
	}
	cfg.KafkaBrokers = splitList(cfg.KafkaBrokers)

	if err := cfg.Validate(); err != nil {
		return nil, err
	}
	return &cfg, nil
}

func loadDotenv(files []string) error {
	if len(files) == 0 {
		if err := godotenv.Load(); err != nil && !isNotExist(err) {
			return fmt.Errorf("load .env: %w", err)
		}
		return nil
	}
	for _, f := range files {
		if err := godotenv.Load(f); err != nil && !isNotExist(err) {
			return fmt.Errorf("load %s: %w", f, err)
		}
	}
	return nil
}

// Validate rejects settings the service cannot start with.
func (c *Config) Validate() error {
	// JWT
	if len(c.JWTSecret) < minSecretLength {
		return fmt.Errorf("JWT_SECRET must be at least %d bytes", minSecretLength)
	}
	if c.AccessTokenTTL <= 0 || c.RefreshTokenTTL <= 0 || c.ConfirmTokenTTL <= 0 {
		return errors.New("token TTLs must be > 0")
	}
	if c.AccessTokenTTL >= c.RefreshTokenTTL {
		return errors.New("ACCESS_TOKEN_TTL must be shorter than REFRESH_TOKEN_TTL")
	}

	// HTTP
	if c.HTTPAddr == "" {
		return errors.New("HTTP_ADDR must be set")
	}
	if c.RequestTimeout <= 0 {
		return errors.New("REQUEST_TIMEOUT must be > 0")
	}

	// Rate limiting
	switch c.RateLimitBackend {
	case "redis":
		if c.RedisAddr == "" {
			return errors.New("REDIS_ADDR is required for the redis rate limit backend")
		}
	case "memory":
	default:
		return fmt.Errorf("unknown RATE_LIMIT_BACKEND %q", c.RateLimitBackend)
	}
	if _, err := rate.ParseFailurePolicy(c.RateLimitFailurePolicy); err != nil {
		return err
	}
	if c.RateLimitStoreTimeout <= 0 {
		return errors.New("RATE_LIMIT_STORE_TIMEOUT must be > 0")
	}
	if _, _, err := c.RatePolicies(); err != nil {
		return err
	}

	// Mail
	switch c.MailBackend {
	case "kafka":
		if len(c.KafkaBrokers) == 0 || c.KafkaTopic == "" {
			return errors.New("KAFKA_BROKERS and KAFKA_TOPIC are required for the kafka mail backend")
		}
	case "log":
	default:
		return fmt.Errorf("unknown MAIL_BACKEND %q", c.MailBackend)
	}
	if !absoluteURL(c.PublicBaseURL) {
		return errors.New("PUBLIC_BASE_URL must be an absolute URL")
	}

	// Avatars
	if c.S3Bucket != "" && !absoluteURL(c.S3PublicURL) {
		return errors.New("S3_PUBLIC_URL must be an absolute URL when S3_BUCKET is set")
	}
	if c.AvatarMaxBytes <= 0 {
		return errors.New("AVATAR_MAX_BYTES must be > 0")
	}

	switch c.AuditSink {
	case "zap", "json", "none":
	default:
		return fmt.Errorf("unknown AUDIT_SINK %q", c.AuditSink)
	}
	if c.AuditBuffer < 0 {
		return errors.New("AUDIT_BUFFER must be >= 0")
	}

	// Metrics
	if c.OTelMetricsEndpoint != "" {
		if !absoluteURL(c.OTelMetricsEndpoint) {
			return errors.New("OTEL_METRICS_ENDPOINT must be an absolute URL")
		}
		if c.OTelMetricsInterval <= 0 {
			return errors.New("OTEL_METRICS_INTERVAL must be > 0")
		}
	}
	return nil
}

// RatePolicies parses the default and per-route rate limit policies.
func (c *Config) RatePolicies() (rate.Policy, map[string]rate.Policy, error) {
	def, err := rate.ParsePolicy(c.RateLimitDefault)
	if err != nil {
		return rate.Policy{}, nil, err
	}
	routes, err := rate.ParseRoutes(c.RateLimitRoutes)
	if err != nil {
		return rate.Policy{}, nil, err
	}
	return def, routes, nil
}

func isNotExist(err error) bool {
	return errors.Is(err, fs.ErrNotExist)
}

func absoluteURL(s string) bool {
	u, err := url.Parse(s)
	return err == nil && u.Scheme != "" && u.Host != ""
}

// splitList flattens comma separated entries, which is how list values
// arrive from a single environment variable.
func splitList(in []string) []string {
	var out []string
	for _, item := range in {
		for _, part := range strings.Split(item, ",") {
			if part = strings.TrimSpace(part); part != "" {
				out = append(out, part)
			}
		}
	}
	return out
}
