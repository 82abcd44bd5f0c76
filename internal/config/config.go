package config

import (
	"fmt"
	"os"
	"regexp"
	"strings"
	"time"

	"github.com/joho/godotenv"
	"gopkg.in/yaml.v3"
)

// Config holds all configuration for the tracking server and worker
type Config struct {
	Server   ServerConfig   `yaml:"server"`
	Database DatabaseConfig `yaml:"database"`
	Redis    RedisConfig    `yaml:"redis"`
	Tracking TrackingConfig `yaml:"tracking"`
	AWS      AWSConfig      `yaml:"aws"`
	Sink     SinkConfig     `yaml:"sink"`
	Notify   NotifyConfig   `yaml:"notify"`
	Logging  LoggingConfig  `yaml:"logging"`
}

// ServerConfig holds HTTP server configuration
type ServerConfig struct {
	Port                int      `yaml:"port"`
	Host                string   `yaml:"host"`
	AllowedOrigins      []string `yaml:"allowed_origins"`
	AdminToken          string   `yaml:"admin_token"`
	ReadTimeoutSeconds  int      `yaml:"read_timeout_seconds"`
	WriteTimeoutSeconds int      `yaml:"write_timeout_seconds"`
}

// GetHost returns the server host, listening on all interfaces in a container
func (c ServerConfig) GetHost() string {
	if os.Getenv("ECS_CONTAINER_METADATA_URI") != "" || os.Getenv("AWS_EXECUTION_ENV") != "" {
		return "0.0.0.0"
	}
	if host := os.Getenv("SERVER_HOST"); host != "" {
		return host
	}
	return c.Host
}

// Addr is host:port for http.Server.
func (c ServerConfig) Addr() string {
	return fmt.Sprintf("%s:%d", c.GetHost(), c.Port)
}

func (c ServerConfig) ReadTimeout() time.Duration {
	return time.Duration(c.ReadTimeoutSeconds) * time.Second
}

func (c ServerConfig) WriteTimeout() time.Duration {
	return time.Duration(c.WriteTimeoutSeconds) * time.Second
}

// DatabaseConfig holds the PostgreSQL connection settings
type DatabaseConfig struct {
	URL          string `yaml:"url"`
	MaxOpenConns int    `yaml:"max_open_conns"`
	MaxIdleConns int    `yaml:"max_idle_conns"`
}

// RedisConfig holds the configuration cache settings. An empty Addr
// disables the cache.
type RedisConfig struct {
	Addr            string `yaml:"addr"`
	Password        string `yaml:"password"`
	DB              int    `yaml:"db"`
	CacheTTLSeconds int    `yaml:"cache_ttl_seconds"`
}

func (c RedisConfig) Enabled() bool { return c.Addr != "" }

func (c RedisConfig) CacheTTL() time.Duration {
	return time.Duration(c.CacheTTLSeconds) * time.Second
}

// TrackingConfig holds the tracking pipeline settings
type TrackingConfig struct {
	// Currency is the fixed currency code sent to vendors with event values.
	Currency      string `yaml:"currency"`
	SessionCookie string `yaml:"session_cookie"`
	SecureCookie  bool   `yaml:"secure_cookie"`
}

// AWSConfig holds the credentials shared by SQS, SES and S3. Empty keys use
// the default credential chain (IAM role on ECS).
type AWSConfig struct {
	Region    string `yaml:"region"`
	Profile   string `yaml:"profile"`
	AccessKey string `yaml:"access_key"`
	SecretKey string `yaml:"secret_key"`
}

// GetProfile returns the AWS profile, ignoring it on ECS/Lambda
func (c AWSConfig) GetProfile() string {
	if v := os.Getenv("AWS_PROFILE_OVERRIDE"); v != "" {
		if v == "none" || v == "iam" {
			return ""
		}
		return v
	}
	if os.Getenv("ECS_CONTAINER_METADATA_URI") != "" || os.Getenv("AWS_EXECUTION_ENV") != "" {
		return ""
	}
	return c.Profile
}

// SinkConfig holds the event queue settings. Without a queue URL recorded
// events are dispatched in-process.
type SinkConfig struct {
	QueueURL string `yaml:"queue_url"`
}

// NotifyConfig holds the downstream notifiers run on each recorded event
type NotifyConfig struct {
	LeadEmail LeadEmailConfig `yaml:"lead_email"`
	Sheets    SheetsConfig    `yaml:"sheets"`
	Archive   ArchiveConfig   `yaml:"archive"`
}

type LeadEmailConfig struct {
	Enabled bool     `yaml:"enabled"`
	From    string   `yaml:"from"`
	To      []string `yaml:"to"`
	Events  []string `yaml:"events"`
}

type SheetsConfig struct {
	WebhookURL string `yaml:"webhook_url"`
	MaxRetries int    `yaml:"max_retries"`
}

type ArchiveConfig struct {
	Bucket string `yaml:"bucket"`
	Prefix string `yaml:"prefix"`
}

// LoggingConfig holds the log level. E-mails and IPs are redacted from logs
// unless LogPII is set.
type LoggingConfig struct {
	Level  string `yaml:"level"`
	LogPII bool   `yaml:"log_pii"`
}

var currencyPattern = regexp.MustCompile(`^[A-Z]{3}$`)

// Validate reports settings that would make the service misbehave.
func (c *Config) Validate() error {
	if !currencyPattern.MatchString(c.Tracking.Currency) {
		return fmt.Errorf("tracking.currency must be an ISO 4217 code, got %q", c.Tracking.Currency)
	}
	if c.Notify.LeadEmail.Enabled && (c.Notify.LeadEmail.From == "" || len(c.Notify.LeadEmail.To) == 0) {
		return fmt.Errorf("notify.lead_email needs from and to when enabled")
	}
	return nil
}

// Load reads and parses the configuration file
func Load(path string) (*Config, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("read config: %w", err)
	}

	var cfg Config
	if err := yaml.Unmarshal(data, &cfg); err != nil {
		return nil, fmt.Errorf("parse config: %w", err)
	}
	cfg.applyDefaults()
	return &cfg, nil
}

func (cfg *Config) applyDefaults() {
	if cfg.Server.Port == 0 {
		cfg.Server.Port = 8080
	}
	if cfg.Server.Host == "" {
		cfg.Server.Host = "localhost"
	}
	if cfg.Server.ReadTimeoutSeconds == 0 {
		cfg.Server.ReadTimeoutSeconds = 15
	}
	if cfg.Server.WriteTimeoutSeconds == 0 {
		cfg.Server.WriteTimeoutSeconds = 30
	}
	if cfg.Database.MaxOpenConns == 0 {
		cfg.Database.MaxOpenConns = 20
	}
	if cfg.Database.MaxIdleConns == 0 {
		cfg.Database.MaxIdleConns = 5
	}
	if cfg.Redis.CacheTTLSeconds == 0 {
		cfg.Redis.CacheTTLSeconds = 60
	}
	if cfg.Tracking.Currency == "" {
		cfg.Tracking.Currency = "USD"
	}
	cfg.Tracking.Currency = strings.ToUpper(cfg.Tracking.Currency)
	if cfg.Tracking.SessionCookie == "" {
		cfg.Tracking.SessionCookie = "utm_session_id"
	}
	if cfg.AWS.Region == "" {
		cfg.AWS.Region = "us-west-2"
	}
	if cfg.Notify.Sheets.MaxRetries == 0 {
		cfg.Notify.Sheets.MaxRetries = 3
	}
	if cfg.Notify.Archive.Prefix == "" {
		cfg.Notify.Archive.Prefix = "conversion-events"
	}
	if cfg.Logging.Level == "" {
		cfg.Logging.Level = "info"
	}
}

// LoadFromEnv loads configuration with environment variable overrides.
// A .env file is loaded first if present, so secrets can live in .env
// locally and in real env vars on ECS.
func LoadFromEnv(path string) (*Config, error) {
	_ = godotenv.Load()

	cfg, err := Load(path)
	if err != nil {
		return nil, err
	}

	if v := os.Getenv("DATABASE_URL"); v != "" {
		cfg.Database.URL = v
	}
	if v := os.Getenv("REDIS_ADDR"); v != "" {
		cfg.Redis.Addr = v
	}
	if v := os.Getenv("REDIS_PASSWORD"); v != "" {
		cfg.Redis.Password = v
	}
	if v := os.Getenv("ADMIN_TOKEN"); v != "" {
		cfg.Server.AdminToken = v
	}
	if v := os.Getenv("ALLOWED_ORIGINS"); v != "" {
		cfg.Server.AllowedOrigins = splitList(v)
	}
	if v := os.Getenv("TRACKING_CURRENCY"); v != "" {
		cfg.Tracking.Currency = strings.ToUpper(v)
	}
	if v := os.Getenv("AWS_REGION"); v != "" {
		cfg.AWS.Region = v
	}
	if v := os.Getenv("AWS_SES_ACCESS_KEY"); v != "" {
		cfg.AWS.AccessKey = v
	}
	if v := os.Getenv("AWS_SES_SECRET_KEY"); v != "" {
		cfg.AWS.SecretKey = v
	}
	if v := os.Getenv("SINK_QUEUE_URL"); v != "" {
		cfg.Sink.QueueURL = v
	}
	if v := os.Getenv("SHEETS_WEBHOOK_URL"); v != "" {
		cfg.Notify.Sheets.WebhookURL = v
	}
	if v := os.Getenv("ARCHIVE_BUCKET"); v != "" {
		cfg.Notify.Archive.Bucket = v
	}
	if v := os.Getenv("LEAD_EMAIL_FROM"); v != "" {
		cfg.Notify.LeadEmail.From = v
	}
	if v := os.Getenv("LEAD_EMAIL_TO"); v != "" {
		cfg.Notify.LeadEmail.To = splitList(v)
		cfg.Notify.LeadEmail.Enabled = true
	}
	if v := os.Getenv("LOG_LEVEL"); v != "" {
		cfg.Logging.Level = v
	}

	return cfg, nil
}

func splitList(s string) []string {
	var out []string
	for _, part := range strings.Split(s, ",") {
		if p := strings.TrimSpace(part); p != "" {
			out = append(out, p)
		}
	}
	return out
}
