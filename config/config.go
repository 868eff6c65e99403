package config

import (
	"strings"
	"time"

	"github.com/pkg/errors"
	"github.com/spf13/viper"
)

// AppConfig holds the application configuration
type AppConfig struct {
	Port string `mapstructure:"PORT"`
	Env  string `mapstructure:"ENV"`

	DBURL          string `mapstructure:"DB_URL"`
	DBMaxOpenConns int    `mapstructure:"DB_MAX_OPEN_CONNS"`
	DBMaxIdleConns int    `mapstructure:"DB_MAX_IDLE_CONNS"`

	RedisAddress      string        `mapstructure:"REDIS_URL"`
	RedisPoolSize     int           `mapstructure:"REDIS_POOL_SIZE"`
	RedisMinIdleConns int           `mapstructure:"REDIS_MIN_IDLE_CONNS"`
	RedisDialTimeout  time.Duration `mapstructure:"REDIS_DIAL_TIMEOUT"`
	RedisReadTimeout  time.Duration `mapstructure:"REDIS_READ_TIMEOUT"`
	RedisMaxRetries   int           `mapstructure:"REDIS_MAX_RETRIES"`

	SymmetricKey  string `mapstructure:"SYMMETRIC_KEY"`
	TokenTTLHours int    `mapstructure:"TOKEN_TTL_HOURS"`
	SecureCookies bool   `mapstructure:"SECURE_COOKIES"`

	MediaBackend         string        `mapstructure:"MEDIA_BACKEND"`
	MediaDir             string        `mapstructure:"MEDIA_DIR"`
	S3Bucket             string        `mapstructure:"S3_BUCKET"`
	S3Region             string        `mapstructure:"S3_REGION"`
	S3Endpoint           string        `mapstructure:"S3_ENDPOINT"`
	// MediaTransferTimeout bounds uploads and downloads of media files.
	MediaTransferTimeout time.Duration `mapstructure:"MEDIA_TRANSFER_TIMEOUT"`

	AlertSinks   []string `mapstructure:"ALERT_SINKS"`
	KafkaBrokers []string `mapstructure:"KAFKA_BROKERS"`
	KafkaTopic   string   `mapstructure:"KAFKA_TOPIC"`
	SQSQueueURL  string   `mapstructure:"SQS_QUEUE_URL"`
	SQSRegion    string   `mapstructure:"SQS_REGION"`

	SMTPHost     string `mapstructure:"SMTP_HOST"`
	SMTPPort     int    `mapstructure:"SMTP_PORT"`
	SMTPUser     string `mapstructure:"SMTP_USER"`
	SMTPPassword string `mapstructure:"SMTP_PASSWORD"`
	MailFrom     string `mapstructure:"MAIL_FROM"`

	CORSOrigins    []string `mapstructure:"CORS_ORIGINS"`
	RateLimitRPS   float64  `mapstructure:"RATE_LIMIT_RPS"`
	RateLimitBurst int      `mapstructure:"RATE_LIMIT_BURST"`
}

const (
	MediaLocal = "local"
	MediaS3    = "s3"

	SinkMail  = "mail"
	SinkKafka = "kafka"
	SinkSQS   = "sqs"
)

var defaults = map[string]interface{}{
	"PORT":                   "8930",
	"ENV":                    "production",
	"DB_MAX_OPEN_CONNS":      40,
	"DB_MAX_IDLE_CONNS":      20,
	"REDIS_POOL_SIZE":        10,
	"REDIS_MIN_IDLE_CONNS":   5,
	"REDIS_DIAL_TIMEOUT":     "30s",
	"REDIS_READ_TIMEOUT":     "10s",
	"REDIS_MAX_RETRIES":      3,
	"TOKEN_TTL_HOURS":        24,
	"SECURE_COOKIES":         true,
	"MEDIA_BACKEND":          MediaLocal,
	"MEDIA_DIR":              "media",
	"S3_REGION":              "us-east-1",
	"MEDIA_TRANSFER_TIMEOUT": "15m",
	"ALERT_SINKS":            "",
	"KAFKA_TOPIC":            "sos-alerts",
	"SQS_REGION":             "us-east-1",
	"SMTP_PORT":              587,
	"MAIL_FROM":              "alerts@smarthealth.local",
	"CORS_ORIGINS":           "http://localhost:3000",
	"RATE_LIMIT_RPS":         1,
	"RATE_LIMIT_BURST":       5,
}

var keys = []string{
	"PORT", "ENV", "DB_URL", "DB_MAX_OPEN_CONNS", "DB_MAX_IDLE_CONNS",
	"REDIS_URL", "REDIS_POOL_SIZE", "REDIS_MIN_IDLE_CONNS", "REDIS_DIAL_TIMEOUT", "REDIS_READ_TIMEOUT", "REDIS_MAX_RETRIES",
	"SYMMETRIC_KEY", "TOKEN_TTL_HOURS", "SECURE_COOKIES",
	"MEDIA_BACKEND", "MEDIA_DIR", "S3_BUCKET", "S3_REGION", "S3_ENDPOINT", "MEDIA_TRANSFER_TIMEOUT",
	"ALERT_SINKS", "KAFKA_BROKERS", "KAFKA_TOPIC", "SQS_QUEUE_URL", "SQS_REGION",
	"SMTP_HOST", "SMTP_PORT", "SMTP_USER", "SMTP_PASSWORD", "MAIL_FROM",
	"CORS_ORIGINS", "RATE_LIMIT_RPS", "RATE_LIMIT_BURST",
}

// Load reads the environment, falling back to an optional .env file.
func Load() (*AppConfig, error) {
	v := viper.New()
	v.SetConfigFile(".env")
	v.AutomaticEnv()

	for key, value := range defaults {
		v.SetDefault(key, value)
	}
	for _, key := range keys {
		_ = v.BindEnv(key)
	}

	// A missing .env is fine
	_ = v.ReadInConfig()

	cfg := &AppConfig{}
	if err := v.Unmarshal(cfg); err != nil {
		return nil, errors.Wrap(err, "failed to unmarshal config")
	}

	cfg.AlertSinks = splitList(v.GetString("ALERT_SINKS"))
	cfg.KafkaBrokers = splitList(v.GetString("KAFKA_BROKERS"))
	cfg.CORSOrigins = splitList(v.GetString("CORS_ORIGINS"))

	if err := cfg.Validate(); err != nil {
		return nil, err
	}
	return cfg, nil
}

// Validate checks the settings every command needs.
func (c *AppConfig) Validate() error {
	if c.DBURL == "" {
		return errors.New("missing DB_URL environment variable")
	}
	if c.RedisAddress == "" {
		return errors.New("missing REDIS_URL environment variable")
	}
	if len(c.SymmetricKey) != 32 {
		return errors.New("SYMMETRIC_KEY must be exactly 32 bytes")
	}
	switch c.MediaBackend {
	case MediaLocal:
	case MediaS3:
		if c.S3Bucket == "" {
			return errors.New("S3_BUCKET is required when MEDIA_BACKEND is s3")
		}
	default:
		return errors.Errorf("unknown MEDIA_BACKEND %q", c.MediaBackend)
	}
	for _, sink := range c.AlertSinks {
		switch sink {
		case SinkMail:
			if c.SMTPHost == "" {
				return errors.New("SMTP_HOST is required for the mail alert sink")
			}
		case SinkKafka:
			if len(c.KafkaBrokers) == 0 {
				return errors.New("KAFKA_BROKERS is required for the kafka alert sink")
			}
		case SinkSQS:
			if c.SQSQueueURL == "" {
				return errors.New("SQS_QUEUE_URL is required for the sqs alert sink")
			}
		default:
			return errors.Errorf("unknown alert sink %q", sink)
		}
	}
	return nil
}

func (c *AppConfig) IsDev() bool {
	return c.Env == "development"
}

func (c *AppConfig) TokenTTL() time.Duration {
	return time.Duration(c.TokenTTLHours) * time.Hour
}

func splitList(raw string) []string {
	var out []string
	for _, part := range strings.Split(raw, ",") {
		if part = strings.TrimSpace(part); part != "" {
			out = append(out, part)
		}
	}
	return out
}
