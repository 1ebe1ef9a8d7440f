// Package config loads the service configuration from the environment.
package config

import (
	"errors"
	"fmt"
	"net/url"
	"os"
	"strconv"
	"strings"
	"time"

	"github.com/caarlos0/env/v11"
	"github.com/joho/godotenv"
)

// DevJWTSecret is used when JWT_SECRET is unset in development.
const DevJWTSecret = "dev-insecure-secret-change"

type Config struct {
	// HTTP server
	Port               string   `env:"PORT" envDefault:"8081"`
	Environment        string   `env:"ENVIRONMENT" envDefault:"development"`
	CORSOrigins        []string `env:"CORS_ORIGINS" envSeparator:","`
	RateLimitPerMinute int      `env:"RATE_LIMIT_PER_MINUTE" envDefault:"300"`

	// Database
	DBDSN          string `env:"DB_DSN"`
	DBAutoMigrate  bool   `env:"DB_AUTO_MIGRATE" envDefault:"true"`
	DBMaxOpenConns int    `env:"DB_MAX_OPEN_CONNS" envDefault:"10"`
	DBMaxIdleConns int    `env:"DB_MAX_IDLE_CONNS" envDefault:"5"`

	// Auth
	JWTSecret       string        `env:"JWT_SECRET"`
	JWTTTL          time.Duration `env:"JWT_TTL" envDefault:"168h"`
	RefreshTokenTTL time.Duration `env:"REFRESH_TOKEN_TTL" envDefault:"720h"`
	BcryptCost      int           `env:"BCRYPT_COST" envDefault:"12"`

	// Logging
	LogLevel  string `env:"LOG_LEVEL" envDefault:"info"`
	LogFormat string `env:"LOG_FORMAT" envDefault:"text"`

	// AMQP
	AMQPURL      string `env:"AMQP_URL"`
	AMQPExchange string `env:"AMQP_EXCHANGE" envDefault:"worktrack.events"`
	AMQPQueue    string `env:"AMQP_QUEUE" envDefault:"worktrack.events.log"`

	// Receipts
	UploadBase       string  `env:"UPLOAD_BASE" envDefault:"uploads"`
	ReceiptInbox     string  `env:"RECEIPT_INBOX" envDefault:"inbox"`
	ReceiptWorkers   int     `env:"RECEIPT_WORKERS" envDefault:"2"`
	OCRMinConfidence float64 `env:"OCR_MIN_CONFIDENCE" envDefault:"0.15"`
}

// Load reads an optional .env file and parses the environment. Variables
// already present in the environment win over the file.
func Load() (*Config, error) {
	if err := godotenv.Load(); err != nil && !errors.Is(err, os.ErrNotExist) {
		return nil, fmt.Errorf("load .env: %w", err)
	}
	cfg := &Config{}
	if err := env.Parse(cfg); err != nil {
		return nil, fmt.Errorf("parse env: %w", err)
	}
	if cfg.JWTSecret == "" && cfg.IsDevelopment() {
		cfg.JWTSecret = DevJWTSecret
	}
	return cfg, nil
}

func (c *Config) IsDevelopment() bool {
	return c.Environment == "development" || c.Environment == "test"
}

// Addr is the listen address for the HTTP server.
func (c *Config) Addr() string {
	return ":" + c.Port
}

// Validate validates the configuration and returns an error if invalid
func (c *Config) Validate() error {
	var problems []string

	if port, err := strconv.Atoi(c.Port); err != nil {
		problems = append(problems, fmt.Sprintf("invalid port '%s': must be a number", c.Port))
	} else if port < 1 || port > 65535 {
		problems = append(problems, fmt.Sprintf("invalid port %d: must be between 1 and 65535", port))
	}

	if strings.TrimSpace(c.DBDSN) == "" {
		problems = append(problems, "DB_DSN is not set: a Postgres DSN is required")
	}
	if c.DBMaxOpenConns < 1 {
		problems = append(problems, fmt.Sprintf("invalid max open connections %d: must be at least 1", c.DBMaxOpenConns))
	}
	if c.DBMaxIdleConns < 0 || c.DBMaxIdleConns > c.DBMaxOpenConns {
		problems = append(problems, fmt.Sprintf("invalid max idle connections %d: must be between 0 and %d", c.DBMaxIdleConns, c.DBMaxOpenConns))
	}

	if c.JWTSecret == "" {
		problems = append(problems, "JWT_SECRET is required outside development")
	} else if !c.IsDevelopment() && c.JWTSecret == DevJWTSecret {
		problems = append(problems, "JWT_SECRET must not use the development fallback")
	}
	if c.JWTTTL < time.Minute {
		problems = append(problems, fmt.Sprintf("invalid JWT TTL %v: must be at least 1 minute", c.JWTTTL))
	}
	if c.RefreshTokenTTL < c.JWTTTL {
		problems = append(problems, fmt.Sprintf("invalid refresh token TTL %v: must not be shorter than JWT TTL %v", c.RefreshTokenTTL, c.JWTTTL))
	}
	// bcrypt.MinCost and bcrypt.MaxCost
	if c.BcryptCost < 4 || c.BcryptCost > 31 {
		problems = append(problems, fmt.Sprintf("invalid bcrypt cost %d: must be between 4 and 31", c.BcryptCost))
	}

	if c.RateLimitPerMinute < 1 {
		problems = append(problems, fmt.Sprintf("invalid rate limit %d: must be at least 1", c.RateLimitPerMinute))
	}

	switch strings.ToLower(c.LogLevel) {
	case "debug", "info", "warn", "error":
	default:
		problems = append(problems, fmt.Sprintf("invalid log level '%s': must be one of debug, info, warn, error", c.LogLevel))
	}
	if c.LogFormat != "text" && c.LogFormat != "json" {
		problems = append(problems, fmt.Sprintf("invalid log format '%s': must be text or json", c.LogFormat))
	}

	if c.AMQPURL != "" {
		if u, err := url.Parse(c.AMQPURL); err != nil {
			problems = append(problems, fmt.Sprintf("invalid AMQP URL '%s': %v", c.AMQPURL, err))
		} else if u.Scheme != "amqp" && u.Scheme != "amqps" {
			problems = append(problems, fmt.Sprintf("invalid AMQP URL scheme '%s': must be 'amqp' or 'amqps'", u.Scheme))
		}
		if c.AMQPExchange == "" {
			problems = append(problems, "AMQP exchange name cannot be empty when AMQP URL is provided")
		}
		if c.AMQPQueue == "" {
			problems = append(problems, "AMQP queue name cannot be empty when AMQP URL is provided")
		}
	}

	if c.UploadBase == "" {
		problems = append(problems, "UPLOAD_BASE cannot be empty")
	}
	if c.ReceiptWorkers < 1 || c.ReceiptWorkers > 32 {
		problems = append(problems, fmt.Sprintf("invalid receipt workers %d: must be between 1 and 32", c.ReceiptWorkers))
	}
	if c.OCRMinConfidence < 0 || c.OCRMinConfidence > 1 {
		problems = append(problems, fmt.Sprintf("invalid OCR min confidence %v: must be between 0 and 1", c.OCRMinConfidence))
	}

	if len(problems) > 0 {
		return fmt.Errorf("configuration validation failed:\n- %s", strings.Join(problems, "\n- "))
	}
	return nil
}
