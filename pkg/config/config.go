package config

import (
	"fmt"
	"net/url"
	"time"

	"github.com/joho/godotenv"
)

// Config holds the runtime configuration for the bankin-collector.
type Config struct {
	ServiceName string
	Env         string
	LogLevel    string

	// Upstream API
	BaseURL      string
	ClientID     string
	ClientSecret string
	Username     string
	Password     string

	// When set, credentials above are replaced by the JSON secret of that name.
	SecretName string
	AWSRegion  string

	HTTPTimeout time.Duration
	RetryMax    int
	MaxPages    int
	Concurrency int

	OutputPath string

	// Optional sinks, disabled when empty.
	NATSURL        string
	ReportSubject  string
	RedisAddr      string
	RedisDB        int
	ReportTTL      time.Duration
	DatabaseURL    string
	PushgatewayURL string

	SandboxPort int
}

// Load loads configuration from environment variables and optional .env file.
func Load() *Config {
	_ = godotenv.Load()

	return &Config{
		ServiceName:    GetEnv("SERVICE_NAME", "bankin-collector"),
		Env:            GetEnv("ENV", "dev"),
		LogLevel:       GetEnv("LOG_LEVEL", "info"),
		BaseURL:        GetEnv("BANKIN_API_URL", "http://localhost:3000"),
		ClientID:       GetEnv("BANKIN_CLIENT_ID", "BankinClientId"),
		ClientSecret:   GetEnv("BANKIN_CLIENT_SECRET", "secret"),
		Username:       GetEnv("BANKIN_USER", "BankinUser"),
		Password:       GetEnv("BANKIN_PASSWORD", "12345678"),
		SecretName:     GetEnv("BANKIN_SECRET_NAME", ""),
		AWSRegion:      GetEnv("AWS_REGION", "eu-west-3"),
		HTTPTimeout:    GetEnvDuration("BANKIN_HTTP_TIMEOUT", 30*time.Second),
		RetryMax:       GetEnvInt("BANKIN_RETRY_MAX", 0),
		MaxPages:       GetEnvInt("BANKIN_MAX_PAGES", 1000),
		Concurrency:    GetEnvInt("BANKIN_CONCURRENCY", 1),
		OutputPath:     GetEnv("OUTPUT_PATH", "data.json"),
		NATSURL:        GetEnv("NATS_URL", ""),
		ReportSubject:  GetEnv("REPORT_SUBJECT", "evt.bankin.report.collected.v1"),
		RedisAddr:      GetEnv("REDIS_ADDR", ""),
		RedisDB:        GetEnvInt("REDIS_DB", 0),
		ReportTTL:      GetEnvDuration("REPORT_TTL", 24*time.Hour),
		DatabaseURL:    GetEnv("DATABASE_URL", ""),
		PushgatewayURL: GetEnv("PUSHGATEWAY_URL", ""),
		SandboxPort:    GetEnvInt("SANDBOX_PORT", 3000),
	}
}

// Validate ensures required fields are present and numeric settings are in range.
func (c *Config) Validate() error {
	if c.BaseURL == "" {
		return fmt.Errorf("BANKIN_API_URL is required")
	}
	if u, err := url.Parse(c.BaseURL); err != nil || u.Scheme == "" || u.Host == "" {
		return fmt.Errorf("BANKIN_API_URL must be an absolute URL, got %q", c.BaseURL)
	}
	if c.SecretName == "" {
		if c.ClientID == "" || c.ClientSecret == "" {
			return fmt.Errorf("BANKIN_CLIENT_ID and BANKIN_CLIENT_SECRET are required")
		}
		if c.Username == "" || c.Password == "" {
			return fmt.Errorf("BANKIN_USER and BANKIN_PASSWORD are required")
		}
	}
	if c.HTTPTimeout <= 0 {
		return fmt.Errorf("BANKIN_HTTP_TIMEOUT must be positive")
	}
	if c.RetryMax < 0 {
		return fmt.Errorf("BANKIN_RETRY_MAX cannot be negative")
	}
	if c.MaxPages < 0 {
		return fmt.Errorf("BANKIN_MAX_PAGES cannot be negative")
	}
	if c.Concurrency < 1 {
		return fmt.Errorf("BANKIN_CONCURRENCY must be at least 1")
	}
	if c.OutputPath == "" {
		return fmt.Errorf("OUTPUT_PATH is required")
	}
	return nil
}
