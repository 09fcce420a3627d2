// Package config provides application configuration loading.
// This is part of the platform layer and contains no business logic.
package config

import (
	"fmt"
	"os"
	"strconv"
	"strings"
	"time"

	"github.com/joho/godotenv"
)

// =============================================================================
// Module-Specific Config Interfaces (Principle of Least Privilege)
// =============================================================================

// DatabaseConfig provides database connection settings.
type DatabaseConfig interface {
	GetDatabaseURL() string
}

// JWTConfig provides JWT validation settings for middleware.
type JWTConfig interface {
	GetJWTAccessSecret() string
}

// HTTPConfig provides settings for the HTTP server.
type HTTPConfig interface {
	GetHTTPAddr() string
	GetCORSAllowAll() bool
	GetCORSOrigins() []string
	GetCORSAllowCreds() bool
}

// SchedulerConfig provides settings for the asynq scheduler and worker.
type SchedulerConfig interface {
	GetRedisURL() string
	GetRedisTLSInsecure() bool
	GetAsynqQueueName() string
	GetMonitorInterval() time.Duration
}

// EmailConfig provides settings for email notification delivery.
type EmailConfig interface {
	GetEmailEnabled() bool
	GetSMTPHost() string
	GetSMTPPort() int
	GetSMTPUsername() string
	GetSMTPPassword() string
	GetEmailFromName() string
	GetEmailFromAddress() string
	GetAppBaseURL() string
}

// SLAConfig provides system-level SLA defaults and assignment settings.
type SLAConfig interface {
	GetSLADefaultDays() int
	GetSLAWarningThreshold() int
	GetSLACriticalThreshold() int
	GetReturnedWindow() time.Duration
	GetAssignmentRole() string
}

// =============================================================================
// Main Config Struct
// =============================================================================

// Config holds all application configuration values.
type Config struct {
	Env             string
	HTTPAddr        string
	DatabaseURL     string
	JWTAccessSecret string

	CORSAllowAll   bool
	CORSOrigins    []string
	CORSAllowCreds bool

	RedisURL         string
	RedisTLSInsecure bool
	AsynqQueueName   string
	MonitorInterval  time.Duration

	EmailEnabled     bool
	SMTPHost         string
	SMTPPort         int
	SMTPUsername     string
	SMTPPassword     string
	EmailFromName    string
	EmailFromAddress string
	AppBaseURL       string

	SLADefaultDays       int
	SLAWarningThreshold  int
	SLACriticalThreshold int
	ReturnedWindowDays   int
	AssignmentRole       string
}

// Load reads configuration from the environment, with a best-effort .env file.
func Load() (*Config, error) {
	_ = godotenv.Load()

	cfg := &Config{
		Env:             getEnv("APP_ENV", "development"),
		HTTPAddr:        getEnv("HTTP_ADDR", ":8080"),
		DatabaseURL:     os.Getenv("DATABASE_URL"),
		JWTAccessSecret: os.Getenv("JWT_ACCESS_SECRET"),

		CORSAllowAll:   getBoolEnv("CORS_ALLOW_ALL", false),
		CORSOrigins:    getListEnv("CORS_ORIGINS"),
		CORSAllowCreds: getBoolEnv("CORS_ALLOW_CREDENTIALS", true),

		RedisURL:         os.Getenv("REDIS_URL"),
		RedisTLSInsecure: getBoolEnv("REDIS_TLS_INSECURE", false),
		AsynqQueueName:   getEnv("ASYNQ_QUEUE", "reclamations"),
		MonitorInterval:  getDurationEnv("SLA_MONITOR_INTERVAL", time.Hour),

		EmailEnabled:     getBoolEnv("EMAIL_ENABLED", false),
		SMTPHost:         os.Getenv("SMTP_HOST"),
		SMTPPort:         getIntEnv("SMTP_PORT", 587),
		SMTPUsername:     os.Getenv("SMTP_USERNAME"),
		SMTPPassword:     os.Getenv("SMTP_PASSWORD"),
		EmailFromName:    getEnv("EMAIL_FROM_NAME", "Reclamations"),
		EmailFromAddress: os.Getenv("EMAIL_FROM_ADDRESS"),
		AppBaseURL:       getEnv("APP_BASE_URL", "http://localhost:3000"),

		SLADefaultDays:       getIntEnv("SLA_DEFAULT_DAYS", 7),
		SLAWarningThreshold:  getIntEnv("SLA_WARNING_THRESHOLD", 70),
		SLACriticalThreshold: getIntEnv("SLA_CRITICAL_THRESHOLD", 90),
		ReturnedWindowDays:   getIntEnv("RETURNED_WINDOW_DAYS", 7),
		AssignmentRole:       getEnv("ASSIGNMENT_ROLE", "gestionnaire"),
	}

	if cfg.DatabaseURL == "" {
		return nil, fmt.Errorf("DATABASE_URL is required")
	}
	if cfg.JWTAccessSecret == "" {
		return nil, fmt.Errorf("JWT_ACCESS_SECRET is required")
	}
	if cfg.SLADefaultDays <= 0 {
		return nil, fmt.Errorf("SLA_DEFAULT_DAYS must be positive")
	}
	if cfg.SLAWarningThreshold <= 0 || cfg.SLACriticalThreshold >= 100 ||
		cfg.SLAWarningThreshold >= cfg.SLACriticalThreshold {
		return nil, fmt.Errorf("SLA thresholds must satisfy 0 < warning < critical < 100")
	}

	return cfg, nil
}

// =============================================================================
// Interface Implementations
// =============================================================================

func (c *Config) GetDatabaseURL() string     { return c.DatabaseURL }
func (c *Config) GetJWTAccessSecret() string { return c.JWTAccessSecret }

func (c *Config) GetHTTPAddr() string       { return c.HTTPAddr }
func (c *Config) GetCORSAllowAll() bool     { return c.CORSAllowAll }
func (c *Config) GetCORSOrigins() []string  { return c.CORSOrigins }
func (c *Config) GetCORSAllowCreds() bool   { return c.CORSAllowCreds }

func (c *Config) GetRedisURL() string                 { return c.RedisURL }
func (c *Config) GetRedisTLSInsecure() bool           { return c.RedisTLSInsecure }
func (c *Config) GetAsynqQueueName() string           { return c.AsynqQueueName }
func (c *Config) GetMonitorInterval() time.Duration   { return c.MonitorInterval }

func (c *Config) GetEmailEnabled() bool       { return c.EmailEnabled }
func (c *Config) GetSMTPHost() string         { return c.SMTPHost }
func (c *Config) GetSMTPPort() int            { return c.SMTPPort }
func (c *Config) GetSMTPUsername() string     { return c.SMTPUsername }
func (c *Config) GetSMTPPassword() string     { return c.SMTPPassword }
func (c *Config) GetEmailFromName() string    { return c.EmailFromName }
func (c *Config) GetEmailFromAddress() string { return c.EmailFromAddress }
func (c *Config) GetAppBaseURL() string       { return c.AppBaseURL }

func (c *Config) GetSLADefaultDays() int       { return c.SLADefaultDays }
func (c *Config) GetSLAWarningThreshold() int  { return c.SLAWarningThreshold }
func (c *Config) GetSLACriticalThreshold() int { return c.SLACriticalThreshold }
func (c *Config) GetReturnedWindow() time.Duration {
	return time.Duration(c.ReturnedWindowDays) * 24 * time.Hour
}
func (c *Config) GetAssignmentRole() string { return c.AssignmentRole }

// =============================================================================
// Env Helpers
// =============================================================================

func getEnv(key, fallback string) string {
	if v := strings.TrimSpace(os.Getenv(key)); v != "" {
		return v
	}
	return fallback
}

func getBoolEnv(key string, fallback bool) bool {
	raw := strings.TrimSpace(os.Getenv(key))
	if raw == "" {
		return fallback
	}
	parsed, err := strconv.ParseBool(raw)
	if err != nil {
		return fallback
	}
	return parsed
}

func getIntEnv(key string, fallback int) int {
	raw := strings.TrimSpace(os.Getenv(key))
	if raw == "" {
		return fallback
	}
	parsed, err := strconv.Atoi(raw)
	if err != nil {
		return fallback
	}
	return parsed
}

func getDurationEnv(key string, fallback time.Duration) time.Duration {
	raw := strings.TrimSpace(os.Getenv(key))
	if raw == "" {
		return fallback
	}
	parsed, err := time.ParseDuration(raw)
	if err != nil || parsed <= 0 {
		return fallback
	}
	return parsed
}

func getListEnv(key string) []string {
	raw := strings.TrimSpace(os.Getenv(key))
	if raw == "" {
		return nil
	}
	parts := strings.Split(raw, ",")
	out := make([]string, 0, len(parts))
	for _, p := range parts {
		if trimmed := strings.TrimSpace(p); trimmed != "" {
			out = append(out, trimmed)
		}
	}
	return out
}
