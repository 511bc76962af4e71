package config

import (
	"fmt"
	"os"
	"strconv"
	"time"
)

// Config holds all application configuration
type Config struct {
	// Server configuration
	ServerAddress string
	Environment   string

	// Calendar service (pull interface)
	CalendarBaseURL string
	CalendarTimeout time.Duration

	// Reminder scheduler
	ReminderInterval time.Duration
	ReminderTimezone string
	LookaheadHorizon time.Duration

	// Event bus
	EventBusName string
	AWSRegion    string

	// Logging
	LogLevel string

	// Authentication
	JWTSecret string
	JWTIssuer string

	// Feature flags
	EnableCORS bool
}

// LoadConfig loads configuration from environment variables
func LoadConfig() (*Config, error) {
	cfg := &Config{
		ServerAddress: getEnv("SERVER_ADDRESS", ":8084"),
		Environment:   getEnv("ENVIRONMENT", "development"),

		CalendarBaseURL: getEnv("CALENDAR_SERVICE_URL", "http://calendar-service:8082"),
		CalendarTimeout: getEnvDuration("CALENDAR_TIMEOUT", 10*time.Second),

		ReminderInterval: getEnvDuration("REMINDER_INTERVAL", time.Minute),
		ReminderTimezone: getEnv("REMINDER_TIMEZONE", "Europe/Paris"),
		LookaheadHorizon: getEnvDuration("LOOKAHEAD_HORIZON", 25*time.Hour),

		EventBusName: getEnv("EVENT_BUS_NAME", ""),
		AWSRegion:    getEnv("AWS_REGION", "us-west-2"),

		LogLevel:   getEnv("LOG_LEVEL", "info"),
		JWTSecret:  getEnv("JWT_SECRET", ""),
		JWTIssuer:  getEnv("JWT_ISSUER", "agenda-auth"),
		EnableCORS: getEnvBool("ENABLE_CORS", true),
	}

	// Validate required configuration
	if err := cfg.Validate(); err != nil {
		return nil, err
	}

	return cfg, nil
}

// Validate checks if all required configuration is present
func (c *Config) Validate() error {
	if c.CalendarBaseURL == "" {
		return fmt.Errorf("CALENDAR_SERVICE_URL is required")
	}
	if c.Environment == "production" && c.JWTSecret == "" {
		return fmt.Errorf("JWT_SECRET is required in production")
	}
	if c.ReminderInterval < time.Second {
		return fmt.Errorf("REMINDER_INTERVAL must be at least one second")
	}
	return nil
}

// IsDevelopment checks if running in development mode
func (c *Config) IsDevelopment() bool {
	return c.Environment == "development"
}

// IsProduction checks if running in production mode
func (c *Config) IsProduction() bool {
	return c.Environment == "production"
}

// getEnv gets an environment variable with a default value
func getEnv(key, defaultValue string) string {
	if value := os.Getenv(key); value != "" {
		return value
	}
	return defaultValue
}

// getEnvBool gets a boolean environment variable with a default value
func getEnvBool(key string, defaultValue bool) bool {
	value := os.Getenv(key)
	if value == "" {
		return defaultValue
	}
	return value == "true" || value == "1" || value == "yes"
}

// getEnvDuration gets a duration environment variable with a default value.
// Plain integers are read as seconds.
func getEnvDuration(key string, defaultValue time.Duration) time.Duration {
	value := os.Getenv(key)
	if value == "" {
		return defaultValue
	}
	if d, err := time.ParseDuration(value); err == nil {
		return d
	}
	if secs, err := strconv.Atoi(value); err == nil {
		return time.Duration(secs) * time.Second
	}
	return defaultValue
}
