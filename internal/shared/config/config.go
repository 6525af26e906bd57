package config

import (
	"fmt"
	"os"
	"strconv"
	"strings"
	"time"
)

type Config struct {
	Server    ServerConfig
	Database  DatabaseConfig
	Stream    StreamConfig
	Sweeper   SweeperConfig
	Telemetry TelemetryConfig
}

type ServerConfig struct {
	Port string
	Host string
}

type DatabaseConfig struct {
	Host     string
	Port     int
	User     string
	Password string
	DBName   string
	SSLMode  string
}

type StreamConfig struct {
	MaxActive         int
	MaxWait           time.Duration
	PollInterval      time.Duration
	InactivityTimeout time.Duration
}

type SweeperConfig struct {
	Enabled  bool
	Interval time.Duration
}

type TelemetryConfig struct {
	Enabled      bool
	ServiceName  string
	OTLPEndpoint string
}

func Load() (*Config, error) {

	dbPort, err := strconv.Atoi(getEnv("DB_PORT", "5432"))
	if err != nil {
		return nil, fmt.Errorf("invalid DB_PORT: %w", err)
	}

	// Parse stream configuration
	maxActive, err := strconv.Atoi(getEnv("STREAM_MAX_ACTIVE", "6"))
	if err != nil {
		return nil, fmt.Errorf("invalid STREAM_MAX_ACTIVE: %w", err)
	}
	maxWait, err := time.ParseDuration(getEnv("STREAM_MAX_WAIT", "8s"))
	if err != nil {
		return nil, fmt.Errorf("invalid STREAM_MAX_WAIT: %w", err)
	}
	pollInterval, err := time.ParseDuration(getEnv("STREAM_POLL_INTERVAL", "500ms"))
	if err != nil {
		return nil, fmt.Errorf("invalid STREAM_POLL_INTERVAL: %w", err)
	}
	inactivityTimeout, err := time.ParseDuration(getEnv("STREAM_INACTIVITY_TIMEOUT", "30m"))
	if err != nil {
		return nil, fmt.Errorf("invalid STREAM_INACTIVITY_TIMEOUT: %w", err)
	}

	// Parse sweeper configuration
	sweeperEnabled := getBoolEnv("SWEEPER_ENABLED", true)
	sweeperInterval, err := time.ParseDuration(getEnv("SWEEPER_INTERVAL", "60s"))
	if err != nil {
		return nil, fmt.Errorf("invalid SWEEPER_INTERVAL: %w", err)
	}

	cfg := &Config{
		Server: ServerConfig{
			Port: getEnv("PORT", "8080"),
			Host: getEnv("HOST", "0.0.0.0"),
		},
		Database: DatabaseConfig{
			Host:     getEnv("DB_HOST", "localhost"),
			Port:     dbPort,
			User:     getEnv("DB_USER", "pixpull"),
			Password: getEnv("DB_PASSWORD", ""),
			DBName:   getEnv("DB_NAME", "pixpull"),
			SSLMode:  getEnv("DB_SSLMODE", "disable"),
		},
		Stream: StreamConfig{
			MaxActive:         maxActive,
			MaxWait:           maxWait,
			PollInterval:      pollInterval,
			InactivityTimeout: inactivityTimeout,
		},
		Sweeper: SweeperConfig{
			Enabled:  sweeperEnabled,
			Interval: sweeperInterval,
		},
		Telemetry: TelemetryConfig{
			Enabled:      getBoolEnv("OTEL_ENABLED", false),
			ServiceName:  getEnv("OTEL_SERVICE_NAME", "pixpull-api"),
			OTLPEndpoint: getEnv("OTEL_EXPORTER_ENDPOINT", "localhost:4318"),
		},
	}

	// Validate stream limits
	if cfg.Stream.MaxActive < 1 {
		return nil, fmt.Errorf("STREAM_MAX_ACTIVE must be at least 1")
	}
	if cfg.Stream.PollInterval <= 0 {
		return nil, fmt.Errorf("STREAM_POLL_INTERVAL must be positive")
	}
	if cfg.Stream.MaxWait < cfg.Stream.PollInterval {
		return nil, fmt.Errorf("STREAM_MAX_WAIT must be at least STREAM_POLL_INTERVAL")
	}

	return cfg, nil
}

func (c *DatabaseConfig) ConnectionString() string {
	return fmt.Sprintf(
		"host=%s port=%d user=%s password=%s dbname=%s sslmode=%s",
		c.Host, c.Port, c.User, c.Password, c.DBName, c.SSLMode,
	)
}

func getEnv(key, defaultValue string) string {
	if value := os.Getenv(key); value != "" {
		return value
	}
	return defaultValue
}

func getBoolEnv(key string, defaultValue bool) bool {
	value := os.Getenv(key)
	if value == "" {
		return defaultValue
	}
	// Accept: true, false, 1, 0, yes, no (case-insensitive)
	switch strings.ToLower(value) {
	case "true", "1", "yes":
		return true
	case "false", "0", "no":
		return false
	default:
		return defaultValue
	}
}
