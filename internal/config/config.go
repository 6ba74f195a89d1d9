package config

import (
	"encoding/json"
	"fmt"
	"os"
	"strconv"
	"time"
)

// Config represents the application configuration
type Config struct {
	Server   ServerConfig   `json:"server"`
	Database DatabaseConfig `json:"database"`
	Market   MarketConfig   `json:"market"`
	Security SecurityConfig `json:"security"`
	Logging  LoggingConfig  `json:"logging"`
}

// ServerConfig represents server configuration
type ServerConfig struct {
	Host         string        `json:"host"`
	Port         int           `json:"port"`
	ReadTimeout  time.Duration `json:"read_timeout"`
	WriteTimeout time.Duration `json:"write_timeout"`
	IdleTimeout  time.Duration `json:"idle_timeout"`
}

// DatabaseConfig represents the archive database configuration
type DatabaseConfig struct {
	Host           string        `json:"host"`
	Port           int           `json:"port"`
	User           string        `json:"user"`
	Password       string        `json:"password"`
	DBName         string        `json:"db_name"`
	SSLMode        string        `json:"ssl_mode"`
	MaxConnections int           `json:"max_connections"`
	MaxIdleConns   int           `json:"max_idle_conns"`
	MaxLifetime    time.Duration `json:"max_lifetime"`
}

// MarketConfig carries the trading parameters and background cadences
type MarketConfig struct {
	// FeeBasisPoints is the marketplace fee in hundredths of a percent.
	FeeBasisPoints int64 `json:"fee_basis_points"`
	// MinPurchaseAmount is the smallest purchase accepted, in credits.
	MinPurchaseAmount int64 `json:"min_purchase_amount"`
	// SweepSchedule is the cron expression for background expiry sweeps.
	SweepSchedule string `json:"sweep_schedule"`
	// StatsRefresh is the websocket snapshot broadcast interval.
	StatsRefresh time.Duration `json:"stats_refresh"`
	// ArchiveSyncInterval is the write-behind archive cadence.
	ArchiveSyncInterval time.Duration `json:"archive_sync_interval"`
}

// SecurityConfig
type SecurityConfig struct {
	JWTSecret string `json:"jwt_secret"`
}

// LoggingConfig
type LoggingConfig struct {
	Level string `json:"level"`
}

// LoadConfig loads configuration from file and environment variables
func LoadConfig(configPath string) (*Config, error) {
	// Default config
	config := &Config{
		Server: ServerConfig{
			Host: "0.0.0.0",
			Port: 8080,
		},
		Database: DatabaseConfig{
			Host:    "localhost",
			Port:    5432,
			User:    os.Getenv("USER"),
			DBName:  "carbon_exchange",
			SSLMode: "disable",
		},
		Market: MarketConfig{
			FeeBasisPoints:      250,
			MinPurchaseAmount:   1,
			SweepSchedule:       "@every 1m",
			StatsRefresh:        5 * time.Second,
			ArchiveSyncInterval: 30 * time.Second,
		},
	}

	// Load from file if exists
	if configPath != "" {
		if data, err := os.ReadFile(configPath); err == nil {
			if err := json.Unmarshal(data, config); err != nil {
				return nil, fmt.Errorf("failed to parse config file: %w", err)
			}
		}
	}

	// Override with environment variables
	overrideWithEnv(config)

	return config, nil
}

func overrideWithEnv(config *Config) {
	if host := os.Getenv("SERVER_HOST"); host != "" {
		config.Server.Host = host
	}
	if port := os.Getenv("SERVER_PORT"); port != "" {
		if p, err := strconv.Atoi(port); err == nil {
			config.Server.Port = p
		}
	}
	if dbHost := os.Getenv("DATABASE_HOST"); dbHost != "" {
		config.Database.Host = dbHost
	}
	if dbUser := os.Getenv("DATABASE_USER"); dbUser != "" {
		config.Database.User = dbUser
	}
	if dbPass := os.Getenv("DATABASE_PASSWORD"); dbPass != "" {
		config.Database.Password = dbPass
	}
	if dbName := os.Getenv("DATABASE_DBNAME"); dbName != "" {
		config.Database.DBName = dbName
	}
	if secret := os.Getenv("JWT_SECRET"); secret != "" {
		config.Security.JWTSecret = secret
	}
	if fee := os.Getenv("MARKET_FEE_BASIS_POINTS"); fee != "" {
		if f, err := strconv.ParseInt(fee, 10, 64); err == nil {
			config.Market.FeeBasisPoints = f
		}
	}
	if minAmount := os.Getenv("MARKET_MIN_PURCHASE"); minAmount != "" {
		if m, err := strconv.ParseInt(minAmount, 10, 64); err == nil {
			config.Market.MinPurchaseAmount = m
		}
	}
	if schedule := os.Getenv("MARKET_SWEEP_SCHEDULE"); schedule != "" {
		config.Market.SweepSchedule = schedule
	}
}

// GetDatabaseURL returns the database connection string
func (c *DatabaseConfig) GetDatabaseURL() string {
	return fmt.Sprintf("postgres://%s:%s@%s:%d/%s?sslmode=%s",
		c.User, c.Password, c.Host, c.Port, c.DBName, c.SSLMode)
}

// GetServerAddr returns the server address
func (c *ServerConfig) GetServerAddr() string {
	return fmt.Sprintf("%s:%d", c.Host, c.Port)
}
