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
	Chain    ChainConfig    `json:"chain"`
	Rates    RatesConfig    `json:"rates"`
	Economy  EconomyConfig  `json:"economy"`
	Auth     AuthConfig     `json:"auth"`
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

// DatabaseConfig represents database configuration
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
	MigrationsPath string        `json:"migrations_path"`
}

// ChainConfig holds everything needed to move native funds on chain.
type ChainConfig struct {
	RPCURL        string `json:"rpc_url"`
	PayoutAddress string `json:"payout_address"`
	SigningKey    string `json:"signing_key"`
	ChainID       int64  `json:"chain_id"`
}

// RatesConfig configures the external rate source.
type RatesConfig struct {
	Endpoint    string `json:"endpoint"`
	Currency    string `json:"currency"`
	RefreshSpec string `json:"refresh_spec"` // cron expression
}

// EconomyConfig holds the default economy parameters; the running values are
// owned by the settings service and tunable by the authority.
type EconomyConfig struct {
	CooldownSeconds      int64  `json:"cooldown_seconds"`
	MinPurchaseWei       string `json:"min_purchase_wei"`
	PointsPerAction      uint64 `json:"points_per_action"`
	StreakBonusPerDay    uint64 `json:"streak_bonus_per_day"`
	MaxStreakBonusDays   uint64 `json:"max_streak_bonus_days"`
	PointsPerVirtualTree uint64 `json:"points_per_virtual_tree"`
}

// AuthConfig configures the privileged operations gateway.
type AuthConfig struct {
	JWTSecret string `json:"jwt_secret"`
	Authority string `json:"authority"`
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
			DBName:  "treeledger",
			SSLMode: "disable",
		},
		Rates: RatesConfig{
			Currency:    "usd",
			RefreshSpec: "@every 5m",
		},
		Economy: EconomyConfig{
			CooldownSeconds:      86400,
			MinPurchaseWei:       "1000000000000000",
			PointsPerAction:      10,
			StreakBonusPerDay:    5,
			MaxStreakBonusDays:   7,
			PointsPerVirtualTree: 100,
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
	if rpc := os.Getenv("CHAIN_RPC_URL"); rpc != "" {
		config.Chain.RPCURL = rpc
	}
	if payout := os.Getenv("CHAIN_PAYOUT_ADDRESS"); payout != "" {
		config.Chain.PayoutAddress = payout
	}
	if key := os.Getenv("CHAIN_SIGNING_KEY"); key != "" {
		config.Chain.SigningKey = key
	}
	if secret := os.Getenv("AUTH_JWT_SECRET"); secret != "" {
		config.Auth.JWTSecret = secret
	}
	if authority := os.Getenv("AUTH_AUTHORITY"); authority != "" {
		config.Auth.Authority = authority
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
