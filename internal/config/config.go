// Package config provides configuration management for the wallet portfolio
// service. It loads configuration from environment variables and .env files.
package config

import (
	"fmt"
	"os"
	"strconv"
	"strings"
	"time"

	"github.com/joho/godotenv"
	"github.com/shopspring/decimal"
)

// Config holds all application configuration
type Config struct {
	Server   ServerConfig
	Database DatabaseConfig
	Chains   ChainsConfig
	Pricing  PricingConfig
	Logging  LoggingConfig
}

// ServerConfig holds HTTP server configuration
type ServerConfig struct {
	Port string
	Host string
}

// DatabaseConfig holds database configuration
type DatabaseConfig struct {
	Postgres   PostgresConfig
	Redis      RedisConfig
	ClickHouse ClickHouseConfig
}

// PostgresConfig holds Postgres configuration
type PostgresConfig struct {
	Host           string
	Port           string
	Database       string
	User           string
	Password       string
	MaxConnections int
}

// RedisConfig holds Redis configuration
type RedisConfig struct {
	Host           string
	Port           string
	Password       string
	DB             int
	MaxConnections int
	MetadataTTL    time.Duration
}

// ClickHouseConfig holds ClickHouse configuration for the quote archive.
// The archive is optional; an empty host disables it.
type ClickHouseConfig struct {
	Host     string
	Port     string
	Database string
	User     string
	Password string
}

// ChainsConfig holds chain configuration
type ChainsConfig struct {
	Enabled []string
	Chains  map[string]ChainConfig
}

// ChainConfig holds configuration for a specific chain
type ChainConfig struct {
	RPCURL       string
	FetchTimeout time.Duration
	// Tokens lists ERC-20 contracts always scanned on this chain, seeding
	// the Transfer-log discovery
	Tokens []string
	// DiscoveryLookback bounds the discovery log scan in blocks
	DiscoveryLookback uint64
}

// PricingConfig holds price resolution configuration
type PricingConfig struct {
	BaseCurrency     string
	CoinGeckoURL     string
	TokenBatchSize   int
	RequestTimeout   time.Duration
	RequestsPerSec   float64
	StableBandLow    decimal.Decimal
	StableBandHigh   decimal.Decimal
	MaxPositionValue decimal.Decimal
}

// LoggingConfig holds logging configuration
type LoggingConfig struct {
	Level  string
	Format string
}

// LoadConfig loads configuration from .env file and environment variables
func LoadConfig() (*Config, error) {
	// Load .env file (optional in production)
	if err := godotenv.Load(); err != nil {
		if !os.IsNotExist(err) {
			return nil, fmt.Errorf("error loading .env file: %w", err)
		}
	}

	config := &Config{
		Server: ServerConfig{
			Port: getEnv("SERVER_PORT", "8080"),
			Host: getEnv("SERVER_HOST", "0.0.0.0"),
		},
		Database: DatabaseConfig{
			Postgres: PostgresConfig{
				Host:           getEnv("POSTGRES_HOST", "localhost"),
				Port:           getEnv("POSTGRES_PORT", "5432"),
				Database:       getEnv("POSTGRES_DB", "wallet_portfolio"),
				User:           getEnv("POSTGRES_USER", "portfolio"),
				Password:       getEnv("POSTGRES_PASSWORD", ""),
				MaxConnections: getEnvAsInt("POSTGRES_MAX_CONNECTIONS", 50),
			},
			Redis: RedisConfig{
				Host:           getEnv("REDIS_HOST", "localhost"),
				Port:           getEnv("REDIS_PORT", "6379"),
				Password:       getEnv("REDIS_PASSWORD", ""),
				DB:             getEnvAsInt("REDIS_DB", 0),
				MaxConnections: getEnvAsInt("REDIS_MAX_CONNECTIONS", 50),
				MetadataTTL:    getEnvAsDuration("TOKEN_METADATA_TTL", 24*time.Hour),
			},
			ClickHouse: ClickHouseConfig{
				Host:     getEnv("CLICKHOUSE_HOST", ""),
				Port:     getEnv("CLICKHOUSE_PORT", "9000"),
				Database: getEnv("CLICKHOUSE_DB", "wallet_portfolio"),
				User:     getEnv("CLICKHOUSE_USER", "default"),
				Password: getEnv("CLICKHOUSE_PASSWORD", ""),
			},
		},
		Pricing: PricingConfig{
			BaseCurrency:     getEnv("BASE_CURRENCY", "usd"),
			CoinGeckoURL:     getEnv("COINGECKO_API_URL", "https://api.coingecko.com/api/v3"),
			TokenBatchSize:   getEnvAsInt("PRICE_TOKEN_BATCH_SIZE", 50),
			RequestTimeout:   getEnvAsDuration("PRICE_REQUEST_TIMEOUT", 10*time.Second),
			RequestsPerSec:   getEnvAsFloat("PRICE_REQUESTS_PER_SEC", 0.5),
			StableBandLow:    getEnvAsDecimal("STABLE_BAND_LOW", "0.996"),
			StableBandHigh:   getEnvAsDecimal("STABLE_BAND_HIGH", "1.003"),
			MaxPositionValue: getEnvAsDecimal("MAX_POSITION_VALUE", "1000000000"),
		},
		Logging: LoggingConfig{
			Level:  getEnv("LOG_LEVEL", "info"),
			Format: getEnv("LOG_FORMAT", "json"),
		},
	}

	config.Chains = loadChainConfigs()

	if err := config.Validate(); err != nil {
		return nil, err
	}

	return config, nil
}

// Validate checks configuration hard requirements
func (c *Config) Validate() error {
	if c.Pricing.TokenBatchSize <= 0 {
		return fmt.Errorf("PRICE_TOKEN_BATCH_SIZE must be positive, got %d", c.Pricing.TokenBatchSize)
	}
	if c.Pricing.StableBandLow.GreaterThan(c.Pricing.StableBandHigh) {
		return fmt.Errorf("stablecoin band is inverted: low=%s high=%s",
			c.Pricing.StableBandLow, c.Pricing.StableBandHigh)
	}
	if !c.Pricing.MaxPositionValue.IsPositive() {
		return fmt.Errorf("MAX_POSITION_VALUE must be positive, got %s", c.Pricing.MaxPositionValue)
	}
	if len(c.Chains.Enabled) == 0 {
		return fmt.Errorf("at least one chain must be enabled")
	}
	return nil
}

// loadChainConfigs loads chain-specific configurations
func loadChainConfigs() ChainsConfig {
	enabled := strings.Split(getEnv("ENABLED_CHAINS", "ethereum,polygon,arbitrum,optimism,base"), ",")

	chains := make(map[string]ChainConfig)
	var names []string
	for _, chain := range enabled {
		chain = strings.TrimSpace(chain)
		if chain == "" {
			continue
		}
		names = append(names, chain)

		prefix := strings.ToUpper(chain)
		chains[chain] = ChainConfig{
			RPCURL:            getEnv(prefix+"_RPC_URL", ""),
			FetchTimeout:      getEnvAsDuration(prefix+"_FETCH_TIMEOUT", 15*time.Second),
			Tokens:            splitList(getEnv(prefix+"_TOKENS", "")),
			DiscoveryLookback: uint64(getEnvAsInt(prefix+"_DISCOVERY_LOOKBACK", 3_000_000)),
		}
	}

	return ChainsConfig{
		Enabled: names,
		Chains:  chains,
	}
}

// splitList splits a comma-separated env value into trimmed items
func splitList(value string) []string {
	if value == "" {
		return nil
	}
	var items []string
	for _, item := range strings.Split(value, ",") {
		if item = strings.TrimSpace(item); item != "" {
			items = append(items, item)
		}
	}
	return items
}

// getEnv gets an environment variable with a default value
func getEnv(key, defaultValue string) string {
	if value := os.Getenv(key); value != "" {
		return value
	}
	return defaultValue
}

// getEnvAsInt gets an environment variable as an integer with a default value
func getEnvAsInt(key string, defaultValue int) int {
	valueStr := getEnv(key, "")
	if valueStr == "" {
		return defaultValue
	}

	value, err := strconv.Atoi(valueStr)
	if err != nil {
		return defaultValue
	}
	return value
}

// getEnvAsFloat gets an environment variable as a float with a default value
func getEnvAsFloat(key string, defaultValue float64) float64 {
	valueStr := getEnv(key, "")
	if valueStr == "" {
		return defaultValue
	}

	value, err := strconv.ParseFloat(valueStr, 64)
	if err != nil {
		return defaultValue
	}
	return value
}

// getEnvAsDuration gets an environment variable as a duration with a default value
func getEnvAsDuration(key string, defaultValue time.Duration) time.Duration {
	valueStr := getEnv(key, "")
	if valueStr == "" {
		return defaultValue
	}

	value, err := time.ParseDuration(valueStr)
	if err != nil {
		return defaultValue
	}
	return value
}

// getEnvAsDecimal gets an environment variable as a decimal with a default value
func getEnvAsDecimal(key, defaultValue string) decimal.Decimal {
	value, err := decimal.NewFromString(getEnv(key, defaultValue))
	if err != nil {
		return decimal.RequireFromString(defaultValue)
	}
	return value
}
