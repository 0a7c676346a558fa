package config

import (
	"fmt"
	"os"
	"strconv"
	"strings"
	"time"

	"github.com/apexmev/arbiter/pkg/types"
	"github.com/ethereum/go-ethereum/common"
)

// GasStrategy selects how the executor prices gas.
type GasStrategy string

const (
	GasStrategyFixed   GasStrategy = "fixed"
	GasStrategyEIP1559 GasStrategy = "eip1559"
	GasStrategyDynamic GasStrategy = "dynamic"
)

// Storage modes for detected-opportunity recording.
const (
	StorageModeConsole  = "console"
	StorageModePostgres = "postgres"
)

// VenueConfig holds the on-chain addresses for one venue.
type VenueConfig struct {
	Enabled bool
	Factory string
	Router  string
}

// Config holds all application configuration.
type Config struct {
	// Application
	LogLevel string
	HTTPPort string

	// Ethereum connectivity
	RPCURL        string
	WSURL         string
	ChainID       int64
	PrivateKey    string
	WalletAddress string
	PollInterval  time.Duration

	// Tracked assets, parsed from TOKENS (SYMBOL:address:decimals,...)
	Tokens []types.TrackedAsset

	// Venues
	UniswapV2 VenueConfig
	Sushiswap VenueConfig
	Curve     VenueConfig

	// Arbitrage
	MinProfitThreshold float64 // USD
	MaxHops            int
	SlippageTolerance  float64 // percent, e.g. 0.5
	ScanInterval       time.Duration
	QuietMode          bool

	// Gas
	GasStrategy       GasStrategy
	MaxGasPriceGwei   int64
	BaseFeeMultiplier float64
	PriorityFeeGwei   int64
	GasLimit          uint64

	// Flash loans
	AaveLendingPool string
	ArbContract     string

	// MEV-Share
	MEVShareEnabled bool
	MEVShareAPIURL  string
	MEVShareAPIKey  string

	// Pricing
	MinPriceSources   int
	MaxPriceDeviation float64 // percent
	FreshnessWindow   time.Duration
	PriceAPIURL       string // optional REST price source
	PriceAPIKey       string
	TxTimeout         time.Duration

	// Storage
	StorageMode  string // "postgres" or "console"
	PostgresHost string
	PostgresPort string
	PostgresUser string
	PostgresPass string
	PostgresDB   string
	PostgresSSL  string
}

// LoadFromEnv loads configuration from environment variables with defaults.
func LoadFromEnv() (*Config, error) {
	cfg := &Config{
		LogLevel: getEnvOrDefault("LOG_LEVEL", "info"),
		HTTPPort: getEnvOrDefault("HTTP_PORT", "8080"),

		RPCURL:        getEnvOrDefault("ETH_RPC_URL", "http://localhost:8545"),
		WSURL:         os.Getenv("ETH_WS_URL"),
		ChainID:       int64(getIntOrDefault("ETH_CHAIN_ID", 1)),
		PrivateKey:    os.Getenv("ETH_PRIVATE_KEY"),
		WalletAddress: os.Getenv("ETH_WALLET_ADDRESS"),
		PollInterval:  getDurationOrDefault("ETH_POLL_INTERVAL", 2*time.Second),

		UniswapV2: VenueConfig{
			Enabled: getBoolOrDefault("UNISWAP_V2_ENABLED", true),
			Factory: getEnvOrDefault("UNISWAP_V2_FACTORY", "0x5C69bEe701ef814a2B6a3EDD4B1652CB9cc5aA6f"),
			Router:  getEnvOrDefault("UNISWAP_V2_ROUTER", "0x7a250d5630B4cF539739dF2C5dAcb4c659F2488D"),
		},
		Sushiswap: VenueConfig{
			Enabled: getBoolOrDefault("SUSHISWAP_ENABLED", true),
			Factory: getEnvOrDefault("SUSHISWAP_FACTORY", "0xC0AEe478e3658e2610c5F7A4A2E1777cE9e4f2Ac"),
			Router:  getEnvOrDefault("SUSHISWAP_ROUTER", "0xd9e1cE17f2641f24aE83637ab66a2cca9C378B9F"),
		},
		Curve: VenueConfig{
			Enabled: getBoolOrDefault("CURVE_ENABLED", false),
			Factory: getEnvOrDefault("CURVE_REGISTRY", "0x90E00ACe148ca3b23Ac1bC8C240C2a7Dd9c2d7f5"),
			Router:  os.Getenv("CURVE_ROUTER"),
		},

		MinProfitThreshold: getFloat64OrDefault("MIN_PROFIT_THRESHOLD", 5.0),
		MaxHops:            getIntOrDefault("MAX_HOPS", 3),
		SlippageTolerance:  getFloat64OrDefault("SLIPPAGE_TOLERANCE", 0.5),
		ScanInterval:       getDurationOrDefault("SCAN_INTERVAL", 1*time.Second),
		QuietMode:          getBoolOrDefault("QUIET_MODE", false),

		GasStrategy:       GasStrategy(getEnvOrDefault("GAS_STRATEGY", "eip1559")),
		MaxGasPriceGwei:   int64(getIntOrDefault("GAS_MAX_PRICE_GWEI", 100)),
		BaseFeeMultiplier: getFloat64OrDefault("GAS_BASE_FEE_MULTIPLIER", 1.25),
		PriorityFeeGwei:   int64(getIntOrDefault("GAS_PRIORITY_FEE_GWEI", 2)),
		GasLimit:          uint64(getIntOrDefault("GAS_LIMIT", 1_500_000)),

		AaveLendingPool: getEnvOrDefault("AAVE_LENDING_POOL", "0x7d2768dE32b0b80b7a3454c06BdAc94A69DDc7A9"),
		ArbContract:     os.Getenv("ARB_CONTRACT_ADDRESS"),

		MEVShareEnabled: getBoolOrDefault("MEVSHARE_ENABLED", false),
		MEVShareAPIURL:  getEnvOrDefault("MEVSHARE_API_URL", "https://mev-share.flashbots.net"),
		MEVShareAPIKey:  os.Getenv("MEVSHARE_API_KEY"),

		MinPriceSources:   getIntOrDefault("MIN_PRICE_SOURCES", 2),
		MaxPriceDeviation: getFloat64OrDefault("MAX_PRICE_DEVIATION", 1.0),
		FreshnessWindow:   getDurationOrDefault("PRICE_FRESHNESS_WINDOW", 60*time.Second),
		PriceAPIURL:       os.Getenv("PRICE_API_URL"),
		PriceAPIKey:       os.Getenv("PRICE_API_KEY"),
		TxTimeout:         getDurationOrDefault("TX_TIMEOUT", 60*time.Second),

		StorageMode:  getEnvOrDefault("STORAGE_MODE", "console"),
		PostgresHost: getEnvOrDefault("POSTGRES_HOST", "localhost"),
		PostgresPort: getEnvOrDefault("POSTGRES_PORT", "5432"),
		PostgresUser: getEnvOrDefault("POSTGRES_USER", "arbiter"),
		PostgresPass: getEnvOrDefault("POSTGRES_PASSWORD", "arbiter123"),
		PostgresDB:   getEnvOrDefault("POSTGRES_DB", "arbiter"),
		PostgresSSL:  getEnvOrDefault("POSTGRES_SSLMODE", "disable"),
	}

	tokens, err := parseTokens(getEnvOrDefault("TOKENS",
		"WETH:0xC02aaA39b223FE8D0A0e5C4F27eAD9083C756Cc2:18,"+
			"USDC:0xA0b86991c6218b36c1d19D4a2e9Eb0cE3606eB48:6,"+
			"DAI:0x6B175474E89094C44Da98b954EedeAC495271d0F:18"))
	if err != nil {
		return nil, fmt.Errorf("parse TOKENS: %w", err)
	}
	cfg.Tokens = tokens

	err = cfg.Validate()
	if err != nil {
		return nil, fmt.Errorf("validate config: %w", err)
	}

	return cfg, nil
}

// Validate checks that configuration values are valid.
func (c *Config) Validate() error {
	if c.HTTPPort == "" {
		return fmt.Errorf("HTTP_PORT cannot be empty")
	}

	if c.RPCURL == "" {
		return fmt.Errorf("ETH_RPC_URL cannot be empty")
	}

	if len(c.Tokens) < 2 {
		return fmt.Errorf("TOKENS must list at least 2 assets, got %d", len(c.Tokens))
	}

	if c.MinProfitThreshold < 0 {
		return fmt.Errorf("MIN_PROFIT_THRESHOLD must be non-negative, got %f", c.MinProfitThreshold)
	}

	if c.SlippageTolerance < 0 || c.SlippageTolerance > 100 {
		return fmt.Errorf("SLIPPAGE_TOLERANCE must be a percentage in [0,100], got %f", c.SlippageTolerance)
	}

	if c.MaxPriceDeviation <= 0 {
		return fmt.Errorf("MAX_PRICE_DEVIATION must be positive, got %f", c.MaxPriceDeviation)
	}

	if c.MinPriceSources < 1 {
		return fmt.Errorf("MIN_PRICE_SOURCES must be at least 1, got %d", c.MinPriceSources)
	}

	switch c.GasStrategy {
	case GasStrategyFixed, GasStrategyEIP1559, GasStrategyDynamic:
	default:
		return fmt.Errorf("GAS_STRATEGY must be 'fixed', 'eip1559' or 'dynamic', got %q", c.GasStrategy)
	}

	if c.StorageMode != StorageModeConsole && c.StorageMode != StorageModePostgres {
		return fmt.Errorf("STORAGE_MODE must be 'console' or 'postgres', got %q", c.StorageMode)
	}

	return nil
}

// PostgresDSN assembles the lib/pq connection string.
func (c *Config) PostgresDSN() string {
	return fmt.Sprintf("host=%s port=%s user=%s password=%s dbname=%s sslmode=%s",
		c.PostgresHost, c.PostgresPort, c.PostgresUser, c.PostgresPass, c.PostgresDB, c.PostgresSSL)
}

// parseTokens parses a comma-separated SYMBOL:address:decimals list.
func parseTokens(raw string) ([]types.TrackedAsset, error) {
	parts := strings.Split(raw, ",")
	assets := make([]types.TrackedAsset, 0, len(parts))

	for _, part := range parts {
		part = strings.TrimSpace(part)
		if part == "" {
			continue
		}

		fields := strings.Split(part, ":")
		if len(fields) != 3 {
			return nil, fmt.Errorf("token entry %q must be SYMBOL:address:decimals", part)
		}

		if !common.IsHexAddress(fields[1]) {
			return nil, fmt.Errorf("token %s has malformed address %q", fields[0], fields[1])
		}

		decimals, err := strconv.ParseUint(fields[2], 10, 8)
		if err != nil {
			return nil, fmt.Errorf("token %s has malformed decimals %q: %w", fields[0], fields[2], err)
		}

		assets = append(assets, types.TrackedAsset{
			Address:  common.HexToAddress(fields[1]),
			Symbol:   fields[0],
			Decimals: uint8(decimals),
		})
	}

	return assets, nil
}

func getEnvOrDefault(key string, defaultValue string) string {
	value := os.Getenv(key)
	if value == "" {
		return defaultValue
	}
	return value
}

func getIntOrDefault(key string, defaultValue int) int {
	value := os.Getenv(key)
	if value == "" {
		return defaultValue
	}

	intVal, err := strconv.Atoi(value)
	if err != nil {
		return defaultValue
	}

	return intVal
}

func getBoolOrDefault(key string, defaultValue bool) bool {
	value := os.Getenv(key)
	if value == "" {
		return defaultValue
	}

	boolVal, err := strconv.ParseBool(value)
	if err != nil {
		return defaultValue
	}

	return boolVal
}

func getFloat64OrDefault(key string, defaultValue float64) float64 {
	value := os.Getenv(key)
	if value == "" {
		return defaultValue
	}

	floatVal, err := strconv.ParseFloat(value, 64)
	if err != nil {
		return defaultValue
	}

	return floatVal
}

func getDurationOrDefault(key string, defaultValue time.Duration) time.Duration {
	value := os.Getenv(key)
	if value == "" {
		return defaultValue
	}

	duration, err := time.ParseDuration(value)
	if err != nil {
		return defaultValue
	}

	return duration
}
