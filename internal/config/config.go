package config

import (
	"os"
	"strconv"
	"time"

	"paywatch.backend/internal/domain/entities"
)

// Config holds all configuration values
type Config struct {
	Server   ServerConfig
	Database DatabaseConfig
	Redis    RedisConfig
	Monitor  MonitorConfig
	Networks map[entities.Network]NetworkConfig
	Frontend FrontendConfig
}

// ServerConfig holds server configuration
type ServerConfig struct {
	Port string
	Env  string
}

// DatabaseConfig holds database configuration
type DatabaseConfig struct {
	Host     string
	Port     int
	User     string
	Password string
	DBName   string
	SSLMode  string
}

// URL returns the database connection URL
func (c DatabaseConfig) URL() string {
	return "postgres://" + c.User + ":" + c.Password + "@" + c.Host + ":" + strconv.Itoa(c.Port) + "/" + c.DBName + "?sslmode=" + c.SSLMode
}

// RedisConfig holds Redis configuration
type RedisConfig struct {
	URL      string
	Password string
}

// FrontendConfig holds the payer-facing base URL used to build payment links
type FrontendConfig struct {
	BaseURL string
}

// MonitorConfig holds the payment monitor settings
type MonitorConfig struct {
	// ScanInterval is the wall-clock period of the scan cycle.
	ScanInterval time.Duration
	// PaymentTTL is how long a freshly created request stays payable.
	PaymentTTL time.Duration
	// BatchLimit caps the pending working set loaded per cycle.
	BatchLimit int
	// NetworkConcurrency bounds parallel provider calls per network.
	NetworkConcurrency int
	// GraceBuffer extends the on-chain search window past expiry.
	GraceBuffer time.Duration
	// CallTimeout bounds a single per-payment evaluation.
	CallTimeout time.Duration
	// ToleranceBps widens the completed band around the expected amount,
	// in basis points. Zero requires an exact match.
	ToleranceBps int64
	// LockTTL is how long a per-payment scan lock is held at most.
	LockTTL time.Duration
}

// TokenConfig describes a registered token contract
type TokenConfig struct {
	ContractAddress string
	Decimals        int
}

// NetworkConfig holds per-network provider and finality settings
type NetworkConfig struct {
	APIURL                string
	APIKey                string
	RPCURL                string // Optional node RPC, used for chain-head lookups
	RequiredConfirmations int64
	NativeSymbol          string
	NativeDecimals        int
	ReceiveAddress        string // Default custodial receiving address
	Tokens                map[string]TokenConfig
}

// Load loads configuration from environment variables
func Load() *Config {
	return &Config{
		Server: ServerConfig{
			Port: getEnv("SERVER_PORT", "8080"),
			Env:  getEnv("SERVER_ENV", "development"),
		},
		Database: DatabaseConfig{
			Host:     getEnv("DB_HOST", "localhost"),
			Port:     getEnvAsInt("DB_PORT", 5432),
			User:     getEnv("DB_USER", "postgres"),
			Password: getEnv("DB_PASSWORD", "postgres"),
			DBName:   getEnv("DB_NAME", "paywatch"),
			SSLMode:  getEnv("DB_SSLMODE", "disable"),
		},
		Redis: RedisConfig{
			URL:      getEnv("REDIS_URL", "redis://localhost:6379"),
			Password: getEnv("REDIS_PASSWORD", ""),
		},
		Monitor: MonitorConfig{
			ScanInterval:       getEnvAsDuration("MONITOR_SCAN_INTERVAL", time.Minute),
			PaymentTTL:         time.Duration(getEnvAsInt("PAYMENT_TTL_MINUTES", 15)) * time.Minute,
			BatchLimit:         getEnvAsInt("MONITOR_BATCH_LIMIT", 100),
			NetworkConcurrency: getEnvAsInt("MONITOR_NETWORK_CONCURRENCY", 4),
			GraceBuffer:        getEnvAsDuration("MONITOR_GRACE_BUFFER", 5*time.Minute),
			CallTimeout:        getEnvAsDuration("MONITOR_CALL_TIMEOUT", 20*time.Second),
			ToleranceBps:       int64(getEnvAsInt("MONITOR_TOLERANCE_BPS", 0)),
			LockTTL:            getEnvAsDuration("MONITOR_LOCK_TTL", 2*time.Minute),
		},
		Networks: map[entities.Network]NetworkConfig{
			entities.NetworkBSC: {
				APIURL:                getEnv("BSCSCAN_API_URL", "https://api.bscscan.com/api"),
				APIKey:                getEnv("BSCSCAN_API_KEY", ""),
				RPCURL:                getEnv("BSC_RPC_URL", ""),
				RequiredConfirmations: int64(getEnvAsInt("BSC_CONFIRMATIONS", 15)),
				NativeSymbol:          "BNB",
				NativeDecimals:        18,
				ReceiveAddress:        getEnv("BSC_RECEIVE_ADDRESS", ""),
				Tokens: map[string]TokenConfig{
					"USDT": {
						ContractAddress: getEnv("TOKEN_CONTRACT_USDT_BSC", ""),
						Decimals:        18,
					},
				},
			},
			entities.NetworkTron: {
				APIURL:                getEnv("TRONGRID_API_URL", "https://api.trongrid.io"),
				APIKey:                getEnv("TRONGRID_API_KEY", ""),
				RequiredConfirmations: int64(getEnvAsInt("TRON_CONFIRMATIONS", 20)),
				NativeSymbol:          "TRX",
				NativeDecimals:        6,
				ReceiveAddress:        getEnv("TRON_RECEIVE_ADDRESS", ""),
				Tokens: map[string]TokenConfig{
					"USDT": {
						ContractAddress: getEnv("TOKEN_CONTRACT_USDT_TRON", ""),
						Decimals:        6,
					},
				},
			},
		},
		Frontend: FrontendConfig{
			BaseURL: getEnv("FRONTEND_URL", "http://localhost:3000"),
		},
	}
}

func getEnv(key, defaultValue string) string {
	if value := os.Getenv(key); value != "" {
		return value
	}
	return defaultValue
}

func getEnvAsInt(key string, defaultValue int) int {
	if value := os.Getenv(key); value != "" {
		if intVal, err := strconv.Atoi(value); err == nil {
			return intVal
		}
	}
	return defaultValue
}

func getEnvAsDuration(key string, defaultValue time.Duration) time.Duration {
	if value := os.Getenv(key); value != "" {
		if duration, err := time.ParseDuration(value); err == nil {
			return duration
		}
	}
	return defaultValue
}
