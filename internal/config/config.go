package config

import (
	"contract-orchestrator/internal/models"
	"errors"
	"fmt"
	"os"
	"strconv"
	"strings"
	"time"

	"github.com/joho/godotenv"
)

// Config holds all configuration for the application
type Config struct {
	LogLevel    string
	Chain       ChainConfig
	Contracts   ContractsConfig
	HTTP        HTTPConfig
	Pinata      PinataConfig
	Kafka       KafkaConfig
	Idempotency IdempotencyConfig
	Redis       RedisConfig
	Database    DatabaseConfig
}

// ChainConfig holds node and signer configuration
type ChainConfig struct {
	RpcEndpoint    string
	ApiKey         string
	RateLimit      float64
	ChainID        int64
	PrivateKey     string
	ExtraKeys      []string
	PublicKey      string
	ExplorerURL    string
	Confirmations  uint64
	ReceiptTimeout time.Duration
	PollInterval   time.Duration
	HTTPTimeout    time.Duration
}

// ContractsConfig holds contract addresses and ABI sources
type ContractsConfig struct {
	Addresses    map[models.ContractName]string
	ArtifactsDir string
	File         string
	// ProductShares are the payee percentages the product contract was deployed with
	ProductShares []string
}

// HTTPConfig holds HTTP server configuration
type HTTPConfig struct {
	Addr    string
	Timeout time.Duration
}

// PinataConfig holds off-chain pinning configuration
type PinataConfig struct {
	ApiKey     string
	ApiSecret  string
	ApiURL     string
	GatewayURL string
	Timeout    time.Duration
}

// KafkaConfig holds Kafka configuration
type KafkaConfig struct {
	BrokerAddress string
	Topic         string
	BatchSize     int
	BatchTimeout  time.Duration
}

// IdempotencyConfig selects the idempotency key store
type IdempotencyConfig struct {
	Backend string
	TTL     time.Duration
}

// RedisConfig holds Redis configuration
type RedisConfig struct {
	Host     string
	Port     int
	Password string
	DB       int
}

// DatabaseConfig holds database configuration
type DatabaseConfig struct {
	Host     string
	Port     int
	User     string
	Password string
	DBName   string
	SSLMode  string
	// Ledger records confirmed operations even when keys live elsewhere
	Ledger bool
}

// Load loads configuration from environment variables
func Load() (*Config, error) {
	// a missing .env is fine, variables may be set externally
	_ = godotenv.Load()

	config := &Config{
		LogLevel: getEnv("LOG_LEVEL", "info"),
		Chain: ChainConfig{
			RpcEndpoint:    getEnv("RPC_URL", getEnv("SEPOLIA_URL", "")),
			ApiKey:         getEnv("RPC_API_KEY", ""),
			RateLimit:      getEnvAsFloat("RPC_RATE_LIMIT", 10),
			ChainID:        int64(getEnvAsInt("CHAIN_ID", 11155111)),
			PrivateKey:     getEnv("PRIVATE_KEY", getEnv("SEPOLIA_PRIVATE_KEY", "")),
			ExtraKeys:      getEnvAsList("PRIVATE_KEYS"),
			PublicKey:      getEnv("PUBLIC_KEY", getEnv("SEPOLIA_PUBLIC_KEY", "")),
			ExplorerURL:    getEnv("EXPLORER_TX_URL", "https://sepolia.etherscan.io/tx/"),
			Confirmations:  uint64(getEnvAsInt("CONFIRMATIONS", 1)),
			ReceiptTimeout: time.Duration(getEnvAsInt("RECEIPT_TIMEOUT", 120)) * time.Second,
			PollInterval:   time.Duration(getEnvAsInt("RECEIPT_POLL_INTERVAL_MS", 2000)) * time.Millisecond,
			HTTPTimeout:    time.Duration(getEnvAsInt("RPC_HTTP_TIMEOUT", 30)) * time.Second,
		},
		Contracts: ContractsConfig{
			Addresses: map[models.ContractName]string{
				models.Wallet:   getEnv("WALLET_CONTRACT_ADDRESS", ""),
				models.Payments: getEnv("PAYMENT_CONTRACT_ADDRESS", ""),
				models.Product:  getEnv("PRODUCT_CONTRACT_ADDRESS", ""),
				models.NFT:      getEnv("NFT_CONTRACT_ADDRESS", ""),
			},
			ArtifactsDir:  getEnv("ARTIFACTS_DIR", ""),
			File:          getEnv("CONTRACTS_FILE", ""),
			ProductShares: getEnvAsList("PRODUCT_SHARES"),
		},
		HTTP: HTTPConfig{
			Addr:    getEnv("HTTP_ADDR", ":3000"),
			Timeout: time.Duration(getEnvAsInt("HTTP_TIMEOUT", 30)) * time.Second,
		},
		Pinata: PinataConfig{
			ApiKey:     getEnv("PINATA_API_KEY", ""),
			ApiSecret:  getEnv("PINATA_API_SECRET", ""),
			ApiURL:     getEnv("PINATA_API_URL", "https://api.pinata.cloud"),
			GatewayURL: getEnv("PINATA_GATEWAY_URL", "https://gateway.pinata.cloud/ipfs/"),
			Timeout:    time.Duration(getEnvAsInt("PINATA_TIMEOUT", 60)) * time.Second,
		},
		Kafka: KafkaConfig{
			BrokerAddress: getEnv("KAFKA_BROKER_ADDRESS", ""),
			Topic:         getEnv("KAFKA_TOPIC", "contract-operations"),
			BatchSize:     getEnvAsInt("KAFKA_BATCH_SIZE", 10),
			BatchTimeout:  time.Duration(getEnvAsInt("KAFKA_BATCH_TIMEOUT", 1)) * time.Second,
		},
		Idempotency: IdempotencyConfig{
			Backend: getEnv("IDEMPOTENCY_BACKEND", "memory"),
			TTL:     time.Duration(getEnvAsInt("IDEMPOTENCY_TTL_HOURS", 24)) * time.Hour,
		},
		Redis: RedisConfig{
			Host:     getEnv("REDIS_HOST", "localhost"),
			Port:     getEnvAsInt("REDIS_PORT", 6379),
			Password: getEnv("REDIS_PASSWORD", ""),
			DB:       getEnvAsInt("REDIS_DB", 0),
		},
		Database: DatabaseConfig{
			Host:     getEnv("DB_HOST", "localhost"),
			Port:     getEnvAsInt("DB_PORT", 5432),
			User:     getEnv("DB_USER", "postgres"),
			Password: getEnv("DB_PASSWORD", ""),
			DBName:   getEnv("DB_NAME", "contract_orchestrator"),
			SSLMode:  getEnv("DB_SSLMODE", "disable"),
			Ledger:   getEnv("LEDGER_ENABLED", "false") == "true",
		},
	}

	return config, nil
}

// Validate reports every missing or malformed required setting at once
func (c *Config) Validate() error {
	var errs []error
	if c.Chain.RpcEndpoint == "" {
		errs = append(errs, errors.New("RPC_URL is required"))
	}
	if c.Chain.PrivateKey == "" {
		errs = append(errs, errors.New("PRIVATE_KEY is required"))
	}
	if c.Chain.ChainID <= 0 {
		errs = append(errs, fmt.Errorf("CHAIN_ID must be positive, got %d", c.Chain.ChainID))
	}
	if c.Chain.Confirmations == 0 {
		errs = append(errs, errors.New("CONFIRMATIONS must be at least 1"))
	}
	if _, err := c.Contracts.Shares(); err != nil {
		errs = append(errs, err)
	}
	switch c.Idempotency.Backend {
	case "memory", "redis", "postgres":
	default:
		errs = append(errs, fmt.Errorf("unknown IDEMPOTENCY_BACKEND %q", c.Idempotency.Backend))
	}
	return errors.Join(errs...)
}

// Shares parses ProductShares. Nil means none were configured.
func (c ContractsConfig) Shares() ([]uint8, error) {
	if len(c.ProductShares) == 0 {
		return nil, nil
	}
	shares := make([]uint8, len(c.ProductShares))
	for i, raw := range c.ProductShares {
		v, err := strconv.ParseUint(raw, 10, 8)
		if err != nil || v > 100 {
			return nil, fmt.Errorf("PRODUCT_SHARES: %q is not a percentage", raw)
		}
		shares[i] = uint8(v)
	}
	return shares, nil
}

// RedisAddr returns host:port for the redis client
func (r RedisConfig) RedisAddr() string {
	return fmt.Sprintf("%s:%d", r.Host, r.Port)
}

// getEnv gets an environment variable or returns a default value
func getEnv(key, defaultValue string) string {
	if value := os.Getenv(key); value != "" {
		return value
	}
	return defaultValue
}

// getEnvAsInt gets an environment variable as int or returns a default value
func getEnvAsInt(key string, defaultValue int) int {
	if value := os.Getenv(key); value != "" {
		if intValue, err := strconv.Atoi(value); err == nil {
			return intValue
		}
	}
	return defaultValue
}

// getEnvAsFloat gets an environment variable as float64 or returns a default value
func getEnvAsFloat(key string, defaultValue float64) float64 {
	if value := os.Getenv(key); value != "" {
		if floatValue, err := strconv.ParseFloat(value, 64); err == nil {
			return floatValue
		}
	}
	return defaultValue
}

// getEnvAsList splits a comma separated variable, dropping empty items
func getEnvAsList(key string) []string {
	var out []string
	for _, item := range strings.Split(os.Getenv(key), ",") {
		if item = strings.TrimSpace(item); item != "" {
			out = append(out, item)
		}
	}
	return out
}
