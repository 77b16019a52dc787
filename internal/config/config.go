package config

import (
	"os"
	"strconv"
	"time"

	"github.com/joho/godotenv"
)

// Config holds all configuration for the prediction-market engine.
type Config struct {
	// Server settings
	ServerPort string
	LogLevel   string
	DataDir    string

	// Chain settings (optional; in-memory collaborators are used when unset)
	RPCURL        string
	PrivateKey    string
	TokenAddr     string
	PriceFeedAddr string

	// Randomness subscription, immutable per deployment
	VRFKeyHash        string
	VRFSubscriptionID uint64
	RandomnessDelay   time.Duration

	// Market settings
	DefaultFeeBps    uint64
	StalenessBound   time.Duration
	DevOraclePrice   string
	TreasuryOperator string

	// Automation settings
	AutomationInterval   time.Duration
	AutomationUpkeepCost uint64
	RandomnessRequestFee uint64
}

// Load reads configuration from the environment, with .env autoload.
func Load() *Config {
	_ = godotenv.Load()

	return &Config{
		ServerPort: getEnv("SERVER_PORT", "8080"),
		LogLevel:   getEnv("LOG_LEVEL", "info"),
		DataDir:    getEnv("DATA_DIR", ""),

		RPCURL:        getEnv("RPC_URL", ""),
		PrivateKey:    getEnv("PRIVATE_KEY", ""),
		TokenAddr:     getEnv("TOKEN_ADDR", ""),
		PriceFeedAddr: getEnv("PRICE_FEED_ADDR", ""),

		VRFKeyHash:        getEnv("VRF_KEY_HASH", "0x0000000000000000000000000000000000000000000000000000000000000001"),
		VRFSubscriptionID: getEnvUint("VRF_SUBSCRIPTION_ID", 1),
		RandomnessDelay:   getEnvDuration("RANDOMNESS_DELAY", 2*time.Second),

		DefaultFeeBps:    getEnvUint("DEFAULT_FEE_BPS", 200),
		StalenessBound:   getEnvDuration("ORACLE_STALENESS_BOUND", time.Hour),
		DevOraclePrice:   getEnv("DEV_ORACLE_PRICE", "3000"),
		TreasuryOperator: getEnv("TREASURY_OPERATOR", "operator"),

		AutomationInterval:   getEnvDuration("AUTOMATION_INTERVAL", 10*time.Second),
		AutomationUpkeepCost: getEnvUint("AUTOMATION_UPKEEP_COST", 0),
		RandomnessRequestFee: getEnvUint("RANDOMNESS_REQUEST_FEE", 0),
	}
}

// OnChain reports whether the on-chain collaborators are configured.
func (c *Config) OnChain() bool {
	return c.RPCURL != "" && c.PrivateKey != "" && c.TokenAddr != ""
}

func getEnv(key, defaultValue string) string {
	if value := os.Getenv(key); value != "" {
		return value
	}
	return defaultValue
}

func getEnvUint(key string, defaultValue uint64) uint64 {
	if value := os.Getenv(key); value != "" {
		if u, err := strconv.ParseUint(value, 10, 64); err == nil {
			return u
		}
	}
	return defaultValue
}

func getEnvDuration(key string, defaultValue time.Duration) time.Duration {
	if value := os.Getenv(key); value != "" {
		if d, err := time.ParseDuration(value); err == nil {
			return d
		}
	}
	return defaultValue
}
