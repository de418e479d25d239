package config

import (
	"fmt"
	"os"
	"strconv"
	"sync"

	"wagerpay/database"
)

// Config holds all application configuration
type Config struct {
	// Database configuration
	DatabaseURL  string
	DatabaseName string

	// Payment gateway configuration
	GatewayURL    string
	GatewayAPIKey string

	// Wallet configuration
	Currency        string // ISO currency code, amounts are minor units
	StartingBalance int64

	// Settlement configuration
	PlatformFeeBasisPoints int64 // fee taken from the pot at challenge settlement
	ClearHours             int   // hours until a transfer-style rail settles
	SweepIntervalSeconds   int   // deferred settlement sweep cadence
	SweepBatchSize         int

	// Gateway authentication configuration
	SessionTTLMinutes  int // shared session store TTL for pending authentications
	ChallengeMaxPolls  uint64
	ChallengePollDelay int // initial poll delay in milliseconds

	// NATS configuration
	NATSServers string // NATS server addresses (comma-separated)

	// Environment
	Environment string // "development" or "production"
}

var (
	instance *Config
	once     sync.Once
	mu       sync.Mutex // Protects instance for test setup
)

// Get returns the global configuration instance
func Get() *Config {
	mu.Lock()
	defer mu.Unlock()

	// If instance is already set (e.g., by tests), return it
	if instance != nil {
		return instance
	}

	once.Do(func() {
		var err error
		instance, err = load()
		if err != nil {
			// In test environment, use a default test config instead of panicking
			if os.Getenv("GO_TEST") == "1" || os.Getenv("ENVIRONMENT") == "test" {
				instance = NewTestConfig()
			} else {
				panic(fmt.Sprintf("failed to load config: %v", err))
			}
		}
	})
	return instance
}

// GetDatabaseURL constructs the full database URL by combining base URL and database name
func (c *Config) GetDatabaseURL() string {
	return database.ConstructDatabaseURL(c.DatabaseURL, c.DatabaseName)
}

// load loads configuration from environment variables
func load() (*Config, error) {
	config := &Config{
		// Database
		DatabaseURL:  os.Getenv("DATABASE_URL"),
		DatabaseName: os.Getenv("DATABASE_NAME"),

		// Gateway
		GatewayURL:    os.Getenv("GATEWAY_URL"),
		GatewayAPIKey: os.Getenv("GATEWAY_API_KEY"),

		// Wallet defaults
		Currency:        getEnvWithDefault("CURRENCY", "USD"),
		StartingBalance: 0,

		// Settlement defaults
		PlatformFeeBasisPoints: 500,
		ClearHours:             48,
		SweepIntervalSeconds:   60,
		SweepBatchSize:         100,

		// Gateway authentication defaults
		SessionTTLMinutes:  30,
		ChallengeMaxPolls:  8,
		ChallengePollDelay: 500,

		// NATS
		NATSServers: getEnvWithDefault("NATS_SERVERS", "nats://nats:4222"),

		// Environment
		Environment: os.Getenv("ENVIRONMENT"),
	}

	if balance := os.Getenv("STARTING_BALANCE"); balance != "" {
		if parsed, err := strconv.ParseInt(balance, 10, 64); err == nil {
			config.StartingBalance = parsed
		}
	}
	if fee := os.Getenv("PLATFORM_FEE_BASIS_POINTS"); fee != "" {
		if parsed, err := strconv.ParseInt(fee, 10, 64); err == nil {
			config.PlatformFeeBasisPoints = parsed
		}
	}
	if hours := os.Getenv("CLEAR_HOURS"); hours != "" {
		if parsed, err := strconv.Atoi(hours); err == nil {
			config.ClearHours = parsed
		}
	}
	if interval := os.Getenv("SWEEP_INTERVAL_SECONDS"); interval != "" {
		if parsed, err := strconv.Atoi(interval); err == nil {
			config.SweepIntervalSeconds = parsed
		}
	}
	if ttl := os.Getenv("SESSION_TTL_MINUTES"); ttl != "" {
		if parsed, err := strconv.Atoi(ttl); err == nil {
			config.SessionTTLMinutes = parsed
		}
	}

	// Validate required fields
	if config.DatabaseURL == "" {
		return nil, fmt.Errorf("DATABASE_URL environment variable is required")
	}
	if config.GatewayURL == "" {
		return nil, fmt.Errorf("GATEWAY_URL environment variable is required")
	}
	if config.PlatformFeeBasisPoints < 0 || config.PlatformFeeBasisPoints >= 10000 {
		return nil, fmt.Errorf("PLATFORM_FEE_BASIS_POINTS must be in [0, 10000)")
	}

	return config, nil
}

func getEnvWithDefault(key, defaultValue string) string {
	if value := os.Getenv(key); value != "" {
		return value
	}
	return defaultValue
}

// Test helpers - only use in tests

// SetTestConfig overrides the global config instance for testing
// This should only be called from test files
func SetTestConfig(testConfig *Config) {
	mu.Lock()
	defer mu.Unlock()
	instance = testConfig
}

// ResetConfig resets the global config instance and sync.Once for testing
// This should only be called from test files
func ResetConfig() {
	mu.Lock()
	defer mu.Unlock()
	instance = nil
	once = sync.Once{}
}

// NewTestConfig creates a minimal config suitable for unit tests
func NewTestConfig() *Config {
	return &Config{
		Environment:            "test",
		Currency:               "USD",
		PlatformFeeBasisPoints: 500,
		ClearHours:             48,
		SweepIntervalSeconds:   1,
		SweepBatchSize:         100,
		SessionTTLMinutes:      30,
		ChallengeMaxPolls:      3,
		ChallengePollDelay:     1,
	}
}
