package config

import (
	"fmt"
	"os"
	"strconv"
	"sync"

	"github.com/joho/godotenv"
)

// Config holds all application configuration
type Config struct {
	// Database configuration
	DatabaseURL string

	// Ledger configuration
	StartingBalance int64 // credits granted to a newly created account
	PlatformFeeBps  int64 // platform fee in basis points of the pot
	DefaultStakeCap int64 // fallback stake cap when no ranking exists

	// Match configuration
	DefaultMatchDurationMinutes int

	// Rating configuration
	RatingPeriodDays   int     // window after which an inactive deviation is inflated
	RatingTau          float64 // Glicko-2 system constant
	SeasonLengthMonths int     // window covered by an auto-created season

	// Environment
	Environment string // "development", "test" or "production"
}

var (
	instance *Config
	once     sync.Once
)

// Get returns the global configuration instance
func Get() *Config {
	once.Do(func() {
		var err error
		instance, err = load()
		if err != nil {
			panic(fmt.Sprintf("failed to load config: %v", err))
		}
	})
	return instance
}

// load loads configuration from the environment, with a .env file as the
// development-time source.
func load() (*Config, error) {
	// Missing .env is fine; real deployments set the environment directly
	_ = godotenv.Load()

	config := &Config{
		DatabaseURL: os.Getenv("DATABASE_URL"),

		StartingBalance: 1000,
		PlatformFeeBps:  1000, // 10%
		DefaultStakeCap: 100,

		DefaultMatchDurationMinutes: 60,

		RatingPeriodDays:   7,
		RatingTau:          0.5,
		SeasonLengthMonths: 3,

		Environment: os.Getenv("ENVIRONMENT"),
	}

	if balance := os.Getenv("STARTING_BALANCE"); balance != "" {
		if parsed, err := strconv.ParseInt(balance, 10, 64); err == nil {
			config.StartingBalance = parsed
		}
	}
	if fee := os.Getenv("PLATFORM_FEE_BPS"); fee != "" {
		if parsed, err := strconv.ParseInt(fee, 10, 64); err == nil {
			config.PlatformFeeBps = parsed
		}
	}
	if duration := os.Getenv("DEFAULT_MATCH_DURATION_MINUTES"); duration != "" {
		if parsed, err := strconv.Atoi(duration); err == nil {
			config.DefaultMatchDurationMinutes = parsed
		}
	}
	if period := os.Getenv("RATING_PERIOD_DAYS"); period != "" {
		if parsed, err := strconv.Atoi(period); err == nil {
			config.RatingPeriodDays = parsed
		}
	}

	if config.Environment == "" {
		config.Environment = "development"
	}

	if config.Environment != "test" {
		if config.DatabaseURL == "" {
			return nil, fmt.Errorf("DATABASE_URL is required")
		}
	}

	return config, nil
}
