package config

import (
	"fmt"
	"os"
	"path/filepath"
	"strconv"
	"time"

	"github.com/joho/godotenv"
)

// Config holds all configuration for the application
// SSOT: every environment variable is read here and nowhere else
type Config struct {
	// Server
	Port string
	Env  string // development, staging, production

	// Database
	Database DatabaseConfig

	// Redis
	Redis RedisConfig

	// Market data providers
	Provider ProviderConfig

	// Portfolio / risk parameters
	Portfolio PortfolioConfig

	// Pipeline execution
	Pipeline PipelineConfig

	// Logging
	LogLevel  string
	LogFormat string

	// Monitoring
	MetricsEnabled bool
	MetricsPort    string
}

// DatabaseConfig holds PostgreSQL configuration
type DatabaseConfig struct {
	URL string

	// Connection Pool
	MaxConns        int
	MinConns        int
	MaxConnLifetime time.Duration
	MaxConnIdleTime time.Duration
}

// RedisConfig holds Redis configuration
type RedisConfig struct {
	Host     string
	Port     string
	Password string
	DB       int
	Enabled  bool
}

// ProviderConfig holds market-data provider configuration
type ProviderConfig struct {
	NSEBaseURL      string // NSE archives: instruments, index constituents, MTF list
	OHLCVBaseURL    string // daily OHLCV provider
	FMPAPIKey       string // fundamentals (optional, monthly refresh)
	HoldingsBaseURL string // NSE corporate site, institutional holdings (optional)

	// Minimum delay between calls to a single provider connection
	CallDelay time.Duration
	// Bounded per-batch symbol concurrency
	BatchConcurrency int
	// OHLCV horizon in trading days for the momentum stage
	HorizonDays int
}

// PortfolioConfig holds risk-management parameters
type PortfolioConfig struct {
	Value           float64 // portfolio value in INR
	RiskPctPerTrade float64 // risk budget per trade (fraction)
	MaxPositions    int
	MaxSectorPct    float64 // max sector exposure (fraction)
	MaxSectorCount  int     // max positions per sector
	MaxPositionPct  float64 // capital cap per position (fraction)
	CashReservePct  float64 // RISK_ON cash reserve; CHOPPY adds 5pp
	MaxCorrelation  float64 // pairwise 60d return correlation ceiling
}

// PipelineConfig holds orchestration parameters
type PipelineConfig struct {
	RetryInitial   time.Duration // first retry delay
	RetryMax       time.Duration // backoff ceiling
	RetryAttempts  int
	BatchTimeout   time.Duration // I/O-heavy batch activities
	ComputeTimeout time.Duration // pure computation activities
	FetchTimeout   time.Duration // single-source fetches
}

// Load reads configuration from environment variables
// SSOT: this is the only function that calls os.Getenv()
func Load() (*Config, error) {
	loadEnvFile()

	cfg := &Config{
		Port: getEnv("PORT", "8087"),
		Env:  getEnv("ENV", "development"),

		Database: DatabaseConfig{
			URL:             getEnv("DATABASE_URL", ""),
			MaxConns:        getEnvAsInt("DB_MAX_CONNS", 25),
			MinConns:        getEnvAsInt("DB_MIN_CONNS", 5),
			MaxConnLifetime: getEnvAsDuration("DB_MAX_CONN_LIFETIME", "1h"),
			MaxConnIdleTime: getEnvAsDuration("DB_MAX_CONN_IDLE_TIME", "30m"),
		},

		Redis: RedisConfig{
			Host:     getEnv("REDIS_HOST", "localhost"),
			Port:     getEnv("REDIS_PORT", "6379"),
			Password: getEnv("REDIS_PASSWORD", ""),
			DB:       getEnvAsInt("REDIS_DB", 0),
			Enabled:  getEnvAsBool("REDIS_ENABLED", true),
		},

		Provider: ProviderConfig{
			NSEBaseURL:       getEnv("NSE_BASE_URL", "https://archives.nseindia.com"),
			OHLCVBaseURL:     getEnv("OHLCV_BASE_URL", "https://api.upstox.com/v2"),
			FMPAPIKey:        getEnv("FMP_API_KEY", ""),
			HoldingsBaseURL:  getEnv("HOLDINGS_BASE_URL", "https://www.nseindia.com"),
			CallDelay:        getEnvAsDuration("PROVIDER_CALL_DELAY", "300ms"),
			BatchConcurrency: getEnvAsInt("PROVIDER_BATCH_CONCURRENCY", 8),
			HorizonDays:      getEnvAsInt("PROVIDER_HORIZON_DAYS", 400),
		},

		Portfolio: PortfolioConfig{
			Value:           getEnvAsFloat("PORTFOLIO_VALUE", 1_000_000),
			RiskPctPerTrade: getEnvAsFloat("RISK_PCT_PER_TRADE", 0.015),
			MaxPositions:    getEnvAsInt("MAX_POSITIONS", 12),
			MaxSectorPct:    getEnvAsFloat("MAX_SECTOR_PCT", 0.25),
			MaxSectorCount:  getEnvAsInt("MAX_SECTOR_COUNT", 3),
			MaxPositionPct:  getEnvAsFloat("MAX_POSITION_PCT", 0.08),
			CashReservePct:  getEnvAsFloat("CASH_RESERVE_PCT", 0.30),
			MaxCorrelation:  getEnvAsFloat("MAX_CORRELATION", 0.70),
		},

		Pipeline: PipelineConfig{
			RetryInitial:   getEnvAsDuration("PIPELINE_RETRY_INITIAL", "1s"),
			RetryMax:       getEnvAsDuration("PIPELINE_RETRY_MAX", "30s"),
			RetryAttempts:  getEnvAsInt("PIPELINE_RETRY_ATTEMPTS", 3),
			BatchTimeout:   getEnvAsDuration("PIPELINE_BATCH_TIMEOUT", "10m"),
			ComputeTimeout: getEnvAsDuration("PIPELINE_COMPUTE_TIMEOUT", "5m"),
			FetchTimeout:   getEnvAsDuration("PIPELINE_FETCH_TIMEOUT", "3m"),
		},

		LogLevel:  getEnv("LOG_LEVEL", "info"),
		LogFormat: getEnv("LOG_FORMAT", "json"),

		MetricsEnabled: getEnvAsBool("METRICS_ENABLED", true),
		MetricsPort:    getEnv("METRICS_PORT", "9090"),
	}

	if err := cfg.validate(); err != nil {
		return nil, fmt.Errorf("config validation failed: %w", err)
	}

	return cfg, nil
}

// validate checks if required configuration values are set
func (c *Config) validate() error {
	if c.Database.URL == "" {
		return fmt.Errorf("DATABASE_URL is required")
	}

	if c.Env != "development" && c.Env != "staging" && c.Env != "production" {
		return fmt.Errorf("ENV must be one of: development, staging, production")
	}

	if c.Portfolio.RiskPctPerTrade <= 0 || c.Portfolio.RiskPctPerTrade > 0.05 {
		return fmt.Errorf("RISK_PCT_PER_TRADE must be in (0, 0.05]")
	}

	if c.Portfolio.CashReservePct < 0 || c.Portfolio.CashReservePct >= 1 {
		return fmt.Errorf("CASH_RESERVE_PCT must be in [0, 1)")
	}

	return nil
}

// loadEnvFile tries to load .env from multiple locations
func loadEnvFile() {
	paths := []string{
		".env",
	}

	if exe, err := os.Executable(); err == nil {
		exeDir := filepath.Dir(exe)
		paths = append(paths,
			filepath.Join(exeDir, ".env"),
			filepath.Join(exeDir, "..", ".env"),
			filepath.Join(exeDir, "..", "..", ".env"),
		)
	}

	for _, path := range paths {
		if _, err := os.Stat(path); err == nil {
			_ = godotenv.Load(path)
			return
		}
	}
}

func getEnv(key, defaultValue string) string {
	if value := os.Getenv(key); value != "" {
		return value
	}
	return defaultValue
}

func getEnvAsInt(key string, defaultValue int) int {
	valueStr := os.Getenv(key)
	if valueStr == "" {
		return defaultValue
	}

	value, err := strconv.Atoi(valueStr)
	if err != nil {
		return defaultValue
	}

	return value
}

func getEnvAsFloat(key string, defaultValue float64) float64 {
	valueStr := os.Getenv(key)
	if valueStr == "" {
		return defaultValue
	}

	value, err := strconv.ParseFloat(valueStr, 64)
	if err != nil {
		return defaultValue
	}

	return value
}

func getEnvAsBool(key string, defaultValue bool) bool {
	valueStr := os.Getenv(key)
	if valueStr == "" {
		return defaultValue
	}

	value, err := strconv.ParseBool(valueStr)
	if err != nil {
		return defaultValue
	}

	return value
}

func getEnvAsDuration(key string, defaultValue string) time.Duration {
	valueStr := os.Getenv(key)
	if valueStr == "" {
		valueStr = defaultValue
	}

	duration, err := time.ParseDuration(valueStr)
	if err != nil {
		duration, _ = time.ParseDuration(defaultValue)
	}

	return duration
}
