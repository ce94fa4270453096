// Package config provides configuration loading and validation.
package config

import (
	"fmt"
	"os"
	"strconv"
	"time"
)

// Config holds all application configuration.
type Config struct {
	Server    ServerConfig
	Graph     GraphConfig
	Records   RecordsConfig
	PriceList PriceListConfig
	FX        FXConfig
	Auth      AuthConfig
	Business  BusinessConfig
	Jobs      JobsConfig
	Logging   LoggingConfig
}

// ServerConfig holds HTTP server settings.
type ServerConfig struct {
	Host            string
	Port            int
	ReadTimeout     time.Duration
	WriteTimeout    time.Duration
	ShutdownTimeout time.Duration
}

// GraphConfig holds graph data store (Neo4j) connection settings.
type GraphConfig struct {
	URI      string
	User     string
	Password string
	Database string
}

// RecordsConfig holds the tabular business-records store API settings.
type RecordsConfig struct {
	Realm   string
	Token   string
	Timeout time.Duration

	// Table identifiers in the records store.
	ContractsTable string
	RenewalsTable  string
	ServicesTable  string
}

// PriceListConfig holds the partner price-list API settings.
type PriceListConfig struct {
	BaseURL string
	Token   string
	Timeout time.Duration
}

// FXConfig holds exchange-rate provider settings.
type FXConfig struct {
	BaseURL      string
	Timeout      time.Duration
	CacheTTL     time.Duration
	FallbackRate float64

	// RefreshCurrency is the local currency the background job keeps warm.
	RefreshCurrency string
}

// AuthConfig holds API authentication settings.
type AuthConfig struct {
	APIKey string
}

// BusinessConfig holds margin policy constants. TargetGM/MinAcceptableGM are
// the configurable business thresholds; the 40%/50% recommendation bands shown
// to users are fixed in the margin package and intentionally kept separate.
type BusinessConfig struct {
	TargetGM            float64
	MinAcceptableGM     float64
	NearbyRadiusMeters  float64
	QuoteLookbackMonths int
	BandwidthTolerance  float64
}

// JobsConfig holds background job settings.
type JobsConfig struct {
	FXRefreshSchedule string
}

// LoggingConfig holds logging settings.
type LoggingConfig struct {
	Level  string
	Format string
}

// Load loads configuration from environment variables.
func Load() (*Config, error) {
	cfg := &Config{
		Server: ServerConfig{
			Host:            getEnv("SERVER_HOST", "0.0.0.0"),
			Port:            getEnvInt("SERVER_PORT", 8080),
			ReadTimeout:     getEnvDuration("SERVER_READ_TIMEOUT", 30*time.Second),
			WriteTimeout:    getEnvDuration("SERVER_WRITE_TIMEOUT", 30*time.Second),
			ShutdownTimeout: getEnvDuration("SERVER_SHUTDOWN_TIMEOUT", 30*time.Second),
		},
		Graph: GraphConfig{
			URI:      getEnv("GRAPH_URI", "neo4j://localhost:7687"),
			User:     getEnv("GRAPH_USER", "neo4j"),
			Password: getEnv("GRAPH_PASSWORD", ""),
			Database: getEnv("GRAPH_DATABASE", "neo4j"),
		},
		Records: RecordsConfig{
			Realm:          getEnv("RECORDS_REALM", ""),
			Token:          getEnv("RECORDS_TOKEN", ""),
			Timeout:        getEnvDuration("RECORDS_TIMEOUT", 30*time.Second),
			ContractsTable: getEnv("RECORDS_CONTRACTS_TABLE", "contracts"),
			RenewalsTable:  getEnv("RECORDS_RENEWALS_TABLE", "renewals"),
			ServicesTable:  getEnv("RECORDS_SERVICES_TABLE", "services"),
		},
		PriceList: PriceListConfig{
			BaseURL: getEnv("PRICELIST_BASE_URL", ""),
			Token:   getEnv("PRICELIST_TOKEN", ""),
			Timeout: getEnvDuration("PRICELIST_TIMEOUT", 30*time.Second),
		},
		FX: FXConfig{
			BaseURL:         getEnv("FX_BASE_URL", "https://api.exchangerate-api.com"),
			Timeout:         getEnvDuration("FX_TIMEOUT", 5*time.Second),
			CacheTTL:        getEnvDuration("FX_CACHE_TTL", time.Hour),
			FallbackRate:    getEnvFloat("FX_FALLBACK_RATE", 5.40),
			RefreshCurrency: getEnv("FX_REFRESH_CURRENCY", "BRL"),
		},
		Auth: AuthConfig{
			APIKey: getEnv("API_KEY", ""),
		},
		Business: BusinessConfig{
			TargetGM:            getEnvFloat("TARGET_GM", 0.55),
			MinAcceptableGM:     getEnvFloat("MIN_ACCEPTABLE_GM", 0.50),
			NearbyRadiusMeters:  getEnvFloat("NEARBY_RADIUS_METERS", 1000),
			QuoteLookbackMonths: getEnvInt("QUOTE_LOOKBACK_MONTHS", 12),
			BandwidthTolerance:  getEnvFloat("BANDWIDTH_TOLERANCE", 0.50),
		},
		Jobs: JobsConfig{
			FXRefreshSchedule: getEnv("JOB_FX_REFRESH", "0 */30 * * * *"),
		},
		Logging: LoggingConfig{
			Level:  getEnv("LOG_LEVEL", "info"),
			Format: getEnv("LOG_FORMAT", "json"),
		},
	}

	if err := cfg.Validate(); err != nil {
		return nil, err
	}

	return cfg, nil
}

// Validate validates the configuration.
func (c *Config) Validate() error {
	if c.Auth.APIKey == "" {
		return fmt.Errorf("API_KEY is required")
	}
	if c.Graph.Password == "" {
		return fmt.Errorf("GRAPH_PASSWORD is required")
	}
	if c.Business.TargetGM <= 0 || c.Business.TargetGM >= 1 {
		return fmt.Errorf("TARGET_GM must be a fraction between 0 and 1")
	}
	if c.Business.MinAcceptableGM <= 0 || c.Business.MinAcceptableGM >= 1 {
		return fmt.Errorf("MIN_ACCEPTABLE_GM must be a fraction between 0 and 1")
	}
	return nil
}

// Helper functions
func getEnv(key, fallback string) string {
	if v := os.Getenv(key); v != "" {
		return v
	}
	return fallback
}

func getEnvInt(key string, fallback int) int {
	if v := os.Getenv(key); v != "" {
		if i, err := strconv.Atoi(v); err == nil {
			return i
		}
	}
	return fallback
}

func getEnvFloat(key string, fallback float64) float64 {
	if v := os.Getenv(key); v != "" {
		if f, err := strconv.ParseFloat(v, 64); err == nil {
			return f
		}
	}
	return fallback
}

func getEnvDuration(key string, fallback time.Duration) time.Duration {
	if v := os.Getenv(key); v != "" {
		if d, err := time.ParseDuration(v); err == nil {
			return d
		}
	}
	return fallback
}
