package config

import (
	"errors"
	"fmt"
	"os"
	"runtime"
	"strconv"
	"strings"
	"time"

	"gopkg.in/yaml.v3"
)

var (
	// ErrMissingFleet is returned when no transit or shared vehicles are configured.
	ErrMissingFleet = errors.New("fleet has no transit or shared vehicles")

	// ErrNegativeWindow is returned when the transfer window is below zero.
	ErrNegativeWindow = errors.New("transfer window must not be negative")

	// ErrNegativeRate is returned when a fare amount or allowance is below zero.
	ErrNegativeRate = errors.New("fare rates must not be negative")
)

// Config holds all configuration for the application.
type Config struct {
	Server   ServerConfig
	Database DatabaseConfig
	Redis    RedisConfig
	NewRelic NewRelicConfig
	Fare     FareConfig
	Fleet    FleetConfig
	Sinks    SinkConfig
	Ingest   IngestConfig
}

// ServerConfig holds HTTP server configuration.
type ServerConfig struct {
	Port            string
	ReadTimeout     time.Duration
	WriteTimeout    time.Duration
	ShutdownTimeout time.Duration
}

// DatabaseConfig holds PostgreSQL configuration.
type DatabaseConfig struct {
	Enabled  bool
	Host     string
	Port     string
	User     string
	Password string
	DBName   string
	SSLMode  string
}

// RedisConfig holds Redis configuration.
type RedisConfig struct {
	Enabled      bool
	Addr         string
	Password     string
	DB           int
	Stream       string
	StreamMaxLen int64
}

// NewRelicConfig holds New Relic configuration.
type NewRelicConfig struct {
	AppName    string
	LicenseKey string
	Enabled    bool
}

// FareConfig holds the micromobility fare and transfer rules.
type FareConfig struct {
	TransferWindowSec        float64
	FreeBikeSeconds          float64
	OveragePerMinute         float64
	UnlockFee                float64
	WaiveUnlockWhenEligible  bool
	UseDiscountInsteadOfFree bool
	DiscountRatePerMinute    float64
	FirstMileEnabled         bool
	SourceLabel              string
	TransitDriverPrefix      string
}

// FleetConfig lists the vehicles of each fleet.
type FleetConfig struct {
	File    string   `yaml:"-"`
	Transit []string `yaml:"transit_vehicles"`
	Shared  []string `yaml:"shared_vehicles"`
}

// SinkConfig tunes the record writers.
type SinkConfig struct {
	BufferSize     int
	BatchSize      int
	FlushInterval  time.Duration
	CompassLogPath string
	MemoryCapacity int
}

// IngestConfig tunes batch event ingestion.
type IngestConfig struct {
	Concurrency int
}

// Load loads configuration from environment variables and the optional
// fleet file, then validates it.
func Load() (*Config, error) {
	cfg := &Config{
		Server: ServerConfig{
			Port:            getEnv("SERVER_PORT", "8080"),
			ReadTimeout:     getDurationEnv("SERVER_READ_TIMEOUT", 10*time.Second),
			WriteTimeout:    getDurationEnv("SERVER_WRITE_TIMEOUT", 10*time.Second),
			ShutdownTimeout: getDurationEnv("SERVER_SHUTDOWN_TIMEOUT", 10*time.Second),
		},
		Database: DatabaseConfig{
			Enabled:  getBoolEnv("DB_ENABLED", false),
			Host:     getEnv("DB_HOST", "localhost"),
			Port:     getEnv("DB_PORT", "5432"),
			User:     getEnv("DB_USER", "postgres"),
			Password: getEnv("DB_PASSWORD", "postgres"),
			DBName:   getEnv("DB_NAME", "farebridge"),
			SSLMode:  getEnv("DB_SSLMODE", "disable"),
		},
		Redis: RedisConfig{
			Enabled:      getBoolEnv("REDIS_ENABLED", false),
			Addr:         getEnv("REDIS_ADDR", "localhost:6379"),
			Password:     getEnv("REDIS_PASSWORD", ""),
			DB:           getIntEnv("REDIS_DB", 0),
			Stream:       getEnv("REDIS_RECORD_STREAM", "farebridge:records"),
			StreamMaxLen: int64(getIntEnv("REDIS_RECORD_STREAM_MAXLEN", 100000)),
		},
		NewRelic: NewRelicConfig{
			AppName:    getEnv("NEW_RELIC_APP_NAME", "farebridge"),
			LicenseKey: getEnv("NEW_RELIC_LICENSE_KEY", ""),
			Enabled:    getBoolEnv("NEW_RELIC_ENABLED", false),
		},
		Fare: FareConfig{
			TransferWindowSec:        getFloatEnv("TRANSFER_WINDOW_SEC", 1800),
			FreeBikeSeconds:          getFloatEnv("FREE_BIKE_SECONDS", 900),
			OveragePerMinute:         getFloatEnv("OVERAGE_PER_MINUTE", 0.29),
			UnlockFee:                getFloatEnv("UNLOCK_FEE", 1.00),
			WaiveUnlockWhenEligible:  getBoolEnv("WAIVE_UNLOCK_WHEN_ELIGIBLE", true),
			UseDiscountInsteadOfFree: getBoolEnv("USE_DISCOUNT_INSTEAD_OF_FREE", false),
			DiscountRatePerMinute:    getFloatEnv("DISCOUNT_RATE_PER_MINUTE", 0),
			FirstMileEnabled:         getBoolEnv("FIRST_MILE_ENABLED", true),
			SourceLabel:              getEnv("FARE_SOURCE_LABEL", "shared-mobility"),
			TransitDriverPrefix:      getEnv("TRANSIT_DRIVER_PREFIX", "pt_"),
		},
		Fleet: FleetConfig{
			File:    getEnv("FLEET_FILE", ""),
			Transit: getListEnv("FLEET_TRANSIT_VEHICLES"),
			Shared:  getListEnv("FLEET_SHARED_VEHICLES"),
		},
		Sinks: SinkConfig{
			BufferSize:     getIntEnv("SINK_BUFFER_SIZE", 4096),
			BatchSize:      getIntEnv("SINK_BATCH_SIZE", 256),
			FlushInterval:  getDurationEnv("SINK_FLUSH_INTERVAL", time.Second),
			CompassLogPath: getEnv("COMPASS_LOG_PATH", ""),
			MemoryCapacity: getIntEnv("MEMORY_RECORD_CAPACITY", 100000),
		},
		Ingest: IngestConfig{
			Concurrency: getIntEnv("INGEST_CONCURRENCY", runtime.GOMAXPROCS(0)),
		},
	}

	if cfg.Fleet.File != "" {
		if err := cfg.Fleet.loadFile(); err != nil {
			return nil, err
		}
	}

	if err := cfg.Validate(); err != nil {
		return nil, err
	}
	return cfg, nil
}

// Validate checks values that would make settlement meaningless.
func (c *Config) Validate() error {
	if len(c.Fleet.Transit) == 0 && len(c.Fleet.Shared) == 0 {
		return ErrMissingFleet
	}
	if c.Fare.TransferWindowSec < 0 {
		return fmt.Errorf("%w: %v", ErrNegativeWindow, c.Fare.TransferWindowSec)
	}
	rates := map[string]float64{
		"FREE_BIKE_SECONDS":        c.Fare.FreeBikeSeconds,
		"OVERAGE_PER_MINUTE":       c.Fare.OveragePerMinute,
		"UNLOCK_FEE":               c.Fare.UnlockFee,
		"DISCOUNT_RATE_PER_MINUTE": c.Fare.DiscountRatePerMinute,
	}
	for name, v := range rates {
		if v < 0 {
			return fmt.Errorf("%w: %s=%v", ErrNegativeRate, name, v)
		}
	}
	if c.Ingest.Concurrency <= 0 {
		c.Ingest.Concurrency = 1
	}
	return nil
}

// loadFile merges the YAML fleet file into the env-provided lists.
func (f *FleetConfig) loadFile() error {
	data, err := os.ReadFile(f.File)
	if err != nil {
		return fmt.Errorf("config: read fleet file: %w", err)
	}

	var fromFile FleetConfig
	if err := yaml.Unmarshal(data, &fromFile); err != nil {
		return fmt.Errorf("config: decode fleet yaml: %w", err)
	}

	f.Transit = append(f.Transit, fromFile.Transit...)
	f.Shared = append(f.Shared, fromFile.Shared...)
	return nil
}

func getEnv(key, defaultValue string) string {
	if value := os.Getenv(key); value != "" {
		return value
	}
	return defaultValue
}

func getIntEnv(key string, defaultValue int) int {
	if value := os.Getenv(key); value != "" {
		if intVal, err := strconv.Atoi(value); err == nil {
			return intVal
		}
	}
	return defaultValue
}

func getFloatEnv(key string, defaultValue float64) float64 {
	if value := os.Getenv(key); value != "" {
		if floatVal, err := strconv.ParseFloat(value, 64); err == nil {
			return floatVal
		}
	}
	return defaultValue
}

func getBoolEnv(key string, defaultValue bool) bool {
	if value := os.Getenv(key); value != "" {
		if boolVal, err := strconv.ParseBool(value); err == nil {
			return boolVal
		}
	}
	return defaultValue
}

func getDurationEnv(key string, defaultValue time.Duration) time.Duration {
	if value := os.Getenv(key); value != "" {
		if duration, err := time.ParseDuration(value); err == nil {
			return duration
		}
	}
	return defaultValue
}

func getListEnv(key string) []string {
	value := os.Getenv(key)
	if value == "" {
		return nil
	}
	var out []string
	for _, item := range strings.Split(value, ",") {
		if item = strings.TrimSpace(item); item != "" {
			out = append(out, item)
		}
	}
	return out
}
