package config

import (
	"fmt"
	"os"
	"strconv"
	"strings"
	"time"

	"github.com/joho/godotenv"
	"github.com/rs/zerolog/log"
)

// Datastore types accepted in DATASTORE_TYPE
const (
	DatastoreCSV         = "csv"
	DatastoreMySQL       = "mysql"
	DatastoreRedis       = "redis"
	DatastoreMaxMind     = "maxmind"
	DatastoreIP2Location = "ip2location"
)

// Config holds all application configuration
type Config struct {
	// Server
	Port            string
	ReadTimeout     time.Duration
	WriteTimeout    time.Duration
	ShutdownTimeout time.Duration

	// Logging
	LogLevel  string
	LogPretty bool
	LogFile   string

	// Rate limiting
	RateLimitType   string // "memory" or "redis"
	RateLimit       int    // requests allowed per window
	RateLimitWindow int    // window length in seconds

	// Datastore
	DatastoreType string // csv, mysql, redis, maxmind or ip2location
	DatastorePath string // CSV file, .mmdb or .BIN database

	// MySQL
	MySQLDSN string

	// Redis, shared by the Redis store and the Redis limiter
	RedisAddr     string
	RedisPassword string
	RedisDB       int
}

// Load reads configuration from the environment, after applying a .env
// file if one exists. Variables already set in the environment win.
func Load() *Config {
	if err := godotenv.Load(); err != nil {
		log.Debug().Msg("No .env file found, using environment variables or defaults")
	}

	return &Config{
		Port:            getEnv("PORT", "3000"),
		ReadTimeout:     getEnvAsDuration("READ_TIMEOUT", 5*time.Second),
		WriteTimeout:    getEnvAsDuration("WRITE_TIMEOUT", 10*time.Second),
		ShutdownTimeout: getEnvAsDuration("SHUTDOWN_TIMEOUT", 10*time.Second),

		LogLevel:  getEnv("LOG_LEVEL", "info"),
		LogPretty: getEnvAsBool("LOG_PRETTY", true),
		LogFile:   getEnv("LOG_FILE", ""),

		RateLimitType:   getEnv("RATE_LIMITER_TYPE", "memory"),
		RateLimit:       getEnvAsInt("RATE_LIMIT", 10),
		RateLimitWindow: getEnvAsInt("RATE_LIMIT_WINDOW", 1),

		DatastoreType: strings.ToLower(getEnv("DATASTORE_TYPE", DatastoreCSV)),
		DatastorePath: getEnv("DATASTORE_PATH", "./data/geoip.csv"),

		MySQLDSN: getEnv("MYSQL_DSN", ""),

		RedisAddr:     getEnv("REDIS_ADDR", "localhost:6379"),
		RedisPassword: getEnv("REDIS_PASSWORD", ""),
		RedisDB:       getEnvAsInt("REDIS_DB", 0),
	}
}

// Validate reports settings the server cannot start with
func (c *Config) Validate() error {
	switch c.DatastoreType {
	case DatastoreCSV, DatastoreMaxMind, DatastoreIP2Location:
		if c.DatastorePath == "" {
			return fmt.Errorf("DATASTORE_PATH is required for datastore %q", c.DatastoreType)
		}
	case DatastoreMySQL:
		if c.MySQLDSN == "" {
			return fmt.Errorf("MYSQL_DSN is required for datastore %q", c.DatastoreType)
		}
	case DatastoreRedis:
		if c.RedisAddr == "" {
			return fmt.Errorf("REDIS_ADDR is required for datastore %q", c.DatastoreType)
		}
	default:
		return fmt.Errorf("unknown datastore type %q (supported: csv, mysql, redis, maxmind, ip2location)", c.DatastoreType)
	}

	if c.RateLimit < 1 {
		return fmt.Errorf("RATE_LIMIT must be positive, got %d", c.RateLimit)
	}
	if c.RateLimitWindow < 1 {
		return fmt.Errorf("RATE_LIMIT_WINDOW must be positive, got %d", c.RateLimitWindow)
	}
	return nil
}

// Window returns the rate limit window as a duration
func (c *Config) Window() time.Duration {
	return time.Duration(c.RateLimitWindow) * time.Second
}

// getEnv reads an environment variable or returns a default value
func getEnv(key, defaultValue string) string {
	value := os.Getenv(key)
	if value == "" {
		return defaultValue
	}
	return value
}

// getEnvAsInt reads an environment variable as an integer.
// Returns default if not set or invalid.
func getEnvAsInt(key string, defaultValue int) int {
	value, err := strconv.Atoi(os.Getenv(key))
	if err != nil {
		return defaultValue
	}
	return value
}

func getEnvAsBool(key string, defaultValue bool) bool {
	value, err := strconv.ParseBool(os.Getenv(key))
	if err != nil {
		return defaultValue
	}
	return value
}

// getEnvAsDuration accepts Go durations ("750ms", "1m") or plain seconds ("5")
func getEnvAsDuration(key string, defaultValue time.Duration) time.Duration {
	valueStr := os.Getenv(key)
	if valueStr == "" {
		return defaultValue
	}

	if d, err := time.ParseDuration(valueStr); err == nil {
		return d
	}
	if seconds, err := strconv.Atoi(valueStr); err == nil {
		return time.Duration(seconds) * time.Second
	}
	return defaultValue
}
