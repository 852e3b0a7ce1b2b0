package store

import (
	"fmt"
	"strings"

	"github.com/evyataryagoni/geoip-service/internal/logger"
)

// Config selects and locates a datastore
type Config struct {
	Type string // csv, mysql, redis, maxmind or ip2location

	// Path is the CSV file, .mmdb or .BIN database. For redis it is the
	// CSV file used to seed an empty keyspace.
	Path string

	MySQLDSN string

	RedisAddr     string
	RedisPassword string
	RedisDB       int
}

// Loader is a store that can be bulk loaded from parsed CSV records
type Loader interface {
	Load(records []Record) (int, error)
}

// New opens the datastore named by cfg.Type
func New(cfg Config, log *logger.Logger) (Store, error) {
	if log == nil {
		log = logger.Nop()
	}
	log = log.WithComponent("Store")

	switch strings.ToLower(cfg.Type) {
	case "csv":
		s, err := NewCSVStore(cfg.Path)
		if err != nil {
			return nil, fmt.Errorf("failed to initialize CSV store: %w", err)
		}
		log.Info().Str("path", cfg.Path).Int("networks", len(s.data)).Msg("CSV store initialized")
		return s, nil

	case "mysql":
		s, err := NewMySQLStore(cfg.MySQLDSN)
		if err != nil {
			return nil, fmt.Errorf("failed to initialize MySQL store: %w", err)
		}
		log.Info().Msg("MySQL store initialized")
		return s, nil

	case "redis":
		s, err := NewRedisStore(cfg.RedisAddr, cfg.RedisPassword, cfg.RedisDB)
		if err != nil {
			return nil, fmt.Errorf("failed to initialize Redis store: %w", err)
		}
		log.Info().Str("addr", cfg.RedisAddr).Msg("Redis store initialized")
		seedIfEmpty(s, cfg.Path, log)
		return s, nil

	case "maxmind":
		s, err := NewMaxMindStore(cfg.Path)
		if err != nil {
			return nil, fmt.Errorf("failed to initialize MaxMind store: %w", err)
		}
		log.Info().Str("path", cfg.Path).Msg("MaxMind store initialized")
		return s, nil

	case "ip2location":
		s, err := NewIP2LocationStore(cfg.Path)
		if err != nil {
			return nil, fmt.Errorf("failed to initialize IP2Location store: %w", err)
		}
		log.Info().Str("path", cfg.Path).Msg("IP2Location store initialized")
		return s, nil

	default:
		return nil, fmt.Errorf("unknown datastore type: %s (supported: csv, mysql, redis, maxmind, ip2location)", cfg.Type)
	}
}

// SeedFromCSV loads the CSV file at path into l
func SeedFromCSV(l Loader, path string) (int, error) {
	records, err := ReadCSVFile(path)
	if err != nil {
		return 0, err
	}
	return l.Load(records)
}

// seedIfEmpty fills an empty Redis keyspace from csvPath.
// Failures are logged; the server still starts and answers 404s.
func seedIfEmpty(s *RedisStore, csvPath string, log *logger.Logger) {
	if csvPath == "" {
		return
	}

	empty, err := s.IsEmpty()
	if err != nil {
		log.Warn().Err(err).Msg("Failed to check if Redis is empty")
		return
	}
	if !empty {
		return
	}

	log.Info().Str("path", csvPath).Msg("Redis is empty, loading data from CSV")
	n, err := SeedFromCSV(s, csvPath)
	if err != nil {
		log.Warn().Err(err).Msg("Failed to load data into Redis")
		return
	}
	log.Info().Int("networks", n).Msg("Redis seeded")
}
