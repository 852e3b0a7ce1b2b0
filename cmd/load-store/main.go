package main

import (
	"flag"

	"github.com/evyataryagoni/geoip-service/internal/config"
	"github.com/evyataryagoni/geoip-service/internal/logger"
	"github.com/evyataryagoni/geoip-service/internal/store"
)

// load-store copies the CSV table into Redis or MySQL.
// Usage: go run ./cmd/load-store -target mysql -csv ./data/geoip.csv
func main() {
	appConfig := config.Load()

	target := flag.String("target", appConfig.DatastoreType, "datastore to load: redis or mysql")
	csvPath := flag.String("csv", "./data/geoip.csv", "CSV file to load")
	flag.Parse()

	log := logger.New(logger.Config{Level: appConfig.LogLevel, Pretty: true}).WithComponent("LoadStore")

	var (
		loader store.Loader
		closer func() error
	)

	switch *target {
	case config.DatastoreRedis:
		log.Info().Str("addr", appConfig.RedisAddr).Msg("Connecting to Redis")
		s, err := store.NewRedisStore(appConfig.RedisAddr, appConfig.RedisPassword, appConfig.RedisDB)
		if err != nil {
			log.Fatal().Err(err).Msg("Failed to connect to Redis")
		}
		loader, closer = s, s.Close

	case config.DatastoreMySQL:
		log.Info().Msg("Connecting to MySQL")
		s, err := store.NewMySQLStore(appConfig.MySQLDSN)
		if err != nil {
			log.Fatal().Err(err).Msg("Failed to connect to MySQL")
		}
		if err := s.Migrate(); err != nil {
			s.Close()
			log.Fatal().Err(err).Msg("Failed to migrate geo_locations table")
		}
		loader, closer = s, s.Close

	default:
		log.Fatal().Str("target", *target).Msg("Target must be redis or mysql")
	}
	defer closer()

	log.Info().Str("path", *csvPath).Msg("Loading data")
	n, err := store.SeedFromCSV(loader, *csvPath)
	if err != nil {
		closer()
		log.Fatal().Err(err).Msg("Failed to load CSV data")
	}

	log.Info().Int("networks", n).Str("target", *target).Msg("Data loaded, start the server with DATASTORE_TYPE=" + *target)
}
