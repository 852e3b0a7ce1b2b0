package main

import (
	"context"
	"errors"
	"net/http"
	"os"
	"os/signal"
	"syscall"

	"github.com/evyataryagoni/geoip-service/internal/apperr"
	"github.com/evyataryagoni/geoip-service/internal/config"
	"github.com/evyataryagoni/geoip-service/internal/handler"
	"github.com/evyataryagoni/geoip-service/internal/limiter"
	"github.com/evyataryagoni/geoip-service/internal/logger"
	"github.com/evyataryagoni/geoip-service/internal/metrics"
	"github.com/evyataryagoni/geoip-service/internal/router"
	"github.com/evyataryagoni/geoip-service/internal/service"
	"github.com/evyataryagoni/geoip-service/internal/store"
)

// @title           GeoIP Service API
// @version         1.0
// @description     Resolves IPv4 and full-form IPv6 addresses to coordinates, country and city.

// @host      localhost:3000
// @BasePath  /
func main() {
	appConfig := config.Load()
	appLogger := setupLogger(appConfig)

	if err := appConfig.Validate(); err != nil {
		appLogger.Fatal().Err(err).Msg("Invalid configuration")
	}

	dataStore := setupDataStore(appConfig, appLogger)
	rateLimiter := setupRateLimiter(appConfig, appLogger)
	defer rateLimiter.Close()

	metricsCollector := metrics.New()

	geoService := service.NewGeoService(dataStore, metricsCollector, appLogger)
	defer geoService.Close()

	translator := apperr.NewTranslator(appLogger)
	geoHandler := handler.NewGeoHandler(geoService, translator)
	appRouter := router.SetupRouter(router.Options{
		Handler:    geoHandler,
		Limiter:    rateLimiter,
		Metrics:    metricsCollector,
		Logger:     appLogger,
		Translator: translator,
	})

	if err := runServer(appConfig, appRouter, appLogger); err != nil {
		appLogger.Error().Err(err).Msg("Server stopped with error")
	}
}

// setupLogger builds the process logger from configuration
func setupLogger(appConfig *config.Config) *logger.Logger {
	appLogger := logger.New(logger.Config{
		Level:      appConfig.LogLevel,
		Pretty:     appConfig.LogPretty,
		OutputFile: appConfig.LogFile,
	})

	appLogger.Info().Msg("Starting GeoIP server...")
	appLogger.Info().
		Str("port", appConfig.Port).
		Str("rate_limiter_type", appConfig.RateLimitType).
		Int("rate_limit", appConfig.RateLimit).
		Int("rate_limit_window", appConfig.RateLimitWindow).
		Str("datastore_type", appConfig.DatastoreType).
		Str("datastore_path", appConfig.DatastorePath).
		Msg("Configuration loaded")

	return appLogger
}

// setupDataStore opens the configured datastore or exits
func setupDataStore(appConfig *config.Config, log *logger.Logger) store.Store {
	dataStore, err := store.New(store.Config{
		Type:          appConfig.DatastoreType,
		Path:          appConfig.DatastorePath,
		MySQLDSN:      appConfig.MySQLDSN,
		RedisAddr:     appConfig.RedisAddr,
		RedisPassword: appConfig.RedisPassword,
		RedisDB:       appConfig.RedisDB,
	}, log)
	if err != nil {
		log.Fatal().Err(err).Str("type", appConfig.DatastoreType).Msg("Failed to initialize datastore")
	}
	return dataStore
}

// setupRateLimiter builds the memory or Redis limiter or exits
func setupRateLimiter(appConfig *config.Config, log *logger.Logger) limiter.Limiter {
	rateLimiter, err := limiter.New(limiter.Config{
		Type:          appConfig.RateLimitType,
		Limit:         appConfig.RateLimit,
		Window:        appConfig.Window(),
		RedisAddr:     appConfig.RedisAddr,
		RedisPassword: appConfig.RedisPassword,
		RedisDB:       appConfig.RedisDB,
		Logger:        log,
	})
	if err != nil {
		log.Fatal().Err(err).Msg("Failed to initialize rate limiter")
	}

	log.Info().
		Str("type", appConfig.RateLimitType).
		Int("limit", appConfig.RateLimit).
		Dur("window", appConfig.Window()).
		Msg("Rate limiter initialized")

	return rateLimiter
}

// runServer serves until SIGINT or SIGTERM, then drains in-flight requests
func runServer(appConfig *config.Config, appRouter http.Handler, log *logger.Logger) error {
	server := &http.Server{
		Addr:         ":" + appConfig.Port,
		Handler:      appRouter,
		ReadTimeout:  appConfig.ReadTimeout,
		WriteTimeout: appConfig.WriteTimeout,
	}

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	serveErr := make(chan error, 1)
	go func() {
		log.Info().
			Str("port", appConfig.Port).
			Str("api_endpoint", "http://localhost:"+appConfig.Port+"/?ip=<ip>").
			Str("health_check", "http://localhost:"+appConfig.Port+"/health").
			Str("metrics", "http://localhost:"+appConfig.Port+"/metrics").
			Str("swagger", "http://localhost:"+appConfig.Port+"/swagger/index.html").
			Msg("Server is running")
		serveErr <- server.ListenAndServe()
	}()

	select {
	case err := <-serveErr:
		if errors.Is(err, http.ErrServerClosed) {
			return nil
		}
		return err
	case <-ctx.Done():
	}

	log.Info().Dur("timeout", appConfig.ShutdownTimeout).Msg("Shutting down")
	shutdownCtx, cancel := context.WithTimeout(context.Background(), appConfig.ShutdownTimeout)
	defer cancel()

	if err := server.Shutdown(shutdownCtx); err != nil {
		return err
	}
	log.Info().Msg("Server stopped")
	return nil
}
