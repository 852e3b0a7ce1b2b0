package router

import (
	"net/http"

	"github.com/go-chi/chi/v5"
	"github.com/go-chi/chi/v5/middleware"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promhttp"
	httpSwagger "github.com/swaggo/http-swagger/v2"

	_ "github.com/evyataryagoni/geoip-service/docs" // Swagger docs
	"github.com/evyataryagoni/geoip-service/internal/apperr"
	"github.com/evyataryagoni/geoip-service/internal/handler"
	"github.com/evyataryagoni/geoip-service/internal/limiter"
	"github.com/evyataryagoni/geoip-service/internal/logger"
	"github.com/evyataryagoni/geoip-service/internal/metrics"
	custommiddleware "github.com/evyataryagoni/geoip-service/internal/middleware"
)

// Options configures SetupRouter
type Options struct {
	Handler *handler.GeoHandler
	Limiter limiter.Limiter
	Metrics *metrics.Metrics
	Logger  *logger.Logger

	// Translator renders recovered panics. Defaults to one logging to Logger.
	Translator *apperr.Translator

	// Gatherer backs /metrics. Defaults to the Prometheus default registry.
	Gatherer prometheus.Gatherer
}

// SetupRouter wires middleware and routes.
//
// Middleware order: request ID, real client IP, access log, panic recovery,
// rate limiting, metrics. Only the lookup route is rate limited; health,
// metrics and docs stay reachable for probes.
func SetupRouter(opts Options) chi.Router {
	gatherer := opts.Gatherer
	if gatherer == nil {
		gatherer = prometheus.DefaultGatherer
	}
	translator := opts.Translator
	if translator == nil {
		translator = apperr.NewTranslator(opts.Logger)
	}

	r := chi.NewRouter()

	r.Use(middleware.RequestID)
	r.Use(middleware.RealIP)
	r.Use(custommiddleware.LoggingMiddleware(opts.Logger))
	r.Use(custommiddleware.Recoverer(translator))
	r.Use(custommiddleware.MetricsMiddleware(opts.Metrics))

	r.Group(func(r chi.Router) {
		r.Use(custommiddleware.RateLimitMiddleware(opts.Limiter, opts.Metrics))
		r.Get("/", opts.Handler.GetGeolocation)
	})

	r.Get("/health", healthCheckHandler)
	r.Handle("/metrics", promhttp.HandlerFor(gatherer, promhttp.HandlerOpts{}))

	// Swagger UI at /swagger/index.html
	r.Get("/swagger/*", httpSwagger.Handler(
		httpSwagger.URL("/swagger/doc.json"),
	))

	return r
}

// healthCheckHandler reports that the process is serving
func healthCheckHandler(w http.ResponseWriter, r *http.Request) {
	w.Header().Set("Content-Type", "text/plain; charset=utf-8")
	w.WriteHeader(http.StatusOK)
	w.Write([]byte("OK"))
}
