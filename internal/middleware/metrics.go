package middleware

import (
	"net/http"
	"strconv"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/go-chi/chi/v5/middleware"

	"github.com/evyataryagoni/geoip-service/internal/metrics"
)

// unmatchedRoute labels requests that hit no route, keeping label cardinality bounded
const unmatchedRoute = "unmatched"

// MetricsMiddleware records request count, latency and response size.
// The endpoint label is the chi route pattern, never the raw path.
// A nil m records nothing.
func MetricsMiddleware(m *metrics.Metrics) func(http.Handler) http.Handler {
	return func(next http.Handler) http.Handler {
		if m == nil {
			return next
		}
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			start := time.Now()
			ww := middleware.NewWrapResponseWriter(w, r.ProtoMajor)

			next.ServeHTTP(ww, r)

			code := ww.Status()
			if code == 0 {
				code = http.StatusOK
			}
			status := strconv.Itoa(code)
			endpoint := routePattern(r)

			m.HTTPRequestsTotal.WithLabelValues(r.Method, endpoint, status).Inc()
			m.HTTPRequestDuration.WithLabelValues(r.Method, endpoint, status).Observe(time.Since(start).Seconds())
			m.HTTPResponseSize.WithLabelValues(r.Method, endpoint, status).Observe(float64(ww.BytesWritten()))
		})
	}
}

func routePattern(r *http.Request) string {
	rctx := chi.RouteContext(r.Context())
	if rctx == nil {
		return unmatchedRoute
	}
	if pattern := rctx.RoutePattern(); pattern != "" {
		return pattern
	}
	return unmatchedRoute
}
