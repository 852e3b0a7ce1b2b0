package middleware

import (
	"net/http"
	"time"

	"github.com/go-chi/chi/v5/middleware"
	"github.com/rs/zerolog"

	"github.com/evyataryagoni/geoip-service/internal/logger"
)

// LoggingMiddleware writes one entry when a request starts and one when it completes.
// Completion is logged at warn for 4xx and error for 5xx.
func LoggingMiddleware(log *logger.Logger) func(http.Handler) http.Handler {
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			start := time.Now()
			ww := middleware.NewWrapResponseWriter(w, r.ProtoMajor)
			reqLog := log.WithRequestID(middleware.GetReqID(r.Context()))

			reqLog.Debug().
				Str("method", r.Method).
				Str("uri", r.URL.RequestURI()).
				Str("remote_addr", r.RemoteAddr).
				Str("user_agent", r.UserAgent()).
				Msg("Request started")

			next.ServeHTTP(ww, r)

			status := ww.Status()
			if status == 0 {
				status = http.StatusOK
			}

			level := zerolog.InfoLevel
			switch {
			case status >= http.StatusInternalServerError:
				level = zerolog.ErrorLevel
			case status >= http.StatusBadRequest:
				level = zerolog.WarnLevel
			}

			reqLog.WithLevel(level).
				Str("method", r.Method).
				Str("uri", r.URL.RequestURI()).
				Str("remote_addr", r.RemoteAddr).
				Int("status", status).
				Int("bytes", ww.BytesWritten()).
				Dur("duration_ms", time.Since(start)).
				Msg("Request completed")
		})
	}
}
