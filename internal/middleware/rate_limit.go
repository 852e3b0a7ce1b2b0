package middleware

import (
	"net"
	"net/http"

	"github.com/evyataryagoni/geoip-service/internal/apperr"
	"github.com/evyataryagoni/geoip-service/internal/limiter"
	"github.com/evyataryagoni/geoip-service/internal/metrics"
)

// MsgRateLimited is the detail of the 429 envelope
const MsgRateLimited = "Rate limit exceeded. Please try again later."

// RateLimitMiddleware rejects clients over their quota with a 429 error envelope.
// Clients are keyed by r.RemoteAddr without the port; chi's RealIP middleware
// must run first when the service sits behind a proxy. m may be nil.
func RateLimitMiddleware(lim limiter.Limiter, m *metrics.Metrics) func(http.Handler) http.Handler {
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			if !lim.Allow(clientKey(r.RemoteAddr)) {
				if m != nil {
					m.RateLimitedTotal.Inc()
				}
				apperr.Write(w, r, apperr.New(http.StatusTooManyRequests, MsgRateLimited))
				return
			}

			next.ServeHTTP(w, r)
		})
	}
}

// clientKey strips the port from a host:port address
func clientKey(remoteAddr string) string {
	if host, _, err := net.SplitHostPort(remoteAddr); err == nil {
		return host
	}
	return remoteAddr
}
