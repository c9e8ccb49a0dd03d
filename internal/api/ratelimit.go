package api

import (
	"net"
	"net/http"

	"github.com/Priya8975/email-event-ingestion/internal/engine"
	"github.com/Priya8975/email-event-ingestion/internal/metrics"
)

// rateLimit admits at most limit requests per second per client IP. It must
// run after middleware.RealIP so RemoteAddr is the ESP's address.
func rateLimit(rl *engine.RateLimiter, limit int) func(http.Handler) http.Handler {
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			if rl != nil && !rl.Allow(r.Context(), clientIP(r), limit) {
				metrics.RateLimited.Inc()
				w.Header().Set("Retry-After", "1")
				respondJSON(w, http.StatusTooManyRequests, messageResponse{Message: "rate limit exceeded"})
				return
			}
			next.ServeHTTP(w, r)
		})
	}
}

// clientIP drops the source port so every connection from one address
// shares a bucket.
func clientIP(r *http.Request) string {
	host, _, err := net.SplitHostPort(r.RemoteAddr)
	if err != nil {
		return r.RemoteAddr
	}
	return host
}
