package api

import (
	"net"
	"net/http"

	"github.com/Priya8975/hr-event-ledger/internal/engine"
)

// writeRateLimit rejects writes beyond limit per second per client address.
func writeRateLimit(rl *engine.RateLimiter, limit int) func(http.Handler) http.Handler {
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			if !rl.Allow(r.Context(), clientAddr(r), limit) {
				w.Header().Set("Retry-After", "1")
				respondError(w, http.StatusTooManyRequests, "too many write requests")
				return
			}
			next.ServeHTTP(w, r)
		})
	}
}

// clientAddr strips the port that RemoteAddr carries when no proxy header
// was rewritten by middleware.RealIP.
func clientAddr(r *http.Request) string {
	host, _, err := net.SplitHostPort(r.RemoteAddr)
	if err != nil {
		return r.RemoteAddr
	}
	return host
}
