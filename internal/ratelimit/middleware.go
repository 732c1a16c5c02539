package ratelimit

import (
	"math"
	"net"
	"net/http"
	"strconv"

	"github.com/controllernode/versions/internal/handler"
)

// Middleware rejects requests over the limit with 429. A nil limiter
// disables limiting. RemoteAddr is expected to already hold the client IP
// (chi's RealIP runs first).
func Middleware(l *Limiter) func(http.Handler) http.Handler {
	return func(next http.Handler) http.Handler {
		if l == nil {
			return next
		}
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			res, ok := l.Allow(clientIP(r))

			w.Header().Set("X-RateLimit-Limit", strconv.Itoa(res.Limit))
			w.Header().Set("X-RateLimit-Remaining", strconv.Itoa(res.Remaining))
			w.Header().Set("X-RateLimit-Reset", strconv.FormatInt(res.ResetAt.Unix(), 10))

			if !ok {
				w.Header().Set("Retry-After", strconv.Itoa(int(math.Ceil(res.RetryIn.Seconds()))))
				handler.WriteError(w, http.StatusTooManyRequests, handler.ErrCodeRateLimited, "Too many requests")
				return
			}
			next.ServeHTTP(w, r)
		})
	}
}

func clientIP(r *http.Request) string {
	host, _, err := net.SplitHostPort(r.RemoteAddr)
	if err != nil {
		return r.RemoteAddr
	}
	return host
}
