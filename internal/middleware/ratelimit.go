package middleware

import (
	"net/http"

	"github.com/songstudio/studio-api/internal/pkg/logger"
	"github.com/songstudio/studio-api/internal/pkg/ratelimit"
	"github.com/songstudio/studio-api/internal/pkg/response"
)

// RateLimit throttles authenticated callers by email. Limiter failures let the
// request through so a Redis outage does not take generation down.
func RateLimit(limiter ratelimit.Limiter) func(http.Handler) http.Handler {
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			key := GetEmail(r.Context())
			if key == "" {
				key = "ip:" + r.RemoteAddr
			}

			ok, err := limiter.Allow(r.Context(), key)
			if err != nil {
				logger.FromContext(r.Context()).Warn().Err(err).Msg("rate limiter unavailable")
				next.ServeHTTP(w, r)
				return
			}
			if !ok {
				response.TooManyRequests(w)
				return
			}
			next.ServeHTTP(w, r)
		})
	}
}
