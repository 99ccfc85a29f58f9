package middleware

import (
	"net/http"

	"github.com/rs/zerolog/log"

	"github.com/deepgram/lumina/internal/config"
	"github.com/deepgram/lumina/internal/logger"
	"github.com/deepgram/lumina/pkg/httpext"
	"github.com/deepgram/lumina/pkg/ratelimit"
)

func RateLimit(limitKey string) func(http.Handler) http.Handler {
	cfg := config.GetRateLimitConfig(limitKey)
	if !cfg.Enabled {
		return func(next http.Handler) http.Handler { return next }
	}
	limiter := ratelimit.NewLimiter(cfg.Window, cfg.MaxHits)

	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			// Use X-Forwarded-For if behind proxy, otherwise remote address
			ip := r.Header.Get("X-Forwarded-For")
			if ip == "" {
				ip = r.RemoteAddr
			}

			if !limiter.Allow(ip) {
				log.Warn().
					Str("component", logger.MIDDLEWARE).
					Str("client_ip", ip).
					Str("limit", limitKey).
					Msg("Rate limit exceeded")
				httpext.JsonError(w, "Rate limit exceeded", http.StatusTooManyRequests)
				return
			}

			next.ServeHTTP(w, r)
		})
	}
}
